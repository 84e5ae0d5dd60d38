package ids

import "github.com/segmentio/ksuid"

// New returns a sortable unique identifier for catalog and cart entities.
func New() string {
	return ksuid.New().String()
}
