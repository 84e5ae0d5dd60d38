package models

import "time"

type CartItem struct {
	ID        string
	UserEmail string
	ServiceID string
	Quantity  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CartEntry is a cart item joined with the service it refers to, as returned
// to the client.
type CartEntry struct {
	CartItem
	ServiceName string
	PriceCents  int64
	ImageURL    string
}
