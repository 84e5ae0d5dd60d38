package models

import "time"

type Category struct {
	ID          string
	Name        string
	Slug        string
	ImageURL    string
	SortOrder   int
	IsPublished bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Service struct {
	ID          string
	CategoryID  string
	Name        string
	Slug        string
	Description string
	// PriceCents avoids float drift in money arithmetic.
	PriceCents  int64
	DurationMin int
	ImageURL    string
	IsPublished bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
