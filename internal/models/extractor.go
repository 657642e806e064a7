package models

import "time"

// MergeStrategy governs how a new extractor capture combines with a field
// of the same name already present on an entry.
type MergeStrategy string

const (
	// MergeLastWins replaces any existing field with the new capture.
	MergeLastWins MergeStrategy = "last-wins"
	// MergeFirstWins keeps an existing field and only adds new names.
	MergeFirstWins MergeStrategy = "first-wins"
	// Merge is currently an alias for last-wins. Kept as a distinct name
	// so stored definitions round-trip.
	Merge MergeStrategy = "merge"
)

// Extractor is a user-authored named-capture pattern applied to entry raw
// text. Order breaks ties when several extractors run in one pass; when
// two extractors share an Order the earlier CreatedAt runs first.
type Extractor struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Pattern   string    `json:"pattern"`
	Enabled   bool      `json:"enabled"`
	Order     int       `json:"order,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}
