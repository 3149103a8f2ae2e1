package domain

import "time"

// Message is one value of a messages.json catalog
type Message struct {
	Message      string       `json:"message"`
	Description  string       `json:"description,omitempty"`
	Placeholders Placeholders `json:"placeholders,omitempty"`
}

// Catalog maps message ids to their values. Both fetched base catalogs
// and saved work snapshots use this shape.
type Catalog map[string]Message

// Seed is a base message plus the translation it starts with
type Seed struct {
	Message
	Translation string
}

// Item is one id/value pair of an ordered catalog
type Item struct {
	ID      string
	Message Message
}

// Summary is the catalog-wide completion state
type Summary struct {
	Translated int     `json:"translated"`
	Total      int     `json:"total"`
	Percent    float64 `json:"percent"`
	Unchanged  int     `json:"unchanged"`
	Errors     int     `json:"errors"`
}

// Revision records one snapshot write
type Revision struct {
	ID        string    `json:"id"`
	Key       string    `json:"key"`
	Size      int       `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}
