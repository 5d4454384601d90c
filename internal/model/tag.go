package model

import "time"

// Tag is a user-defined label. Slug is derived from Name and is unique per
// user. Embedding is nil when no embedding provider is configured.
type Tag struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	Name       string    `json:"name"`
	Slug       string    `json:"slug"`
	Color      *string   `json:"color"`
	Embedding  []float32 `json:"-"`
	UsageCount int       `json:"usageCount"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// TagSummary is the public view of a tag.
type TagSummary struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Slug  string  `json:"slug"`
	Color *string `json:"color"`
}

// Summary returns the public view of t.
func (t *Tag) Summary() TagSummary {
	return TagSummary{ID: t.ID, Name: t.Name, Slug: t.Slug, Color: t.Color}
}
