package model

import "time"

// Bookmark is one saved URL owned by one user.
//
// Nullable columns are pointers so JSON encodes them as null rather than
// as empty strings.
type Bookmark struct {
	ID             string     `json:"id"`
	UserID         string     `json:"userId"`
	WebsiteID      string     `json:"websiteId"`
	CategoryID     *string    `json:"categoryId"`
	URL            string     `json:"url"`
	Title          *string    `json:"title"`
	Description    *string    `json:"description"`
	OGTitle        *string    `json:"ogTitle"`
	OGDescription  *string    `json:"ogDescription"`
	OGImageURL     *string    `json:"ogImageUrl"`
	IsFavorite     bool       `json:"isFavorite"`
	IsArchived     bool       `json:"isArchived"`
	AccessCount    int        `json:"accessCount"`
	LastAccessedAt *time.Time `json:"lastAccessedAt"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
	DeletedAt      *time.Time `json:"-"`
}

// BookmarkListItem is the row shape returned when listing a user's
// bookmarks: the bookmark joined with its website and tags.
type BookmarkListItem struct {
	ID          string       `json:"id"`
	URL         string       `json:"url"`
	Title       *string      `json:"title"`
	IsFavorite  bool         `json:"isFavorite"`
	IsArchived  bool         `json:"isArchived"`
	AccessCount int          `json:"accessCount"`
	Domain      string       `json:"domain"`
	FaviconURL  *string      `json:"faviconUrl"`
	Tags        []TagSummary `json:"tags"`
	CreatedAt   time.Time    `json:"createdAt"`
}
