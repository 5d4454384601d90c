package model

import "time"

// Website is shared by every user who bookmarks a page on its domain.
type Website struct {
	ID            string    `json:"id"`
	Domain        string    `json:"domain"`
	Name          string    `json:"name"`
	FaviconURL    *string   `json:"faviconUrl"`
	BookmarkCount int       `json:"bookmarkCount"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}
