package models

import "time"

// Bookmark points at a single document page.
type Bookmark struct {
	ID             int64     `db:"id" json:"id"`
	DocumentPageID int64     `db:"document_page_id" json:"document_page_id"`
	URL            string    `db:"url" json:"url"`
	Title          *string   `db:"title" json:"title,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// BookmarkDetail is a bookmark joined with the page and document it points at.
type BookmarkDetail struct {
	Bookmark
	DocumentID    int64  `db:"document_id" json:"document_id"`
	DocumentTitle string `db:"document_title" json:"document_title"`
	PageNumber    int    `db:"page_number" json:"page_number"`
}
