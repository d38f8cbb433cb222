package models

import "time"

// Document is an uploaded file plus its catalogue metadata.
type Document struct {
	ID          int64     `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Category    string    `db:"category" json:"category"`
	Author      string    `db:"author" json:"author"`
	FileName    string    `db:"file_name" json:"file_name"`
	FileSize    int64     `db:"file_size" json:"file_size"`
	FilePath    *string   `db:"file_path" json:"file_path,omitempty"`
	ContentType *string   `db:"content_type" json:"content_type,omitempty"`
	Description *string   `db:"description" json:"description,omitempty"`
	IsPublic    bool      `db:"is_public" json:"is_public"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`

	Pages []DocumentPage `db:"-" json:"pages,omitempty"`
}

// DocumentFilter narrows document listings.
type DocumentFilter struct {
	Search   string
	Page     int
	PageSize int
}

// View modes for document viewing.
const (
	ViewModeOriginal = "original"
	ViewModePaged    = "paged"
)

// DocumentView is what a viewer needs to render a document in one of the view modes.
type DocumentView struct {
	Document    *Document     `json:"document"`
	Mode        string        `json:"mode"`
	FileURL     string        `json:"file_url,omitempty"`
	CurrentPage *DocumentPage `json:"current_page,omitempty"`
	PageNumber  int           `json:"page_number,omitempty"`
	TotalPages  int           `json:"total_pages"`
	Bookmark    *Bookmark     `json:"bookmark,omitempty"`
}
