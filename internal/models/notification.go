package models

import "time"

// Realtime event names pushed to connected clients.
const (
	EventDocumentUpdated = "DocumentUpdated"
	EventBookmarkDeleted = "BookmarkDeleted"
	EventPageChanged     = "PageChanged"
	EventPageAdded       = "PageAdded"
	EventPageUpdated     = "PageUpdated"
	EventPageDeleted     = "PageDeleted"
)

// DocumentUpdatedEvent is broadcast after a document's metadata changes.
type DocumentUpdatedEvent struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Category  string    `json:"category"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BookmarkDeletedEvent is broadcast after a bookmark is removed.
type BookmarkDeletedEvent struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Timestamp time.Time `json:"timestamp"`
}

// PageChangedEvent tells a document group that one of its pages changed.
type PageChangedEvent struct {
	PageID     int64 `json:"pageId"`
	DocumentID int64 `json:"documentId"`
}

// PageEvent describes an added, updated or deleted page.
type PageEvent struct {
	DocumentID int64 `json:"documentId"`
	PageID     int64 `json:"pageId"`
	PageNumber int   `json:"pageNumber"`
}
