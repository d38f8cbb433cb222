package dto

// CreateBookmarkRequest is the bookmark creation form.
type CreateBookmarkRequest struct {
	DocumentPageID int64  `form:"documentPageId" json:"documentPageId" validate:"required,gt=0"`
	Title          string `form:"title" json:"title" validate:"max=500"`
}
