package dto

// UpdatePageRequest is the page edit form. ID must match the page in the path.
type UpdatePageRequest struct {
	ID          int64  `form:"id" json:"id"`
	TextContent string `form:"textContent" json:"textContent"`
}

// NotifyRequest is a free text notification pushed through the HTTP surface.
type NotifyRequest struct {
	Message    string `form:"message" json:"message" validate:"required,max=1000"`
	DocumentID int64  `form:"documentId" json:"documentId"`
	UserID     string `form:"userId" json:"userId" validate:"max=128"`
}
