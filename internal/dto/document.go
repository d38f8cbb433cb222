package dto

import "io"

// DocumentForm carries the metadata fields of the upload and edit forms.
type DocumentForm struct {
	Title       string `form:"title" validate:"required,max=500"`
	Category    string `form:"category" validate:"max=200"`
	Author      string `form:"author" validate:"max=200"`
	Description string `form:"description"`
}

// FileUpload is an uploaded file as seen by the service layer.
type FileUpload struct {
	FileName    string
	Size        int64
	ContentType string
	Content     io.Reader
}

// DocumentListQuery holds listing parameters.
type DocumentListQuery struct {
	Query    string `form:"q"`
	Page     int    `form:"page"`
	PageSize int    `form:"pageSize"`
}

// DocumentViewQuery holds viewer parameters.
type DocumentViewQuery struct {
	Page int    `form:"page"`
	Mode string `form:"mode"`
}

// UploadConstraints describes what the upload form accepts.
type UploadConstraints struct {
	AllowedExtensions []string `json:"allowed_extensions"`
	MaxBytes          int64    `json:"max_bytes"`
}
