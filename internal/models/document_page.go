package models

// DocumentPage is one page of a split document.
type DocumentPage struct {
	ID          int64   `db:"id" json:"id"`
	DocumentID  int64   `db:"document_id" json:"document_id"`
	PageNumber  int     `db:"page_number" json:"page_number"`
	TextContent *string `db:"text_content" json:"text_content,omitempty"`
	FilePath    *string `db:"file_path" json:"file_path,omitempty"`
	ContentType *string `db:"content_type" json:"content_type,omitempty"`
}

// DocumentPageDetail extends a page with its parent document's title.
type DocumentPageDetail struct {
	DocumentPage
	DocumentTitle string `db:"document_title" json:"document_title"`
}
