package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/bookdb-api/internal/models"
)

const pageColumns = "p.id, p.document_id, p.page_number, p.text_content, p.file_path, p.content_type"

// DocumentPageRepository persists split document pages.
type DocumentPageRepository struct {
	db *sqlx.DB
}

// NewDocumentPageRepository constructs the repository.
func NewDocumentPageRepository(db *sqlx.DB) *DocumentPageRepository {
	return &DocumentPageRepository{db: db}
}

func (r *DocumentPageRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// CreateBatch inserts pages and fills in their IDs. A page number reused within a
// document yields ErrDuplicate.
func (r *DocumentPageRepository) CreateBatch(ctx context.Context, exec sqlx.ExtContext, pages []models.DocumentPage) error {
	const query = `
INSERT INTO document_pages (document_id, page_number, text_content, file_path, content_type)
VALUES ($1, $2, $3, $4, $5)
RETURNING id`
	target := r.exec(exec)
	for i := range pages {
		p := &pages[i]
		if err := sqlx.GetContext(ctx, target, &p.ID, query, p.DocumentID, p.PageNumber, p.TextContent, p.FilePath, p.ContentType); err != nil {
			return fmt.Errorf("insert document page %d: %w", p.PageNumber, translateUnique(err))
		}
	}
	return nil
}

// FindByID loads a page.
func (r *DocumentPageRepository) FindByID(ctx context.Context, id int64) (*models.DocumentPage, error) {
	query := "SELECT " + pageColumns + " FROM document_pages p WHERE p.id = $1"
	var page models.DocumentPage
	if err := r.db.GetContext(ctx, &page, query, id); err != nil {
		return nil, err
	}
	return &page, nil
}

// FindDetail loads a page together with its document's title.
func (r *DocumentPageRepository) FindDetail(ctx context.Context, id int64) (*models.DocumentPageDetail, error) {
	query := "SELECT " + pageColumns + `, d.title AS document_title
FROM document_pages p
JOIN documents d ON d.id = p.document_id
WHERE p.id = $1`
	var detail models.DocumentPageDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ListByDocument returns the pages of a document in page order.
func (r *DocumentPageRepository) ListByDocument(ctx context.Context, documentID int64) ([]models.DocumentPage, error) {
	query := "SELECT " + pageColumns + " FROM document_pages p WHERE p.document_id = $1 ORDER BY p.page_number ASC"
	var pages []models.DocumentPage
	if err := r.db.SelectContext(ctx, &pages, query, documentID); err != nil {
		return nil, fmt.Errorf("list document pages: %w", err)
	}
	return pages, nil
}

// ListByIDs returns the requested pages in page order.
func (r *DocumentPageRepository) ListByIDs(ctx context.Context, ids []int64) ([]models.DocumentPage, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := "SELECT " + pageColumns + " FROM document_pages p WHERE p.id = ANY($1) ORDER BY p.page_number ASC"
	var pages []models.DocumentPage
	if err := r.db.SelectContext(ctx, &pages, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("list document pages by id: %w", err)
	}
	return pages, nil
}

// UpdateText overwrites the text of a page.
func (r *DocumentPageRepository) UpdateText(ctx context.Context, id int64, text string) error {
	result, err := r.db.ExecContext(ctx, "UPDATE document_pages SET text_content = $1 WHERE id = $2", text, id)
	if err != nil {
		return fmt.Errorf("update page text: %w", err)
	}
	return requireAffected(result, "update page text")
}

// FillText sets the text of a page only when none is stored yet. It reports whether the row changed.
func (r *DocumentPageRepository) FillText(ctx context.Context, id int64, text string) (bool, error) {
	const query = `UPDATE document_pages SET text_content = $1 WHERE id = $2 AND (text_content IS NULL OR text_content = '')`
	result, err := r.db.ExecContext(ctx, query, text, id)
	if err != nil {
		return false, fmt.Errorf("fill page text: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("fill page text rows affected: %w", err)
	}
	return affected > 0, nil
}
