package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/bookdb-api/internal/models"
)

const documentColumns = "id, title, category, author, file_name, file_size, file_path, content_type, description, is_public, created_at, updated_at"

// DocumentRepository persists uploaded documents.
type DocumentRepository struct {
	db *sqlx.DB
}

// NewDocumentRepository constructs the repository.
func NewDocumentRepository(db *sqlx.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// List returns a page of documents, newest first, optionally filtered by a case-insensitive
// substring of title, author or category.
func (r *DocumentRepository) List(ctx context.Context, filter models.DocumentFilter) ([]models.Document, int, error) {
	where, args := documentWhere(filter.Search)

	var total int
	countQuery := "SELECT COUNT(*) FROM documents" + where
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count documents: %w", err)
	}

	page, size := filter.Page, filter.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}
	args = append(args, size, (page-1)*size)
	query := fmt.Sprintf("SELECT %s FROM documents%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d",
		documentColumns, where, len(args)-1, len(args))

	var docs []models.Document
	if err := r.db.SelectContext(ctx, &docs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list documents: %w", err)
	}
	return docs, total, nil
}

func documentWhere(search string) (string, []interface{}) {
	search = strings.TrimSpace(search)
	if search == "" {
		return "", nil
	}
	return " WHERE (title ILIKE $1 OR author ILIKE $1 OR category ILIKE $1)", []interface{}{"%" + escapeLike(search) + "%"}
}

// escapeLike neutralises LIKE metacharacters so the search term matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// FindByID loads a document without its pages.
func (r *DocumentRepository) FindByID(ctx context.Context, id int64) (*models.Document, error) {
	query := "SELECT " + documentColumns + " FROM documents WHERE id = $1"
	var doc models.Document
	if err := r.db.GetContext(ctx, &doc, query, id); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Create inserts a document and populates its ID and timestamps.
func (r *DocumentRepository) Create(ctx context.Context, exec sqlx.ExtContext, doc *models.Document) error {
	if doc == nil {
		return fmt.Errorf("document payload is nil")
	}
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = doc.CreatedAt

	const query = `
INSERT INTO documents (title, category, author, file_name, file_size, file_path, content_type, description, is_public, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING id`
	if err := sqlx.GetContext(ctx, r.exec(exec), &doc.ID, query,
		doc.Title, doc.Category, doc.Author, doc.FileName, doc.FileSize, doc.FilePath,
		doc.ContentType, doc.Description, doc.IsPublic, doc.CreatedAt, doc.UpdatedAt,
	); err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

// Update overwrites metadata and file fields of an existing document.
func (r *DocumentRepository) Update(ctx context.Context, doc *models.Document) error {
	if doc == nil {
		return fmt.Errorf("document payload is nil")
	}
	const query = `
UPDATE documents
SET title = $1, category = $2, author = $3, description = $4, file_name = $5, file_size = $6,
	file_path = $7, content_type = $8, updated_at = $9
WHERE id = $10`
	result, err := r.db.ExecContext(ctx, query,
		doc.Title, doc.Category, doc.Author, doc.Description, doc.FileName, doc.FileSize,
		doc.FilePath, doc.ContentType, doc.UpdatedAt, doc.ID,
	)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	return requireAffected(result, "update document")
}

// Delete removes a document; its pages and their bookmarks cascade.
func (r *DocumentRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM documents WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return requireAffected(result, "delete document")
}

// Ping checks database connectivity.
func (r *DocumentRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func requireAffected(result sql.Result, op string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
