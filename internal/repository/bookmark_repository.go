package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/bookdb-api/internal/models"
)

const bookmarkDetailQuery = `
SELECT b.id, b.document_page_id, b.url, b.title, b.created_at,
	p.document_id, p.page_number, d.title AS document_title
FROM bookmarks b
JOIN document_pages p ON p.id = b.document_page_id
JOIN documents d ON d.id = p.document_id`

// BookmarkRepository persists page bookmarks.
type BookmarkRepository struct {
	db *sqlx.DB
}

// NewBookmarkRepository constructs the repository.
func NewBookmarkRepository(db *sqlx.DB) *BookmarkRepository {
	return &BookmarkRepository{db: db}
}

// Create inserts a bookmark. A second bookmark for the same page yields ErrDuplicate.
func (r *BookmarkRepository) Create(ctx context.Context, bookmark *models.Bookmark) error {
	if bookmark == nil {
		return fmt.Errorf("bookmark payload is nil")
	}
	if bookmark.CreatedAt.IsZero() {
		bookmark.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO bookmarks (document_page_id, url, title, created_at) VALUES ($1, $2, $3, $4) RETURNING id`
	if err := r.db.GetContext(ctx, &bookmark.ID, query, bookmark.DocumentPageID, bookmark.URL, bookmark.Title, bookmark.CreatedAt); err != nil {
		return fmt.Errorf("insert bookmark: %w", translateUnique(err))
	}
	return nil
}

// FindByID loads a bookmark.
func (r *BookmarkRepository) FindByID(ctx context.Context, id int64) (*models.Bookmark, error) {
	const query = `SELECT id, document_page_id, url, title, created_at FROM bookmarks WHERE id = $1`
	var bookmark models.Bookmark
	if err := r.db.GetContext(ctx, &bookmark, query, id); err != nil {
		return nil, err
	}
	return &bookmark, nil
}

// FindByPage loads the bookmark for a page.
func (r *BookmarkRepository) FindByPage(ctx context.Context, pageID int64) (*models.Bookmark, error) {
	const query = `SELECT id, document_page_id, url, title, created_at FROM bookmarks WHERE document_page_id = $1`
	var bookmark models.Bookmark
	if err := r.db.GetContext(ctx, &bookmark, query, pageID); err != nil {
		return nil, err
	}
	return &bookmark, nil
}

// ExistsForPage reports whether the page already carries a bookmark.
func (r *BookmarkRepository) ExistsForPage(ctx context.Context, pageID int64) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM bookmarks WHERE document_page_id = $1)`, pageID); err != nil {
		return false, fmt.Errorf("check bookmark for page: %w", err)
	}
	return exists, nil
}

// List returns bookmarks newest first, optionally filtered by a case-insensitive substring of the
// bookmark title or its document's title.
func (r *BookmarkRepository) List(ctx context.Context, search string) ([]models.BookmarkDetail, error) {
	query := strings.Builder{}
	query.WriteString(bookmarkDetailQuery)
	var args []interface{}
	if search = strings.TrimSpace(search); search != "" {
		args = append(args, "%"+escapeLike(search)+"%")
		query.WriteString("\nWHERE (b.title ILIKE $1 OR d.title ILIKE $1)")
	}
	query.WriteString("\nORDER BY b.created_at DESC, b.id DESC")

	var items []models.BookmarkDetail
	if err := r.db.SelectContext(ctx, &items, query.String(), args...); err != nil {
		return nil, fmt.Errorf("list bookmarks: %w", err)
	}
	return items, nil
}

// Delete removes a bookmark.
func (r *BookmarkRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM bookmarks WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete bookmark: %w", err)
	}
	return requireAffected(result, "delete bookmark")
}
