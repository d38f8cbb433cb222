package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/bookdb-api/internal/dto"
	"github.com/noah-isme/bookdb-api/internal/models"
	"github.com/noah-isme/bookdb-api/internal/repository"
	appErrors "github.com/noah-isme/bookdb-api/pkg/errors"
)

const bookmarkExistsMessage = "bookmark already exists for this page"

type bookmarkStore interface {
	Create(ctx context.Context, bookmark *models.Bookmark) error
	FindByID(ctx context.Context, id int64) (*models.Bookmark, error)
	ExistsForPage(ctx context.Context, pageID int64) (bool, error)
	List(ctx context.Context, search string) ([]models.BookmarkDetail, error)
	Delete(ctx context.Context, id int64) error
}

type bookmarkPageReader interface {
	FindDetail(ctx context.Context, id int64) (*models.DocumentPageDetail, error)
}

type bookmarkNotifier interface {
	NotifyBookmarkDeleted(bookmark *models.Bookmark) error
}

// BookmarkService manages page bookmarks; a page carries at most one bookmark.
type BookmarkService struct {
	repo      bookmarkStore
	pages     bookmarkPageReader
	notifier  bookmarkNotifier
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewBookmarkService constructs the service. notifier may be nil.
func NewBookmarkService(repo bookmarkStore, pages bookmarkPageReader, notifier bookmarkNotifier, validate *validator.Validate, logger *zap.Logger) *BookmarkService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookmarkService{repo: repo, pages: pages, notifier: notifier, validator: validate, logger: logger, now: time.Now}
}

// Create bookmarks a page under url. An empty title defaults to "{document title} - Page {n}".
func (s *BookmarkService) Create(ctx context.Context, req dto.CreateBookmarkRequest, url string) (*models.Bookmark, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bookmark payload")
	}
	if strings.TrimSpace(url) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "bookmark url is required")
	}

	page, err := s.pages.FindDetail(ctx, req.DocumentPageID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "page does not exist")
		}
		return nil, appErrors.Internal(err, "failed to load page")
	}

	exists, err := s.repo.ExistsForPage(ctx, page.ID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to check bookmark")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, bookmarkExistsMessage)
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = fmt.Sprintf("%s - Page %d", page.DocumentTitle, page.PageNumber)
	}
	bookmark := &models.Bookmark{
		DocumentPageID: page.ID,
		URL:            url,
		Title:          &title,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.repo.Create(ctx, bookmark); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, bookmarkExistsMessage)
		}
		return nil, appErrors.Internal(err, "failed to create bookmark")
	}
	s.logger.Info("bookmark created", zap.Int64("bookmark_id", bookmark.ID), zap.Int64("page_id", page.ID))
	return bookmark, nil
}

// Delete removes a bookmark and reports whether it existed.
func (s *BookmarkService) Delete(ctx context.Context, id int64) (bool, error) {
	bookmark, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, appErrors.Internal(err, "failed to load bookmark")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, appErrors.Internal(err, "failed to delete bookmark")
	}
	if s.notifier != nil {
		bestEffort(s.logger, "notify bookmark deleted", s.notifier.NotifyBookmarkDeleted(bookmark), zap.Int64("bookmark_id", id))
	}
	return true, nil
}

// List returns bookmarks newest first, filtered by bookmark or document title.
func (s *BookmarkService) List(ctx context.Context, search string) ([]models.BookmarkDetail, error) {
	items, err := s.repo.List(ctx, search)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list bookmarks")
	}
	if items == nil {
		items = []models.BookmarkDetail{}
	}
	return items, nil
}

// GetByID returns a bookmark or nil when it does not exist.
func (s *BookmarkService) GetByID(ctx context.Context, id int64) (*models.Bookmark, error) {
	bookmark, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Internal(err, "failed to load bookmark")
	}
	return bookmark, nil
}

// GetPageForBookmarkCreation returns the page with its document title, or nil when it does not exist.
func (s *BookmarkService) GetPageForBookmarkCreation(ctx context.Context, pageID int64) (*models.DocumentPageDetail, error) {
	page, err := s.pages.FindDetail(ctx, pageID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Internal(err, "failed to load page")
	}
	return page, nil
}
