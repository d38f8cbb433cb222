package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/bookdb-api/internal/models"
	appErrors "github.com/noah-isme/bookdb-api/pkg/errors"
)

type pageStore interface {
	FindByID(ctx context.Context, id int64) (*models.DocumentPage, error)
	FindDetail(ctx context.Context, id int64) (*models.DocumentPageDetail, error)
	ListByDocument(ctx context.Context, documentID int64) ([]models.DocumentPage, error)
	UpdateText(ctx context.Context, id int64, text string) error
}

type pageChangeNotifier interface {
	NotifyPageChanged(documentID, pageID int64) error
}

// DocumentPageService reads pages and edits their text.
type DocumentPageService struct {
	repo     pageStore
	notifier pageChangeNotifier
	logger   *zap.Logger
}

// NewDocumentPageService constructs the service. notifier may be nil.
func NewDocumentPageService(repo pageStore, notifier pageChangeNotifier, logger *zap.Logger) *DocumentPageService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentPageService{repo: repo, notifier: notifier, logger: logger}
}

// GetPage returns a page or NotFound.
func (s *DocumentPageService) GetPage(ctx context.Context, id int64) (*models.DocumentPage, error) {
	page, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "page not found")
		}
		return nil, appErrors.Internal(err, "failed to load page")
	}
	return page, nil
}

// GetPageDetail returns a page with its document title or NotFound.
func (s *DocumentPageService) GetPageDetail(ctx context.Context, id int64) (*models.DocumentPageDetail, error) {
	page, err := s.repo.FindDetail(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "page not found")
		}
		return nil, appErrors.Internal(err, "failed to load page")
	}
	return page, nil
}

// ListByDocument returns the pages of a document in page order.
func (s *DocumentPageService) ListByDocument(ctx context.Context, documentID int64) ([]models.DocumentPage, error) {
	pages, err := s.repo.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list pages")
	}
	if pages == nil {
		pages = []models.DocumentPage{}
	}
	return pages, nil
}

// UpdateText replaces the text of a page and tells the document's viewers.
func (s *DocumentPageService) UpdateText(ctx context.Context, id int64, text string) (*models.DocumentPage, error) {
	page, err := s.GetPage(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateText(ctx, id, text); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "page not found")
		}
		return nil, appErrors.Internal(err, "failed to update page")
	}
	page.TextContent = &text

	if s.notifier != nil {
		bestEffort(s.logger, "notify page changed", s.notifier.NotifyPageChanged(page.DocumentID, page.ID), zap.Int64("page_id", id))
	}
	return page, nil
}
