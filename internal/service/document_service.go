package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/bookdb-api/internal/dto"
	"github.com/noah-isme/bookdb-api/internal/models"
	appErrors "github.com/noah-isme/bookdb-api/pkg/errors"
	"github.com/noah-isme/bookdb-api/pkg/pdf"
)

const (
	documentListCachePrefix  = "documents:list:"
	documentListCachePattern = documentListCachePrefix + "*"
	pdfContentType           = "application/pdf"

	maxFileNameLength    = 500
	maxContentTypeLength = 100
)

// AllowedExtensions lists the upload formats accepted by document ingestion.
var AllowedExtensions = []string{".pdf", ".docx", ".txt"}

type documentStore interface {
	List(ctx context.Context, filter models.DocumentFilter) ([]models.Document, int, error)
	FindByID(ctx context.Context, id int64) (*models.Document, error)
	Create(ctx context.Context, exec sqlx.ExtContext, doc *models.Document) error
	Update(ctx context.Context, doc *models.Document) error
	Delete(ctx context.Context, id int64) error
}

type documentPageStore interface {
	CreateBatch(ctx context.Context, exec sqlx.ExtContext, pages []models.DocumentPage) error
	FindByID(ctx context.Context, id int64) (*models.DocumentPage, error)
	ListByDocument(ctx context.Context, documentID int64) ([]models.DocumentPage, error)
}

type documentBookmarkReader interface {
	List(ctx context.Context, search string) ([]models.BookmarkDetail, error)
	FindByPage(ctx context.Context, pageID int64) (*models.Bookmark, error)
}

type fileStore interface {
	SaveStream(name string, r io.Reader) (int64, error)
	Delete(name string) error
	DeleteDir(dir string) error
	Path(name string) string
	URL(name string) string
	NameFromURL(url string) (string, bool)
}

type pageSplitter interface {
	Split(sourcePath, outputDir string) ([]pdf.SplitPage, error)
}

type documentNotifier interface {
	NotifyDocumentUploaded(title string) error
	NotifyDocumentUpdated(doc *models.Document) error
	NotifyDocumentDeleted(title string) error
	NotifyPageDeleted(documentID, pageID int64, pageNumber int) error
}

type pageTextScheduler interface {
	Schedule(documentID int64, pageIDs []int64) error
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// DocumentServiceConfig tunes ingestion and listing.
type DocumentServiceConfig struct {
	MaxUploadBytes  int64
	DefaultPageSize int
	MaxPageSize     int
	CacheTTL        time.Duration
}

// DocumentService owns document ingestion, listing, viewing, editing and deletion.
type DocumentService struct {
	docs      documentStore
	pages     documentPageStore
	bookmarks documentBookmarkReader
	files     fileStore
	splitter  pageSplitter
	tx        txProvider
	notifier  documentNotifier
	pageText  pageTextScheduler
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       DocumentServiceConfig
	now       func() time.Time
}

// NewDocumentService wires document dependencies. notifier, pageText, cache and metrics may be nil.
func NewDocumentService(
	docs documentStore,
	pages documentPageStore,
	bookmarks documentBookmarkReader,
	files fileStore,
	splitter pageSplitter,
	tx txProvider,
	notifier documentNotifier,
	pageText pageTextScheduler,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg DocumentServiceConfig,
) *DocumentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = 20
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = 100
	}
	return &DocumentService{
		docs:      docs,
		pages:     pages,
		bookmarks: bookmarks,
		files:     files,
		splitter:  splitter,
		tx:        tx,
		notifier:  notifier,
		pageText:  pageText,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// UploadConstraints reports what Create accepts.
func (s *DocumentService) UploadConstraints() dto.UploadConstraints {
	return dto.UploadConstraints{
		AllowedExtensions: append([]string(nil), AllowedExtensions...),
		MaxBytes:          s.cfg.MaxUploadBytes,
	}
}

// Create stores an uploaded file and its document row. PDFs are split into one page row per
// source page inside the same transaction; on failure nothing is left behind.
func (s *DocumentService) Create(ctx context.Context, upload *dto.FileUpload, form dto.DocumentForm) (*models.Document, error) {
	ext, err := s.checkUpload(upload)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Struct(form); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid document payload")
	}

	storedName, written, err := s.store(upload, ext)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	doc := &models.Document{
		Title:       form.Title,
		Category:    form.Category,
		Author:      form.Author,
		FileName:    upload.FileName,
		FileSize:    upload.Size,
		FilePath:    stringPtr(s.files.URL(storedName)),
		ContentType: optionalString(upload.ContentType),
		Description: optionalString(form.Description),
		IsPublic:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if doc.FileSize <= 0 {
		doc.FileSize = written
	}

	pages, err := s.persist(ctx, doc, storedName, ext)
	if err != nil {
		s.discard(storedName, doc.ID)
		return nil, err
	}
	doc.Pages = pages

	s.metrics.RecordDocumentUploaded(ext, len(pages))
	s.cache.Invalidate(ctx, documentListCachePattern)
	if len(pages) > 0 && s.pageText != nil {
		ids := make([]int64, 0, len(pages))
		for _, p := range pages {
			ids = append(ids, p.ID)
		}
		bestEffort(s.logger, "schedule page text extraction", s.pageText.Schedule(doc.ID, ids), zap.Int64("document_id", doc.ID))
	}
	if s.notifier != nil {
		bestEffort(s.logger, "notify document uploaded", s.notifier.NotifyDocumentUploaded(doc.Title), zap.Int64("document_id", doc.ID))
	}

	s.logger.Info("document created",
		zap.Int64("document_id", doc.ID),
		zap.String("file_name", doc.FileName),
		zap.Int("pages", len(pages)),
	)
	return doc, nil
}

func (s *DocumentService) checkUpload(upload *dto.FileUpload) (string, error) {
	if upload == nil || upload.Content == nil || upload.Size <= 0 {
		return "", appErrors.Clone(appErrors.ErrValidation, "File not selected.")
	}
	ext := strings.ToLower(filepath.Ext(upload.FileName))
	if !isAllowedExtension(ext) {
		return "", appErrors.Clone(appErrors.ErrValidation, "Format not supported.")
	}
	if utf8.RuneCountInString(upload.FileName) > maxFileNameLength {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file name exceeds %d characters", maxFileNameLength))
	}
	if utf8.RuneCountInString(upload.ContentType) > maxContentTypeLength {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("content type exceeds %d characters", maxContentTypeLength))
	}
	if s.cfg.MaxUploadBytes > 0 && upload.Size > s.cfg.MaxUploadBytes {
		return "", appErrors.Clone(appErrors.ErrTooLarge, fmt.Sprintf("file exceeds %d bytes", s.cfg.MaxUploadBytes))
	}
	return ext, nil
}

func (s *DocumentService) store(upload *dto.FileUpload, ext string) (string, int64, error) {
	storedName := uuid.NewString() + ext
	written, err := s.files.SaveStream(storedName, upload.Content)
	if err != nil {
		bestEffort(s.logger, "remove partial upload", s.files.Delete(storedName), zap.String("file", storedName))
		return "", 0, appErrors.Internal(err, "failed to store uploaded file")
	}
	return storedName, written, nil
}

func (s *DocumentService) persist(ctx context.Context, doc *models.Document, storedName, ext string) (pages []models.DocumentPage, err error) {
	if s.tx == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.docs.Create(ctx, tx, doc); err != nil {
		return nil, appErrors.Internal(err, "failed to create document")
	}

	if ext == ".pdf" {
		pages, err = s.split(ctx, tx, doc.ID, storedName)
		if err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, appErrors.Internal(err, "failed to commit document")
	}
	return pages, nil
}

func (s *DocumentService) split(ctx context.Context, tx *sqlx.Tx, documentID int64, storedName string) ([]models.DocumentPage, error) {
	pageDir := pageDirName(documentID)
	parts, err := s.splitter.Split(s.files.Path(storedName), s.files.Path(pageDir))
	if err != nil {
		return nil, appErrors.Internal(err, "failed to split pdf")
	}
	pages := make([]models.DocumentPage, 0, len(parts))
	for _, part := range parts {
		pages = append(pages, models.DocumentPage{
			DocumentID:  documentID,
			PageNumber:  part.PageNumber,
			FilePath:    stringPtr(s.files.URL(path.Join(pageDir, filepath.Base(part.Path)))),
			ContentType: stringPtr(pdfContentType),
		})
	}
	if len(pages) == 0 {
		return nil, nil
	}
	if err := s.pages.CreateBatch(ctx, tx, pages); err != nil {
		return nil, appErrors.Internal(err, "failed to create document pages")
	}
	return pages, nil
}

// discard removes the files written for an ingestion that did not commit.
func (s *DocumentService) discard(storedName string, documentID int64) {
	bestEffort(s.logger, "remove orphan upload", s.files.Delete(storedName), zap.String("file", storedName))
	if documentID > 0 {
		bestEffort(s.logger, "remove orphan pages", s.files.DeleteDir(pageDirName(documentID)), zap.Int64("document_id", documentID))
	}
}

type cachedDocumentList struct {
	Items []models.Document `json:"items"`
	Total int               `json:"total"`
}

// List returns a page of documents newest first, optionally filtered by a search term.
func (s *DocumentService) List(ctx context.Context, query dto.DocumentListQuery) ([]models.Document, *models.Pagination, error) {
	filter := models.DocumentFilter{
		Search:   strings.TrimSpace(query.Query),
		Page:     query.Page,
		PageSize: query.PageSize,
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = s.cfg.DefaultPageSize
	}
	if filter.PageSize > s.cfg.MaxPageSize {
		filter.PageSize = s.cfg.MaxPageSize
	}

	key := documentListKey(filter)
	var cached cachedDocumentList
	if s.cache.Get(ctx, key, &cached) {
		return cached.Items, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: cached.Total}, nil
	}

	items, total, err := s.docs.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list documents")
	}
	if items == nil {
		items = []models.Document{}
	}
	s.cache.Set(ctx, key, cachedDocumentList{Items: items, Total: total}, s.cfg.CacheTTL)
	return items, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

func documentListKey(filter models.DocumentFilter) string {
	return fmt.Sprintf("%s%d:%d:%s", documentListCachePrefix, filter.Page, filter.PageSize, url.QueryEscape(strings.ToLower(filter.Search)))
}

// GetByID returns a document without its pages.
func (s *DocumentService) GetByID(ctx context.Context, id int64) (*models.Document, error) {
	doc, err := s.docs.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, appErrors.Internal(err, "failed to load document")
	}
	return doc, nil
}

// GetForViewing returns a document with its pages in page order.
func (s *DocumentService) GetForViewing(ctx context.Context, id int64) (*models.Document, error) {
	doc, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	pages, err := s.pages.ListByDocument(ctx, id)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load document pages")
	}
	doc.Pages = pages
	return doc, nil
}

// View prepares a document for display. In paged mode the requested page is clamped into
// 1..N and returned with its bookmark; documents without pages have no current page.
func (s *DocumentService) View(ctx context.Context, id int64, query dto.DocumentViewQuery) (*models.DocumentView, error) {
	doc, err := s.GetForViewing(ctx, id)
	if err != nil {
		return nil, err
	}
	view := &models.DocumentView{
		Document:   doc,
		Mode:       models.ViewModeOriginal,
		TotalPages: len(doc.Pages),
	}
	if doc.FilePath != nil {
		view.FileURL = *doc.FilePath
	}
	if !strings.EqualFold(query.Mode, models.ViewModePaged) {
		return view, nil
	}
	view.Mode = models.ViewModePaged
	if len(doc.Pages) == 0 {
		return view, nil
	}

	number := query.Page
	if number < 1 {
		number = 1
	}
	if number > len(doc.Pages) {
		number = len(doc.Pages)
	}
	current := doc.Pages[number-1]
	view.PageNumber = number
	view.CurrentPage = &current

	if s.bookmarks != nil {
		bookmark, err := s.bookmarks.FindByPage(ctx, current.ID)
		switch {
		case err == nil:
			view.Bookmark = bookmark
		case !errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Internal(err, "failed to load page bookmark")
		}
	}
	return view, nil
}

// GetPage returns a single page.
func (s *DocumentService) GetPage(ctx context.Context, id int64) (*models.DocumentPage, error) {
	page, err := s.pages.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "page not found")
		}
		return nil, appErrors.Internal(err, "failed to load page")
	}
	return page, nil
}

// ListBookmarks returns every bookmark with its page and document details.
func (s *DocumentService) ListBookmarks(ctx context.Context) ([]models.BookmarkDetail, error) {
	items, err := s.bookmarks.List(ctx, "")
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list bookmarks")
	}
	if items == nil {
		items = []models.BookmarkDetail{}
	}
	return items, nil
}

// Update overwrites the metadata of a document and optionally replaces its file. It returns
// false when the document does not exist. Existing pages are kept when the file is replaced.
func (s *DocumentService) Update(ctx context.Context, id int64, upload *dto.FileUpload, form dto.DocumentForm) (bool, error) {
	if err := s.validator.Struct(form); err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid document payload")
	}
	replacing := upload != nil && upload.Content != nil && upload.Size > 0
	var ext string
	if replacing {
		var err error
		if ext, err = s.checkUpload(upload); err != nil {
			return false, err
		}
	}

	doc, err := s.docs.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, appErrors.Internal(err, "failed to load document")
	}

	doc.Title = form.Title
	doc.Category = form.Category
	doc.Author = form.Author
	doc.Description = optionalString(form.Description)
	doc.UpdatedAt = s.now().UTC()

	var previous string
	var storedName string
	if replacing {
		if doc.FilePath != nil {
			previous = *doc.FilePath
		}
		var written int64
		if storedName, written, err = s.store(upload, ext); err != nil {
			return false, err
		}
		doc.FilePath = stringPtr(s.files.URL(storedName))
		doc.ContentType = optionalString(upload.ContentType)
		doc.FileName = upload.FileName
		doc.FileSize = upload.Size
		if doc.FileSize <= 0 {
			doc.FileSize = written
		}
	}

	if err := s.docs.Update(ctx, doc); err != nil {
		if storedName != "" {
			bestEffort(s.logger, "remove replacement upload", s.files.Delete(storedName), zap.String("file", storedName))
		}
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, appErrors.Internal(err, "failed to update document")
	}

	if previous != "" {
		s.removeStoredFile(previous)
	}
	s.cache.Invalidate(ctx, documentListCachePattern)
	if s.notifier != nil {
		bestEffort(s.logger, "notify document updated", s.notifier.NotifyDocumentUpdated(doc), zap.Int64("document_id", id))
	}
	return true, nil
}

// Delete removes a document, its file and its page files. It returns false when the document
// does not exist. Cleanup and notification failures are logged only.
func (s *DocumentService) Delete(ctx context.Context, id int64) (bool, error) {
	doc, err := s.docs.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, appErrors.Internal(err, "failed to load document")
	}
	pages, err := s.pages.ListByDocument(ctx, id)
	if err != nil {
		s.logger.Warn("list pages before delete failed", zap.Int64("document_id", id), zap.Error(err))
		pages = nil
	}

	if err := s.docs.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, appErrors.Internal(err, "failed to delete document")
	}

	if doc.FilePath != nil {
		s.removeStoredFile(*doc.FilePath)
	}
	bestEffort(s.logger, "remove page directory", s.files.DeleteDir(pageDirName(id)), zap.Int64("document_id", id))
	s.cache.Invalidate(ctx, documentListCachePattern)

	if s.notifier != nil {
		for _, p := range pages {
			bestEffort(s.logger, "notify page deleted", s.notifier.NotifyPageDeleted(id, p.ID, p.PageNumber), zap.Int64("page_id", p.ID))
		}
		bestEffort(s.logger, "notify document deleted", s.notifier.NotifyDocumentDeleted(doc.Title), zap.Int64("document_id", id))
	}
	s.logger.Info("document deleted", zap.Int64("document_id", id))
	return true, nil
}

func (s *DocumentService) removeStoredFile(fileURL string) {
	name, ok := s.files.NameFromURL(fileURL)
	if !ok {
		s.logger.Warn("stored file outside upload root", zap.String("file_path", fileURL))
		return
	}
	bestEffort(s.logger, "remove stored file", s.files.Delete(name), zap.String("file", name))
}

func isAllowedExtension(ext string) bool {
	for _, allowed := range AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

func pageDirName(documentID int64) string {
	return fmt.Sprintf("doc_%d", documentID)
}

func stringPtr(v string) *string {
	return &v
}

func optionalString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
