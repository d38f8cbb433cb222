package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/bookdb-api/internal/dto"
	"github.com/noah-isme/bookdb-api/internal/models"
	appErrors "github.com/noah-isme/bookdb-api/pkg/errors"
	"github.com/noah-isme/bookdb-api/pkg/pdf"
	"github.com/noah-isme/bookdb-api/pkg/storage"
)

type documentStoreStub struct {
	docs        map[int64]*models.Document
	nextID      int64
	createErr   error
	updateErr   error
	listItems   []models.Document
	listTotal   int
	listErr     error
	lastFilter  models.DocumentFilter
	listCalls   int
	createCalls int
	updateCalls int
	deleteCalls int
}

func newDocumentStoreStub() *documentStoreStub {
	return &documentStoreStub{docs: map[int64]*models.Document{}}
}

func (s *documentStoreStub) List(ctx context.Context, filter models.DocumentFilter) ([]models.Document, int, error) {
	s.listCalls++
	s.lastFilter = filter
	return s.listItems, s.listTotal, s.listErr
}

func (s *documentStoreStub) FindByID(ctx context.Context, id int64) (*models.Document, error) {
	doc, ok := s.docs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *doc
	return &clone, nil
}

func (s *documentStoreStub) Create(ctx context.Context, exec sqlx.ExtContext, doc *models.Document) error {
	s.createCalls++
	if s.createErr != nil {
		return s.createErr
	}
	s.nextID++
	doc.ID = s.nextID
	clone := *doc
	s.docs[doc.ID] = &clone
	return nil
}

func (s *documentStoreStub) Update(ctx context.Context, doc *models.Document) error {
	s.updateCalls++
	if s.updateErr != nil {
		return s.updateErr
	}
	if _, ok := s.docs[doc.ID]; !ok {
		return sql.ErrNoRows
	}
	clone := *doc
	s.docs[doc.ID] = &clone
	return nil
}

func (s *documentStoreStub) Delete(ctx context.Context, id int64) error {
	s.deleteCalls++
	if _, ok := s.docs[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.docs, id)
	return nil
}

type pageStoreStub struct {
	pages     map[int64]*models.DocumentPage
	titles    map[int64]string
	nextID    int64
	createErr error
	updateErr error
	updates   map[int64]string
	filled    map[int64]string
}

func newPageStoreStub() *pageStoreStub {
	return &pageStoreStub{
		pages:   map[int64]*models.DocumentPage{},
		titles:  map[int64]string{},
		updates: map[int64]string{},
		filled:  map[int64]string{},
	}
}

func (s *pageStoreStub) add(page models.DocumentPage, documentTitle string) {
	clone := page
	s.pages[page.ID] = &clone
	s.titles[page.DocumentID] = documentTitle
}

func (s *pageStoreStub) CreateBatch(ctx context.Context, exec sqlx.ExtContext, pages []models.DocumentPage) error {
	if s.createErr != nil {
		return s.createErr
	}
	for i := range pages {
		s.nextID++
		pages[i].ID = s.nextID
		clone := pages[i]
		s.pages[clone.ID] = &clone
	}
	return nil
}

func (s *pageStoreStub) FindByID(ctx context.Context, id int64) (*models.DocumentPage, error) {
	page, ok := s.pages[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *page
	return &clone, nil
}

func (s *pageStoreStub) FindDetail(ctx context.Context, id int64) (*models.DocumentPageDetail, error) {
	page, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.DocumentPageDetail{DocumentPage: *page, DocumentTitle: s.titles[page.DocumentID]}, nil
}

func (s *pageStoreStub) ListByDocument(ctx context.Context, documentID int64) ([]models.DocumentPage, error) {
	var out []models.DocumentPage
	for _, p := range s.pages {
		if p.DocumentID == documentID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PageNumber < out[j].PageNumber })
	return out, nil
}

func (s *pageStoreStub) ListByIDs(ctx context.Context, ids []int64) ([]models.DocumentPage, error) {
	var out []models.DocumentPage
	for _, id := range ids {
		if p, ok := s.pages[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *pageStoreStub) UpdateText(ctx context.Context, id int64, text string) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	page, ok := s.pages[id]
	if !ok {
		return sql.ErrNoRows
	}
	page.TextContent = &text
	s.updates[id] = text
	return nil
}

func (s *pageStoreStub) FillText(ctx context.Context, id int64, text string) (bool, error) {
	if s.updateErr != nil {
		return false, s.updateErr
	}
	page, ok := s.pages[id]
	if !ok || (page.TextContent != nil && *page.TextContent != "") {
		return false, nil
	}
	page.TextContent = &text
	s.filled[id] = text
	return true, nil
}

type bookmarkReaderStub struct {
	byPage map[int64]*models.Bookmark
	err    error
}

func (s bookmarkReaderStub) List(ctx context.Context, search string) ([]models.BookmarkDetail, error) {
	return nil, s.err
}

func (s bookmarkReaderStub) FindByPage(ctx context.Context, pageID int64) (*models.Bookmark, error) {
	if s.err != nil {
		return nil, s.err
	}
	if b, ok := s.byPage[pageID]; ok {
		return b, nil
	}
	return nil, sql.ErrNoRows
}

// splitterStub writes pageCount placeholder files the way the real splitter names them.
type splitterStub struct {
	pageCount int
	err       error
	calls     int
}

func (s *splitterStub) Split(sourcePath, outputDir string) ([]pdf.SplitPage, error) {
	s.calls++
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, err
	}
	if s.err != nil {
		_ = os.WriteFile(filepath.Join(outputDir, pdf.PageFileName(1)), []byte("partial"), 0o644)
		return nil, s.err
	}
	pages := make([]pdf.SplitPage, 0, s.pageCount)
	for n := 1; n <= s.pageCount; n++ {
		target := filepath.Join(outputDir, pdf.PageFileName(n))
		if err := os.WriteFile(target, []byte("%PDF"), 0o644); err != nil {
			return nil, err
		}
		pages = append(pages, pdf.SplitPage{PageNumber: n, Path: target})
	}
	return pages, nil
}

type notifierStub struct {
	err        error
	uploaded   []string
	updated    []*models.Document
	deleted    []string
	pageDelete []int64
	bookmarks  []*models.Bookmark
	changed    []models.PageChangedEvent
	pageUpdate []models.PageEvent
}

func (n *notifierStub) NotifyDocumentUploaded(title string) error {
	n.uploaded = append(n.uploaded, title)
	return n.err
}

func (n *notifierStub) NotifyDocumentUpdated(doc *models.Document) error {
	n.updated = append(n.updated, doc)
	return n.err
}

func (n *notifierStub) NotifyDocumentDeleted(title string) error {
	n.deleted = append(n.deleted, title)
	return n.err
}

func (n *notifierStub) NotifyPageDeleted(documentID, pageID int64, pageNumber int) error {
	n.pageDelete = append(n.pageDelete, pageID)
	return n.err
}

func (n *notifierStub) NotifyBookmarkDeleted(bookmark *models.Bookmark) error {
	n.bookmarks = append(n.bookmarks, bookmark)
	return n.err
}

func (n *notifierStub) NotifyPageChanged(documentID, pageID int64) error {
	n.changed = append(n.changed, models.PageChangedEvent{PageID: pageID, DocumentID: documentID})
	return n.err
}

func (n *notifierStub) NotifyPageUpdated(documentID, pageID int64, pageNumber int) error {
	n.pageUpdate = append(n.pageUpdate, models.PageEvent{DocumentID: documentID, PageID: pageID, PageNumber: pageNumber})
	return n.err
}

type schedulerStub struct {
	documentID int64
	pageIDs    []int64
	err        error
}

func (s *schedulerStub) Schedule(documentID int64, pageIDs []int64) error {
	s.documentID = documentID
	s.pageIDs = pageIDs
	return s.err
}

type txProviderMock struct {
	db *sqlx.DB
}

func newTxProviderMock(t *testing.T) (*txProviderMock, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlx.NewDb(db, "sqlmock")}, mock
}

func (p *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return p.db.BeginTxx(ctx, opts)
}

type documentFixture struct {
	svc       *DocumentService
	docs      *documentStoreStub
	pages     *pageStoreStub
	files     *storage.LocalStorage
	splitter  *splitterStub
	notifier  *notifierStub
	scheduler *schedulerStub
	mock      sqlmock.Sqlmock
	dir       string
}

func newDocumentFixture(t *testing.T) *documentFixture {
	t.Helper()
	dir := t.TempDir()
	files, err := storage.NewLocalStorage(dir, "/uploads")
	require.NoError(t, err)
	tx, mock := newTxProviderMock(t)
	f := &documentFixture{
		docs:      newDocumentStoreStub(),
		pages:     newPageStoreStub(),
		files:     files,
		splitter:  &splitterStub{},
		notifier:  &notifierStub{},
		scheduler: &schedulerStub{},
		mock:      mock,
		dir:       dir,
	}
	f.svc = NewDocumentService(f.docs, f.pages, bookmarkReaderStub{}, files, f.splitter, tx, f.notifier, f.scheduler, nil, nil, nil, nil,
		DocumentServiceConfig{MaxUploadBytes: 1 << 20})
	return f
}

func upload(name, body string) *dto.FileUpload {
	return &dto.FileUpload{FileName: name, Size: int64(len(body)), ContentType: "application/octet-stream", Content: strings.NewReader(body)}
}

func storedFiles(t *testing.T, dir string) []string {
	t.Helper()
	var names []string
	require.NoError(t, filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			rel, _ := filepath.Rel(dir, path)
			names = append(names, filepath.ToSlash(rel))
		}
		return nil
	}))
	return names
}

func TestDocumentServiceCreateRejectsUnsupportedExtensions(t *testing.T) {
	for _, name := range []string{"notes.exe", "image.png", "archive.tar.gz", "README", "sheet.xlsx"} {
		t.Run(name, func(t *testing.T) {
			f := newDocumentFixture(t)

			doc, err := f.svc.Create(context.Background(), upload(name, "content"), dto.DocumentForm{Title: "T"})
			require.Error(t, err)
			assert.Nil(t, doc)
			assert.True(t, errors.Is(err, appErrors.ErrValidation))
			assert.Equal(t, "Format not supported.", appErrors.FromError(err).Message)
			assert.Zero(t, f.docs.createCalls)
			assert.Empty(t, storedFiles(t, f.dir))
		})
	}
}

func TestDocumentServiceCreateRequiresFile(t *testing.T) {
	cases := map[string]*dto.FileUpload{
		"nil":   nil,
		"empty": upload("empty.pdf", ""),
		"no reader": {
			FileName: "x.pdf",
			Size:     10,
		},
	}
	for name, file := range cases {
		t.Run(name, func(t *testing.T) {
			f := newDocumentFixture(t)

			_, err := f.svc.Create(context.Background(), file, dto.DocumentForm{Title: "T"})
			require.Error(t, err)
			assert.True(t, errors.Is(err, appErrors.ErrValidation))
			assert.Equal(t, "File not selected.", appErrors.FromError(err).Message)
			assert.Zero(t, f.docs.createCalls)
		})
	}
}

func TestDocumentServiceCreateAcceptsUppercaseExtension(t *testing.T) {
	f := newDocumentFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	doc, err := f.svc.Create(context.Background(), upload("NOTES.TXT", "hello"), dto.DocumentForm{Title: "Notes"})
	require.NoError(t, err)
	require.NotNil(t, doc.FilePath)
	assert.True(t, strings.HasSuffix(*doc.FilePath, ".txt"))
	assert.Zero(t, f.splitter.calls)
}

func TestDocumentServiceCreateRejectsOversizedUpload(t *testing.T) {
	f := newDocumentFixture(t)
	big := &dto.FileUpload{FileName: "big.pdf", Size: 2 << 20, Content: strings.NewReader("x")}

	_, err := f.svc.Create(context.Background(), big, dto.DocumentForm{Title: "T"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrTooLarge))
	assert.Empty(t, storedFiles(t, f.dir))
}

func TestDocumentServiceCreateEnforcesColumnLimits(t *testing.T) {
	longName := upload(strings.Repeat("é", 497)+".pdf", "%PDF")
	longType := upload("ok.pdf", "%PDF")
	longType.ContentType = "application/" + strings.Repeat("x", 90)

	cases := map[string]struct {
		file    *dto.FileUpload
		message string
	}{
		"file name":    {longName, "file name exceeds 500 characters"},
		"content type": {longType, "content type exceeds 100 characters"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			f := newDocumentFixture(t)

			_, err := f.svc.Create(context.Background(), tc.file, dto.DocumentForm{Title: "T"})
			require.Error(t, err)
			assert.True(t, errors.Is(err, appErrors.ErrValidation))
			assert.Equal(t, tc.message, appErrors.FromError(err).Message)
			assert.Zero(t, f.docs.createCalls)
			assert.Empty(t, storedFiles(t, f.dir))
		})
	}
}

func TestDocumentServiceCreateAcceptsNameAtLimit(t *testing.T) {
	f := newDocumentFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	name := strings.Repeat("é", 496) + ".txt"

	doc, err := f.svc.Create(context.Background(), upload(name, "hello"), dto.DocumentForm{Title: "T"})
	require.NoError(t, err)
	assert.Equal(t, name, doc.FileName)
}

func TestDocumentServiceCreateValidatesForm(t *testing.T) {
	f := newDocumentFixture(t)

	_, err := f.svc.Create(context.Background(), upload("a.txt", "x"), dto.DocumentForm{Title: strings.Repeat("a", 501)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	assert.Empty(t, storedFiles(t, f.dir))
}

func TestDocumentServiceCreateSplitsPDF(t *testing.T) {
	f := newDocumentFixture(t)
	f.splitter.pageCount = 3
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	doc, err := f.svc.Create(context.Background(), upload("book.pdf", "%PDF-1.4"), dto.DocumentForm{Title: "Book", Author: "Ann"})
	require.NoError(t, err)
	require.Len(t, doc.Pages, 3)
	for i, page := range doc.Pages {
		assert.Equal(t, i+1, page.PageNumber)
		assert.Equal(t, doc.ID, page.DocumentID)
		require.NotNil(t, page.FilePath)
		assert.Equal(t, fmt.Sprintf("/uploads/doc_%d/page_%d.pdf", doc.ID, i+1), *page.FilePath)
	}

	stored, err := f.pages.ListByDocument(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 3)

	assert.Equal(t, doc.ID, f.scheduler.documentID)
	assert.Len(t, f.scheduler.pageIDs, 3)
	assert.Equal(t, []string{"Book"}, f.notifier.uploaded)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestDocumentServiceCreateSurvivesSideEffectFailures(t *testing.T) {
	f := newDocumentFixture(t)
	f.splitter.pageCount = 1
	f.notifier.err = errors.New("hub down")
	f.scheduler.err = errors.New("queue full")
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	doc, err := f.svc.Create(context.Background(), upload("one.pdf", "%PDF"), dto.DocumentForm{Title: "One"})
	require.NoError(t, err)
	assert.Len(t, doc.Pages, 1)
}

func TestDocumentServiceCreateRollsBackWhenSplitFails(t *testing.T) {
	f := newDocumentFixture(t)
	f.splitter.err = errors.New("corrupt pdf")
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	doc, err := f.svc.Create(context.Background(), upload("bad.pdf", "garbage"), dto.DocumentForm{Title: "Bad"})
	require.Error(t, err)
	assert.Nil(t, doc)
	assert.True(t, errors.Is(err, appErrors.ErrInternal))
	assert.Empty(t, storedFiles(t, f.dir))
	assert.Empty(t, f.notifier.uploaded)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestDocumentServiceCreateRollsBackWhenPagesFail(t *testing.T) {
	f := newDocumentFixture(t)
	f.splitter.pageCount = 2
	f.pages.createErr = errors.New("duplicate page")
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := f.svc.Create(context.Background(), upload("two.pdf", "%PDF"), dto.DocumentForm{Title: "Two"})
	require.Error(t, err)
	assert.Empty(t, storedFiles(t, f.dir))
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestDocumentServiceCreateThenGetRoundTrip(t *testing.T) {
	f := newDocumentFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	form := dto.DocumentForm{Title: "Guide", Category: "Manuals", Author: "Bo", Description: "setup steps"}
	file := upload("guide.docx", "PK..")
	file.ContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

	created, err := f.svc.Create(context.Background(), file, form)
	require.NoError(t, err)

	fetched, err := f.svc.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, form.Title, fetched.Title)
	assert.Equal(t, form.Category, fetched.Category)
	assert.Equal(t, form.Author, fetched.Author)
	require.NotNil(t, fetched.Description)
	assert.Equal(t, form.Description, *fetched.Description)
	require.NotNil(t, fetched.ContentType)
	assert.Equal(t, file.ContentType, *fetched.ContentType)
	assert.Equal(t, int64(4), fetched.FileSize)
	assert.True(t, fetched.IsPublic)
}

func TestDocumentServiceListNormalisesPaging(t *testing.T) {
	f := newDocumentFixture(t)
	f.docs.listItems = []models.Document{{ID: 1, Title: "abc"}}
	f.docs.listTotal = 41

	items, pagination, err := f.svc.List(context.Background(), dto.DocumentListQuery{Query: "  abc ", Page: 0, PageSize: 1000})
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, models.DocumentFilter{Search: "abc", Page: 1, PageSize: 100}, f.docs.lastFilter)
	assert.Equal(t, &models.Pagination{Page: 1, PageSize: 100, TotalCount: 41}, pagination)
}

func TestDocumentServiceListEmpty(t *testing.T) {
	f := newDocumentFixture(t)

	items, pagination, err := f.svc.List(context.Background(), dto.DocumentListQuery{})
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
	assert.Equal(t, 20, pagination.PageSize)
}

type cacheRepoStub struct {
	store   map[string][]models.Document
	total   map[string]int
	deleted []string
}

func (c *cacheRepoStub) Get(ctx context.Context, key string, dest interface{}) error {
	items, ok := c.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	out := dest.(*cachedDocumentList)
	out.Items = items
	out.Total = c.total[key]
	return nil
}

func (c *cacheRepoStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	list := value.(cachedDocumentList)
	c.store[key] = list.Items
	c.total[key] = list.Total
	return nil
}

func (c *cacheRepoStub) DeleteByPattern(ctx context.Context, pattern string) error {
	c.deleted = append(c.deleted, pattern)
	c.store = map[string][]models.Document{}
	return nil
}

func TestDocumentServiceListUsesCache(t *testing.T) {
	f := newDocumentFixture(t)
	repo := &cacheRepoStub{store: map[string][]models.Document{}, total: map[string]int{}}
	f.svc.cache = NewCacheService(repo, nil, time.Minute, nil, true)
	f.docs.listItems = []models.Document{{ID: 1}}
	f.docs.listTotal = 1

	_, _, err := f.svc.List(context.Background(), dto.DocumentListQuery{Query: "Abc"})
	require.NoError(t, err)
	_, pagination, err := f.svc.List(context.Background(), dto.DocumentListQuery{Query: "abc"})
	require.NoError(t, err)
	assert.Equal(t, 1, f.docs.listCalls)
	assert.Equal(t, 1, pagination.TotalCount)

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	_, err = f.svc.Create(context.Background(), upload("n.txt", "x"), dto.DocumentForm{Title: "N"})
	require.NoError(t, err)
	assert.Equal(t, []string{"documents:list:*"}, repo.deleted)

	_, _, err = f.svc.List(context.Background(), dto.DocumentListQuery{Query: "abc"})
	require.NoError(t, err)
	assert.Equal(t, 2, f.docs.listCalls)
}

func seedPDF(t *testing.T, f *documentFixture, pages int) *models.Document {
	t.Helper()
	f.splitter.pageCount = pages
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	doc, err := f.svc.Create(context.Background(), upload("seed.pdf", "%PDF"), dto.DocumentForm{Title: "Seed"})
	require.NoError(t, err)
	return doc
}

func TestDocumentServiceViewPagedClampsPage(t *testing.T) {
	f := newDocumentFixture(t)
	doc := seedPDF(t, f, 3)
	bookmark := &models.Bookmark{ID: 7, DocumentPageID: doc.Pages[2].ID}
	f.svc.bookmarks = bookmarkReaderStub{byPage: map[int64]*models.Bookmark{bookmark.DocumentPageID: bookmark}}

	view, err := f.svc.View(context.Background(), doc.ID, dto.DocumentViewQuery{Page: 99, Mode: "PAGED"})
	require.NoError(t, err)
	assert.Equal(t, models.ViewModePaged, view.Mode)
	assert.Equal(t, 3, view.PageNumber)
	assert.Equal(t, 3, view.TotalPages)
	require.NotNil(t, view.CurrentPage)
	assert.Equal(t, 3, view.CurrentPage.PageNumber)
	assert.Equal(t, bookmark, view.Bookmark)

	view, err = f.svc.View(context.Background(), doc.ID, dto.DocumentViewQuery{Page: -4, Mode: "paged"})
	require.NoError(t, err)
	assert.Equal(t, 1, view.PageNumber)
	assert.Nil(t, view.Bookmark)
}

func TestDocumentServiceViewOriginal(t *testing.T) {
	f := newDocumentFixture(t)
	doc := seedPDF(t, f, 2)

	view, err := f.svc.View(context.Background(), doc.ID, dto.DocumentViewQuery{})
	require.NoError(t, err)
	assert.Equal(t, models.ViewModeOriginal, view.Mode)
	assert.Equal(t, *doc.FilePath, view.FileURL)
	assert.Nil(t, view.CurrentPage)
	assert.Equal(t, 2, view.TotalPages)
}

func TestDocumentServiceViewNotFound(t *testing.T) {
	f := newDocumentFixture(t)

	_, err := f.svc.View(context.Background(), 404, dto.DocumentViewQuery{Mode: "paged"})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestDocumentServiceDeleteMissingDoesNothing(t *testing.T) {
	f := newDocumentFixture(t)

	ok, err := f.svc.Delete(context.Background(), 99)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, f.docs.deleteCalls)
	assert.Empty(t, f.notifier.deleted)
}

func TestDocumentServiceDeleteSucceedsWhenNotifyFails(t *testing.T) {
	f := newDocumentFixture(t)
	doc := seedPDF(t, f, 2)
	require.NotEmpty(t, storedFiles(t, f.dir))
	f.notifier.err = errors.New("hub exploded")

	ok, err := f.svc.Delete(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, f.docs.docs)
	assert.Empty(t, storedFiles(t, f.dir))
	assert.Equal(t, []string{"Seed"}, f.notifier.deleted)
	assert.Len(t, f.notifier.pageDelete, 2)
}

func TestDocumentServiceDeleteToleratesMissingFile(t *testing.T) {
	f := newDocumentFixture(t)
	f.docs.docs[5] = &models.Document{ID: 5, Title: "Ghost", FilePath: stringPtr("/uploads/missing.pdf")}

	ok, err := f.svc.Delete(context.Background(), 5)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDocumentServiceUpdateMissingReturnsFalse(t *testing.T) {
	f := newDocumentFixture(t)

	ok, err := f.svc.Update(context.Background(), 3, nil, dto.DocumentForm{Title: "x"})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, f.docs.updateCalls)
}

func TestDocumentServiceUpdateMetadataOnly(t *testing.T) {
	f := newDocumentFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	doc, err := f.svc.Create(context.Background(), upload("a.txt", "abc"), dto.DocumentForm{Title: "Old", Description: "d"})
	require.NoError(t, err)
	later := doc.UpdatedAt.Add(time.Hour)
	f.svc.now = func() time.Time { return later }

	ok, err := f.svc.Update(context.Background(), doc.ID, nil, dto.DocumentForm{Title: "New", Category: "C", Author: "A"})
	require.NoError(t, err)
	assert.True(t, ok)

	stored := f.docs.docs[doc.ID]
	assert.Equal(t, "New", stored.Title)
	assert.Nil(t, stored.Description)
	assert.Equal(t, later.UTC(), stored.UpdatedAt)
	assert.Equal(t, doc.FilePath, stored.FilePath)
	require.Len(t, f.notifier.updated, 1)
	assert.Equal(t, "New", f.notifier.updated[0].Title)
}

func TestDocumentServiceUpdateReplacesFile(t *testing.T) {
	f := newDocumentFixture(t)
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	doc, err := f.svc.Create(context.Background(), upload("a.txt", "abc"), dto.DocumentForm{Title: "Doc"})
	require.NoError(t, err)
	oldName, _ := f.files.NameFromURL(*doc.FilePath)

	replacement := upload("b.docx", "newer")
	replacement.ContentType = "application/msword"
	ok, err := f.svc.Update(context.Background(), doc.ID, replacement, dto.DocumentForm{Title: "Doc"})
	require.NoError(t, err)
	assert.True(t, ok)

	stored := f.docs.docs[doc.ID]
	assert.NotEqual(t, doc.FilePath, stored.FilePath)
	assert.Equal(t, "application/msword", *stored.ContentType)
	assert.Equal(t, "b.docx", stored.FileName)
	files := storedFiles(t, f.dir)
	assert.Len(t, files, 1)
	assert.NotContains(t, files, oldName)
}

func TestDocumentServiceUpdateRejectsUnsupportedReplacement(t *testing.T) {
	f := newDocumentFixture(t)
	f.docs.docs[1] = &models.Document{ID: 1, Title: "Doc"}

	ok, err := f.svc.Update(context.Background(), 1, upload("x.exe", "MZ"), dto.DocumentForm{Title: "Doc"})
	assert.False(t, ok)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	assert.Zero(t, f.docs.updateCalls)
}

func TestDocumentServiceUpdateRejectsLongReplacementName(t *testing.T) {
	f := newDocumentFixture(t)
	f.docs.docs[1] = &models.Document{ID: 1, Title: "Doc"}

	ok, err := f.svc.Update(context.Background(), 1, upload(strings.Repeat("a", 501)+".txt", "x"), dto.DocumentForm{Title: "Doc"})
	assert.False(t, ok)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	assert.Zero(t, f.docs.updateCalls)
	assert.Empty(t, storedFiles(t, f.dir))
}

func TestDocumentServiceGetPageNotFound(t *testing.T) {
	f := newDocumentFixture(t)

	_, err := f.svc.GetPage(context.Background(), 1)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}
