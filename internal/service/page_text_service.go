package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/bookdb-api/internal/models"
	"github.com/noah-isme/bookdb-api/pkg/jobs"
)

// JobTypePageText identifies page text extraction jobs.
const JobTypePageText = "page_text"

// PageTextPayload names the pages of one document to extract text for.
type PageTextPayload struct {
	DocumentID int64
	PageIDs    []int64
}

type jobEnqueuer interface {
	TryEnqueue(job jobs.Job) error
}

// PageTextScheduler queues text extraction for freshly split pages.
type PageTextScheduler struct {
	queue jobEnqueuer
}

// NewPageTextScheduler constructs a scheduler over queue.
func NewPageTextScheduler(queue jobEnqueuer) *PageTextScheduler {
	return &PageTextScheduler{queue: queue}
}

// Schedule enqueues extraction without blocking; a full queue is reported to the caller.
func (s *PageTextScheduler) Schedule(documentID int64, pageIDs []int64) error {
	if s == nil || s.queue == nil || len(pageIDs) == 0 {
		return nil
	}
	return s.queue.TryEnqueue(jobs.Job{
		ID:      fmt.Sprintf("doc-%d", documentID),
		Type:    JobTypePageText,
		Payload: PageTextPayload{DocumentID: documentID, PageIDs: pageIDs},
	})
}

type pageTextStore interface {
	ListByIDs(ctx context.Context, ids []int64) ([]models.DocumentPage, error)
	FillText(ctx context.Context, id int64, text string) (bool, error)
}

type pageFileLocator interface {
	Path(name string) string
	NameFromURL(url string) (string, bool)
}

type pageUpdateNotifier interface {
	NotifyPageUpdated(documentID, pageID int64, pageNumber int) error
}

// TextExtractor reads the plain text of a single-page PDF.
type TextExtractor func(path string) (string, error)

// PageTextWorker fills empty page text from the page files.
type PageTextWorker struct {
	pages    pageTextStore
	files    pageFileLocator
	extract  TextExtractor
	notifier pageUpdateNotifier
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewPageTextWorker constructs a worker. notifier and metrics may be nil.
func NewPageTextWorker(pages pageTextStore, files pageFileLocator, extract TextExtractor, notifier pageUpdateNotifier, metrics *MetricsService, logger *zap.Logger) *PageTextWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PageTextWorker{pages: pages, files: files, extract: extract, notifier: notifier, metrics: metrics, logger: logger}
}

// Handle processes a queue job. Unreadable page files are skipped; storage failures are
// returned so the queue retries, and pages edited in the meantime are left untouched.
func (w *PageTextWorker) Handle(ctx context.Context, job jobs.Job) (err error) {
	defer func() { w.metrics.RecordPageTextJob(err) }()

	payload, ok := job.Payload.(PageTextPayload)
	if !ok {
		w.logger.Error("unexpected page text payload", zap.String("job_id", job.ID), zap.String("type", job.Type))
		return nil
	}

	pages, err := w.pages.ListByIDs(ctx, payload.PageIDs)
	if err != nil {
		return err
	}

	var errs []error
	for _, page := range pages {
		if page.FilePath == nil || (page.TextContent != nil && *page.TextContent != "") {
			continue
		}
		name, ok := w.files.NameFromURL(*page.FilePath)
		if !ok {
			continue
		}
		text, extractErr := w.extract(w.files.Path(name))
		if extractErr != nil {
			w.logger.Warn("extract page text failed", zap.Int64("page_id", page.ID), zap.Error(extractErr))
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		changed, fillErr := w.pages.FillText(ctx, page.ID, text)
		if fillErr != nil {
			errs = append(errs, fmt.Errorf("page %d: %w", page.ID, fillErr))
			continue
		}
		if changed && w.notifier != nil {
			bestEffort(w.logger, "notify page updated", w.notifier.NotifyPageUpdated(page.DocumentID, page.ID, page.PageNumber), zap.Int64("page_id", page.ID))
		}
	}
	return errors.Join(errs...)
}
