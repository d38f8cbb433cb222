package service

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/bookdb-api/internal/models"
	"github.com/noah-isme/bookdb-api/pkg/realtime"
)

type broadcaster interface {
	Broadcast(event string, payload interface{}) error
	BroadcastGroup(group, event string, payload interface{}) error
	SendUser(userID, event string, payload interface{}) error
}

// NotificationService turns domain changes into realtime events. Every method reports the
// dispatch error so callers can log it; none of them retries.
type NotificationService struct {
	hub     broadcaster
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
}

// NewNotificationService constructs the service.
func NewNotificationService(hub broadcaster, metrics *MetricsService, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{hub: hub, metrics: metrics, logger: logger, now: time.Now}
}

// SendGlobal pushes a text notification to every connection.
func (s *NotificationService) SendGlobal(message string) error {
	err := s.send(realtime.EventReceiveNotification, func() error {
		return s.hub.Broadcast(realtime.EventReceiveNotification, message)
	})
	if err == nil {
		s.logger.Info("global notification sent", zap.String("message", message))
	}
	return err
}

// SendDocument pushes a text notification to the viewers of a document.
func (s *NotificationService) SendDocument(documentID int64, message string) error {
	return s.send(realtime.EventReceiveNotification, func() error {
		return s.hub.BroadcastGroup(realtime.GroupName(documentID), realtime.EventReceiveNotification, message)
	})
}

// SendUser pushes a text notification to every connection of a user.
func (s *NotificationService) SendUser(userID, message string) error {
	return s.send(realtime.EventReceiveNotification, func() error {
		return s.hub.SendUser(userID, realtime.EventReceiveNotification, message)
	})
}

// NotifyDocumentUploaded announces a new document.
func (s *NotificationService) NotifyDocumentUploaded(title string) error {
	return s.SendGlobal(fmt.Sprintf("New document added: %s", title))
}

// NotifyDocumentDeleted announces a removed document.
func (s *NotificationService) NotifyDocumentDeleted(title string) error {
	return s.SendGlobal(fmt.Sprintf("Document deleted: %s", title))
}

// NotifyDocumentUpdated announces an edit and broadcasts the new metadata.
func (s *NotificationService) NotifyDocumentUpdated(doc *models.Document) error {
	if doc == nil {
		return nil
	}
	textErr := s.SendGlobal(fmt.Sprintf("Document updated: %s", doc.Title))
	event := models.DocumentUpdatedEvent{
		ID:        doc.ID,
		Title:     doc.Title,
		Category:  doc.Category,
		Author:    doc.Author,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
	eventErr := s.send(models.EventDocumentUpdated, func() error {
		return s.hub.Broadcast(models.EventDocumentUpdated, event)
	})
	return errors.Join(textErr, eventErr)
}

// NotifyBookmarkDeleted broadcasts a removed bookmark.
func (s *NotificationService) NotifyBookmarkDeleted(bookmark *models.Bookmark) error {
	if bookmark == nil {
		return nil
	}
	event := models.BookmarkDeletedEvent{ID: bookmark.ID, Timestamp: s.now().UTC()}
	if bookmark.Title != nil {
		event.Title = *bookmark.Title
	}
	return s.send(models.EventBookmarkDeleted, func() error {
		return s.hub.Broadcast(models.EventBookmarkDeleted, event)
	})
}

// NotifyPageChanged tells the viewers of a document that one of its pages changed.
func (s *NotificationService) NotifyPageChanged(documentID, pageID int64) error {
	return s.send(models.EventPageChanged, func() error {
		return s.hub.BroadcastGroup(realtime.GroupName(documentID), models.EventPageChanged,
			models.PageChangedEvent{PageID: pageID, DocumentID: documentID})
	})
}

// NotifyPageAdded tells the viewers of a document about a new page. Ingestion does not send it:
// no viewer can have joined the group of a document that did not exist yet. It completes the page
// event set of the realtime contract for clients that already handle PageAdded.
func (s *NotificationService) NotifyPageAdded(documentID, pageID int64, pageNumber int) error {
	return s.pageEvent(models.EventPageAdded, documentID, pageID, pageNumber)
}

// NotifyPageUpdated tells the viewers of a document that a page's content was refreshed.
func (s *NotificationService) NotifyPageUpdated(documentID, pageID int64, pageNumber int) error {
	return s.pageEvent(models.EventPageUpdated, documentID, pageID, pageNumber)
}

// NotifyPageDeleted tells the viewers of a document that a page is gone.
func (s *NotificationService) NotifyPageDeleted(documentID, pageID int64, pageNumber int) error {
	return s.pageEvent(models.EventPageDeleted, documentID, pageID, pageNumber)
}

func (s *NotificationService) pageEvent(event string, documentID, pageID int64, pageNumber int) error {
	return s.send(event, func() error {
		return s.hub.BroadcastGroup(realtime.GroupName(documentID), event,
			models.PageEvent{DocumentID: documentID, PageID: pageID, PageNumber: pageNumber})
	})
}

func (s *NotificationService) send(event string, dispatch func() error) error {
	if s.hub == nil {
		return nil
	}
	err := dispatch()
	s.metrics.RecordNotification(event, err)
	if err != nil {
		return fmt.Errorf("dispatch %s: %w", event, err)
	}
	return nil
}

// bestEffort logs a failed side effect without affecting the caller's result.
func bestEffort(logger *zap.Logger, action string, err error, fields ...zap.Field) {
	if err == nil {
		return
	}
	logger.Warn(action+" failed", append(fields, zap.Error(err))...)
}
