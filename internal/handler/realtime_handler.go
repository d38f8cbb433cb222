package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/bookdb-api/internal/dto"
	appErrors "github.com/noah-isme/bookdb-api/pkg/errors"
	"github.com/noah-isme/bookdb-api/pkg/logger"
	"github.com/noah-isme/bookdb-api/pkg/response"
)

type realtimeHub interface {
	ServeWS(w http.ResponseWriter, r *http.Request, userID string) error
}

type realtimeNotifier interface {
	SendGlobal(message string) error
	SendDocument(documentID int64, message string) error
	SendUser(userID, message string) error
}

// RealtimeHandler upgrades websocket connections and accepts HTTP-originated notifications.
type RealtimeHandler struct {
	hub       realtimeHub
	notifier  realtimeNotifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRealtimeHandler constructs the handler.
func NewRealtimeHandler(hub realtimeHub, notifier realtimeNotifier, validate *validator.Validate, logger *zap.Logger) *RealtimeHandler {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RealtimeHandler{hub: hub, notifier: notifier, validator: validate, logger: logger}
}

// Connect godoc
// @Summary Open the realtime channel
// @Description Websocket. Client frames: {"action":"joinDocumentGroup|leaveDocumentGroup|sendNotification|ping","documentId":1,"message":""}. Server frames: {"event":"...","payload":...}.
// @Tags Realtime
// @Param user query string false "User identifier for direct notifications"
// @Success 101
// @Router /ws [get]
func (h *RealtimeHandler) Connect(c *gin.Context) {
	userID := strings.TrimSpace(c.Query("user"))
	if err := h.hub.ServeWS(c.Writer, c.Request, userID); err != nil {
		logger.FromContext(c, h.logger).Warn("websocket upgrade failed", zap.Error(err))
	}
}

// Notify godoc
// @Summary Push a text notification
// @Tags Realtime
// @Accept json
// @Produce json
// @Param payload body dto.NotifyRequest true "Notification; documentId or userId narrow the audience"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /notify [post]
func (h *RealtimeHandler) Notify(c *gin.Context) {
	var req dto.NotifyRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid notification payload"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid notification payload"))
		return
	}

	var err error
	target := "all"
	switch {
	case req.DocumentID > 0:
		target = "document"
		err = h.notifier.SendDocument(req.DocumentID, req.Message)
	case req.UserID != "":
		target = "user"
		err = h.notifier.SendUser(req.UserID, req.Message)
	default:
		err = h.notifier.SendGlobal(req.Message)
	}
	if err != nil {
		response.Error(c, appErrors.Internal(err, "failed to dispatch notification"))
		return
	}
	response.JSON(c, http.StatusAccepted, gin.H{"target": target}, nil)
}
