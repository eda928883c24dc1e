package api

import (
	"errors"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"

	"greenbox-backend/config"
	"greenbox-backend/internal/lifecycle"
	"greenbox-backend/internal/notification"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	cfg      *config.Config
	engine   lifecycle.Coordinator
	notifier *notification.WorkerPool
	webpush  *webpush.Options
}

// NewHandler creates a new API handler.
func NewHandler(cfg *config.Config, engine lifecycle.Coordinator, notifier *notification.WorkerPool, webpushOptions *webpush.Options) *Handler {
	return &Handler{
		cfg:      cfg,
		engine:   engine,
		notifier: notifier,
		webpush:  webpushOptions,
	}
}

// abortWithEngineError translates an engine error kind into an HTTP status.
// Conflict kinds get 409 so clients know to re-query availability and retry.
func abortWithEngineError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, lifecycle.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, lifecycle.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, lifecycle.ErrOutOfHours),
		errors.Is(err, lifecycle.ErrInvalidLocation),
		errors.Is(err, lifecycle.ErrInvalidTransition):
		status = http.StatusBadRequest
	case errors.Is(err, lifecycle.ErrCapacityExceeded),
		errors.Is(err, lifecycle.ErrAlreadyActive),
		errors.Is(err, lifecycle.ErrContainerUnavailable),
		errors.Is(err, lifecycle.ErrNotReserved),
		errors.Is(err, lifecycle.ErrNotPickedUp):
		status = http.StatusConflict
	case errors.Is(err, lifecycle.ErrStorageUnavailable):
		status = http.StatusServiceUnavailable
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

// dispatch queues a push notification if a worker pool is wired in.
func (h *Handler) dispatch(userID int64, message string) {
	if h.notifier == nil {
		return
	}
	h.notifier.Dispatch(notification.Event{UserID: userID, Message: message})
}
