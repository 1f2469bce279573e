// Package handler exposes the message ingest endpoint.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"intake/internal/intake/models"
	platformmetrics "intake/internal/platform/metrics"
	"intake/internal/platform/middleware"
	pkgerrors "intake/pkg/errors"
	"intake/pkg/requestcontext"
)

// Submitter enqueues raw messages for asynchronous processing.
type Submitter interface {
	Submit(ctx context.Context, msg models.RawMessage) error
}

// Handler handles the ingest endpoints.
type Handler struct {
	logger  *slog.Logger
	source  Submitter
	metrics *platformmetrics.Metrics
}

// New creates a new ingest Handler.
func New(source Submitter, logger *slog.Logger, metrics *platformmetrics.Metrics) *Handler {
	return &Handler{
		logger:  logger,
		source:  source,
		metrics: metrics,
	}
}

// Register registers the ingest routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	ingest := chi.NewRouter()
	ingest.Use(middleware.Recovery(h.logger))
	ingest.Use(middleware.RequestID)
	ingest.Use(middleware.Logger(h.logger))
	ingest.Use(middleware.Timeout(10 * time.Second))
	ingest.Use(middleware.Latency(h.metrics))
	ingest.Post("/v1/messages", h.handleSubmit)

	r.Mount("/", ingest)
}

type submitRequest struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
	Locale  string `json:"locale,omitempty"`
}

type submitResponse struct {
	MessageID string `json:"message_id"`
}

// handleSubmit accepts one raw message and queues it. Processing is
// asynchronous; the outcome reaches operators through the notifier.
func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid submit request",
			"request_id", requestID,
			"error", err.Error(),
		)
		writeError(w, pkgerrors.New(pkgerrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.Body == "" {
		writeError(w, pkgerrors.New(pkgerrors.CodeBadRequest, "body is required"))
		return
	}
	if req.Locale != "" && req.Locale != "et" && req.Locale != "en" {
		writeError(w, pkgerrors.New(pkgerrors.CodeBadRequest, "locale must be et or en"))
		return
	}

	msg := models.RawMessage{
		ID:         uuid.NewString(),
		Subject:    req.Subject,
		Body:       req.Body,
		Locale:     req.Locale,
		ReceivedAt: requestcontext.Now(ctx),
	}
	if err := h.source.Submit(ctx, msg); err != nil {
		h.logger.ErrorContext(ctx, "failed to enqueue message",
			"request_id", requestID,
			"error", err.Error(),
		)
		writeError(w, pkgerrors.New(pkgerrors.CodeInternal, "failed to enqueue message"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(submitResponse{MessageID: msg.ID})
}

// writeError translates coded errors into JSON error envelopes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch pkgerrors.CodeOf(err) {
	case pkgerrors.CodeBadRequest, pkgerrors.CodeValidation:
		status = http.StatusBadRequest
	case pkgerrors.CodeNotFound:
		status = http.StatusNotFound
	case pkgerrors.CodeStoreTimeout, pkgerrors.CodeStoreUnavailable:
		status = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": string(pkgerrors.CodeOf(err)),
	})
}
