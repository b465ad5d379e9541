// Package http exposes the stacking pipeline over HTTP.
package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "stackdid/internal/errors"
	"stackdid/internal/services"
)

// StackHandler handles stack-construction HTTP requests.
type StackHandler struct {
	service      *services.StackService
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewStackHandler creates a new stack handler.
func NewStackHandler(service *services.StackService, logger *slog.Logger) *StackHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &StackHandler{
		service:      service,
		logger:       logger.With(slog.String("handler", "stack")),
		errorHandler: apierrors.NewErrorHandler(logger),
	}
}

// RegisterRoutes registers the stacking routes.
func (h *StackHandler) RegisterRoutes(r chi.Router) {
	r.Post("/stack", h.BuildStack)
}

// BuildStack handles POST /api/v1/stack: a long panel with window parameters
// in, the stacked weighted dataset with balance diagnostics out.
func (h *StackHandler) BuildStack(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req services.StackRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.logger.WarnContext(ctx, "malformed stack request",
			slog.String("error", err.Error()))
		h.errorHandler.HandleError(w, r, apierrors.ErrInvalidRequest)
		return
	}

	resp, err := h.service.BuildStack(ctx, &req)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, resp)
}
