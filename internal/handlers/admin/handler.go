// Package admin is the operator surface: the review dashboard, the pending
// queue projection, the approve/reject actions, and license retrieval.
// Every route here sits behind the admin token middleware.
package admin

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"provider-verify/internal/common/errors"
	"provider-verify/internal/common/logger"
	"provider-verify/internal/handlers"
	"provider-verify/internal/models"
	"provider-verify/web"
)

type Service interface {
	PendingReviews(ctx context.Context) ([]models.ApplicantSummary, error)
	Approve(ctx context.Context, customerID string) error
	Reject(ctx context.Context, customerID string) error
}

// FileOpener retrieves stored license documents for review.
type FileOpener interface {
	Open(ctx context.Context, name string) (io.ReadCloser, string, error)
}

type Handler struct {
	service Service
	files   FileOpener
	errors  *errors.ErrorHandler
	logger  logger.Logger
	appName string
}

func NewHandler(service Service, files FileOpener, errHandler *errors.ErrorHandler, log logger.Logger, appName string) *Handler {
	return &Handler{
		service: service,
		files:   files,
		errors:  errHandler,
		logger:  log.WithFields(map[string]interface{}{"handler": "admin"}),
		appName: appName,
	}
}

// Dashboard handles GET /admin: the review UI shell. The page loads the
// queue through the JSON API using the operator's token.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := web.RenderAdmin(w, web.AdminData{AppName: h.appName}); err != nil {
		h.logger.Error("render admin page", map[string]interface{}{"error": err.Error()})
	}
}

// Pending handles GET /api/admin/pending: the review-queue projection.
func (h *Handler) Pending(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.service.PendingReviews(r.Context())
	if err != nil {
		h.errors.WriteError(w, r, err)
		return
	}
	if summaries == nil {
		summaries = []models.ApplicantSummary{}
	}
	handlers.WriteJSON(w, http.StatusOK, summaries)
}

type actionResponse struct {
	Success    bool   `json:"success"`
	CustomerID string `json:"customerId"`
}

// Approve handles POST /api/admin/approve/{customerId}.
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "customerId")
	if customerID == "" {
		h.errors.WriteError(w, r, errors.NewValidationError("customerId is required"))
		return
	}

	if err := h.service.Approve(r.Context(), customerID); err != nil {
		h.errors.WriteError(w, r, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, actionResponse{Success: true, CustomerID: customerID})
}

// Reject handles POST /api/admin/reject/{customerId}.
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "customerId")
	if customerID == "" {
		h.errors.WriteError(w, r, errors.NewValidationError("customerId is required"))
		return
	}

	if err := h.service.Reject(r.Context(), customerID); err != nil {
		h.errors.WriteError(w, r, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, actionResponse{Success: true, CustomerID: customerID})
}

// License handles GET /api/admin/license/{filename}: streams the document
// for review with its stored content type.
func (h *Handler) License(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")

	f, contentType, err := h.files.Open(r.Context(), name)
	if err != nil {
		h.errors.WriteError(w, r, err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "inline")
	if _, err := io.Copy(w, f); err != nil {
		h.logger.Warn("license stream interrupted", map[string]interface{}{
			"filename": name,
			"error":    err.Error(),
		})
	}
}
