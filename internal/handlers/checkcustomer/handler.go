// Package checkcustomer gates storefront logins: only applicants whose
// verification completed may proceed.
package checkcustomer

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"provider-verify/internal/common/errors"
	"provider-verify/internal/common/logger"
	"provider-verify/internal/handlers"
)

type Service interface {
	CheckLogin(ctx context.Context, email string) (allowed bool, message string, err error)
}

type Handler struct {
	service Service
	errors  *errors.ErrorHandler
	logger  logger.Logger
}

func NewHandler(service Service, errHandler *errors.ErrorHandler, log logger.Logger) *Handler {
	return &Handler{
		service: service,
		errors:  errHandler,
		logger:  log.WithFields(map[string]interface{}{"handler": "check-customer"}),
	}
}

type request struct {
	Email string `json:"email"`
}

type response struct {
	Allowed bool   `json:"allowed"`
	Message string `json:"message,omitempty"`
}

// ServeHTTP handles POST /api/check-customer.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.errors.WriteError(w, r, errors.NewValidationError("invalid JSON"))
		return
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" {
		h.errors.WriteError(w, r, errors.NewValidationError("email is required"))
		return
	}

	allowed, message, err := h.service.CheckLogin(r.Context(), email)
	if err != nil {
		h.errors.WriteError(w, r, err)
		return
	}

	handlers.WriteJSON(w, http.StatusOK, response{Allowed: allowed, Message: message})
}
