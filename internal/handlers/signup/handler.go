// internal/handlers/signup/handler.go
package signup

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"provider-verify/internal/common/errors"
	"provider-verify/internal/common/logger"
	"provider-verify/internal/handlers"
	"provider-verify/internal/models"
)

// maxBodyBytes bounds the signup payload. The fields are short strings;
// anything near this limit is not a legitimate request.
const maxBodyBytes = 64 * 1024

type Service interface {
	Signup(ctx context.Context, in models.NewApplicant) (string, error)
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
		logger:  log.WithFields(map[string]interface{}{"handler": "signup"}),
	}
}

// ServeHTTP handles POST /api/signup. A valid payload creates the applicant
// record and dispatches the verification email.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		h.errors.WriteError(w, r, errors.NewValidationError("unable to read request body"))
		return
	}

	if err := validateBody(body); err != nil {
		h.errors.WriteError(w, r, err)
		return
	}

	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		h.errors.WriteError(w, r, errors.NewValidationError("invalid JSON"))
		return
	}

	customerID, err := h.service.Signup(r.Context(), req.toNewApplicant())
	if err != nil {
		h.errors.WriteError(w, r, err)
		return
	}

	handlers.WriteJSON(w, http.StatusCreated, Response{
		Success:    true,
		CustomerID: customerID,
		Message:    "Application received. Check your email to verify your address.",
	})
}
