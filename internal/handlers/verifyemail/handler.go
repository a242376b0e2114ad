// Package verifyemail serves the verification link target. It is a
// browser-facing endpoint: both outcomes render HTML, not JSON.
package verifyemail

import (
	"context"
	"net/http"

	"provider-verify/internal/common/errors"
	"provider-verify/internal/common/logger"
	"provider-verify/internal/models"
	"provider-verify/web"
)

type Service interface {
	VerifyEmail(ctx context.Context, token string) (*models.Applicant, error)
}

type Handler struct {
	service   Service
	logger    logger.Logger
	maxSizeMB int64
}

func NewHandler(service Service, log logger.Logger, maxUploadBytes int64) *Handler {
	return &Handler{
		service:   service,
		logger:    log.WithFields(map[string]interface{}{"handler": "verify-email"}),
		maxSizeMB: maxUploadBytes / (1024 * 1024),
	}
}

// ServeHTTP handles GET /api/verify-email?token=... On success the page
// carries the license upload form; on failure it explains what went wrong
// without leaking token internals.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		h.renderError(w, http.StatusBadRequest, "The verification link is missing its token.")
		return
	}

	applicant, err := h.service.VerifyEmail(r.Context(), token)
	if err != nil {
		code := errors.CodeOf(err)
		h.logger.Warn("email verification failed", map[string]interface{}{
			"errorCode": string(code),
		})
		h.renderError(w, errors.HTTPStatus(code), friendlyMessage(code))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := web.RenderVerifySuccess(w, web.VerifySuccessData{
		FirstName:  applicant.FirstName,
		CustomerID: applicant.ID,
		MaxSizeMB:  h.maxSizeMB,
	}); err != nil {
		h.logger.Error("render verify success page", map[string]interface{}{"error": err.Error()})
	}
}

func (h *Handler) renderError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := web.RenderVerifyError(w, web.VerifyErrorData{Message: message}); err != nil {
		h.logger.Error("render verify error page", map[string]interface{}{"error": err.Error()})
	}
}

func friendlyMessage(code errors.ErrorCode) string {
	switch code {
	case errors.ErrCodeTokenExpired:
		return "This verification link has expired."
	case errors.ErrCodeTokenConsumed:
		return "This verification link was already used."
	case errors.ErrCodeTokenMalformed, errors.ErrCodeTokenSignatureInvalid:
		return "This verification link is not valid."
	case errors.ErrCodeCustomerNotFound:
		return "We could not find an application for this link."
	default:
		return "Something went wrong verifying your email. Please try again later."
	}
}
