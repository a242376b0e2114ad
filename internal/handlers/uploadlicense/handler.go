// Package uploadlicense accepts the license document and moves the
// applicant into the review queue.
package uploadlicense

import (
	"context"
	stderrors "errors"
	"io"
	"net/http"

	"provider-verify/internal/common/errors"
	"provider-verify/internal/common/logger"
	"provider-verify/internal/handlers"
)

// multipartOverhead leaves room for the form framing and the customerId
// field on top of the document size ceiling.
const multipartOverhead = 64 * 1024

type Service interface {
	AttachLicense(ctx context.Context, customerID string, file io.Reader, declaredType, originalName string) (string, error)
}

type Handler struct {
	service  Service
	errors   *errors.ErrorHandler
	logger   logger.Logger
	maxBytes int64
}

func NewHandler(service Service, errHandler *errors.ErrorHandler, log logger.Logger, maxUploadBytes int64) *Handler {
	return &Handler{
		service:  service,
		errors:   errHandler,
		logger:   log.WithFields(map[string]interface{}{"handler": "upload-license"}),
		maxBytes: maxUploadBytes,
	}
}

type response struct {
	Success  bool   `json:"success"`
	Filename string `json:"filename"`
	Message  string `json:"message"`
}

// ServeHTTP handles POST /api/upload-license. Multipart form with a
// "customerId" field and a "license" file part.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+multipartOverhead)

	if err := r.ParseMultipartForm(h.maxBytes + multipartOverhead); err != nil {
		var maxBytesErr *http.MaxBytesError
		if stderrors.As(err, &maxBytesErr) {
			h.errors.WriteError(w, r, errors.NewFileTooLargeError(h.maxBytes))
			return
		}
		h.errors.WriteError(w, r, errors.NewValidationError("request must be multipart/form-data"))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	customerID := r.FormValue("customerId")

	file, header, err := r.FormFile("license")
	if err != nil {
		h.errors.WriteError(w, r, errors.NewFileMissingError())
		return
	}
	defer file.Close()

	filename, err := h.service.AttachLicense(r.Context(), customerID, file,
		header.Header.Get("Content-Type"), header.Filename)
	if err != nil {
		h.errors.WriteError(w, r, err)
		return
	}

	handlers.WriteJSON(w, http.StatusOK, response{
		Success:  true,
		Filename: filename,
		Message:  "License submitted for review.",
	})
}
