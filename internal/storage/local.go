// Package storage owns the license document handles: the uploaded bytes on
// disk and the generated names the workflow references through the
// license_filename metafield.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"provider-verify/internal/common/errors"
	"provider-verify/internal/common/logger"
)

// allowedTypes is the upload acceptance filter. Anything else is rejected
// before a byte is written.
var allowedTypes = map[string]string{
	"image/jpeg":      ".jpg",
	"image/jpg":       ".jpg",
	"image/png":       ".png",
	"application/pdf": ".pdf",
}

// contentTypes maps stored extensions back to a response content type.
var contentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".pdf":  "application/pdf",
}

// LocalStore keeps license documents on the local filesystem under a single
// directory. Names are generated, never caller-controlled.
type LocalStore struct {
	dir     string
	maxSize int64
	logger  logger.Logger
	now     func() time.Time
}

func NewLocalStore(dir string, maxSize int64, log logger.Logger) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{
		dir:     dir,
		maxSize: maxSize,
		logger:  log.WithFields(map[string]interface{}{"component": "storage"}),
		now:     time.Now,
	}, nil
}

// MaxSize returns the size ceiling in bytes.
func (s *LocalStore) MaxSize() int64 {
	return s.maxSize
}

// Store persists an uploaded document and returns its generated name.
// The declared MIME type must be on the allow-list and the stream must stay
// within the size ceiling; an over-limit upload is removed before returning.
func (s *LocalStore) Store(ctx context.Context, r io.Reader, declaredType, originalName string) (string, error) {
	ext, ok := allowedTypes[strings.ToLower(declaredType)]
	if !ok {
		return "", errors.NewFileTypeInvalidError(declaredType)
	}
	// Preserve the original extension when it is one we serve, so retrieval
	// infers the same content type the uploader declared.
	if origExt := strings.ToLower(filepath.Ext(originalName)); origExt != "" {
		if _, known := contentTypes[origExt]; known {
			ext = origExt
		}
	}

	name := fmt.Sprintf("license-%d-%s%s", s.now().UnixMilli(), shortID(), ext)
	path := filepath.Join(s.dir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}

	// Copy one byte past the ceiling so an oversized stream is detected
	// without reading it fully.
	written, err := io.Copy(f, io.LimitReader(r, s.maxSize+1))
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("write file: %w", err)
	}
	if written > s.maxSize {
		_ = os.Remove(path)
		return "", errors.NewFileTooLargeError(s.maxSize)
	}

	return name, nil
}

// Open returns the document stream and its inferred content type.
func (s *LocalStore) Open(ctx context.Context, name string) (io.ReadCloser, string, error) {
	path, err := s.safePath(name)
	if err != nil {
		return nil, "", err
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", errors.NewFileNotFoundError(name)
		}
		return nil, "", fmt.Errorf("open file: %w", err)
	}

	contentType := contentTypes[strings.ToLower(filepath.Ext(name))]
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return f, contentType, nil
}

// Dispose removes a document. It is idempotent: a missing file is logged
// and swallowed, because cleanup must never block a workflow transition.
func (s *LocalStore) Dispose(ctx context.Context, name string) error {
	path, err := s.safePath(name)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("file deletion failed", map[string]interface{}{
			"filename": name,
			"error":    err.Error(),
		})
	}
	return nil
}

// safePath rejects names that escape the upload directory.
func (s *LocalStore) safePath(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.Contains(name, "..") {
		return "", errors.NewFileNotFoundError(name)
	}
	return filepath.Join(s.dir, name), nil
}

func shortID() string {
	id := uuid.NewString()
	return strings.ReplaceAll(id, "-", "")[:8]
}
