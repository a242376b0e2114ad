package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"provider-verify/internal/common/errors"
	"provider-verify/internal/common/logger"
)

func newTestStore(t *testing.T, maxSize int64) *LocalStore {
	t.Helper()
	store, err := NewLocalStore(t.TempDir(), maxSize, logger.NewNop())
	require.NoError(t, err)
	return store
}

func TestStoreGeneratesHandleAndPersists(t *testing.T) {
	store := newTestStore(t, 1024)
	ctx := context.Background()

	name, err := store.Store(ctx, strings.NewReader("%PDF-1.4 content"), "application/pdf", "my license.pdf")
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^license-\d+-[0-9a-f]{8}\.pdf$`), name)

	f, contentType, err := store.Open(ctx, name)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, "application/pdf", contentType)

	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 content", string(data))
}

func TestStoreKeepsUploaderExtension(t *testing.T) {
	store := newTestStore(t, 1024)

	// Declared jpeg but named .jpeg keeps the original extension so the
	// inferred type on retrieval matches.
	name, err := store.Store(context.Background(), strings.NewReader("jpegdata"), "image/jpeg", "scan.jpeg")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(name, ".jpeg"), name)
}

func TestStoreRejectsDisallowedType(t *testing.T) {
	store := newTestStore(t, 1024)

	_, err := store.Store(context.Background(), strings.NewReader("GIF89a"), "image/gif", "anim.gif")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeFileTypeInvalid, errors.CodeOf(err))
}

func TestStoreRejectsOversizeAndCleansUp(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, 10, logger.NewNop())
	require.NoError(t, err)

	_, err = store.Store(context.Background(), strings.NewReader("0123456789ABC"), "application/pdf", "big.pdf")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeFileTooLarge, errors.CodeOf(err))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "oversize upload must not leave a partial file")
}

func TestStoreAcceptsExactCeiling(t *testing.T) {
	store := newTestStore(t, 10)

	name, err := store.Store(context.Background(), strings.NewReader("0123456789"), "application/pdf", "fit.pdf")
	assert.NoError(t, err)
	assert.NotEmpty(t, name)
}

func TestOpenUnknownFile(t *testing.T) {
	store := newTestStore(t, 1024)

	_, _, err := store.Open(context.Background(), "license-0-missing.pdf")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeFileNotFound, errors.CodeOf(err))
}

func TestOpenRejectsTraversal(t *testing.T) {
	store := newTestStore(t, 1024)

	for _, name := range []string{"../secret", "..%2Fsecret", "a/../../b", "/etc/passwd", ""} {
		_, _, err := store.Open(context.Background(), name)
		assert.Error(t, err, "name %q", name)
	}
}

func TestDisposeIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, 1024, logger.NewNop())
	require.NoError(t, err)
	ctx := context.Background()

	name, err := store.Store(ctx, strings.NewReader("data"), "application/pdf", "x.pdf")
	require.NoError(t, err)

	require.NoError(t, store.Dispose(ctx, name))
	_, statErr := os.Stat(filepath.Join(dir, name))
	assert.True(t, os.IsNotExist(statErr))

	// Second disposal of the same handle is a no-op, not an error.
	assert.NoError(t, store.Dispose(ctx, name))
}
