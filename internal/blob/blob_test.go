// ABOUTME: Tests for the local blob store and key handling.
// ABOUTME: S3 is exercised only through its key mapping.
package blob

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Put(ctx, "user-1/01HX.pdf", []byte("hello"), "application/pdf"))

	r, err := store.Open(ctx, "user-1/01HX.pdf")
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	_ = r.Close()
	assert.Equal(t, "hello", string(data))

	assert.True(t, strings.HasPrefix(store.URL("user-1/01HX.pdf"), "file://"))

	require.NoError(t, store.Delete(ctx, "user-1/01HX.pdf"))
	_, err = store.Open(ctx, "user-1/01HX.pdf")
	assert.True(t, errors.Is(err, ErrNotFound))

	assert.NoError(t, store.Delete(ctx, "user-1/01HX.pdf"), "deleting twice is fine")
}

func TestLocalKeysStayInsideRoot(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store, err := NewLocal(filepath.Join(root, "blobs"))
	require.NoError(t, err)

	require.NoError(t, store.Put(ctx, "../../escape.txt", []byte("x"), ""))
	_, err = os.Stat(filepath.Join(root, "escape.txt"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(root, "blobs", "escape.txt"))
	assert.NoError(t, err)

	assert.Error(t, store.Put(ctx, "", []byte("x"), ""))
}

func TestS3ObjectKey(t *testing.T) {
	s := &S3{bucket: "reports", prefix: "healthdash"}
	assert.Equal(t, "s3://reports/healthdash/u/1.pdf", s.URL("u/1.pdf"))

	bare := &S3{bucket: "reports"}
	assert.Equal(t, "s3://reports/u/1.pdf", bare.URL("/u/1.pdf"))
}
