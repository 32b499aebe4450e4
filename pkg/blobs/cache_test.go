package blobs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func hashOf(data string) string {
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:])
}

// newBlobServer serves blobs at /<hash> and counts requests.
func newBlobServer(t *testing.T, blobs map[string]string) (*ModelServer, *atomic.Int32) {
	t.Helper()
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		data, ok := blobs[strings.TrimPrefix(r.URL.Path, "/")]
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		w.Write([]byte(data))
	}))
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	return &ModelServer{BlobserverURL: u, Client: srv.Client()}, &requests
}

func TestCacheFetchesOnce(t *testing.T) {
	ctx := context.Background()
	const contents = "parameter bytes"
	hash := hashOf(contents)

	upstream, requests := newBlobServer(t, map[string]string{hash: contents})
	cache := &Cache{BaseDir: filepath.Join(t.TempDir(), "blobs"), Upstream: upstream}

	p, err := cache.Fetch(ctx, hash)
	require.NoError(t, err)
	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, contents, string(data))

	p2, err := cache.Fetch(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, p, p2)
	assert.Equal(t, int32(1), requests.Load())

	f, err := cache.Get(ctx, hash)
	require.NoError(t, err)
	f.Close()
}

func TestCacheMissIsNotFound(t *testing.T) {
	ctx := context.Background()
	hash := hashOf("absent")

	local := &Cache{BaseDir: t.TempDir()}
	_, err := local.Fetch(ctx, hash)
	assert.Equal(t, codes.NotFound, status.Code(err))

	upstream, _ := newBlobServer(t, nil)
	remote := &Cache{BaseDir: t.TempDir(), Upstream: upstream}
	_, err = remote.Fetch(ctx, hash)
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = remote.Get(ctx, "not-a-hash")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestCacheRejectsCorruptDownload(t *testing.T) {
	ctx := context.Background()
	hash := hashOf("expected")

	upstream, _ := newBlobServer(t, map[string]string{hash: "tampered"})
	cache := &Cache{BaseDir: t.TempDir(), Upstream: upstream}

	_, err := cache.Fetch(ctx, hash)
	require.Error(t, err)
	assert.Contains(t, err.Error(), hashOf("tampered"))

	_, err = cache.Get(ctx, hash)
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestCachePut(t *testing.T) {
	ctx := context.Background()
	src := filepath.Join(t.TempDir(), "model.safetensors")
	require.NoError(t, os.WriteFile(src, []byte("weights"), 0644))

	cache := &Cache{BaseDir: filepath.Join(t.TempDir(), "cache")}
	info, err := cache.Put(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, hashOf("weights"), info.Hash)

	p, err := cache.Fetch(ctx, info.Hash)
	require.NoError(t, err)
	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "weights", string(data))

	again, err := cache.Put(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, info, again)
}

func TestValidHash(t *testing.T) {
	assert.True(t, ValidHash(hashOf("x")))
	assert.False(t, ValidHash("abc"))
	assert.False(t, ValidHash(strings.Repeat("z", 64)))
}
