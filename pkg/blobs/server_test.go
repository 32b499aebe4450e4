package blobs

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerChainsCaches(t *testing.T) {
	ctx := context.Background()
	const contents = "weights"
	hash := hashOf(contents)

	upstream, requests := newBlobServer(t, map[string]string{hash: contents})
	srv := httptest.NewServer(&Server{
		Cache: &Cache{BaseDir: t.TempDir(), Upstream: upstream},
	})
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	client := &ModelServer{BlobserverURL: u, Client: srv.Client()}

	for i := 0; i < 2; i++ {
		dest := filepath.Join(t.TempDir(), "blob")
		require.NoError(t, client.Download(ctx, BlobInfo{Hash: hash}, dest))
		data, err := os.ReadFile(dest)
		require.NoError(t, err)
		assert.Equal(t, contents, string(data))
	}
	assert.Equal(t, int32(1), requests.Load(), "second download should be served from the local cache")

	err = client.Download(ctx, BlobInfo{Hash: hashOf("missing")}, filepath.Join(t.TempDir(), "missing"))
	assert.True(t, errors.Is(err, os.ErrNotExist), "got %v", err)
}

func TestServerRejectsBadRequests(t *testing.T) {
	srv := httptest.NewServer(&Server{Cache: &Cache{BaseDir: t.TempDir()}})
	t.Cleanup(srv.Close)

	grid := []struct {
		method string
		path   string
		code   int
	}{
		{http.MethodGet, "/not-a-hash", http.StatusBadRequest},
		{http.MethodGet, "/a/b", http.StatusNotFound},
		{http.MethodGet, "/", http.StatusNotFound},
		{http.MethodPost, "/" + hashOf("x"), http.StatusMethodNotAllowed},
		{http.MethodGet, "/" + hashOf("x"), http.StatusNotFound},
	}
	for _, g := range grid {
		req, err := http.NewRequest(g.method, srv.URL+g.path, nil)
		require.NoError(t, err)
		resp, err := srv.Client().Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, g.code, resp.StatusCode, "%s %s", g.method, g.path)
	}
}
