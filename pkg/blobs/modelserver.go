package blobs

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"k8s.io/klog/v2"
)

// ModelServer reads parameter blobs from an HTTP server that serves each
// blob at /<hash>.
type ModelServer struct {
	// BlobserverURL is the base URL of the server, typically http://blobserver
	BlobserverURL *url.URL

	// Client is used for requests; nil means http.DefaultClient.
	Client *http.Client
}

var _ BlobReader = &ModelServer{}

func (l *ModelServer) client() *http.Client {
	if l.Client != nil {
		return l.Client
	}
	return http.DefaultClient
}

func (l *ModelServer) Download(ctx context.Context, info BlobInfo, destPath string) error {
	log := klog.FromContext(ctx)

	u := l.BlobserverURL.JoinPath(info.Hash).String()
	log.Info("downloading parameter blob", "url", u)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	startedAt := time.Now()
	resp, err := l.client().Do(req)
	if err != nil {
		return fmt.Errorf("doing request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return fmt.Errorf("blob %q not found at %q: %w", info.Hash, u, os.ErrNotExist)
	default:
		return fmt.Errorf("unexpected status downloading from %q: %v", u, resp.Status)
	}

	n, err := writeToFile(ctx, resp.Body, destPath)
	if err != nil {
		return fmt.Errorf("downloading from %q: %w", u, err)
	}

	log.Info("downloaded parameter blob", "url", u, "bytes", n, "duration", time.Since(startedAt))
	return nil
}
