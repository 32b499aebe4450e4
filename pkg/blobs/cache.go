package blobs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"k8s.io/klog/v2"
)

// Cache is a local directory of parameter blobs named by hash, filled on
// demand from Upstream. Misses are reported as a gRPC NotFound status.
type Cache struct {
	BaseDir string
	// Upstream is consulted on a miss; it may be nil.
	Upstream BlobReader
}

// ValidHash reports whether hash looks like a hex SHA-256.
func ValidHash(hash string) bool {
	if len(hash) != 2*sha256.Size {
		return false
	}
	_, err := hex.DecodeString(hash)
	return err == nil
}

// HashFile returns the hex SHA-256 of the file at path.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %q: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %q: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (c *Cache) path(hash string) string {
	return filepath.Join(c.BaseDir, hash)
}

// Get opens a blob that is already cached.
func (c *Cache) Get(ctx context.Context, hash string) (*os.File, error) {
	if !ValidHash(hash) {
		return nil, status.Errorf(codes.InvalidArgument, "invalid blob hash %q", hash)
	}
	f, err := os.Open(c.path(hash))
	if err == nil {
		return f, nil
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("opening blob %q: %w", hash, err)
	}
	return nil, status.Errorf(codes.NotFound, "blob %q not found", hash)
}

// Fetch returns the local path of a blob, downloading it from Upstream if
// it is not cached. Downloads whose contents do not match the hash are
// discarded.
func (c *Cache) Fetch(ctx context.Context, hash string) (string, error) {
	log := klog.FromContext(ctx)

	f, err := c.Get(ctx, hash)
	if err == nil {
		f.Close()
		return f.Name(), nil
	}
	if status.Code(err) != codes.NotFound || c.Upstream == nil {
		return "", err
	}

	if err := os.MkdirAll(c.BaseDir, 0755); err != nil {
		return "", fmt.Errorf("creating cache directory %q: %w", c.BaseDir, err)
	}

	p := c.path(hash)
	log.Info("blob not cached, fetching from upstream", "hash", hash)
	if err := c.Upstream.Download(ctx, BlobInfo{Hash: hash}, p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", status.Errorf(codes.NotFound, "blob %q not found upstream: %v", hash, err)
		}
		return "", fmt.Errorf("fetching blob %q: %w", hash, err)
	}

	got, err := HashFile(p)
	if err != nil {
		return "", err
	}
	if got != hash {
		if err := os.Remove(p); err != nil {
			log.Error(err, "removing corrupt blob", "path", p)
		}
		return "", fmt.Errorf("blob %q downloaded with hash %q", hash, got)
	}
	return p, nil
}

// Put copies the file at sourcePath into the cache and returns its hash.
func (c *Cache) Put(ctx context.Context, sourcePath string) (BlobInfo, error) {
	hash, err := HashFile(sourcePath)
	if err != nil {
		return BlobInfo{}, err
	}
	info := BlobInfo{Hash: hash}
	if _, err := os.Stat(c.path(hash)); err == nil {
		return info, nil
	}

	if err := os.MkdirAll(c.BaseDir, 0755); err != nil {
		return BlobInfo{}, fmt.Errorf("creating cache directory %q: %w", c.BaseDir, err)
	}
	src, err := os.Open(sourcePath)
	if err != nil {
		return BlobInfo{}, fmt.Errorf("opening source file: %w", err)
	}
	defer src.Close()
	if _, err := writeToFile(ctx, src, c.path(hash)); err != nil {
		return BlobInfo{}, fmt.Errorf("caching %q: %w", sourcePath, err)
	}
	return info, nil
}
