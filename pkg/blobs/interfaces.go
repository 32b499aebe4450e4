package blobs

import "context"

// BlobReader fetches parameter blobs by content hash.
type BlobReader interface {
	// Download writes the blob to destPath. If no such blob exists, the error
	// satisfies errors.Is(err, os.ErrNotExist).
	Download(ctx context.Context, info BlobInfo, destPath string) error
}

type Blobstore interface {
	BlobReader
	// Upload stores the file at sourcePath under info.Hash. Uploading a blob
	// that already exists does nothing.
	Upload(ctx context.Context, sourcePath string, info BlobInfo) error
}

// BlobInfo identifies a blob. Hash is the hex SHA-256 of its contents.
type BlobInfo struct {
	Hash string
}
