package coldstore

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"time"

	"github.com/Sternrassler/tiercache/pkg/storeerr"
)

// DefaultCacheControl is applied to uploads that do not set their own.
// Objects never change once written, so they may be cached for a year.
const DefaultCacheControl = "public, max-age=31536000"

// Store is the cold tier contract.
type Store interface {
	// EnsureBucket provisions the bucket. An existing bucket is success.
	EnsureBucket(ctx context.Context) error

	// Upload creates name from body. Returns created=false without error if
	// the object already exists.
	Upload(ctx context.Context, name string, body io.Reader, size int64, opts UploadOptions) (created bool, err error)

	// Download returns the object's bytes, or a storeerr.KindNotFound error.
	Download(ctx context.Context, name string) ([]byte, error)

	// List returns every object in the bucket.
	List(ctx context.Context) ([]ObjectInfo, error)

	// PublicURL returns a directly fetchable URL when the bucket is public.
	PublicURL(name string) (string, bool)

	// Ping checks connectivity to the backend.
	Ping(ctx context.Context) error
}

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	ETag         string    `json:"etag,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// UploadOptions control object metadata.
type UploadOptions struct {
	ContentType  string
	CacheControl string
}

// withDefaults fills empty fields from the object name.
func (o UploadOptions) withDefaults(name string) UploadOptions {
	if o.ContentType == "" {
		o.ContentType = ContentTypeFor(name)
	}
	if o.CacheControl == "" {
		o.CacheControl = DefaultCacheControl
	}
	return o
}

// ContentTypeFor guesses a content type from the object name's extension.
func ContentTypeFor(name string) string {
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// readBody reads the whole body. When size is known the body must hold
// exactly size bytes.
func readBody(body io.Reader, size int64) ([]byte, error) {
	if size < 0 {
		return io.ReadAll(body)
	}
	data, err := io.ReadAll(io.LimitReader(body, size+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) != size {
		return nil, storeerr.New("read body", storeerr.KindInvalid, fmt.Errorf("body has %d bytes or more, declared %d", len(data), size))
	}
	return data, nil
}
