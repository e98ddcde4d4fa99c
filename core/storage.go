package core

import (
	"context"
	"io"
	"time"
)

type (
	// FileStore persists uploaded files under opaque keys.
	FileStore interface {
		Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
		Delete(ctx context.Context, key string) error
		// DownloadURL returns a short-lived URL serving the object as an attachment named filename.
		DownloadURL(ctx context.Context, key, filename string) (string, error)
		// PublicURL returns the permanent URL of an object (avatars).
		PublicURL(key string) string
	}

	// Cache stores JSON encodable values with a TTL. A miss is reported with found == false and a nil error.
	Cache interface {
		Get(ctx context.Context, key string, dst interface{}) (found bool, err error)
		Set(ctx context.Context, key string, val interface{}, ttl time.Duration) error
	}
)
