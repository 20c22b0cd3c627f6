// Package blobfetch implements the fetchmeter Fetcher over cloud blob
// storage via the Go CDK.
//
// A Fetcher is bound to one bucket; the object key is taken from the
// location's path. Callers select the storage provider by the driver they
// register when opening the bucket (s3blob, gcsblob, fileblob, memblob).
package blobfetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"

	"github.com/Azzadd/fetchmeter/core"
)

// Fetcher fetches objects from a blob bucket. It is safe for concurrent
// use.
type Fetcher struct {
	bucket *blob.Bucket
	logger *slog.Logger
}

var _ core.Fetcher = (*Fetcher)(nil)

// Option configures a Fetcher.
type Option func(*Fetcher) error

// New creates a fetcher reading from bucket. The caller retains ownership
// of the bucket and closes it when done.
func New(bucket *blob.Bucket, opts ...Option) (*Fetcher, error) {
	if bucket == nil {
		return nil, errors.New("blobfetch: bucket must not be nil")
	}

	f := &Fetcher{
		bucket: bucket,
		logger: slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		if err := opt(f); err != nil {
			return nil, err
		}
	}

	return f, nil
}

// WithLogger sets a logger for the fetcher. By default, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) error {
		if logger == nil {
			return errors.New("logger must not be nil")
		}
		f.logger = logger
		return nil
	}
}

// FetchContent implements core.Fetcher. The revalidate flag has no effect;
// blob reads always observe the current object.
func (f *Fetcher) FetchContent(ctx context.Context, location core.Location, _ bool, action core.ContentAction) (any, error) {
	key := keyFromLocation(location)

	r, err := f.bucket.NewReader(ctx, key, nil)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("open %s: %w", key, mapError(err))
	}
	defer r.Close()

	f.logger.Debug("fetching object", "key", key, "size", r.Size())

	meta := &core.Metadata{
		Location:      location,
		ContentLength: r.Size(),
		ContentType:   r.ContentType(),
		LastModified:  r.ModTime(),
	}

	return action(r, meta)
}

// FetchMetadata implements core.Fetcher using an attributes lookup.
func (f *Fetcher) FetchMetadata(ctx context.Context, location core.Location, _ bool) (*core.Metadata, error) {
	key := keyFromLocation(location)

	attrs, err := f.bucket.Attributes(ctx, key)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("attributes %s: %w", key, mapError(err))
	}

	return &core.Metadata{
		Location:      location,
		ContentLength: attrs.Size,
		ContentType:   attrs.ContentType,
		LastModified:  attrs.ModTime,
		ETag:          strings.Trim(attrs.ETag, `"`),
	}, nil
}

// keyFromLocation extracts the object key from a location's path.
func keyFromLocation(location core.Location) string {
	u := location.URL()
	if u == nil {
		return ""
	}
	return strings.TrimPrefix(u.Path, "/")
}

// mapError converts Go CDK error codes to fetchmeter sentinels. Absence is
// handled by callers before mapping.
func mapError(err error) error {
	if gcerrors.Code(err) == gcerrors.PermissionDenied {
		return fmt.Errorf("%w: %v", core.ErrUnauthorized, err)
	}
	return err
}
