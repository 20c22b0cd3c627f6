// Package core provides the shared types and interfaces for fetchmeter.
//
// This package exists to break import cycles between the root fetchmeter
// package and the internal transport packages. The fetchmeter package
// re-exports all public types from this package, so external users should
// import fetchmeter directly, not fetchmeter/core.
package core

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/opencontainers/go-digest"
)

// Sentinel errors for common failure conditions.
var (
	// ErrNotFound indicates the requested resource was not found.
	// Fetcher implementations report absence as (nil, nil), not as this
	// error; ErrNotFound exists for surfaces (such as the CLI) that must
	// turn absence into a failure.
	ErrNotFound = errors.New("fetchmeter: not found")

	// ErrUnauthorized indicates the remote rejected the request for lack
	// of credentials.
	ErrUnauthorized = errors.New("fetchmeter: unauthorized")

	// ErrInvalidLocation indicates a resource location could not be parsed.
	ErrInvalidLocation = errors.New("fetchmeter: invalid location")

	// ErrUnsafePath indicates a destination path that escapes its base
	// directory (absolute, traversal components, or null bytes).
	ErrUnsafePath = errors.New("fetchmeter: unsafe path")
)

// UnknownSize is the ContentLength of a resource whose size the transport
// could not determine.
const UnknownSize int64 = -1

// Metadata describes a remote resource without its content. Transports fill
// in whatever fields their protocol exposes; zero values mean "not known".
type Metadata struct {
	// Location is the resource the metadata describes.
	Location Location

	// ContentLength is the resource size in bytes, or UnknownSize.
	ContentLength int64

	// LastModified is the remote modification time, if reported.
	LastModified time.Time

	// ETag is the entity tag reported by the remote, with quotes stripped.
	ETag string

	// ContentType is the media type reported by the remote.
	ContentType string

	// Digest is the content digest, when the transport knows it up front
	// (OCI descriptors). Empty otherwise.
	Digest digest.Digest
}

// ContentAction consumes a resource's content stream. The reader is only
// valid until the action returns; the transport closes the underlying
// stream afterwards. The returned value is passed through to the
// FetchContent caller unchanged.
type ContentAction func(content io.Reader, meta *Metadata) (any, error)

// Fetcher retrieves remote resource content and metadata.
//
// Both methods report an absent resource as (nil, nil): absence is a normal
// outcome, not an error. FetchContent invokes action with the raw content
// stream and the resource metadata, and returns whatever the action
// returned; when the resource is absent the action is never invoked.
type Fetcher interface {
	FetchContent(ctx context.Context, location Location, revalidate bool, action ContentAction) (any, error)
	FetchMetadata(ctx context.Context, location Location, revalidate bool) (*Metadata, error)
}

// ReadDetails identifies the resource of a content read operation.
type ReadDetails struct {
	Location string `json:"location"`
}

// ReadResult is recorded when a content read operation completes. BytesRead
// is the cumulative count delivered to the caller's action, which may be
// less than the resource size if the action stopped reading early.
type ReadResult struct {
	BytesRead int64 `json:"bytesRead"`
}

// MetadataDetails identifies the resource of a metadata read operation.
type MetadataDetails struct {
	Location string `json:"location"`
}

// MetadataResult marks the completion of a metadata read operation.
type MetadataResult struct{}
