// Package ocifetch implements the fetchmeter Fetcher for OCI registries
// using ORAS.
//
// Locations use the oci scheme: "oci://ghcr.io/org/repo:tag" or
// "oci://host/repo@sha256:...". The fetched content is the single layer
// blob of the referenced manifest; multi-platform indexes are resolved to
// the manifest matching the current platform.
package ocifetch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"oras.land/oras-go/v2/content"
	"oras.land/oras-go/v2/registry"
	"oras.land/oras-go/v2/registry/remote"
	"oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/credentials"
	"oras.land/oras-go/v2/registry/remote/retry"

	"github.com/Azzadd/fetchmeter/core"
)

const defaultUserAgent = "fetchmeter/1.0"

// Fetcher fetches artifact blobs from OCI registries. It is safe for
// concurrent use.
type Fetcher struct {
	plainHTTP bool
	userAgent string
	credStore credentials.Store
	logger    *slog.Logger
}

var _ core.Fetcher = (*Fetcher)(nil)

// Option configures a Fetcher.
type Option func(*Fetcher)

// New creates an OCI fetcher. Without a credential store, requests are
// anonymous.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		userAgent: defaultUserAgent,
		logger:    slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// WithPlainHTTP enables insecure HTTP connections to registries.
func WithPlainHTTP(plainHTTP bool) Option {
	return func(f *Fetcher) {
		f.plainHTTP = plainHTTP
	}
}

// WithUserAgent sets the User-Agent header for registry requests.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithCredentialStore sets the credential store for registry auth.
func WithCredentialStore(store credentials.Store) Option {
	return func(f *Fetcher) {
		f.credStore = store
	}
}

// WithLogger sets a logger for the fetcher. By default, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// FetchContent implements core.Fetcher. The revalidate flag has no effect;
// references are resolved against the registry on every call and blobs are
// addressed by digest.
func (f *Fetcher) FetchContent(ctx context.Context, location core.Location, _ bool, action core.ContentAction) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	parsedRef, err := refFromLocation(location)
	if err != nil {
		return nil, err
	}

	repo, err := f.newRepository(parsedRef)
	if err != nil {
		return nil, err
	}

	layer, ok, err := f.resolveLayer(ctx, repo, parsedRef)
	if err != nil || !ok {
		return nil, err
	}

	rc, err := repo.Blobs().Fetch(ctx, layer)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch layer: %w", mapError(err))
	}
	defer rc.Close()

	f.logger.Debug("fetching layer", "ref", parsedRef.String(), "digest", layer.Digest, "size", layer.Size)

	return action(rc, metadataFromLayer(location, layer))
}

// FetchMetadata implements core.Fetcher. It resolves the manifest and
// returns the layer descriptor's metadata without fetching the blob.
func (f *Fetcher) FetchMetadata(ctx context.Context, location core.Location, _ bool) (*core.Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	parsedRef, err := refFromLocation(location)
	if err != nil {
		return nil, err
	}

	repo, err := f.newRepository(parsedRef)
	if err != nil {
		return nil, err
	}

	layer, ok, err := f.resolveLayer(ctx, repo, parsedRef)
	if err != nil || !ok {
		return nil, err
	}

	return metadataFromLayer(location, layer), nil
}

// resolveLayer resolves the reference to its single layer descriptor.
// The ok result is false when the reference, its manifest, or its layer
// does not exist.
func (f *Fetcher) resolveLayer(ctx context.Context, repo *remote.Repository, parsedRef registry.Reference) (ocispec.Descriptor, bool, error) {
	reference := parsedRef.Reference
	if reference == "" {
		reference = "latest"
	}

	desc, err := repo.Resolve(ctx, reference)
	if err != nil {
		if isNotFound(err) {
			return ocispec.Descriptor{}, false, nil
		}
		return ocispec.Descriptor{}, false, fmt.Errorf("resolve %s: %w", parsedRef.String(), mapError(err))
	}

	// Multi-platform references resolve through the index to the manifest
	// for the current platform.
	if isIndex(desc.MediaType) {
		indexBytes, err := content.FetchAll(ctx, repo.Manifests(), desc)
		if err != nil {
			return ocispec.Descriptor{}, false, fmt.Errorf("fetch index: %w", mapError(err))
		}

		var index ocispec.Index
		if err := json.Unmarshal(indexBytes, &index); err != nil {
			return ocispec.Descriptor{}, false, fmt.Errorf("parse index: %w", err)
		}

		picked, ok := selectManifest(index)
		if !ok {
			return ocispec.Descriptor{}, false, nil
		}
		desc = picked
	}

	manifestBytes, err := content.FetchAll(ctx, repo.Manifests(), desc)
	if err != nil {
		if isNotFound(err) {
			return ocispec.Descriptor{}, false, nil
		}
		return ocispec.Descriptor{}, false, fmt.Errorf("fetch manifest: %w", mapError(err))
	}

	var manifest ocispec.Manifest
	if err := json.Unmarshal(manifestBytes, &manifest); err != nil {
		return ocispec.Descriptor{}, false, fmt.Errorf("parse manifest: %w", err)
	}

	switch len(manifest.Layers) {
	case 0:
		return ocispec.Descriptor{}, false, nil
	case 1:
		return manifest.Layers[0], true, nil
	default:
		return ocispec.Descriptor{}, false, fmt.Errorf("%w: %s has %d layers", ErrMultipleLayers, parsedRef.String(), len(manifest.Layers))
	}
}

// newRepository creates an ORAS repository client for the reference.
func (f *Fetcher) newRepository(parsedRef registry.Reference) (*remote.Repository, error) {
	repo, err := remote.NewRepository(parsedRef.Registry + "/" + parsedRef.Repository)
	if err != nil {
		return nil, fmt.Errorf("create repository: %w", err)
	}
	repo.PlainHTTP = f.plainHTTP

	client := &auth.Client{
		Client: retry.DefaultClient,
		Cache:  auth.NewCache(),
	}
	if f.credStore != nil {
		client.Credential = credentials.Credential(f.credStore)
	}
	if f.userAgent != "" {
		client.SetUserAgent(f.userAgent)
	}
	repo.Client = client

	return repo, nil
}

// refFromLocation converts an oci:// location to a registry reference.
func refFromLocation(location core.Location) (registry.Reference, error) {
	u := location.URL()
	if u == nil || u.Scheme != "oci" {
		return registry.Reference{}, fmt.Errorf("%w: not an oci location: %s", core.ErrInvalidLocation, location.String())
	}

	parsedRef, err := registry.ParseReference(u.Host + u.Path)
	if err != nil {
		return registry.Reference{}, fmt.Errorf("%w: %v", core.ErrInvalidLocation, err)
	}
	return parsedRef, nil
}

// selectManifest picks the index entry for the current platform, falling
// back to the first entry.
func selectManifest(index ocispec.Index) (ocispec.Descriptor, bool) {
	for _, m := range index.Manifests {
		if m.Platform == nil {
			continue
		}
		if m.Platform.OS == runtime.GOOS && m.Platform.Architecture == runtime.GOARCH {
			return m, true
		}
	}
	if len(index.Manifests) > 0 {
		return index.Manifests[0], true
	}
	return ocispec.Descriptor{}, false
}

// metadataFromLayer builds resource metadata from a layer descriptor.
func metadataFromLayer(location core.Location, layer ocispec.Descriptor) *core.Metadata {
	meta := &core.Metadata{
		Location:      location,
		ContentLength: layer.Size,
		ContentType:   layer.MediaType,
		Digest:        layer.Digest,
	}
	// Malformed digests from remote manifests are dropped, not surfaced.
	if meta.Digest != "" && meta.Digest.Validate() != nil {
		meta.Digest = ""
	}
	return meta
}
