package ocifetch

import (
	"errors"
	"fmt"
	"net/http"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"oras.land/oras-go/v2/errdef"
	"oras.land/oras-go/v2/registry/remote/errcode"

	"github.com/Azzadd/fetchmeter/core"
)

// ErrMultipleLayers is returned when a manifest carries more than one
// layer. Artifact references must resolve to exactly one blob.
var ErrMultipleLayers = errors.New("ocifetch: manifest has multiple layers")

// isNotFound reports whether err indicates a missing reference, manifest,
// or blob. Callers surface these as absence rather than failure.
func isNotFound(err error) bool {
	if errors.Is(err, errdef.ErrNotFound) {
		return true
	}

	var errResp *errcode.ErrorResponse
	if errors.As(err, &errResp) {
		if errResp.StatusCode == http.StatusNotFound {
			return true
		}
		for _, e := range errResp.Errors {
			switch e.Code {
			case errcode.ErrorCodeNameUnknown, errcode.ErrorCodeManifestUnknown, errcode.ErrorCodeBlobUnknown:
				return true
			}
		}
	}

	return false
}

// mapError translates registry errors into fetcher sentinels where a
// mapping exists, passing other errors through unchanged.
func mapError(err error) error {
	var errResp *errcode.ErrorResponse
	if errors.As(err, &errResp) {
		if errResp.StatusCode == http.StatusUnauthorized || errResp.StatusCode == http.StatusForbidden {
			return fmt.Errorf("%w: %v", core.ErrUnauthorized, err)
		}
		for _, e := range errResp.Errors {
			switch e.Code {
			case errcode.ErrorCodeUnauthorized, errcode.ErrorCodeDenied:
				return fmt.Errorf("%w: %v", core.ErrUnauthorized, err)
			}
		}
	}

	return err
}

// isIndex reports whether the media type is a multi-platform manifest
// index, in either OCI or Docker form.
func isIndex(mediaType string) bool {
	switch mediaType {
	case ocispec.MediaTypeImageIndex,
		"application/vnd.docker.distribution.manifest.list.v2+json":
		return true
	}
	return false
}
