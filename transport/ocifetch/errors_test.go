package ocifetch

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"testing"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/stretchr/testify/assert"
	"oras.land/oras-go/v2/errdef"
	"oras.land/oras-go/v2/registry/remote/errcode"

	"github.com/Azzadd/fetchmeter/core"
)

func registryError(status int, codes ...string) *errcode.ErrorResponse {
	resp := &errcode.ErrorResponse{
		Method:     http.MethodGet,
		URL:        &url.URL{Scheme: "https", Host: "registry.example", Path: "/v2/test/manifests/v1"},
		StatusCode: status,
	}
	for _, code := range codes {
		resp.Errors = append(resp.Errors, errcode.Error{Code: code, Message: "registry error"})
	}
	return resp
}

func TestIsNotFound(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "errdef not found", err: errdef.ErrNotFound, want: true},
		{name: "wrapped errdef not found", err: fmt.Errorf("resolve: %w", errdef.ErrNotFound), want: true},
		{name: "404 response", err: registryError(http.StatusNotFound), want: true},
		{name: "name unknown code", err: registryError(http.StatusBadRequest, errcode.ErrorCodeNameUnknown), want: true},
		{name: "manifest unknown code", err: registryError(http.StatusBadRequest, errcode.ErrorCodeManifestUnknown), want: true},
		{name: "blob unknown code", err: registryError(http.StatusBadRequest, errcode.ErrorCodeBlobUnknown), want: true},
		{name: "unauthorized response", err: registryError(http.StatusUnauthorized, errcode.ErrorCodeUnauthorized), want: false},
		{name: "server error", err: registryError(http.StatusInternalServerError), want: false},
		{name: "plain error", err: errors.New("connection refused"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, isNotFound(tt.err))
		})
	}
}

func TestMapError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name             string
		err              error
		wantUnauthorized bool
	}{
		{name: "401 status", err: registryError(http.StatusUnauthorized), wantUnauthorized: true},
		{name: "403 status", err: registryError(http.StatusForbidden), wantUnauthorized: true},
		{name: "unauthorized code", err: registryError(http.StatusBadRequest, errcode.ErrorCodeUnauthorized), wantUnauthorized: true},
		{name: "denied code", err: registryError(http.StatusBadRequest, errcode.ErrorCodeDenied), wantUnauthorized: true},
		{name: "server error", err: registryError(http.StatusInternalServerError), wantUnauthorized: false},
		{name: "plain error", err: errors.New("connection refused"), wantUnauthorized: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := mapError(tt.err)
			if tt.wantUnauthorized {
				assert.ErrorIs(t, got, core.ErrUnauthorized)
				assert.ErrorContains(t, got, "registry.example")
				return
			}

			assert.Equal(t, tt.err, got)
			assert.NotErrorIs(t, got, core.ErrUnauthorized)
		})
	}
}

func TestIsIndex(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		mediaType string
		want      bool
	}{
		{name: "oci index", mediaType: ocispec.MediaTypeImageIndex, want: true},
		{name: "docker manifest list", mediaType: "application/vnd.docker.distribution.manifest.list.v2+json", want: true},
		{name: "oci manifest", mediaType: ocispec.MediaTypeImageManifest, want: false},
		{name: "octet stream", mediaType: "application/octet-stream", want: false},
		{name: "empty", mediaType: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, isIndex(tt.mediaType))
		})
	}
}
