package httpfetch

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Azzadd/fetchmeter/core"
)

func mustLocation(t *testing.T, raw string) core.Location {
	t.Helper()
	loc, err := core.ParseLocation(raw)
	require.NoError(t, err)
	return loc
}

func newTestFetcher(t *testing.T, opts ...Option) *Fetcher {
	t.Helper()
	opts = append([]Option{WithRetryBackoff(time.Millisecond)}, opts...)
	f, err := New(opts...)
	require.NoError(t, err)
	return f
}

func TestFetcher_FetchContent(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("ETag", `"abc123"`)
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Last-Modified", "Wed, 01 Jan 2025 00:00:00 GMT")
		_, _ = w.Write([]byte("remote content"))
	}))
	defer srv.Close()

	f := newTestFetcher(t)
	loc := mustLocation(t, srv.URL+"/files/artifact.bin")

	out, err := f.FetchContent(context.Background(), loc, false, func(r io.Reader, meta *core.Metadata) (any, error) {
		require.NotNil(t, meta)
		assert.Equal(t, int64(14), meta.ContentLength)
		assert.Equal(t, "abc123", meta.ETag)
		assert.Equal(t, "application/octet-stream", meta.ContentType)
		assert.Equal(t, 2025, meta.LastModified.Year())
		return io.ReadAll(r)
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("remote content"), out)
}

func TestFetcher_FetchContent_NotFound(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	f := newTestFetcher(t)
	loc := mustLocation(t, srv.URL+"/missing")

	actionRan := false
	out, err := f.FetchContent(context.Background(), loc, false, func(io.Reader, *core.Metadata) (any, error) {
		actionRan = true
		return nil, nil
	})
	require.NoError(t, err)
	assert.Nil(t, out)
	assert.False(t, actionRan)
}

func TestFetcher_FetchContent_Unauthorized(t *testing.T) {
	t.Parallel()

	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		f := newTestFetcher(t)
		loc := mustLocation(t, srv.URL+"/private")

		_, err := f.FetchContent(context.Background(), loc, false, func(io.Reader, *core.Metadata) (any, error) {
			return nil, nil
		})
		assert.ErrorIs(t, err, core.ErrUnauthorized)
		srv.Close()
	}
}

func TestFetcher_RetriesServerErrors(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := newTestFetcher(t, WithRetryAttempts(3))
	loc := mustLocation(t, srv.URL+"/flaky")

	out, err := f.FetchContent(context.Background(), loc, false, func(r io.Reader, _ *core.Metadata) (any, error) {
		return io.ReadAll(r)
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("ok"), out)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestFetcher_RetriesExhausted(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := newTestFetcher(t, WithRetryAttempts(1))
	loc := mustLocation(t, srv.URL+"/broken")

	_, err := f.FetchContent(context.Background(), loc, false, func(io.Reader, *core.Metadata) (any, error) {
		return nil, nil
	})
	assert.ErrorIs(t, err, ErrServerError)
}

func TestFetcher_RevalidateSetsCacheControl(t *testing.T) {
	t.Parallel()

	var cacheControl atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cacheControl.Store(r.Header.Get("Cache-Control"))
		_, _ = w.Write([]byte("x"))
	}))
	defer srv.Close()

	f := newTestFetcher(t)
	loc := mustLocation(t, srv.URL+"/cached")

	_, err := f.FetchContent(context.Background(), loc, true, func(r io.Reader, _ *core.Metadata) (any, error) {
		return io.Copy(io.Discard, r)
	})
	require.NoError(t, err)
	assert.Equal(t, "no-cache", cacheControl.Load())

	_, err = f.FetchContent(context.Background(), loc, false, func(r io.Reader, _ *core.Metadata) (any, error) {
		return io.Copy(io.Discard, r)
	})
	require.NoError(t, err)
	assert.Equal(t, "", cacheControl.Load())
}

func TestFetcher_FetchMetadata(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		w.Header().Set("Content-Length", "4096")
		w.Header().Set("ETag", `W/"weak-tag"`)
		w.Header().Set("Content-Type", "application/java-archive")
	}))
	defer srv.Close()

	f := newTestFetcher(t)
	loc := mustLocation(t, srv.URL+"/files/tool.jar")

	meta, err := f.FetchMetadata(context.Background(), loc, false)
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, int64(4096), meta.ContentLength)
	assert.Equal(t, "weak-tag", meta.ETag)
	assert.Equal(t, "application/java-archive", meta.ContentType)
	assert.Equal(t, loc.String(), meta.Location.String())
}

func TestFetcher_FetchMetadata_NotFound(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	f := newTestFetcher(t)
	loc := mustLocation(t, srv.URL+"/missing")

	meta, err := f.FetchMetadata(context.Background(), loc, false)
	require.NoError(t, err)
	assert.Nil(t, meta)
}

func TestFetcher_UnknownLength(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Flush before writing so the response streams without a
		// Content-Length header.
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		_, _ = w.Write([]byte("streamed"))
	}))
	defer srv.Close()

	f := newTestFetcher(t)
	loc := mustLocation(t, srv.URL+"/stream")

	_, err := f.FetchContent(context.Background(), loc, false, func(r io.Reader, meta *core.Metadata) (any, error) {
		assert.Equal(t, core.UnknownSize, meta.ContentLength)
		return io.Copy(io.Discard, r)
	})
	require.NoError(t, err)
}

func TestFetcher_UnsupportedScheme(t *testing.T) {
	t.Parallel()

	f := newTestFetcher(t)
	loc := mustLocation(t, "ftp://example.com/file")

	_, err := f.FetchMetadata(context.Background(), loc, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported scheme")
}

func TestFetcher_UserAgent(t *testing.T) {
	t.Parallel()

	var ua atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua.Store(r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("x"))
	}))
	defer srv.Close()

	f := newTestFetcher(t, WithUserAgent("fetchmeter-test/1.0"))
	loc := mustLocation(t, srv.URL+"/ua")

	_, err := f.FetchContent(context.Background(), loc, false, func(r io.Reader, _ *core.Metadata) (any, error) {
		return io.Copy(io.Discard, r)
	})
	require.NoError(t, err)
	assert.Equal(t, "fetchmeter-test/1.0", ua.Load())
}

func TestFetcher_OptionValidation(t *testing.T) {
	t.Parallel()

	_, err := New(WithLogger(nil))
	require.Error(t, err)

	_, err = New(WithHTTPClient(nil))
	require.Error(t, err)

	_, err = New(WithRetryAttempts(-1))
	require.Error(t, err)

	_, err = New(WithRetryBackoff(0))
	require.Error(t, err)
}
