package blobfetch

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/memblob"

	"github.com/Azzadd/fetchmeter/core"
)

func newTestBucket(t *testing.T) *blob.Bucket {
	t.Helper()

	bucket, err := blob.OpenBucket(context.Background(), "mem://")
	require.NoError(t, err)
	t.Cleanup(func() { bucket.Close() })
	return bucket
}

func mustLocation(t *testing.T, raw string) core.Location {
	t.Helper()
	loc, err := core.ParseLocation(raw)
	require.NoError(t, err)
	return loc
}

func TestFetcher_FetchContent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	bucket := newTestBucket(t)
	require.NoError(t, bucket.WriteAll(ctx, "data/object.bin", []byte("object payload"), &blob.WriterOptions{
		ContentType: "application/octet-stream",
	}))

	f, err := New(bucket)
	require.NoError(t, err)

	loc := mustLocation(t, "s3://test-bucket/data/object.bin")
	out, err := f.FetchContent(ctx, loc, false, func(r io.Reader, meta *core.Metadata) (any, error) {
		require.NotNil(t, meta)
		assert.Equal(t, int64(14), meta.ContentLength)
		assert.Equal(t, "application/octet-stream", meta.ContentType)
		assert.WithinDuration(t, time.Now(), meta.LastModified, time.Minute)
		return io.ReadAll(r)
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("object payload"), out)
}

func TestFetcher_FetchContent_Absent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f, err := New(newTestBucket(t))
	require.NoError(t, err)

	actionRan := false
	out, err := f.FetchContent(ctx, mustLocation(t, "s3://test-bucket/missing"), false, func(io.Reader, *core.Metadata) (any, error) {
		actionRan = true
		return nil, nil
	})
	require.NoError(t, err)
	assert.Nil(t, out)
	assert.False(t, actionRan)
}

func TestFetcher_FetchMetadata(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	bucket := newTestBucket(t)
	require.NoError(t, bucket.WriteAll(ctx, "data/object.bin", []byte("object payload"), nil))

	f, err := New(bucket)
	require.NoError(t, err)

	meta, err := f.FetchMetadata(ctx, mustLocation(t, "s3://test-bucket/data/object.bin"), false)
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, int64(14), meta.ContentLength)
	assert.WithinDuration(t, time.Now(), meta.LastModified, time.Minute)
}

func TestFetcher_FetchMetadata_Absent(t *testing.T) {
	t.Parallel()

	f, err := New(newTestBucket(t))
	require.NoError(t, err)

	meta, err := f.FetchMetadata(context.Background(), mustLocation(t, "s3://test-bucket/missing"), false)
	require.NoError(t, err)
	assert.Nil(t, meta)
}

func TestNew_NilBucket(t *testing.T) {
	t.Parallel()

	_, err := New(nil)
	require.Error(t, err)
}

func TestKeyFromLocation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want string
	}{
		{"s3://bucket/a/b/c.bin", "a/b/c.bin"},
		{"gs://bucket/single", "single"},
		{"mem://bucket/", ""},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, keyFromLocation(mustLocation(t, tt.raw)))
		})
	}
}
