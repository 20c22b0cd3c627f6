package fetchmeter

import (
	"gocloud.dev/blob"

	"github.com/Azzadd/fetchmeter/transport/blobfetch"
	"github.com/Azzadd/fetchmeter/transport/httpfetch"
	"github.com/Azzadd/fetchmeter/transport/ocifetch"
)

// NewHTTPFetcher returns a Fetcher for http and https locations. Configure
// it with options from the transport/httpfetch package.
func NewHTTPFetcher(opts ...httpfetch.Option) (Fetcher, error) {
	return httpfetch.New(opts...)
}

// NewBlobFetcher returns a Fetcher reading from the given bucket (S3, GCS,
// Azure, the local filesystem, or in-memory, depending on how the bucket
// was opened). Configure it with options from the transport/blobfetch
// package.
func NewBlobFetcher(bucket *blob.Bucket, opts ...blobfetch.Option) (Fetcher, error) {
	return blobfetch.New(bucket, opts...)
}

// NewRegistryFetcher returns a Fetcher for oci locations backed by an OCI
// registry. Configure it with options from the transport/ocifetch package.
func NewRegistryFetcher(opts ...ocifetch.Option) Fetcher {
	return ocifetch.New(opts...)
}
