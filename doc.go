// Package fetchmeter instruments remote resource fetches with operation
// recording and progress reporting.
//
// Fetchmeter wraps a transport (the Fetcher interface) in a decorator that
// records every content and metadata fetch as a named operation and
// reports transfer progress in human-readable units, without changing the
// transport's behavior: values, errors, and absence pass through untouched.
//
// # Basic Usage
//
// Wrap a transport and fetch through the wrapper:
//
//	fetcher, err := fetchmeter.Instrument(transport)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	loc, err := fetchmeter.ParseLocation("https://example.com/tool-1.2.jar")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Stream the content through an action
//	out, err := fetcher.FetchContent(ctx, loc, false, func(r io.Reader, meta *fetchmeter.Metadata) (any, error) {
//	    return io.ReadAll(r)
//	})
//
//	// Or just the metadata
//	meta, err := fetcher.FetchMetadata(ctx, loc, false)
//
// Absent resources are reported as (nil, nil) by both methods; absence is
// a normal outcome, not an error.
//
// # Progress
//
// By default progress reports are discarded. Supply a factory to see them:
//
//	fetcher, err := fetchmeter.Instrument(transport,
//	    fetchmeter.WithProgress(progress.NewConsoleFactory(os.Stderr)))
//
// During a transfer the wrapper emits messages such as
// "1.5 KiB/4 KiB downloaded", at most one per KiB of growth.
//
// # Operations
//
// Every fetch runs as a named operation. Register listeners on a runner to
// observe them:
//
//	recorder := operations.NewRecorder()
//	runner, err := operations.NewRunner(operations.WithListener(recorder))
//	fetcher, err := fetchmeter.Instrument(transport, fetchmeter.WithRunner(runner))
//
// # Transports
//
// Ready-made Fetcher implementations for HTTP, cloud blob storage, and OCI
// registries live in the transport subpackages and behind the root
// constructors NewHTTPFetcher, NewBlobFetcher, and NewRegistryFetcher. Any
// type implementing Fetcher can be instrumented the same way.
package fetchmeter
