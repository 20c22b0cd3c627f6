package fetchmeter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/Azzadd/fetchmeter/core"
	"github.com/Azzadd/fetchmeter/operations"
	"github.com/Azzadd/fetchmeter/progress"
)

// InstrumentedFetcher decorates a Fetcher with operation recording and
// progress reporting. It implements Fetcher itself, so it can stand in
// anywhere the undecorated transport could.
type InstrumentedFetcher struct {
	delegate Fetcher
	runner   operations.Runner
	progress progress.Factory
	logger   *slog.Logger
}

var _ Fetcher = (*InstrumentedFetcher)(nil)

// Instrument wraps delegate in an InstrumentedFetcher.
//
// Without options the wrapper is inert: operations run under a runner with
// no listeners and progress reports are discarded. The delegate's values,
// errors, and absence results always pass through unchanged.
func Instrument(delegate Fetcher, opts ...Option) (*InstrumentedFetcher, error) {
	if delegate == nil {
		return nil, errors.New("fetchmeter: delegate must not be nil")
	}

	f := &InstrumentedFetcher{
		delegate: delegate,
		progress: progress.Discard,
		logger:   slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		if err := opt(f); err != nil {
			return nil, err
		}
	}

	if f.runner == nil {
		runner, err := operations.NewRunner(operations.WithLogger(f.logger))
		if err != nil {
			return nil, err
		}
		f.runner = runner
	}

	return f, nil
}

// FetchContent fetches the resource at location and streams its content
// through action, recording the fetch as a "Download <uri>" operation.
//
// The action receives a counting reader in place of the raw stream; the
// bytes it consumes drive progress reports and are recorded in the
// operation's ReadResult, partial counts included when the action fails.
// A progress session is created only when the resource exists, so absent
// resources produce no progress at all.
func (f *InstrumentedFetcher) FetchContent(ctx context.Context, location Location, revalidate bool, action ContentAction) (any, error) {
	uri := location.String()
	desc := operations.Descriptor{
		Name:                "Download " + uri,
		ProgressDisplayName: location.ShortName(),
		Details:             ReadDetails{Location: uri},
	}

	return f.runner.Call(ctx, desc, func(op operations.Context) (any, error) {
		var counter *progress.Reader
		defer func() {
			var n int64
			if counter != nil {
				n = counter.Count()
			}
			op.SetResult(ReadResult{BytesRead: n})
		}()

		return f.delegate.FetchContent(ctx, location, revalidate, func(content io.Reader, meta *Metadata) (any, error) {
			session := f.progress.NewSession(desc.Name)
			session.Started()
			defer session.Completed()

			total := core.UnknownSize
			if meta != nil {
				total = meta.ContentLength
			}
			counter = progress.NewReader(content, progress.NewMeter(session, total).Update)

			return action(counter, meta)
		})
	})
}

// FetchMetadata fetches the resource's metadata, recording the fetch as a
// "Metadata of <uri>" operation. Metadata fetches transfer no content and
// therefore report no progress.
func (f *InstrumentedFetcher) FetchMetadata(ctx context.Context, location Location, revalidate bool) (*Metadata, error) {
	uri := location.String()
	desc := operations.Descriptor{
		Name:                "Metadata of " + uri,
		ProgressDisplayName: location.ShortName(),
		Details:             MetadataDetails{Location: uri},
	}

	out, err := f.runner.Call(ctx, desc, func(op operations.Context) (any, error) {
		defer op.SetResult(MetadataResult{})

		meta, err := f.delegate.FetchMetadata(ctx, location, revalidate)
		if err != nil {
			return nil, err
		}
		if meta == nil {
			return nil, nil
		}
		return meta, nil
	})
	if err != nil || out == nil {
		return nil, err
	}

	meta, ok := out.(*Metadata)
	if !ok {
		return nil, fmt.Errorf("fetchmeter: unexpected metadata type %T", out)
	}
	return meta, nil
}

// FetchContent fetches through f with a typed action, sparing callers the
// any-typed plumbing of the Fetcher interface. The found result is false
// when the resource is absent, in which case the action never ran.
func FetchContent[T any](ctx context.Context, f Fetcher, location Location, revalidate bool, action func(content io.Reader, meta *Metadata) (T, error)) (T, bool, error) {
	var zero T

	out, err := f.FetchContent(ctx, location, revalidate, func(content io.Reader, meta *Metadata) (any, error) {
		return action(content, meta)
	})
	if err != nil {
		return zero, false, err
	}
	if out == nil {
		return zero, false, nil
	}

	v, ok := out.(T)
	if !ok {
		return zero, false, fmt.Errorf("fetchmeter: action returned %T, want %T", out, zero)
	}
	return v, true, nil
}
