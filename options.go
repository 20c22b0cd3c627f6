package fetchmeter

import (
	"errors"
	"log/slog"

	"github.com/Azzadd/fetchmeter/operations"
	"github.com/Azzadd/fetchmeter/progress"
)

// Option configures an InstrumentedFetcher.
type Option func(*InstrumentedFetcher) error

// WithLogger sets a logger for the fetcher. By default, logging is
// disabled. The logger is also used by the default operation runner; it
// does not affect a runner supplied via WithRunner.
func WithLogger(logger *slog.Logger) Option {
	return func(f *InstrumentedFetcher) error {
		if logger == nil {
			return errors.New("logger must not be nil")
		}
		f.logger = logger
		return nil
	}
}

// WithRunner sets the operation runner that executes fetches. Use this to
// attach listeners:
//
//	runner, err := operations.NewRunner(operations.WithListener(recorder))
//	fetcher, err := fetchmeter.Instrument(transport, fetchmeter.WithRunner(runner))
func WithRunner(runner operations.Runner) Option {
	return func(f *InstrumentedFetcher) error {
		if runner == nil {
			return errors.New("runner must not be nil")
		}
		f.runner = runner
		return nil
	}
}

// WithProgress sets the factory that creates a progress session per
// content transfer. By default progress reports are discarded.
func WithProgress(factory progress.Factory) Option {
	return func(f *InstrumentedFetcher) error {
		if factory == nil {
			return errors.New("progress factory must not be nil")
		}
		f.progress = factory
		return nil
	}
}
