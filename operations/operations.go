// Package operations runs named units of work and notifies listeners of
// their outcome.
//
// A Runner executes a function under a Descriptor that names the work. The
// function receives a Context through which it records a typed result; the
// runner measures timing, logs, and delivers a Record to every registered
// Listener when the work finishes, whether it succeeded or failed.
package operations

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Descriptor names an operation before it runs.
type Descriptor struct {
	// Name uniquely describes the operation, e.g. "Download https://...".
	Name string

	// DisplayName is the human-facing form of the name. Defaults to Name
	// when empty.
	DisplayName string

	// ProgressDisplayName is a compact label for progress surfaces, such
	// as the final path segment of a URL. Optional.
	ProgressDisplayName string

	// Details carries typed, operation-specific input data.
	Details any
}

// Context lets the operation body record its outcome.
type Context interface {
	// SetResult records the operation's typed result. It may be called at
	// most once; a second call panics. Operations that fail can still set
	// a result describing the work done before the failure.
	SetResult(result any)
}

// Runner executes named operations.
type Runner interface {
	// Call runs fn under the given descriptor and returns fn's value and
	// error unchanged. The error is never wrapped; callers can match it
	// with errors.Is exactly as if fn had been called directly.
	Call(ctx context.Context, desc Descriptor, fn func(op Context) (any, error)) (any, error)
}

// DefaultRunner is the standard Runner. It logs operation boundaries and
// notifies listeners with a completed Record for every call.
type DefaultRunner struct {
	logger    *slog.Logger
	listeners []Listener
}

// Option configures a DefaultRunner.
type Option func(*DefaultRunner) error

// NewRunner creates a runner. By default logging is disabled and no
// listeners are registered.
func NewRunner(opts ...Option) (*DefaultRunner, error) {
	r := &DefaultRunner{
		logger: slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// WithLogger sets a logger for the runner. By default, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(r *DefaultRunner) error {
		if logger == nil {
			return errors.New("logger must not be nil")
		}
		r.logger = logger
		return nil
	}
}

// WithListener registers a listener. Listeners are notified in
// registration order.
func WithListener(l Listener) Option {
	return func(r *DefaultRunner) error {
		if l == nil {
			return errors.New("listener must not be nil")
		}
		r.listeners = append(r.listeners, l)
		return nil
	}
}

// Call implements Runner. Listeners are notified even when fn returns an
// error, and the Record carries whatever result fn set before failing.
func (r *DefaultRunner) Call(ctx context.Context, desc Descriptor, fn func(op Context) (any, error)) (any, error) {
	if desc.DisplayName == "" {
		desc.DisplayName = desc.Name
	}

	start := time.Now()
	r.logger.Debug("operation started", "operation", desc.Name)
	for _, l := range r.listeners {
		l.Started(desc, start)
	}

	op := &opContext{}
	out, err := fn(op)

	end := time.Now()
	if err != nil {
		r.logger.Debug("operation failed", "operation", desc.Name, "duration", end.Sub(start), "error", err)
	} else {
		r.logger.Debug("operation finished", "operation", desc.Name, "duration", end.Sub(start))
	}

	rec := Record{
		Name:                desc.Name,
		DisplayName:         desc.DisplayName,
		ProgressDisplayName: desc.ProgressDisplayName,
		Details:             desc.Details,
		Result:              op.result,
		Err:                 err,
		Start:               start,
		End:                 end,
	}
	for _, l := range r.listeners {
		l.Finished(rec)
	}

	return out, err
}

// opContext implements Context for a single operation. It is used from
// the operation's goroutine only.
type opContext struct {
	result    any
	resultSet bool
}

func (c *opContext) SetResult(result any) {
	if c.resultSet {
		panic("operations: result already set")
	}
	c.result = result
	c.resultSet = true
}
