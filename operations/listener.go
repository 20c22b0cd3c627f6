package operations

import (
	"slices"
	"sync"
	"time"
)

// Record is the completed view of one operation.
type Record struct {
	Name                string
	DisplayName         string
	ProgressDisplayName string
	Details             any
	Result              any
	Err                 error
	Start               time.Time
	End                 time.Time
}

// Duration returns how long the operation ran.
func (r Record) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// Listener observes operation lifecycle events. Implementations must be
// safe for concurrent use when operations run concurrently.
type Listener interface {
	// Started is called before the operation body runs.
	Started(desc Descriptor, at time.Time)

	// Finished is called after the operation body returns, on success and
	// failure alike.
	Finished(rec Record)
}

// Recorder is a Listener that keeps finished records in memory. It is safe
// for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	records []Record
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Started implements Listener.
func (r *Recorder) Started(Descriptor, time.Time) {}

// Finished implements Listener.
func (r *Recorder) Finished(rec Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
}

// Records returns a copy of the finished records in completion order.
func (r *Recorder) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.records)
}

// Len returns the number of finished records.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// Reset discards all recorded operations.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = nil
}
