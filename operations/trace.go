package operations

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

// TraceWriter is a Listener that appends one JSON object per finished
// operation to a file. When the path ends in ".zst" the stream is
// zstd-compressed. It is safe for concurrent use.
type TraceWriter struct {
	mu   sync.Mutex
	file *os.File
	zw   *zstd.Encoder
	enc  *json.Encoder
}

// traceEntry is the on-disk form of a Record.
type traceEntry struct {
	Name        string    `json:"name"`
	DisplayName string    `json:"displayName,omitempty"`
	Details     any       `json:"details,omitempty"`
	Result      any       `json:"result,omitempty"`
	Error       string    `json:"error,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
}

// NewTraceWriter creates or truncates the trace file at path. The caller
// must Close the writer to flush buffered output.
func NewTraceWriter(path string) (*TraceWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create trace file: %w", err)
	}

	w := &TraceWriter{file: f}
	var sink io.Writer = f
	if strings.HasSuffix(path, ".zst") {
		zw, err := zstd.NewWriter(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("create zstd writer: %w", err)
		}
		w.zw = zw
		sink = zw
	}
	w.enc = json.NewEncoder(sink)

	return w, nil
}

// Started implements Listener.
func (w *TraceWriter) Started(Descriptor, time.Time) {}

// Finished implements Listener. Encoding failures are dropped; tracing
// must never fail the traced operation.
func (w *TraceWriter) Finished(rec Record) {
	entry := traceEntry{
		Name:        rec.Name,
		DisplayName: rec.DisplayName,
		Details:     rec.Details,
		Result:      rec.Result,
		Start:       rec.Start,
		End:         rec.End,
	}
	if rec.Err != nil {
		entry.Error = rec.Err.Error()
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.enc.Encode(entry)
}

// Close flushes and closes the trace file.
func (w *TraceWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.zw != nil {
		if err := w.zw.Close(); err != nil {
			w.file.Close()
			return fmt.Errorf("close zstd writer: %w", err)
		}
	}
	return w.file.Close()
}
