// Package progress tracks and reports the progress of byte transfers.
//
// A Session represents one logical operation whose progress is being
// reported; a Factory creates sessions. The package ships three factories:
// Discard (drop everything), NewLogFactory (structured log lines), and
// NewConsoleFactory (plain lines on a writer). Callers with richer display
// needs implement Factory themselves.
package progress

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// Session is one logical progress operation. Started is called once before
// any Progress call, Completed exactly once afterwards. Sessions are used
// from a single goroutine.
type Session interface {
	// Started marks the beginning of the operation.
	Started()

	// Progress reports an intermediate status message.
	Progress(message string)

	// Completed marks the end of the operation. No calls follow it.
	Completed()
}

// Factory creates progress sessions. Implementations must be safe for
// concurrent use; the sessions they return need not be.
type Factory interface {
	NewSession(description string) Session
}

// Discard is a Factory whose sessions drop all reports.
var Discard Factory = discardFactory{}

type discardFactory struct{}

func (discardFactory) NewSession(string) Session { return discardSession{} }

type discardSession struct{}

func (discardSession) Started()         {}
func (discardSession) Progress(string)  {}
func (discardSession) Completed()       {}

// NewLogFactory returns a Factory that reports progress through logger.
// Status messages are logged at info level, session boundaries at debug.
func NewLogFactory(logger *slog.Logger) Factory {
	return &logFactory{logger: logger}
}

type logFactory struct {
	logger *slog.Logger
}

func (f *logFactory) NewSession(description string) Session {
	return &logSession{logger: f.logger, description: description}
}

type logSession struct {
	logger      *slog.Logger
	description string
}

func (s *logSession) Started() {
	s.logger.Debug("progress started", "operation", s.description)
}

func (s *logSession) Progress(message string) {
	s.logger.Info("progress", "operation", s.description, "status", message)
}

func (s *logSession) Completed() {
	s.logger.Debug("progress completed", "operation", s.description)
}

// NewConsoleFactory returns a Factory that writes the operation description
// and each status message as plain lines on w. Writes from concurrent
// sessions are serialized.
func NewConsoleFactory(w io.Writer) Factory {
	return &consoleFactory{w: w}
}

type consoleFactory struct {
	mu sync.Mutex
	w  io.Writer
}

func (f *consoleFactory) NewSession(description string) Session {
	return &consoleSession{factory: f, description: description}
}

type consoleSession struct {
	factory     *consoleFactory
	description string
}

func (s *consoleSession) Started() {
	s.factory.writeLine(s.description)
}

func (s *consoleSession) Progress(message string) {
	s.factory.writeLine(message)
}

func (s *consoleSession) Completed() {}

func (f *consoleFactory) writeLine(line string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fmt.Fprintln(f.w, line)
}
