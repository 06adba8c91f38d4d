// Package notify carries user facing success and warning messages.
package notify

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// Notifier shows short messages to the user. Warn receives the underlying
// error so it can be logged alongside the message.
type Notifier interface {
	Success(msg string)
	Warn(msg string, err error)
}

// Slog reports messages as log records.
type Slog struct {
	Logger *slog.Logger
}

func (s Slog) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// Success implements Notifier
func (s Slog) Success(msg string) {
	s.logger().Info(msg, "notification", "success")
}

// Warn implements Notifier
func (s Slog) Warn(msg string, err error) {
	s.logger().Warn(msg, "notification", "warning", "error", err)
}

// Writer prints messages as single lines, the way the CLI shows them.
type Writer struct {
	mu  sync.Mutex
	Out io.Writer
}

// NewWriter creates a Writer on out.
func NewWriter(out io.Writer) *Writer {
	return &Writer{Out: out}
}

// Success implements Notifier
func (w *Writer) Success(msg string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintf(w.Out, "ok: %s\n", msg)
}

// Warn implements Notifier
func (w *Writer) Warn(msg string, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		fmt.Fprintf(w.Out, "warning: %s (%v)\n", msg, err)
		return
	}
	fmt.Fprintf(w.Out, "warning: %s\n", msg)
}

// Recorder keeps every message in memory.
type Recorder struct {
	mu        sync.Mutex
	Successes []string
	Warnings  []string
	Errors    []error
}

// Success implements Notifier
func (r *Recorder) Success(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Successes = append(r.Successes, msg)
}

// Warn implements Notifier
func (r *Recorder) Warn(msg string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Warnings = append(r.Warnings, msg)
	r.Errors = append(r.Errors, err)
}

// Counts returns the number of successes and warnings recorded.
func (r *Recorder) Counts() (successes, warnings int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Successes), len(r.Warnings)
}

// Discard drops every message.
var Discard Notifier = discard{}

type discard struct{}

func (discard) Success(string) {}
func (discard) Warn(string, error) {}
