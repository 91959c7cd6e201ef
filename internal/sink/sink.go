package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/yairfalse/vahti/pkg/types"
)

// Sink delivers findings to their destination
type Sink interface {
	Send(ctx context.Context, findings ...*types.Finding) error
}

// WriterSink writes findings as JSON lines to an io.Writer
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterSink creates a sink writing to w
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

// Send writes one line per finding
func (s *WriterSink) Send(ctx context.Context, findings ...*types.Finding) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	enc := json.NewEncoder(s.w)
	for _, f := range findings {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := enc.Encode(f); err != nil {
			return fmt.Errorf("failed to write finding %s: %w", f.ID, err)
		}
	}
	return nil
}

// FileSink appends findings as JSON lines to a file
type FileSink struct {
	mu   sync.Mutex
	path string
}

// NewFileSink creates a sink appending to path
func NewFileSink(path string) *FileSink {
	return &FileSink{path: path}
}

// Path returns the file findings are appended to
func (s *FileSink) Path() string {
	return s.path
}

// Send appends findings to the file, creating it when needed
func (s *FileSink) Send(ctx context.Context, findings ...*types.Finding) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open findings file: %w", err)
	}

	writer := &WriterSink{w: f}
	if err := writer.Send(ctx, findings...); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
