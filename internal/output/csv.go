package output

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/JakeFAU/booking-crawler/internal/crawler"
)

// CSVSink appends rows to a CSV stream, writing Header first.
type CSVSink struct {
	mu     sync.Mutex
	w      *csv.Writer
	closer io.Closer
}

// NewCSVSink wraps an open writer. The header is written immediately.
func NewCSVSink(w io.Writer) (*CSVSink, error) {
	return newCSVSink(w, true)
}

func newCSVSink(w io.Writer, header bool) (*CSVSink, error) {
	s := &CSVSink{w: csv.NewWriter(w)}
	if c, ok := w.(io.Closer); ok {
		s.closer = c
	}
	if header {
		if err := s.w.Write(Header); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
		s.w.Flush()
		if err := s.w.Error(); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
	}
	return s, nil
}

// OpenCSVFile opens path for appending, creating it and its parent
// directories if needed. The header is written only to an empty file, so
// successive runs accumulate rows in one feed.
func OpenCSVFile(path string) (*CSVSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	// #nosec G304 -- path comes from operator configuration.
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	sink, err := newCSVSink(f, info.Size() == 0)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return sink, nil
}

// Write appends one row and flushes it.
func (s *CSVSink) Write(_ context.Context, row crawler.OutputRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.w.Write(Fields(row)); err != nil {
		return fmt.Errorf("write row %s: %w", row.Identifier, err)
	}
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		return fmt.Errorf("flush row %s: %w", row.Identifier, err)
	}
	return nil
}

// Close flushes buffered rows and closes the underlying file, if any.
func (s *CSVSink) Close(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	if s.closer != nil {
		if err := s.closer.Close(); err != nil {
			return fmt.Errorf("close csv: %w", err)
		}
		s.closer = nil
	}
	return nil
}
