// Package localdir reads seed partitions from a directory of daily record
// lists named YYYY-MM-DD.<ext>.
package localdir

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/JakeFAU/booking-crawler/internal/crawler"
	"github.com/JakeFAU/booking-crawler/internal/seed"
)

// Source implements crawler.ManifestSource over a local directory.
type Source struct {
	dir string
}

// New creates a Source rooted at dir.
func New(dir string) *Source {
	return &Source{dir: dir}
}

// Markers returns the regular, non-hidden file names in the directory sorted
// lexicographically. A missing directory is reported as crawler.ErrSeedAbsent.
func (s *Source) Markers(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, crawler.ErrSeedAbsent
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Identifiers reads the booking ids recorded in one partition file.
func (s *Source) Identifiers(_ context.Context, marker string) ([]string, error) {
	path := filepath.Join(s.dir, filepath.Base(marker))
	// #nosec G304 -- marker comes from our own directory listing.
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck // read-only handle

	ids, err := seed.ReadIdentifiers(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return ids, nil
}
