// Package pagestore names and persists raw booking pages.
package pagestore

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/JakeFAU/booking-crawler/internal/calendar"
	"github.com/JakeFAU/booking-crawler/internal/crawler"
)

// ContentType is attached to every raw page upload.
const ContentType = "text/html; charset=utf-8"

// Key names a raw page: "<YYYY-MM-DD>-<identifier>.html".
func Key(day time.Time, identifier string) string {
	return fmt.Sprintf("%s-%s.html", calendar.FormatDay(day), identifier)
}

// Namespace returns the raw-pages prefix for a tenant target, e.g.
// "cook/raw/" for target "cook" and "raw/" when target is empty.
func Namespace(target string) string {
	return strings.TrimPrefix(path.Join(target, "raw")+"/", "/")
}

// Store writes raw pages into one BlobStore below a fixed prefix.
type Store struct {
	blobs  crawler.BlobStore
	prefix string
}

// New builds a Store. prefix is typically the result of Namespace.
func New(blobs crawler.BlobStore, prefix string) (*Store, error) {
	if blobs == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	return &Store{blobs: blobs, prefix: prefix}, nil
}

// Path returns the full object path Put would write for (day, identifier).
func (s *Store) Path(day time.Time, identifier string) string {
	return s.prefix + Key(day, identifier)
}

// Put persists body and returns the backend URI. Failures wrap
// crawler.ErrStorageWriteFailed together with the backend fault.
func (s *Store) Put(ctx context.Context, day time.Time, identifier string, body []byte) (string, error) {
	if strings.TrimSpace(identifier) == "" {
		return "", fmt.Errorf("%w: identifier is required", crawler.ErrStorageWriteFailed)
	}
	p := s.Path(day, identifier)
	uri, err := s.blobs.PutObject(ctx, p, ContentType, body)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", crawler.ErrStorageWriteFailed, p, err)
	}
	return uri, nil
}

// Multi writes every page to all of its stores, e.g. local disk and GCS.
type Multi []crawler.PageStore

// Put writes to each store in order. It returns the first URI that succeeded
// and the joined failures of the others.
func (m Multi) Put(ctx context.Context, day time.Time, identifier string, body []byte) (string, error) {
	var (
		first string
		errs  []error
	)
	for _, store := range m {
		uri, err := store.Put(ctx, day, identifier, body)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if first == "" {
			first = uri
		}
	}
	if len(errs) > 0 {
		err := errors.Join(errs...)
		if !errors.Is(err, crawler.ErrStorageWriteFailed) {
			err = fmt.Errorf("%w: %w", crawler.ErrStorageWriteFailed, err)
		}
		return first, err
	}
	return first, nil
}
