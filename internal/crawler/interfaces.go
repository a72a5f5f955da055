package crawler

import (
	"context"
	"time"
)

// BlobStore writes raw artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// PageStore persists a raw booking page under a deterministic key.
type PageStore interface {
	Put(ctx context.Context, day time.Time, identifier string, body []byte) (string, error)
}

// ManifestSource lists completed crawl partitions, oldest first, and reads
// the identifiers recorded in one of them.
type ManifestSource interface {
	Markers(ctx context.Context) ([]string, error)
	Identifiers(ctx context.Context, marker string) ([]string, error)
}

// SeedResolver returns the day a crawl resumes from.
type SeedResolver interface {
	Resolve(ctx context.Context) (SeedDay, error)
}

// Fetcher fetches a URL and returns the body plus metadata.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// Extractor turns a raw booking page into typed fields.
type Extractor interface {
	Extract(page RawPage) (ExtractedRecord, error)
}

// RowSink receives output rows. Implementations must be safe for concurrent use.
type RowSink interface {
	Write(ctx context.Context, row OutputRow) error
	Close(ctx context.Context) error
}

// Hasher computes digests for deduplication/integrity.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewID() (string, error)
}
