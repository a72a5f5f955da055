package crawler

import "errors"

var (
	// ErrManifestUnreadable means a seed manifest exists but cannot be parsed.
	// Resume semantics cannot be trusted, so the run aborts before fetching.
	ErrManifestUnreadable = errors.New("seed manifest unreadable")
	// ErrSeedAbsent means no prior crawl partition exists (first run).
	ErrSeedAbsent = errors.New("seed manifest absent")
	// ErrFetchFailed marks a candidate whose page could not be fetched.
	ErrFetchFailed = errors.New("fetch failed")
	// ErrStorageWriteFailed marks a raw page that could not be persisted.
	ErrStorageWriteFailed = errors.New("storage write failed")
	// ErrExtractionFailed marks a page whose fields could not be extracted.
	ErrExtractionFailed = errors.New("extraction failed")
)
