// Package gcsmanifest reads seed partitions from a manifest object stored in
// a Google Cloud Storage bucket.
//
// The manifest lives at "<target>/manifest.csv" and lists one partition per
// line, oldest first. A line is a gs:// URI, an https URL or an object path in
// the same bucket; its base name minus extension is the partition date.
package gcsmanifest

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/JakeFAU/booking-crawler/internal/crawler"
	"github.com/JakeFAU/booking-crawler/internal/seed"
)

// ManifestName is the manifest object name below the target prefix.
const ManifestName = "manifest.csv"

const gcsPublicHost = "storage.googleapis.com"

// ObjectReader downloads objects. gcs.BlobStore satisfies it.
type ObjectReader interface {
	ReadObject(ctx context.Context, bucket, object string) ([]byte, error)
}

// Config locates the manifest.
type Config struct {
	Bucket string
	Target string
}

// Source implements crawler.ManifestSource.
type Source struct {
	objects ObjectReader
	http    *http.Client
	cfg     Config
}

// New builds a Source. httpClient serves partition markers given as plain
// https URLs; nil uses http.DefaultClient.
func New(objects ObjectReader, httpClient *http.Client, cfg Config) (*Source, error) {
	if objects == nil {
		return nil, fmt.Errorf("object reader is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Source{objects: objects, http: httpClient, cfg: cfg}, nil
}

// ManifestPath returns the object path of the manifest.
func (s *Source) ManifestPath() string {
	return strings.TrimPrefix(path.Join(s.cfg.Target, ManifestName), "/")
}

// Markers returns the non-empty manifest lines in order. A missing manifest
// object is reported as crawler.ErrSeedAbsent.
func (s *Source) Markers(ctx context.Context) ([]string, error) {
	data, err := s.objects.ReadObject(ctx, s.cfg.Bucket, s.ManifestPath())
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, crawler.ErrSeedAbsent
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var markers []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			markers = append(markers, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan manifest: %w", err)
	}
	return markers, nil
}

// Identifiers downloads the partition named by marker and reads its ids.
func (s *Source) Identifiers(ctx context.Context, marker string) ([]string, error) {
	data, err := s.fetchPartition(ctx, marker)
	if err != nil {
		return nil, err
	}
	ids, err := seed.ReadIdentifiers(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", marker, err)
	}
	return ids, nil
}

func (s *Source) fetchPartition(ctx context.Context, marker string) ([]byte, error) {
	bucket, object, isHTTP, err := s.locate(marker)
	if err != nil {
		return nil, err
	}
	if isHTTP {
		return s.get(ctx, marker)
	}
	data, err := s.objects.ReadObject(ctx, bucket, object)
	if err != nil {
		return nil, fmt.Errorf("read partition: %w", err)
	}
	return data, nil
}

// locate maps a marker to (bucket, object), or flags it as a generic URL.
func (s *Source) locate(marker string) (bucket, object string, isHTTP bool, err error) {
	u, err := url.Parse(marker)
	if err != nil {
		return "", "", false, fmt.Errorf("parse marker %q: %w", marker, err)
	}
	switch u.Scheme {
	case "":
		return s.cfg.Bucket, strings.TrimPrefix(marker, "/"), false, nil
	case "gs":
		object = strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || object == "" {
			return "", "", false, fmt.Errorf("marker %q is not a gs://bucket/object URI", marker)
		}
		return u.Host, object, false, nil
	case "http", "https":
		if u.Host == gcsPublicHost {
			parts := strings.SplitN(strings.TrimPrefix(u.Path, "/"), "/", 2)
			if len(parts) == 2 && parts[0] != "" && parts[1] != "" {
				return parts[0], parts[1], false, nil
			}
		}
		return "", "", true, nil
	default:
		return "", "", false, fmt.Errorf("marker %q has unsupported scheme %q", marker, u.Scheme)
	}
}

func (s *Source) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", rawURL, err)
	}
	defer resp.Body.Close() //nolint:errcheck // body fully consumed below
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get %s: unexpected status %d", rawURL, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rawURL, err)
	}
	return data, nil
}
