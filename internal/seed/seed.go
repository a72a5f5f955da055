// Package seed resolves where an incremental crawl resumes: the most recent
// completed partition day and the booking ids already recorded for it.
package seed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/booking-crawler/internal/calendar"
	"github.com/JakeFAU/booking-crawler/internal/crawler"
)

// IdentifierColumn is the record-list column holding booking ids.
const IdentifierColumn = "Booking_Id"

// Resolver implements crawler.SeedResolver over a ManifestSource.
type Resolver struct {
	source   crawler.ManifestSource
	fallback time.Time
	logger   *zap.Logger
}

// NewResolver builds a Resolver that falls back to fallback on a first run.
func NewResolver(source crawler.ManifestSource, fallback time.Time, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		source:   source,
		fallback: calendar.Day(fallback),
		logger:   logger,
	}
}

// Resolve returns the latest partition day and its identifiers. An absent or
// empty manifest is a first run and yields the fallback day with no error.
// A manifest that exists but cannot be parsed yields ErrManifestUnreadable.
func (r *Resolver) Resolve(ctx context.Context) (crawler.SeedDay, error) {
	markers, err := r.source.Markers(ctx)
	switch {
	case errors.Is(err, crawler.ErrSeedAbsent):
		r.logger.Info("No seed manifest found; starting from fallback date",
			zap.String("fallback", calendar.FormatDay(r.fallback)))
		return crawler.SeedDay{Date: r.fallback}, nil
	case err != nil:
		return crawler.SeedDay{}, fmt.Errorf("%w: list partitions: %w", crawler.ErrManifestUnreadable, err)
	case len(markers) == 0:
		r.logger.Info("Seed manifest is empty; starting from fallback date",
			zap.String("fallback", calendar.FormatDay(r.fallback)))
		return crawler.SeedDay{Date: r.fallback}, nil
	}

	marker := markers[len(markers)-1]
	day, err := calendar.MarkerDay(marker)
	if err != nil {
		return crawler.SeedDay{}, fmt.Errorf("%w: %w", crawler.ErrManifestUnreadable, err)
	}

	ids, err := r.source.Identifiers(ctx, marker)
	if err != nil {
		return crawler.SeedDay{}, fmt.Errorf("%w: read partition %s: %w", crawler.ErrManifestUnreadable, marker, err)
	}

	r.logger.Info("Resolved seed partition",
		zap.String("marker", marker),
		zap.String("date", calendar.FormatDay(day)),
		zap.Int("identifiers", len(ids)),
	)
	return crawler.SeedDay{Date: day, Identifiers: ids, Marker: marker}, nil
}

// ReadIdentifiers reads the Booking_Id column of a CSV record list. Blank ids
// are skipped; a list without the column is rejected.
func ReadIdentifiers(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := -1
	for i, name := range header {
		if strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")) == IdentifierColumn {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("column %s not found", IdentifierColumn)
	}

	var ids []string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return ids, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		if col >= len(record) {
			continue
		}
		if id := strings.TrimSpace(record[col]); id != "" {
			ids = append(ids, id)
		}
	}
}
