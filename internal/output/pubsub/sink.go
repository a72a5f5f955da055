// Package pubsub announces crawl rows on a Google Cloud Pub/Sub topic.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"go.opentelemetry.io/otel"

	"github.com/JakeFAU/booking-crawler/internal/calendar"
	"github.com/JakeFAU/booking-crawler/internal/crawler"
	"github.com/JakeFAU/booking-crawler/internal/output"
	"github.com/JakeFAU/booking-crawler/internal/telemetry"
)

// PublishFunc sends one message and returns the server-assigned id.
type PublishFunc func(ctx context.Context, msg *pubsub.Message) (string, error)

// Message is the JSON payload of every published row.
type Message struct {
	RunID      string            `json:"run_id"`
	Identifier string            `json:"identifier"`
	ScrapedOn  time.Time         `json:"scraped_on"`
	RawKey     string            `json:"raw_key"`
	Row        map[string]string `json:"row"`
}

// Sink publishes each row as a JSON message.
type Sink struct {
	publish PublishFunc
	stop    func()
}

// New builds a Sink around an arbitrary publish function.
func New(publish PublishFunc) *Sink {
	return &Sink{publish: publish}
}

// NewFromPublisher wraps a topic publisher and stops it on Close.
func NewFromPublisher(p *pubsub.Publisher) *Sink {
	return &Sink{
		publish: func(ctx context.Context, msg *pubsub.Message) (string, error) {
			return p.Publish(ctx, msg).Get(ctx)
		},
		stop: p.Stop,
	}
}

// Write marshals the row and blocks until the publish is acknowledged.
func (s *Sink) Write(ctx context.Context, row crawler.OutputRow) error {
	if s == nil || s.publish == nil {
		return fmt.Errorf("pubsub sink is not configured")
	}
	data, err := json.Marshal(Message{
		RunID:      row.RunID,
		Identifier: row.Identifier,
		ScrapedOn:  row.ScrapedOn,
		RawKey:     row.RawKey,
		Row:        output.Map(row),
	})
	if err != nil {
		return fmt.Errorf("marshal row: %w", err)
	}
	attrs := telemetry.AttributeCarrier{
		"run_id":       row.RunID,
		"booking_date": calendar.FormatDay(row.Record.BookingDate),
	}
	otel.GetTextMapPropagator().Inject(ctx, attrs)
	msg := &pubsub.Message{Data: data, Attributes: attrs}
	if _, err := s.publish(ctx, msg); err != nil {
		return fmt.Errorf("publish row %s: %w", row.Identifier, err)
	}
	return nil
}

// Close flushes and stops the underlying publisher.
func (s *Sink) Close(context.Context) error {
	if s != nil && s.stop != nil {
		s.stop()
		s.stop = nil
	}
	return nil
}
