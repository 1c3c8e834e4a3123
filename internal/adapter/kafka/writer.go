package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/venue-map/internal/config"
	"github.com/couchcryptid/venue-map/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Recorder publishes resolution summaries to a Kafka topic.
// It implements discovery.ResolutionRecorder.
type Recorder struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewRecorder creates an asynchronous producer for the resolution topic.
// Delivery failures are logged and never reach the resolution path.
func NewRecorder(cfg *config.Config, logger *slog.Logger) *Recorder {
	r := &Recorder{logger: logger}
	r.writer = &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.ResolutionTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
		Async:        true,
		Completion:   r.completed,
	}
	return r
}

// RecordResolution enqueues one event. With an async writer this returns as
// soon as the message is buffered.
func (r *Recorder) RecordResolution(ctx context.Context, event domain.ResolutionEvent) error {
	msg, err := serializeToMessage(event)
	if err != nil {
		return err
	}
	return r.writer.WriteMessages(ctx, msg)
}

// Close flushes pending messages.
func (r *Recorder) Close() error {
	return r.writer.Close()
}

func (r *Recorder) completed(msgs []kafkago.Message, err error) {
	if err == nil {
		return
	}
	r.logger.Warn("resolution events not delivered", "count", len(msgs), "error", err)
}

// serializeToMessage marshals a ResolutionEvent into a Kafka message keyed by
// event id.
func serializeToMessage(event domain.ResolutionEvent) (kafkago.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize resolution event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(event.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "source", Value: []byte(event.Source)},
			{Key: "resolved_at", Value: []byte(event.ResolvedAt.Format(time.RFC3339))},
		},
	}, nil
}
