package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/migrant-map/internal/config"
	"github.com/couchcryptid/migrant-map/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Header keys set on every selection message.
const (
	HeaderEventKind = "event_kind"
	HeaderChangedAt = "changed_at"
)

// clearKey keys messages for a cleared selection.
const clearKey = "clear"

// Writer produces selection events to a Kafka topic.
// It implements pipeline.SelectionSink.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured selection topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaSelectionTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireOne,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishSelection serializes and writes one selection event.
func (w *Writer) PublishSelection(ctx context.Context, event domain.SelectionEvent) error {
	msg, err := serializeToMessage(event)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write selection event: %w", err)
	}
	w.logger.Debug("selection event published", "kind", event.Kind(), "active", event.Active)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a SelectionEvent into a Kafka message keyed by
// the selected range.
func serializeToMessage(event domain.SelectionEvent) (kafkago.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize selection event: %w", err)
	}
	key := clearKey
	if event.Selection != nil {
		key = event.Selection.Key()
	}
	return kafkago.Message{
		Key:   []byte(key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: HeaderEventKind, Value: []byte(event.Kind())},
			{Key: HeaderChangedAt, Value: []byte(event.ChangedAt.Format(time.RFC3339))},
		},
	}, nil
}
