package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/migrant-map/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Reader consumes selection events from a Kafka topic.
type Reader struct {
	reader *kafkago.Reader
	logger *slog.Logger
}

// NewReader creates a consumer for topic. With an empty groupID it reads
// partition 0 from the latest offset and commits nothing.
func NewReader(brokers []string, topic, groupID string, logger *slog.Logger) *Reader {
	cfg := kafkago.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 1 << 20,
	}
	if groupID == "" {
		cfg.StartOffset = kafkago.LastOffset
	}
	return &Reader{reader: kafkago.NewReader(cfg), logger: logger}
}

// ReadSelection blocks for the next selection event.
func (r *Reader) ReadSelection(ctx context.Context) (domain.SelectionEvent, error) {
	msg, err := r.reader.ReadMessage(ctx)
	if err != nil {
		return domain.SelectionEvent{}, fmt.Errorf("read selection event: %w", err)
	}
	return decodeMessage(msg)
}

func (r *Reader) Close() error {
	return r.reader.Close()
}

func decodeMessage(msg kafkago.Message) (domain.SelectionEvent, error) {
	var event domain.SelectionEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return domain.SelectionEvent{}, fmt.Errorf("decode selection event at offset %d: %w", msg.Offset, err)
	}
	return event, nil
}
