//go:build integration

package integration_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/couchcryptid/migrant-map/internal/adapter/kafka"
	"github.com/couchcryptid/migrant-map/internal/config"
	"github.com/couchcryptid/migrant-map/internal/domain"
	"github.com/couchcryptid/migrant-map/internal/observability"
	"github.com/couchcryptid/migrant-map/internal/pipeline"
	"github.com/couchcryptid/migrant-map/internal/topology"
	"github.com/prometheus/client_golang/prometheus/testutil"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

const testSelectionTopic = "test-selection-events"

const worldJSON = `{
  "type": "Topology",
  "objects": {
    "countries": {"type": "GeometryCollection", "geometries": [{"type": "Polygon", "arcs": [[0]]}]},
    "land": {"type": "GeometryCollection", "geometries": [{"type": "Polygon", "arcs": [[0]]}]}
  },
  "arcs": [[[0, 0], [1, 0], [1, 1], [0, 1], [0, 0]]]
}`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("migrant-map-test"))
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err, "start kafka container")

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// TestSelectionEventsReachKafka drives the dashboard through a selection
// change and a clear, and reads both events back from the topic.
func TestSelectionEventsReachKafka(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSelectionTopic)

	cfg := &config.Config{
		KafkaBrokers:        []string{broker},
		KafkaSelectionTopic: testSelectionTopic,
	}
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	metrics := observability.NewMetricsForTesting()
	opts := pipeline.DefaultOptions()
	opts.Sink = writer
	dashboard := pipeline.NewDashboard(opts, discardLogger(), metrics)

	world, err := topology.LoadWorld([]byte(worldJSON))
	require.NoError(t, err)
	var records []domain.Incident
	for i, date := range []string{"2020-01-05", "2020-01-20", "2020-02-10"} {
		inc, err := domain.ParseRow(domain.RawRow{Line: i + 2, Fields: map[string]string{
			domain.ColumnCoordinates:  "35.5, 14.2",
			domain.ColumnSeverity:     strconv.Itoa(i + 1),
			domain.ColumnReportedDate: date,
		}})
		require.NoError(t, err)
		records = append(records, inc)
	}
	dashboard.Populate(records, world)

	sel, err := domain.NewSelection(time.Date(2020, 1, 10, 0, 0, 0, 0, time.UTC), time.Date(2020, 2, 28, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	_, err = dashboard.SetSelection(ctx, &sel)
	require.NoError(t, err)
	_, err = dashboard.ClearSelection(ctx)
	require.NoError(t, err)

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:   []string{broker},
		Topic:     testSelectionTopic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  1 << 20,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
	defer readCancel()

	first, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read set event")
	assert.Equal(t, sel.Key(), string(first.Key))
	assert.Equal(t, "set", header(first, kafka.HeaderEventKind))
	assert.Contains(t, string(first.Value), `"active_incidents":2`)
	assert.Contains(t, string(first.Value), `"active_severity":5`)

	second, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read clear event")
	assert.Equal(t, "clear", header(second, kafka.HeaderEventKind))
	assert.Contains(t, string(second.Value), `"selection":null`)

	assert.InDelta(t, 2, testutil.ToFloat64(metrics.SelectionEventsPublished), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(metrics.SelectionEventsFailed), 0)

	// The adapter reader decodes the same stream.
	reader := kafka.NewReader([]string{broker}, testSelectionTopic, fmt.Sprintf("test-reader-%d", time.Now().UnixNano()), discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	event, err := reader.ReadSelection(readCtx)
	require.NoError(t, err)
	require.NotNil(t, event.Selection)
	assert.Equal(t, "set", event.Kind())
	assert.Equal(t, 2, event.Active)
	assert.True(t, event.Selection.From.Equal(sel.From))
}

func header(msg kafkago.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
