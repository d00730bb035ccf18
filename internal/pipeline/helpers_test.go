package pipeline_test

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/migrant-map/internal/domain"
	"github.com/couchcryptid/migrant-map/internal/observability"
	"github.com/couchcryptid/migrant-map/internal/topology"
)

// --- mocks ---

type mockSink struct {
	mu     sync.Mutex
	events []domain.SelectionEvent
	err    error
}

func (m *mockSink) PublishSelection(_ context.Context, event domain.SelectionEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	return nil
}

func (m *mockSink) published() []domain.SelectionEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.SelectionEvent(nil), m.events...)
}

type mockDatasetFetcher struct {
	rows  []domain.RawRow
	err   error
	calls atomic.Int32
}

func (m *mockDatasetFetcher) FetchDataset(_ context.Context) ([]domain.RawRow, error) {
	m.calls.Add(1)
	return m.rows, m.err
}

type mockTopologyFetcher struct {
	data  []byte
	err   error
	calls atomic.Int32
}

func (m *mockTopologyFetcher) FetchTopology(_ context.Context) ([]byte, error) {
	m.calls.Add(1)
	return m.data, m.err
}

var errUnavailable = errors.New("source unavailable")

func newTestMetrics() *observability.Metrics {
	return observability.NewMetricsForTesting()
}

func testLogger() *slog.Logger {
	return slog.Default()
}

// --- fixtures ---

// worldJSON is a pair of unit squares sharing the edge x=1.
const worldJSON = `{
  "type": "Topology",
  "objects": {
    "countries": {
      "type": "GeometryCollection",
      "geometries": [
        {"type": "Polygon", "id": "A", "arcs": [[0, 1]]},
        {"type": "Polygon", "id": "B", "arcs": [[2, -1]]}
      ]
    },
    "land": {
      "type": "GeometryCollection",
      "geometries": [{"type": "MultiPolygon", "arcs": [[[2, 1]]]}]
    }
  },
  "arcs": [
    [[1, 0], [1, 1]],
    [[1, 1], [0, 1], [0, 0], [1, 0]],
    [[1, 0], [2, 0], [2, 1], [1, 1]]
  ]
}`

func testWorld() topology.World {
	w, err := topology.LoadWorld([]byte(worldJSON))
	if err != nil {
		panic(err)
	}
	return w
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func row(line int, coords, severity, date string) domain.RawRow {
	return domain.RawRow{Line: line, Fields: map[string]string{
		domain.ColumnCoordinates:  coords,
		domain.ColumnSeverity:     severity,
		domain.ColumnReportedDate: date,
		"Region of Incident":      "Mediterranean",
	}}
}

// scenarioRows are three incidents: 2020-01-05 (3), 2020-01-20 (5) and
// 2020-02-10 (2).
func scenarioRows() []domain.RawRow {
	return []domain.RawRow{
		row(2, "35.5, 14.2", "3", "2020-01-05"),
		row(3, "36.1, 15.0", "5", "2020-01-20"),
		row(4, "32.7, -117.1", "2", "2020-02-10"),
	}
}

func scenarioRecords() []domain.Incident {
	rows := scenarioRows()
	out := make([]domain.Incident, len(rows))
	for i, r := range rows {
		inc, err := domain.ParseRow(r)
		if err != nil {
			panic("fixture row " + strconv.Itoa(r.Line) + ": " + err.Error())
		}
		out[i] = inc
	}
	return out
}
