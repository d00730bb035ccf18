package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/migrant-map/internal/domain"
	"github.com/couchcryptid/migrant-map/internal/observability"
	"github.com/couchcryptid/migrant-map/internal/topology"
)

// Load sources.
const (
	SourceDataset  = "dataset"
	SourceTopology = "topology"
)

// DatasetFetcher reads the raw dataset rows.
type DatasetFetcher interface {
	FetchDataset(ctx context.Context) ([]domain.RawRow, error)
}

// TopologyFetcher reads the raw TopoJSON document.
type TopologyFetcher interface {
	FetchTopology(ctx context.Context) ([]byte, error)
}

// result is a fire-once value. done closes after the value or error is set.
type result[T any] struct {
	once  sync.Once
	done  chan struct{}
	value T
	err   error
}

func newResult[T any]() *result[T] {
	return &result[T]{done: make(chan struct{})}
}

func (r *result[T]) resolve(fn func() (T, error)) {
	r.once.Do(func() {
		defer close(r.done)
		r.value, r.err = fn()
	})
}

// Loader fetches the dataset and the topology once, concurrently, and
// populates the dashboard when both have succeeded. A failed fetch is not
// retried: the dashboard stays loading.
type Loader struct {
	datasets   DatasetFetcher
	topologies TopologyFetcher
	normalizer *Normalizer
	dashboard  *Dashboard
	logger     *slog.Logger
	metrics    *observability.Metrics

	start    sync.Once
	dataset  *result[[]domain.Incident]
	world    *result[topology.World]
	finished chan struct{}
	err      error
}

// NewLoader creates a Loader. Call Start to begin fetching.
func NewLoader(ds DatasetFetcher, ts TopologyFetcher, dashboard *Dashboard, logger *slog.Logger, metrics *observability.Metrics) *Loader {
	return &Loader{
		datasets:   ds,
		topologies: ts,
		normalizer: NewNormalizer(logger, metrics),
		dashboard:  dashboard,
		logger:     logger,
		metrics:    metrics,
		dataset:    newResult[[]domain.Incident](),
		world:      newResult[topology.World](),
		finished:   make(chan struct{}),
	}
}

// Start launches both fetches. Calls after the first are no-ops.
func (l *Loader) Start(ctx context.Context) {
	l.start.Do(func() {
		go l.dataset.resolve(func() ([]domain.Incident, error) { return l.loadDataset(ctx) })
		go l.world.resolve(func() (topology.World, error) { return l.loadTopology(ctx) })
		go l.barrier()
	})
}

// Wait blocks until both fetches have finished, returning the first error.
func (l *Loader) Wait(ctx context.Context) error {
	select {
	case <-l.finished:
		return l.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CheckReadiness returns nil once the dashboard has been populated.
func (l *Loader) CheckReadiness(ctx context.Context) error {
	return l.dashboard.CheckReadiness(ctx)
}

func (l *Loader) barrier() {
	defer close(l.finished)
	<-l.dataset.done
	<-l.world.done

	if err := errors.Join(l.dataset.err, l.world.err); err != nil {
		l.err = err
		l.logger.Error("load incomplete, views stay loading", "error", err)
		return
	}
	l.dashboard.Populate(l.dataset.value, l.world.value)
	l.metrics.LoadersReady.Set(1)
}

func (l *Loader) loadDataset(ctx context.Context) ([]domain.Incident, error) {
	start := time.Now()
	rows, err := l.datasets.FetchDataset(ctx)
	if err != nil {
		return nil, l.failed(SourceDataset, err)
	}
	records := l.normalizer.Normalize(rows)
	l.observe(SourceDataset, start, "rows", len(rows), "records", len(records))
	return records, nil
}

func (l *Loader) loadTopology(ctx context.Context) (topology.World, error) {
	start := time.Now()
	data, err := l.topologies.FetchTopology(ctx)
	if err != nil {
		return topology.World{}, l.failed(SourceTopology, err)
	}
	world, err := topology.LoadWorld(data)
	if err != nil {
		return topology.World{}, l.failed(SourceTopology, err)
	}
	l.observe(SourceTopology, start, "land_features", len(world.Land), "border_lines", len(world.Borders))
	return world, nil
}

func (l *Loader) failed(source string, err error) error {
	l.metrics.LoadFailures.WithLabelValues(source).Inc()
	l.logger.Error("load failed", "source", source, "error", err)
	return fmt.Errorf("load %s: %w", source, err)
}

func (l *Loader) observe(source string, start time.Time, attrs ...any) {
	elapsed := time.Since(start)
	l.metrics.LoadDuration.WithLabelValues(source).Observe(elapsed.Seconds())
	l.logger.Info("source loaded", append([]any{"source", source, "duration", elapsed}, attrs...)...)
}
