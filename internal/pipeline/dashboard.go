package pipeline

import (
	"context"
	"errors"
	"html/template"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/migrant-map/internal/domain"
	"github.com/couchcryptid/migrant-map/internal/observability"
	"github.com/couchcryptid/migrant-map/internal/render"
	"github.com/couchcryptid/migrant-map/internal/topology"
	"github.com/paulmach/orb/geojson"
)

// ErrNotReady is returned until both the dataset and the topology are loaded.
var ErrNotReady = errors.New("dataset and topology are still loading")

// PageTitle is the title of the HTML page.
const PageTitle = "Missing Migrants"

// SelectionSink receives every selection change.
type SelectionSink interface {
	PublishSelection(ctx context.Context, event domain.SelectionEvent) error
}

// Options configures a Dashboard.
type Options struct {
	Canvas    render.Canvas
	MaxRadius float64
	CacheSize int
	// Sink is optional.
	Sink SelectionSink
}

// DefaultOptions returns the 960x500 layout.
func DefaultOptions() Options {
	return Options{
		Canvas: render.Canvas{
			Width:             render.DefaultWidth,
			Height:            render.DefaultHeight,
			HistogramFraction: render.DefaultHistogramFraction,
		},
		MaxRadius: render.DefaultMaxRadius,
		CacheSize: 64,
	}
}

type activeKey struct {
	data      uint64
	selection uint64
}

// histogram pairs a layout with whether any bucket exists.
type histogram struct {
	layout render.HistogramLayout
	ok     bool
}

// Dashboard owns the loaded data and the selection, and derives buckets,
// the active subset and the rendered views from them. Each derivation is
// recomputed only when one of its inputs changed. All methods are safe for
// concurrent use; a selection write is visible to the next read.
type Dashboard struct {
	logger  *slog.Logger
	metrics *observability.Metrics
	sink    SelectionSink

	canvas    render.Canvas
	mapView   render.MapView
	histoView render.HistogramView

	ready atomic.Bool

	mu          sync.Mutex
	records     []domain.Incident
	world       topology.World
	dataVersion uint64
	selection   domain.SelectionState

	buckets memo[uint64, []domain.Bucket]
	layout  memo[uint64, histogram]
	size    memo[uint64, render.SqrtScale]
	base    memo[uint64, string]
	active  memo[activeKey, []domain.Incident]
	bubbles *lruCache[string, string]
}

// NewDashboard creates an empty, not-ready Dashboard.
func NewDashboard(opts Options, logger *slog.Logger, metrics *observability.Metrics) *Dashboard {
	return &Dashboard{
		logger:    logger,
		metrics:   metrics,
		sink:      opts.Sink,
		canvas:    opts.Canvas,
		mapView:   render.NewMapView(opts.Canvas.Width, opts.Canvas.Height, opts.MaxRadius),
		histoView: render.NewHistogramView(opts.Canvas.Width, opts.Canvas.HistogramHeight()),
		bubbles:   newLRUCache[string, string](opts.CacheSize),
	}
}

// Populate installs the loaded dataset and world and marks the dashboard
// ready. The selection is kept.
func (d *Dashboard) Populate(records []domain.Incident, world topology.World) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.records = records
	d.world = world
	d.dataVersion++
	d.bubbles.reset()
	d.ready.Store(true)
	d.metrics.ActiveRecords.Set(float64(len(d.activeLocked())))
	d.logger.Info("dashboard populated", "records", len(records), "land_features", len(world.Land))
}

// Ready reports whether Populate has run.
func (d *Dashboard) Ready() bool {
	return d.ready.Load()
}

// CheckReadiness returns nil once the dashboard holds data.
func (d *Dashboard) CheckReadiness(_ context.Context) error {
	if !d.ready.Load() {
		return ErrNotReady
	}
	return nil
}

// Selection returns the current selection, or nil when absent.
func (d *Dashboard) Selection() *domain.Selection {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.selection.Get()
}

// SetSelection replaces the selection. A nil, empty or reversed range
// clears it. The resulting change is forwarded to the sink.
func (d *Dashboard) SetSelection(ctx context.Context, sel *domain.Selection) (domain.SelectionEvent, error) {
	if !d.ready.Load() {
		return domain.SelectionEvent{}, ErrNotReady
	}

	d.mu.Lock()
	event, changed := d.applyLocked(sel)
	d.mu.Unlock()

	if changed {
		d.publish(ctx, event)
	}
	return event, nil
}

// ClearSelection drops the selection.
func (d *Dashboard) ClearSelection(ctx context.Context) (domain.SelectionEvent, error) {
	return d.SetSelection(ctx, nil)
}

// Brush converts a pixel extent over the histogram plotting area into a
// selection and applies it.
func (d *Dashboard) Brush(ctx context.Context, x0, x1 float64) (domain.SelectionEvent, error) {
	if !d.ready.Load() {
		return domain.SelectionEvent{}, ErrNotReady
	}

	d.mu.Lock()
	var sel *domain.Selection
	if h := d.histogramLocked(); h.ok {
		sel = h.layout.Brush(x0, x1)
	}
	event, changed := d.applyLocked(sel)
	d.mu.Unlock()

	if changed {
		d.publish(ctx, event)
	}
	return event, nil
}

func (d *Dashboard) applyLocked(sel *domain.Selection) (domain.SelectionEvent, bool) {
	before := d.selection.Version()
	d.selection.Set(sel)
	active := d.activeLocked()

	event := domain.SelectionEvent{
		Selection: d.selection.Get(),
		Active:    len(active),
		Severity:  domain.TotalSeverity(active),
		ChangedAt: domain.Now(),
	}
	d.metrics.SelectionUpdates.WithLabelValues(event.Kind()).Inc()
	d.logger.Debug("selection updated", "kind", event.Kind(), "active", event.Active)
	return event, d.selection.Version() != before
}

func (d *Dashboard) publish(ctx context.Context, event domain.SelectionEvent) {
	if d.sink == nil {
		return
	}
	if err := d.sink.PublishSelection(ctx, event); err != nil {
		d.metrics.SelectionEventsFailed.Inc()
		d.logger.Warn("publish selection event failed", "error", err, "kind", event.Kind())
		return
	}
	d.metrics.SelectionEventsPublished.Inc()
}

// Buckets returns the monthly buckets of the full dataset.
func (d *Dashboard) Buckets() ([]domain.Bucket, error) {
	if !d.ready.Load() {
		return nil, ErrNotReady
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.bucketsLocked(), nil
}

// Active returns the records inside the current selection, or every record
// when there is none.
func (d *Dashboard) Active() ([]domain.Incident, error) {
	if !d.ready.Load() {
		return nil, ErrNotReady
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.activeLocked(), nil
}

func (d *Dashboard) bucketsLocked() []domain.Bucket {
	b, fresh := d.buckets.get(d.dataVersion, func() []domain.Bucket {
		return domain.Aggregate(d.records)
	})
	d.countFresh("buckets", fresh)
	return b
}

func (d *Dashboard) histogramLocked() histogram {
	h, fresh := d.layout.get(d.dataVersion, func() histogram {
		l, ok := d.histoView.Layout(d.bucketsLocked())
		return histogram{layout: l, ok: ok}
	})
	d.countFresh("layout", fresh)
	return h
}

func (d *Dashboard) activeLocked() []domain.Incident {
	key := activeKey{data: d.dataVersion, selection: d.selection.Version()}
	a, fresh := d.active.get(key, func() []domain.Incident {
		return domain.Filter(d.records, d.selection.Get())
	})
	if fresh {
		d.metrics.ActiveRecords.Set(float64(len(a)))
	}
	d.countFresh("filter", fresh)
	return a
}

func (d *Dashboard) baseLocked() string {
	b, fresh := d.base.get(d.dataVersion, func() string {
		return d.mapView.BaseLayer(d.world)
	})
	d.countFresh("base", fresh)
	return b
}

func (d *Dashboard) bubblesLocked() string {
	key := "all"
	if sel := d.selection.Get(); sel != nil {
		key = sel.Key()
	}
	if svg, ok := d.bubbles.get(key); ok {
		d.metrics.RenderCache.WithLabelValues("hit").Inc()
		return svg
	}
	d.metrics.RenderCache.WithLabelValues("miss").Inc()

	size, fresh := d.size.get(d.dataVersion, func() render.SqrtScale {
		return d.mapView.SizeScale(d.records)
	})
	d.countFresh("size", fresh)

	svg := d.mapView.BubbleLayer(d.mapView.Bubbles(d.activeLocked(), size))
	d.countFresh("bubbles", true)
	d.bubbles.put(key, svg)
	return svg
}

func (d *Dashboard) countFresh(stage string, fresh bool) {
	if fresh {
		d.metrics.Recomputations.WithLabelValues(stage).Inc()
	}
}

func (d *Dashboard) mapMarksLocked() string {
	return d.mapView.Render(d.baseLocked(), d.bubblesLocked())
}

func (d *Dashboard) histogramBodyLocked() string {
	h := d.histogramLocked()
	l := h.layout
	if !h.ok {
		iw, ih := d.histoView.InnerWidth(), d.histoView.InnerHeight()
		l = render.HistogramLayout{
			Y:           render.LinearScale{D0: 0, D1: 1, R0: ih, R1: 0},
			InnerWidth:  iw,
			InnerHeight: ih,
		}
	}
	return d.histoView.Render(l, d.selection.Get())
}

// MapSVG renders the map with the active bubbles as a standalone document.
func (d *Dashboard) MapSVG() (string, error) {
	return d.renderView("map", func() string {
		return render.Standalone(d.canvas.Width, d.canvas.Height, d.mapMarksLocked())
	})
}

// HistogramSVG renders the histogram strip as a standalone document.
func (d *Dashboard) HistogramSVG() (string, error) {
	return d.renderView("histogram", func() string {
		return render.Standalone(d.canvas.Width, d.canvas.HistogramHeight(), d.histogramBodyLocked())
	})
}

// ViewSVG renders the composed canvas: the map with the histogram docked at
// the bottom.
func (d *Dashboard) ViewSVG() (string, error) {
	return d.renderView("view", func() string {
		return d.canvas.Compose(d.mapMarksLocked(), d.histogramBodyLocked())
	})
}

func (d *Dashboard) renderView(view string, fn func() string) (string, error) {
	if !d.ready.Load() {
		return "", ErrNotReady
	}
	start := time.Now()
	d.mu.Lock()
	svg := fn()
	d.mu.Unlock()
	d.metrics.RenderDuration.WithLabelValues(view).Observe(time.Since(start).Seconds())
	return svg, nil
}

// Page renders the HTML page. Before the data is loaded it holds the
// loading placeholder.
func (d *Dashboard) Page() ([]byte, error) {
	data := render.PageData{Title: PageTitle}
	if d.ready.Load() {
		svg, err := d.ViewSVG()
		if err != nil {
			return nil, err
		}
		data.Ready = true
		data.SVG = template.HTML(svg) //nolint:gosec // built from escaped render output
		data.HistogramOffset = d.canvas.HistogramOffset()
		data.MarginLeft = d.histoView.Margin.Left
		data.MarginTop = d.histoView.Margin.Top
	}
	return render.Page(data)
}

// GeoJSON returns the active subset as a FeatureCollection of points.
func (d *Dashboard) GeoJSON() (*geojson.FeatureCollection, error) {
	active, err := d.Active()
	if err != nil {
		return nil, err
	}
	fc := geojson.NewFeatureCollection()
	for _, inc := range active {
		f := geojson.NewFeature(inc.Coordinates)
		f.Properties["severity"] = inc.Severity
		f.Properties["reported_date"] = inc.ReportedDate.Format(time.RFC3339)
		for k, v := range inc.Fields {
			if _, taken := f.Properties[k]; !taken {
				f.Properties[k] = v
			}
		}
		fc.Append(f)
	}
	return fc, nil
}
