package pipeline_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/migrant-map/internal/domain"
	"github.com/couchcryptid/migrant-map/internal/observability"
	"github.com/couchcryptid/migrant-map/internal/pipeline"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDashboard(t *testing.T, sink pipeline.SelectionSink) (*pipeline.Dashboard, *observability.Metrics) {
	t.Helper()
	metrics := newTestMetrics()
	opts := pipeline.DefaultOptions()
	opts.Sink = sink
	return pipeline.NewDashboard(opts, testLogger(), metrics), metrics
}

func populated(t *testing.T, sink pipeline.SelectionSink) (*pipeline.Dashboard, *observability.Metrics) {
	t.Helper()
	d, m := newTestDashboard(t, sink)
	d.Populate(scenarioRecords(), testWorld())
	return d, m
}

func mustSelection(t *testing.T, from, to time.Time) *domain.Selection {
	t.Helper()
	sel, err := domain.NewSelection(from, to)
	require.NoError(t, err)
	return &sel
}

func TestDashboard_NotReady(t *testing.T) {
	d, _ := newTestDashboard(t, nil)
	ctx := context.Background()

	assert.False(t, d.Ready())
	require.ErrorIs(t, d.CheckReadiness(ctx), pipeline.ErrNotReady)

	_, err := d.MapSVG()
	require.ErrorIs(t, err, pipeline.ErrNotReady)
	_, err = d.Buckets()
	require.ErrorIs(t, err, pipeline.ErrNotReady)
	_, err = d.SetSelection(ctx, nil)
	require.ErrorIs(t, err, pipeline.ErrNotReady)

	page, err := d.Page()
	require.NoError(t, err)
	assert.Contains(t, string(page), "Loading...")
}

func TestDashboard_Populate(t *testing.T) {
	d, m := populated(t, nil)

	require.NoError(t, d.CheckReadiness(context.Background()))
	assert.Nil(t, d.Selection())

	buckets, err := d.Buckets()
	require.NoError(t, err)
	require.Len(t, buckets, 2)
	assert.Equal(t, 8, buckets[0].SeveritySum)
	assert.Equal(t, 2, buckets[1].SeveritySum)

	active, err := d.Active()
	require.NoError(t, err)
	assert.Len(t, active, 3)
	assert.InDelta(t, 3, testutil.ToFloat64(m.ActiveRecords), 0)
}

func TestDashboard_SetSelectionFiltersAndPublishes(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC))
	domain.SetClock(clock)
	t.Cleanup(func() { domain.SetClock(nil) })

	sink := &mockSink{}
	d, m := populated(t, sink)

	event, err := d.SetSelection(context.Background(), mustSelection(t, day(2020, 1, 10), day(2020, 2, 28)))
	require.NoError(t, err)

	assert.Equal(t, "set", event.Kind())
	assert.Equal(t, 2, event.Active)
	assert.Equal(t, 7, event.Severity)
	assert.Equal(t, clock.Now(), event.ChangedAt)

	active, err := d.Active()
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, day(2020, 1, 20), active[0].ReportedDate)
	assert.Equal(t, day(2020, 2, 10), active[1].ReportedDate)

	require.Len(t, sink.published(), 1)
	assert.InDelta(t, 1, testutil.ToFloat64(m.SelectionEventsPublished), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.SelectionUpdates.WithLabelValues("set")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.ActiveRecords), 0)
}

func TestDashboard_ClearRestoresFullDataset(t *testing.T) {
	sink := &mockSink{}
	d, _ := populated(t, sink)
	ctx := context.Background()

	_, err := d.SetSelection(ctx, mustSelection(t, day(2020, 1, 10), day(2020, 1, 25)))
	require.NoError(t, err)
	active, _ := d.Active()
	assert.Len(t, active, 1)

	event, err := d.ClearSelection(ctx)
	require.NoError(t, err)
	assert.Equal(t, "clear", event.Kind())
	assert.Equal(t, 3, event.Active)
	active, _ = d.Active()
	assert.Len(t, active, 3)

	// A clear with nothing selected changes nothing and is not published.
	_, err = d.ClearSelection(ctx)
	require.NoError(t, err)
	assert.Len(t, sink.published(), 2)
}

func TestDashboard_RepeatedSelectionPublishesOnce(t *testing.T) {
	sink := &mockSink{}
	d, m := populated(t, sink)
	ctx := context.Background()

	for range 2 {
		event, err := d.SetSelection(ctx, mustSelection(t, day(2020, 1, 10), day(2020, 2, 28)))
		require.NoError(t, err)
		assert.Equal(t, 2, event.Active)
	}

	assert.Len(t, sink.published(), 1)
	assert.InDelta(t, 1, testutil.ToFloat64(m.SelectionEventsPublished), 0)
	// Once at Populate and once for the first set.
	assert.InDelta(t, 2, testutil.ToFloat64(m.Recomputations.WithLabelValues("filter")), 0)
}

func TestDashboard_EmptySelectionNormalizesToAbsent(t *testing.T) {
	d, _ := populated(t, nil)
	ctx := context.Background()

	_, err := d.SetSelection(ctx, mustSelection(t, day(2020, 1, 10), day(2020, 1, 25)))
	require.NoError(t, err)

	instant := &domain.Selection{From: day(2020, 1, 15), To: day(2020, 1, 15)}
	event, err := d.SetSelection(ctx, instant)
	require.NoError(t, err)
	assert.Nil(t, event.Selection)
	assert.Nil(t, d.Selection())
}

func TestDashboard_Brush(t *testing.T) {
	d, _ := populated(t, nil)
	ctx := context.Background()
	innerWidth := pipeline.DefaultOptions().Canvas.Width - 45 - 30

	event, err := d.Brush(ctx, 0, innerWidth)
	require.NoError(t, err)
	require.NotNil(t, event.Selection)
	assert.True(t, event.Selection.From.Equal(day(2020, 1, 1)), event.Selection.From)
	assert.True(t, event.Selection.To.Equal(day(2020, 3, 1)), event.Selection.To)
	assert.Equal(t, 3, event.Active)

	event, err = d.Brush(ctx, 0, innerWidth/2)
	require.NoError(t, err)
	require.NotNil(t, event.Selection)
	assert.Equal(t, 2, event.Active, "the first half of the domain ends before February 10")

	event, err = d.Brush(ctx, 200, 200)
	require.NoError(t, err)
	assert.Nil(t, event.Selection)
	assert.Equal(t, 3, event.Active)
}

func TestDashboard_SinkFailureDoesNotFailWrite(t *testing.T) {
	sink := &mockSink{err: errUnavailable}
	d, m := populated(t, sink)

	_, err := d.SetSelection(context.Background(), mustSelection(t, day(2020, 1, 10), day(2020, 1, 25)))
	require.NoError(t, err)
	assert.NotNil(t, d.Selection())
	assert.InDelta(t, 1, testutil.ToFloat64(m.SelectionEventsFailed), 0)
}

func TestDashboard_MemoizesDerivations(t *testing.T) {
	d, m := populated(t, nil)
	ctx := context.Background()
	recomputed := func(stage string) float64 {
		return testutil.ToFloat64(m.Recomputations.WithLabelValues(stage))
	}

	_, err := d.ViewSVG()
	require.NoError(t, err)
	_, err = d.ViewSVG()
	require.NoError(t, err)

	assert.InDelta(t, 1, recomputed("buckets"), 0)
	assert.InDelta(t, 1, recomputed("base"), 0)
	assert.InDelta(t, 1, recomputed("filter"), 0)
	assert.InDelta(t, 1, recomputed("bubbles"), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.RenderCache.WithLabelValues("hit")), 0)

	_, err = d.SetSelection(ctx, mustSelection(t, day(2020, 1, 10), day(2020, 1, 25)))
	require.NoError(t, err)
	_, err = d.ViewSVG()
	require.NoError(t, err)

	assert.InDelta(t, 2, recomputed("filter"), 0)
	assert.InDelta(t, 2, recomputed("bubbles"), 0)
	assert.InDelta(t, 1, recomputed("base"), 0, "the base layer depends only on the topology")
	assert.InDelta(t, 1, recomputed("buckets"), 0, "buckets depend only on the dataset")

	// Returning to the unfiltered view reuses the cached bubble layer.
	_, err = d.ClearSelection(ctx)
	require.NoError(t, err)
	_, err = d.MapSVG()
	require.NoError(t, err)
	assert.InDelta(t, 2, recomputed("bubbles"), 0)
}

func TestDashboard_Views(t *testing.T) {
	d, _ := populated(t, nil)

	mapSVG, err := d.MapSVG()
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(mapSVG, "<circle"))
	assert.Contains(t, mapSVG, `class="land"`)

	_, err = d.SetSelection(context.Background(), mustSelection(t, day(2020, 1, 10), day(2020, 1, 25)))
	require.NoError(t, err)

	view, err := d.ViewSVG()
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(view, "<circle"))
	assert.Contains(t, view, `class="histogram"`)
	assert.Contains(t, view, `class="selection"`)

	hist, err := d.HistogramSVG()
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(hist, `class="mark"`), "the histogram always shows the full dataset")

	page, err := d.Page()
	require.NoError(t, err)
	assert.Contains(t, string(page), `<div id="view"><svg`)
}

func TestDashboard_EmptyDatasetRenders(t *testing.T) {
	d, _ := newTestDashboard(t, nil)
	d.Populate(nil, testWorld())

	view, err := d.ViewSVG()
	require.NoError(t, err)
	assert.NotContains(t, view, "<circle")
	assert.NotContains(t, view, "NaN")

	event, err := d.Brush(context.Background(), 0, 100)
	require.NoError(t, err)
	assert.Nil(t, event.Selection)
}

func TestDashboard_GeoJSON(t *testing.T) {
	d, _ := populated(t, nil)
	_, err := d.SetSelection(context.Background(), mustSelection(t, day(2020, 1, 10), day(2020, 2, 28)))
	require.NoError(t, err)

	fc, err := d.GeoJSON()
	require.NoError(t, err)
	require.Len(t, fc.Features, 2)
	assert.Equal(t, 5, fc.Features[0].Properties["severity"])
	assert.Equal(t, "Mediterranean", fc.Features[0].Properties["Region of Incident"])

	data, err := json.Marshal(fc)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"coordinates":[15,36.1]`)
}
