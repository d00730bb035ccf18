package render

import (
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/migrant-map/internal/domain"
)

const (
	xAxisLabel       = "Time"
	yAxisLabel       = "Total Dead and Missing"
	xAxisTickFormat  = "01/02/2006"
	xAxisLabelOffset = 54
	yAxisLabelOffset = 30
	tickOffset       = 5
	tickCount        = 10
)

// Margin is the space around the plotting area.
type Margin struct {
	Top, Right, Bottom, Left float64
}

// DefaultMargin leaves room for the left axis labels and the bottom ticks.
var DefaultMargin = Margin{Top: 0, Right: 30, Bottom: 20, Left: 45}

// HistogramView draws monthly buckets as bars with a brushable time axis.
type HistogramView struct {
	Width, Height float64
	Margin        Margin
}

// NewHistogramView returns a view of the given outer size with DefaultMargin.
func NewHistogramView(width, height float64) HistogramView {
	return HistogramView{Width: width, Height: height, Margin: DefaultMargin}
}

// InnerWidth is the width of the plotting area.
func (v HistogramView) InnerWidth() float64 { return v.Width - v.Margin.Left - v.Margin.Right }

// InnerHeight is the height of the plotting area.
func (v HistogramView) InnerHeight() float64 { return v.Height - v.Margin.Top - v.Margin.Bottom }

// Bar is a positioned bucket in plotting-area coordinates.
type Bar struct {
	X, Y, Width, Height float64
	Bucket              domain.Bucket
}

// HistogramLayout holds the scales and bars for one set of buckets.
type HistogramLayout struct {
	X           TimeScale
	Y           LinearScale
	Bars        []Bar
	InnerWidth  float64
	InnerHeight float64
}

// Layout computes scales and bars. X spans the niced domain covered by
// buckets; Y spans [0, max bucket sum]. ok is false when there are no
// buckets.
func (v HistogramView) Layout(buckets []domain.Bucket) (HistogramLayout, bool) {
	if len(buckets) == 0 {
		return HistogramLayout{}, false
	}
	iw, ih := v.InnerWidth(), v.InnerHeight()

	maxSum := float64(domain.MaxBucketSum(buckets))
	if maxSum == 0 {
		// An all-zero histogram keeps flat bars instead of mid-height ones.
		maxSum = 1
	}

	l := HistogramLayout{
		X:           TimeScale{Start: buckets[0].Start, End: buckets[len(buckets)-1].End, R0: 0, R1: iw},
		Y:           LinearScale{D0: 0, D1: maxSum, R0: ih, R1: 0},
		Bars:        make([]Bar, len(buckets)),
		InnerWidth:  iw,
		InnerHeight: ih,
	}
	for i, b := range buckets {
		x0, x1 := l.X.Map(b.Start), l.X.Map(b.End)
		y := l.Y.Map(float64(b.SeveritySum))
		l.Bars[i] = Bar{X: x0, Y: y, Width: x1 - x0, Height: ih - y, Bucket: b}
	}
	return l, true
}

// Brush converts a horizontal brush extent in plotting-area pixels into a
// selection. The extent is clamped to the plotting area. Zero-width and
// reversed extents yield nil, meaning no selection.
func (l HistogramLayout) Brush(x0, x1 float64) *domain.Selection {
	x0, x1 = clamp(x0, 0, l.InnerWidth), clamp(x1, 0, l.InnerWidth)
	if !(x0 < x1) {
		return nil
	}
	sel, err := domain.NewSelection(l.X.Invert(x0), l.X.Invert(x1))
	if err != nil {
		return nil
	}
	return &sel
}

// Extent is the inverse of Brush: the pixel extent a selection covers.
func (l HistogramLayout) Extent(sel domain.Selection) (x0, x1 float64) {
	return clamp(l.X.Map(sel.From), 0, l.InnerWidth), clamp(l.X.Map(sel.To), 0, l.InnerWidth)
}

func clamp(v, lo, hi float64) float64 {
	if v != v || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Render draws the background, axes, bars and the selection echo.
func (v HistogramView) Render(l HistogramLayout, sel *domain.Selection) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<rect width="%s" height="%s" fill="white"/>`, num(v.Width), num(v.Height))
	fmt.Fprintf(&b, `<g transform="translate(%s,%s)">`, num(v.Margin.Left), num(v.Margin.Top))

	ih, iw := l.InnerHeight, l.InnerWidth
	for _, t := range l.X.Ticks(tickCount) {
		fmt.Fprintf(&b, `<g class="tick" transform="translate(%s,0)"><line y2="%s"/>`+
			`<text style="text-anchor: middle" dy=".71em" y="%s">%s</text></g>`,
			num(l.X.Map(t)), num(ih), num(ih+tickOffset), t.Format(xAxisTickFormat))
	}
	fmt.Fprintf(&b, `<text class="axis-label" text-anchor="middle" transform="translate(%d,%s) rotate(-90)">%s</text>`,
		-yAxisLabelOffset, num(ih/2), html.EscapeString(yAxisLabel))

	for _, t := range l.Y.Ticks(tickCount) {
		fmt.Fprintf(&b, `<g class="tick" transform="translate(0,%s)"><line x2="%s"/>`+
			`<text style="text-anchor: end" x="%d" dy=".32em">%s</text></g>`,
			num(l.Y.Map(t)), num(iw), -tickOffset, strconv.FormatFloat(t, 'f', -1, 64))
	}
	fmt.Fprintf(&b, `<text class="axis-label" x="%s" y="%s" text-anchor="middle">%s</text>`,
		num(iw/2), num(ih+xAxisLabelOffset), xAxisLabel)

	for _, bar := range l.Bars {
		fmt.Fprintf(&b, `<rect class="mark" x="%s" y="%s" width="%s" height="%s"><title>%d</title></rect>`,
			num(bar.X), num(bar.Y), num(bar.Width), num(bar.Height), bar.Bucket.SeveritySum)
	}

	if sel != nil {
		x0, x1 := l.Extent(*sel)
		fmt.Fprintf(&b, `<rect class="selection" x="%s" y="0" width="%s" height="%s" data-from="%s" data-to="%s"/>`,
			num(x0), num(x1-x0), num(ih), sel.From.Format(time.RFC3339), sel.To.Format(time.RFC3339))
	}
	fmt.Fprintf(&b, `<rect class="overlay" width="%s" height="%s" fill="none" pointer-events="all"/>`, num(iw), num(ih))

	b.WriteString(`</g>`)
	return b.String()
}
