package render

import (
	"bytes"
	"fmt"
	"html/template"
)

// Canvas defaults.
const (
	DefaultWidth             = 960.0
	DefaultHeight            = 500.0
	DefaultHistogramFraction = 0.224
)

// LoadingPlaceholder is served until both the dataset and the topology are
// available.
const LoadingPlaceholder = `<pre>Loading...</pre>`

// Canvas is the composed drawing surface: the map fills it and the histogram
// is docked at the bottom.
type Canvas struct {
	Width, Height     float64
	HistogramFraction float64
}

// HistogramHeight is the outer height of the histogram strip.
func (c Canvas) HistogramHeight() float64 { return c.HistogramFraction * c.Height }

// HistogramOffset is the y offset of the histogram strip.
func (c Canvas) HistogramOffset() float64 { return c.Height - c.HistogramHeight() }

// Compose wraps the map marks and the histogram in one SVG document.
func (c Canvas) Compose(mapSVG, histogramSVG string) string {
	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%s" height="%s">%s<g class="histogram" transform="translate(0, %s)">%s</g></svg>`,
		num(c.Width), num(c.Height), mapSVG, num(c.HistogramOffset()), histogramSVG)
}

// Standalone wraps an SVG fragment as its own document.
func Standalone(width, height float64, body string) string {
	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%s" height="%s">%s</svg>`, num(width), num(height), body)
}

// PageData feeds the HTML page template.
type PageData struct {
	Title           string
	SVG             template.HTML
	HistogramOffset float64
	MarginLeft      float64
	MarginTop       float64
	Ready           bool
}

var pageTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body{margin:0;font-family:sans-serif}
.sphere{fill:#fbfbfb}
.graticules{fill:none;stroke:#ececec}
.land{fill:#f0f0f0}
.interiors{fill:none;stroke:#d9dfe0}
.marks circle{fill:#137b80;opacity:.3}
.histogram .mark{fill:#137b80}
.histogram .tick line{stroke:#c0c0bb}
.histogram .tick text{fill:#635f5d;font-size:9pt}
.histogram .axis-label{fill:#635f5d;font-size:11pt}
.histogram .selection{fill:#777;fill-opacity:.3;stroke:#fff}
</style>
</head>
<body>
{{if .Ready}}
<div id="view">{{.SVG}}</div>
<script>
(function () {
  var offsetY = {{.HistogramOffset}}, left = {{.MarginLeft}}, top = {{.MarginTop}};
  var view = document.getElementById('view'), start = null;
  function innerX(evt) {
    var svg = view.querySelector('svg'), pt = svg.createSVGPoint();
    pt.x = evt.clientX; pt.y = evt.clientY;
    var p = pt.matrixTransform(svg.getScreenCTM().inverse());
    return {x: p.x - left, y: p.y - offsetY - top};
  }
  function send(x0, x1) {
    fetch('/api/selection', {method: 'PUT', headers: {'Content-Type': 'application/json'},
      body: JSON.stringify({x0: x0, x1: x1})})
      .then(function () { return fetch('/view.svg'); })
      .then(function (r) { return r.text(); })
      .then(function (s) { view.innerHTML = s; });
  }
  view.addEventListener('mousedown', function (e) {
    var p = innerX(e);
    if (p.y >= 0) { start = p.x; e.preventDefault(); }
  });
  view.addEventListener('mousemove', function (e) {
    if (start !== null) { send(Math.min(start, innerX(e).x), Math.max(start, innerX(e).x)); }
  });
  window.addEventListener('mouseup', function (e) {
    if (start === null) { return; }
    var x = innerX(e).x, x0 = start;
    start = null;
    send(Math.min(x0, x), Math.max(x0, x));
  });
})();
</script>
{{else}}
` + LoadingPlaceholder + `
{{end}}
</body>
</html>
`))

// Page renders the HTML shell around a composed SVG.
func Page(data PageData) ([]byte, error) {
	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render page: %w", err)
	}
	return buf.Bytes(), nil
}
