package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/couchcryptid/migrant-map/internal/domain"
	"github.com/couchcryptid/migrant-map/internal/pipeline"
	"github.com/couchcryptid/migrant-map/internal/render"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/paulmach/orb/geojson"
)

// maxSelectionBody caps PUT /api/selection bodies.
const maxSelectionBody = 1 << 12

// Dashboard is the view and selection surface served over HTTP.
type Dashboard interface {
	Page() ([]byte, error)
	ViewSVG() (string, error)
	MapSVG() (string, error)
	HistogramSVG() (string, error)
	Selection() *domain.Selection
	SetSelection(ctx context.Context, sel *domain.Selection) (domain.SelectionEvent, error)
	ClearSelection(ctx context.Context) (domain.SelectionEvent, error)
	Brush(ctx context.Context, x0, x1 float64) (domain.SelectionEvent, error)
	Buckets() ([]domain.Bucket, error)
	GeoJSON() (*geojson.FeatureCollection, error)
}

// selectionRequest is either a brush extent in histogram pixels or a date
// range.
type selectionRequest struct {
	X0   *float64   `json:"x0"`
	X1   *float64   `json:"x1"`
	From *time.Time `json:"from"`
	To   *time.Time `json:"to"`
}

type selectionResponse struct {
	Selection *domain.Selection `json:"selection"`
}

func (s *Server) handlePage(w http.ResponseWriter, _ *http.Request) {
	page, err := s.dashboard.Page()
	if err != nil {
		s.fail(w, "render page", err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page) //nolint:errcheck // client went away
}

func (s *Server) handleSVG(view func() (string, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		svg, err := view()
		if err != nil {
			s.fail(w, "render svg", err)
			return
		}
		w.Header().Set("Content-Type", "image/svg+xml")
		w.Write([]byte(svg)) //nolint:errcheck // client went away
	}
}

func (s *Server) handleGetSelection(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, selectionResponse{Selection: s.dashboard.Selection()})
}

func (s *Server) handlePutSelection(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSelectionBody)).Decode(&req); err != nil {
		sharedobs.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid selection body: " + err.Error()})
		return
	}

	var (
		event domain.SelectionEvent
		err   error
	)
	switch {
	case req.X0 != nil && req.X1 != nil:
		event, err = s.dashboard.Brush(r.Context(), *req.X0, *req.X1)
	case req.From != nil && req.To != nil:
		// Empty or reversed ranges clear the selection.
		event, err = s.dashboard.SetSelection(r.Context(), &domain.Selection{From: *req.From, To: *req.To})
	default:
		sharedobs.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "selection needs x0 and x1, or from and to"})
		return
	}
	if err != nil {
		s.fail(w, "update selection", err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, event)
}

func (s *Server) handleDeleteSelection(w http.ResponseWriter, r *http.Request) {
	event, err := s.dashboard.ClearSelection(r.Context())
	if err != nil {
		s.fail(w, "clear selection", err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, event)
}

func (s *Server) handleBuckets(w http.ResponseWriter, _ *http.Request) {
	buckets, err := s.dashboard.Buckets()
	if err != nil {
		s.fail(w, "buckets", err)
		return
	}
	if buckets == nil {
		buckets = []domain.Bucket{}
	}
	sharedobs.WriteJSON(w, http.StatusOK, buckets)
}

func (s *Server) handleGeoJSON(w http.ResponseWriter, _ *http.Request) {
	fc, err := s.dashboard.GeoJSON()
	if err != nil {
		s.fail(w, "geojson", err)
		return
	}
	data, err := fc.MarshalJSON()
	if err != nil {
		s.fail(w, "geojson", err)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.Write(data) //nolint:errcheck // client went away
}

// fail maps ErrNotReady to 503 with the loading placeholder and anything
// else to 500.
func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, pipeline.ErrNotReady) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Retry-After", "1")
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(render.LoadingPlaceholder)) //nolint:errcheck // client went away
		return
	}
	s.logger.Error("request failed", "op", op, "error", err)
	sharedobs.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}
