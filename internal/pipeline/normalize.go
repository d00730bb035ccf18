package pipeline

import (
	"errors"
	"log/slog"

	"github.com/couchcryptid/migrant-map/internal/domain"
	"github.com/couchcryptid/migrant-map/internal/observability"
)

// defectLabels maps dataset columns to the row_defects_total field label.
var defectLabels = map[string]string{
	domain.ColumnCoordinates:  "coordinates",
	domain.ColumnSeverity:     "severity",
	domain.ColumnReportedDate: "date",
}

// Normalizer turns raw dataset rows into incidents, dropping defective rows.
type Normalizer struct {
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewNormalizer creates a Normalizer.
func NewNormalizer(logger *slog.Logger, metrics *observability.Metrics) *Normalizer {
	return &Normalizer{logger: logger, metrics: metrics}
}

// Normalize parses rows in source order. Rows with a defective field are
// logged, counted, and left out.
func (n *Normalizer) Normalize(rows []domain.RawRow) []domain.Incident {
	out := make([]domain.Incident, 0, len(rows))
	for _, raw := range rows {
		inc, err := domain.ParseRow(raw)
		if err != nil {
			field := "unknown"
			var defect *domain.RowDefect
			if errors.As(err, &defect) {
				if l, ok := defectLabels[defect.Field]; ok {
					field = l
				}
			}
			n.logger.Warn("dropping dataset row", "line", raw.Line, "field", field, "error", err)
			n.metrics.RowDefects.WithLabelValues(field).Inc()
			continue
		}
		out = append(out, inc)
	}
	n.metrics.RowsLoaded.Add(float64(len(out)))
	return out
}
