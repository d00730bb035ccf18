package domain

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
)

var (
	errEmptyField      = errors.New("empty value")
	errCoordinateArity = errors.New("expected two comma-separated numbers")
	errOutOfRange      = errors.New("coordinate out of range")
	errNotCount        = errors.New("not a non-negative integer")
	errUnknownLayout   = errors.New("unrecognized date layout")
)

// dateLayouts are tried in order when parsing Reported Date.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"01/02/2006",
	"Mon, 01/02/2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"02 January 2006",
}

// RowDefect reports a row that could not be normalized.
type RowDefect struct {
	Line  int
	Field string
	Value string
	Err   error
}

func (e *RowDefect) Error() string {
	return fmt.Sprintf("line %d: %s %q: %v", e.Line, e.Field, e.Value, e.Err)
}

func (e *RowDefect) Unwrap() error { return e.Err }

// ParseRow normalizes a raw row into an Incident. The derivations run in a
// fixed order: coordinates, severity, date. The first failure is returned as
// a *RowDefect.
func ParseRow(raw RawRow) (Incident, error) {
	coordsRaw := raw.Fields[ColumnCoordinates]
	coords, err := parseCoordinates(coordsRaw)
	if err != nil {
		return Incident{}, &RowDefect{Line: raw.Line, Field: ColumnCoordinates, Value: coordsRaw, Err: err}
	}

	severityRaw := raw.Fields[ColumnSeverity]
	severity, err := parseSeverity(severityRaw)
	if err != nil {
		return Incident{}, &RowDefect{Line: raw.Line, Field: ColumnSeverity, Value: severityRaw, Err: err}
	}

	dateRaw := raw.Fields[ColumnReportedDate]
	date, err := ParseDate(dateRaw)
	if err != nil {
		return Incident{}, &RowDefect{Line: raw.Line, Field: ColumnReportedDate, Value: dateRaw, Err: err}
	}

	return Incident{
		Coordinates:  coords,
		Severity:     severity,
		ReportedDate: date,
		Fields:       raw.Fields,
	}, nil
}

// parseCoordinates splits "lat, lon" and returns it reversed as [lon, lat].
func parseCoordinates(s string) (orb.Point, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return orb.Point{}, errEmptyField
	}
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return orb.Point{}, errCoordinateArity
	}

	lat, err := parseFinite(parts[0])
	if err != nil {
		return orb.Point{}, err
	}
	lon, err := parseFinite(parts[1])
	if err != nil {
		return orb.Point{}, err
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return orb.Point{}, errOutOfRange
	}
	return orb.Point{lon, lat}, nil
}

func parseFinite(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errOutOfRange
	}
	return v, nil
}

// parseSeverity accepts integral values, including "12.0".
func parseSeverity(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errEmptyField
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return 0, errNotCount
		}
		return n, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v != math.Trunc(v) || v > math.MaxInt32 {
		return 0, errNotCount
	}
	return int(v), nil
}

// ParseDate parses a reported date in any accepted layout, in UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errEmptyField
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errUnknownLayout
}
