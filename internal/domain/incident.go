package domain

import (
	"time"

	"github.com/paulmach/orb"
)

// Column names interpreted by ParseRow.
const (
	ColumnCoordinates  = "Location Coordinates"
	ColumnSeverity     = "Total Dead and Missing"
	ColumnReportedDate = "Reported Date"
)

// RawRow is one CSV row keyed by header name. Line is the 1-based line
// number in the source file, header included.
type RawRow struct {
	Line   int
	Fields map[string]string
}

// Incident is a normalized Missing Migrants record.
type Incident struct {
	// Coordinates is [lon, lat].
	Coordinates  orb.Point
	Severity     int
	ReportedDate time.Time

	// Fields holds every raw column, interpreted ones included.
	Fields map[string]string
}

// Lat returns the latitude of the incident.
func (i Incident) Lat() float64 { return i.Coordinates.Lat() }

// Lon returns the longitude of the incident.
func (i Incident) Lon() float64 { return i.Coordinates.Lon() }

// TotalSeverity sums Severity over records.
func TotalSeverity(records []Incident) int {
	total := 0
	for i := range records {
		total += records[i].Severity
	}
	return total
}

// MaxSeverity returns the largest Severity in records, or 0 when empty.
func MaxSeverity(records []Incident) int {
	m := 0
	for i := range records {
		if records[i].Severity > m {
			m = records[i].Severity
		}
	}
	return m
}
