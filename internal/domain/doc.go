// Package domain models IOM Missing Migrants incident data and the
// derivations the map and histogram are built from.
//
// # Data Source
//
// Incidents come from the Missing Migrants Project "concise global" CSV
// export. Each row is one reported incident. Only three columns are
// interpreted; every other column is carried through untouched in
// [Incident.Fields].
//
// # Column Conventions
//
// Location Coordinates:
//
//	"<lat>, <lon>"  →  e.g. "32.4655, -114.7244"
//	The pair is declared latitude first. It is reversed on parse so that
//	[Incident.Coordinates] is an orb.Point in [lon, lat] order, which is what
//	the map projection consumes.
//
// Total Dead and Missing:
//
//	Non-negative integer count. "12" and "12.0" are accepted; empty strings,
//	fractions and negative values are row defects.
//
// Reported Date:
//
//	Calendar date. Several layouts appear across exports of the dataset
//	(see [dateLayouts]). All dates are interpreted in UTC.
//
// # Row Defects
//
// A row that fails any of the three derivations is a [RowDefect]. Defective
// rows are dropped by the loader and counted per column; they never reach
// aggregation, filtering or rendering, so no NaN radius or invalid date can
// leak into the views.
//
// # Time Buckets
//
// The histogram domain is the [min, max] reported date expanded outward to
// calendar-month boundaries. Buckets are the calendar months of that domain,
// half-open [start, end), except that a record falling exactly on the niced
// end is counted in the final bucket. See [Aggregate].
//
// # Selection
//
// A brushed date range filters with strict bounds on both sides:
// From < date < To. A zero-width or reversed range is no selection at all.
package domain
