package domain

import (
	"sort"
	"time"
)

// Bucket is one calendar month of the histogram, covering [Start, End).
type Bucket struct {
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	SeveritySum int       `json:"severity_sum"`
	Count       int       `json:"count"`
}

// MonthFloor returns the first instant of t's calendar month in UTC.
func MonthFloor(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// MonthCeil returns t if it is already a month boundary, otherwise the first
// instant of the following month.
func MonthCeil(t time.Time) time.Time {
	f := MonthFloor(t)
	if f.Equal(t) {
		return f
	}
	return f.AddDate(0, 1, 0)
}

// DateExtent returns the earliest and latest reported dates. ok is false for
// an empty slice.
func DateExtent(records []Incident) (lo, hi time.Time, ok bool) {
	if len(records) == 0 {
		return time.Time{}, time.Time{}, false
	}
	lo, hi = records[0].ReportedDate, records[0].ReportedDate
	for i := 1; i < len(records); i++ {
		d := records[i].ReportedDate
		if d.Before(lo) {
			lo = d
		}
		if d.After(hi) {
			hi = d
		}
	}
	return lo, hi, true
}

// NiceDomain expands the date extent of records outward to month
// boundaries. A domain that would collapse to a single instant is widened to
// one full month so that it still has a bucket.
func NiceDomain(records []Incident) (start, end time.Time, ok bool) {
	lo, hi, ok := DateExtent(records)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	start, end = MonthFloor(lo), MonthCeil(hi)
	if !end.After(start) {
		end = start.AddDate(0, 1, 0)
	}
	return start, end, true
}

// MonthThresholds returns every month boundary strictly between start and end.
func MonthThresholds(start, end time.Time) []time.Time {
	var out []time.Time
	for t := MonthFloor(start).AddDate(0, 1, 0); t.Before(end); t = t.AddDate(0, 1, 0) {
		if t.After(start) {
			out = append(out, t)
		}
	}
	return out
}

// Aggregate partitions records into the calendar months of their niced
// domain and sums Severity per month. Months with no records are present
// with a zero sum. The output is empty only when records is empty.
func Aggregate(records []Incident) []Bucket {
	start, end, ok := NiceDomain(records)
	if !ok {
		return nil
	}
	return AggregateDomain(records, start, end)
}

// AggregateDomain buckets records over an explicit [start, end] domain.
// Records outside the domain are ignored; a record equal to end is counted
// in the final bucket.
func AggregateDomain(records []Incident, start, end time.Time) []Bucket {
	if !end.After(start) {
		return nil
	}

	edges := append([]time.Time{start}, MonthThresholds(start, end)...)
	edges = append(edges, end)

	buckets := make([]Bucket, len(edges)-1)
	for i := range buckets {
		buckets[i] = Bucket{Start: edges[i], End: edges[i+1]}
	}

	last := len(buckets) - 1
	for i := range records {
		d := records[i].ReportedDate
		if d.Before(start) || d.After(end) {
			continue
		}
		idx := sort.Search(len(buckets), func(j int) bool {
			return buckets[j].End.After(d)
		})
		if idx > last {
			idx = last
		}
		buckets[idx].SeveritySum += records[i].Severity
		buckets[idx].Count++
	}
	return buckets
}

// MaxBucketSum returns the largest SeveritySum, or 0 when empty.
func MaxBucketSum(buckets []Bucket) int {
	m := 0
	for _, b := range buckets {
		if b.SeveritySum > m {
			m = b.SeveritySum
		}
	}
	return m
}
