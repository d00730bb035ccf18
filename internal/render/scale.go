package render

import (
	"math"
	"time"
)

// LinearScale maps [D0, D1] onto [R0, R1].
type LinearScale struct {
	D0, D1 float64
	R0, R1 float64
}

// Map returns the range value for v. A degenerate domain maps to the range
// midpoint.
func (s LinearScale) Map(v float64) float64 {
	if s.D1 == s.D0 {
		return (s.R0 + s.R1) / 2
	}
	return s.R0 + (v-s.D0)/(s.D1-s.D0)*(s.R1-s.R0)
}

// Invert is the inverse of Map.
func (s LinearScale) Invert(r float64) float64 {
	if s.R1 == s.R0 {
		return (s.D0 + s.D1) / 2
	}
	return s.D0 + (r-s.R0)/(s.R1-s.R0)*(s.D1-s.D0)
}

// Ticks returns round values inside the domain, roughly count of them,
// spaced by 1, 2 or 5 times a power of ten.
func (s LinearScale) Ticks(count int) []float64 {
	lo, hi := s.D0, s.D1
	if lo > hi {
		lo, hi = hi, lo
	}
	if count <= 0 || lo == hi {
		return []float64{lo}
	}
	step := tickStep(lo, hi, count)
	if step <= 0 || math.IsInf(step, 0) || math.IsNaN(step) {
		return nil
	}
	first := math.Ceil(lo / step)
	last := math.Floor(hi / step)
	out := make([]float64, 0, int(last-first)+1)
	for i := first; i <= last; i++ {
		if step < 1 {
			// Divide by the inverse so 3 x 0.1 prints as 0.3.
			out = append(out, i/math.Round(1/step))
			continue
		}
		out = append(out, i*step)
	}
	return out
}

var (
	e10 = math.Sqrt(50)
	e5  = math.Sqrt(10)
	e2  = math.Sqrt(2)
)

func tickStep(lo, hi float64, count int) float64 {
	raw := (hi - lo) / float64(count)
	power := math.Floor(math.Log10(raw))
	err := raw / math.Pow(10, power)
	factor := 1.0
	switch {
	case err >= e10:
		factor = 10
	case err >= e5:
		factor = 5
	case err >= e2:
		factor = 2
	}
	return factor * math.Pow(10, power)
}

// SqrtScale maps [0, Max] onto [0, RangeMax] by square root, so circle area
// is proportional to the value.
type SqrtScale struct {
	Max      float64
	RangeMax float64
}

// Map returns the radius for v. Non-positive or non-finite inputs, and a
// scale with no positive maximum, map to 0.
func (s SqrtScale) Map(v float64) float64 {
	if s.Max <= 0 || v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	r := math.Sqrt(v) / math.Sqrt(s.Max) * s.RangeMax
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return r
}

// TimeScale maps [Start, End] onto [R0, R1] linearly in time.
type TimeScale struct {
	Start, End time.Time
	R0, R1     float64
}

func (s TimeScale) span() float64 {
	return float64(s.End.Sub(s.Start))
}

// Map returns the range position of t.
func (s TimeScale) Map(t time.Time) float64 {
	if s.span() == 0 {
		return (s.R0 + s.R1) / 2
	}
	return s.R0 + float64(t.Sub(s.Start))/s.span()*(s.R1-s.R0)
}

// Invert returns the instant at range position r.
func (s TimeScale) Invert(r float64) time.Time {
	if s.R1 == s.R0 {
		return s.Start
	}
	frac := (r - s.R0) / (s.R1 - s.R0)
	return s.Start.Add(time.Duration(frac * s.span())).UTC()
}

// monthSteps are the tick intervals Ticks chooses from, in months.
var monthSteps = []int{1, 2, 3, 6, 12, 24, 60, 120}

// Ticks returns month-aligned instants inside the domain, at most about
// count of them.
func (s TimeScale) Ticks(count int) []time.Time {
	if !s.End.After(s.Start) || count <= 0 {
		return nil
	}
	months := monthsBetween(s.Start, s.End)
	step := monthSteps[len(monthSteps)-1]
	for _, m := range monthSteps {
		if months/m <= count {
			step = m
			break
		}
	}

	start := s.Start.UTC()
	t := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	if t.Before(start) {
		t = t.AddDate(0, 1, 0)
	}
	var out []time.Time
	for ; !t.After(s.End); t = t.AddDate(0, 1, 0) {
		if aligned(t, step) {
			out = append(out, t)
		}
	}
	return out
}

func monthsBetween(a, b time.Time) int {
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}

// aligned reports whether t starts a step-month period: a month index that
// is a multiple of step within the year, or a year multiple of step/12.
func aligned(t time.Time, step int) bool {
	if step < 12 {
		return (int(t.Month())-1)%step == 0
	}
	return t.Month() == time.January && t.Year()%(step/12) == 0
}
