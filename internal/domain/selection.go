package domain

import (
	"errors"
	"time"
)

// ErrEmptySelection is returned for a zero-width or reversed range.
var ErrEmptySelection = errors.New("empty selection")

// Selection is a brushed date range. A valid Selection always has From < To.
type Selection struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// NewSelection validates a range. Ranges with from >= to are rejected with
// ErrEmptySelection so callers can normalize them to no selection.
func NewSelection(from, to time.Time) (Selection, error) {
	if !from.Before(to) {
		return Selection{}, ErrEmptySelection
	}
	return Selection{From: from.UTC(), To: to.UTC()}, nil
}

// Contains reports whether t lies strictly inside the range.
func (s Selection) Contains(t time.Time) bool {
	return s.From.Before(t) && t.Before(s.To)
}

// Key identifies the range for caching.
func (s Selection) Key() string {
	return s.From.Format(time.RFC3339Nano) + "/" + s.To.Format(time.RFC3339Nano)
}

// SelectionState is the single mutable selection cell. The zero value holds
// no selection. It is not safe for concurrent use; its owner serializes
// access.
type SelectionState struct {
	current *Selection
	version uint64
}

// Get returns a copy of the current selection, or nil when absent.
func (s *SelectionState) Get() *Selection {
	if s.current == nil {
		return nil
	}
	sel := *s.current
	return &sel
}

// Set replaces the selection. A nil or empty sel clears it; re-setting the
// current range is a no-op.
func (s *SelectionState) Set(sel *Selection) {
	if sel == nil || !sel.From.Before(sel.To) {
		s.Clear()
		return
	}
	if s.current != nil && s.current.From.Equal(sel.From) && s.current.To.Equal(sel.To) {
		return
	}
	v := *sel
	s.current = &v
	s.version++
}

// Clear drops the selection, restoring the unfiltered view.
func (s *SelectionState) Clear() {
	if s.current == nil {
		return
	}
	s.current = nil
	s.version++
}

// Apply sets the range [from, to], or clears the state when the range is
// empty or reversed. It returns the resulting selection.
func (s *SelectionState) Apply(from, to time.Time) *Selection {
	sel, err := NewSelection(from, to)
	if err != nil {
		s.Clear()
		return nil
	}
	s.Set(&sel)
	return s.Get()
}

// Version increments on every change and never on a no-op clear.
func (s *SelectionState) Version() uint64 {
	return s.version
}

// SelectionEvent describes a selection change for downstream consumers.
type SelectionEvent struct {
	Selection *Selection `json:"selection"`
	Active    int        `json:"active_incidents"`
	Severity  int        `json:"active_severity"`
	ChangedAt time.Time  `json:"changed_at"`
}

// Kind is "set" when a range is present, "clear" otherwise.
func (e SelectionEvent) Kind() string {
	if e.Selection == nil {
		return "clear"
	}
	return "set"
}
