// Package derive holds the pure view-state derivation logic shared by the
// dashboard, sensor, and site surfaces. It has no dependencies beyond the
// standard library so it can be exercised in isolation.
package derive

import (
	"strings"
	"time"
)

// Window names a relative time range used by list views.
type Window string

const (
	WindowDay     Window = "24h"
	WindowWeek    Window = "7d"
	WindowMonth   Window = "30d"
	WindowQuarter Window = "90d"
)

// CategoryAll matches every category.
const CategoryAll = "all"

// windowDurations maps each window to a fixed duration. There is no
// calendar-aware month or day-boundary handling: "30d" is always 30*24h.
var windowDurations = map[Window]time.Duration{
	WindowDay:     24 * time.Hour,
	WindowWeek:    7 * 24 * time.Hour,
	WindowMonth:   30 * 24 * time.Hour,
	WindowQuarter: 90 * 24 * time.Hour,
}

// Duration resolves the window to its fixed duration. The second return is
// false for unknown window names.
func (w Window) Duration() (time.Duration, bool) {
	d, ok := windowDurations[w]
	return d, ok
}

// Valid reports whether the window is one of the recognised selectors.
func (w Window) Valid() bool {
	_, ok := windowDurations[w]
	return ok
}

// ParseWindow normalises a raw selector string, falling back to the given
// default when the value is empty or unknown.
func ParseWindow(raw string, fallback Window) Window {
	w := Window(strings.ToLower(strings.TrimSpace(raw)))
	if w.Valid() {
		return w
	}
	return fallback
}

// Timed is any record carrying an event timestamp.
type Timed interface {
	EventTime() time.Time
}

// Categorized is any record carrying an enumerated status/severity/risk field.
type Categorized interface {
	Category() string
}

// Record is the constraint for time-windowed, categorised collections.
type Record interface {
	Timed
	Categorized
}

// Filter returns the stable subset of records inside the window relative to
// now whose category matches the selector. The input is never mutated and the
// original relative order is preserved.
//
// Records with a zero timestamp or an empty category are excluded rather than
// treated as matching; malformed data must not panic or leak into views.
func Filter[T Record](records []T, now time.Time, window Window, category string) []T {
	dur, ok := window.Duration()
	if !ok {
		return []T{}
	}

	wantAll := strings.EqualFold(category, CategoryAll)
	out := make([]T, 0, len(records))
	for _, r := range records {
		ts := r.EventTime()
		if ts.IsZero() {
			continue
		}
		if now.Sub(ts) > dur {
			continue
		}
		cat := r.Category()
		if cat == "" {
			continue
		}
		if !wantAll && !strings.EqualFold(cat, category) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// FilterCategory applies only the category predicate, for views without a
// time dimension (e.g. the sensor list filtered by status).
func FilterCategory[T Categorized](records []T, category string) []T {
	wantAll := strings.EqualFold(category, CategoryAll)
	out := make([]T, 0, len(records))
	for _, r := range records {
		cat := r.Category()
		if cat == "" {
			continue
		}
		if !wantAll && !strings.EqualFold(cat, category) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// CountByCategory tallies records per lower-cased category, feeding the
// dashboard breakdown widgets.
func CountByCategory[T Categorized](records []T) map[string]int {
	counts := make(map[string]int)
	for _, r := range records {
		cat := strings.ToLower(r.Category())
		if cat == "" {
			continue
		}
		counts[cat]++
	}
	return counts
}
