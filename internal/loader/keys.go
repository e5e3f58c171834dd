package loader

import "time"

// TimeWindow is the optional bounding-parameter part of a composite key.
// It is a value type (comparable) so it can sit inside a map key: two keys
// with different bounds never merge into the same grouped lookup.
type TimeWindow struct {
	from    time.Time
	to      time.Time
	hasFrom bool
	hasTo   bool
}

// NewTimeWindow builds a TimeWindow from optional bounds. Bounds are
// normalised to UTC with the monotonic reading stripped so that equal
// instants compare equal as map keys.
func NewTimeWindow(from, to *time.Time) TimeWindow {
	var w TimeWindow
	if from != nil {
		w.from, w.hasFrom = from.UTC().Round(0), true
	}
	if to != nil {
		w.to, w.hasTo = to.UTC().Round(0), true
	}
	return w
}

// From returns the lower bound, or nil if unbounded.
func (w TimeWindow) From() *time.Time {
	if !w.hasFrom {
		return nil
	}
	f := w.from
	return &f
}

// To returns the upper bound, or nil if unbounded.
func (w TimeWindow) To() *time.Time {
	if !w.hasTo {
		return nil
	}
	t := w.to
	return &t
}

// SeasonWindowKey requests an instance's seasons bounded by a window.
type SeasonWindowKey struct {
	InstanceID string
	Window     TimeWindow
}

// GradeWindowKey requests a user's grades bounded by a window.
type GradeWindowKey struct {
	UserID string
	Window TimeWindow
}
