package period

import "cloud.google.com/go/civil"

// Range is an inclusive calendar range. A nil bound leaves that side open;
// the zero Range is unbounded on both sides.
type Range struct {
	From *civil.Date `json:"from"`
	To   *civil.Date `json:"to"`
}

// Unbounded reports whether neither side is constrained.
func (r Range) Unbounded() bool {
	return r.From == nil && r.To == nil
}

// Contains tests a calendar date against the range. An invalid (zero) date is
// treated as absent: it only passes an unbounded range.
func (r Range) Contains(d civil.Date) bool {
	if r.Unbounded() {
		return true
	}
	if !d.IsValid() {
		return false
	}
	if r.From != nil && d.Before(*r.From) {
		return false
	}
	if r.To != nil && d.After(*r.To) {
		return false
	}
	return true
}

// InRange is Contains for optional date fields.
func InRange(d *civil.Date, r Range) bool {
	if d == nil {
		return r.Unbounded()
	}
	return r.Contains(*d)
}

// Key is a stable textual form used for cache keys and logs.
func (r Range) Key() string {
	return bound(r.From) + ".." + bound(r.To)
}

func (r Range) String() string { return r.Key() }

func bound(d *civil.Date) string {
	if d == nil {
		return "*"
	}
	return d.String()
}
