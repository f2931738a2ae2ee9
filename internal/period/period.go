// Package period turns the dashboard's symbolic reporting periods into
// concrete, inclusive calendar ranges and tests dates against them.
package period

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jinzhu/now"
)

var (
	ErrUnknownTag  = errors.New("unknown period tag")
	ErrInvalidDate = errors.New("invalid calendar date")
)

// Tag is a symbolic period as picked in a filter control.
type Tag string

const (
	TagToday      Tag = "today"
	TagLast7Days  Tag = "last_7_days"
	TagLast15Days Tag = "last_15_days"
	TagLast30Days Tag = "last_30_days"
	TagLast90Days Tag = "last_90_days"
	TagNext7Days  Tag = "next_7_days"
	TagNext30Days Tag = "next_30_days"
	TagThisMonth  Tag = "this_month"
	TagLastMonth  Tag = "last_month"
	TagAllTime    Tag = "all_time"
	TagCustom     Tag = "custom"
)

// LastDays builds a last_<n>_days tag.
func LastDays(n int) Tag { return Tag(fmt.Sprintf("last_%d_days", n)) }

// NextDays builds a next_<n>_days tag.
func NextDays(n int) Tag { return Tag(fmt.Sprintf("next_%d_days", n)) }

// Selection is a tag plus, for TagCustom only, caller supplied bounds. Either
// bound may be nil to leave that side open.
type Selection struct {
	Tag  Tag         `json:"tag"`
	From *civil.Date `json:"from,omitempty"`
	To   *civil.Date `json:"to,omitempty"`
}

// Resolve maps sel to an inclusive calendar range relative to ref. The day of
// ref is taken in ref's own location, so callers pass their local time.
//
// A custom selection with From after To is returned as given; it matches
// nothing.
func Resolve(sel Selection, ref time.Time) (Range, error) {
	today := civil.DateOf(ref)

	switch sel.Tag {
	case TagToday:
		return bounded(today, today), nil
	case TagThisMonth:
		return monthOf(ref), nil
	case TagLastMonth:
		return monthOf(now.With(ref).BeginningOfMonth().AddDate(0, 0, -1)), nil
	case TagAllTime:
		return Range{}, nil
	case TagCustom:
		return Range{From: copyDate(sel.From), To: copyDate(sel.To)}, nil
	}

	if n, ok := dayCount(sel.Tag, "last_"); ok {
		return bounded(today.AddDays(-(n - 1)), today), nil
	}
	if n, ok := dayCount(sel.Tag, "next_"); ok {
		return bounded(today, today.AddDays(n-1)), nil
	}
	return Range{}, fmt.Errorf("%w: %q", ErrUnknownTag, sel.Tag)
}

// ParseTag validates a tag received from a query string.
func ParseTag(s string) (Tag, error) {
	t := Tag(strings.ToLower(strings.TrimSpace(s)))
	switch t {
	case TagToday, TagThisMonth, TagLastMonth, TagAllTime, TagCustom:
		return t, nil
	}
	if _, ok := dayCount(t, "last_"); ok {
		return t, nil
	}
	if _, ok := dayCount(t, "next_"); ok {
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTag, s)
}

// ParseDate parses YYYY-MM-DD. An empty string yields nil.
func ParseDate(s string) (*civil.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	d, err := civil.ParseDate(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return &d, nil
}

// ParseSelection builds a Selection from raw filter values. Bounds are only
// honoured for the custom tag. An empty tag falls back to def.
func ParseSelection(tag, from, to string, def Tag) (Selection, error) {
	if strings.TrimSpace(tag) == "" {
		tag = string(def)
	}
	t, err := ParseTag(tag)
	if err != nil {
		return Selection{}, err
	}
	sel := Selection{Tag: t}
	if t != TagCustom {
		return sel, nil
	}
	if sel.From, err = ParseDate(from); err != nil {
		return Selection{}, err
	}
	if sel.To, err = ParseDate(to); err != nil {
		return Selection{}, err
	}
	return sel, nil
}

func dayCount(t Tag, prefix string) (int, bool) {
	rest, ok := strings.CutPrefix(string(t), prefix)
	if !ok {
		return 0, false
	}
	rest, ok = strings.CutSuffix(rest, "_days")
	if !ok {
		return 0, false
	}
	// Digits only: Atoi alone would accept "+7".
	if rest == "" || rest[0] < '0' || rest[0] > '9' {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

func monthOf(t time.Time) Range {
	n := now.With(t)
	return bounded(civil.DateOf(n.BeginningOfMonth()), civil.DateOf(n.EndOfMonth()))
}

func bounded(from, to civil.Date) Range {
	return Range{From: &from, To: &to}
}

func copyDate(d *civil.Date) *civil.Date {
	if d == nil {
		return nil
	}
	c := *d
	return &c
}
