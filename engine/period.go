package engine

import "time"

// DateRange is a named relative date-range selector.
type DateRange string

// Supported selectors. Unknown selector names are auto-corrected to
// RangeAllTime rather than rejected.
const (
	RangeAllTime    DateRange = "All Time"
	RangeLastMonth  DateRange = "Last Month"
	RangeLast6M     DateRange = "Last 6 Months"
	RangeLastYear   DateRange = "Last Year"
	RangeLast5Y     DateRange = "Last 5 Years"
	RangeLast10Y    DateRange = "Last 10 Years"
)

// DateRangeNames lists the supported selectors in display order.
func DateRangeNames() []string {
	return []string{
		string(RangeAllTime), string(RangeLastMonth), string(RangeLast6M),
		string(RangeLastYear), string(RangeLast5Y), string(RangeLast10Y),
	}
}

// Window is a half-open [Start, End) datetime interval.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls within the half-open window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Duration in months the window spans, per selector.
func (r DateRange) months() (int, bool) {
	switch r {
	case RangeLastMonth:
		return 1, true
	case RangeLast6M:
		return 6, true
	case RangeLastYear:
		return 12, true
	case RangeLast5Y:
		return 60, true
	case RangeLast10Y:
		return 120, true
	default:
		return 0, false
	}
}

// Windows is the result of resolving a selector against an anchor date.
// When AllTime is set the current/previous windows are zero and downstream
// components skip period comparison entirely.
type Windows struct {
	AllTime  bool
	Current  Window
	Previous Window
}

// ResolveWindows computes the current window ending at the anchor date and
// the identical-length window immediately preceding it. Both windows use
// calendar-aware month subtraction, so "Last Month" from March 31st starts
// on February 28th (or 29th), not 30 days earlier.
func ResolveWindows(selector DateRange, anchor time.Time) Windows {
	months, ok := selector.months()
	if !ok {
		return Windows{AllTime: true}
	}

	end := midnight(anchor)
	curStart := addMonths(end, -months)
	prevStart := addMonths(end, -2*months)

	return Windows{
		Current:  Window{Start: curStart, End: end},
		Previous: Window{Start: prevStart, End: curStart},
	}
}

// WindowStart resolves only the start of the current window, used by the
// browse filter which matches dates in [start, anchor] inclusive. The
// boolean is false for All Time (and unknown selectors).
func WindowStart(selector DateRange, anchor time.Time) (time.Time, bool) {
	months, ok := selector.months()
	if !ok {
		return time.Time{}, false
	}
	return addMonths(midnight(anchor), -months), true
}

// addMonths shifts t by the given number of months, clamping the day to
// the target month's length instead of letting the date normalize into the
// following month.
func addMonths(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	total := y*12 + int(m) - 1 + months
	ty, tm := total/12, time.Month(total%12+1)
	if total < 0 && total%12 != 0 {
		ty--
		tm = time.Month(total%12 + 13)
	}
	if last := daysIn(ty, tm); d > last {
		d = last
	}
	h, min, sec := t.Clock()
	return time.Date(ty, tm, d, h, min, sec, t.Nanosecond(), t.Location())
}

// daysIn returns the number of days in the given month.
func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// midnight truncates t to the start of its day.
func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// endOfDay returns the last representable instant of t's day.
func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}
