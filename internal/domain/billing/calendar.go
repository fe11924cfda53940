package billing

import "time"

const day = 24 * time.Hour

// StartOfDay returns midnight of t in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// AddDays adds n calendar days (n may be negative).
func AddDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DateWithClampedDay builds a date at midnight, clamping dayOfMonth to the last
// valid day of the month. Month overflow (e.g. month 13) rolls into the next year.
func DateWithClampedDay(year int, month time.Month, dayOfMonth int, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	last := DaysInMonth(first.Year(), first.Month())
	if dayOfMonth > last {
		dayOfMonth = last
	}
	if dayOfMonth < 1 {
		dayOfMonth = 1
	}
	return time.Date(first.Year(), first.Month(), dayOfMonth, 0, 0, 0, 0, loc)
}

// AddMonths adds n months keeping the day of month, clamped to month length.
// Jan 31 + 1 month is Feb 28 (or 29), never Mar 3.
func AddMonths(t time.Time, n int) time.Time {
	return addMonthsAnchored(t, n, t.Day())
}

// addMonthsAnchored shifts t by n months and places it on anchorDay, clamped.
// Used where a period chain must keep returning to the configured day even after
// a short month clamped it.
func addMonthsAnchored(t time.Time, n int, anchorDay int) time.Time {
	y, m, _ := t.Date()
	out := DateWithClampedDay(y, m+time.Month(n), anchorDay, t.Location())
	h, mi, s := t.Clock()
	return out.Add(time.Duration(h)*time.Hour + time.Duration(mi)*time.Minute + time.Duration(s)*time.Second)
}

// DaysBetween counts whole days from the midnight of from to the midnight of to
// (inclusive-exclusive). Negative when to is before from.
func DaysBetween(from, to time.Time) int {
	fy, fm, fd := from.Date()
	ty, tm, td := to.Date()
	a := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)
	b := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a) / day)
}

// MonthsBetween returns the calendar-month distance between from and to,
// ignoring the day of month.
func MonthsBetween(from, to time.Time) int {
	fy, fm, _ := from.Date()
	ty, tm, _ := to.Date()
	return (ty-fy)*12 + int(tm-fm)
}

// floorDiv divides rounding towards negative infinity.
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
