package metering

import "time"

// NeedsDailyReset reports whether the calendar day changed between lastReset
// and now. This is a calendar-boundary check, not a 24-hour rolling window:
// a request at 23:59 and one at 00:01 land in different windows.
func NeedsDailyReset(lastReset, now time.Time) bool {
	ly, lm, ld := lastReset.Date()
	ny, nm, nd := now.Date()
	return ld != nd || lm != nm || ly != ny
}

// NeedsMonthlyReset reports whether the calendar month or year changed
// between lastReset and now, regardless of day-of-month.
func NeedsMonthlyReset(lastReset, now time.Time) bool {
	return lastReset.Month() != now.Month() || lastReset.Year() != now.Year()
}
