package recurrence

import (
	"fmt"
	"time"
)

func clampInt(n, min, max int) int {
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// weekOfMonth returns 1..5 based on the day number alone: days 1-7 are
// week 1, days 8-14 week 2, and so on.
func weekOfMonth(t time.Time) int {
	return (t.Day()-1)/7 + 1
}

// nthWeekdayOfMonth returns the day number of the nth occurrence of weekday
// in the given month. When the month has no nth occurrence (nth is clamped
// to 1..5, and a 5th occurrence often doesn't exist), it falls back to the
// last occurrence of that weekday in the month.
func nthWeekdayOfMonth(year int, month time.Month, weekday time.Weekday, nth int) int {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	offset := (int(weekday) - int(first.Weekday()) + 7) % 7
	firstOccurrence := 1 + offset
	candidate := firstOccurrence + (clampInt(nth, 1, 5)-1)*7
	lastDay := daysInMonth(year, month)
	if candidate <= lastDay {
		return candidate
	}
	weeksAvailable := (lastDay - firstOccurrence) / 7
	return firstOccurrence + weeksAvailable*7
}

// at builds a date in the anchor's location carrying the anchor's
// hour and minute, with seconds zeroed.
func at(year int, month time.Month, day int, anchor time.Time) time.Time {
	return time.Date(year, month, day, anchor.Hour(), anchor.Minute(), 0, 0, anchor.Location())
}

func ordinal(n int) string {
	if n < 0 {
		n = -n
	}
	if mod100 := n % 100; mod100 >= 11 && mod100 <= 13 {
		return fmt.Sprintf("%dth", n)
	}
	switch n % 10 {
	case 1:
		return fmt.Sprintf("%dst", n)
	case 2:
		return fmt.Sprintf("%dnd", n)
	case 3:
		return fmt.Sprintf("%drd", n)
	}
	return fmt.Sprintf("%dth", n)
}

// WeekLabel describes which week of the month a date falls in, preferring
// "Last" when the date is the final occurrence of its weekday in the month.
// Used to label nth-weekday choices ("2nd Tuesday" vs "Last Tuesday").
func WeekLabel(t time.Time) string {
	next := t.AddDate(0, 0, 7)
	if next.Month() != t.Month() || next.Year() != t.Year() {
		return "Last"
	}
	return ordinal(weekOfMonth(t))
}
