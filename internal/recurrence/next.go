package recurrence

import "time"

// Walking-loop bounds. Exceeding them returns the anchor unchanged: an
// inert, observable fallback that keeps malformed persisted rules from
// looping forever.
const (
	maxYearSteps  = 20
	maxMonthSteps = 240
)

// Next resolves the first occurrence of the rule at or after ref.
//
// It is pure and clock-free: the caller supplies the reference instant, all
// arithmetic stays in the anchor's location with the anchor's wall-clock
// hour and minute, and the same inputs always produce the same output. It
// never fails; every out-of-range parameter is clamped and every missing
// parameter is derived from the anchor.
//
// None is the one kind exempt from the >= ref contract: it returns the
// anchor verbatim, even for references in the far future.
func Next(anchor time.Time, r Rule, ref time.Time) time.Time {
	if r.Kind == None {
		return anchor
	}
	r = r.withDefaults(anchor)

	switch r.Kind {
	case Daily, Weekly, Monthly, Yearly:
		return nextSimple(anchor, r, ref)
	case Interval:
		return nextInterval(anchor, r, ref)
	case YearlyNthWeekday:
		return nextYearlyNthWeekday(anchor, r, ref)
	case MonthlyDayOfMonth:
		return nextMonthlyDayOfMonth(anchor, r, ref)
	case MonthlyNthWeekday:
		return nextMonthlyNthWeekday(anchor, r, ref)
	}
	return anchor
}

// Due is the display-facing composition for "mark as done" semantics: with
// no completion checkpoint the original occurrence stays due, otherwise the
// due occurrence is the first one strictly after the checkpoint.
func Due(anchor time.Time, r Rule, completedThrough *time.Time) time.Time {
	if r.Kind == None || completedThrough == nil {
		return anchor
	}
	return Next(anchor, r, completedThrough.Add(time.Millisecond))
}

// nextSimple handles the legacy single-unit kinds by stepping from the
// anchor. Weekly with an explicit weekday skips the loop entirely and jumps
// to the next matching date from the reference instead.
func nextSimple(anchor time.Time, r Rule, ref time.Time) time.Time {
	if r.Kind == Weekly && r.Weekday != nil {
		if !anchor.Before(ref) {
			return anchor
		}
		candidate := at(ref.Year(), ref.Month(), ref.Day(), anchor)
		delta := (int(*r.Weekday) - int(candidate.Weekday()) + 7) % 7
		candidate = candidate.AddDate(0, 0, delta)
		if candidate.Before(ref) {
			candidate = candidate.AddDate(0, 0, 7)
		}
		return candidate
	}

	d := anchor
	for d.Before(ref) {
		switch r.Kind {
		case Yearly:
			d = d.AddDate(1, 0, 0)
		case Monthly:
			d = d.AddDate(0, 1, 0)
		case Weekly:
			d = d.AddDate(0, 0, 7)
		default:
			d = d.AddDate(0, 0, 1)
		}
	}
	return d
}

// nextInterval resolves every-N-unit rules with a closed-form jump instead
// of stepping occurrence by occurrence, so a daily reminder anchored years
// in the past resolves in a handful of operations.
func nextInterval(anchor time.Time, r Rule, ref time.Time) time.Time {
	start := at(anchor.Year(), anchor.Month(), anchor.Day(), anchor)
	if r.Unit == UnitWeek && r.Weekday != nil {
		delta := (int(*r.Weekday) - int(start.Weekday()) + 7) % 7
		start = start.AddDate(0, 0, delta)
	}
	if !start.Before(ref) {
		return start
	}

	switch r.Unit {
	case UnitDay, UnitWeek:
		return nextIntervalDays(start, r, ref)
	case UnitMonth:
		return nextIntervalMonths(anchor, start, r, ref)
	default:
		return nextIntervalYears(anchor, start, r, ref)
	}
}

func nextIntervalDays(start time.Time, r Rule, ref time.Time) time.Time {
	stepDays := r.Interval
	if r.Unit == UnitWeek {
		stepDays *= 7
	}

	// Approximate the elapsed step count from the real duration, then
	// correct with single steps. The division can be off by one in either
	// direction when calendar days aren't exactly 24h, so correct both ways
	// to land on the smallest occurrence >= ref.
	steps := int(ref.Sub(start) / (time.Duration(stepDays) * 24 * time.Hour))
	candidate := start
	if steps > 0 {
		candidate = start.AddDate(0, 0, steps*stepDays)
	}
	for candidate.Before(ref) {
		candidate = candidate.AddDate(0, 0, stepDays)
	}
	for {
		prev := candidate.AddDate(0, 0, -stepDays)
		if prev.Before(ref) || prev.Before(start) {
			break
		}
		candidate = prev
	}
	return candidate
}

func nextIntervalMonths(anchor, start time.Time, r Rule, ref time.Time) time.Time {
	diff := monthIndex(ref) - monthIndex(start)
	if diff < 0 {
		diff = 0
	}
	candidate := monthOccurrence(anchor, (diff/r.Interval)*r.Interval)
	if candidate.Before(start) {
		candidate = start
	}
	for candidate.Before(ref) {
		monthsFromAnchor := monthIndex(candidate) - monthIndex(anchor)
		candidate = monthOccurrence(anchor, monthsFromAnchor+r.Interval)
	}
	return candidate
}

func nextIntervalYears(anchor, start time.Time, r Rule, ref time.Time) time.Time {
	diff := ref.Year() - start.Year()
	if diff < 0 {
		diff = 0
	}
	candidate := yearOccurrence(anchor, (diff/r.Interval)*r.Interval)
	if candidate.Before(start) {
		candidate = start
	}
	for candidate.Before(ref) {
		yearsFromAnchor := candidate.Year() - anchor.Year()
		candidate = yearOccurrence(anchor, yearsFromAnchor+r.Interval)
	}
	return candidate
}

// monthIndex counts whole months since year zero, for month distances.
func monthIndex(t time.Time) int {
	return t.Year()*12 + int(t.Month()) - 1
}

// monthOccurrence is the anchor's occurrence monthsToAdd whole months
// later, with the day clamped to the target month's last day (an anchor on
// the 31st lands on the 30th, or the 28th/29th in February).
func monthOccurrence(anchor time.Time, monthsToAdd int) time.Time {
	target := monthIndex(anchor) + monthsToAdd
	year, month := target/12, time.Month(target%12+1)
	day := anchor.Day()
	if last := daysInMonth(year, month); day > last {
		day = last
	}
	return at(year, month, day, anchor)
}

// yearOccurrence clamps the same way by year, so a Feb 29 anchor lands on
// Feb 28 in non-leap years.
func yearOccurrence(anchor time.Time, yearsToAdd int) time.Time {
	year := anchor.Year() + yearsToAdd
	day := anchor.Day()
	if last := daysInMonth(year, anchor.Month()); day > last {
		day = last
	}
	return at(year, anchor.Month(), day, anchor)
}

func nextYearlyNthWeekday(anchor time.Time, r Rule, ref time.Time) time.Time {
	weekday := r.weekdayOr(anchor.Weekday())
	year := anchor.Year()
	for i := 0; i < maxYearSteps; i++ {
		day := nthWeekdayOfMonth(year, r.Month, weekday, r.WeekOfMonth)
		candidate := at(year, r.Month, day, anchor)
		if !candidate.Before(ref) {
			return candidate
		}
		year++
	}
	return anchor
}

func nextMonthlyDayOfMonth(anchor time.Time, r Rule, ref time.Time) time.Time {
	year, month := anchor.Year(), anchor.Month()
	for i := 0; i < maxMonthSteps; i++ {
		day := r.DayOfMonth
		if last := daysInMonth(year, month); day > last {
			day = last
		}
		candidate := at(year, month, day, anchor)
		if !candidate.Before(ref) {
			return candidate
		}
		month++
		if month > time.December {
			month = time.January
			year++
		}
	}
	return anchor
}

func nextMonthlyNthWeekday(anchor time.Time, r Rule, ref time.Time) time.Time {
	weekday := r.weekdayOr(anchor.Weekday())
	year, month := anchor.Year(), anchor.Month()
	for i := 0; i < maxMonthSteps; i++ {
		day := nthWeekdayOfMonth(year, month, weekday, r.WeekOfMonth)
		candidate := at(year, month, day, anchor)
		if !candidate.Before(ref) {
			return candidate
		}
		month++
		if month > time.December {
			month = time.January
			year++
		}
	}
	return anchor
}
