package model

import (
	"time"

	"github.com/camda/countdown/internal/recurrence"
)

// LocalTimeLayout is the wall-clock format events are entered and stored
// in ("2024-03-15T09:00"). Anchors deliberately carry no zone: recurrence
// arithmetic happens in the same local calendar the anchor was typed in,
// never through UTC.
const LocalTimeLayout = "2006-01-02T15:04"

// ParseLocalTime parses a wall-clock string in the server's local zone.
func ParseLocalTime(s string) (time.Time, error) {
	return time.ParseInLocation(LocalTimeLayout, s, time.Local)
}

// FormatLocalTime renders a time as a wall-clock string, dropping seconds.
func FormatLocalTime(t time.Time) string {
	return t.Format(LocalTimeLayout)
}

// Event is a countdown event: an anchor date-time plus an optional
// recurrence rule. Rule parameter fields are pointers because "unset"
// means "derive from the anchor", which is not the same as zero
// (weekday 0 is Sunday).
type Event struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Location  string `json:"location,omitempty"`
	Anchor    string `json:"anchor"` // LocalTimeLayout
	Color     string `json:"color"`
	TextColor string `json:"text_color"`

	Recurrence    string `json:"recurrence"`
	IntervalCount int    `json:"interval_count,omitempty"`
	IntervalUnit  string `json:"interval_unit,omitempty"`
	DayOfMonth    *int   `json:"day_of_month,omitempty"` // 1-31
	Month         *int   `json:"month,omitempty"`        // 0=Jan .. 11=Dec
	WeekOfMonth   *int   `json:"week_of_month,omitempty"`
	Weekday       *int   `json:"weekday,omitempty"` // 0=Sun .. 6=Sat

	CompletedThrough *string `json:"completed_through,omitempty"` // LocalTimeLayout

	Notify              bool `json:"notify"`
	NotifyMinutesBefore int  `json:"notify_minutes_before"`
	Pinned              bool `json:"pinned"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AnchorTime parses the event's anchor. A zero time is returned for rows
// with an unparseable anchor; callers treat those as already-elapsed.
func (e *Event) AnchorTime() time.Time {
	t, err := ParseLocalTime(e.Anchor)
	if err != nil {
		return time.Time{}
	}
	return t
}

// CompletedThroughTime parses the completion checkpoint, if any.
func (e *Event) CompletedThroughTime() *time.Time {
	if e.CompletedThrough == nil {
		return nil
	}
	t, err := ParseLocalTime(*e.CompletedThrough)
	if err != nil {
		return nil
	}
	return &t
}

// Rule converts the persisted rule columns into a recurrence.Rule. The
// stored month uses the original 0-11 numbering; weekday 0-6 matches
// time.Weekday directly.
func (e *Event) Rule() recurrence.Rule {
	r := recurrence.Rule{
		Kind:     recurrence.KindFromName(e.Recurrence),
		Interval: e.IntervalCount,
		Unit:     recurrence.UnitFromName(e.IntervalUnit),
	}
	if e.DayOfMonth != nil {
		r.DayOfMonth = *e.DayOfMonth
	}
	if e.Month != nil {
		r.Month = time.Month(*e.Month + 1)
	}
	if e.WeekOfMonth != nil {
		r.WeekOfMonth = *e.WeekOfMonth
	}
	if e.Weekday != nil {
		wd := time.Weekday(*e.Weekday)
		r.Weekday = &wd
	}
	return r
}

// NextOccurrence resolves the event's next occurrence at or after ref.
func (e *Event) NextOccurrence(ref time.Time) time.Time {
	return recurrence.Next(e.AnchorTime(), e.Rule(), ref)
}

// DueOccurrence is the occurrence a countdown display should show: the
// anchor until the user marks the event done, then the first occurrence
// strictly after the completion checkpoint.
func (e *Event) DueOccurrence() time.Time {
	return recurrence.Due(e.AnchorTime(), e.Rule(), e.CompletedThroughTime())
}
