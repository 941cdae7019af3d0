package viewmodel

import (
	"fmt"
	"time"
)

const (
	LabelToday     = "Today"
	LabelYesterday = "Yesterday"

	dividerLayout = "Monday, January 2, 2006"
	clockLayout   = "15:04"
)

// startOfDay truncates t to local midnight in loc
func startOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func sameDay(a, b time.Time, loc *time.Location) bool {
	return startOfDay(a, loc).Equal(startOfDay(b, loc))
}

// DateLabel returns the divider label for t as seen from now. Days are
// compared by calendar date in now's location, not by elapsed time.
func DateLabel(t, now time.Time) string {
	loc := now.Location()
	day := startOfDay(t, loc)
	today := startOfDay(now, loc)

	switch {
	case day.Equal(today):
		return LabelToday
	case day.Equal(today.AddDate(0, 0, -1)):
		return LabelYesterday
	default:
		return day.Format(dividerLayout)
	}
}

// GroupByDay flags the first message of every calendar day with a divider and
// its label. Messages without a timestamp pass through untouched. The input
// slice is not modified.
func GroupByDay(msgs []Message, now time.Time) []Message {
	out := make([]Message, len(msgs))
	copy(out, msgs)

	loc := now.Location()
	var lastDay time.Time
	for i := range out {
		m := &out[i]
		if m.CreatedAt.IsZero() {
			continue
		}
		m.ShowDateDivider = false
		m.DateLabel = ""
		if lastDay.IsZero() || !sameDay(m.CreatedAt, lastDay, loc) {
			m.ShowDateDivider = true
			m.DateLabel = DateLabel(m.CreatedAt, now)
		}
		lastDay = m.CreatedAt
	}
	return out
}

// DisplayTime formats the time-of-day shown next to a message
func DisplayTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(clockLayout)
}

// RelativeTime returns a short human readable age for conversation lists
func RelativeTime(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	diff := now.Sub(t)
	loc := now.Location()

	switch {
	case diff < time.Minute:
		return "now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm", int(diff.Minutes()))
	case sameDay(t, now, loc):
		return fmt.Sprintf("%dh", int(diff.Hours()))
	case sameDay(t, now.AddDate(0, 0, -1), loc):
		return LabelYesterday
	case t.In(loc).Year() == now.Year():
		return t.In(loc).Format("Jan 2")
	default:
		return t.In(loc).Format("Jan 2, 2006")
	}
}
