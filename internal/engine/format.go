package engine

import (
	"fmt"
	"time"
)

// formatWait renders a waiting duration for the queue display: seconds
// below one minute, whole minutes above.
func formatWait(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	return fmt.Sprintf("%dmin", int(d.Minutes()))
}

// relativeDate renders a past timestamp the way a client reads it:
// "Hoje", "Ontem", "N dias atrás", and the absolute date beyond a week.
func relativeDate(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	ty, tm, td := t.Date()
	day := time.Date(ty, tm, td, 0, 0, 0, 0, t.Location())
	ny, nm, nd := now.Date()
	today := time.Date(ny, nm, nd, 0, 0, 0, 0, now.Location())

	days := int(today.Sub(day).Hours() / 24)
	switch {
	case days <= 0:
		return "Hoje"
	case days == 1:
		return "Ontem"
	case days <= 7:
		return fmt.Sprintf("%d dias atrás", days)
	default:
		return t.Format("02/01/2006")
	}
}

// truncateSummary shortens a message to at most max runes, appending an
// ellipsis when something was cut.
func truncateSummary(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
