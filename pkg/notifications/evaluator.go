package notifications

import (
	"math"
	"time"
)

// Kind classifies a loan at evaluation time.
type Kind string

const (
	KindNone       Kind = "none"
	KindReminder30 Kind = "reminder_30"
	KindReminder5  Kind = "reminder_5"
	KindOverdue    Kind = "overdue"
)

// Reminder thresholds, in whole days before the due date.
const (
	Threshold30 = 30
	Threshold5  = 5
)

// DaysRemaining returns the whole-day distance from now to the due date,
// floored: 12 hours before due is day -1, not day 0.
func DaysRemaining(dueDate, now time.Time) int {
	return int(math.Floor(dueDate.Sub(now).Hours() / 24))
}

// IsOverdue reports whether the due date has passed by at least a full
// floored day boundary. Derived from dates only, independent of the
// persisted loan status.
func IsOverdue(dueDate, now time.Time) bool {
	return DaysRemaining(dueDate, now) < 0
}

// Classify maps a due date to the notification it calls for right now.
// Reminders match on strict day equality: a loan evaluated at 29 or 31
// days out never matches the J-30 reminder. That keeps the triggers
// timer-driven rather than state-driven; if no evaluation lands on the
// exact day, the reminder is skipped for good.
func Classify(dueDate, now time.Time) Kind {
	days := DaysRemaining(dueDate, now)
	switch {
	case days < 0:
		return KindOverdue
	case days == Threshold30:
		return KindReminder30
	case days == Threshold5:
		return KindReminder5
	default:
		return KindNone
	}
}
