package notifications

import (
	"sync"
	"time"
)

// markerKey identifies one delivery: a loan, a notification kind and the
// calendar day it went out.
type markerKey struct {
	LoanID uint
	Kind   Kind
	Day    string
}

// SentLedger remembers which (loan, kind) pairs were delivered today, so a
// scheduler that fires twice on the same day does not re-send the same
// notice. Markers expire at midnight: the next day's batches start clean,
// and an overdue loan keeps getting a daily notice until it is returned.
// Nothing is persisted, so a process restart forgets them.
type SentLedger struct {
	mu      sync.Mutex
	markers map[markerKey]struct{}
}

func NewSentLedger() *SentLedger {
	return &SentLedger{markers: make(map[markerKey]struct{})}
}

// MarkSent records a delivery for the given loan and kind on now's day.
func (l *SentLedger) MarkSent(loanID uint, kind Kind, now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.pruneOtherDays(now)
	l.markers[markerKey{LoanID: loanID, Kind: kind, Day: dayOf(now)}] = struct{}{}
}

// AlreadySent reports whether the pair was delivered earlier on now's day.
func (l *SentLedger) AlreadySent(loanID uint, kind Kind, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.pruneOtherDays(now)
	_, ok := l.markers[markerKey{LoanID: loanID, Kind: kind, Day: dayOf(now)}]
	return ok
}

func (l *SentLedger) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.markers)
}

func (l *SentLedger) pruneOtherDays(now time.Time) {
	day := dayOf(now)
	for k := range l.markers {
		if k.Day != day {
			delete(l.markers, k)
		}
	}
}

func dayOf(t time.Time) string {
	return t.Format("2006-01-02")
}
