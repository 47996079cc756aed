package notifications

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSentLedgerSuppressesDuplicates(t *testing.T) {
	ledger := NewSentLedger()
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	assert.False(t, ledger.AlreadySent(1, KindReminder30, now))

	ledger.MarkSent(1, KindReminder30, now)
	assert.True(t, ledger.AlreadySent(1, KindReminder30, now))
	// Later the same day the marker still holds.
	assert.True(t, ledger.AlreadySent(1, KindReminder30, now.Add(13*time.Hour)))

	// Same loan, different kind: independent markers.
	assert.False(t, ledger.AlreadySent(1, KindReminder5, now))
	// Different loan, same kind.
	assert.False(t, ledger.AlreadySent(2, KindReminder30, now))
}

func TestSentLedgerResetsAtMidnight(t *testing.T) {
	ledger := NewSentLedger()

	evening := time.Date(2025, 3, 10, 23, 0, 0, 0, time.UTC)
	ledger.MarkSent(7, KindOverdue, evening)
	assert.True(t, ledger.AlreadySent(7, KindOverdue, evening))
	assert.Equal(t, 1, ledger.Size())

	// Two hours later, but a new calendar day: the marker is gone.
	nextMorning := time.Date(2025, 3, 11, 1, 0, 0, 0, time.UTC)
	assert.False(t, ledger.AlreadySent(7, KindOverdue, nextMorning))
	assert.Equal(t, 0, ledger.Size())
}
