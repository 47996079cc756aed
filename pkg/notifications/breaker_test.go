package notifications

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errSend = errors.New("smtp unreachable")

func TestBreakerOpensAfterFailures(t *testing.T) {
	b := NewBreaker(2, time.Minute, time.Minute)
	fail := func() error { return errSend }

	assert.ErrorIs(t, b.Execute(fail), errSend)
	assert.ErrorIs(t, b.Execute(fail), errSend)
	assert.ErrorIs(t, b.Execute(fail), errSend)

	// Tripped: fails fast without invoking the function.
	called := false
	err := b.Execute(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrBreakerOpen)
	assert.False(t, called)
}

func TestBreakerRecoversAfterTimeout(t *testing.T) {
	b := NewBreaker(0, 10*time.Millisecond, time.Minute)

	assert.ErrorIs(t, b.Execute(func() error { return errSend }), errSend)
	assert.ErrorIs(t, b.Execute(func() error { return nil }), ErrBreakerOpen)

	time.Sleep(20 * time.Millisecond)

	// Half-open probe succeeds and closes the breaker again.
	assert.NoError(t, b.Execute(func() error { return nil }))
	assert.NoError(t, b.Execute(func() error { return nil }))
}

func TestBreakerSenderPassesThrough(t *testing.T) {
	sent := 0
	inner := senderFunc(func(recipient, subject, body string) error {
		sent++
		return nil
	})
	s := NewBreakerSender(inner, NewBreaker(3, time.Minute, time.Minute))

	assert.NoError(t, s.Send("a@b.c", "subject", "body"))
	assert.Equal(t, 1, sent)
}

type senderFunc func(recipient, subject, body string) error

func (f senderFunc) Send(recipient, subject, body string) error {
	return f(recipient, subject, body)
}
