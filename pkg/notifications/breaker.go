package notifications

import (
	"errors"
	"sync"
	"time"
)

var ErrBreakerOpen = errors.New("send capability unavailable")

type breakerState int

const (
	stateClosed breakerState = iota
	stateOpen
	stateHalfOpen
)

// Breaker trips after too many send failures inside a sliding window and
// fails fast until the timeout elapses, then probes with one half-open try.
type Breaker struct {
	maxFailures     int
	window          time.Duration
	timeout         time.Duration
	failures        []time.Time
	lastFailureTime time.Time
	state           breakerState
	mu              sync.Mutex
}

func NewBreaker(maxFailures int, timeout, window time.Duration) *Breaker {
	return &Breaker{
		maxFailures: maxFailures,
		window:      window,
		timeout:     timeout,
		state:       stateClosed,
		failures:    make([]time.Time, 0),
	}
}

func (b *Breaker) Execute(fn func() error) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == stateOpen {
		if time.Since(b.lastFailureTime) >= b.timeout {
			b.state = stateHalfOpen
			b.failures = b.failures[:0]
		} else {
			return ErrBreakerOpen
		}
	}

	err := fn()
	if err != nil {
		now := time.Now()
		b.lastFailureTime = now
		b.failures = append(b.failures, now)
		b.dropOldFailures(now)

		if len(b.failures) > b.maxFailures || b.state == stateHalfOpen {
			b.state = stateOpen
		}
		return err
	}

	b.dropOldFailures(time.Now())
	if b.state == stateHalfOpen {
		b.state = stateClosed
		b.failures = b.failures[:0]
	}
	return nil
}

func (b *Breaker) dropOldFailures(now time.Time) {
	cutoff := now.Add(-b.window)
	kept := b.failures[:0]
	for _, t := range b.failures {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	b.failures = kept
}

// BreakerSender guards an underlying sender with a circuit breaker. While
// the breaker is open every send fails fast; the dispatcher counts those
// as ordinary per-item failures.
type BreakerSender struct {
	inner   Sender
	breaker *Breaker
}

func NewBreakerSender(inner Sender, breaker *Breaker) *BreakerSender {
	return &BreakerSender{inner: inner, breaker: breaker}
}

func (s *BreakerSender) Send(recipient, subject, body string) error {
	return s.breaker.Execute(func() error {
		return s.inner.Send(recipient, subject, body)
	})
}
