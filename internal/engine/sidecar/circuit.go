package sidecar

import (
	"errors"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("renderer circuit open")

type circuitState int

const (
	circuitClosed circuitState = iota
	circuitOpen
	circuitHalfOpen
)

func (s circuitState) String() string {
	switch s {
	case circuitOpen:
		return "open"
	case circuitHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// Breaker stops calls to a renderer that keeps failing. After Threshold
// consecutive failures it rejects calls for Cooldown, then lets a single
// probe through; the probe's outcome closes or reopens it.
type Breaker struct {
	Threshold int
	Cooldown  time.Duration

	mu       sync.Mutex
	state    circuitState
	failures int
	openedAt time.Time
	probing  bool
	now      func() time.Time
}

func NewBreaker(threshold int, cooldown time.Duration) *Breaker {
	return &Breaker{Threshold: threshold, Cooldown: cooldown, now: time.Now}
}

func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case circuitOpen:
		if b.now().Sub(b.openedAt) < b.Cooldown {
			return ErrCircuitOpen
		}
		b.state = circuitHalfOpen
		b.probing = true
		return nil
	case circuitHalfOpen:
		if b.probing {
			return ErrCircuitOpen
		}
		b.probing = true
	}
	return nil
}

// Record feeds the outcome of an allowed call back into the breaker.
func (b *Breaker) Record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.probing = false
	if err == nil {
		b.state = circuitClosed
		b.failures = 0
		return
	}

	b.failures++
	if b.state == circuitHalfOpen || b.failures >= b.Threshold {
		b.state = circuitOpen
		b.openedAt = b.now()
	}
}

func (b *Breaker) State() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state.String()
}
