package sidecar

import (
	"errors"
	"testing"
	"time"
)

func TestBreakerOpensAfterThreshold(t *testing.T) {
	now := time.Unix(1000, 0)
	b := NewBreaker(2, time.Minute)
	b.now = func() time.Time { return now }
	boom := errors.New("boom")

	for i := 0; i < 2; i++ {
		if err := b.Allow(); err != nil {
			t.Fatalf("call %d rejected: %v", i, err)
		}
		b.Record(boom)
	}
	if b.State() != "open" {
		t.Fatalf("expected open, got %s", b.State())
	}
	if err := b.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}

	now = now.Add(time.Minute)
	if err := b.Allow(); err != nil {
		t.Fatalf("probe rejected: %v", err)
	}
	if err := b.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("second probe should be rejected, got %v", err)
	}
	b.Record(nil)
	if b.State() != "closed" {
		t.Errorf("expected closed after successful probe, got %s", b.State())
	}
}

func TestBreakerFailedProbeReopens(t *testing.T) {
	now := time.Unix(1000, 0)
	b := NewBreaker(1, time.Second)
	b.now = func() time.Time { return now }

	b.Allow()
	b.Record(errors.New("boom"))
	now = now.Add(time.Second)
	if err := b.Allow(); err != nil {
		t.Fatalf("probe rejected: %v", err)
	}
	b.Record(errors.New("still down"))
	if b.State() != "open" {
		t.Errorf("expected open, got %s", b.State())
	}
}

func TestBreakerSuccessResetsFailures(t *testing.T) {
	b := NewBreaker(2, time.Minute)
	b.Record(errors.New("boom"))
	b.Record(nil)
	b.Record(errors.New("boom"))
	if b.State() != "closed" {
		t.Errorf("expected closed, got %s", b.State())
	}
}
