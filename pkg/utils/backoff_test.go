package utils

import (
	"testing"
	"time"
)

func TestConstantBackoff(t *testing.T) {
	b := NewBackoff("constant", 100*time.Millisecond, 0)
	for i := 0; i < 5; i++ {
		if got := b.NextDelay(i); got != 100*time.Millisecond {
			t.Errorf("attempt %d: expected 100ms, got %v", i, got)
		}
	}
}

func TestExponentialBackoff(t *testing.T) {
	b := NewBackoff("exponential", 100*time.Millisecond, time.Second)

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{2, 400 * time.Millisecond},
		{3, 800 * time.Millisecond},
		{4, time.Second},
		{10, time.Second},
	}
	for _, tt := range tests {
		if got := b.NextDelay(tt.attempt); got != tt.expected {
			t.Errorf("attempt %d: expected %v, got %v", tt.attempt, tt.expected, got)
		}
	}
}

func TestExponentialBackoffJitterBounds(t *testing.T) {
	b := NewBackoff("exponential_jitter", 100*time.Millisecond, time.Second)
	for i := 0; i < 50; i++ {
		got := b.NextDelay(1)
		if got < 100*time.Millisecond || got > 300*time.Millisecond {
			t.Fatalf("jittered delay %v outside [100ms, 300ms]", got)
		}
	}
}
