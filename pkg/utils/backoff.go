package utils

import (
	"math"
	"time"
)

// BackoffStrategy represents a retry backoff strategy
type BackoffStrategy interface {
	// NextDelay returns the delay for the given attempt number (0-indexed)
	NextDelay(attempt int) time.Duration
}

// ConstantBackoff waits the same delay before every attempt.
type ConstantBackoff struct {
	Delay time.Duration
}

// NextDelay returns the constant delay
func (cb *ConstantBackoff) NextDelay(int) time.Duration {
	return cb.Delay
}

// ExponentialBackoff doubles (by Multiplier) the delay per attempt up to MaxDelay.
type ExponentialBackoff struct {
	BaseDelay  time.Duration
	Multiplier float64
	MaxDelay   time.Duration
	Jitter     bool
}

// NextDelay returns the exponentially increasing delay
func (eb *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	mult := eb.Multiplier
	if mult <= 0 {
		mult = 2
	}
	delay := float64(eb.BaseDelay) * math.Pow(mult, float64(attempt))
	if eb.MaxDelay > 0 && delay > float64(eb.MaxDelay) {
		delay = float64(eb.MaxDelay)
	}
	if eb.Jitter {
		// between 0.5*delay and 1.5*delay
		delay *= 0.5 + Float64()
	}
	return time.Duration(delay)
}

// NewBackoff builds a strategy by name. Unknown names fall back to exponential without jitter.
func NewBackoff(kind string, base, max time.Duration) BackoffStrategy {
	if max == 0 {
		max = 30 * time.Second
	}
	switch kind {
	case "constant":
		return &ConstantBackoff{Delay: base}
	case "exponential_jitter":
		return &ExponentialBackoff{BaseDelay: base, Multiplier: 2, MaxDelay: max, Jitter: true}
	default:
		return &ExponentialBackoff{BaseDelay: base, Multiplier: 2, MaxDelay: max}
	}
}
