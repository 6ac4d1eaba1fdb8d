package deploy

import (
	"math"
	"time"
)

// BackoffPolicy decides how long to wait before the next attempt.
// attempt is the zero-based index of the attempt that just failed.
type BackoffPolicy interface {
	Delay(attempt int) time.Duration
}

// FixedBackoff waits the same interval between every retry. This is the
// default policy; serving platforms typically need minutes to release a
// failed endpoint's name reservation, so the production default is 5m.
type FixedBackoff struct {
	Interval time.Duration
}

// Delay implements BackoffPolicy.
func (b FixedBackoff) Delay(int) time.Duration {
	return b.Interval
}

// ExponentialBackoff doubles (by Factor) the wait after each failure,
// capped at Max.
type ExponentialBackoff struct {
	Initial time.Duration
	Factor  float64
	Max     time.Duration
}

// Delay implements BackoffPolicy.
func (b ExponentialBackoff) Delay(attempt int) time.Duration {
	factor := b.Factor
	if factor <= 1 {
		factor = 2
	}
	d := time.Duration(float64(b.Initial) * math.Pow(factor, float64(attempt)))
	if b.Max > 0 && d > b.Max {
		return b.Max
	}
	return d
}
