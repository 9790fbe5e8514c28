// Package backoff decides how long a failed job waits before its next
// attempt, and lets a handler say that waiting would not help.
package backoff

import (
	"math"
	"math/rand/v2"
	"time"
)

// Strategy maps a retry number to a wait. Retry 1 follows the first
// failure. Implementations here keep no state between calls.
type Strategy interface {
	Delay(retry int) time.Duration
}

// Func turns a function into a Strategy.
type Func func(retry int) time.Duration

func (f Func) Delay(retry int) time.Duration { return f(retry) }

// Constant waits d before every retry.
func Constant(d time.Duration) Strategy {
	return Func(func(int) time.Duration { return d })
}

// Linear waits step times the retry number, never more than ceiling.
// A ceiling of zero leaves the growth unbounded.
func Linear(step, ceiling time.Duration) Strategy {
	return Func(func(retry int) time.Duration {
		return clamp(float64(step)*float64(max(retry, 1)), ceiling)
	})
}

// Exponential waits base, then twice that, then four times, up to ceiling.
func Exponential(base, ceiling time.Duration) Strategy {
	return Func(func(retry int) time.Duration {
		return clamp(float64(base)*math.Exp2(float64(max(retry, 1)-1)), ceiling)
	})
}

// Jitter picks a wait uniformly between zero and what s would wait. Jobs
// of one tenant that failed together then come back spread out.
func Jitter(s Strategy) Strategy {
	return Func(func(retry int) time.Duration {
		d := int64(s.Delay(retry))
		if d <= 0 {
			return 0
		}
		return time.Duration(rand.Int64N(d)) //nolint:gosec // not security sensitive
	})
}

// Default is jittered exponential growth from one second to one minute.
func Default() Strategy {
	return Jitter(Exponential(time.Second, time.Minute))
}

// clamp converts f to a Duration no larger than ceiling. Without a ceiling
// it saturates at the largest Duration rather than wrapping.
func clamp(f float64, ceiling time.Duration) time.Duration {
	if ceiling > 0 && f > float64(ceiling) {
		return ceiling
	}
	if f >= math.MaxInt64 {
		return math.MaxInt64
	}
	return time.Duration(f)
}
