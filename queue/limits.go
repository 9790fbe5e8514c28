package queue

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/xraph/tenancy/id"
)

// Limits bounds one queue or one tenant on a queue. Zero fields impose
// nothing.
type Limits struct {
	// MaxConcurrency caps jobs running at once in this process.
	MaxConcurrency int

	// Rate is the sustained number of jobs started per second.
	Rate float64

	// Burst is the token bucket size; it defaults to 1 when Rate is set.
	Burst int
}

func (l Limits) none() bool { return l.MaxConcurrency <= 0 && l.Rate <= 0 }

// Config sets the limits of a named queue.
type Config struct {
	Name string
	Limits

	// PerTenant applies to each tenant seen on the queue that has no
	// TenantConfig, so one tenant cannot occupy the queue alone.
	PerTenant Limits
}

// TenantConfig sets the limits of one tenant on one queue. It takes
// precedence over the queue's PerTenant limits.
type TenantConfig struct {
	Queue    string
	TenantID id.TenantID
	Limits
}

// gate is the runtime state behind one Limits value.
type gate struct {
	max    int
	bucket *rate.Limiter
	active int

	// derived gates come from a queue's PerTenant limits rather than a
	// TenantConfig.
	derived bool
}

func newGate(l Limits, active int) *gate {
	g := &gate{max: l.MaxConcurrency, active: active}
	if l.Rate > 0 {
		g.bucket = rate.NewLimiter(rate.Limit(l.Rate), max(l.Burst, 1))
	}
	return g
}

func (g *gate) full() bool { return g != nil && g.max > 0 && g.active >= g.max }

func (g *gate) count() int {
	if g == nil {
		return 0
	}
	return g.active
}

func (g *gate) enter() {
	if g != nil {
		g.active++
	}
}

func (g *gate) leave() {
	if g != nil && g.active > 0 {
		g.active--
	}
}

// spend takes one token from every gate's bucket, or from none of them.
func spend(now time.Time, gates ...*gate) bool {
	var taken []*rate.Reservation
	for _, g := range gates {
		if g == nil || g.bucket == nil {
			continue
		}
		r := g.bucket.ReserveN(now, 1)
		if !r.OK() || r.DelayFrom(now) > 0 {
			r.CancelAt(now)
			for _, t := range taken {
				t.CancelAt(now)
			}
			return false
		}
		taken = append(taken, r)
	}
	return true
}
