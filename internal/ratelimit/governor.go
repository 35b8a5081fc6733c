// Package ratelimit admits or rejects requests per caller identity with token buckets that
// refill continuously.
package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"

	"campusdual-backend/internal/components/assert"
	"campusdual-backend/internal/components/chrono"
	"campusdual-backend/internal/components/telemetry"

	"golang.org/x/time/rate"
)

const (
	report_governor_reclaim = "governor.reclaim"
	report_governor_reject  = "governor.reject"
)

// GlobalKey is the bucket shared by every caller whose identity could not be resolved.
const GlobalKey = "global"

// DefaultReclaimInterval is how often idle buckets are dropped.
const DefaultReclaimInterval = time.Minute

// Quota is `Capacity` requests per `RestoreInterval`, tokens come back one at a time spread
// evenly over the interval.
type Quota struct {
	Capacity        int
	RestoreInterval time.Duration
}

func (q Quota) limit() rate.Limit {
	return rate.Limit(float64(q.Capacity) / q.RestoreInterval.Seconds())
}

type bucket struct {
	limiter *rate.Limiter
}

// Governor holds one bucket per identity key.
type Governor struct {
	name  string
	quota Quota
	time  chrono.TimeAPI
	tel   telemetry.API

	mutex   sync.Mutex
	buckets map[string]*bucket
}

func NewGovernor(name string, quota Quota, timeAPI chrono.TimeAPI, tel telemetry.API) *Governor {
	assert.NotEmptyStr(name)
	assert.NotNil(timeAPI)
	assert.NotNil(tel)
	if quota.Capacity <= 0 || quota.RestoreInterval <= 0 {
		panic("rate limit quota must have a positive capacity and restore interval")
	}

	return &Governor{
		name:    name,
		quota:   quota,
		time:    timeAPI,
		tel:     telemetry.NewScopedAPI("ratelimit_"+name, tel),
		buckets: map[string]*bucket{},
	}
}

// Admit takes one token from the bucket of key, it returns false without waiting when the
// bucket is empty.
func (g *Governor) Admit(key string) bool {
	if key == "" {
		key = GlobalKey
	}
	now := g.time.Now()

	g.mutex.Lock()
	b, ok := g.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(g.quota.limit(), g.quota.Capacity)}
		g.buckets[key] = b
	}
	allowed := b.limiter.AllowN(now, 1)
	g.mutex.Unlock()

	if !allowed {
		g.tel.ReportDebug(report_governor_reject)
	}
	return allowed
}

// RetryAfter is how long key has to wait for its next token, rounded up to the millisecond.
func (g *Governor) RetryAfter(key string) time.Duration {
	if key == "" {
		key = GlobalKey
	}
	now := g.time.Now()

	g.mutex.Lock()
	defer g.mutex.Unlock()

	b, ok := g.buckets[key]
	if !ok {
		return 0
	}
	missing := 1 - b.limiter.TokensAt(now)
	if missing <= 0 {
		return 0
	}
	seconds := missing / float64(g.quota.limit())
	return time.Duration(math.Ceil(seconds*1000)) * time.Millisecond
}

// Reclaim drops every bucket that has refilled to capacity, such a bucket behaves exactly like
// a new one. It returns the number of buckets left.
func (g *Governor) Reclaim() int {
	now := g.time.Now()
	capacity := float64(g.quota.Capacity)

	g.mutex.Lock()
	for key, b := range g.buckets {
		if b.limiter.TokensAt(now) >= capacity {
			delete(g.buckets, key)
		}
	}
	remaining := len(g.buckets)
	g.mutex.Unlock()

	g.tel.ReportCount(report_governor_reclaim, int64(remaining))
	return remaining
}

// Run reclaims idle buckets every interval until ctx is done.
func (g *Governor) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultReclaimInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			g.Reclaim()
		case <-ctx.Done():
			return
		}
	}
}

// Len is the number of live buckets.
func (g *Governor) Len() int {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	return len(g.buckets)
}
