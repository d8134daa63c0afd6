package ratelimit

import "time"

// bucket is a token bucket with lazy refill: tokens accrue only when
// checked, so the engine needs no background ticker per origin.
type bucket struct {
	tokens   float64
	max      float64
	rate     float64 // tokens per second
	lastFill time.Time
}

// newBucket derives a bucket from a per-time-unit rate (e.g. "200 per
// Minute") the way governor's Quota::per_hour/per_minute/per_second do in
// the reference implementation: the bucket's capacity equals the quota and
// it refills continuously at quota/unit tokens per second.
func newBucket(ratePerUnit int, unit time.Duration, now time.Time) *bucket {
	capacity := float64(ratePerUnit)
	return &bucket{
		tokens:   capacity,
		max:      capacity,
		rate:     capacity / unit.Seconds(),
		lastFill: now,
	}
}

func (b *bucket) refill(now time.Time) {
	elapsed := now.Sub(b.lastFill).Seconds()
	if elapsed <= 0 {
		return
	}
	b.tokens = min(b.max, b.tokens+elapsed*b.rate)
	b.lastFill = now
}

// tryConsume attempts to take one token. It is non-blocking and wait-free:
// it either succeeds immediately or fails immediately, never queuing.
func (b *bucket) tryConsume(now time.Time) bool {
	b.refill(now)
	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}
