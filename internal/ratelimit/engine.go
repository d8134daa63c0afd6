// Package ratelimit implements the per-origin admission engine: a single
// long-lived actor goroutine owns one token bucket per origin and answers
// ShouldProgress/UpdateOriginSpecification messages sent over a bounded
// channel. No origin's bucket is ever touched by more than one goroutine,
// so admission checks need no locking (grounded on the reference engine's
// governor::RateLimiter-per-origin map, adapted from per-key mutex-guarded
// buckets in the teacher's internal/ratelimit/ratelimit.go to a single
// channel-owned map).
package ratelimit

import (
	"context"
	"time"

	gateman "github.com/sschakraborty/gateman-go/internal"
)

// queueCapacity is the bounded mailbox size for the engine, matching the
// reference implementation's channel capacity.
const queueCapacity = 32

type shouldProgressMsg struct {
	originID string
	reply    chan bool
}

type updateOriginMsg struct {
	originID string
	config   gateman.RateLimiterConfig
}

// Engine is the rate-limit actor. The zero value is not usable; construct
// with New.
type Engine struct {
	requests chan any
}

// New returns an Engine with no buckets configured. Call Run in its own
// goroutine before sending any messages.
func New() *Engine {
	return &Engine{requests: make(chan any, queueCapacity)}
}

// Name identifies the engine for worker.Runner's startup log line.
func (e *Engine) Name() string { return "ratelimit-engine" }

// Run is the engine's message loop. It owns the origin->bucket map
// exclusively for as long as it runs, and returns when ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	buckets := make(map[string]*bucket)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-e.requests:
			switch m := msg.(type) {
			case shouldProgressMsg:
				b, ok := buckets[m.originID]
				allowed := ok && b.tryConsume(time.Now())
				select {
				case m.reply <- allowed:
				default:
					// Responder dropped or already satisfied; drop silently.
				}
			case updateOriginMsg:
				buckets[m.originID] = newBucket(
					m.config.EffectiveRate(),
					unitDuration(m.config.EffectiveUnit()),
					time.Now(),
				)
			}
		}
	}
}

// ShouldProgress asks the engine whether a request to originID may proceed.
// An origin with no bucket yet (no UpdateOriginSpecification received)
// returns false -- unknown origins are always denied.
func (e *Engine) ShouldProgress(ctx context.Context, originID string) (bool, error) {
	reply := make(chan bool, 1)
	select {
	case e.requests <- shouldProgressMsg{originID: originID, reply: reply}:
	case <-ctx.Done():
		return false, ctx.Err()
	}
	select {
	case allowed := <-reply:
		return allowed, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// UpdateOriginSpecification upserts the bucket for originID. The first call
// for an origin creates its bucket; subsequent calls replace it wholesale.
func (e *Engine) UpdateOriginSpecification(ctx context.Context, originID string, cfg gateman.RateLimiterConfig) error {
	select {
	case e.requests <- updateOriginMsg{originID: originID, config: cfg}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// unitDuration maps a TimeUnit to its wall-clock duration.
func unitDuration(u gateman.TimeUnit) time.Duration {
	switch u {
	case gateman.Hour:
		return time.Hour
	case gateman.Second:
		return time.Second
	default:
		return time.Minute
	}
}
