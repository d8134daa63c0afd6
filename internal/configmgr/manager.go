// Package configmgr resolves an inbound request's QuerySpec to an
// APIDefinition and an APIDefinition's origin_id to an Origin, against the
// immutable catalogs loaded by the definitions package. Grounded on the
// reference config manager's message-passing API (GetAPIDefinitionBySpecification,
// GetOriginDefinitionByID) and on the teacher's otter-backed RouterService
// (internal/app/router.go) for the result cache.
//
// The catalogs never change after Load, so unlike the rate-limit engine the
// manager does not need a single serialized actor: each call dispatches its
// own lightweight goroutine that reads the shared catalogs and replies on a
// private channel, matching the reference manager's per-message
// tokio::spawn.
package configmgr

import (
	"context"
	"log/slog"
	"time"

	"github.com/maypok86/otter/v2"

	gateman "github.com/sschakraborty/gateman-go/internal"
	"github.com/sschakraborty/gateman-go/internal/definitions"
	"github.com/sschakraborty/gateman-go/internal/ratelimit"
)

// matchCacheTTL bounds how long a resolved QuerySpec->APIDefinition match is
// memoized. The catalog is immutable for the process lifetime, so the TTL
// exists only to bound cache memory for a long-tail of distinct paths, not
// to pick up changes.
const matchCacheTTL = 5 * time.Minute

// matchCacheSize is the maximum number of distinct QuerySpecs memoized.
const matchCacheSize = 4096

// Manager answers spec-match and origin-lookup queries against an immutable
// Store. The zero value is not usable; construct with New.
type Manager struct {
	store *definitions.Store
	cache *otter.Cache[string, matchResult]
}

type matchResult struct {
	def gateman.APIDefinition
	ok  bool
}

// New returns a Manager backed by store. store is never mutated by the
// Manager or its callers once Load has returned it.
func New(store *definitions.Store) *Manager {
	return &Manager{
		store: store,
		cache: otter.Must(&otter.Options[string, matchResult]{
			MaximumSize:      matchCacheSize,
			ExpiryCalculator: otter.ExpiryWriting[string, matchResult](matchCacheTTL),
		}),
	}
}

// GetAPIDefinitionBySpecification runs the three cascading filters against
// the API catalog and returns the last surviving entry, or ok=false if
// nothing survives. Dispatches to its own goroutine per call, per the
// reference manager's per-message task model; ctx cancellation surfaces as
// an error rather than blocking forever.
func (m *Manager) GetAPIDefinitionBySpecification(ctx context.Context, query gateman.QuerySpec) (gateman.APIDefinition, bool, error) {
	type reply struct {
		result matchResult
	}
	replies := make(chan reply, 1)

	go func() {
		key := cacheKey(query)
		if cached, found := m.cache.GetIfPresent(key); found {
			replies <- reply{result: cached}
			return
		}
		def, ok := matchAPI(m.store.APIs(), query)
		result := matchResult{def: def, ok: ok}
		m.cache.Set(key, result)
		replies <- reply{result: result}
	}()

	select {
	case r := <-replies:
		return r.result.def, r.result.ok, nil
	case <-ctx.Done():
		return gateman.APIDefinition{}, false, ctx.Err()
	}
}

// GetOriginDefinitionByID looks up an Origin by id. Dispatches to its own
// goroutine for symmetry with GetAPIDefinitionBySpecification, even though
// the underlying map lookup never blocks.
func (m *Manager) GetOriginDefinitionByID(ctx context.Context, originID string) (gateman.Origin, bool, error) {
	type reply struct {
		origin gateman.Origin
		ok     bool
	}
	replies := make(chan reply, 1)

	go func() {
		origin, ok := m.store.OriginByID(originID)
		replies <- reply{origin: origin, ok: ok}
	}()

	select {
	case r := <-replies:
		return r.origin, r.ok, nil
	case <-ctx.Done():
		return gateman.Origin{}, false, ctx.Err()
	}
}

// SeedRateLimiter pushes every Origin's rate-limiter configuration to engine
// via UpdateOriginSpecification. Intended to run once at startup, after
// Load. Each send blocks while the engine's mailbox is full. A send failure for one
// origin is logged and skipped; the rate limiter is eventually consistent,
// never a startup-fatal condition.
func (m *Manager) SeedRateLimiter(ctx context.Context, engine *ratelimit.Engine) {
	for _, origin := range m.store.Origins() {
		if err := engine.UpdateOriginSpecification(ctx, origin.OriginID, origin.Specification.RateLimiter); err != nil {
			slog.Warn("failed to seed rate limiter for origin", "origin_id", origin.OriginID, "error", err)
		}
	}
}
