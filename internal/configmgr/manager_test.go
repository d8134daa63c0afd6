package configmgr

import (
	"context"
	"testing"

	gateman "github.com/sschakraborty/gateman-go/internal"
	"github.com/sschakraborty/gateman-go/internal/definitions"
	"github.com/sschakraborty/gateman-go/internal/ratelimit"
)

func newTestManager() *Manager {
	store := definitions.NewStore()
	store.AddAPI(widgetAPI("A1", []string{"/v1/widgets"}, []string{"GET"}, []string{"api.example.com"}))
	store.AddOrigin(gateman.Origin{
		OriginID:   "O1",
		OriginName: "widgets-origin",
		Specification: gateman.OriginSpecification{
			RateLimiter: gateman.RateLimiterConfig{TimeUnit: gateman.Minute, ReqPerTimeUnit: 200},
			Servers:     []gateman.Server{{Hostname: "127.0.0.1", Port: 19000}},
		},
	})
	return New(store)
}

func TestManager_GetAPIDefinitionBySpecification_Match(t *testing.T) {
	t.Parallel()
	m := newTestManager()

	def, ok, err := m.GetAPIDefinitionBySpecification(context.Background(), gateman.QuerySpec{
		Methods:   []string{"GET"},
		Paths:     []string{"/v1/widgets"},
		Hostnames: []string{"api.example.com"},
	})
	if err != nil {
		t.Fatalf("GetAPIDefinitionBySpecification: %v", err)
	}
	if !ok || def.APIID != "A1" {
		t.Fatalf("expected match on A1, got def=%+v ok=%v", def, ok)
	}
}

func TestManager_GetAPIDefinitionBySpecification_NoMatch(t *testing.T) {
	t.Parallel()
	m := newTestManager()

	_, ok, err := m.GetAPIDefinitionBySpecification(context.Background(), gateman.QuerySpec{
		Methods:   []string{"DELETE"},
		Paths:     []string{"/v1/widgets"},
		Hostnames: []string{"api.example.com"},
	})
	if err != nil {
		t.Fatalf("GetAPIDefinitionBySpecification: %v", err)
	}
	if ok {
		t.Fatalf("expected no match for an unregistered method")
	}
}

func TestManager_GetAPIDefinitionBySpecification_CacheIsConsistent(t *testing.T) {
	t.Parallel()
	m := newTestManager()
	query := gateman.QuerySpec{
		Methods:   []string{"GET"},
		Paths:     []string{"/v1/widgets"},
		Hostnames: []string{"api.example.com"},
	}

	first, ok1, err1 := m.GetAPIDefinitionBySpecification(context.Background(), query)
	second, ok2, err2 := m.GetAPIDefinitionBySpecification(context.Background(), query)
	if err1 != nil || err2 != nil {
		t.Fatalf("unexpected errors: %v %v", err1, err2)
	}
	if ok1 != ok2 || first.APIID != second.APIID {
		t.Fatalf("cached and uncached lookups diverged: %+v vs %+v", first, second)
	}
}

func TestManager_GetOriginDefinitionByID(t *testing.T) {
	t.Parallel()
	m := newTestManager()

	origin, ok, err := m.GetOriginDefinitionByID(context.Background(), "O1")
	if err != nil {
		t.Fatalf("GetOriginDefinitionByID: %v", err)
	}
	if !ok || origin.OriginID != "O1" {
		t.Fatalf("expected origin O1, got %+v ok=%v", origin, ok)
	}

	_, ok, err = m.GetOriginDefinitionByID(context.Background(), "unknown")
	if err != nil {
		t.Fatalf("GetOriginDefinitionByID: %v", err)
	}
	if ok {
		t.Fatalf("expected no origin for an unknown id")
	}
}

func TestManager_SeedRateLimiter(t *testing.T) {
	t.Parallel()
	m := newTestManager()
	engine := ratelimit.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go engine.Run(ctx)

	m.SeedRateLimiter(context.Background(), engine)

	ok, err := engine.ShouldProgress(context.Background(), "O1")
	if err != nil {
		t.Fatalf("ShouldProgress: %v", err)
	}
	if !ok {
		t.Fatalf("expected the seeded origin O1 to admit its first request")
	}
}
