// Package dispatch wires the per-request classify -> resolve origin ->
// rate-limit -> forward pipeline into a single http.Handler, grounded on
// the reference router's process_request_to_origin/route_proxy_server and
// on the teacher's chi-routed server for middleware composition
// (internal/server/server.go, middleware.go).
package dispatch

import (
	"log/slog"
	"net/http"

	gateman "github.com/sschakraborty/gateman-go/internal"
	"github.com/sschakraborty/gateman-go/internal/configmgr"
	"github.com/sschakraborty/gateman-go/internal/forwarder"
	"github.com/sschakraborty/gateman-go/internal/ratelimit"
	"github.com/sschakraborty/gateman-go/internal/respond"
	"github.com/sschakraborty/gateman-go/internal/telemetry"
)

// Handler is the proxy server's single entry point: every inbound request
// to the plaintext or TLS acceptor passes through ServeHTTP.
type Handler struct {
	manager   *configmgr.Manager
	engine    *ratelimit.Engine
	forwarder *forwarder.Forwarder
	metrics   *telemetry.Metrics
}

// New returns a Handler wired to the given config manager, rate-limit
// engine, and forwarder. metrics may be nil, in which case the domain
// counters (rate-limit rejections, forwarder outcomes) are not recorded.
func New(manager *configmgr.Manager, engine *ratelimit.Engine, fwd *forwarder.Forwarder, metrics *telemetry.Metrics) *Handler {
	return &Handler{manager: manager, engine: engine, forwarder: fwd, metrics: metrics}
}

// ServeHTTP implements §4.D of the request pipeline: build the query spec,
// resolve an APIDefinition, resolve its Origin, check the rate limiter,
// then forward. Every channel/context failure along the way surfaces as a
// 500; there is no retry at any step.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	host := r.Host
	if host == "" {
		respond.InternalError(w)
		return
	}

	query := gateman.QuerySpec{
		Methods:   []string{r.Method},
		Paths:     []string{r.URL.Path},
		Hostnames: []string{host},
	}

	api, ok, err := h.manager.GetAPIDefinitionBySpecification(ctx, query)
	if err != nil {
		slog.LogAttrs(ctx, slog.LevelWarn, "config manager lookup failed",
			slog.String("request_id", gateman.RequestIDFromContext(ctx)),
			slog.Any("error", err))
		respond.InternalError(w)
		return
	}
	if !ok {
		respond.NotFound(w)
		return
	}

	origin, ok, err := h.manager.GetOriginDefinitionByID(ctx, api.OriginID)
	if err != nil {
		slog.LogAttrs(ctx, slog.LevelWarn, "origin lookup failed",
			slog.String("request_id", gateman.RequestIDFromContext(ctx)),
			slog.Any("error", err))
		respond.InternalError(w)
		return
	}
	if !ok {
		respond.ServiceUnavailable(w)
		return
	}

	admitted, err := h.engine.ShouldProgress(ctx, origin.OriginID)
	if err != nil {
		slog.LogAttrs(ctx, slog.LevelWarn, "rate limit check failed",
			slog.String("request_id", gateman.RequestIDFromContext(ctx)),
			slog.Any("error", err))
		respond.InternalError(w)
		return
	}
	if !admitted {
		if h.metrics != nil {
			h.metrics.RateLimitRejects.WithLabelValues(origin.OriginID).Inc()
		}
		respond.TooManyRequests(w)
		return
	}

	outcome, resp := h.forwarder.Forward(ctx, origin, api.BackendResponseTimeout, r)
	if outcome != forwarder.OutcomeSuccess && h.metrics != nil {
		h.metrics.ForwarderErrors.WithLabelValues(origin.OriginID, outcomeLabel(outcome)).Inc()
	}
	switch outcome {
	case forwarder.OutcomeSuccess:
		if err := forwarder.RelayResponse(w, resp); err != nil {
			slog.LogAttrs(ctx, slog.LevelWarn, "relaying upstream response failed",
				slog.String("request_id", gateman.RequestIDFromContext(ctx)),
				slog.Any("error", err))
		}
	case forwarder.OutcomeNoServers:
		respond.ServiceUnavailable(w)
	case forwarder.OutcomeBadURL:
		respond.InternalError(w)
	case forwarder.OutcomeTimeout:
		respond.GatewayTimeout(w)
	case forwarder.OutcomeUnavailable:
		respond.ServiceUnavailable(w)
	default:
		respond.InternalError(w)
	}
}

// outcomeLabel maps a forwarder.Outcome to the label value recorded on the
// forwarder_errors_total metric.
func outcomeLabel(outcome forwarder.Outcome) string {
	switch outcome {
	case forwarder.OutcomeNoServers:
		return "no_servers"
	case forwarder.OutcomeBadURL:
		return "bad_url"
	case forwarder.OutcomeTimeout:
		return "timeout"
	case forwarder.OutcomeUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}
