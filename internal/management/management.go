// Package management implements the gateway's second listener: a small
// chi-routed mux exposing liveness and metrics, grounded on the teacher's
// chi wiring in internal/server/server.go (global middleware plus a
// metrics handle mounted alongside the primary routes) and on the
// reference's route_mgt_server (GET /status, anything else 404).
package management

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sschakraborty/gateman-go/internal/respond"
)

var statusBody = []byte("{\n    \"status\": \"healthy\"\n}")

// New returns the management endpoint's http.Handler. metricsHandler is
// mounted at /metrics if non-nil; every unmatched route falls through to
// the canonical 404.
func New(metricsHandler http.Handler) http.Handler {
	r := chi.NewRouter()
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respond.NotFound(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respond.NotFound(w)
	})

	r.Get("/status", handleStatus)
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	return r
}

func handleStatus(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, statusBody)
}
