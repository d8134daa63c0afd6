// Package acceptor runs the plaintext and TLS proxy listeners plus the
// management listener, each as a worker.Worker so they can be run together
// under a single errgroup (internal/worker.Runner), grounded on the
// teacher's cmd/gandalf/run.go startup sequencing and on the reference
// implementation's per-listener accept loops (tls_reverse_proxy.rs).
package acceptor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// shutdownGrace bounds how long an acceptor waits for in-flight requests to
// finish once its context is cancelled, matching the reference's "let
// in-flight requests complete" graceful shutdown semantics.
const shutdownGrace = 30 * time.Second

// Plaintext serves h over a plain TCP listener bound to addr. It implements
// worker.Worker.
type Plaintext struct {
	Addr    string
	Handler http.Handler
}

// Name identifies the worker for the runner's startup log line.
func (p *Plaintext) Name() string { return "plaintext-acceptor" }

// Run binds addr and serves Handler until ctx is cancelled, then shuts down
// gracefully: accept is stopped immediately, in-flight requests are given
// shutdownGrace to finish.
func (p *Plaintext) Run(ctx context.Context) error {
	srv := &http.Server{Addr: p.Addr, Handler: p.Handler}
	return runHTTPServer(ctx, srv, func() error {
		slog.Info("plaintext acceptor listening", "addr", p.Addr)
		return srv.ListenAndServe()
	})
}

// runHTTPServer starts serve in its own goroutine and blocks until either
// serve returns or ctx is cancelled, in which case it shuts srv down
// gracefully within shutdownGrace.
func runHTTPServer(ctx context.Context, srv *http.Server, serve func() error) error {
	errCh := make(chan error, 1)
	go func() { errCh <- serve() }()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("acceptor shutdown: %w", err)
		}
		<-errCh
		return nil
	}
}

// listenerReady wraps net.Listen so callers can surface a bind failure
// before handing the listener to http.Server.Serve.
func listenerReady(network, addr string) (net.Listener, error) {
	return net.Listen(network, addr)
}
