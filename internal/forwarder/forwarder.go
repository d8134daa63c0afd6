// Package forwarder dispatches a classified request to one of its origin's
// backend servers and relays the response verbatim. Grounded on the
// teacher's internal/provider/proxy.go NewTransport (dnscache-backed dial)
// and ForwardRequest (header copy, streaming response body), generalized
// from a provider-auth-aware native passthrough to the plain host:port
// rewrite the reference router performs before dispatch.
package forwarder

import (
	"context"
	"errors"
	"io"
	"math/rand/v2"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/dnscache"

	gateman "github.com/sschakraborty/gateman-go/internal"
)

// hopByHopHeaders must not be copied between client and upstream.
var hopByHopHeaders = map[string]struct{}{
	"Connection":          {},
	"Keep-Alive":          {},
	"Proxy-Authenticate":  {},
	"Proxy-Authorization": {},
	"Te":                  {},
	"Trailer":             {},
	"Transfer-Encoding":   {},
	"Upgrade":             {},
}

// Outcome classifies how a Forward call completed, so callers can translate
// it to the canonical standard response.
type Outcome int

const (
	// OutcomeSuccess means resp is the verbatim upstream response.
	OutcomeSuccess Outcome = iota
	// OutcomeNoServers means the origin had zero backend servers.
	OutcomeNoServers
	// OutcomeBadURL means the rewritten upstream URL failed to parse.
	OutcomeBadURL
	// OutcomeTimeout means the backend_response_timeout deadline elapsed.
	OutcomeTimeout
	// OutcomeUnavailable means the transport failed (dial/handshake/reset).
	OutcomeUnavailable
)

// Forwarder holds the single shared HTTP client used for every upstream
// dispatch, per the reference implementation's "one client, no per-origin
// pooling" design.
type Forwarder struct {
	client *http.Client
}

// dnsRefreshInterval matches the teacher's resolver refresh cadence.
const dnsRefreshInterval = 5 * time.Minute

// New returns a Forwarder with a DNS-caching transport. resolver may be nil,
// in which case the default net.Dialer resolution path is used.
func New(resolver *dnscache.Resolver) *Forwarder {
	transport := &http.Transport{
		MaxIdleConnsPerHost: 64,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	if resolver != nil {
		transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			host, port, err := net.SplitHostPort(addr)
			if err != nil {
				return nil, err
			}
			ips, err := resolver.LookupHost(ctx, host)
			if err != nil {
				return nil, err
			}
			var d net.Dialer
			return d.DialContext(ctx, network, net.JoinHostPort(ips[0], port))
		}
	}
	return &Forwarder{client: &http.Client{Transport: transport}}
}

// NewResolver returns a dnscache.Resolver refreshed on dnsRefreshInterval,
// matching the teacher's resolver lifecycle (a background refresh loop
// started once at process startup, stopped on shutdown).
func NewResolver(ctx context.Context) *dnscache.Resolver {
	resolver := &dnscache.Resolver{}
	go func() {
		ticker := time.NewTicker(dnsRefreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				resolver.Refresh(true)
			}
		}
	}()
	return resolver
}

// selectServer returns a uniformly random Server, or ok=false if servers is
// empty.
func selectServer(servers []gateman.Server) (gateman.Server, bool) {
	if len(servers) == 0 {
		return gateman.Server{}, false
	}
	return servers[rand.IntN(len(servers))], true
}

// rewriteURL builds the upstream URL http://{hostname}:{port}{path?query}
// from the selected server and the original request's path and query.
// secure/verify_cert are intentionally not consulted here: the reference
// implementation always dispatches plaintext, a deliberately preserved
// quirk (see §4.E open question).
func rewriteURL(server gateman.Server, pathAndQuery string) string {
	var b strings.Builder
	b.WriteString("http://")
	b.WriteString(server.Hostname)
	b.WriteByte(':')
	b.WriteString(strconv.FormatUint(uint64(server.Port), 10))
	b.WriteString(pathAndQuery)
	return b.String()
}

// Forward dispatches r to a randomly selected server of origin, under a
// deadline of timeoutMillis. It never retries. On OutcomeSuccess, resp is
// non-nil and its Body must be closed by the caller after streaming it to
// the client.
func (f *Forwarder) Forward(ctx context.Context, origin gateman.Origin, timeoutMillis int, r *http.Request) (Outcome, *http.Response) {
	server, ok := selectServer(origin.Specification.Servers)
	if !ok {
		return OutcomeNoServers, nil
	}

	pathAndQuery := r.URL.Path
	if r.URL.RawQuery != "" {
		pathAndQuery += "?" + r.URL.RawQuery
	}
	targetURL := rewriteURL(server, pathAndQuery)

	deadline := time.Duration(timeoutMillis) * time.Millisecond
	reqCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	outReq, err := http.NewRequestWithContext(reqCtx, r.Method, targetURL, r.Body)
	if err != nil {
		return OutcomeBadURL, nil
	}
	copyHeaders(outReq.Header, r.Header)

	resp, err := f.client.Do(outReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return OutcomeTimeout, nil
		}
		return OutcomeUnavailable, nil
	}
	return OutcomeSuccess, resp
}

// copyHeaders copies every non-hop-by-hop header from src into dst.
func copyHeaders(dst, src http.Header) {
	for key, vals := range src {
		if _, hop := hopByHopHeaders[key]; hop {
			continue
		}
		dst[key] = vals
	}
}

// RelayResponse writes resp's status, headers, and body to w verbatim,
// streaming the body without buffering beyond io.Copy's internal buffer.
func RelayResponse(w http.ResponseWriter, resp *http.Response) error {
	defer resp.Body.Close()
	for key, vals := range resp.Header {
		if _, hop := hopByHopHeaders[key]; hop {
			continue
		}
		for _, v := range vals {
			w.Header().Add(key, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	_, err := io.Copy(w, resp.Body)
	return err
}
