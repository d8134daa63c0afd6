package forwarder

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	gateman "github.com/sschakraborty/gateman-go/internal"
)

func backendServerFromURL(t *testing.T, rawURL string) gateman.Server {
	t.Helper()
	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("url.Parse: %v", err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatalf("strconv.Atoi: %v", err)
	}
	return gateman.Server{Hostname: u.Hostname(), Port: uint16(port)}
}

func TestForwarder_ForwardSuccess(t *testing.T) {
	t.Parallel()
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Upstream", "yes")
		w.WriteHeader(http.StatusTeapot)
		io.WriteString(w, "hello from upstream "+r.URL.Path)
	}))
	defer backend.Close()

	f := New(nil)
	origin := gateman.Origin{
		OriginID: "O1",
		Specification: gateman.OriginSpecification{
			Servers: []gateman.Server{backendServerFromURL(t, backend.URL)},
		},
	}
	req := httptest.NewRequest(http.MethodGet, "/v1/widgets?x=1", nil)

	outcome, resp := f.Forward(context.Background(), origin, 2000, req)
	if outcome != OutcomeSuccess {
		t.Fatalf("outcome = %v, want OutcomeSuccess", outcome)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusTeapot {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusTeapot)
	}
	if resp.Header.Get("X-Upstream") != "yes" {
		t.Fatalf("missing upstream header in response")
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "hello from upstream /v1/widgets" {
		t.Fatalf("unexpected body: %q", body)
	}
}

func TestForwarder_NoServersReturnsOutcomeNoServers(t *testing.T) {
	t.Parallel()
	f := New(nil)
	origin := gateman.Origin{OriginID: "O1"}
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	outcome, resp := f.Forward(context.Background(), origin, 1000, req)
	if outcome != OutcomeNoServers {
		t.Fatalf("outcome = %v, want OutcomeNoServers", outcome)
	}
	if resp != nil {
		t.Fatalf("expected nil response for OutcomeNoServers")
	}
}

func TestForwarder_DeadlineExceededReturnsOutcomeTimeout(t *testing.T) {
	t.Parallel()
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer backend.Close()

	f := New(nil)
	origin := gateman.Origin{
		Specification: gateman.OriginSpecification{
			Servers: []gateman.Server{backendServerFromURL(t, backend.URL)},
		},
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	outcome, resp := f.Forward(context.Background(), origin, 10, req)
	if outcome != OutcomeTimeout {
		t.Fatalf("outcome = %v, want OutcomeTimeout", outcome)
	}
	if resp != nil {
		t.Fatalf("expected nil response for OutcomeTimeout")
	}
}

func TestForwarder_TransportFailureReturnsOutcomeUnavailable(t *testing.T) {
	t.Parallel()
	f := New(nil)
	origin := gateman.Origin{
		Specification: gateman.OriginSpecification{
			// Port 1 is reserved and nothing should be listening there.
			Servers: []gateman.Server{{Hostname: "127.0.0.1", Port: 1}},
		},
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	outcome, resp := f.Forward(context.Background(), origin, 1000, req)
	if outcome != OutcomeUnavailable {
		t.Fatalf("outcome = %v, want OutcomeUnavailable", outcome)
	}
	if resp != nil {
		t.Fatalf("expected nil response for OutcomeUnavailable")
	}
}

func TestRewriteURL(t *testing.T) {
	t.Parallel()
	got := rewriteURL(gateman.Server{Hostname: "10.0.0.5", Port: 9090}, "/v1/widgets?x=1")
	want := "http://10.0.0.5:9090/v1/widgets?x=1"
	if got != want {
		t.Fatalf("rewriteURL = %q, want %q", got, want)
	}
}

func TestRelayResponse_CopiesStatusHeadersAndBody(t *testing.T) {
	t.Parallel()
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Echo", "1")
		w.WriteHeader(http.StatusAccepted)
		io.WriteString(w, "payload")
	}))
	defer backend.Close()

	resp, err := http.Get(backend.URL)
	if err != nil {
		t.Fatalf("http.Get: %v", err)
	}

	rec := httptest.NewRecorder()
	if err := RelayResponse(rec, resp); err != nil {
		t.Fatalf("RelayResponse: %v", err)
	}
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusAccepted)
	}
	if rec.Header().Get("X-Echo") != "1" {
		t.Fatalf("missing relayed header")
	}
	if rec.Body.String() != "payload" {
		t.Fatalf("body = %q, want %q", rec.Body.String(), "payload")
	}
}
