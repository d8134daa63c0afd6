package acceptor

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net"
	"net/http"

	"github.com/sschakraborty/gateman-go/internal/telemetry"
)

// CertificateSource supplies the certificate chain and private key for the
// TLS acceptor. The spec scopes certificate loading to this interface only;
// FileCertificateSource below is the default implementation so the gateway
// still runs end-to-end from the fixed resource paths in §6.
type CertificateSource interface {
	// LoadCertificate returns the server's certificate chain and key,
	// suitable for tls.Config.Certificates.
	LoadCertificate() (tls.Certificate, error)
}

// FileCertificateSource loads a PEM certificate chain and PKCS8 private key
// from fixed filesystem paths, via tls.LoadX509KeyPair.
type FileCertificateSource struct {
	CertFile string
	KeyFile  string
}

// LoadCertificate implements CertificateSource.
func (f FileCertificateSource) LoadCertificate() (tls.Certificate, error) {
	return tls.LoadX509KeyPair(f.CertFile, f.KeyFile)
}

// TLS serves h over a TLS listener bound to addr. Each accepted connection
// moves through Accepted -> Handshaking -> {Handshake-failed (dropped) |
// Established (handed to the HTTP server)}. No client certificate
// authentication is performed; ALPN advertises http/1.1 only.
type TLS struct {
	Addr    string
	Handler http.Handler
	Certs   CertificateSource
	// Metrics is optional; when set, handshake failures increment
	// Metrics.TLSHandshakeFailed.
	Metrics *telemetry.Metrics
}

// Name identifies the worker for the runner's startup log line.
func (t *TLS) Name() string { return "tls-acceptor" }

// Run loads the certificate, binds addr, and accepts connections until ctx
// is cancelled. TCP accept errors are logged and the loop continues;
// handshake failures are logged and the connection is dropped, per §4.G.
func (t *TLS) Run(ctx context.Context) error {
	cert, err := t.Certs.LoadCertificate()
	if err != nil {
		return err
	}
	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{cert},
		NextProtos:   []string{"http/1.1"},
		ClientAuth:   tls.NoClientCert,
	}

	listener, err := listenerReady("tcp", t.Addr)
	if err != nil {
		return err
	}

	established := newEstablishedListener(listener.Addr())
	go t.acceptLoop(ctx, listener, tlsConfig, established)

	srv := &http.Server{Handler: t.Handler}
	return runHTTPServer(ctx, srv, func() error {
		slog.Info("tls acceptor listening", "addr", t.Addr)
		return srv.Serve(established)
	})
}

// acceptLoop implements the per-connection state machine. It owns listener
// exclusively and stops once ctx is cancelled or listener.Accept fails
// permanently (e.g. closed by Run's shutdown path).
func (t *TLS) acceptLoop(ctx context.Context, listener net.Listener, tlsConfig *tls.Config, established *establishedListener) {
	defer listener.Close()
	defer established.closeWithError(net.ErrClosed)

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	for {
		raw, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			slog.Warn("tls acceptor: tcp accept error", "error", err)
			continue
		}

		conn := tls.Server(raw, tlsConfig)
		if err := conn.HandshakeContext(ctx); err != nil {
			slog.Debug("tls acceptor: handshake failed", "error", err, "remote", raw.RemoteAddr())
			if t.Metrics != nil {
				t.Metrics.TLSHandshakeFailed.Inc()
			}
			conn.Close()
			continue
		}
		established.deliver(conn)
	}
}

// establishedListener is a net.Listener whose Accept returns connections
// that have already completed a TLS handshake, letting http.Server.Serve
// drive the decrypted stream exactly as it would a plain TCP listener --
// mirroring the reference implementation's accept_stream of post-handshake
// sockets.
type establishedListener struct {
	addr net.Addr
	conn chan net.Conn
	done chan struct{}
	err  error
}

func newEstablishedListener(addr net.Addr) *establishedListener {
	return &establishedListener{
		addr: addr,
		conn: make(chan net.Conn),
		done: make(chan struct{}),
	}
}

func (l *establishedListener) deliver(c net.Conn) {
	select {
	case l.conn <- c:
	case <-l.done:
		c.Close()
	}
}

func (l *establishedListener) Accept() (net.Conn, error) {
	select {
	case c := <-l.conn:
		return c, nil
	case <-l.done:
		return nil, l.err
	}
}

func (l *establishedListener) closeWithError(err error) {
	select {
	case <-l.done:
	default:
		l.err = err
		close(l.done)
	}
}

func (l *establishedListener) Close() error {
	l.closeWithError(net.ErrClosed)
	return nil
}

func (l *establishedListener) Addr() net.Addr { return l.addr }
