package probe

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net"
	"strconv"
	"time"
)

// DefaultTimeout bounds one TCP dial plus TLS handshake.
const DefaultTimeout = 10 * time.Second

// Prober fetches TLS certificate expiry for one endpoint.
// Params: dial timeout and optional TLS config override.
// Returns: expiry probing behavior without retries.
type Prober struct {
	timeout time.Duration

	// roots overrides the platform trust store. Used by tests that
	// probe a local TLS server with a self-issued certificate.
	roots *x509.CertPool
}

// NewProber creates a prober with the given handshake timeout.
// Params: timeout; non-positive values fall back to DefaultTimeout.
// Returns: initialized prober.
func NewProber(timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Prober{timeout: timeout}
}

// NewProberWithRoots creates a prober trusting only the given root pool.
// Params: handshake timeout and explicit root CA pool.
// Returns: prober for endpoints signed by the supplied roots.
func NewProberWithRoots(timeout time.Duration, roots *x509.CertPool) *Prober {
	p := NewProber(timeout)
	p.roots = roots
	return p
}

// Probe dials host:port, performs a TLS handshake, and reads the leaf expiry.
// Params: context-free host and port; the dial is bounded by the prober timeout.
// Returns: certificate NotAfter in UTC, or the verbatim dial/handshake error.
func (p *Prober) Probe(host string, port int) (time.Time, error) {
	dialer := &net.Dialer{Timeout: p.timeout}
	address := net.JoinHostPort(host, strconv.Itoa(port))

	tlsCfg := &tls.Config{ServerName: host, RootCAs: p.roots}
	conn, err := tls.DialWithDialer(dialer, "tcp", address, tlsCfg)
	if err != nil {
		return time.Time{}, err
	}
	defer conn.Close()

	peers := conn.ConnectionState().PeerCertificates
	if len(peers) == 0 {
		return time.Time{}, errors.New("peer presented no certificates")
	}
	return peers[0].NotAfter.UTC(), nil
}
