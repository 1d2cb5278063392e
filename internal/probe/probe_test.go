package probe

import (
	"crypto/x509"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"
)

func splitServerAddr(t *testing.T, rawURL string) (string, int) {
	t.Helper()
	parsed, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("parse server url: %v", err)
	}
	host, portStr, err := net.SplitHostPort(parsed.Host)
	if err != nil {
		t.Fatalf("split server host: %v", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("parse server port: %v", err)
	}
	return host, port
}

func TestProbeReadsLeafExpiry(t *testing.T) {
	t.Parallel()

	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	roots := x509.NewCertPool()
	roots.AddCert(server.Certificate())
	prober := NewProberWithRoots(2*time.Second, roots)

	host, port := splitServerAddr(t, server.URL)
	expiry, err := prober.Probe(host, port)
	if err != nil {
		t.Fatalf("probe failed: %v", err)
	}

	want := server.Certificate().NotAfter.UTC()
	if !expiry.Equal(want) {
		t.Fatalf("expected expiry %v, got %v", want, expiry)
	}
	if expiry.Location() != time.UTC {
		t.Fatalf("expected UTC expiry, got %v", expiry.Location())
	}
}

func TestProbeReturnsDialError(t *testing.T) {
	t.Parallel()

	// Reserve a port, then close it so the dial is refused.
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("reserve port: %v", err)
	}
	addr := listener.Addr().(*net.TCPAddr)
	_ = listener.Close()

	prober := NewProber(time.Second)
	if _, err := prober.Probe("127.0.0.1", addr.Port); err == nil {
		t.Fatalf("expected dial error for closed port")
	}
}

func TestProbeRejectsUntrustedCertificate(t *testing.T) {
	t.Parallel()

	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	prober := NewProber(2 * time.Second)
	host, port := splitServerAddr(t, server.URL)
	if _, err := prober.Probe(host, port); err == nil {
		t.Fatalf("expected verification error for self-issued certificate")
	}
}
