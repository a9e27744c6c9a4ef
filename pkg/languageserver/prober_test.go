package languageserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibecode-tools/antigravity-bridge-go/pkg/errors"
	"github.com/vibecode-tools/antigravity-bridge-go/pkg/logging"
)

func serverPort(t *testing.T, server *httptest.Server) int {
	t.Helper()
	parsed, err := url.Parse(server.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(parsed.Port())
	require.NoError(t, err)
	return port
}

func probeHandler(t *testing.T, expectToken string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, probeRPCPath, r.URL.Path)
		assert.Equal(t, "1", r.Header.Get("Connect-Protocol-Version"))
		if r.Header.Get("X-Codeium-Csrf-Token") != expectToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

func TestProbeHTTPSServer(t *testing.T) {
	server := httptest.NewTLSServer(probeHandler(t, "good-token"))
	defer server.Close()
	port := serverPort(t, server)

	prober := NewProber(logging.NewNullLogger())
	var diag Diagnostics

	got, err := prober.Probe(context.Background(), 42,
		[]PortCandidate{{Port: port, Source: PortSourceScan}}, "good-token", &diag)
	require.NoError(t, err)
	assert.Equal(t, port, got)
	assert.Equal(t, "https", diag.ProtocolUsed, "self-signed HTTPS must be accepted")
	require.Len(t, diag.Attempts, 1, "success stops probing immediately")
	assert.Equal(t, http.StatusOK, diag.Attempts[0].StatusCode)
}

func TestProbeFallsBackToHTTP(t *testing.T) {
	server := httptest.NewServer(probeHandler(t, "good-token"))
	defer server.Close()
	port := serverPort(t, server)

	prober := NewProber(logging.NewNullLogger())
	var diag Diagnostics

	got, err := prober.Probe(context.Background(), 42,
		[]PortCandidate{{Port: port, Source: PortSourceCommandLine}}, "good-token", &diag)
	require.NoError(t, err)
	assert.Equal(t, port, got)
	assert.Equal(t, "http", diag.ProtocolUsed)

	// HTTPS attempt is logged first, then the HTTP success.
	require.Len(t, diag.Attempts, 2)
	assert.Equal(t, "https", diag.Attempts[0].Protocol)
	assert.NotEmpty(t, diag.Attempts[0].Error)
	assert.Equal(t, "http", diag.Attempts[1].Protocol)
	assert.Equal(t, http.StatusOK, diag.Attempts[1].StatusCode)
	assert.Equal(t, PortSourceCommandLine, diag.Attempts[1].Source)
}

func TestProbeAuthRejection(t *testing.T) {
	server := httptest.NewServer(probeHandler(t, "expected-token"))
	defer server.Close()
	port := serverPort(t, server)

	prober := NewProber(logging.NewNullLogger())
	var diag Diagnostics

	_, err := prober.Probe(context.Background(), 42,
		[]PortCandidate{{Port: port, Source: PortSourceScan}}, "wrong-token", &diag)
	require.Error(t, err)
	assert.True(t, errors.IsAuthError(err), "401 must classify as auth failure")
	assert.Equal(t, FailureAuth, diag.FailureReason)
}

func TestProbeNoReachablePort(t *testing.T) {
	// A closed port: bind a server, note its port, shut it down.
	server := httptest.NewServer(http.NotFoundHandler())
	port := serverPort(t, server)
	server.Close()

	prober := NewProber(logging.NewNullLogger())
	var diag Diagnostics

	_, err := prober.Probe(context.Background(), 42,
		[]PortCandidate{{Port: port, Source: PortSourceScan}}, "token", &diag)
	require.Error(t, err)
	assert.True(t, errors.IsNetworkError(err))
	assert.Equal(t, FailureNoPort, diag.FailureReason)
	assert.Len(t, diag.Attempts, 2, "both protocols logged for the dead port")
}

func TestProbeFirstSuccessStops(t *testing.T) {
	okServer := httptest.NewTLSServer(probeHandler(t, "token"))
	defer okServer.Close()
	neverServer := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("port after the first success must not be probed")
	}))
	defer neverServer.Close()

	prober := NewProber(logging.NewNullLogger())
	var diag Diagnostics

	got, err := prober.Probe(context.Background(), 42, []PortCandidate{
		{Port: serverPort(t, okServer), Source: PortSourceScan},
		{Port: serverPort(t, neverServer), Source: PortSourceScan},
	}, "token", &diag)
	require.NoError(t, err)
	assert.Equal(t, serverPort(t, okServer), got)
	assert.Len(t, diag.Attempts, 1)
}
