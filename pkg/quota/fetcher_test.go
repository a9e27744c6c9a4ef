package quota

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibecode-tools/antigravity-bridge-go/pkg/errors"
	"github.com/vibecode-tools/antigravity-bridge-go/pkg/languageserver"
	"github.com/vibecode-tools/antigravity-bridge-go/pkg/logging"
)

const statusResponseBody = `{
	"userStatus": {
		"name": "Dev User",
		"email": "dev@example.com",
		"userTier": {"id": "pro", "name": "Pro"},
		"planStatus": {
			"planInfo": {"monthlyPromptCredits": 1000, "planName": "Pro Monthly"},
			"availablePromptCredits": 750
		}
	}
}`

func testEndpoint(t *testing.T, server *httptest.Server, token string) languageserver.ServerEndpoint {
	t.Helper()
	parsed, err := url.Parse(server.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(parsed.Port())
	require.NoError(t, err)
	return languageserver.ServerEndpoint{Port: port, Token: token}
}

func newTestFetcher() *Fetcher {
	fetcher := NewFetcher(logging.NewNullLogger())
	fetcher.retryDelay = time.Millisecond
	fetcher.now = func() time.Time { return testNow }
	return fetcher
}

func TestFetchOverTLS(t *testing.T) {
	var sawToken atomic.Value
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, statusRPCPath, r.URL.Path)
		assert.Equal(t, "1", r.Header.Get("Connect-Protocol-Version"))
		sawToken.Store(r.Header.Get("X-Codeium-Csrf-Token"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(statusResponseBody))
	}))
	defer server.Close()

	snapshot, err := newTestFetcher().Fetch(context.Background(), testEndpoint(t, server, "csrf-secret"))
	require.NoError(t, err)
	assert.Equal(t, "csrf-secret", sawToken.Load())

	require.NotNil(t, snapshot.PromptCredits)
	assert.Equal(t, int64(750), snapshot.PromptCredits.Available)
	assert.Equal(t, testNow.Format(time.RFC3339), snapshot.Timestamp)
}

func TestFetchFallsBackToHTTP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(statusResponseBody))
	}))
	defer server.Close()

	snapshot, err := newTestFetcher().Fetch(context.Background(), testEndpoint(t, server, "tok"))
	require.NoError(t, err)
	require.NotNil(t, snapshot.UserInfo)
	assert.Equal(t, "dev@example.com", *snapshot.UserInfo.Email)
}

func TestFetchAuthFailure(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := newTestFetcher().Fetch(context.Background(), testEndpoint(t, server, "bad"))
	require.Error(t, err)
	assert.True(t, errors.IsAuthError(err))
}

func TestFetchUpstreamFailure(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newTestFetcher().Fetch(context.Background(), testEndpoint(t, server, "tok"))
	require.Error(t, err)
	assert.True(t, errors.IsUpstreamError(err))
}

func TestFetchParseFailure(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{not json"))
	}))
	defer server.Close()

	_, err := newTestFetcher().Fetch(context.Background(), testEndpoint(t, server, "tok"))
	require.Error(t, err)
	assert.True(t, errors.IsParseError(err))
}

func TestFetchRetriesOnceThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(statusResponseBody))
	}))
	defer server.Close()

	snapshot, err := newTestFetcher().Fetch(context.Background(), testEndpoint(t, server, "tok"))
	require.NoError(t, err)
	assert.NotNil(t, snapshot.PromptCredits)
	assert.Equal(t, int32(2), calls.Load(), "exactly one retry")
}
