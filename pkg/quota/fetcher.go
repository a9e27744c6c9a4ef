package quota

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/vibecode-tools/antigravity-bridge-go/pkg/errors"
	"github.com/vibecode-tools/antigravity-bridge-go/pkg/languageserver"
	"github.com/vibecode-tools/antigravity-bridge-go/pkg/logging"
)

const (
	statusRPCPath = "/exa.language_server_pb.LanguageServerService/GetUserStatus"

	csrfTokenHeader       = "X-Codeium-Csrf-Token"
	protocolVersionHeader = "Connect-Protocol-Version"
	protocolVersion       = "1"

	defaultFetchTimeout = 5 * time.Second
	defaultRetryDelay   = 1 * time.Second
)

// statusRequestBody identifies the client to the language server.
var statusRequestBody = map[string]interface{}{
	"metadata": map[string]interface{}{
		"ideName":       "antigravity",
		"extensionName": "antigravity",
		"locale":        "en",
	},
}

// Fetcher retrieves quota data from a validated language server
// endpoint and normalizes it into a Snapshot. Like the prober it
// accepts the server's self-signed certificate and falls back from
// HTTPS to HTTP.
type Fetcher struct {
	client     *http.Client
	timeout    time.Duration
	retryDelay time.Duration
	logger     logging.Logger
	now        func() time.Time
}

func NewFetcher(logger logging.Logger) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		},
		timeout:    defaultFetchTimeout,
		retryDelay: defaultRetryDelay,
		logger:     logger,
		now:        time.Now,
	}
}

// Fetch retrieves and normalizes the current quota state, retrying once
// after a short delay on any failure.
func (f *Fetcher) Fetch(ctx context.Context, endpoint languageserver.ServerEndpoint) (*Snapshot, error) {
	snapshot, err := f.fetchOnce(ctx, endpoint)
	if err == nil {
		return snapshot, nil
	}

	f.logger.Warnf("Quota fetch failed, retrying once: %v", err)
	select {
	case <-time.After(f.retryDelay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return f.fetchOnce(ctx, endpoint)
}

func (f *Fetcher) fetchOnce(ctx context.Context, endpoint languageserver.ServerEndpoint) (*Snapshot, error) {
	status, body, err := f.request(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return nil, errors.NewAuthError("quota request rejected", nil).WithContext("status", status)
	case status != http.StatusOK:
		return nil, errors.NewUpstreamError(fmt.Sprintf("quota request returned HTTP %d", status), nil)
	}

	var response userStatusResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, errors.NewParseError("malformed quota response", err)
	}

	return normalizeSnapshot(&response, f.now()), nil
}

// request posts the status RPC, HTTPS first and plain HTTP when HTTPS
// does not complete. Auth failures come back as HTTP responses, not
// transport errors, so they do not trigger the fallback.
func (f *Fetcher) request(ctx context.Context, endpoint languageserver.ServerEndpoint) (int, []byte, error) {
	status, body, httpsErr := f.send(ctx, "https", endpoint)
	if httpsErr == nil {
		return status, body, nil
	}

	f.logger.Debugf("HTTPS quota request failed, falling back to HTTP: %v", httpsErr)
	status, body, httpErr := f.send(ctx, "http", endpoint)
	if httpErr != nil {
		return 0, nil, errors.NewNetworkError("quota request failed over both protocols", httpErr).
			WithContext("port", endpoint.Port)
	}
	return status, body, nil
}

func (f *Fetcher) send(ctx context.Context, scheme string, endpoint languageserver.ServerEndpoint) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	payload, err := json.Marshal(statusRequestBody)
	if err != nil {
		return 0, nil, err
	}

	url := fmt.Sprintf("%s://127.0.0.1:%d%s", scheme, endpoint.Port, statusRPCPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(csrfTokenHeader, endpoint.Token)
	req.Header.Set(protocolVersionHeader, protocolVersion)

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	var body bytes.Buffer
	if _, err := body.ReadFrom(resp.Body); err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body.Bytes(), nil
}
