package languageserver

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vibecode-tools/antigravity-bridge-go/pkg/errors"
	"github.com/vibecode-tools/antigravity-bridge-go/pkg/logging"
)

const (
	serverHost   = "127.0.0.1"
	probeRPCPath = "/exa.language_server_pb.LanguageServerService/GetUnleashData"
	probeBody    = `{"wrapper_data":{}}`

	csrfTokenHeader       = "X-Codeium-Csrf-Token"
	protocolVersionHeader = "Connect-Protocol-Version"
	protocolVersion       = "1"

	defaultProbeTimeout = 3 * time.Second
)

// Prober determines which (protocol, port) pair yields a successful
// authenticated response. The server presents a self-signed certificate,
// so certificate validation is disabled for the HTTPS leg.
type Prober struct {
	client  *http.Client
	timeout time.Duration
	logger  logging.Logger
}

func NewProber(logger logging.Logger) *Prober {
	return &Prober{
		client: &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		},
		timeout: defaultProbeTimeout,
		logger:  logger,
	}
}

// Probe tries each port in order, HTTPS before HTTP, and returns the
// first port that answers the authenticated probe with HTTP 200. Every
// attempt is appended to diag, and diag.FailureReason is set when no
// port works: auth-failed if any attempt came back 401/403, otherwise
// no-reachable-port. Probing is strictly sequential so the attempt log
// stays reproducible.
func (p *Prober) Probe(ctx context.Context, pid int, ports []PortCandidate, token string, diag *Diagnostics) (int, error) {
	for _, candidate := range ports {
		for _, scheme := range []string{"https", "http"} {
			status, err := p.probeOnce(ctx, scheme, candidate.Port, token)

			attempt := ProbeAttempt{
				PID:        pid,
				Port:       candidate.Port,
				StatusCode: status,
				Protocol:   scheme,
				Source:     candidate.Source,
			}
			if err != nil {
				attempt.Error = err.Error()
			}
			diag.Attempts = append(diag.Attempts, attempt)

			if status == http.StatusOK {
				diag.ProtocolUsed = scheme
				p.logger.Infof("Language server reachable, port: %d, protocol: %s", candidate.Port, scheme)
				return candidate.Port, nil
			}
			p.logger.Debugf("Probe failed, port: %d, protocol: %s, status: %d, error: %v",
				candidate.Port, scheme, status, err)
		}
	}

	for _, attempt := range diag.Attempts {
		if attempt.StatusCode == http.StatusUnauthorized || attempt.StatusCode == http.StatusForbidden {
			diag.FailureReason = FailureAuth
			return 0, errors.NewAuthError("language server rejected the CSRF token", nil).
				WithContext("ports_tried", len(ports))
		}
	}
	diag.FailureReason = FailureNoPort
	return 0, errors.NewNetworkError("no port responded to the probe", nil).
		WithContext("ports_tried", len(ports))
}

// probeOnce issues one authenticated POST against the probe RPC path.
// Returns the HTTP status, or 0 with an error when no response arrived.
func (p *Prober) probeOnce(ctx context.Context, scheme string, port int, token string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	url := fmt.Sprintf("%s://%s:%d%s", scheme, serverHost, port, probeRPCPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader([]byte(probeBody)))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(csrfTokenHeader, token)
	req.Header.Set(protocolVersionHeader, protocolVersion)

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, nil
}
