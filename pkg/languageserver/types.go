package languageserver

import "time"

// ProcessCandidate is a process that looks like the language server but
// has not been confirmed reachable yet. Candidates are produced fresh on
// every detection attempt and never persisted.
type ProcessCandidate struct {
	PID        int
	ParentPID  int // 0 when the parent could not be determined
	Token      string
	HintedPort int // 0 when the command line carried no port
}

// ServerEndpoint is a confirmed-reachable (port, token) pair. The server
// may restart on a different port, so endpoints are rediscovered each
// session rather than persisted.
type ServerEndpoint struct {
	Port  int    `json:"port"`
	Token string `json:"token"`
}

// DetectOptions controls the orchestrator retry loop.
type DetectOptions struct {
	Attempts  int
	BaseDelay time.Duration
	Verbose   bool
}

// DefaultDetectOptions returns the standard retry policy: 3 attempts
// with a 1.5s base delay.
func DefaultDetectOptions() DetectOptions {
	return DetectOptions{
		Attempts:  3,
		BaseDelay: 1500 * time.Millisecond,
	}
}

// FailureReason classifies why the most recent detection attempt failed.
type FailureReason string

const (
	FailureNone      FailureReason = ""
	FailureNoProcess FailureReason = "no-process-found"
	FailureAmbiguous FailureReason = "ambiguous-candidates"
	FailureNoPort    FailureReason = "no-reachable-port"
	FailureAuth      FailureReason = "authentication-failed"
)

// PortSource records where a probed port came from.
type PortSource string

const (
	PortSourceCommandLine PortSource = "command-line"
	PortSourceScan        PortSource = "port-scan"
)

// PortCandidate is one port queued for probing, tagged with its origin.
type PortCandidate struct {
	Port   int
	Source PortSource
}

// ProbeAttempt is one authenticated request against one port/protocol
// pair. The attempt log is append-only within a detection attempt.
type ProbeAttempt struct {
	PID        int
	Port       int
	StatusCode int // 0 when the request never produced a response
	Error      string
	Protocol   string
	Source     PortSource
}

// Diagnostics captures the observable state of the most recent detection
// attempt. It is owned by a single in-flight detection and reset at the
// start of every attempt; Retries alone survives across attempts.
type Diagnostics struct {
	FailureReason        FailureReason
	CandidateCount       int
	Attempts             []ProbeAttempt
	TokenPreview         string
	PortsFromCommandLine int
	PortsFromScan        int
	Retries              int
	ProtocolUsed         string
}

func (d *Diagnostics) reset() {
	d.FailureReason = FailureNone
	d.CandidateCount = 0
	d.Attempts = d.Attempts[:0]
	d.TokenPreview = ""
	d.PortsFromCommandLine = 0
	d.PortsFromScan = 0
	d.ProtocolUsed = ""
}

// tokenPreview truncates a token for logging. Only the first 8
// characters ever leave this package; the full token is a secret.
func tokenPreview(token string) string {
	runes := []rune(token)
	if len(runes) > 8 {
		runes = runes[:8]
	}
	return string(runes)
}
