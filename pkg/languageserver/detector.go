package languageserver

import (
	"context"
	"os"
	"time"

	"github.com/vibecode-tools/antigravity-bridge-go/pkg/command"
	"github.com/vibecode-tools/antigravity-bridge-go/pkg/errors"
	"github.com/vibecode-tools/antigravity-bridge-go/pkg/logging"
)

// maxBackoffDelay caps the inter-attempt delay of the retry loop.
const maxBackoffDelay = 10 * time.Second

// DetectionPhase tracks where inside an attempt the orchestrator is.
type DetectionPhase string

const (
	PhaseIdle           DetectionPhase = "idle"
	PhaseLocating       DetectionPhase = "locating"
	PhaseDisambiguating DetectionPhase = "disambiguating"
	PhasePortScanning   DetectionPhase = "port-scanning"
	PhaseProbing        DetectionPhase = "probing"
	PhaseSucceeded      DetectionPhase = "succeeded"
	PhaseFailed         DetectionPhase = "failed"
)

// CandidateLocator enumerates language server process candidates.
type CandidateLocator interface {
	FindCandidates(ctx context.Context) ([]ProcessCandidate, error)
	ProcessName() string
}

// PortLister reports a process's listening TCP ports, best effort.
type PortLister interface {
	ListeningPorts(ctx context.Context, pid int) []int
}

// TransportProber finds a working (protocol, port) pair for a token.
type TransportProber interface {
	Probe(ctx context.Context, pid int, ports []PortCandidate, token string, diag *Diagnostics) (int, error)
}

// Detector composes locator, disambiguator, port discoverer and prober
// into one detection pipeline wrapped in an exponential-backoff retry
// loop. A Detector owns its Diagnostics: run one detection at a time per
// instance, and give concurrent detections their own Detector each.
type Detector struct {
	locator   CandidateLocator
	ports     PortLister
	prober    TransportProber
	logger    logging.Logger
	callerPID int

	phase DetectionPhase

	// Diagnostics reflects the most recent attempt only and feeds
	// user-facing failure messages.
	Diagnostics Diagnostics
}

// NewDetector wires the default pipeline for the current platform.
func NewDetector(logger logging.Logger) (*Detector, error) {
	runner := command.NewRunner()
	locator, err := NewLocator(runner, logger)
	if err != nil {
		return nil, err
	}
	return &Detector{
		locator:   locator,
		ports:     NewPortDiscoverer(runner, logger),
		prober:    NewProber(logger),
		logger:    logger,
		callerPID: os.Getpid(),
		phase:     PhaseIdle,
	}, nil
}

// Phase returns the state the most recent detection reached.
func (d *Detector) Phase() DetectionPhase {
	return d.phase
}

// Detect runs up to opts.Attempts detection attempts, sleeping
// baseDelay*2^n between them (capped at 10s). It returns as soon as one
// attempt yields a validated endpoint, and the last attempt's error once
// all attempts are exhausted. Platform errors abort immediately: no
// amount of retrying makes an unsupported OS supported.
func (d *Detector) Detect(ctx context.Context, opts DetectOptions) (ServerEndpoint, error) {
	if opts.Attempts <= 0 {
		opts = DefaultDetectOptions()
	}

	var lastErr error
	for attempt := 0; attempt < opts.Attempts; attempt++ {
		endpoint, err := d.tryDetect(ctx)
		d.Diagnostics.Retries = attempt
		if err == nil {
			d.phase = PhaseSucceeded
			return endpoint, nil
		}
		lastErr = err
		d.phase = PhaseFailed

		if errors.IsPlatformError(err) {
			return ServerEndpoint{}, err
		}
		if opts.Verbose {
			d.logger.Infof("Detection attempt %d/%d failed: %v", attempt+1, opts.Attempts, err)
		} else {
			d.logger.Debugf("Detection attempt %d/%d failed: %v", attempt+1, opts.Attempts, err)
		}

		if attempt < opts.Attempts-1 {
			delay := backoffDelay(opts.BaseDelay, attempt)
			if opts.Verbose {
				d.logger.Infof("Retrying detection in %s", delay)
			}
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ServerEndpoint{}, ctx.Err()
			}
		}
	}

	return ServerEndpoint{}, lastErr
}

// tryDetect is a single pass through the pipeline:
// locate -> disambiguate -> scan ports -> probe.
func (d *Detector) tryDetect(ctx context.Context) (ServerEndpoint, error) {
	d.Diagnostics.reset()

	d.phase = PhaseLocating
	candidates, err := d.locator.FindCandidates(ctx)
	if err != nil {
		return ServerEndpoint{}, err
	}
	if len(candidates) == 0 {
		d.Diagnostics.FailureReason = FailureNoProcess
		return ServerEndpoint{}, errors.NewDiscoveryError("no language server process found", nil).
			WithContext("process_name", d.locator.ProcessName())
	}
	d.Diagnostics.CandidateCount = len(candidates)

	d.phase = PhaseDisambiguating
	best, err := selectCandidate(candidates, d.callerPID)
	if err != nil {
		d.Diagnostics.FailureReason = FailureAmbiguous
		return ServerEndpoint{}, err
	}
	d.Diagnostics.TokenPreview = tokenPreview(best.Token)

	d.phase = PhasePortScanning
	scanned := d.ports.ListeningPorts(ctx, best.PID)
	d.Diagnostics.PortsFromScan = len(scanned)

	ports := mergePortCandidates(scanned, best.HintedPort)
	if len(ports) > 0 && ports[0].Source == PortSourceCommandLine {
		d.Diagnostics.PortsFromCommandLine = 1
	}

	d.phase = PhaseProbing
	port, err := d.prober.Probe(ctx, best.PID, ports, best.Token, &d.Diagnostics)
	if err != nil {
		return ServerEndpoint{}, err
	}

	return ServerEndpoint{Port: port, Token: best.Token}, nil
}

// backoffDelay computes base*2^attempt capped at maxBackoffDelay.
func backoffDelay(base time.Duration, attempt int) time.Duration {
	delay := base
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= maxBackoffDelay {
			return maxBackoffDelay
		}
	}
	if delay > maxBackoffDelay {
		return maxBackoffDelay
	}
	return delay
}

// FailureMessage renders the most recent failure reason as a short
// sentence suitable for direct display.
func (d *Detector) FailureMessage() string {
	switch d.Diagnostics.FailureReason {
	case FailureNoProcess:
		return "Language server process not found. Is Antigravity running?"
	case FailureAmbiguous:
		return "Multiple language server processes found; could not pick one."
	case FailureNoPort:
		return "Language server found but no port responded."
	case FailureAuth:
		return "Language server rejected authentication."
	}
	return ""
}
