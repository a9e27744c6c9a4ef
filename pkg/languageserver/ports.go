package languageserver

import (
	"context"

	"github.com/vibecode-tools/antigravity-bridge-go/pkg/command"
	"github.com/vibecode-tools/antigravity-bridge-go/pkg/logging"
)

// PortDiscoverer lists TCP ports in LISTEN state owned by a process,
// using the platform's socket-listing tool. Discovery is best effort:
// a failing tool yields an empty list, never an error, because the
// command-line port hint can still carry a detection attempt.
type PortDiscoverer struct {
	runner command.Runner
	logger logging.Logger
}

func NewPortDiscoverer(runner command.Runner, logger logging.Logger) *PortDiscoverer {
	return &PortDiscoverer{
		runner: runner,
		logger: logger,
	}
}

// ListeningPorts returns the ports pid is listening on, de-duplicated in
// first-seen order.
func (d *PortDiscoverer) ListeningPorts(ctx context.Context, pid int) []int {
	ports, err := d.scanPorts(ctx, pid)
	if err != nil {
		d.logger.Warnf("Port scan failed for PID %d, continuing with command-line hint only: %v", pid, err)
		return nil
	}
	d.logger.Debugf("Port scan for PID %d found %d listening ports", pid, len(ports))
	return ports
}

// mergePortCandidates orders the ports to probe. A port hinted on the
// command line that the scan did not report is prepended: it is the most
// likely correct port and must be tried first.
func mergePortCandidates(scanned []int, hintedPort int) []PortCandidate {
	candidates := make([]PortCandidate, 0, len(scanned)+1)
	if hintedPort != 0 && !containsPort(scanned, hintedPort) {
		candidates = append(candidates, PortCandidate{Port: hintedPort, Source: PortSourceCommandLine})
	}
	for _, port := range scanned {
		candidates = append(candidates, PortCandidate{Port: port, Source: PortSourceScan})
	}
	return candidates
}
