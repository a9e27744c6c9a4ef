package languageserver

import (
	"context"
	"runtime"

	"github.com/vibecode-tools/antigravity-bridge-go/pkg/command"
	"github.com/vibecode-tools/antigravity-bridge-go/pkg/logging"
)

// Locator enumerates OS processes matching the platform's language
// server binary name and extracts auth tokens and port hints from their
// command lines. The per-OS listing strategy lives in the build-tagged
// locator files.
type Locator struct {
	runner      command.Runner
	processName string
	logger      logging.Logger
}

// NewLocator builds a locator for the current OS and architecture.
// Fails with a platform error on operating systems the language server
// does not ship for.
func NewLocator(runner command.Runner, logger logging.Logger) (*Locator, error) {
	processName, err := processNameFor(runtime.GOOS, runtime.GOARCH)
	if err != nil {
		return nil, err
	}
	return &Locator{
		runner:      runner,
		processName: processName,
		logger:      logger,
	}, nil
}

// ProcessName returns the executable name this locator searches for.
func (l *Locator) ProcessName() string {
	return l.processName
}

// FindCandidates lists all running processes matching the server binary
// name that carry a CSRF token on their command line. An empty result is
// not an error at this layer; the orchestrator decides what it means.
func (l *Locator) FindCandidates(ctx context.Context) ([]ProcessCandidate, error) {
	candidates, err := l.listCandidates(ctx)
	if err != nil {
		return nil, err
	}
	l.logger.Debugf("Process scan complete, name: %s, candidates: %d", l.processName, len(candidates))
	return candidates, nil
}
