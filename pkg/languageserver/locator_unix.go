//go:build !windows

package languageserver

import (
	"context"
	"strconv"
	"strings"
)

// listCandidates enumerates processes with a single `ps aux` pass and
// filters rows mentioning the server binary name. The parent PID is not
// part of the aux format, so it is resolved with one extra ps call per
// surviving candidate.
func (l *Locator) listCandidates(ctx context.Context) ([]ProcessCandidate, error) {
	output, err := l.runner.Run(ctx, "ps", "aux")
	if err != nil {
		return nil, err
	}

	var candidates []ProcessCandidate
	for _, line := range strings.Split(output, "\n") {
		if !strings.Contains(line, l.processName) {
			continue
		}
		pid, cmdline, err := parsePSLine(line)
		if err != nil {
			l.logger.Debugf("Skipping unparseable ps row: %v", err)
			continue
		}
		candidate, ok := candidateFromCmdline(pid, l.parentPID(ctx, pid), cmdline)
		if !ok {
			l.logger.Debugf("Process %d matches name but has no CSRF token, skipping", pid)
			continue
		}
		candidates = append(candidates, candidate)
	}
	return candidates, nil
}

// parentPID resolves a process's parent with `ps -o ppid= -p PID`.
// Returns 0 when the lookup fails; ancestry is a disambiguation hint,
// not a requirement.
func (l *Locator) parentPID(ctx context.Context, pid int) int {
	output, err := l.runner.Run(ctx, "ps", "-o", "ppid=", "-p", strconv.Itoa(pid))
	if err != nil {
		l.logger.Debugf("PPID lookup failed for %d: %v", pid, err)
		return 0
	}
	ppid, err := parsePPID(output)
	if err != nil {
		return 0
	}
	return ppid
}
