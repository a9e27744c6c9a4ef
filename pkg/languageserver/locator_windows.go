//go:build windows

package languageserver

import (
	"context"
	"fmt"
)

// listCandidates enumerates matching processes with tasklist, then runs
// a per-PID Get-CimInstance query for the parent PID and full command
// line. tasklist alone cannot expose either, hence the two-step shape.
func (l *Locator) listCandidates(ctx context.Context) ([]ProcessCandidate, error) {
	output, err := l.runner.Run(ctx, "tasklist",
		"/FI", fmt.Sprintf("IMAGENAME eq %s", l.processName),
		"/FO", "CSV", "/NH")
	if err != nil {
		return nil, err
	}

	var candidates []ProcessCandidate
	for _, pid := range parseTasklistCSV(output) {
		candidate, ok := l.describeProcess(ctx, pid)
		if !ok {
			continue
		}
		candidates = append(candidates, candidate)
	}
	return candidates, nil
}

// describeProcess fetches ppid and command line for one PID via
// PowerShell. Get-CimInstance replaces the deprecated wmic.
func (l *Locator) describeProcess(ctx context.Context, pid int) (ProcessCandidate, bool) {
	script := fmt.Sprintf(
		"Get-CimInstance -ClassName Win32_Process -Filter 'ProcessId=%d' | Select-Object ProcessId, ParentProcessId, CommandLine | ConvertTo-Csv -NoTypeInformation",
		pid)

	output, err := l.runner.Run(ctx, "powershell", "-NoProfile", "-Command", script)
	if err != nil {
		l.logger.Debugf("Process info query failed for %d: %v", pid, err)
		return ProcessCandidate{}, false
	}

	ppid, cmdline, err := parseCIMProcessCSV(output)
	if err != nil {
		l.logger.Debugf("Unparseable process info for %d: %v", pid, err)
		return ProcessCandidate{}, false
	}

	candidate, ok := candidateFromCmdline(pid, ppid, cmdline)
	if !ok {
		l.logger.Debugf("Process %d matches name but has no CSRF token, skipping", pid)
		return ProcessCandidate{}, false
	}
	return candidate, true
}
