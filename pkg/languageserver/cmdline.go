package languageserver

import (
	"strconv"
	"strings"
)

const (
	csrfTokenFlag  = "--csrf_token"
	extensionFlag  = "--extension_server_port"
	legacyPortFlag = "--port"
)

// extractCSRFToken pulls the first --csrf_token value out of a command
// line, accepting both "--csrf_token VALUE" and "--csrf_token=VALUE".
// A process without a token cannot be authenticated against and is not
// a usable candidate.
func extractCSRFToken(cmdline string) (string, bool) {
	parts := strings.Fields(cmdline)
	for i, part := range parts {
		if value, ok := strings.CutPrefix(part, csrfTokenFlag+"="); ok {
			return value, value != ""
		}
		if part == csrfTokenFlag && i+1 < len(parts) {
			return parts[i+1], true
		}
	}
	return "", false
}

// extractHintedPort pulls the extension server port off the command
// line, falling back to the legacy --port= form. Returns 0 when no
// usable port is present.
func extractHintedPort(cmdline string) int {
	parts := strings.Fields(cmdline)
	for i, part := range parts {
		if value, ok := strings.CutPrefix(part, extensionFlag+"="); ok {
			if port := parsePort(value); port != 0 {
				return port
			}
		}
		if part == extensionFlag && i+1 < len(parts) {
			if port := parsePort(parts[i+1]); port != 0 {
				return port
			}
		}
		if value, ok := strings.CutPrefix(part, legacyPortFlag+"="); ok {
			if port := parsePort(value); port != 0 {
				return port
			}
		}
	}
	return 0
}

func parsePort(value string) int {
	port, err := strconv.Atoi(value)
	if err != nil || port < 1 || port > 65535 {
		return 0
	}
	return port
}

// candidateFromCmdline builds a ProcessCandidate from a process command
// line. Returns false when the command line carries no CSRF token.
func candidateFromCmdline(pid, ppid int, cmdline string) (ProcessCandidate, bool) {
	token, ok := extractCSRFToken(cmdline)
	if !ok {
		return ProcessCandidate{}, false
	}
	return ProcessCandidate{
		PID:        pid,
		ParentPID:  ppid,
		Token:      token,
		HintedPort: extractHintedPort(cmdline),
	}, true
}
