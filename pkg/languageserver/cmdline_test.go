package languageserver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractCSRFToken(t *testing.T) {
	tests := []struct {
		name      string
		cmdline   string
		wantToken string
		wantFound bool
	}{
		{
			name:      "equals_form",
			cmdline:   "/opt/ls/language_server_linux_x64 --csrf_token=abc123def456 --extension_server_port=9000",
			wantToken: "abc123def456",
			wantFound: true,
		},
		{
			name:      "space_form",
			cmdline:   "/opt/ls/language_server_linux_x64 --csrf_token abc123def456",
			wantToken: "abc123def456",
			wantFound: true,
		},
		{
			name:      "first_occurrence_wins",
			cmdline:   "ls --csrf_token=first --csrf_token=second",
			wantToken: "first",
			wantFound: true,
		},
		{
			name:      "no_token",
			cmdline:   "/opt/ls/language_server_linux_x64 --extension_server_port=9000",
			wantFound: false,
		},
		{
			name:      "empty_value",
			cmdline:   "ls --csrf_token=",
			wantFound: false,
		},
		{
			name:      "trailing_flag_without_value",
			cmdline:   "ls --csrf_token",
			wantFound: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, found := extractCSRFToken(tt.cmdline)
			assert.Equal(t, tt.wantFound, found)
			if tt.wantFound {
				assert.Equal(t, tt.wantToken, token)
			}
		})
	}
}

func TestExtractHintedPort(t *testing.T) {
	tests := []struct {
		name     string
		cmdline  string
		wantPort int
	}{
		{
			name:     "extension_port_equals",
			cmdline:  "ls --extension_server_port=9000",
			wantPort: 9000,
		},
		{
			name:     "extension_port_space",
			cmdline:  "ls --extension_server_port 9000",
			wantPort: 9000,
		},
		{
			name:     "legacy_port_flag",
			cmdline:  "ls --port=8888",
			wantPort: 8888,
		},
		{
			name:     "extension_port_preferred_over_legacy",
			cmdline:  "ls --extension_server_port=9000 --port=8888",
			wantPort: 9000,
		},
		{
			name:     "no_port",
			cmdline:  "ls --csrf_token=abc",
			wantPort: 0,
		},
		{
			name:     "port_out_of_range",
			cmdline:  "ls --extension_server_port=70000",
			wantPort: 0,
		},
		{
			name:     "port_not_numeric",
			cmdline:  "ls --extension_server_port=none",
			wantPort: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantPort, extractHintedPort(tt.cmdline))
		})
	}
}

func TestCandidateFromCmdline(t *testing.T) {
	candidate, ok := candidateFromCmdline(42, 7, "ls --csrf_token=secret-token-value --extension_server_port=9000")
	assert.True(t, ok)
	assert.Equal(t, 42, candidate.PID)
	assert.Equal(t, 7, candidate.ParentPID)
	assert.Equal(t, "secret-token-value", candidate.Token)
	assert.Equal(t, 9000, candidate.HintedPort)

	_, ok = candidateFromCmdline(42, 7, "ls --extension_server_port=9000")
	assert.False(t, ok, "a process without a CSRF token is not a candidate")
}

func TestTokenPreview(t *testing.T) {
	assert.Equal(t, "abcdefgh", tokenPreview("abcdefghijklmnop"))
	assert.Equal(t, "short", tokenPreview("short"))
	assert.Equal(t, "", tokenPreview(""))
}
