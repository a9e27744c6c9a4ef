package command

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/vibecode-tools/antigravity-bridge-go/pkg/errors"
)

// Runner executes an OS utility and captures its stdout. It is the only
// boundary through which the detection engine touches the process and
// socket tables.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

type execRunner struct{}

// NewRunner returns a Runner backed by os/exec.
func NewRunner() Runner {
	return &execRunner{}
}

func (r *execRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	// Stderr is intentionally ignored: tasklist, ps and lsof all emit
	// noise there on partial permission failures while still producing
	// usable rows on stdout.

	if err := cmd.Run(); err != nil {
		// lsof exits non-zero when a process has no matching sockets.
		// Callers treating that as fatal would turn "no ports yet"
		// into a hard failure, so surface whatever stdout we got
		// alongside the typed error and let them decide.
		out := stdout.String()
		if strings.TrimSpace(out) != "" {
			return out, nil
		}
		return "", errors.NewToolError("command failed: "+name, err).WithContext("args", args)
	}

	return stdout.String(), nil
}
