package languageserver

import (
	"github.com/vibecode-tools/antigravity-bridge-go/pkg/errors"
)

// selectCandidate picks the candidate most plausibly belonging to this
// application. A single candidate is taken as-is. With several, a
// candidate whose parent is the caller itself wins (the server and the
// UI are launched as siblings by the same host process). Unrelated
// candidates are never guessed among: picking a server owned by another
// IDE window would hand its quota to the wrong session.
func selectCandidate(candidates []ProcessCandidate, callerPID int) (ProcessCandidate, error) {
	if len(candidates) == 1 {
		return candidates[0], nil
	}

	for _, candidate := range candidates {
		if candidate.ParentPID != 0 && candidate.ParentPID == callerPID {
			return candidate, nil
		}
	}

	return ProcessCandidate{}, errors.NewAmbiguousError(
		"multiple language server processes found, cannot determine which one", nil).
		WithContext("candidates", len(candidates))
}
