package advisor

import (
	"os/exec"

	"pland/internal/hwprobe"
)

// SanityReport describes runtime checks for external dependencies.
type SanityReport struct {
	ProbeFound bool   `json:"probe_found"`
	ProbePath  string `json:"probe_path,omitempty"`
	Error      string `json:"error,omitempty"`
}

// SanityCheck validates that the hardware probe binary is available.
// It does not mutate state and is safe to call at any time. A missing probe
// is not fatal: the planner degrades to advisory (unverified) estimates.
func (a *Advisor) SanityCheck() SanityReport {
	bin := a.probeBin
	if bin == "" {
		bin = hwprobe.DefaultBin
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		return SanityReport{ProbeFound: false, Error: err.Error()}
	}
	return SanityReport{ProbeFound: true, ProbePath: path}
}
