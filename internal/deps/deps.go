// Package deps checks the external programs the pipeline shells out to.
package deps

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Requirement names an external binary.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	// VersionArg, when set, is passed to the binary to read its version line.
	VersionArg string
}

// Status reports whether a requirement resolved on this host.
type Status struct {
	Name        string
	Command     string
	Path        string
	Description string
	Optional    bool
	Available   bool
	Version     string
	Detail      string
}

// Check resolves every requirement on PATH and, when asked, reads the
// first line of its version output.
func Check(ctx context.Context, requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		results = append(results, check(ctx, req))
	}
	return results
}

func check(ctx context.Context, req Requirement) Status {
	cmd := strings.TrimSpace(req.Command)
	status := Status{
		Name:        req.Name,
		Command:     cmd,
		Description: strings.TrimSpace(req.Description),
		Optional:    req.Optional,
	}
	if cmd == "" {
		status.Detail = "command not configured"
		return status
	}
	resolved, err := exec.LookPath(cmd)
	if err != nil {
		status.Detail = fmt.Sprintf("binary %q not found", cmd)
		return status
	}
	status.Path = resolved
	status.Available = true
	if req.VersionArg == "" {
		return status
	}
	out, err := exec.CommandContext(ctx, resolved, req.VersionArg).CombinedOutput()
	if err != nil {
		status.Available = false
		status.Detail = fmt.Sprintf("%s %s failed: %v", cmd, req.VersionArg, err)
		return status
	}
	status.Version = firstLine(string(out))
	return status
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
