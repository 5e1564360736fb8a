// Package deps verifies the external binaries corpus processing shells out
// to, ffmpeg and ffprobe, before any work starts.
package deps

import (
	"os/exec"
	"strings"

	"corpuskit/internal/config"
	"corpuskit/internal/services"
)

// Requirement names an external binary a command relies on.
type Requirement struct {
	Name    string
	Command string
}

// FFmpeg returns the transcoder requirement for the configured binary.
func FFmpeg(cfg *config.Config) Requirement {
	return Requirement{Name: "FFmpeg", Command: cfg.FFmpegBinary()}
}

// FFprobe returns the prober requirement for the configured binary.
func FFprobe(cfg *config.Config) Requirement {
	return Requirement{Name: "FFprobe", Command: cfg.FFprobeBinary()}
}

// Verify fails when any required binary cannot be resolved. Task preflight
// calls this so a long batch never dies halfway through on a missing tool.
func Verify(requirements []Requirement) error {
	var missing []string
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		if cmd == "" {
			missing = append(missing, req.Name+" (not configured)")
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			missing = append(missing, req.Name+" ("+cmd+")")
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return services.Wrap(services.ErrExternalTool, "", "check dependencies",
		"Required tools are missing: "+strings.Join(missing, ", "), nil)
}
