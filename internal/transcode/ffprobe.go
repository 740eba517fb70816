package transcode

import (
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
)

type Prober struct {
	FFprobePath string
}

func NewProber(ffprobePath string) *Prober {
	return &Prober{FFprobePath: ffprobePath}
}

// Duration returns the container duration in seconds.
func (p *Prober) Duration(inputPath string) (float64, error) {
	cmd := exec.Command(p.FFprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "json", inputPath)
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", inputPath, err)
	}

	var parsed struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(out, &parsed); err != nil {
		return 0, fmt.Errorf("parse ffprobe output: %w", err)
	}

	dur, err := strconv.ParseFloat(parsed.Format.Duration, 64)
	if err != nil || dur <= 0 {
		return 0, fmt.Errorf("no duration in ffprobe output for %s", inputPath)
	}
	return dur, nil
}
