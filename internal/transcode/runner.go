// Package transcode wraps single ffmpeg invocations behind a non-blocking
// runner with a killable handle and a parsed progress stream.
package transcode

import (
	"fmt"
	"io"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/clipforge/clipforge/internal/logger"
)

var ffmpegTimeRegex = regexp.MustCompile(`time=(\d+):(\d+):(\d+\.?\d*)`)

// Job is the live handle for one running ffmpeg process. It is kept only in
// process-local memory and never serialized into a task view.
type Job struct {
	mu  sync.Mutex
	cmd *exec.Cmd
}

// Kill forcibly terminates the process. Safe to call on a handle whose
// process already exited.
func (j *Job) Kill() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.cmd != nil && j.cmd.Process != nil {
		j.cmd.Process.Kill()
	}
}

// Spec describes one ffmpeg run. InputArgs precede -i (seek offsets),
// OutputArgs follow it (codecs, flags). Duration drives the progress
// percentage; zero disables progress reporting.
type Spec struct {
	InputPath  string
	OutputPath string
	InputArgs  []string
	OutputArgs []string
	Duration   float64

	OnProgress func(percent int)
	OnDone     func(err error)
}

type Runner struct {
	FFmpegPath string
}

func NewRunner(ffmpegPath string) *Runner {
	return &Runner{FFmpegPath: ffmpegPath}
}

// Start launches ffmpeg and returns immediately with a live handle. Progress
// and termination are delivered on a background goroutine; OnDone fires
// exactly once with nil on success or the tool's error text on failure.
func (r *Runner) Start(spec Spec) (*Job, error) {
	args := []string{"-y"}
	args = append(args, spec.InputArgs...)
	args = append(args, "-i", spec.InputPath)
	args = append(args, spec.OutputArgs...)
	args = append(args, spec.OutputPath)

	cmd := exec.Command(r.FFmpegPath, args...)
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	job := &Job{cmd: cmd}

	go func() {
		tail := watchProgress(stderrPipe, spec.Duration, spec.OnProgress)
		err := cmd.Wait()
		if err != nil {
			err = fmt.Errorf("ffmpeg failed: %s", lastStderrLine(tail, err))
		}
		if spec.OnDone != nil {
			spec.OnDone(err)
		}
	}()

	return job, nil
}

// watchProgress reads ffmpeg's stderr, reporting a clamped, monotonic
// percent. External progress output is unreliable, so out-of-range and
// decreasing values are dropped. Returns the tail of stderr for error text.
func watchProgress(pipe io.Reader, duration float64, onProgress func(int)) string {
	var tail strings.Builder
	last := -1
	buf := make([]byte, 4096)
	for {
		n, err := pipe.Read(buf)
		if n > 0 {
			msg := string(buf[:n])
			appendTail(&tail, msg)
			if onProgress != nil && duration > 0 {
				if pct, ok := parseProgress(msg, duration); ok && pct > last {
					last = pct
					onProgress(pct)
				}
			}
		}
		if err != nil {
			return tail.String()
		}
	}
}

func parseProgress(msg string, duration float64) (int, bool) {
	m := ffmpegTimeRegex.FindStringSubmatch(msg)
	if m == nil {
		return 0, false
	}
	h, _ := strconv.Atoi(m[1])
	min, _ := strconv.Atoi(m[2])
	sec, _ := strconv.ParseFloat(m[3], 64)
	current := float64(h)*3600 + float64(min)*60 + sec

	pct := int(current / duration * 100)
	if pct < 0 {
		return 0, false
	}
	if pct > 100 {
		pct = 100
	}
	return pct, true
}

const tailLimit = 1024

func appendTail(b *strings.Builder, msg string) {
	b.WriteString(msg)
	if b.Len() > 4*tailLimit {
		s := b.String()
		b.Reset()
		b.WriteString(s[len(s)-tailLimit:])
	}
}

// lastStderrLine extracts the most useful error line from ffmpeg's output.
func lastStderrLine(tail string, fallback error) string {
	lines := strings.Split(strings.TrimSpace(tail), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line != "" {
			if len(line) > 300 {
				line = line[:300]
			}
			return line
		}
	}
	return fallback.Error()
}

// Run executes a spec and blocks until it terminates. Used for sequential
// segment cutting where concurrency is deliberately avoided.
func (r *Runner) Run(spec Spec) error {
	done := make(chan error, 1)
	userDone := spec.OnDone
	spec.OnDone = func(err error) {
		if userDone != nil {
			userDone(err)
		}
		done <- err
	}
	if _, err := r.Start(spec); err != nil {
		return err
	}
	err := <-done
	if err != nil {
		logger.Log.Debugf("[FFmpeg] run failed: %v", err)
	}
	return err
}
