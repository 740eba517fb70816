// Package convert drives ffmpeg conversions as asynchronous, cancellable,
// progress-reporting tasks.
package convert

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/clipforge/clipforge/internal/alerts"
	"github.com/clipforge/clipforge/internal/logger"
	"github.com/clipforge/clipforge/internal/registry"
	"github.com/clipforge/clipforge/internal/transcode"
	"github.com/clipforge/clipforge/internal/util"
)

var (
	ErrInputNotFound = errors.New("input file not found")
	ErrUnknownTask   = errors.New("convert task not found")
)

// Orchestrator owns the conversion task registry and the output root.
type Orchestrator struct {
	tasks     *registry.Registry[*Task]
	runner    *transcode.Runner
	prober    *transcode.Prober
	outputDir string

	// RemoveSourceOnSuccess deletes the input file once a conversion
	// completes. Storage reclamation policy, not a technical requirement.
	RemoveSourceOnSuccess bool
}

func NewOrchestrator(runner *transcode.Runner, prober *transcode.Prober, outputDir string) *Orchestrator {
	return &Orchestrator{
		tasks:                 registry.New[*Task](),
		runner:                runner,
		prober:                prober,
		outputDir:             outputDir,
		RemoveSourceOnSuccess: true,
	}
}

// Start validates the input, allocates a pending task and kicks off the
// conversion in the background. The caller polls for progress.
func (o *Orchestrator) Start(inputPath, outputFormat, quality string, opts Options, uploadID string) (Snapshot, error) {
	if !util.FileExists(inputPath) {
		return Snapshot{}, ErrInputNotFound
	}

	now := time.Now()
	task := &Task{
		ID:           uuid.New().String(),
		UploadID:     uploadID,
		InputPath:    inputPath,
		OutputFormat: outputFormat,
		Quality:      quality,
		Options:      opts,
		Status:       StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	base := util.BaseName(filepath.Base(inputPath))
	task.OutputPath = filepath.Join(o.outputDir, outputFileName(task.ID, base, outputFormat))

	if err := o.tasks.Create(task.ID, task); err != nil {
		return Snapshot{}, err
	}

	logger.Log.Infof("[Convert] Task %s created: %s -> %s (%s)",
		logger.ShortID(task.ID), inputPath, task.OutputPath, quality)

	go o.run(task.ID)

	return task.Snapshot(), nil
}

func (o *Orchestrator) run(taskID string) {
	task, ok := o.tasks.Get(taskID)
	if !ok {
		return
	}
	snap := task.Snapshot()

	duration, err := o.prober.Duration(snap.InputPath)
	if err != nil {
		logger.Log.Warnf("[Convert] Task %s: duration probe failed, progress disabled: %v",
			logger.ShortID(taskID), err)
	}

	settings := resolveEncodeSettings(snap.Quality, snap.Options)
	spec := transcode.Spec{
		InputPath:  snap.InputPath,
		OutputPath: snap.OutputPath,
		OutputArgs: buildArgs(settings, snap.OutputFormat),
		Duration:   duration,
		OnProgress: func(percent int) {
			o.tasks.Mutate(taskID, func(t *Task) {
				if t.Status == StatusProcessing && percent > t.Progress {
					t.Progress = percent
				}
			})
		},
		OnDone: func(err error) {
			o.finish(taskID, err)
		},
	}

	job, err := o.runner.Start(spec)
	if err != nil {
		o.tasks.Mutate(taskID, func(t *Task) {
			t.Status = StatusFailed
			t.Error = err.Error()
		})
		alerts.ConversionFailed(taskID, snap.OutputFormat, err)
		return
	}

	o.tasks.Mutate(taskID, func(t *Task) {
		// Cancel may have won the race before the process attached.
		if t.Status != StatusPending {
			job.Kill()
			return
		}
		t.Status = StatusProcessing
		t.StartedAt = time.Now()
		t.job = job
	})
}

func (o *Orchestrator) finish(taskID string, runErr error) {
	task, ok := o.tasks.Get(taskID)
	if !ok {
		return
	}

	if runErr != nil {
		var cancelled bool
		o.tasks.Mutate(taskID, func(t *Task) {
			t.job = nil
			if t.Status == StatusCancelled {
				cancelled = true
				return
			}
			t.Status = StatusFailed
			t.Error = runErr.Error()
		})
		if !cancelled {
			logger.Log.Errorf("[Convert] Task %s failed: %v", logger.ShortID(taskID), runErr)
			alerts.ConversionFailed(taskID, task.Snapshot().OutputFormat, runErr)
		}
		return
	}

	snap := task.Snapshot()
	info, statErr := os.Stat(snap.OutputPath)
	if statErr != nil {
		o.tasks.Mutate(taskID, func(t *Task) {
			t.job = nil
			if t.Status == StatusCancelled {
				return
			}
			t.Status = StatusFailed
			t.Error = statErr.Error()
		})
		return
	}

	o.tasks.Mutate(taskID, func(t *Task) {
		t.job = nil
		if t.Status == StatusCancelled {
			return
		}
		t.Status = StatusCompleted
		t.Progress = 100
		t.Size = info.Size()
		t.CompletedAt = time.Now()
	})

	logger.Log.Infof("[Convert] Task %s completed: %s (%d bytes)",
		logger.ShortID(taskID), snap.OutputPath, info.Size())

	if o.RemoveSourceOnSuccess {
		if err := os.Remove(snap.InputPath); err != nil && !os.IsNotExist(err) {
			logger.Log.Warnf("[Convert] Task %s: failed to remove source %s: %v",
				logger.ShortID(taskID), snap.InputPath, err)
		}
	}
}

// Cancel kills the live process if present, marks the task cancelled and
// deletes any partial output.
func (o *Orchestrator) Cancel(taskID string) error {
	task, ok := o.tasks.Get(taskID)
	if !ok {
		return ErrUnknownTask
	}

	o.tasks.Mutate(taskID, func(t *Task) {
		if t.Status == StatusProcessing && t.job != nil {
			t.job.Kill()
		}
		t.job = nil
		t.Status = StatusCancelled
	})

	outputPath := task.Snapshot().OutputPath
	if err := os.Remove(outputPath); err != nil && !os.IsNotExist(err) {
		logger.Log.Warnf("[Convert] Task %s: failed to remove output %s: %v",
			logger.ShortID(taskID), outputPath, err)
	}

	logger.Log.Infof("[Convert] Task %s cancelled", logger.ShortID(taskID))
	return nil
}

func (o *Orchestrator) Count() int {
	return o.tasks.Len()
}

func (o *Orchestrator) Get(taskID string) (Snapshot, bool) {
	task, ok := o.tasks.Get(taskID)
	if !ok {
		return Snapshot{}, false
	}
	return task.Snapshot(), true
}

// List returns snapshots newest-created-first, optionally filtered by
// status, capped at limit.
func (o *Orchestrator) List(status Status, limit int) []Snapshot {
	if limit <= 0 {
		limit = 50
	}
	var out []Snapshot
	for _, task := range o.tasks.All() {
		snap := task.Snapshot()
		if status != "" && snap.Status != status {
			continue
		}
		out = append(out, snap)
		if len(out) >= limit {
			break
		}
	}
	return out
}

// StartSweep evicts terminal tasks older than maxAge, deleting their output
// file first. A processing task is never touched.
func (o *Orchestrator) StartSweep(interval, maxAge time.Duration) func() {
	return o.tasks.StartSweep("conversions", interval, maxAge,
		func(t *Task) bool { return t.Status.Terminal() },
		func(id string, t *Task) { o.release(id, t) })
}

func (o *Orchestrator) release(id string, t *Task) {
	path := t.Snapshot().OutputPath
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Log.Warnf("[Sweep] failed to remove output %s: %v", path, err)
	}
}

// Sweep runs a single eviction pass; the server normally uses StartSweep.
func (o *Orchestrator) Sweep(maxAge time.Duration) int {
	return o.tasks.Sweep(maxAge,
		func(t *Task) bool { return t.Status.Terminal() },
		func(id string, t *Task) { o.release(id, t) })
}
