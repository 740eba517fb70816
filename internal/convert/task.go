package convert

import (
	"sync"
	"time"

	"github.com/clipforge/clipforge/internal/transcode"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Options override preset fields per request. Zero values leave the preset
// default in place.
type Options struct {
	VideoCodec   string   `json:"videoCodec,omitempty"`
	AudioCodec   string   `json:"audioCodec,omitempty"`
	VideoBitrate string   `json:"videoBitrate,omitempty"`
	AudioBitrate string   `json:"audioBitrate,omitempty"`
	FPS          int      `json:"fps,omitempty"`
	Speed        string   `json:"preset,omitempty"`
	CRF          int      `json:"crf,omitempty"`
	CustomArgs   []string `json:"customOptions,omitempty"`
}

// Task tracks one conversion. The job handle exists only while the task is
// processing and never leaves this package.
type Task struct {
	mu sync.Mutex

	ID           string
	UploadID     string
	InputPath    string
	OutputPath   string
	OutputFormat string
	Quality      string
	Options      Options
	Status       Status
	Progress     int
	Error        string
	Size         int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
	StartedAt    time.Time
	CompletedAt  time.Time

	job *transcode.Job
}

func (t *Task) Lock()               { t.mu.Lock() }
func (t *Task) Unlock()             { t.mu.Unlock() }
func (t *Task) Touch(now time.Time) { t.UpdatedAt = now }
func (t *Task) CreatedTime() time.Time {
	return t.CreatedAt
}

// Snapshot is the externally visible view of a conversion task; it carries
// only derived fields, never the process handle.
type Snapshot struct {
	TaskID       string  `json:"taskId"`
	UploadID     string  `json:"uploadId,omitempty"`
	InputPath    string  `json:"inputPath"`
	OutputPath   string  `json:"outputPath"`
	OutputFormat string  `json:"outputFormat"`
	Quality      string  `json:"quality"`
	Options      Options `json:"options"`
	Status       Status  `json:"status"`
	Progress     int     `json:"progress"`
	Error        string  `json:"error,omitempty"`
	Size         int64   `json:"size"`
	CreatedAt    string  `json:"createdAt"`
	UpdatedAt    string  `json:"updatedAt"`
	StartedAt    string  `json:"startedAt,omitempty"`
	CompletedAt  string  `json:"completedAt,omitempty"`
}

func (t *Task) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Snapshot{
		TaskID:       t.ID,
		UploadID:     t.UploadID,
		InputPath:    t.InputPath,
		OutputPath:   t.OutputPath,
		OutputFormat: t.OutputFormat,
		Quality:      t.Quality,
		Options:      t.Options,
		Status:       t.Status,
		Progress:     t.Progress,
		Error:        t.Error,
		Size:         t.Size,
		CreatedAt:    t.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:    t.UpdatedAt.UTC().Format(time.RFC3339),
		StartedAt:    formatTime(t.StartedAt),
		CompletedAt:  formatTime(t.CompletedAt),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
