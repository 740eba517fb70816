package upload

import (
	"sync"
	"time"
)

type Status string

const (
	StatusUploading Status = "uploading"
	StatusMerging   Status = "merging"
	StatusMerged    Status = "merged"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Chunk records one staged slice of an upload. The staged file on disk
// belongs to the assembler until merge consumes it or cancel removes it.
type Chunk struct {
	Index      int       `json:"index"`
	Path       string    `json:"-"`
	Size       int64     `json:"size"`
	Hash       string    `json:"hash,omitempty"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// Task tracks one chunked upload. The Chunks slice is sized at creation and
// never resized; a slot is filled at most once per index, with a duplicate
// index overwriting the staged bytes (last write wins, counted once).
type Task struct {
	mu sync.Mutex

	ID          string
	FileName    string
	FileSize    int64
	TotalChunks int
	ChunkSize   int64
	Chunks      []*Chunk
	Uploaded    int
	Status      Status
	Error       string
	MergedPath  string
	MergedSize  int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (t *Task) Lock()              { t.mu.Lock() }
func (t *Task) Unlock()            { t.mu.Unlock() }
func (t *Task) Touch(now time.Time) { t.UpdatedAt = now }
func (t *Task) CreatedTime() time.Time {
	return t.CreatedAt
}

// Snapshot is the externally visible view of an upload task.
type Snapshot struct {
	UploadID    string  `json:"uploadId"`
	FileName    string  `json:"fileName"`
	FileSize    int64   `json:"fileSize"`
	TotalChunks int     `json:"totalChunks"`
	Uploaded    int     `json:"uploadedChunks"`
	Status      Status  `json:"status"`
	Progress    float64 `json:"progress"`
	Error       string  `json:"error,omitempty"`
	MergedPath  string  `json:"mergedPath,omitempty"`
	MergedSize  int64   `json:"mergedSize,omitempty"`
	CreatedAt   string  `json:"createdAt"`
	UpdatedAt   string  `json:"updatedAt"`
}

func (t *Task) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	progress := 0.0
	if t.TotalChunks > 0 {
		progress = float64(t.Uploaded) / float64(t.TotalChunks) * 100
	}
	return Snapshot{
		UploadID:    t.ID,
		FileName:    t.FileName,
		FileSize:    t.FileSize,
		TotalChunks: t.TotalChunks,
		Uploaded:    t.Uploaded,
		Status:      t.Status,
		Progress:    progress,
		Error:       t.Error,
		MergedPath:  t.MergedPath,
		MergedSize:  t.MergedSize,
		CreatedAt:   t.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   t.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// MergedFile returns the merged output path if the upload reached the
// merged state.
func (t *Task) MergedFile() (string, Status) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.MergedPath, t.Status
}
