// Package upload tracks chunked uploads and reassembles them into single
// files once every slice has arrived.
package upload

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clipforge/clipforge/internal/logger"
	"github.com/clipforge/clipforge/internal/registry"
	"github.com/clipforge/clipforge/internal/util"
)

var (
	ErrInvalidParameters = errors.New("fileSize and totalChunks must be positive")
	ErrUnknownUpload     = errors.New("upload task not found")
	ErrIndexOutOfRange   = errors.New("chunk index out of range")
	ErrAlreadyMerging    = errors.New("upload already merging or merged")
)

// IncompleteError reports a merge attempted before every chunk arrived.
type IncompleteError struct {
	Missing []int
}

func (e *IncompleteError) Error() string {
	parts := make([]string, len(e.Missing))
	for i, idx := range e.Missing {
		parts[i] = fmt.Sprintf("%d", idx)
	}
	return "missing chunks: " + strings.Join(parts, ", ")
}

// Assembler owns chunk staging on disk and the upload task registry.
type Assembler struct {
	tasks     *registry.Registry[*Task]
	tempDir   string
	uploadDir string
}

func NewAssembler(tempDir, uploadDir string) *Assembler {
	return &Assembler{
		tasks:     registry.New[*Task](),
		tempDir:   tempDir,
		uploadDir: uploadDir,
	}
}

func (a *Assembler) CreateUpload(fileName string, fileSize int64, totalChunks int, chunkSize int64) (*Task, error) {
	if fileName == "" || fileSize <= 0 || totalChunks <= 0 {
		return nil, ErrInvalidParameters
	}

	now := time.Now()
	task := &Task{
		ID:          uuid.New().String(),
		FileName:    fileName,
		FileSize:    fileSize,
		TotalChunks: totalChunks,
		ChunkSize:   chunkSize,
		Chunks:      make([]*Chunk, totalChunks),
		Status:      StatusUploading,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := a.tasks.Create(task.ID, task); err != nil {
		return nil, err
	}

	logger.Log.Infof("[Chunk] Upload %s created: %s (%d bytes, %d chunks)",
		logger.ShortID(task.ID), fileName, fileSize, totalChunks)
	return task, nil
}

func (a *Assembler) Get(uploadID string) (*Task, bool) {
	return a.tasks.Get(uploadID)
}

func (a *Assembler) Count() int {
	return a.tasks.Len()
}

// RecordChunk stages the chunk bytes and fills the slot for index. A repeat
// index overwrites the staged file without incrementing the uploaded count.
func (a *Assembler) RecordChunk(uploadID string, index int, data io.Reader, hash string) (Snapshot, error) {
	task, ok := a.tasks.Get(uploadID)
	if !ok {
		return Snapshot{}, ErrUnknownUpload
	}
	if index < 0 || index >= task.TotalChunks {
		return Snapshot{}, ErrIndexOutOfRange
	}

	chunkDir := filepath.Join(a.tempDir, uploadID)
	if err := os.MkdirAll(chunkDir, 0o755); err != nil {
		return Snapshot{}, fmt.Errorf("create staging dir: %w", err)
	}
	chunkPath := filepath.Join(chunkDir, fmt.Sprintf("chunk_%d", index))

	dst, err := os.Create(chunkPath)
	if err != nil {
		return Snapshot{}, fmt.Errorf("stage chunk %d: %w", index, err)
	}
	written, err := io.Copy(dst, data)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(chunkPath)
		return Snapshot{}, fmt.Errorf("stage chunk %d: %w", index, err)
	}

	a.tasks.Mutate(uploadID, func(t *Task) {
		if t.Chunks[index] == nil {
			t.Uploaded++
		}
		t.Chunks[index] = &Chunk{
			Index:      index,
			Path:       chunkPath,
			Size:       written,
			Hash:       hash,
			UploadedAt: time.Now(),
		}
	})

	snap := task.Snapshot()
	logger.Log.Debugf("[Chunk] Upload %s: chunk %d staged (%d/%d)",
		logger.ShortID(uploadID), index, snap.Uploaded, snap.TotalChunks)
	return snap, nil
}

func (a *Assembler) IsComplete(uploadID string) bool {
	task, ok := a.tasks.Get(uploadID)
	if !ok {
		return false
	}
	snap := task.Snapshot()
	return snap.Uploaded == snap.TotalChunks
}

// Merge concatenates the staged chunks strictly in index order into one
// file under the upload root. Safe against a duplicate trigger: a task no
// longer in the uploading state reports ErrAlreadyMerging instead of
// writing the file twice.
func (a *Assembler) Merge(uploadID string) (*Task, error) {
	task, ok := a.tasks.Get(uploadID)
	if !ok {
		return nil, ErrUnknownUpload
	}

	var startErr error
	var chunks []*Chunk
	a.tasks.Mutate(uploadID, func(t *Task) {
		if t.Status != StatusUploading {
			startErr = ErrAlreadyMerging
			return
		}
		var missing []int
		for i, c := range t.Chunks {
			if c == nil {
				missing = append(missing, i)
			}
		}
		if len(missing) > 0 {
			startErr = &IncompleteError{Missing: missing}
			return
		}
		t.Status = StatusMerging
		chunks = append([]*Chunk(nil), t.Chunks...)
	})
	if startErr != nil {
		return nil, startErr
	}

	logger.Log.Infof("[Chunk] Upload %s: merging %d chunks", logger.ShortID(uploadID), len(chunks))

	outputPath := filepath.Join(a.uploadDir, uploadID+"_"+util.SanitizeFilename(task.FileName))
	size, err := a.writeMerged(outputPath, chunks)
	if err != nil {
		a.tasks.Mutate(uploadID, func(t *Task) {
			t.Status = StatusFailed
			t.Error = err.Error()
		})
		// Partial output stays on disk for diagnostics.
		return nil, err
	}

	a.tasks.Mutate(uploadID, func(t *Task) {
		t.Status = StatusMerged
		t.MergedPath = outputPath
		t.MergedSize = size
	})

	a.removeStaging(uploadID)
	logger.Log.Infof("[Chunk] Upload %s merged: %s (%d bytes)", logger.ShortID(uploadID), outputPath, size)
	return task, nil
}

func (a *Assembler) writeMerged(outputPath string, chunks []*Chunk) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return 0, fmt.Errorf("create upload dir: %w", err)
	}
	out, err := os.Create(outputPath)
	if err != nil {
		return 0, fmt.Errorf("create merged file: %w", err)
	}

	var total int64
	for _, c := range chunks {
		src, err := os.Open(c.Path)
		if err != nil {
			out.Close()
			return 0, fmt.Errorf("open chunk %d: %w", c.Index, err)
		}
		n, err := io.Copy(out, src)
		src.Close()
		if err != nil {
			out.Close()
			return 0, fmt.Errorf("append chunk %d: %w", c.Index, err)
		}
		total += n
	}
	if err := out.Close(); err != nil {
		return 0, fmt.Errorf("close merged file: %w", err)
	}
	return total, nil
}

// Cancel marks the upload cancelled and drops its staging files. Calling it
// on an already-cancelled upload is a no-op.
func (a *Assembler) Cancel(uploadID string) error {
	if _, ok := a.tasks.Get(uploadID); !ok {
		return ErrUnknownUpload
	}
	a.tasks.Mutate(uploadID, func(t *Task) {
		if t.Status != StatusCancelled {
			t.Status = StatusCancelled
		}
	})
	a.removeStaging(uploadID)
	logger.Log.Infof("[Chunk] Upload %s cancelled", logger.ShortID(uploadID))
	return nil
}

// removeStaging is best-effort: a failed delete never flips task state.
func (a *Assembler) removeStaging(uploadID string) {
	chunkDir := filepath.Join(a.tempDir, uploadID)
	if err := os.RemoveAll(chunkDir); err != nil {
		logger.Log.Warnf("[Chunk] Upload %s: failed to remove staging dir: %v", logger.ShortID(uploadID), err)
	}
}

// StartSweep evicts uploads older than maxAge along with their merged file
// and staging directory. In-flight merges are left alone.
func (a *Assembler) StartSweep(interval, maxAge time.Duration) func() {
	return a.tasks.StartSweep("uploads", interval, maxAge,
		func(t *Task) bool { return t.Status != StatusMerging },
		func(id string, t *Task) { a.release(id, t) })
}

func (a *Assembler) release(id string, t *Task) {
	path, _ := t.MergedFile()
	if path != "" {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logger.Log.Warnf("[Sweep] failed to remove merged file %s: %v", path, err)
		}
	}
	a.removeStaging(id)
}

// Sweep runs a single eviction pass; the server normally uses StartSweep.
func (a *Assembler) Sweep(maxAge time.Duration) int {
	return a.tasks.Sweep(maxAge,
		func(t *Task) bool { return t.Status != StatusMerging },
		func(id string, t *Task) { a.release(id, t) })
}
