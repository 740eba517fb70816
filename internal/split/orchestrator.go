package split

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/clipforge/clipforge/internal/alerts"
	"github.com/clipforge/clipforge/internal/logger"
	"github.com/clipforge/clipforge/internal/transcode"
)

var (
	ErrConvertedFileNotFound = errors.New("converted file not found")
	ErrNoRetainedSegments    = errors.New("no retained segments: delete intervals cover the whole timeline")
)

const convertedSuffix = "_converted.mp4"

// SegmentResult describes one cut segment file.
type SegmentResult struct {
	SegmentIndex int     `json:"segmentIndex"`
	FileName     string  `json:"fileName"`
	Size         int64   `json:"size"`
	Start        float64 `json:"start"`
	End          float64 `json:"end"`
}

// Result is the outcome of a full split run.
type Result struct {
	TaskID        string          `json:"taskId"`
	TotalSegments int             `json:"totalSegments"`
	Segments      []SegmentResult `json:"segments"`
}

// Orchestrator cuts a converted file into its retained segments. Cutting is
// sequential per task: ffmpeg runs once per segment, never concurrently for
// the same input.
type Orchestrator struct {
	runner    *transcode.Runner
	outputDir string
}

func NewOrchestrator(runner *transcode.Runner, outputDir string) *Orchestrator {
	return &Orchestrator{runner: runner, outputDir: outputDir}
}

// Split cuts the converted file belonging to taskID into the segments that
// survive the delete intervals. Each segment is a stream copy, no
// re-encode. On full success the source file is deleted; a segment failure
// aborts the rest and leaves already-cut files for Cleanup.
func (o *Orchestrator) Split(taskID string, deletes []Interval, duration float64) (*Result, error) {
	convertedFile, err := o.findConvertedFile(taskID)
	if err != nil {
		return nil, err
	}
	inputPath := filepath.Join(o.outputDir, convertedFile)

	segments := RetainedSegments(duration, deletes)
	if len(segments) == 0 {
		return nil, ErrNoRetainedSegments
	}

	logger.Log.Infof("[Split] Task %s: cutting %s into %d segments",
		logger.ShortID(taskID), convertedFile, len(segments))

	baseName := strings.TrimSuffix(convertedFile, convertedSuffix)
	results := make([]SegmentResult, 0, len(segments))

	for i, seg := range segments {
		index := i + 1
		fileName := fmt.Sprintf("%s_part%d.mp4", baseName, index)
		outputPath := filepath.Join(o.outputDir, fileName)

		logger.Log.Infof("[Split] Task %s: segment %d/%d (%.3fs - %.3fs)",
			logger.ShortID(taskID), index, len(segments), seg.Start, seg.End)

		if err := o.cutSegment(inputPath, outputPath, seg); err != nil {
			logger.Log.Errorf("[Split] Task %s: segment %d failed: %v", logger.ShortID(taskID), index, err)
			alerts.SplitFailed(taskID, err)
			return nil, fmt.Errorf("segment %d: %w", index, err)
		}

		info, err := os.Stat(outputPath)
		if err != nil {
			return nil, fmt.Errorf("segment %d: %w", index, err)
		}
		results = append(results, SegmentResult{
			SegmentIndex: index,
			FileName:     fileName,
			Size:         info.Size(),
			Start:        seg.Start,
			End:          seg.End,
		})
	}

	// Source is no longer needed once every segment exists.
	if err := os.Remove(inputPath); err != nil && !os.IsNotExist(err) {
		logger.Log.Warnf("[Split] Task %s: failed to remove source %s: %v",
			logger.ShortID(taskID), inputPath, err)
	}

	logger.Log.Infof("[Split] Task %s: done, %d segments", logger.ShortID(taskID), len(results))
	return &Result{TaskID: taskID, TotalSegments: len(results), Segments: results}, nil
}

// cutSegment trims [seg.Start, seg.End) with stream copy. The seek offset
// goes before -i so ffmpeg jumps instead of decoding up to the start.
func (o *Orchestrator) cutSegment(inputPath, outputPath string, seg Interval) error {
	return o.runner.Run(transcode.Spec{
		InputPath:  inputPath,
		OutputPath: outputPath,
		InputArgs:  []string{"-ss", fmt.Sprintf("%.3f", seg.Start)},
		OutputArgs: []string{
			"-t", fmt.Sprintf("%.3f", seg.End-seg.Start),
			"-c", "copy",
			"-f", "mp4",
			"-movflags", "+faststart",
			"-avoid_negative_ts", "1",
		},
	})
}

// SegmentPath resolves the file for one 1-based segment index.
func (o *Orchestrator) SegmentPath(taskID string, segmentIndex int) (string, bool) {
	entries, err := os.ReadDir(o.outputDir)
	if err != nil {
		return "", false
	}
	marker := fmt.Sprintf("_part%d.mp4", segmentIndex)
	for _, e := range entries {
		if strings.Contains(e.Name(), taskID) && strings.HasSuffix(e.Name(), marker) {
			return filepath.Join(o.outputDir, e.Name()), true
		}
	}
	return "", false
}

// Cleanup removes every segment file cut for taskID, matched by the
// filename convention. Per-file failures are logged and swallowed.
func (o *Orchestrator) Cleanup(taskID string) int {
	entries, err := os.ReadDir(o.outputDir)
	if err != nil {
		logger.Log.Warnf("[Split] Cleanup %s: read output dir: %v", logger.ShortID(taskID), err)
		return 0
	}
	removed := 0
	for _, e := range entries {
		name := e.Name()
		if !strings.Contains(name, taskID) || !strings.Contains(name, "_part") || !strings.HasSuffix(name, ".mp4") {
			continue
		}
		if err := os.Remove(filepath.Join(o.outputDir, name)); err != nil {
			logger.Log.Warnf("[Split] Cleanup %s: remove %s: %v", logger.ShortID(taskID), name, err)
			continue
		}
		logger.Log.Infof("[Split] Cleanup %s: removed %s", logger.ShortID(taskID), name)
		removed++
	}
	return removed
}

func (o *Orchestrator) findConvertedFile(taskID string) (string, error) {
	entries, err := os.ReadDir(o.outputDir)
	if err != nil {
		return "", fmt.Errorf("read output dir: %w", err)
	}
	for _, e := range entries {
		name := e.Name()
		if strings.Contains(name, taskID) && strings.HasSuffix(name, convertedSuffix) {
			return name, nil
		}
	}
	return "", ErrConvertedFileNotFound
}
