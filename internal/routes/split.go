package routes

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/clipforge/clipforge/internal/config"
	"github.com/clipforge/clipforge/internal/split"
)

func (d *Deps) handleSplitStart(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TaskID          string           `json:"taskId"`
		DeleteIntervals []split.Interval `json:"deleteIntervals"`
		VideoDuration   float64          `json:"videoDuration"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, 400, "Invalid request body")
		return
	}
	if body.TaskID == "" {
		respondError(w, 400, "taskId is required")
		return
	}
	if body.VideoDuration <= 0 {
		respondError(w, 400, "videoDuration must be positive")
		return
	}
	for _, iv := range body.DeleteIntervals {
		if iv.Start < 0 || iv.End <= iv.Start {
			respondError(w, 400, "Invalid delete interval")
			return
		}
	}
	if len(body.DeleteIntervals)+1 > config.MaxSegments {
		respondError(w, 400, fmt.Sprintf("Too many segments, maximum is %d", config.MaxSegments))
		return
	}

	result, err := d.Splits.Split(body.TaskID, body.DeleteIntervals, body.VideoDuration)
	switch {
	case errors.Is(err, split.ErrConvertedFileNotFound):
		respondError(w, 404, "Converted file not found")
		return
	case errors.Is(err, split.ErrNoRetainedSegments):
		respondError(w, 400, "Delete intervals cover the entire video")
		return
	case err != nil:
		respondError(w, 500, "Split failed")
		return
	}

	respondJSON(w, 200, map[string]interface{}{
		"success": true,
		"data":    result,
	})
}

func (d *Deps) handleSplitDownload(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskId")
	index, err := strconv.Atoi(chi.URLParam(r, "segmentIndex"))
	if err != nil || index < 1 {
		respondError(w, 400, "Invalid segment index")
		return
	}

	path, ok := d.Splits.SegmentPath(taskID, index)
	if !ok {
		respondError(w, 404, "Segment not found")
		return
	}
	streamFile(w, path, filepath.Base(path), "video/mp4")
}

func (d *Deps) handleSplitCleanup(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskId")
	removed := d.Splits.Cleanup(taskID)
	respondJSON(w, 200, map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"taskId":       taskID,
			"removedFiles": removed,
		},
	})
}
