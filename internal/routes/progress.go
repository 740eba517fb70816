package routes

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// progressView is the unified shape the frontend polls for both upload and
// convert tasks.
type progressView struct {
	TaskID   string  `json:"taskId"`
	Type     string  `json:"type"`
	Status   string  `json:"status"`
	Progress float64 `json:"progress"`
	Error    string  `json:"error,omitempty"`
}

func (d *Deps) lookupProgress(id string) (progressView, bool) {
	if task, ok := d.Uploads.Get(id); ok {
		snap := task.Snapshot()
		return progressView{
			TaskID:   id,
			Type:     "upload",
			Status:   string(snap.Status),
			Progress: snap.Progress,
			Error:    snap.Error,
		}, true
	}
	if snap, ok := d.Converts.Get(id); ok {
		return progressView{
			TaskID:   id,
			Type:     "convert",
			Status:   string(snap.Status),
			Progress: float64(snap.Progress),
			Error:    snap.Error,
		}, true
	}
	return progressView{}, false
}

func (d *Deps) handleProgress(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	view, ok := d.lookupProgress(id)
	if !ok {
		respondError(w, 404, "Task not found")
		return
	}
	respondJSON(w, 200, map[string]interface{}{
		"success": true,
		"data":    view,
	})
}

// handleProgressBatch resolves a comma-separated id list in one call.
// Unknown ids come back as not_found entries instead of failing the batch.
func (d *Deps) handleProgressBatch(w http.ResponseWriter, r *http.Request) {
	idsParam := r.URL.Query().Get("ids")
	if idsParam == "" {
		respondError(w, 400, "ids query parameter is required")
		return
	}

	var views []progressView
	for _, id := range strings.Split(idsParam, ",") {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		view, ok := d.lookupProgress(id)
		if !ok {
			view = progressView{TaskID: id, Status: "not_found"}
		}
		views = append(views, view)
	}

	respondJSON(w, 200, map[string]interface{}{
		"success": true,
		"data":    views,
	})
}
