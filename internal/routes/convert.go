package routes

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/clipforge/clipforge/internal/config"
	"github.com/clipforge/clipforge/internal/convert"
	"github.com/clipforge/clipforge/internal/upload"
)

func (d *Deps) handleConvertStart(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UploadID     string          `json:"uploadId"`
		FilePath     string          `json:"filePath"`
		OutputFormat string          `json:"outputFormat"`
		Quality      string          `json:"quality"`
		Options      convert.Options `json:"options"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, 400, "Invalid request body")
		return
	}
	if body.UploadID == "" && body.FilePath == "" {
		respondError(w, 400, "Either uploadId or filePath is required")
		return
	}

	format := defaultStr(body.OutputFormat, "mp4")
	quality := defaultStr(body.Quality, "medium")
	if !config.Contains(config.AllowedFormats, format) {
		respondError(w, 400, "Unsupported output format")
		return
	}

	inputPath := body.FilePath
	if body.UploadID != "" {
		task, ok := d.Uploads.Get(body.UploadID)
		if !ok {
			respondError(w, 404, "Upload task not found")
			return
		}
		mergedPath, status := task.MergedFile()
		if status != upload.StatusMerged {
			respondError(w, 400, fmt.Sprintf("Upload not merged yet, current status: %s", status))
			return
		}
		inputPath = mergedPath
	}

	snap, err := d.Converts.Start(inputPath, format, quality, body.Options, body.UploadID)
	if errors.Is(err, convert.ErrInputNotFound) {
		respondError(w, 404, "Input file not found")
		return
	}
	if err != nil {
		respondError(w, 500, "Failed to start conversion")
		return
	}

	respondJSON(w, 200, map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"taskId":       snap.TaskID,
			"inputPath":    snap.InputPath,
			"outputFormat": snap.OutputFormat,
			"quality":      snap.Quality,
		},
	})
}

func (d *Deps) handleConvertStatus(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskId")
	snap, ok := d.Converts.Get(taskID)
	if !ok {
		respondError(w, 404, "Convert task not found")
		return
	}
	respondJSON(w, 200, map[string]interface{}{
		"success": true,
		"data":    snap,
	})
}

func (d *Deps) handleConvertCancel(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskId")
	if err := d.Converts.Cancel(taskID); err != nil {
		respondError(w, 404, "Convert task not found")
		return
	}
	respondJSON(w, 200, map[string]interface{}{
		"success": true,
		"message": "Conversion cancelled",
	})
}

func (d *Deps) handleConvertList(w http.ResponseWriter, r *http.Request) {
	status := convert.Status(r.URL.Query().Get("status"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = config.DefaultListLimit
	}

	tasks := d.Converts.List(status, limit)
	respondJSON(w, 200, map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"tasks": tasks,
			"total": len(tasks),
		},
	})
}

func (d *Deps) handleConvertDownload(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskId")
	snap, ok := d.Converts.Get(taskID)
	if !ok {
		respondError(w, 404, "Convert task not found")
		return
	}
	if snap.Status != convert.StatusCompleted {
		respondError(w, 400, fmt.Sprintf("Conversion not completed yet, current status: %s", snap.Status))
		return
	}

	mime := config.ContainerMIMEs[snap.OutputFormat]
	if mime == "" {
		mime = "video/mp4"
	}
	streamFile(w, snap.OutputPath, filepath.Base(snap.OutputPath), mime)
}

func streamFile(w http.ResponseWriter, path, filename, mimeType string) {
	info, err := os.Stat(path)
	if err != nil {
		respondError(w, 404, "Output file not found")
		return
	}
	f, err := os.Open(path)
	if err != nil {
		respondError(w, 500, "Failed to read file")
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Length", fmt.Sprintf("%d", info.Size()))
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"; filename*=UTF-8''%s`,
		filename, url.PathEscape(filename)))
	io.Copy(w, f)
}
