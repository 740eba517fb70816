package routes

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/clipforge/clipforge/internal/alerts"
	"github.com/clipforge/clipforge/internal/config"
	"github.com/clipforge/clipforge/internal/logger"
	"github.com/clipforge/clipforge/internal/upload"
)

func (d *Deps) handleUploadInit(w http.ResponseWriter, r *http.Request) {
	var body struct {
		FileName    string      `json:"fileName"`
		FileSize    json.Number `json:"fileSize"`
		TotalChunks int         `json:"totalChunks"`
		ChunkSize   json.Number `json:"chunkSize"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, 400, "Invalid request body")
		return
	}

	fileSize, _ := body.FileSize.Int64()
	chunkSize, _ := body.ChunkSize.Int64()
	if body.TotalChunks > config.MaxTotalChunks {
		respondError(w, 400, "Too many chunks")
		return
	}
	if fileSize > config.FileSizeLimit {
		respondError(w, 400, "File too large")
		return
	}

	task, err := d.Uploads.CreateUpload(body.FileName, fileSize, body.TotalChunks, chunkSize)
	if err != nil {
		respondError(w, 400, "Missing or invalid fileName, fileSize, or totalChunks")
		return
	}

	snap := task.Snapshot()
	respondJSON(w, 200, map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"uploadId":    snap.UploadID,
			"fileName":    snap.FileName,
			"totalChunks": snap.TotalChunks,
		},
	})
}

func (d *Deps) handleUploadChunk(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, config.MaxChunkSize+1024*1024)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		respondError(w, 400, "Failed to parse chunk upload")
		return
	}

	uploadID := r.FormValue("uploadId")
	indexStr := r.FormValue("chunkIndex")
	hash := r.FormValue("chunkHash")
	if uploadID == "" || indexStr == "" {
		respondError(w, 400, "Missing uploadId or chunkIndex")
		return
	}
	index, err := strconv.Atoi(indexStr)
	if err != nil {
		respondError(w, 400, "Invalid chunkIndex")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		respondError(w, 400, "No chunk data")
		return
	}
	defer file.Close()

	snap, err := d.Uploads.RecordChunk(uploadID, index, file, hash)
	switch {
	case errors.Is(err, upload.ErrUnknownUpload):
		respondError(w, 404, "Upload task not found")
		return
	case errors.Is(err, upload.ErrIndexOutOfRange):
		respondError(w, 400, "Chunk index out of range")
		return
	case err != nil:
		respondError(w, 500, "Failed to save chunk")
		return
	}

	isComplete := snap.Uploaded == snap.TotalChunks
	respondJSON(w, 200, map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"uploadId":       uploadID,
			"chunkIndex":     index,
			"uploadedChunks": snap.Uploaded,
			"totalChunks":    snap.TotalChunks,
			"isComplete":     isComplete,
		},
	})

	// Last chunk triggers the merge off the request path; the client polls
	// the upload status for the outcome.
	if isComplete {
		go func() {
			if _, err := d.Uploads.Merge(uploadID); err != nil {
				if errors.Is(err, upload.ErrAlreadyMerging) {
					return
				}
				logger.Log.Errorf("[Chunk] Upload %s: merge failed: %v", logger.ShortID(uploadID), err)
				alerts.MergeFailed(uploadID, err)
			}
		}()
	}
}

func (d *Deps) handleUploadStatus(w http.ResponseWriter, r *http.Request) {
	uploadID := chi.URLParam(r, "uploadId")
	task, ok := d.Uploads.Get(uploadID)
	if !ok {
		respondError(w, 404, "Upload task not found")
		return
	}
	respondJSON(w, 200, map[string]interface{}{
		"success": true,
		"data":    task.Snapshot(),
	})
}

func (d *Deps) handleUploadCancel(w http.ResponseWriter, r *http.Request) {
	uploadID := chi.URLParam(r, "uploadId")
	if err := d.Uploads.Cancel(uploadID); err != nil {
		respondError(w, 404, "Upload task not found")
		return
	}
	respondJSON(w, 200, map[string]interface{}{
		"success": true,
		"message": "Upload cancelled",
	})
}
