// Package routes wires the HTTP API to the upload, convert and split
// subsystems. Handlers validate, delegate and shape JSON; the work happens
// in the orchestration packages.
package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/clipforge/clipforge/internal/convert"
	"github.com/clipforge/clipforge/internal/split"
	"github.com/clipforge/clipforge/internal/upload"
)

type Deps struct {
	Uploads  *upload.Assembler
	Converts *convert.Orchestrator
	Splits   *split.Orchestrator
}

func Register(r chi.Router, d *Deps) {
	r.Get("/health", d.handleHealth)

	r.Post("/api/upload/init", d.handleUploadInit)
	r.Post("/api/upload/chunk", d.handleUploadChunk)
	r.Get("/api/upload/status/{uploadId}", d.handleUploadStatus)
	r.Post("/api/upload/cancel/{uploadId}", d.handleUploadCancel)

	r.Post("/api/convert/start", d.handleConvertStart)
	r.Get("/api/convert/status/{taskId}", d.handleConvertStatus)
	r.Post("/api/convert/cancel/{taskId}", d.handleConvertCancel)
	r.Get("/api/convert/list", d.handleConvertList)
	r.Get("/api/convert/download/{taskId}", d.handleConvertDownload)

	r.Post("/api/split/start", d.handleSplitStart)
	r.Get("/api/split/download/{taskId}/{segmentIndex}", d.handleSplitDownload)
	r.Delete("/api/split/cleanup/{taskId}", d.handleSplitCleanup)

	r.Get("/api/progress/batch", d.handleProgressBatch)
	r.Get("/api/progress/{id}", d.handleProgress)
}
