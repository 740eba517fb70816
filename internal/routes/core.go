package routes

import (
	"net/http"
	"time"
)

var startedAt = time.Now()

func (d *Deps) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, 200, map[string]interface{}{
		"status":  "ok",
		"version": "1.0.0",
		"uptime":  int(time.Since(startedAt).Seconds()),
		"tasks": map[string]int{
			"uploads":     d.Uploads.Count(),
			"conversions": d.Converts.Count(),
		},
	})
}
