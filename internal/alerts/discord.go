// Package alerts posts operational failures to a Discord webhook. Alerts
// are fire-and-forget: a failed post is logged, never surfaced to a task.
package alerts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/clipforge/clipforge/internal/config"
	"github.com/clipforge/clipforge/internal/logger"
)

var (
	mu                sync.Mutex
	categoryCooldowns = make(map[string]time.Time)
)

const (
	colorOrange = 0xFFA500
	colorRed    = 0xFF4444
	colorGreen  = 0x2ECC71
)

type embed struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Color       int     `json:"color"`
	Fields      []field `json:"fields,omitempty"`
	Timestamp   string  `json:"timestamp"`
	Footer      *footer `json:"footer,omitempty"`
}

type field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type footer struct {
	Text string `json:"text"`
}

type payload struct {
	Content string  `json:"content,omitempty"`
	Embeds  []embed `json:"embeds"`
}

func send(category string, cooldown time.Duration, ping bool, color int, title, description string, fields map[string]string) {
	if !config.DiscordAlerts || config.DiscordWebhookURL == "" {
		return
	}

	mu.Lock()
	now := time.Now()
	if cooldown > 0 {
		if last, ok := categoryCooldowns[category]; ok && now.Sub(last) < cooldown {
			mu.Unlock()
			return
		}
	}
	categoryCooldowns[category] = now
	mu.Unlock()

	var embedFields []field
	for k, v := range fields {
		if v == "" {
			continue
		}
		if len(v) > 1024 {
			v = v[:1021] + "..."
		}
		embedFields = append(embedFields, field{Name: k, Value: v, Inline: true})
	}

	p := payload{
		Embeds: []embed{{
			Title:       title,
			Description: truncate(description, 2048),
			Color:       color,
			Fields:      embedFields,
			Timestamp:   now.UTC().Format(time.RFC3339),
			Footer:      &footer{Text: "clipforge"},
		}},
	}

	if ping && config.DiscordPingUserID != "" {
		p.Content = fmt.Sprintf("<@%s>", config.DiscordPingUserID)
	}

	body, _ := json.Marshal(p)
	go func() {
		resp, err := http.Post(config.DiscordWebhookURL, "application/json", bytes.NewReader(body))
		if err != nil {
			logger.Log.Warnf("[Discord] send failed: %v", err)
			return
		}
		resp.Body.Close()
	}()
}

func ServerStarted() {
	send("server-start", 0, false, colorGreen, "Server Started",
		fmt.Sprintf("clipforge %s listening on :%s", config.Version, config.Port), nil)
}

func ServerStopping() {
	send("server-stop", 0, false, colorOrange, "Server Stopping", "clipforge is shutting down", nil)
}

func MergeFailed(uploadID string, err error) {
	send("merge", 5*time.Second, true, colorRed, "Merge Failed", err.Error(), map[string]string{
		"Upload": uploadID,
		"Error":  truncate(err.Error(), 500),
	})
}

func ConversionFailed(taskID, format string, err error) {
	send("conversion", 5*time.Second, true, colorRed, "Conversion Failed", err.Error(), map[string]string{
		"Task":   taskID,
		"Format": format,
		"Error":  truncate(err.Error(), 500),
	})
}

func SplitFailed(taskID string, err error) {
	send("split", 5*time.Second, true, colorRed, "Split Failed", err.Error(), map[string]string{
		"Task":  taskID,
		"Error": truncate(err.Error(), 500),
	})
}

func truncate(s string, maxLen int) string {
	if len(s) > maxLen {
		return s[:maxLen-3] + "..."
	}
	return s
}
