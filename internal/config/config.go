package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

var Version = "dev"

var (
	Port    string
	EnvMode string

	// TempDir holds per-upload chunk staging directories, UploadDir holds
	// merged uploads, OutputDir holds converted files and cut segments.
	TempDir   string
	UploadDir string
	OutputDir string

	FFmpegPath  string
	FFprobePath string

	FileRetention time.Duration
	MaxChunkSize  int64

	DiscordWebhookURL string
	DiscordPingUserID string
	DiscordAlerts     bool
)

const (
	SweepInterval    = 1 * time.Hour
	MaxTotalChunks   = 10000
	FileSizeLimit    = 8 * 1024 * 1024 * 1024
	MaxSegments      = 50
	RateLimitWindow  = 60 * time.Second
	RateLimitMax     = 120
	DefaultListLimit = 50
)

// QualityPreset is a named bundle of encode defaults, overridable
// field-by-field per conversion request.
type QualityPreset struct {
	VideoBitrate string
	AudioBitrate string
	VideoCodec   string
	AudioCodec   string
	Speed        string
	CRF          int
}

var QualityPresets = map[string]QualityPreset{
	"low": {
		VideoBitrate: "500k",
		AudioBitrate: "64k",
		VideoCodec:   "libx264",
		AudioCodec:   "aac",
		Speed:        "veryfast",
		CRF:          28,
	},
	"medium": {
		VideoBitrate: "1000k",
		AudioBitrate: "128k",
		VideoCodec:   "libx264",
		AudioCodec:   "aac",
		Speed:        "medium",
		CRF:          23,
	},
	"high": {
		VideoBitrate: "2000k",
		AudioBitrate: "192k",
		VideoCodec:   "libx264",
		AudioCodec:   "aac",
		Speed:        "slow",
		CRF:          18,
	},
}

var ContainerMIMEs = map[string]string{
	"mp4":  "video/mp4",
	"webm": "video/webm",
	"mkv":  "video/x-matroska",
	"mov":  "video/quicktime",
}

var AllowedFormats = []string{"mp4", "webm", "mkv", "mov"}

func Load() {
	Port = envOrDefault("PORT", "3000")
	EnvMode = envOrDefault("ENV_MODE", "development")

	dataDir := envOrDefault("DATA_DIR", "./data")
	TempDir = envOrDefault("TEMP_DIR", filepath.Join(dataDir, "temp"))
	UploadDir = envOrDefault("UPLOAD_DIR", filepath.Join(dataDir, "uploads"))
	OutputDir = envOrDefault("OUTPUT_DIR", filepath.Join(dataDir, "output"))

	FFmpegPath = envOrDefault("FFMPEG_PATH", "ffmpeg")
	FFprobePath = envOrDefault("FFPROBE_PATH", "ffprobe")

	retentionHours, _ := strconv.Atoi(envOrDefault("FILE_RETENTION_HOURS", "24"))
	if retentionHours < 1 {
		retentionHours = 24
	}
	FileRetention = time.Duration(retentionHours) * time.Hour

	MaxChunkSize, _ = strconv.ParseInt(envOrDefault("MAX_CHUNK_SIZE", "10485760"), 10, 64)
	if MaxChunkSize <= 0 {
		MaxChunkSize = 10 * 1024 * 1024
	}

	DiscordWebhookURL = os.Getenv("DISCORD_WEBHOOK_URL")
	DiscordPingUserID = os.Getenv("DISCORD_PING_USER_ID")
	DiscordAlerts = DiscordWebhookURL != ""
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func Contains(slice []string, val string) bool {
	for _, s := range slice {
		if s == val {
			return true
		}
	}
	return false
}

// Dirs lists every directory the service owns on disk.
func Dirs() []string {
	return []string{TempDir, UploadDir, OutputDir}
}
