package convert

import (
	"fmt"
	"strconv"

	"github.com/clipforge/clipforge/internal/config"
)

// encodeSettings are the fully resolved encode parameters: a quality preset
// with request options layered on top.
type encodeSettings struct {
	VideoCodec   string
	AudioCodec   string
	VideoBitrate string
	AudioBitrate string
	FPS          int
	Speed        string
	CRF          int
	CustomArgs   []string
}

// resolveEncodeSettings merges the named preset with per-request overrides.
// An unknown quality name falls back to medium.
func resolveEncodeSettings(quality string, opts Options) encodeSettings {
	preset, ok := config.QualityPresets[quality]
	if !ok {
		preset = config.QualityPresets["medium"]
	}

	s := encodeSettings{
		VideoCodec:   preset.VideoCodec,
		AudioCodec:   preset.AudioCodec,
		VideoBitrate: preset.VideoBitrate,
		AudioBitrate: preset.AudioBitrate,
		Speed:        preset.Speed,
		CRF:          preset.CRF,
		CustomArgs:   opts.CustomArgs,
	}
	if opts.VideoCodec != "" {
		s.VideoCodec = opts.VideoCodec
	}
	if opts.AudioCodec != "" {
		s.AudioCodec = opts.AudioCodec
	}
	if opts.VideoBitrate != "" {
		s.VideoBitrate = opts.VideoBitrate
	}
	if opts.AudioBitrate != "" {
		s.AudioBitrate = opts.AudioBitrate
	}
	if opts.FPS > 0 {
		s.FPS = opts.FPS
	}
	if opts.Speed != "" {
		s.Speed = opts.Speed
	}
	if opts.CRF > 0 {
		s.CRF = opts.CRF
	}
	return s
}

// buildArgs turns resolved settings into the ffmpeg output argument list.
// mp4 output additionally gets the streaming-friendly container layout and
// the resolved speed/CRF arguments.
func buildArgs(s encodeSettings, outputFormat string) []string {
	args := []string{
		"-c:v", s.VideoCodec,
		"-c:a", s.AudioCodec,
	}
	if s.VideoBitrate != "" {
		args = append(args, "-b:v", s.VideoBitrate)
	}
	if s.AudioBitrate != "" {
		args = append(args, "-b:a", s.AudioBitrate)
	}
	if s.FPS > 0 {
		args = append(args, "-r", strconv.Itoa(s.FPS))
	}
	args = append(args, "-f", outputFormat)
	if outputFormat == "mp4" {
		args = append(args,
			"-movflags", "faststart",
			"-preset", s.Speed,
			"-crf", strconv.Itoa(s.CRF))
	}
	args = append(args, s.CustomArgs...)
	return args
}

// outputFileName builds `{taskId}_{base}_converted.{format}`.
func outputFileName(taskID, baseName, outputFormat string) string {
	return fmt.Sprintf("%s_%s_converted.%s", taskID, baseName, outputFormat)
}
