package convert

import (
	"strings"
	"testing"
)

func argsContainPair(args []string, flag, value string) bool {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag && args[i+1] == value {
			return true
		}
	}
	return false
}

func TestResolveEncodeSettingsUnknownQualityFallsBackToMedium(t *testing.T) {
	s := resolveEncodeSettings("ultra", Options{})
	if s.VideoBitrate != "1000k" || s.CRF != 23 || s.Speed != "medium" {
		t.Fatalf("unknown quality should resolve to the medium preset, got %+v", s)
	}
}

func TestResolveEncodeSettingsPresets(t *testing.T) {
	low := resolveEncodeSettings("low", Options{})
	if low.VideoBitrate != "500k" || low.AudioBitrate != "64k" || low.CRF != 28 || low.Speed != "veryfast" {
		t.Fatalf("low preset wrong: %+v", low)
	}
	high := resolveEncodeSettings("high", Options{})
	if high.VideoBitrate != "2000k" || high.AudioBitrate != "192k" || high.CRF != 18 || high.Speed != "slow" {
		t.Fatalf("high preset wrong: %+v", high)
	}
	if low.VideoCodec != "libx264" || low.AudioCodec != "aac" {
		t.Fatalf("codec defaults wrong: %+v", low)
	}
}

func TestResolveEncodeSettingsOverrides(t *testing.T) {
	s := resolveEncodeSettings("medium", Options{
		VideoCodec:   "libx265",
		VideoBitrate: "3000k",
		FPS:          30,
		CRF:          20,
	})
	if s.VideoCodec != "libx265" {
		t.Fatalf("video codec override lost: %+v", s)
	}
	if s.VideoBitrate != "3000k" {
		t.Fatalf("bitrate override lost: %+v", s)
	}
	if s.FPS != 30 {
		t.Fatalf("fps override lost: %+v", s)
	}
	if s.CRF != 20 {
		t.Fatalf("crf override lost: %+v", s)
	}
	// Untouched fields keep the preset values.
	if s.AudioCodec != "aac" || s.AudioBitrate != "128k" || s.Speed != "medium" {
		t.Fatalf("preset fields changed unexpectedly: %+v", s)
	}
}

func TestResolveEncodeSettingsZeroValuesDoNotOverride(t *testing.T) {
	s := resolveEncodeSettings("medium", Options{FPS: 0, CRF: 0})
	if s.FPS != 0 {
		t.Fatalf("fps should stay unset: %+v", s)
	}
	if s.CRF != 23 {
		t.Fatalf("zero CRF must not override the preset: %+v", s)
	}
}

func TestBuildArgsMP4(t *testing.T) {
	s := resolveEncodeSettings("medium", Options{})
	args := buildArgs(s, "mp4")

	for _, pair := range [][2]string{
		{"-c:v", "libx264"},
		{"-c:a", "aac"},
		{"-b:v", "1000k"},
		{"-b:a", "128k"},
		{"-f", "mp4"},
		{"-movflags", "faststart"},
		{"-preset", "medium"},
		{"-crf", "23"},
	} {
		if !argsContainPair(args, pair[0], pair[1]) {
			t.Fatalf("args missing %s %s: %v", pair[0], pair[1], args)
		}
	}
}

func TestBuildArgsNonMP4SkipsContainerTuning(t *testing.T) {
	s := resolveEncodeSettings("medium", Options{})
	args := buildArgs(s, "webm")

	joined := strings.Join(args, " ")
	if strings.Contains(joined, "-movflags") || strings.Contains(joined, "-preset") || strings.Contains(joined, "-crf") {
		t.Fatalf("webm output should not carry mp4 tuning: %v", args)
	}
	if !argsContainPair(args, "-f", "webm") {
		t.Fatalf("missing container flag: %v", args)
	}
}

func TestBuildArgsFPSAndCustomArgs(t *testing.T) {
	s := resolveEncodeSettings("medium", Options{FPS: 24, CustomArgs: []string{"-vf", "scale=1280:720"}})
	args := buildArgs(s, "mp4")

	if !argsContainPair(args, "-r", "24") {
		t.Fatalf("missing fps flag: %v", args)
	}
	if !argsContainPair(args, "-vf", "scale=1280:720") {
		t.Fatalf("custom args not appended: %v", args)
	}
	if args[len(args)-2] != "-vf" {
		t.Fatalf("custom args should come last: %v", args)
	}
}

func TestOutputFileName(t *testing.T) {
	got := outputFileName("abc123", "holiday clip", "mp4")
	if got != "abc123_holiday clip_converted.mp4" {
		t.Fatalf("got %q", got)
	}
}
