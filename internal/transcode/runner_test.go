package transcode

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func TestParseProgress(t *testing.T) {
	cases := []struct {
		msg      string
		duration float64
		want     int
		ok       bool
	}{
		{"frame= 100 time=00:00:30.00 bitrate=...", 60, 50, true},
		{"time=00:01:00.00", 60, 100, true},
		{"time=00:02:00.00", 60, 100, true},
		{"time=01:00:00.00", 7200, 50, true},
		{"time=00:00:00.00", 60, 0, true},
		{"no progress here", 60, 0, false},
	}
	for _, tc := range cases {
		got, ok := parseProgress(tc.msg, tc.duration)
		if ok != tc.ok || got != tc.want {
			t.Errorf("parseProgress(%q, %v) = (%d, %v), want (%d, %v)",
				tc.msg, tc.duration, got, ok, tc.want, tc.ok)
		}
	}
}

// chunkReader delivers one message per Read call, the way a live stderr
// pipe hands over ffmpeg status lines.
type chunkReader struct {
	msgs []string
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if len(c.msgs) == 0 {
		return 0, io.EOF
	}
	n := copy(p, c.msgs[0])
	c.msgs = c.msgs[1:]
	return n, nil
}

func TestWatchProgressMonotonic(t *testing.T) {
	stderr := &chunkReader{msgs: []string{
		"time=00:00:10.00\n",
		"time=00:00:30.00\n",
		"time=00:00:20.00\n", // out-of-order report must be dropped
		"time=00:00:40.00\n",
	}}

	var reported []int
	watchProgress(stderr, 100, func(pct int) { reported = append(reported, pct) })

	for i := 1; i < len(reported); i++ {
		if reported[i] <= reported[i-1] {
			t.Fatalf("progress not strictly increasing: %v", reported)
		}
	}
	if len(reported) == 0 || reported[len(reported)-1] != 40 {
		t.Fatalf("reported %v, want final value 40", reported)
	}
}

func TestWatchProgressDisabledWithoutDuration(t *testing.T) {
	stderr := strings.NewReader("time=00:00:10.00\n")
	called := false
	watchProgress(stderr, 0, func(int) { called = true })
	if called {
		t.Fatal("progress must be disabled when duration is unknown")
	}
}

func TestWatchProgressReturnsTail(t *testing.T) {
	tail := watchProgress(strings.NewReader("line one\nline two\n"), 0, nil)
	if !strings.Contains(tail, "line two") {
		t.Fatalf("tail %q missing stderr text", tail)
	}
}

func TestLastStderrLine(t *testing.T) {
	fallback := errors.New("exit status 1")

	if got := lastStderrLine("first\nsecond\n\n", fallback); got != "second" {
		t.Fatalf("got %q, want last non-empty line", got)
	}
	if got := lastStderrLine("", fallback); got != "exit status 1" {
		t.Fatalf("got %q, want fallback error text", got)
	}
	long := strings.Repeat("x", 400)
	if got := lastStderrLine(long, fallback); len(got) != 300 {
		t.Fatalf("long line not truncated: %d chars", len(got))
	}
}

func TestJobKillNilProcessIsSafe(t *testing.T) {
	j := &Job{}
	j.Kill()
}
