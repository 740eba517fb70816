package convert

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/clipforge/clipforge/internal/transcode"
)

func newTestOrchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	return NewOrchestrator(transcode.NewRunner("ffmpeg"), transcode.NewProber("ffprobe"), t.TempDir())
}

func seedTask(t *testing.T, o *Orchestrator, id string, status Status, createdAt time.Time) *Task {
	t.Helper()
	task := &Task{
		ID:           id,
		InputPath:    "/in/" + id,
		OutputPath:   "/out/" + id,
		OutputFormat: "mp4",
		Quality:      "medium",
		Status:       status,
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}
	if err := o.tasks.Create(id, task); err != nil {
		t.Fatal(err)
	}
	return task
}

func TestStartRejectsMissingInput(t *testing.T) {
	o := newTestOrchestrator(t)
	_, err := o.Start("/does/not/exist.mp4", "mp4", "medium", Options{}, "")
	if !errors.Is(err, ErrInputNotFound) {
		t.Fatalf("expected ErrInputNotFound, got %v", err)
	}
	if o.Count() != 0 {
		t.Fatal("no task should be registered for a missing input")
	}
}

func TestGetAndCancelUnknownTask(t *testing.T) {
	o := newTestOrchestrator(t)
	if _, ok := o.Get("nope"); ok {
		t.Fatal("expected absent task")
	}
	if err := o.Cancel("nope"); !errors.Is(err, ErrUnknownTask) {
		t.Fatalf("expected ErrUnknownTask, got %v", err)
	}
}

func TestCancelMarksTaskAndRemovesOutput(t *testing.T) {
	o := newTestOrchestrator(t)
	out, err := os.CreateTemp(t.TempDir(), "partial")
	if err != nil {
		t.Fatal(err)
	}
	out.Close()

	task := seedTask(t, o, "t1", StatusProcessing, time.Now())
	task.OutputPath = out.Name()

	if err := o.Cancel("t1"); err != nil {
		t.Fatal(err)
	}
	snap, _ := o.Get("t1")
	if snap.Status != StatusCancelled {
		t.Fatalf("status %s, want cancelled", snap.Status)
	}
	if _, err := os.Stat(out.Name()); !os.IsNotExist(err) {
		t.Fatal("partial output should be removed on cancel")
	}
}

func TestListNewestFirstFilteredAndCapped(t *testing.T) {
	o := newTestOrchestrator(t)
	base := time.Now()
	seedTask(t, o, "a", StatusCompleted, base)
	seedTask(t, o, "b", StatusFailed, base.Add(time.Minute))
	seedTask(t, o, "c", StatusCompleted, base.Add(2*time.Minute))
	seedTask(t, o, "d", StatusProcessing, base.Add(3*time.Minute))

	all := o.List("", 50)
	if len(all) != 4 {
		t.Fatalf("len %d, want 4", len(all))
	}
	if all[0].TaskID != "d" || all[3].TaskID != "a" {
		t.Fatalf("not newest-first: %v", []string{all[0].TaskID, all[1].TaskID, all[2].TaskID, all[3].TaskID})
	}

	completed := o.List(StatusCompleted, 50)
	if len(completed) != 2 || completed[0].TaskID != "c" || completed[1].TaskID != "a" {
		t.Fatalf("filter wrong: %+v", completed)
	}

	capped := o.List("", 2)
	if len(capped) != 2 || capped[0].TaskID != "d" {
		t.Fatalf("limit wrong: %+v", capped)
	}
}

func TestSweepSkipsActiveTasks(t *testing.T) {
	o := newTestOrchestrator(t)
	old := time.Now().Add(-2 * time.Hour)
	seedTask(t, o, "done", StatusCompleted, old)
	seedTask(t, o, "live", StatusProcessing, old)

	if n := o.Sweep(time.Hour); n != 1 {
		t.Fatalf("swept %d, want 1", n)
	}
	if _, ok := o.Get("done"); ok {
		t.Fatal("terminal task should be evicted")
	}
	if _, ok := o.Get("live"); !ok {
		t.Fatal("processing task must never be evicted")
	}
}

func TestStatusTerminal(t *testing.T) {
	for status, want := range map[Status]bool{
		StatusPending:    false,
		StatusProcessing: false,
		StatusCompleted:  true,
		StatusFailed:     true,
		StatusCancelled:  true,
	} {
		if status.Terminal() != want {
			t.Errorf("%s: Terminal() = %v, want %v", status, status.Terminal(), want)
		}
	}
}
