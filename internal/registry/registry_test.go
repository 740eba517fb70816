package registry

import (
	"errors"
	"sync"
	"testing"
	"time"
)

type testRecord struct {
	mu        sync.Mutex
	createdAt time.Time
	updatedAt time.Time
	value     int
	done      bool
}

func (r *testRecord) Lock()                  { r.mu.Lock() }
func (r *testRecord) Unlock()                { r.mu.Unlock() }
func (r *testRecord) Touch(now time.Time)    { r.updatedAt = now }
func (r *testRecord) CreatedTime() time.Time { return r.createdAt }

func TestCreateRejectsDuplicateID(t *testing.T) {
	r := New[*testRecord]()
	rec := &testRecord{createdAt: time.Now()}

	if err := r.Create("a", rec); err != nil {
		t.Fatal(err)
	}
	if err := r.Create("a", &testRecord{createdAt: time.Now()}); !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
	if r.Len() != 1 {
		t.Fatalf("len %d, want 1", r.Len())
	}
}

func TestGetAbsent(t *testing.T) {
	r := New[*testRecord]()
	if _, ok := r.Get("missing"); ok {
		t.Fatal("expected absent record")
	}
}

func TestMutateStampsUpdateTime(t *testing.T) {
	r := New[*testRecord]()
	rec := &testRecord{createdAt: time.Now()}
	if err := r.Create("a", rec); err != nil {
		t.Fatal(err)
	}

	before := rec.updatedAt
	if !r.Mutate("a", func(tr *testRecord) { tr.value = 7 }) {
		t.Fatal("mutate returned false for existing id")
	}
	if rec.value != 7 {
		t.Fatalf("value %d, want 7", rec.value)
	}
	if !rec.updatedAt.After(before) {
		t.Fatal("updatedAt not stamped")
	}
	if r.Mutate("missing", func(tr *testRecord) {}) {
		t.Fatal("mutate should return false for unknown id")
	}
}

func TestAllNewestFirst(t *testing.T) {
	r := New[*testRecord]()
	base := time.Now()
	for i, id := range []string{"old", "mid", "new"} {
		if err := r.Create(id, &testRecord{createdAt: base.Add(time.Duration(i) * time.Minute), value: i}); err != nil {
			t.Fatal(err)
		}
	}

	all := r.All()
	if len(all) != 3 {
		t.Fatalf("len %d, want 3", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].createdAt.After(all[i-1].createdAt) {
			t.Fatal("records not sorted newest-first")
		}
	}
}

func TestSweepAgeAndEligibility(t *testing.T) {
	r := New[*testRecord]()
	old := &testRecord{createdAt: time.Now().Add(-2 * time.Hour)}
	oldBusy := &testRecord{createdAt: time.Now().Add(-2 * time.Hour), done: false}
	fresh := &testRecord{createdAt: time.Now()}
	old.done = true

	r.Create("old", old)
	r.Create("busy", oldBusy)
	r.Create("fresh", fresh)

	var released []string
	swept := r.Sweep(time.Hour,
		func(tr *testRecord) bool { return tr.done },
		func(id string, tr *testRecord) { released = append(released, id) })

	if swept != 1 {
		t.Fatalf("swept %d, want 1", swept)
	}
	if len(released) != 1 || released[0] != "old" {
		t.Fatalf("released %v, want [old]", released)
	}
	if _, ok := r.Get("old"); ok {
		t.Fatal("old record should be deleted")
	}
	if _, ok := r.Get("busy"); !ok {
		t.Fatal("ineligible record should survive")
	}
	if _, ok := r.Get("fresh"); !ok {
		t.Fatal("fresh record should survive")
	}
}

func TestStartSweepStops(t *testing.T) {
	r := New[*testRecord]()
	r.Create("old", &testRecord{createdAt: time.Now().Add(-time.Hour), done: true})

	stop := r.StartSweep("test", 10*time.Millisecond, time.Minute,
		func(tr *testRecord) bool { return tr.done }, nil)

	time.Sleep(30 * time.Millisecond)
	stop()

	// Record is younger than maxAge, so the ticker passes must leave it.
	if _, ok := r.Get("old"); !ok {
		t.Fatal("record inside retention window was evicted")
	}
}
