// Package registry provides the shared in-memory task store. Records are
// volatile: they live until a sweep evicts them, never in a database.
package registry

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/clipforge/clipforge/internal/logger"
)

var ErrDuplicateID = errors.New("task id already exists")

// Record is implemented by every task type stored in a Registry. Records
// carry their own mutex so that polling one task never blocks mutation of
// another; Lock/Unlock guard only memory field updates, file I/O happens
// outside the critical section.
type Record interface {
	Lock()
	Unlock()
	Touch(now time.Time)
	CreatedTime() time.Time
}

type Registry[T Record] struct {
	mu      sync.RWMutex
	records map[string]T
}

func New[T Record]() *Registry[T] {
	return &Registry[T]{records: make(map[string]T)}
}

func (r *Registry[T]) Create(id string, rec T) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.records[id]; exists {
		return ErrDuplicateID
	}
	r.records[id] = rec
	return nil
}

// Get returns the record and whether it exists; a missing id is not an
// error, callers distinguish absent from failed themselves.
func (r *Registry[T]) Get(id string) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	return rec, ok
}

// Mutate applies fn under the record's own lock and stamps the update time.
// Returns false when the id is unknown.
func (r *Registry[T]) Mutate(id string, fn func(T)) bool {
	r.mu.RLock()
	rec, ok := r.records[id]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	rec.Lock()
	fn(rec)
	rec.Touch(time.Now())
	rec.Unlock()
	return true
}

func (r *Registry[T]) Delete(id string) {
	r.mu.Lock()
	delete(r.records, id)
	r.mu.Unlock()
}

func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// All returns the records sorted newest-created-first.
func (r *Registry[T]) All() []T {
	r.mu.RLock()
	out := make([]T, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedTime().After(out[j].CreatedTime())
	})
	return out
}

// Sweep deletes records older than maxAge whose current state satisfies
// eligible. release runs before removal so a record's files are reclaimed
// first; it is called outside the map lock.
func (r *Registry[T]) Sweep(maxAge time.Duration, eligible func(T) bool, release func(id string, rec T)) int {
	cutoff := time.Now().Add(-maxAge)

	r.mu.RLock()
	candidates := make(map[string]T, len(r.records))
	for id, rec := range r.records {
		candidates[id] = rec
	}
	r.mu.RUnlock()

	swept := 0
	for id, rec := range candidates {
		rec.Lock()
		old := rec.CreatedTime().Before(cutoff)
		ok := old && (eligible == nil || eligible(rec))
		rec.Unlock()
		if !ok {
			continue
		}
		if release != nil {
			release(id, rec)
		}
		r.Delete(id)
		swept++
	}
	return swept
}

// StartSweep runs Sweep on a fixed interval until the returned stop
// function is called.
func (r *Registry[T]) StartSweep(name string, interval, maxAge time.Duration, eligible func(T) bool, release func(id string, rec T)) func() {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := r.Sweep(maxAge, eligible, release); n > 0 {
					logger.Log.Infof("[Sweep] %s: evicted %d expired tasks", name, n)
				}
			case <-done:
				return
			}
		}
	}()
	return func() { close(done) }
}
