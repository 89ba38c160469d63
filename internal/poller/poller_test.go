package poller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type stamped struct {
	version int64
	label   string
}

func (s stamped) StateVersion() int64 { return s.version }

// collector records applied snapshots behind a lock since Run owns its own
// goroutine in some tests.
type collector struct {
	mu   sync.Mutex
	got  []stamped
	done chan struct{}
}

func newCollector() *collector { return &collector{done: make(chan struct{})} }

func (c *collector) apply(s stamped) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.got = append(c.got, s)
}

func (c *collector) snapshots() []stamped {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]stamped(nil), c.got...)
}

func TestFirstFetchIsImmediate(t *testing.T) {
	col := newCollector()
	p := &Poller[stamped]{
		Subject:  "test",
		Interval: time.Hour, // the ticker must not be what delivers the result
		Fetch: func(context.Context) (stamped, error) {
			return stamped{version: 1}, nil
		},
		Apply: col.apply,
		Done:  func(stamped) bool { return true },
	}
	done := make(chan struct{})
	go func() { p.Run(context.Background()); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not fetch immediately")
	}
	if got := col.snapshots(); len(got) != 1 || got[0].version != 1 {
		t.Fatalf("applied %v, want one snapshot with version 1", got)
	}
}

func TestFailedFetchKeepsGoing(t *testing.T) {
	var calls int
	col := newCollector()
	p := &Poller[stamped]{
		Subject:  "test",
		Interval: 5 * time.Millisecond,
		Fetch: func(context.Context) (stamped, error) {
			calls++
			if calls < 3 {
				return stamped{}, errors.New("backend down")
			}
			return stamped{version: int64(calls)}, nil
		},
		Apply: col.apply,
		Done:  func(stamped) bool { return true },
	}
	p.Run(context.Background())
	got := col.snapshots()
	if len(got) != 1 {
		t.Fatalf("applied %d snapshots, want 1", len(got))
	}
	if calls != 3 {
		t.Fatalf("fetch called %d times, want 3", calls)
	}
}

func TestStaleSnapshotDropped(t *testing.T) {
	results := []stamped{
		{version: 5, label: "fresh"},
		{version: 3, label: "stale"},
		{version: 6, label: "fresher"},
	}
	var i int
	col := newCollector()
	p := &Poller[stamped]{
		Subject:  "test",
		Interval: time.Millisecond,
		Fetch: func(context.Context) (stamped, error) {
			s := results[i]
			i++
			return s, nil
		},
		Apply: col.apply,
		Done:  func(s stamped) bool { return s.version == 6 },
	}
	p.Run(context.Background())
	got := col.snapshots()
	if len(got) != 2 || got[0].label != "fresh" || got[1].label != "fresher" {
		t.Fatalf("applied %v, want the stale result skipped", got)
	}
}

func TestEqualVersionStillApplied(t *testing.T) {
	// Unchanged state must be redelivered so views can re-render; only
	// strictly older versions are dropped.
	var i int
	col := newCollector()
	p := &Poller[stamped]{
		Subject:  "test",
		Interval: time.Millisecond,
		Fetch: func(context.Context) (stamped, error) {
			i++
			return stamped{version: 4}, nil
		},
		Apply: col.apply,
		Done:  func(stamped) bool { return i == 3 },
	}
	p.Run(context.Background())
	if got := col.snapshots(); len(got) != 3 {
		t.Fatalf("applied %d snapshots, want 3", len(got))
	}
}

func TestCancelDiscardsInFlightResult(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fetched := make(chan struct{})
	col := newCollector()
	p := &Poller[stamped]{
		Subject:  "test",
		Interval: time.Hour,
		Fetch: func(context.Context) (stamped, error) {
			close(fetched)
			// Simulate a response that resolves after the view went away.
			cancel()
			return stamped{version: 9}, nil
		},
		Apply: col.apply,
	}
	done := make(chan struct{})
	go func() { p.Run(ctx); close(done) }()
	<-fetched
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop after cancellation")
	}
	if got := col.snapshots(); len(got) != 0 {
		t.Fatalf("applied %v after cancellation, want nothing", got)
	}
}

func TestWakeTriggersImmediateFetch(t *testing.T) {
	wake := make(chan struct{}, 1)
	var calls int
	col := newCollector()
	p := &Poller[stamped]{
		Subject:  "test",
		Interval: time.Hour,
		Fetch: func(context.Context) (stamped, error) {
			calls++
			return stamped{version: int64(calls)}, nil
		},
		Apply: col.apply,
		Done:  func(stamped) bool { return calls == 2 },
		Wake:  wake,
	}
	done := make(chan struct{})
	go func() { p.Run(context.Background()); close(done) }()
	wake <- struct{}{}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("wake did not trigger a fetch")
	}
	if got := col.snapshots(); len(got) != 2 {
		t.Fatalf("applied %d snapshots, want 2", len(got))
	}
}
