package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shakemap/shakemapd/overlay"
	"github.com/shakemap/shakemapd/quake"
)

// stubSource counts calls and can fail or stall on demand.
type stubSource struct {
	mu    sync.Mutex
	calls int
	meta  quake.Meta
	err   error
	delay time.Duration
}

func (s *stubSource) Latest(ctx context.Context) (quake.Meta, error) {
	s.mu.Lock()
	s.calls++
	meta, err, delay := s.meta, s.err, s.delay
	s.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return quake.Meta{}, err
	}
	return meta, nil
}

func (s *stubSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *stubSource) set(meta quake.Meta, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meta, s.err = meta, err
}

// stubComputer wraps metadata into a result, optionally failing.
type stubComputer struct {
	calls atomic.Int64
	err   error
}

func (c *stubComputer) FromEvent(meta quake.Meta) (*overlay.Result, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return &overlay.Result{Meta: meta, Source: overlay.SourceFeed}, nil
}

func bangkokMeta() quake.Meta {
	return quake.MetaAt(time.Date(2026, 3, 28, 6, 20, 52, 0, time.UTC), 13.75, 100.5, 10, 5.0)
}

func newTestStore(src *stubSource, comp *stubComputer, policy Policy) *Store {
	return NewStore(StoreConfig{Source: src, Computer: comp, Policy: policy})
}

func TestStore_GetOrCompute_ColdMissComputesExactlyOnce(t *testing.T) {
	src := &stubSource{meta: bangkokMeta(), delay: 50 * time.Millisecond}
	comp := &stubComputer{}
	store := newTestStore(src, comp, Policy{})

	const numCallers = 50

	var wg sync.WaitGroup
	results := make([]*overlay.Result, numCallers)
	errs := make([]error, numCallers)

	for i := 0; i < numCallers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = store.GetOrCompute(context.Background(), false)
		}(i)
	}
	wg.Wait()

	for i := 0; i < numCallers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d failed: %v", i, errs[i])
		}
		if results[i] != results[0] {
			t.Fatalf("caller %d got a different result", i)
		}
	}

	if got := src.callCount(); got != 1 {
		t.Errorf("source calls = %d, want 1", got)
	}
	if got := comp.calls.Load(); got != 1 {
		t.Errorf("computer calls = %d, want 1", got)
	}
}

func TestStore_GetOrCompute_WarmHitSkipsPipeline(t *testing.T) {
	src := &stubSource{meta: bangkokMeta()}
	comp := &stubComputer{}
	store := newTestStore(src, comp, Policy{})
	ctx := context.Background()

	first, err := store.GetOrCompute(ctx, false)
	if err != nil {
		t.Fatalf("GetOrCompute failed: %v", err)
	}

	for i := 0; i < 10; i++ {
		res, err := store.GetOrCompute(ctx, false)
		if err != nil {
			t.Fatalf("warm GetOrCompute failed: %v", err)
		}
		if res != first {
			t.Fatal("warm hit should return the stored result")
		}
	}

	if got := src.callCount(); got != 1 {
		t.Errorf("source calls = %d, want 1", got)
	}
}

func TestStore_GetOrCompute_ForceAlwaysRecomputes(t *testing.T) {
	src := &stubSource{meta: bangkokMeta()}
	comp := &stubComputer{}
	store := newTestStore(src, comp, Policy{})
	ctx := context.Background()

	base := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	now := base
	store.now = func() time.Time { return now }

	if _, err := store.GetOrCompute(ctx, false); err != nil {
		t.Fatalf("GetOrCompute failed: %v", err)
	}
	before := store.Peek()

	// The feed now carries a newer event.
	newer := quake.MetaAt(time.Date(2026, 3, 28, 9, 0, 0, 0, time.UTC), 18.79, 98.98, 5, 4.2)
	src.set(newer, nil)
	now = base.Add(time.Minute)

	res, err := store.GetOrCompute(ctx, true)
	if err != nil {
		t.Fatalf("forced GetOrCompute failed: %v", err)
	}
	if res.Meta != newer {
		t.Errorf("forced result meta = %+v, want the newer event", res.Meta)
	}

	after := store.Peek()
	if after.EventKey == before.EventKey {
		t.Error("Peek should reflect the new event key after a forced refresh")
	}
	if !after.StoredAt.After(before.StoredAt) {
		t.Error("Peek should reflect a newer timestamp after a forced refresh")
	}
	if got := src.callCount(); got != 2 {
		t.Errorf("source calls = %d, want 2", got)
	}
}

func TestStore_GetOrCompute_ConcurrentForcedCallsEachRecompute(t *testing.T) {
	src := &stubSource{meta: bangkokMeta(), delay: 10 * time.Millisecond}
	comp := &stubComputer{}
	store := newTestStore(src, comp, Policy{})

	const numForced = 5

	var wg sync.WaitGroup
	for i := 0; i < numForced; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.GetOrCompute(context.Background(), true); err != nil {
				t.Errorf("forced GetOrCompute failed: %v", err)
			}
		}()
	}
	wg.Wait()

	// Forced calls are not coalesced: each performs its own computation.
	if got := src.callCount(); got != numForced {
		t.Errorf("source calls = %d, want %d", got, numForced)
	}
}

func TestStore_TTL(t *testing.T) {
	src := &stubSource{meta: bangkokMeta()}
	comp := &stubComputer{}
	store := newTestStore(src, comp, Policy{TTL: 600 * time.Second})
	ctx := context.Background()

	base := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	now := base
	store.now = func() time.Time { return now }

	if _, err := store.GetOrCompute(ctx, false); err != nil {
		t.Fatalf("GetOrCompute failed: %v", err)
	}

	// Within the window: still a hit.
	now = base.Add(599 * time.Second)
	if _, err := store.GetOrCompute(ctx, false); err != nil {
		t.Fatalf("GetOrCompute failed: %v", err)
	}
	if got := src.callCount(); got != 1 {
		t.Fatalf("source calls at T+599s = %d, want 1", got)
	}

	// Past the window: recompute.
	now = base.Add(601 * time.Second)
	if _, err := store.GetOrCompute(ctx, false); err != nil {
		t.Fatalf("GetOrCompute failed: %v", err)
	}
	if got := src.callCount(); got != 2 {
		t.Errorf("source calls at T+601s = %d, want 2", got)
	}
}

func TestStore_TTLDisabled_ValidIndefinitely(t *testing.T) {
	src := &stubSource{meta: bangkokMeta()}
	comp := &stubComputer{}
	store := newTestStore(src, comp, Policy{})
	ctx := context.Background()

	base := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	now := base
	store.now = func() time.Time { return now }

	if _, err := store.GetOrCompute(ctx, false); err != nil {
		t.Fatalf("GetOrCompute failed: %v", err)
	}

	now = base.Add(365 * 24 * time.Hour)
	if _, err := store.GetOrCompute(ctx, false); err != nil {
		t.Fatalf("GetOrCompute failed: %v", err)
	}
	if got := src.callCount(); got != 1 {
		t.Errorf("source calls = %d, want 1", got)
	}
}

func TestStore_SourceFailureLeavesStateUntouched(t *testing.T) {
	src := &stubSource{err: errors.New("feed unreachable")}
	comp := &stubComputer{}
	store := newTestStore(src, comp, Policy{})
	ctx := context.Background()

	if _, err := store.GetOrCompute(ctx, false); err == nil {
		t.Fatal("GetOrCompute should fail when the source fails")
	}
	if snap := store.Peek(); snap.HasResult {
		t.Error("Peek.HasResult = true after failure, want false")
	}

	// The failure is not cached: a later call retries and succeeds.
	src.set(bangkokMeta(), nil)
	if _, err := store.GetOrCompute(ctx, false); err != nil {
		t.Fatalf("retry GetOrCompute failed: %v", err)
	}
	if snap := store.Peek(); !snap.HasResult {
		t.Error("Peek.HasResult = false after successful retry, want true")
	}
}

func TestStore_ComputerFailureLeavesStateUntouched(t *testing.T) {
	src := &stubSource{meta: bangkokMeta()}
	comp := &stubComputer{err: errors.New("model blew up")}
	store := newTestStore(src, comp, Policy{})
	ctx := context.Background()

	if _, err := store.GetOrCompute(ctx, false); err == nil {
		t.Fatal("GetOrCompute should fail when the computer fails")
	}
	if snap := store.Peek(); snap.HasResult {
		t.Error("Peek.HasResult = true after failure, want false")
	}
}

func TestStore_ForcedFailureKeepsPreviousResult(t *testing.T) {
	src := &stubSource{meta: bangkokMeta()}
	comp := &stubComputer{}
	store := newTestStore(src, comp, Policy{})
	ctx := context.Background()

	if _, err := store.GetOrCompute(ctx, false); err != nil {
		t.Fatalf("GetOrCompute failed: %v", err)
	}
	before := store.Peek()

	src.set(quake.Meta{}, errors.New("feed unreachable"))
	if _, err := store.GetOrCompute(ctx, true); err == nil {
		t.Fatal("forced GetOrCompute should fail")
	}

	after := store.Peek()
	if !after.HasResult {
		t.Error("previous result should survive a failed forced refresh")
	}
	if after.EventKey != before.EventKey || !after.StoredAt.Equal(before.StoredAt) {
		t.Error("state should be unchanged after a failed forced refresh")
	}
}

func TestStore_Peek(t *testing.T) {
	src := &stubSource{meta: bangkokMeta()}
	comp := &stubComputer{}
	store := newTestStore(src, comp, Policy{TTL: 10 * time.Minute})
	ctx := context.Background()

	snap := store.Peek()
	if snap.HasResult || snap.EventKey != "" || !snap.StoredAt.IsZero() {
		t.Errorf("empty Peek = %+v, want zero state", snap)
	}
	if snap.TTL != 10*time.Minute {
		t.Errorf("Peek.TTL = %v, want 10m", snap.TTL)
	}

	res, err := store.GetOrCompute(ctx, false)
	if err != nil {
		t.Fatalf("GetOrCompute failed: %v", err)
	}

	snap = store.Peek()
	if !snap.HasResult {
		t.Error("Peek.HasResult = false, want true")
	}
	if want := EventKey(res.Meta); snap.EventKey != want {
		t.Errorf("Peek.EventKey = %q, want %q", snap.EventKey, want)
	}
	if snap.StoredAt.IsZero() {
		t.Error("Peek.StoredAt should be set")
	}

	// Peek never computes.
	if got := src.callCount(); got != 1 {
		t.Errorf("source calls = %d, want 1", got)
	}
}
