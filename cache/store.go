package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/shakemap/shakemapd/overlay"
	"github.com/shakemap/shakemapd/quake"
)

// refreshKey is the singleflight key; there is only ever one slot.
const refreshKey = "latest"

// StoreConfig configures the store.
type StoreConfig struct {
	// Source supplies the latest event metadata.
	Source quake.Source

	// Computer turns event metadata into the overlay payload.
	Computer overlay.Computer

	// Policy bounds result validity. Zero TTL disables expiry.
	Policy Policy

	// Metrics records cache activity. Default: noop.
	Metrics Metrics
}

// Store holds at most one computed overlay, its event key and the time
// it was stored, and guarantees at most one in-flight recomputation.
//
// Reads on the warm path take only a read lock. Misses are coalesced:
// concurrent non-forced callers share a single computation. Forced
// callers serialize on the exclusive lock and each recompute,
// last-writer-wins. A failed computation leaves the stored state
// untouched and is never cached.
type Store struct {
	source   quake.Source
	computer overlay.Computer
	policy   Policy
	metrics  Metrics

	group singleflight.Group

	mu       sync.RWMutex
	result   *overlay.Result
	eventKey string
	storedAt time.Time

	now func() time.Time
}

// Snapshot is a read-only view of the store's state.
type Snapshot struct {
	// HasResult reports whether a result is stored.
	HasResult bool

	// EventKey is the derived identity of the stored result, empty
	// when nothing is stored.
	EventKey string

	// StoredAt is when the result was stored, zero when nothing is
	// stored.
	StoredAt time.Time

	// TTL is the configured validity window, zero when disabled.
	TTL time.Duration
}

// NewStore creates a store. Source and Computer are required.
func NewStore(config StoreConfig) *Store {
	if config.Metrics == nil {
		config.Metrics = noopMetrics{}
	}

	return &Store{
		source:   config.Source,
		computer: config.Computer,
		policy:   config.Policy,
		metrics:  config.Metrics,
		now:      time.Now,
	}
}

// GetOrCompute returns the cached overlay, computing it first when the
// slot is empty, stale, or force is true.
//
// The context is used by the caller that actually computes; waiters
// coalesced onto an in-flight computation share its outcome and are
// not individually cancellable. Errors from the event source or the
// computer propagate uncached.
func (s *Store) GetOrCompute(ctx context.Context, force bool) (*overlay.Result, error) {
	if !force {
		// Optimistic fast path: no exclusive coordination when warm.
		if res, ok := s.cached(); ok {
			s.metrics.RecordLookup(ctx, true)
			return res, nil
		}
		s.metrics.RecordLookup(ctx, false)

		v, err, _ := s.group.Do(refreshKey, func() (any, error) {
			s.mu.Lock()
			defer s.mu.Unlock()

			// Another caller may have refreshed the slot while this
			// one waited for the lock.
			if res, ok := s.cachedLocked(); ok {
				return res, nil
			}
			return s.computeLocked(ctx)
		})
		if err != nil {
			return nil, err
		}
		return v.(*overlay.Result), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.computeLocked(ctx)
}

// Peek returns the current state without triggering computation.
func (s *Store) Peek() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Snapshot{
		HasResult: s.result != nil,
		EventKey:  s.eventKey,
		StoredAt:  s.storedAt,
		TTL:       s.policy.TTL,
	}
}

func (s *Store) cached() (*overlay.Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cachedLocked()
}

func (s *Store) cachedLocked() (*overlay.Result, bool) {
	if s.result != nil && s.policy.Valid(s.storedAt, s.now()) {
		return s.result, true
	}
	return nil, false
}

// computeLocked runs the full event->overlay pipeline and replaces the
// stored state as one unit. Caller must hold the exclusive lock. On
// error the state is left exactly as it was.
func (s *Store) computeLocked(ctx context.Context) (*overlay.Result, error) {
	start := time.Now()

	meta, err := s.source.Latest(ctx)
	if err != nil {
		s.metrics.RecordCompute(ctx, time.Since(start), err)
		return nil, err
	}

	res, err := s.computer.FromEvent(meta)
	if err != nil {
		s.metrics.RecordCompute(ctx, time.Since(start), err)
		return nil, err
	}

	s.result = res
	s.eventKey = EventKey(res.Meta)
	s.storedAt = s.now()

	s.metrics.RecordCompute(ctx, time.Since(start), nil)
	return res, nil
}
