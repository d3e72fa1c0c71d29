package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/edgemux/restream-server/internal/domain/restream"
	"go.uber.org/zap"
)

type StateCacheOptions struct {
	// TTL controls how long we serve the in-memory snapshot.
	// 150–400ms works well for 1.5s polling; default 250ms.
	TTL time.Duration
}

func (o *StateCacheOptions) setDefaults() {
	if o.TTL <= 0 {
		o.TTL = 250 * time.Millisecond
	}
}

// StateResult lets the handler set headers/telemetry.
type StateResult struct {
	Data        []byte // JSON-encoded snapshot
	CacheHit    bool
	GeneratedAt time.Time
}

// StateCache serves the polling endpoint: a TTL-cached JSON encoding of
// the registry snapshot. Concurrent refreshes are coalesced so a burst of
// pollers marshals the state once.
type StateCache struct {
	log *zap.Logger
	src interface{ Snapshot() []restream.Restream }

	mu      sync.RWMutex
	cache   []byte
	expires time.Time
	genAt   time.Time

	opts StateCacheOptions
	now  func() time.Time

	sg singleflight.Group
}

// NewStateCache wires the snapshot source and cache policy.
// Reuse a single instance per process (handlers call Get()).
func NewStateCache(log *zap.Logger, src interface{ Snapshot() []restream.Restream }, opts StateCacheOptions) *StateCache {
	opts.setDefaults()

	return &StateCache{
		log:  log.Named("state_cache"),
		src:  src,
		opts: opts,
		now:  time.Now,
	}
}

// Get returns the cached snapshot or refreshes it when expired.
func (s *StateCache) Get(ctx context.Context) (StateResult, error) {
	// Fast path: fresh cache
	s.mu.RLock()
	if s.cache != nil && s.now().Before(s.expires) {
		out := StateResult{Data: s.cache, CacheHit: true, GeneratedAt: s.genAt}
		s.mu.RUnlock()
		return out, nil
	}
	s.mu.RUnlock()

	// Slow path: singleflight refresh
	v, err, _ := s.sg.Do("state-refresh", func() (any, error) {
		// Double-check freshness after we won the flight
		s.mu.RLock()
		if s.cache != nil && s.now().Before(s.expires) {
			out := StateResult{Data: s.cache, CacheHit: true, GeneratedAt: s.genAt}
			s.mu.RUnlock()
			return out, nil
		}
		s.mu.RUnlock()

		start := s.now()
		data, err := json.Marshal(s.src.Snapshot())
		if err != nil {
			return nil, fmt.Errorf("encode snapshot: %w", err)
		}

		s.mu.Lock()
		s.cache = data
		s.expires = s.now().Add(s.opts.TTL)
		s.genAt = start
		s.mu.Unlock()

		return StateResult{Data: data, CacheHit: false, GeneratedAt: start}, nil
	})
	if err != nil {
		return StateResult{}, err
	}
	return v.(StateResult), nil
}

// Invalidate drops the cached snapshot so the next Get re-encodes.
func (s *StateCache) Invalidate() {
	s.mu.Lock()
	s.cache = nil
	s.expires = time.Time{}
	s.genAt = time.Time{}
	s.mu.Unlock()
}
