package processmgr

import "sync"

// slotPool is a dynamically adjustable semaphore with explicit ownership.
// Each acquisition requires a unique external identifier. This enables
// accountable resource tracking and prevents silent leakage under load.
type slotPool struct {
	mu         sync.Mutex
	cond       *sync.Cond
	maxCap     int64
	usage      int64
	acquiredBy map[string]struct{} // active ownership table
}

// newSlotPool initializes the pool with a given capacity.
func newSlotPool(max int64) *slotPool {
	s := &slotPool{
		maxCap:     max,
		acquiredBy: make(map[string]struct{}),
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// tryAcquire attempts a non-blocking acquire.
// On success, key becomes the owner.
// Duplicate acquisition by the same key is a protocol violation.
func (s *slotPool) tryAcquire(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, holds := s.acquiredBy[key]; holds {
		panic("slotPool: key already holds a slot")
	}

	if s.usage >= s.maxCap {
		return false
	}

	s.usage++
	s.acquiredBy[key] = struct{}{}
	return true
}

// waitSlot blocks until usage < maxCap without taking a slot.
// This is a readiness check, not an acquisition.
func (s *slotPool) waitSlot() {
	s.mu.Lock()
	for s.usage >= s.maxCap {
		s.cond.Wait()
	}
	s.mu.Unlock()
}

// release frees the slot owned by key.
// Releasing a key that does not own a slot is an invariant violation.
func (s *slotPool) release(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, holds := s.acquiredBy[key]; !holds {
		panic("slotPool: release for non-owner key")
	}

	delete(s.acquiredBy, key)
	s.usage--
	s.cond.Signal()
}

// owns reports whether key currently holds a slot.
func (s *slotPool) owns(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.acquiredBy[key]
	return ok
}

// listAcquired returns a snapshot of all current owners.
func (s *slotPool) listAcquired() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.acquiredBy))
	for key := range s.acquiredBy {
		out = append(out, key)
	}
	return out
}

// updateLimit adjusts the configured capacity.
// Negative values are clamped to zero since negative semaphore
// cardinality is undefined in standard concurrency models.
func (s *slotPool) updateLimit(newCap int64) {
	if newCap < 0 {
		newCap = 0
	}

	s.mu.Lock()
	s.maxCap = newCap
	s.cond.Broadcast()
	s.mu.Unlock()
}

// capacity returns the configured concurrency limit.
func (s *slotPool) capacity() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxCap
}

// current returns the number of active acquired slots.
func (s *slotPool) current() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usage
}
