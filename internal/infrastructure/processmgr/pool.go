//go:build linux

package processmgr

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"
)

// ErrStart reports that a worker failed its launch verification: the
// process could not be spawned, exited before producing media flow, or
// no capacity was available.
var ErrStart = errors.New("worker failed to start")

// Status is the externally visible lifecycle state of a worker.
type Status string

const (
	// StatusInitializing - process launched, media not confirmed flowing yet.
	StatusInitializing Status = "initializing"
	// StatusOnline - first progress report observed, media flowing.
	StatusOnline Status = "online"
	// StatusOffline - no authoritative process running (crashed, backing
	// off, or retired).
	StatusOffline Status = "offline"
)

// Spec is the static description of one desired worker.
type Spec struct {
	Unit string   // human-readable owner label, logging only
	Argv []string // complete command line, argv[0] is the binary
}

// Key returns the worker's identity: a stable hash of the full argv.
// Any configuration change yields a new key, so reconciliation retires the
// old worker and boots a fresh one rather than mutating in place.
func (s Spec) Key() string {
	h := xxhash.New()
	for _, a := range s.Argv {
		_, _ = h.WriteString(a)
		_, _ = h.Write([]byte{0})
	}
	return strconv.FormatUint(h.Sum64(), 16)
}

// StatusFunc receives worker status transitions. Called from pool
// goroutines without internal locks held; implementations may call back
// into the Pool.
type StatusFunc func(key string, status Status)

// inst is one launch attempt of a unit.
type inst struct {
	id        string // unit key + generation
	unit      string // owning unit key
	spec      Spec
	startedAt time.Time
}

// Pool supervises the set of ffmpeg workers against a desired declarative
// state, with dual-phase concurrency control:
//
//   - Preflight slots – limit the number of booting processes
//   - Onflight slots  – limit the number of fully-active processes
//
// Slots are ownership-based: each instance explicitly acquires and
// releases its slot, preventing silent leaks.
//
// -----------------------------------------------------------------------------
// Identity model
//
//   - unit key  = hash of the worker argv (external identity)
//   - instance  = one launch attempt of a unit (internal identity,
//     "key#generation", never reused)
//   - A unit always maps to *one* authoritative instance at a time
//   - Restarts always refer to the instance, never the unit
//
// When a unit is retired its instance becomes non-authoritative and is
// forgotten after process termination. Re-adding the same unit key while
// the old instance is still dying is safe: the new instance supersedes it.
//
// -----------------------------------------------------------------------------
// Concurrency model
//
//   - All mutable state (units, insts, ps, sched, slot ownership) is
//     protected by a single mutex m.mu
//
//   - Process lifecycle:
//     Start → Ready → Done → Exit-handler → Restart-or-Forget
//
//   - Dual-slot gating is enforced BEFORE launching any process: the
//     scheduler waits until BOTH preflight and onflight capacity are
//     available, so any process we choose to launch can guaranteedly be
//     promoted once Ready. No stranded preflight processes.
//
// Restart delays are per-unit exponential backoff; a run that stays
// healthy long enough resets the sequence.
type Pool struct {
	log    *zap.Logger
	logmgr *LogManager
	env    []string
	notify StatusFunc

	// Authoritative tables
	units map[string]string // unit key → authoritative instance id
	insts map[string]*inst  // instance id → launch record
	ps    map[string]*process
	bos   map[string]*backoff // unit key → restart backoff
	gen   uint64

	// Concurrency gates
	preflight *slotPool // warm-up phase
	onflight  *slotPool // active phase

	// Scheduling
	sched *scheduler
	sig   chan struct{}

	quit   chan struct{}
	closed bool

	mu sync.Mutex
}

// NewPool constructs a Pool with explicit warm-up and active caps and
// starts its scheduling loop.
func NewPool(log *zap.Logger, logmgr *LogManager, notify StatusFunc, maxPreflight, maxOnflight int64) *Pool {
	if notify == nil {
		notify = func(string, Status) {}
	}

	m := &Pool{
		log:    log.Named("worker-pool"),
		logmgr: logmgr,
		env:    os.Environ(),
		notify: notify,

		units: make(map[string]string),
		insts: make(map[string]*inst),
		ps:    make(map[string]*process),
		bos:   make(map[string]*backoff),

		preflight: newSlotPool(maxPreflight),
		onflight:  newSlotPool(maxOnflight),

		sched: newScheduler(),
		sig:   make(chan struct{}, 1), // coalescing wake-up

		quit: make(chan struct{}),
	}

	go m.mainloop()
	return m
}

// Apply reconciles the pool against the desired worker set (unit key →
// spec). Units absent from desired are retired; new units are scheduled
// for immediate launch; unchanged units are left alone.
func (m *Pool) Apply(desired map[string]Spec) {
	m.mu.Lock()

	var retired []string
	for key, iid := range m.units {
		if _, want := desired[key]; want {
			continue
		}
		m.retireUnsafe(key, iid)
		retired = append(retired, key)
	}

	for key, spec := range desired {
		if _, exists := m.units[key]; exists {
			continue
		}
		m.addUnsafe(key, spec, 0)
	}

	m.mu.Unlock()

	for _, key := range retired {
		m.notify(key, StatusOffline)
	}
}

// Adopt registers a single worker and synchronously verifies its launch:
// it returns nil once the process reports media flow, or ErrStart when the
// process cannot be spawned, dies first, or ctx expires. On failure the
// unit is not kept.
//
// A unit already present in the pool is adopted trivially.
func (m *Pool) Adopt(ctx context.Context, spec Spec) error {
	key := spec.Key()

	m.mu.Lock()
	if _, exists := m.units[key]; exists {
		m.mu.Unlock()
		return nil
	}

	iid := m.addUnsafe(key, spec, 0)

	// Bypass the scheduler: launch now so the verdict is bounded by ctx,
	// not by queue position.
	m.sched.remove(iid)
	if !m.preflight.tryAcquire(iid) {
		m.dropUnitUnsafe(key)
		m.mu.Unlock()
		return fmt.Errorf("%w: no capacity", ErrStart)
	}
	proc, ok := m.launchUnsafe(iid)
	m.mu.Unlock()

	if !ok {
		m.dropUnit(key)
		return fmt.Errorf("%w: spawn failed", ErrStart)
	}

	select {
	case <-proc.Ready():
		return nil

	case <-proc.Done():
		// The exit handler may already have rescheduled a fresh instance;
		// dropUnit retires whichever one is current.
		m.dropUnit(key)
		return fmt.Errorf("%w: exited before media flow", ErrStart)

	case <-ctx.Done():
		proc.Close()
		m.dropUnit(key)
		return fmt.Errorf("%w: %v", ErrStart, ctx.Err())
	}
}

func (m *Pool) dropUnit(key string) {
	m.mu.Lock()
	m.dropUnitUnsafe(key)
	m.mu.Unlock()
}

// dropUnitUnsafe retires whatever instance currently owns key.
func (m *Pool) dropUnitUnsafe(key string) {
	if iid, ok := m.units[key]; ok {
		m.retireUnsafe(key, iid)
	}
}

// Statuses returns the current lifecycle state of every supervised unit.
// Units between restarts (scheduled, backing off) report Offline.
func (m *Pool) Statuses() map[string]Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]Status, len(m.units))
	for key, iid := range m.units {
		switch {
		case m.onflight.owns(iid):
			out[key] = StatusOnline
		case m.ps[iid] != nil:
			out[key] = StatusInitializing
		default:
			out[key] = StatusOffline
		}
	}
	return out
}

// Keys returns the unit keys currently under supervision.
func (m *Pool) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.units))
	for key := range m.units {
		out = append(out, key)
	}
	return out
}

// Logs returns the last n log lines of a worker, newest → oldest.
func (m *Pool) Logs(key string, n int) []string {
	return m.logmgr.Read(key, n)
}

// Onflight returns the number of workers in the active phase.
func (m *Pool) Onflight() int64 {
	return m.onflight.current()
}

// UpdateLimits adjusts max preflight/onflight capacity at runtime.
//
// If new limits are smaller than current usage, excess processes are
// forcibly terminated (via Close) to restore invariants.
func (m *Pool) UpdateLimits(maxPre, maxOn int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, pool := range []*slotPool{m.preflight, m.onflight} {
		limit := maxPre
		if pool == m.onflight {
			limit = maxOn
		}
		if pool.capacity() == limit {
			continue
		}

		pool.updateLimit(limit)
		owners := pool.listAcquired()

		if int64(len(owners)) > limit {
			excess := int64(len(owners)) - limit
			for _, iid := range owners[:excess] {
				if p := m.ps[iid]; p != nil {
					p.Close()
				}
			}
		}
	}

	// poke the scheduler
	select {
	case m.sig <- struct{}{}:
	default:
	}
}

// Shutdown retires every unit, terminates all processes and waits for
// them to be reaped, bounded by ctx.
func (m *Pool) Shutdown(ctx context.Context) {
	m.mu.Lock()
	m.closed = true
	close(m.quit)

	var procs []*process
	for key, iid := range m.units {
		m.sched.remove(iid)
		if p := m.ps[iid]; p != nil {
			p.Close()
			procs = append(procs, p)
		}
		delete(m.units, key)
		delete(m.bos, key)
	}
	m.mu.Unlock()

	for _, p := range procs {
		select {
		case <-p.Done():
		case <-ctx.Done():
			return
		}
	}
}

// ----------------------------------------------------------------------------
// Event Loop (scheduler)
// ----------------------------------------------------------------------------

func (m *Pool) mainloop() {
	timer := time.NewTimer(0)

	for {
		select {
		case <-m.quit:
			return
		default:
		}

		// Ensure capacity *before* acquiring lock.
		//
		// We intentionally block until BOTH preflight and onflight capacity
		// exist. This ensures that any process we choose to launch can
		// guaranteedly be promoted to active mode once Ready.
		m.preflight.waitSlot()
		m.onflight.waitSlot()

		m.mu.Lock()
		iid, when, ok := m.sched.next()

		if !ok {
			m.mu.Unlock()
			select {
			case <-m.sig:
			case <-m.quit:
				return
			}
			continue
		}

		delay := time.Until(when)

		if delay > 0 {
			arm(timer, delay)
			m.mu.Unlock()

			select {
			case <-timer.C:
			case <-m.sig:
			case <-m.quit:
				return
			}
			continue
		}

		// Try acquiring a preflight slot for this instance.
		//
		// Under normal operation the loop is the only preflight acquirer,
		// so waitSlot() → tryAcquire() cannot race against another
		// instance. It can only fail when UpdateLimits() shrank capacity
		// in between, or an Adopt() claimed the last slot.
		if !m.preflight.tryAcquire(iid) {
			m.mu.Unlock()
			continue
		}

		m.sched.pop()
		m.launchUnsafe(iid)

		m.mu.Unlock()
	}
}

// ----------------------------------------------------------------------------
// Launch / Supervisor Logic
// ----------------------------------------------------------------------------

// addUnsafe registers a unit, allocates an instance and schedules it.
// Returns the new instance id.
func (m *Pool) addUnsafe(key string, spec Spec, after time.Duration) string {
	m.gen++
	iid := key + "#" + strconv.FormatUint(m.gen, 10)

	m.units[key] = iid
	m.insts[iid] = &inst{id: iid, unit: key, spec: spec}
	if _, ok := m.bos[key]; !ok {
		m.bos[key] = &backoff{}
	}

	m.scheduleUnsafe(iid, after)
	return iid
}

// retireUnsafe tears down a unit's authoritative instance and drops the
// unit. A running instance's record stays until its process is reaped; a
// queued one is forgotten immediately.
func (m *Pool) retireUnsafe(key, iid string) {
	if p := m.ps[iid]; p != nil {
		p.Close()
	} else {
		delete(m.insts, iid)
	}
	m.sched.remove(iid)
	delete(m.units, key)
	delete(m.bos, key)
	m.logmgr.Drop(key)
}

// launchUnsafe spawns the instance's process. The caller must already own
// the instance's preflight slot; on failure the slot is returned and a
// retry is scheduled (if still authoritative).
func (m *Pool) launchUnsafe(iid string) (*process, bool) {
	in := m.insts[iid]
	if in == nil || m.units[in.unit] != iid {
		// Superseded or retired while queued.
		if in != nil {
			delete(m.insts, iid)
		}
		m.preflight.release(iid)
		return nil, false
	}

	plog := m.log.With(zap.String("unit", in.spec.Unit), zap.String("instance", iid))

	proc, ok := newProcess(plog, m.logmgr.Get(in.unit), m.env, in.spec.Argv)
	if !ok {
		m.preflight.release(iid)
		m.rescheduleUnsafe(in)
		return nil, false
	}

	m.ps[iid] = proc
	in.startedAt = time.Now()

	if !proc.Start() {
		delete(m.ps, iid)
		m.preflight.release(iid)
		m.rescheduleUnsafe(in)
		return nil, false
	}

	go m.notify(in.unit, StatusInitializing)
	go m.superviseInstance(in, proc)
	return proc, true
}

// superviseInstance tracks one launch attempt:
//
//	preflight slot (acquired)
//	   ↓
//	Ready → acquire onflight → release preflight → notify Online
//	   ↓
//	Done → release onflight
//
// Process may die before Ready: only preflight is released.
func (m *Pool) superviseInstance(in *inst, proc *process) {
	iid := in.id

	// cleanup + authoritative-instance logic
	defer m.handleExit(in)

	// --- Phase 1: warm-up ---
	select {
	case <-proc.Ready():
		// try promoting into active phase
		if !m.onflight.tryAcquire(iid) {
			proc.Close()
			m.preflight.release(iid)
			<-proc.Done()
			return
		}
		m.preflight.release(iid)
		m.notify(in.unit, StatusOnline)

	case <-proc.Done():
		// died before ready
		m.preflight.release(iid)
		return
	}

	// --- Phase 2: active ---
	<-proc.Done()
	m.onflight.release(iid)
}

// handleExit decides what happens after an instance's process is reaped:
// restart with backoff when still authoritative, forget otherwise.
func (m *Pool) handleExit(in *inst) {
	iid := in.id

	m.mu.Lock()

	delete(m.ps, iid)

	current, exists := m.units[in.unit]
	authoritative := exists && current == iid && !m.closed
	if !authoritative {
		// Unit retired, superseded, or pool shutting down.
		delete(m.insts, iid)
		m.mu.Unlock()
		return
	}

	bo := m.bos[in.unit]
	bo.observe(time.Since(in.startedAt))
	delay := bo.next()

	// Same unit, fresh instance.
	delete(m.insts, iid)
	delete(m.units, in.unit)
	m.addUnsafe(in.unit, in.spec, delay)

	m.mu.Unlock()

	m.notify(in.unit, StatusOffline)
	m.log.Info("worker exited, restart scheduled",
		zap.String("unit", in.spec.Unit),
		zap.String("instance", iid),
		zap.Duration("delay", delay))
}

func (m *Pool) rescheduleUnsafe(in *inst) {
	bo := m.bos[in.unit]
	if bo == nil {
		return
	}
	m.scheduleUnsafe(in.id, bo.next())
}

func (m *Pool) scheduleUnsafe(iid string, after time.Duration) {
	m.sched.push(iid, time.Now().Add(after))

	select {
	case m.sig <- struct{}{}:
	default:
	}
}

// arm resets a reusable timer, draining a stale fire first.
func arm(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}
