package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/edgemux/restream-server/internal/domain/restream"
	"go.uber.org/zap"
)

// -----------------------------------------------------------------------------
// Registry
// -----------------------------------------------------------------------------
//
// Runtime model
//   • Single process, many concurrent requests.
//   • Mutations for the SAME restream ID are serialized via a per-ID gate.
//   • Reads (Get/Snapshot) take only the registry RWMutex, briefly.
//
// Contract (runtime-first)
//   • In-memory state is the source of truth; Redis is durability only.
//   • Changes that require a fresh worker (enabling an input, replacing an
//     enabled input's config) verify the worker start BEFORE committing.
//     If the worker cannot start → ErrWorkerStart, prior config stays active.
//   • If the Redis write fails AFTER the in-memory commit → the commit is
//     rolled back and an error returned.
//
// Statuses
//   • Endpoint/output statuses are runtime-only: they are carried over
//     across config replaces (matched by ID), forced Offline on disable,
//     never persisted, and otherwise mutated only via ApplyStatus.
//
// Publication
//   • Every accepted mutation and status transition publishes a fresh deep
//     snapshot to the state publisher and pokes the runtime reconciler.

// Store persists restream definitions (config only).
type Store interface {
	Upsert(ctx context.Context, spec *restream.RestreamSpec) error
	Delete(ctx context.Context, id restream.RestreamID) error
	GetAll(ctx context.Context) ([]*restream.RestreamSpec, error)
}

// Runtime is the worker-side collaborator of the registry.
type Runtime interface {
	// Verify synchronously brings up the pull workers the candidate
	// configuration requires, bounded by ctx. Workers already running are
	// untouched. Returns an error wrapping ErrWorkerStart on failure.
	Verify(ctx context.Context, r *restream.Restream) error
	// Kick requests an asynchronous reconciliation of the worker set
	// against the current registry snapshot.
	Kick()
}

// StatePublisher receives a deep snapshot after every commit.
type StatePublisher interface {
	PublishState(restreams []restream.Restream)
}

// ImportMode selects how imported definitions meet existing state.
type ImportMode string

const (
	// ImportMerge adds restreams with previously unknown keys; any key
	// collision rejects the whole import.
	ImportMerge ImportMode = "merge"
	// ImportReplace substitutes the target restream, or the whole registry
	// when no target is named.
	ImportReplace ImportMode = "replace"
)

// StatusTarget addresses the state a worker observation lands on: an
// input's ingest endpoints or an output.
type StatusTarget struct {
	Restream restream.RestreamID
	Input    restream.InputID  // set for pull workers
	Output   restream.OutputID // set for forward workers
}

// Registry is the mutation authority over restream configuration.
type Registry struct {
	log     *zap.Logger
	store   Store
	runtime Runtime
	pub     StatePublisher

	mu        sync.RWMutex
	restreams []*restream.Restream // creation order
	byID      map[restream.RestreamID]*restream.Restream
	byKey     map[string]restream.RestreamID

	// per-restream locks to serialize mutating requests on the same ID
	muxes sync.Map // map[restream.RestreamID]*gate
}

// NewRegistry wires dependencies. runtime and pub may be nil (no-ops),
// which the tests use.
func NewRegistry(log *zap.Logger, store Store, runtime Runtime, pub StatePublisher) *Registry {
	if runtime == nil {
		runtime = noopRuntime{}
	}
	if pub == nil {
		pub = noopPublisher{}
	}
	return &Registry{
		log:     log.Named("registry"),
		store:   store,
		runtime: runtime,
		pub:     pub,
		byID:    make(map[restream.RestreamID]*restream.Restream),
		byKey:   make(map[string]restream.RestreamID),
	}
}

type noopRuntime struct{}

func (noopRuntime) Verify(context.Context, *restream.Restream) error { return nil }
func (noopRuntime) Kick()                                            {}

type noopPublisher struct{}

func (noopPublisher) PublishState([]restream.Restream) {}

// Load rehydrates the registry from the store at boot. Statuses start
// Unknown; the reconciler re-observes them.
func (s *Registry) Load(ctx context.Context) error {
	specs, err := s.store.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("load restreams: %w", err)
	}

	restreams := make([]restream.Restream, 0, len(specs))
	for _, spec := range specs {
		r, err := spec.Restream()
		if err != nil {
			return fmt.Errorf("rehydrate %s: %w", spec.ID, err)
		}
		restreams = append(restreams, r)
	}
	if err := distinctIdentities(restreams); err != nil {
		return fmt.Errorf("load restreams: %w", err)
	}

	s.mu.Lock()
	for i := range restreams {
		s.insertLocked(&restreams[i])
	}
	count := len(s.restreams)
	s.mu.Unlock()

	s.log.Info("registry loaded", zap.Int("restreams", count))
	s.afterCommit()
	return nil
}

// lock acquires the per-ID gate (blocking). Always returns a valid unlock func.
func (s *Registry) lock(id restream.RestreamID) func() {
	v, _ := s.muxes.LoadOrStore(id, newGate())
	g := v.(*gate)
	g.Lock()
	return func() { g.Unlock() }
}

// tryLock attempts to acquire the per-ID gate without blocking.
func (s *Registry) tryLock(id restream.RestreamID) (func(), error) {
	v, _ := s.muxes.LoadOrStore(id, newGate())
	g := v.(*gate)
	if !g.TryLock() {
		return func() {}, fmt.Errorf("restream %s: %w", id, ErrLocked)
	}
	return func() { g.Unlock() }, nil
}

// ---------------------------------------------------------------------------
// Reads
// ---------------------------------------------------------------------------

// Snapshot returns a deep copy of every restream, in creation order.
func (s *Registry) Snapshot() []restream.Restream {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Registry) snapshotLocked() []restream.Restream {
	out := make([]restream.Restream, 0, len(s.restreams))
	for _, r := range s.restreams {
		out = append(out, r.Clone())
	}
	return out
}

// Get returns a deep copy of one restream.
func (s *Registry) Get(id restream.RestreamID) (restream.Restream, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.byID[id]
	if !ok {
		return restream.Restream{}, fmt.Errorf("restream %s: %w", id, restream.ErrNotFound)
	}
	return r.Clone(), nil
}

// FindOutput locates an output by its ID alone. Returns deep copies.
func (s *Registry) FindOutput(id restream.OutputID) (restream.RestreamID, restream.Output, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.restreams {
		if o := r.Output(id); o != nil {
			return r.ID, o.Clone(), nil
		}
	}
	return "", restream.Output{}, fmt.Errorf("output %s: %w", id, restream.ErrNotFound)
}

// ---------------------------------------------------------------------------
// Restream mutations
// ---------------------------------------------------------------------------

// SetRestream creates or replaces a restream and returns its ID. An empty
// ID creates under a generated identifier; a supplied ID must name an
// existing restream, which is replaced in place (key changes allowed).
// A supplied ID that resolves to nothing → ErrNotFound. A key already
// owned by a DIFFERENT ID → ErrConflict.
func (s *Registry) SetRestream(ctx context.Context, r restream.Restream) (restream.RestreamID, error) {
	create := r.ID == ""
	if create {
		r.ID = restream.NewRestreamID()
	}
	if err := r.Validate(); err != nil {
		return "", err
	}

	unlock, err := s.tryLock(r.ID)
	if err != nil {
		return "", err
	}
	defer unlock()

	s.mu.RLock()
	cur := s.byID[r.ID]
	if cur == nil && !create {
		s.mu.RUnlock()
		return "", fmt.Errorf("restream %s: %w", r.ID, restream.ErrNotFound)
	}
	if ownerID, taken := s.byKey[r.Key]; taken && ownerID != r.ID {
		s.mu.RUnlock()
		return "", fmt.Errorf("key %q owned by %s: %w", r.Key, ownerID, restream.ErrConflict)
	}
	var prev *restream.Restream
	if cur != nil {
		c := cur.Clone()
		prev = &c
	}
	s.mu.RUnlock()

	// Runtime statuses survive a config replace when identity persists.
	carryStatuses(prev, &r)

	// Start-new-before-stop-old: the replacement's workers must be up
	// before the old config is dropped. Stale workers are retired by the
	// reconciler after the commit.
	if r.Input.Enabled {
		if err := s.runtime.Verify(ctx, &r); err != nil {
			return "", err
		}
	}

	if err := s.commitRestream(ctx, prev, &r); err != nil {
		return "", err
	}

	s.afterCommit()
	return r.ID, nil
}

// RemoveRestream removes a restream and everything it owns. Its workers
// are retired by the reconciler.
func (s *Registry) RemoveRestream(ctx context.Context, id restream.RestreamID) error {
	unlock, err := s.tryLock(id)
	if err != nil {
		return err
	}
	defer unlock()

	s.mu.Lock()
	cur, ok := s.byID[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("restream %s: %w", id, restream.ErrNotFound)
	}
	prev := cur.Clone()
	s.removeLocked(id)
	s.mu.Unlock()

	if err := s.store.Delete(ctx, id); err != nil {
		// Rollback: restore the in-memory record.
		s.mu.Lock()
		s.insertLocked(&prev)
		s.mu.Unlock()
		return fmt.Errorf("delete: %w", err)
	}

	// Once deleted, we can discard the per-ID gate.
	s.muxes.Delete(id)
	s.afterCommit()
	return nil
}

// EnableInput enables a restream's input; its pull workers must come up
// before the change commits.
func (s *Registry) EnableInput(ctx context.Context, id restream.RestreamID) error {
	return s.mutate(ctx, id, func(r *restream.Restream) error {
		if r.Input.Enabled {
			return nil
		}
		r.Input.Enabled = true
		return s.runtime.Verify(ctx, r)
	})
}

// DisableInput disables a restream's input and forces its endpoints
// Offline synchronously with the worker stop.
func (s *Registry) DisableInput(ctx context.Context, id restream.RestreamID) error {
	return s.mutate(ctx, id, func(r *restream.Restream) error {
		r.Input.Enabled = false
		forceOffline(&r.Input)
		return nil
	})
}

// ---------------------------------------------------------------------------
// Output mutations
// ---------------------------------------------------------------------------

// SetOutput creates or replaces an output on a restream. An empty output
// ID creates; a known ID replaces in place, keeping its runtime status.
func (s *Registry) SetOutput(ctx context.Context, id restream.RestreamID, out restream.Output) error {
	if out.ID == "" {
		out.ID = restream.NewOutputID()
	}
	for i := range out.Mixins {
		if out.Mixins[i].ID == "" {
			out.Mixins[i].ID = restream.NewMixinID()
		}
	}
	if err := out.Validate(); err != nil {
		return err
	}

	return s.mutate(ctx, id, func(r *restream.Restream) error {
		if cur := r.Output(out.ID); cur != nil {
			out.Status = cur.Status
			*cur = out
			return nil
		}
		out.Status = restream.StatusOffline
		r.Outputs = append(r.Outputs, out)
		return nil
	})
}

// RemoveOutput removes one output. Unknown output → ErrNotFound, no side
// effects.
func (s *Registry) RemoveOutput(ctx context.Context, id restream.RestreamID, outputID restream.OutputID) error {
	return s.mutate(ctx, id, func(r *restream.Restream) error {
		for i := range r.Outputs {
			if r.Outputs[i].ID == outputID {
				r.Outputs = append(r.Outputs[:i], r.Outputs[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("output %s: %w", outputID, restream.ErrNotFound)
	})
}

// EnableOutput enables one output. With no healthy input the output simply
// stays Offline until media flows.
func (s *Registry) EnableOutput(ctx context.Context, id restream.RestreamID, outputID restream.OutputID) error {
	return s.setOutputEnabled(ctx, id, outputID, true)
}

// DisableOutput disables one output, forcing it Offline synchronously.
func (s *Registry) DisableOutput(ctx context.Context, id restream.RestreamID, outputID restream.OutputID) error {
	return s.setOutputEnabled(ctx, id, outputID, false)
}

func (s *Registry) setOutputEnabled(ctx context.Context, id restream.RestreamID, outputID restream.OutputID, enabled bool) error {
	return s.mutate(ctx, id, func(r *restream.Restream) error {
		out := r.Output(outputID)
		if out == nil {
			return fmt.Errorf("output %s: %w", outputID, restream.ErrNotFound)
		}
		out.Enabled = enabled
		if !enabled {
			out.Status = restream.StatusOffline
		}
		return nil
	})
}

// EnableAllOutputs enables every output of one restream.
func (s *Registry) EnableAllOutputs(ctx context.Context, id restream.RestreamID) error {
	return s.setAllOutputsEnabled(ctx, id, true)
}

// DisableAllOutputs disables every output of one restream.
func (s *Registry) DisableAllOutputs(ctx context.Context, id restream.RestreamID) error {
	return s.setAllOutputsEnabled(ctx, id, false)
}

func (s *Registry) setAllOutputsEnabled(ctx context.Context, id restream.RestreamID, enabled bool) error {
	return s.mutate(ctx, id, func(r *restream.Restream) error {
		for i := range r.Outputs {
			r.Outputs[i].Enabled = enabled
			if !enabled {
				r.Outputs[i].Status = restream.StatusOffline
			}
		}
		return nil
	})
}

// EnableAllOutputsOfRestreams enables every output of every restream.
func (s *Registry) EnableAllOutputsOfRestreams(ctx context.Context) error {
	return s.forEachRestream(ctx, s.EnableAllOutputs)
}

// DisableAllOutputsOfRestreams disables every output of every restream.
func (s *Registry) DisableAllOutputsOfRestreams(ctx context.Context) error {
	return s.forEachRestream(ctx, s.DisableAllOutputs)
}

func (s *Registry) forEachRestream(ctx context.Context, op func(context.Context, restream.RestreamID) error) error {
	s.mu.RLock()
	ids := make([]restream.RestreamID, 0, len(s.restreams))
	for _, r := range s.restreams {
		ids = append(ids, r.ID)
	}
	s.mu.RUnlock()

	for _, id := range ids {
		if err := op(ctx, id); err != nil {
			// Restreams removed mid-iteration are not an error.
			if isNotFound(err) {
				continue
			}
			return err
		}
	}
	return nil
}

// TuneVolume adjusts the output's own volume, or the named mixin's.
func (s *Registry) TuneVolume(ctx context.Context, id restream.RestreamID, outputID restream.OutputID, mixinID *restream.MixinID, vol restream.Volume) error {
	if vol > restream.VolumeMax {
		return fmt.Errorf("volume %d out of range: %w", vol, restream.ErrInvalidInput)
	}
	return s.mutate(ctx, id, func(r *restream.Restream) error {
		out := r.Output(outputID)
		if out == nil {
			return fmt.Errorf("output %s: %w", outputID, restream.ErrNotFound)
		}
		if mixinID == nil {
			out.Volume = vol
			return nil
		}
		m := out.Mixin(*mixinID)
		if m == nil {
			return fmt.Errorf("mixin %s: %w", *mixinID, restream.ErrNotFound)
		}
		m.Volume = vol
		return nil
	})
}

// TuneDelay adjusts a mixin's pre-mix delay.
func (s *Registry) TuneDelay(ctx context.Context, id restream.RestreamID, outputID restream.OutputID, mixinID restream.MixinID, delay restream.Duration) error {
	if delay < 0 {
		return fmt.Errorf("negative delay: %w", restream.ErrInvalidInput)
	}
	return s.mutate(ctx, id, func(r *restream.Restream) error {
		out := r.Output(outputID)
		if out == nil {
			return fmt.Errorf("output %s: %w", outputID, restream.ErrNotFound)
		}
		m := out.Mixin(mixinID)
		if m == nil {
			return fmt.Errorf("mixin %s: %w", mixinID, restream.ErrNotFound)
		}
		m.Delay = delay
		return nil
	})
}

// ---------------------------------------------------------------------------
// Status application (supervisor feedback)
// ---------------------------------------------------------------------------

// ApplyStatus lands a worker observation on the addressed input endpoints
// or output. Observations for state that no longer exists are dropped;
// workers outlive their config briefly during retirement.
func (s *Registry) ApplyStatus(t StatusTarget, st restream.Status) {
	s.mu.Lock()

	r, ok := s.byID[t.Restream]
	if !ok {
		s.mu.Unlock()
		return
	}

	changed := false
	switch {
	case t.Input != "":
		if in := r.Input.FindSub(t.Input); in != nil && in.IngestStatus() != st {
			// A disabled input stays Offline no matter what a dying
			// worker reports.
			if in.Enabled || st == restream.StatusOffline {
				in.SetStatus(st)
				changed = true
			}
		}
	case t.Output != "":
		if out := r.Output(t.Output); out != nil && out.Status != st {
			if out.Enabled || st == restream.StatusOffline {
				out.Status = st
				changed = true
			}
		}
	}
	s.mu.Unlock()

	if changed {
		s.afterCommit()
	}
}

// ---------------------------------------------------------------------------
// Spec import/export
// ---------------------------------------------------------------------------

// Export serializes restreams (all of them when ids is empty) into a
// versioned spec, config fields only.
func (s *Registry) Export(ids []restream.RestreamID) (restream.Spec, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	spec := restream.Spec{Version: restream.SpecVersion}

	if len(ids) == 0 {
		for _, r := range s.restreams {
			spec.Restreams = append(spec.Restreams, r.Export())
		}
		return spec, nil
	}

	for _, id := range ids {
		r, ok := s.byID[id]
		if !ok {
			return restream.Spec{}, fmt.Errorf("restream %s: %w", id, restream.ErrNotFound)
		}
		spec.Restreams = append(spec.Restreams, r.Export())
	}
	return spec, nil
}

// Import applies a spec text.
//
//   - merge: every imported key must be new; any collision rejects the
//     whole import with ErrConflict.
//   - replace + target: the spec must carry exactly one restream, which
//     substitutes the target's configuration (target ID is kept).
//   - replace without target: atomic substitution of the whole registry.
//
// Imported workers are brought up by the reconciler with its normal retry
// policy; import itself never fails on worker start.
func (s *Registry) Import(ctx context.Context, text string, mode ImportMode, target *restream.RestreamID) error {
	spec, err := restream.DecodeSpec(text)
	if err != nil {
		return err
	}

	incoming := make([]restream.Restream, 0, len(spec.Restreams))
	for _, rs := range spec.Restreams {
		r, err := rs.Restream()
		if err != nil {
			return err
		}
		if r.ID == "" {
			r.ID = restream.NewRestreamID()
		}
		incoming = append(incoming, r)
	}

	// An internally conflicting payload is rejected before anything moves:
	// keys and ids must be distinct within the spec itself.
	if err := distinctIdentities(incoming); err != nil {
		return err
	}

	switch mode {
	case ImportMerge:
		return s.importMerge(ctx, incoming)
	case ImportReplace:
		if target != nil {
			if len(incoming) != 1 {
				return fmt.Errorf("replace of one restream needs exactly one definition, got %d: %w",
					len(incoming), restream.ErrInvalidInput)
			}
			return s.importReplaceOne(ctx, *target, incoming[0])
		}
		return s.importReplaceAll(ctx, incoming)
	default:
		return fmt.Errorf("unknown import mode %q: %w", mode, restream.ErrInvalidInput)
	}
}

func (s *Registry) importMerge(ctx context.Context, incoming []restream.Restream) error {
	// All-or-nothing: every collision with the current registry is
	// rejected before anything commits.
	s.mu.RLock()
	for i := range incoming {
		if ownerID, taken := s.byKey[incoming[i].Key]; taken {
			s.mu.RUnlock()
			return fmt.Errorf("key %q owned by %s: %w", incoming[i].Key, ownerID, restream.ErrConflict)
		}
		if _, present := s.byID[incoming[i].ID]; present {
			s.mu.RUnlock()
			return fmt.Errorf("restream %s already present: %w", incoming[i].ID, restream.ErrConflict)
		}
	}
	s.mu.RUnlock()

	committed := make([]restream.RestreamID, 0, len(incoming))
	for i := range incoming {
		r := incoming[i]
		unlock := s.lock(r.ID)
		err := s.commitRestream(ctx, nil, &r)
		unlock()
		if err != nil {
			// Unwind the entries already landed so a failed merge leaves
			// the registry exactly as it was.
			s.mu.Lock()
			for _, id := range committed {
				s.removeLocked(id)
			}
			s.mu.Unlock()
			for _, id := range committed {
				if derr := s.store.Delete(ctx, id); derr != nil {
					s.log.Warn("merge unwind delete failed",
						zap.String("restream_id", string(id)), zap.Error(derr))
				}
			}
			return err
		}
		committed = append(committed, r.ID)
	}

	s.afterCommit()
	return nil
}

func (s *Registry) importReplaceOne(ctx context.Context, target restream.RestreamID, r restream.Restream) error {
	unlock := s.lock(target)
	defer unlock()

	s.mu.RLock()
	cur, ok := s.byID[target]
	var prev *restream.Restream
	if ok {
		c := cur.Clone()
		prev = &c
	}
	s.mu.RUnlock()

	if prev == nil {
		return fmt.Errorf("restream %s: %w", target, restream.ErrNotFound)
	}

	r.ID = target
	carryStatuses(prev, &r)

	if err := s.commitRestream(ctx, prev, &r); err != nil {
		return err
	}
	s.afterCommit()
	return nil
}

func (s *Registry) importReplaceAll(ctx context.Context, incoming []restream.Restream) error {
	// Serialize against every in-flight mutation: take the gate of every
	// current restream plus every incoming one, in stable order.
	s.mu.RLock()
	idSet := make(map[restream.RestreamID]struct{}, len(s.restreams)+len(incoming))
	for _, r := range s.restreams {
		idSet[r.ID] = struct{}{}
	}
	s.mu.RUnlock()
	for i := range incoming {
		idSet[incoming[i].ID] = struct{}{}
	}

	ids := make([]restream.RestreamID, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		defer s.lock(id)()
	}

	s.mu.Lock()
	old := s.restreams
	s.restreams = nil
	s.byID = make(map[restream.RestreamID]*restream.Restream, len(incoming))
	s.byKey = make(map[string]restream.RestreamID, len(incoming))
	for i := range incoming {
		r := incoming[i].Clone()
		s.insertLocked(&r)
	}
	s.mu.Unlock()

	persist := func() error {
		for _, o := range old {
			if _, keep := s.byID[o.ID]; keep {
				continue
			}
			if err := s.store.Delete(ctx, o.ID); err != nil {
				return fmt.Errorf("delete %s: %w", o.ID, err)
			}
		}
		for i := range incoming {
			spec := incoming[i].Export()
			if err := s.store.Upsert(ctx, &spec); err != nil {
				return fmt.Errorf("upsert %s: %w", incoming[i].ID, err)
			}
		}
		return nil
	}

	if err := persist(); err != nil {
		// Rollback the in-memory swap; storage may be partially updated
		// but memory stays coherent and a later mutation re-persists.
		s.mu.Lock()
		s.restreams = nil
		s.byID = make(map[restream.RestreamID]*restream.Restream, len(old))
		s.byKey = make(map[string]restream.RestreamID, len(old))
		for _, o := range old {
			s.insertLocked(o)
		}
		s.mu.Unlock()
		return err
	}

	s.afterCommit()
	return nil
}

// ---------------------------------------------------------------------------
// Internals
// ---------------------------------------------------------------------------

// mutate runs op against a deep copy of the restream under its gate, then
// commits and persists the result. op returning an error aborts with no
// side effects.
func (s *Registry) mutate(ctx context.Context, id restream.RestreamID, op func(*restream.Restream) error) error {
	unlock, err := s.tryLock(id)
	if err != nil {
		return err
	}
	defer unlock()

	s.mu.RLock()
	cur, ok := s.byID[id]
	var prev restream.Restream
	if ok {
		prev = cur.Clone()
	}
	s.mu.RUnlock()

	if !ok {
		return fmt.Errorf("restream %s: %w", id, restream.ErrNotFound)
	}

	next := prev.Clone()
	if err := op(&next); err != nil {
		return err
	}

	if err := s.commitRestream(ctx, &prev, &next); err != nil {
		return err
	}
	s.afterCommit()
	return nil
}

// commitRestream lands next in memory and persists it. prev==nil means
// create. On persist failure the in-memory change is rolled back. The
// caller must hold next.ID's gate.
func (s *Registry) commitRestream(ctx context.Context, prev, next *restream.Restream) error {
	s.mu.Lock()
	if ownerID, taken := s.byKey[next.Key]; taken && ownerID != next.ID {
		s.mu.Unlock()
		return fmt.Errorf("key %q owned by %s: %w", next.Key, ownerID, restream.ErrConflict)
	}
	committed := next.Clone()
	s.upsertLocked(&committed)
	s.mu.Unlock()

	spec := next.Export()
	if err := s.store.Upsert(ctx, &spec); err != nil {
		s.mu.Lock()
		if prev != nil {
			rolled := prev.Clone()
			s.upsertLocked(&rolled)
		} else {
			s.removeLocked(next.ID)
		}
		s.mu.Unlock()
		return fmt.Errorf("upsert: %w", err)
	}
	return nil
}

// distinctIdentities rejects a restream set carrying duplicate ids or
// keys. The registry's indexes assume both are unique at all times.
func distinctIdentities(rs []restream.Restream) error {
	ids := make(map[restream.RestreamID]struct{}, len(rs))
	keys := make(map[string]struct{}, len(rs))
	for i := range rs {
		if _, dup := ids[rs[i].ID]; dup {
			return fmt.Errorf("duplicate restream id %s: %w", rs[i].ID, restream.ErrConflict)
		}
		ids[rs[i].ID] = struct{}{}
		if _, dup := keys[rs[i].Key]; dup {
			return fmt.Errorf("duplicate restream key %q: %w", rs[i].Key, restream.ErrConflict)
		}
		keys[rs[i].Key] = struct{}{}
	}
	return nil
}

// insertLocked appends a brand-new restream. Caller holds mu.
func (s *Registry) insertLocked(r *restream.Restream) {
	s.restreams = append(s.restreams, r)
	s.byID[r.ID] = r
	s.byKey[r.Key] = r.ID
}

// upsertLocked replaces in place or appends. Caller holds mu.
func (s *Registry) upsertLocked(r *restream.Restream) {
	if cur, ok := s.byID[r.ID]; ok {
		if cur.Key != r.Key {
			delete(s.byKey, cur.Key)
		}
		for i := range s.restreams {
			if s.restreams[i].ID == r.ID {
				s.restreams[i] = r
				break
			}
		}
		s.byID[r.ID] = r
		s.byKey[r.Key] = r.ID
		return
	}
	s.insertLocked(r)
}

// removeLocked drops a restream from all indexes. Caller holds mu.
func (s *Registry) removeLocked(id restream.RestreamID) {
	cur, ok := s.byID[id]
	if !ok {
		return
	}
	delete(s.byID, id)
	delete(s.byKey, cur.Key)
	for i := range s.restreams {
		if s.restreams[i].ID == id {
			s.restreams = append(s.restreams[:i], s.restreams[i+1:]...)
			break
		}
	}
}

// afterCommit publishes a fresh snapshot and pokes the reconciler.
func (s *Registry) afterCommit() {
	s.pub.PublishState(s.Snapshot())
	s.runtime.Kick()
}

// carryStatuses copies runtime statuses from the previous configuration
// onto the candidate wherever identity (input/output ID) persists.
func carryStatuses(prev, next *restream.Restream) {
	if prev == nil {
		return
	}
	carryInputStatus(&prev.Input, &next.Input)
	if prev.Input.Src.IsFailover() && next.Input.Src.IsFailover() {
		for i := range next.Input.Src.Failover.Inputs {
			sub := &next.Input.Src.Failover.Inputs[i]
			if old := prev.Input.FindSub(sub.ID); old != nil && old != &prev.Input {
				carryInputStatus(old, sub)
			}
		}
	}
	for i := range next.Outputs {
		if old := prev.Output(next.Outputs[i].ID); old != nil {
			next.Outputs[i].Status = old.Status
		}
	}
}

func carryInputStatus(prev, next *restream.Input) {
	if prev.ID != next.ID {
		return
	}
	for i := range next.Endpoints {
		if old := prev.Endpoint(next.Endpoints[i].Kind); old != nil {
			next.Endpoints[i].Status = old.Status
		}
	}
}

// forceOffline marks an input and all its sub-inputs Offline.
func forceOffline(in *restream.Input) {
	in.SetStatus(restream.StatusOffline)
	if in.Src.IsFailover() {
		for i := range in.Src.Failover.Inputs {
			in.Src.Failover.Inputs[i].SetStatus(restream.StatusOffline)
		}
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, restream.ErrNotFound)
}
