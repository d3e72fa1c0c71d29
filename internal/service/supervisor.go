package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/edgemux/restream-server/internal/domain/restream"
	"github.com/edgemux/restream-server/internal/infrastructure/processmgr"
	"github.com/edgemux/restream-server/pkg/ffcmd"
	"go.uber.org/zap"
)

// DefaultRelayBase is where pull workers publish and forward workers read.
// Path layout: <base>/<restream-key>/<input-key>.
const DefaultRelayBase = "rtmp://127.0.0.1:1935"

// verifyTimeout bounds a single worker start check when the caller's
// context carries no deadline.
const verifyTimeout = 10 * time.Second

// WorkerPool is the process layer the supervisor drives.
type WorkerPool interface {
	Apply(desired map[string]processmgr.Spec)
	Adopt(ctx context.Context, spec processmgr.Spec) error
	Statuses() map[string]processmgr.Status
}

// StateSource is the supervisor's view of the registry: configuration
// snapshots out, status observations back in.
type StateSource interface {
	Snapshot() []restream.Restream
	ApplyStatus(StatusTarget, restream.Status)
}

// Supervisor translates registry snapshots into a desired worker set and
// keeps the pool reconciled with it. It never mutates configuration; the
// only feedback path is status observations.
//
// Worker topology:
//   - every enabled remote input (or enabled failover sub-input) of an
//     enabled input gets a pull worker src → local relay
//   - every enabled output of a restream whose active input is Online
//     gets a forward worker relay → dst (mixins as extra ffmpeg inputs)
//
// Because a worker's identity is the hash of its argv, a failover switch
// changes the forward workers' relay URL, which retires the old workers
// and boots new ones. Failback works the same way in reverse.
type Supervisor struct {
	log       *zap.Logger
	pool      WorkerPool
	relayBase string

	source StateSource // set via Bind before Start

	mu      sync.Mutex
	targets map[string]StatusTarget // worker key → status destination

	sig  chan struct{}
	quit chan struct{}
}

// NewSupervisor builds a supervisor over the pool. relayBase empty means
// DefaultRelayBase.
func NewSupervisor(log *zap.Logger, pool WorkerPool, relayBase string) *Supervisor {
	if relayBase == "" {
		relayBase = DefaultRelayBase
	}
	return &Supervisor{
		log:       log.Named("supervisor"),
		pool:      pool,
		relayBase: relayBase,
		targets:   make(map[string]StatusTarget),
		sig:       make(chan struct{}, 1), // coalescing wake-up
		quit:      make(chan struct{}),
	}
}

// Bind attaches the registry. Must be called before Start.
func (s *Supervisor) Bind(src StateSource) { s.source = src }

// Start launches the reconciliation loop.
func (s *Supervisor) Start() {
	if s.source == nil {
		panic("supervisor: Start before Bind")
	}
	go s.loop()
}

// Stop terminates the loop. Workers themselves are shut down by the pool.
func (s *Supervisor) Stop() { close(s.quit) }

// Kick schedules an asynchronous reconciliation. Multiple kicks coalesce.
func (s *Supervisor) Kick() {
	select {
	case s.sig <- struct{}{}:
	default:
	}
}

// Verify synchronously brings up the pull workers the candidate restream
// requires. Workers already in the pool are untouched; workers adopted
// here but later absent from the desired set are retired by the next
// reconcile, which is the compensation path when the caller aborts.
func (s *Supervisor) Verify(ctx context.Context, r *restream.Restream) error {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, verifyTimeout)
		defer cancel()
	}

	specs, targets := pullWorkers(r, s.relayBase)

	// Register status destinations first so observations from freshly
	// adopted workers are not lost.
	s.mu.Lock()
	for key, t := range targets {
		s.targets[key] = t
	}
	s.mu.Unlock()

	for key, spec := range specs {
		if err := s.pool.Adopt(ctx, spec); err != nil {
			s.log.Warn("worker start check failed",
				zap.String("unit", spec.Unit),
				zap.String("key", key),
				zap.Error(err))
			return fmt.Errorf("%s: %w", spec.Unit, ErrWorkerStart)
		}
	}
	return nil
}

// OnWorkerStatus is the pool's status callback.
func (s *Supervisor) OnWorkerStatus(key string, st processmgr.Status) {
	s.mu.Lock()
	target, ok := s.targets[key]
	s.mu.Unlock()

	if !ok {
		// Worker retired and forgotten, or not yet mapped; reconcile
		// re-syncs statuses from the pool afterwards.
		return
	}
	s.source.ApplyStatus(target, domainStatus(st))
}

func (s *Supervisor) loop() {
	for {
		select {
		case <-s.quit:
			return
		case <-s.sig:
		}
		s.reconcile()
	}
}

// reconcile drives the pool to the worker set the current snapshot wants,
// then re-applies the pool's own view of worker statuses. The re-apply
// closes the race where a transition fired before its target was mapped.
func (s *Supervisor) reconcile() {
	snap := s.source.Snapshot()
	desired, targets := desiredWorkers(snap, s.relayBase)

	s.mu.Lock()
	s.targets = targets
	s.mu.Unlock()

	s.pool.Apply(desired)

	for key, st := range s.pool.Statuses() {
		if target, ok := targets[key]; ok {
			s.source.ApplyStatus(target, domainStatus(st))
		}
	}
}

// desiredWorkers maps a registry snapshot to worker specs keyed by argv
// hash, plus the status destination of each worker.
func desiredWorkers(snap []restream.Restream, relayBase string) (map[string]processmgr.Spec, map[string]StatusTarget) {
	specs := make(map[string]processmgr.Spec)
	targets := make(map[string]StatusTarget)

	for i := range snap {
		r := &snap[i]

		pulls, pullTargets := pullWorkers(r, relayBase)
		for key, spec := range pulls {
			specs[key] = spec
			targets[key] = pullTargets[key]
		}

		active := r.Input.ActiveSub()
		if active == nil {
			continue
		}
		relay := relayURL(relayBase, r.Key, active.Key)

		for j := range r.Outputs {
			out := &r.Outputs[j]
			if !out.Enabled {
				continue
			}
			spec := processmgr.Spec{
				Unit: "push:" + r.Key + "/" + string(out.ID),
				Argv: ffcmd.Forward(relay, out),
			}
			key := spec.Key()
			specs[key] = spec
			targets[key] = StatusTarget{Restream: r.ID, Output: out.ID}
		}
	}
	return specs, targets
}

// pullWorkers lists the pull workers one restream's input requires.
func pullWorkers(r *restream.Restream, relayBase string) (map[string]processmgr.Spec, map[string]StatusTarget) {
	specs := make(map[string]processmgr.Spec)
	targets := make(map[string]StatusTarget)

	in := &r.Input
	if !in.Enabled {
		return specs, targets
	}

	add := func(src *restream.Input) {
		spec := processmgr.Spec{
			Unit: "pull:" + r.Key + "/" + src.Key,
			Argv: ffcmd.Pull(src.Src.Remote.URL, relayURL(relayBase, r.Key, src.Key)),
		}
		key := spec.Key()
		specs[key] = spec
		targets[key] = StatusTarget{Restream: r.ID, Input: src.ID}
	}

	if in.Src.IsRemote() {
		add(in)
		return specs, targets
	}
	for i := range in.Src.Failover.Inputs {
		sub := &in.Src.Failover.Inputs[i]
		if sub.Enabled {
			add(sub)
		}
	}
	return specs, targets
}

func relayURL(base, restreamKey, inputKey string) string {
	return base + "/" + restreamKey + "/" + inputKey
}

func domainStatus(st processmgr.Status) restream.Status {
	switch st {
	case processmgr.StatusInitializing:
		return restream.StatusInitializing
	case processmgr.StatusOnline:
		return restream.StatusOnline
	default:
		return restream.StatusOffline
	}
}
