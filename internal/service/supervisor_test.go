package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/edgemux/restream-server/internal/domain/restream"
	"github.com/edgemux/restream-server/internal/infrastructure/processmgr"
	"go.uber.org/zap"
)

// fakePool records Apply/Adopt calls without spawning processes.
type fakePool struct {
	mu       sync.Mutex
	desired  map[string]processmgr.Spec
	adopted  []processmgr.Spec
	adoptErr error
	statuses map[string]processmgr.Status
}

func (p *fakePool) Apply(desired map[string]processmgr.Spec) {
	p.mu.Lock()
	p.desired = desired
	p.mu.Unlock()
}

func (p *fakePool) Adopt(_ context.Context, spec processmgr.Spec) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.adoptErr != nil {
		return p.adoptErr
	}
	p.adopted = append(p.adopted, spec)
	return nil
}

func (p *fakePool) Statuses() map[string]processmgr.Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]processmgr.Status, len(p.statuses))
	for k, v := range p.statuses {
		out[k] = v
	}
	return out
}

// fakeSource serves a fixed snapshot and records applied statuses.
type fakeSource struct {
	mu      sync.Mutex
	snap    []restream.Restream
	applied []struct {
		Target StatusTarget
		Status restream.Status
	}
}

func (f *fakeSource) Snapshot() []restream.Restream {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeSource) ApplyStatus(t StatusTarget, st restream.Status) {
	f.mu.Lock()
	f.applied = append(f.applied, struct {
		Target StatusTarget
		Status restream.Status
	}{t, st})
	f.mu.Unlock()
}

func failoverRestream(key string) restream.Restream {
	sub := func(k, url string) restream.Input {
		return restream.Input{
			ID:      restream.NewInputID(),
			Key:     k,
			Enabled: true,
			Src: restream.InputSrc{
				Remote: &restream.RemoteSrc{URL: url},
			},
			Endpoints: []restream.Endpoint{{Kind: restream.EndpointRTMP, Status: restream.StatusUnknown}},
		}
	}
	return restream.Restream{
		ID:  restream.NewRestreamID(),
		Key: key,
		Input: restream.Input{
			ID:      restream.NewInputID(),
			Key:     "group",
			Enabled: true,
			Src: restream.InputSrc{
				Failover: &restream.FailoverSrc{Inputs: []restream.Input{
					sub("primary", "rtmp://up.example/live/a"),
					sub("backup", "rtmp://up.example/live/b"),
				}},
			},
			Endpoints: []restream.Endpoint{{Kind: restream.EndpointRTMP, Status: restream.StatusUnknown}},
		},
	}
}

func unitsOf(specs map[string]processmgr.Spec) map[string]bool {
	out := make(map[string]bool, len(specs))
	for _, s := range specs {
		out[s.Unit] = true
	}
	return out
}

func TestDesiredWorkersRemoteInput(t *testing.T) {
	r := remoteRestream("studio")
	r.ID = restream.NewRestreamID()
	out := testOutput("rtmp://dst.example/app/key")
	out.ID = restream.NewOutputID()
	r.Outputs = []restream.Output{out}

	// Input not Online yet: pull worker only, no forward.
	specs, targets := desiredWorkers([]restream.Restream{r}, DefaultRelayBase)
	units := unitsOf(specs)
	if !units["pull:studio/main"] || len(specs) != 1 {
		t.Fatalf("units = %v, want only the pull worker", units)
	}
	for key, target := range targets {
		if target.Input != r.Input.ID {
			t.Fatalf("target of %s = %+v", key, target)
		}
	}

	// Input Online: forward worker appears.
	r.Input.SetStatus(restream.StatusOnline)
	specs, targets = desiredWorkers([]restream.Restream{r}, DefaultRelayBase)
	units = unitsOf(specs)
	if !units["pull:studio/main"] || !units["push:studio/"+string(out.ID)] || len(specs) != 2 {
		t.Fatalf("units = %v, want pull and push", units)
	}

	var pushTargets int
	for _, target := range targets {
		if target.Output == out.ID {
			pushTargets++
		}
	}
	if pushTargets != 1 {
		t.Fatalf("push targets = %d, want 1", pushTargets)
	}

	// Forward reads from the relay the pull worker publishes to.
	for _, spec := range specs {
		if !strings.HasPrefix(spec.Unit, "push:") {
			continue
		}
		joined := strings.Join(spec.Argv, " ")
		if !strings.Contains(joined, DefaultRelayBase+"/studio/main") {
			t.Fatalf("forward argv %q does not read the relay", joined)
		}
	}
}

func TestDesiredWorkersDisabledOutputSkipped(t *testing.T) {
	r := remoteRestream("studio")
	r.ID = restream.NewRestreamID()
	r.Input.SetStatus(restream.StatusOnline)
	out := testOutput("rtmp://dst.example/app/key")
	out.ID = restream.NewOutputID()
	out.Enabled = false
	r.Outputs = []restream.Output{out}

	specs, _ := desiredWorkers([]restream.Restream{r}, DefaultRelayBase)
	if len(specs) != 1 {
		t.Fatalf("got %d workers, want the pull worker only", len(specs))
	}
}

func TestDesiredWorkersDisabledInput(t *testing.T) {
	r := remoteRestream("studio")
	r.ID = restream.NewRestreamID()
	r.Input.Enabled = false
	r.Input.SetStatus(restream.StatusOnline)
	out := testOutput("rtmp://dst.example/app/key")
	out.ID = restream.NewOutputID()
	r.Outputs = []restream.Output{out}

	specs, _ := desiredWorkers([]restream.Restream{r}, DefaultRelayBase)
	if len(specs) != 0 {
		t.Fatalf("got %d workers, want none for a disabled input", len(specs))
	}
}

func TestDesiredWorkersFailoverSwitch(t *testing.T) {
	r := failoverRestream("event")
	out := testOutput("rtmp://dst.example/app/key")
	out.ID = restream.NewOutputID()
	r.Outputs = []restream.Output{out}

	subs := r.Input.Src.Failover.Inputs

	// Primary Online: both pull workers run, forward reads the primary relay.
	subs[0].SetStatus(restream.StatusOnline)
	subs[1].SetStatus(restream.StatusOnline)
	specs, _ := desiredWorkers([]restream.Restream{r}, DefaultRelayBase)
	units := unitsOf(specs)
	if !units["pull:event/primary"] || !units["pull:event/backup"] || len(specs) != 3 {
		t.Fatalf("units = %v, want two pulls and one push", units)
	}
	primaryKey := forwardKey(t, specs)

	// Primary drops: the forward worker re-keys onto the backup relay.
	subs[0].SetStatus(restream.StatusOffline)
	specs, _ = desiredWorkers([]restream.Restream{r}, DefaultRelayBase)
	backupKey := forwardKey(t, specs)
	if backupKey == primaryKey {
		t.Fatal("failover switch must change the forward worker's identity")
	}

	// Primary recovers: failback restores the original identity.
	subs[0].SetStatus(restream.StatusOnline)
	specs, _ = desiredWorkers([]restream.Restream{r}, DefaultRelayBase)
	if forwardKey(t, specs) != primaryKey {
		t.Fatal("failback must restore the forward worker's identity")
	}

	// Nothing Online: the forward worker disappears.
	subs[0].SetStatus(restream.StatusOffline)
	subs[1].SetStatus(restream.StatusOffline)
	specs, _ = desiredWorkers([]restream.Restream{r}, DefaultRelayBase)
	for _, spec := range specs {
		if strings.HasPrefix(spec.Unit, "push:") {
			t.Fatal("forward worker must not run without an active input")
		}
	}
}

func forwardKey(t *testing.T, specs map[string]processmgr.Spec) string {
	t.Helper()
	for key, spec := range specs {
		if strings.HasPrefix(spec.Unit, "push:") {
			return key
		}
	}
	t.Fatal("no forward worker in set")
	return ""
}

func TestVerifyAdoptsPullWorkers(t *testing.T) {
	pool := &fakePool{}
	sup := NewSupervisor(zap.NewNop(), pool, "")
	src := &fakeSource{}
	sup.Bind(src)

	r := failoverRestream("event")
	if err := sup.Verify(context.Background(), &r); err != nil {
		t.Fatal(err)
	}
	if len(pool.adopted) != 2 {
		t.Fatalf("adopted %d workers, want both failover pulls", len(pool.adopted))
	}

	// Targets are registered so early observations are not dropped.
	key := pool.adopted[0].Key()
	sup.OnWorkerStatus(key, processmgr.StatusOnline)
	src.mu.Lock()
	defer src.mu.Unlock()
	if len(src.applied) != 1 || src.applied[0].Status != restream.StatusOnline {
		t.Fatalf("applied = %+v, want one online observation", src.applied)
	}
}

func TestVerifyFailureWrapsErrWorkerStart(t *testing.T) {
	pool := &fakePool{adoptErr: errors.New("spawn failed")}
	sup := NewSupervisor(zap.NewNop(), pool, "")
	sup.Bind(&fakeSource{})

	r := remoteRestream("studio")
	r.ID = restream.NewRestreamID()
	if err := sup.Verify(context.Background(), &r); !errors.Is(err, ErrWorkerStart) {
		t.Fatalf("got %v, want ErrWorkerStart", err)
	}
}

func TestReconcileAppliesPoolStatuses(t *testing.T) {
	r := remoteRestream("studio")
	r.ID = restream.NewRestreamID()

	pulls, _ := pullWorkers(&r, DefaultRelayBase)
	var key string
	for k := range pulls {
		key = k
	}

	pool := &fakePool{statuses: map[string]processmgr.Status{key: processmgr.StatusOnline}}
	src := &fakeSource{snap: []restream.Restream{r}}
	sup := NewSupervisor(zap.NewNop(), pool, "")
	sup.Bind(src)

	sup.reconcile()

	pool.mu.Lock()
	if len(pool.desired) != 1 {
		t.Fatalf("applied %d workers, want 1", len(pool.desired))
	}
	pool.mu.Unlock()

	src.mu.Lock()
	defer src.mu.Unlock()
	if len(src.applied) != 1 {
		t.Fatalf("applied = %+v, want the pool status re-applied", src.applied)
	}
	if src.applied[0].Target.Input != r.Input.ID || src.applied[0].Status != restream.StatusOnline {
		t.Fatalf("applied = %+v", src.applied[0])
	}
}

func TestOnWorkerStatusUnknownKeyDropped(t *testing.T) {
	src := &fakeSource{}
	sup := NewSupervisor(zap.NewNop(), &fakePool{}, "")
	sup.Bind(src)

	sup.OnWorkerStatus("deadbeef", processmgr.StatusOnline)

	src.mu.Lock()
	defer src.mu.Unlock()
	if len(src.applied) != 0 {
		t.Fatalf("applied = %+v, want none for an unmapped worker", src.applied)
	}
}
