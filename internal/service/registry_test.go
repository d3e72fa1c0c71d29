package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/edgemux/restream-server/internal/domain/restream"
	"go.uber.org/zap"
)

// fakeStore is an in-memory Store with optional fault injection.
type fakeStore struct {
	mu      sync.Mutex
	specs   map[restream.RestreamID]restream.RestreamSpec
	failSet bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{specs: make(map[restream.RestreamID]restream.RestreamSpec)}
}

func (f *fakeStore) Upsert(_ context.Context, spec *restream.RestreamSpec) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSet {
		return errors.New("store down")
	}
	f.specs[spec.ID] = *spec
	return nil
}

func (f *fakeStore) Delete(_ context.Context, id restream.RestreamID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSet {
		return errors.New("store down")
	}
	delete(f.specs, id)
	return nil
}

func (f *fakeStore) GetAll(_ context.Context) ([]*restream.RestreamSpec, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*restream.RestreamSpec, 0, len(f.specs))
	for id := range f.specs {
		spec := f.specs[id]
		out = append(out, &spec)
	}
	return out, nil
}

// fakeRuntime records Verify/Kick calls and can reject verification.
type fakeRuntime struct {
	mu         sync.Mutex
	verifyFail bool
	verified   int
	kicks      int
}

func (f *fakeRuntime) Verify(context.Context, *restream.Restream) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verified++
	if f.verifyFail {
		return ErrWorkerStart
	}
	return nil
}

func (f *fakeRuntime) Kick() {
	f.mu.Lock()
	f.kicks++
	f.mu.Unlock()
}

type fakePublisher struct {
	mu   sync.Mutex
	last []restream.Restream
	n    int
}

func (f *fakePublisher) PublishState(rs []restream.Restream) {
	f.mu.Lock()
	f.last = rs
	f.n++
	f.mu.Unlock()
}

func newTestRegistry(t *testing.T) (*Registry, *fakeStore, *fakeRuntime, *fakePublisher) {
	t.Helper()
	store := newFakeStore()
	rt := &fakeRuntime{}
	pub := &fakePublisher{}
	return NewRegistry(zap.NewNop(), store, rt, pub), store, rt, pub
}

func remoteRestream(key string) restream.Restream {
	return restream.Restream{
		Key: key,
		Input: restream.Input{
			ID:      restream.NewInputID(),
			Key:     "main",
			Enabled: true,
			Src: restream.InputSrc{
				Remote: &restream.RemoteSrc{URL: "rtmp://up.example/live/" + key},
			},
			Endpoints: []restream.Endpoint{{Kind: restream.EndpointRTMP, Status: restream.StatusUnknown}},
		},
	}
}

func testOutput(dst string) restream.Output {
	return restream.Output{Dst: dst, Volume: restream.VolumeOrigin, Enabled: true}
}

// mustSet creates r (no id) and returns the generated id.
func mustSet(t *testing.T, s *Registry, r restream.Restream) restream.RestreamID {
	t.Helper()
	id, err := s.SetRestream(context.Background(), r)
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func TestSetRestreamCreatesWithGeneratedID(t *testing.T) {
	s, store, _, pub := newTestRegistry(t)

	id, err := s.SetRestream(context.Background(), remoteRestream("studio"))
	if err != nil {
		t.Fatal(err)
	}
	if id == "" {
		t.Fatal("id was not generated")
	}

	snap := s.Snapshot()
	if len(snap) != 1 || snap[0].ID != id {
		t.Fatalf("snapshot = %+v, want one restream with id %s", snap, id)
	}
	if len(store.specs) != 1 {
		t.Fatalf("store has %d specs, want 1", len(store.specs))
	}
	if pub.n == 0 {
		t.Fatal("commit did not publish")
	}
}

func TestSetRestreamUnknownIDNotFound(t *testing.T) {
	s, store, _, _ := newTestRegistry(t)

	r := remoteRestream("studio")
	r.ID = restream.NewRestreamID()
	if _, err := s.SetRestream(context.Background(), r); !errors.Is(err, restream.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
	if len(s.Snapshot()) != 0 || len(store.specs) != 0 {
		t.Fatal("an unknown supplied id must not create")
	}
}

func TestSetRestreamKeyConflict(t *testing.T) {
	s, _, _, _ := newTestRegistry(t)
	ctx := context.Background()

	if _, err := s.SetRestream(ctx, remoteRestream("studio")); err != nil {
		t.Fatal(err)
	}

	_, err := s.SetRestream(ctx, remoteRestream("studio"))
	if !errors.Is(err, restream.ErrConflict) {
		t.Fatalf("got %v, want ErrConflict", err)
	}
	if len(s.Snapshot()) != 1 {
		t.Fatal("conflicting upsert must not change state")
	}
}

func TestSetRestreamReplacesInPlace(t *testing.T) {
	s, _, _, _ := newTestRegistry(t)
	ctx := context.Background()

	r := remoteRestream("studio")
	r.ID = mustSet(t, s, r)

	// Same ID may even take a new key.
	r.Key = "studio-two"
	if _, err := s.SetRestream(ctx, r); err != nil {
		t.Fatal(err)
	}

	snap := s.Snapshot()
	if len(snap) != 1 || snap[0].Key != "studio-two" {
		t.Fatalf("snapshot = %+v, want single restream with new key", snap)
	}

	// The old key is free again.
	if _, err := s.SetRestream(ctx, remoteRestream("studio")); err != nil {
		t.Fatal(err)
	}
}

func TestSetRestreamWorkerStartAborts(t *testing.T) {
	s, store, rt, _ := newTestRegistry(t)
	rt.verifyFail = true

	_, err := s.SetRestream(context.Background(), remoteRestream("studio"))
	if !errors.Is(err, ErrWorkerStart) {
		t.Fatalf("got %v, want ErrWorkerStart", err)
	}
	if len(s.Snapshot()) != 0 || len(store.specs) != 0 {
		t.Fatal("failed verification must not commit")
	}
}

func TestSetRestreamPersistFailureRollsBack(t *testing.T) {
	s, store, _, _ := newTestRegistry(t)
	store.failSet = true

	if _, err := s.SetRestream(context.Background(), remoteRestream("studio")); err == nil {
		t.Fatal("expected persist error")
	}
	if len(s.Snapshot()) != 0 {
		t.Fatal("persist failure must roll back the in-memory commit")
	}
}

func TestSetRestreamCarriesStatuses(t *testing.T) {
	s, _, _, _ := newTestRegistry(t)
	ctx := context.Background()

	r := remoteRestream("studio")
	r.ID = mustSet(t, s, r)
	s.ApplyStatus(StatusTarget{Restream: r.ID, Input: r.Input.ID}, restream.StatusOnline)

	// Replace with a config change that keeps the input's identity.
	label := "Studio"
	r.Label = &label
	if _, err := s.SetRestream(ctx, r); err != nil {
		t.Fatal(err)
	}

	got, err := s.Get(r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Input.IngestStatus() != restream.StatusOnline {
		t.Fatalf("status = %s, want online carried across replace", got.Input.IngestStatus())
	}
}

func TestRemoveRestream(t *testing.T) {
	s, store, _, _ := newTestRegistry(t)
	ctx := context.Background()

	id := mustSet(t, s, remoteRestream("studio"))

	if err := s.RemoveRestream(ctx, id); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(id); !errors.Is(err, restream.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
	if len(store.specs) != 0 {
		t.Fatal("store record survived removal")
	}

	if err := s.RemoveRestream(ctx, id); !errors.Is(err, restream.ErrNotFound) {
		t.Fatalf("second remove: got %v, want ErrNotFound", err)
	}
}

func TestEnableInputVerifies(t *testing.T) {
	s, _, rt, _ := newTestRegistry(t)
	ctx := context.Background()

	r := remoteRestream("studio")
	r.Input.Enabled = false
	id := mustSet(t, s, r)

	rt.verifyFail = true
	if err := s.EnableInput(ctx, id); !errors.Is(err, ErrWorkerStart) {
		t.Fatalf("got %v, want ErrWorkerStart", err)
	}
	got, _ := s.Get(id)
	if got.Input.Enabled {
		t.Fatal("failed enable must not commit")
	}

	rt.verifyFail = false
	if err := s.EnableInput(ctx, id); err != nil {
		t.Fatal(err)
	}
	got, _ = s.Get(id)
	if !got.Input.Enabled {
		t.Fatal("input not enabled")
	}
}

func TestDisableInputForcesOffline(t *testing.T) {
	s, _, _, _ := newTestRegistry(t)
	ctx := context.Background()

	r := remoteRestream("studio")
	r.ID = mustSet(t, s, r)
	s.ApplyStatus(StatusTarget{Restream: r.ID, Input: r.Input.ID}, restream.StatusOnline)

	if err := s.DisableInput(ctx, r.ID); err != nil {
		t.Fatal(err)
	}
	got, _ := s.Get(r.ID)
	if got.Input.Enabled || got.Input.IngestStatus() != restream.StatusOffline {
		t.Fatalf("input = enabled:%v status:%s, want disabled offline",
			got.Input.Enabled, got.Input.IngestStatus())
	}
}

func TestOutputLifecycle(t *testing.T) {
	s, _, _, _ := newTestRegistry(t)
	ctx := context.Background()

	id := mustSet(t, s, remoteRestream("studio"))

	out := testOutput("rtmp://dst.example/app/key")
	if err := s.SetOutput(ctx, id, out); err != nil {
		t.Fatal(err)
	}

	got, _ := s.Get(id)
	if len(got.Outputs) != 1 || got.Outputs[0].ID == "" {
		t.Fatalf("outputs = %+v, want one with generated id", got.Outputs)
	}
	oid := got.Outputs[0].ID

	if err := s.DisableOutput(ctx, id, oid); err != nil {
		t.Fatal(err)
	}
	got, _ = s.Get(id)
	if got.Outputs[0].Enabled || got.Outputs[0].Status != restream.StatusOffline {
		t.Fatal("disable must force the output offline")
	}

	if err := s.EnableOutput(ctx, id, oid); err != nil {
		t.Fatal(err)
	}

	if err := s.RemoveOutput(ctx, id, oid); err != nil {
		t.Fatal(err)
	}
	got, _ = s.Get(id)
	if len(got.Outputs) != 0 {
		t.Fatal("output not removed")
	}

	if err := s.RemoveOutput(ctx, id, oid); !errors.Is(err, restream.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestTuneVolumeAndDelay(t *testing.T) {
	s, _, _, _ := newTestRegistry(t)
	ctx := context.Background()

	r := remoteRestream("studio")
	out := testOutput("rtmp://dst.example/app/key")
	out.ID = restream.NewOutputID()
	out.Mixins = []restream.Mixin{{
		ID:     restream.NewMixinID(),
		Src:    "ts://127.0.0.1:8000/music",
		Volume: restream.VolumeOrigin,
	}}
	r.Outputs = []restream.Output{out}
	id := mustSet(t, s, r)
	mid := out.Mixins[0].ID

	if err := s.TuneVolume(ctx, id, out.ID, nil, 250); err != nil {
		t.Fatal(err)
	}
	if err := s.TuneVolume(ctx, id, out.ID, &mid, 40); err != nil {
		t.Fatal(err)
	}
	if err := s.TuneDelay(ctx, id, out.ID, mid, restream.DurationFromMillis(3500)); err != nil {
		t.Fatal(err)
	}

	got, _ := s.Get(id)
	o := got.Output(out.ID)
	if o.Volume != 250 || o.Mixins[0].Volume != 40 || o.Mixins[0].Delay.Millis() != 3500 {
		t.Fatalf("tuned output = %+v", o)
	}

	// Out-of-range and unknown ids leave state untouched.
	if err := s.TuneVolume(ctx, id, out.ID, nil, restream.VolumeMax+1); !errors.Is(err, restream.ErrInvalidInput) {
		t.Fatalf("got %v, want ErrInvalidInput", err)
	}
	stranger := restream.NewMixinID()
	if err := s.TuneVolume(ctx, id, out.ID, &stranger, 10); !errors.Is(err, restream.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
	if err := s.TuneVolume(ctx, id, restream.NewOutputID(), nil, 10); !errors.Is(err, restream.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
	got2, _ := s.Get(id)
	if got2.Output(out.ID).Volume != 250 {
		t.Fatal("failed tune mutated state")
	}
}

func TestEnableDisableAllOutputs(t *testing.T) {
	s, _, _, _ := newTestRegistry(t)
	ctx := context.Background()

	a := remoteRestream("alpha")
	a.Outputs = []restream.Output{testOutput("rtmp://dst.example/a/1"), testOutput("rtmp://dst.example/a/2")}
	a.Outputs[0].ID = restream.NewOutputID()
	a.Outputs[1].ID = restream.NewOutputID()
	aid := mustSet(t, s, a)

	b := remoteRestream("beta")
	b.Outputs = []restream.Output{testOutput("rtmp://dst.example/b/1")}
	b.Outputs[0].ID = restream.NewOutputID()
	bid := mustSet(t, s, b)

	if err := s.DisableAllOutputs(ctx, aid); err != nil {
		t.Fatal(err)
	}
	gotA, _ := s.Get(aid)
	gotB, _ := s.Get(bid)
	if gotA.Outputs[0].Enabled || gotA.Outputs[1].Enabled {
		t.Fatal("scoped disable missed outputs")
	}
	if !gotB.Outputs[0].Enabled {
		t.Fatal("scoped disable leaked to another restream")
	}

	if err := s.DisableAllOutputsOfRestreams(ctx); err != nil {
		t.Fatal(err)
	}
	gotB, _ = s.Get(bid)
	if gotB.Outputs[0].Enabled {
		t.Fatal("global disable missed outputs")
	}

	if err := s.EnableAllOutputsOfRestreams(ctx); err != nil {
		t.Fatal(err)
	}
	gotA, _ = s.Get(aid)
	gotB, _ = s.Get(bid)
	if !gotA.Outputs[0].Enabled || !gotA.Outputs[1].Enabled || !gotB.Outputs[0].Enabled {
		t.Fatal("global enable missed outputs")
	}
}

func TestApplyStatusPropagatesAndPublishes(t *testing.T) {
	s, _, _, pub := newTestRegistry(t)

	r := remoteRestream("studio")
	r.ID = mustSet(t, s, r)

	before := pub.n
	s.ApplyStatus(StatusTarget{Restream: r.ID, Input: r.Input.ID}, restream.StatusOnline)
	got, _ := s.Get(r.ID)
	if got.Input.IngestStatus() != restream.StatusOnline {
		t.Fatalf("status = %s, want online", got.Input.IngestStatus())
	}
	if pub.n <= before {
		t.Fatal("status change did not publish")
	}

	// Same status again: no publication.
	mid := pub.n
	s.ApplyStatus(StatusTarget{Restream: r.ID, Input: r.Input.ID}, restream.StatusOnline)
	if pub.n != mid {
		t.Fatal("unchanged status must not publish")
	}

	// Unknown restream: dropped silently.
	s.ApplyStatus(StatusTarget{Restream: restream.NewRestreamID(), Input: r.Input.ID}, restream.StatusOffline)
}

func TestExportImportRoundTrip(t *testing.T) {
	s, _, _, _ := newTestRegistry(t)
	ctx := context.Background()

	r := remoteRestream("studio")
	out := testOutput("rtmp://dst.example/app/key")
	out.ID = restream.NewOutputID()
	r.Outputs = []restream.Output{out}
	id := mustSet(t, s, r)

	spec, err := s.Export(nil)
	if err != nil {
		t.Fatal(err)
	}
	text, err := restream.EncodeSpec(spec)
	if err != nil {
		t.Fatal(err)
	}

	// Import into a fresh registry.
	s2, _, _, _ := newTestRegistry(t)
	if err := s2.Import(ctx, text, ImportMerge, nil); err != nil {
		t.Fatal(err)
	}
	got, err := s2.Get(id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Key != "studio" || len(got.Outputs) != 1 || got.Outputs[0].ID != out.ID {
		t.Fatalf("imported restream = %+v", got)
	}
}

func TestImportMergeConflict(t *testing.T) {
	s, _, _, _ := newTestRegistry(t)
	ctx := context.Background()

	mustSet(t, s, remoteRestream("studio"))

	spec, _ := s.Export(nil)
	spec.Restreams[0].ID = restream.NewRestreamID() // same key, different id
	text, _ := restream.EncodeSpec(spec)

	if err := s.Import(ctx, text, ImportMerge, nil); !errors.Is(err, restream.ErrConflict) {
		t.Fatalf("got %v, want ErrConflict", err)
	}
	if len(s.Snapshot()) != 1 {
		t.Fatal("failed merge changed state")
	}
}

func TestImportMergeInternalConflictCommitsNothing(t *testing.T) {
	s, store, _, _ := newTestRegistry(t)
	ctx := context.Background()

	mustSet(t, s, remoteRestream("existing"))

	// Two definitions sharing one key: the whole payload must be rejected
	// before the first entry lands.
	a := remoteRestream("dup")
	a.ID = restream.NewRestreamID()
	b := remoteRestream("dup")
	b.ID = restream.NewRestreamID()
	text, _ := restream.EncodeSpec(restream.Spec{
		Version:   restream.SpecVersion,
		Restreams: []restream.RestreamSpec{a.Export(), b.Export()},
	})

	if err := s.Import(ctx, text, ImportMerge, nil); !errors.Is(err, restream.ErrConflict) {
		t.Fatalf("got %v, want ErrConflict", err)
	}
	if snap := s.Snapshot(); len(snap) != 1 || snap[0].Key != "existing" {
		t.Fatalf("snapshot = %+v, want only the pre-import restream", snap)
	}
	if len(store.specs) != 1 {
		t.Fatalf("store has %d specs, want 1", len(store.specs))
	}
}

func TestImportMergeDuplicateIDCommitsNothing(t *testing.T) {
	s, _, _, _ := newTestRegistry(t)
	ctx := context.Background()

	shared := restream.NewRestreamID()
	a := remoteRestream("alpha")
	a.ID = shared
	b := remoteRestream("beta")
	b.ID = shared
	text, _ := restream.EncodeSpec(restream.Spec{
		Version:   restream.SpecVersion,
		Restreams: []restream.RestreamSpec{a.Export(), b.Export()},
	})

	if err := s.Import(ctx, text, ImportMerge, nil); !errors.Is(err, restream.ErrConflict) {
		t.Fatalf("got %v, want ErrConflict", err)
	}
	if len(s.Snapshot()) != 0 {
		t.Fatal("failed merge changed state")
	}
}

func TestImportReplaceOne(t *testing.T) {
	s, _, _, _ := newTestRegistry(t)
	ctx := context.Background()

	id := mustSet(t, s, remoteRestream("studio"))

	repl := remoteRestream("studio")
	repl.ID = restream.NewRestreamID()
	repl.Input.Src.Remote.URL = "rtmp://up.example/live/other"
	text, _ := restream.EncodeSpec(restream.Spec{
		Version:   restream.SpecVersion,
		Restreams: []restream.RestreamSpec{repl.Export()},
	})

	if err := s.Import(ctx, text, ImportReplace, &id); err != nil {
		t.Fatal(err)
	}

	got, err := s.Get(id) // target ID is kept
	if err != nil {
		t.Fatal(err)
	}
	if got.Input.Src.Remote.URL != "rtmp://up.example/live/other" {
		t.Fatalf("config not replaced: %+v", got.Input.Src.Remote)
	}
}

func TestImportReplaceAll(t *testing.T) {
	s, store, _, _ := newTestRegistry(t)
	ctx := context.Background()

	oldID := mustSet(t, s, remoteRestream("old"))

	next := remoteRestream("next")
	next.ID = restream.NewRestreamID()
	text, _ := restream.EncodeSpec(restream.Spec{
		Version:   restream.SpecVersion,
		Restreams: []restream.RestreamSpec{next.Export()},
	})

	if err := s.Import(ctx, text, ImportReplace, nil); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Get(oldID); !errors.Is(err, restream.ErrNotFound) {
		t.Fatal("old restream survived replace-all")
	}
	if _, err := s.Get(next.ID); err != nil {
		t.Fatal(err)
	}
	if _, ok := store.specs[oldID]; ok {
		t.Fatal("old spec survived in store")
	}
}

func TestImportReplaceAllDuplicateKeyRejected(t *testing.T) {
	s, _, _, _ := newTestRegistry(t)
	ctx := context.Background()

	keepID := mustSet(t, s, remoteRestream("keep"))

	a := remoteRestream("same")
	a.ID = restream.NewRestreamID()
	b := remoteRestream("same")
	b.ID = restream.NewRestreamID()
	text, _ := restream.EncodeSpec(restream.Spec{
		Version:   restream.SpecVersion,
		Restreams: []restream.RestreamSpec{a.Export(), b.Export()},
	})

	if err := s.Import(ctx, text, ImportReplace, nil); !errors.Is(err, restream.ErrConflict) {
		t.Fatalf("got %v, want ErrConflict", err)
	}

	// The registry must be untouched.
	snap := s.Snapshot()
	if len(snap) != 1 || snap[0].ID != keepID {
		t.Fatalf("snapshot = %+v, want only the pre-import restream", snap)
	}
}

func TestLoadRejectsDuplicateKeys(t *testing.T) {
	store := newFakeStore()

	a := remoteRestream("same")
	a.ID = restream.NewRestreamID()
	b := remoteRestream("same")
	b.ID = restream.NewRestreamID()
	specA, specB := a.Export(), b.Export()
	store.specs[a.ID] = specA
	store.specs[b.ID] = specB

	s := NewRegistry(zap.NewNop(), store, nil, nil)
	if err := s.Load(context.Background()); !errors.Is(err, restream.ErrConflict) {
		t.Fatalf("got %v, want ErrConflict", err)
	}
}

func TestImportRejectsBadSpec(t *testing.T) {
	s, _, _, _ := newTestRegistry(t)
	ctx := context.Background()

	for _, text := range []string{
		"not json",
		`{"version":"v999","restreams":[]}`,
	} {
		if err := s.Import(ctx, text, ImportMerge, nil); !errors.Is(err, restream.ErrInvalidInput) {
			t.Fatalf("Import(%q): got %v, want ErrInvalidInput", text, err)
		}
	}
}

func TestConcurrentMutationsOnDistinctIDs(t *testing.T) {
	s, _, _, _ := newTestRegistry(t)
	ctx := context.Background()

	ids := make([]restream.RestreamID, 8)
	for i := range ids {
		ids[i] = mustSet(t, s, remoteRestream("stream-"+strings.Repeat("x", i+1)))
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(ids))
	for _, id := range ids {
		wg.Add(1)
		go func(id restream.RestreamID) {
			defer wg.Done()
			errs <- s.SetOutput(ctx, id, testOutput("rtmp://dst.example/app/key"))
		}(id)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatal(err)
		}
	}
	for _, id := range ids {
		got, _ := s.Get(id)
		if len(got.Outputs) != 1 {
			t.Fatalf("restream %s has %d outputs, want 1", id, len(got.Outputs))
		}
	}
}

func TestFindOutput(t *testing.T) {
	s, _, _, _ := newTestRegistry(t)

	r := remoteRestream("studio")
	out := testOutput("rtmp://dst.example/app/key")
	out.ID = restream.NewOutputID()
	r.Outputs = []restream.Output{out}
	id := mustSet(t, s, r)

	rid, got, err := s.FindOutput(out.ID)
	if err != nil {
		t.Fatal(err)
	}
	if rid != id || got.ID != out.ID {
		t.Fatalf("FindOutput = %s/%s", rid, got.ID)
	}

	if _, _, err := s.FindOutput(restream.NewOutputID()); !errors.Is(err, restream.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}
