//go:build linux

package processmgr

import "testing"

func TestSpecKeyStable(t *testing.T) {
	a := Spec{Unit: "pull:main", Argv: []string{"ffmpeg", "-i", "rtmp://a", "out"}}
	b := Spec{Unit: "renamed", Argv: []string{"ffmpeg", "-i", "rtmp://a", "out"}}

	if a.Key() != b.Key() {
		t.Fatal("key must depend on argv only")
	}
	if a.Key() != a.Key() {
		t.Fatal("key must be deterministic")
	}
}

func TestSpecKeyChangesWithArgv(t *testing.T) {
	a := Spec{Argv: []string{"ffmpeg", "-i", "rtmp://a", "out"}}
	b := Spec{Argv: []string{"ffmpeg", "-i", "rtmp://b", "out"}}
	if a.Key() == b.Key() {
		t.Fatal("different argv must yield different keys")
	}

	// Token boundaries matter: ["ab","c"] != ["a","bc"].
	c := Spec{Argv: []string{"ab", "c"}}
	d := Spec{Argv: []string{"a", "bc"}}
	if c.Key() == d.Key() {
		t.Fatal("argv token boundaries must be part of the key")
	}
}

func TestSlotPoolOwnership(t *testing.T) {
	p := newSlotPool(2)

	if !p.tryAcquire("a") || !p.tryAcquire("b") {
		t.Fatal("acquisitions within capacity must succeed")
	}
	if p.tryAcquire("c") {
		t.Fatal("acquire beyond capacity must fail")
	}
	if p.current() != 2 {
		t.Fatalf("current = %d, want 2", p.current())
	}

	p.release("a")
	if !p.tryAcquire("c") {
		t.Fatal("released slot must be reusable")
	}

	owners := p.listAcquired()
	if len(owners) != 2 {
		t.Fatalf("owners = %v, want two entries", owners)
	}
}

func TestSlotPoolShrinkClampsNegative(t *testing.T) {
	p := newSlotPool(4)
	p.updateLimit(-1)
	if p.capacity() != 0 {
		t.Fatalf("capacity = %d, want 0", p.capacity())
	}
	if p.tryAcquire("a") {
		t.Fatal("acquire must fail at zero capacity")
	}
}
