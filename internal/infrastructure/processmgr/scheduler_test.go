package processmgr

import (
	"testing"
	"time"
)

func TestSchedulerOrdersByTime(t *testing.T) {
	s := newScheduler()
	now := time.Now()

	s.push("c", now.Add(3*time.Second))
	s.push("a", now.Add(1*time.Second))
	s.push("b", now.Add(2*time.Second))

	for _, want := range []string{"a", "b", "c"} {
		key, _, ok := s.next()
		if !ok || key != want {
			t.Fatalf("next() = %q/%v, want %q", key, ok, want)
		}
		s.pop()
	}

	if _, _, ok := s.next(); ok {
		t.Fatal("scheduler should be empty")
	}
}

func TestSchedulerPushOverridesExisting(t *testing.T) {
	s := newScheduler()
	now := time.Now()

	s.push("a", now.Add(time.Hour))
	s.push("b", now.Add(time.Minute))
	s.push("a", now) // fresh boot overrides stale

	key, when, ok := s.next()
	if !ok || key != "a" || !when.Equal(now) {
		t.Fatalf("next() = %q @ %v, want a @ %v", key, when, now)
	}

	s.pop()
	s.pop()
	if _, _, ok := s.next(); ok {
		t.Fatal("duplicate entry survived override")
	}
}

func TestSchedulerRemove(t *testing.T) {
	s := newScheduler()
	now := time.Now()

	s.push("a", now)
	s.push("b", now.Add(time.Second))

	s.remove("a")
	s.remove("missing") // no-op

	key, _, ok := s.next()
	if !ok || key != "b" {
		t.Fatalf("next() = %q/%v, want b", key, ok)
	}
}
