package processmgr

import (
	"testing"
	"time"
)

func TestBackoffDoublesAndCaps(t *testing.T) {
	var bo backoff

	want := []time.Duration{
		500 * time.Millisecond,
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		30 * time.Second,
		30 * time.Second,
	}
	for i, w := range want {
		if got := bo.next(); got != w {
			t.Fatalf("attempt %d: next() = %v, want %v", i, got, w)
		}
	}
}

func TestBackoffResetsAfterHealthyRun(t *testing.T) {
	var bo backoff
	bo.next()
	bo.next()
	bo.next()

	bo.observe(healthyReset)
	if got := bo.next(); got != backoffBase {
		t.Fatalf("next() after healthy run = %v, want %v", got, backoffBase)
	}
}

func TestBackoffKeepsSequenceAfterShortRun(t *testing.T) {
	var bo backoff
	bo.next() // 500ms
	bo.next() // 1s

	bo.observe(2 * time.Second)
	if got := bo.next(); got != 2*time.Second {
		t.Fatalf("next() after short run = %v, want 2s", got)
	}
}

func TestBackoffNeverOverflows(t *testing.T) {
	var bo backoff
	for i := 0; i < 200; i++ {
		if got := bo.next(); got <= 0 || got > backoffCap {
			t.Fatalf("attempt %d: next() = %v out of range", i, got)
		}
	}
}
