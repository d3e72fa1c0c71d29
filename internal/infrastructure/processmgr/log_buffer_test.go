package processmgr

import (
	"fmt"
	"reflect"
	"testing"
)

func TestLogBufferNewestFirst(t *testing.T) {
	b := new(logBuffer)
	b.Append("one")
	b.Append("two")
	b.Append("three")

	got := b.Read(2)
	want := []string{"three", "two"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Read(2) = %v, want %v", got, want)
	}
}

func TestLogBufferWrapAround(t *testing.T) {
	b := new(logBuffer)
	total := len(b.entries) + 10
	for i := 0; i < total; i++ {
		b.Append(fmt.Sprintf("line-%d", i))
	}

	got := b.Read(3)
	want := []string{
		fmt.Sprintf("line-%d", total-1),
		fmt.Sprintf("line-%d", total-2),
		fmt.Sprintf("line-%d", total-3),
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Read(3) after wrap = %v, want %v", got, want)
	}

	if n := len(b.Read(0)); n != len(b.entries) {
		t.Fatalf("Read(0) returned %d lines, want %d", n, len(b.entries))
	}
}

func TestLogBufferEmpty(t *testing.T) {
	b := new(logBuffer)
	if got := b.Read(10); got != nil {
		t.Fatalf("Read on empty buffer = %v, want nil", got)
	}
}

func TestLogManagerLazyAndDrop(t *testing.T) {
	lm := NewLogManager()

	if lines := lm.Read("k", 5); lines != nil {
		t.Fatalf("unknown key should have no lines, got %v", lines)
	}

	lm.Get("k").Append("hello")
	if lines := lm.Read("k", 5); len(lines) != 1 || lines[0] != "hello" {
		t.Fatalf("Read = %v, want [hello]", lines)
	}

	lm.Drop("k")
	if lines := lm.Read("k", 5); lines != nil {
		t.Fatalf("dropped key should have no lines, got %v", lines)
	}
}
