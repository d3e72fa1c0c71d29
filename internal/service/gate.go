package service

import "errors"

// gate is a tiny 1-token semaphore with TryLock semantics (non-blocking fast-fail).
type gate struct{ ch chan struct{} }

func newGate() *gate {
	g := &gate{ch: make(chan struct{}, 1)}
	g.ch <- struct{}{} // token present => unlocked
	return g
}
func (g *gate) Lock() { <-g.ch }
func (g *gate) TryLock() bool {
	select {
	case <-g.ch:
		return true
	default:
		return false
	}
}
func (g *gate) Unlock() {
	select {
	case g.ch <- struct{}{}:
	default:
		panic("unlock of unlocked gate")
	}
}

// ErrLocked signals a concurrent mutation is already in flight for this restream.
var ErrLocked = errors.New("restream locked")

// ErrWorkerStart signals that a change requiring a fresh worker was rejected
// because the worker could not be brought up; prior configuration stays active.
var ErrWorkerStart = errors.New("worker start failed")

// ErrAuthFailed signals a password verification failure.
var ErrAuthFailed = errors.New("authentication failed")
