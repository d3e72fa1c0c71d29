package processmgr

import "time"

const (
	backoffBase  = 500 * time.Millisecond
	backoffCap   = 30 * time.Second
	healthyReset = 30 * time.Second
)

// backoff computes per-worker restart delays: exponential from base, doubling
// per consecutive failure, capped. A run that stayed up past healthyReset
// counts as recovery and resets the sequence.
//
// Not concurrency-safe; each worker owns one backoff and touches it under
// the pool lock.
type backoff struct {
	fails int
}

// next returns the delay before the upcoming restart attempt and records
// the failure.
func (b *backoff) next() time.Duration {
	d := backoffBase << b.fails
	if d > backoffCap || d < backoffBase {
		d = backoffCap
	}
	b.fails++
	return d
}

// observe updates the sequence from a finished run's uptime.
func (b *backoff) observe(uptime time.Duration) {
	if uptime >= healthyReset {
		b.fails = 0
	}
}
