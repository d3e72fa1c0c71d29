package processmgr

import "sync"

// logBuffer is a thread-safe circular buffer for worker log lines with O(1)
// append and O(N) read.
type logBuffer struct {
	entries [500]string  // Fixed-size circular buffer (no heap allocations)
	head    int          // Next write position
	size    int          // Current number of entries
	full    bool         // Whether buffer has wrapped around
	mu      sync.RWMutex // Protects all fields
}

// Append adds a log line (overwrites oldest if full).
func (b *logBuffer) Append(entry string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	const capN = len(b.entries)

	b.entries[b.head] = entry
	b.head = (b.head + 1) % capN

	if b.full {
		return
	}
	b.size++
	if b.size == capN {
		b.full = true
	}
}

// Read returns the last N lines, newest → oldest, as a new slice the caller
// owns. lines <= 0 or > capacity returns whatever is available.
func (b *logBuffer) Read(lines int) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	const capN = len(b.entries)
	if b.size == 0 {
		return nil
	}

	if lines <= 0 || lines > capN {
		lines = capN
	}

	n := b.size
	if n > lines {
		n = lines
	}

	result := make([]string, n)

	// newest index: one behind head once wrapped, else size-1
	var newest int
	if b.full {
		newest = (b.head - 1 + capN) % capN
	} else {
		newest = b.size - 1
	}

	for i := 0; i < n; i++ {
		idx := (newest - i + capN) % capN
		result[i] = b.entries[idx]
	}

	return result
}
