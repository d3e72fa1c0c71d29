package processmgr

import "sync"

// LogManager manages per-worker log buffers.
// - Creates buffers lazily
// - Thread-safe access
type LogManager struct {
	mu   sync.RWMutex
	bufs map[string]*logBuffer // worker key → log buffer
}

// NewLogManager initializes an empty log-buffer registry.
func NewLogManager() *LogManager {
	return &LogManager{
		bufs: make(map[string]*logBuffer),
	}
}

// Get returns the log buffer for a worker key.
// If missing, a new buffer is created and stored.
func (lm *LogManager) Get(key string) *logBuffer {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if buf, ok := lm.bufs[key]; ok {
		return buf
	}

	buf := new(logBuffer)
	lm.bufs[key] = buf
	return buf
}

// Read returns the last N lines for a worker key, newest → oldest.
// An unknown key has no lines.
func (lm *LogManager) Read(key string, lines int) []string {
	lm.mu.RLock()
	buf, ok := lm.bufs[key]
	lm.mu.RUnlock()

	if !ok {
		return nil
	}
	return buf.Read(lines)
}

// Drop releases the buffer for a retired worker key.
func (lm *LogManager) Drop(key string) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	delete(lm.bufs, key)
}
