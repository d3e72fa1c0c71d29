package service

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/edgemux/restream-server/internal/domain/restream"
	"go.uber.org/zap"
)

type countingSource struct {
	mu   sync.Mutex
	n    int
	snap []restream.Restream
}

func (c *countingSource) Snapshot() []restream.Restream {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	return c.snap
}

func (c *countingSource) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

func TestStateCacheServesFreshThenCached(t *testing.T) {
	r := remoteRestream("studio")
	r.ID = restream.NewRestreamID()
	src := &countingSource{snap: []restream.Restream{r}}
	cache := NewStateCache(zap.NewNop(), src, StateCacheOptions{TTL: time.Hour})

	first, err := cache.Get(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if first.CacheHit {
		t.Fatal("first read must be a miss")
	}

	var decoded []restream.Restream
	if err := json.Unmarshal(first.Data, &decoded); err != nil {
		t.Fatal(err)
	}
	if len(decoded) != 1 || decoded[0].Key != "studio" {
		t.Fatalf("decoded = %+v", decoded)
	}

	second, err := cache.Get(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !second.CacheHit || !bytes.Equal(first.Data, second.Data) {
		t.Fatal("second read within TTL must hit the cache")
	}
	if src.calls() != 1 {
		t.Fatalf("snapshot taken %d times, want 1", src.calls())
	}
}

func TestStateCacheInvalidate(t *testing.T) {
	src := &countingSource{}
	cache := NewStateCache(zap.NewNop(), src, StateCacheOptions{TTL: time.Hour})

	if _, err := cache.Get(context.Background()); err != nil {
		t.Fatal(err)
	}
	cache.Invalidate()

	res, err := cache.Get(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.CacheHit {
		t.Fatal("read after Invalidate must re-encode")
	}
	if src.calls() != 2 {
		t.Fatalf("snapshot taken %d times, want 2", src.calls())
	}
}

func TestStateCacheCoalescesBurst(t *testing.T) {
	src := &countingSource{}
	cache := NewStateCache(zap.NewNop(), src, StateCacheOptions{TTL: time.Hour})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.Get(context.Background()); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	if src.calls() != 1 {
		t.Fatalf("snapshot taken %d times under a burst, want 1", src.calls())
	}
}
