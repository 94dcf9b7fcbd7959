package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeClock lets tests move time forward without sleeping.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}

func newTestCache[K comparable, V any](ttl time.Duration) (*TTLCache[K, V], *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := New[K, V](ttl)
	c.now = clock.Now
	return c, clock
}

func TestSetAndGet(t *testing.T) {
	c := New[string, int](time.Minute)

	c.Set("john/3", 42)

	value, ok := c.Get("john/3")
	if !ok {
		t.Fatal("Get returned ok=false for existing key")
	}
	if value != 42 {
		t.Errorf("Get = %d, want 42", value)
	}

	if _, ok := c.Get("nonexistent"); ok {
		t.Error("Get returned ok=true for missing key")
	}
}

func TestGetExpired(t *testing.T) {
	c, clock := newTestCache[string, int](time.Minute)

	c.Set("a", 1)
	clock.Advance(30 * time.Second)
	c.Set("b", 2)
	clock.Advance(30 * time.Second)

	if _, ok := c.Get("a"); ok {
		t.Error("a should have expired")
	}
	if v, ok := c.Get("b"); !ok || v != 2 {
		t.Errorf("Get(b) = %d, %v; want 2, true", v, ok)
	}
}

func TestZeroTTLNeverHits(t *testing.T) {
	c := New[string, int](0)
	c.Set("a", 1)
	if _, ok := c.Get("a"); ok {
		t.Error("zero TTL cache should never hit")
	}
}

func TestGetOrLoad(t *testing.T) {
	c := New[string, string](time.Minute)
	calls := 0
	load := func() (string, error) {
		calls++
		return "view", nil
	}

	for i := 0; i < 3; i++ {
		v, err := c.GetOrLoad("romans/8", load)
		if err != nil {
			t.Fatalf("GetOrLoad error: %v", err)
		}
		if v != "view" {
			t.Errorf("GetOrLoad = %q, want view", v)
		}
	}
	if calls != 1 {
		t.Errorf("load called %d times, want 1", calls)
	}
}

func TestGetOrLoadErrorNotCached(t *testing.T) {
	c := New[string, int](time.Minute)
	boom := errors.New("boom")

	if _, err := c.GetOrLoad("k", func() (int, error) { return 0, boom }); !errors.Is(err, boom) {
		t.Fatalf("GetOrLoad error = %v, want boom", err)
	}
	if c.Len() != 0 {
		t.Errorf("Len = %d after failed load, want 0", c.Len())
	}

	v, err := c.GetOrLoad("k", func() (int, error) { return 7, nil })
	if err != nil || v != 7 {
		t.Errorf("GetOrLoad = %d, %v; want 7, nil", v, err)
	}
}

func TestGetOrLoadSharesConcurrentMisses(t *testing.T) {
	c := New[string, int](time.Minute)
	var calls atomic.Int32
	release := make(chan struct{})

	load := func() (int, error) {
		calls.Add(1)
		<-release
		return 5, nil
	}

	var wg sync.WaitGroup
	results := make([]int, 10)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, _ := c.GetOrLoad("shared", load)
			results[i] = v
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := calls.Load(); n < 1 || n > 2 {
		t.Errorf("load called %d times, want 1 (at most 2 under scheduling skew)", n)
	}
	for i, v := range results {
		if v != 5 {
			t.Errorf("results[%d] = %d, want 5", i, v)
		}
	}
}

func TestDeleteAndInvalidate(t *testing.T) {
	c := New[string, int](time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)

	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Error("a should be deleted")
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}

	c.Invalidate()
	if c.Len() != 0 {
		t.Errorf("Len after Invalidate = %d, want 0", c.Len())
	}
	if _, ok := c.Get("b"); ok {
		t.Error("b should be gone after Invalidate")
	}
}

func TestGetAllAndPrune(t *testing.T) {
	c, clock := newTestCache[string, int](time.Minute)
	c.Set("old", 1)
	clock.Advance(45 * time.Second)
	c.Set("new", 2)
	clock.Advance(20 * time.Second)

	all := c.GetAll()
	if len(all) != 1 || all["new"] != 2 {
		t.Errorf("GetAll = %v, want map[new:2]", all)
	}

	all["injected"] = 99
	if _, ok := c.Get("injected"); ok {
		t.Error("GetAll result should be a copy")
	}

	if n := c.Prune(); n != 1 {
		t.Errorf("Prune = %d, want 1", n)
	}
	if c.Len() != 1 {
		t.Errorf("Len after Prune = %d, want 1", c.Len())
	}
}

func TestConcurrentAccess(t *testing.T) {
	c := New[int, int](time.Minute)
	var wg sync.WaitGroup

	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				c.Set(g*100+i, i)
				c.Get(g*100 + i)
				if i%25 == 0 {
					c.GetAll()
				}
			}
		}(g)
	}
	wg.Wait()

	if c.Len() != 800 {
		t.Errorf("Len = %d, want 800", c.Len())
	}
}
