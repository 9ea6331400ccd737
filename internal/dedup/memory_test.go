package dedup

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestMemory_SeenAfterMark(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(time.Minute, 10)

	if seen, _ := m.Seen(ctx, "a"); seen {
		t.Fatal("unmarked key reported as seen")
	}
	if err := m.Mark(ctx, "a"); err != nil {
		t.Fatalf("Mark: %v", err)
	}
	if seen, _ := m.Seen(ctx, "a"); !seen {
		t.Fatal("marked key not seen")
	}
}

func TestMemory_Expiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(50*time.Millisecond, 10)

	_ = m.Mark(ctx, "a")
	if seen, _ := m.Seen(ctx, "a"); !seen {
		t.Fatal("key expired early")
	}
	time.Sleep(80 * time.Millisecond)
	if seen, _ := m.Seen(ctx, "a"); seen {
		t.Fatal("key should have expired")
	}
}

func TestMemory_MarkRefreshesExpiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(100*time.Millisecond, 10)

	_ = m.Mark(ctx, "a")
	time.Sleep(60 * time.Millisecond)
	_ = m.Mark(ctx, "a")
	time.Sleep(60 * time.Millisecond)
	if seen, _ := m.Seen(ctx, "a"); !seen {
		t.Fatal("re-marked key expired on its first deadline")
	}
}

func TestMemory_CapacityEvictsOldest(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(time.Hour, 3)
	for _, k := range []string{"a", "b", "c"} {
		_ = m.Mark(ctx, k)
	}
	// refresh "a" so "b" is the oldest
	_ = m.Mark(ctx, "a")
	_ = m.Mark(ctx, "d")

	if m.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", m.Len())
	}
	for k, want := range map[string]bool{"a": true, "b": false, "c": true, "d": true} {
		if seen, _ := m.Seen(ctx, k); seen != want {
			t.Errorf("Seen(%q) = %v, want %v", k, seen, want)
		}
	}
}

func TestMemory_Defaults(t *testing.T) {
	m := NewMemory(0, 0)
	if m.ttl != DefaultTTL || m.capacity != DefaultCapacity {
		t.Errorf("ttl=%v capacity=%d", m.ttl, m.capacity)
	}
}

func TestMemory_Concurrent(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(time.Minute, 100)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				k := fmt.Sprintf("k-%d-%d", i, j)
				_ = m.Mark(ctx, k)
				_, _ = m.Seen(ctx, k)
			}
		}(i)
	}
	wg.Wait()
	if m.Len() > 100 {
		t.Errorf("Len() = %d exceeds capacity", m.Len())
	}
}

func TestNoop(t *testing.T) {
	var s Set = Noop{}
	_ = s.Mark(context.Background(), "a")
	if seen, err := s.Seen(context.Background(), "a"); seen || err != nil {
		t.Errorf("Noop.Seen = %v, %v", seen, err)
	}
}
