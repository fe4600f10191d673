package cms

import (
	"sync"
	"testing"
	"time"
)

func TestKeyLock_SerializesSameKey(t *testing.T) {
	l := newKeyLock()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		active  int
		maxSeen int
	)
	for n := 0; n < 10; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.Lock("a.md")
			defer unlock()

			mu.Lock()
			active++
			maxSeen = max(maxSeen, active)
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()

	if maxSeen != 1 {
		t.Errorf("max concurrent holders = %d, want 1", maxSeen)
	}
	if len(l.locks) != 0 {
		t.Errorf("lock table has %d entries after release, want 0", len(l.locks))
	}
}

func TestKeyLock_OverlappingSetsDoNotDeadlock(t *testing.T) {
	l := newKeyLock()
	done := make(chan struct{})
	go func() {
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			i := i
			wg.Add(1)
			go func() {
				defer wg.Done()
				var unlock func()
				if i%2 == 0 {
					unlock = l.Lock("a.md", "b.md")
				} else {
					unlock = l.Lock("b.md", "a.md")
				}
				unlock()
			}()
		}
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("overlapping Lock calls deadlocked")
	}
}

func TestKeyLock_DuplicateKeys(t *testing.T) {
	l := newKeyLock()
	unlock := l.Lock("a.md", "a.md")
	unlock()
	if len(l.locks) != 0 {
		t.Errorf("lock table has %d entries, want 0", len(l.locks))
	}
}
