package docstore

import (
	"sync"
	"testing"
)

func TestKeyedMutex(t *testing.T) {
	k := newKeyedMutex()
	var mu sync.Mutex
	active := map[string]int{}
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := []string{"a", "b"}[i%2]
			unlock := k.Lock(key)
			mu.Lock()
			active[key]++
			if active[key] > 1 {
				t.Errorf("two holders of %s", key)
			}
			mu.Unlock()

			mu.Lock()
			active[key]--
			mu.Unlock()
			unlock()
		}(i)
	}
	wg.Wait()
	if k.Len() != 0 {
		t.Errorf("Len = %d after all unlocks", k.Len())
	}
}

func TestKeyedMutex_IndependentKeys(t *testing.T) {
	k := newKeyedMutex()
	unlockA := k.Lock("a")
	done := make(chan struct{})
	go func() {
		unlock := k.Lock("b")
		unlock()
		close(done)
	}()
	<-done
	unlockA()
}
