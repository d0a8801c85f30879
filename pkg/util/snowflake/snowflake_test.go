package snowflake

import (
	"sync"
	"testing"
)

func TestInitRejectsOutOfRangeMachine(t *testing.T) {
	if err := Init(1024); err == nil {
		t.Fatal("machine 1024 should be rejected")
	}
	if err := Init(-1); err == nil {
		t.Fatal("negative machine should be rejected")
	}
	if err := Init(7); err != nil {
		t.Fatalf("Init(7): %v", err)
	}
}

func TestGenerateIDUniqueAcrossGoroutines(t *testing.T) {
	if err := Init(3); err != nil {
		t.Fatalf("Init: %v", err)
	}
	const workers, perWorker = 8, 500
	ids := make(chan int64, workers*perWorker)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				ids <- GenerateID()
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]struct{}, workers*perWorker)
	for id := range ids {
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %d", id)
		}
		seen[id] = struct{}{}
	}
}
