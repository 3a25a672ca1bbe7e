package progress

import (
	"sync"
	"testing"

	"github.com/kailas-cloud/querygen/internal/domain"
)

func TestTracker_Empty(t *testing.T) {
	tr := NewTracker()
	if _, ok := tr.Snapshot(); ok {
		t.Fatal("expected no snapshot before first publish")
	}
}

func TestTracker_PublishCopies(t *testing.T) {
	tr := NewTracker()
	done := map[domain.Category]int{domain.CategoryGeneric: 1}
	tr.Publish(domain.Progress{Model: "m", CompletedKeywords: 1, CategoriesDone: done})

	done[domain.CategoryGeneric] = 99

	got, ok := tr.Snapshot()
	if !ok {
		t.Fatal("expected snapshot")
	}
	if got.CategoriesDone[domain.CategoryGeneric] != 1 {
		t.Errorf("publisher mutation leaked into snapshot: %v", got.CategoriesDone)
	}

	got.CategoriesDone[domain.CategoryGeneric] = 42
	again, _ := tr.Snapshot()
	if again.CategoriesDone[domain.CategoryGeneric] != 1 {
		t.Errorf("reader mutation leaked into tracker: %v", again.CategoriesDone)
	}
}

func TestTracker_Concurrent(t *testing.T) {
	tr := NewTracker()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		i := i
		wg.Add(2)
		go func() {
			defer wg.Done()
			tr.Publish(domain.Progress{
				CompletedKeywords: i,
				CategoriesDone:    map[domain.Category]int{domain.CategoryNiche: i},
			})
		}()
		go func() {
			defer wg.Done()
			tr.Snapshot()
		}()
	}
	wg.Wait()

	got, ok := tr.Snapshot()
	if !ok {
		t.Fatal("expected snapshot")
	}
	if got.CategoriesDone[domain.CategoryNiche] != got.CompletedKeywords {
		t.Errorf("torn snapshot: %+v", got)
	}
}
