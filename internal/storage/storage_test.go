package storage

import (
	"fmt"
	"sync"
	"testing"
)

func TestStore(t *testing.T) {
	s := New[*int]()
	v := 7
	s.Set("a", &v)

	got, ok := s.Get("a")
	if !ok || *got != 7 {
		t.Fatalf("Get(a) = %v, %v", got, ok)
	}
	if _, ok := s.Get("b"); ok {
		t.Error("Get(b) found a session")
	}

	all := s.GetAll()
	delete(all, "a")
	if s.Len() != 1 {
		t.Error("GetAll returned the internal map")
	}

	if !s.Delete("a") || s.Delete("a") {
		t.Error("Delete should report existence once")
	}
}

func TestStoreConcurrent(t *testing.T) {
	s := New[int]()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("s%d", i)
			s.Set(id, i)
			s.Get(id)
		}(i)
	}
	wg.Wait()
	if s.Len() != 50 {
		t.Errorf("Len = %d, want 50", s.Len())
	}
}
