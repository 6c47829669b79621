package world

import (
	"testing"

	"github.com/mistvale/chunkserver/internal/model"
)

func TestInventoryAddMergesStacks(t *testing.T) {
	s := NewInventoryStore()

	if err := s.Add(10, 401, 2); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.Add(10, 401, 3); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.Add(10, 402, 1); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if got := s.Quantity(10, 401); got != 5 {
		t.Errorf("quantity = %d, want 5", got)
	}
	bag := s.List(10)
	if len(bag) != 2 || bag[0].ItemID != 401 || bag[1].ItemID != 402 {
		t.Errorf("bag = %+v", bag)
	}

	if err := s.Add(10, 401, 0); err == nil {
		t.Error("zero-quantity add accepted")
	}
	if err := s.Add(10, 401, -1); err == nil {
		t.Error("negative add accepted")
	}
}

func TestInventoryRemove(t *testing.T) {
	s := NewInventoryStore()
	s.Add(10, 401, 5)

	if err := s.Remove(10, 401, 2); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if got := s.Quantity(10, 401); got != 3 {
		t.Errorf("quantity = %d, want 3", got)
	}

	if err := s.Remove(10, 401, 10); err == nil {
		t.Error("overdraw accepted")
	}
	if err := s.Remove(10, 999, 1); err == nil {
		t.Error("remove of absent item accepted")
	}

	// Draining a stack erases it.
	if err := s.Remove(10, 401, 3); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if s.Has(10, 401) {
		t.Error("empty stack still reported")
	}
	if got := len(s.List(10)); got != 0 {
		t.Errorf("bag = %d stacks after drain", got)
	}
}

func TestInventoryNotifyOnMutation(t *testing.T) {
	s := NewInventoryStore()
	var gotChar int64
	var gotItems []model.InventoryEntry
	calls := 0
	s.SetNotifyFunc(func(characterID int64, items []model.InventoryEntry) {
		calls++
		gotChar = characterID
		gotItems = items
	})

	s.Add(10, 401, 2)
	if calls != 1 || gotChar != 10 || len(gotItems) != 1 || gotItems[0].Quantity != 2 {
		t.Fatalf("after add: calls=%d char=%d items=%+v", calls, gotChar, gotItems)
	}

	// The callback sees a snapshot, not the live bag.
	gotItems[0].Quantity = 99
	if got := s.Quantity(10, 401); got != 2 {
		t.Errorf("bag mutated through snapshot: %d", got)
	}

	s.Remove(10, 401, 1)
	if calls != 2 || gotItems[0].Quantity != 1 {
		t.Errorf("after remove: calls=%d items=%+v", calls, gotItems)
	}

	// Failed mutations stay silent.
	s.Add(10, 401, 0)
	s.Remove(10, 401, 50)
	if calls != 2 {
		t.Errorf("callback fired on failed mutation, calls=%d", calls)
	}
}

func TestInventoryDropDiscardsBag(t *testing.T) {
	s := NewInventoryStore()
	s.Add(10, 401, 2)
	s.Add(11, 401, 7)

	s.Drop(10)

	if s.Has(10, 401) {
		t.Error("dropped bag still present")
	}
	if got := s.Quantity(11, 401); got != 7 {
		t.Errorf("unrelated bag touched: %d", got)
	}
}

func TestInventoryListReturnsCopy(t *testing.T) {
	s := NewInventoryStore()
	s.Add(10, 401, 2)

	bag := s.List(10)
	bag[0].Quantity = 99

	if got := s.Quantity(10, 401); got != 2 {
		t.Errorf("bag mutated through List copy: %d", got)
	}
}
