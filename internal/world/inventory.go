package world

import (
	"fmt"
	"sync"

	"github.com/mistvale/chunkserver/internal/model"
)

// InventoryStore keeps per-character item stacks, unique by itemId.
// Every successful mutation reports the new inventory through the
// notify callback (outside the lock), which the wiring turns into an
// INVENTORY_UPDATE event; callers never push inventory to clients
// themselves.
type InventoryStore struct {
	mu     sync.RWMutex
	bags   map[int64][]model.InventoryEntry
	notify func(characterID int64, items []model.InventoryEntry)
}

// NewInventoryStore creates an empty store.
func NewInventoryStore() *InventoryStore {
	return &InventoryStore{bags: make(map[int64][]model.InventoryEntry, 256)}
}

// SetNotifyFunc installs the mutation callback. Must be wired before
// the server starts handling events.
func (s *InventoryStore) SetNotifyFunc(fn func(characterID int64, items []model.InventoryEntry)) {
	s.notify = fn
}

// Add merges qty of an item into the character's bag.
func (s *InventoryStore) Add(characterID, itemID int64, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("add item %d: quantity %d", itemID, qty)
	}

	s.mu.Lock()
	bag := s.bags[characterID]
	merged := false
	for i := range bag {
		if bag[i].ItemID == itemID {
			bag[i].Quantity += qty
			merged = true
			break
		}
	}
	if !merged {
		bag = append(bag, model.InventoryEntry{ItemID: itemID, Quantity: qty})
	}
	s.bags[characterID] = bag
	snapshot := model.CloneEntries(bag)
	s.mu.Unlock()

	s.notifyUpdate(characterID, snapshot)
	return nil
}

// Remove decrements qty of an item, erasing the stack at zero.
func (s *InventoryStore) Remove(characterID, itemID int64, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("remove item %d: quantity %d", itemID, qty)
	}

	s.mu.Lock()
	bag := s.bags[characterID]
	idx := -1
	for i := range bag {
		if bag[i].ItemID == itemID {
			idx = i
			break
		}
	}
	if idx < 0 || bag[idx].Quantity < qty {
		s.mu.Unlock()
		return fmt.Errorf("remove item %d: not enough in inventory", itemID)
	}
	bag[idx].Quantity -= qty
	if bag[idx].Quantity == 0 {
		bag = append(bag[:idx], bag[idx+1:]...)
	}
	s.bags[characterID] = bag
	snapshot := model.CloneEntries(bag)
	s.mu.Unlock()

	s.notifyUpdate(characterID, snapshot)
	return nil
}

// Has reports whether the character holds any of the item.
func (s *InventoryStore) Has(characterID, itemID int64) bool {
	return s.Quantity(characterID, itemID) > 0
}

// Quantity returns how many of the item the character holds.
func (s *InventoryStore) Quantity(characterID, itemID int64) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.bags[characterID] {
		if e.ItemID == itemID {
			return e.Quantity
		}
	}
	return 0
}

// List returns a copy of the character's bag in insertion order.
func (s *InventoryStore) List(characterID int64) []model.InventoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return model.CloneEntries(s.bags[characterID])
}

// Drop discards the character's cached bag, e.g. after disconnect. The
// game server owns the persistent copy.
func (s *InventoryStore) Drop(characterID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.bags, characterID)
}

func (s *InventoryStore) notifyUpdate(characterID int64, items []model.InventoryEntry) {
	if s.notify != nil {
		s.notify(characterID, items)
	}
}
