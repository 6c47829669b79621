package world

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/mistvale/chunkserver/internal/model"
	"github.com/mistvale/chunkserver/internal/protocol"
)

const (
	// PickupRange is the ground-drop pickup radius. Deliberately
	// distinct from the corpse interaction radius: ground drops are
	// grabbed in passing, corpses are worked on.
	PickupRange = 100.0

	// dropJitter spreads death drops around the corpse.
	dropJitter = 20.0

	// DefaultDropDecayAge is how long a ground drop survives.
	DefaultDropDecayAge = 5 * time.Minute
)

// LootStore keeps the ground drops of this chunk. Death rolls go
// through the item registry's loot tables; freshly dropped vectors are
// reported through the drop callback (outside the lock) for broadcast.
type LootStore struct {
	mu    sync.RWMutex
	drops map[int64]*model.DroppedItem

	items *ItemRegistry
	onDrop func(items []model.DroppedItem)
}

// NewLootStore creates an empty store over the item catalog.
func NewLootStore(items *ItemRegistry) *LootStore {
	return &LootStore{
		drops: make(map[int64]*model.DroppedItem, 256),
		items: items,
	}
}

// SetDropFunc installs the drop callback. Must be wired before the
// server starts handling events.
func (s *LootStore) SetDropFunc(fn func(items []model.DroppedItem)) {
	s.onDrop = fn
}

// GenerateOnMobDeath rolls the mob's ground loot table and registers
// the hits around pos with an XY jitter. The new drops are returned and
// reported through the drop callback.
func (s *LootStore) GenerateOnMobDeath(mobID, mobUID int64, pos model.Position) []model.DroppedItem {
	rows := s.items.GroundLoot(mobID)
	if len(rows) == 0 {
		return nil
	}

	var dropped []model.DroppedItem
	now := time.Now()
	for _, row := range rows {
		if rand.Float64() >= row.DropChance {
			continue
		}
		item := model.DroppedItem{
			UID:             NextDroppedItemUID(),
			ItemID:          row.ItemID,
			Quantity:        1,
			Position:        pos.WithXY(pos.X+jitter(dropJitter), pos.Y+jitter(dropJitter)),
			DropTime:        now,
			DroppedByMobUID: mobUID,
			CanBePickedUp:   true,
		}
		dropped = append(dropped, item)
	}
	if len(dropped) == 0 {
		return nil
	}

	s.mu.Lock()
	for i := range dropped {
		d := dropped[i]
		s.drops[d.UID] = &d
	}
	s.mu.Unlock()

	if s.onDrop != nil {
		s.onDrop(dropped)
	}
	return dropped
}

// Take validates and claims a ground drop for pickup, removing it from
// the store. Returns an error code on failure. If the inventory add
// that follows fails, the caller puts the item back with Reinstate.
func (s *LootStore) Take(itemUID int64, playerPos model.Position) (model.DroppedItem, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drops[itemUID]
	if !ok {
		return model.DroppedItem{}, protocol.CodeItemNotFound
	}
	if !d.CanBePickedUp {
		return model.DroppedItem{}, protocol.CodePickupFailed
	}
	if playerPos.DistanceXY(d.Position) > PickupRange {
		return model.DroppedItem{}, protocol.CodeOutOfRange
	}
	delete(s.drops, itemUID)
	return *d, ""
}

// Reinstate returns a claimed drop after a failed inventory add.
func (s *LootStore) Reinstate(item model.DroppedItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := item
	s.drops[item.UID] = &stored
}

// Nearby returns copies of drops within radius of pos.
func (s *LootStore) Nearby(pos model.Position, radius float64) []model.DroppedItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.DroppedItem
	for _, d := range s.drops {
		if pos.DistanceXY(d.Position) <= radius {
			out = append(out, *d)
		}
	}
	return out
}

// CleanupOld removes drops older than maxAge, returning the count.
func (s *LootStore) CleanupOld(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for uid, d := range s.drops {
		if d.DropTime.Before(cutoff) {
			delete(s.drops, uid)
			removed++
		}
	}
	return removed
}

// Count returns the number of drops on the ground.
func (s *LootStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.drops)
}

func jitter(max float64) float64 {
	return (rand.Float64()*2 - 1) * max
}
