package world

import (
	"sync"

	"github.com/mistvale/chunkserver/internal/model"
)

// ItemRegistry holds the item catalog and the per-mob loot tables, both
// replicated from the game server. Harvest and ground loot share one
// table; rows split by the item template's IsHarvest flag.
type ItemRegistry struct {
	mu    sync.RWMutex
	items map[int64]*model.ItemTemplate
	loot  map[int64][]model.LootEntry
}

// NewItemRegistry creates an empty registry.
func NewItemRegistry() *ItemRegistry {
	return &ItemRegistry{
		items: make(map[int64]*model.ItemTemplate, 256),
		loot:  make(map[int64][]model.LootEntry, 128),
	}
}

// Put inserts or updates one catalog entry, cloning it in.
func (r *ItemRegistry) Put(t *model.ItemTemplate) {
	if t == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[t.ID] = t.Clone()
}

// ReplaceAll swaps in a full catalog batch. Loot tables are kept; they
// replicate separately.
func (r *ItemRegistry) ReplaceAll(ts []model.ItemTemplate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	next := make(map[int64]*model.ItemTemplate, len(ts))
	for i := range ts {
		next[ts[i].ID] = ts[i].Clone()
	}
	r.items = next
}

// Get returns a deep clone of a catalog entry.
func (r *ItemRegistry) Get(id int64) (*model.ItemTemplate, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.items[id]
	if !ok {
		return nil, false
	}
	return t.Clone(), true
}

// SetLootTable replaces one mob's loot rows.
func (r *ItemRegistry) SetLootTable(mobID int64, rows []model.LootEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loot[mobID] = append([]model.LootEntry(nil), rows...)
}

// LootTable returns a copy of one mob's full loot table.
func (r *ItemRegistry) LootTable(mobID int64) []model.LootEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]model.LootEntry(nil), r.loot[mobID]...)
}

// GroundLoot returns the rows that drop on the ground at mob death.
func (r *ItemRegistry) GroundLoot(mobID int64) []model.LootEntry {
	return r.filterLoot(mobID, false)
}

// HarvestLoot returns the rows only a harvest can extract.
func (r *ItemRegistry) HarvestLoot(mobID int64) []model.LootEntry {
	return r.filterLoot(mobID, true)
}

func (r *ItemRegistry) filterLoot(mobID int64, harvest bool) []model.LootEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []model.LootEntry
	for _, row := range r.loot[mobID] {
		t, ok := r.items[row.ItemID]
		if !ok {
			continue
		}
		if t.IsHarvest == harvest {
			out = append(out, row)
		}
	}
	return out
}

// Count returns the catalog size.
func (r *ItemRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

// LootTableCount returns how many mobs have loot rows.
func (r *ItemRegistry) LootTableCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.loot)
}
