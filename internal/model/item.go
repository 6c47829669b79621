package model

import "time"

// ItemTemplate is an immutable catalog entry from the game server.
type ItemTemplate struct {
	ID         int64      `json:"id"`
	Name       string     `json:"name"`
	Slug       string     `json:"slug"`
	Type       string     `json:"type"`
	Rarity     string     `json:"rarity"`
	StackMax   int        `json:"stackMax"`
	Weight     float64    `json:"weight"`
	EquipSlot  string     `json:"equipSlot,omitempty"`
	IsHarvest  bool       `json:"isHarvest"`
	Attributes Attributes `json:"attributes,omitempty"`
}

// Clone returns an independent deep copy.
func (t *ItemTemplate) Clone() *ItemTemplate {
	if t == nil {
		return nil
	}
	out := *t
	out.Attributes = t.Attributes.Clone()
	return &out
}

// LootEntry is one row of a mob's loot table. DropChance is a
// probability in [0,1].
type LootEntry struct {
	ItemID     int64   `json:"itemId"`
	DropChance float64 `json:"dropChance"`
}

// DroppedItem is an item lying on the ground, waiting for pickup or decay.
type DroppedItem struct {
	UID             int64     `json:"uid"`
	ItemID          int64     `json:"itemId"`
	Quantity        int       `json:"quantity"`
	Position        Position  `json:"position"`
	DropTime        time.Time `json:"-"`
	DroppedByMobUID int64     `json:"droppedByMobUid,omitempty"`
	CanBePickedUp   bool      `json:"canBePickedUp"`
}

// InventoryEntry is one stack in a character's inventory, unique by ItemID.
type InventoryEntry struct {
	ItemID   int64 `json:"itemId"`
	Quantity int   `json:"quantity"`
}

// CloneEntries copies an inventory or loot slice.
func CloneEntries(entries []InventoryEntry) []InventoryEntry {
	if entries == nil {
		return nil
	}
	return append([]InventoryEntry(nil), entries...)
}
