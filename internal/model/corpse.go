package model

import "time"

// Corpse is the post-death anchor for harvest loot. Distinct from ground
// drops: a corpse must be harvested before its loot can be picked up.
type Corpse struct {
	MobUID            int64            `json:"mobUid"`
	MobID             int64            `json:"mobId"`
	Position          Position         `json:"position"`
	DeathTime         time.Time        `json:"-"`
	HasBeenHarvested  bool             `json:"hasBeenHarvested"`
	HarvestedBy       int64            `json:"harvestedByCharacterId,omitempty"`
	CurrentHarvester  int64            `json:"-"`
	InteractionRadius float64          `json:"interactionRadius"`
	AvailableLoot     []InventoryEntry `json:"availableLoot,omitempty"`
}

// Clone returns an independent deep copy.
func (c *Corpse) Clone() *Corpse {
	if c == nil {
		return nil
	}
	out := *c
	out.AvailableLoot = CloneEntries(c.AvailableLoot)
	return &out
}

// HasLoot reports whether harvested loot is still waiting for pickup.
func (c *Corpse) HasLoot() bool {
	return len(c.AvailableLoot) > 0
}

// HarvestSession is one character's harvest in progress. A character has
// at most one; moving past MaxMoveDistance from StartPosition cancels it.
type HarvestSession struct {
	CharacterID     int64         `json:"characterId"`
	CorpseUID       int64         `json:"corpseUid"`
	StartTime       time.Time     `json:"-"`
	Duration        time.Duration `json:"-"`
	StartPosition   Position      `json:"startPosition"`
	MaxMoveDistance float64       `json:"maxMoveDistance"`
	IsActive        bool          `json:"isActive"`
}

// Done reports whether the harvest duration has elapsed.
func (s HarvestSession) Done(now time.Time) bool {
	return s.IsActive && now.Sub(s.StartTime) >= s.Duration
}
