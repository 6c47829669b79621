package world

import (
	"sync"

	"github.com/mistvale/chunkserver/internal/model"
)

// CharacterRegistry holds the authoritative character state for this
// chunk. Queries return deep clones; engines mutate a clone and write
// it back with Put, or use one of the narrow field updaters which hold
// the write lock for the minimum span.
type CharacterRegistry struct {
	mu    sync.RWMutex
	chars map[int64]*model.Character
}

// NewCharacterRegistry creates an empty registry.
func NewCharacterRegistry() *CharacterRegistry {
	return &CharacterRegistry{chars: make(map[int64]*model.Character, 256)}
}

// Put inserts or replaces a character, cloning it in. Re-inserting an
// existing id updates in place.
func (r *CharacterRegistry) Put(c *model.Character) {
	if c == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chars[c.ID] = c.Clone()
}

// Get returns a deep clone of the character.
func (r *CharacterRegistry) Get(id int64) (*model.Character, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.chars[id]
	if !ok {
		return nil, false
	}
	return c.Clone(), true
}

// Remove deletes a character from the registry.
func (r *CharacterRegistry) Remove(id int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.chars[id]; !ok {
		return false
	}
	delete(r.chars, id)
	return true
}

// UpdatePosition sets a character's position.
func (r *CharacterRegistry) UpdatePosition(id int64, pos model.Position) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.chars[id]
	if !ok {
		return false
	}
	c.Position = pos
	return true
}

// UpdateHealth sets current health, clamped into [0, MaxHealth].
func (r *CharacterRegistry) UpdateHealth(id int64, hp int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.chars[id]
	if !ok {
		return false
	}
	c.CurrentHealth = clampStat(hp, c.MaxHealth)
	return true
}

// UpdateMana sets current mana, clamped into [0, MaxMana].
func (r *CharacterRegistry) UpdateMana(id int64, mp int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.chars[id]
	if !ok {
		return false
	}
	c.CurrentMana = clampStat(mp, c.MaxMana)
	return true
}

// SetAttributes replaces a character's attribute set, cloned in.
func (r *CharacterRegistry) SetAttributes(id int64, attrs model.Attributes) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.chars[id]
	if !ok {
		return false
	}
	c.Attributes = attrs.Clone()
	return true
}

// Apply runs fn against the live character under the write lock, for
// read-modify-write sequences that must not interleave (experience
// grants, level-ups). fn must not call back into the registry.
func (r *CharacterRegistry) Apply(id int64, fn func(*model.Character)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.chars[id]
	if !ok {
		return false
	}
	fn(c)
	return true
}

// SetClient binds the owning client id, 0 to unbind on disconnect.
func (r *CharacterRegistry) SetClient(id, clientID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.chars[id]
	if !ok {
		return false
	}
	c.ClientID = clientID
	return true
}

// All returns deep clones of every character.
func (r *CharacterRegistry) All() []*model.Character {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*model.Character, 0, len(r.chars))
	for _, c := range r.chars {
		out = append(out, c.Clone())
	}
	return out
}

// Connected returns clones of characters currently bound to a client.
func (r *CharacterRegistry) Connected() []*model.Character {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*model.Character, 0, len(r.chars))
	for _, c := range r.chars {
		if c.ClientID != 0 {
			out = append(out, c.Clone())
		}
	}
	return out
}

// Count returns the number of resident characters.
func (r *CharacterRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.chars)
}

func clampStat(v, max int) int {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}
