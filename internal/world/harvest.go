package world

import (
	"sync"
	"time"

	"github.com/mistvale/chunkserver/internal/model"
	"github.com/mistvale/chunkserver/internal/protocol"
)

const (
	// DefaultInteractionRadius is how close a harvester must stand to
	// a corpse. Wider than the ground-drop PickupRange on purpose; the
	// two mechanics keep distinct constants.
	DefaultInteractionRadius = 150.0

	// DefaultHarvestDuration is the harvest channel time.
	DefaultHarvestDuration = 3 * time.Second

	// DefaultMaxMoveDistance cancels a harvest when the harvester
	// strays this far from where the channel started.
	DefaultMaxMoveDistance = 50.0

	// DefaultCorpseMaxAge is how long a corpse survives before the
	// cleanup sweep reclaims it.
	DefaultCorpseMaxAge = 10 * time.Minute
)

// HarvestStore keeps corpses and harvest sessions under one lock, which
// is what makes the exclusivity invariants cheap to enforce: at most
// one active session per character, at most one claiming harvester per
// corpse, and the claim plus session are created atomically.
type HarvestStore struct {
	mu       sync.RWMutex
	corpses  map[int64]*model.Corpse
	sessions map[int64]*model.HarvestSession // keyed by characterID
}

// NewHarvestStore creates an empty store.
func NewHarvestStore() *HarvestStore {
	return &HarvestStore{
		corpses:  make(map[int64]*model.Corpse, 128),
		sessions: make(map[int64]*model.HarvestSession, 64),
	}
}

// RegisterCorpse records a mob death as harvestable.
func (s *HarvestStore) RegisterCorpse(c model.Corpse) {
	if c.InteractionRadius <= 0 {
		c.InteractionRadius = DefaultInteractionRadius
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := c
	s.corpses[c.MobUID] = &stored
}

// Corpse returns a deep clone of the corpse.
func (s *HarvestStore) Corpse(mobUID int64) (*model.Corpse, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.corpses[mobUID]
	if !ok {
		return nil, false
	}
	return c.Clone(), true
}

// Nearby returns clones of corpses within radius of pos.
func (s *HarvestStore) Nearby(pos model.Position, radius float64) []*model.Corpse {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Corpse
	for _, c := range s.corpses {
		if pos.DistanceXY(c.Position) <= radius {
			out = append(out, c.Clone())
		}
	}
	return out
}

// BeginHarvest validates and claims a corpse for the character and
// creates the session, all under one lock acquisition. On failure the
// returned code maps straight to the error response.
func (s *HarvestStore) BeginHarvest(characterID, corpseUID int64, playerPos model.Position, now time.Time) (model.HarvestSession, string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.corpses[corpseUID]
	if !ok {
		return model.HarvestSession{}, protocol.CodeCorpseNotFound
	}
	if c.HasBeenHarvested {
		return model.HarvestSession{}, protocol.CodeCorpseNotAvailable
	}
	if playerPos.DistanceXY(c.Position) > c.InteractionRadius {
		return model.HarvestSession{}, protocol.CodeOutOfRange
	}
	if c.CurrentHarvester != 0 && c.CurrentHarvester != characterID {
		return model.HarvestSession{}, protocol.CodeHarvestFailed
	}
	if _, busy := s.sessions[characterID]; busy {
		return model.HarvestSession{}, protocol.CodeHarvestFailed
	}

	c.CurrentHarvester = characterID
	sess := &model.HarvestSession{
		CharacterID:     characterID,
		CorpseUID:       corpseUID,
		StartTime:       now,
		Duration:        DefaultHarvestDuration,
		StartPosition:   playerPos,
		MaxMoveDistance: DefaultMaxMoveDistance,
		IsActive:        true,
	}
	s.sessions[characterID] = sess
	return *sess, ""
}

// CancelHarvest tears the character's session down and releases the
// corpse claim. Returns the cancelled session for the broadcast.
func (s *HarvestStore) CancelHarvest(characterID int64) (model.HarvestSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[characterID]
	if !ok {
		return model.HarvestSession{}, false
	}
	delete(s.sessions, characterID)
	if c, ok := s.corpses[sess.CorpseUID]; ok && c.CurrentHarvester == characterID {
		c.CurrentHarvester = 0
	}
	out := *sess
	out.IsActive = false
	return out, true
}

// CompleteDue flips sessions whose duration has elapsed to inactive and
// returns them. The sessions stay in the store until FinishHarvest so
// the per-character exclusivity holds through completion handling.
func (s *HarvestStore) CompleteDue(now time.Time) []model.HarvestSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []model.HarvestSession
	for _, sess := range s.sessions {
		if sess.Done(now) {
			sess.IsActive = false
			due = append(due, *sess)
		}
	}
	return due
}

// Session returns the character's session, active or completing.
func (s *HarvestStore) Session(characterID int64) (model.HarvestSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[characterID]
	if !ok {
		return model.HarvestSession{}, false
	}
	return *sess, true
}

// FinishHarvest marks the corpse harvested with its rolled loot,
// releases the claim and removes the session.
func (s *HarvestStore) FinishHarvest(characterID, corpseUID int64, loot []model.InventoryEntry) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.corpses[corpseUID]
	if !ok {
		delete(s.sessions, characterID)
		return false
	}
	c.HasBeenHarvested = true
	c.HarvestedBy = characterID
	c.CurrentHarvester = 0
	c.AvailableLoot = model.CloneEntries(loot)
	delete(s.sessions, characterID)
	return true
}

// DebitLoot removes up to qty of an item from the corpse's available
// loot, returning how many were actually taken.
func (s *HarvestStore) DebitLoot(corpseUID, itemID int64, qty int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.corpses[corpseUID]
	if !ok || qty <= 0 {
		return 0
	}
	for i := range c.AvailableLoot {
		if c.AvailableLoot[i].ItemID != itemID {
			continue
		}
		took := qty
		if took > c.AvailableLoot[i].Quantity {
			took = c.AvailableLoot[i].Quantity
		}
		c.AvailableLoot[i].Quantity -= took
		if c.AvailableLoot[i].Quantity == 0 {
			c.AvailableLoot = append(c.AvailableLoot[:i], c.AvailableLoot[i+1:]...)
		}
		return took
	}
	return 0
}

// RemoveCorpse deletes a corpse outright.
func (s *HarvestStore) RemoveCorpse(mobUID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.corpses[mobUID]; !ok {
		return false
	}
	delete(s.corpses, mobUID)
	return true
}

// CleanupOld removes corpses older than maxAge along with any session
// still pointing at them, returning the removed mob uids so the caller
// can retire the dead instances.
func (s *HarvestStore) CleanupOld(maxAge time.Duration) []int64 {
	cutoff := time.Now().Add(-maxAge)
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed []int64
	for uid, c := range s.corpses {
		if !c.DeathTime.Before(cutoff) {
			continue
		}
		delete(s.corpses, uid)
		removed = append(removed, uid)
		for charID, sess := range s.sessions {
			if sess.CorpseUID == uid {
				delete(s.sessions, charID)
			}
		}
	}
	return removed
}

// Counts returns the number of corpses and sessions, for stats logs.
func (s *HarvestStore) Counts() (corpses, sessions int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.corpses), len(s.sessions)
}
