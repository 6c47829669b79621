package world

import (
	"sync"
	"time"

	"github.com/mistvale/chunkserver/internal/model"
)

// SpawnZoneRegistry holds zone definitions plus their live population
// counters. The spawn path reserves slots under the write lock so two
// concurrent population checks cannot overfill a zone, and releases
// them on mob death together with the respawn delay bookkeeping.
type SpawnZoneRegistry struct {
	mu    sync.RWMutex
	zones map[int64]*model.SpawnZone
}

// NewSpawnZoneRegistry creates an empty registry.
func NewSpawnZoneRegistry() *SpawnZoneRegistry {
	return &SpawnZoneRegistry{zones: make(map[int64]*model.SpawnZone, 32)}
}

// Put inserts or updates a zone definition, cloning it in. Live
// counters of an existing zone survive re-replication: refreshing the
// catalog must not orphan the mobs already spawned.
func (r *SpawnZoneRegistry) Put(z *model.SpawnZone) {
	if z == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.putLocked(z)
}

func (r *SpawnZoneRegistry) putLocked(z *model.SpawnZone) {
	stored := z.Clone()
	if old, ok := r.zones[z.ZoneID]; ok {
		stored.SpawnedCount = old.SpawnedCount
		stored.SpawnedMobs = old.SpawnedMobs
		stored.NextRespawnAt = old.NextRespawnAt
	}
	r.zones[z.ZoneID] = stored
}

// ReplaceAll swaps in a full zone batch, dropping zones absent from it.
func (r *SpawnZoneRegistry) ReplaceAll(zs []model.SpawnZone) {
	r.mu.Lock()
	defer r.mu.Unlock()
	keep := make(map[int64]struct{}, len(zs))
	for i := range zs {
		keep[zs[i].ZoneID] = struct{}{}
		r.putLocked(&zs[i])
	}
	for id := range r.zones {
		if _, ok := keep[id]; !ok {
			delete(r.zones, id)
		}
	}
}

// Get returns a deep clone of the zone.
func (r *SpawnZoneRegistry) Get(zoneID int64) (*model.SpawnZone, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	z, ok := r.zones[zoneID]
	if !ok {
		return nil, false
	}
	return z.Clone(), true
}

// All returns deep clones of every zone.
func (r *SpawnZoneRegistry) All() []*model.SpawnZone {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*model.SpawnZone, 0, len(r.zones))
	for _, z := range r.zones {
		out = append(out, z.Clone())
	}
	return out
}

// IDs returns every zone id.
func (r *SpawnZoneRegistry) IDs() []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]int64, 0, len(r.zones))
	for id := range r.zones {
		out = append(out, id)
	}
	return out
}

// ReserveSpawnSlots claims the zone's free population slots by bumping
// SpawnedCount immediately. Returns 0 while the zone is full or still
// inside its respawn window. The caller must follow up each reserved
// slot with BindSpawnedMob or roll it back with ReleaseSpawnSlot.
func (r *SpawnZoneRegistry) ReserveSpawnSlots(zoneID int64, now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	z, ok := r.zones[zoneID]
	if !ok {
		return 0
	}
	if now.Before(z.NextRespawnAt) {
		return 0
	}
	need := z.SpawnCount - z.SpawnedCount
	if need <= 0 {
		return 0
	}
	z.SpawnedCount += need
	return need
}

// BindSpawnedMob records the uid filling a reserved slot.
func (r *SpawnZoneRegistry) BindSpawnedMob(zoneID, mobUID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if z, ok := r.zones[zoneID]; ok {
		z.SpawnedMobs = append(z.SpawnedMobs, mobUID)
	}
}

// ReleaseSpawnSlot rolls one reserved slot back after a failed spawn.
func (r *SpawnZoneRegistry) ReleaseSpawnSlot(zoneID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if z, ok := r.zones[zoneID]; ok && z.SpawnedCount > 0 {
		z.SpawnedCount--
	}
}

// ReleaseMob drops a dead mob from the population and arms the zone's
// respawn delay, so the next population check waits RespawnTimeSec.
func (r *SpawnZoneRegistry) ReleaseMob(zoneID, mobUID int64, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	z, ok := r.zones[zoneID]
	if !ok {
		return false
	}
	if z.SpawnedCount > 0 {
		z.SpawnedCount--
	}
	for i, uid := range z.SpawnedMobs {
		if uid == mobUID {
			z.SpawnedMobs = append(z.SpawnedMobs[:i], z.SpawnedMobs[i+1:]...)
			break
		}
	}
	if z.RespawnTimeSec > 0 {
		z.NextRespawnAt = now.Add(time.Duration(z.RespawnTimeSec) * time.Second)
	}
	return true
}

// Count returns the number of zones.
func (r *SpawnZoneRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.zones)
}
