package world

import (
	"fmt"
	"sync"

	"github.com/mistvale/chunkserver/internal/model"
)

// HealthUpdate reports the outcome of a mob health mutation. MobDied is
// set exactly once per mob: the update that drops it to zero. A second
// killing blow sees WasAlreadyDead instead, which keeps the death
// pipeline (loot, corpse, exp) from running twice.
type HealthUpdate struct {
	Success        bool
	MobDied        bool
	WasAlreadyDead bool
}

// MobInstanceRegistry holds live mob instances with a zoneId secondary
// index. Primary map and index are only ever edited under the same
// write lock, so for every uid in a zone list the instance's ZoneID
// matches that zone.
type MobInstanceRegistry struct {
	mu     sync.RWMutex
	mobs   map[int64]*model.MobInstance
	byZone map[int64][]int64
}

// NewMobInstanceRegistry creates an empty registry.
func NewMobInstanceRegistry() *MobInstanceRegistry {
	return &MobInstanceRegistry{
		mobs:   make(map[int64]*model.MobInstance, 512),
		byZone: make(map[int64][]int64, 32),
	}
}

// Register inserts a new instance and indexes it under its zone.
// Fails if the uid is already present.
func (r *MobInstanceRegistry) Register(inst model.MobInstance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.mobs[inst.UID]; ok {
		return fmt.Errorf("mob %d already registered", inst.UID)
	}
	stored := inst
	r.mobs[inst.UID] = &stored
	r.byZone[inst.ZoneID] = append(r.byZone[inst.ZoneID], inst.UID)
	return nil
}

// Unregister removes an instance from the primary map and its zone
// list, dropping the zone entry when it empties.
func (r *MobInstanceRegistry) Unregister(uid int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst, ok := r.mobs[uid]
	if !ok {
		return false
	}
	delete(r.mobs, uid)

	uids := r.byZone[inst.ZoneID]
	for i, u := range uids {
		if u == uid {
			uids = append(uids[:i], uids[i+1:]...)
			break
		}
	}
	if len(uids) == 0 {
		delete(r.byZone, inst.ZoneID)
	} else {
		r.byZone[inst.ZoneID] = uids
	}
	return true
}

// Get returns a copy of the instance.
func (r *MobInstanceRegistry) Get(uid int64) (model.MobInstance, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.mobs[uid]
	if !ok {
		return model.MobInstance{}, false
	}
	return *inst, true
}

// InZone returns copies of every instance indexed under the zone,
// dead ones included.
func (r *MobInstanceRegistry) InZone(zoneID int64) []model.MobInstance {
	r.mu.RLock()
	defer r.mu.RUnlock()
	uids := r.byZone[zoneID]
	out := make([]model.MobInstance, 0, len(uids))
	for _, uid := range uids {
		if inst, ok := r.mobs[uid]; ok {
			out = append(out, *inst)
		}
	}
	return out
}

// AliveInZone returns copies of the zone's living instances.
func (r *MobInstanceRegistry) AliveInZone(zoneID int64) []model.MobInstance {
	r.mu.RLock()
	defer r.mu.RUnlock()
	uids := r.byZone[zoneID]
	out := make([]model.MobInstance, 0, len(uids))
	for _, uid := range uids {
		if inst, ok := r.mobs[uid]; ok && inst.IsAlive() {
			out = append(out, *inst)
		}
	}
	return out
}

// UpdateHealth sets current health, clamped into [0, MaxHealth]. The
// transition to zero marks the mob dead and reports MobDied.
func (r *MobInstanceRegistry) UpdateHealth(uid int64, hp int) HealthUpdate {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst, ok := r.mobs[uid]
	if !ok {
		return HealthUpdate{}
	}
	if inst.IsDead {
		return HealthUpdate{Success: true, WasAlreadyDead: true}
	}
	inst.CurrentHealth = clampStat(hp, inst.MaxHealth)
	if inst.CurrentHealth <= 0 {
		inst.CurrentHealth = 0
		inst.IsDead = true
		return HealthUpdate{Success: true, MobDied: true}
	}
	return HealthUpdate{Success: true}
}

// Damage subtracts amount from current health in one lock acquisition,
// so concurrent hits on the same mob cannot lose updates. Reporting
// matches UpdateHealth; the remaining health rides along for the
// execution broadcast.
func (r *MobInstanceRegistry) Damage(uid int64, amount int) (HealthUpdate, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst, ok := r.mobs[uid]
	if !ok {
		return HealthUpdate{}, 0
	}
	if inst.IsDead {
		return HealthUpdate{Success: true, WasAlreadyDead: true}, 0
	}
	inst.CurrentHealth = clampStat(inst.CurrentHealth-amount, inst.MaxHealth)
	if inst.CurrentHealth <= 0 {
		inst.CurrentHealth = 0
		inst.IsDead = true
		return HealthUpdate{Success: true, MobDied: true}, 0
	}
	return HealthUpdate{Success: true}, inst.CurrentHealth
}

// Heal adds amount to current health, clamped to the maximum. Dead
// mobs stay dead.
func (r *MobInstanceRegistry) Heal(uid int64, amount int) (bool, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst, ok := r.mobs[uid]
	if !ok || inst.IsDead {
		return false, 0
	}
	inst.CurrentHealth = clampStat(inst.CurrentHealth+amount, inst.MaxHealth)
	return true, inst.CurrentHealth
}

// SpendMana subtracts a skill's mana cost, clamped at zero.
func (r *MobInstanceRegistry) SpendMana(uid int64, cost int) (bool, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst, ok := r.mobs[uid]
	if !ok {
		return false, 0
	}
	inst.CurrentMana = clampStat(inst.CurrentMana-cost, inst.MaxMana)
	return true, inst.CurrentMana
}

// UpdateMana sets current mana, clamped into [0, MaxMana].
func (r *MobInstanceRegistry) UpdateMana(uid int64, mp int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst, ok := r.mobs[uid]
	if !ok {
		return false
	}
	inst.CurrentMana = clampStat(mp, inst.MaxMana)
	return true
}

// UpdatePosition sets an instance's position.
func (r *MobInstanceRegistry) UpdatePosition(uid int64, pos model.Position) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst, ok := r.mobs[uid]
	if !ok {
		return false
	}
	inst.Position = pos
	return true
}

// AliveCountInZone walks the zone index counting living instances.
func (r *MobInstanceRegistry) AliveCountInZone(zoneID int64) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, uid := range r.byZone[zoneID] {
		if inst, ok := r.mobs[uid]; ok && inst.IsAlive() {
			n++
		}
	}
	return n
}

// All returns copies of every registered instance.
func (r *MobInstanceRegistry) All() []model.MobInstance {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.MobInstance, 0, len(r.mobs))
	for _, inst := range r.mobs {
		out = append(out, *inst)
	}
	return out
}

// Count returns the number of registered instances.
func (r *MobInstanceRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.mobs)
}
