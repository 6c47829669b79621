// Package ai drives mob behavior: idle wandering inside the spawn
// zone, target acquisition, chase, attack pacing and leashed return.
package ai

import (
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/mistvale/chunkserver/internal/model"
	"github.com/mistvale/chunkserver/internal/world"
)

// AttackFunc executes a mob's attack against a character. Injected by
// the composition root to avoid an import cycle with the combat engine.
type AttackFunc func(mobUID, targetCharacterID int64)

// CombatState is the per-mob behavior state.
type CombatState int32

const (
	StateIdle CombatState = iota
	StateChasing
	StateAttacking
	StateReturning
)

func (s CombatState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateChasing:
		return "CHASING"
	case StateAttacking:
		return "ATTACKING"
	case StateReturning:
		return "RETURNING"
	default:
		return "UNKNOWN"
	}
}

const (
	// defaultAggroRadius applies when a template carries none.
	defaultAggroRadius = 600.0

	// defaultAttackRange is the melee reach mobs close to before
	// handing the swing to the combat engine.
	defaultAttackRange = 150.0

	// leashRange from the spawn position forces a return home.
	leashRange = 1500.0

	// mobAttackCooldown paces attacks while in attacking state.
	mobAttackCooldown = 2 * time.Second
)

// mobState is the memory a mob keeps between ticks.
type mobState struct {
	spawnPos     model.Position
	state        CombatState
	targetID     int64
	nextMoveAt   time.Time
	nextAttackAt time.Time
	dirX, dirY   float64
	stepMult     float64
	speedMult    float64
}

// MobMove is one committed movement, collected per tick for the
// movement broadcast.
type MobMove struct {
	UID      int64          `json:"uid"`
	MobID    int64          `json:"mobId"`
	ZoneID   int64          `json:"zoneId"`
	Position model.Position `json:"position"`
}

// Engine owns the per-mob AI state. Ticks read the registries, run the
// state machine and write positions back; attacks fire through the
// injected callback after the engine lock is released.
type Engine struct {
	mu     sync.Mutex
	states map[int64]*mobState

	zones     *world.SpawnZoneRegistry
	templates *world.MobTemplateRegistry
	mobs      *world.MobInstanceRegistry
	chars     *world.CharacterRegistry

	attackFunc AttackFunc
}

// NewEngine creates an AI engine over the given registries.
func NewEngine(zones *world.SpawnZoneRegistry, templates *world.MobTemplateRegistry, mobs *world.MobInstanceRegistry, chars *world.CharacterRegistry) *Engine {
	return &Engine{
		states:    make(map[int64]*mobState, 256),
		zones:     zones,
		templates: templates,
		mobs:      mobs,
		chars:     chars,
	}
}

// SetAttackFunc injects the combat callback.
func (e *Engine) SetAttackFunc(fn AttackFunc) {
	e.attackFunc = fn
}

// Track starts driving a freshly spawned mob. Step and speed
// multipliers are rolled once so individual mobs keep a character.
func (e *Engine) Track(inst model.MobInstance) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.states[inst.UID] = &mobState{
		spawnPos:  inst.Position,
		state:     StateIdle,
		stepMult:  0.8 + randFloat()*0.5,
		speedMult: 0.7 + randFloat()*0.6,
	}
}

// Forget drops a mob's AI state, typically on death.
func (e *Engine) Forget(mobUID int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.states, mobUID)
}

// State returns the mob's current combat state and target.
func (e *Engine) State(mobUID int64) (CombatState, int64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, ok := e.states[mobUID]
	if !ok {
		return StateIdle, 0, false
	}
	return st.state, st.targetID, true
}

// HandleMobAttacked forces the mob onto the attacker. Fires from the
// combat engine whenever a player lands damage, so even zones with
// acquisition disabled retaliate.
func (e *Engine) HandleMobAttacked(mobUID, attackerID int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, ok := e.states[mobUID]
	if !ok {
		return
	}
	if st.state == StateIdle || st.state == StateReturning || st.targetID != attackerID {
		slog.Debug("mob aggroed by damage", "mobUid", mobUID, "attackerId", attackerID, "state", st.state.String())
	}
	st.state = StateChasing
	st.targetID = attackerID
}

// TickZone advances every alive mob in the zone and returns the
// committed movements.
func (e *Engine) TickZone(zoneID int64) []MobMove {
	zone, ok := e.zones.Get(zoneID)
	if !ok {
		return nil
	}
	alive := e.mobs.AliveInZone(zoneID)
	if len(alive) == 0 {
		return nil
	}
	players := e.chars.Connected()
	now := time.Now()

	var moves []MobMove
	var attacks [][2]int64

	e.mu.Lock()
	for _, inst := range alive {
		st, ok := e.states[inst.UID]
		if !ok {
			// Mob registered outside the spawner (tests, replication).
			st = &mobState{spawnPos: inst.Position, stepMult: 1, speedMult: 1}
			e.states[inst.UID] = st
		}

		pos, attack, moved := e.think(st, inst, zone, alive, players, now)
		if attack != 0 {
			attacks = append(attacks, [2]int64{inst.UID, attack})
		}
		if moved {
			e.mobs.UpdatePosition(inst.UID, pos)
			moves = append(moves, MobMove{UID: inst.UID, MobID: inst.MobID, ZoneID: zoneID, Position: pos})
		}
	}
	e.mu.Unlock()

	for _, a := range attacks {
		if e.attackFunc != nil {
			e.attackFunc(a[0], a[1])
		}
	}
	return moves
}

// TickAll runs TickZone over every zone.
func (e *Engine) TickAll() []MobMove {
	var out []MobMove
	for _, zoneID := range e.zones.IDs() {
		out = append(out, e.TickZone(zoneID)...)
	}
	return out
}

// think runs one state-machine step. It returns the new position, the
// character to attack (0 for none) and whether the mob moved.
func (e *Engine) think(st *mobState, inst model.MobInstance, zone *model.SpawnZone, neighbors []model.MobInstance, players []*model.Character, now time.Time) (model.Position, int64, bool) {
	switch st.state {
	case StateIdle:
		if !zone.AggroDisabled {
			if target := e.nearestPlayerInRange(inst, players); target != 0 {
				st.state = StateChasing
				st.targetID = target
				slog.Debug("mob acquired target", "mobUid", inst.UID, "targetId", target)
				return inst.Position, 0, false
			}
		}
		pos, moved := e.wander(st, inst, zone, neighbors, now)
		return pos, 0, moved

	case StateChasing, StateAttacking:
		target := findPlayer(players, st.targetID)
		if target == nil || !target.IsAlive() {
			e.goHome(st, inst)
			return inst.Position, 0, false
		}
		if inst.Position.DistanceXY(st.spawnPos) > leashRange ||
			target.Position.DistanceXY(st.spawnPos) > leashRange {
			e.goHome(st, inst)
			return inst.Position, 0, false
		}

		dist := inst.Position.DistanceXY(target.Position)
		if dist <= defaultAttackRange {
			st.state = StateAttacking
			if now.Before(st.nextAttackAt) {
				return inst.Position, 0, false
			}
			st.nextAttackAt = now.Add(mobAttackCooldown)
			return inst.Position, st.targetID, false
		}
		st.state = StateChasing
		pos := stepToward(inst.Position, target.Position, chaseStep, defaultAttackRange*0.8)
		return pos, 0, true

	case StateReturning:
		if zone.ContainsXY(inst.Position.X, inst.Position.Y) {
			st.state = StateIdle
			st.targetID = 0
			return inst.Position, 0, false
		}
		pos := stepToward(inst.Position, st.spawnPos, returnStep, 0)
		return pos, 0, true
	}
	return inst.Position, 0, false
}

func (e *Engine) goHome(st *mobState, inst model.MobInstance) {
	if st.state != StateReturning {
		slog.Debug("mob returning home", "mobUid", inst.UID, "state", st.state.String())
	}
	st.state = StateReturning
	st.targetID = 0
}

// nearestPlayerInRange picks the closest alive connected character
// within the template's aggro radius.
func (e *Engine) nearestPlayerInRange(inst model.MobInstance, players []*model.Character) int64 {
	radius := defaultAggroRadius
	if tpl, ok := e.templates.Get(inst.MobID); ok && tpl.AggroRadius > 0 {
		radius = tpl.AggroRadius
	}

	var best int64
	bestDist := math.MaxFloat64
	for _, p := range players {
		if !p.IsAlive() {
			continue
		}
		d := inst.Position.DistanceXY(p.Position)
		if d <= radius && d < bestDist {
			best = p.ID
			bestDist = d
		}
	}
	return best
}

func findPlayer(players []*model.Character, id int64) *model.Character {
	for _, p := range players {
		if p.ID == id {
			return p
		}
	}
	return nil
}
