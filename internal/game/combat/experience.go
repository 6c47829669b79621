package combat

import (
	"fmt"
	"log/slog"

	"github.com/mistvale/chunkserver/internal/model"
	"github.com/mistvale/chunkserver/internal/protocol"
	"github.com/mistvale/chunkserver/internal/world"
)

// Level-up bonuses per level gained.
const (
	healthPerLevel = 10
	manaPerLevel   = 5

	// abilityLevelStep: a new ability unlocks on every level divisible
	// by this.
	abilityLevelStep = 5
)

// GrantResult describes one applied experience change.
type GrantResult struct {
	CharacterID  int64    `json:"characterId"`
	Delta        int64    `json:"delta"`
	Reason       string   `json:"reason"`
	SourceID     int64    `json:"sourceId,omitempty"`
	CurrentExp   int64    `json:"currentExp"`
	ExpForNext   int64    `json:"expForNextLevel"`
	OldLevel     int      `json:"oldLevel"`
	NewLevel     int      `json:"newLevel"`
	NewAbilities []string `json:"newAbilities,omitempty"`
}

// LeveledUp reports whether the grant crossed a level boundary.
func (r *GrantResult) LeveledUp() bool { return r.NewLevel > r.OldLevel }

// statsUpdate is the broadcast body sent after a level-up touches the
// character's pools.
type statsUpdate struct {
	CharacterID   int64 `json:"characterId"`
	Level         int   `json:"level"`
	MaxHealth     int   `json:"maxHealth"`
	CurrentHealth int   `json:"currentHealth"`
	MaxMana       int   `json:"maxMana"`
	CurrentMana   int   `json:"currentMana"`
}

// ExperienceEngine applies experience deltas and level-ups to the
// character registry. The whole read-modify-write runs under the
// registry's write lock, so concurrent kills cannot lose a grant.
type ExperienceEngine struct {
	chars *world.CharacterRegistry
	table *world.ExperienceTable

	broadcastFunc func(eventType string, body any)
}

// NewExperienceEngine creates the engine.
func NewExperienceEngine(chars *world.CharacterRegistry, table *world.ExperienceTable) *ExperienceEngine {
	return &ExperienceEngine{chars: chars, table: table}
}

// SetBroadcastFunc injects the broadcast sink.
func (e *ExperienceEngine) SetBroadcastFunc(fn func(eventType string, body any)) {
	e.broadcastFunc = fn
}

// Grant applies delta experience and whatever level-ups follow, then
// emits the progression broadcasts.
func (e *ExperienceEngine) Grant(characterID, delta int64, reason string, sourceID int64) (*GrantResult, error) {
	res := &GrantResult{
		CharacterID: characterID,
		Delta:       delta,
		Reason:      reason,
		SourceID:    sourceID,
	}
	var stats statsUpdate

	found := e.chars.Apply(characterID, func(c *model.Character) {
		res.OldLevel = c.Level

		newExp := c.CurrentExp + delta
		if newExp < 0 {
			newExp = 0
		}
		newLevel := e.table.LevelForExp(newExp)
		if newLevel >= world.MaxLevel {
			newLevel = world.MaxLevel
			if ceiling := e.table.ExpForLevel(world.MaxLevel); newExp > ceiling {
				newExp = ceiling
			}
		}

		if newLevel > c.Level {
			gained := newLevel - c.Level
			c.MaxHealth += healthPerLevel * gained
			c.MaxMana += manaPerLevel * gained
			c.CurrentHealth = c.MaxHealth
			c.CurrentMana = c.MaxMana
			for lvl := c.Level + 1; lvl <= newLevel; lvl++ {
				if lvl%abilityLevelStep == 0 {
					res.NewAbilities = append(res.NewAbilities, fmt.Sprintf("ability_level_%d", lvl))
				}
			}
			c.Level = newLevel
		}
		// Levels are never taken away; a negative delta only drains exp.
		c.CurrentExp = newExp
		next := c.Level + 1
		if next > world.MaxLevel {
			next = world.MaxLevel
		}
		c.ExpForNextLevel = e.table.ExpForLevel(next)

		res.NewLevel = c.Level
		res.CurrentExp = newExp
		res.ExpForNext = c.ExpForNextLevel
		stats = statsUpdate{
			CharacterID:   c.ID,
			Level:         c.Level,
			MaxHealth:     c.MaxHealth,
			CurrentHealth: c.CurrentHealth,
			MaxMana:       c.MaxMana,
			CurrentMana:   c.CurrentMana,
		}
	})
	if !found {
		return nil, fmt.Errorf("character %d not found", characterID)
	}

	if e.broadcastFunc != nil {
		e.broadcastFunc(protocol.EvExperienceUpdate, res)
		if res.LeveledUp() {
			e.broadcastFunc(protocol.EvLevelUp, res)
			e.broadcastFunc(protocol.EvStatsUpdate, stats)
		}
	}
	if res.LeveledUp() {
		slog.Info("character leveled up",
			"characterId", characterID,
			"oldLevel", res.OldLevel,
			"newLevel", res.NewLevel,
			"exp", res.CurrentExp)
	}
	return res, nil
}

// GrantMobKill rewards a kill using the level-difference modifier.
func (e *ExperienceEngine) GrantMobKill(characterID int64, mobLevel int, baseExp, mobUID int64) {
	c, ok := e.chars.Get(characterID)
	if !ok {
		return
	}
	reward := MobKillExp(mobLevel, c.Level, baseExp)
	if reward <= 0 {
		return
	}
	if _, err := e.Grant(characterID, reward, "mob_kill", mobUID); err != nil {
		slog.Error("experience grant failed", "characterId", characterID, "error", err)
	}
}

// MobKillExp scales a mob's base experience by the level difference:
// trivial kills grant almost nothing, risky kills pay double.
func MobKillExp(mobLevel, charLevel int, baseExp int64) int64 {
	diff := mobLevel - charLevel
	var mod float64
	switch {
	case diff >= 10:
		mod = 2.0
	case diff >= 5:
		mod = 1.5
	case diff >= -4:
		mod = 1.0
	case diff >= -9:
		mod = 0.5
	default:
		mod = 0.1
	}
	return int64(float64(baseExp) * mod)
}

// DeathPenalty is the experience a character would lose on death: a
// tenth of current experience, never dropping below the previous
// level's requirement.
func (e *ExperienceEngine) DeathPenalty(characterID int64) int64 {
	c, ok := e.chars.Get(characterID)
	if !ok {
		return 0
	}
	prev := c.Level - 1
	if prev < 1 {
		prev = 1
	}
	penalty := c.CurrentExp / 10
	if floor := c.CurrentExp - e.table.ExpForLevel(prev); floor < penalty {
		penalty = floor
	}
	if penalty < 0 {
		return 0
	}
	return penalty
}
