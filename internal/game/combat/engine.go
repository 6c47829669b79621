package combat

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/mistvale/chunkserver/internal/model"
	"github.com/mistvale/chunkserver/internal/world"
)

// ExecutionResult is the outcome of a resolved skill, broadcast to all
// clients as the execution packet.
type ExecutionResult struct {
	CasterID        int64                 `json:"casterId"`
	TargetID        int64                 `json:"targetId"`
	TargetType      model.TargetType      `json:"targetType"`
	SkillSlug       string                `json:"skillSlug"`
	EffectType      model.SkillEffectType `json:"skillEffectType"`
	Damage          *DamageResult         `json:"damage,omitempty"`
	HealAmount      int                   `json:"healAmount,omitempty"`
	TargetHealth    int                   `json:"targetHealth"`
	TargetMaxHealth int                   `json:"targetMaxHealth"`
	TargetDied      bool                  `json:"targetDied"`
	CasterMana      int                   `json:"casterMana"`
}

// Engine applies resolved skills to the world: mana, health, death.
// Callbacks into the AI and skill layers are injected to keep the
// import graph acyclic.
type Engine struct {
	chars     *world.CharacterRegistry
	mobs      *world.MobInstanceRegistry
	templates *world.MobTemplateRegistry
	zones     *world.SpawnZoneRegistry
	harvest   *world.HarvestStore
	loot      *world.LootStore
	exp       *ExperienceEngine

	mobAttackedFunc func(mobUID, attackerID int64)
	mobDeadFunc     func(mobUID int64)
	interruptFunc   func(casterID int64, reason model.InterruptReason)
}

// NewEngine creates a combat engine over the world state.
func NewEngine(
	chars *world.CharacterRegistry,
	mobs *world.MobInstanceRegistry,
	templates *world.MobTemplateRegistry,
	zones *world.SpawnZoneRegistry,
	harvest *world.HarvestStore,
	loot *world.LootStore,
	exp *ExperienceEngine,
) *Engine {
	return &Engine{
		chars:     chars,
		mobs:      mobs,
		templates: templates,
		zones:     zones,
		harvest:   harvest,
		loot:      loot,
		exp:       exp,
	}
}

// SetMobAttackedFunc injects the aggro notification callback.
func (e *Engine) SetMobAttackedFunc(fn func(mobUID, attackerID int64)) {
	e.mobAttackedFunc = fn
}

// SetMobDeadFunc injects the AI forget callback fired on mob death.
func (e *Engine) SetMobDeadFunc(fn func(mobUID int64)) {
	e.mobDeadFunc = fn
}

// SetInterruptFunc injects the cast interruption callback, fired when
// damage lands on a player mid-cast.
func (e *Engine) SetInterruptFunc(fn func(casterID int64, reason model.InterruptReason)) {
	e.interruptFunc = fn
}

// Execute resolves a cast that finished: deducts mana, rolls the
// calculator, applies the effect and runs the death pipeline. The
// caller owns cooldowns and the action table.
func (e *Engine) Execute(action model.OngoingAction) (*ExecutionResult, error) {
	skill, casterAttrs, casterIsMob, err := e.resolveCaster(action.CasterID, action.SkillSlug)
	if err != nil {
		return nil, err
	}

	casterMana := e.spendMana(action.CasterID, casterIsMob, skill.CostMp)

	result := &ExecutionResult{
		CasterID:   action.CasterID,
		TargetID:   action.TargetID,
		TargetType: action.TargetType,
		SkillSlug:  action.SkillSlug,
		EffectType: skill.EffectType,
		CasterMana: casterMana,
	}

	switch skill.EffectType {
	case model.EffectHeal:
		return e.applyHeal(result, skill, casterAttrs)
	default:
		return e.applyDamage(result, skill, casterAttrs, casterIsMob)
	}
}

// resolveCaster finds the caster's skill and attributes, players first
// then mob instances.
func (e *Engine) resolveCaster(casterID int64, slug string) (model.Skill, model.Attributes, bool, error) {
	if c, ok := e.chars.Get(casterID); ok {
		skill, ok := c.Skill(slug)
		if !ok {
			return model.Skill{}, nil, false, fmt.Errorf("character %d has no skill %q", casterID, slug)
		}
		return skill, c.Attributes, false, nil
	}
	inst, ok := e.mobs.Get(casterID)
	if !ok {
		return model.Skill{}, nil, false, fmt.Errorf("caster %d not found", casterID)
	}
	tpl, ok := e.templates.Get(inst.MobID)
	if !ok {
		return model.Skill{}, nil, false, fmt.Errorf("mob template %d not found", inst.MobID)
	}
	skill, ok := tpl.Skills[slug]
	if !ok {
		return model.Skill{}, nil, false, fmt.Errorf("mob %d has no skill %q", inst.MobID, slug)
	}
	return skill, tpl.Attributes, true, nil
}

func (e *Engine) spendMana(casterID int64, casterIsMob bool, cost int) int {
	if cost <= 0 {
		cost = 0
	}
	if casterIsMob {
		_, left := e.mobs.SpendMana(casterID, cost)
		return left
	}
	var left int
	e.chars.Apply(casterID, func(c *model.Character) {
		c.CurrentMana -= cost
		if c.CurrentMana < 0 {
			c.CurrentMana = 0
		}
		left = c.CurrentMana
	})
	return left
}

func (e *Engine) applyHeal(result *ExecutionResult, skill model.Skill, casterAttrs model.Attributes) (*ExecutionResult, error) {
	heal := CalculateHeal(skill, casterAttrs)
	result.HealAmount = heal

	if result.TargetType == model.TargetMob {
		ok, hp := e.mobs.Heal(result.TargetID, heal)
		if !ok {
			return nil, fmt.Errorf("heal target mob %d not found", result.TargetID)
		}
		inst, _ := e.mobs.Get(result.TargetID)
		result.TargetHealth = hp
		result.TargetMaxHealth = inst.MaxHealth
		return result, nil
	}

	found := e.chars.Apply(result.TargetID, func(c *model.Character) {
		c.CurrentHealth += heal
		if c.CurrentHealth > c.MaxHealth {
			c.CurrentHealth = c.MaxHealth
		}
		result.TargetHealth = c.CurrentHealth
		result.TargetMaxHealth = c.MaxHealth
	})
	if !found {
		return nil, fmt.Errorf("heal target character %d not found", result.TargetID)
	}
	return result, nil
}

func (e *Engine) applyDamage(result *ExecutionResult, skill model.Skill, casterAttrs model.Attributes, casterIsMob bool) (*ExecutionResult, error) {
	targetAttrs, err := e.targetAttributes(result.TargetID, result.TargetType)
	if err != nil {
		return nil, err
	}

	dmg := CalculateDamage(skill, casterAttrs, targetAttrs, casterIsMob)
	result.Damage = &dmg
	if dmg.IsMissed {
		e.fillTargetHealth(result)
		return result, nil
	}

	if result.TargetType == model.TargetMob {
		update, hp := e.mobs.Damage(result.TargetID, dmg.TotalDamage)
		if !update.Success {
			return nil, fmt.Errorf("damage target mob %d not found", result.TargetID)
		}
		inst, _ := e.mobs.Get(result.TargetID)
		result.TargetHealth = hp
		result.TargetMaxHealth = inst.MaxHealth
		if !casterIsMob && e.mobAttackedFunc != nil {
			e.mobAttackedFunc(result.TargetID, result.CasterID)
		}
		if update.MobDied {
			result.TargetDied = true
			e.handleMobDeath(inst, result.CasterID, casterIsMob)
		}
		return result, nil
	}

	died := false
	found := e.chars.Apply(result.TargetID, func(c *model.Character) {
		if c.CurrentHealth <= 0 {
			result.TargetHealth = 0
			result.TargetMaxHealth = c.MaxHealth
			return
		}
		c.CurrentHealth -= dmg.TotalDamage
		if c.CurrentHealth <= 0 {
			c.CurrentHealth = 0
			died = true
		}
		result.TargetHealth = c.CurrentHealth
		result.TargetMaxHealth = c.MaxHealth
	})
	if !found {
		return nil, fmt.Errorf("damage target character %d not found", result.TargetID)
	}

	// Taking a hit breaks the victim's own cast.
	if e.interruptFunc != nil && result.TargetID != result.CasterID {
		reason := model.InterruptDamageTaken
		if died {
			reason = model.InterruptDeath
		}
		e.interruptFunc(result.TargetID, reason)
	}
	if died {
		result.TargetDied = true
		slog.Info("character died", "characterId", result.TargetID, "killerId", result.CasterID)
	}
	return result, nil
}

func (e *Engine) targetAttributes(targetID int64, targetType model.TargetType) (model.Attributes, error) {
	if targetType == model.TargetMob {
		inst, ok := e.mobs.Get(targetID)
		if !ok {
			return nil, fmt.Errorf("target mob %d not found", targetID)
		}
		if tpl, ok := e.templates.Get(inst.MobID); ok {
			return tpl.Attributes, nil
		}
		return nil, nil
	}
	c, ok := e.chars.Get(targetID)
	if !ok {
		return nil, fmt.Errorf("target character %d not found", targetID)
	}
	return c.Attributes, nil
}

func (e *Engine) fillTargetHealth(result *ExecutionResult) {
	if result.TargetType == model.TargetMob {
		if inst, ok := e.mobs.Get(result.TargetID); ok {
			result.TargetHealth = inst.CurrentHealth
			result.TargetMaxHealth = inst.MaxHealth
		}
		return
	}
	if c, ok := e.chars.Get(result.TargetID); ok {
		result.TargetHealth = c.CurrentHealth
		result.TargetMaxHealth = c.MaxHealth
	}
}

// handleMobDeath runs the death pipeline exactly once per mob: release
// the zone slot, retire the AI, reward the killer, roll ground loot
// and register the corpse for harvesting.
func (e *Engine) handleMobDeath(inst model.MobInstance, killerID int64, killerIsMob bool) {
	now := time.Now()
	e.zones.ReleaseMob(inst.ZoneID, inst.UID, now)
	if e.mobDeadFunc != nil {
		e.mobDeadFunc(inst.UID)
	}

	var tpl *model.MobTemplate
	if t, ok := e.templates.Get(inst.MobID); ok {
		tpl = t
	}

	if !killerIsMob && e.exp != nil && tpl != nil {
		e.exp.GrantMobKill(killerID, tpl.Level, tpl.BaseExp, inst.UID)
	}

	if e.loot != nil {
		e.loot.GenerateOnMobDeath(inst.MobID, inst.UID, inst.Position)
	}

	if e.harvest != nil {
		e.harvest.RegisterCorpse(model.Corpse{
			MobUID:            inst.UID,
			MobID:             inst.MobID,
			Position:          inst.Position,
			DeathTime:         now,
			InteractionRadius: world.DefaultInteractionRadius,
		})
	}

	name := ""
	if tpl != nil {
		name = tpl.Name
	}
	slog.Info("mob died",
		"mobUid", inst.UID,
		"mob", name,
		"zoneId", inst.ZoneID,
		"killerId", killerID)
}
