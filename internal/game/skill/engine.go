// Package skill runs the cast side of combat: initiation validation,
// cast timers, cooldowns and interruption. Resolved casts are handed to
// the combat engine through an injected executor, which keeps the
// import graph acyclic.
package skill

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mistvale/chunkserver/internal/game/combat"
	"github.com/mistvale/chunkserver/internal/model"
	"github.com/mistvale/chunkserver/internal/protocol"
	"github.com/mistvale/chunkserver/internal/world"
)

// rangeUnit converts a skill's maxRange into world distance.
const rangeUnit = 100.0

// ExecuteFunc resolves a due cast against the world. Wired to the
// combat engine's Execute at startup.
type ExecuteFunc func(action model.OngoingAction) (*combat.ExecutionResult, error)

// BroadcastFunc fans an event out to every connected client.
type BroadcastFunc func(eventType string, body any)

// InitiationResult is the outcome of a successful initiation, broadcast
// as the <effectType>Initiation packet. For instant skills Execution
// carries the inline resolution.
type InitiationResult struct {
	CasterID   int64                   `json:"casterId"`
	TargetID   int64                   `json:"targetId"`
	TargetType model.TargetType        `json:"targetType"`
	SkillSlug  string                  `json:"skillSlug"`
	SkillName  string                  `json:"skillName"`
	EffectType model.SkillEffectType   `json:"skillEffectType"`
	CastTimeMs int64                   `json:"castTime"`
	State      model.ActionState       `json:"state"`
	Execution  *combat.ExecutionResult `json:"-"`
}

// Engine owns the ongoing-action table and the cooldown maps. At most
// one action exists per caster; the table's write lock serializes the
// replace-or-reject decision.
type Engine struct {
	chars     *world.CharacterRegistry
	mobs      *world.MobInstanceRegistry
	templates *world.MobTemplateRegistry

	mu      sync.RWMutex
	actions map[int64]model.OngoingAction

	// cooldowns: "casterID_slug" -> expiry. gcd: casterID -> expiry.
	cooldowns sync.Map
	gcd       sync.Map

	executeFunc   ExecuteFunc
	broadcastFunc BroadcastFunc
}

// NewEngine creates a skill engine over the world state.
func NewEngine(
	chars *world.CharacterRegistry,
	mobs *world.MobInstanceRegistry,
	templates *world.MobTemplateRegistry,
	execute ExecuteFunc,
) *Engine {
	return &Engine{
		chars:       chars,
		mobs:        mobs,
		templates:   templates,
		actions:     make(map[int64]model.OngoingAction, 64),
		executeFunc: execute,
	}
}

// SetBroadcastFunc injects the broadcast sink.
func (e *Engine) SetBroadcastFunc(fn BroadcastFunc) {
	e.broadcastFunc = fn
}

// Initiate validates a cast request and either starts the cast timer or,
// for instant skills, resolves it inline. A non-empty code is the error
// to answer the client with.
func (e *Engine) Initiate(casterID int64, slug string, targetID int64, targetType model.TargetType) (*InitiationResult, string) {
	now := time.Now()

	skill, casterPos, casterMana, casterAlive, ok := e.casterState(casterID, slug)
	if !ok {
		if _, _, found := e.lookupCaster(casterID); !found {
			return nil, protocol.CodeCharacterNotFound
		}
		return nil, protocol.CodeSkillNotFound
	}
	if !casterAlive {
		return nil, protocol.CodeInvalidRequest
	}

	if e.onCooldown(casterID, slug, now) {
		return nil, protocol.CodeSkillOnCooldown
	}
	if casterMana < skill.CostMp {
		return nil, protocol.CodeNotEnoughMana
	}

	targetPos, code := e.validateTarget(casterID, targetID, targetType)
	if code != "" {
		return nil, code
	}
	if casterPos.DistanceXY(targetPos) > skill.MaxRange*rangeUnit {
		return nil, protocol.CodeOutOfRange
	}

	action := model.OngoingAction{
		CasterID:   casterID,
		SkillSlug:  slug,
		TargetID:   targetID,
		TargetType: targetType,
		StartTime:  now,
		EndTime:    now.Add(time.Duration(skill.CastMs) * time.Millisecond),
		State:      model.ActionCasting,
	}
	if skill.IsInstant() {
		action.State = model.ActionExecuting
	}

	e.mu.Lock()
	if prev, exists := e.actions[casterID]; exists && prev.State != model.ActionCompleted {
		e.mu.Unlock()
		return nil, protocol.CodeAlreadyCasting
	}
	e.actions[casterID] = action
	e.mu.Unlock()

	if skill.GcdMs > 0 {
		e.gcd.Store(casterID, now.Add(time.Duration(skill.GcdMs)*time.Millisecond))
	}

	res := &InitiationResult{
		CasterID:   casterID,
		TargetID:   targetID,
		TargetType: targetType,
		SkillSlug:  slug,
		SkillName:  skill.Name,
		EffectType: skill.EffectType,
		CastTimeMs: skill.CastMs,
		State:      action.State,
	}
	e.broadcast(string(skill.EffectType)+"Initiation", res)

	slog.Debug("skill initiated",
		"casterId", casterID,
		"skill", slug,
		"targetId", targetID,
		"castMs", skill.CastMs)

	if skill.IsInstant() {
		exec, err := e.execute(action, skill)
		if err != nil {
			slog.Error("instant skill failed", "casterId", casterID, "skill", slug, "error", err)
			return nil, protocol.CodeInternalError
		}
		res.Execution = exec
	}
	return res, ""
}

// Interrupt aborts the caster's ongoing action, if any. Mana spent on a
// finished execute stays spent; a cast that never executed costs nothing.
func (e *Engine) Interrupt(casterID int64, reason model.InterruptReason) (model.OngoingAction, bool) {
	e.mu.Lock()
	action, ok := e.actions[casterID]
	if !ok || action.State == model.ActionCompleted {
		delete(e.actions, casterID)
		e.mu.Unlock()
		return model.OngoingAction{}, false
	}
	delete(e.actions, casterID)
	e.mu.Unlock()

	action.State = model.ActionInterrupted
	action.InterruptReason = reason
	slog.Debug("cast interrupted",
		"casterId", casterID,
		"skill", action.SkillSlug,
		"reason", reason)
	return action, true
}

// Action returns the caster's current ongoing action.
func (e *Engine) Action(casterID int64) (model.OngoingAction, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	a, ok := e.actions[casterID]
	return a, ok
}

// ActionCount returns the number of ongoing actions.
func (e *Engine) ActionCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.actions)
}

// UpdateOngoingActions advances casts whose timer elapsed. Runs on the
// fast scheduler pulse; due actions execute outside the table lock.
func (e *Engine) UpdateOngoingActions(now time.Time) {
	var due []model.OngoingAction
	e.mu.Lock()
	for casterID, action := range e.actions {
		if action.CastDue(now) {
			action.State = model.ActionExecuting
			e.actions[casterID] = action
			due = append(due, action)
		}
	}
	e.mu.Unlock()

	for _, action := range due {
		skill, _, _, _, ok := e.casterState(action.CasterID, action.SkillSlug)
		if !ok {
			e.fail(action.CasterID)
			continue
		}
		if _, err := e.execute(action, skill); err != nil {
			slog.Error("cast resolution failed",
				"casterId", action.CasterID,
				"skill", action.SkillSlug,
				"error", err)
		}
	}
}

// SweepCooldowns drops expired cooldown and GCD entries so the maps do
// not grow with every cast ever made.
func (e *Engine) SweepCooldowns(now time.Time) {
	e.cooldowns.Range(func(key, value any) bool {
		if now.After(value.(time.Time)) {
			e.cooldowns.Delete(key)
		}
		return true
	})
	e.gcd.Range(func(key, value any) bool {
		if now.After(value.(time.Time)) {
			e.gcd.Delete(key)
		}
		return true
	})
}

// execute resolves an action through the combat engine, then arms the
// cooldown and clears the table entry. A failed execute clears the entry
// without arming the cooldown.
func (e *Engine) execute(action model.OngoingAction, skill model.Skill) (*combat.ExecutionResult, error) {
	result, err := e.executeFunc(action)
	if err != nil {
		e.fail(action.CasterID)
		return nil, fmt.Errorf("executing %q: %w", action.SkillSlug, err)
	}

	if skill.CooldownMs > 0 {
		e.cooldowns.Store(
			cooldownKey(action.CasterID, action.SkillSlug),
			time.Now().Add(time.Duration(skill.CooldownMs)*time.Millisecond),
		)
	}

	e.mu.Lock()
	delete(e.actions, action.CasterID)
	e.mu.Unlock()

	e.broadcast(string(skill.EffectType)+"Result", result)
	return result, nil
}

func (e *Engine) fail(casterID int64) {
	e.mu.Lock()
	delete(e.actions, casterID)
	e.mu.Unlock()
}

// IsOnCooldown reports whether the caster's skill (or global) cooldown
// is still running.
func (e *Engine) IsOnCooldown(casterID int64, slug string) bool {
	return e.onCooldown(casterID, slug, time.Now())
}

func (e *Engine) onCooldown(casterID int64, slug string, now time.Time) bool {
	if expiry, ok := e.cooldowns.Load(cooldownKey(casterID, slug)); ok {
		if now.Before(expiry.(time.Time)) {
			return true
		}
		e.cooldowns.Delete(cooldownKey(casterID, slug))
	}
	if expiry, ok := e.gcd.Load(casterID); ok {
		if now.Before(expiry.(time.Time)) {
			return true
		}
		e.gcd.Delete(casterID)
	}
	return false
}

// casterState loads the caster's skill plus the state initiation
// validates against, players first then mob instances.
func (e *Engine) casterState(casterID int64, slug string) (skill model.Skill, pos model.Position, mana int, alive, ok bool) {
	if c, found := e.chars.Get(casterID); found {
		s, has := c.Skill(slug)
		if !has {
			return model.Skill{}, model.Position{}, 0, false, false
		}
		return s, c.Position, c.CurrentMana, c.IsAlive(), true
	}
	inst, found := e.mobs.Get(casterID)
	if !found {
		return model.Skill{}, model.Position{}, 0, false, false
	}
	tpl, found := e.templates.Get(inst.MobID)
	if !found {
		return model.Skill{}, model.Position{}, 0, false, false
	}
	s, has := tpl.Skills[slug]
	if !has {
		return model.Skill{}, model.Position{}, 0, false, false
	}
	return s, inst.Position, inst.CurrentMana, inst.IsAlive(), true
}

// lookupCaster distinguishes "unknown caster" from "unknown skill".
func (e *Engine) lookupCaster(casterID int64) (model.Position, bool, bool) {
	if c, found := e.chars.Get(casterID); found {
		return c.Position, c.IsAlive(), true
	}
	if inst, found := e.mobs.Get(casterID); found {
		return inst.Position, inst.IsAlive(), true
	}
	return model.Position{}, false, false
}

// validateTarget checks existence, liveness and type fit, returning the
// target's position for the range check.
func (e *Engine) validateTarget(casterID, targetID int64, targetType model.TargetType) (model.Position, string) {
	switch targetType {
	case model.TargetSelf:
		if casterID != targetID {
			return model.Position{}, protocol.CodeInvalidTarget
		}
		pos, alive, found := e.lookupCaster(casterID)
		if !found {
			return model.Position{}, protocol.CodeTargetNotFound
		}
		if !alive {
			return model.Position{}, protocol.CodeInvalidTarget
		}
		return pos, ""
	case model.TargetPlayer:
		c, found := e.chars.Get(targetID)
		if !found {
			return model.Position{}, protocol.CodeTargetNotFound
		}
		if !c.IsAlive() {
			return model.Position{}, protocol.CodeInvalidTarget
		}
		return c.Position, ""
	case model.TargetMob:
		inst, found := e.mobs.Get(targetID)
		if !found {
			return model.Position{}, protocol.CodeTargetNotFound
		}
		if !inst.IsAlive() {
			return model.Position{}, protocol.CodeInvalidTarget
		}
		return inst.Position, ""
	}
	return model.Position{}, protocol.CodeInvalidTarget
}

func (e *Engine) broadcast(eventType string, body any) {
	if e.broadcastFunc != nil {
		e.broadcastFunc(eventType, body)
	}
}

func cooldownKey(casterID int64, slug string) string {
	return fmt.Sprintf("%d_%s", casterID, slug)
}
