package skill

import (
	"log/slog"
	"time"

	"github.com/mistvale/chunkserver/internal/model"
)

// ExecuteMobAttack runs one AI attack: pick the mob's best usable
// damage skill against the target and initiate it under the same
// contract as a player cast. Instant skills resolve inline; a skill
// with a cast time is left to the action ticker. Silently does nothing
// when no skill is usable, the AI retries on its next pulse.
func (e *Engine) ExecuteMobAttack(mobUID, targetCharacterID int64) {
	inst, ok := e.mobs.Get(mobUID)
	if !ok || !inst.IsAlive() {
		return
	}
	tpl, ok := e.templates.Get(inst.MobID)
	if !ok {
		return
	}
	target, ok := e.chars.Get(targetCharacterID)
	if !ok || !target.IsAlive() {
		return
	}

	slug, found := e.pickAttackSkill(inst, tpl, inst.Position.DistanceXY(target.Position))
	if !found {
		return
	}

	if _, code := e.Initiate(mobUID, slug, targetCharacterID, model.TargetPlayer); code != "" {
		slog.Debug("mob attack rejected",
			"mobUid", mobUID,
			"skill", slug,
			"targetId", targetCharacterID,
			"code", code)
	}
}

// pickAttackSkill scores the usable damage skills and returns the best:
// hardest-hitting coefficient first, shorter cooldowns breaking ties.
func (e *Engine) pickAttackSkill(inst model.MobInstance, tpl *model.MobTemplate, dist float64) (string, bool) {
	now := time.Now()
	best := ""
	bestScore := 0.0
	for slug, s := range tpl.Skills {
		if s.EffectType != model.EffectDamage {
			continue
		}
		if s.CostMp > inst.CurrentMana {
			continue
		}
		if dist > s.MaxRange*rangeUnit {
			continue
		}
		if e.onCooldown(inst.UID, slug, now) {
			continue
		}
		score := s.Coeff*1000 + s.FlatAdd - float64(s.CooldownMs)/100
		if best == "" || score > bestScore {
			best = slug
			bestScore = score
		}
	}
	return best, best != ""
}
