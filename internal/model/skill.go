package model

import "strings"

// SkillEffectType describes what a skill does to its target.
type SkillEffectType string

const (
	EffectDamage SkillEffectType = "damage"
	EffectHeal   SkillEffectType = "heal"
	EffectBuff   SkillEffectType = "buff"
	EffectDebuff SkillEffectType = "debuff"
)

// SkillSchool selects which defense attribute mitigates the skill.
type SkillSchool string

const (
	SchoolPhysical SkillSchool = "physical"
	SchoolMagical  SkillSchool = "magical"
)

// TargetType identifies what kind of entity a skill or attack is aimed at.
type TargetType string

const (
	TargetPlayer TargetType = "player"
	TargetMob    TargetType = "mob"
	TargetSelf   TargetType = "self"
)

// ParseTargetType normalizes a wire value ("MOB", "mob", ...) to a TargetType.
// Unknown values report false.
func ParseTargetType(s string) (TargetType, bool) {
	switch TargetType(strings.ToLower(s)) {
	case TargetPlayer:
		return TargetPlayer, true
	case TargetMob:
		return TargetMob, true
	case TargetSelf:
		return TargetSelf, true
	}
	return "", false
}

// Skill is an immutable skill definition replicated from the game server.
// MaxRange is in range units; effective world distance is MaxRange*100.
type Skill struct {
	Slug       string          `json:"slug"`
	Name       string          `json:"name"`
	CastMs     int64           `json:"castMs"`
	CooldownMs int64           `json:"cooldownMs"`
	GcdMs      int64           `json:"gcdMs"`
	CostMp     int             `json:"costMp"`
	MaxRange   float64         `json:"maxRange"`
	Coeff      float64         `json:"coeff"`
	FlatAdd    float64         `json:"flatAdd"`
	ScaleStat  string          `json:"scaleStat"`
	EffectType SkillEffectType `json:"skillEffectType"`
	School     SkillSchool     `json:"school"`
}

// IsInstant reports whether the skill executes without a cast phase.
func (s Skill) IsInstant() bool {
	return s.CastMs <= 0
}

// CloneSkills deep-copies a slug-keyed skill map.
func CloneSkills(m map[string]Skill) map[string]Skill {
	if m == nil {
		return nil
	}
	out := make(map[string]Skill, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
