// Package combat resolves skill executions: the damage calculator, the
// hit application pipeline and the mob death handling behind it.
package combat

import (
	"math"
	"math/rand/v2"

	"github.com/mistvale/chunkserver/internal/model"
)

const (
	// maxDefenseReduction caps how much of a hit defense can absorb.
	maxDefenseReduction = 0.75

	// Mobs roll fixed rates instead of attribute-driven ones.
	mobMissChance     = 0.05
	mobCritChance     = 0.15
	mobCritMultiplier = 2.0

	// defaultCritMultiplier applies when the attacker carries no
	// crit_multiplier attribute.
	defaultCritMultiplier = 2.0
)

// rollFloat draws the combat rolls. Swapped in tests to pin outcomes —
// production always uses the shared PRNG.
var rollFloat = rand.Float64

// DamageResult is the outcome of one resolved hit. BaseDamage is the
// raw stat scaling, ScaledDamage includes crit and block, TotalDamage
// is after target defense.
type DamageResult struct {
	BaseDamage   int    `json:"baseDamage"`
	ScaledDamage int    `json:"scaledDamage"`
	TotalDamage  int    `json:"totalDamage"`
	IsCritical   bool   `json:"isCritical"`
	IsBlocked    bool   `json:"isBlocked"`
	IsMissed     bool   `json:"isMissed"`
	DamageType   string `json:"damageType"`
}

// CalculateDamage resolves one hit of skill by attacker against target.
// mobAttacker switches in the fixed mob miss and crit rates.
func CalculateDamage(skill model.Skill, attacker, target model.Attributes, mobAttacker bool) DamageResult {
	result := DamageResult{DamageType: string(skill.School)}

	// Miss: hit chance from accuracy vs evasion, mobs fixed at 95%.
	hitChance := 1 - mobMissChance
	if !mobAttacker {
		hitChance = clampFloat(0.95+float64(attacker.Get(model.AttrAccuracy)-target.Get(model.AttrEvasion))*0.01, 0.05, 0.95)
	}
	if rollFloat() >= hitChance {
		result.IsMissed = true
		return result
	}

	// Base scaling off the skill's stat.
	base := skill.FlatAdd + float64(attacker.Get(skill.ScaleStat))*skill.Coeff
	if base < 1 {
		base = 1
	}
	result.BaseDamage = int(math.Round(base))
	damage := base

	// Critical.
	critChance := float64(attacker.Get(model.AttrCritChance)) / 100
	critMult := float64(attacker.Get(model.AttrCritMultiplier)) / 100
	if critMult == 0 {
		critMult = defaultCritMultiplier
	}
	if mobAttacker {
		critChance = mobCritChance
		critMult = mobCritMultiplier
	}
	if rollFloat() < critChance {
		result.IsCritical = true
		damage *= critMult
	}

	// Block shaves a flat amount off.
	if rollFloat() < float64(target.Get(model.AttrBlockChance))/100 {
		result.IsBlocked = true
		damage -= float64(target.Get(model.AttrBlockValue))
		if damage < 0 {
			damage = 0
		}
	}
	result.ScaledDamage = int(math.Round(damage))

	// Defense mitigation by school.
	defSlug := model.AttrPhysicalDefense
	if skill.School == model.SchoolMagical {
		defSlug = model.AttrMagicalDefense
	}
	reduction := clampFloat(float64(target.Get(defSlug))*0.01, 0, maxDefenseReduction)
	total := math.Round(damage * (1 - reduction))
	if total < 1 {
		total = 1
	}
	result.TotalDamage = int(total)
	return result
}

// CalculateHeal resolves a heal amount: the same stat scaling as
// damage with no miss, crit, block or defense stages.
func CalculateHeal(skill model.Skill, caster model.Attributes) int {
	heal := skill.FlatAdd + float64(caster.Get(skill.ScaleStat))*skill.Coeff
	if heal < 1 {
		heal = 1
	}
	return int(math.Round(heal))
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
