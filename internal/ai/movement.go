package ai

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/mistvale/chunkserver/internal/model"
)

const (
	// borderThreshold is the fraction of the zone's larger dimension
	// inside which a mob counts as standing at the border.
	borderThreshold = 0.1

	// stepCap limits a single wander step regardless of zone size.
	stepCap = 450.0

	// wanderCandidates is how many directions a mob tries before
	// falling back to blending its current heading.
	wanderCandidates = 4

	// chaseStep and returnStep are per-tick travel distances outside
	// the wander algorithm.
	chaseStep  = 300.0
	returnStep = 320.0

	minMoveDelay = 7 * time.Second
	maxMoveDelay = 15 * time.Second
)

func randFloat() float64 { return rand.Float64() }

// wander picks the mob's next idle position inside the zone box. At
// most wanderCandidates directions are tried; candidates leaving the
// box or crowding another mob are rejected. With no valid candidate
// the current heading blends toward the last tried one and the result
// is clamped into the box, so packed zones still drift apart.
func (e *Engine) wander(st *mobState, inst model.MobInstance, zone *model.SpawnZone, neighbors []model.MobInstance, now time.Time) (model.Position, bool) {
	if now.Before(st.nextMoveAt) {
		return inst.Position, false
	}

	step := wanderStep(st, zone)
	maxDim := math.Max(zone.Size.X, zone.Size.Y)
	atBorder := zone.BorderDistanceXY(inst.Position.X, inst.Position.Y) < borderThreshold*maxDim

	var lastDirX, lastDirY float64
	for range wanderCandidates {
		angle := wanderAngle(inst.Position, zone, atBorder)
		dirX, dirY := math.Cos(angle), math.Sin(angle)
		lastDirX, lastDirY = dirX, dirY

		cx := inst.Position.X + dirX*step
		cy := inst.Position.Y + dirY*step
		if !zone.ContainsXY(cx, cy) {
			continue
		}
		if crowded(cx, cy, inst.UID, neighbors, zone.MinSeparation) {
			continue
		}

		st.dirX, st.dirY = dirX, dirY
		st.nextMoveAt = nextMoveTime(st, now)
		pos := inst.Position.WithXY(cx, cy)
		pos.RotZ = headingDeg(dirX, dirY)
		return pos, true
	}

	// Blend toward the last rejected direction and clamp.
	f := 0.2 + rand.Float64()*0.4
	bx := st.dirX*(1-f) + lastDirX*f
	by := st.dirY*(1-f) + lastDirY*f
	if norm := math.Hypot(bx, by); norm > 0 {
		bx, by = bx/norm, by/norm
	} else {
		bx, by = lastDirX, lastDirY
	}
	st.dirX, st.dirY = bx, by

	cx, cy := zone.ClampXY(inst.Position.X+bx*step, inst.Position.Y+by*step)
	st.nextMoveAt = nextMoveTime(st, now)
	pos := inst.Position.WithXY(cx, cy)
	pos.RotZ = headingDeg(bx, by)
	return pos, true
}

// wanderStep sizes one wander step from the mob's step multiplier and
// the zone dimensions.
func wanderStep(st *mobState, zone *model.SpawnZone) float64 {
	base := 80 + rand.Float64()*60
	jitter := 0.85 + rand.Float64()*0.35
	step := base * st.stepMult * jitter

	lo := zone.MinMoveDistance * 0.75
	hi := math.Min((zone.Size.X+zone.Size.Y)*0.08, stepCap)
	if hi < lo {
		return hi
	}
	return math.Min(math.Max(step, lo), hi)
}

// wanderAngle draws a candidate heading in radians. At the border the
// heading biases toward the zone center, offset by a random 30..100
// degrees to either side so mobs peel along the edge instead of
// beelining inward.
func wanderAngle(pos model.Position, zone *model.SpawnZone, atBorder bool) float64 {
	if !atBorder {
		return rand.Float64() * 2 * math.Pi
	}
	toCenter := math.Atan2(zone.Center.Y-pos.Y, zone.Center.X-pos.X)
	offset := (30 + rand.Float64()*70) * math.Pi / 180
	if rand.IntN(2) == 0 {
		offset = -offset
	}
	return toCenter + offset
}

// crowded reports whether (x, y) lands within minSep of another mob.
func crowded(x, y float64, selfUID int64, neighbors []model.MobInstance, minSep float64) bool {
	if minSep <= 0 {
		return false
	}
	for _, n := range neighbors {
		if n.UID == selfUID {
			continue
		}
		if math.Hypot(n.Position.X-x, n.Position.Y-y) < minSep {
			return true
		}
	}
	return false
}

// nextMoveTime schedules the next wander, occasionally stretching the
// pause so zone movement does not synchronize.
func nextMoveTime(st *mobState, now time.Time) time.Time {
	raw := minMoveDelay + time.Duration(rand.Float64()*float64(maxMoveDelay-minMoveDelay))
	delay := time.Duration(float64(raw) / st.speedMult)
	if delay < minMoveDelay {
		delay = minMoveDelay
	}
	if delay > maxMoveDelay {
		delay = maxMoveDelay
	}
	if rand.IntN(5) == 0 {
		delay += time.Duration(rand.Float64() * float64(4*time.Second))
	}
	return now.Add(delay)
}

// headingDeg converts a direction vector to degrees in [0, 360) with
// a small rotation jitter.
func headingDeg(dirX, dirY float64) float64 {
	deg := math.Atan2(dirY, dirX) * 180 / math.Pi
	deg += (rand.Float64() - 0.5) * 10
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

// stepToward advances from toward to by at most step, stopping short
// at stopAt so chasers do not stack on top of the target.
func stepToward(from, to model.Position, step, stopAt float64) model.Position {
	dx := to.X - from.X
	dy := to.Y - from.Y
	dist := math.Hypot(dx, dy)
	if dist == 0 {
		return from
	}
	travel := dist - stopAt
	if travel <= 0 {
		return from
	}
	if travel > step {
		travel = step
	}
	pos := from.WithXY(from.X+dx/dist*travel, from.Y+dy/dist*travel)
	pos.RotZ = headingDeg(dx/dist, dy/dist)
	return pos
}
