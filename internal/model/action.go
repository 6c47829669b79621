package model

import "time"

// ActionState tracks an ongoing action through its lifecycle.
type ActionState string

const (
	ActionInitiated   ActionState = "INITIATED"
	ActionCasting     ActionState = "CASTING"
	ActionExecuting   ActionState = "EXECUTING"
	ActionCompleted   ActionState = "COMPLETED"
	ActionInterrupted ActionState = "INTERRUPTED"
	ActionFailed      ActionState = "FAILED"
)

// InterruptReason records why a cast was aborted.
type InterruptReason string

const (
	InterruptPlayerCancelled  InterruptReason = "PLAYER_CANCELLED"
	InterruptMovement         InterruptReason = "MOVEMENT"
	InterruptDamageTaken      InterruptReason = "DAMAGE_TAKEN"
	InterruptTargetLost       InterruptReason = "TARGET_LOST"
	InterruptResourceDepleted InterruptReason = "RESOURCE_DEPLETED"
	InterruptDeath            InterruptReason = "DEATH"
	InterruptStunEffect       InterruptReason = "STUN_EFFECT"
)

// ParseInterruptReason validates a wire reason string. Unknown values
// fall back to PLAYER_CANCELLED rather than failing the request.
func ParseInterruptReason(s string) InterruptReason {
	switch r := InterruptReason(s); r {
	case InterruptPlayerCancelled, InterruptMovement, InterruptDamageTaken,
		InterruptTargetLost, InterruptResourceDepleted, InterruptDeath, InterruptStunEffect:
		return r
	}
	return InterruptPlayerCancelled
}

// OngoingAction is a cast or channel in flight for a single caster.
// At most one exists per caster at any time; the skill engine enforces that.
type OngoingAction struct {
	CasterID        int64           `json:"casterId"`
	SkillSlug       string          `json:"skillSlug"`
	TargetID        int64           `json:"targetId"`
	TargetType      TargetType      `json:"targetType"`
	StartTime       time.Time       `json:"-"`
	EndTime         time.Time       `json:"-"`
	State           ActionState     `json:"state"`
	InterruptReason InterruptReason `json:"interruptReason,omitempty"`
}

// CastDue reports whether a CASTING action has reached its end time.
func (a OngoingAction) CastDue(now time.Time) bool {
	return a.State == ActionCasting && !now.Before(a.EndTime)
}
