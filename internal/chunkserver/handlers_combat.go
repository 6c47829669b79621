package chunkserver

import (
	"github.com/mistvale/chunkserver/internal/events"
	"github.com/mistvale/chunkserver/internal/model"
	"github.com/mistvale/chunkserver/internal/protocol"
)

// messageFor turns a validation code into the human half of an error
// response. Clients branch on the code, not this text.
func messageFor(code string) string {
	switch code {
	case protocol.CodeSkillNotFound:
		return "character does not know this skill"
	case protocol.CodeSkillOnCooldown:
		return "skill is on cooldown"
	case protocol.CodeNotEnoughMana:
		return "not enough mana"
	case protocol.CodeInvalidTarget:
		return "invalid target"
	case protocol.CodeTargetNotFound:
		return "target not found"
	case protocol.CodeOutOfRange:
		return "target is out of range"
	case protocol.CodeAlreadyCasting:
		return "another action is already in progress"
	case protocol.CodeCharacterNotFound:
		return "character not found"
	case protocol.CodeCorpseNotFound:
		return "corpse not found"
	case protocol.CodeCorpseNotAvailable:
		return "corpse is being harvested by someone else"
	case protocol.CodeCorpseNotHarvested:
		return "corpse has not been harvested"
	case protocol.CodeHarvestFailed:
		return "harvest is still in progress"
	case protocol.CodeNotYourHarvest:
		return "loot belongs to another harvester"
	case protocol.CodeSecurityViolation:
		return "request identity mismatch"
	case protocol.CodeItemNotFound:
		return "item not found"
	case protocol.CodePickupFailed:
		return "item could not be picked up"
	}
	return "request rejected"
}

func (h *Handlers) handlePlayerAttack(ev events.Event) {
	p, ok := ev.Payload.(events.PlayerAttack)
	if !ok {
		h.fail(ev, protocol.EvPlayerAttack, protocol.CodeInvalidRequest, "missing attack data")
		return
	}
	if ev.CharacterID == 0 {
		h.fail(ev, protocol.EvPlayerAttack, protocol.CodeCharacterNotFound, "no character joined")
		return
	}
	targetType, ok := model.ParseTargetType(p.TargetType)
	if !ok {
		h.fail(ev, protocol.EvPlayerAttack, protocol.CodeInvalidTarget, "unknown target type")
		return
	}

	result, code := h.svc.Skills.Initiate(ev.CharacterID, p.SkillSlug, p.TargetID, targetType)
	if code != "" {
		h.fail(ev, protocol.EvPlayerAttack, code, messageFor(code))
		return
	}
	h.respond(ev, protocol.EvPlayerAttack, result)
}

func (h *Handlers) handleInterrupt(ev events.Event) {
	p, _ := ev.Payload.(events.InterruptCombatAction)
	if ev.CharacterID == 0 {
		h.fail(ev, protocol.EvInterruptCombatAction, protocol.CodeCharacterNotFound, "no character joined")
		return
	}

	action, ok := h.svc.Skills.Interrupt(ev.CharacterID, model.ParseInterruptReason(p.Reason))
	if !ok {
		h.fail(ev, protocol.EvInterruptCombatAction, protocol.CodeInvalidRequest, "no action in progress")
		return
	}
	h.respond(ev, protocol.EvInterruptCombatAction, action)
}
