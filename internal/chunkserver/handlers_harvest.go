package chunkserver

import (
	"log/slog"

	"github.com/mistvale/chunkserver/internal/events"
	"github.com/mistvale/chunkserver/internal/model"
	"github.com/mistvale/chunkserver/internal/protocol"
)

func (h *Handlers) handleHarvestStart(ev events.Event) {
	p, ok := ev.Payload.(events.HarvestStart)
	if !ok || p.CorpseUID == 0 {
		h.fail(ev, protocol.EvHarvestStart, protocol.CodeInvalidRequest, "missing corpse uid")
		return
	}
	if ev.CharacterID == 0 {
		h.fail(ev, protocol.EvHarvestStart, protocol.CodeCharacterNotFound, "no character joined")
		return
	}

	session, code := h.svc.Harvest.Start(ev.CharacterID, p.CorpseUID)
	if code != "" {
		h.fail(ev, protocol.EvHarvestStart, code, messageFor(code))
		return
	}
	h.respond(ev, protocol.EvHarvestStart, session)
}

func (h *Handlers) handleHarvestCancel(ev events.Event) {
	if ev.CharacterID == 0 {
		h.fail(ev, protocol.EvHarvestCancel, protocol.CodeCharacterNotFound, "no character joined")
		return
	}

	session, ok := h.svc.Harvest.Cancel(ev.CharacterID, string(model.InterruptPlayerCancelled))
	if !ok {
		h.fail(ev, protocol.EvHarvestCancel, protocol.CodeInvalidRequest, "no harvest in progress")
		return
	}
	h.respond(ev, protocol.EvHarvestCancel, session)
}

type nearbyCorpses struct {
	Corpses []*model.Corpse `json:"corpses"`
}

func (h *Handlers) handleGetNearbyCorpses(ev events.Event) {
	p, _ := ev.Payload.(events.GetNearbyCorpses)
	ch, ok := h.characterFor(ev, protocol.EvGetNearbyCorpses)
	if !ok {
		return
	}

	radius := p.Radius
	if radius <= 0 {
		radius = defaultNearbyRadius
	}
	h.respond(ev, protocol.EvGetNearbyCorpses, nearbyCorpses{
		Corpses: h.svc.Corpses.Nearby(ch.Position, radius),
	})
}

func (h *Handlers) handleCorpseLootPickup(ev events.Event) {
	p, ok := ev.Payload.(events.CorpseLootPickup)
	if !ok || p.CorpseUID == 0 {
		h.fail(ev, protocol.EvCorpseLootPickup, protocol.CodeInvalidRequest, "missing corpse uid")
		return
	}
	if ev.CharacterID == 0 {
		h.fail(ev, protocol.EvCorpseLootPickup, protocol.CodeCharacterNotFound, "no character joined")
		return
	}

	result, code := h.svc.Harvest.PickupLoot(ev.CharacterID, p.PlayerID, p.CorpseUID, p.Items)
	if code != "" {
		h.fail(ev, protocol.EvCorpseLootPickup, code, messageFor(code))
		return
	}
	h.respond(ev, protocol.EvCorpseLootPickup, result)
}

type corpseLoot struct {
	CorpseUID int64                  `json:"corpseUid"`
	Loot      []model.InventoryEntry `json:"loot"`
}

func (h *Handlers) handleCorpseLootInspect(ev events.Event) {
	p, ok := ev.Payload.(events.CorpseLootInspect)
	if !ok || p.CorpseUID == 0 {
		h.fail(ev, protocol.EvCorpseLootInspect, protocol.CodeInvalidRequest, "missing corpse uid")
		return
	}

	loot, code := h.svc.Harvest.InspectLoot(p.CorpseUID)
	if code != "" {
		h.fail(ev, protocol.EvCorpseLootInspect, code, messageFor(code))
		return
	}
	h.respond(ev, protocol.EvCorpseLootInspect, corpseLoot{CorpseUID: p.CorpseUID, Loot: loot})
}

// handleHarvestComplete finishes a timer the scheduler flagged as
// elapsed. There is no pending request to answer, so the rolled loot
// goes to the harvester as a pushed corpseLootInspect frame.
func (h *Handlers) handleHarvestComplete(ev events.Event) {
	p, ok := ev.Payload.(events.HarvestComplete)
	if !ok {
		return
	}

	result, code := h.svc.Harvest.Complete(p.CharacterID, p.CorpseUID)
	if code != "" {
		slog.Debug("harvest completion rejected",
			"characterId", p.CharacterID,
			"corpseUid", p.CorpseUID,
			"code", code)
		return
	}
	if err := h.sender.PushToCharacter(p.CharacterID, protocol.EvCorpseLootInspect, corpseLoot{
		CorpseUID: result.CorpseUID,
		Loot:      result.Loot,
	}); err != nil {
		slog.Debug("harvest loot push failed", "characterId", p.CharacterID, "error", err)
	}
}

// characterFor resolves the event's bound character, failing the
// request when the client never joined one.
func (h *Handlers) characterFor(ev events.Event, eventType string) (*model.Character, bool) {
	if ev.CharacterID == 0 {
		h.fail(ev, eventType, protocol.CodeCharacterNotFound, "no character joined")
		return nil, false
	}
	ch, ok := h.svc.Chars.Get(ev.CharacterID)
	if !ok {
		h.fail(ev, eventType, protocol.CodeCharacterNotFound, "character not resident")
		return nil, false
	}
	return ch, true
}
