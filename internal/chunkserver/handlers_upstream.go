package chunkserver

import (
	"log/slog"

	"github.com/mistvale/chunkserver/internal/events"
	"github.com/mistvale/chunkserver/internal/model"
)

// dispatchUpstream applies game-server replication data. These events
// never answer a client; they only mutate registries and log counts so
// a missing catalog is visible in the startup output.
func (h *Handlers) dispatchUpstream(ev events.Event) {
	switch ev.Kind {
	case events.KindSetChunkData:
		h.applyChunkData(ev)
	case events.KindSetCharacterData:
		h.applyCharacterData(ev)
	case events.KindSetCharacterAttributes:
		h.applyCharacterAttributes(ev)
	case events.KindSetAllSpawnZones:
		h.applySpawnZones(ev)
	case events.KindSetAllMobsList:
		h.applyMobList(ev)
	case events.KindSetAllMobsAttributes:
		h.applyMobAttributes(ev)
	case events.KindSetAllMobsSkills:
		h.applyMobSkills(ev)
	case events.KindSetAllItemsList:
		h.applyItemList(ev)
	case events.KindSetMobLootInfo:
		h.applyMobLoot(ev)
	case events.KindSetExpLevelTable:
		h.applyExpTable(ev)
	}
}

func (h *Handlers) applyChunkData(ev events.Event) {
	c, ok := ev.Payload.(model.Chunk)
	if !ok {
		return
	}
	h.svc.Chunks.Put(c)
	slog.Info("chunk data applied", "chunkId", c.ID, "name", c.Name)
}

// applyCharacterData upserts a character pushed by the game server.
// A push for an already-resident character must not sever its client
// binding, so a zero ClientID keeps whatever is registered.
func (h *Handlers) applyCharacterData(ev events.Event) {
	c, ok := ev.Payload.(model.Character)
	if !ok || c.ID == 0 {
		return
	}
	if existing, found := h.svc.Chars.Get(c.ID); found && c.ClientID == 0 {
		c.ClientID = existing.ClientID
	}
	h.svc.Chars.Put(&c)
	slog.Info("character data applied", "characterId", c.ID, "name", c.Name, "level", c.Level)
}

func (h *Handlers) applyCharacterAttributes(ev events.Event) {
	p, ok := ev.Payload.(events.SetCharacterAttributes)
	if !ok {
		return
	}
	if !h.svc.Chars.SetAttributes(p.CharacterID, p.Attributes) {
		slog.Warn("attributes for unknown character dropped", "characterId", p.CharacterID)
		return
	}
	slog.Info("character attributes applied", "characterId", p.CharacterID)
}

func (h *Handlers) applySpawnZones(ev events.Event) {
	p, ok := ev.Payload.(events.SetAllSpawnZones)
	if !ok {
		return
	}
	h.svc.Zones.ReplaceAll(p.Zones)
	slog.Info("spawn zones loaded", "count", len(p.Zones))
}

func (h *Handlers) applyMobList(ev events.Event) {
	p, ok := ev.Payload.(events.SetAllMobsList)
	if !ok {
		return
	}
	h.svc.Templates.ReplaceAll(p.Mobs)
	slog.Info("mob templates loaded", "count", len(p.Mobs))
}

func (h *Handlers) applyMobAttributes(ev events.Event) {
	p, ok := ev.Payload.(events.SetAllMobsAttributes)
	if !ok {
		return
	}
	applied := 0
	for _, row := range p.Mobs {
		if h.svc.Templates.SetAttributes(row.MobID, row.Attributes) {
			applied++
		}
	}
	slog.Info("mob attributes applied", "applied", applied, "received", len(p.Mobs))
}

func (h *Handlers) applyMobSkills(ev events.Event) {
	p, ok := ev.Payload.(events.SetAllMobsSkills)
	if !ok {
		return
	}
	applied := 0
	for _, row := range p.Mobs {
		if h.svc.Templates.SetSkills(row.MobID, row.Skills) {
			applied++
		}
	}
	slog.Info("mob skills applied", "applied", applied, "received", len(p.Mobs))
}

func (h *Handlers) applyItemList(ev events.Event) {
	p, ok := ev.Payload.(events.SetAllItemsList)
	if !ok {
		return
	}
	h.svc.Items.ReplaceAll(p.Items)
	slog.Info("item templates loaded", "count", len(p.Items))
}

func (h *Handlers) applyMobLoot(ev events.Event) {
	p, ok := ev.Payload.(events.SetMobLootInfo)
	if !ok || p.MobID == 0 {
		return
	}
	h.svc.Items.SetLootTable(p.MobID, p.Loot)
	slog.Info("mob loot table applied", "mobId", p.MobID, "rows", len(p.Loot))
}

func (h *Handlers) applyExpTable(ev events.Event) {
	p, ok := ev.Payload.(events.SetExpLevelTable)
	if !ok {
		return
	}
	h.svc.ExpTable.Load(p.Levels)
	slog.Info("experience table loaded", "levels", len(p.Levels))
}
