package chunkserver

import (
	"log/slog"

	"github.com/mistvale/chunkserver/internal/ai"
	"github.com/mistvale/chunkserver/internal/events"
	"github.com/mistvale/chunkserver/internal/game/combat"
	"github.com/mistvale/chunkserver/internal/game/harvest"
	"github.com/mistvale/chunkserver/internal/game/skill"
	"github.com/mistvale/chunkserver/internal/model"
	"github.com/mistvale/chunkserver/internal/protocol"
	"github.com/mistvale/chunkserver/internal/spawn"
	"github.com/mistvale/chunkserver/internal/world"
)

// defaultNearbyRadius bounds the getNearbyItems / getNearbyCorpses
// queries when the client does not ask for a specific radius.
const defaultNearbyRadius = 1000.0

// UpstreamNotifier pushes character state back to the game server.
// Satisfied by the upstream link; nil-able for standalone runs.
type UpstreamNotifier interface {
	NotifyCharacterState(c model.Character)
}

// Services bundles every registry and engine the event handlers touch.
// Constructed once in dependency order at startup.
type Services struct {
	Clients   *world.ClientRegistry
	Chars     *world.CharacterRegistry
	Chunks    *world.ChunkRegistry
	Templates *world.MobTemplateRegistry
	Mobs      *world.MobInstanceRegistry
	Zones     *world.SpawnZoneRegistry
	Items     *world.ItemRegistry
	Inventory *world.InventoryStore
	Loot      *world.LootStore
	Corpses   *world.HarvestStore
	ExpTable  *world.ExperienceTable

	Spawner    *spawn.Spawner
	AI         *ai.Engine
	Skills     *skill.Engine
	Combat     *combat.Engine
	Experience *combat.ExperienceEngine
	Harvest    *harvest.Engine

	Upstream UpstreamNotifier
}

// Handlers is the single dispatch point for typed events. One handler
// per event kind; all of them run on worker goroutines and must not
// assume any ordering across clients.
type Handlers struct {
	svc    *Services
	sender *Sender
}

// NewHandlers creates the handler set over the service bundle.
func NewHandlers(svc *Services, sender *Sender) *Handlers {
	return &Handlers{svc: svc, sender: sender}
}

// Dispatch routes one event to its handler. Panics are recovered at
// the worker-pool boundary, so a bad event cannot take a worker down.
func (h *Handlers) Dispatch(ev events.Event) {
	switch ev.Kind {
	case events.KindJoinClient:
		h.handleJoinClient(ev)
	case events.KindJoinCharacter:
		h.handleJoinCharacter(ev)
	case events.KindMoveCharacter:
		h.handleMoveCharacter(ev)
	case events.KindPingClient:
		h.handlePing(ev)
	case events.KindDisconnectClient:
		h.handleDisconnect(ev)
	case events.KindSpawnMobsInZone:
		h.handleSpawnMobs(ev)
	case events.KindGetConnectedClients:
		h.handleGetConnectedCharacters(ev)
	case events.KindGetSpawnZones:
		h.handleGetSpawnZones(ev)
	case events.KindPlayerAttack:
		h.handlePlayerAttack(ev)
	case events.KindInterruptCombatAction:
		h.handleInterrupt(ev)
	case events.KindHarvestStartRequest:
		h.handleHarvestStart(ev)
	case events.KindHarvestCancelled:
		h.handleHarvestCancel(ev)
	case events.KindGetNearbyCorpses:
		h.handleGetNearbyCorpses(ev)
	case events.KindCorpseLootPickup:
		h.handleCorpseLootPickup(ev)
	case events.KindCorpseLootInspect:
		h.handleCorpseLootInspect(ev)
	case events.KindItemPickup:
		h.handleItemPickup(ev)
	case events.KindGetNearbyItems:
		h.handleGetNearbyItems(ev)
	case events.KindGetPlayerInventory:
		h.handleGetPlayerInventory(ev)
	case events.KindSetChunkData,
		events.KindSetCharacterData,
		events.KindSetCharacterAttributes,
		events.KindSetAllSpawnZones,
		events.KindSetAllMobsList,
		events.KindSetAllMobsAttributes,
		events.KindSetAllMobsSkills,
		events.KindSetAllItemsList,
		events.KindSetMobLootInfo,
		events.KindSetExpLevelTable:
		h.dispatchUpstream(ev)
	case events.KindHarvestComplete:
		h.handleHarvestComplete(ev)
	case events.KindItemDrop:
		h.handleItemDrop(ev)
	case events.KindInventoryUpdate:
		h.handleInventoryUpdate(ev)
	default:
		slog.Warn("no handler for event", "kind", ev.Kind.String())
	}
}

// respond and fail swallow write errors: the client may have vanished
// between dispatch and send, which is not the handler's problem.
func (h *Handlers) respond(ev events.Event, eventType string, body any) {
	if err := h.sender.Respond(ev.ClientID, eventType, metaFromEvent(ev), body); err != nil {
		slog.Debug("response write failed",
			"eventType", eventType,
			"clientId", ev.ClientID,
			"error", err)
	}
}

func (h *Handlers) fail(ev events.Event, eventType, code, message string) {
	if err := h.sender.RespondError(ev.ClientID, eventType, metaFromEvent(ev), code, message); err != nil {
		slog.Debug("error response write failed",
			"eventType", eventType,
			"clientId", ev.ClientID,
			"error", err)
	}
}

type joinClientAck struct {
	ClientID    int64 `json:"clientId"`
	CharacterID int64 `json:"characterId,omitempty"`
}

func (h *Handlers) handleJoinClient(ev events.Event) {
	c, ok := h.svc.Clients.Get(ev.ClientID)
	if !ok {
		// Raced a disconnect between dispatch and handling.
		return
	}
	h.respond(ev, protocol.EvJoinGameClient, joinClientAck{ClientID: c.ID, CharacterID: c.CharacterID})
	slog.Info("client joined", "clientId", c.ID, "characterId", c.CharacterID)
}

type playerSkillsInit struct {
	CharacterID int64         `json:"characterId"`
	Skills      []model.Skill `json:"skills"`
}

func (h *Handlers) handleJoinCharacter(ev events.Event) {
	ch, ok := ev.Payload.(model.Character)
	if !ok || ch.ID == 0 {
		h.fail(ev, protocol.EvJoinGameCharacter, protocol.CodeInvalidRequest, "missing character data")
		return
	}

	ch.ClientID = ev.ClientID
	h.svc.Chars.Put(&ch)
	h.svc.Clients.SetCharacter(ev.ClientID, ch.ID)

	joined, _ := h.svc.Chars.Get(ch.ID)
	h.respond(ev, protocol.EvJoinGameCharacter, joined)

	skills := make([]model.Skill, 0, len(joined.Skills))
	for _, s := range joined.Skills {
		skills = append(skills, s)
	}
	if err := h.sender.Push(ev.ClientID, protocol.EvInitializePlayerSkills, playerSkillsInit{
		CharacterID: ch.ID,
		Skills:      skills,
	}); err != nil {
		slog.Debug("skills init push failed", "characterId", ch.ID, "error", err)
	}

	h.sender.BroadcastExcept(ev.ClientID, protocol.EvCharacterJoined, joined)
	slog.Info("character joined",
		"characterId", ch.ID,
		"name", ch.Name,
		"level", ch.Level,
		"clientId", ev.ClientID)
}

func (h *Handlers) handleMoveCharacter(ev events.Event) {
	p, ok := ev.Payload.(events.MoveCharacter)
	if !ok {
		h.fail(ev, protocol.EvMoveCharacter, protocol.CodeInvalidRequest, "missing movement data")
		return
	}
	if ev.CharacterID == 0 {
		h.fail(ev, protocol.EvMoveCharacter, protocol.CodeCharacterNotFound, "no character joined")
		return
	}
	if p.CharacterID != 0 && p.CharacterID != ev.CharacterID {
		slog.Warn("movement for foreign character rejected",
			"clientId", ev.ClientID,
			"boundCharacterId", ev.CharacterID,
			"requestedCharacterId", p.CharacterID)
		h.fail(ev, protocol.EvMoveCharacter, protocol.CodeSecurityViolation, "character is not yours")
		return
	}

	pos := model.Position{X: p.PosX, Y: p.PosY, Z: p.PosZ, RotZ: p.RotZ}
	if !h.svc.Chars.UpdatePosition(ev.CharacterID, pos) {
		h.fail(ev, protocol.EvMoveCharacter, protocol.CodeCharacterNotFound, "character not resident")
		return
	}

	// Walking away mid-harvest cancels the channel.
	h.svc.Harvest.CheckMovement(ev.CharacterID, pos)

	p.CharacterID = ev.CharacterID
	h.respond(ev, protocol.EvMoveCharacter, p)
	h.sender.BroadcastExcept(ev.ClientID, protocol.EvMoveCharacter, p)
}

func (h *Handlers) handlePing(ev events.Event) {
	h.respond(ev, protocol.EvPingClient, nil)
}

type characterLeft struct {
	CharacterID int64  `json:"characterId"`
	Name        string `json:"name,omitempty"`
}

// handleDisconnect runs the full departure: abort any cast or harvest,
// push the final character state upstream, drop the registries and tell
// everyone. Both emission paths (client frame, session teardown) land
// here; every step tolerates the other having run first.
func (h *Handlers) handleDisconnect(ev events.Event) {
	characterID := ev.CharacterID
	if c, ok := h.svc.Clients.Get(ev.ClientID); ok {
		if characterID == 0 {
			characterID = c.CharacterID
		}
		if c.Sock != nil {
			c.Sock.Close()
		}
		h.svc.Clients.Remove(ev.ClientID)
	}
	if characterID == 0 {
		return
	}

	h.svc.Skills.Interrupt(characterID, model.InterruptPlayerCancelled)
	h.svc.Harvest.Cancel(characterID, string(model.InterruptPlayerCancelled))

	ch, ok := h.svc.Chars.Get(characterID)
	if !ok {
		return
	}
	if h.svc.Upstream != nil {
		h.svc.Upstream.NotifyCharacterState(*ch)
	}
	h.svc.Chars.Remove(characterID)
	h.sender.Broadcast(protocol.EvCharacterLeft, characterLeft{CharacterID: characterID, Name: ch.Name})
	slog.Info("character left", "characterId", characterID, "clientId", ev.ClientID)
}

type mobsSpawned struct {
	Mobs []model.MobInstance `json:"mobs"`
}

type spawnAck struct {
	Spawned int `json:"spawned"`
}

func (h *Handlers) handleSpawnMobs(ev events.Event) {
	p, _ := ev.Payload.(events.SpawnMobsInZone)

	var spawned []model.MobInstance
	if p.ZoneID != 0 {
		insts, err := h.svc.Spawner.SpawnZone(p.ZoneID)
		if err != nil {
			h.fail(ev, protocol.EvSpawnMobs, protocol.CodeZoneNotFound, err.Error())
			return
		}
		spawned = insts
	} else {
		spawned = h.svc.Spawner.SpawnAll()
	}

	for _, inst := range spawned {
		h.svc.AI.Track(inst)
	}
	if len(spawned) > 0 {
		h.sender.Broadcast(protocol.EvMobsSpawned, mobsSpawned{Mobs: spawned})
	}
	h.respond(ev, protocol.EvSpawnMobs, spawnAck{Spawned: len(spawned)})
}

type characterSummary struct {
	CharacterID int64          `json:"characterId"`
	Name        string         `json:"name"`
	Level       int            `json:"level"`
	Position    model.Position `json:"position"`
}

type connectedCharacters struct {
	Characters []characterSummary `json:"characters"`
}

func (h *Handlers) handleGetConnectedCharacters(ev events.Event) {
	chars := h.svc.Chars.Connected()
	out := make([]characterSummary, 0, len(chars))
	for _, c := range chars {
		out = append(out, characterSummary{
			CharacterID: c.ID,
			Name:        c.Name,
			Level:       c.Level,
			Position:    c.Position,
		})
	}
	h.respond(ev, protocol.EvGetConnectedCharacters, connectedCharacters{Characters: out})
}

type spawnZoneList struct {
	Zones []*model.SpawnZone `json:"zones"`
}

func (h *Handlers) handleGetSpawnZones(ev events.Event) {
	h.respond(ev, protocol.EvGetSpawnZones, spawnZoneList{Zones: h.svc.Zones.All()})
}
