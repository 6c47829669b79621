package chunkserver

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

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

type upstreamStub struct {
	mu       sync.Mutex
	notified []model.Character
}

func (s *upstreamStub) NotifyCharacterState(c model.Character) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notified = append(s.notified, c)
}

func (s *upstreamStub) all() []model.Character {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Character(nil), s.notified...)
}

// handlerFixture is the full service graph minus the listener and the
// queues: events go straight into Dispatch, side effects that the app
// would round-trip through the ingress queue run inline.
type handlerFixture struct {
	svc      *Services
	sender   *Sender
	h        *Handlers
	upstream *upstreamStub
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()

	clients := world.NewClientRegistry()
	chars := world.NewCharacterRegistry()
	chunks := world.NewChunkRegistry()
	templates := world.NewMobTemplateRegistry()
	mobs := world.NewMobInstanceRegistry()
	zones := world.NewSpawnZoneRegistry()
	items := world.NewItemRegistry()
	inventory := world.NewInventoryStore()
	loot := world.NewLootStore(items)
	corpses := world.NewHarvestStore()
	expTable := world.NewExperienceTable()

	spawner := spawn.NewSpawner(zones, templates, mobs)
	aiEngine := ai.NewEngine(zones, templates, mobs, chars)
	expEngine := combat.NewExperienceEngine(chars, expTable)
	combatEngine := combat.NewEngine(chars, mobs, templates, zones, corpses, loot, expEngine)
	skillEngine := skill.NewEngine(chars, mobs, templates, combatEngine.Execute)
	harvestEngine := harvest.NewEngine(corpses, items, inventory, chars, mobs)

	stub := &upstreamStub{}
	svc := &Services{
		Clients:    clients,
		Chars:      chars,
		Chunks:     chunks,
		Templates:  templates,
		Mobs:       mobs,
		Zones:      zones,
		Items:      items,
		Inventory:  inventory,
		Loot:       loot,
		Corpses:    corpses,
		ExpTable:   expTable,
		Spawner:    spawner,
		AI:         aiEngine,
		Skills:     skillEngine,
		Combat:     combatEngine,
		Experience: expEngine,
		Harvest:    harvestEngine,
		Upstream:   stub,
	}

	sender := NewSender(clients, chars)
	h := NewHandlers(svc, sender)

	broadcast := func(eventType string, body any) {
		sender.Broadcast(eventType, body)
	}
	combatEngine.SetMobAttackedFunc(aiEngine.HandleMobAttacked)
	combatEngine.SetMobDeadFunc(aiEngine.Forget)
	combatEngine.SetInterruptFunc(func(casterID int64, reason model.InterruptReason) {
		skillEngine.Interrupt(casterID, reason)
	})
	aiEngine.SetAttackFunc(skillEngine.ExecuteMobAttack)
	skillEngine.SetBroadcastFunc(broadcast)
	expEngine.SetBroadcastFunc(broadcast)
	harvestEngine.SetBroadcastFunc(broadcast)

	harvestEngine.SetCompleteFunc(func(characterID, corpseUID int64) {
		h.Dispatch(events.Event{
			Kind:        events.KindHarvestComplete,
			CharacterID: characterID,
			ReceivedAt:  time.Now(),
			Payload:     events.HarvestComplete{CharacterID: characterID, CorpseUID: corpseUID},
		})
	})
	inventory.SetNotifyFunc(func(characterID int64, entries []model.InventoryEntry) {
		h.Dispatch(events.Event{
			Kind:        events.KindInventoryUpdate,
			CharacterID: characterID,
			ReceivedAt:  time.Now(),
			Payload:     events.InventoryUpdate{CharacterID: characterID, Items: entries},
		})
	})
	loot.SetDropFunc(func(dropped []model.DroppedItem) {
		h.Dispatch(events.Event{
			Kind:       events.KindItemDrop,
			ReceivedAt: time.Now(),
			Payload:    events.ItemDrop{Items: dropped},
		})
	})

	return &handlerFixture{svc: svc, sender: sender, h: h, upstream: stub}
}

// handlerClient is the far end of one registered client socket.
type handlerClient struct {
	t     *testing.T
	id    int64
	lines chan []byte
}

func (f *handlerFixture) connect(t *testing.T, clientID, characterID int64) *handlerClient {
	t.Helper()
	cli, srv := net.Pipe()
	sock := world.NewSocket(srv)
	f.svc.Clients.Register(world.Client{ID: clientID, Hash: "hx", CharacterID: characterID, Sock: sock})

	hc := &handlerClient{t: t, id: clientID, lines: make(chan []byte, 64)}
	go func() {
		sc := bufio.NewScanner(cli)
		sc.Buffer(make([]byte, 4096), protocol.MaxFrameSize)
		for sc.Scan() {
			line := make([]byte, len(sc.Bytes()))
			copy(line, sc.Bytes())
			hc.lines <- line
		}
		close(hc.lines)
	}()
	t.Cleanup(func() {
		sock.Close()
		cli.Close()
	})
	return hc
}

// joinChar seeds the character registry as if the join flow ran.
func (f *handlerFixture) joinChar(clientID int64, ch model.Character) {
	ch.ClientID = clientID
	f.svc.Chars.Put(&ch)
	f.svc.Clients.SetCharacter(clientID, ch.ID)
}

// recv waits for the next frame of the wanted type, skipping others.
func (hc *handlerClient) recv(eventType string) protocol.Envelope {
	hc.t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case line, ok := <-hc.lines:
			if !ok {
				hc.t.Fatalf("client %d: connection closed while waiting for %s", hc.id, eventType)
			}
			env, err := protocol.ParseEnvelope(line)
			if err != nil {
				hc.t.Fatalf("client %d: bad frame: %v", hc.id, err)
			}
			if env.Header.EventType == eventType {
				return env
			}
		case <-deadline:
			hc.t.Fatalf("client %d: no %s frame arrived", hc.id, eventType)
		}
	}
}

// expectNone asserts no frame of the given type arrives within wait.
func (hc *handlerClient) expectNone(eventType string, wait time.Duration) {
	hc.t.Helper()
	deadline := time.After(wait)
	for {
		select {
		case line, ok := <-hc.lines:
			if !ok {
				return
			}
			env, err := protocol.ParseEnvelope(line)
			if err == nil && env.Header.EventType == eventType {
				hc.t.Fatalf("client %d: unexpected %s frame", hc.id, eventType)
			}
		case <-deadline:
			return
		}
	}
}

func decodeAs[T any](t *testing.T, env protocol.Envelope) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(env.Body, &v); err != nil {
		t.Fatalf("decode %s body: %v", env.Header.EventType, err)
	}
	return v
}

func errorCodeOf(t *testing.T, env protocol.Envelope) string {
	t.Helper()
	if env.Header.Status != protocol.StatusError {
		t.Fatalf("%s status = %q, want error", env.Header.EventType, env.Header.Status)
	}
	return decodeAs[protocol.ErrorBody](t, env).ErrorCode
}

var reqSeq int64

func clientEvent(kind events.Kind, clientID, characterID int64, payload any) events.Event {
	reqSeq++
	return events.Event{
		Kind:         kind,
		ClientID:     clientID,
		CharacterID:  characterID,
		RequestID:    fmt.Sprintf("rq-%d", reqSeq),
		ClientSendMs: 1000 + reqSeq,
		ReceivedAt:   time.Now(),
		Payload:      payload,
	}
}

func TestHandleJoinClientAcksIdentity(t *testing.T) {
	f := newHandlerFixture(t)
	a := f.connect(t, 1, 0)

	f.h.Dispatch(clientEvent(events.KindJoinClient, 1, 0, events.JoinClient{}))

	env := a.recv(protocol.EvJoinGameClient)
	if env.Header.Status != protocol.StatusSuccess {
		t.Fatalf("status = %q", env.Header.Status)
	}
	ack := decodeAs[joinClientAck](t, env)
	if ack.ClientID != 1 {
		t.Errorf("clientId = %d, want 1", ack.ClientID)
	}
}

func TestHandleJoinCharacterFlow(t *testing.T) {
	f := newHandlerFixture(t)
	a := f.connect(t, 1, 0)
	b := f.connect(t, 2, 20)
	f.joinChar(2, model.Character{ID: 20, Name: "Borin", Level: 4})

	ch := model.Character{
		ID: 10, Name: "Asha", Level: 3,
		CurrentHealth: 90, MaxHealth: 90,
		Skills: map[string]model.Skill{
			"slash": {Slug: "slash", Name: "Slash", MaxRange: 50},
		},
	}
	f.h.Dispatch(clientEvent(events.KindJoinCharacter, 1, 0, ch))

	// Requester: join ack, then the skills bootstrap.
	env := a.recv(protocol.EvJoinGameCharacter)
	if env.Header.Status != protocol.StatusSuccess {
		t.Fatalf("join status = %q", env.Header.Status)
	}
	joined := decodeAs[model.Character](t, env)
	if joined.ID != 10 || joined.ClientID != 1 {
		t.Errorf("joined character = id %d client %d, want 10/1", joined.ID, joined.ClientID)
	}

	init := decodeAs[playerSkillsInit](t, a.recv(protocol.EvInitializePlayerSkills))
	if init.CharacterID != 10 || len(init.Skills) != 1 {
		t.Errorf("skills init = %+v", init)
	}

	// Everyone else: the arrival broadcast.
	arrival := decodeAs[model.Character](t, b.recv(protocol.EvCharacterJoined))
	if arrival.ID != 10 {
		t.Errorf("broadcast character id = %d, want 10", arrival.ID)
	}

	stored, ok := f.svc.Chars.Get(10)
	if !ok || stored.ClientID != 1 {
		t.Errorf("registry character = %+v, ok=%v", stored, ok)
	}
	if c, _ := f.svc.Clients.Get(1); c.CharacterID != 10 {
		t.Errorf("client binding = %d, want 10", c.CharacterID)
	}
}

func TestHandleMoveCharacterBroadcasts(t *testing.T) {
	f := newHandlerFixture(t)
	a := f.connect(t, 1, 10)
	b := f.connect(t, 2, 20)
	f.joinChar(1, model.Character{ID: 10, Name: "Asha"})
	f.joinChar(2, model.Character{ID: 20, Name: "Borin"})

	f.h.Dispatch(clientEvent(events.KindMoveCharacter, 1, 10, events.MoveCharacter{
		CharacterID: 10, PosX: 5, PosY: 6, RotZ: 1.5,
	}))

	echo := decodeAs[events.MoveCharacter](t, a.recv(protocol.EvMoveCharacter))
	if echo.CharacterID != 10 || echo.PosX != 5 {
		t.Errorf("echo = %+v", echo)
	}

	seen := decodeAs[events.MoveCharacter](t, b.recv(protocol.EvMoveCharacter))
	if seen.CharacterID != 10 || seen.PosY != 6 {
		t.Errorf("broadcast = %+v", seen)
	}

	ch, _ := f.svc.Chars.Get(10)
	if ch.Position.X != 5 || ch.Position.Y != 6 || ch.Position.RotZ != 1.5 {
		t.Errorf("stored position = %+v", ch.Position)
	}
}

func TestHandleMoveCharacterRejectsForeignCharacter(t *testing.T) {
	f := newHandlerFixture(t)
	a := f.connect(t, 1, 10)
	b := f.connect(t, 2, 20)
	f.joinChar(1, model.Character{ID: 10})
	f.joinChar(2, model.Character{ID: 20, Position: model.Position{X: 99}})

	f.h.Dispatch(clientEvent(events.KindMoveCharacter, 1, 10, events.MoveCharacter{
		CharacterID: 20, PosX: 1,
	}))

	if code := errorCodeOf(t, a.recv(protocol.EvMoveCharacter)); code != protocol.CodeSecurityViolation {
		t.Errorf("errorCode = %q, want %q", code, protocol.CodeSecurityViolation)
	}
	b.expectNone(protocol.EvMoveCharacter, 50*time.Millisecond)

	ch, _ := f.svc.Chars.Get(20)
	if ch.Position.X != 99 {
		t.Errorf("victim position moved to %+v", ch.Position)
	}
}

func TestHandlePingEchoesTimings(t *testing.T) {
	f := newHandlerFixture(t)
	a := f.connect(t, 1, 0)

	ev := clientEvent(events.KindPingClient, 1, 0, nil)
	f.h.Dispatch(ev)

	env := a.recv(protocol.EvPingClient)
	if env.Header.Status != protocol.StatusSuccess {
		t.Fatalf("status = %q", env.Header.Status)
	}
	if env.Header.RequestIDEcho != ev.RequestID {
		t.Errorf("requestIdEcho = %q, want %q", env.Header.RequestIDEcho, ev.RequestID)
	}
	if env.Header.ClientSendMsEcho != ev.ClientSendMs {
		t.Errorf("clientSendMsEcho = %d, want %d", env.Header.ClientSendMsEcho, ev.ClientSendMs)
	}
	if env.Header.ServerRecvMs == 0 || env.Header.ServerSendMs == 0 {
		t.Errorf("server stamps missing: recv %d send %d", env.Header.ServerRecvMs, env.Header.ServerSendMs)
	}
}

func TestHandleDisconnectCleansUp(t *testing.T) {
	f := newHandlerFixture(t)
	f.connect(t, 1, 10)
	b := f.connect(t, 2, 20)
	f.joinChar(1, model.Character{ID: 10, Name: "Asha"})
	f.joinChar(2, model.Character{ID: 20, Name: "Borin"})

	f.h.Dispatch(clientEvent(events.KindDisconnectClient, 1, 10, nil))

	if _, ok := f.svc.Clients.Get(1); ok {
		t.Error("client still registered")
	}
	if _, ok := f.svc.Chars.Get(10); ok {
		t.Error("character still resident")
	}

	left := decodeAs[characterLeft](t, b.recv(protocol.EvCharacterLeft))
	if left.CharacterID != 10 || left.Name != "Asha" {
		t.Errorf("departure broadcast = %+v", left)
	}

	notified := f.upstream.all()
	if len(notified) != 1 || notified[0].ID != 10 {
		t.Errorf("upstream notifications = %+v", notified)
	}
}

func TestHandleSpawnMobsInZone(t *testing.T) {
	f := newHandlerFixture(t)
	a := f.connect(t, 1, 10)
	f.joinChar(1, model.Character{ID: 10})

	f.svc.Templates.Put(&model.MobTemplate{MobID: 301, Name: "Gnoll", Level: 2, MaxHealth: 40})
	f.svc.Zones.Put(&model.SpawnZone{
		ZoneID: 5, SpawnMobID: 301, SpawnCount: 3,
		Center: model.Position{X: 100, Y: 100},
		Size:   model.Extent{X: 60, Y: 60, Z: 10},
	})

	f.h.Dispatch(clientEvent(events.KindSpawnMobsInZone, 1, 10, events.SpawnMobsInZone{ZoneID: 5}))

	spawned := decodeAs[mobsSpawned](t, a.recv(protocol.EvMobsSpawned))
	if len(spawned.Mobs) != 3 {
		t.Fatalf("broadcast mobs = %d, want 3", len(spawned.Mobs))
	}
	ack := decodeAs[spawnAck](t, a.recv(protocol.EvSpawnMobs))
	if ack.Spawned != 3 {
		t.Errorf("ack spawned = %d, want 3", ack.Spawned)
	}
	if got := f.svc.Mobs.Count(); got != 3 {
		t.Errorf("registry mobs = %d, want 3", got)
	}
}

func TestHandleSpawnMobsUnknownZone(t *testing.T) {
	f := newHandlerFixture(t)
	a := f.connect(t, 1, 10)

	f.h.Dispatch(clientEvent(events.KindSpawnMobsInZone, 1, 10, events.SpawnMobsInZone{ZoneID: 404}))

	if code := errorCodeOf(t, a.recv(protocol.EvSpawnMobs)); code != protocol.CodeZoneNotFound {
		t.Errorf("errorCode = %q, want %q", code, protocol.CodeZoneNotFound)
	}
}

func TestHandleGetConnectedCharacters(t *testing.T) {
	f := newHandlerFixture(t)
	a := f.connect(t, 1, 10)
	f.connect(t, 2, 20)
	f.joinChar(1, model.Character{ID: 10, Name: "Asha", Level: 3})
	f.joinChar(2, model.Character{ID: 20, Name: "Borin", Level: 4})

	f.h.Dispatch(clientEvent(events.KindGetConnectedClients, 1, 10, nil))

	list := decodeAs[connectedCharacters](t, a.recv(protocol.EvGetConnectedCharacters))
	if len(list.Characters) != 2 {
		t.Fatalf("characters = %d, want 2", len(list.Characters))
	}
	byID := map[int64]characterSummary{}
	for _, s := range list.Characters {
		byID[s.CharacterID] = s
	}
	if byID[10].Name != "Asha" || byID[20].Level != 4 {
		t.Errorf("summaries = %+v", list.Characters)
	}
}

func TestHandleGetSpawnZones(t *testing.T) {
	f := newHandlerFixture(t)
	a := f.connect(t, 1, 0)
	f.svc.Zones.Put(&model.SpawnZone{ZoneID: 5, SpawnMobID: 301, SpawnCount: 1})
	f.svc.Zones.Put(&model.SpawnZone{ZoneID: 6, SpawnMobID: 302, SpawnCount: 2})

	f.h.Dispatch(clientEvent(events.KindGetSpawnZones, 1, 0, nil))

	list := decodeAs[spawnZoneList](t, a.recv(protocol.EvGetSpawnZones))
	if len(list.Zones) != 2 {
		t.Errorf("zones = %d, want 2", len(list.Zones))
	}
}

func TestHandlePlayerAttackValidation(t *testing.T) {
	f := newHandlerFixture(t)
	a := f.connect(t, 1, 10)
	f.joinChar(1, model.Character{ID: 10, CurrentMana: 50, MaxMana: 50})

	f.h.Dispatch(clientEvent(events.KindPlayerAttack, 1, 10, events.PlayerAttack{
		SkillSlug: "fireball", TargetID: 99, TargetType: "scenery",
	}))
	if code := errorCodeOf(t, a.recv(protocol.EvPlayerAttack)); code != protocol.CodeInvalidTarget {
		t.Errorf("errorCode = %q, want %q", code, protocol.CodeInvalidTarget)
	}

	f.h.Dispatch(clientEvent(events.KindPlayerAttack, 1, 10, events.PlayerAttack{
		SkillSlug: "fireball", TargetID: 99, TargetType: "mob",
	}))
	if code := errorCodeOf(t, a.recv(protocol.EvPlayerAttack)); code != protocol.CodeSkillNotFound {
		t.Errorf("errorCode = %q, want %q", code, protocol.CodeSkillNotFound)
	}
}

func TestHandlePlayerAttackInstantSkill(t *testing.T) {
	f := newHandlerFixture(t)
	a := f.connect(t, 1, 10)
	f.joinChar(1, model.Character{
		ID: 10, Level: 3,
		CurrentHealth: 90, MaxHealth: 90,
		CurrentMana: 50, MaxMana: 50,
		Position: model.Position{X: 0, Y: 0},
		Skills: map[string]model.Skill{
			"slash": {Slug: "slash", Name: "Slash", MaxRange: 100, Coeff: 1, CostMp: 5},
		},
	})
	f.svc.Templates.Put(&model.MobTemplate{MobID: 301, Name: "Gnoll", Level: 2, MaxHealth: 40})
	if err := f.svc.Mobs.Register(model.MobInstance{
		UID: 9001, MobID: 301, ZoneID: 5,
		Position:      model.Position{X: 10, Y: 0},
		CurrentHealth: 40, MaxHealth: 40,
	}); err != nil {
		t.Fatal(err)
	}

	f.h.Dispatch(clientEvent(events.KindPlayerAttack, 1, 10, events.PlayerAttack{
		SkillSlug: "slash", TargetID: 9001, TargetType: "mob",
	}))

	env := a.recv(protocol.EvPlayerAttack)
	if env.Header.Status != protocol.StatusSuccess {
		t.Fatalf("attack status = %q, body %s", env.Header.Status, env.Body)
	}
	ch, _ := f.svc.Chars.Get(10)
	if ch.CurrentMana != 45 {
		t.Errorf("mana = %d, want 45 after 5 mp cast", ch.CurrentMana)
	}
}

func TestHandleInterruptWithoutAction(t *testing.T) {
	f := newHandlerFixture(t)
	a := f.connect(t, 1, 10)
	f.joinChar(1, model.Character{ID: 10})

	f.h.Dispatch(clientEvent(events.KindInterruptCombatAction, 1, 10, events.InterruptCombatAction{
		Reason: "player_cancelled",
	}))

	if code := errorCodeOf(t, a.recv(protocol.EvInterruptCombatAction)); code != protocol.CodeInvalidRequest {
		t.Errorf("errorCode = %q, want %q", code, protocol.CodeInvalidRequest)
	}
}

func TestHandleHarvestLifecycle(t *testing.T) {
	f := newHandlerFixture(t)
	a := f.connect(t, 1, 10)
	b := f.connect(t, 2, 20)
	f.joinChar(1, model.Character{ID: 10, Position: model.Position{X: 0, Y: 0}})
	f.joinChar(2, model.Character{ID: 20, Position: model.Position{X: 500, Y: 500}})

	f.svc.Items.Put(&model.ItemTemplate{ID: 501, Name: "Gnoll Hide", Slug: "gnoll-hide", IsHarvest: true})
	f.svc.Items.SetLootTable(301, []model.LootEntry{{ItemID: 501, DropChance: 1.0}})
	f.svc.Corpses.RegisterCorpse(model.Corpse{
		MobUID: 601, MobID: 301,
		Position:  model.Position{X: 10, Y: 0},
		DeathTime: time.Now(),
	})

	f.h.Dispatch(clientEvent(events.KindHarvestStartRequest, 1, 10, events.HarvestStart{CorpseUID: 601}))
	if env := a.recv(protocol.EvHarvestStart); env.Header.Status != protocol.StatusSuccess {
		t.Fatalf("start status = %q, body %s", env.Header.Status, env.Body)
	}
	b.recv(protocol.EvHarvestStartBroadcast)

	// Force the channel timer past its end; completion flows back in
	// through the internal event and unicasts the rolled loot.
	f.svc.Harvest.Tick(time.Now().Add(world.DefaultHarvestDuration + time.Second))

	loot := decodeAs[corpseLoot](t, a.recv(protocol.EvCorpseLootInspect))
	if loot.CorpseUID != 601 || len(loot.Loot) != 1 || loot.Loot[0].ItemID != 501 {
		t.Fatalf("harvest loot = %+v", loot)
	}
	b.recv(protocol.EvHarvestCompleteBroadcast)

	f.h.Dispatch(clientEvent(events.KindCorpseLootPickup, 1, 10, events.CorpseLootPickup{
		CorpseUID: 601, PlayerID: 10,
		Items: []model.InventoryEntry{{ItemID: 501, Quantity: 1}},
	}))
	if env := a.recv(protocol.EvCorpseLootPickup); env.Header.Status != protocol.StatusSuccess {
		t.Fatalf("pickup status = %q, body %s", env.Header.Status, env.Body)
	}
	if got := f.svc.Inventory.Quantity(10, 501); got != 1 {
		t.Errorf("inventory quantity = %d, want 1", got)
	}
}

func TestHandleHarvestCancel(t *testing.T) {
	f := newHandlerFixture(t)
	a := f.connect(t, 1, 10)
	f.joinChar(1, model.Character{ID: 10, Position: model.Position{X: 0}})
	f.svc.Corpses.RegisterCorpse(model.Corpse{MobUID: 601, MobID: 301, DeathTime: time.Now()})

	f.h.Dispatch(clientEvent(events.KindHarvestStartRequest, 1, 10, events.HarvestStart{CorpseUID: 601}))
	a.recv(protocol.EvHarvestStart)

	f.h.Dispatch(clientEvent(events.KindHarvestCancelled, 1, 10, events.HarvestCancel{CorpseUID: 601}))
	if env := a.recv(protocol.EvHarvestCancel); env.Header.Status != protocol.StatusSuccess {
		t.Fatalf("cancel status = %q", env.Header.Status)
	}

	// The corpse is free again for another attempt.
	f.h.Dispatch(clientEvent(events.KindHarvestStartRequest, 1, 10, events.HarvestStart{CorpseUID: 601}))
	if env := a.recv(protocol.EvHarvestStart); env.Header.Status != protocol.StatusSuccess {
		t.Fatalf("restart status = %q, body %s", env.Header.Status, env.Body)
	}
}

func TestHandleHarvestCancelWithoutSession(t *testing.T) {
	f := newHandlerFixture(t)
	a := f.connect(t, 1, 10)
	f.joinChar(1, model.Character{ID: 10})

	f.h.Dispatch(clientEvent(events.KindHarvestCancelled, 1, 10, events.HarvestCancel{}))
	if code := errorCodeOf(t, a.recv(protocol.EvHarvestCancel)); code != protocol.CodeInvalidRequest {
		t.Errorf("errorCode = %q, want %q", code, protocol.CodeInvalidRequest)
	}
}

func TestHandleItemPickupAndInventory(t *testing.T) {
	f := newHandlerFixture(t)
	a := f.connect(t, 1, 10)
	f.joinChar(1, model.Character{ID: 10, Position: model.Position{X: 0, Y: 0}})

	f.svc.Items.Put(&model.ItemTemplate{ID: 401, Name: "Rusty Sword", Slug: "rusty-sword"})
	f.svc.Loot.Reinstate(model.DroppedItem{
		UID: 9001, ItemID: 401, Quantity: 2,
		Position:        model.Position{X: 5, Y: 0},
		DropTime:        time.Now(),
		CanBePickedUp:   true,
		DroppedByMobUID: 601,
	})

	f.h.Dispatch(clientEvent(events.KindGetNearbyItems, 1, 10, events.GetNearbyItems{}))
	ground := decodeAs[nearbyItems](t, a.recv(protocol.EvGetNearbyItems))
	if len(ground.Items) != 1 || ground.Items[0].UID != 9001 {
		t.Fatalf("nearby items = %+v", ground.Items)
	}

	f.h.Dispatch(clientEvent(events.KindItemPickup, 1, 10, events.ItemPickup{ItemUID: 9001}))

	// The inventory change is pushed without being asked for; with the
	// notify callback running inline it lands before the ack.
	update := decodeAs[inventoryList](t, a.recv(protocol.EvInventoryUpdate))
	if update.CharacterID != 10 || len(update.Items) != 1 {
		t.Errorf("inventory push = %+v", update)
	}
	ack := decodeAs[pickupAck](t, a.recv(protocol.EvPickupDroppedItem))
	if ack.ItemID != 401 || ack.Quantity != 2 {
		t.Errorf("pickup ack = %+v", ack)
	}

	if got := f.svc.Loot.Count(); got != 0 {
		t.Errorf("ground drops left = %d, want 0", got)
	}

	f.h.Dispatch(clientEvent(events.KindGetPlayerInventory, 1, 10, nil))
	inv := decodeAs[inventoryList](t, a.recv(protocol.EvGetPlayerInventory))
	if len(inv.Items) != 1 || inv.Items[0].Quantity != 2 {
		t.Errorf("inventory = %+v", inv.Items)
	}
}

func TestHandleItemPickupOutOfRange(t *testing.T) {
	f := newHandlerFixture(t)
	a := f.connect(t, 1, 10)
	f.joinChar(1, model.Character{ID: 10, Position: model.Position{X: 0, Y: 0}})
	f.svc.Items.Put(&model.ItemTemplate{ID: 401, Name: "Rusty Sword"})
	f.svc.Loot.Reinstate(model.DroppedItem{
		UID: 9001, ItemID: 401, Quantity: 1,
		Position:      model.Position{X: 5000, Y: 5000},
		DropTime:      time.Now(),
		CanBePickedUp: true,
	})

	f.h.Dispatch(clientEvent(events.KindItemPickup, 1, 10, events.ItemPickup{ItemUID: 9001}))
	if code := errorCodeOf(t, a.recv(protocol.EvPickupDroppedItem)); code != protocol.CodeOutOfRange {
		t.Errorf("errorCode = %q, want %q", code, protocol.CodeOutOfRange)
	}
	if got := f.svc.Loot.Count(); got != 1 {
		t.Errorf("drop count = %d, want 1 (untouched)", got)
	}
}

func TestHandleGetNearbyCorpses(t *testing.T) {
	f := newHandlerFixture(t)
	a := f.connect(t, 1, 10)
	f.joinChar(1, model.Character{ID: 10, Position: model.Position{X: 0, Y: 0}})

	f.svc.Corpses.RegisterCorpse(model.Corpse{MobUID: 601, MobID: 301, Position: model.Position{X: 50}, DeathTime: time.Now()})
	f.svc.Corpses.RegisterCorpse(model.Corpse{MobUID: 602, MobID: 301, Position: model.Position{X: 9000}, DeathTime: time.Now()})

	f.h.Dispatch(clientEvent(events.KindGetNearbyCorpses, 1, 10, events.GetNearbyCorpses{}))

	list := decodeAs[nearbyCorpses](t, a.recv(protocol.EvGetNearbyCorpses))
	if len(list.Corpses) != 1 || list.Corpses[0].MobUID != 601 {
		t.Errorf("nearby corpses = %+v", list.Corpses)
	}
}

func TestUpstreamDataAppliers(t *testing.T) {
	f := newHandlerFixture(t)

	f.h.Dispatch(events.Event{Kind: events.KindSetChunkData, ReceivedAt: time.Now(),
		Payload: model.Chunk{ID: 3, Name: "Ashen Vale", Size: model.Extent{X: 1000, Y: 1000}}})
	if ck, ok := f.svc.Chunks.Get(3); !ok || ck.Name != "Ashen Vale" {
		t.Errorf("chunk = %+v, ok=%v", ck, ok)
	}

	f.h.Dispatch(events.Event{Kind: events.KindSetAllSpawnZones, ReceivedAt: time.Now(),
		Payload: events.SetAllSpawnZones{Zones: []model.SpawnZone{
			{ZoneID: 5, SpawnMobID: 301, SpawnCount: 2},
			{ZoneID: 6, SpawnMobID: 302, SpawnCount: 1},
		}}})
	if got := f.svc.Zones.Count(); got != 2 {
		t.Errorf("zones = %d, want 2", got)
	}

	f.h.Dispatch(events.Event{Kind: events.KindSetAllMobsList, ReceivedAt: time.Now(),
		Payload: events.SetAllMobsList{Mobs: []model.MobTemplate{{MobID: 301, Name: "Gnoll"}}}})
	if tpl, ok := f.svc.Templates.Get(301); !ok || tpl.Name != "Gnoll" {
		t.Errorf("template = %+v, ok=%v", tpl, ok)
	}

	f.h.Dispatch(events.Event{Kind: events.KindSetMobLootInfo, ReceivedAt: time.Now(),
		Payload: events.SetMobLootInfo{MobID: 301, Loot: []model.LootEntry{{ItemID: 401, DropChance: 0.5}}}})
	if rows := f.svc.Items.LootTable(301); len(rows) != 1 {
		t.Errorf("loot table rows = %d, want 1", len(rows))
	}

	f.h.Dispatch(events.Event{Kind: events.KindSetExpLevelTable, ReceivedAt: time.Now(),
		Payload: events.SetExpLevelTable{Levels: []model.ExpLevel{
			{Level: 1, CumulativeExp: 0}, {Level: 2, CumulativeExp: 100},
		}}})
	if !f.svc.ExpTable.Loaded() {
		t.Error("experience table not loaded")
	}
}

func TestUpstreamCharacterDataKeepsClientBinding(t *testing.T) {
	f := newHandlerFixture(t)
	f.joinChar(1, model.Character{ID: 10, Name: "Asha", Level: 3})

	// A state push from the game server has no transport binding; the
	// resident clientId survives the overwrite.
	f.h.Dispatch(events.Event{Kind: events.KindSetCharacterData, ReceivedAt: time.Now(),
		Payload: model.Character{ID: 10, Name: "Asha", Level: 4}})

	ch, ok := f.svc.Chars.Get(10)
	if !ok {
		t.Fatal("character missing")
	}
	if ch.Level != 4 {
		t.Errorf("level = %d, want 4", ch.Level)
	}
	if ch.ClientID != 1 {
		t.Errorf("clientId = %d, want preserved 1", ch.ClientID)
	}
}

func TestDispatchUnknownKindIsHarmless(t *testing.T) {
	f := newHandlerFixture(t)
	f.h.Dispatch(events.Event{Kind: events.KindUnknown, ReceivedAt: time.Now()})
}
