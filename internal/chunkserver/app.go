package chunkserver

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mistvale/chunkserver/internal/ai"
	"github.com/mistvale/chunkserver/internal/config"
	"github.com/mistvale/chunkserver/internal/events"
	"github.com/mistvale/chunkserver/internal/game/combat"
	"github.com/mistvale/chunkserver/internal/game/harvest"
	"github.com/mistvale/chunkserver/internal/game/skill"
	"github.com/mistvale/chunkserver/internal/model"
	"github.com/mistvale/chunkserver/internal/protocol"
	"github.com/mistvale/chunkserver/internal/scheduler"
	"github.com/mistvale/chunkserver/internal/spawn"
	"github.com/mistvale/chunkserver/internal/upstream"
	"github.com/mistvale/chunkserver/internal/world"
)

// App owns every component of a running chunk server and the wiring
// between them: registries, engines, queues, the listener, the
// scheduler and the game-server link.
type App struct {
	cfg config.Config

	svc      *Services
	sender   *Sender
	handlers *Handlers
	server   *Server

	ingress   *events.Queue
	upstreamQ *events.Queue
	pings     *events.Queue
	pool      *events.Pool
	sched     *scheduler.Scheduler
	link      *upstream.Link
}

// NewApp constructs the full service graph in dependency order and
// wires the cross-engine callbacks. Nothing runs until Run.
func NewApp(cfg config.Config) *App {
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
	}

	ingress := events.NewQueue("client", cfg.Queues.Capacity)
	upstreamQ := events.NewQueue("upstream", cfg.Queues.Capacity)
	pings := events.NewQueue("ping", cfg.Queues.Capacity)
	pool := events.NewPool(cfg.Queues.Workers, cfg.Queues.WorkerQueue)

	sender := NewSender(clients, chars)
	handlers := NewHandlers(svc, sender)
	disp := NewDispatcher(clients, ingress, pings, sender)

	a := &App{
		cfg:       cfg,
		svc:       svc,
		sender:    sender,
		handlers:  handlers,
		server:    NewServer(cfg.ChunkServer, clients, disp),
		ingress:   ingress,
		upstreamQ: upstreamQ,
		pings:     pings,
		pool:      pool,
		sched:     scheduler.New(pool),
	}

	if cfg.GameServer.Host != "" {
		a.link = upstream.NewLink(cfg, upstreamQ)
		svc.Upstream = a.link
	}

	a.wireCallbacks()
	a.registerTasks()
	return a
}

// wireCallbacks connects the engines to each other and to the outbound
// paths. Simulation side effects become queued events rather than
// direct socket writes so they serialize with client traffic.
func (a *App) wireCallbacks() {
	broadcast := func(eventType string, body any) {
		a.sender.Broadcast(eventType, body)
	}

	a.svc.Combat.SetMobAttackedFunc(a.svc.AI.HandleMobAttacked)
	a.svc.Combat.SetMobDeadFunc(a.svc.AI.Forget)
	a.svc.Combat.SetInterruptFunc(func(casterID int64, reason model.InterruptReason) {
		a.svc.Skills.Interrupt(casterID, reason)
	})
	a.svc.AI.SetAttackFunc(a.svc.Skills.ExecuteMobAttack)

	a.svc.Skills.SetBroadcastFunc(broadcast)
	a.svc.Experience.SetBroadcastFunc(broadcast)
	a.svc.Harvest.SetBroadcastFunc(broadcast)

	a.svc.Harvest.SetCompleteFunc(func(characterID, corpseUID int64) {
		a.ingress.Push(events.Event{
			Kind:        events.KindHarvestComplete,
			CharacterID: characterID,
			ReceivedAt:  time.Now(),
			Payload:     events.HarvestComplete{CharacterID: characterID, CorpseUID: corpseUID},
		})
	})
	a.svc.Loot.SetDropFunc(func(items []model.DroppedItem) {
		a.ingress.Push(events.Event{
			Kind:       events.KindItemDrop,
			ReceivedAt: time.Now(),
			Payload:    events.ItemDrop{Items: items},
		})
	})
	a.svc.Inventory.SetNotifyFunc(func(characterID int64, items []model.InventoryEntry) {
		a.ingress.Push(events.Event{
			Kind:        events.KindInventoryUpdate,
			CharacterID: characterID,
			ReceivedAt:  time.Now(),
			Payload:     events.InventoryUpdate{CharacterID: characterID, Items: items},
		})
	})
}

type mobsMoved struct {
	Moves []ai.MobMove `json:"moves"`
}

// registerTasks installs the periodic simulation work.
func (a *App) registerTasks() {
	sim := a.cfg.Simulation

	a.sched.Register("mob_spawn", secondsOr(sim.SpawnIntervalSec, 15), func() {
		spawned := a.svc.Spawner.SpawnAll()
		if len(spawned) == 0 {
			return
		}
		for _, inst := range spawned {
			a.svc.AI.Track(inst)
		}
		a.sender.Broadcast(protocol.EvMobsSpawned, mobsSpawned{Mobs: spawned})
	})

	a.sched.Register("mob_move", secondsOr(sim.MoveIntervalSec, 3), func() {
		moves := a.svc.AI.TickAll()
		if len(moves) == 0 {
			return
		}
		a.sender.Broadcast(protocol.EvMobsMoved, mobsMoved{Moves: moves})
	})

	a.sched.Register("action_tick", millisOr(sim.ActionTickMs, 200), func() {
		now := time.Now()
		a.svc.Skills.UpdateOngoingActions(now)
		a.svc.Skills.SweepCooldowns(now)
	})

	a.sched.Register("harvest_tick", millisOr(sim.HarvestTickMs, 500), func() {
		a.svc.Harvest.Tick(time.Now())
	})

	a.sched.Register("cleanup", secondsOr(sim.CleanupIntervalSec, 60), a.cleanupSweep)
}

// cleanupSweep retires decayed corpses and ground drops and compacts
// the queues. Doubles as the periodic stats report.
func (a *App) cleanupSweep() {
	corpses := a.svc.Harvest.CleanupCorpses(world.DefaultCorpseMaxAge)
	drops := a.svc.Loot.CleanupOld(world.DefaultDropDecayAge)
	if corpses > 0 || drops > 0 {
		slog.Info("decay sweep", "corpses", corpses, "drops", drops)
	}

	a.ingress.ForceCleanup()
	a.upstreamQ.ForceCleanup()
	a.pings.ForceCleanup()

	slog.Debug("world stats",
		"sessions", a.server.SessionCount(),
		"characters", a.svc.Chars.Count(),
		"mobs", a.svc.Mobs.Count(),
		"zones", a.svc.Zones.Count(),
		"templates", a.svc.Templates.Count(),
		"items", a.svc.Items.Count(),
		"drops", a.svc.Loot.Count(),
		"pool_rejected", a.pool.Rejected())
}

// Run starts every loop and blocks until ctx ends or a component
// fails. A clean signal-driven shutdown returns nil.
func (a *App) Run(ctx context.Context) error {
	slog.Info("chunk server starting",
		"chunkId", a.cfg.ChunkServer.ID,
		"address", a.cfg.ChunkServer.Addr(),
		"gameServer", a.cfg.GameServer.Addr(),
		"maxClients", a.cfg.ChunkServer.MaxClients)

	g, ctx := errgroup.WithContext(ctx)
	a.pool.Start(ctx)

	g.Go(func() error { return a.server.Run(ctx) })
	g.Go(func() error { DrainLoop(ctx, a.ingress, a.pool, a.handlers); return nil })
	g.Go(func() error { DrainLoop(ctx, a.upstreamQ, a.pool, a.handlers); return nil })
	g.Go(func() error { PingLoop(ctx, a.pings, a.handlers); return nil })
	g.Go(func() error { return a.sched.Run(ctx) })
	if a.link != nil {
		g.Go(func() error { return a.link.Run(ctx) })
	} else {
		slog.Warn("running without game server link, no game_server host configured")
	}

	err := g.Wait()
	a.pool.Wait()
	slog.Info("chunk server stopped")
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func secondsOr(v, def int) time.Duration {
	if v <= 0 {
		v = def
	}
	return time.Duration(v) * time.Second
}

func millisOr(v, def int) time.Duration {
	if v <= 0 {
		v = def
	}
	return time.Duration(v) * time.Millisecond
}
