// Package harvest drives the corpse-harvesting flow: claim, channel,
// loot roll, pickup. Corpse and session state lives in the world-level
// HarvestStore; this engine adds the timing, the loot rolls and the
// client-facing packets.
package harvest

import (
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/mistvale/chunkserver/internal/model"
	"github.com/mistvale/chunkserver/internal/protocol"
	"github.com/mistvale/chunkserver/internal/world"
)

// BroadcastFunc fans an event out to every connected client.
type BroadcastFunc func(eventType string, body any)

// CompleteFunc reports an elapsed harvest timer. Wired to an internal
// queue push so completion handling runs on the event loop, not on the
// scheduler thread.
type CompleteFunc func(characterID, corpseUID int64)

// StartBroadcast is the harvestStartBroadcast body.
type StartBroadcast struct {
	CharacterID int64 `json:"characterId"`
	CorpseUID   int64 `json:"corpseUid"`
	DurationMs  int64 `json:"durationMs"`
}

// CompleteBroadcast is the harvestCompleteBroadcast body. Loot contents
// stay private to the harvester; everyone else just sees the corpse
// being worked.
type CompleteBroadcast struct {
	CharacterID int64 `json:"characterId"`
	CorpseUID   int64 `json:"corpseUid"`
	ItemCount   int   `json:"itemCount"`
}

// CancelBroadcast is the harvestCancelBroadcast body.
type CancelBroadcast struct {
	CharacterID int64  `json:"characterId"`
	CorpseUID   int64  `json:"corpseUid"`
	Reason      string `json:"reason,omitempty"`
}

// CompleteResult answers the harvester with the rolled loot.
type CompleteResult struct {
	CharacterID int64                  `json:"characterId"`
	CorpseUID   int64                  `json:"corpseUid"`
	Loot        []model.InventoryEntry `json:"loot"`
}

// PickupResult answers a corpse loot pickup.
type PickupResult struct {
	Success       bool                   `json:"success"`
	PickedUpItems []model.InventoryEntry `json:"pickedUpItems"`
	RemainingLoot []model.InventoryEntry `json:"remainingLoot"`
}

// Engine orchestrates harvests. All corpse/session mutations go through
// the store, which owns the exclusivity invariants.
type Engine struct {
	store     *world.HarvestStore
	items     *world.ItemRegistry
	inventory *world.InventoryStore
	chars     *world.CharacterRegistry
	mobs      *world.MobInstanceRegistry

	broadcastFunc BroadcastFunc
	completeFunc  CompleteFunc
}

// NewEngine creates a harvest engine over the world state.
func NewEngine(
	store *world.HarvestStore,
	items *world.ItemRegistry,
	inventory *world.InventoryStore,
	chars *world.CharacterRegistry,
	mobs *world.MobInstanceRegistry,
) *Engine {
	return &Engine{
		store:     store,
		items:     items,
		inventory: inventory,
		chars:     chars,
		mobs:      mobs,
	}
}

// SetBroadcastFunc injects the broadcast sink.
func (e *Engine) SetBroadcastFunc(fn BroadcastFunc) {
	e.broadcastFunc = fn
}

// SetCompleteFunc injects the harvest-complete event sink.
func (e *Engine) SetCompleteFunc(fn CompleteFunc) {
	e.completeFunc = fn
}

// Start claims the corpse and begins the channel. The character's
// registry position is authoritative for the range check.
func (e *Engine) Start(characterID, corpseUID int64) (model.HarvestSession, string) {
	c, ok := e.chars.Get(characterID)
	if !ok {
		return model.HarvestSession{}, protocol.CodeCharacterNotFound
	}

	sess, code := e.store.BeginHarvest(characterID, corpseUID, c.Position, time.Now())
	if code != "" {
		return model.HarvestSession{}, code
	}

	e.broadcast(protocol.EvHarvestStartBroadcast, StartBroadcast{
		CharacterID: characterID,
		CorpseUID:   corpseUID,
		DurationMs:  sess.Duration.Milliseconds(),
	})
	slog.Debug("harvest started", "characterId", characterID, "corpseUid", corpseUID)
	return sess, ""
}

// Tick flips elapsed sessions to completing and reports each through
// the complete sink. Progress bars are client-local; the server only
// signals the end.
func (e *Engine) Tick(now time.Time) int {
	due := e.store.CompleteDue(now)
	for _, sess := range due {
		if e.completeFunc != nil {
			e.completeFunc(sess.CharacterID, sess.CorpseUID)
		}
	}
	return len(due)
}

// Complete rolls the harvest loot and finalizes the corpse. Runs as the
// consumer of the harvest-complete event. The loot list is answered to
// the harvester only; nothing enters the inventory until pickup.
func (e *Engine) Complete(characterID, corpseUID int64) (*CompleteResult, string) {
	sess, ok := e.store.Session(characterID)
	if !ok || sess.CorpseUID != corpseUID {
		return nil, protocol.CodeHarvestFailed
	}
	if sess.IsActive {
		// Timer has not elapsed; completion events only come from Tick.
		return nil, protocol.CodeHarvestFailed
	}

	corpse, ok := e.store.Corpse(corpseUID)
	if !ok {
		return nil, protocol.CodeCorpseNotFound
	}
	if corpse.HasBeenHarvested {
		return nil, protocol.CodeCorpseNotAvailable
	}

	loot := e.rollLoot(corpse.MobID)
	if !e.store.FinishHarvest(characterID, corpseUID, loot) {
		return nil, protocol.CodeCorpseNotFound
	}

	e.broadcast(protocol.EvHarvestCompleteBroadcast, CompleteBroadcast{
		CharacterID: characterID,
		CorpseUID:   corpseUID,
		ItemCount:   len(loot),
	})
	slog.Info("harvest completed",
		"characterId", characterID,
		"corpseUid", corpseUID,
		"items", len(loot))
	return &CompleteResult{CharacterID: characterID, CorpseUID: corpseUID, Loot: loot}, ""
}

// Cancel aborts the character's harvest, releasing the corpse claim.
func (e *Engine) Cancel(characterID int64, reason string) (model.HarvestSession, bool) {
	sess, ok := e.store.CancelHarvest(characterID)
	if !ok {
		return model.HarvestSession{}, false
	}
	e.broadcast(protocol.EvHarvestCancelBroadcast, CancelBroadcast{
		CharacterID: characterID,
		CorpseUID:   sess.CorpseUID,
		Reason:      reason,
	})
	slog.Debug("harvest cancelled",
		"characterId", characterID,
		"corpseUid", sess.CorpseUID,
		"reason", reason)
	return sess, true
}

// CheckMovement cancels the harvest when the character strays past the
// session's movement allowance. Called from the move handler.
func (e *Engine) CheckMovement(characterID int64, pos model.Position) bool {
	sess, ok := e.store.Session(characterID)
	if !ok || !sess.IsActive {
		return false
	}
	if pos.DistanceXY(sess.StartPosition) <= sess.MaxMoveDistance {
		return false
	}
	e.Cancel(characterID, string(model.InterruptMovement))
	return true
}

// InspectLoot lists a harvested corpse's remaining loot.
func (e *Engine) InspectLoot(corpseUID int64) ([]model.InventoryEntry, string) {
	corpse, ok := e.store.Corpse(corpseUID)
	if !ok {
		return nil, protocol.CodeCorpseNotFound
	}
	if !corpse.HasBeenHarvested {
		return nil, protocol.CodeCorpseNotHarvested
	}
	return corpse.AvailableLoot, ""
}

// PickupLoot moves requested corpse loot into the inventory. The
// echoPlayerID must match the requesting character; a mismatch is a
// spoofed request, not a user error.
func (e *Engine) PickupLoot(characterID, echoPlayerID, corpseUID int64, requested []model.InventoryEntry) (*PickupResult, string) {
	if echoPlayerID != characterID {
		slog.Warn("corpse loot spoof attempt",
			"characterId", characterID,
			"claimedPlayerId", echoPlayerID,
			"corpseUid", corpseUID)
		return nil, protocol.CodeSecurityViolation
	}

	c, ok := e.chars.Get(characterID)
	if !ok {
		return nil, protocol.CodeCharacterNotFound
	}
	corpse, ok := e.store.Corpse(corpseUID)
	if !ok {
		return nil, protocol.CodeCorpseNotFound
	}
	if !corpse.HasBeenHarvested {
		return nil, protocol.CodeCorpseNotHarvested
	}
	if corpse.HarvestedBy != characterID {
		return nil, protocol.CodeNotYourHarvest
	}
	if c.Position.DistanceXY(corpse.Position) > corpse.InteractionRadius {
		return nil, protocol.CodeOutOfRange
	}

	var picked []model.InventoryEntry
	for _, req := range requested {
		take := clampToAvailable(corpse.AvailableLoot, req)
		if take <= 0 {
			continue
		}
		if err := e.inventory.Add(characterID, req.ItemID, take); err != nil {
			slog.Error("corpse loot add failed",
				"characterId", characterID,
				"itemId", req.ItemID,
				"error", err)
			continue
		}
		e.store.DebitLoot(corpseUID, req.ItemID, take)
		picked = append(picked, model.InventoryEntry{ItemID: req.ItemID, Quantity: take})
	}

	remaining := []model.InventoryEntry{}
	if after, ok := e.store.Corpse(corpseUID); ok {
		remaining = after.AvailableLoot
	}
	return &PickupResult{Success: true, PickedUpItems: picked, RemainingLoot: remaining}, ""
}

// CleanupCorpses sweeps out corpses past maxAge and retires their dead
// mob instances from the registry.
func (e *Engine) CleanupCorpses(maxAge time.Duration) int {
	removed := e.store.CleanupOld(maxAge)
	for _, uid := range removed {
		e.mobs.Unregister(uid)
	}
	if len(removed) > 0 {
		slog.Debug("corpses cleaned up", "count", len(removed))
	}
	return len(removed)
}

// rollLoot rolls the harvest-only rows of the mob's loot table.
func (e *Engine) rollLoot(mobID int64) []model.InventoryEntry {
	var loot []model.InventoryEntry
	for _, row := range e.items.HarvestLoot(mobID) {
		if rand.Float64() >= row.DropChance {
			continue
		}
		loot = append(loot, model.InventoryEntry{ItemID: row.ItemID, Quantity: 1})
	}
	return loot
}

func (e *Engine) broadcast(eventType string, body any) {
	if e.broadcastFunc != nil {
		e.broadcastFunc(eventType, body)
	}
}

func clampToAvailable(available []model.InventoryEntry, req model.InventoryEntry) int {
	if req.Quantity <= 0 {
		return 0
	}
	for _, entry := range available {
		if entry.ItemID != req.ItemID {
			continue
		}
		if req.Quantity > entry.Quantity {
			return entry.Quantity
		}
		return req.Quantity
	}
	return 0
}
