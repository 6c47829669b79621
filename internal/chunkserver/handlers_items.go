package chunkserver

import (
	"log/slog"

	"github.com/mistvale/chunkserver/internal/events"
	"github.com/mistvale/chunkserver/internal/model"
	"github.com/mistvale/chunkserver/internal/protocol"
)

type pickupAck struct {
	ItemUID  int64 `json:"itemUid"`
	ItemID   int64 `json:"itemId"`
	Quantity int   `json:"quantity"`
}

func (h *Handlers) handleItemPickup(ev events.Event) {
	p, ok := ev.Payload.(events.ItemPickup)
	if !ok || p.ItemUID == 0 {
		h.fail(ev, protocol.EvPickupDroppedItem, protocol.CodeInvalidRequest, "missing item uid")
		return
	}
	ch, ok := h.characterFor(ev, protocol.EvPickupDroppedItem)
	if !ok {
		return
	}

	item, code := h.svc.Loot.Take(p.ItemUID, ch.Position)
	if code != "" {
		h.fail(ev, protocol.EvPickupDroppedItem, code, messageFor(code))
		return
	}
	if err := h.svc.Inventory.Add(ev.CharacterID, item.ItemID, item.Quantity); err != nil {
		// Put the drop back so the pickup can be retried.
		h.svc.Loot.Reinstate(item)
		slog.Warn("pickup rolled back",
			"characterId", ev.CharacterID,
			"itemUid", item.UID,
			"error", err)
		h.fail(ev, protocol.EvPickupDroppedItem, protocol.CodePickupFailed, "inventory rejected the item")
		return
	}
	h.respond(ev, protocol.EvPickupDroppedItem, pickupAck{
		ItemUID:  item.UID,
		ItemID:   item.ItemID,
		Quantity: item.Quantity,
	})
}

type nearbyItems struct {
	Items []model.DroppedItem `json:"items"`
}

func (h *Handlers) handleGetNearbyItems(ev events.Event) {
	p, _ := ev.Payload.(events.GetNearbyItems)
	ch, ok := h.characterFor(ev, protocol.EvGetNearbyItems)
	if !ok {
		return
	}

	radius := p.Radius
	if radius <= 0 {
		radius = defaultNearbyRadius
	}
	h.respond(ev, protocol.EvGetNearbyItems, nearbyItems{
		Items: h.svc.Loot.Nearby(ch.Position, radius),
	})
}

type inventoryList struct {
	CharacterID int64                  `json:"characterId"`
	Items       []model.InventoryEntry `json:"items"`
}

func (h *Handlers) handleGetPlayerInventory(ev events.Event) {
	if ev.CharacterID == 0 {
		h.fail(ev, protocol.EvGetPlayerInventory, protocol.CodeCharacterNotFound, "no character joined")
		return
	}
	h.respond(ev, protocol.EvGetPlayerInventory, inventoryList{
		CharacterID: ev.CharacterID,
		Items:       h.svc.Inventory.List(ev.CharacterID),
	})
}

// handleItemDrop announces freshly generated ground loot. Emitted by
// the loot store when a mob dies.
func (h *Handlers) handleItemDrop(ev events.Event) {
	p, ok := ev.Payload.(events.ItemDrop)
	if !ok || len(p.Items) == 0 {
		return
	}
	h.sender.Broadcast(protocol.EvItemDrop, nearbyItems{Items: p.Items})
}

// handleInventoryUpdate mirrors an inventory change to its owner.
func (h *Handlers) handleInventoryUpdate(ev events.Event) {
	p, ok := ev.Payload.(events.InventoryUpdate)
	if !ok {
		return
	}
	if err := h.sender.PushToCharacter(p.CharacterID, protocol.EvInventoryUpdate, inventoryList{
		CharacterID: p.CharacterID,
		Items:       p.Items,
	}); err != nil {
		slog.Debug("inventory update push failed", "characterId", p.CharacterID, "error", err)
	}
}
