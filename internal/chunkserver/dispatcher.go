package chunkserver

import (
	"encoding/json"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/mistvale/chunkserver/internal/events"
	"github.com/mistvale/chunkserver/internal/model"
	"github.com/mistvale/chunkserver/internal/protocol"
	"github.com/mistvale/chunkserver/internal/world"
)

// clientEventKinds maps a client frame's eventType to its queue
// discriminant. Frames with an unlisted type are dropped, not errored.
var clientEventKinds = map[string]events.Kind{
	protocol.EvJoinGameClient:         events.KindJoinClient,
	protocol.EvJoinGameCharacter:      events.KindJoinCharacter,
	protocol.EvMoveCharacter:          events.KindMoveCharacter,
	protocol.EvPingClient:             events.KindPingClient,
	protocol.EvDisconnectClient:       events.KindDisconnectClient,
	protocol.EvSpawnMobs:              events.KindSpawnMobsInZone,
	protocol.EvGetConnectedCharacters: events.KindGetConnectedClients,
	protocol.EvGetSpawnZones:          events.KindGetSpawnZones,
	protocol.EvPlayerAttack:           events.KindPlayerAttack,
	protocol.EvInterruptCombatAction:  events.KindInterruptCombatAction,
	protocol.EvHarvestStart:           events.KindHarvestStartRequest,
	protocol.EvHarvestCancel:          events.KindHarvestCancelled,
	protocol.EvGetNearbyCorpses:       events.KindGetNearbyCorpses,
	protocol.EvCorpseLootPickup:       events.KindCorpseLootPickup,
	protocol.EvCorpseLootInspect:      events.KindCorpseLootInspect,
	protocol.EvPickupDroppedItem:      events.KindItemPickup,
	protocol.EvGetNearbyItems:         events.KindGetNearbyItems,
	protocol.EvGetPlayerInventory:     events.KindGetPlayerInventory,
}

// Dispatcher converts raw client frames into typed events and feeds the
// ingress queues. It owns the one place a socket and an event coexist:
// payloads leave here carrying ids only, never the socket itself.
type Dispatcher struct {
	clients *world.ClientRegistry
	ingress *events.Queue
	pings   *events.Queue
	sender  *Sender

	unknownLog  *rate.Limiter
	pingDropLog *rate.Limiter
}

// NewDispatcher wires the dispatcher to its queues.
func NewDispatcher(clients *world.ClientRegistry, ingress, pings *events.Queue, sender *Sender) *Dispatcher {
	return &Dispatcher{
		clients:     clients,
		ingress:     ingress,
		pings:       pings,
		sender:      sender,
		unknownLog:  rate.NewLimiter(rate.Every(5*time.Second), 1),
		pingDropLog: rate.NewLimiter(rate.Every(5*time.Second), 1),
	}
}

// FastPing probes a frame's header only and, when it is a ping from an
// identified client, pushes it straight onto the ping queue. Reports
// whether the frame was consumed. Pings from sockets with no registered
// client are dropped with rate-limited logging.
func (d *Dispatcher) FastPing(sock *world.Socket, frame []byte, recvAt time.Time) bool {
	h, err := protocol.ParseHeader(frame)
	if err != nil || h.EventType != protocol.EvPingClient {
		return false
	}

	clientID := h.ClientID
	if clientID == 0 {
		clientID = d.clients.ClientIDBySocket(sock)
	}
	c, ok := d.clients.Get(clientID)
	if !ok {
		if d.pingDropLog.Allow() {
			slog.Warn("dropping ping from unidentified client", "remote", sock.RemoteAddr())
		}
		return true
	}

	d.pings.Push(events.Event{
		Kind:         events.KindPingClient,
		ClientID:     c.ID,
		CharacterID:  c.CharacterID,
		RequestID:    h.RequestID,
		Hash:         h.Hash,
		ClientSendMs: h.ClientSendMs,
		ReceivedAt:   recvAt,
	})
	return true
}

// Decode parses one non-ping frame into a typed event. A false result
// means the frame was consumed without producing an event: malformed,
// unknown type, undecodable body, or a socket that died in the meantime.
// joinGameClient additionally registers the client here, the only point
// where the socket is still in scope.
func (d *Dispatcher) Decode(sock *world.Socket, frame []byte, recvAt time.Time) (events.Event, bool) {
	env, err := protocol.ParseEnvelope(frame)
	if err != nil {
		slog.Warn("malformed frame skipped", "remote", sock.RemoteAddr(), "error", err)
		return events.Event{}, false
	}

	kind, known := clientEventKinds[env.Header.EventType]
	if !known {
		if d.unknownLog.Allow() {
			slog.Warn("unknown event type dropped", "eventType", env.Header.EventType)
		}
		return events.Event{}, false
	}

	clientID := env.Header.ClientID
	if clientID == 0 {
		clientID = d.clients.ClientIDBySocket(sock)
	}

	if kind == events.KindJoinClient {
		if clientID == 0 {
			slog.Warn("join without clientId dropped", "remote", sock.RemoteAddr())
			return events.Event{}, false
		}
		d.registerClient(clientID, env.Header.Hash, sock, env.Body)
	}

	ev := events.Event{
		Kind:         kind,
		ClientID:     clientID,
		RequestID:    env.Header.RequestID,
		Hash:         env.Header.Hash,
		ClientSendMs: env.Header.ClientSendMs,
		ReceivedAt:   recvAt,
	}
	if c, ok := d.clients.Get(clientID); ok {
		ev.CharacterID = c.CharacterID
	}

	payload, perr := decodePayload(kind, env.Body)
	if perr != nil {
		slog.Warn("bad event body",
			"eventType", env.Header.EventType,
			"clientId", clientID,
			"error", perr)
		d.sender.RespondError(clientID, env.Header.EventType, metaFromEvent(ev),
			protocol.CodeInvalidRequest, "malformed request body")
		return events.Event{}, false
	}
	ev.Payload = payload

	// A dead socket means nobody is waiting for the effect, except for
	// the disconnect itself whose cleanup must still run.
	if !sock.IsOpen() && kind != events.KindDisconnectClient {
		return events.Event{}, false
	}
	return ev, true
}

// EnqueueBatch pushes one read cycle's worth of decoded events.
func (d *Dispatcher) EnqueueBatch(batch []events.Event) {
	d.ingress.PushBatch(batch)
}

// EmitDisconnect queues the single disconnect event for a torn-down
// session. Always enqueued regardless of socket state.
func (d *Dispatcher) EmitDisconnect(c world.Client) {
	d.ingress.Push(events.Event{
		Kind:        events.KindDisconnectClient,
		ClientID:    c.ID,
		CharacterID: c.CharacterID,
		ReceivedAt:  time.Now(),
	})
}

// registerClient creates or rebinds the client entry for an identifying
// join frame. A characterId in the body wins over the stored binding;
// absent both, the binding stays 0 until joinGameCharacter.
func (d *Dispatcher) registerClient(clientID int64, hash string, sock *world.Socket, body json.RawMessage) {
	characterID := int64(0)
	if prev, ok := d.clients.Get(clientID); ok {
		characterID = prev.CharacterID
	}
	if len(body) > 0 {
		var join events.JoinClient
		if err := json.Unmarshal(body, &join); err == nil && join.CharacterID != 0 {
			characterID = join.CharacterID
		}
	}
	d.clients.Register(world.Client{
		ID:          clientID,
		Hash:        hash,
		CharacterID: characterID,
		Sock:        sock,
	})
}

// decodePayload unmarshals the frame body into the payload type for the
// kind. Kinds without a body map to a nil payload.
func decodePayload(kind events.Kind, body json.RawMessage) (any, error) {
	switch kind {
	case events.KindJoinClient:
		return unmarshalBody[events.JoinClient](body)
	case events.KindJoinCharacter:
		return unmarshalBody[model.Character](body)
	case events.KindMoveCharacter:
		return unmarshalBody[events.MoveCharacter](body)
	case events.KindSpawnMobsInZone:
		return unmarshalBody[events.SpawnMobsInZone](body)
	case events.KindPlayerAttack:
		return unmarshalBody[events.PlayerAttack](body)
	case events.KindInterruptCombatAction:
		return unmarshalBody[events.InterruptCombatAction](body)
	case events.KindHarvestStartRequest:
		return unmarshalBody[events.HarvestStart](body)
	case events.KindHarvestCancelled:
		return unmarshalBody[events.HarvestCancel](body)
	case events.KindGetNearbyCorpses:
		return unmarshalBody[events.GetNearbyCorpses](body)
	case events.KindCorpseLootPickup:
		return unmarshalBody[events.CorpseLootPickup](body)
	case events.KindCorpseLootInspect:
		return unmarshalBody[events.CorpseLootInspect](body)
	case events.KindItemPickup:
		return unmarshalBody[events.ItemPickup](body)
	case events.KindGetNearbyItems:
		return unmarshalBody[events.GetNearbyItems](body)
	}
	return nil, nil
}

func unmarshalBody[T any](body json.RawMessage) (T, error) {
	var v T
	if len(body) == 0 {
		return v, nil
	}
	err := json.Unmarshal(body, &v)
	return v, err
}

func metaFromEvent(ev events.Event) protocol.Meta {
	return protocol.Meta{
		ClientSendMs: ev.ClientSendMs,
		RequestID:    ev.RequestID,
		ServerRecvMs: ev.ReceivedAt.UnixMilli(),
	}
}
