package chunkserver

import (
	"fmt"
	"log/slog"

	"github.com/mistvale/chunkserver/internal/protocol"
	"github.com/mistvale/chunkserver/internal/world"
)

// Sender owns every write path back to game clients. Handlers never
// cache socket references: each send resolves the socket from the
// client registry at write time, so a disconnect between dispatch and
// send degrades into a logged write failure instead of a use-after-close.
type Sender struct {
	clients *world.ClientRegistry
	chars   *world.CharacterRegistry
}

// NewSender creates a sender over the connected-client state.
func NewSender(clients *world.ClientRegistry, chars *world.CharacterRegistry) *Sender {
	return &Sender{clients: clients, chars: chars}
}

// Respond answers a specific request with a success frame, echoing the
// request's timing fields.
func (s *Sender) Respond(clientID int64, eventType string, meta protocol.Meta, body any) error {
	frame, err := protocol.MarshalResponse(eventType, protocol.StatusSuccess, meta, body)
	if err != nil {
		return err
	}
	return s.write(clientID, frame)
}

// RespondError answers a request with a validation failure frame.
func (s *Sender) RespondError(clientID int64, eventType string, meta protocol.Meta, code, message string) error {
	frame, err := protocol.MarshalResponse(eventType, protocol.StatusError, meta, protocol.ErrorBody{
		ErrorCode: code,
		Message:   message,
	})
	if err != nil {
		return err
	}
	return s.write(clientID, frame)
}

// Push sends a server-initiated frame to one client.
func (s *Sender) Push(clientID int64, eventType string, body any) error {
	frame, err := protocol.MarshalBroadcast(eventType, body)
	if err != nil {
		return err
	}
	return s.write(clientID, frame)
}

// PushToCharacter sends a server-initiated frame to the client
// controlling the given character.
func (s *Sender) PushToCharacter(characterID int64, eventType string, body any) error {
	c, ok := s.chars.Get(characterID)
	if !ok {
		return fmt.Errorf("character %d not resident", characterID)
	}
	if c.ClientID == 0 {
		return fmt.Errorf("character %d has no client", characterID)
	}
	return s.Push(c.ClientID, eventType, body)
}

// Broadcast sends one frame to every connected client and returns how
// many writes succeeded. Per-client failures are logged and skipped.
func (s *Sender) Broadcast(eventType string, body any) int {
	return s.broadcast(eventType, 0, body)
}

// BroadcastExcept is Broadcast minus one client, for relaying a
// client's own action to everyone else.
func (s *Sender) BroadcastExcept(exceptClientID int64, eventType string, body any) int {
	return s.broadcast(eventType, exceptClientID, body)
}

func (s *Sender) broadcast(eventType string, exceptClientID int64, body any) int {
	frame, err := protocol.MarshalBroadcast(eventType, body)
	if err != nil {
		slog.Error("broadcast marshal failed", "eventType", eventType, "error", err)
		return 0
	}

	// Snapshot first: socket writes can block and must not run under
	// the registry lock.
	sent := 0
	for _, c := range s.clients.All() {
		if c.ID == exceptClientID || c.Sock == nil || !c.Sock.IsOpen() {
			continue
		}
		if err := c.Sock.Write(frame); err != nil {
			slog.Warn("failed to broadcast to client",
				"eventType", eventType,
				"clientId", c.ID,
				"error", err)
			continue
		}
		sent++
	}
	return sent
}

func (s *Sender) write(clientID int64, frame []byte) error {
	c, ok := s.clients.Get(clientID)
	if !ok {
		return fmt.Errorf("client %d not connected", clientID)
	}
	if c.Sock == nil || !c.Sock.IsOpen() {
		return world.ErrSocketClosed
	}
	return c.Sock.Write(frame)
}
