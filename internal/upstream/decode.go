package upstream

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/mistvale/chunkserver/internal/events"
	"github.com/mistvale/chunkserver/internal/model"
	"github.com/mistvale/chunkserver/internal/protocol"
)

// linkEventKinds maps a game-server frame's eventType to its queue kind.
var linkEventKinds = map[string]events.Kind{
	protocol.EvSetChunkData:           events.KindSetChunkData,
	protocol.EvSetCharacterData:       events.KindSetCharacterData,
	protocol.EvSetCharacterAttributes: events.KindSetCharacterAttributes,
	protocol.EvSetAllSpawnZones:       events.KindSetAllSpawnZones,
	protocol.EvSetAllMobsList:         events.KindSetAllMobsList,
	protocol.EvSetAllMobsAttributes:   events.KindSetAllMobsAttributes,
	protocol.EvSetAllMobsSkills:       events.KindSetAllMobsSkills,
	protocol.EvSetAllItemsList:        events.KindSetAllItemsList,
	protocol.EvSetMobLootInfo:         events.KindSetMobLootInfo,
	protocol.EvSetExpLevelTable:       events.KindSetExpLevelTable,
}

// decodeFrame turns one game-server line into an event. Malformed or
// unknown frames are logged and skipped; the link stays up.
func (l *Link) decodeFrame(frame []byte, recvAt time.Time) (events.Event, bool) {
	env, err := protocol.ParseEnvelope(frame)
	if err != nil {
		slog.Warn("malformed game server frame skipped", "error", err)
		return events.Event{}, false
	}

	kind, known := linkEventKinds[env.Header.EventType]
	if !known {
		if l.unknownLog.Allow() {
			slog.Warn("unknown game server event dropped", "eventType", env.Header.EventType)
		}
		return events.Event{}, false
	}

	payload, err := decodeLinkPayload(kind, env.Body)
	if err != nil {
		slog.Warn("bad game server body skipped",
			"eventType", env.Header.EventType,
			"error", err)
		return events.Event{}, false
	}

	return events.Event{
		Kind:         kind,
		RequestID:    env.Header.RequestID,
		ClientSendMs: env.Header.ClientSendMs,
		ReceivedAt:   recvAt,
		Payload:      payload,
	}, true
}

// decodeLinkPayload unmarshals a replication body for its kind. Chunk
// and character data arrive as bare model objects, the rest as batch
// wrappers.
func decodeLinkPayload(kind events.Kind, body json.RawMessage) (any, error) {
	switch kind {
	case events.KindSetChunkData:
		return unmarshalBody[model.Chunk](body)
	case events.KindSetCharacterData:
		return unmarshalBody[model.Character](body)
	case events.KindSetCharacterAttributes:
		return unmarshalBody[events.SetCharacterAttributes](body)
	case events.KindSetAllSpawnZones:
		return unmarshalBody[events.SetAllSpawnZones](body)
	case events.KindSetAllMobsList:
		return unmarshalBody[events.SetAllMobsList](body)
	case events.KindSetAllMobsAttributes:
		return unmarshalBody[events.SetAllMobsAttributes](body)
	case events.KindSetAllMobsSkills:
		return unmarshalBody[events.SetAllMobsSkills](body)
	case events.KindSetAllItemsList:
		return unmarshalBody[events.SetAllItemsList](body)
	case events.KindSetMobLootInfo:
		return unmarshalBody[events.SetMobLootInfo](body)
	case events.KindSetExpLevelTable:
		return unmarshalBody[events.SetExpLevelTable](body)
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
