package upstream

import (
	"bytes"
	"testing"
	"time"

	"github.com/mistvale/chunkserver/internal/config"
	"github.com/mistvale/chunkserver/internal/events"
	"github.com/mistvale/chunkserver/internal/model"
	"github.com/mistvale/chunkserver/internal/protocol"
)

func decodeTestLink(t *testing.T) *Link {
	t.Helper()
	q := events.NewQueue("upstream", 8)
	t.Cleanup(q.Close)
	return NewLink(config.Default(), q)
}

func gameFrame(t *testing.T, eventType string, body any) []byte {
	t.Helper()
	frame, err := protocol.MarshalRequest(eventType, 0, "", body)
	if err != nil {
		t.Fatalf("marshal frame: %v", err)
	}
	return bytes.TrimSpace(frame)
}

func TestDecodeFrameReplicationKinds(t *testing.T) {
	l := decodeTestLink(t)
	now := time.Now()

	ev, ok := l.decodeFrame(gameFrame(t, protocol.EvSetChunkData, model.Chunk{ID: 7, Name: "Mist Hollow"}), now)
	if !ok {
		t.Fatal("chunk frame not decoded")
	}
	if ev.Kind != events.KindSetChunkData {
		t.Errorf("kind = %v", ev.Kind)
	}
	if chunk, ok := ev.Payload.(model.Chunk); !ok || chunk.Name != "Mist Hollow" {
		t.Errorf("payload = %#v", ev.Payload)
	}
	if !ev.ReceivedAt.Equal(now) {
		t.Errorf("receivedAt = %v, want %v", ev.ReceivedAt, now)
	}

	ev, ok = l.decodeFrame(gameFrame(t, protocol.EvSetAllMobsList, events.SetAllMobsList{
		Mobs: []model.MobTemplate{{MobID: 301, Name: "Gnoll"}},
	}), now)
	if !ok {
		t.Fatal("mob list frame not decoded")
	}
	list, ok := ev.Payload.(events.SetAllMobsList)
	if !ok || len(list.Mobs) != 1 || list.Mobs[0].MobID != 301 {
		t.Errorf("payload = %#v", ev.Payload)
	}

	ev, ok = l.decodeFrame(gameFrame(t, protocol.EvSetMobLootInfo, events.SetMobLootInfo{
		MobID: 301,
		Loot:  []model.LootEntry{{ItemID: 401, DropChance: 0.25}},
	}), now)
	if !ok {
		t.Fatal("loot frame not decoded")
	}
	loot, ok := ev.Payload.(events.SetMobLootInfo)
	if !ok || loot.MobID != 301 || len(loot.Loot) != 1 {
		t.Errorf("payload = %#v", ev.Payload)
	}
}

func TestDecodeFrameRejectsGarbage(t *testing.T) {
	l := decodeTestLink(t)
	now := time.Now()

	if _, ok := l.decodeFrame([]byte(`{"header":`), now); ok {
		t.Error("malformed frame decoded")
	}
	if _, ok := l.decodeFrame(gameFrame(t, "mysteryEvent", nil), now); ok {
		t.Error("unknown event type decoded")
	}
	bad := []byte(`{"header":{"eventType":"setChunkData"},"body":"not-a-chunk"}`)
	if _, ok := l.decodeFrame(bad, now); ok {
		t.Error("undecodable body decoded")
	}
}

func TestDecodeFrameCoversAllReplicationTypes(t *testing.T) {
	l := decodeTestLink(t)
	now := time.Now()
	for eventType, want := range linkEventKinds {
		ev, ok := l.decodeFrame(gameFrame(t, eventType, nil), now)
		if !ok {
			t.Errorf("%s: frame not decoded", eventType)
			continue
		}
		if ev.Kind != want {
			t.Errorf("%s: kind = %v, want %v", eventType, ev.Kind, want)
		}
	}
}
