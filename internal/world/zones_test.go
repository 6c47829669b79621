package world

import (
	"testing"
	"time"

	"github.com/mistvale/chunkserver/internal/model"
)

func testZone(id int64) *model.SpawnZone {
	return &model.SpawnZone{
		ZoneID:         id,
		Name:           "Wolf Glade",
		Center:         model.Position{X: 500, Y: 500},
		Size:           model.Extent{X: 200, Y: 200, Z: 50},
		SpawnMobID:     301,
		SpawnCount:     3,
		RespawnTimeSec: 30,
	}
}

func TestZoneRegistryReserveAndRelease(t *testing.T) {
	r := NewSpawnZoneRegistry()
	r.Put(testZone(5))
	now := time.Now()

	if got := r.ReserveSpawnSlots(5, now); got != 3 {
		t.Fatalf("reserved %d slots, want 3", got)
	}
	// The reservation bumps the counter immediately, so a concurrent
	// check sees the zone full.
	if got := r.ReserveSpawnSlots(5, now); got != 0 {
		t.Fatalf("second reserve got %d slots, want 0", got)
	}

	r.BindSpawnedMob(5, 9001)
	r.BindSpawnedMob(5, 9002)
	r.BindSpawnedMob(5, 9003)

	z, _ := r.Get(5)
	if z.SpawnedCount != 3 || len(z.SpawnedMobs) != 3 {
		t.Fatalf("zone = count %d, mobs %v", z.SpawnedCount, z.SpawnedMobs)
	}

	// A death frees one slot but arms the respawn delay.
	if !r.ReleaseMob(5, 9002, now) {
		t.Fatal("ReleaseMob failed")
	}
	z, _ = r.Get(5)
	if z.SpawnedCount != 2 || len(z.SpawnedMobs) != 2 {
		t.Errorf("zone after death = count %d, mobs %v", z.SpawnedCount, z.SpawnedMobs)
	}
	if got := r.ReserveSpawnSlots(5, now.Add(10*time.Second)); got != 0 {
		t.Errorf("reserve inside respawn window got %d slots", got)
	}
	if got := r.ReserveSpawnSlots(5, now.Add(31*time.Second)); got != 1 {
		t.Errorf("reserve after respawn window got %d slots, want 1", got)
	}
}

func TestZoneRegistryReleaseSpawnSlotRollsBack(t *testing.T) {
	r := NewSpawnZoneRegistry()
	r.Put(testZone(5))
	now := time.Now()

	r.ReserveSpawnSlots(5, now)
	r.ReleaseSpawnSlot(5)

	z, _ := r.Get(5)
	if z.SpawnedCount != 2 {
		t.Errorf("SpawnedCount = %d after rollback, want 2", z.SpawnedCount)
	}
	if got := r.ReserveSpawnSlots(5, now); got != 1 {
		t.Errorf("re-reserve got %d slots, want 1", got)
	}
}

func TestZoneRegistryPutKeepsLiveCounters(t *testing.T) {
	r := NewSpawnZoneRegistry()
	r.Put(testZone(5))
	r.ReserveSpawnSlots(5, time.Now())
	r.BindSpawnedMob(5, 9001)

	// Re-replication of the same zone must not orphan live mobs.
	refreshed := testZone(5)
	refreshed.Name = "Wolf Glade East"
	refreshed.SpawnCount = 5
	r.Put(refreshed)

	z, _ := r.Get(5)
	if z.Name != "Wolf Glade East" || z.SpawnCount != 5 {
		t.Errorf("definition not refreshed: %+v", z)
	}
	if z.SpawnedCount != 3 || len(z.SpawnedMobs) != 1 {
		t.Errorf("live counters lost: count %d, mobs %v", z.SpawnedCount, z.SpawnedMobs)
	}
}

func TestZoneRegistryReplaceAllDropsAbsent(t *testing.T) {
	r := NewSpawnZoneRegistry()
	r.Put(testZone(5))
	r.Put(testZone(9))

	r.ReplaceAll([]model.SpawnZone{*testZone(5), *testZone(12)})

	if _, ok := r.Get(9); ok {
		t.Error("zone 9 survived ReplaceAll")
	}
	if r.Count() != 2 {
		t.Errorf("Count = %d, want 2", r.Count())
	}
	ids := r.IDs()
	if len(ids) != 2 {
		t.Errorf("IDs = %v", ids)
	}
}

func TestZoneRegistryGetReturnsClone(t *testing.T) {
	r := NewSpawnZoneRegistry()
	r.Put(testZone(5))

	z, _ := r.Get(5)
	z.SpawnCount = 99

	again, _ := r.Get(5)
	if again.SpawnCount != 3 {
		t.Errorf("zone mutated through clone: %d", again.SpawnCount)
	}
}
