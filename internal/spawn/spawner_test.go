package spawn

import (
	"testing"
	"time"

	"github.com/mistvale/chunkserver/internal/model"
	"github.com/mistvale/chunkserver/internal/world"
)

func testRegistries() (*world.SpawnZoneRegistry, *world.MobTemplateRegistry, *world.MobInstanceRegistry) {
	zones := world.NewSpawnZoneRegistry()
	templates := world.NewMobTemplateRegistry()
	mobs := world.NewMobInstanceRegistry()
	return zones, templates, mobs
}

func testZone(id int64, count int) *model.SpawnZone {
	return &model.SpawnZone{
		ZoneID:         id,
		Name:           "wolf den",
		Center:         model.Position{X: 1000, Y: 2000, Z: 200},
		Size:           model.Extent{X: 400, Y: 600, Z: 100},
		SpawnMobID:     1000,
		SpawnCount:     count,
		RespawnTimeSec: 30,
	}
}

func testTemplate() *model.MobTemplate {
	return &model.MobTemplate{
		MobID:     1000,
		Name:      "Wolf",
		Level:     5,
		BaseExp:   120,
		MaxHealth: 150,
		MaxMana:   40,
	}
}

func TestSpawner_FillsZone(t *testing.T) {
	zones, templates, mobs := testRegistries()
	zones.Put(testZone(1, 5))
	templates.Put(testTemplate())
	s := NewSpawner(zones, templates, mobs)

	spawned, err := s.SpawnZone(1)
	if err != nil {
		t.Fatalf("SpawnZone() error = %v", err)
	}
	if len(spawned) != 5 {
		t.Fatalf("spawned = %d, want 5", len(spawned))
	}

	zone, _ := zones.Get(1)
	for _, inst := range spawned {
		if !zone.ContainsXY(inst.Position.X, inst.Position.Y) {
			t.Errorf("mob %d spawned outside zone at (%f, %f)", inst.UID, inst.Position.X, inst.Position.Y)
		}
		if inst.Position.Z != SpawnZ {
			t.Errorf("mob %d z = %f, want %f", inst.UID, inst.Position.Z, SpawnZ)
		}
		if inst.Position.RotZ < 0 || inst.Position.RotZ >= 360 {
			t.Errorf("mob %d rotZ = %f, want [0,360)", inst.UID, inst.Position.RotZ)
		}
		if inst.CurrentHealth != 150 || inst.CurrentMana != 40 {
			t.Errorf("mob %d stats = %d/%d, want 150/40", inst.UID, inst.CurrentHealth, inst.CurrentMana)
		}
		if _, ok := mobs.Get(inst.UID); !ok {
			t.Errorf("mob %d not registered", inst.UID)
		}
	}

	if zone.SpawnedCount != 5 {
		t.Errorf("zone spawnedCount = %d, want 5", zone.SpawnedCount)
	}
	if len(zone.SpawnedMobs) != 5 {
		t.Errorf("zone spawnedMobs = %d, want 5", len(zone.SpawnedMobs))
	}
}

func TestSpawner_FullZoneSpawnsNothing(t *testing.T) {
	zones, templates, mobs := testRegistries()
	zones.Put(testZone(1, 3))
	templates.Put(testTemplate())
	s := NewSpawner(zones, templates, mobs)

	if _, err := s.SpawnZone(1); err != nil {
		t.Fatalf("first SpawnZone() error = %v", err)
	}
	again, err := s.SpawnZone(1)
	if err != nil {
		t.Fatalf("second SpawnZone() error = %v", err)
	}
	if len(again) != 0 {
		t.Errorf("second spawn produced %d mobs, want 0", len(again))
	}
	if mobs.Count() != 3 {
		t.Errorf("registry count = %d, want 3", mobs.Count())
	}
}

func TestSpawner_MissingTemplateRollsBack(t *testing.T) {
	zones, _, mobs := testRegistries()
	zones.Put(testZone(1, 4))
	s := NewSpawner(zones, world.NewMobTemplateRegistry(), mobs)

	if _, err := s.SpawnZone(1); err == nil {
		t.Fatal("SpawnZone() with missing template: expected error")
	}

	zone, _ := zones.Get(1)
	if zone.SpawnedCount != 0 {
		t.Errorf("spawnedCount after rollback = %d, want 0", zone.SpawnedCount)
	}
	if mobs.Count() != 0 {
		t.Errorf("registry count = %d, want 0", mobs.Count())
	}
}

func TestSpawner_UnknownZone(t *testing.T) {
	zones, templates, mobs := testRegistries()
	s := NewSpawner(zones, templates, mobs)
	if _, err := s.SpawnZone(99); err == nil {
		t.Fatal("SpawnZone(99) expected error")
	}
}

func TestSpawner_RespawnDelayGatesRefill(t *testing.T) {
	zones, templates, mobs := testRegistries()
	zones.Put(testZone(1, 2))
	templates.Put(testTemplate())
	s := NewSpawner(zones, templates, mobs)

	spawned, err := s.SpawnZone(1)
	if err != nil {
		t.Fatalf("SpawnZone() error = %v", err)
	}

	// Kill one mob; the zone arms its respawn delay.
	dead := spawned[0].UID
	mobs.UpdateHealth(dead, 0)
	zones.ReleaseMob(1, dead, time.Now())

	refill, err := s.SpawnZone(1)
	if err != nil {
		t.Fatalf("SpawnZone() during respawn window error = %v", err)
	}
	if len(refill) != 0 {
		t.Errorf("spawned %d mobs during respawn window, want 0", len(refill))
	}
}

func TestSpawner_SpawnAll(t *testing.T) {
	zones, templates, mobs := testRegistries()
	zones.Put(testZone(1, 2))
	zones.Put(testZone(2, 3))
	templates.Put(testTemplate())
	s := NewSpawner(zones, templates, mobs)

	spawned := s.SpawnAll()
	if len(spawned) != 5 {
		t.Fatalf("SpawnAll() spawned = %d, want 5", len(spawned))
	}
	if mobs.Count() != 5 {
		t.Errorf("registry count = %d, want 5", mobs.Count())
	}
}
