// Package spawn maintains the live mob population of every spawn zone.
package spawn

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/mistvale/chunkserver/internal/model"
	"github.com/mistvale/chunkserver/internal/world"
)

// SpawnZ is the fixed z coordinate for fresh spawns. Terrain height is
// not modelled yet; clients snap mobs to the ground themselves.
const SpawnZ = 200.0

// Spawner fills spawn zones up to their target population. Slots are
// reserved on the zone before instances are built, so concurrent ticks
// against the same zone cannot overfill it; a slot whose instance fails
// to register is rolled back.
type Spawner struct {
	zones     *world.SpawnZoneRegistry
	templates *world.MobTemplateRegistry
	mobs      *world.MobInstanceRegistry
}

// NewSpawner creates a spawner over the given registries.
func NewSpawner(zones *world.SpawnZoneRegistry, templates *world.MobTemplateRegistry, mobs *world.MobInstanceRegistry) *Spawner {
	return &Spawner{zones: zones, templates: templates, mobs: mobs}
}

// SpawnZone tops the zone's population up and returns the new
// instances for broadcast. An empty result with nil error means the
// zone is full or still inside its respawn window.
func (s *Spawner) SpawnZone(zoneID int64) ([]model.MobInstance, error) {
	zone, ok := s.zones.Get(zoneID)
	if !ok {
		return nil, fmt.Errorf("spawn zone %d not found", zoneID)
	}

	need := s.zones.ReserveSpawnSlots(zoneID, time.Now())
	if need == 0 {
		return nil, nil
	}

	tpl, ok := s.templates.Get(zone.SpawnMobID)
	if !ok {
		for range need {
			s.zones.ReleaseSpawnSlot(zoneID)
		}
		return nil, fmt.Errorf("mob template %d for zone %d not found", zone.SpawnMobID, zoneID)
	}

	spawned := make([]model.MobInstance, 0, need)
	for range need {
		inst := s.newInstance(zone, tpl)
		if err := s.mobs.Register(inst); err != nil {
			s.zones.ReleaseSpawnSlot(zoneID)
			slog.Error("mob registration failed", "zoneId", zoneID, "mobUid", inst.UID, "error", err)
			continue
		}
		s.zones.BindSpawnedMob(zoneID, inst.UID)
		spawned = append(spawned, inst)
	}

	if len(spawned) > 0 {
		slog.Info("mobs spawned",
			"zoneId", zoneID,
			"mobId", zone.SpawnMobID,
			"count", len(spawned))
	}
	return spawned, nil
}

// SpawnAll runs SpawnZone over every known zone and returns everything
// that spawned. Per-zone failures are logged and skipped.
func (s *Spawner) SpawnAll() []model.MobInstance {
	var out []model.MobInstance
	for _, zoneID := range s.zones.IDs() {
		spawned, err := s.SpawnZone(zoneID)
		if err != nil {
			slog.Error("zone spawn failed", "zoneId", zoneID, "error", err)
			continue
		}
		out = append(out, spawned...)
	}
	return out
}

func (s *Spawner) newInstance(zone *model.SpawnZone, tpl *model.MobTemplate) model.MobInstance {
	minX, minY, maxX, maxY := zone.Bounds()
	return model.MobInstance{
		UID:    world.NextMobUID(),
		MobID:  tpl.MobID,
		ZoneID: zone.ZoneID,
		Position: model.Position{
			X:    minX + rand.Float64()*(maxX-minX),
			Y:    minY + rand.Float64()*(maxY-minY),
			Z:    SpawnZ,
			RotZ: rand.Float64() * 360,
		},
		CurrentHealth: tpl.MaxHealth,
		MaxHealth:     tpl.MaxHealth,
		CurrentMana:   tpl.MaxMana,
		MaxMana:       tpl.MaxMana,
	}
}
