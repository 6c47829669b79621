package world

import (
	"testing"

	"github.com/mistvale/chunkserver/internal/model"
)

func testMob(uid, zoneID int64) model.MobInstance {
	return model.MobInstance{
		UID:           uid,
		MobID:         301,
		ZoneID:        zoneID,
		CurrentHealth: 40,
		MaxHealth:     40,
		CurrentMana:   20,
		MaxMana:       20,
	}
}

func TestMobRegistryRegisterRejectsDuplicateUID(t *testing.T) {
	r := NewMobInstanceRegistry()
	if err := r.Register(testMob(1, 5)); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(testMob(1, 5)); err == nil {
		t.Fatal("duplicate uid accepted")
	}
	if got := r.Count(); got != 1 {
		t.Errorf("Count = %d, want 1", got)
	}
}

func TestMobRegistryZoneIndex(t *testing.T) {
	r := NewMobInstanceRegistry()
	r.Register(testMob(1, 5))
	r.Register(testMob(2, 5))
	r.Register(testMob(3, 9))

	if got := len(r.InZone(5)); got != 2 {
		t.Errorf("InZone(5) = %d mobs, want 2", got)
	}
	if got := len(r.InZone(9)); got != 1 {
		t.Errorf("InZone(9) = %d mobs, want 1", got)
	}
	if got := len(r.InZone(42)); got != 0 {
		t.Errorf("InZone(42) = %d mobs, want 0", got)
	}

	// Dead mobs stay in the zone index but drop out of the alive views.
	r.UpdateHealth(2, 0)
	if got := len(r.InZone(5)); got != 2 {
		t.Errorf("InZone(5) after death = %d, want 2", got)
	}
	if got := len(r.AliveInZone(5)); got != 1 {
		t.Errorf("AliveInZone(5) = %d, want 1", got)
	}
	if got := r.AliveCountInZone(5); got != 1 {
		t.Errorf("AliveCountInZone(5) = %d, want 1", got)
	}
}

func TestMobRegistryUnregisterCleansZoneIndex(t *testing.T) {
	r := NewMobInstanceRegistry()
	r.Register(testMob(1, 5))
	r.Register(testMob(2, 5))

	if !r.Unregister(1) {
		t.Fatal("Unregister failed")
	}
	if _, ok := r.Get(1); ok {
		t.Error("instance still readable after Unregister")
	}
	if got := len(r.InZone(5)); got != 1 {
		t.Errorf("InZone(5) = %d after Unregister, want 1", got)
	}
	if r.Unregister(1) {
		t.Error("second Unregister reported success")
	}
}

func TestMobRegistryDamageReportsDeathOnce(t *testing.T) {
	r := NewMobInstanceRegistry()
	r.Register(testMob(1, 5))

	upd, remaining := r.Damage(1, 15)
	if !upd.Success || upd.MobDied || remaining != 25 {
		t.Fatalf("first hit: upd=%+v remaining=%d", upd, remaining)
	}

	upd, remaining = r.Damage(1, 100)
	if !upd.Success || !upd.MobDied || remaining != 0 {
		t.Fatalf("killing blow: upd=%+v remaining=%d", upd, remaining)
	}

	// A second killing blow must not rerun the death pipeline.
	upd, _ = r.Damage(1, 100)
	if !upd.Success || upd.MobDied || !upd.WasAlreadyDead {
		t.Fatalf("hit on corpse: upd=%+v", upd)
	}

	inst, _ := r.Get(1)
	if !inst.IsDead || inst.CurrentHealth != 0 {
		t.Errorf("corpse state = %+v", inst)
	}
}

func TestMobRegistryDamageUnknownMob(t *testing.T) {
	r := NewMobInstanceRegistry()
	upd, _ := r.Damage(404, 10)
	if upd.Success {
		t.Errorf("Damage on unknown mob = %+v", upd)
	}
}

func TestMobRegistryHealClampsAndSkipsDead(t *testing.T) {
	r := NewMobInstanceRegistry()
	r.Register(testMob(1, 5))
	r.Damage(1, 30)

	ok, hp := r.Heal(1, 500)
	if !ok || hp != 40 {
		t.Errorf("Heal = ok=%v hp=%d, want clamp to 40", ok, hp)
	}

	r.Damage(1, 100)
	if ok, _ := r.Heal(1, 10); ok {
		t.Error("Heal revived a dead mob")
	}
}

func TestMobRegistryManaAndPosition(t *testing.T) {
	r := NewMobInstanceRegistry()
	r.Register(testMob(1, 5))

	if ok, mp := r.SpendMana(1, 8); !ok || mp != 12 {
		t.Errorf("SpendMana = ok=%v mp=%d", ok, mp)
	}
	if ok, mp := r.SpendMana(1, 100); !ok || mp != 0 {
		t.Errorf("overdraw SpendMana = ok=%v mp=%d", ok, mp)
	}
	if !r.UpdateMana(1, 15) {
		t.Error("UpdateMana failed")
	}
	if !r.UpdatePosition(1, model.Position{X: 7, Y: 8}) {
		t.Error("UpdatePosition failed")
	}

	inst, _ := r.Get(1)
	if inst.CurrentMana != 15 || inst.Position.X != 7 {
		t.Errorf("instance = %+v", inst)
	}
}

func TestMobRegistryGetReturnsCopy(t *testing.T) {
	r := NewMobInstanceRegistry()
	r.Register(testMob(1, 5))

	inst, _ := r.Get(1)
	inst.CurrentHealth = 1

	again, _ := r.Get(1)
	if again.CurrentHealth != 40 {
		t.Errorf("health mutated through copy: %d", again.CurrentHealth)
	}
}
