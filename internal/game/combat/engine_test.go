package combat

import (
	"testing"
	"time"

	"github.com/mistvale/chunkserver/internal/model"
	"github.com/mistvale/chunkserver/internal/world"
)

type combatFixture struct {
	chars     *world.CharacterRegistry
	mobs      *world.MobInstanceRegistry
	templates *world.MobTemplateRegistry
	zones     *world.SpawnZoneRegistry
	harvest   *world.HarvestStore
	items     *world.ItemRegistry
	loot      *world.LootStore
	exp       *ExperienceEngine
	engine    *Engine
}

func newCombatFixture() *combatFixture {
	f := &combatFixture{
		chars:     world.NewCharacterRegistry(),
		mobs:      world.NewMobInstanceRegistry(),
		templates: world.NewMobTemplateRegistry(),
		zones:     world.NewSpawnZoneRegistry(),
		harvest:   world.NewHarvestStore(),
		items:     world.NewItemRegistry(),
	}
	f.loot = world.NewLootStore(f.items)
	f.exp = NewExperienceEngine(f.chars, world.NewExperienceTable())
	f.engine = NewEngine(f.chars, f.mobs, f.templates, f.zones, f.harvest, f.loot, f.exp)
	return f
}

func (f *combatFixture) addFighter(id int64) {
	f.chars.Put(&model.Character{
		ID:            id,
		Name:          "fighter",
		Level:         5,
		CurrentExp:    600,
		CurrentHealth: 100,
		MaxHealth:     100,
		CurrentMana:   50,
		MaxMana:       50,
		Position:      model.Position{X: 0, Y: 0, Z: 200},
		Attributes:    model.Attributes{model.AttrStrength: 20},
		Skills:        map[string]model.Skill{"slash": slashSkill()},
	})
}

func (f *combatFixture) addBoar(uid int64, hp int) {
	f.templates.Put(&model.MobTemplate{
		MobID:     1000,
		Name:      "Boar",
		Level:     6,
		BaseExp:   120,
		MaxHealth: 200,
		MaxMana:   20,
		Skills: map[string]model.Skill{
			"gore": {
				Slug:       "gore",
				CostMp:     0,
				MaxRange:   2,
				Coeff:      1,
				FlatAdd:    5,
				ScaleStat:  model.AttrStrength,
				EffectType: model.EffectDamage,
				School:     model.SchoolPhysical,
			},
		},
		Attributes: model.Attributes{model.AttrStrength: 10},
	})
	f.zones.Put(&model.SpawnZone{
		ZoneID:     1,
		Center:     model.Position{X: 0, Y: 0, Z: 200},
		Size:       model.Extent{X: 1000, Y: 1000, Z: 100},
		SpawnMobID: 1000,
		SpawnCount: 5,
	})
	f.zones.ReserveSpawnSlots(1, time.Now())
	f.mobs.Register(model.MobInstance{
		UID:           uid,
		MobID:         1000,
		ZoneID:        1,
		Position:      model.Position{X: 50, Y: 0, Z: 200},
		CurrentHealth: hp,
		MaxHealth:     200,
		CurrentMana:   20,
		MaxMana:       20,
	})
	f.zones.BindSpawnedMob(1, uid)
}

func playerAction(casterID, targetID int64) model.OngoingAction {
	return model.OngoingAction{
		CasterID:   casterID,
		SkillSlug:  "slash",
		TargetID:   targetID,
		TargetType: model.TargetMob,
		State:      model.ActionExecuting,
	}
}

func TestEngine_ExecuteDamagesMob(t *testing.T) {
	f := newCombatFixture()
	f.addFighter(10)
	f.addBoar(100001, 200)

	var aggro [][2]int64
	f.engine.SetMobAttackedFunc(func(mobUID, attackerID int64) {
		aggro = append(aggro, [2]int64{mobUID, attackerID})
	})

	scriptRolls(t, 0.5, 0.99, 0.99) // plain hit
	res, err := f.engine.Execute(playerAction(10, 100001))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	// base 10 + 20*2 = 50, no mitigation.
	if res.Damage == nil || res.Damage.TotalDamage != 50 {
		t.Fatalf("damage = %+v, want total 50", res.Damage)
	}
	if res.TargetHealth != 150 {
		t.Errorf("targetHealth = %d, want 150", res.TargetHealth)
	}
	if res.TargetDied {
		t.Error("mob died from a 50 hit on 200 hp")
	}

	// Mana deducted on the caster.
	c, _ := f.chars.Get(10)
	if c.CurrentMana != 45 {
		t.Errorf("caster mana = %d, want 45", c.CurrentMana)
	}
	if res.CasterMana != 45 {
		t.Errorf("result casterMana = %d, want 45", res.CasterMana)
	}

	// Player damage on a mob notifies the AI.
	if len(aggro) != 1 || aggro[0] != [2]int64{100001, 10} {
		t.Errorf("aggro notifications = %v", aggro)
	}
}

func TestEngine_KillRunsDeathPipeline(t *testing.T) {
	f := newCombatFixture()
	f.addFighter(10)
	f.addBoar(100001, 30)

	// Ground loot: guaranteed drop of item 7.
	f.items.Put(&model.ItemTemplate{ID: 7, Name: "Hide", IsHarvest: false})
	f.items.SetLootTable(1000, []model.LootEntry{{ItemID: 7, DropChance: 1.0}})

	var forgotten []int64
	f.engine.SetMobDeadFunc(func(uid int64) { forgotten = append(forgotten, uid) })

	scriptRolls(t, 0.5, 0.99, 0.99)
	res, err := f.engine.Execute(playerAction(10, 100001))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !res.TargetDied {
		t.Fatal("killing blow did not report targetDied")
	}
	if res.TargetHealth != 0 {
		t.Errorf("targetHealth = %d, want 0", res.TargetHealth)
	}

	inst, _ := f.mobs.Get(100001)
	if !inst.IsDead {
		t.Error("mob not marked dead in registry")
	}

	// Zone slot released and respawn armed.
	zone, _ := f.zones.Get(1)
	if zone.SpawnedCount != 4 {
		t.Errorf("spawnedCount = %d, want 4", zone.SpawnedCount)
	}
	if len(zone.SpawnedMobs) != 0 {
		t.Errorf("spawnedMobs = %v, want empty", zone.SpawnedMobs)
	}

	// AI forgot the mob.
	if len(forgotten) != 1 || forgotten[0] != 100001 {
		t.Errorf("forgotten = %v, want [100001]", forgotten)
	}

	// Killer got experience: boar level 6 vs player level 5 -> x1.0.
	c, _ := f.chars.Get(10)
	if c.CurrentExp != 720 {
		t.Errorf("killer exp = %d, want 720", c.CurrentExp)
	}

	// Ground loot dropped near the body.
	drops := f.loot.Nearby(inst.Position, 50)
	if len(drops) != 1 || drops[0].ItemID != 7 {
		t.Fatalf("drops = %+v, want one of item 7", drops)
	}

	// Corpse registered for harvesting.
	corpse, ok := f.harvest.Corpse(100001)
	if !ok {
		t.Fatal("corpse not registered")
	}
	if corpse.MobID != 1000 || corpse.HasBeenHarvested {
		t.Errorf("corpse = %+v", corpse)
	}
}

func TestEngine_SecondKillingBlowIsNoop(t *testing.T) {
	f := newCombatFixture()
	f.addFighter(10)
	f.addBoar(100001, 30)

	deaths := 0
	f.engine.SetMobDeadFunc(func(int64) { deaths++ })

	scriptRolls(t, 0.5, 0.99, 0.99, 0.5, 0.99, 0.99)
	if _, err := f.engine.Execute(playerAction(10, 100001)); err != nil {
		t.Fatalf("first Execute() error = %v", err)
	}
	res, err := f.engine.Execute(playerAction(10, 100001))
	if err != nil {
		t.Fatalf("second Execute() error = %v", err)
	}
	if res.TargetDied {
		t.Error("second blow reported a fresh death")
	}
	if deaths != 1 {
		t.Errorf("death pipeline ran %d times, want 1", deaths)
	}
}

func TestEngine_MobAttackInterruptsAndKillsPlayer(t *testing.T) {
	f := newCombatFixture()
	f.addFighter(10)
	f.chars.UpdateHealth(10, 12)
	f.addBoar(100001, 200)

	var interrupts []model.InterruptReason
	f.engine.SetInterruptFunc(func(casterID int64, reason model.InterruptReason) {
		if casterID != 10 {
			t.Errorf("interrupt for character %d, want 10", casterID)
		}
		interrupts = append(interrupts, reason)
	})

	mobAction := model.OngoingAction{
		CasterID:   100001,
		SkillSlug:  "gore",
		TargetID:   10,
		TargetType: model.TargetPlayer,
		State:      model.ActionExecuting,
	}

	// gore: 5 + 10*1 = 15 damage; 12 hp cannot survive it.
	scriptRolls(t, 0.5, 0.99, 0.99)
	res, err := f.engine.Execute(mobAction)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !res.TargetDied {
		t.Fatal("lethal mob hit did not kill")
	}
	if res.TargetHealth != 0 {
		t.Errorf("targetHealth = %d, want 0", res.TargetHealth)
	}
	if len(interrupts) != 1 || interrupts[0] != model.InterruptDeath {
		t.Errorf("interrupts = %v, want [DEATH]", interrupts)
	}
}

func TestEngine_DamageTakenInterrupt(t *testing.T) {
	f := newCombatFixture()
	f.addFighter(10)
	f.addBoar(100001, 200)

	var interrupts []model.InterruptReason
	f.engine.SetInterruptFunc(func(_ int64, reason model.InterruptReason) {
		interrupts = append(interrupts, reason)
	})

	mobAction := model.OngoingAction{
		CasterID:   100001,
		SkillSlug:  "gore",
		TargetID:   10,
		TargetType: model.TargetPlayer,
		State:      model.ActionExecuting,
	}
	scriptRolls(t, 0.5, 0.99, 0.99)
	if _, err := f.engine.Execute(mobAction); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(interrupts) != 1 || interrupts[0] != model.InterruptDamageTaken {
		t.Errorf("interrupts = %v, want [DAMAGE_TAKEN]", interrupts)
	}
}

func TestEngine_HealClampsToMax(t *testing.T) {
	f := newCombatFixture()
	f.addFighter(10)
	f.chars.UpdateHealth(10, 80)
	f.chars.Apply(10, func(c *model.Character) {
		c.Skills["mend"] = model.Skill{
			Slug:       "mend",
			CostMp:     10,
			FlatAdd:    50,
			ScaleStat:  model.AttrStrength,
			EffectType: model.EffectHeal,
		}
	})

	res, err := f.engine.Execute(model.OngoingAction{
		CasterID:   10,
		SkillSlug:  "mend",
		TargetID:   10,
		TargetType: model.TargetSelf,
		State:      model.ActionExecuting,
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if res.HealAmount != 50 {
		t.Errorf("healAmount = %d, want 50", res.HealAmount)
	}
	if res.TargetHealth != 100 {
		t.Errorf("targetHealth = %d, want clamped 100", res.TargetHealth)
	}
	c, _ := f.chars.Get(10)
	if c.CurrentMana != 40 {
		t.Errorf("caster mana = %d, want 40", c.CurrentMana)
	}
}

func TestEngine_MissDealsNothing(t *testing.T) {
	f := newCombatFixture()
	f.addFighter(10)
	f.addBoar(100001, 200)

	scriptRolls(t, 0.96)
	res, err := f.engine.Execute(playerAction(10, 100001))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !res.Damage.IsMissed {
		t.Fatal("expected miss")
	}
	if res.TargetHealth != 200 {
		t.Errorf("targetHealth = %d, want untouched 200", res.TargetHealth)
	}
	inst, _ := f.mobs.Get(100001)
	if inst.CurrentHealth != 200 {
		t.Errorf("mob health = %d, want 200", inst.CurrentHealth)
	}
}

func TestEngine_UnknownCaster(t *testing.T) {
	f := newCombatFixture()
	if _, err := f.engine.Execute(playerAction(404, 1)); err == nil {
		t.Fatal("expected error for unknown caster")
	}
}
