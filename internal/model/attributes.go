package model

// Attribute slugs shared by characters, mob templates and item bonuses.
// The combat calculator reads these by name; unknown slugs resolve to 0.
const (
	AttrStrength        = "strength"
	AttrDefense         = "defense"
	AttrAccuracy        = "accuracy"
	AttrEvasion         = "evasion"
	AttrCritChance      = "crit_chance"
	AttrCritMultiplier  = "crit_multiplier"
	AttrBlockChance     = "block_chance"
	AttrBlockValue      = "block_value"
	AttrPhysicalDefense = "physical_defense"
	AttrMagicalDefense  = "magical_defense"
	AttrMaxHealth       = "max_health"
	AttrMaxMana         = "max_mana"
)

// Attributes maps attribute slugs to integer values.
type Attributes map[string]int

// Get returns the value for slug, 0 when absent or when the map is nil.
func (a Attributes) Get(slug string) int {
	if a == nil {
		return 0
	}
	return a[slug]
}

// Clone returns an independent copy. A nil receiver clones to nil.
func (a Attributes) Clone() Attributes {
	if a == nil {
		return nil
	}
	out := make(Attributes, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}
