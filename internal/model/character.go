package model

// Character is a player avatar currently resident in this chunk.
// Authoritative copies live in the character registry; queries hand out
// clones, so plain fields are safe to read without locking.
type Character struct {
	ID              int64            `json:"id"`
	ClientID        int64            `json:"clientId,omitempty"`
	Name            string           `json:"name"`
	Class           string           `json:"class"`
	Race            string           `json:"race"`
	Level           int              `json:"level"`
	CurrentExp      int64            `json:"currentExp"`
	ExpForNextLevel int64            `json:"expForNextLevel"`
	CurrentHealth   int              `json:"currentHealth"`
	MaxHealth       int              `json:"maxHealth"`
	CurrentMana     int              `json:"currentMana"`
	MaxMana         int              `json:"maxMana"`
	Position        Position         `json:"position"`
	Attributes      Attributes       `json:"attributes,omitempty"`
	Skills          map[string]Skill `json:"skills,omitempty"`
}

// Clone returns an independent deep copy.
func (c *Character) Clone() *Character {
	if c == nil {
		return nil
	}
	out := *c
	out.Attributes = c.Attributes.Clone()
	out.Skills = CloneSkills(c.Skills)
	return &out
}

// Skill looks up a known skill by slug.
func (c *Character) Skill(slug string) (Skill, bool) {
	s, ok := c.Skills[slug]
	return s, ok
}

// IsAlive reports whether the character has health left.
func (c *Character) IsAlive() bool {
	return c.CurrentHealth > 0
}
