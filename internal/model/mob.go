package model

// MobTemplate is an immutable per-type mob record from the game server.
// Attributes and skills arrive in separate replication batches and are
// merged into the registered template.
type MobTemplate struct {
	MobID       int64            `json:"mobId"`
	Name        string           `json:"name"`
	Level       int              `json:"level"`
	BaseExp     int64            `json:"baseExp"`
	MaxHealth   int              `json:"maxHealth"`
	MaxMana     int              `json:"maxMana"`
	AggroRadius float64          `json:"aggroRadius,omitempty"`
	Attributes  Attributes       `json:"attributes,omitempty"`
	Skills      map[string]Skill `json:"skills,omitempty"`
}

// Clone returns an independent deep copy.
func (t *MobTemplate) Clone() *MobTemplate {
	if t == nil {
		return nil
	}
	out := *t
	out.Attributes = t.Attributes.Clone()
	out.Skills = CloneSkills(t.Skills)
	return &out
}

// MobInstance is one live (or freshly dead) mob in a spawn zone.
// Plain value type; the mob registry copies it in and out.
type MobInstance struct {
	UID           int64    `json:"uid"`
	MobID         int64    `json:"mobId"`
	ZoneID        int64    `json:"zoneId"`
	Position      Position `json:"position"`
	CurrentHealth int      `json:"currentHealth"`
	MaxHealth     int      `json:"maxHealth"`
	CurrentMana   int      `json:"currentMana"`
	MaxMana       int      `json:"maxMana"`
	IsDead        bool     `json:"isDead"`
}

// IsAlive reports whether the mob can still act and be targeted.
func (m MobInstance) IsAlive() bool {
	return !m.IsDead && m.CurrentHealth > 0
}
