package world

import (
	"math"
	"sync"

	"github.com/mistvale/chunkserver/internal/model"
)

// MaxLevel caps character progression.
const MaxLevel = 100

// ExperienceTable maps cumulative experience to levels. Until the game
// server replicates its table the fallback curve is used, so lookups
// never fail during startup.
type ExperienceTable struct {
	mu     sync.RWMutex
	byLvl  map[int]int64
	loaded bool
}

// NewExperienceTable builds a table seeded with the fallback curve:
// level 1 costs nothing, each following level adds 100*1.2^(level-2).
func NewExperienceTable() *ExperienceTable {
	t := &ExperienceTable{byLvl: make(map[int]int64, MaxLevel)}
	cum := 0.0
	t.byLvl[1] = 0
	for lvl := 2; lvl <= MaxLevel; lvl++ {
		cum += 100 * math.Pow(1.2, float64(lvl-2))
		t.byLvl[lvl] = int64(cum)
	}
	return t
}

// Load replaces the curve with replicated rows. Rows beyond MaxLevel
// are ignored; levels the payload omits keep their fallback value.
func (t *ExperienceTable) Load(levels []model.ExpLevel) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, row := range levels {
		if row.Level < 1 || row.Level > MaxLevel {
			continue
		}
		t.byLvl[row.Level] = row.CumulativeExp
	}
	t.loaded = true
}

// Loaded reports whether replicated data has arrived.
func (t *ExperienceTable) Loaded() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.loaded
}

// ExpForLevel returns the cumulative experience required to hold lvl.
func (t *ExperienceTable) ExpForLevel(lvl int) int64 {
	if lvl < 1 {
		lvl = 1
	}
	if lvl > MaxLevel {
		lvl = MaxLevel
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.byLvl[lvl]
}

// LevelForExp returns the highest level whose requirement is within
// exp, clamped to MaxLevel.
func (t *ExperienceTable) LevelForExp(exp int64) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	lvl := 1
	for l := 2; l <= MaxLevel; l++ {
		if t.byLvl[l] > exp {
			break
		}
		lvl = l
	}
	return lvl
}
