package model

import (
	"math"
	"time"
)

// Extent is the size of an axis-aligned box.
type Extent struct {
	X float64 `json:"sx"`
	Y float64 `json:"sy"`
	Z float64 `json:"sz"`
}

// SpawnZone maintains a population of a single mob template inside an
// axis-aligned box around Center. SpawnedCount and SpawnedMobs are live
// counters owned by the zone registry.
type SpawnZone struct {
	ZoneID          int64   `json:"zoneId"`
	Name            string  `json:"name"`
	Center          Position `json:"center"`
	Size            Extent   `json:"size"`
	SpawnMobID      int64   `json:"spawnMobId"`
	SpawnCount      int     `json:"spawnCount"`
	RespawnTimeSec  int64   `json:"respawnTime"`
	MinMoveDistance float64 `json:"minMoveDistance,omitempty"`
	MinSeparation   float64 `json:"minSeparationDistance,omitempty"`
	AggroDisabled   bool    `json:"aggroDisabled,omitempty"`

	SpawnedCount  int       `json:"spawnedCount"`
	SpawnedMobs   []int64   `json:"-"`
	NextRespawnAt time.Time `json:"-"`
}

// Clone returns an independent deep copy.
func (z *SpawnZone) Clone() *SpawnZone {
	if z == nil {
		return nil
	}
	out := *z
	out.SpawnedMobs = append([]int64(nil), z.SpawnedMobs...)
	return &out
}

// Bounds returns the XY corners of the zone box.
func (z *SpawnZone) Bounds() (minX, minY, maxX, maxY float64) {
	minX = z.Center.X - z.Size.X/2
	maxX = z.Center.X + z.Size.X/2
	minY = z.Center.Y - z.Size.Y/2
	maxY = z.Center.Y + z.Size.Y/2
	return
}

// ContainsXY reports whether the XY point lies inside the zone box.
func (z *SpawnZone) ContainsXY(x, y float64) bool {
	minX, minY, maxX, maxY := z.Bounds()
	return x >= minX && x <= maxX && y >= minY && y <= maxY
}

// ClampXY clamps the XY point into the zone box.
func (z *SpawnZone) ClampXY(x, y float64) (float64, float64) {
	minX, minY, maxX, maxY := z.Bounds()
	return math.Min(math.Max(x, minX), maxX), math.Min(math.Max(y, minY), maxY)
}

// BorderDistanceXY returns the distance from an inside point to the
// nearest zone border. Points outside the box return a negative value.
func (z *SpawnZone) BorderDistanceXY(x, y float64) float64 {
	minX, minY, maxX, maxY := z.Bounds()
	return math.Min(
		math.Min(x-minX, maxX-x),
		math.Min(y-minY, maxY-y),
	)
}
