package model

import "math"

// Position is a point in chunk space plus a facing angle in degrees.
// Value type, passed by value.
type Position struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Z    float64 `json:"z"`
	RotZ float64 `json:"rotZ"`
}

// DistanceXY returns the euclidean distance to other in the XY plane.
// Gameplay range checks ignore Z: chunk space is effectively planar.
func (p Position) DistanceXY(other Position) float64 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// WithXY returns a copy with updated XY coordinates.
func (p Position) WithXY(x, y float64) Position {
	p.X = x
	p.Y = y
	return p
}
