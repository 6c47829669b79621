package model

// Chunk describes the spatial partition this server instance owns.
// Replicated from the game server on link handshake.
type Chunk struct {
	ID     int64    `json:"id"`
	Name   string   `json:"name"`
	Origin Position `json:"origin"`
	Size   Extent   `json:"size"`
}

// ExpLevel is one row of the experience table: the cumulative experience
// required to reach Level.
type ExpLevel struct {
	Level         int   `json:"level"`
	CumulativeExp int64 `json:"exp"`
}
