// Package world holds the authoritative runtime state of one chunk:
// connected clients, characters, mob instances, spawn zones, the item
// catalog, inventories, ground loot and harvest corpses. Every registry
// is guarded by its own reader-writer lock and hands out copies, never
// references into the maps.
package world

import "sync/atomic"

// UID generators, unique per process lifetime. Ranges keep entity ids
// recognizable in logs: mobs from 100000, ground drops from 500000.
// These atomics are the only package-level mutable state in the server.
var (
	mobUID         atomic.Int64
	droppedItemUID atomic.Int64
)

func init() {
	mobUID.Store(100000)
	droppedItemUID.Store(500000)
}

// NextMobUID returns a fresh mob instance uid.
func NextMobUID() int64 {
	return mobUID.Add(1)
}

// NextDroppedItemUID returns a fresh ground drop uid.
func NextDroppedItemUID() int64 {
	return droppedItemUID.Add(1)
}
