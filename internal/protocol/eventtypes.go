package protocol

// Client-originated event types (header.eventType on ingress).
const (
	EvJoinGameClient         = "joinGameClient"
	EvJoinGameCharacter      = "joinGameCharacter"
	EvMoveCharacter          = "moveCharacter"
	EvDisconnectClient       = "disconnectClient"
	EvPingClient             = "pingClient"
	EvGetSpawnZones          = "getSpawnZones"
	EvGetConnectedCharacters = "getConnectedCharacters"
	EvSpawnMobs              = "spawnMobs"
	EvPlayerAttack           = "playerAttack"
	EvInterruptCombatAction  = "interruptCombatAction"
	EvPickupDroppedItem      = "pickupDroppedItem"
	EvGetNearbyItems         = "getNearbyItems"
	EvGetPlayerInventory     = "getPlayerInventory"
	EvHarvestStart           = "harvestStart"
	EvHarvestCancel          = "harvestCancel"
	EvGetNearbyCorpses       = "getNearbyCorpses"
	EvCorpseLootPickup       = "corpseLootPickup"
	EvCorpseLootInspect      = "corpseLootInspect"
)

// Game-server link event types, both directions.
const (
	EvChunkServerConnection  = "chunkServerConnection"
	EvCharacterStateUpdate   = "characterStateUpdate"
	EvSetChunkData           = "setChunkData"
	EvSetCharacterData       = "setCharacterData"
	EvSetCharacterAttributes = "setCharacterAttributes"
	EvSetAllSpawnZones       = "setAllSpawnZones"
	EvSetAllMobsList         = "setAllMobsList"
	EvSetAllMobsAttributes   = "setAllMobsAttributes"
	EvSetAllMobsSkills       = "setAllMobsSkills"
	EvSetAllItemsList        = "setAllItemsList"
	EvSetMobLootInfo         = "setMobLootInfo"
	EvSetExpLevelTable       = "setExpLevelTable"
)

// Server-initiated event types: broadcasts and pushed updates.
const (
	EvInitializePlayerSkills   = "initializePlayerSkills"
	EvCharacterJoined          = "characterJoined"
	EvCharacterLeft            = "characterLeft"
	EvExperienceUpdate         = "experience_update"
	EvLevelUp                  = "levelUp"
	EvStatsUpdate              = "stats_update"
	EvItemDrop                 = "itemDrop"
	EvNearbyItems              = "nearbyItems"
	EvInventoryUpdate          = "inventoryUpdate"
	EvHarvestStartBroadcast    = "harvestStartBroadcast"
	EvHarvestCompleteBroadcast = "harvestCompleteBroadcast"
	EvHarvestCancelBroadcast   = "harvestCancelBroadcast"
	EvMobsSpawned              = "mobsSpawned"
	EvMobsMoved                = "mobsMoved"
	EvCombatAnimation          = "combatAnimation"
)
