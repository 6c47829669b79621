package protocol

// Machine-readable error codes returned in ErrorBody for validation
// failures. Clients branch on these, messages are for humans.
const (
	CodeInvalidRequest    = "INVALID_REQUEST"
	CodeInternalError     = "INTERNAL_ERROR"
	CodeClientNotFound    = "CLIENT_NOT_FOUND"
	CodeCharacterNotFound = "CHARACTER_NOT_FOUND"

	CodeSkillNotFound   = "SKILL_NOT_FOUND"
	CodeSkillOnCooldown = "SKILL_ON_COOLDOWN"
	CodeNotEnoughMana   = "NOT_ENOUGH_MANA"
	CodeInvalidTarget   = "INVALID_TARGET"
	CodeTargetNotFound  = "TARGET_NOT_FOUND"
	CodeOutOfRange      = "OUT_OF_RANGE"
	CodeAlreadyCasting  = "ALREADY_CASTING"

	CodeCorpseNotFound     = "CORPSE_NOT_FOUND"
	CodeCorpseNotAvailable = "CORPSE_NOT_AVAILABLE"
	CodeCorpseNotHarvested = "CORPSE_NOT_HARVESTED"
	CodeHarvestFailed      = "HARVEST_FAILED"
	CodeNotYourHarvest     = "NOT_YOUR_HARVEST"
	CodeSecurityViolation  = "SECURITY_VIOLATION"

	CodeItemNotFound = "ITEM_NOT_FOUND"
	CodePickupFailed = "PICKUP_FAILED"
	CodeZoneNotFound = "ZONE_NOT_FOUND"
)
