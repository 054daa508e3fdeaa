package protocol

// Rejection codes. A rejected action is always answered with an explicit
// unicast carrying one of these, never silently dropped.
const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Movement.
	ErrOutOfBounds = "E_OUT_OF_BOUNDS"
	ErrTooFast     = "E_TOO_FAST"
	ErrBlocked     = "E_BLOCKED"

	// Combat.
	ErrCooldown      = "E_COOLDOWN"
	ErrOutOfRange    = "E_OUT_OF_RANGE"
	ErrDead          = "E_DEAD"
	ErrInvalidTarget = "E_INVALID_TARGET"

	// Items.
	ErrUnknownItem   = "E_UNKNOWN_ITEM"
	ErrInventoryFull = "E_INVENTORY_FULL"
	ErrNoEmptySlot   = "E_NO_EMPTY_SLOT"
	ErrNotConsumable = "E_NOT_CONSUMABLE"
	ErrNotEquippable = "E_NOT_EQUIPPABLE"
	ErrNotEquipped   = "E_NOT_EQUIPPED"

	// Anti-cheat.
	ErrRateLimit = "E_RATE_LIMIT"

	ErrInternal = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrOutOfBounds:     {},
	ErrTooFast:         {},
	ErrBlocked:         {},
	ErrCooldown:        {},
	ErrOutOfRange:      {},
	ErrDead:            {},
	ErrInvalidTarget:   {},
	ErrUnknownItem:     {},
	ErrInventoryFull:   {},
	ErrNoEmptySlot:     {},
	ErrNotConsumable:   {},
	ErrNotEquippable:   {},
	ErrNotEquipped:     {},
	ErrRateLimit:       {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
