package notify

import "github.com/amethyx/accessbot/internal/database/types"

// State selects the notification template.
type State string

const (
	StateAdded         State = "added"
	StateEmulator      State = "emulator"
	StatePaperReceipts State = "paper_receipts"
	StateFullPackage   State = "full_package"
	StateRemoved       State = "removed"
)

// Valid reports whether the state has a template.
func (s State) Valid() bool {
	switch s {
	case StateAdded, StateEmulator, StatePaperReceipts, StateFullPackage, StateRemoved:
		return true
	default:
		return false
	}
}

// StateForTier maps a granted tier to its template. Tiers without their own
// template use the generic added state.
func StateForTier(tier types.Tier) State {
	switch tier {
	case types.TierEmulator:
		return StateEmulator
	case types.TierPaperReceipts:
		return StatePaperReceipts
	case types.TierFullPackage:
		return StateFullPackage
	case types.TierEmailGenerator, types.TierRevoked:
		return StateAdded
	default:
		return StateAdded
	}
}
