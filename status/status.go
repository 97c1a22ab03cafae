// Package status derives the display state and the single legal next
// action for a peg-in from its on-chain status and the locally cached
// flags. It is the single source of truth for permitted transitions; the
// embedding product treats any other action as disabled.
package status

import "github.com/babylonlabs-io/vault-sdk/types"

// NextAction is the at-most-one action permitted in the current state.
type NextAction int

const (
	ActionNone NextAction = iota
	ActionSignPayouts
	ActionSignAndBroadcast
	ActionRedeem
)

func (a NextAction) String() string {
	switch a {
	case ActionSignPayouts:
		return "SIGN_PAYOUTS"
	case ActionSignAndBroadcast:
		return "SIGN_AND_BROADCAST"
	case ActionRedeem:
		return "REDEEM"
	default:
		return "NONE"
	}
}

type Variant string

const (
	VariantNeutral Variant = "neutral"
	VariantPending Variant = "pending"
	VariantSuccess Variant = "success"
	VariantError   Variant = "error"
)

// Display is what the embedding UI renders for a vault.
type Display struct {
	Label      string
	Variant    Variant
	Message    string
	NextAction NextAction
}

// Flags are the local-only overlays tracked between local signing and
// on-chain visibility. They are reconciled away once the on-chain status
// advances.
type Flags struct {
	PayoutsSigned bool
	Broadcasting  bool
}

// Derive is a pure function of the on-chain status and local flags.
// Transitions are monotonic forward except Expired, which external
// liquidation can reach from any non-terminal state.
func Derive(vaultStatus types.VaultStatus, flags Flags) Display {
	switch vaultStatus {
	case types.VaultStatusPending:
		if flags.PayoutsSigned {
			return Display{
				Label:   "Confirming",
				Variant: VariantPending,
				Message: "payout signatures submitted, awaiting provider verification",
			}
		}
		return Display{
			Label:      "Pending",
			Variant:    VariantPending,
			Message:    "payout transactions must be co-signed",
			NextAction: ActionSignPayouts,
		}

	case types.VaultStatusVerified:
		if flags.Broadcasting {
			return Display{
				Label:   "Broadcasting",
				Variant: VariantPending,
				Message: "peg-in broadcast, awaiting confirmation",
			}
		}
		return Display{
			Label:      "Verified",
			Variant:    VariantNeutral,
			Message:    "peg-in ready to be signed and broadcast",
			NextAction: ActionSignAndBroadcast,
		}

	case types.VaultStatusAvailable:
		if flags.Broadcasting {
			return Display{
				Label:   "Broadcasting",
				Variant: VariantPending,
				Message: "redeem transaction broadcast, awaiting confirmation",
			}
		}
		return Display{
			Label:      "Available",
			Variant:    VariantSuccess,
			NextAction: ActionRedeem,
		}

	case types.VaultStatusInPosition:
		return Display{
			Label:   "In Position",
			Variant: VariantNeutral,
			Message: "collateral is in use and cannot be redeemed",
		}

	case types.VaultStatusExpired:
		return Display{
			Label:   "Expired",
			Variant: VariantError,
			Message: "vault was liquidated",
		}

	default:
		return Display{
			Label:   vaultStatus.String(),
			Variant: VariantNeutral,
		}
	}
}
