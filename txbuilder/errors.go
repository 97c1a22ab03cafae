package txbuilder

import (
	"errors"
	"fmt"
)

// ErrInsufficientFunds is matched by errors.Is against any
// *InsufficientFundsError.
var ErrInsufficientFunds = errors.New("insufficient funds")

// InsufficientFundsError reports that no utxo subset covers the peg-in
// amount plus fee. Shortfall and the largest single available utxo are
// carried for user messaging; the condition is recoverable by user action
// only, never by retry.
type InsufficientFundsError struct {
	Need        uint64
	Have        uint64
	LargestUtxo uint64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf(
		"insufficient funds: need %d sats, have %d sats (largest utxo %d sats)",
		e.Need, e.Have, e.LargestUtxo,
	)
}

func (e *InsufficientFundsError) Unwrap() error {
	return ErrInsufficientFunds
}

// Shortfall returns how many satoshis are missing.
func (e *InsufficientFundsError) Shortfall() uint64 {
	if e.Have >= e.Need {
		return 0
	}
	return e.Need - e.Have
}
