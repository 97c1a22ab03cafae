package connector

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/babylonlabs-io/vault-sdk/types"
)

// ErrMissingCounterpartyData is returned when the vault provider supplied
// no canonical liquidator ordering and the lexicographic fallback is not
// enabled. It indicates a configuration gap, not a transient failure.
var ErrMissingCounterpartyData = errors.New("missing canonical liquidator ordering from vault provider")

// ResolveLiquidatorOrder returns the liquidator keys in the canonical order
// the payout script was generated with. If the provider supplied the order
// (graph response) it is validated to be a permutation of the known keys
// and used as is. Otherwise, when allowFallback is set, the keys are sorted
// lexicographically by their raw 32 bytes. This mirrors the provider's
// server-side behavior and is a cross-system contract, not a local
// invention; changing it desynchronizes every leaf hash.
func ResolveLiquidatorOrder(
	canonical, keys []types.XOnlyKey, allowFallback bool,
) ([]types.XOnlyKey, error) {
	if len(canonical) > 0 {
		if !samePermutation(canonical, keys) {
			return nil, fmt.Errorf(
				"canonical liquidator ordering does not match known liquidator keys",
			)
		}
		return canonical, nil
	}

	if !allowFallback {
		return nil, ErrMissingCounterpartyData
	}

	sorted := make([]types.XOnlyKey, len(keys))
	copy(sorted, keys)
	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i][:], sorted[j][:]) < 0
	})

	return sorted, nil
}

func samePermutation(a, b []types.XOnlyKey) bool {
	if len(a) != len(b) {
		return false
	}

	seen := make(map[types.XOnlyKey]int, len(a))
	for _, key := range a {
		seen[key]++
	}
	for _, key := range b {
		seen[key]--
		if seen[key] < 0 {
			return false
		}
	}
	for _, count := range seen {
		if count != 0 {
			return false
		}
	}
	return true
}
