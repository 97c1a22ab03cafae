package txbuilder

import (
	"sort"

	"github.com/btcsuite/btcd/txscript"

	"github.com/babylonlabs-io/vault-sdk/types"
)

// DustAmount is the smallest change output the builder will create.
// Anything below it is folded into the fee instead of producing an
// uneconomical output.
const DustAmount uint64 = 546

// SelectUtxos picks utxos funding a peg-in of the given amount at the given
// fee rate. This is the authoritative selection mode: spendable utxos are
// sorted descending by amount and accumulated, recomputing the fee after
// every added input until the selection covers amount + fee.
//
// The returned selection always satisfies
// sum(selected) == amount + fee + change exactly.
func SelectUtxos(
	available []types.Utxo, amount, satPerVByte uint64,
) (*types.FundingSelection, error) {
	spendable := spendableUtxos(available)
	if len(spendable) == 0 {
		return nil, &InsufficientFundsError{Need: amount}
	}

	sort.SliceStable(spendable, func(i, j int) bool {
		return spendable[i].Amount > spendable[j].Amount
	})

	var total uint64
	for count := 1; count <= len(spendable); count++ {
		total += spendable[count-1].Amount

		// one vault output plus a change output.
		fee := EstimateFee(count, 2, satPerVByte)
		if total < amount+fee {
			continue
		}

		selection := &types.FundingSelection{
			Utxos:  spendable[:count],
			Fee:    fee,
			Change: total - amount - fee,
		}
		foldDustChange(selection)
		return selection, nil
	}

	maxFee := EstimateFee(len(spendable), 2, satPerVByte)
	return nil, &InsufficientFundsError{
		Need:        amount + maxFee,
		Have:        total,
		LargestUtxo: spendable[0].Amount,
	}
}

// SelectUtxosMaxFee is the O(n) selection mode: a single accumulation pass
// against a conservative maximum fee computed as if every spendable utxo
// were used and a change output existed. It can pick a different (larger)
// set than SelectUtxos for the same inputs and always charges the bound,
// not the exact fee.
func SelectUtxosMaxFee(
	available []types.Utxo, amount, satPerVByte uint64,
) (*types.FundingSelection, error) {
	spendable := spendableUtxos(available)
	if len(spendable) == 0 {
		return nil, &InsufficientFundsError{Need: amount}
	}

	sort.SliceStable(spendable, func(i, j int) bool {
		return spendable[i].Amount > spendable[j].Amount
	})

	maxFee := MaxFee(len(spendable), satPerVByte)

	var total uint64
	for count := 1; count <= len(spendable); count++ {
		total += spendable[count-1].Amount
		if total < amount+maxFee {
			continue
		}

		selection := &types.FundingSelection{
			Utxos:  spendable[:count],
			Fee:    maxFee,
			Change: total - amount - maxFee,
		}
		foldDustChange(selection)
		return selection, nil
	}

	return nil, &InsufficientFundsError{
		Need:        amount + maxFee,
		Have:        total,
		LargestUtxo: spendable[0].Amount,
	}
}

// spendableUtxos filters out unconfirmed outputs and script types the
// depositor wallet cannot sign for.
func spendableUtxos(utxos []types.Utxo) []types.Utxo {
	spendable := make([]types.Utxo, 0, len(utxos))
	for _, utxo := range utxos {
		if !utxo.Confirmed {
			continue
		}

		switch txscript.GetScriptClass(utxo.Script) {
		case txscript.WitnessV1TaprootTy, txscript.WitnessV0PubKeyHashTy:
			spendable = append(spendable, utxo)
		}
	}
	return spendable
}

func foldDustChange(selection *types.FundingSelection) {
	if selection.Change > 0 && selection.Change < DustAmount {
		selection.Fee += selection.Change
		selection.Change = 0
	}
}
