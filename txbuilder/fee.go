package txbuilder

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/lightningnetwork/lnd/input"
	"github.com/lightningnetwork/lnd/lntypes"
	"github.com/lightningnetwork/lnd/lnwallet/chainfee"
)

// EstimateFee returns the fee in satoshis for a transaction with the given
// shape at the given fee rate in sat/vbyte. Inputs are counted as taproot
// key spends and outputs as P2TR, which is what the depositor wallet and
// the vault output produce.
func EstimateFee(numInputs, numOutputs int, satPerVByte uint64) uint64 {
	txWeightEstimator := &input.TxWeightEstimator{}

	for i := 0; i < numInputs; i++ {
		txWeightEstimator.AddTaprootKeySpendInput(txscript.SigHashDefault)
	}
	for i := 0; i < numOutputs; i++ {
		txWeightEstimator.AddP2TROutput()
	}

	feeRate := chainfee.SatPerKVByte(satPerVByte * 1000)
	return uint64(feeRate.FeeForVSize(lntypes.VByte(txWeightEstimator.VSize())).ToUnit(btcutil.AmountSatoshi))
}

// MaxFee returns a conservative fee bound for funding a peg-in with up to
// numInputs inputs, assuming the vault output plus a change output. Used by
// the single-pass selection mode before the exact input count is known.
func MaxFee(numInputs int, satPerVByte uint64) uint64 {
	return EstimateFee(numInputs, 2, satPerVByte)
}
