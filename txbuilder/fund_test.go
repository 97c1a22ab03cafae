package txbuilder_test

import (
	"bytes"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"

	"github.com/babylonlabs-io/vault-sdk/txbuilder"
	"github.com/babylonlabs-io/vault-sdk/types"
)

func testSkeleton(t *testing.T, vaultValue uint64) types.PeginSkeleton {
	t.Helper()

	vaultScript := p2trScript(t)

	tx := &wire.MsgTx{Version: 2}
	tx.AddTxOut(wire.NewTxOut(int64(vaultValue), vaultScript))

	var buf bytes.Buffer
	require.NoError(t, tx.Serialize(&buf))

	return types.PeginSkeleton{
		TxHex:             hex.EncodeToString(buf.Bytes()),
		Txid:              tx.TxHash().String(),
		VaultScriptPubKey: vaultScript,
		VaultValue:        vaultValue,
	}
}

func testChangeAddress(t *testing.T) string {
	t.Helper()

	key, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	addr, err := btcutil.NewAddressTaproot(
		schnorr.SerializePubKey(key.PubKey()), &chaincfg.RegressionNetParams,
	)
	require.NoError(t, err)
	return addr.EncodeAddress()
}

func TestBuildPeginTx(t *testing.T) {
	skeleton := testSkeleton(t, 100_000)
	selection := types.FundingSelection{
		Utxos: []types.Utxo{
			confirmedUtxo(t, "1111111111111111111111111111111111111111111111111111111111111111", 80_000),
			confirmedUtxo(t, "2222222222222222222222222222222222222222222222222222222222222222", 40_000),
		},
		Fee:    1_000,
		Change: 19_000,
	}

	unsigned, err := txbuilder.BuildPeginTx(
		skeleton, selection, testChangeAddress(t), &chaincfg.RegressionNetParams,
	)
	require.NoError(t, err)

	tx := &wire.MsgTx{}
	require.NoError(t, tx.Deserialize(hex.NewDecoder(strings.NewReader(unsigned.TxHex))))

	require.Len(t, tx.TxIn, 2)
	for i, utxo := range selection.Utxos {
		require.Equal(t, utxo.Txid, tx.TxIn[i].PreviousOutPoint.Hash.String())
		require.Equal(t, utxo.VOut, tx.TxIn[i].PreviousOutPoint.Index)
	}

	// vault output untouched at index 0, change appended.
	require.Len(t, tx.TxOut, 2)
	require.Equal(t, skeleton.VaultScriptPubKey, tx.TxOut[0].PkScript)
	require.EqualValues(t, 100_000, tx.TxOut[0].Value)
	require.EqualValues(t, 19_000, tx.TxOut[1].Value)

	require.Equal(t, tx.TxHash().String(), unsigned.Txid)
	require.Equal(t, selection, unsigned.Selection)

	// the psbt carries a witness utxo per input with taproot sighash.
	raw, err := hex.DecodeString(unsigned.PsbtHex)
	require.NoError(t, err)
	packet, err := psbt.NewFromRawBytes(bytes.NewReader(raw), false)
	require.NoError(t, err)
	require.Len(t, packet.Inputs, 2)
	for i, utxo := range selection.Utxos {
		require.NotNil(t, packet.Inputs[i].WitnessUtxo)
		require.EqualValues(t, utxo.Amount, packet.Inputs[i].WitnessUtxo.Value)
		require.Equal(t, utxo.Script, packet.Inputs[i].WitnessUtxo.PkScript)
		require.Equal(t, txscript.SigHashDefault, packet.Inputs[i].SighashType)
	}
}

func TestBuildPeginTxDeterministic(t *testing.T) {
	skeleton := testSkeleton(t, 50_000)
	changeAddr := testChangeAddress(t)
	selection := types.FundingSelection{
		Utxos: []types.Utxo{
			confirmedUtxo(t, "1111111111111111111111111111111111111111111111111111111111111111", 60_000),
		},
		Fee:    500,
		Change: 9_500,
	}

	first, err := txbuilder.BuildPeginTx(skeleton, selection, changeAddr, &chaincfg.RegressionNetParams)
	require.NoError(t, err)
	second, err := txbuilder.BuildPeginTx(skeleton, selection, changeAddr, &chaincfg.RegressionNetParams)
	require.NoError(t, err)

	require.Equal(t, first.TxHex, second.TxHex)
	require.Equal(t, first.PsbtHex, second.PsbtHex)
	require.Equal(t, first.Txid, second.Txid)
}

func TestBuildPeginTxNoChange(t *testing.T) {
	skeleton := testSkeleton(t, 100_000)
	selection := types.FundingSelection{
		Utxos: []types.Utxo{
			confirmedUtxo(t, "1111111111111111111111111111111111111111111111111111111111111111", 101_000),
		},
		Fee: 1_000,
	}

	unsigned, err := txbuilder.BuildPeginTx(
		skeleton, selection, "", &chaincfg.RegressionNetParams,
	)
	require.NoError(t, err)

	tx := &wire.MsgTx{}
	require.NoError(t, tx.Deserialize(hex.NewDecoder(strings.NewReader(unsigned.TxHex))))
	require.Len(t, tx.TxOut, 1)
}

func TestBuildPeginTxRejectsBadSkeleton(t *testing.T) {
	changeAddr := testChangeAddress(t)
	selection := types.FundingSelection{
		Utxos: []types.Utxo{
			confirmedUtxo(t, "1111111111111111111111111111111111111111111111111111111111111111", 10_000),
		},
	}

	t.Run("skeleton with inputs", func(t *testing.T) {
		tx := &wire.MsgTx{Version: 2}
		tx.AddTxIn(wire.NewTxIn(&wire.OutPoint{}, nil, nil))
		tx.AddTxOut(wire.NewTxOut(1_000, p2trScript(t)))

		var buf bytes.Buffer
		require.NoError(t, tx.Serialize(&buf))

		_, err := txbuilder.BuildPeginTx(
			types.PeginSkeleton{TxHex: hex.EncodeToString(buf.Bytes())},
			selection, changeAddr, &chaincfg.RegressionNetParams,
		)
		require.ErrorContains(t, err, "must have no inputs")
	})

	t.Run("skeleton without outputs", func(t *testing.T) {
		tx := &wire.MsgTx{Version: 2}

		var buf bytes.Buffer
		require.NoError(t, tx.Serialize(&buf))

		_, err := txbuilder.BuildPeginTx(
			types.PeginSkeleton{TxHex: hex.EncodeToString(buf.Bytes())},
			selection, changeAddr, &chaincfg.RegressionNetParams,
		)
		require.ErrorContains(t, err, "vault output")
	})

	t.Run("invalid change address", func(t *testing.T) {
		_, err := txbuilder.BuildPeginTx(
			testSkeleton(t, 1_000),
			types.FundingSelection{Utxos: selection.Utxos, Change: 5_000},
			"not-an-address", &chaincfg.RegressionNetParams,
		)
		require.ErrorContains(t, err, "invalid change address")
	})
}
