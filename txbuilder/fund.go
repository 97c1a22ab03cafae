package txbuilder

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/babylonlabs-io/vault-sdk/types"
)

// BuildPeginTx extends the externally built zero-input skeleton with the
// selected funding inputs and an optional change output, and returns the
// unsigned transaction together with the wallet-facing PSBT. The vault
// output is carried over untouched. The returned txid is the expected one;
// it changes once the wallet signs.
func BuildPeginTx(
	skeleton types.PeginSkeleton,
	selection types.FundingSelection,
	changeAddress string,
	netParams *chaincfg.Params,
) (*types.UnsignedPegin, error) {
	tx := &wire.MsgTx{}
	// a zero-input tx is ambiguous under witness decoding (the empty input
	// count reads as the segwit marker), so the skeleton is decoded without
	// witness support.
	if err := tx.DeserializeNoWitness(hex.NewDecoder(strings.NewReader(skeleton.TxHex))); err != nil {
		return nil, fmt.Errorf("failed to decode pegin skeleton: %w", err)
	}

	if len(tx.TxIn) != 0 {
		return nil, fmt.Errorf("pegin skeleton must have no inputs, got %d", len(tx.TxIn))
	}
	if len(tx.TxOut) == 0 {
		return nil, fmt.Errorf("pegin skeleton must carry the vault output")
	}

	for _, utxo := range selection.Utxos {
		utxoHash, err := chainhash.NewHashFromStr(utxo.Txid)
		if err != nil {
			return nil, fmt.Errorf("invalid funding utxo %s: %w", utxo, err)
		}

		tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(utxoHash, utxo.VOut), nil, nil))
	}

	if selection.Change > 0 {
		changeAddr, err := btcutil.DecodeAddress(changeAddress, netParams)
		if err != nil {
			return nil, fmt.Errorf("invalid change address: %w", err)
		}

		changeScript, err := txscript.PayToAddrScript(changeAddr)
		if err != nil {
			return nil, err
		}

		tx.AddTxOut(wire.NewTxOut(int64(selection.Change), changeScript))
	}

	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		return nil, err
	}

	psbtHex, err := buildPeginPsbt(tx, selection.Utxos)
	if err != nil {
		return nil, err
	}

	return &types.UnsignedPegin{
		TxHex:     hex.EncodeToString(buf.Bytes()),
		PsbtHex:   psbtHex,
		Txid:      tx.TxHash().String(),
		Selection: selection,
	}, nil
}

// buildPeginPsbt wraps the funded transaction into a PSBT carrying the
// witness utxo of every funding input, so the wallet can sign without
// additional lookups.
func buildPeginPsbt(tx *wire.MsgTx, utxos []types.Utxo) (string, error) {
	unsignedTx := tx.Copy()
	packet, err := psbt.NewFromUnsignedTx(unsignedTx)
	if err != nil {
		return "", err
	}

	updater, err := psbt.NewUpdater(packet)
	if err != nil {
		return "", err
	}

	for i, utxo := range utxos {
		prevout := wire.NewTxOut(int64(utxo.Amount), utxo.Script)
		if err := updater.AddInWitnessUtxo(prevout, i); err != nil {
			return "", err
		}

		sighashType := txscript.SigHashAll
		if txscript.GetScriptClass(utxo.Script) == txscript.WitnessV1TaprootTy {
			sighashType = txscript.SigHashDefault
		}
		if err := updater.AddInSighashType(sighashType, i); err != nil {
			return "", err
		}
	}

	var buf bytes.Buffer
	if err := packet.Serialize(&buf); err != nil {
		return "", err
	}

	return hex.EncodeToString(buf.Bytes()), nil
}
