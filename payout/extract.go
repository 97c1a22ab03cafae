package payout

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/wire"

	"github.com/babylonlabs-io/vault-sdk/types"
)

// ErrSignatureExtraction is returned when the wallet response carries no
// recognizable script-path signature for the depositor. Fatal for the
// attempt, safe to retry with the same inputs.
var ErrSignatureExtraction = errors.New("no depositor script-path signature in wallet response")

// maxWitnessItemSize bounds a single parsed witness element.
const maxWitnessItemSize = 500_000

// extractSignature pulls the depositor's schnorr signature out of the
// wallet response. Wallets differ: some return the PSBT with the
// script-path signature slot populated, some finalize the input in place,
// and some hand back a fully signed raw transaction. A key-path signature
// means the wallet signed the wrong message entirely and is rejected.
func extractSignature(
	signedHex string, depositor types.XOnlyKey, leafHash [32]byte,
) ([64]byte, error) {
	raw, err := hex.DecodeString(signedHex)
	if err != nil {
		return [64]byte{}, fmt.Errorf("%w: response is not valid hex", ErrSignatureExtraction)
	}

	if packet, err := psbt.NewFromRawBytes(bytes.NewReader(raw), false); err == nil {
		return extractFromPsbt(packet, depositor, leafHash)
	}

	tx := &wire.MsgTx{}
	if err := tx.Deserialize(bytes.NewReader(raw)); err != nil {
		return [64]byte{}, fmt.Errorf("%w: response is neither a psbt nor a transaction", ErrSignatureExtraction)
	}

	if len(tx.TxIn) == 0 || len(tx.TxIn[0].Witness) == 0 {
		return [64]byte{}, ErrSignatureExtraction
	}

	return signatureFromWitness(tx.TxIn[0].Witness)
}

func extractFromPsbt(
	packet *psbt.Packet, depositor types.XOnlyKey, leafHash [32]byte,
) ([64]byte, error) {
	if len(packet.Inputs) == 0 {
		return [64]byte{}, ErrSignatureExtraction
	}
	input := packet.Inputs[0]

	// unfinalized script-path slot keyed by the depositor key.
	for _, tapSig := range input.TaprootScriptSpendSig {
		if !bytes.Equal(tapSig.XOnlyPubKey, depositor[:]) {
			continue
		}
		if len(tapSig.LeafHash) > 0 && !bytes.Equal(tapSig.LeafHash, leafHash[:]) {
			return [64]byte{}, fmt.Errorf(
				"%w: wallet signed leaf %x, expected %x",
				ErrSignatureExtraction, tapSig.LeafHash, leafHash,
			)
		}
		return normalizeSignature(tapSig.Signature)
	}

	if len(input.FinalScriptWitness) > 0 {
		witness, err := parseWitness(input.FinalScriptWitness)
		if err != nil {
			return [64]byte{}, fmt.Errorf("%w: %s", ErrSignatureExtraction, err)
		}
		return signatureFromWitness(witness)
	}

	if len(input.TaprootKeySpendSig) > 0 {
		return [64]byte{}, fmt.Errorf(
			"%w: wallet produced a key-path signature, expected script-path",
			ErrSignatureExtraction,
		)
	}

	return [64]byte{}, ErrSignatureExtraction
}

// signatureFromWitness reads the depositor signature from witness element 0
// of a finalized input. A single-element witness is a key-path spend, which
// signs a different message and must not be accepted.
func signatureFromWitness(witness wire.TxWitness) ([64]byte, error) {
	if len(witness) == 1 {
		return [64]byte{}, fmt.Errorf(
			"%w: single-element witness indicates a key-path spend",
			ErrSignatureExtraction,
		)
	}

	return normalizeSignature(witness[0])
}

// normalizeSignature reduces a schnorr signature to exactly 64 bytes. A
// 65th trailing sighash-flag byte is permitted only as 0x00
// (SIGHASH_DEFAULT) or 0x01 (SIGHASH_ALL) and then discarded; any other
// shape is a hard error.
func normalizeSignature(sig []byte) ([64]byte, error) {
	var out [64]byte

	switch len(sig) {
	case 64:
	case 65:
		if sig[64] != 0x00 && sig[64] != 0x01 {
			return out, fmt.Errorf(
				"%w: unsupported sighash flag byte 0x%02x", ErrSignatureExtraction, sig[64],
			)
		}
	default:
		return out, fmt.Errorf(
			"%w: signature is %d bytes, expected 64 or 65", ErrSignatureExtraction, len(sig),
		)
	}

	copy(out[:], sig[:64])
	return out, nil
}

func parseWitness(serialized []byte) (wire.TxWitness, error) {
	r := bytes.NewReader(serialized)

	count, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return nil, err
	}

	witness := make(wire.TxWitness, 0, count)
	for i := uint64(0); i < count; i++ {
		item, err := wire.ReadVarBytes(r, 0, maxWitnessItemSize, "witness item")
		if err != nil {
			return nil, err
		}
		witness = append(witness, item)
	}

	return witness, nil
}
