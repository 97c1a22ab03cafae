package payout

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	log "github.com/sirupsen/logrus"

	"github.com/babylonlabs-io/vault-sdk/connector"
	"github.com/babylonlabs-io/vault-sdk/types"
	"github.com/babylonlabs-io/vault-sdk/wallet"
)

// SignRequest carries one claimer's draft payout transaction together with
// the transactions funding its inputs: the original peg-in (vault output)
// and the claimer's claim transaction.
type SignRequest struct {
	PayoutTxHex string
	PeginTxHex  string
	ClaimTxHex  string
	Keys        types.ParticipantKeySet
}

// SignResult is the extracted depositor signature. Verified reports the
// outcome of the local BIP-341 self-check. A false value is a strong signal
// of a wallet/script mismatch but does not block submission, the network
// is the final arbiter.
type SignResult struct {
	Signature [64]byte
	LeafHash  [32]byte
	Verified  bool
}

// Signer co-signs payout transactions via the depositor wallet. It
// reconstructs the vault's script-path spending conditions independently of
// any cached data, exposes them to the wallet through a PSBT, and extracts
// and self-verifies the resulting schnorr signature.
type Signer struct {
	wallet wallet.Signer
}

func NewSigner(walletSvc wallet.Signer) *Signer {
	return &Signer{wallet: walletSvc}
}

// Sign runs the full co-signing flow for a single claimer. The only
// suspension point is the wallet round-trip; a failed attempt leaves no
// state behind and is safe to retry with the same inputs.
func (s *Signer) Sign(ctx context.Context, req SignRequest) (*SignResult, error) {
	conn, err := connector.NewPayoutConnector(req.Keys)
	if err != nil {
		return nil, fmt.Errorf("failed to rebuild payout connector: %w", err)
	}

	script, err := conn.Script()
	if err != nil {
		return nil, err
	}
	leafHash, err := conn.LeafHash()
	if err != nil {
		return nil, err
	}
	ctrlBlock, err := conn.ControlBlock()
	if err != nil {
		return nil, err
	}
	vaultScript, err := conn.PkScript()
	if err != nil {
		return nil, err
	}

	payoutTx, err := parseTx(req.PayoutTxHex)
	if err != nil {
		return nil, fmt.Errorf("failed to decode payout tx: %w", err)
	}
	peginTx, err := parseTx(req.PeginTxHex)
	if err != nil {
		return nil, fmt.Errorf("failed to decode pegin tx: %w", err)
	}

	if len(payoutTx.TxIn) == 0 {
		return nil, fmt.Errorf("payout tx has no inputs")
	}

	// input 0 is the vault input by convention.
	peginHash := peginTx.TxHash()
	vaultOutpoint := payoutTx.TxIn[0].PreviousOutPoint
	if vaultOutpoint.Hash != peginHash || vaultOutpoint.Index != 0 {
		return nil, fmt.Errorf(
			"payout input 0 spends %s, expected pegin output %s:0",
			vaultOutpoint.String(), peginHash.String(),
		)
	}

	vaultOutput := peginTx.TxOut[0]
	if !bytes.Equal(vaultOutput.PkScript, vaultScript) {
		return nil, fmt.Errorf(
			"recomputed vault script does not match pegin output: got %x, want %x",
			vaultScript, vaultOutput.PkScript,
		)
	}

	prevouts, err := collectPrevouts(payoutTx, peginTx, req.ClaimTxHex, vaultOutput)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"payout_txid":   payoutTx.TxHash().String(),
		"pegin_txid":    peginHash.String(),
		"payout_script": hex.EncodeToString(script),
		"leaf_hash":     hex.EncodeToString(leafHash[:]),
		"control_block": hex.EncodeToString(ctrlBlock),
		"vault_value":   vaultOutput.Value,
	}).Debug("rebuilt payout spending conditions")

	psbtHex, err := buildSigningPsbt(payoutTx, prevouts, script, ctrlBlock)
	if err != nil {
		return nil, fmt.Errorf("failed to build signing psbt: %w", err)
	}

	signedHex, err := s.wallet.SignPsbt(ctx, psbtHex)
	if err != nil {
		return nil, fmt.Errorf("wallet signing failed: %w", err)
	}

	sig, err := extractSignature(signedHex, req.Keys.Depositor, leafHash)
	if err != nil {
		return nil, err
	}

	verified, err := s.verify(payoutTx, prevouts, script, req.Keys.Depositor, sig)
	if err != nil {
		return nil, err
	}
	if !verified {
		log.WithFields(log.Fields{
			"payout_txid": payoutTx.TxHash().String(),
			"leaf_hash":   hex.EncodeToString(leafHash[:]),
			"signature":   hex.EncodeToString(sig[:]),
			"depositor":   req.Keys.Depositor.String(),
		}).Warn("payout signature failed local verification, possible wallet/script mismatch")
	}

	return &SignResult{
		Signature: sig,
		LeafHash:  leafHash,
		Verified:  verified,
	}, nil
}

// verify recomputes the BIP-341 script-path sighash with SIGHASH_DEFAULT
// over all prevouts and checks the extracted signature against the raw
// depositor key.
func (s *Signer) verify(
	payoutTx *wire.MsgTx,
	prevouts map[wire.OutPoint]*wire.TxOut,
	script []byte,
	depositor types.XOnlyKey,
	sig [64]byte,
) (bool, error) {
	prevoutFetcher := txscript.NewMultiPrevOutFetcher(prevouts)
	sigHashes := txscript.NewTxSigHashes(payoutTx, prevoutFetcher)

	preimage, err := txscript.CalcTapscriptSignaturehash(
		sigHashes,
		txscript.SigHashDefault,
		payoutTx,
		0,
		prevoutFetcher,
		txscript.NewBaseTapLeaf(script),
	)
	if err != nil {
		return false, fmt.Errorf("failed to compute payout sighash: %w", err)
	}

	schnorrSig, err := schnorr.ParseSignature(sig[:])
	if err != nil {
		return false, fmt.Errorf("failed to parse extracted signature: %w", err)
	}

	pubkey, err := schnorr.ParsePubKey(depositor[:])
	if err != nil {
		return false, fmt.Errorf("%w: %s", types.ErrInvalidKeyFormat, depositor)
	}

	log.WithFields(log.Fields{
		"sighash":   hex.EncodeToString(preimage),
		"depositor": depositor.String(),
	}).Debug("recomputed payout sighash for self-verification")

	return schnorrSig.Verify(preimage, pubkey), nil
}

// collectPrevouts resolves every payout input to its previous output:
// input 0 from the pegin vault output, the rest from the claim tx.
func collectPrevouts(
	payoutTx, peginTx *wire.MsgTx, claimTxHex string, vaultOutput *wire.TxOut,
) (map[wire.OutPoint]*wire.TxOut, error) {
	prevouts := map[wire.OutPoint]*wire.TxOut{
		payoutTx.TxIn[0].PreviousOutPoint: vaultOutput,
	}

	if len(payoutTx.TxIn) == 1 {
		return prevouts, nil
	}

	if claimTxHex == "" {
		return nil, fmt.Errorf(
			"payout tx has %d inputs but no claim tx was provided", len(payoutTx.TxIn),
		)
	}

	claimTx, err := parseTx(claimTxHex)
	if err != nil {
		return nil, fmt.Errorf("failed to decode claim tx: %w", err)
	}
	claimHash := claimTx.TxHash()

	for i, txIn := range payoutTx.TxIn[1:] {
		outpoint := txIn.PreviousOutPoint
		if outpoint.Hash != claimHash || int(outpoint.Index) >= len(claimTx.TxOut) {
			return nil, fmt.Errorf(
				"payout input %d spends %s, not found in claim tx %s",
				i+1, outpoint.String(), claimHash.String(),
			)
		}
		prevouts[outpoint] = claimTx.TxOut[outpoint.Index]
	}

	return prevouts, nil
}

// buildSigningPsbt exposes the script-path spending conditions of input 0
// to the wallet. Claimer inputs carry witness utxo data only. The taproot
// merkle root field is deliberately left unset: populating it makes some
// wallets silently switch signing behavior.
func buildSigningPsbt(
	payoutTx *wire.MsgTx,
	prevouts map[wire.OutPoint]*wire.TxOut,
	script, ctrlBlock []byte,
) (string, error) {
	unsignedTx := payoutTx.Copy()
	for _, txIn := range unsignedTx.TxIn {
		txIn.SignatureScript = nil
		txIn.Witness = nil
	}

	packet, err := psbt.NewFromUnsignedTx(unsignedTx)
	if err != nil {
		return "", err
	}

	for i, txIn := range unsignedTx.TxIn {
		prevout, ok := prevouts[txIn.PreviousOutPoint]
		if !ok {
			return "", fmt.Errorf("missing prevout for input %d", i)
		}
		packet.Inputs[i].WitnessUtxo = prevout
	}

	packet.Inputs[0].SighashType = txscript.SigHashDefault
	packet.Inputs[0].TaprootInternalKey = schnorr.SerializePubKey(connector.UnspendableKey())
	packet.Inputs[0].TaprootLeafScript = []*psbt.TaprootTapLeafScript{
		{
			ControlBlock: ctrlBlock,
			Script:       script,
			LeafVersion:  txscript.BaseLeafVersion,
		},
	}

	var buf bytes.Buffer
	if err := packet.Serialize(&buf); err != nil {
		return "", err
	}

	return hex.EncodeToString(buf.Bytes()), nil
}

func parseTx(txHex string) (*wire.MsgTx, error) {
	tx := &wire.MsgTx{}
	if err := tx.Deserialize(hex.NewDecoder(strings.NewReader(txHex))); err != nil {
		return nil, err
	}
	return tx, nil
}
