package connector

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/babylonlabs-io/vault-sdk/types"
)

// unspendableKeyHex is the NUMS point used as the taproot internal key of
// every vault output, so the key spend path is provably unusable.
const unspendableKeyHex = "50929b74c1a04954b78b4b6035e97a5e078a5a0f28ec96d547bfee9ace803ac0"

// UnspendableKey returns the NUMS internal key.
func UnspendableKey() *secp256k1.PublicKey {
	key, _ := hex.DecodeString(unspendableKeyHex)
	pubkey, _ := schnorr.ParsePubKey(key)
	return pubkey
}

// PayoutConnector reconstructs the script-path spending conditions of a
// vault output for a given participant set. It is a pure function of the
// keys: recomputing it must reproduce, byte for byte, the script the vault
// provider committed to, or every signature built on top of it signs the
// wrong message.
type PayoutConnector struct {
	depositor   *secp256k1.PublicKey
	provider    *secp256k1.PublicKey
	liquidators []*secp256k1.PublicKey
}

// NewPayoutConnector builds a connector from a participant key set. The
// liquidator keys must already be in canonical order.
func NewPayoutConnector(keys types.ParticipantKeySet) (*PayoutConnector, error) {
	if len(keys.Liquidators) == 0 {
		return nil, fmt.Errorf("at least one liquidator key is required")
	}

	depositor, err := parseKey(keys.Depositor)
	if err != nil {
		return nil, err
	}
	provider, err := parseKey(keys.Provider)
	if err != nil {
		return nil, err
	}

	liquidators := make([]*secp256k1.PublicKey, 0, len(keys.Liquidators))
	for _, key := range keys.Liquidators {
		liquidator, err := parseKey(key)
		if err != nil {
			return nil, err
		}
		liquidators = append(liquidators, liquidator)
	}

	return &PayoutConnector{
		depositor:   depositor,
		provider:    provider,
		liquidators: liquidators,
	}, nil
}

// Script returns the payout leaf script:
//
//	<depositor> CHECKSIGVERIFY
//	<provider> CHECKSIGVERIFY
//	<liq_0> CHECKSIG <liq_1> CHECKSIGADD ... <liq_n-1> CHECKSIGADD
//	<n> NUMEQUAL
func (c *PayoutConnector) Script() ([]byte, error) {
	builder := txscript.NewScriptBuilder().
		AddData(schnorr.SerializePubKey(c.depositor)).
		AddOp(txscript.OP_CHECKSIGVERIFY).
		AddData(schnorr.SerializePubKey(c.provider)).
		AddOp(txscript.OP_CHECKSIGVERIFY).
		AddData(schnorr.SerializePubKey(c.liquidators[0])).
		AddOp(txscript.OP_CHECKSIG)

	for _, liquidator := range c.liquidators[1:] {
		builder.
			AddData(schnorr.SerializePubKey(liquidator)).
			AddOp(txscript.OP_CHECKSIGADD)
	}

	return builder.
		AddInt64(int64(len(c.liquidators))).
		AddOp(txscript.OP_NUMEQUAL).
		Script()
}

// LeafHash returns the BIP-341 tapleaf hash of the payout script.
func (c *PayoutConnector) LeafHash() ([32]byte, error) {
	script, err := c.Script()
	if err != nil {
		return [32]byte{}, err
	}

	return txscript.NewBaseTapLeaf(script).TapHash(), nil
}

// OutputKey returns the tweaked taproot output key committing to the
// single payout leaf under the NUMS internal key.
func (c *PayoutConnector) OutputKey() (*secp256k1.PublicKey, error) {
	leafHash, err := c.LeafHash()
	if err != nil {
		return nil, err
	}

	return txscript.ComputeTaprootOutputKey(UnspendableKey(), leafHash[:]), nil
}

// ControlBlock returns the serialized control block for a script-path
// spend: leaf version ORed with the output key parity, followed by the
// 32-byte internal key. The tree has a single leaf, so there is no merkle
// proof suffix.
func (c *PayoutConnector) ControlBlock() ([]byte, error) {
	outputKey, err := c.OutputKey()
	if err != nil {
		return nil, err
	}

	ctrlBlock := txscript.ControlBlock{
		InternalKey: UnspendableKey(),
		OutputKeyYIsOdd: outputKey.SerializeCompressed()[0] ==
			secp256k1.PubKeyFormatCompressedOdd,
		LeafVersion: txscript.BaseLeafVersion,
	}

	return ctrlBlock.ToBytes()
}

// PkScript returns the vault output script (OP_1 <output key>).
func (c *PayoutConnector) PkScript() ([]byte, error) {
	outputKey, err := c.OutputKey()
	if err != nil {
		return nil, err
	}

	return txscript.NewScriptBuilder().
		AddOp(txscript.OP_1).
		AddData(schnorr.SerializePubKey(outputKey)).
		Script()
}

// Address returns the bech32m address of the vault output.
func (c *PayoutConnector) Address(netParams *chaincfg.Params) (string, error) {
	outputKey, err := c.OutputKey()
	if err != nil {
		return "", err
	}

	addr, err := btcutil.NewAddressTaproot(
		schnorr.SerializePubKey(outputKey), netParams,
	)
	if err != nil {
		return "", err
	}

	return addr.EncodeAddress(), nil
}

// Depositor returns the depositor key the payout signature must verify
// against.
func (c *PayoutConnector) Depositor() *secp256k1.PublicKey {
	return c.depositor
}

func parseKey(key types.XOnlyKey) (*secp256k1.PublicKey, error) {
	pubkey, err := schnorr.ParsePubKey(key[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %s", types.ErrInvalidKeyFormat, key, err)
	}
	return pubkey, nil
}
