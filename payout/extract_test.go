package payout

import (
	"bytes"
	"errors"
	"testing"

	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"

	"github.com/babylonlabs-io/vault-sdk/types"
)

func TestNormalizeSignature(t *testing.T) {
	sig64 := bytes.Repeat([]byte{0xab}, 64)

	t.Run("64 bytes pass through", func(t *testing.T) {
		out, err := normalizeSignature(sig64)
		require.NoError(t, err)
		require.Equal(t, sig64, out[:])
	})

	t.Run("65 bytes with default flag", func(t *testing.T) {
		out, err := normalizeSignature(append(sig64, 0x00))
		require.NoError(t, err)
		require.Equal(t, sig64, out[:])
	})

	t.Run("65 bytes with sighash all flag", func(t *testing.T) {
		out, err := normalizeSignature(append(sig64, 0x01))
		require.NoError(t, err)
		require.Equal(t, sig64, out[:])
	})

	t.Run("65 bytes with unsupported flag", func(t *testing.T) {
		_, err := normalizeSignature(append(sig64, 0x83))
		require.True(t, errors.Is(err, ErrSignatureExtraction))
		require.ErrorContains(t, err, "0x83")
	})

	t.Run("wrong length", func(t *testing.T) {
		_, err := normalizeSignature(sig64[:63])
		require.True(t, errors.Is(err, ErrSignatureExtraction))
	})
}

func TestSignatureFromWitness(t *testing.T) {
	sig := bytes.Repeat([]byte{0x01}, 64)

	t.Run("script path witness", func(t *testing.T) {
		witness := wire.TxWitness{sig, []byte{0x51}, []byte{0xc0}}
		out, err := signatureFromWitness(witness)
		require.NoError(t, err)
		require.Equal(t, sig, out[:])
	})

	t.Run("key path witness rejected", func(t *testing.T) {
		_, err := signatureFromWitness(wire.TxWitness{sig})
		require.True(t, errors.Is(err, ErrSignatureExtraction))
		require.ErrorContains(t, err, "key-path")
	})
}

func TestParseWitness(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, wire.WriteVarInt(&buf, 0, 3))
	for _, item := range [][]byte{
		bytes.Repeat([]byte{0x02}, 64), {0x51}, {0xc0},
	} {
		require.NoError(t, wire.WriteVarBytes(&buf, 0, item))
	}

	witness, err := parseWitness(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, witness, 3)
	require.Equal(t, bytes.Repeat([]byte{0x02}, 64), []byte(witness[0]))
}

func TestExtractSignatureRejectsGarbage(t *testing.T) {
	_, err := extractSignature("zz", types.XOnlyKey{}, [32]byte{})
	require.True(t, errors.Is(err, ErrSignatureExtraction))

	_, err = extractSignature("deadbeef", types.XOnlyKey{}, [32]byte{})
	require.True(t, errors.Is(err, ErrSignatureExtraction))
}
