package types_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/babylonlabs-io/vault-sdk/types"
)

func TestXOnlyKeyFromHex(t *testing.T) {
	const xOnlyHex = "50929b74c1a04954b78b4b6035e97a5e078a5a0f28ec96d547bfee9ace803ac0"

	t.Run("x-only key", func(t *testing.T) {
		key, err := types.XOnlyKeyFromHex(xOnlyHex)
		require.NoError(t, err)
		require.Equal(t, xOnlyHex, key.String())
	})

	t.Run("compressed key drops parity byte", func(t *testing.T) {
		even, err := types.XOnlyKeyFromHex("02" + xOnlyHex)
		require.NoError(t, err)
		require.Equal(t, xOnlyHex, even.String())

		odd, err := types.XOnlyKeyFromHex("03" + xOnlyHex)
		require.NoError(t, err)
		require.Equal(t, even, odd)
	})

	t.Run("invalid", func(t *testing.T) {
		for _, keyHex := range []string{"", "zz", "abcd", xOnlyHex + "00" + "00"} {
			_, err := types.XOnlyKeyFromHex(keyHex)
			require.True(t, errors.Is(err, types.ErrInvalidKeyFormat), keyHex)
		}
	})
}

func TestSignatureMap(t *testing.T) {
	keyA, _ := types.XOnlyKeyFromHex("50929b74c1a04954b78b4b6035e97a5e078a5a0f28ec96d547bfee9ace803ac0")
	keyB, _ := types.XOnlyKeyFromHex("873079a0091c9b16abd1f8c508320b07f0d50144d09ccd792ce9c915dac60465")

	var sigA, sigB [64]byte
	sigA[0] = 0x01
	sigB[0] = 0x02

	sigs := types.SignatureMap{}.Set(keyA, sigA).Set(keyB, sigB)
	require.Len(t, sigs, 2)

	// insertion order is preserved.
	require.Equal(t, keyA, sigs[0].ClaimerPubKey)
	require.Equal(t, keyB, sigs[1].ClaimerPubKey)

	got, ok := sigs.Get(keyA)
	require.True(t, ok)
	require.Equal(t, sigA, got)

	_, ok = sigs.Get(types.XOnlyKey{})
	require.False(t, ok)

	// setting an existing key replaces in place.
	sigs = sigs.Set(keyA, sigB)
	require.Len(t, sigs, 2)
	got, _ = sigs.Get(keyA)
	require.Equal(t, sigB, got)
}

func TestParticipantKeySetClaimers(t *testing.T) {
	keyA, _ := types.XOnlyKeyFromHex("50929b74c1a04954b78b4b6035e97a5e078a5a0f28ec96d547bfee9ace803ac0")
	keyB, _ := types.XOnlyKeyFromHex("873079a0091c9b16abd1f8c508320b07f0d50144d09ccd792ce9c915dac60465")

	keys := types.ParticipantKeySet{
		Provider:    keyA,
		Liquidators: []types.XOnlyKey{keyB},
	}
	require.Equal(t, []types.XOnlyKey{keyA, keyB}, keys.Claimers())
}
