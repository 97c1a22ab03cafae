package skeleton_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/babylonlabs-io/vault-sdk/skeleton"
	"github.com/babylonlabs-io/vault-sdk/types"
)

type countingBuilder struct {
	calls int
}

func (b *countingBuilder) CreatePegin(
	context.Context, skeleton.CreatePeginRequest,
) (*types.PeginSkeleton, error) {
	b.calls++
	return &types.PeginSkeleton{Txid: "stub"}, nil
}

func TestLazyInitializesOnce(t *testing.T) {
	ctx := context.Background()

	builder := &countingBuilder{}
	var factoryCalls int
	lazy := skeleton.NewLazy(func(context.Context) (skeleton.Builder, error) {
		factoryCalls++
		return builder, nil
	})

	for i := 0; i < 3; i++ {
		result, err := lazy.CreatePegin(ctx, skeleton.CreatePeginRequest{})
		require.NoError(t, err)
		require.Equal(t, "stub", result.Txid)
	}

	require.Equal(t, 1, factoryCalls)
	require.Equal(t, 3, builder.calls)
}

func TestLazyRetriesFailedInit(t *testing.T) {
	ctx := context.Background()

	var factoryCalls int
	lazy := skeleton.NewLazy(func(context.Context) (skeleton.Builder, error) {
		factoryCalls++
		if factoryCalls == 1 {
			return nil, fmt.Errorf("module not ready")
		}
		return &countingBuilder{}, nil
	})

	_, err := lazy.CreatePegin(ctx, skeleton.CreatePeginRequest{})
	require.ErrorContains(t, err, "module not ready")

	// a failed initialization is not cached.
	_, err = lazy.CreatePegin(ctx, skeleton.CreatePeginRequest{})
	require.NoError(t, err)
	require.Equal(t, 2, factoryCalls)
}
