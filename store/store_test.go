package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/babylonlabs-io/vault-sdk/store"
	"github.com/babylonlabs-io/vault-sdk/types"
)

func testConfig() types.Config {
	depositor, _ := types.XOnlyKeyFromHex(
		"50929b74c1a04954b78b4b6035e97a5e078a5a0f28ec96d547bfee9ace803ac0",
	)
	return types.Config{
		ProviderUrl:             "http://localhost:7070",
		ExplorerURL:             "http://localhost:3000",
		Network:                 "regtest",
		Dust:                    546,
		DepositorPubKey:         depositor,
		LiquidatorOrderFallback: true,
	}
}

func TestStore(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
	}{
		{
			name: types.InMemoryStore,
		},
		{
			name: types.KVStore,
		},
	}

	for i := range tests {
		tt := tests[i]
		t.Run(tt.name, func(t *testing.T) {
			storeSvc, err := store.NewStore(store.Config{
				ConfigStoreType: tt.name,
				BaseDir:         t.TempDir(),
			})
			require.NoError(t, err)
			require.NotNil(t, storeSvc)
			defer storeSvc.Close()

			testConfigStore(t, ctx, storeSvc.ConfigStore(), tt.name)
			testVaultStore(t, ctx, storeSvc.VaultStore())
		})
	}
}

func testConfigStore(
	t *testing.T, ctx context.Context, configStore types.ConfigStore, storeType string,
) {
	require.Equal(t, storeType, configStore.GetType())

	// Check empty data when store is empty.
	data, err := configStore.GetData(ctx)
	require.NoError(t, err)
	require.Nil(t, data)

	// Check no side effects when cleaning an empty store.
	err = configStore.CleanData(ctx)
	require.NoError(t, err)

	// Check add and retrieve data.
	cfg := testConfig()
	cfg.StoreType = storeType
	err = configStore.AddData(ctx, cfg)
	require.NoError(t, err)

	data, err = configStore.GetData(ctx)
	require.NoError(t, err)
	require.Equal(t, cfg, *data)

	// Check overwrite.
	cfg.Dust = 1_000
	err = configStore.AddData(ctx, cfg)
	require.NoError(t, err)

	data, err = configStore.GetData(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1_000, data.Dust)

	// Check clean and retrieve data.
	err = configStore.CleanData(ctx)
	require.NoError(t, err)

	data, err = configStore.GetData(ctx)
	require.NoError(t, err)
	require.Nil(t, data)
}

func testVaultStore(t *testing.T, ctx context.Context, vaultStore types.VaultStore) {
	const peginTxid = "1111111111111111111111111111111111111111111111111111111111111111"

	// Check unknown vaults resolve to nil without error.
	vault, err := vaultStore.GetVault(ctx, peginTxid)
	require.NoError(t, err)
	require.Nil(t, vault)

	// Check add and retrieve.
	err = vaultStore.AddVault(ctx, types.Vault{
		PeginTxid: peginTxid,
		Amount:    100_000,
		Status:    types.VaultStatusPending,
	})
	require.NoError(t, err)

	vault, err = vaultStore.GetVault(ctx, peginTxid)
	require.NoError(t, err)
	require.NotNil(t, vault)
	require.EqualValues(t, 100_000, vault.Amount)
	require.False(t, vault.CreatedAt.IsZero())

	// Check duplicates are rejected.
	err = vaultStore.AddVault(ctx, types.Vault{PeginTxid: peginTxid})
	require.ErrorContains(t, err, "already exists")

	// Check update preserves creation time.
	createdAt := vault.CreatedAt
	updated := *vault
	updated.Status = types.VaultStatusAvailable
	updated.PayoutsSigned = true
	err = vaultStore.UpdateVault(ctx, updated)
	require.NoError(t, err)

	vault, err = vaultStore.GetVault(ctx, peginTxid)
	require.NoError(t, err)
	require.Equal(t, types.VaultStatusAvailable, vault.Status)
	require.True(t, vault.PayoutsSigned)
	require.Equal(t, createdAt.Unix(), vault.CreatedAt.Unix())

	// Check unknown vaults cannot be updated.
	err = vaultStore.UpdateVault(ctx, types.Vault{PeginTxid: "unknown"})
	require.ErrorContains(t, err, "not found")

	// Check listing.
	err = vaultStore.AddVault(ctx, types.Vault{
		PeginTxid: "2222222222222222222222222222222222222222222222222222222222222222",
	})
	require.NoError(t, err)

	vaults, err := vaultStore.GetAllVaults(ctx)
	require.NoError(t, err)
	require.Len(t, vaults, 2)
}
