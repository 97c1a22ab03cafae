package store

import (
	"fmt"

	"github.com/dgraph-io/badger/v4"

	inmemorystore "github.com/babylonlabs-io/vault-sdk/store/inmemory"
	kvstore "github.com/babylonlabs-io/vault-sdk/store/kv"
	"github.com/babylonlabs-io/vault-sdk/types"
)

type service struct {
	configStore types.ConfigStore
	vaultStore  types.VaultStore
}

type Config struct {
	ConfigStoreType string
	VaultStoreType  string

	BaseDir      string
	BadgerLogger badger.Logger
}

func NewStore(storeConfig Config) (types.Store, error) {
	var (
		configStore types.ConfigStore
		vaultStore  types.VaultStore
		err         error
	)

	switch storeConfig.ConfigStoreType {
	case types.InMemoryStore:
		configStore, err = inmemorystore.NewConfigStore()
	case types.KVStore:
		configStore, err = kvstore.NewConfigStore(storeConfig.BaseDir, storeConfig.BadgerLogger)
	default:
		err = fmt.Errorf("unknown config store type %s", storeConfig.ConfigStoreType)
	}
	if err != nil {
		return nil, err
	}

	vaultStoreType := storeConfig.VaultStoreType
	if vaultStoreType == "" {
		vaultStoreType = storeConfig.ConfigStoreType
	}

	switch vaultStoreType {
	case types.InMemoryStore:
		vaultStore, err = inmemorystore.NewVaultStore()
	case types.KVStore:
		vaultStore, err = kvstore.NewVaultStore(storeConfig.BaseDir, storeConfig.BadgerLogger)
	default:
		err = fmt.Errorf("unknown vault store type %s", vaultStoreType)
	}
	if err != nil {
		configStore.Close()
		return nil, err
	}

	return &service{
		configStore: configStore,
		vaultStore:  vaultStore,
	}, nil
}

func (s *service) ConfigStore() types.ConfigStore {
	return s.configStore
}

func (s *service) VaultStore() types.VaultStore {
	return s.vaultStore
}

func (s *service) Close() {
	s.vaultStore.Close()
	s.configStore.Close()
}
