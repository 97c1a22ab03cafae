package inmemorystore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/babylonlabs-io/vault-sdk/types"
)

type configStore struct {
	data *types.Config
	lock sync.RWMutex
}

func NewConfigStore() (types.ConfigStore, error) {
	return &configStore{}, nil
}

func (s *configStore) Close() {}

func (s *configStore) GetType() string {
	return types.InMemoryStore
}

func (s *configStore) GetDatadir() string {
	return ""
}

func (s *configStore) AddData(_ context.Context, data types.Config) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.data = &data
	return nil
}

func (s *configStore) GetData(_ context.Context) (*types.Config, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	if s.data == nil {
		return nil, nil
	}

	data := *s.data
	return &data, nil
}

func (s *configStore) CleanData(_ context.Context) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.data = nil
	return nil
}

type vaultStore struct {
	vaults map[string]types.Vault
	lock   sync.RWMutex
}

func NewVaultStore() (types.VaultStore, error) {
	return &vaultStore{
		vaults: make(map[string]types.Vault),
	}, nil
}

func (s *vaultStore) Close() {}

func (s *vaultStore) AddVault(_ context.Context, vault types.Vault) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.vaults[vault.PeginTxid]; ok {
		return fmt.Errorf("vault %s already exists", vault.PeginTxid)
	}

	vault.CreatedAt = time.Now()
	vault.UpdatedAt = vault.CreatedAt
	s.vaults[vault.PeginTxid] = vault
	return nil
}

func (s *vaultStore) UpdateVault(_ context.Context, vault types.Vault) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	existing, ok := s.vaults[vault.PeginTxid]
	if !ok {
		return fmt.Errorf("vault %s not found", vault.PeginTxid)
	}

	vault.CreatedAt = existing.CreatedAt
	vault.UpdatedAt = time.Now()
	s.vaults[vault.PeginTxid] = vault
	return nil
}

func (s *vaultStore) GetVault(
	_ context.Context, peginTxid string,
) (*types.Vault, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	vault, ok := s.vaults[peginTxid]
	if !ok {
		return nil, nil
	}

	return &vault, nil
}

func (s *vaultStore) GetAllVaults(_ context.Context) ([]types.Vault, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	vaults := make([]types.Vault, 0, len(s.vaults))
	for _, vault := range s.vaults {
		vaults = append(vaults, vault)
	}

	return vaults, nil
}
