package types

import "context"

type Store interface {
	ConfigStore() ConfigStore
	VaultStore() VaultStore
	Close()
}

type ConfigStore interface {
	GetType() string
	GetDatadir() string
	AddData(ctx context.Context, data Config) error
	GetData(ctx context.Context) (*Config, error)
	CleanData(ctx context.Context) error
	Close()
}

type VaultStore interface {
	AddVault(ctx context.Context, vault Vault) error
	UpdateVault(ctx context.Context, vault Vault) error
	GetVault(ctx context.Context, peginTxid string) (*Vault, error)
	GetAllVaults(ctx context.Context) ([]Vault, error)
	Close()
}
