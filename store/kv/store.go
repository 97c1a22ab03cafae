package kvstore

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/timshannon/badgerhold/v4"

	"github.com/babylonlabs-io/vault-sdk/types"
)

const (
	configStoreDir = "config"
	vaultStoreDir  = "vaults"

	configKey = "config"
)

type configStore struct {
	db      *badgerhold.Store
	datadir string
	lock    sync.Mutex
}

func NewConfigStore(dir string, logger badger.Logger) (types.ConfigStore, error) {
	badgerDb, err := createDB(filepath.Join(dir, configStoreDir), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open config store: %s", err)
	}
	return &configStore{
		db:      badgerDb,
		datadir: dir,
	}, nil
}

func (s *configStore) Close() {
	// nolint:all
	s.db.Close()
}

func (s *configStore) GetType() string {
	return types.KVStore
}

func (s *configStore) GetDatadir() string {
	return s.datadir
}

func (s *configStore) AddData(_ context.Context, data types.Config) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.db.Upsert(configKey, &data)
}

func (s *configStore) GetData(_ context.Context) (*types.Config, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	var data types.Config
	if err := s.db.Get(configKey, &data); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}

	return &data, nil
}

func (s *configStore) CleanData(_ context.Context) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	var data types.Config
	if err := s.db.Delete(configKey, &data); err != nil && err != badgerhold.ErrNotFound {
		return err
	}
	return nil
}

type vaultStore struct {
	db   *badgerhold.Store
	lock sync.Mutex
}

func NewVaultStore(dir string, logger badger.Logger) (types.VaultStore, error) {
	badgerDb, err := createDB(filepath.Join(dir, vaultStoreDir), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open vault store: %s", err)
	}
	return &vaultStore{
		db: badgerDb,
	}, nil
}

func (s *vaultStore) Close() {
	// nolint:all
	s.db.Close()
}

func (s *vaultStore) AddVault(_ context.Context, vault types.Vault) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	vault.CreatedAt = time.Now()
	vault.UpdatedAt = vault.CreatedAt
	if err := s.db.Insert(vault.PeginTxid, &vault); err != nil {
		if err == badgerhold.ErrKeyExists {
			return fmt.Errorf("vault %s already exists", vault.PeginTxid)
		}
		return err
	}
	return nil
}

func (s *vaultStore) UpdateVault(_ context.Context, vault types.Vault) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	var existing types.Vault
	if err := s.db.Get(vault.PeginTxid, &existing); err != nil {
		if err == badgerhold.ErrNotFound {
			return fmt.Errorf("vault %s not found", vault.PeginTxid)
		}
		return err
	}

	vault.CreatedAt = existing.CreatedAt
	vault.UpdatedAt = time.Now()
	return s.db.Update(vault.PeginTxid, &vault)
}

func (s *vaultStore) GetVault(
	_ context.Context, peginTxid string,
) (*types.Vault, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	var vault types.Vault
	if err := s.db.Get(peginTxid, &vault); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}

	return &vault, nil
}

func (s *vaultStore) GetAllVaults(_ context.Context) ([]types.Vault, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	var vaults []types.Vault
	if err := s.db.Find(&vaults, nil); err != nil {
		return nil, err
	}

	return vaults, nil
}

func createDB(dbDir string, logger badger.Logger) (*badgerhold.Store, error) {
	isInMemory := len(dbDir) <= 0

	opts := badger.DefaultOptions(dbDir)
	opts.Logger = logger

	if isInMemory {
		opts.InMemory = true
	} else {
		opts.Compression = options.ZSTD
	}

	db, err := badgerhold.Open(badgerhold.Options{
		Encoder:          badgerhold.DefaultEncode,
		Decoder:          badgerhold.DefaultDecode,
		SequenceBandwith: 100,
		Options:          opts,
	})
	if err != nil {
		return nil, err
	}

	return db, nil
}
