package types

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ErrInvalidKeyFormat is returned for any public key that is not exactly
// 32 or 33 raw bytes. Fatal, never retried.
var ErrInvalidKeyFormat = errors.New("invalid public key format")

const (
	InMemoryStore = "inmemory"
	KVStore       = "kv"
)

// Config holds the SDK settings persisted through the config store.
type Config struct {
	ProviderUrl     string
	ExplorerURL     string
	Network         string
	Dust            uint64
	DepositorPubKey XOnlyKey
	StoreType       string
	// LiquidatorOrderFallback enables lexicographic ordering of liquidator
	// keys when the provider does not supply the canonical order.
	LiquidatorOrderFallback bool
}

// XOnlyKey is a 32-byte x-only schnorr public key, used as the fixed-width
// map key across the SDK.
type XOnlyKey [32]byte

func (k XOnlyKey) String() string {
	return hex.EncodeToString(k[:])
}

// XOnlyKeyFromHex parses a 64-char x-only key or a 66-char compressed key,
// dropping the leading parity byte of the latter.
func XOnlyKeyFromHex(keyHex string) (XOnlyKey, error) {
	var key XOnlyKey

	buf, err := hex.DecodeString(keyHex)
	if err != nil {
		return key, fmt.Errorf("%w: %s: %s", ErrInvalidKeyFormat, keyHex, err)
	}

	switch len(buf) {
	case 32:
		copy(key[:], buf)
	case 33:
		copy(key[:], buf[1:])
	default:
		return key, fmt.Errorf("%w: %s: must be 32 or 33 bytes, got %d", ErrInvalidKeyFormat, keyHex, len(buf))
	}

	return key, nil
}

// Utxo is an immutable snapshot of an unspent output owned by the depositor
// wallet, as reported by the explorer.
type Utxo struct {
	Txid      string
	VOut      uint32
	Amount    uint64
	Script    []byte
	Confirmed bool
	CreatedAt time.Time
}

func (u Utxo) String() string {
	return fmt.Sprintf("%s:%s", u.Txid, strconv.Itoa(int(u.VOut)))
}

// FundingSelection is the outcome of coin selection for a peg-in. It is
// derived, never persisted, and recomputed on every submission attempt.
type FundingSelection struct {
	Utxos  []Utxo
	Fee    uint64
	Change uint64
}

// TotalSelected returns the sum of the selected utxo amounts.
func (s FundingSelection) TotalSelected() uint64 {
	var total uint64
	for _, utxo := range s.Utxos {
		total += utxo.Amount
	}
	return total
}

// PeginSkeleton is the externally built zero-input transaction carrying the
// vault output. It is only ever extended with inputs and change, never
// mutated.
type PeginSkeleton struct {
	TxHex             string
	Txid              string
	VaultScriptPubKey []byte
	VaultValue        uint64
}

// UnsignedPegin is a fully funded peg-in transaction ready for wallet
// signing. Txid is the expected id and changes once the wallet signs.
type UnsignedPegin struct {
	TxHex     string
	PsbtHex   string
	Txid      string
	Selection FundingSelection
}

// ParticipantKeySet identifies every party of a vault. Liquidators must be
// in the canonical order used by the provider when the payout script was
// generated.
type ParticipantKeySet struct {
	Depositor   XOnlyKey
	Provider    XOnlyKey
	Liquidators []XOnlyKey
}

// Claimers returns the provider key followed by the liquidator keys, one
// entry per party entitled to a payout path.
func (k ParticipantKeySet) Claimers() []XOnlyKey {
	claimers := make([]XOnlyKey, 0, 1+len(k.Liquidators))
	claimers = append(claimers, k.Provider)
	return append(claimers, k.Liquidators...)
}

// ClaimerTransactions is the per-claimer draft pair served by the vault
// provider: the payout transaction the depositor co-signs and the claim
// transaction funding its non-vault inputs.
type ClaimerTransactions struct {
	ClaimerPubKey XOnlyKey
	PayoutTxHex   string
	ClaimTxHex    string
}

// SignatureEntry associates a claimer public key with the depositor's
// schnorr signature over that claimer's payout transaction.
type SignatureEntry struct {
	ClaimerPubKey XOnlyKey
	Signature     [64]byte
}

// SignatureMap is an ordered association list submitted back to the vault
// provider as a single batch.
type SignatureMap []SignatureEntry

// Get returns the signature for the given claimer key.
func (m SignatureMap) Get(key XOnlyKey) ([64]byte, bool) {
	for _, entry := range m {
		if entry.ClaimerPubKey == key {
			return entry.Signature, true
		}
	}
	return [64]byte{}, false
}

// Set inserts or replaces the signature for the given claimer key.
func (m SignatureMap) Set(key XOnlyKey, sig [64]byte) SignatureMap {
	for i, entry := range m {
		if entry.ClaimerPubKey == key {
			m[i].Signature = sig
			return m
		}
	}
	return append(m, SignatureEntry{ClaimerPubKey: key, Signature: sig})
}

// VaultStatus is the authoritative on-chain lifecycle status of a peg-in.
type VaultStatus int

const (
	VaultStatusPending VaultStatus = iota
	VaultStatusVerified
	VaultStatusAvailable
	VaultStatusInPosition
	VaultStatusExpired
)

func (s VaultStatus) String() string {
	switch s {
	case VaultStatusPending:
		return "PENDING"
	case VaultStatusVerified:
		return "VERIFIED"
	case VaultStatusAvailable:
		return "AVAILABLE"
	case VaultStatusInPosition:
		return "IN_POSITION"
	case VaultStatusExpired:
		return "EXPIRED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(s))
	}
}

// Vault is the locally cached view of a peg-in: the last seen on-chain
// status plus the flags tracked between local signing and on-chain
// visibility.
type Vault struct {
	PeginTxid     string
	Amount        uint64
	Status        VaultStatus
	Keys          ParticipantKeySet
	PayoutsSigned bool
	PendingTxid   string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
