package vaultsdk

import (
	"context"

	"github.com/babylonlabs-io/vault-sdk/status"
	"github.com/babylonlabs-io/vault-sdk/types"
)

// VaultClient drives BTC peg-ins into a taproot vault and co-signs the
// payout transactions claimers need to spend it. Operations on the same
// peg-in must be serialized by the caller; flows for different peg-ins
// share no mutable state.
type VaultClient interface {
	Init(ctx context.Context, args InitArgs) error
	GetConfigData(ctx context.Context) (*types.Config, error)
	SubmitPegin(ctx context.Context, args SubmitPeginArgs) (*PeginResult, error)
	SignPayouts(ctx context.Context, peginTxid string) (types.SignatureMap, error)
	Broadcast(ctx context.Context, signedTxHex string) (string, error)
	Redeem(ctx context.Context, peginTxid, signedTxHex string) (string, error)
	VaultDisplay(ctx context.Context, peginTxid string) (*status.Display, error)
	ListVaults(ctx context.Context) ([]types.Vault, error)
	Stop()
}

// InitArgs configures the SDK. Stored through the config store so a
// restarted client picks up where it left off.
type InitArgs struct {
	ProviderUrl             string
	ExplorerUrl             string
	Network                 string
	Dust                    uint64
	DepositorPubKey         string
	LiquidatorOrderFallback bool
}

// SubmitPeginArgs describes one peg-in attempt. FeeRate zero means the
// next-block estimate is fetched from the explorer.
type SubmitPeginArgs struct {
	Keys        types.ParticipantKeySet
	Amount      uint64
	FundingAddr string
	ChangeAddr  string
	FeeRate     uint64
}

// PeginResult reports a broadcast peg-in. ExpectedTxid is the id computed
// before wallet signing; Txid is the final on-chain id.
type PeginResult struct {
	Txid         string
	ExpectedTxid string
	Selection    types.FundingSelection
}
