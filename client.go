package vaultsdk

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/wire"
	log "github.com/sirupsen/logrus"

	"github.com/babylonlabs-io/vault-sdk/connector"
	"github.com/babylonlabs-io/vault-sdk/explorer"
	"github.com/babylonlabs-io/vault-sdk/payout"
	"github.com/babylonlabs-io/vault-sdk/provider"
	"github.com/babylonlabs-io/vault-sdk/skeleton"
	"github.com/babylonlabs-io/vault-sdk/status"
	"github.com/babylonlabs-io/vault-sdk/txbuilder"
	"github.com/babylonlabs-io/vault-sdk/types"
	"github.com/babylonlabs-io/vault-sdk/wallet"
)

// NewVaultClientArgs carries the collaborators a client is built from.
// Explorer and Provider may be nil, in which case they are created from
// the stored config at Init.
type NewVaultClientArgs struct {
	Store           types.Store
	Wallet          wallet.Signer
	SkeletonBuilder skeleton.Builder
	Explorer        explorer.Explorer
	Provider        provider.Client
}

type vaultClient struct {
	store           types.Store
	wallet          wallet.Signer
	skeletonBuilder skeleton.Builder
	explorer        explorer.Explorer
	provider        provider.Client
	signer          *payout.Signer
}

func New(args NewVaultClientArgs) (VaultClient, error) {
	if args.Store == nil {
		return nil, fmt.Errorf("missing store")
	}
	if args.Wallet == nil {
		return nil, fmt.Errorf("missing wallet signer")
	}
	if args.SkeletonBuilder == nil {
		return nil, fmt.Errorf("missing skeleton builder")
	}

	return &vaultClient{
		store:           args.Store,
		wallet:          args.Wallet,
		skeletonBuilder: args.SkeletonBuilder,
		explorer:        args.Explorer,
		provider:        args.Provider,
		signer:          payout.NewSigner(args.Wallet),
	}, nil
}

func (c *vaultClient) Init(ctx context.Context, args InitArgs) error {
	if _, err := connector.NetParams(args.Network); err != nil {
		return err
	}
	if args.ProviderUrl == "" {
		return fmt.Errorf("missing provider url")
	}
	if args.ExplorerUrl == "" {
		return fmt.Errorf("missing explorer url")
	}

	depositorKey, err := types.XOnlyKeyFromHex(args.DepositorPubKey)
	if err != nil {
		return err
	}

	dust := args.Dust
	if dust == 0 {
		dust = txbuilder.DustAmount
	}

	cfg := types.Config{
		ProviderUrl:             args.ProviderUrl,
		ExplorerURL:             args.ExplorerUrl,
		Network:                 args.Network,
		Dust:                    dust,
		DepositorPubKey:         depositorKey,
		StoreType:               c.store.ConfigStore().GetType(),
		LiquidatorOrderFallback: args.LiquidatorOrderFallback,
	}
	if err := c.store.ConfigStore().AddData(ctx, cfg); err != nil {
		return fmt.Errorf("failed to persist config: %w", err)
	}

	if c.explorer == nil {
		c.explorer = explorer.NewExplorer(args.ExplorerUrl)
	}
	if c.provider == nil {
		c.provider = provider.NewClient(args.ProviderUrl)
	}

	return nil
}

func (c *vaultClient) GetConfigData(ctx context.Context) (*types.Config, error) {
	cfg, err := c.store.ConfigStore().GetData(ctx)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, fmt.Errorf("client not initialized")
	}
	return cfg, nil
}

// SubmitPegin runs the whole funding flow: utxo selection, fee
// estimation, extending the skeleton, wallet signing and broadcast. The
// resulting vault is recorded as Pending.
func (c *vaultClient) SubmitPegin(
	ctx context.Context, args SubmitPeginArgs,
) (*PeginResult, error) {
	cfg, err := c.GetConfigData(ctx)
	if err != nil {
		return nil, err
	}

	netParams, err := connector.NetParams(cfg.Network)
	if err != nil {
		return nil, err
	}

	utxos, err := c.explorer.GetUtxos(args.FundingAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch utxos: %w", err)
	}

	feeRate := args.FeeRate
	if feeRate == 0 {
		estimate, err := c.explorer.GetFeeRate()
		if err != nil {
			return nil, fmt.Errorf("failed to fetch fee rate: %w", err)
		}
		feeRate = uint64(estimate)
		if feeRate == 0 {
			feeRate = 1
		}
	}

	selection, err := txbuilder.SelectUtxos(utxos, args.Amount, feeRate)
	if err != nil {
		return nil, err
	}

	peginSkeleton, err := c.skeletonBuilder.CreatePegin(ctx, skeleton.CreatePeginRequest{
		DepositorPubKey:   args.Keys.Depositor,
		ProviderPubKey:    args.Keys.Provider,
		LiquidatorPubKeys: args.Keys.Liquidators,
		Amount:            args.Amount,
		Network:           cfg.Network,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create pegin skeleton: %w", err)
	}

	unsigned, err := txbuilder.BuildPeginTx(*peginSkeleton, *selection, args.ChangeAddr, netParams)
	if err != nil {
		return nil, err
	}

	signedHex, err := c.wallet.SignPsbt(ctx, unsigned.PsbtHex)
	if err != nil {
		return nil, fmt.Errorf("wallet signing failed: %w", err)
	}

	txHex, err := finalizeTx(signedHex)
	if err != nil {
		return nil, err
	}

	txid, err := c.explorer.Broadcast(txHex)
	if err != nil {
		return nil, fmt.Errorf("failed to broadcast pegin: %w", err)
	}

	log.WithFields(log.Fields{
		"txid":          txid,
		"expected_txid": unsigned.Txid,
		"amount":        args.Amount,
		"fee":           selection.Fee,
		"change":        selection.Change,
		"num_inputs":    len(selection.Utxos),
	}).Info("pegin broadcast")

	vault := types.Vault{
		PeginTxid: txid,
		Amount:    args.Amount,
		Status:    types.VaultStatusPending,
		Keys:      args.Keys,
	}
	if err := c.store.VaultStore().AddVault(ctx, vault); err != nil {
		return nil, fmt.Errorf("failed to record vault: %w", err)
	}

	return &PeginResult{
		Txid:         txid,
		ExpectedTxid: unsigned.Txid,
		Selection:    *selection,
	}, nil
}

// SignPayouts fetches the claimer transaction sets for a peg-in, co-signs
// each payout transaction through the wallet and submits the signature
// batch back to the provider.
func (c *vaultClient) SignPayouts(
	ctx context.Context, peginTxid string,
) (types.SignatureMap, error) {
	cfg, err := c.GetConfigData(ctx)
	if err != nil {
		return nil, err
	}

	vault, err := c.store.VaultStore().GetVault(ctx, peginTxid)
	if err != nil {
		return nil, err
	}
	if vault == nil {
		return nil, fmt.Errorf("unknown vault %s", peginTxid)
	}

	graph, err := c.provider.GetPeginGraph(ctx, peginTxid)
	if err != nil {
		return nil, err
	}

	liquidators, err := connector.ResolveLiquidatorOrder(
		graph.LiquidatorOrder, vault.Keys.Liquidators, cfg.LiquidatorOrderFallback,
	)
	if err != nil {
		return nil, err
	}

	keys := types.ParticipantKeySet{
		Depositor:   vault.Keys.Depositor,
		Provider:    vault.Keys.Provider,
		Liquidators: liquidators,
	}

	peginHex, err := c.explorer.GetTxHex(peginTxid)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pegin tx: %w", err)
	}

	sigs := make(types.SignatureMap, 0, len(graph.ClaimerTxs))
	for _, claimer := range graph.ClaimerTxs {
		result, err := c.signer.Sign(ctx, payout.SignRequest{
			PayoutTxHex: claimer.PayoutTxHex,
			PeginTxHex:  peginHex,
			ClaimTxHex:  claimer.ClaimTxHex,
			Keys:        keys,
		})
		if err != nil {
			return nil, fmt.Errorf(
				"failed to sign payout for claimer %s: %w", claimer.ClaimerPubKey, err,
			)
		}

		sigs = sigs.Set(claimer.ClaimerPubKey, result.Signature)
	}

	if err := c.provider.SubmitSignatures(ctx, peginTxid, sigs); err != nil {
		return nil, err
	}

	vault.PayoutsSigned = true
	if err := c.store.VaultStore().UpdateVault(ctx, *vault); err != nil {
		return nil, fmt.Errorf("failed to record signed payouts: %w", err)
	}

	return sigs, nil
}

// Broadcast submits a signed transaction. Network errors are re-raised
// verbatim; retry policy is the caller's concern.
func (c *vaultClient) Broadcast(
	_ context.Context, signedTxHex string,
) (string, error) {
	return c.explorer.Broadcast(signedTxHex)
}

// Redeem broadcasts a signed transaction spending a vault and tracks it as
// the pending broadcast of that vault, so the display shows the
// Broadcasting overlay until the on-chain status catches up.
func (c *vaultClient) Redeem(
	ctx context.Context, peginTxid, signedTxHex string,
) (string, error) {
	vault, err := c.store.VaultStore().GetVault(ctx, peginTxid)
	if err != nil {
		return "", err
	}
	if vault == nil {
		return "", fmt.Errorf("unknown vault %s", peginTxid)
	}

	txid, err := c.explorer.Broadcast(signedTxHex)
	if err != nil {
		return "", fmt.Errorf("failed to broadcast redeem: %w", err)
	}

	vault.PendingTxid = txid
	if err := c.store.VaultStore().UpdateVault(ctx, *vault); err != nil {
		return "", fmt.Errorf("failed to record pending broadcast: %w", err)
	}

	log.WithFields(log.Fields{
		"pegin_txid": peginTxid,
		"txid":       txid,
	}).Info("redeem broadcast")

	return txid, nil
}

// VaultDisplay refreshes the on-chain status of a peg-in, reconciles away
// stale local overlays and derives the display state.
func (c *vaultClient) VaultDisplay(
	ctx context.Context, peginTxid string,
) (*status.Display, error) {
	vault, err := c.store.VaultStore().GetVault(ctx, peginTxid)
	if err != nil {
		return nil, err
	}
	if vault == nil {
		return nil, fmt.Errorf("unknown vault %s", peginTxid)
	}

	onchainStatus, err := c.provider.GetVaultStatus(ctx, peginTxid)
	if err != nil {
		return nil, err
	}

	if onchainStatus != vault.Status {
		// the chain caught up with whatever we did locally.
		vault.Status = onchainStatus
		vault.PendingTxid = ""
		if err := c.store.VaultStore().UpdateVault(ctx, *vault); err != nil {
			return nil, err
		}
	}

	display := status.Derive(onchainStatus, status.Flags{
		PayoutsSigned: vault.PayoutsSigned,
		Broadcasting:  vault.PendingTxid != "",
	})

	return &display, nil
}

func (c *vaultClient) ListVaults(ctx context.Context) ([]types.Vault, error) {
	return c.store.VaultStore().GetAllVaults(ctx)
}

func (c *vaultClient) Stop() {
	c.store.Close()
}

// finalizeTx turns a wallet response into a broadcastable raw transaction.
// Wallets return either a finalized PSBT, a signed-but-unfinalized PSBT or
// a raw transaction.
func finalizeTx(signedHex string) (string, error) {
	raw, err := hex.DecodeString(signedHex)
	if err != nil {
		return "", fmt.Errorf("wallet response is not valid hex: %w", err)
	}

	packet, err := psbt.NewFromRawBytes(bytes.NewReader(raw), false)
	if err != nil {
		// not a psbt, expect a raw transaction.
		tx := &wire.MsgTx{}
		if err := tx.Deserialize(hex.NewDecoder(strings.NewReader(signedHex))); err != nil {
			return "", fmt.Errorf("wallet response is neither a psbt nor a transaction: %w", err)
		}
		return signedHex, nil
	}

	if err := psbt.MaybeFinalizeAll(packet); err != nil {
		return "", fmt.Errorf("failed to finalize signed pegin: %w", err)
	}

	tx, err := psbt.Extract(packet)
	if err != nil {
		return "", fmt.Errorf("failed to extract signed pegin: %w", err)
	}

	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		return "", err
	}

	return hex.EncodeToString(buf.Bytes()), nil
}
