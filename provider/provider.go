// Package provider implements the REST client for the vault provider RPC:
// the counter-party serving draft claim/payout transactions and accepting
// the depositor's signature batch.
package provider

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/babylonlabs-io/vault-sdk/types"
)

// PeginGraph is the provider's view of a peg-in: one draft transaction
// pair per claimer plus, when available, the canonical liquidator ordering
// the payout script was generated with.
type PeginGraph struct {
	ClaimerTxs      []types.ClaimerTransactions
	LiquidatorOrder []types.XOnlyKey
}

type Client interface {
	GetPeginGraph(ctx context.Context, peginTxid string) (*PeginGraph, error)
	SubmitSignatures(ctx context.Context, peginTxid string, sigs types.SignatureMap) error
	GetVaultStatus(ctx context.Context, peginTxid string) (types.VaultStatus, error)
	BaseUrl() string
}

type restClient struct {
	baseUrl string
	http    *http.Client
}

func NewClient(baseUrl string) Client {
	return &restClient{
		baseUrl: baseUrl,
		http:    &http.Client{},
	}
}

func (c *restClient) BaseUrl() string {
	return c.baseUrl
}

func (c *restClient) GetPeginGraph(
	ctx context.Context, peginTxid string,
) (*PeginGraph, error) {
	body, err := c.get(ctx, fmt.Sprintf("%s/v1/pegins/%s/graph", c.baseUrl, peginTxid))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pegin graph: %w", err)
	}

	payload := struct {
		Claimers []struct {
			ClaimerPubKey string `json:"claimer_pubkey"`
			PayoutTxHex   string `json:"payout_tx_hex"`
			ClaimTxHex    string `json:"claim_tx_hex"`
		} `json:"claimers"`
		LiquidatorPubKeys []string `json:"liquidator_pubkeys"`
	}{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode pegin graph: %w", err)
	}

	graph := &PeginGraph{
		ClaimerTxs:      make([]types.ClaimerTransactions, 0, len(payload.Claimers)),
		LiquidatorOrder: make([]types.XOnlyKey, 0, len(payload.LiquidatorPubKeys)),
	}

	for _, claimer := range payload.Claimers {
		// compressed keys are reduced to x-only here, before any map use.
		key, err := types.XOnlyKeyFromHex(claimer.ClaimerPubKey)
		if err != nil {
			return nil, err
		}
		graph.ClaimerTxs = append(graph.ClaimerTxs, types.ClaimerTransactions{
			ClaimerPubKey: key,
			PayoutTxHex:   claimer.PayoutTxHex,
			ClaimTxHex:    claimer.ClaimTxHex,
		})
	}

	for _, keyHex := range payload.LiquidatorPubKeys {
		key, err := types.XOnlyKeyFromHex(keyHex)
		if err != nil {
			return nil, err
		}
		graph.LiquidatorOrder = append(graph.LiquidatorOrder, key)
	}

	return graph, nil
}

func (c *restClient) SubmitSignatures(
	ctx context.Context, peginTxid string, sigs types.SignatureMap,
) error {
	payload := struct {
		Signatures map[string]string `json:"signatures"`
	}{
		Signatures: make(map[string]string, len(sigs)),
	}
	for _, entry := range sigs {
		payload.Signatures[entry.ClaimerPubKey.String()] = hex.EncodeToString(entry.Signature[:])
	}

	buf, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/v1/pegins/%s/signatures", c.baseUrl, peginTxid)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to submit signatures: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("failed to submit signatures: %s", string(body))
	}

	return nil
}

func (c *restClient) GetVaultStatus(
	ctx context.Context, peginTxid string,
) (types.VaultStatus, error) {
	body, err := c.get(ctx, fmt.Sprintf("%s/v1/pegins/%s", c.baseUrl, peginTxid))
	if err != nil {
		return 0, fmt.Errorf("failed to fetch vault status: %w", err)
	}

	payload := struct {
		Status int `json:"status"`
	}{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0, fmt.Errorf("failed to decode vault status: %w", err)
	}

	vaultStatus := types.VaultStatus(payload.Status)
	if vaultStatus < types.VaultStatusPending || vaultStatus > types.VaultStatusExpired {
		return 0, fmt.Errorf("unknown vault status %d", payload.Status)
	}

	return vaultStatus, nil
}

func (c *restClient) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf(string(body))
	}

	return body, nil
}
