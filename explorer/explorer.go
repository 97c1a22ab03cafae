package explorer

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/btcsuite/btcd/wire"

	"github.com/babylonlabs-io/vault-sdk/types"
)

// Explorer is the esplora-style REST collaborator the SDK relies on for
// utxo listing, previous output lookup, fee rates and broadcasting.
type Explorer interface {
	GetTxHex(txid string) (string, error)
	Broadcast(txHex string) (string, error)
	GetUtxos(addr string) ([]types.Utxo, error)
	GetTxBlockTime(txid string) (confirmed bool, blocktime int64, err error)
	GetFeeRate() (float64, error)
	BaseUrl() string
}

type explorerSvc struct {
	cache   map[string]string
	lock    sync.RWMutex
	baseUrl string
}

func NewExplorer(baseUrl string) Explorer {
	return &explorerSvc{
		cache:   make(map[string]string),
		baseUrl: baseUrl,
	}
}

func (e *explorerSvc) BaseUrl() string {
	return e.baseUrl
}

func (e *explorerSvc) GetTxHex(txid string) (string, error) {
	e.lock.RLock()
	if hex, ok := e.cache[txid]; ok {
		e.lock.RUnlock()
		return hex, nil
	}
	e.lock.RUnlock()

	txHex, err := e.getTxHex(txid)
	if err != nil {
		return "", err
	}

	e.lock.Lock()
	e.cache[txid] = txHex
	e.lock.Unlock()

	return txHex, nil
}

func (e *explorerSvc) Broadcast(txHex string) (string, error) {
	tx := &wire.MsgTx{}
	if err := tx.Deserialize(hex.NewDecoder(strings.NewReader(txHex))); err != nil {
		return "", fmt.Errorf("failed to decode tx for broadcast: %s", err)
	}
	txid := tx.TxHash().String()

	e.lock.Lock()
	e.cache[txid] = txHex
	e.lock.Unlock()

	txid, err := e.broadcast(txHex)
	if err != nil {
		if strings.Contains(
			strings.ToLower(err.Error()), "transaction already in block chain",
		) {
			return tx.TxHash().String(), nil
		}

		return "", err
	}

	return txid, nil
}

func (e *explorerSvc) GetUtxos(addr string) ([]types.Utxo, error) {
	resp, err := http.Get(fmt.Sprintf("%s/address/%s/utxo", e.baseUrl, addr))
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
	payload := []utxo{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}

	utxos := make([]types.Utxo, 0, len(payload))
	for _, u := range payload {
		script, err := e.getOutputScript(u.Txid, u.Vout)
		if err != nil {
			return nil, err
		}
		utxos = append(utxos, u.toTypes(script))
	}

	return utxos, nil
}

func (e *explorerSvc) GetTxBlockTime(
	txid string,
) (confirmed bool, blocktime int64, err error) {
	resp, err := http.Get(fmt.Sprintf("%s/tx/%s", e.baseUrl, txid))
	if err != nil {
		return false, 0, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, 0, err
	}

	if resp.StatusCode != http.StatusOK {
		return false, 0, fmt.Errorf(string(body))
	}

	var tx struct {
		Status struct {
			Confirmed bool  `json:"confirmed"`
			Blocktime int64 `json:"block_time"`
		} `json:"status"`
	}
	if err := json.Unmarshal(body, &tx); err != nil {
		return false, 0, err
	}

	if !tx.Status.Confirmed {
		return false, -1, nil
	}

	return true, tx.Status.Blocktime, nil
}

// GetFeeRate returns the next-block fee estimate in sat/vbyte.
func (e *explorerSvc) GetFeeRate() (float64, error) {
	resp, err := http.Get(fmt.Sprintf("%s/fee-estimates", e.baseUrl))
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, err
	}

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf(string(body))
	}

	estimates := make(map[string]float64)
	if err := json.Unmarshal(body, &estimates); err != nil {
		return 0, err
	}

	feeRate, ok := estimates["1"]
	if !ok {
		return 0, fmt.Errorf("no next-block fee estimate available")
	}

	return feeRate, nil
}

func (e *explorerSvc) getOutputScript(txid string, vout uint32) ([]byte, error) {
	txHex, err := e.GetTxHex(txid)
	if err != nil {
		return nil, err
	}

	tx := &wire.MsgTx{}
	if err := tx.Deserialize(hex.NewDecoder(strings.NewReader(txHex))); err != nil {
		return nil, err
	}

	if int(vout) >= len(tx.TxOut) {
		return nil, fmt.Errorf("output %d not found in tx %s", vout, txid)
	}

	return tx.TxOut[vout].PkScript, nil
}

func (e *explorerSvc) getTxHex(txid string) (string, error) {
	resp, err := http.Get(fmt.Sprintf("%s/tx/%s/hex", e.baseUrl, txid))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf(string(body))
	}

	return string(body), nil
}

func (e *explorerSvc) broadcast(txHex string) (string, error) {
	body := bytes.NewBuffer([]byte(txHex))

	resp, err := http.Post(fmt.Sprintf("%s/tx", e.baseUrl), "text/plain", body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	bodyResponse, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf(string(bodyResponse))
	}

	return string(bodyResponse), nil
}

type utxo struct {
	Txid   string `json:"txid"`
	Vout   uint32 `json:"vout"`
	Amount uint64 `json:"value"`
	Status struct {
		Confirmed bool  `json:"confirmed"`
		Blocktime int64 `json:"block_time"`
	} `json:"status"`
}

func (u utxo) toTypes(script []byte) types.Utxo {
	createdAt := time.Time{}
	if u.Status.Confirmed {
		createdAt = time.Unix(u.Status.Blocktime, 0)
	}

	return types.Utxo{
		Txid:      u.Txid,
		VOut:      u.Vout,
		Amount:    u.Amount,
		Script:    script,
		Confirmed: u.Status.Confirmed,
		CreatedAt: createdAt,
	}
}
