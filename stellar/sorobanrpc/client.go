// Package sorobanrpc is a minimal JSON-RPC 2.0 client for the smart
// contract RPC endpoint, covering the four calls the payment pipeline
// needs: ledger height, simulation, submission and confirmation polling.
package sorobanrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
)

// Transaction send statuses.
const (
	SendStatusPending       = "PENDING"
	SendStatusDuplicate     = "DUPLICATE"
	SendStatusError         = "ERROR"
	SendStatusTryAgainLater = "TRY_AGAIN_LATER"
)

// Transaction lookup statuses.
const (
	TxStatusNotFound = "NOT_FOUND"
	TxStatusSuccess  = "SUCCESS"
	TxStatusFailed   = "FAILED"
)

type Client struct {
	url        string
	httpClient *http.Client
	nextID     atomic.Int64
}

func NewClient(url string) *Client {
	return &Client{
		url:        url,
		httpClient: &http.Client{},
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

func (c *Client) call(ctx context.Context, method string, params any, result any) error {
	// Encode request
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("rpc request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	// Decode response
	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("rpc error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}

	if err := json.Unmarshal(rpcResp.Result, result); err != nil {
		return fmt.Errorf("failed to decode result: %w", err)
	}
	return nil
}

type LatestLedgerResult struct {
	Sequence uint32 `json:"sequence"`
}

// GetLatestLedger returns the sequence of the most recently closed ledger.
func (c *Client) GetLatestLedger(ctx context.Context) (*LatestLedgerResult, error) {
	var result LatestLedgerResult
	if err := c.call(ctx, "getLatestLedger", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

type SimulateResult struct {
	// TransactionData is base64 XDR of the resource footprint to attach
	// to the final transaction.
	TransactionData string `json:"transactionData"`

	// MinResourceFee is the resource fee the final transaction must carry,
	// on top of the inclusion fee.
	MinResourceFee string `json:"minResourceFee"`

	Results []SimulateOpResult `json:"results"`

	LatestLedger uint32 `json:"latestLedger"`

	// Error is set when the simulated invocation would fail.
	Error string `json:"error,omitempty"`
}

type SimulateOpResult struct {
	// Auth holds base64 XDR authorization entries required by the call.
	Auth []string `json:"auth"`

	// XDR is the base64 return value of the invocation.
	XDR string `json:"xdr"`
}

type simulateParams struct {
	Transaction string `json:"transaction"`
}

// SimulateTransaction runs a contract invocation against current ledger
// state without submitting it.
func (c *Client) SimulateTransaction(ctx context.Context, txXDR string) (*SimulateResult, error) {
	var result SimulateResult
	if err := c.call(ctx, "simulateTransaction", simulateParams{Transaction: txXDR}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

type SendResult struct {
	Hash           string `json:"hash"`
	Status         string `json:"status"`
	ErrorResultXDR string `json:"errorResultXdr,omitempty"`
	LatestLedger   uint32 `json:"latestLedger"`
}

type sendParams struct {
	Transaction string `json:"transaction"`
}

// SendTransaction submits a signed transaction to the network.
func (c *Client) SendTransaction(ctx context.Context, txXDR string) (*SendResult, error) {
	var result SendResult
	if err := c.call(ctx, "sendTransaction", sendParams{Transaction: txXDR}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

type TransactionResult struct {
	Status         string `json:"status"`
	Ledger         uint32 `json:"ledger,omitempty"`
	ResultXDR      string `json:"resultXdr,omitempty"`
	EnvelopeXDR    string `json:"envelopeXdr,omitempty"`
	CreatedAt      string `json:"createdAt,omitempty"`
	ApplicationOrd int    `json:"applicationOrder,omitempty"`
}

type getTransactionParams struct {
	Hash string `json:"hash"`
}

// GetTransaction looks up the status of a submitted transaction.
func (c *Client) GetTransaction(ctx context.Context, hash string) (*TransactionResult, error) {
	var result TransactionResult
	if err := c.call(ctx, "getTransaction", getTransactionParams{Hash: hash}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
