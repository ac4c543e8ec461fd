// Package stellar is the narrow ledger capability the payment pipeline
// relies on: account lookup, ledger height, transaction parse/hash/submit,
// fee-bump wrapping and contract-call assembly. The facilitator and the
// client builder depend on the Ledger interface, never on the SDK clients
// directly.
package stellar

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"

	"github.com/stellar/go/amount"
	"github.com/stellar/go/clients/horizonclient"

	"github.com/vorpalengineering/x402-stellar/stellar/sorobanrpc"
	"github.com/vorpalengineering/x402-stellar/types"
)

// ErrAccountNotFound is returned when the ledger has no entry for the
// requested account id.
var ErrAccountNotFound = errors.New("account not found")

// Account is the slice of ledger account state the pipeline needs.
type Account struct {
	ID            string
	Sequence      int64
	NativeBalance *big.Int
}

// SubmitResult reports a transaction accepted by the transaction-history
// endpoint.
type SubmitResult struct {
	Hash   string
	Ledger uint32
}

// Ledger is the adapter over the ledger SDK.
type Ledger interface {
	// NetworkPassphrase returns the passphrase transactions on this
	// network must be hashed with.
	NetworkPassphrase() string

	// AccountDetail loads current sequence and native balance for an
	// account. Returns ErrAccountNotFound for missing accounts.
	AccountDetail(ctx context.Context, accountID string) (*Account, error)

	// LatestLedger returns the sequence of the last closed ledger.
	LatestLedger(ctx context.Context) (uint32, error)

	// SubmitTransactionXDR submits a signed transaction envelope and
	// waits for ledger acceptance.
	SubmitTransactionXDR(ctx context.Context, txXDR string) (*SubmitResult, error)

	// SimulateTransaction runs a contract invocation without submitting.
	SimulateTransaction(ctx context.Context, txXDR string) (*sorobanrpc.SimulateResult, error)

	// SendTransaction submits through the smart-contract RPC endpoint.
	SendTransaction(ctx context.Context, txXDR string) (*sorobanrpc.SendResult, error)

	// GetTransaction polls the smart-contract RPC endpoint for the status
	// of a submitted transaction.
	GetTransaction(ctx context.Context, hash string) (*sorobanrpc.TransactionResult, error)
}

// Client implements Ledger over a Horizon endpoint and a smart-contract
// RPC endpoint.
type Client struct {
	params  types.NetworkParams
	horizon *horizonclient.Client
	rpc     *sorobanrpc.Client
}

// NewClient builds a ledger client for a network.
func NewClient(params types.NetworkParams) *Client {
	return &Client{
		params: params,
		horizon: &horizonclient.Client{
			HorizonURL: params.HorizonURL,
			HTTP:       http.DefaultClient,
		},
		rpc: sorobanrpc.NewClient(params.SorobanRPCURL),
	}
}

func (c *Client) NetworkPassphrase() string {
	return c.params.Passphrase
}

func (c *Client) AccountDetail(ctx context.Context, accountID string) (*Account, error) {
	record, err := c.horizon.AccountDetail(horizonclient.AccountRequest{AccountID: accountID})
	if err != nil {
		var horizonErr *horizonclient.Error
		if errors.As(err, &horizonErr) && horizonErr.Problem.Status == http.StatusNotFound {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to load account %s: %w", accountID, err)
	}

	sequence, err := record.GetSequenceNumber()
	if err != nil {
		return nil, fmt.Errorf("failed to read sequence for %s: %w", accountID, err)
	}

	native := big.NewInt(0)
	for _, balance := range record.Balances {
		if balance.Type != "native" {
			continue
		}
		stroops, err := amount.ParseInt64(balance.Balance)
		if err != nil {
			return nil, fmt.Errorf("failed to parse native balance: %w", err)
		}
		native = big.NewInt(stroops)
	}

	return &Account{
		ID:            accountID,
		Sequence:      sequence,
		NativeBalance: native,
	}, nil
}

func (c *Client) LatestLedger(ctx context.Context) (uint32, error) {
	result, err := c.rpc.GetLatestLedger(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get latest ledger: %w", err)
	}
	return result.Sequence, nil
}

func (c *Client) SubmitTransactionXDR(ctx context.Context, txXDR string) (*SubmitResult, error) {
	tx, err := c.horizon.SubmitTransactionXDR(txXDR)
	if err != nil {
		return nil, fmt.Errorf("transaction submission failed: %w", err)
	}
	return &SubmitResult{
		Hash:   tx.Hash,
		Ledger: uint32(tx.Ledger),
	}, nil
}

func (c *Client) SimulateTransaction(ctx context.Context, txXDR string) (*sorobanrpc.SimulateResult, error) {
	return c.rpc.SimulateTransaction(ctx, txXDR)
}

func (c *Client) SendTransaction(ctx context.Context, txXDR string) (*sorobanrpc.SendResult, error) {
	return c.rpc.SendTransaction(ctx, txXDR)
}

func (c *Client) GetTransaction(ctx context.Context, hash string) (*sorobanrpc.TransactionResult, error) {
	return c.rpc.GetTransaction(ctx, hash)
}
