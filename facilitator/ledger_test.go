package facilitator

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/stellar/go/amount"
	"github.com/stellar/go/keypair"
	"github.com/stellar/go/network"
	"github.com/stellar/go/txnbuild"

	"github.com/vorpalengineering/x402-stellar/logger"
	"github.com/vorpalengineering/x402-stellar/metrics"
	"github.com/vorpalengineering/x402-stellar/replay"
	"github.com/vorpalengineering/x402-stellar/stellar"
	"github.com/vorpalengineering/x402-stellar/stellar/sorobanrpc"
	"github.com/vorpalengineering/x402-stellar/types"
)

// fakeLedger scripts ledger responses and records submissions.
type fakeLedger struct {
	mu          sync.Mutex
	accounts    map[string]*stellar.Account
	latest      uint32
	submitCalls int
	submitDelay time.Duration
	submitErr   error
	lastSubmit  string
	sendCalls   int
	sendResult  *sorobanrpc.SendResult
	sendErr     error
	txStatus    map[string]string
	simResult   *sorobanrpc.SimulateResult
	simErr      error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		accounts:  make(map[string]*stellar.Account),
		latest:    1000,
		txStatus:  make(map[string]string),
		simResult: &sorobanrpc.SimulateResult{},
	}
}

func (l *fakeLedger) NetworkPassphrase() string {
	return network.TestNetworkPassphrase
}

func (l *fakeLedger) AccountDetail(_ context.Context, accountID string) (*stellar.Account, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	account, ok := l.accounts[accountID]
	if !ok {
		return nil, stellar.ErrAccountNotFound
	}
	copied := *account
	return &copied, nil
}

func (l *fakeLedger) LatestLedger(context.Context) (uint32, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.latest, nil
}

func (l *fakeLedger) SubmitTransactionXDR(_ context.Context, txXDR string) (*stellar.SubmitResult, error) {
	l.mu.Lock()
	l.submitCalls++
	l.lastSubmit = txXDR
	delay := l.submitDelay
	err := l.submitErr
	l.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return nil, err
	}
	return &stellar.SubmitResult{Hash: "accepted", Ledger: 1001}, nil
}

func (l *fakeLedger) SimulateTransaction(context.Context, string) (*sorobanrpc.SimulateResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.simErr != nil {
		return nil, l.simErr
	}
	return l.simResult, nil
}

func (l *fakeLedger) SendTransaction(_ context.Context, txXDR string) (*sorobanrpc.SendResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sendCalls++
	if l.sendErr != nil {
		return nil, l.sendErr
	}
	if l.sendResult != nil {
		return l.sendResult, nil
	}
	return &sorobanrpc.SendResult{Status: sorobanrpc.SendStatusPending}, nil
}

func (l *fakeLedger) GetTransaction(_ context.Context, hash string) (*sorobanrpc.TransactionResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	status, ok := l.txStatus[hash]
	if !ok {
		return &sorobanrpc.TransactionResult{Status: sorobanrpc.TxStatusNotFound}, nil
	}
	return &sorobanrpc.TransactionResult{Status: status, Ledger: 1001}, nil
}

func (l *fakeLedger) fundAccount(accountID string, balance int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.accounts[accountID] = &stellar.Account{
		ID:            accountID,
		Sequence:      100,
		NativeBalance: big.NewInt(balance),
	}
}

var _ stellar.Ledger = (*fakeLedger)(nil)

func newTestFacilitator(t *testing.T, ledger stellar.Ledger, store replay.Store) *Facilitator {
	t.Helper()
	config := &FacilitatorConfig{
		Server: ServerConfig{Host: "localhost", Port: 4021},
		Supported: []types.SupportedKind{
			{Scheme: types.SchemeExact, Network: types.NetworkTestnet},
		},
		Store: StoreConfig{ConnString: "memory://", AllowMemoryStore: true},
		Log:   LogConfig{Level: "info"},
	}
	ledgers := map[string]stellar.Ledger{types.NetworkTestnet: ledger}
	return newFacilitator(config, store, ledgers, logger.NoopLogger{}, metrics.NoopRecorder{})
}

// paymentFixture is a fully signed payment plus the matching challenge.
type paymentFixture struct {
	kp           *keypair.Full
	payTo        string
	payload      *types.PaymentPayload
	requirements *types.PaymentRequirements
	hash         string
}

// nativeFixture signs a native payment of paidStroops and pairs it with a
// challenge demanding requiredStroops.
func nativeFixture(t *testing.T, paidStroops int64, requiredStroops string, validUntil uint32) *paymentFixture {
	t.Helper()

	kp := keypair.MustRandom()
	payTo := keypair.MustRandom().Address()

	op := &txnbuild.Payment{
		Destination: payTo,
		Amount:      amount.StringFromInt64(paidStroops),
		Asset:       txnbuild.NativeAsset{},
	}
	tx := signFixtureTx(t, kp, op)

	hash, err := tx.HashHex(network.TestNetworkPassphrase)
	if err != nil {
		t.Fatalf("Failed to hash transaction: %v", err)
	}
	signedXDR, err := tx.Base64()
	if err != nil {
		t.Fatalf("Failed to encode transaction: %v", err)
	}

	return &paymentFixture{
		kp:    kp,
		payTo: payTo,
		hash:  hash,
		payload: &types.PaymentPayload{
			X402Version: types.X402Version,
			Scheme:      types.SchemeExact,
			Network:     types.NetworkTestnet,
			Payload: types.ExactStellarPayload{
				SignedTxXDR:      signedXDR,
				SourceAccount:    kp.Address(),
				Amount:           big.NewInt(paidStroops).String(),
				Destination:      payTo,
				Asset:            types.AssetNative,
				ValidUntilLedger: validUntil,
				Nonce:            "3c1d5e7f-9a0b-4c2d-8e3f-6a7b8c9d0e1f",
			},
		},
		requirements: &types.PaymentRequirements{
			Scheme:            types.SchemeExact,
			Network:           types.NetworkTestnet,
			MaxAmountRequired: requiredStroops,
			Resource:          "https://api.example.com/data",
			Description:       "test data",
			MimeType:          "application/json",
			PayTo:             payTo,
			MaxTimeoutSeconds: 2,
			Asset:             types.AssetNative,
		},
	}
}

func signFixtureTx(t *testing.T, kp *keypair.Full, op txnbuild.Operation) *txnbuild.Transaction {
	t.Helper()

	tx, err := txnbuild.NewTransaction(txnbuild.TransactionParams{
		SourceAccount: &txnbuild.SimpleAccount{
			AccountID: kp.Address(),
			Sequence:  100,
		},
		IncrementSequenceNum: true,
		Operations:           []txnbuild.Operation{op},
		BaseFee:              txnbuild.MinBaseFee,
		Preconditions: txnbuild.Preconditions{
			TimeBounds: txnbuild.NewTimeout(300),
		},
	})
	if err != nil {
		t.Fatalf("Failed to build transaction: %v", err)
	}

	tx, err = tx.Sign(network.TestNetworkPassphrase, kp)
	if err != nil {
		t.Fatalf("Failed to sign transaction: %v", err)
	}
	return tx
}
