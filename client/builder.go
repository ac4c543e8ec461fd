package client

import (
	"context"
	"fmt"
	"math/big"

	"github.com/google/uuid"
	"github.com/stellar/go/amount"
	"github.com/stellar/go/txnbuild"

	"github.com/vorpalengineering/x402-stellar/stellar"
	"github.com/vorpalengineering/x402-stellar/types"
	"github.com/vorpalengineering/x402-stellar/utils"
)

// Builder constructs signed payment payloads that satisfy a challenge.
type Builder struct {
	ledger stellar.Ledger
	signer Signer
}

func NewBuilder(ledger stellar.Ledger, signer Signer) *Builder {
	return &Builder{
		ledger: ledger,
		signer: signer,
	}
}

// BuildPaymentHeader builds, signs and encodes the X-Payment header value
// for a challenge.
func (b *Builder) BuildPaymentHeader(ctx context.Context, requirements *types.PaymentRequirements) (string, error) {
	payload, err := b.BuildPayment(ctx, requirements)
	if err != nil {
		return "", err
	}
	return utils.EncodePaymentHeader(payload)
}

// BuildPayment builds and signs the payment payload for a challenge.
func (b *Builder) BuildPayment(ctx context.Context, requirements *types.PaymentRequirements) (*types.PaymentPayload, error) {
	if err := utils.ValidateRequirements(requirements); err != nil {
		return nil, err
	}

	source, err := b.signer.PublicKey()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve signing account: %w", err)
	}

	account, err := b.ledger.AccountDetail(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("failed to load source account: %w", err)
	}

	required, err := utils.ParseAmount(requirements.MaxAmountRequired)
	if err != nil {
		return nil, err
	}

	timeout := requirements.MaxTimeoutSeconds
	if timeout <= 0 {
		timeout = types.DefaultTimeoutSeconds
	}

	var tx *txnbuild.Transaction
	if requirements.Asset == types.AssetNative {
		tx, err = b.buildNativePayment(account, requirements.PayTo, required, timeout)
	} else {
		tx, err = b.buildContractPayment(ctx, account, requirements, required, timeout)
	}
	if err != nil {
		return nil, err
	}

	// Transaction expiry in ledger sequence terms
	current, err := b.ledger.LatestLedger(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read current ledger: %w", err)
	}
	validUntil := current + uint32((timeout+types.LedgerCloseSeconds-1)/types.LedgerCloseSeconds)

	signed, err := b.signer.SignTransaction(ctx, tx, b.ledger.NetworkPassphrase())
	if err != nil {
		return nil, err
	}

	signedXDR, err := signed.Base64()
	if err != nil {
		return nil, fmt.Errorf("failed to encode signed transaction: %w", err)
	}

	return &types.PaymentPayload{
		X402Version: types.X402Version,
		Scheme:      types.SchemeExact,
		Network:     requirements.Network,
		Payload: types.ExactStellarPayload{
			SignedTxXDR:      signedXDR,
			SourceAccount:    source,
			Amount:           required.String(),
			Destination:      requirements.PayTo,
			Asset:            requirements.Asset,
			ValidUntilLedger: validUntil,
			Nonce:            uuid.NewString(),
		},
	}, nil
}

func (b *Builder) buildNativePayment(account *stellar.Account, payTo string, required *big.Int, timeout int) (*txnbuild.Transaction, error) {
	if !required.IsInt64() {
		return nil, fmt.Errorf("amount out of range: %s", required)
	}

	op := &txnbuild.Payment{
		Destination: payTo,
		Amount:      amount.StringFromInt64(required.Int64()),
		Asset:       txnbuild.NativeAsset{},
	}

	tx, err := txnbuild.NewTransaction(txnbuild.TransactionParams{
		SourceAccount: &txnbuild.SimpleAccount{
			AccountID: account.ID,
			Sequence:  account.Sequence,
		},
		IncrementSequenceNum: true,
		Operations:           []txnbuild.Operation{op},
		BaseFee:              txnbuild.MinBaseFee,
		Preconditions: txnbuild.Preconditions{
			TimeBounds: txnbuild.NewTimeout(int64(timeout)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build payment transaction: %w", err)
	}
	return tx, nil
}

// buildContractPayment assembles the transfer invocation, simulates it to
// obtain authorization entries and the resource footprint, then assembles
// the final transaction carrying both.
func (b *Builder) buildContractPayment(ctx context.Context, account *stellar.Account, requirements *types.PaymentRequirements, required *big.Int, timeout int) (*txnbuild.Transaction, error) {
	op, err := stellar.NewContractTransferOp(requirements.Asset, account.ID, requirements.PayTo, required)
	if err != nil {
		return nil, err
	}

	params := txnbuild.TransactionParams{
		SourceAccount: &txnbuild.SimpleAccount{
			AccountID: account.ID,
			Sequence:  account.Sequence,
		},
		IncrementSequenceNum: true,
		Operations:           []txnbuild.Operation{op},
		BaseFee:              txnbuild.MinBaseFee,
		Preconditions: txnbuild.Preconditions{
			TimeBounds: txnbuild.NewTimeout(int64(timeout)),
		},
	}

	draft, err := txnbuild.NewTransaction(params)
	if err != nil {
		return nil, fmt.Errorf("failed to build invocation transaction: %w", err)
	}
	draftXDR, err := draft.Base64()
	if err != nil {
		return nil, fmt.Errorf("failed to encode invocation transaction: %w", err)
	}

	sim, err := b.ledger.SimulateTransaction(ctx, draftXDR)
	if err != nil {
		return nil, fmt.Errorf("simulation failed: %w", err)
	}
	resourceFee, err := stellar.ApplySimulation(op, sim)
	if err != nil {
		return nil, err
	}

	// The final transaction pays the inclusion fee plus the simulated
	// resource fee, and must not consume the sequence number the draft
	// already took.
	params.BaseFee = txnbuild.MinBaseFee + resourceFee
	params.SourceAccount = &txnbuild.SimpleAccount{
		AccountID: account.ID,
		Sequence:  account.Sequence,
	}

	tx, err := txnbuild.NewTransaction(params)
	if err != nil {
		return nil, fmt.Errorf("failed to assemble final transaction: %w", err)
	}
	return tx, nil
}
