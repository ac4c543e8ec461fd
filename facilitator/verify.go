package facilitator

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/vorpalengineering/x402-stellar/stellar"
	"github.com/vorpalengineering/x402-stellar/types"
	"github.com/vorpalengineering/x402-stellar/utils"
)

func invalid(reason string) *types.VerifyResponse {
	return &types.VerifyResponse{
		IsValid:       false,
		InvalidReason: reason,
	}
}

// verifyPayment checks a payment payload against the stated requirements.
// It reads ledger and store state but never mutates either, so it is safe
// to call any number of times for the same payload.
func (f *Facilitator) verifyPayment(ctx context.Context, payload *types.PaymentPayload, requirements *types.PaymentRequirements) *types.VerifyResponse {
	// Step 1: payload shape
	if reason := utils.ValidatePayloadShape(payload); reason != "" {
		return invalid(reason)
	}
	if !f.config.IsSupported(payload.Scheme, payload.Network) {
		return invalid(types.ReasonInvalidNetwork)
	}
	if err := utils.ValidateRequirements(requirements); err != nil {
		return invalid(types.ReasonInvalidPaymentRequirements)
	}
	if payload.Network != requirements.Network {
		return invalid(types.ReasonNetworkMismatch)
	}

	ledger, ok := f.ledgers[payload.Network]
	if !ok {
		return invalid(types.ReasonInvalidNetwork)
	}

	// Step 2: decode the signed transaction
	tx, err := stellar.ParseTransaction(payload.Payload.SignedTxXDR)
	if err != nil {
		return invalid(types.ReasonInvalidXDR)
	}

	// Step 3: exactly one payment-style operation
	payment, err := stellar.ExtractPayment(tx)
	if err != nil {
		return invalid(types.ReasonInvalidPayment)
	}

	// Step 4: cross-check transaction against requirements and against
	// the payload's own declared fields
	if payment.Destination != requirements.PayTo {
		return invalid(types.ReasonDestinationMismatch)
	}
	required, err := utils.ParseAmount(requirements.MaxAmountRequired)
	if err != nil {
		return invalid(types.ReasonInvalidPaymentRequirements)
	}
	// Overpaying is allowed; underpaying never is.
	if payment.Amount.Cmp(required) < 0 {
		return invalid(types.ReasonAmountMismatch)
	}
	if payment.Asset != requirements.Asset {
		return invalid(types.ReasonAssetMismatch)
	}

	declared, err := utils.ParseAmount(payload.Payload.Amount)
	if err != nil || declared.Cmp(payment.Amount) != 0 {
		return invalid(types.ReasonAmountMismatch)
	}
	if payload.Payload.Destination != payment.Destination {
		return invalid(types.ReasonDestinationMismatch)
	}
	if payload.Payload.Asset != payment.Asset {
		return invalid(types.ReasonAssetMismatch)
	}
	if payload.Payload.SourceAccount != payment.Source {
		return invalid(types.ReasonInvalidPayload)
	}

	// Step 5: source-account checks
	account, err := ledger.AccountDetail(ctx, payment.Source)
	if errors.Is(err, stellar.ErrAccountNotFound) {
		return invalid(types.ReasonSourceAccountNotFound)
	}
	if err != nil {
		f.log.Error("account lookup failed", map[string]any{"account": payment.Source, "error": err.Error()})
		return invalid(types.ReasonUnexpectedVerifyError)
	}

	if payment.Asset == types.AssetNative {
		fee := big.NewInt(tx.BaseFee() * int64(len(tx.Operations())))
		total := new(big.Int).Add(payment.Amount, fee)
		if account.NativeBalance.Cmp(total) < 0 {
			return invalid(types.ReasonInsufficientBalance)
		}
	} else {
		// Token balances are not visible through the account record; a
		// simulation of the signed invocation settles the question.
		sim, err := ledger.SimulateTransaction(ctx, payload.Payload.SignedTxXDR)
		if err != nil {
			f.log.Error("simulation failed", map[string]any{"error": err.Error()})
			return invalid(types.ReasonUnexpectedVerifyError)
		}
		if sim.Error != "" {
			return invalid(types.ReasonInvalidTransactionState)
		}
	}

	// Step 6: expiration
	current, err := ledger.LatestLedger(ctx)
	if err != nil {
		f.log.Error("latest ledger lookup failed", map[string]any{"error": err.Error()})
		return invalid(types.ReasonUnexpectedVerifyError)
	}
	// A zero validUntilLedger is always in the past; there is no opt-out
	// of the expiry window.
	if current > payload.Payload.ValidUntilLedger {
		return invalid(types.ReasonTransactionExpired)
	}
	if bounds := tx.Timebounds(); bounds.MaxTime > 0 && time.Now().Unix() > bounds.MaxTime {
		return invalid(types.ReasonTransactionExpired)
	}

	// Step 7: replay
	hash, err := stellar.HashHex(tx, ledger.NetworkPassphrase())
	if err != nil {
		return invalid(types.ReasonInvalidXDR)
	}
	settled, err := f.store.GetSettlement(ctx, hash)
	if err != nil {
		f.log.Error("replay store read failed", map[string]any{"hash": hash, "error": err.Error()})
		return invalid(types.ReasonUnexpectedVerifyError)
	}
	if settled != nil {
		return invalid(types.ReasonTransactionAlreadyUsed)
	}

	return &types.VerifyResponse{
		IsValid: true,
		Payer:   payment.Source,
	}
}
