package facilitator

import (
	"context"
	"time"

	"github.com/stellar/go/txnbuild"

	"github.com/vorpalengineering/x402-stellar/stellar"
	"github.com/vorpalengineering/x402-stellar/stellar/sorobanrpc"
	"github.com/vorpalengineering/x402-stellar/types"
	"github.com/vorpalengineering/x402-stellar/utils"
)

const (
	// settlePollInterval is the cadence for contract-settlement
	// confirmation polling.
	settlePollInterval = time.Second

	// awaitPollInterval is the cadence for waiting out a concurrent
	// settlement of the same hash.
	awaitPollInterval = 100 * time.Millisecond
)

func settleFailure(reason, network, payer string) *types.SettleResponse {
	return &types.SettleResponse{
		Success:     false,
		ErrorReason: reason,
		Network:     network,
		Payer:       payer,
	}
}

// settlePayment submits a verified payload to the ledger. The replay store
// makes it idempotent: a hash that already settled returns its recorded
// outcome, and concurrent settlements of the same hash produce exactly one
// ledger submission.
func (f *Facilitator) settlePayment(ctx context.Context, payload *types.PaymentPayload, requirements *types.PaymentRequirements) *types.SettleResponse {
	network := payload.Network

	if reason := utils.ValidatePayloadShape(payload); reason != "" {
		return settleFailure(reason, network, "")
	}
	ledger, ok := f.ledgers[network]
	if !ok {
		return settleFailure(types.ReasonInvalidNetwork, network, "")
	}

	tx, err := stellar.ParseTransaction(payload.Payload.SignedTxXDR)
	if err != nil {
		return settleFailure(types.ReasonInvalidXDR, network, "")
	}
	hash, err := stellar.HashHex(tx, ledger.NetworkPassphrase())
	if err != nil {
		return settleFailure(types.ReasonInvalidXDR, network, "")
	}

	// Idempotency: a recorded outcome is returned unchanged.
	cached, err := f.store.GetSettlement(ctx, hash)
	if err != nil {
		f.log.Error("replay store read failed", map[string]any{"hash": hash, "error": err.Error()})
		return settleFailure(types.ReasonUnexpectedSettleError, network, "")
	}
	if cached != nil {
		return cached
	}

	verify := f.verifyPayment(ctx, payload, requirements)
	if !verify.IsValid {
		// A concurrent settlement may have recorded the hash since the
		// read above; its recorded outcome is the answer.
		if verify.InvalidReason == types.ReasonTransactionAlreadyUsed {
			if cached, err := f.store.GetSettlement(ctx, hash); err == nil && cached != nil {
				return cached
			}
		}
		return settleFailure(verify.InvalidReason, network, verify.Payer)
	}
	payer := verify.Payer

	timeout := time.Duration(requirements.MaxTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = types.DefaultTimeoutSeconds * time.Second
	}

	// Claim the hash before touching the ledger so concurrent settlements
	// submit at most once.
	claimed, err := f.store.BeginSettlement(ctx, hash, timeout)
	if err != nil {
		f.log.Error("replay store claim failed", map[string]any{"hash": hash, "error": err.Error()})
		return settleFailure(types.ReasonUnexpectedSettleError, network, payer)
	}
	if !claimed {
		return f.awaitSettlement(ctx, hash, timeout, network, payer)
	}

	result := f.submitPayment(ctx, ledger, tx, hash, payload, requirements, payer)
	if !result.Success {
		// No record for failures: the payload stays retryable.
		if err := f.store.AbortSettlement(ctx, hash); err != nil {
			f.log.Error("replay store release failed", map[string]any{"hash": hash, "error": err.Error()})
		}
		return result
	}

	// The record must be visible before the caller sees success.
	if err := f.store.CompleteSettlement(ctx, hash, result); err != nil {
		f.log.Error("replay store write failed", map[string]any{"hash": hash, "error": err.Error()})
		return settleFailure(types.ReasonUnexpectedSettleError, network, payer)
	}

	f.log.Info("payment settled", map[string]any{"hash": hash, "network": network, "payer": payer})
	return result
}

// awaitSettlement waits for a concurrent settlement of the same hash to
// record its outcome.
func (f *Facilitator) awaitSettlement(ctx context.Context, hash string, timeout time.Duration, network, payer string) *types.SettleResponse {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(awaitPollInterval)
	defer ticker.Stop()

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return settleFailure(types.ReasonUnexpectedSettleError, network, payer)
		case <-ticker.C:
		}

		cached, err := f.store.GetSettlement(ctx, hash)
		if err != nil {
			f.log.Error("replay store read failed", map[string]any{"hash": hash, "error": err.Error()})
			return settleFailure(types.ReasonUnexpectedSettleError, network, payer)
		}
		if cached != nil {
			return cached
		}
	}

	return settleFailure(types.ReasonUnexpectedSettleError, network, payer)
}

func (f *Facilitator) submitPayment(ctx context.Context, ledger stellar.Ledger, tx *txnbuild.Transaction, hash string, payload *types.PaymentPayload, requirements *types.PaymentRequirements, payer string) *types.SettleResponse {
	network := payload.Network

	if payload.Payload.Asset == types.AssetNative {
		return f.submitNative(ctx, ledger, tx, hash, network, payer, payload.Payload.SignedTxXDR)
	}
	return f.submitContract(ctx, ledger, hash, network, payer, payload.Payload.SignedTxXDR, requirements)
}

// submitNative settles through the transaction-history endpoint. With a
// signing key configured the caller's transaction is wrapped in a fee-bump
// envelope; the inner bytes are never modified.
func (f *Facilitator) submitNative(ctx context.Context, ledger stellar.Ledger, tx *txnbuild.Transaction, hash, network, payer, signedXDR string) *types.SettleResponse {
	submitXDR := signedXDR
	if f.config.SigningKey != nil {
		wrapped, err := stellar.WrapFeeBump(tx, f.config.SigningKey, ledger.NetworkPassphrase())
		if err != nil {
			f.log.Error("fee-bump wrap failed", map[string]any{"hash": hash, "error": err.Error()})
			return settleFailure(types.ReasonFeeBumpFailed, network, payer)
		}
		submitXDR = wrapped
	}

	if _, err := ledger.SubmitTransactionXDR(ctx, submitXDR); err != nil {
		f.log.Error("submission failed", map[string]any{"hash": hash, "error": err.Error()})
		if f.config.SigningKey != nil {
			return settleFailure(types.ReasonFeeBumpFailed, network, payer)
		}
		return settleFailure(types.ReasonTransactionFailed, network, payer)
	}

	// The settlement is identified by the payment transaction itself,
	// not the fee-bump envelope around it.
	return &types.SettleResponse{
		Success:     true,
		Transaction: hash,
		Network:     network,
		Payer:       payer,
	}
}

// submitContract settles through the smart-contract RPC endpoint and polls
// for confirmation within the requirements' timeout.
func (f *Facilitator) submitContract(ctx context.Context, ledger stellar.Ledger, hash, network, payer, signedXDR string, requirements *types.PaymentRequirements) *types.SettleResponse {
	send, err := ledger.SendTransaction(ctx, signedXDR)
	if err != nil {
		f.log.Error("contract submission failed", map[string]any{"hash": hash, "error": err.Error()})
		return settleFailure(types.ReasonTransactionFailed, network, payer)
	}

	switch send.Status {
	case sorobanrpc.SendStatusPending, sorobanrpc.SendStatusDuplicate:
		// fall through to polling
	case sorobanrpc.SendStatusTryAgainLater:
		return settleFailure(types.ReasonInvalidTransactionState, network, payer)
	default:
		f.log.Error("contract submission rejected", map[string]any{"hash": hash, "status": send.Status, "result": send.ErrorResultXDR})
		return settleFailure(types.ReasonTransactionFailed, network, payer)
	}

	timeout := time.Duration(requirements.MaxTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = types.DefaultTimeoutSeconds * time.Second
	}
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(settlePollInterval)
	defer ticker.Stop()

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return settleFailure(types.ReasonInvalidTransactionState, network, payer)
		case <-ticker.C:
		}

		status, err := ledger.GetTransaction(ctx, hash)
		if err != nil {
			f.log.Warn("confirmation poll failed", map[string]any{"hash": hash, "error": err.Error()})
			continue
		}

		switch status.Status {
		case sorobanrpc.TxStatusSuccess:
			return &types.SettleResponse{
				Success:     true,
				Transaction: hash,
				Network:     network,
				Payer:       payer,
			}
		case sorobanrpc.TxStatusFailed:
			return settleFailure(types.ReasonTransactionFailed, network, payer)
		}
	}

	// The ledger may still accept the transaction after the budget runs
	// out; if it does, a later settle observes the hash and records it.
	return settleFailure(types.ReasonInvalidTransactionState, network, payer)
}
