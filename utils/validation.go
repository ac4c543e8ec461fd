package utils

import (
	"fmt"
	"math/big"

	"github.com/go-playground/validator/v10"
	"github.com/stellar/go/strkey"

	"github.com/vorpalengineering/x402-stellar/types"
)

var validate = validator.New()

// ValidateRequirements checks a PaymentRequirements for structural and
// semantic validity: scheme, known network, a payable amount, a receiver
// account valid for the network, and an asset that is either the native
// sentinel or a contract id.
func ValidateRequirements(req *types.PaymentRequirements) error {
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("invalid payment requirements: %w", err)
	}

	if _, err := types.LookupNetwork(req.Network); err != nil {
		return err
	}

	amount, err := ParseAmount(req.MaxAmountRequired)
	if err != nil {
		return err
	}
	if amount.Cmp(big.NewInt(1)) < 0 {
		return fmt.Errorf("maxAmountRequired must be at least 1, got %s", req.MaxAmountRequired)
	}

	if !strkey.IsValidEd25519PublicKey(req.PayTo) && !IsContractID(req.PayTo) {
		return fmt.Errorf("invalid payTo account: %s", req.PayTo)
	}

	if req.Asset != types.AssetNative && !IsContractID(req.Asset) {
		return fmt.Errorf("invalid asset: %s", req.Asset)
	}

	return nil
}

// ValidatePayloadShape checks that a decoded payment payload carries every
// field the exact scheme requires. It does not touch the ledger.
func ValidatePayloadShape(payload *types.PaymentPayload) string {
	if payload.X402Version != types.X402Version {
		return types.ReasonInvalidX402Version
	}
	if payload.Scheme != types.SchemeExact {
		return types.ReasonUnsupportedScheme
	}
	if payload.Network == "" {
		return types.ReasonMissingRequiredFields
	}

	inner := &payload.Payload
	if inner.SignedTxXDR == "" {
		return types.ReasonMissingSignedTx
	}
	if inner.SourceAccount == "" || inner.Amount == "" || inner.Destination == "" || inner.Asset == "" {
		return types.ReasonMissingRequiredFields
	}
	if _, err := ParseAmount(inner.Amount); err != nil {
		return types.ReasonInvalidPayload
	}

	return ""
}

// IsContractID reports whether s is a valid contract id.
func IsContractID(s string) bool {
	_, err := strkey.Decode(strkey.VersionByteContract, s)
	return err == nil
}
