package utils

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"regexp"

	"github.com/shopspring/decimal"

	"github.com/vorpalengineering/x402-stellar/types"
)

// canonical decimal string: no sign, no separators, no leading zeros other
// than "0" itself
var amountPattern = regexp.MustCompile(`^(0|[1-9][0-9]*)$`)

// EncodePaymentHeader encodes a payment payload into the X-Payment header
// value: base64 of its JSON form.
func EncodePaymentHeader(payload *types.PaymentPayload) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payment payload: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// DecodePaymentHeader decodes an X-Payment header value back into a
// payment payload. Unknown fields are rejected, and the header must be
// exactly what EncodePaymentHeader produces for the decoded payload, so a
// tampered or truncated header never half-parses.
func DecodePaymentHeader(header string) (*types.PaymentPayload, error) {
	// Decode base64
	decoded, err := base64.StdEncoding.DecodeString(header)
	if err != nil {
		return nil, fmt.Errorf("invalid base64: %w", err)
	}

	// Parse JSON
	var payload types.PaymentPayload
	dec := json.NewDecoder(bytes.NewReader(decoded))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	// A corrupted header can still decode (field names match without
	// regard to case, stray base64 padding bits are ignored); it does not
	// re-encode to itself.
	canonical, err := EncodePaymentHeader(&payload)
	if err != nil || canonical != header {
		return nil, fmt.Errorf("payment header is not in canonical form")
	}

	return &payload, nil
}

// EncodeSettlementHeader encodes the settlement result carried on a paid
// response as the X-Payment-Response header value.
func EncodeSettlementHeader(header *types.SettlementHeader) (string, error) {
	data, err := json.Marshal(header)
	if err != nil {
		return "", fmt.Errorf("failed to marshal settlement header: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// DecodeSettlementHeader decodes an X-Payment-Response header value.
func DecodeSettlementHeader(header string) (*types.SettlementHeader, error) {
	decoded, err := base64.StdEncoding.DecodeString(header)
	if err != nil {
		return nil, fmt.Errorf("invalid base64: %w", err)
	}

	var result types.SettlementHeader
	if err := json.Unmarshal(decoded, &result); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	return &result, nil
}

// ParseAmount parses a wire amount: a canonical non-negative decimal
// string in the asset's smallest unit.
func ParseAmount(value string) (*big.Int, error) {
	if value == "" {
		return nil, fmt.Errorf("amount cannot be empty")
	}
	if !amountPattern.MatchString(value) {
		return nil, fmt.Errorf("invalid amount format: %s", value)
	}

	amount, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount format: %s", value)
	}
	return amount, nil
}

// PriceToAmount converts a human price string into a smallest-unit amount
// string. Whole-number strings pass through untouched; decimal strings are
// shifted by the asset's decimal count and truncated.
func PriceToAmount(price string, decimals int) (string, error) {
	if amountPattern.MatchString(price) {
		return price, nil
	}

	dec, err := decimal.NewFromString(price)
	if err != nil {
		return "", fmt.Errorf("invalid price: %w", err)
	}
	if dec.IsNegative() {
		return "", fmt.Errorf("price cannot be negative: %s", price)
	}

	return dec.Shift(int32(decimals)).Truncate(0).String(), nil
}
