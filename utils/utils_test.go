package utils

import (
	"testing"

	"github.com/vorpalengineering/x402-stellar/types"
)

func samplePayload() *types.PaymentPayload {
	return &types.PaymentPayload{
		X402Version: 1,
		Scheme:      "exact",
		Network:     "stellar-testnet",
		Payload: types.ExactStellarPayload{
			SignedTxXDR:      "AAAAAgAAAAB4",
			SourceAccount:    "GBRPYHIL2CI3FNQ4BXLFMNDLFJUNPU2HY3ZMFSHONUCEOASW7QC7OX2H",
			Amount:           "10000000",
			Destination:      "GDQNY3PBOJOKYZSRMK2S7LHHGWZIUISD4QORETLMXEWXBI7KFZZMKTL3",
			Asset:            "native",
			ValidUntilLedger: 12345,
			Nonce:            "2b4a0f9e-7c8d-4f1a-9b3e-5d6c7a8b9c0d",
		},
	}
}

func TestPaymentHeaderRoundTrip(t *testing.T) {
	payload := samplePayload()

	header, err := EncodePaymentHeader(payload)
	if err != nil {
		t.Fatalf("Failed to encode header: %v", err)
	}

	decoded, err := DecodePaymentHeader(header)
	if err != nil {
		t.Fatalf("Failed to decode header: %v", err)
	}

	if *decoded != *payload {
		t.Errorf("Round trip mismatch: got %+v, want %+v", decoded, payload)
	}
}

func TestPaymentHeaderBitFlip(t *testing.T) {
	payload := samplePayload()

	header, err := EncodePaymentHeader(payload)
	if err != nil {
		t.Fatalf("Failed to encode header: %v", err)
	}

	// Every single-bit corruption must either fail to decode or decode
	// to something other than the original payload.
	for i := 0; i < len(header); i++ {
		for bit := 0; bit < 8; bit++ {
			corrupted := []byte(header)
			corrupted[i] ^= 1 << bit

			decoded, err := DecodePaymentHeader(string(corrupted))
			if err != nil {
				continue
			}
			if *decoded == *payload {
				t.Fatalf("Bit flip at byte %d bit %d went undetected", i, bit)
			}
		}
	}
}

func TestDecodePaymentHeaderRejectsGarbage(t *testing.T) {
	cases := []string{
		"",
		"not base64!!!",
		"aGVsbG8=", // base64("hello"), not JSON
	}
	for _, header := range cases {
		if _, err := DecodePaymentHeader(header); err == nil {
			t.Errorf("Expected error decoding %q", header)
		}
	}
}

func TestSettlementHeaderRoundTrip(t *testing.T) {
	original := &types.SettlementHeader{
		Success:     true,
		Transaction: "deadbeef",
		Network:     "stellar-testnet",
		Payer:       "GBRPYHIL2CI3FNQ4BXLFMNDLFJUNPU2HY3ZMFSHONUCEOASW7QC7OX2H",
	}

	header, err := EncodeSettlementHeader(original)
	if err != nil {
		t.Fatalf("Failed to encode header: %v", err)
	}

	decoded, err := DecodeSettlementHeader(header)
	if err != nil {
		t.Fatalf("Failed to decode header: %v", err)
	}

	if *decoded != *original {
		t.Errorf("Round trip mismatch: got %+v, want %+v", decoded, original)
	}
}

func TestParseAmount(t *testing.T) {
	valid := map[string]string{
		"0":        "0",
		"1":        "1",
		"10000000": "10000000",
	}
	for input, expected := range valid {
		amount, err := ParseAmount(input)
		if err != nil {
			t.Errorf("ParseAmount(%q) failed: %v", input, err)
			continue
		}
		if amount.String() != expected {
			t.Errorf("ParseAmount(%q) = %s, want %s", input, amount, expected)
		}
	}

	invalid := []string{"", "-1", "1.5", "01", "1,000", " 1", "1e7"}
	for _, input := range invalid {
		if _, err := ParseAmount(input); err == nil {
			t.Errorf("ParseAmount(%q) should have failed", input)
		}
	}
}

func TestPriceToAmount(t *testing.T) {
	cases := []struct {
		price    string
		decimals int
		expected string
	}{
		{"1", 7, "1"},
		{"10000000", 7, "10000000"},
		{"1.5", 7, "15000000"},
		{"0.0000001", 7, "1"},
		{"0.00000015", 7, "1"},
		{"2.25", 6, "2250000"},
	}
	for _, tc := range cases {
		amount, err := PriceToAmount(tc.price, tc.decimals)
		if err != nil {
			t.Errorf("PriceToAmount(%q, %d) failed: %v", tc.price, tc.decimals, err)
			continue
		}
		if amount != tc.expected {
			t.Errorf("PriceToAmount(%q, %d) = %s, want %s", tc.price, tc.decimals, amount, tc.expected)
		}
	}

	if _, err := PriceToAmount("-1.5", 7); err == nil {
		t.Error("Negative price should have failed")
	}
	if _, err := PriceToAmount("abc", 7); err == nil {
		t.Error("Non-numeric price should have failed")
	}
}
