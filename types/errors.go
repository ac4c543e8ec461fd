package types

// Closed enumeration of verification and settlement failure reasons.
// These strings are the wire contract: they appear verbatim in
// VerifyResponse.InvalidReason and SettleResponse.ErrorReason.
const (
	ReasonInsufficientFunds          = "insufficient_funds"
	ReasonInvalidNetwork             = "invalid_network"
	ReasonInvalidPayload             = "invalid_payload"
	ReasonInvalidPaymentRequirements = "invalid_payment_requirements"
	ReasonInvalidScheme              = "invalid_scheme"
	ReasonInvalidPayment             = "invalid_payment"
	ReasonPaymentExpired             = "payment_expired"
	ReasonUnsupportedScheme          = "unsupported_scheme"
	ReasonInvalidX402Version         = "invalid_x402_version"
	ReasonInvalidTransactionState    = "invalid_transaction_state"
	ReasonUnexpectedVerifyError      = "unexpected_verify_error"
	ReasonUnexpectedSettleError      = "unexpected_settle_error"
)

// Payload-specific reasons for the exact scheme on Stellar networks.
const (
	ReasonMissingSignedTx        = "invalid_exact_stellar_payload_missing_signed_tx"
	ReasonInvalidXDR             = "invalid_exact_stellar_payload_invalid_xdr"
	ReasonSourceAccountNotFound  = "invalid_exact_stellar_payload_source_account_not_found"
	ReasonInsufficientBalance    = "invalid_exact_stellar_payload_insufficient_balance"
	ReasonAmountMismatch         = "invalid_exact_stellar_payload_amount_mismatch"
	ReasonDestinationMismatch    = "invalid_exact_stellar_payload_destination_mismatch"
	ReasonAssetMismatch          = "invalid_exact_stellar_payload_asset_mismatch"
	ReasonNetworkMismatch        = "invalid_exact_stellar_payload_network_mismatch"
	ReasonMissingRequiredFields  = "invalid_exact_stellar_payload_missing_required_fields"
	ReasonTransactionExpired     = "invalid_exact_stellar_payload_transaction_expired"
	ReasonTransactionAlreadyUsed = "invalid_exact_stellar_payload_transaction_already_used"
)

// Settlement-specific reasons.
const (
	ReasonTransactionFailed = "invalid_exact_stellar_payload_transaction_failed"
	ReasonFeeBumpFailed     = "invalid_exact_stellar_payload_fee_bump_failed"
)
