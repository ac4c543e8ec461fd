package types

// Client/Facilitator types

type VerifyRequest struct {
	X402Version         int                 `json:"x402Version"`
	PaymentPayload      PaymentPayload      `json:"paymentPayload"`
	PaymentRequirements PaymentRequirements `json:"paymentRequirements"`
}

type VerifyResponse struct {
	IsValid       bool   `json:"isValid"`
	InvalidReason string `json:"invalidReason,omitempty"`
	Payer         string `json:"payer,omitempty"`
}

type SettleRequest struct {
	X402Version         int                 `json:"x402Version"`
	PaymentPayload      PaymentPayload      `json:"paymentPayload"`
	PaymentRequirements PaymentRequirements `json:"paymentRequirements"`
}

type SettleResponse struct {
	Success     bool   `json:"success"`
	ErrorReason string `json:"errorReason,omitempty"`
	Transaction string `json:"transaction,omitempty"`
	Network     string `json:"network,omitempty"`
	Payer       string `json:"payer,omitempty"`
}

type SupportedKind struct {
	Scheme  string         `json:"scheme" yaml:"scheme"`
	Network string         `json:"network" yaml:"network"`
	Extra   map[string]any `json:"extra,omitempty" yaml:"extra,omitempty"`
}

type SupportedResponse struct {
	Kinds []SupportedKind `json:"kinds"`
}

// Payment types

type PaymentRequiredResponse struct {
	X402Version int                   `json:"x402Version"`
	Error       string                `json:"error,omitempty"`
	Accepts     []PaymentRequirements `json:"accepts"`
}

// PaymentRequirements describes what a resource server demands before it
// will serve a protected route: the amount, the receiving account, the
// network and the asset the payment must move.
type PaymentRequirements struct {
	// Scheme of the payment protocol. Only "exact" is supported.
	Scheme string `json:"scheme" validate:"required,eq=exact"`

	// Network tag the payment must settle on (e.g. "stellar-testnet").
	Network string `json:"network" validate:"required"`

	// MaxAmountRequired is the amount to pay in the asset's smallest unit,
	// as a decimal string. Strings are used because amounts never tolerate
	// floating point.
	MaxAmountRequired string `json:"maxAmountRequired" validate:"required"`

	// Resource is the absolute URL of the protected resource.
	Resource string `json:"resource" validate:"required,url"`

	// Description of the resource being purchased.
	Description string `json:"description"`

	// MimeType of the resource response.
	MimeType string `json:"mimeType"`

	// PayTo is the account id of the receiver.
	PayTo string `json:"payTo" validate:"required"`

	// MaxTimeoutSeconds bounds every network wait spent settling this
	// payment, including transaction validity.
	MaxTimeoutSeconds int `json:"maxTimeoutSeconds" validate:"required,gt=0"`

	// Asset is either the native-asset sentinel "native" or the contract
	// id of a token implementing transfer(from, to, amount).
	Asset string `json:"asset" validate:"required"`

	// Extra carries scheme-specific hints (e.g. asset decimals).
	Extra map[string]any `json:"extra,omitempty"`
}

// PaymentPayload is the decoded value of the X-Payment header: a signed
// ledger transaction plus the metadata needed to check it against the
// requirements without parsing XDR first.
type PaymentPayload struct {
	X402Version int                 `json:"x402Version"`
	Scheme      string              `json:"scheme"`
	Network     string              `json:"network"`
	Payload     ExactStellarPayload `json:"payload"`
}

type ExactStellarPayload struct {
	// SignedTxXDR is the base64 XDR of the signed payment transaction.
	SignedTxXDR string `json:"signedTxXdr"`

	// SourceAccount is the payer's account id.
	SourceAccount string `json:"sourceAccount"`

	// Amount being paid, smallest unit, decimal string.
	Amount string `json:"amount"`

	// Destination account the payment goes to.
	Destination string `json:"destination"`

	// Asset being paid: "native" or a contract id.
	Asset string `json:"asset"`

	// ValidUntilLedger is the last ledger sequence at which the
	// transaction may settle.
	ValidUntilLedger uint32 `json:"validUntilLedger"`

	// Nonce is informational only; replay protection is enforced by the
	// transaction hash, not the nonce.
	Nonce string `json:"nonce"`
}

// SettlementHeader is the decoded value of the X-Payment-Response header
// attached to a paid 2xx response.
type SettlementHeader struct {
	Success     bool   `json:"success"`
	Transaction string `json:"transaction"`
	Network     string `json:"network"`
	Payer       string `json:"payer"`
}

// Discovery types

type DiscoveryMetadata struct {
	Name        string   `json:"name,omitempty"`
	Description string   `json:"description,omitempty"`
	Category    string   `json:"category,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Provider    string   `json:"provider,omitempty"`
}

// DiscoveryResource is a catalog entry for a paid endpoint, keyed by its
// resource URL. Re-registering the same resource overwrites the entry.
type DiscoveryResource struct {
	Resource    string                `json:"resource"`
	Type        string                `json:"type"`
	X402Version int                   `json:"x402Version"`
	Accepts     []PaymentRequirements `json:"accepts"`
	LastUpdated string                `json:"lastUpdated"`
	Metadata    *DiscoveryMetadata    `json:"metadata,omitempty"`
}

type DiscoveryListResponse struct {
	X402Version int                 `json:"x402Version"`
	Items       []DiscoveryResource `json:"items"`
	Pagination  DiscoveryPagination `json:"pagination"`
}

type DiscoveryPagination struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Total  int `json:"total"`
}

type DiscoveryRegisterRequest struct {
	Resource string                `json:"resource"`
	Type     string                `json:"type"`
	Accepts  []PaymentRequirements `json:"accepts"`
	Metadata *DiscoveryMetadata    `json:"metadata,omitempty"`
}

type DiscoveryUnregisterRequest struct {
	Resource string `json:"resource"`
}
