package types

import (
	"fmt"

	"github.com/stellar/go/network"
)

// X402Version is the protocol version this module implements.
const X402Version = 1

// SchemeExact is the only payment scheme supported.
const SchemeExact = "exact"

// AssetNative is the wire sentinel for the ledger's built-in asset.
const AssetNative = "native"

// PaymentHeader is the request header carrying the encoded payload.
const PaymentHeader = "X-Payment"

// PaymentResponseHeader is the response header carrying the settlement result.
const PaymentResponseHeader = "X-Payment-Response"

// LedgerCloseSeconds is the close cadence used to convert timeouts into
// ledger sequence windows.
const LedgerCloseSeconds = 5

// DefaultTimeoutSeconds applies when requirements carry no timeout.
const DefaultTimeoutSeconds = 300

// Supported network tags.
const (
	NetworkTestnet = "stellar-testnet"
	NetworkPublic  = "stellar"
)

// NetworkParams maps a network tag to the endpoints and passphrase needed
// to talk to that network.
type NetworkParams struct {
	Tag           string
	Passphrase    string
	HorizonURL    string
	SorobanRPCURL string
}

var networks = map[string]NetworkParams{
	NetworkTestnet: {
		Tag:           NetworkTestnet,
		Passphrase:    network.TestNetworkPassphrase,
		HorizonURL:    "https://horizon-testnet.stellar.org",
		SorobanRPCURL: "https://soroban-testnet.stellar.org",
	},
	NetworkPublic: {
		Tag:           NetworkPublic,
		Passphrase:    network.PublicNetworkPassphrase,
		HorizonURL:    "https://horizon.stellar.org",
		SorobanRPCURL: "https://soroban-rpc.mainnet.stellar.gateway.fm",
	},
}

// LookupNetwork resolves a network tag to its parameters.
func LookupNetwork(tag string) (NetworkParams, error) {
	params, ok := networks[tag]
	if !ok {
		return NetworkParams{}, fmt.Errorf("unknown network: %s", tag)
	}
	return params, nil
}

// SupportedNetworks lists the tags this module knows about.
func SupportedNetworks() []string {
	return []string{NetworkTestnet, NetworkPublic}
}
