package middleware

import (
	"errors"
	"fmt"

	"github.com/stellar/go/strkey"

	"github.com/vorpalengineering/x402-stellar/types"
	"github.com/vorpalengineering/x402-stellar/utils"
)

// nativeDecimals is the smallest-unit exponent of the native asset.
const nativeDecimals = 7

// defaultMaxBufferSize caps buffered handler responses at 10 MiB unless
// the config says otherwise.
const defaultMaxBufferSize = 10 << 20

// RouteRule prices one route pattern. The pattern carries an optional verb
// prefix ("GET /reports/[id]"); without one it applies to every verb.
type RouteRule struct {
	// Pattern is the route to protect: glob "*" and single-segment
	// "[param]" placeholders are supported.
	Pattern string

	// Price is either a smallest-unit integer string, passed through
	// untouched, or a human decimal string, shifted by the asset's
	// decimal count and truncated.
	Price string

	// Asset overrides the payment asset for this route: empty or
	// "native" for the native asset, otherwise a token contract id.
	Asset string

	// AssetDecimals is the decimal count used to interpret decimal
	// prices of contract assets. Defaults to 7.
	AssetDecimals int

	Description string
	MimeType    string

	// MaxTimeoutSeconds overrides the settlement budget for this route.
	MaxTimeoutSeconds int
}

type GateConfig struct {
	// FacilitatorURL is the base URL of the facilitator service.
	FacilitatorURL string

	// PayTo is the account id that receives every payment this gate
	// demands.
	PayTo string

	// Network tag payments must settle on.
	Network string

	// Routes lists the price rules. The most specific matching rule wins.
	Routes []RouteRule

	// Paywall renders the HTML 402 for browser requests. Nil selects the
	// built-in page.
	Paywall PaywallProvider

	// MaxBufferSize caps the bytes buffered while settlement is pending.
	MaxBufferSize int
}

func (c *GateConfig) Validate() error {
	if c.FacilitatorURL == "" {
		return errors.New("facilitator URL is required")
	}
	if len(c.Routes) == 0 {
		return errors.New("at least one route rule must be specified")
	}
	if _, err := types.LookupNetwork(c.Network); err != nil {
		return err
	}
	if !strkey.IsValidEd25519PublicKey(c.PayTo) && !utils.IsContractID(c.PayTo) {
		return fmt.Errorf("invalid payTo account: %s", c.PayTo)
	}

	for _, rule := range c.Routes {
		if rule.Pattern == "" {
			return errors.New("route pattern is required")
		}
		if rule.Price == "" {
			return fmt.Errorf("route %s has no price", rule.Pattern)
		}
		if rule.Asset != "" && rule.Asset != types.AssetNative && !utils.IsContractID(rule.Asset) {
			return fmt.Errorf("route %s has invalid asset: %s", rule.Pattern, rule.Asset)
		}
	}
	return nil
}

// compileRules resolves every rule's matcher and smallest-unit amount up
// front so request handling never re-parses prices.
func compileRules(rules []RouteRule) ([]compiledRule, error) {
	compiled := make([]compiledRule, 0, len(rules))
	for _, rule := range rules {
		verb, path := splitPattern(rule.Pattern)
		source, matcher, err := compilePath(path)
		if err != nil {
			return nil, err
		}

		decimals := nativeDecimals
		if rule.Asset != "" && rule.Asset != types.AssetNative {
			decimals = rule.AssetDecimals
			if decimals <= 0 {
				decimals = nativeDecimals
			}
		}
		amount, err := utils.PriceToAmount(rule.Price, decimals)
		if err != nil {
			return nil, fmt.Errorf("route %s: %w", rule.Pattern, err)
		}

		compiled = append(compiled, compiledRule{
			rule:        rule,
			verb:        verb,
			pattern:     source,
			matcher:     matcher,
			specificity: patternSpecificity(path),
			amount:      amount,
		})
	}
	return compiled, nil
}
