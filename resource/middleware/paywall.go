package middleware

import (
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"strings"

	"github.com/vorpalengineering/x402-stellar/types"
)

// PaywallProvider renders the HTML form of a 402 challenge for browser
// requests. Register a custom implementation through GateConfig.Paywall.
type PaywallProvider interface {
	GenerateHTML(required *types.PaymentRequiredResponse) string
}

// isBrowserRequest reports whether the caller looks like an interactive
// browser rather than an API client.
func isBrowserRequest(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	userAgent := r.Header.Get("User-Agent")
	return strings.Contains(accept, "text/html") && strings.Contains(userAgent, "Mozilla")
}

type defaultPaywall struct{}

const paywallTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Payment Required</title>
<script>window.x402 = %s;</script>
</head>
<body>
<h1>Payment Required</h1>
<p>%s</p>
<p>Amount: %s (smallest unit) on %s</p>
<p>Pay to: <code>%s</code></p>
</body>
</html>
`

func (defaultPaywall) GenerateHTML(required *types.PaymentRequiredResponse) string {
	config, err := json.Marshal(required)
	if err != nil {
		config = []byte("null")
	}

	description := "This resource requires payment before it can be served."
	amount, network, payTo := "", "", ""
	if len(required.Accepts) > 0 {
		requirements := required.Accepts[0]
		if requirements.Description != "" {
			description = requirements.Description
		}
		amount = requirements.MaxAmountRequired
		network = requirements.Network
		payTo = requirements.PayTo
	}

	return fmt.Sprintf(paywallTemplate,
		config,
		html.EscapeString(description),
		html.EscapeString(amount),
		html.EscapeString(network),
		html.EscapeString(payTo),
	)
}
