// Package client pays for protected resources: it detects 402 challenges,
// builds and signs a matching payment, and retries the request with the
// X-Payment header attached.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/vorpalengineering/x402-stellar/stellar"
	"github.com/vorpalengineering/x402-stellar/types"
)

type Client struct {
	httpClient *http.Client
	signer     Signer

	mu      sync.Mutex
	ledgers map[string]stellar.Ledger
}

func NewClient(signer Signer) *Client {
	return &Client{
		httpClient: &http.Client{},
		signer:     signer,
		ledgers:    make(map[string]stellar.Ledger),
	}
}

// WithLedger pins a ledger adapter for a network tag, overriding the
// default endpoints.
func (c *Client) WithLedger(network string, ledger stellar.Ledger) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ledgers[network] = ledger
	return c
}

func (c *Client) ledgerFor(network string) (stellar.Ledger, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ledger, ok := c.ledgers[network]; ok {
		return ledger, nil
	}

	params, err := types.LookupNetwork(network)
	if err != nil {
		return nil, err
	}
	ledger := stellar.NewClient(params)
	c.ledgers[network] = ledger
	return ledger, nil
}

// CheckForPaymentRequired performs the request without payment and parses
// the 402 challenge when one comes back. A non-402 response is returned
// untouched with nil requirements.
func (c *Client) CheckForPaymentRequired(ctx context.Context, method, url, contentType string, body []byte) (*http.Response, []types.PaymentRequirements, error) {
	resp, err := c.do(ctx, method, url, contentType, body, "")
	if err != nil {
		return nil, nil, err
	}

	if resp.StatusCode != http.StatusPaymentRequired {
		return resp, nil, nil
	}

	respBody, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read 402 response: %w", err)
	}

	var required types.PaymentRequiredResponse
	if err := json.Unmarshal(respBody, &required); err != nil {
		return nil, nil, fmt.Errorf("failed to parse payment requirements: %w", err)
	}

	return resp, required.Accepts, nil
}

// GeneratePayment builds and signs a payment for a single challenge and
// returns the X-Payment header value.
func (c *Client) GeneratePayment(ctx context.Context, requirements *types.PaymentRequirements) (string, error) {
	if c.signer == nil {
		return "", fmt.Errorf("cannot generate payment: client was created without a signer")
	}
	if requirements.Scheme != types.SchemeExact {
		return "", fmt.Errorf("unsupported payment scheme: %s", requirements.Scheme)
	}

	ledger, err := c.ledgerFor(requirements.Network)
	if err != nil {
		return "", err
	}

	return NewBuilder(ledger, c.signer).BuildPaymentHeader(ctx, requirements)
}

// PayForResource retries a request with payment attached for the given
// challenge.
func (c *Client) PayForResource(ctx context.Context, method, url, contentType string, body []byte, requirements *types.PaymentRequirements) (*http.Response, error) {
	paymentHeader, err := c.GeneratePayment(ctx, requirements)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, method, url, contentType, body, paymentHeader)
}

// Do runs the full flow: request, challenge, pay, retry. Unprotected
// resources come back from the first round-trip.
func (c *Client) Do(ctx context.Context, method, url, contentType string, body []byte) (*http.Response, error) {
	resp, accepts, err := c.CheckForPaymentRequired(ctx, method, url, contentType, body)
	if err != nil {
		return nil, err
	}
	if len(accepts) == 0 {
		return resp, nil
	}

	requirements := c.selectRequirements(accepts)
	if requirements == nil {
		return nil, fmt.Errorf("no supported payment option among %d offered", len(accepts))
	}

	return c.PayForResource(ctx, method, url, contentType, body, requirements)
}

// selectRequirements picks the first challenge this client can satisfy.
func (c *Client) selectRequirements(accepts []types.PaymentRequirements) *types.PaymentRequirements {
	for i := range accepts {
		requirements := &accepts[i]
		if requirements.Scheme != types.SchemeExact {
			continue
		}
		if _, err := types.LookupNetwork(requirements.Network); err != nil {
			continue
		}
		return requirements
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, url, contentType string, body []byte, paymentHeader string) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if paymentHeader != "" {
		req.Header.Set(types.PaymentHeader, paymentHeader)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}
