// Package client is the HTTP client for a facilitator service.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/vorpalengineering/x402-stellar/types"
)

type FacilitatorClient struct {
	facilitatorURL string
	httpClient     *http.Client
}

func NewFacilitatorClient(facilitatorURL string) *FacilitatorClient {
	return &FacilitatorClient{
		facilitatorURL: facilitatorURL,
		httpClient:     &http.Client{},
	}
}

func (fc *FacilitatorClient) Verify(ctx context.Context, req *types.VerifyRequest) (*types.VerifyResponse, error) {
	var verifyResp types.VerifyResponse
	if err := fc.post(ctx, "/verify", req, &verifyResp); err != nil {
		return nil, err
	}
	return &verifyResp, nil
}

func (fc *FacilitatorClient) Settle(ctx context.Context, req *types.SettleRequest) (*types.SettleResponse, error) {
	var settleResp types.SettleResponse
	if err := fc.post(ctx, "/settle", req, &settleResp); err != nil {
		return nil, err
	}
	return &settleResp, nil
}

func (fc *FacilitatorClient) Supported(ctx context.Context) (*types.SupportedResponse, error) {
	var supportedResp types.SupportedResponse
	if err := fc.get(ctx, "/supported", nil, &supportedResp); err != nil {
		return nil, err
	}
	return &supportedResp, nil
}

func (fc *FacilitatorClient) ListResources(ctx context.Context, resourceType string, limit, offset int) (*types.DiscoveryListResponse, error) {
	query := url.Values{}
	if resourceType != "" {
		query.Set("type", resourceType)
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		query.Set("offset", strconv.Itoa(offset))
	}

	var listResp types.DiscoveryListResponse
	if err := fc.get(ctx, "/discovery/resources", query, &listResp); err != nil {
		return nil, err
	}
	return &listResp, nil
}

func (fc *FacilitatorClient) GetResource(ctx context.Context, resource string) (*types.DiscoveryResource, error) {
	query := url.Values{}
	query.Set("resource", resource)

	var entry types.DiscoveryResource
	if err := fc.get(ctx, "/discovery/resources", query, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (fc *FacilitatorClient) Register(ctx context.Context, req *types.DiscoveryRegisterRequest) (*types.DiscoveryResource, error) {
	var entry types.DiscoveryResource
	if err := fc.post(ctx, "/discovery/resources", req, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (fc *FacilitatorClient) Unregister(ctx context.Context, resource string) error {
	body, err := json.Marshal(types.DiscoveryUnregisterRequest{Resource: resource})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, fc.facilitatorURL+"/discovery/resources", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := fc.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return nil
}

func (fc *FacilitatorClient) post(ctx context.Context, path string, payload any, out any) error {
	// Encode request
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fc.facilitatorURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	// Make request to facilitator
	resp, err := fc.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	// Check response
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	// Decode response
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (fc *FacilitatorClient) get(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := fc.facilitatorURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := fc.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
