package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vorpalengineering/x402-stellar/types"
)

func newFakeFacilitatorServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/verify", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var req types.VerifyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(types.VerifyResponse{
			IsValid:       false,
			InvalidReason: types.ReasonAmountMismatch,
		})
	})
	mux.HandleFunc("/settle", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(types.SettleResponse{
			Success:     true,
			Transaction: "cafebabe",
			Network:     types.NetworkTestnet,
			Payer:       "GA7QYNF7SOWQ3GLR2BGMZEHXAVIRZA4KVWLTJJFC7MGXUA74P7UJVSGZ",
		})
	})
	mux.HandleFunc("/supported", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(types.SupportedResponse{
			Kinds: []types.SupportedKind{
				{Scheme: types.SchemeExact, Network: types.NetworkTestnet},
			},
		})
	})
	mux.HandleFunc("/discovery/resources", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			if resource := r.URL.Query().Get("resource"); resource != "" {
				json.NewEncoder(w).Encode(types.DiscoveryResource{
					Resource: resource,
					Type:     "http",
				})
				return
			}
			json.NewEncoder(w).Encode(types.DiscoveryListResponse{
				X402Version: types.X402Version,
				Items: []types.DiscoveryResource{
					{Resource: "https://api.example.com/data", Type: "http"},
				},
				Pagination: types.DiscoveryPagination{Limit: 20, Total: 1},
			})
		case http.MethodPost:
			var req types.DiscoveryRegisterRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			json.NewEncoder(w).Encode(types.DiscoveryResource{
				Resource: req.Resource,
				Type:     req.Type,
			})
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		}
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestVerifyRoundTrip(t *testing.T) {
	server := newFakeFacilitatorServer(t)
	fc := NewFacilitatorClient(server.URL)

	resp, err := fc.Verify(context.Background(), &types.VerifyRequest{X402Version: types.X402Version})
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if resp.IsValid {
		t.Error("Expected invalid verification")
	}
	if resp.InvalidReason != types.ReasonAmountMismatch {
		t.Errorf("Unexpected reason: %s", resp.InvalidReason)
	}
}

func TestSettleRoundTrip(t *testing.T) {
	server := newFakeFacilitatorServer(t)
	fc := NewFacilitatorClient(server.URL)

	resp, err := fc.Settle(context.Background(), &types.SettleRequest{X402Version: types.X402Version})
	if err != nil {
		t.Fatalf("Settle failed: %v", err)
	}
	if !resp.Success || resp.Transaction != "cafebabe" {
		t.Errorf("Unexpected response: %+v", resp)
	}
}

func TestSupportedRoundTrip(t *testing.T) {
	server := newFakeFacilitatorServer(t)
	fc := NewFacilitatorClient(server.URL)

	resp, err := fc.Supported(context.Background())
	if err != nil {
		t.Fatalf("Supported failed: %v", err)
	}
	if len(resp.Kinds) != 1 || resp.Kinds[0].Network != types.NetworkTestnet {
		t.Errorf("Unexpected response: %+v", resp)
	}
}

func TestDiscoveryRoundTrips(t *testing.T) {
	server := newFakeFacilitatorServer(t)
	fc := NewFacilitatorClient(server.URL)
	ctx := context.Background()

	list, err := fc.ListResources(ctx, "http", 10, 0)
	if err != nil {
		t.Fatalf("ListResources failed: %v", err)
	}
	if len(list.Items) != 1 {
		t.Errorf("Expected one item, got %d", len(list.Items))
	}

	entry, err := fc.GetResource(ctx, "https://api.example.com/data")
	if err != nil {
		t.Fatalf("GetResource failed: %v", err)
	}
	if entry.Resource != "https://api.example.com/data" {
		t.Errorf("Unexpected entry: %+v", entry)
	}

	registered, err := fc.Register(ctx, &types.DiscoveryRegisterRequest{
		Resource: "https://api.example.com/new",
		Type:     "http",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if registered.Resource != "https://api.example.com/new" {
		t.Errorf("Unexpected registration: %+v", registered)
	}

	if err := fc.Unregister(ctx, "https://api.example.com/new"); err != nil {
		t.Fatalf("Unregister failed: %v", err)
	}
}

func TestTransportErrorsSurface(t *testing.T) {
	server := newFakeFacilitatorServer(t)
	url := server.URL
	server.Close()

	fc := NewFacilitatorClient(url)
	if _, err := fc.Supported(context.Background()); err == nil {
		t.Error("Expected transport error from closed server")
	}
}
