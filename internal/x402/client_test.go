package x402

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/estate-protocol/tokenization-node/internal/utils"
)

func testClient(t *testing.T, facilitatorURL string) *Client {
	cm := utils.NewConfigManager("")
	cm.SetConfig("facilitator_url", facilitatorURL)
	logger := utils.NewLogsManager(cm)
	return NewClient(cm, logger)
}

func testRequirements() *PaymentRequirements {
	return &PaymentRequirements{
		Scheme:            Scheme,
		Network:           "cronos-testnet",
		PayTo:             "0x2222222222222222222222222222222222222222",
		Asset:             "0xc01efAaF7C5C61bEbFAeb358E1161b537b8bC0e0",
		Description:       "Premium API data access",
		MimeType:          "application/json",
		MaxAmountRequired: "10500000",
		MaxTimeoutSeconds: 300,
	}
}

func TestVerifyValid(t *testing.T) {
	var gotBody FacilitatorRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/verify" {
			t.Errorf("Expected path /verify, got %s", r.URL.Path)
		}
		if r.Header.Get("X402-Version") != "1" {
			t.Errorf("Expected X402-Version header 1, got %s", r.Header.Get("X402-Version"))
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("Failed to decode facilitator request: %v", err)
		}
		json.NewEncoder(w).Encode(VerifyResponse{IsValid: true})
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	resp, err := client.Verify(context.Background(), "payment-header", testRequirements())
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if !resp.IsValid {
		t.Error("Expected isValid true")
	}

	if gotBody.X402Version != ProtocolVersion {
		t.Errorf("Expected x402Version %d in request body, got %d", ProtocolVersion, gotBody.X402Version)
	}
	if gotBody.PaymentHeader != "payment-header" {
		t.Errorf("Expected opaque payment header in request body, got %q", gotBody.PaymentHeader)
	}
	if gotBody.PaymentRequirements == nil || gotBody.PaymentRequirements.MaxAmountRequired != "10500000" {
		t.Errorf("Expected requirements to be forwarded, got %+v", gotBody.PaymentRequirements)
	}
}

func TestVerifyInvalidPayment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(VerifyResponse{IsValid: false, InvalidReason: "signature expired"})
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	resp, err := client.Verify(context.Background(), "payment-header", testRequirements())
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if resp.IsValid {
		t.Error("Expected isValid false")
	}
	if resp.InvalidReason != "signature expired" {
		t.Errorf("Expected invalidReason to be surfaced, got %q", resp.InvalidReason)
	}
}

func TestSettleSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/settle" {
			t.Errorf("Expected path /settle, got %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(SettleResponse{
			Event:       SettledEvent,
			TxHash:      "0xpay",
			From:        "0x1111111111111111111111111111111111111111",
			To:          "0x2222222222222222222222222222222222222222",
			Value:       "10500000",
			BlockNumber: 12345,
			Timestamp:   1700000000,
		})
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	resp, err := client.Settle(context.Background(), "payment-header", testRequirements())
	if err != nil {
		t.Fatalf("Settle failed: %v", err)
	}
	if resp.Event != SettledEvent {
		t.Errorf("Expected event %s, got %s", SettledEvent, resp.Event)
	}
	if resp.TxHash != "0xpay" {
		t.Errorf("Expected txHash 0xpay, got %s", resp.TxHash)
	}
}

func TestClientRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "malformed payment header"})
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	_, err := client.Verify(context.Background(), "bad-header", testRequirements())
	if !errors.Is(err, ErrFacilitatorRejected) {
		t.Fatalf("Expected ErrFacilitatorRejected, got %v", err)
	}
	if got := err.Error(); got == ErrFacilitatorRejected.Error() {
		t.Error("Expected the facilitator's error message to be included")
	}
}

func TestClientUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	_, err := client.Settle(context.Background(), "payment-header", testRequirements())
	if !errors.Is(err, ErrFacilitatorUnavailable) {
		t.Fatalf("Expected ErrFacilitatorUnavailable, got %v", err)
	}
}

func TestClientConnectionRefused(t *testing.T) {
	// Server closed before the call, connection refused
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := testClient(t, url)
	_, err := client.Verify(context.Background(), "payment-header", testRequirements())
	if !errors.Is(err, ErrFacilitatorUnavailable) {
		t.Fatalf("Expected ErrFacilitatorUnavailable, got %v", err)
	}
}

func TestClientTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := client.Verify(ctx, "payment-header", testRequirements())
	if !errors.Is(err, ErrFacilitatorTimeout) {
		t.Fatalf("Expected ErrFacilitatorTimeout, got %v", err)
	}
}

func TestClientMalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	if _, err := client.Verify(context.Background(), "payment-header", testRequirements()); err == nil {
		t.Fatal("Expected error for malformed facilitator response")
	}
}
