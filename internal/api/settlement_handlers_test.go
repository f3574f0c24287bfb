package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/estate-protocol/tokenization-node/internal/database"
	"github.com/estate-protocol/tokenization-node/internal/x402"
)

func TestListSettlementsEndpoint(t *testing.T) {
	gateway := &stubGateway{mintErr: errors.New("mint rejected")}
	facilitator := &stubFacilitator{
		verifyResp: &x402.VerifyResponse{IsValid: true},
		settleResp: settledResponse(),
	}
	s, db := setupTestServer(t, gateway, facilitator)
	defer db.Close()

	// Produce one mint_failed settlement through the purchase flow
	doPurchase(s, purchaseBody(), "proof")

	req := httptest.NewRequest(http.MethodGet, "/api/settlements?status=mint_failed", nil)
	rec := httptest.NewRecorder()
	s.handleSettlements(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Settlements []*database.Settlement `json:"settlements"`
		Count       int                    `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if resp.Count != 1 {
		t.Fatalf("Expected 1 mint_failed settlement, got %d", resp.Count)
	}
	if resp.Settlements[0].PaymentTxHash != "0xpay" {
		t.Errorf("Expected payment tx 0xpay, got %s", resp.Settlements[0].PaymentTxHash)
	}
	if resp.Settlements[0].Status != database.SettlementMintFailed {
		t.Errorf("Expected status mint_failed, got %s", resp.Settlements[0].Status)
	}
}

func TestListSettlementsUnknownStatus(t *testing.T) {
	s, db := setupTestServer(t, &stubGateway{}, &stubFacilitator{})
	defer db.Close()

	req := httptest.NewRequest(http.MethodGet, "/api/settlements?status=weird", nil)
	rec := httptest.NewRecorder()
	s.handleSettlements(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rec.Code)
	}
}
