package api

import (
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestKYCStatus(t *testing.T) {
	gateway := &stubGateway{kycVerified: true}
	s, db := setupTestServer(t, gateway, &stubFacilitator{})
	defer db.Close()

	req := httptest.NewRequest(http.MethodGet, "/api/kyc/status?address=0x1111111111111111111111111111111111111111", nil)
	rec := httptest.NewRecorder()
	s.handleKYCStatus(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Address  string `json:"address"`
		Verified bool   `json:"verified"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !resp.Verified {
		t.Error("Expected verified true")
	}
	if resp.Address != "0x1111111111111111111111111111111111111111" {
		t.Errorf("Expected address echoed back, got %s", resp.Address)
	}
}

func TestKYCStatusMissingAddress(t *testing.T) {
	s, db := setupTestServer(t, &stubGateway{}, &stubFacilitator{})
	defer db.Close()

	req := httptest.NewRequest(http.MethodGet, "/api/kyc/status", nil)
	rec := httptest.NewRecorder()
	s.handleKYCStatus(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rec.Code)
	}
}

func TestShares(t *testing.T) {
	gateway := &stubGateway{balances: []*big.Int{big.NewInt(5), big.NewInt(0), big.NewInt(12)}}
	s, db := setupTestServer(t, gateway, &stubFacilitator{})
	defer db.Close()

	req := httptest.NewRequest(http.MethodGet, "/api/shares?address=0x1111111111111111111111111111111111111111&ids=1,2,3", nil)
	rec := httptest.NewRecorder()
	s.handleShares(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Address string            `json:"address"`
		Shares  map[string]string `json:"shares"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if len(resp.Shares) != 3 {
		t.Fatalf("Expected 3 balances, got %d", len(resp.Shares))
	}
	if resp.Shares["1"] != "5" || resp.Shares["2"] != "0" || resp.Shares["3"] != "12" {
		t.Errorf("Unexpected balances: %+v", resp.Shares)
	}
}

func TestSharesInvalidIDs(t *testing.T) {
	s, db := setupTestServer(t, &stubGateway{}, &stubFacilitator{})
	defer db.Close()

	for _, query := range []string{
		"/api/shares?address=0x11&ids=abc",
		"/api/shares?address=0x11&ids=-1",
		"/api/shares?address=0x11",
		"/api/shares?ids=1",
	} {
		req := httptest.NewRequest(http.MethodGet, query, nil)
		rec := httptest.NewRecorder()
		s.handleShares(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("Expected 400 for %s, got %d", query, rec.Code)
		}
	}
}

func TestHealth(t *testing.T) {
	s, db := setupTestServer(t, &stubGateway{}, &stubFacilitator{})
	defer db.Close()

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	s.handleHealth(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var resp struct {
		Status string `json:"status"`
		Uptime int64  `json:"uptime"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("Expected status ok, got %s", resp.Status)
	}
}
