package database

import (
	"database/sql"
	"testing"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/estate-protocol/tokenization-node/internal/utils"
)

func setupTestSettlementsDB(t *testing.T) (*SQLiteManager, *sql.DB) {
	// Create in-memory database
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	cm := utils.NewConfigManager("")
	logger := utils.NewLogsManager(cm)

	sqlm := &SQLiteManager{
		cm:     cm,
		db:     db,
		logger: logger,
	}

	if err := sqlm.InitSettlementsTable(); err != nil {
		t.Fatalf("Failed to init settlements table: %v", err)
	}

	return sqlm, db
}

func newTestSettlement(paymentTxHash string) *Settlement {
	return &Settlement{
		SettlementID:  uuid.New().String(),
		PropertyID:    1,
		Quantity:      5,
		Buyer:         "0x1111111111111111111111111111111111111111",
		TotalPrice:    10.5,
		PricePaid:     "10500000",
		PaymentTxHash: paymentTxHash,
	}
}

func TestCreateSettlement(t *testing.T) {
	sqlm, db := setupTestSettlementsDB(t)
	defer db.Close()

	s := newTestSettlement("0xaaa")
	if err := sqlm.CreateSettlement(s); err != nil {
		t.Fatalf("Failed to create settlement: %v", err)
	}

	if s.ID == 0 {
		t.Error("Expected settlement ID to be assigned")
	}
	if s.Status != SettlementPendingMint {
		t.Errorf("Expected status %s, got %s", SettlementPendingMint, s.Status)
	}
	if s.CreatedAt == 0 {
		t.Error("Expected created_at to be set")
	}

	retrieved, err := sqlm.GetSettlementByPaymentTx("0xaaa")
	if err != nil {
		t.Fatalf("Failed to get settlement: %v", err)
	}
	if retrieved == nil {
		t.Fatal("Expected settlement to be retrieved, got nil")
	}

	if retrieved.SettlementID != s.SettlementID {
		t.Errorf("Expected settlement_id %s, got %s", s.SettlementID, retrieved.SettlementID)
	}
	if retrieved.PricePaid != "10500000" {
		t.Errorf("Expected price_paid 10500000, got %s", retrieved.PricePaid)
	}
	if retrieved.MintTxHash != "" {
		t.Errorf("Expected empty mint_tx_hash, got %s", retrieved.MintTxHash)
	}
	if retrieved.MintedAt != nil {
		t.Error("Expected minted_at to be nil before mint")
	}
}

func TestCreateSettlementDuplicatePaymentTx(t *testing.T) {
	sqlm, db := setupTestSettlementsDB(t)
	defer db.Close()

	if err := sqlm.CreateSettlement(newTestSettlement("0xdup")); err != nil {
		t.Fatalf("Failed to create settlement: %v", err)
	}

	// Same payment tx hash must be rejected by the unique constraint
	if err := sqlm.CreateSettlement(newTestSettlement("0xdup")); err == nil {
		t.Error("Expected duplicate payment_tx_hash to fail, got nil error")
	}
}

func TestMarkSettlementMinted(t *testing.T) {
	sqlm, db := setupTestSettlementsDB(t)
	defer db.Close()

	s := newTestSettlement("0xbbb")
	if err := sqlm.CreateSettlement(s); err != nil {
		t.Fatalf("Failed to create settlement: %v", err)
	}

	if err := sqlm.MarkSettlementMinted(s.SettlementID, "0xmint"); err != nil {
		t.Fatalf("Failed to mark settlement minted: %v", err)
	}

	retrieved, err := sqlm.GetSettlementByPaymentTx("0xbbb")
	if err != nil {
		t.Fatalf("Failed to get settlement: %v", err)
	}

	if retrieved.Status != SettlementMinted {
		t.Errorf("Expected status %s, got %s", SettlementMinted, retrieved.Status)
	}
	if retrieved.MintTxHash != "0xmint" {
		t.Errorf("Expected mint_tx_hash 0xmint, got %s", retrieved.MintTxHash)
	}
	if retrieved.MintedAt == nil {
		t.Error("Expected minted_at to be set")
	}
}

func TestMarkSettlementMintFailed(t *testing.T) {
	sqlm, db := setupTestSettlementsDB(t)
	defer db.Close()

	s := newTestSettlement("0xccc")
	if err := sqlm.CreateSettlement(s); err != nil {
		t.Fatalf("Failed to create settlement: %v", err)
	}

	if err := sqlm.MarkSettlementMintFailed(s.SettlementID, "mintShares failed: execution reverted"); err != nil {
		t.Fatalf("Failed to mark settlement mint_failed: %v", err)
	}

	retrieved, err := sqlm.GetSettlementByPaymentTx("0xccc")
	if err != nil {
		t.Fatalf("Failed to get settlement: %v", err)
	}

	if retrieved.Status != SettlementMintFailed {
		t.Errorf("Expected status %s, got %s", SettlementMintFailed, retrieved.Status)
	}
	if retrieved.FailureReason == "" {
		t.Error("Expected failure_reason to be recorded")
	}
	if retrieved.MintTxHash != "" {
		t.Errorf("Expected no mint_tx_hash on failed mint, got %s", retrieved.MintTxHash)
	}
}

func TestGetSettlementByPaymentTxNotFound(t *testing.T) {
	sqlm, db := setupTestSettlementsDB(t)
	defer db.Close()

	retrieved, err := sqlm.GetSettlementByPaymentTx("0xmissing")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if retrieved != nil {
		t.Errorf("Expected nil for unknown payment tx, got %+v", retrieved)
	}
}

func TestListSettlements(t *testing.T) {
	sqlm, db := setupTestSettlementsDB(t)
	defer db.Close()

	a := newTestSettlement("0x01")
	b := newTestSettlement("0x02")
	c := newTestSettlement("0x03")
	for _, s := range []*Settlement{a, b, c} {
		if err := sqlm.CreateSettlement(s); err != nil {
			t.Fatalf("Failed to create settlement: %v", err)
		}
	}

	if err := sqlm.MarkSettlementMinted(a.SettlementID, "0xmint-a"); err != nil {
		t.Fatalf("Failed to mark settlement minted: %v", err)
	}
	if err := sqlm.MarkSettlementMintFailed(b.SettlementID, "out of gas"); err != nil {
		t.Fatalf("Failed to mark settlement mint_failed: %v", err)
	}

	all, err := sqlm.ListSettlements("", 10, 0)
	if err != nil {
		t.Fatalf("Failed to list settlements: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("Expected 3 settlements, got %d", len(all))
	}

	pending, err := sqlm.ListSettlements(SettlementPendingMint, 10, 0)
	if err != nil {
		t.Fatalf("Failed to list pending settlements: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("Expected 1 pending settlement, got %d", len(pending))
	}
	if pending[0].SettlementID != c.SettlementID {
		t.Errorf("Expected pending settlement %s, got %s", c.SettlementID, pending[0].SettlementID)
	}

	failed, err := sqlm.ListSettlements(SettlementMintFailed, 10, 0)
	if err != nil {
		t.Fatalf("Failed to list failed settlements: %v", err)
	}
	if len(failed) != 1 {
		t.Fatalf("Expected 1 failed settlement, got %d", len(failed))
	}
	if failed[0].FailureReason != "out of gas" {
		t.Errorf("Expected failure reason to survive, got %q", failed[0].FailureReason)
	}

	limited, err := sqlm.ListSettlements("", 2, 0)
	if err != nil {
		t.Fatalf("Failed to list with limit: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("Expected 2 settlements with limit 2, got %d", len(limited))
	}
}
