package database

import (
	"database/sql"
	"fmt"
	"time"
)

// Settlement statuses. A row is created the moment the facilitator confirms
// settlement and before any mint is attempted, so a crash or mint failure
// always leaves an explicit record to reconcile against.
const (
	SettlementPendingMint = "pending_mint"
	SettlementMinted      = "minted"
	SettlementMintFailed  = "mint_failed"
)

// Settlement records one facilitator-settled payment and the mint that
// should follow it. PaymentTxHash is the settlement transaction reported by
// the facilitator and is unique: a second row for the same settlement is a
// duplicate, not a retry.
type Settlement struct {
	ID            int64   `json:"id"`
	SettlementID  string  `json:"settlement_id"`
	PropertyID    int64   `json:"property_id"`
	Quantity      int64   `json:"quantity"`
	Buyer         string  `json:"buyer"`
	TotalPrice    float64 `json:"total_price"`
	PricePaid     string  `json:"price_paid"` // smallest units, decimal string
	PaymentTxHash string  `json:"payment_tx_hash"`
	MintTxHash    string  `json:"mint_tx_hash,omitempty"`
	Status        string  `json:"status"`
	FailureReason string  `json:"failure_reason,omitempty"`
	CreatedAt     int64   `json:"created_at"`
	MintedAt      *int64  `json:"minted_at,omitempty"`
}

// InitSettlementsTable creates the settlements table
func (sqlm *SQLiteManager) InitSettlementsTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS settlements (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		settlement_id TEXT NOT NULL UNIQUE,
		property_id INTEGER NOT NULL,
		quantity INTEGER NOT NULL,
		buyer TEXT NOT NULL,
		total_price REAL NOT NULL,
		price_paid TEXT NOT NULL,
		payment_tx_hash TEXT NOT NULL UNIQUE,
		mint_tx_hash TEXT,
		status TEXT NOT NULL DEFAULT 'pending_mint',
		failure_reason TEXT,
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		minted_at INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_settlements_status ON settlements(status);
	CREATE INDEX IF NOT EXISTS idx_settlements_buyer ON settlements(buyer);
	`

	_, err := sqlm.db.Exec(query)
	return err
}

// CreateSettlement inserts a new settlement record in pending_mint state.
func (sqlm *SQLiteManager) CreateSettlement(s *Settlement) error {
	query := `
	INSERT INTO settlements (
		settlement_id, property_id, quantity, buyer, total_price,
		price_paid, payment_tx_hash, status, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	if s.Status == "" {
		s.Status = SettlementPendingMint
	}
	if s.CreatedAt == 0 {
		s.CreatedAt = time.Now().Unix()
	}

	result, err := sqlm.db.Exec(query,
		s.SettlementID,
		s.PropertyID,
		s.Quantity,
		s.Buyer,
		s.TotalPrice,
		s.PricePaid,
		s.PaymentTxHash,
		s.Status,
		s.CreatedAt,
	)
	if err != nil {
		return err
	}

	s.ID, _ = result.LastInsertId()
	return nil
}

// MarkSettlementMinted records the successful mint transaction.
func (sqlm *SQLiteManager) MarkSettlementMinted(settlementID string, mintTxHash string) error {
	query := `
	UPDATE settlements
	SET status = ?, mint_tx_hash = ?, minted_at = strftime('%s', 'now')
	WHERE settlement_id = ?
	`

	_, err := sqlm.db.Exec(query, SettlementMinted, mintTxHash, settlementID)
	return err
}

// MarkSettlementMintFailed marks a settled-but-unminted payment for manual
// reconciliation.
func (sqlm *SQLiteManager) MarkSettlementMintFailed(settlementID string, reason string) error {
	query := `
	UPDATE settlements
	SET status = ?, failure_reason = ?
	WHERE settlement_id = ?
	`

	_, err := sqlm.db.Exec(query, SettlementMintFailed, reason, settlementID)
	return err
}

// GetSettlementByPaymentTx looks up a settlement by the facilitator's
// settlement transaction hash. Returns nil when not found.
func (sqlm *SQLiteManager) GetSettlementByPaymentTx(paymentTxHash string) (*Settlement, error) {
	query := `
	SELECT id, settlement_id, property_id, quantity, buyer, total_price,
		   price_paid, payment_tx_hash, mint_tx_hash, status, failure_reason,
		   created_at, minted_at
	FROM settlements
	WHERE payment_tx_hash = ?
	`

	s := &Settlement{}
	var mintTxHash, failureReason sql.NullString
	var mintedAt sql.NullInt64

	err := sqlm.db.QueryRow(query, paymentTxHash).Scan(
		&s.ID,
		&s.SettlementID,
		&s.PropertyID,
		&s.Quantity,
		&s.Buyer,
		&s.TotalPrice,
		&s.PricePaid,
		&s.PaymentTxHash,
		&mintTxHash,
		&s.Status,
		&failureReason,
		&s.CreatedAt,
		&mintedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if mintTxHash.Valid {
		s.MintTxHash = mintTxHash.String
	}
	if failureReason.Valid {
		s.FailureReason = failureReason.String
	}
	if mintedAt.Valid {
		s.MintedAt = &mintedAt.Int64
	}

	return s, nil
}

// ListSettlements retrieves settlements, optionally filtered by status,
// newest first.
func (sqlm *SQLiteManager) ListSettlements(status string, limit, offset int) ([]*Settlement, error) {
	query := `
	SELECT id, settlement_id, property_id, quantity, buyer, total_price,
		   price_paid, payment_tx_hash, mint_tx_hash, status, failure_reason,
		   created_at, minted_at
	FROM settlements
	`

	args := []interface{}{}
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, status)
	}

	query += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := sqlm.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	settlements := make([]*Settlement, 0)
	for rows.Next() {
		s := &Settlement{}
		var mintTxHash, failureReason sql.NullString
		var mintedAt sql.NullInt64

		err := rows.Scan(
			&s.ID,
			&s.SettlementID,
			&s.PropertyID,
			&s.Quantity,
			&s.Buyer,
			&s.TotalPrice,
			&s.PricePaid,
			&s.PaymentTxHash,
			&mintTxHash,
			&s.Status,
			&failureReason,
			&s.CreatedAt,
			&mintedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan settlement row: %v", err)
		}

		if mintTxHash.Valid {
			s.MintTxHash = mintTxHash.String
		}
		if failureReason.Valid {
			s.FailureReason = failureReason.String
		}
		if mintedAt.Valid {
			s.MintedAt = &mintedAt.Int64
		}

		settlements = append(settlements, s)
	}

	return settlements, rows.Err()
}
