package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/estate-protocol/tokenization-node/internal/database"
	"github.com/estate-protocol/tokenization-node/internal/x402"
)

// PurchaseRequest is the body of POST /api/purchase
type PurchaseRequest struct {
	PropertyID    int64   `json:"propertyId"`
	Quantity      int64   `json:"quantity"`
	Buyer         string  `json:"buyer"`
	TotalPrice    float64 `json:"totalPrice"`
	PaymentHeader string  `json:"paymentHeader,omitempty"`
}

// PaymentReceipt echoes the facilitator's settlement details in the success response
type PaymentReceipt struct {
	TxHash      string `json:"txHash"`
	From        string `json:"from"`
	To          string `json:"to"`
	Value       string `json:"value"`
	BlockNumber int64  `json:"blockNumber"`
	Timestamp   int64  `json:"timestamp"`
}

// buildRequirements builds the payment requirements for a purchase. The 402
// challenge and the facilitator verify/settle calls must all use the exact
// same requirements object, so every stage goes through this one constructor.
func (s *APIServer) buildRequirements(totalPrice float64) *x402.PaymentRequirements {
	return &x402.PaymentRequirements{
		Scheme:            x402.Scheme,
		Network:           s.config.GetConfigWithDefault("x402_network", "cronos-testnet"),
		PayTo:             s.config.GetConfigWithDefault("seller_wallet", ""),
		Asset:             s.config.GetConfigWithDefault("asset_contract", ""),
		Description:       s.config.GetConfigWithDefault("purchase_description", "Premium API data access"),
		MimeType:          s.config.GetConfigWithDefault("purchase_mime_type", "application/json"),
		MaxAmountRequired: x402.RawAmount(totalPrice),
		MaxTimeoutSeconds: s.config.GetConfigInt("max_timeout_seconds", 300, 1, 3600),
	}
}

// handlePurchase runs the x402 purchase flow: challenge, verify, settle, mint.
func (s *APIServer) handlePurchase(w http.ResponseWriter, r *http.Request) {
	var req PurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error": "Invalid request body",
		})
		return
	}

	// Payment proof travels in the X-Payment header, with the body field as
	// a fallback for clients that cannot set custom headers
	proof := r.Header.Get("X-Payment")
	if proof == "" {
		proof = req.PaymentHeader
	}

	requirements := s.buildRequirements(req.TotalPrice)

	if proof == "" {
		writeJSON(w, http.StatusPaymentRequired, &x402.PaymentChallenge{
			Error:               "Payment Required",
			X402Version:         x402.ProtocolVersion,
			PaymentRequirements: requirements,
		})
		return
	}

	// Reject malformed orders before any settlement can capture funds
	if req.PropertyID <= 0 || req.Quantity <= 0 || req.Buyer == "" || req.TotalPrice <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error": "Invalid purchase request: propertyId, quantity, buyer and totalPrice are required",
		})
		return
	}

	ctx := r.Context()

	verify, err := s.facilitator.Verify(ctx, proof, requirements)
	if err != nil {
		s.logger.Error(fmt.Sprintf("Facilitator verify failed: %v", err), "api")
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"error":   "Server error processing payment",
			"details": err.Error(),
		})
		return
	}
	if !verify.IsValid {
		s.logger.Warn(fmt.Sprintf("Payment verification rejected: %s", verify.InvalidReason), "api")
		writeJSON(w, http.StatusPaymentRequired, map[string]interface{}{
			"error":  "Invalid payment",
			"reason": verify.InvalidReason,
		})
		return
	}

	settle, err := s.facilitator.Settle(ctx, proof, requirements)
	if err != nil {
		s.logger.Error(fmt.Sprintf("Facilitator settle failed: %v", err), "api")
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"error":   "Server error processing payment",
			"details": err.Error(),
		})
		return
	}
	if settle.Event != x402.SettledEvent {
		s.logger.Warn(fmt.Sprintf("Payment settlement failed: event=%s error=%s", settle.Event, settle.Error), "api")
		writeJSON(w, http.StatusPaymentRequired, map[string]interface{}{
			"error":  "Payment settlement failed",
			"reason": settle.Error,
		})
		return
	}

	// Funds are captured from here on. Record the settlement before touching
	// the chain so a crash or mint failure leaves a reconcilable trail.
	settlement := &database.Settlement{
		SettlementID:  uuid.New().String(),
		PropertyID:    req.PropertyID,
		Quantity:      req.Quantity,
		Buyer:         req.Buyer,
		TotalPrice:    req.TotalPrice,
		PricePaid:     x402.PricePaidUnits(req.TotalPrice).String(),
		PaymentTxHash: settle.TxHash,
	}
	if err := s.dbManager.CreateSettlement(settlement); err != nil {
		s.logger.Error(fmt.Sprintf("Failed to record settlement %s: %v", settle.TxHash, err), "api")
	}

	mintTxHash, err := s.chain.MintShares(ctx, req.Buyer, req.PropertyID, req.Quantity, x402.PricePaidUnits(req.TotalPrice))
	if err != nil {
		// Payment is settled but shares were not minted. Never retried here,
		// a second mint attempt could double-issue shares.
		s.logger.Error(fmt.Sprintf("Mint failed after settled payment %s (settlement %s): %v",
			settle.TxHash, settlement.SettlementID, err), "api")
		if dbErr := s.dbManager.MarkSettlementMintFailed(settlement.SettlementID, err.Error()); dbErr != nil {
			s.logger.Error(fmt.Sprintf("Failed to mark settlement %s mint_failed: %v", settlement.SettlementID, dbErr), "api")
		}
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"error":   "Payment settled but share minting failed",
			"details": err.Error(),
			"payment": paymentReceipt(settle),
		})
		return
	}

	if dbErr := s.dbManager.MarkSettlementMinted(settlement.SettlementID, mintTxHash); dbErr != nil {
		s.logger.Error(fmt.Sprintf("Failed to mark settlement %s minted: %v", settlement.SettlementID, dbErr), "api")
	}

	s.logger.Info(fmt.Sprintf("Purchase complete: property=%d quantity=%d buyer=%s payment=%s mint=%s",
		req.PropertyID, req.Quantity, req.Buyer, settle.TxHash, mintTxHash), "api")

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":         true,
		"mintTxHash": mintTxHash,
		"payment":    paymentReceipt(settle),
	})
}

func paymentReceipt(settle *x402.SettleResponse) *PaymentReceipt {
	return &PaymentReceipt{
		TxHash:      settle.TxHash,
		From:        settle.From,
		To:          settle.To,
		Value:       settle.Value,
		BlockNumber: settle.BlockNumber,
		Timestamp:   settle.Timestamp,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
