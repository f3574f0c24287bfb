package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/estate-protocol/tokenization-node/internal/database"
)

// handleSettlements lists recorded settlements, newest first. Operators use
// this to find mint_failed rows after a settled payment did not mint.
func (s *APIServer) handleSettlements(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status := r.URL.Query().Get("status")
	switch status {
	case "", database.SettlementPendingMint, database.SettlementMinted, database.SettlementMintFailed:
	default:
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error": fmt.Sprintf("Unknown status %q", status),
		})
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}
	offset := 0
	if v := r.URL.Query().Get("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	settlements, err := s.dbManager.ListSettlements(status, limit, offset)
	if err != nil {
		s.logger.Error(fmt.Sprintf("Failed to list settlements: %v", err), "api")
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"error": "Failed to list settlements",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"settlements": settlements,
		"count":       len(settlements),
	})
}
