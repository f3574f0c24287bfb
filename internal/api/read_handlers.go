package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// handleKYCStatus returns whether an address passed KYC on the share contract
func (s *APIServer) handleKYCStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	address := r.URL.Query().Get("address")
	if address == "" {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error": "Address required",
		})
		return
	}

	verified, err := s.chain.IsKycVerified(r.Context(), address)
	if err != nil {
		s.logger.Error(fmt.Sprintf("KYC status read failed for %s: %v", address, err), "api")
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"error": "Failed to read KYC status",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"address":  address,
		"verified": verified,
	})
}

// handleShares returns the caller's share balances for a set of property IDs
func (s *APIServer) handleShares(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	address := r.URL.Query().Get("address")
	if address == "" {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error": "Address required",
		})
		return
	}

	ids, err := parseIDList(r.URL.Query().Get("ids"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error": "Invalid ids parameter",
		})
		return
	}
	if len(ids) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error": "At least one property id is required",
		})
		return
	}

	// balanceOfBatch pairs accounts with ids, so repeat the address per id
	accounts := make([]string, len(ids))
	for i := range ids {
		accounts[i] = address
	}

	balances, err := s.chain.BalanceOfBatch(r.Context(), accounts, ids)
	if err != nil {
		s.logger.Error(fmt.Sprintf("Share balance read failed for %s: %v", address, err), "api")
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"error": "Failed to read share balances",
		})
		return
	}

	shares := make(map[string]string, len(ids))
	for i, id := range ids {
		shares[strconv.FormatInt(id, 10)] = balances[i].String()
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"address": address,
		"shares":  shares,
	})
}

// parseIDList parses a comma-separated list of property IDs
func parseIDList(raw string) ([]int64, error) {
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id < 0 {
			return nil, fmt.Errorf("invalid property id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
