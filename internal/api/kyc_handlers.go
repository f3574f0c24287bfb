package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/estate-protocol/tokenization-node/internal/chain"
)

// handleApproveKYC approves an investor address on the share contract
func (s *APIServer) handleApproveKYC(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Address string `json:"address"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"ok":    false,
			"error": "Invalid request body",
		})
		return
	}

	if req.Address == "" {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"ok":    false,
			"error": "Address required",
		})
		return
	}

	hash, err := s.chain.ApproveUser(r.Context(), req.Address)
	if err != nil {
		// Contract-level rejections (already approved, not owner, reverted)
		// are reported to the caller rather than treated as server faults
		var chainErr *chain.ChainError
		if errors.As(err, &chainErr) || errors.Is(err, chain.ErrInvalidAddress) {
			s.logger.Warn(fmt.Sprintf("KYC approval rejected for %s: %v", req.Address, err), "api")
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"ok":      false,
				"error":   "KYC approval rejected",
				"details": err.Error(),
			})
			return
		}

		s.logger.Error(fmt.Sprintf("KYC approval failed for %s: %v", req.Address, err), "api")
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"ok":    false,
			"error": "KYC approval failed",
		})
		return
	}

	s.logger.Info(fmt.Sprintf("KYC approved for %s (tx %s)", req.Address, hash), "api")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":   true,
		"hash": hash,
	})
}
