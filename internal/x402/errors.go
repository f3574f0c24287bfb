package x402

import "errors"

var (
	// Facilitator errors
	ErrFacilitatorUnavailable = errors.New("payment facilitator unavailable")
	ErrFacilitatorTimeout     = errors.New("payment facilitator timeout")
	ErrFacilitatorRejected    = errors.New("payment rejected by facilitator")

	// Payment header errors
	ErrInvalidPaymentHeader = errors.New("invalid payment header")
)
