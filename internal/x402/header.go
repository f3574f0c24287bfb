package x402

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// EncodePaymentHeader serializes a payment header to the base64 JSON form
// carried in the X-Payment HTTP header.
func EncodePaymentHeader(h *PaymentHeader) (string, error) {
	data, err := json.Marshal(h)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payment header: %v", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// DecodePaymentHeader parses a base64 X-Payment header value.
func DecodePaymentHeader(encoded string) (*PaymentHeader, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPaymentHeader, err)
	}

	var header PaymentHeader
	if err := json.Unmarshal(data, &header); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPaymentHeader, err)
	}

	return &header, nil
}
