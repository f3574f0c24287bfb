package x402

import (
	"math"
	"math/big"
	"strconv"
)

// ProtocolVersion is the x402 protocol version this node speaks.
const ProtocolVersion = 1

// Scheme is the only payment scheme supported ("exact" amount transfer).
const Scheme = "exact"

// SettledEvent is the facilitator event emitted when a payment settled on-chain.
const SettledEvent = "payment.settled"

// AssetDecimals is the decimal precision of the payment asset (USDC-style, 6).
const AssetDecimals = 6

// PaymentRequirements describes what must be paid to access a resource.
// The object sent in the 402 challenge and the one sent to the facilitator's
// verify/settle endpoints must serialize identically, so both are always
// produced from the same value.
type PaymentRequirements struct {
	Scheme            string `json:"scheme"`
	Network           string `json:"network"`
	PayTo             string `json:"payTo"`
	Asset             string `json:"asset"`
	Description       string `json:"description"`
	MimeType          string `json:"mimeType"`
	MaxAmountRequired string `json:"maxAmountRequired"`
	MaxTimeoutSeconds int    `json:"maxTimeoutSeconds"`
}

// PaymentChallenge is the body of a 402 Payment Required response.
type PaymentChallenge struct {
	Error               string               `json:"error"`
	X402Version         int                  `json:"x402Version"`
	PaymentRequirements *PaymentRequirements `json:"paymentRequirements"`
}

// PaymentPayload carries the signed EIP-3009 authorization inside a payment header.
// All numeric fields are decimal strings, validAfter/validBefore are unix seconds,
// nonce is 0x-prefixed 32-byte hex.
type PaymentPayload struct {
	From        string `json:"from"`
	To          string `json:"to"`
	Value       string `json:"value"`
	ValidAfter  string `json:"validAfter"`
	ValidBefore string `json:"validBefore"`
	Nonce       string `json:"nonce"`
	Signature   string `json:"signature"`
	Asset       string `json:"asset"`
}

// PaymentHeader is the decoded form of the base64 X-Payment header value.
type PaymentHeader struct {
	X402Version int            `json:"x402Version"`
	Scheme      string         `json:"scheme"`
	Network     string         `json:"network"`
	Payload     PaymentPayload `json:"payload"`
}

// FacilitatorRequest is the body POSTed to the facilitator's /verify and
// /settle endpoints. PaymentHeader stays in its opaque base64 form.
type FacilitatorRequest struct {
	X402Version         int                  `json:"x402Version"`
	PaymentHeader       string               `json:"paymentHeader"`
	PaymentRequirements *PaymentRequirements `json:"paymentRequirements"`
}

// VerifyResponse is the facilitator's answer to /verify.
type VerifyResponse struct {
	IsValid       bool   `json:"isValid"`
	InvalidReason string `json:"invalidReason,omitempty"`
	Error         string `json:"error,omitempty"`
}

// SettleResponse is the facilitator's answer to /settle. Event equals
// SettledEvent when the transfer was included on-chain.
type SettleResponse struct {
	Event       string `json:"event,omitempty"`
	TxHash      string `json:"txHash,omitempty"`
	From        string `json:"from,omitempty"`
	To          string `json:"to,omitempty"`
	Value       string `json:"value,omitempty"`
	BlockNumber int64  `json:"blockNumber,omitempty"`
	Timestamp   int64  `json:"timestamp,omitempty"`
	Error       string `json:"error,omitempty"`
}

// RawAmount converts a human-unit price to the smallest-unit decimal string
// used as maxAmountRequired (rounded, 6 decimals).
func RawAmount(totalPrice float64) string {
	return strconv.FormatInt(int64(math.Round(totalPrice*1e6)), 10)
}

// PricePaidUnits converts a human-unit price to the smallest-unit integer
// recorded on-chain as pricePaid (floored, matching the mint call).
func PricePaidUnits(totalPrice float64) *big.Int {
	return big.NewInt(int64(math.Floor(totalPrice * 1e6)))
}
