package x402

import (
	"crypto/ecdsa"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// Authorization is an EIP-3009 TransferWithAuthorization message awaiting
// signature. The nonce is the replay-prevention key for the authorization:
// it must be fresh random per message and is never reused for a signer.
type Authorization struct {
	From        common.Address
	To          common.Address
	Value       *big.Int
	ValidAfter  *big.Int
	ValidBefore *big.Int
	Nonce       [32]byte
}

// Domain identifies the EIP-712 domain of the payment asset contract.
// A signature produced against the wrong chain id is invalid for the
// target contract's domain separator.
type Domain struct {
	Name              string
	Version           string
	ChainID           int64
	VerifyingContract string
}

// NewAuthorization builds an authorization valid from now until
// now+timeoutSeconds, with a fresh 256-bit random nonce.
func NewAuthorization(from, to common.Address, value *big.Int, timeoutSeconds int) (*Authorization, error) {
	nonce, err := GenerateNonce()
	if err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %v", err)
	}

	return &Authorization{
		From:        from,
		To:          to,
		Value:       value,
		ValidAfter:  big.NewInt(0),
		ValidBefore: big.NewInt(time.Now().Unix() + int64(timeoutSeconds)),
		Nonce:       nonce,
	}, nil
}

// GenerateNonce draws 32 bytes from crypto/rand. A failed read is an error,
// never a weaker fallback.
func GenerateNonce() ([32]byte, error) {
	var nonce [32]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nonce, err
	}
	return nonce, nil
}

// SignAuthorization signs the EIP-712 TransferWithAuthorization digest and
// returns a 0x-prefixed 65-byte signature with v normalized to 27/28.
func SignAuthorization(privateKey *ecdsa.PrivateKey, auth *Authorization, domain Domain) (string, error) {
	typedData := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": []apitypes.Type{
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"TransferWithAuthorization": []apitypes.Type{
				{Name: "from", Type: "address"},
				{Name: "to", Type: "address"},
				{Name: "value", Type: "uint256"},
				{Name: "validAfter", Type: "uint256"},
				{Name: "validBefore", Type: "uint256"},
				{Name: "nonce", Type: "bytes32"},
			},
		},
		PrimaryType: "TransferWithAuthorization",
		Domain: apitypes.TypedDataDomain{
			Name:              domain.Name,
			Version:           domain.Version,
			ChainId:           math.NewHexOrDecimal256(domain.ChainID),
			VerifyingContract: domain.VerifyingContract,
		},
		Message: apitypes.TypedDataMessage{
			"from":        auth.From.Hex(),
			"to":          auth.To.Hex(),
			"value":       (*math.HexOrDecimal256)(auth.Value),
			"validAfter":  (*math.HexOrDecimal256)(auth.ValidAfter),
			"validBefore": (*math.HexOrDecimal256)(auth.ValidBefore),
			"nonce":       common.BytesToHash(auth.Nonce[:]).Hex(),
		},
	}

	digest, err := HashTypedData(typedData)
	if err != nil {
		return "", err
	}

	signature, err := crypto.Sign(digest.Bytes(), privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign authorization: %v", err)
	}

	// go-ethereum returns v as recovery id (0/1); EIP-3009 ecrecover
	// expects Ethereum format (27/28)
	if signature[64] < 27 {
		signature[64] += 27
	}

	return "0x" + common.Bytes2Hex(signature), nil
}

// HashTypedData computes the EIP-712 digest:
// keccak256("\x19\x01" + domainSeparator + hashStruct(message))
func HashTypedData(typedData apitypes.TypedData) (common.Hash, error) {
	domainSeparator, err := typedData.HashStruct("EIP712Domain", typedData.Domain.Map())
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to hash domain: %v", err)
	}

	messageHash, err := typedData.HashStruct(typedData.PrimaryType, typedData.Message)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to hash message: %v", err)
	}

	rawData := append([]byte{0x19, 0x01}, append(domainSeparator, messageHash...)...)
	return crypto.Keccak256Hash(rawData), nil
}

// BuildPaymentHeader runs the whole client half of the handshake: construct
// an authorization satisfying the challenge requirements, sign it with the
// given key, and encode the resulting payment header.
func BuildPaymentHeader(privateKey *ecdsa.PrivateKey, req *PaymentRequirements, domain Domain) (string, error) {
	value, ok := new(big.Int).SetString(req.MaxAmountRequired, 10)
	if !ok {
		return "", fmt.Errorf("invalid maxAmountRequired %q", req.MaxAmountRequired)
	}

	from := crypto.PubkeyToAddress(privateKey.PublicKey)

	auth, err := NewAuthorization(from, common.HexToAddress(req.PayTo), value, req.MaxTimeoutSeconds)
	if err != nil {
		return "", err
	}

	// The asset contract is the verifying contract of the domain
	domain.VerifyingContract = req.Asset

	signature, err := SignAuthorization(privateKey, auth, domain)
	if err != nil {
		return "", err
	}

	header := &PaymentHeader{
		X402Version: ProtocolVersion,
		Scheme:      req.Scheme,
		Network:     req.Network,
		Payload: PaymentPayload{
			From:        from.Hex(),
			To:          req.PayTo,
			Value:       req.MaxAmountRequired,
			ValidAfter:  auth.ValidAfter.String(),
			ValidBefore: auth.ValidBefore.String(),
			Nonce:       common.BytesToHash(auth.Nonce[:]).Hex(),
			Signature:   signature,
			Asset:       req.Asset,
		},
	}

	return EncodePaymentHeader(header)
}
