package chain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrSignerKeyMissing = errors.New("signer private key not configured")
	ErrInvalidAddress   = errors.New("invalid address")
)

// ChainError carries the chain-level failure of a read or write call,
// including the revert reason or short message the node returned.
type ChainError struct {
	Op     string // contract method
	Hash   string // transaction hash, when one was submitted
	Reason string // revert reason / short message
	Err    error
}

func (e *ChainError) Error() string {
	if e.Hash != "" {
		return fmt.Sprintf("%s failed (tx %s): %s", e.Op, e.Hash, e.Reason)
	}
	return fmt.Sprintf("%s failed: %s", e.Op, e.Reason)
}

func (e *ChainError) Unwrap() error {
	return e.Err
}

// revertReason extracts a usable short message from a node RPC error.
func revertReason(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if idx := strings.Index(msg, "execution reverted:"); idx >= 0 {
		return strings.TrimSpace(msg[idx+len("execution reverted:"):])
	}
	if idx := strings.Index(msg, "execution reverted"); idx >= 0 {
		return "execution reverted"
	}
	return msg
}
