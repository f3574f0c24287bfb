package x402

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/estate-protocol/tokenization-node/internal/utils"
)

// Client talks to an external x402 payment facilitator. Verify and settle
// are single round-trips with no local retry logic: every purchase attempt
// performs a fresh verify+settle pair, and failures are surfaced to the
// caller unchanged.
type Client struct {
	facilitatorURL string
	httpClient     *http.Client
	logger         *utils.LogsManager
}

// NewClient creates a facilitator client from configuration.
func NewClient(config *utils.ConfigManager, logger *utils.LogsManager) *Client {
	timeout := time.Duration(config.GetConfigInt("facilitator_timeout_seconds", 30, 1, 120)) * time.Second
	facilitatorURL := config.GetConfigWithDefault("facilitator_url", "https://facilitator.cronoslabs.org/v2/x402")

	client := &Client{
		facilitatorURL: facilitatorURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}

	logger.Info(fmt.Sprintf("Facilitator client initialized: url=%s, timeout=%s", facilitatorURL, timeout), "x402_client")

	return client
}

// Verify asks the facilitator whether the payment header satisfies the
// requirements. A transport or protocol failure is an error; an invalid
// payment is a successful call with IsValid=false.
func (c *Client) Verify(ctx context.Context, paymentHeader string, requirements *PaymentRequirements) (*VerifyResponse, error) {
	var resp VerifyResponse
	if err := c.post(ctx, "/verify", paymentHeader, requirements, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Settle asks the facilitator to execute the authorized transfer on-chain.
// The caller must check Event == SettledEvent before treating the payment
// as captured.
func (c *Client) Settle(ctx context.Context, paymentHeader string, requirements *PaymentRequirements) (*SettleResponse, error) {
	var resp SettleResponse
	if err := c.post(ctx, "/settle", paymentHeader, requirements, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) post(ctx context.Context, path string, paymentHeader string, requirements *PaymentRequirements, out interface{}) error {
	if c.facilitatorURL == "" {
		return ErrFacilitatorUnavailable
	}

	url := c.facilitatorURL + path

	body := &FacilitatorRequest{
		X402Version:         ProtocolVersion,
		PaymentHeader:       paymentHeader,
		PaymentRequirements: requirements,
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal facilitator request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %v", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X402-Version", fmt.Sprintf("%d", ProtocolVersion))
	req.Header.Set("User-Agent", "tokenization-node/1.0")

	c.logger.Debug(fmt.Sprintf("Facilitator request: POST %s", url), "x402_client")

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error(fmt.Sprintf("Facilitator request failed: %v (ctx.Err=%v)", err, ctx.Err()), "x402_client")
		if ctx.Err() == context.DeadlineExceeded {
			return ErrFacilitatorTimeout
		}
		return fmt.Errorf("%w: %v", ErrFacilitatorUnavailable, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return fmt.Errorf("failed to read facilitator response: %v", err)
	}

	c.logger.Debug(fmt.Sprintf("Facilitator response: HTTP %d, body: %s", httpResp.StatusCode, string(respBody)), "x402_client")

	if httpResp.StatusCode >= 500 {
		return fmt.Errorf("%w: HTTP %d", ErrFacilitatorUnavailable, httpResp.StatusCode)
	}

	if httpResp.StatusCode >= 400 {
		// Surface the facilitator's own error string when it sent one
		var errResp struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error != "" {
			return fmt.Errorf("%w: %s", ErrFacilitatorRejected, errResp.Error)
		}
		return fmt.Errorf("%w: HTTP %d", ErrFacilitatorRejected, httpResp.StatusCode)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse facilitator response: %v", err)
	}

	return nil
}
