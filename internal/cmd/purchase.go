package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"

	"github.com/estate-protocol/tokenization-node/internal/x402"
)

var (
	purchaseURL      string
	purchaseProperty int64
	purchaseQuantity int64
	purchaseBuyer    string
	purchasePrice    float64
)

// x402 network names and the EVM chain IDs they stand for
var networkChainIDs = map[string]int64{
	"cronos":         25,
	"cronos-testnet": 338,
}

var purchaseCmd = &cobra.Command{
	Use:   "purchase",
	Short: "Buy property shares through the x402 payment flow",
	Long: `Run the buyer side of the x402 handshake against a tokenization node.

Sends the purchase request, reads the 402 payment challenge, signs an
EIP-3009 transfer authorization with the key from BUYER_PRIVATE_KEY and
retries the request with the X-Payment header.`,
	Run: func(cmd *cobra.Command, args []string) {
		keyHex := os.Getenv("BUYER_PRIVATE_KEY")
		if keyHex == "" {
			fmt.Println("BUYER_PRIVATE_KEY environment variable is required")
			os.Exit(1)
		}
		privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(keyHex, "0x"))
		if err != nil {
			fmt.Printf("Invalid buyer private key: %v\n", err)
			os.Exit(1)
		}

		buyer := purchaseBuyer
		if buyer == "" {
			buyer = crypto.PubkeyToAddress(privateKey.PublicKey).Hex()
		}

		body, _ := json.Marshal(map[string]interface{}{
			"propertyId": purchaseProperty,
			"quantity":   purchaseQuantity,
			"buyer":      buyer,
			"totalPrice": purchasePrice,
		})

		client := &http.Client{Timeout: 120 * time.Second}
		endpoint := strings.TrimRight(purchaseURL, "/") + "/api/purchase"

		// First request without payment proof to obtain the challenge
		resp, err := client.Post(endpoint, "application/json", bytes.NewReader(body))
		if err != nil {
			fmt.Printf("Request failed: %v\n", err)
			os.Exit(1)
		}
		challengeBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode != http.StatusPaymentRequired {
			fmt.Printf("Expected 402 challenge, got %d: %s\n", resp.StatusCode, string(challengeBody))
			os.Exit(1)
		}

		var challenge x402.PaymentChallenge
		if err := json.Unmarshal(challengeBody, &challenge); err != nil || challenge.PaymentRequirements == nil {
			fmt.Printf("Invalid payment challenge: %s\n", string(challengeBody))
			os.Exit(1)
		}

		req := challenge.PaymentRequirements
		fmt.Printf("Payment required: %s %s units to %s on %s\n",
			req.MaxAmountRequired, req.Asset, req.PayTo, req.Network)

		// Refuse to sign for a chain other than the one configured locally
		chainID := config.GetConfigInt64("chain_id", 338, 1, 1<<62)
		if id, ok := networkChainIDs[req.Network]; !ok || id != chainID {
			fmt.Printf("Challenge network %q does not match configured chain id %d, refusing to sign\n",
				req.Network, chainID)
			os.Exit(1)
		}

		domain := x402.Domain{
			Name:    config.GetConfigWithDefault("token_name", "Bridged USDC (Stargate)"),
			Version: config.GetConfigWithDefault("token_version", "1"),
			ChainID: chainID,
		}

		header, err := x402.BuildPaymentHeader(privateKey, req, domain)
		if err != nil {
			fmt.Printf("Failed to build payment header: %v\n", err)
			os.Exit(1)
		}

		// Retry the purchase with the signed payment proof
		paidReq, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			fmt.Printf("Request failed: %v\n", err)
			os.Exit(1)
		}
		paidReq.Header.Set("Content-Type", "application/json")
		paidReq.Header.Set("X-Payment", header)

		paidResp, err := client.Do(paidReq)
		if err != nil {
			fmt.Printf("Request failed: %v\n", err)
			os.Exit(1)
		}
		defer paidResp.Body.Close()
		result, _ := io.ReadAll(paidResp.Body)

		fmt.Printf("Server responded %d:\n%s\n", paidResp.StatusCode, string(result))
		if paidResp.StatusCode != http.StatusOK {
			os.Exit(1)
		}
	},
}

func init() {
	purchaseCmd.Flags().StringVar(&purchaseURL, "url", "http://localhost:4000", "tokenization node base URL")
	purchaseCmd.Flags().Int64Var(&purchaseProperty, "property", 0, "property id to buy shares of")
	purchaseCmd.Flags().Int64Var(&purchaseQuantity, "quantity", 1, "number of shares to buy")
	purchaseCmd.Flags().StringVar(&purchaseBuyer, "buyer", "", "receiving address (defaults to the signing key's address)")
	purchaseCmd.Flags().Float64Var(&purchasePrice, "price", 0, "total price in payment asset units (e.g. 10.5 USDC)")
	purchaseCmd.MarkFlagRequired("property")
	purchaseCmd.MarkFlagRequired("price")
	rootCmd.AddCommand(purchaseCmd)
}
