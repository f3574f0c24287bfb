package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/estate-protocol/tokenization-node/internal/utils"
)

var (
	configPath string
	config     *utils.ConfigManager
	logger     *utils.LogsManager
)

var rootCmd = &cobra.Command{
	Use:   "tokenization-node",
	Short: "Real estate tokenization node",
	Long: `Backend node for tokenized real estate purchases.

Serves an x402 payment-gated purchase API: buyers pay in USDC through an
x402 facilitator and receive ERC-1155 property shares minted on Cronos.
Also exposes KYC approval and read endpoints for the frontend.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Initialize configuration
		config = utils.NewConfigManager(configPath)

		// Initialize logging
		logger = utils.NewLogsManager(config)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		// Cleanup
		if logger != nil {
			logger.Close()
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")
}
