package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/estate-protocol/tokenization-node/internal/api"
	"github.com/estate-protocol/tokenization-node/internal/chain"
	"github.com/estate-protocol/tokenization-node/internal/database"
	"github.com/estate-protocol/tokenization-node/internal/utils"
	"github.com/estate-protocol/tokenization-node/internal/x402"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the tokenization node",
	Long: `Start the tokenization node.

This will:
- Open the settlement database
- Connect to the Cronos RPC endpoint and load the signer key
- Start the HTTP API with the x402 purchase flow`,
	Run: func(cmd *cobra.Command, args []string) {
		logger.Info("Starting tokenization node...", "cli")

		// Initialize PID manager and guard against a second instance
		pidManager, err := utils.NewPIDManager(config)
		if err != nil {
			logger.Error(fmt.Sprintf("Failed to create PID manager: %v", err), "cli")
			os.Exit(1)
		}

		if existingPID, err := pidManager.ReadPID(); err == nil {
			if pidManager.IsProcessRunning(existingPID) {
				logger.Error(fmt.Sprintf("Another instance is already running with PID: %d", existingPID), "cli")
				fmt.Printf("Another instance is already running with PID: %d\n", existingPID)
				fmt.Println("Use 'tokenization-node stop' to stop the existing instance first")
				os.Exit(1)
			} else {
				// Clean up stale PID file
				pidManager.RemovePIDFile()
			}
		}

		currentPID := os.Getpid()
		if err := pidManager.WritePID(currentPID); err != nil {
			logger.Error(fmt.Sprintf("Failed to write PID file: %v", err), "cli")
			os.Exit(1)
		}
		defer func() {
			if err := pidManager.RemovePIDFile(); err != nil {
				logger.Warn(fmt.Sprintf("Failed to remove PID file: %v", err), "cli")
			}
		}()

		logger.Info(fmt.Sprintf("Node started with PID: %d", currentPID), "cli")

		// Settlement database
		dbManager, err := database.NewSQLiteManager(config, logger)
		if err != nil {
			logger.Error(fmt.Sprintf("Failed to open settlement database: %v", err), "cli")
			fmt.Printf("Error opening settlement database: %v\n", err)
			os.Exit(1)
		}
		defer dbManager.Close()

		// Chain gateway (RPC connection + signer key)
		gateway, err := chain.NewGateway(config, logger)
		if err != nil {
			logger.Error(fmt.Sprintf("Failed to initialize chain gateway: %v", err), "cli")
			fmt.Printf("Error initializing chain gateway: %v\n", err)
			os.Exit(1)
		}
		defer gateway.Close()

		logger.Info(fmt.Sprintf("Chain gateway ready, signer: %s", gateway.Signer().Hex()), "cli")

		// Writes revert unless the signer owns the contract; surface a
		// misconfiguration at startup instead of on the first purchase
		ownerCtx, ownerCancel := context.WithTimeout(context.Background(), 15*time.Second)
		owner, err := gateway.Owner(ownerCtx)
		ownerCancel()
		if err != nil {
			logger.Warn(fmt.Sprintf("Could not read contract owner: %v", err), "cli")
		} else if owner != gateway.Signer() {
			logger.Warn(fmt.Sprintf("Signer %s is not the contract owner %s, KYC and mint writes will revert",
				gateway.Signer().Hex(), owner.Hex()), "cli")
			fmt.Printf("WARNING: signer %s is not the contract owner %s\n", gateway.Signer().Hex(), owner.Hex())
		}

		// Facilitator client
		facilitator := x402.NewClient(config, logger)

		// HTTP API
		apiServer := api.NewAPIServer(config, logger, gateway, facilitator, dbManager)
		if err := apiServer.Start(); err != nil {
			logger.Error(fmt.Sprintf("Failed to start API server: %v", err), "cli")
			fmt.Printf("Error starting API server: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Tokenization node is running on port %s. Press Ctrl+C to stop.\n", apiServer.GetPort())

		// Setup signal handling for graceful shutdown
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutdown signal received, stopping node...", "cli")

		if err := apiServer.Stop(); err != nil {
			logger.Error(fmt.Sprintf("Error stopping API server: %v", err), "cli")
		}

		logger.Info("Tokenization node stopped successfully", "cli")
	},
}

func init() {
	rootCmd.AddCommand(startCmd)
}
