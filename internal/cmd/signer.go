package cmd

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"

	"github.com/estate-protocol/tokenization-node/internal/chain"
)

var signerCmd = &cobra.Command{
	Use:   "signer",
	Short: "Print the configured signer address",
	Long: `Resolve the chain signer key the node would use (DEPLOYER_PRIVATE_KEY
or the encrypted keystore file from config) and print its address.`,
	Run: func(cmd *cobra.Command, args []string) {
		key, err := chain.LoadSignerKey(config)
		if err != nil {
			fmt.Printf("Failed to load signer key: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(crypto.PubkeyToAddress(key.PublicKey).Hex())
	},
}

func init() {
	rootCmd.AddCommand(signerCmd)
}
