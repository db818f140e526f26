package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "vouch",
	Short: "Vouch — payment-gated trust scoring",
	Long:  "Vouch is a marketplace service that sells trust scores for ledger accounts: consumers negotiate terms, pay per request over the x402 protocol, and receive a composite reputation score derived from on-chain activity.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: configs/vouch.yaml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
