// Command shopctl runs storefront maintenance tasks: reconciliation sweeps,
// catalog seeding and gateway payload debugging.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "shopctl",
		Short:         "Storefront operations tool",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
		},
	}

	root.AddCommand(reconcileCmd())
	root.AddCommand(seedCmd())
	root.AddCommand(signCmd())
	root.AddCommand(decodeCmd())
	root.AddCommand(tokenCmd())

	return root
}
