package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "1.0.0"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "patch-cli",
	Short: "Operator tool for the Bespoke patches API",
	Long: `patch-cli talks to a running patches API to manage action tokens,
inspect submissions and moderate them.

Examples:
  patch-cli token issue
  patch-cli token enable <id> --secret <secret>
  patch-cli patch get <uuid> --token <moderation-token>
  patch-cli moderate <uuid> --approve
  patch-cli config show`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(patchCmd)
	rootCmd.AddCommand(moderateCmd)
	rootCmd.AddCommand(configCmd)

	rootCmd.PersistentFlags().String("server", envOr("PATCHES_API_URL", "http://localhost:8000"), "Base URL of the patches API")
	rootCmd.PersistentFlags().Duration("timeout", defaultTimeout, "Request timeout")
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func clientFromFlags(cmd *cobra.Command) *apiClient {
	server, _ := cmd.Flags().GetString("server")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	return newAPIClient(server, timeout)
}
