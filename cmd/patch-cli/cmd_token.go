package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Action token commands",
	Long:  `Issue, enable and inspect the single-use tokens that gate patch submission.`,
}

var tokenIssueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Issue a new disabled token",
	Args:  cobra.NoArgs,
	RunE:  runTokenIssue,
}

var tokenEnableCmd = &cobra.Command{
	Use:   "enable <id>",
	Short: "Enable a token with its secret",
	Args:  cobra.ExactArgs(1),
	RunE:  runTokenEnable,
}

var tokenStatusCmd = &cobra.Command{
	Use:   "status <id>",
	Short: "Show whether a token is enabled",
	Args:  cobra.ExactArgs(1),
	RunE:  runTokenStatus,
}

func init() {
	tokenCmd.AddCommand(tokenIssueCmd)
	tokenCmd.AddCommand(tokenEnableCmd)
	tokenCmd.AddCommand(tokenStatusCmd)

	tokenIssueCmd.Flags().Bool("enable", false, "Enable the token right after issuing it")
	tokenEnableCmd.Flags().String("secret", "", "Secret returned when the token was issued")
	_ = tokenEnableCmd.MarkFlagRequired("secret")
}

func runTokenIssue(cmd *cobra.Command, args []string) error {
	client := clientFromFlags(cmd)
	issued, err := client.IssueToken(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "id:         %s\n", issued.ID)
	fmt.Fprintf(out, "secret:     %s\n", issued.Secret)
	fmt.Fprintf(out, "expires_at: %s\n", issued.ExpiresAt.Format("2006-01-02T15:04:05Z07:00"))

	if enable, _ := cmd.Flags().GetBool("enable"); enable {
		if _, err := client.EnableToken(cmd.Context(), issued.ID, issued.Secret); err != nil {
			return fmt.Errorf("enable token: %w", err)
		}
		fmt.Fprintln(out, "enabled:    true")
	}
	return nil
}

func runTokenEnable(cmd *cobra.Command, args []string) error {
	secret, _ := cmd.Flags().GetString("secret")
	res, err := clientFromFlags(cmd).EnableToken(cmd.Context(), args[0], secret)
	if err != nil {
		return err
	}
	if res.AlreadyEnabled {
		fmt.Fprintf(cmd.OutOrStdout(), "token %s was already enabled\n", res.ID)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "token %s enabled\n", res.ID)
	return nil
}

func runTokenStatus(cmd *cobra.Command, args []string) error {
	res, err := clientFromFlags(cmd).TokenStatus(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "token %s enabled=%t\n", res.ID, res.Enabled)
	return nil
}
