package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fredericlb/BespokeSynthPatches/internal/config"
	"github.com/fredericlb/BespokeSynthPatches/internal/infrastructure/auth"
)

var patchCmd = &cobra.Command{
	Use:   "patch",
	Short: "Patch inspection commands",
}

var patchGetCmd = &cobra.Command{
	Use:   "get <uuid>",
	Short: "Print a patch as JSON",
	Long:  `Print a patch. Pending patches need a moderation token, passed with --token or signed locally with --sign.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runPatchGet,
}

var moderateCmd = &cobra.Command{
	Use:   "moderate <uuid>",
	Short: "Approve or reject a pending patch",
	Long: `Approve or reject a pending patch.

Without --token the moderation token is signed locally with MODERATION_SECRET,
which must match the server's secret.`,
	Args: cobra.ExactArgs(1),
	RunE: runModerate,
}

func init() {
	patchCmd.AddCommand(patchGetCmd)

	patchGetCmd.Flags().String("token", "", "Moderation token for a pending patch")
	patchGetCmd.Flags().Bool("sign", false, "Sign a moderation token locally with MODERATION_SECRET")

	moderateCmd.Flags().Bool("approve", false, "Approve the patch")
	moderateCmd.Flags().Bool("reject", false, "Reject and delete the patch")
	moderateCmd.Flags().String("token", "", "Moderation token received with the submission notice")
	moderateCmd.MarkFlagsMutuallyExclusive("approve", "reject")
	moderateCmd.MarkFlagsOneRequired("approve", "reject")
}

func runPatchGet(cmd *cobra.Command, args []string) error {
	id := args[0]
	token, _ := cmd.Flags().GetString("token")
	if sign, _ := cmd.Flags().GetBool("sign"); sign && token == "" {
		signed, err := signModerationToken(id)
		if err != nil {
			return err
		}
		token = signed
	}

	raw, err := clientFromFlags(cmd).GetPatch(cmd.Context(), id, token)
	if err != nil {
		return err
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		return fmt.Errorf("decode patch: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), pretty.String())
	return nil
}

func runModerate(cmd *cobra.Command, args []string) error {
	id := args[0]
	approve, _ := cmd.Flags().GetBool("approve")

	token, _ := cmd.Flags().GetString("token")
	if token == "" {
		signed, err := signModerationToken(id)
		if err != nil {
			return err
		}
		token = signed
	}

	res, err := clientFromFlags(cmd).Moderate(cmd.Context(), id, token, approve)
	if err != nil {
		return err
	}
	decision := "rejected"
	if res.Approved {
		decision = "approved"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "patch %s %s\n", res.UUID, decision)
	return nil
}

// signModerationToken signs a token for id the way the server does at
// submission time.
func signModerationToken(id string) (string, error) {
	cfg, err := config.Load()
	if err != nil {
		return "", fmt.Errorf("load config: %w", err)
	}
	if cfg.Environment != "production" && cfg.ModerationSecret == config.DevelopmentModerationSecret {
		fmt.Fprintln(os.Stderr, "warning: signing with the development moderation secret")
	}
	token, err := auth.NewModerationSigner(cfg).Issue(id)
	if err != nil {
		return "", errors.Join(errors.New("sign moderation token"), err)
	}
	return token, nil
}
