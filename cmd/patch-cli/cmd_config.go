package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/fredericlb/BespokeSynthPatches/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration commands",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the configuration resolved from the environment",
	Long:  `Load the server configuration from the environment and print it. Secrets are never printed.`,
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configShowCmd.Flags().String("format", "yaml", "Output format: yaml, json")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("format")
	out, err := renderConfig(cfg, format)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), out)
	return nil
}

func renderConfig(cfg *config.Config, format string) (string, error) {
	switch format {
	case "yaml", "":
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return "", fmt.Errorf("encode yaml: %w", err)
		}
		return string(data), nil
	case "json":
		// round trip through yaml so json output honours the same field names
		// and secret exclusions
		var generic map[string]any
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return "", fmt.Errorf("encode yaml: %w", err)
		}
		if err := yaml.Unmarshal(data, &generic); err != nil {
			return "", fmt.Errorf("decode yaml: %w", err)
		}
		out, err := json.MarshalIndent(generic, "", "  ")
		if err != nil {
			return "", fmt.Errorf("encode json: %w", err)
		}
		return string(out) + "\n", nil
	default:
		return "", fmt.Errorf("unsupported format %q", format)
	}
}
