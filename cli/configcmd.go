package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spilist/tokscale/internal/config"
)

var configFlags struct {
	server      string
	apiKey      string
	cursorToken string
	sources     []string
	show        bool
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configure server sync settings",
	Example: `  tokscale config --server https://example.com --api-key tokscale_xxx
  tokscale config --cursor-token <WorkosCursorSessionToken>
  tokscale config --show`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		if configFlags.show {
			showConfig(cfg)
			return nil
		}

		changed := false
		if configFlags.server != "" {
			cfg.Server = configFlags.server
			changed = true
		}
		if configFlags.apiKey != "" {
			cfg.APIKey = configFlags.apiKey
			changed = true
		}
		if configFlags.cursorToken != "" {
			cfg.CursorSessionToken = configFlags.cursorToken
			changed = true
		}
		if cmd.Flags().Changed("default-source") {
			cfg.Sources = configFlags.sources
			changed = true
		}

		if !changed {
			return cmd.Usage()
		}

		if err := config.Save(cfg); err != nil {
			return err
		}
		fmt.Println("Configuration saved.")
		return nil
	},
}

func showConfig(cfg *config.Config) {
	if cfg.Server == "" && cfg.APIKey == "" && cfg.CursorSessionToken == "" {
		fmt.Println("No configuration found. Run 'tokscale config --server <url> --api-key <key>' to configure.")
		return
	}
	if cfg.Server != "" {
		fmt.Printf("Server: %s\n", cfg.Server)
	}
	if cfg.APIKey != "" {
		fmt.Printf("API Key: %s\n", maskSecret(cfg.APIKey))
	}
	if cfg.CursorSessionToken != "" {
		fmt.Printf("Cursor token: %s\n", maskSecret(cfg.CursorSessionToken))
	}
	if cfg.DeviceID != "" {
		fmt.Printf("Device ID: %s\n", cfg.DeviceID)
	}
	if len(cfg.Sources) > 0 {
		fmt.Printf("Default sources: %v\n", cfg.Sources)
	}
}

func maskSecret(s string) string {
	if len(s) <= 14 {
		return "..."
	}
	return s[:10] + "..." + s[len(s)-4:]
}

func init() {
	configCmd.Flags().StringVar(&configFlags.server, "server", "", "server URL")
	configCmd.Flags().StringVar(&configFlags.apiKey, "api-key", "", "API key for authentication")
	configCmd.Flags().StringVar(&configFlags.cursorToken, "cursor-token", "", "Cursor session token for usage export")
	configCmd.Flags().StringSliceVar(&configFlags.sources, "default-source", nil, "default sources for all commands")
	configCmd.Flags().BoolVar(&configFlags.show, "show", false, "show current configuration")
	rootCmd.AddCommand(configCmd)
}
