package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"zapp/internal/bridge"
	"zapp/internal/config"
	"zapp/internal/logger"
	"zapp/internal/store"
)

var (
	verbose    bool
	configPath string
	log        = logger.New()
)

var rootCmd = &cobra.Command{
	Use:   "zapp",
	Short: "Zapp - a multi-protocol smart-TV remote control",
	Long: `Zapp pairs with and controls smart TVs across vendor ecosystems:
Android TV (ADB and the remote pairing variant), LG WebOS, Philips and
Samsung Tizen. Devices are paired once and controlled from the command
line or over the REST bridge.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			logger.SetSilentMode(false)
			logger.SetLevel("debug")
		}
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: <user-config-dir>/zapp/config.yaml)")

	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(pairCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(serveCmd)
}

// loadConfig resolves and loads the application configuration
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		dir, err := config.DefaultDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, "config.yaml")
	}
	return config.LoadConfig(path)
}

// openManager wires the store and session registry from configuration
func openManager() (*bridge.Manager, *store.Store, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0755); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, nil, nil, err
	}
	return bridge.NewManager(st, cfg), st, cfg, nil
}
