package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"signet/internal/app"
)

var (
	home       string
	configFile string
	backend    string
	logLevel   string
	passphrase string

	wire *app.Wire
)

// Execute runs the root command with os.Args.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "signet",
		Short:        "Pre-key inventory manager for end-to-end encrypted accounts",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if wire != nil {
				_ = wire.Close()
				wire = nil
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			w, err := app.NewWire(*cfg)
			if err != nil {
				return err
			}
			wire = w
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if wire == nil {
				return nil
			}
			err := wire.Close()
			wire = nil
			return err
		},
	}

	root.PersistentFlags().StringVar(&home, "home", "", "data dir (default ~/.signet)")
	root.PersistentFlags().StringVar(&configFile, "config", "", "TOML config file")
	root.PersistentFlags().StringVar(&backend, "backend", "", "pre-key storage backend: file, bolt or memory")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVarP(&passphrase, "passphrase", "p", "", "passphrase to protect keys")

	root.AddCommand(
		initCmd(),
		fingerprintCmd(),
		registerCmd(),
		prekeysCmd(),
		signedCmd(),
		daemonCmd(),
	)
	return root
}

// loadConfig reads the config file, if any, and applies flag overrides.
func loadConfig() (*app.Config, error) {
	cfg := app.DefaultConfig()
	if configFile != "" {
		loaded, err := app.LoadFile(configFile)
		if err != nil {
			return nil, err
		}
		cfg = *loaded
	}

	if home != "" {
		cfg.Home = home
	}
	if cfg.Home == "" {
		dir, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		cfg.Home = filepath.Join(dir, ".signet")
	}
	if backend != "" {
		cfg.Backend = backend
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	return &cfg, cfg.Validate()
}

func requirePassphrase() error {
	if passphrase == "" {
		return fmt.Errorf("passphrase required (-p)")
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
