// Command kluagent runs the KLU campus assistant: an HTTP API, a terminal chat
// client and a few maintenance commands sharing one configuration.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/0xcro3dile/kluagent/internal/config"
	"github.com/0xcro3dile/kluagent/internal/logging"
)

const version = "1.0.0"

var (
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "kluagent",
	Short: "KLU Agent - campus assistant over documents and the college database",
	Long: `KLU Agent answers questions about KL University by combining policy
documents with the structured college database.

Settings come from an optional YAML file, a .env file and the environment.
Run "kluagent serve" for the HTTP API or "kluagent chat" for the terminal client.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if verbose {
			cfg.Log.Level = "debug"
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		// The chat screen owns the terminal; logs would corrupt it.
		if cmd == chatCmd {
			logger = zap.NewNop()
			return nil
		}
		logger, err = logging.New(cfg.Log.Level, cfg.Log.Debug)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "kluagent", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd, askCmd, chatCmd, seedCmd, statsCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
