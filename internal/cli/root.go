/*
PURPOSE:
  Defines the root Cobra command for the flame-speed CLI.
  Handles global flags, logging setup and command initialization.

REQUIREMENTS:
  User-specified:
  - Provide a CLI interface.
  - Support global flags like --config.

  Implementation-discovered:
  - Needs to expose an Execute() function for main.go.
  - Reductions run for hours; Ctrl-C must stop them cleanly (context cancellation).
  - Log level comes from --log-level, falling back to the config file.

ARCHITECTURE INTEGRATION:
  - Called by: cmd/flame-speed/main.go
  - Calls: Child commands (reduce, sweep, inspect, case, template)
  - Modifies: Global configuration state (temporarily, until passed down).

ERROR HANDLING:
  - Returns error to main.go for exit code handling.

IMPLEMENTATION RULES:
  - Use `PersistentFlags()` for flags available to all subcommands.
  - Keep Run logic in subcommands, Root is usually empty or helps.

USAGE:
  Called by main.go.

SELF-HEALING INSTRUCTIONS:
  - If adding new global flags, add them to init().

RELATED FILES:
  - cmd/flame-speed/main.go

MAINTENANCE:
  - Update when adding global configuration options.
*/

package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/daryltucker/flame-speed/internal/config"
	"github.com/daryltucker/flame-speed/internal/output"
)

var (
	// cfgFile stores the path to the config file (if specified via flag)
	cfgFile  string
	logLevel string

	rootCmd = &cobra.Command{
		Use:   "flame-speed",
		Short: "Reduce combustion mechanisms against laminar flame speed",
		Long: `Greedy kinetic mechanism reduction driven by laminar flame speed.
Reactions are removed one at a time, least important first, while the flame speed of the
reduced mechanism stays within tolerance of the complete one. Use 'sweep --help' for the
flame-speed report and 'case --help' for the CFD case generator.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute executes the root command.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./flame_speed.yaml or ./flame_speed.toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
}

// loadConfig loads the configuration and installs the logger at the selected level.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if err := output.Configure(cmd.ErrOrStderr(), cfg.LogLevel); err != nil {
		return nil, err
	}
	return cfg, nil
}
