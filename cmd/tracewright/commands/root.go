// Package commands implements the tracewright command line.
package commands

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dshills/tracewright/internal/app"
	"github.com/dshills/tracewright/internal/config"
)

const cliExecutable = "tracewright"

// BuildInfo identifies the binary.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// globals holds the state shared by every subcommand after flag parsing.
type globals struct {
	configFile string
	logLevel   string
	logFormat  string

	cfg    *config.Config
	logger zerolog.Logger
	levels *app.LevelSwitch
}

// NewCommand constructs the top-level tracewright command.
func NewCommand(info BuildInfo) *cobra.Command {
	g := &globals{}

	cmd := &cobra.Command{
		Use:   cliExecutable,
		Short: "Tracewright drives simulated, recorded and live program executions",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(g.configFile)
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			if cmd.Flags().Changed("log-level") {
				cfg.Log.Level = g.logLevel
			}
			if cmd.Flags().Changed("log-format") {
				cfg.Log.Format = g.logFormat
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			g.cfg = cfg
			g.logger, g.levels = app.NewLogger(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
			return nil
		},
	}

	cmd.SilenceUsage = true

	cmd.PersistentFlags().StringVarP(&g.configFile, "config", "c", os.Getenv("TRACEWRIGHT_CONFIG"), "Configuration file path")
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&g.logFormat, "log-format", "", "Log format (console, json)")

	cmd.AddCommand(newRunCommand(g))
	cmd.AddCommand(newVersionCommand(info))

	return cmd
}
