// Command gep drives the gene evolution pipeline from the command line:
// it ingests structured log records, runs them through the evolution loop,
// and persists the genes that survive validation.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"gep/internal/config"
	"gep/internal/logging"
)

var (
	logger *zap.Logger
	cfg    *config.Config

	flagWorkspace string
	flagDebug     bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "gep",
		Short: "Gene evolution pipeline over structured logs",
		Long: `gep ingests structured log records and converts recurring operational
problems (errors, timeouts, stagnating failure patterns) into reusable,
validated capability fragments called genes.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logging.CloseAll()
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&flagWorkspace, "workspace", "w", ".", "workspace root (holds .gep/)")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(newProcessCmd())
	rootCmd.AddCommand(newStagnationCmd())
	rootCmd.AddCommand(newGenesCmd())
	rootCmd.AddCommand(newEventsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup initializes the zap logger, loads config, and wires the categorized
// file logger.
func setup() error {
	zc := zap.NewProductionConfig()
	if flagDebug {
		zc = zap.NewDevelopmentConfig()
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	var err error
	logger, err = zc.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}

	cfg, err = config.Load(flagWorkspace)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logging.Initialize(flagWorkspace); err != nil {
		logger.Warn("file logging unavailable", zap.Error(err))
	}
	logging.Boot("gep %s starting in %s", cfg.Version, flagWorkspace)
	return nil
}
