package main

import (
	"fmt"

	"github.com/cat-engine/backend/internal/config"
	"github.com/cat-engine/backend/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// version is set via -ldflags at build time.
var version = "(devel)"

var (
	cfg *config.Config
	log *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "catctl",
	Short:         "Manage item banks and simulate adaptive test sessions",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		c, err := config.Load(path)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if mode, _ := cmd.Flags().GetString("log-mode"); mode != "" {
			c.LogMode = mode
		}
		l, err := logger.New(c.LogMode)
		if err != nil {
			return err
		}
		cfg, log = c, l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("catctl", version)
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "cat.yaml", "Path to YAML config file (missing file means defaults)")
	rootCmd.PersistentFlags().String("log-mode", "nop", "Logger mode: development, production or nop")

	rootCmd.AddCommand(bankCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(versionCmd)
}
