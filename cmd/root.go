// Package cmd defines the voxpi command-line interface.
package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/voxpi/voxpi/internal/config"
	"github.com/voxpi/voxpi/internal/log"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "voxpi",
	Short: "voxpi - a voice and vision assistant for Raspberry Pi",
	Long: `voxpi is an offline voice assistant for the Raspberry Pi. It listens
for a wake phrase, answers questions with a local language model backed by
retrieval-augmented memory, and can describe what its camera sees.

Running voxpi with no arguments starts the assistant loop.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRun(cmd, args)
	},
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.voxpi/config.yaml)")
}

// loadConfig loads configuration and builds the logger from it.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	logger := log.NewWithWriter(os.Stderr, log.Config{Level: level, JSON: cfg.LogJSON})
	return cfg, logger, nil
}
