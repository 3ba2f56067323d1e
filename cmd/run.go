package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/voxpi/voxpi/internal/app"
	"github.com/voxpi/voxpi/internal/config"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the assistant loop",
	RunE:  runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	// The OLED driver needs raw I2C access, which the Pi images gate
	// behind root.
	if cfg.DisplayDriver == config.DisplayOLED && os.Geteuid() != 0 {
		return fmt.Errorf("the oled display driver requires root; rerun with sudo or set display_driver to %q", config.DisplayConsole)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Setup(ctx, cfg, logger, app.Options{})
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("shutdown cleanup failed", "error", err)
		}
	}()

	if n := a.Retriever.IndexKnowledgeBase(ctx); n > 0 {
		logger.Info("knowledge base ready", "chunks", n)
	}

	logger.Info("assistant started", "wake_phrase", cfg.WakePhrase, "mode", a.Modes.Mode().String())
	if err := a.Assistant.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
