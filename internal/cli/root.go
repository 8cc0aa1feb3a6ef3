// Package cli provides the Cobra commands of the lrucache tool.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/3XBAT/lru/internal/logging"
	"github.com/3XBAT/lru/internal/settings"
)

// App is the state shared by subcommands once the root command has loaded
// settings.
type App struct {
	Settings *settings.Settings
	Logger   zerolog.Logger
}

var (
	app        *App
	configPath string
	rootCmd    = &cobra.Command{
		Use:   "lrucache",
		Short: "Exercise the in-process LRU caches",
		Long: `lrucache drives the linked and ordered LRU cache engines.

Settings come from an lru.yaml (or .json/.toml) file in the working directory,
the file given with --config, and LRU_* environment variables such as
LRU_CACHE_CAPACITY, LRU_CACHE_ENGINE or LRU_LOGGING_LEVEL.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			switch cmd.Name() {
			case "help", "completion":
				return nil
			}

			s, err := settings.Load(configPath)
			if err != nil {
				return fmt.Errorf("load settings: %w", err)
			}

			cfg := logging.DefaultConfig()
			if level, ok := logging.ParseLevel(s.Logging.Level); ok {
				cfg.Level = level
			}
			cfg.Format = s.Logging.Format

			app = &App{Settings: s, Logger: logging.New(cfg)}
			return nil
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a settings file")
	rootCmd.AddCommand(demoCmd, metricsCmd)
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command
// context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
