// cmd/sitectl/main.go
//
// Operator tool for the chef site.
//
//	sitectl schema apply                       create missing tables
//	sitectl schema list                        list embedded schema files
//	sitectl migrate local --file export.json   replay a localStorage export
//	sitectl settings show                      print effective settings
//	sitectl settings preset rustic             switch theme preset
//
// Commands read the same config as the web server (conf/global.yaml,
// CHEF_ env, optional Vault).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yanizio/chefsite/internal/app"
	"github.com/yanizio/chefsite/internal/config"
	"github.com/yanizio/chefsite/internal/database"
	"github.com/yanizio/chefsite/internal/logger"
)

var (
	// Global flags
	logLevel   string
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:           "sitectl",
	Short:         "Chef site operator tool",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Console(logLevel)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
}

// loadConfig reads config with Vault when available.
func loadConfig(ctx context.Context) (*config.Config, error) {
	secrets, err := app.Secrets()
	if err != nil {
		return nil, fmt.Errorf("vault: %w", err)
	}
	return app.LoadConfig(ctx, secrets)
}

// openStore is app.OpenStore that refuses to continue without a store.
func openStore(ctx context.Context, cfg config.Database) (*database.Provider, error) {
	cfg.ApplySchema = false
	p := app.OpenStore(ctx, cfg)
	if !p.Available() {
		return nil, fmt.Errorf("database unavailable: %w", database.ErrUnavailable)
	}
	return p, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		_ = zap.L().Sync()
		os.Exit(1)
	}
}
