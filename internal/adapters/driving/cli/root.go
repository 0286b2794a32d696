// Package cli provides the cobra command tree for scour.
package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/scour/internal/adapters/driven/broadcast"
	configfile "github.com/custodia-labs/scour/internal/adapters/driven/config/file"
	"github.com/custodia-labs/scour/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/scour/internal/core/ports/driving"
	"github.com/custodia-labs/scour/internal/core/services"
	"github.com/custodia-labs/scour/internal/engines/filesystem"
	"github.com/custodia-labs/scour/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	flagVerbose   bool
	flagConfigDir string
	flagDataDir   string
)

// Wired services, shared by all commands.
var (
	store        *sqlite.Store
	hub          *broadcast.Hub
	orchestrator driving.SearchOrchestrator
)

var rootCmd = &cobra.Command{
	Use:   "scour",
	Short: "Orchestrate long-lived local searches",
	Long: `scour runs long-lived filesystem searches, tracking their progress
as a stream of debounced updates and finalizing each record exactly once.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		logger.SetVerbose(flagVerbose)
		if cmd.Name() == "version" {
			return nil
		}
		return initServices()
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		if hub != nil {
			hub.Close()
		}
		if store != nil {
			if err := store.Close(); err != nil {
				logger.Warn("closing store: %v", err)
			}
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "", "config directory (default ~/.scour)")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "data directory (default ~/.scour/data)")
}

// initServices wires the engine, store, hub, and orchestrator.
func initServices() error {
	cfg, err := configfile.NewConfigStore(flagConfigDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	dataDir := flagDataDir
	if dataDir == "" {
		dataDir = cfg.GetString(configfile.KeyDataDir)
	}

	store, err = sqlite.NewStore(dataDir)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	logger.Debug("store: %s", store.Path())

	hub = broadcast.NewHub()

	engine := filesystem.NewEngine(filesystem.Config{
		RatePerSecond: float64(cfg.GetInt(configfile.KeyEngineRatePerSecond)),
		Burst:         cfg.GetInt(configfile.KeyEngineBurst),
		MaxFileSize:   int64(cfg.GetInt(configfile.KeyEngineMaxFileSize)),
	})

	debounce := time.Duration(cfg.GetInt(configfile.KeyDebounceIntervalMS)) * time.Millisecond
	orchestrator = services.NewSearchOrchestrator(engine, store.SearchStore(), hub, debounce)
	return nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
