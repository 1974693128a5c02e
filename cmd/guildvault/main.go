package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/BadgersMC/LumaGuilds-sub008/api"
	"github.com/BadgersMC/LumaGuilds-sub008/autosave"
	"github.com/BadgersMC/LumaGuilds-sub008/config"
	"github.com/BadgersMC/LumaGuilds-sub008/store"
	"github.com/BadgersMC/LumaGuilds-sub008/store/migrator"
	"github.com/BadgersMC/LumaGuilds-sub008/store/store_interface"
	"github.com/BadgersMC/LumaGuilds-sub008/telemetry"
	"github.com/BadgersMC/LumaGuilds-sub008/vault"
	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var (
	Version = ""

	configFile string
	addr       string
	storeType  string
	logLevel   string
	migrateTo  string

	rootCmd = &cobra.Command{
		Use:          "guildvault",
		Short:        "Guild vault cache with write-behind persistence",
		SilenceUsage: true,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the vault HTTP and viewer server",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Copy every vault and the transaction history to another store",
		Args:  cobra.NoArgs,
		RunE:  runMigrate,
	}
)

// loadConfig applies defaults, the config file, the environment and finally
// any flags set on the command line.
func loadConfig(cmd *cobra.Command) (*config.Config, *log.Logger, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("addr") {
		cfg.Server.Addr = addr
	}
	if flags.Changed("store") {
		cfg.Store.Type = storeType
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	logger, err := telemetry.NewLogger(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func newManager(cfg *config.Config, st store_interface.Store, logger *log.Logger) (*vault.Manager, error) {
	rules, err := vault.NewRules(cfg.Vault.ValuableMaterials)
	if err != nil {
		return nil, fmt.Errorf("valuable materials: %w", err)
	}
	return vault.NewManager(st, st, vault.Options{
		Capacity:       cfg.Vault.Capacity,
		SaveAttempts:   cfg.Vault.SaveAttempts,
		SaveBackoff:    cfg.Vault.SaveBackoff,
		SaveMaxBackoff: cfg.Vault.SaveMaxBackoff,
		Policy: vault.FlushPolicy{
			Quiet:    cfg.Vault.FlushQuiet,
			MaxAge:   cfg.Vault.FlushMaxAge,
			MaxSlots: cfg.Vault.FlushMaxSlots,
		},
		Rules:   rules,
		Display: vault.BalanceDisplay{Material: cfg.Vault.CurrencyMaterial},
		Logger:  logger,
	}), nil
}

func schedulerConfig(cfg *config.Config) autosave.Config {
	a := cfg.AutoSave
	out := autosave.Config{
		DataDir:             a.DataDir,
		FlushInterval:       a.FlushInterval,
		IdleCheckInterval:   a.IdleCheckInterval,
		IdleThreshold:       a.IdleThreshold,
		EvictAfter:          a.EvictAfter,
		ArchiveInterval:     a.ArchiveInterval,
		ArchiveInitialDelay: a.ArchiveInitialDelay,
	}
	if a.ArchiveEnabled {
		out.Retention = a.Retention
	}
	return out
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.SetupTracing(ctx, cfg.Telemetry.OTLPEndpoint, cfg.Telemetry.ServiceName, cfg.Telemetry.SampleRatio)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}

	st, err := store.Open(cfg.Store)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Store.Type, err)
	}
	defer func() {
		if err := store.Close(st); err != nil {
			logger.Error("closing store", "err", err)
		}
	}()
	logger.Info("store opened", "type", cfg.Store.Type)

	manager, err := newManager(cfg, st, logger)
	if err != nil {
		return err
	}

	scheduler := autosave.New(manager, st, afero.NewOsFs(), schedulerConfig(cfg), logger)
	if err := scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start auto-save: %w", err)
	}

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: api.SetupRouter(manager, st, cfg.Server, logger),
	}
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Server.Addr, "prefix", cfg.Server.Prefix)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case runErr = <-serveErr:
		logger.Error("server failed", "err", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "err", err)
	}
	if err := scheduler.Stop(shutdownCtx); err != nil {
		runErr = errors.Join(runErr, err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("tracing shutdown", "err", err)
	}
	return runErr
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if migrateTo == "" || migrateTo == cfg.Store.Type {
		return fmt.Errorf("--to must name a store other than %q", cfg.Store.Type)
	}
	targetCfg := cfg.Store
	targetCfg.Type = migrateTo

	source, err := store.Open(cfg.Store)
	if err != nil {
		return fmt.Errorf("open source %s store: %w", cfg.Store.Type, err)
	}
	defer store.Close(source)
	target, err := store.Open(targetCfg)
	if err != nil {
		return fmt.Errorf("open target %s store: %w", migrateTo, err)
	}
	defer store.Close(target)

	ctx := cmd.Context()
	vaults, err := (&migrator.VaultMigrator{Source: source, Target: target, Logger: logger}).MigrateAll(ctx)
	if err != nil {
		return err
	}
	txs, err := (&migrator.TransactionMigrator{Source: source, Target: target, Logger: logger}).Migrate(ctx)
	if err != nil {
		return err
	}
	logger.Info("migration complete", "from", cfg.Store.Type, "to", migrateTo, "vaults", vaults, "transactions", txs)
	return nil
}

func init() {
	rootCmd.Version = Version
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default guildvault.yaml in the user config dir)")
	rootCmd.PersistentFlags().StringVar(&storeType, "store", "", "store backend: ram, boltdb, sqlite or mongodb")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")
	serveCmd.Flags().StringVar(&addr, "addr", "", "listen address")
	migrateCmd.Flags().StringVar(&migrateTo, "to", "", "target store backend")

	rootCmd.AddCommand(serveCmd, migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
