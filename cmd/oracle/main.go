package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/alejandrodnm/oraclebot/config"
	"github.com/alejandrodnm/oraclebot/internal/adapters/storage"
	"github.com/alejandrodnm/oraclebot/internal/domain"
	"github.com/alejandrodnm/oraclebot/internal/engine"
	"github.com/alejandrodnm/oraclebot/internal/methods"
	"github.com/alejandrodnm/oraclebot/internal/metrics"
)

const defaultConfigPath = "config/config.yaml"

var (
	configPath string
	verbose    bool
	logFormat  string
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	cancel()
	if err != nil {
		slog.Error("oracle failed", "err", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "oracle",
		Short: "Detector combination optimizer for prediction markets",
		Long: `oracle backtests combinations of market detectors against resolved
prediction markets, searches the combination space in three tiers and
validates the best combos on a recent holdout slice.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath, "path to config file")
	root.PersistentFlags().BoolVar(&verbose, "verbose", false, "set log level to debug")
	root.PersistentFlags().StringVar(&logFormat, "format", "", "log format: text|json (overrides config)")

	root.AddCommand(
		newInitCmd(),
		newSeedCmd(),
		newOptimizeCmd(),
		newBacktestCmd(),
		newTopCmd(),
		newPruneCmd(),
		newMethodsCmd(),
	)
	return root
}

// app agrupa lo que comparten los subcomandos.
type app struct {
	cfg      *config.Config
	registry *methods.Registry
	store    *storage.SQLiteStorage
}

// loadApp carga la configuración, prepara el logger y construye el registry.
func loadApp(cmd *cobra.Command) (*app, error) {
	path := configPath
	if !cmd.Flags().Changed("config") {
		// sin --config explícito el archivo por defecto es opcional
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			path = ""
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	setupLogger(cfg.Log)

	registry, err := methods.NewDefaultRegistry()
	if err != nil {
		return nil, err
	}

	return &app{cfg: cfg, registry: registry}, nil
}

// openStore abre el almacenamiento. dsn vacío = el de la configuración.
func (a *app) openStore(dsn string) error {
	if dsn == "" {
		dsn = a.cfg.Storage.DSN
	}
	store, err := storage.NewSQLiteStorage(dsn)
	if err != nil {
		return fmt.Errorf("open storage %q: %w", dsn, err)
	}
	a.store = store
	slog.Debug("storage opened", "dsn", dsn)
	return nil
}

// loadAppWithStore combina loadApp y openStore con el DSN configurado.
func loadAppWithStore(cmd *cobra.Command) (*app, error) {
	a, err := loadApp(cmd)
	if err != nil {
		return nil, err
	}
	if err := a.openStore(""); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			slog.Warn("close storage", "err", err)
		}
	}
}

// newRunner construye el backtester con los pesos de la configuración.
func (a *app) newRunner() (*engine.Runner, error) {
	scorer, err := domain.NewFitnessScorer(a.cfg.FitnessWeights(a.registry.Len()))
	if err != nil {
		return nil, err
	}
	return engine.NewRunner(a.cfg.BacktestConfig(), a.registry, scorer)
}

// serveMetrics expone /metrics mientras ctx siga vivo. No hace nada sin dirección.
func (a *app) serveMetrics(ctx context.Context) {
	addr := a.cfg.Metrics.Addr
	if addr == "" {
		return
	}
	metrics.InitRegistry()

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		slog.Info("metrics server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", "err", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
