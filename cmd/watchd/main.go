// watchd is the copy-trading watch daemon: it follows a set of wallets
// over a Solana log subscription, mirrors detected trades into the
// ledger, and tracks newly observed wallets for promotion.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"solana-copy-watch/internal/classifier"
	"solana-copy-watch/internal/config"
	"solana-copy-watch/internal/discovery"
	"solana-copy-watch/internal/ledger"
	"solana-copy-watch/internal/notify"
	"solana-copy-watch/internal/observability"
	"solana-copy-watch/internal/solana"
	"solana-copy-watch/internal/storage"
	chstore "solana-copy-watch/internal/storage/clickhouse"
	filestore "solana-copy-watch/internal/storage/file"
	"solana-copy-watch/internal/storage/memory"
	"solana-copy-watch/internal/storage/migrations"
	pgstore "solana-copy-watch/internal/storage/postgres"
	"solana-copy-watch/internal/watcher"
)

const discoveryRetention = 24 * time.Hour

func main() {
	configPath := flag.String("config", "", "Path to config file (optional, env vars otherwise)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory state storage (no durability)")
	metricsAddr := flag.String("metrics-addr", "", "Override metrics HTTP address (empty keeps config value)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}

	logger, err := buildLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx, cancel, cfg, *useMemory, logger); err != nil {
		logger.Fatal("watchd failed", zap.Error(err))
	}
}

func buildLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", level, err)
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}

func run(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, useMemory bool, logger *zap.Logger) error {
	if !solana.IsValidAddress(cfg.MasterWalletAddress) {
		return fmt.Errorf("invalid master wallet address %q", cfg.MasterWalletAddress)
	}
	if !solana.IsOnCurve(cfg.MasterWalletAddress) {
		// Program-derived addresses decode fine but are not wallets.
		logger.Warn("master wallet address is not an ed25519 curve point, likely not a wallet keypair",
			zap.String("address", cfg.MasterWalletAddress))
	}

	// State storage: memory flag wins, then Postgres if configured,
	// otherwise the JSON file backend.
	var store storage.StateStore
	switch {
	case useMemory:
		store = memory.NewStateStore()
		logger.Info("using in-memory state storage")
	case cfg.PostgresDSN != "":
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return fmt.Errorf("run postgres migrations: %w", err)
		}
		store = pgstore.NewStateStore(pool)
		logger.Info("using postgres state storage")
	default:
		store = filestore.NewStateStore(cfg.StatePath)
		logger.Info("using file state storage", zap.String("path", cfg.StatePath))
	}

	// Optional event archive.
	var archive storage.EventArchive
	if cfg.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
		if err != nil {
			return fmt.Errorf("run clickhouse migrations: %w", err)
		}
		defer conn.Close()
		archive = chstore.NewEventArchiveStore(conn)
		logger.Info("event archive enabled")
	}

	var notifier notify.Notifier = notify.Noop{}
	if cfg.TelegramToken != "" && cfg.TelegramChatID != "" {
		notifier = notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID, logger)
		logger.Info("telegram notifier enabled")
	}

	runtime := config.NewRuntime(cfg.Policy)

	led := ledger.New(store, cfg.MasterWalletAddress, logger)
	led.LoadState(ctx)

	dialer := func(ctx context.Context) (solana.LogStream, error) {
		return solana.Dial(ctx, cfg.WSEndpoint, nil)
	}

	w := watcher.New(dialer, classifier.New(), led, nil, notifier, runtime, archive, watcher.Options{
		MaxReconnectAttempts: cfg.MaxReconnectAttempts,
		BaseDelay:            cfg.ReconnectBaseDelay,
		MaxDelay:             cfg.ReconnectMaxDelay,
	}, logger)

	disc := discovery.New(led, w, notifier, runtime, logger)
	w.SetDiscovery(disc)
	if cfg.Policy.DiscoveryEnabled {
		disc.Start()
	}

	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer w.Stop()

	// Periodic sweeps: persistence safety net and discovery retention.
	c := cron.New()
	if _, err := c.AddFunc("@every 60s", func() { led.SaveState(ctx) }); err != nil {
		return fmt.Errorf("schedule state save: %w", err)
	}
	if _, err := c.AddFunc("@every 1h", func() { disc.ClearOldDiscoveries(discoveryRetention) }); err != nil {
		return fmt.Errorf("schedule discovery sweep: %w", err)
	}
	c.Start()
	defer c.Stop()

	var metricsSrv *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", observability.Handler())
		mux.HandleFunc("/healthz", func(rw http.ResponseWriter, _ *http.Request) {
			if !w.Active() {
				rw.WriteHeader(http.StatusServiceUnavailable)
				rw.Write([]byte("subscription inactive"))
				return
			}
			rw.WriteHeader(http.StatusOK)
			rw.Write([]byte("ok"))
		})
		metricsSrv = &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
		go func() {
			logger.Info("metrics server listening", zap.String("addr", cfg.MetricsAddr))
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server error", zap.Error(err))
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
		cancel()
	case <-ctx.Done():
	}

	if metricsSrv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}

	// Final save so the snapshot reflects everything up to shutdown.
	saveCtx, saveCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer saveCancel()
	led.SaveState(saveCtx)

	logger.Info("shutdown complete")
	return nil
}
