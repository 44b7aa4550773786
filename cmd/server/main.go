package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tradebridge/saxogw/internal/auth"
	"github.com/tradebridge/saxogw/internal/broker"
	"github.com/tradebridge/saxogw/internal/engine"
	"github.com/tradebridge/saxogw/internal/gateway"
	"github.com/tradebridge/saxogw/internal/journal"
	"github.com/tradebridge/saxogw/internal/risk"
	"github.com/tradebridge/saxogw/pkg/config"
	"github.com/tradebridge/saxogw/pkg/credstore"
	"github.com/tradebridge/saxogw/pkg/logger"
	"github.com/tradebridge/saxogw/pkg/shutdown"
)

func main() {
	// Load .env (best-effort). If missing, fall back to real env vars.
	_ = godotenv.Load()

	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "config file path (.yaml/.json), optional")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	if err := logger.Init(logger.Config{
		Level:      cfg.LogLevel,
		OutputFile: cfg.LogFile,
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     7,
		Compress:   true,
	}); err != nil {
		log.Fatalf("init logger: %v", err)
	}

	storeKey, err := credstore.ParseKey(cfg.StoreKey)
	if err != nil {
		log.Fatalf("parse store key: %v", err)
	}
	store, err := credstore.Open(credstore.OpenOptions{
		Path:          cfg.StorePath,
		EncryptionKey: storeKey,
	})
	if err != nil {
		log.Fatalf("open credential store: %v", err)
	}

	jnl, err := journal.Open(cfg.JournalPath)
	if err != nil {
		log.Fatalf("open journal: %v", err)
	}

	provider := auth.NewProvider(cfg.TokenEndpoint(), cfg.ClientID, cfg.ClientSecret)
	tokens := auth.NewManager(store, provider, auth.Options{
		SafetyMargin:     cfg.SafetyMargin,
		DefaultExpiry:    cfg.DefaultExpiry,
		SeedRefreshToken: os.Getenv("SAXO_REFRESH_TOKEN"),
	})

	brokerClient := broker.NewClient(cfg.APIBaseURL())
	exec := engine.New(brokerClient, engine.Options{
		PollInterval: cfg.PollInterval,
		PollTimeout:  cfg.PollTimeout,
	})
	breaker := risk.NewCircuitBreaker(cfg.MaxConsecutiveFailures)

	coordinator := gateway.NewCoordinator(tokens, exec, breaker, jnl, cfg.Symbols, cfg.AccountKey)
	srv := gateway.NewServer(coordinator, provider, tokens, breaker, jnl, cfg.RedirectURI, cfg.WebhookSecret)

	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	sd := shutdown.NewManager()
	sd.OnShutdown(func(ctx context.Context) { _ = httpSrv.Shutdown(ctx) })
	sd.OnShutdown(func(context.Context) { _ = jnl.Close() })
	sd.OnShutdown(func(context.Context) { _ = store.Close() })

	go func() {
		logger.Infof("gateway listening on %s (%s)", cfg.ListenAddr, cfg.Environment)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("http server error: %v", err)
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	<-stopCh

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	sd.Shutdown(ctx)
	logger.Info("gateway stopped")
}
