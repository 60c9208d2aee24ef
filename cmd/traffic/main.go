package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"MarketTraffic/internal/config"
	"MarketTraffic/internal/console"
	"MarketTraffic/internal/controller"
	"MarketTraffic/internal/export"
	"MarketTraffic/internal/feed"
	"MarketTraffic/internal/marketdata"
	"MarketTraffic/internal/model"
	"MarketTraffic/internal/scheduler"
	"MarketTraffic/internal/store"
)

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := cfg.LogLevel()
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if cfg.Logging.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

func main() {
	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config validation: %v\n", err)
		os.Exit(1)
	}

	log, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log.Info("MarketTraffic starting", zap.String("config", cfgPath))

	provider := marketdata.NewFinnhubClient(cfg.Finnhub.BaseURL, cfg.Finnhub.APIKey, cfg.Proxy, cfg.Finnhub.Timeout, log.Named("finnhub"))
	log.Info("data source", zap.String("provider", provider.Name()))

	st := store.New(log.Named("store"), store.WithResetDelay(cfg.Feed.DirectionReset))
	lf := feed.NewManager(
		feed.URL(cfg.Finnhub.WSURL, cfg.Finnhub.APIKey),
		feed.NewWSDialer(cfg.Finnhub.Timeout),
		st, st,
		log.Named("feed"),
		feed.WithReconnectDelay(cfg.Feed.ReconnectDelay),
	)
	ctrl := controller.New(provider, st, lf, &export.FileExporter{Dir: cfg.Export.Dir}, log.Named("controller"),
		controller.WithView(model.View(cfg.View)),
		controller.WithNewsCount(cfg.News.Count),
	)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := ctrl.Start(ctx, cfg.Symbols); err != nil {
		log.Fatal("initial load", zap.Error(err))
	}
	defer ctrl.Shutdown()

	if cfg.Export.Cron != "" {
		sched := scheduler.NewScheduler(ctrl, log.Named("scheduler"))
		if err := sched.RegisterExport(cfg.Export.Cron); err != nil {
			log.Fatal("register export task", zap.Error(err))
		}
		sched.Start()
		defer sched.Stop()
	}

	con := console.New(ctrl, log.Named("console"))
	fmt.Print(con.HandleCommand(ctx, "table"))
	go func() {
		if err := con.Run(ctx, os.Stdin, os.Stdout); err != nil {
			log.Error("console stopped", zap.Error(err))
		}
	}()

	log.Info("MarketTraffic is running, type help for commands, Ctrl+C to stop")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, stopping")
	cancel()
}
