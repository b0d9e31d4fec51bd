package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agent-trader/internal/api"
	"agent-trader/internal/backtest"
	"agent-trader/internal/exec"
	"agent-trader/internal/ledger"
	"agent-trader/internal/logger"
	"agent-trader/internal/trace"
)

func main() {
	if err := initializeSystem(); err != nil {
		fmt.Fprintf(os.Stderr, "startup failed: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := loadConfig(ctx)
	if err != nil {
		os.Exit(1)
	}

	compressOldLogs(ctx)

	store, err := ledger.Open(cfg.Database.Path)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to open ledger", err)
		os.Exit(1)
	}
	defer store.Close()

	market := initializeMarketData(ctx, cfg)
	judge := initializeJudge(ctx, cfg)
	newsSvc := initializeNews(ctx, cfg)

	analyzer := initializeAnalyzer(cfg, judge, market, store, newsSvc)
	executor := exec.New(store, cfg.Sizing)
	backtester := backtest.New(market, store, cfg.Backtest)

	server := api.NewServer(cfg.Server.Addr, analyzer, executor, backtester, store, cfg.Auth.Tokens)

	errc := make(chan error, 1)
	go func() {
		errc <- server.Start()
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errc:
		if err != nil {
			logger.ErrorWithErr(ctx, "Server failed", err)
			os.Exit(1)
		}
	case sig := <-sigc:
		logger.Info(ctx, "Shutting down", "signal", sig.String())
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn(ctx, "Server shutdown incomplete", "error", err)
		}
		if err := trace.Shutdown(shutdownCtx); err != nil {
			logger.Warn(ctx, "Tracer shutdown incomplete", "error", err)
		}
	}
}
