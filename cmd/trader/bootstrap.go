package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"agent-trader/internal/agents"
	"agent-trader/internal/agents/agentsobs"
	"agent-trader/internal/interfaces"
	"agent-trader/internal/judge/judgeobs"
	"agent-trader/internal/judge/noop"
	"agent-trader/internal/judge/openai"
	"agent-trader/internal/ledger"
	"agent-trader/internal/logger"
	"agent-trader/internal/marketdata"
	"agent-trader/internal/marketdata/marketobs"
	"agent-trader/internal/news"
	"agent-trader/internal/store"
	"agent-trader/internal/trace"
	"agent-trader/internal/tradelog"
)

// initializeSystem loads the environment and brings up the logger and
// tracer.
func initializeSystem() error {
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if err := trace.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}
	return nil
}

func loadConfig(ctx context.Context) (*store.Config, error) {
	cfg, err := store.LoadConfig("config.yaml")
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err)
		return nil, err
	}
	return cfg, nil
}

func compressOldLogs(ctx context.Context) {
	if v := os.Getenv("TRADER_LOG_RETENTION_DAYS"); v != "" {
		var n int
		fmt.Sscanf(v, "%d", &n)
		if err := tradelog.CompressOlder(n); err != nil {
			logger.Warn(ctx, "Failed to compress old logs", "error", err)
		}
	}
}

func initializeMarketData(ctx context.Context, cfg *store.Config) interfaces.MarketData {
	provider := marketdata.New(cfg)
	if cfg.MarketData.Provider == "STATIC" {
		logger.Warn(ctx, "Using STATIC fixture bars - prices are synthetic")
	} else {
		logger.Info(ctx, "Market data provider configured", "provider", cfg.MarketData.Provider)
	}
	return marketobs.Wrap(provider)
}

func initializeJudge(ctx context.Context, cfg *store.Config) interfaces.Judge {
	var j interfaces.Judge
	switch cfg.LLM.Provider {
	case "OPENAI":
		j = openai.NewJudge(cfg)
	default:
		j = noop.NewJudge()
		logger.Warn(ctx, "No judgment provider configured - stages will classify a neutral stance")
	}
	return judgeobs.Wrap(j)
}

func initializeNews(ctx context.Context, cfg *store.Config) *news.Service {
	if !cfg.News.Enabled {
		return nil
	}
	svcCfg := news.DefaultServiceConfig()
	if cfg.News.CacheMinutes > 0 {
		svcCfg.CacheDuration = time.Duration(cfg.News.CacheMinutes) * time.Minute
	}
	logger.Info(ctx, "Headline scraping enabled", "max_headlines", cfg.News.MaxHeadlines)
	return news.NewService(svcCfg)
}

func initializeAnalyzer(cfg *store.Config, j interfaces.Judge, market interfaces.MarketData, db *ledger.Store, newsSvc *news.Service) interfaces.Analyzer {
	orch := agents.New(cfg, j, market, db, newsSvc)
	return agentsobs.Wrap(orch)
}
