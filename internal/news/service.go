package news

import (
	"context"
	"sync"
	"time"

	"agent-trader/internal/logger"
)

// Service caches scraped headlines per ticker so repeated pipeline
// runs within the TTL do not re-hit the sources.
type Service struct {
	scraper *Scraper
	cache   *headlineCache
}

type ServiceConfig struct {
	ScrapeTimeout time.Duration
	CacheDuration time.Duration
}

func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		ScrapeTimeout: 15 * time.Second,
		CacheDuration: 1 * time.Hour,
	}
}

func NewService(cfg *ServiceConfig) *Service {
	if cfg == nil {
		cfg = DefaultServiceConfig()
	}
	return &Service{
		scraper: NewScraper(cfg.ScrapeTimeout),
		cache:   newHeadlineCache(cfg.CacheDuration),
	}
}

// Headlines returns cached or freshly scraped headlines for symbol.
func (s *Service) Headlines(ctx context.Context, symbol string, max int) ([]string, error) {
	if cached, ok := s.cache.get(symbol); ok {
		logger.Debug(ctx, "Headline cache hit", "symbol", symbol, "headlines", len(cached))
		return cached, nil
	}

	headlines, err := s.scraper.Headlines(ctx, symbol, max)
	if err != nil {
		return nil, err
	}
	s.cache.set(symbol, headlines)
	return headlines, nil
}

type headlineCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]cacheEntry
}

type cacheEntry struct {
	headlines []string
	storedAt  time.Time
}

func newHeadlineCache(ttl time.Duration) *headlineCache {
	return &headlineCache{
		ttl:     ttl,
		entries: map[string]cacheEntry{},
	}
}

func (c *headlineCache) get(symbol string) ([]string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[symbol]
	if !ok || time.Since(e.storedAt) > c.ttl {
		return nil, false
	}
	return e.headlines, true
}

func (c *headlineCache) set(symbol string, headlines []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[symbol] = cacheEntry{headlines: headlines, storedAt: time.Now()}
}
