package news

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"agent-trader/internal/logger"
)

// Scraper collects recent headlines for a ticker from public finance
// sites. Headlines only flavor the sentiment prompt, so every failure
// here is soft.
type Scraper struct {
	sources []Source
	timeout time.Duration
}

// Source describes one site to scrape.
type Source struct {
	Name             string
	URL              string // {symbol} is replaced by the ticker
	HeadlineSelector string
	RateLimit        time.Duration
}

func NewScraper(timeout time.Duration) *Scraper {
	return &Scraper{
		sources: defaultSources(),
		timeout: timeout,
	}
}

func defaultSources() []Source {
	return []Source{
		{
			Name:             "YahooFinance",
			URL:              "https://finance.yahoo.com/quote/{symbol}/news",
			HeadlineSelector: "h3 a, li.stream-item a h3",
			RateLimit:        2 * time.Second,
		},
		{
			Name:             "MarketWatch",
			URL:              "https://www.marketwatch.com/investing/stock/{symbol}",
			HeadlineSelector: "h3.article__headline a, a.link",
			RateLimit:        2 * time.Second,
		},
	}
}

// Headlines scrapes up to max headlines across all sources.
func (s *Scraper) Headlines(ctx context.Context, symbol string, max int) ([]string, error) {
	logger.Debug(ctx, "Starting headline scrape", "symbol", symbol, "sources", len(s.sources))

	seen := map[string]bool{}
	all := []string{}
	perSource := max / len(s.sources)
	if perSource < 1 {
		perSource = 1
	}

	for _, src := range s.sources {
		if err := ctx.Err(); err != nil {
			return all, err
		}
		headlines, err := s.scrapeSource(ctx, src, symbol, perSource)
		if err != nil {
			logger.Warn(ctx, "Headline source failed", "source", src.Name, "symbol", symbol, "error", err)
			continue
		}
		for _, h := range headlines {
			if !seen[h] {
				seen[h] = true
				all = append(all, h)
			}
		}
		time.Sleep(src.RateLimit)
	}

	if len(all) > max {
		all = all[:max]
	}
	logger.Debug(ctx, "Headline scrape completed", "symbol", symbol, "headlines", len(all))
	return all, nil
}

func (s *Scraper) scrapeSource(ctx context.Context, src Source, symbol string, max int) ([]string, error) {
	url := strings.ReplaceAll(src.URL, "{symbol}", symbol)

	c := colly.NewCollector(
		colly.UserAgent("Mozilla/5.0 (compatible; agent-trader/1.0)"),
	)
	c.SetRequestTimeout(s.timeout)

	headlines := []string{}
	var scrapeErr error

	c.OnResponse(func(r *colly.Response) {
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(r.Body))
		if err != nil {
			scrapeErr = fmt.Errorf("parse %s: %w", src.Name, err)
			return
		}
		doc.Find(src.HeadlineSelector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			text := strings.TrimSpace(sel.Text())
			if len(text) > 20 {
				headlines = append(headlines, text)
			}
			return len(headlines) < max
		})
	})
	c.OnError(func(_ *colly.Response, err error) {
		scrapeErr = err
	})

	if err := c.Visit(url); err != nil {
		return nil, err
	}
	c.Wait()

	if scrapeErr != nil {
		return nil, scrapeErr
	}
	return headlines, nil
}
