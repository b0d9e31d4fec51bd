package marketdata

import (
	"context"
	"fmt"
	"math"
	"time"

	"agent-trader/internal/interfaces"
	"agent-trader/internal/types"
)

// StaticProvider serves deterministic synthetic bars for dry runs and
// local development, mirroring the STATIC data source of live setups.
type StaticProvider struct {
	days int
}

func NewStaticProvider() *StaticProvider {
	return &StaticProvider{days: 120}
}

func (p *StaticProvider) Prices(ctx context.Context, ticker string, q interfaces.PriceQuery) ([]types.PriceBar, error) {
	if ticker == "" {
		return nil, fmt.Errorf("empty ticker: %w", types.ErrDataUnavailable)
	}

	// Seed the series off the ticker so different symbols diverge but
	// every run is reproducible.
	seed := 0
	for _, r := range ticker {
		seed += int(r)
	}
	base := 50.0 + float64(seed%200)

	end := time.Now().UTC()
	if q.EndDate != "" {
		if t, err := time.Parse("2006-01-02", q.EndDate); err == nil {
			end = t
		}
	}

	bars := make([]types.PriceBar, 0, p.days)
	for i := 0; i < p.days; i++ {
		day := end.AddDate(0, 0, i-p.days+1)
		if day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
			continue
		}
		date := day.Format("2006-01-02")
		if q.StartDate != "" && date < q.StartDate {
			continue
		}
		if q.EndDate != "" && date > q.EndDate {
			continue
		}
		drift := math.Sin(float64(i)/9.0) * base * 0.04
		closePx := base + drift
		bars = append(bars, types.PriceBar{
			Date:   date,
			Open:   closePx * 0.995,
			High:   closePx * 1.01,
			Low:    closePx * 0.99,
			Close:  closePx,
			Volume: 1_000_000 + float64(seed%1000)*100,
		})
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("no bars in range for %s: %w", ticker, types.ErrDataUnavailable)
	}
	if q.Limit > 0 && len(bars) > q.Limit {
		bars = bars[len(bars)-q.Limit:]
	}
	return bars, nil
}
