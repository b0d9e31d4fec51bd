package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"

	"agent-trader/internal/interfaces"
	"agent-trader/internal/types"
)

// YahooClient fetches daily bars from Yahoo Finance. Used as an
// alternate provider when no financialdatasets key is configured.
type YahooClient struct{}

func NewYahooClient() *YahooClient {
	return &YahooClient{}
}

func (c *YahooClient) Prices(ctx context.Context, ticker string, q interfaces.PriceQuery) ([]types.PriceBar, error) {
	if ticker == "" {
		return nil, fmt.Errorf("empty ticker: %w", types.ErrDataUnavailable)
	}
	// finance-go has no context support; honor cancellation up front.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	end := time.Now()
	if q.EndDate != "" {
		if t, err := time.Parse("2006-01-02", q.EndDate); err == nil {
			end = t
		}
	}
	start := end.AddDate(0, -3, 0)
	if q.StartDate != "" {
		if t, err := time.Parse("2006-01-02", q.StartDate); err == nil {
			start = t
		}
	}

	params := &chart.Params{
		Symbol:   ticker,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.OneDay,
	}

	iter := chart.Get(params)
	bars := []types.PriceBar{}
	for iter.Next() {
		b := iter.Bar()
		open, _ := b.Open.Float64()
		high, _ := b.High.Float64()
		low, _ := b.Low.Float64()
		closePx, _ := b.Close.Float64()
		bars = append(bars, types.PriceBar{
			Date:   time.Unix(int64(b.Timestamp), 0).UTC().Format("2006-01-02"),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePx,
			Volume: float64(b.Volume),
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("yahoo chart for %s: %w", ticker, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("empty price series for %s: %w", ticker, types.ErrDataUnavailable)
	}

	if q.Limit > 0 && len(bars) > q.Limit {
		bars = bars[len(bars)-q.Limit:]
	}
	return bars, nil
}
