package marketdata

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-resty/resty/v2"

	"agent-trader/internal/interfaces"
	"agent-trader/internal/logger"
	"agent-trader/internal/types"
)

const defaultFinancialDatasetsURL = "https://api.financialdatasets.ai"

// FinancialDatasetsClient fetches daily price bars from the
// financialdatasets.ai REST API.
type FinancialDatasetsClient struct {
	client *resty.Client
	apiKey string
}

func NewFinancialDatasetsClient(apiKey string) *FinancialDatasetsClient {
	return NewFinancialDatasetsClientWithBaseURL(apiKey, defaultFinancialDatasetsURL)
}

// NewFinancialDatasetsClientWithBaseURL exists so tests can point the
// client at a local server.
func NewFinancialDatasetsClientWithBaseURL(apiKey, baseURL string) *FinancialDatasetsClient {
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(30 * time.Second)

	return &FinancialDatasetsClient{client: client, apiKey: apiKey}
}

type priceBarPayload struct {
	Date   string  `json:"date"`
	Time   string  `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

type pricesResponse struct {
	Prices []priceBarPayload `json:"prices"`
}

func (c *FinancialDatasetsClient) Prices(ctx context.Context, ticker string, q interfaces.PriceQuery) ([]types.PriceBar, error) {
	if ticker == "" {
		return nil, fmt.Errorf("empty ticker: %w", types.ErrDataUnavailable)
	}

	req := c.client.R().
		SetContext(ctx).
		SetHeader("X-API-KEY", c.apiKey).
		SetResult(&pricesResponse{})
	if q.StartDate != "" {
		req.SetQueryParam("start_date", q.StartDate)
	}
	if q.EndDate != "" {
		req.SetQueryParam("end_date", q.EndDate)
	}
	if q.Limit > 0 {
		req.SetQueryParam("limit", fmt.Sprintf("%d", q.Limit))
	}

	resp, err := req.Get("/stocks/prices/" + ticker)
	if err != nil {
		return nil, fmt.Errorf("fetch prices for %s: %w", ticker, err)
	}
	if resp.IsError() {
		logger.Warn(ctx, "Price provider returned error status", "ticker", ticker, "status", resp.StatusCode())
		return nil, fmt.Errorf("price provider http %d for %s: %w", resp.StatusCode(), ticker, types.ErrDataUnavailable)
	}

	payload, ok := resp.Result().(*pricesResponse)
	if !ok || len(payload.Prices) == 0 {
		return nil, fmt.Errorf("empty price series for %s: %w", ticker, types.ErrDataUnavailable)
	}

	bars := make([]types.PriceBar, 0, len(payload.Prices))
	for _, p := range payload.Prices {
		date := p.Date
		if date == "" {
			date = p.Time
		}
		if len(date) > 10 {
			date = date[:10]
		}
		bars = append(bars, types.PriceBar{
			Date:   date,
			Open:   p.Open,
			High:   p.High,
			Low:    p.Low,
			Close:  p.Close,
			Volume: p.Volume,
		})
	}

	// The API may return newest-first; callers rely on ascending order.
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date < bars[j].Date })
	return bars, nil
}
