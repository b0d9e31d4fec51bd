package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"agent-trader/internal/interfaces"
	"agent-trader/internal/types"
)

func TestFinancialDatasetsPrices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/stocks/prices/AAPL" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("X-API-KEY") != "test-key" {
			t.Errorf("missing api key header")
		}
		if r.URL.Query().Get("limit") != "30" {
			t.Errorf("limit not forwarded: %s", r.URL.Query().Get("limit"))
		}
		w.Header().Set("Content-Type", "application/json")
		// Newest-first, as the API returns it.
		_ = json.NewEncoder(w).Encode(map[string]any{
			"prices": []map[string]any{
				{"date": "2024-01-03", "open": 102, "high": 104, "low": 101, "close": 103, "volume": 900},
				{"date": "2024-01-02", "open": 100, "high": 102, "low": 99, "close": 101, "volume": 1000},
			},
		})
	}))
	defer srv.Close()

	client := NewFinancialDatasetsClientWithBaseURL("test-key", srv.URL)
	bars, err := client.Prices(context.Background(), "AAPL", interfaces.PriceQuery{Limit: 30})
	if err != nil {
		t.Fatalf("Prices failed: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(bars))
	}
	if bars[0].Date != "2024-01-02" || bars[1].Date != "2024-01-03" {
		t.Errorf("bars must be ascending by date, got %s then %s", bars[0].Date, bars[1].Date)
	}
	if bars[1].Close != 103 {
		t.Errorf("expected close 103, got %.2f", bars[1].Close)
	}
}

func TestFinancialDatasetsEmptySeries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"prices": []any{}})
	}))
	defer srv.Close()

	client := NewFinancialDatasetsClientWithBaseURL("test-key", srv.URL)
	_, err := client.Prices(context.Background(), "ZZZZ", interfaces.PriceQuery{})
	if !errors.Is(err, types.ErrDataUnavailable) {
		t.Errorf("expected data unavailable, got %v", err)
	}
}

func TestFinancialDatasetsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	client := NewFinancialDatasetsClientWithBaseURL("bad-key", srv.URL)
	_, err := client.Prices(context.Background(), "AAPL", interfaces.PriceQuery{})
	if !errors.Is(err, types.ErrDataUnavailable) {
		t.Errorf("expected data unavailable on http error, got %v", err)
	}
}

func TestStaticProviderDeterministic(t *testing.T) {
	p := NewStaticProvider()
	q := interfaces.PriceQuery{StartDate: "2024-01-01", EndDate: "2024-03-01"}

	a, err := p.Prices(context.Background(), "AAPL", q)
	if err != nil {
		t.Fatalf("Prices failed: %v", err)
	}
	b, err := p.Prices(context.Background(), "AAPL", q)
	if err != nil {
		t.Fatalf("Prices failed: %v", err)
	}
	if len(a) == 0 || len(a) != len(b) {
		t.Fatalf("expected identical series, got %d and %d bars", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("bar %d differs between runs", i)
		}
	}

	other, err := p.Prices(context.Background(), "MSFT", q)
	if err != nil {
		t.Fatalf("Prices failed: %v", err)
	}
	if other[0].Close == a[0].Close {
		t.Error("different tickers should produce different price levels")
	}
}

func TestStaticProviderLimit(t *testing.T) {
	p := NewStaticProvider()
	bars, err := p.Prices(context.Background(), "AAPL", interfaces.PriceQuery{Limit: 5})
	if err != nil {
		t.Fatalf("Prices failed: %v", err)
	}
	if len(bars) != 5 {
		t.Errorf("expected 5 bars, got %d", len(bars))
	}
	for i := 1; i < len(bars); i++ {
		if bars[i-1].Date >= bars[i].Date {
			t.Errorf("dates not ascending: %s then %s", bars[i-1].Date, bars[i].Date)
		}
	}
}
