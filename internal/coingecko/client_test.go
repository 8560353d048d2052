package coingecko

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const marketsPayload = `[
  {
    "id": "coinx",
    "symbol": "cx",
    "name": "Coin X",
    "current_price": 0.001234,
    "market_cap": 5000000,
    "market_cap_rank": 812,
    "total_volume": 250000.5,
    "price_change_percentage_24h": -3.2,
    "price_change_percentage_1h_in_currency": 15.0,
    "last_updated": "2026-10-17T09:00:00.000Z"
  },
  {
    "id": "fresh",
    "symbol": "frs",
    "name": "Fresh",
    "current_price": 1.5e-05,
    "market_cap": null
  },
  {
    "symbol": "noid",
    "name": "No Id"
  }
]`

func TestFetchMarkets_ParsesAndToleratesMissingFields(t *testing.T) {
	var gotQuery map[string]string
	var gotKey string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/coins/markets", r.URL.Path)
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		gotKey = r.Header.Get("x-cg-demo-api-key")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(marketsPayload))
	}))
	defer srv.Close()

	c := NewClient(
		WithBaseURL(srv.URL),
		WithAPIKey("demo-key"),
		WithRequest(Request{VsCurrency: "eur", PerPage: 50}),
	)

	coins, err := c.FetchMarkets(context.Background())
	require.NoError(t, err)
	require.Len(t, coins, 2)

	assert.Equal(t, "eur", gotQuery["vs_currency"])
	assert.Equal(t, DefaultOrder, gotQuery["order"])
	assert.Equal(t, "50", gotQuery["per_page"])
	assert.Equal(t, "1", gotQuery["page"])
	assert.Equal(t, "false", gotQuery["sparkline"])
	assert.Equal(t, "1h,24h", gotQuery["price_change_percentage"])
	assert.Equal(t, "demo-key", gotKey)

	x := coins[0]
	assert.Equal(t, "coinx", x.ID)
	assert.Equal(t, "CX", x.Ticker())
	assert.True(t, x.MarketCap.Valid)
	assert.Equal(t, "5000000", x.MarketCap.Decimal.String())
	assert.Equal(t, "0.001234", x.CurrentPrice.Decimal.String())
	assert.Equal(t, "15", x.PriceChange1h.Decimal.String())
	assert.Equal(t, "-3.2", x.PriceChange24h.Decimal.String())
	require.NotNil(t, x.MarketCapRank)
	assert.Equal(t, 812, *x.MarketCapRank)
	require.NotNil(t, x.LastUpdated)

	f := coins[1]
	assert.Equal(t, "fresh", f.ID)
	assert.True(t, f.CurrentPrice.Valid)
	assert.Equal(t, "0.000015", f.CurrentPrice.Decimal.String())
	assert.False(t, f.MarketCap.Valid, "null market cap must stay absent")
	assert.False(t, f.TotalVolume.Valid, "missing volume must stay absent")
	assert.False(t, f.PriceChange1h.Valid)
	assert.Nil(t, f.MarketCapRank)
}

func TestFetchMarkets_UpstreamStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"status":{"error_code":429}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewClient(WithBaseURL(srv.URL)).FetchMarkets(context.Background())
	require.Error(t, err)

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, KindUpstreamStatus, fe.Kind)
	assert.Equal(t, http.StatusTooManyRequests, fe.StatusCode)
	assert.Contains(t, err.Error(), "429")
}

func TestFetchMarkets_Decode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"not": "a list"`))
	}))
	defer srv.Close()

	_, err := NewClient(WithBaseURL(srv.URL)).FetchMarkets(context.Background())

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, KindDecode, fe.Kind)
}

func TestFetchMarkets_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(WithBaseURL(srv.URL), WithTimeout(50*time.Millisecond))
	_, err := c.FetchMarkets(context.Background())

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, KindTimeout, fe.Kind)
}

func TestFetchMarkets_ContextDeadline(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewClient(WithBaseURL(srv.URL)).FetchMarkets(ctx)

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, KindTimeout, fe.Kind)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestFetchMarkets_Transport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL
	srv.Close()

	_, err := NewClient(WithBaseURL(base)).FetchMarkets(context.Background())

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, KindTransport, fe.Kind)
}
