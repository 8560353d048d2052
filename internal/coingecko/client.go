// Package coingecko fetches market snapshots from the CoinGecko REST API.
package coingecko

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/web3guy0/coinwatch/internal/market"
)

// Defaults match the public /coins/markets endpoint.
const (
	DefaultBaseURL  = "https://api.coingecko.com/api/v3"
	DefaultTimeout  = 20 * time.Second
	DefaultCurrency = "usd"
	DefaultOrder    = "volume_desc"
	DefaultPerPage  = 100

	userAgent = "coinwatch/1.0"
)

// Request is the fixed shape of each snapshot query.
type Request struct {
	VsCurrency string
	Order      string
	PerPage    int
	Page       int
}

// Client fetches one page of /coins/markets per call. It never retries.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	req        Request
}

// Option configures Client.
type Option func(*Client)

// WithBaseURL overrides the API root.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithAPIKey sets the demo API key header.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRequest sets the query shape. Zero fields keep their defaults.
func WithRequest(r Request) Option {
	return func(c *Client) {
		if r.VsCurrency != "" {
			c.req.VsCurrency = r.VsCurrency
		}
		if r.Order != "" {
			c.req.Order = r.Order
		}
		if r.PerPage > 0 {
			c.req.PerPage = r.PerPage
		}
		if r.Page > 0 {
			c.req.Page = r.Page
		}
	}
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a CoinGecko client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		baseURL:    DefaultBaseURL,
		req: Request{
			VsCurrency: DefaultCurrency,
			Order:      DefaultOrder,
			PerPage:    DefaultPerPage,
			Page:       1,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchMarkets returns the snapshot in the order the API returned it.
func (c *Client) FetchMarkets(ctx context.Context) ([]market.Coin, error) {
	endpoint, err := c.marketsURL()
	if err != nil {
		return nil, &FetchError{Kind: KindTransport, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &FetchError{Kind: KindTransport, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if c.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportErr(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &FetchError{
			Kind:       KindUpstreamStatus,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s: %s", resp.Status, body),
		}
	}

	var coins []market.Coin
	if err := json.NewDecoder(resp.Body).Decode(&coins); err != nil {
		// A deadline hit while streaming the body is still a timeout
		if fe := classifyTransportErr(err); fe.Kind == KindTimeout {
			return nil, fe
		}
		return nil, &FetchError{Kind: KindDecode, Err: err}
	}

	out := coins[:0]
	for _, coin := range coins {
		if coin.ID == "" {
			log.Debug().Str("symbol", coin.Symbol).Msg("CoinGecko record without id, skipped")
			continue
		}
		out = append(out, coin)
	}

	log.Debug().Int("count", len(out)).Msg("📊 CoinGecko snapshot fetched")
	return out, nil
}

func (c *Client) marketsURL() (string, error) {
	u, err := url.Parse(c.baseURL + "/coins/markets")
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	q := u.Query()
	q.Set("vs_currency", c.req.VsCurrency)
	q.Set("order", c.req.Order)
	q.Set("per_page", strconv.Itoa(c.req.PerPage))
	q.Set("page", strconv.Itoa(c.req.Page))
	q.Set("sparkline", "false")
	q.Set("price_change_percentage", "1h,24h")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func classifyTransportErr(err error) *FetchError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &FetchError{Kind: KindTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &FetchError{Kind: KindTimeout, Err: err}
	}
	return &FetchError{Kind: KindTransport, Err: err}
}
