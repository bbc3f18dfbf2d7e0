package finnhub

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"PriceSim/internal/domain/models"
	xhttp "PriceSim/pkg/http"
)

// ErrNoQuote is returned when the provider has no usable price for a symbol.
var ErrNoQuote = errors.New("finnhub: no quote")

const DefaultBaseURL = "https://finnhub.io/api/v1"

// Option configures Client.
type Option func(*Client)

// WithHTTPClient replaces the transport client.
func WithHTTPClient(hc *xhttp.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithClock overrides the time source used to stamp quotes.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// Client fetches spot quotes from the Finnhub REST API.
type Client struct {
	apiKey  string
	baseURL string
	http    *xhttp.Client
	now     func() time.Time
}

// New creates a quote source. An empty baseURL uses the public endpoint.
func New(apiKey, baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = xhttp.NewClient(xhttp.WithTimeout(10 * time.Second))
	}
	return c
}

type quoteResponse struct {
	C  float64 `json:"c"`
	H  float64 `json:"h"`
	L  float64 `json:"l"`
	O  float64 `json:"o"`
	PC float64 `json:"pc"`
}

// Quote fetches the current quote for symbol. The quote is stamped with the
// collection time rather than the provider's last-trade time, so a closed
// market still advances the window.
func (c *Client) Quote(ctx context.Context, symbol string) (models.Quote, error) {
	var resp quoteResponse
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         c.baseURL + "/quote",
		Headers:     map[string]string{"X-Finnhub-Token": c.apiKey},
		QueryParams: map[string][]string{"symbol": {symbol}},
	}, &resp)
	if err != nil {
		return models.Quote{}, fmt.Errorf("finnhub quote %s: %w", symbol, err)
	}
	if resp.C <= 0 {
		return models.Quote{}, fmt.Errorf("%w for %s", ErrNoQuote, symbol)
	}

	return models.Quote{
		AssetID:       symbol,
		ObservedAt:    c.now().Unix(),
		Price:         resp.C,
		High:          orPrice(resp.H, resp.C),
		Low:           orPrice(resp.L, resp.C),
		Open:          orPrice(resp.O, resp.C),
		PreviousClose: orPrice(resp.PC, resp.C),
	}, nil
}

func orPrice(v, price float64) float64 {
	if v > 0 {
		return v
	}
	return price
}
