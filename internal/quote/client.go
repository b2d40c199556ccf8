package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rampforge/sellbot/core/logger"
	"github.com/rampforge/sellbot/internal/domain"
)

// Quoter estimates the fiat payout for a sell amount. Implementations must
// be safe to fail: the wizard omits the estimate rather than blocking.
type Quoter interface {
	Estimate(ctx context.Context, network string, amountUnits int64) (Estimate, error)
}

// Estimate is a fiat payout quote for a crypto amount.
type Estimate struct {
	Fiat     string // formatted fiat amount
	Currency string // ISO code, e.g. NGN
	Rate     string // fiat per whole token
}

// Config holds quote endpoint settings.
type Config struct {
	BaseURL        string `yaml:"base_url" envconfig:"QUOTE_BASE_URL"`
	Currency       string `yaml:"currency" envconfig:"QUOTE_CURRENCY"`
	TimeoutSeconds int    `yaml:"timeout_seconds" envconfig:"QUOTE_TIMEOUT_SECONDS"`
}

// Client fetches quotes from a rates endpoint:
// GET <base>/rates?network=..&amount=.. returning
// {"fiat": "16500.00", "currency": "NGN", "rate": "1650.00"}.
type Client struct {
	baseURL  string
	currency string
	http     *http.Client
}

// NewClient builds a quote client. An empty base URL disables quoting.
func NewClient(cfg Config) *Client {
	timeout := 5 * time.Second
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	currency := cfg.Currency
	if currency == "" {
		currency = "NGN"
	}
	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		currency: currency,
		http:     &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether a rates endpoint is configured.
func (c *Client) Enabled() bool { return c.baseURL != "" }

// Estimate asks the rates endpoint for a payout quote. The amount is sent
// in whole tokens since rate feeds quote per token, not per smallest unit.
func (c *Client) Estimate(ctx context.Context, network string, amountUnits int64) (Estimate, error) {
	if !c.Enabled() {
		return Estimate{}, fmt.Errorf("quote: no rates endpoint configured")
	}

	n, ok := domain.NetworkByName(network)
	if !ok {
		return Estimate{}, fmt.Errorf("quote: unknown network %q", network)
	}

	q := url.Values{}
	q.Set("network", n.Name)
	q.Set("amount", domain.FormatAmount(amountUnits, n.Decimals))
	q.Set("currency", c.currency)
	endpoint := c.baseURL + "/rates?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Estimate{}, fmt.Errorf("quote: build request: %w", err)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		logger.SVCQuote.Warn("quote fetch failed",
			slog.String("event", "quote.estimate"),
			slog.String("network", n.Name),
			slog.Duration("duration", logger.Took(start)),
			slog.String("err", err.Error()),
		)
		return Estimate{}, fmt.Errorf("quote: fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return Estimate{}, fmt.Errorf("quote: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Estimate{}, fmt.Errorf("quote: rates status %d", resp.StatusCode)
	}

	var parsed struct {
		Fiat     string `json:"fiat"`
		Currency string `json:"currency"`
		Rate     string `json:"rate"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Estimate{}, fmt.Errorf("quote: decode response: %w", err)
	}
	if parsed.Fiat == "" {
		return Estimate{}, fmt.Errorf("quote: empty fiat amount")
	}
	if _, err := strconv.ParseFloat(parsed.Fiat, 64); err != nil {
		return Estimate{}, fmt.Errorf("quote: malformed fiat amount %q", parsed.Fiat)
	}
	if parsed.Currency == "" {
		parsed.Currency = c.currency
	}

	return Estimate{Fiat: parsed.Fiat, Currency: parsed.Currency, Rate: parsed.Rate}, nil
}
