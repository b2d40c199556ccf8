package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rampforge/sellbot/core/logger"
	"github.com/rampforge/sellbot/core/telegram/netutil"
)

// Resolver checks that a bank account exists and returns its holder name.
type Resolver interface {
	ResolveAccount(ctx context.Context, accountNumber, bankCode string) (string, error)
}

// Config holds verification endpoint settings.
type Config struct {
	BaseURL        string `yaml:"base_url" envconfig:"VERIFY_BASE_URL"`
	Secret         string `yaml:"secret" envconfig:"VERIFY_SECRET"`
	TimeoutSeconds int    `yaml:"timeout_seconds" envconfig:"VERIFY_TIMEOUT_SECONDS"`
}

// Client resolves accounts against a Paystack-shaped HTTP endpoint:
// GET <base>/bank/resolve?account_number=..&bank_code=.. returning
// {"status": true, "data": {"account_name": "..."}}.
type Client struct {
	baseURL string
	secret  string
	http    *http.Client
}

// NewClient builds a resolver client with a bounded request timeout.
func NewClient(cfg Config) *Client {
	timeout := 10 * time.Second
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		secret:  cfg.Secret,
		http:    &http.Client{Timeout: timeout},
	}
}

type resolveResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AccountName string `json:"account_name"`
	} `json:"data"`
}

// ResolveAccount looks up the holder name for accountNumber at bankCode.
func (c *Client) ResolveAccount(ctx context.Context, accountNumber, bankCode string) (string, error) {
	if c.baseURL == "" {
		return "", fmt.Errorf("verify: no resolver endpoint configured")
	}

	q := url.Values{}
	q.Set("account_number", accountNumber)
	q.Set("bank_code", bankCode)
	endpoint := c.baseURL + "/bank/resolve?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("verify: build request: %w", err)
	}
	if c.secret != "" {
		req.Header.Set("Authorization", "Bearer "+c.secret)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		logger.SVCVerify.Warn("account resolve failed",
			slog.String("event", "verify.resolve"),
			slog.String("bank_code", bankCode),
			slog.Bool("retryable", netutil.ShouldRetry(err)),
			slog.Duration("duration", logger.Took(start)),
			slog.String("err", err.Error()),
		)
		return "", fmt.Errorf("verify: resolve request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return "", fmt.Errorf("verify: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("verify: resolver status %d", resp.StatusCode)
	}

	var parsed resolveResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("verify: decode response: %w", err)
	}
	if !parsed.Status || parsed.Data.AccountName == "" {
		msg := parsed.Message
		if msg == "" {
			msg = "account could not be resolved"
		}
		return "", fmt.Errorf("verify: %s", msg)
	}

	logger.SVCVerify.Info("account resolved",
		slog.String("event", "verify.resolve"),
		slog.String("bank_code", bankCode),
		slog.Duration("duration", logger.Took(start)),
	)
	return parsed.Data.AccountName, nil
}
