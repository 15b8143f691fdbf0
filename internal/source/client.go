package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"aha_collector/internal/domain"
	"aha_collector/internal/retry"
)

// ClientConfig holds the HTTP settings shared by the platform sources.
type ClientConfig struct {
	Timeout         time.Duration
	RequestInterval time.Duration
	UserAgent       string
	Retry           retry.Config
}

// Client performs paced, retried JSON GET requests.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
	retry      retry.Config
	logger     *slog.Logger
}

func NewClient(cfg ClientConfig, logger *slog.Logger) *Client {
	limit := rate.Inf
	if cfg.RequestInterval > 0 {
		limit = rate.Every(cfg.RequestInterval)
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter:   rate.NewLimiter(limit, 1),
		userAgent: cfg.UserAgent,
		retry:     cfg.Retry,
		logger:    logger,
	}
}

// GetJSON decodes the response of url into out. Failures that survive the
// retry policy are wrapped with domain.ErrNetwork.
func (c *Client) GetJSON(ctx context.Context, url string, out any) error {
	err := retry.Do(ctx, c.retry, c.logger, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return retry.Permanent(err)
		}
		return c.doRequest(ctx, url, out)
	})
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrNetwork, err)
	}
	return nil
}

func (c *Client) doRequest(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return retry.Permanent(fmt.Errorf("create request: %w", err))
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("unexpected status: %d", resp.StatusCode)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return err
		}
		return retry.Permanent(err)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
