// Package polymarket provides access to the Polymarket Gamma API.
package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// Record is a single market row as returned by the Gamma API. The upstream
// schema is not fixed: fields may be absent, and numeric fields are sometimes
// encoded as strings, so every access goes through a fallible lookup.
type Record map[string]any

// APIError represents a non-2xx response from the Gamma API
type APIError struct {
	StatusCode int
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gamma api error %d: %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Client provides access to the Polymarket Gamma API
type Client struct {
	gammaAPIURL string
	httpClient  *http.Client
	log         zerolog.Logger

	maxRetries     int
	retryDelayBase time.Duration
}

// ClientConfig tunes retry behavior and connection pooling.
type ClientConfig struct {
	MaxRetries     int
	RetryDelayBase time.Duration
}

// NewClient creates a new Polymarket client
func NewClient(gammaAPIURL string, timeout time.Duration, cfg ClientConfig, log zerolog.Logger) *Client {
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelayBase <= 0 {
		cfg.RetryDelayBase = time.Second
	}
	return &Client{
		gammaAPIURL: gammaAPIURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log:            log,
		maxRetries:     cfg.MaxRetries,
		retryDelayBase: cfg.RetryDelayBase,
	}
}

// FetchOptions bounds a paginated market fetch. Order and Ascending are
// passed through to the endpoint verbatim and never validated here.
type FetchOptions struct {
	MaxMarkets int
	PageLimit  int
	Order      string
	Ascending  bool
}

// FetchMarkets retrieves up to MaxMarkets market rows from the Gamma
// /markets endpoint using offset/limit pagination. Pagination stops when the
// cap is reached, when a page is empty or not an array, or when a page comes
// back shorter than the requested limit. Any non-2xx response fails the
// whole fetch; no partial result is returned.
func (c *Client) FetchMarkets(ctx context.Context, opts FetchOptions) ([]Record, error) {
	if opts.MaxMarkets < 1 {
		return nil, fmt.Errorf("max markets must be at least 1, got %d", opts.MaxMarkets)
	}
	if opts.PageLimit < 1 {
		return nil, fmt.Errorf("page limit must be at least 1, got %d", opts.PageLimit)
	}

	out := make([]Record, 0, opts.MaxMarkets)
	offset := 0

	for len(out) < opts.MaxMarkets {
		limit := opts.PageLimit
		if remaining := opts.MaxMarkets - len(out); remaining < limit {
			limit = remaining
		}

		page, err := c.fetchPage(ctx, limit, offset, opts.Order, opts.Ascending)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}

		out = append(out, page...)

		// Fewer rows than requested signals the end of the list.
		if len(page) < limit {
			break
		}

		// Offset advances by the requested limit, not the returned count.
		offset += limit
	}

	c.log.Debug().Int("markets", len(out)).Msg("fetched markets")
	return out, nil
}

func (c *Client) fetchPage(ctx context.Context, limit, offset int, order string, ascending bool) ([]Record, error) {
	u, err := url.Parse(c.gammaAPIURL + "/markets")
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	q := u.Query()
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	q.Set("order", order)
	q.Set("ascending", strconv.FormatBool(ascending))
	u.RawQuery = q.Encode()

	body, err := c.doRequest(ctx, u.String())
	if err != nil {
		return nil, err
	}

	var page []Record
	if err := json.Unmarshal(body, &page); err != nil {
		if json.Valid(body) {
			// Valid JSON that is not an array of markets ends pagination.
			return nil, nil
		}
		return nil, fmt.Errorf("failed to decode markets page: %w", err)
	}
	return page, nil
}

// doRequest performs a GET with retry on transient failures. Server errors
// (5xx) and network errors are retried with linear backoff; any other
// non-2xx status fails immediately with an APIError.
func (c *Client) doRequest(ctx context.Context, urlStr string) ([]byte, error) {
	var lastErr error

	for i := 0; i < c.maxRetries; i++ {
		if i > 0 {
			delay := time.Duration(i) * c.retryDelayBase
			c.log.Debug().Int("attempt", i+1).Dur("delay", delay).Msg("retrying request")
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read response: %w", err)
			continue
		}

		if resp.StatusCode >= 500 {
			lastErr = &APIError{StatusCode: resp.StatusCode, Body: body}
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, &APIError{StatusCode: resp.StatusCode, Body: body}
		}

		return body, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
