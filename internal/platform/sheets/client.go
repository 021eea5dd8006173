package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

// ErrUnavailable reports that the sheet backend could not be reached or
// answered with something unusable.
var ErrUnavailable = errors.New("sheet backend unavailable")

type Client struct {
	httpClient *http.Client
	userAgent  string
	baseURL    string
	limiter    *rate.Limiter
}

// NewClient returns a client for a deployed sheet script. A non-positive rps
// disables throttling. An empty baseURL yields a client whose every call fails
// with ErrUnavailable, which lets callers run on their fallback data.
func NewClient(baseURL string, rps float64, timeout time.Duration) *Client {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		userAgent: "samplebook/1.0",
		baseURL:   baseURL,
		limiter:   rate.NewLimiter(limit, 1),
	}
}

// BaseURL reports the script endpoint this client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// writeRequest matches the script's doPost payload.
type writeRequest struct {
	Sheet string         `json:"sheet"`
	Data  map[string]any `json:"data"`
}

// writeResponse matches the script's doPost answer.
type writeResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Rows dumps every data row of the named sheet keyed by its header row.
func (c *Client) Rows(ctx context.Context, sheet string) ([]Row, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("%w: endpoint not configured", ErrUnavailable)
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	q := u.Query()
	q.Set("sheet", sheet)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}

	var rows []Row
	if err := c.do(req, &rows); err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	return rows, nil
}

// Append writes one row to the named sheet. Known sheets are projected onto
// their header schema first, the same way the script lays out a new row.
func (c *Client) Append(ctx context.Context, sheet string, data map[string]any) error {
	if c.baseURL == "" {
		return fmt.Errorf("%w: endpoint not configured", ErrUnavailable)
	}

	body, err := json.Marshal(writeRequest{Sheet: sheet, Data: Project(sheet, data)})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	var res writeResponse
	if err := c.do(req, &res); err != nil {
		return fmt.Errorf("append to sheet %s: %w", sheet, err)
	}
	if res.Error != "" {
		return fmt.Errorf("append to sheet %s: %w: %s", sheet, ErrUnavailable, res.Error)
	}
	if !res.Success {
		return fmt.Errorf("append to sheet %s: %w: not acknowledged", sheet, ErrUnavailable)
	}
	return nil
}

func (c *Client) do(req *http.Request, target any) error {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: unexpected status code: %d", ErrUnavailable, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	return nil
}
