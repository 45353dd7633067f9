// Package rest talks to the expense REST backend. It is the default
// ledger.Store of the web app.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"kharcha/internal/core"
	"kharcha/internal/ledger"
	applog "kharcha/internal/log"
	"kharcha/internal/metrics"
	"kharcha/internal/middleware/trace"
)

const (
	DefaultTimeout   = 10 * time.Second
	DefaultRateLimit = 10 // requests per second

	maxBodyBytes = 4 << 20

	pathExpenses    = "/api/expense/"
	pathAddExpense  = "/api/expense/addExpense"
	pathDelete      = "/api/expense/deleteExpense/"
	pathByDay       = "/api/expense/getExpensesByDateAndEmail/"
	pathByMonth     = "/api/expense/getExpensesByMonthAndEmail/"
	pathByUser      = "/api/expense/getExpensesByEmail/"
	pathAddUser     = "/api/user/addUser"
	upstreamService = "expense_api"
)

// Client implements ledger.Store over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *applog.Logger
	timeout    time.Duration
}

var _ ledger.Store = (*Client)(nil)

// ClientOption configures the client
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger
func WithLogger(logger *applog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger.WithComponent(applog.ComponentLedger)
	}
}

// WithRateLimit sets the outbound rate limit in requests per second
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
		}
	}
}

// WithTimeout sets the HTTP timeout. It applies to a copy of any client
// passed with WithHTTPClient, whatever the option order.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// NewClient creates a client for the API rooted at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  applog.Discard(applog.ComponentLedger),
	}

	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}

	return c
}

// APIError is a non-success response from the backend.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("expense API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// ListByUser fetches every expense of the user.
func (c *Client) ListByUser(ctx context.Context, email string) (ledger.Batch, error) {
	return c.list(ctx, email, pathByUser+url.PathEscape(email))
}

// ListByDay fetches the user's expenses dated on day. The backend is asked
// with an ISO date; a 404 means the day has no expenses.
func (c *Client) ListByDay(ctx context.Context, email string, day core.Date) (ledger.Batch, error) {
	path := pathByDay + core.FormatISODate(day) + "/" + url.PathEscape(email)
	return c.list(ctx, email, path)
}

// ListByMonth fetches the user's expenses in year/month; a 404 means the
// month has no expenses.
func (c *Client) ListByMonth(ctx context.Context, email string, year, month int) (ledger.Batch, error) {
	if month < 1 || month > 12 {
		return ledger.Batch{}, fmt.Errorf("month %d out of range", month)
	}
	path := pathByMonth + strconv.Itoa(month) + "/" + strconv.Itoa(year) + "/" + url.PathEscape(email)
	return c.list(ctx, email, path)
}

func (c *Client) list(ctx context.Context, email, path string) (ledger.Batch, error) {
	body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		if IsNotFound(err) {
			return ledger.Batch{}, nil
		}
		return ledger.Batch{}, err
	}

	batch, err := decodeBatch(body)
	if err != nil {
		return ledger.Batch{}, fmt.Errorf("failed to decode response from %s: %w", path, err)
	}

	if len(batch.Rejected) > 0 {
		for _, r := range batch.Rejected {
			metrics.RecordRejected(r.Reason())
		}
		applog.NewStructuredLogger(c.logger).LogRejected(ctx, email, batch.Rejected)
	}
	return batch, nil
}

// Add posts a new expense and returns the id the backend reports, which may
// be empty when the backend does not echo the record.
func (c *Client) Add(ctx context.Context, e core.NewExpense) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	body, err := c.do(ctx, http.MethodPost, pathAddExpense, EncodeNewExpense(e))
	if err != nil {
		return "", err
	}
	return decodeCreatedID(body), nil
}

// Delete removes the expense with id.
func (c *Client) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("delete: empty id: %w", ledger.ErrNotFound)
	}
	_, err := c.do(ctx, http.MethodDelete, pathDelete+url.PathEscape(id), nil)
	if IsNotFound(err) {
		return fmt.Errorf("delete %s: %w", id, ledger.ErrNotFound)
	}
	return err
}

// SyncUser registers the signed-in user with the backend.
func (c *Client) SyncUser(ctx context.Context, id ledger.Identity) error {
	user := EncodeUser(id)
	if user.Email == "" {
		return core.ErrEmptyEmail
	}
	_, err := c.do(ctx, http.MethodPost, pathAddUser, user)
	return err
}

// Ping checks that the backend answers on its expense root.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, pathExpenses, nil)
	return err
}

// do performs a rate-limited request and returns the body of a 2xx response.
func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	var reqBody io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if id := trace.GetRequestID(ctx); id != "" {
		req.Header.Set(trace.HeaderRequestID, id)
	}

	c.logger.DebugContext(ctx, "expense API request", "method", method, applog.FieldEndpoint, path)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ObserveUpstream(upstreamService, "error", time.Since(start))
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()
	metrics.ObserveUpstream(upstreamService, strconv.Itoa(resp.StatusCode), time.Since(start))

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
			Endpoint:   path,
		}
	}
	return body, nil
}
