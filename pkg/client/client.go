// Package client is the Go SDK for the rockwatch REST API. It carries the
// session for the caller: Login establishes it, every request injects the
// bearer token when one is held, and any 401 tears the session down through
// the session manager so the expiry hook fires once.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rockwatchstack/rockwatch/internal/models"
	"github.com/rockwatchstack/rockwatch/internal/pipeline"
	"github.com/rockwatchstack/rockwatch/internal/session"
)

const requestTimeout = 10 * time.Second

// APIError is a non-2xx response from the service.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.StatusCode, e.Message)
}

// Client talks to one rockwatch deployment. Requests never retry; callers
// decide their own retry policy.
type Client struct {
	baseURL string
	http    *http.Client
	session *session.Manager
}

// Option adjusts client construction.
type Option func(*Client)

// WithHTTPClient substitutes the underlying transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithSession attaches an externally-owned session manager.
func WithSession(m *session.Manager) Option {
	return func(c *Client) { c.session = m }
}

// New constructs a client for the given base URL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if _, err := url.Parse(baseURL); err != nil || baseURL == "" {
		return nil, fmt.Errorf("invalid base url %q", baseURL)
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: requestTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.session == nil {
		c.session = session.NewManager(nil, nil)
	}
	return c, nil
}

// Session exposes the session manager (for hooking expiry or inspection).
func (c *Client) Session() *session.Manager { return c.session }

// LoginResult is the login response payload.
type LoginResult struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	User        models.User `json:"user"`
}

// Login authenticates and establishes the session.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	var out LoginResult
	err := c.do(ctx, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &out)
	if err != nil {
		return LoginResult{}, err
	}
	if err := c.session.Set(out.AccessToken, out.User); err != nil {
		return LoginResult{}, fmt.Errorf("persist session: %w", err)
	}
	return out, nil
}

// Logout tells the server and clears the session without the expiry hook.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
	c.session.Clear()
	return err
}

// Me fetches the authenticated account.
func (c *Client) Me(ctx context.Context) (models.User, error) {
	var u models.User
	err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &u)
	return u, err
}

// Health checks service liveness; no authentication required.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// DashboardStats fetches the headline dashboard numbers.
func (c *Client) DashboardStats(ctx context.Context) (models.DashboardStats, error) {
	var stats models.DashboardStats
	err := c.do(ctx, http.MethodGet, "/api/dashboard/stats", nil, &stats)
	return stats, err
}

// Sites lists all monitored sites.
func (c *Client) Sites(ctx context.Context) ([]models.Site, error) {
	var sites []models.Site
	err := c.do(ctx, http.MethodGet, "/sites", nil, &sites)
	return sites, err
}

// Sensors lists sensors, optionally filtered by site and status.
func (c *Client) Sensors(ctx context.Context, siteID, status string) ([]models.Sensor, error) {
	q := url.Values{}
	if siteID != "" {
		q.Set("site_id", siteID)
	}
	if status != "" {
		q.Set("status", status)
	}
	var sensors []models.Sensor
	err := c.do(ctx, http.MethodGet, withQuery("/sensors", q), nil, &sensors)
	return sensors, err
}

// Predictions lists predictions filtered by window and risk level.
func (c *Client) Predictions(ctx context.Context, siteID, window, riskLevel string) ([]models.Prediction, error) {
	q := url.Values{}
	if siteID != "" {
		q.Set("site_id", siteID)
	}
	if window != "" {
		q.Set("window", window)
	}
	if riskLevel != "" {
		q.Set("risk_level", riskLevel)
	}
	var preds []models.Prediction
	err := c.do(ctx, http.MethodGet, withQuery("/predictions", q), nil, &preds)
	return preds, err
}

// Alerts lists alerts filtered by window and severity.
func (c *Client) Alerts(ctx context.Context, window, severity string) ([]models.Alert, error) {
	q := url.Values{}
	if window != "" {
		q.Set("window", window)
	}
	if severity != "" {
		q.Set("severity", severity)
	}
	var alerts []models.Alert
	err := c.do(ctx, http.MethodGet, withQuery("/api/alerts", q), nil, &alerts)
	return alerts, err
}

// AcknowledgeAlert marks an alert acknowledged.
func (c *Client) AcknowledgeAlert(ctx context.Context, id string) (models.Alert, error) {
	var alert models.Alert
	err := c.do(ctx, http.MethodPost, "/api/alerts/"+url.PathEscape(id)+"/acknowledge", nil, &alert)
	return alert, err
}

// StartTraining launches a simulated training job.
func (c *Client) StartTraining(ctx context.Context, cfg pipeline.TrainingConfig) (pipeline.Job, error) {
	var job pipeline.Job
	err := c.do(ctx, http.MethodPost, "/training/start", cfg, &job)
	return job, err
}

// TrainingStatus fetches one training job.
func (c *Client) TrainingStatus(ctx context.Context, id string) (pipeline.Job, error) {
	var job pipeline.Job
	err := c.do(ctx, http.MethodGet, "/training/status/"+url.PathEscape(id), nil, &job)
	return job, err
}

// do performs one request. A token is attached only when the session holds
// one; a 401 invalidates the session before the error is returned.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.session.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		c.session.Invalidate()
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Message: readMessage(resp.Body)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func withQuery(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}

func readMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(data) == 0 {
		return "request failed"
	}
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	return strings.TrimSpace(string(data))
}
