// Package client provides a Go client for driving a remote outdial
// instance over its HTTP control surface.
//
// Usage:
//
//	c := client.New("https://dial.example.com",
//	    client.WithAuthToken("ok_..."),
//	)
//
//	res, err := c.StartCampaign(ctx, "cmp_01h2xcejqtf2nbrexx3vqjhp41")
//	status, err := c.CampaignStatus(ctx, "cmp_01h2xcejqtf2nbrexx3vqjhp41")
package client

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client is an HTTP client for the outdial control surface. It is safe
// for concurrent use.
type Client struct {
	http *resty.Client
}

// Option configures a Client.
type Option func(*Client)

// WithAuthToken sets a bearer token sent on every request.
func WithAuthToken(token string) Option {
	return func(c *Client) { c.http.SetAuthToken(token) }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.SetTimeout(d) }
}

// WithRetryCount enables transport-level retries for connection flakiness.
func WithRetryCount(n int) Option {
	return func(c *Client) { c.http.SetRetryCount(n) }
}

// New creates a Client against the given base URL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetHeader("Content-Type", "application/json"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is a non-2xx answer from the control surface.
type APIError struct {
	Code    int
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("outdial api: status %d", e.Code)
	}
	return fmt.Sprintf("outdial api: status %d: %s", e.Code, e.Message)
}

// NotFound reports whether the server answered 404.
func (e *APIError) NotFound() bool { return e.Code == 404 }

// StartResult confirms admission of a new campaign run.
type StartResult struct {
	ExecutionID string `json:"execution_id"`
	Status      string `json:"status"`
}

// Counters mirrors the run's progress counters.
type Counters struct {
	Total     int64 `json:"total"`
	Queued    int64 `json:"queued"`
	Inflight  int64 `json:"inflight"`
	Completed int64 `json:"completed"`
	Succeeded int64 `json:"succeeded"`
	Failed    int64 `json:"failed"`
}

// ExecutionStatus is the progress view of one campaign run.
type ExecutionStatus struct {
	CampaignID         string    `json:"campaign_id"`
	ExecutionID        string    `json:"execution_id,omitempty"`
	Status             string    `json:"status"`
	Counters           Counters  `json:"counters"`
	ProgressPercentage float64   `json:"progress_percentage"`
	StartedAt          time.Time `json:"started_at,omitempty"`
	UpdatedAt          time.Time `json:"updated_at,omitempty"`
}

// Stats aggregates the server's dispatch state.
type Stats struct {
	ActiveExecutions int               `json:"active_executions"`
	ActiveCalls      int               `json:"active_calls"`
	Executions       []ExecutionStatus `json:"executions"`
}

// Schedule is a registered recurring campaign start.
type Schedule struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	CampaignID string     `json:"campaign_id"`
	Schedule   string     `json:"schedule"`
	LastRunAt  *time.Time `json:"last_run_at,omitempty"`
	NextRunAt  *time.Time `json:"next_run_at,omitempty"`
	Enabled    bool       `json:"enabled"`
}

// StartCampaign begins a new run for the campaign.
func (c *Client) StartCampaign(ctx context.Context, campaignID string) (StartResult, error) {
	var out StartResult
	err := c.post(ctx, fmt.Sprintf("/v1/campaigns/%s/start", campaignID), nil, &out)
	return out, err
}

// PauseCampaign halts dispatch for a running campaign.
func (c *Client) PauseCampaign(ctx context.Context, campaignID string) error {
	return c.post(ctx, fmt.Sprintf("/v1/campaigns/%s/pause", campaignID), nil, nil)
}

// ResumeCampaign restarts a paused or degraded campaign.
func (c *Client) ResumeCampaign(ctx context.Context, campaignID string) error {
	return c.post(ctx, fmt.Sprintf("/v1/campaigns/%s/resume", campaignID), nil, nil)
}

// CancelCampaign terminates a campaign's run.
func (c *Client) CancelCampaign(ctx context.Context, campaignID string) error {
	return c.post(ctx, fmt.Sprintf("/v1/campaigns/%s/cancel", campaignID), nil, nil)
}

// CampaignStatus returns the progress of a campaign's run.
func (c *Client) CampaignStatus(ctx context.Context, campaignID string) (ExecutionStatus, error) {
	var out ExecutionStatus
	err := c.get(ctx, fmt.Sprintf("/v1/campaigns/%s/status", campaignID), &out)
	return out, err
}

// Stats returns aggregate dispatch statistics.
func (c *Client) Stats(ctx context.Context) (Stats, error) {
	var out Stats
	err := c.get(ctx, "/v1/stats", &out)
	return out, err
}

type createScheduleBody struct {
	Name       string `json:"name"`
	CampaignID string `json:"campaign_id"`
	Schedule   string `json:"schedule"`
}

// CreateSchedule registers a recurring start for the campaign. expr is a
// standard 5-field cron expression or a descriptor like "@every 24h".
func (c *Client) CreateSchedule(ctx context.Context, name, expr, campaignID string) (Schedule, error) {
	var out Schedule
	err := c.post(ctx, "/v1/schedules", createScheduleBody{
		Name:       name,
		CampaignID: campaignID,
		Schedule:   expr,
	}, &out)
	return out, err
}

// DeleteSchedule removes a schedule entry.
func (c *Client) DeleteSchedule(ctx context.Context, scheduleID string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetError(&APIError{}).
		Delete("/v1/schedules/" + scheduleID)
	return c.finish(resp, err)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req := c.http.R().SetContext(ctx).SetError(&APIError{})
	if out != nil {
		req.SetResult(out)
	}
	resp, err := req.Get(path)
	return c.finish(resp, err)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	req := c.http.R().SetContext(ctx).SetError(&APIError{})
	if body != nil {
		req.SetBody(body)
	}
	if out != nil {
		req.SetResult(out)
	}
	resp, err := req.Post(path)
	return c.finish(resp, err)
}

func (c *Client) finish(resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("outdial api: %w", err)
	}
	if resp.IsError() {
		apiErr, ok := resp.Error().(*APIError)
		if !ok {
			apiErr = &APIError{}
		}
		apiErr.Code = resp.StatusCode()
		return apiErr
	}
	return nil
}
