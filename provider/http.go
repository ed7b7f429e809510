package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// HTTPClient is a Provider implementation over the provider's REST API.
type HTTPClient struct {
	client *resty.Client
	name   string
}

// HTTPOption configures an HTTPClient.
type HTTPOption func(*HTTPClient)

// WithName sets the provider name reported by Name().
func WithName(name string) HTTPOption {
	return func(c *HTTPClient) { c.name = name }
}

// WithRequestTimeout sets the per-request timeout on the underlying client.
func WithRequestTimeout(d time.Duration) HTTPOption {
	return func(c *HTTPClient) { c.client.SetTimeout(d) }
}

// WithRetryCount enables transport-level retries on the underlying client.
// The engine's retry coordinator handles placement retries; this only
// covers connection-level flakiness and is off by default.
func WithRetryCount(n int) HTTPOption {
	return func(c *HTTPClient) { c.client.SetRetryCount(n) }
}

// NewHTTP creates an HTTP provider client.
func NewHTTP(baseURL, apiKey string, opts ...HTTPOption) *HTTPClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetAuthToken(apiKey).
		SetHeader("Content-Type", "application/json")

	c := &HTTPClient{
		client: client,
		name:   "http",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the configured provider name.
func (c *HTTPClient) Name() string { return c.name }

type customerBody struct {
	Number string `json:"number"`
	Name   string `json:"name,omitempty"`
}

type placeCallBody struct {
	AssistantID string            `json:"assistantId"`
	Customer    customerBody      `json:"customer"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type callBody struct {
	ID          string     `json:"id"`
	Status      string     `json:"status"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	EndedAt     *time.Time `json:"endedAt,omitempty"`
	EndedReason string     `json:"endedReason,omitempty"`
}

type errorBody struct {
	Message string `json:"message"`
}

// PlaceCall submits one outbound call via POST /call.
func (c *HTTPClient) PlaceCall(ctx context.Context, req PlaceCallRequest) (PlaceCallResult, error) {
	var out callBody
	var apiErr errorBody

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(placeCallBody{
			AssistantID: req.AssistantID,
			Customer:    customerBody{Number: req.PhoneNumber, Name: req.ContactName},
			Metadata:    req.Metadata,
		}).
		SetResult(&out).
		SetError(&apiErr).
		Post("/call")
	if err != nil {
		// Transport-level failure: the provider was never reached, or the
		// request timed out. Either way the context error (if any) must
		// survive for classification.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return PlaceCallResult{}, fmt.Errorf("place call: %w", ctxErr)
		}
		return PlaceCallResult{}, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	if resp.IsError() {
		return PlaceCallResult{}, &StatusError{Code: resp.StatusCode(), Reason: apiErr.Message}
	}

	if out.ID == "" {
		return PlaceCallResult{}, fmt.Errorf("%w: placement response missing call id", ErrProviderUnavailable)
	}

	return PlaceCallResult{ProviderCallID: out.ID}, nil
}

// GetCall returns the current status of a placed call via GET /call/{id}.
func (c *HTTPClient) GetCall(ctx context.Context, providerCallID string) (CallStatus, error) {
	var out callBody
	var apiErr errorBody

	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&apiErr).
		Get("/call/" + providerCallID)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return CallStatus{}, fmt.Errorf("get call: %w", ctxErr)
		}
		return CallStatus{}, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	if resp.IsError() {
		return CallStatus{}, &StatusError{Code: resp.StatusCode(), Reason: apiErr.Message}
	}

	status := CallStatus{
		ProviderCallID: out.ID,
		Ended:          out.Status == "ended",
		EndedAt:        out.EndedAt,
		EndReason:      out.EndedReason,
	}
	if out.StartedAt != nil && out.EndedAt != nil {
		status.DurationSeconds = int(out.EndedAt.Sub(*out.StartedAt) / time.Second)
	}
	return status, nil
}
