// Package platform is the HTTP client for the remote assessment platform.
// The import pipeline consumes exactly two calls: the bulk invitation
// creation endpoint and the notification capability query. Both are opaque
// request/response contracts; their server-side behavior is not ours.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ignite/participant-importer/internal/pkg/httpretry"
)

// Client is the assessment platform API client. Capability queries go
// through a retrying client (idempotent reads); bulk submissions use the
// plain client because a failed chunk must never be resubmitted implicitly.
type Client struct {
	baseURL    string
	apiKey     string
	bulkClient httpretry.HTTPDoer
	readClient httpretry.HTTPDoer
}

// NewClient creates a platform client from config.
func NewClient(cfg Config) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	plain := &http.Client{Timeout: timeout}
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		bulkClient: plain,
		readClient: httpretry.NewRetryClient(plain, 3),
	}
}

// SetHTTPClient replaces both underlying HTTP clients (useful for testing).
func (c *Client) SetHTTPClient(client httpretry.HTTPDoer) {
	c.bulkClient = client
	c.readClient = client
}

// doRequest performs an authenticated request and returns the response body.
// Any non-2xx status is an error.
func (c *Client) doRequest(ctx context.Context, doer httpretry.HTTPDoer, method, endpoint string, body interface{}) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := doer.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}

// CreateInvitations submits one chunk of participants for the given
// assessment. Per-item failures come back inside the response; only a
// transport-level or non-2xx outcome is returned as an error.
func (c *Client) CreateInvitations(ctx context.Context, assessmentID string, participants []Participant, notify bool) (*BulkCreateResponse, error) {
	endpoint := fmt.Sprintf("/api/assessments/%s/invitations/bulk", assessmentID)
	reqBody := BulkCreateRequest{
		AssessmentID: assessmentID,
		Participants: participants,
		Notify:       notify,
	}

	respBody, err := c.doRequest(ctx, c.bulkClient, http.MethodPost, endpoint, reqBody)
	if err != nil {
		return nil, err
	}

	var response BulkCreateResponse
	if err := json.Unmarshal(respBody, &response); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &response, nil
}

// NotificationsEnabled queries whether the platform can dispatch invitation
// emails. Consumed once per wizard session.
func (c *Client) NotificationsEnabled(ctx context.Context) (bool, error) {
	respBody, err := c.doRequest(ctx, c.readClient, http.MethodGet, "/api/capabilities/email", nil)
	if err != nil {
		return false, err
	}

	var response CapabilityResponse
	if err := json.Unmarshal(respBody, &response); err != nil {
		return false, fmt.Errorf("failed to parse response: %w", err)
	}
	return response.EmailEnabled, nil
}
