// Package client is a Go SDK for the degree-planner HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/campusgrid/degree-planner/internal/models"
	"github.com/campusgrid/degree-planner/internal/planner"
)

// Client is a Go SDK for the degree-planner API
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new degree-planner client
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// SessionState is an editing session snapshot
type SessionState struct {
	Session models.EditingSession `json:"session"`
	Plan    *models.Plan          `json:"plan"`
}

// CreateSessionRequest opens a new editing session
type CreateSessionRequest struct {
	ProgramCode   string                 `json:"program_code"`
	StudentID     string                 `json:"student_id"`
	PlanName      string                 `json:"plan_name,omitempty"`
	StartPeriod   string                 `json:"start_period,omitempty"`
	CreditCeiling int                    `json:"credit_ceiling,omitempty"`
	TTLSeconds    int                    `json:"ttl_seconds,omitempty"`
	Records       []models.HistoryRecord `json:"records,omitempty"`
}

// MutationResponse pairs a mutation result with the resulting plan.
// Validation refusals (HTTP 409) are returned here, not as errors.
type MutationResponse[T any] struct {
	Result T            `json:"result"`
	Plan   *models.Plan `json:"plan"`
}

// ProjectionResponse carries a generated projection and the plan it
// replaced the session state with.
type ProjectionResponse struct {
	Projection planner.Projection `json:"projection"`
	Plan       *models.Plan       `json:"plan"`
}

// CreateSession opens a new editing session
func (c *Client) CreateSession(ctx context.Context, req CreateSessionRequest) (*SessionState, error) {
	var state SessionState
	if err := c.call(ctx, "POST", "/api/v1/sessions", req, &state, nil); err != nil {
		return nil, err
	}
	return &state, nil
}

// GetSession retrieves an editing session snapshot
func (c *Client) GetSession(ctx context.Context, id string) (*SessionState, error) {
	var state SessionState
	if err := c.call(ctx, "GET", "/api/v1/sessions/"+id, nil, &state, nil); err != nil {
		return nil, err
	}
	return &state, nil
}

// DeleteSession closes an editing session
func (c *Client) DeleteSession(ctx context.Context, id string) error {
	return c.call(ctx, "DELETE", "/api/v1/sessions/"+id, nil, nil, nil)
}

// AddPeriod appends an empty period to the session's plan
func (c *Client) AddPeriod(ctx context.Context, id string) (string, *models.Plan, error) {
	var out struct {
		Label string       `json:"label"`
		Plan  *models.Plan `json:"plan"`
	}
	if err := c.call(ctx, "POST", "/api/v1/sessions/"+id+"/periods", nil, &out, nil); err != nil {
		return "", nil, err
	}
	return out.Label, out.Plan, nil
}

// AddCourse schedules a course in a 1-based period. A refused placement
// comes back with Result.OK false, not as an error.
func (c *Client) AddCourse(ctx context.Context, id, courseCode string, periodIndex int) (*MutationResponse[planner.AddResult], error) {
	req := map[string]interface{}{"course_code": courseCode, "period_index": periodIndex}
	var out MutationResponse[planner.AddResult]
	conflictOK := true
	if err := c.call(ctx, "POST", "/api/v1/sessions/"+id+"/courses", req, &out, &conflictOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// PreviewRemoval reports the cascade removing a course would trigger
func (c *Client) PreviewRemoval(ctx context.Context, id, courseCode string) (*planner.RemovalPreview, error) {
	var preview planner.RemovalPreview
	if err := c.call(ctx, "GET", "/api/v1/sessions/"+id+"/courses/"+courseCode+"/removal", nil, &preview, nil); err != nil {
		return nil, err
	}
	return &preview, nil
}

// RemoveCourse removes a scheduled course; cascade confirms removing
// its dependents too.
func (c *Client) RemoveCourse(ctx context.Context, id, courseCode string, cascade bool) (*MutationResponse[planner.RemovalResult], error) {
	path := fmt.Sprintf("/api/v1/sessions/%s/courses/%s?cascade=%t", id, courseCode, cascade)
	var out MutationResponse[planner.RemovalResult]
	conflictOK := true
	if err := c.call(ctx, "DELETE", path, nil, &out, &conflictOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// MoveCourse relocates a scheduled course to another period
func (c *Client) MoveCourse(ctx context.Context, id, courseCode string, newPeriodIndex int) (*MutationResponse[planner.MoveResult], error) {
	req := map[string]interface{}{"period_index": newPeriodIndex}
	var out MutationResponse[planner.MoveResult]
	conflictOK := true
	if err := c.call(ctx, "POST", "/api/v1/sessions/"+id+"/courses/"+courseCode+"/move", req, &out, &conflictOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// GenerateProjection runs the automatic generator over the session
func (c *Client) GenerateProjection(ctx context.Context, id string, maxCredits int, startPeriod string) (*ProjectionResponse, error) {
	req := map[string]interface{}{}
	if maxCredits > 0 {
		req["max_credits"] = maxCredits
	}
	if startPeriod != "" {
		req["start_period"] = startPeriod
	}
	var out ProjectionResponse
	if err := c.call(ctx, "POST", "/api/v1/sessions/"+id+"/projection", req, &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// SavePlan persists the session's current plan and returns it with its
// storage id.
func (c *Client) SavePlan(ctx context.Context, id, name string) (*models.Plan, error) {
	req := map[string]interface{}{}
	if name != "" {
		req["name"] = name
	}
	var plan models.Plan
	if err := c.call(ctx, "POST", "/api/v1/sessions/"+id+"/save", req, &plan, nil); err != nil {
		return nil, err
	}
	return &plan, nil
}

// ListPrograms retrieves all loaded program catalogs
func (c *Client) ListPrograms(ctx context.Context) ([]*models.Program, error) {
	var programs []*models.Program
	if err := c.call(ctx, "GET", "/api/v1/programs", nil, &programs, nil); err != nil {
		return nil, err
	}
	return programs, nil
}

// GetProgram retrieves one program catalog by code or CODE@CATALOG key
func (c *Client) GetProgram(ctx context.Context, code string) (*models.Program, error) {
	var program models.Program
	if err := c.call(ctx, "GET", "/api/v1/programs/"+url.PathEscape(code), nil, &program, nil); err != nil {
		return nil, err
	}
	return &program, nil
}

// GetPlan retrieves a saved plan by id
func (c *Client) GetPlan(ctx context.Context, id string) (*models.Plan, error) {
	var plan models.Plan
	if err := c.call(ctx, "GET", "/api/v1/plans/"+id, nil, &plan, nil); err != nil {
		return nil, err
	}
	return &plan, nil
}

// ListPlans retrieves saved plans for an owner, optionally per program
func (c *Client) ListPlans(ctx context.Context, ownerID, programCode string) ([]*models.Plan, error) {
	q := url.Values{}
	q.Set("owner_id", ownerID)
	if programCode != "" {
		q.Set("program_code", programCode)
	}
	var plans []*models.Plan
	if err := c.call(ctx, "GET", "/api/v1/plans?"+q.Encode(), nil, &plans, nil); err != nil {
		return nil, err
	}
	return plans, nil
}

// DeletePlan removes a saved plan
func (c *Client) DeletePlan(ctx context.Context, id string) error {
	return c.call(ctx, "DELETE", "/api/v1/plans/"+id, nil, nil, nil)
}

// Health checks if the service is healthy
func (c *Client) Health(ctx context.Context) error {
	status, body, err := c.doRequest(ctx, "GET", "/health", nil)
	if err != nil {
		return err
	}
	if status >= 400 {
		return fmt.Errorf("HTTP %d: %s", status, string(body))
	}
	return nil
}

// call performs a request and unmarshals the API envelope into out.
// When conflictOK is set, an HTTP 409 still decodes the envelope so the
// caller sees the refused mutation result instead of an error.
func (c *Client) call(ctx context.Context, method, path string, reqBody, out interface{}, conflictOK *bool) error {
	var body io.Reader
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	status, respBody, err := c.doRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	acceptConflict := conflictOK != nil && *conflictOK
	if status >= 400 && !(acceptConflict && status == http.StatusConflict) {
		var envelope struct {
			Error *struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if jsonErr := json.Unmarshal(respBody, &envelope); jsonErr == nil && envelope.Error != nil {
			return fmt.Errorf("API error: %s - %s", envelope.Error.Code, envelope.Error.Message)
		}
		return fmt.Errorf("HTTP %d: %s", status, string(respBody))
	}

	if out == nil {
		return nil
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("failed to unmarshal response data: %w", err)
	}
	return nil
}

// doRequest performs an HTTP request
func (c *Client) doRequest(ctx context.Context, method, path string, body io.Reader) (int, []byte, error) {
	url := c.baseURL + path

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response: %w", err)
	}

	return resp.StatusCode, respBody, nil
}
