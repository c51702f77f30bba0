package hangarlinesdk

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Hangarline HTTP API client.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// WorkOrder is the API work order model.
type WorkOrder struct {
	UID          string `json:"uid"`
	Number       string `json:"number"`
	Registration string `json:"registration,omitempty"`
	Customer     string `json:"customer,omitempty"`
	PartDesc     string `json:"part_desc,omitempty"`
	CreatedAt    string `json:"created_at"`
}

// Finding is the API finding model.
type Finding struct {
	ID          string `json:"id"`
	WorkOrder   string `json:"work_order_uid"`
	Num         int    `json:"num"`
	Description string `json:"description"`
	Action      string `json:"action,omitempty"`
	Status      string `json:"status"`
	HasEvidence bool   `json:"has_evidence"`
}

// Timer is one running session in a live snapshot.
type Timer struct {
	Employee    string `json:"employee"`
	TaskCode    string `json:"task_code"`
	StartedAt   string `json:"started_at"`
	ElapsedSecs int64  `json:"elapsed_secs"`
	Elapsed     string `json:"elapsed"`
}

// WorkRecord is one completed session.
type WorkRecord struct {
	Employee        string `json:"employee"`
	TaskCode        string `json:"task_code"`
	StartedAt       string `json:"started_at"`
	StoppedAt       string `json:"stopped_at"`
	DurationSecs    int64  `json:"duration_secs"`
	ResultingStatus string `json:"resulting_status"`
}

// StartProposal reports what a start would require.
type StartProposal struct {
	RequiresJoinConfirm bool     `json:"requires_join_confirm"`
	ActiveEmployees     []string `json:"active_employees,omitempty"`
}

// StopResult pairs the finding with the stop event summary.
type StopResult struct {
	Finding Finding `json:"finding"`
	Session struct {
		Employee        string `json:"employee"`
		TaskCode        string `json:"task_code"`
		DurationSecs    *int64 `json:"duration_secs"`
		ResultingStatus string `json:"resulting_status"`
	} `json:"session"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Details    map[string]any
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d code=%s message=%s", e.StatusCode, e.Code, e.Message)
}

// CreateWorkOrder creates a work order.
func (c *Client) CreateWorkOrder(ctx context.Context, number, registration, customer, partDesc string) (WorkOrder, error) {
	body := map[string]any{
		"number":       number,
		"registration": registration,
		"customer":     customer,
		"part_desc":    partDesc,
	}
	var resp WorkOrder
	err := c.do(ctx, http.MethodPost, "v0/workorders", body, &resp)
	return resp, err
}

// AddFinding adds a finding to a work order.
func (c *Client) AddFinding(ctx context.Context, workOrderUID, description, action string) (Finding, error) {
	body := map[string]any{
		"description": description,
		"action":      action,
	}
	var resp Finding
	endpoint := fmt.Sprintf("v0/workorders/%s/findings", url.PathEscape(workOrderUID))
	err := c.do(ctx, http.MethodPost, endpoint, body, &resp)
	return resp, err
}

// ProposeStart checks whether starting would need a join confirmation.
func (c *Client) ProposeStart(ctx context.Context, findingID, employeeID, taskCode string) (StartProposal, error) {
	body := map[string]any{
		"employee_id": employeeID,
		"task_code":   taskCode,
	}
	var resp StartProposal
	endpoint := fmt.Sprintf("v0/findings/%s/start/propose", url.PathEscape(findingID))
	err := c.do(ctx, http.MethodPost, endpoint, body, &resp)
	return resp, err
}

// Start opens a labor session.
func (c *Client) Start(ctx context.Context, findingID, employeeID, taskCode string, joinConfirmed bool) (Finding, error) {
	body := map[string]any{
		"employee_id":    employeeID,
		"task_code":      taskCode,
		"join_confirmed": joinConfirmed,
	}
	var resp Finding
	endpoint := fmt.Sprintf("v0/findings/%s/start", url.PathEscape(findingID))
	err := c.do(ctx, http.MethodPost, endpoint, body, &resp)
	return resp, err
}

// Stop closes a labor session. finalStatus is required on the last stop;
// evidence may be nil.
func (c *Client) Stop(ctx context.Context, findingID, employeeID, finalStatus string, evidence []byte, skipEvidence bool) (StopResult, error) {
	body := map[string]any{
		"employee_id":   employeeID,
		"final_status":  finalStatus,
		"skip_evidence": skipEvidence,
	}
	if len(evidence) > 0 {
		body["evidence_b64"] = base64.StdEncoding.EncodeToString(evidence)
	}
	var resp StopResult
	endpoint := fmt.Sprintf("v0/findings/%s/stop", url.PathEscape(findingID))
	err := c.do(ctx, http.MethodPost, endpoint, body, &resp)
	return resp, err
}

// CloseFinding closes an on-hold finding with evidence.
func (c *Client) CloseFinding(ctx context.Context, findingID string, evidence []byte, skipEvidence bool) (Finding, error) {
	body := map[string]any{
		"skip_evidence": skipEvidence,
	}
	if len(evidence) > 0 {
		body["evidence_b64"] = base64.StdEncoding.EncodeToString(evidence)
	}
	var resp Finding
	endpoint := fmt.Sprintf("v0/findings/%s/close", url.PathEscape(findingID))
	err := c.do(ctx, http.MethodPost, endpoint, body, &resp)
	return resp, err
}

// Sessions returns the live timers for a finding.
func (c *Client) Sessions(ctx context.Context, findingID string) ([]Timer, error) {
	var resp struct {
		Timers []Timer `json:"timers"`
	}
	endpoint := fmt.Sprintf("v0/findings/%s/sessions", url.PathEscape(findingID))
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp.Timers, err
}

// History returns the completed work records for a finding, newest first.
func (c *Client) History(ctx context.Context, findingID string) ([]WorkRecord, error) {
	var resp struct {
		Records []WorkRecord `json:"records"`
	}
	endpoint := fmt.Sprintf("v0/findings/%s/history", url.PathEscape(findingID))
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp.Records, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	reqURL := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var envelope struct {
			Error struct {
				Code    string         `json:"code"`
				Message string         `json:"message"`
				Details map[string]any `json:"details"`
			} `json:"error"`
		}
		if json.Unmarshal(b, &envelope) == nil && envelope.Error.Code != "" {
			apiErr.Code = envelope.Error.Code
			apiErr.Message = envelope.Error.Message
			apiErr.Details = envelope.Error.Details
		} else {
			apiErr.Message = string(b)
		}
		return apiErr
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
