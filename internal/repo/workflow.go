package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/flowlens/flowlens-api/internal/metrics"
)

const workflowNamespace = "flowlens"

// WorkflowClient triggers named workflow executions and polls their status,
// isolating the rest of the system from the orchestrator's wire protocol.
type WorkflowClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewWorkflowClient constructs a client targeting the configured workflow engine.
func NewWorkflowClient(baseURL string, timeout time.Duration) *WorkflowClient {
	return &WorkflowClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// TriggerFlow starts an execution of flowID in the given namespace. Transport
// and non-2xx failures come back as a "failed" result, never an error.
func (c *WorkflowClient) TriggerFlow(ctx context.Context, namespace, flowID string, inputs map[string]any) Result {
	endpoint := c.resolvePath(fmt.Sprintf("/api/v1/executions/%s/%s", namespace, flowID))
	if inputs == nil {
		inputs = map[string]any{}
	}

	payload, err := c.postJSON(ctx, endpoint, inputs)
	if err != nil {
		metrics.ObserveUpstreamFailure(metrics.ClientWorkflow)
		return Failed("failed", err)
	}
	return Ok(payload)
}

// CollectSnapshot triggers the collect-snapshot flow with no inputs.
func (c *WorkflowClient) CollectSnapshot(ctx context.Context) Result {
	return c.TriggerFlow(ctx, workflowNamespace, "collect-snapshot", nil)
}

// SummarizeIncident triggers the summarize-incident flow over a snapshot.
func (c *WorkflowClient) SummarizeIncident(ctx context.Context, snapshot map[string]any) Result {
	return c.TriggerFlow(ctx, workflowNamespace, "summarize-incident", map[string]any{
		"snapshot": snapshot,
	})
}

// ExecuteDecision triggers the decision-flow for an approved action.
func (c *WorkflowClient) ExecuteDecision(ctx context.Context, incidentID, actionID string) Result {
	return c.TriggerFlow(ctx, workflowNamespace, "decision-flow", map[string]any{
		"incidentId": incidentID,
		"actionId":   actionID,
		"approved":   true,
	})
}

// ExecutionStatus fetches the state of a running execution. Failures come back
// tagged "unknown" so callers can render an indeterminate state.
func (c *WorkflowClient) ExecutionStatus(ctx context.Context, executionID string) Result {
	endpoint := c.resolvePath("/api/v1/executions/" + executionID)

	payload, err := c.getJSON(ctx, endpoint)
	if err != nil {
		metrics.ObserveUpstreamFailure(metrics.ClientWorkflow)
		return Failed("unknown", err)
	}
	return Ok(payload)
}

func (c *WorkflowClient) resolvePath(p string) string {
	if c.baseURL == "" {
		return ""
	}
	cleaned := "/" + strings.TrimLeft(p, "/")
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return c.baseURL + cleaned
	}
	u.Path = path.Join(u.Path, cleaned)
	return u.String()
}

func (c *WorkflowClient) postJSON(ctx context.Context, endpoint string, payload any) (map[string]any, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("workflow engine base URL not configured")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *WorkflowClient) getJSON(ctx context.Context, endpoint string) (map[string]any, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("workflow engine base URL not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *WorkflowClient) do(req *http.Request) (map[string]any, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("workflow engine returned %s", resp.Status)
	}

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return out, nil
}
