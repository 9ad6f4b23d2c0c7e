package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/flowlens/flowlens-api/internal/metrics"
	"github.com/flowlens/flowlens-api/internal/models"
)

const (
	maxPromptMetrics   = 10
	maxPromptLogs      = 10
	maxPromptIncidents = 5
)

const analyzeSystemPrompt = `You are an AI Ops expert analyzing system incidents.
Provide concise root cause analysis and actionable recommendations.
Be specific about metrics and thresholds.`

const narrativeSystemPrompt = `You are a technical writer summarizing system events.
Write clear, concise summaries that a team lead can quickly scan.
Use markdown formatting.`

// LLMClient sends prompts to an Ollama-style generation endpoint and returns
// generated text, isolating callers from the backend's protocol.
type LLMClient struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewLLMClient constructs a client for the configured generation backend.
// Generation is slow, so the timeout is much longer than for other upstreams.
func NewLLMClient(baseURL, model string, timeout time.Duration) *LLMClient {
	return &LLMClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Model returns the configured model identifier.
func (c *LLMClient) Model() string { return c.model }

// IncidentAnalysis is the outcome of an AnalyzeIncident call.
type IncidentAnalysis struct {
	Analysis string `json:"analysis"`
	Model    string `json:"model"`
	Status   string `json:"status"`
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
	System string `json:"system,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Generate sends a prompt (optionally with a system instruction) to the
// backend and returns the generated text. Transport and HTTP failures come
// back as the literal string "LLM Error: <message>", never as an error: the
// backend being down must not break the endpoints that embed its output.
func (c *LLMClient) Generate(ctx context.Context, prompt, system string) string {
	start := time.Now()
	text, err := c.generate(ctx, prompt, system)
	metrics.ObserveGeneration(time.Since(start))
	if err != nil {
		metrics.ObserveUpstreamFailure(metrics.ClientLLM)
		return fmt.Sprintf("LLM Error: %v", err)
	}
	return text
}

func (c *LLMClient) generate(ctx context.Context, prompt, system string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
		System: system,
	})
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("generation backend returned %s", resp.Status)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return out.Response, nil
}

// AnalyzeIncident asks the model for root cause analysis over the incident's
// evidence. Status is always "success"; a failed generation is embedded in the
// analysis text as "LLM Error: ..." instead.
func (c *LLMClient) AnalyzeIncident(ctx context.Context, incidentMetrics []models.Metric, logs []models.LogEntry, services []string) IncidentAnalysis {
	prompt := fmt.Sprintf(`Analyze this incident:

Services Affected: %s

Metrics:
%s

Recent Logs:
%s

Provide:
1. Root Cause Analysis (2-3 sentences)
2. Recommended Actions (bullet points)
3. Severity Assessment
4. Confidence Level (0-100%%)
`, strings.Join(services, ", "), formatMetrics(incidentMetrics), formatLogs(logs))

	return IncidentAnalysis{
		Analysis: c.Generate(ctx, prompt, analyzeSystemPrompt),
		Model:    c.model,
		Status:   "success",
	}
}

// GenerateNarrative asks the model for a short narrative of overall system state.
func (c *LLMClient) GenerateNarrative(ctx context.Context, incidents []models.Incident, health models.SystemHealth) string {
	active := 0
	for _, inc := range incidents {
		if inc.Status == models.StatusActive {
			active++
		}
	}

	recent := incidents
	if len(recent) > maxPromptIncidents {
		recent = recent[:maxPromptIncidents]
	}

	prompt := fmt.Sprintf(`Summarize the last 24 hours of system activity:

System Health: %s
Active Incidents: %d
Total Incidents: %d

Recent Incidents:
%s

Generate a brief narrative (3-4 paragraphs) covering:
1. Current system status
2. Key events and resolutions
3. Recommendations for the team
`, health.Overall, active, len(incidents), formatIncidents(recent))

	return c.Generate(ctx, prompt, narrativeSystemPrompt)
}

func formatMetrics(ms []models.Metric) string {
	if len(ms) > maxPromptMetrics {
		ms = ms[:maxPromptMetrics]
	}
	lines := make([]string, 0, len(ms))
	for _, m := range ms {
		threshold := ""
		if m.Threshold != nil {
			threshold = fmt.Sprintf(" (threshold: %s)", formatNumber(*m.Threshold))
		}
		lines = append(lines, fmt.Sprintf("- %s: %s%s%s", m.Name, formatNumber(m.Value), m.Unit, threshold))
	}
	if len(lines) == 0 {
		return "No metrics available"
	}
	return strings.Join(lines, "\n")
}

func formatLogs(logs []models.LogEntry) string {
	if len(logs) > maxPromptLogs {
		logs = logs[:maxPromptLogs]
	}
	lines := make([]string, 0, len(logs))
	for _, entry := range logs {
		lines = append(lines, fmt.Sprintf("[%s] %s: %s", entry.Level, entry.Service, entry.Message))
	}
	if len(lines) == 0 {
		return "No logs available"
	}
	return strings.Join(lines, "\n")
}

func formatIncidents(incidents []models.Incident) string {
	lines := make([]string, 0, len(incidents))
	for _, inc := range incidents {
		lines = append(lines, fmt.Sprintf("- [%s] %s: %s", strings.ToUpper(string(inc.Severity)), inc.Title, inc.Status))
	}
	if len(lines) == 0 {
		return "No incidents"
	}
	return strings.Join(lines, "\n")
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
