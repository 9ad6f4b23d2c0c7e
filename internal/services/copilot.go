package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/flowlens/flowlens-api/internal/cache"
	"github.com/flowlens/flowlens-api/internal/config"
	"github.com/flowlens/flowlens-api/internal/models"
	"github.com/flowlens/flowlens-api/internal/repo"
	"github.com/flowlens/flowlens-api/internal/store"
	"github.com/flowlens/flowlens-api/internal/utils"
)

const narrativeCacheKey = "narrative"

// Incidents resolved automatically today. Demo fixture, matching the seeded
// health snapshot rather than any live counter.
const resolvedTodayCount = 7

// serviceTable is the fixed fleet reported by /api/health. Transient demo
// data; latency and uptime are not measured.
var serviceTable = []models.ServiceHealth{
	{Name: "api-gateway", Status: models.HealthHealthy, Latency: 45, Uptime: 99.9},
	{Name: "user-service", Status: models.HealthDegraded, Latency: 230, Uptime: 98.5},
	{Name: "auth-service", Status: models.HealthHealthy, Latency: 32, Uptime: 99.99},
	{Name: "payment-service", Status: models.HealthHealthy, Latency: 89, Uptime: 99.95},
	{Name: "notification-service", Status: models.HealthHealthy, Latency: 56, Uptime: 99.8},
}

// Copilot mediates between the API layer and the store plus the two external
// clients. The clients are optional enrichments: when they are unreachable the
// copilot degrades to templated output instead of failing the request.
type Copilot struct {
	logger    *slog.Logger
	store     *store.Store
	workflow  *repo.WorkflowClient
	llm       *repo.LLMClient
	cache     cache.Provider
	narrative config.NarrativeConfig
	policy    models.PolicyMetrics
	latencies *utils.LatencyTracker
	now       func() time.Time
}

// NewCopilot constructs the service facade.
func NewCopilot(
	logger *slog.Logger,
	incidentStore *store.Store,
	workflow *repo.WorkflowClient,
	llm *repo.LLMClient,
	cacheProvider cache.Provider,
	narrative config.NarrativeConfig,
	policy models.PolicyMetrics,
) *Copilot {
	if logger == nil {
		logger = slog.Default()
	}
	if cacheProvider == nil {
		cacheProvider = cache.NoopProvider{}
	}
	return &Copilot{
		logger:    logger,
		store:     incidentStore,
		workflow:  workflow,
		llm:       llm,
		cache:     cacheProvider,
		narrative: narrative,
		policy:    policy,
		latencies: utils.NewLatencyTracker(256),
		now:       time.Now,
	}
}

// SystemHealth computes a fresh health snapshot. Overall is degraded whenever
// any incident is active.
func (c *Copilot) SystemHealth() models.SystemHealth {
	active := c.store.ActiveCount()

	overall := models.HealthHealthy
	if active > 0 {
		overall = models.HealthDegraded
	}

	return models.SystemHealth{
		Overall:         overall,
		Services:        append([]models.ServiceHealth(nil), serviceTable...),
		ActiveIncidents: active,
		ResolvedToday:   resolvedTodayCount,
		LastUpdated:     c.now(),
	}
}

// PolicyMetrics returns the configured policy-model counters.
func (c *Copilot) PolicyMetrics() models.PolicyMetrics {
	return c.policy
}

// Narrative produces the system-state summary. When LLM narration is enabled
// the generated text is cached for the configured TTL; a failed generation
// falls back to the templated summary.
func (c *Copilot) Narrative(ctx context.Context) models.Narrative {
	text := c.templateNarrative()

	if c.narrative.UseLLM && c.llm != nil {
		if cached, err := c.cache.Get(ctx, narrativeCacheKey); err == nil {
			return models.Narrative{Narrative: string(cached), GeneratedAt: c.now()}
		}

		start := time.Now()
		generated := c.llm.GenerateNarrative(ctx, c.store.List(), c.SystemHealth())
		c.observeGeneration(time.Since(start))

		if strings.HasPrefix(generated, "LLM Error:") {
			c.logger.Warn("narrative generation failed, using template", slog.String("error", generated))
		} else {
			text = generated
			if err := c.cache.Set(ctx, narrativeCacheKey, []byte(text), c.narrative.CacheTTL); err != nil {
				c.logger.Warn("narrative cache write failed", slog.Any("error", err))
			}
		}
	}

	return models.Narrative{Narrative: text, GeneratedAt: c.now()}
}

// EnrichIncident refreshes an incident's analysis: it asks the workflow engine
// for a snapshot, feeds the incident evidence to the LLM, and attaches the
// resulting text. Upstream failures degrade the enrichment, never the call.
func (c *Copilot) EnrichIncident(ctx context.Context, incidentID string) (models.Incident, error) {
	incident, err := c.store.Get(incidentID)
	if err != nil {
		return models.Incident{}, err
	}

	if c.workflow != nil {
		snapshot := c.workflow.CollectSnapshot(ctx)
		if snapshot.IsErr() {
			c.logger.Warn("snapshot collection failed",
				slog.String("incident_id", incidentID),
				slog.String("error", snapshot.Err.Message))
		} else if summary := c.workflow.SummarizeIncident(ctx, snapshot.Payload); summary.IsErr() {
			c.logger.Warn("incident summarization failed",
				slog.String("incident_id", incidentID),
				slog.String("error", summary.Err.Message))
		}
	}

	if c.llm == nil {
		return incident, nil
	}

	start := time.Now()
	analysis := c.llm.AnalyzeIncident(ctx, incident.Metrics, incident.Logs, incident.AffectedServices)
	c.observeGeneration(time.Since(start))

	if err := c.store.AttachAnalysis(incidentID, analysis.Analysis); err != nil {
		return models.Incident{}, err
	}
	return c.store.Get(incidentID)
}

// ExecuteApprovedAction hands an approved action to the workflow engine for
// execution. Runs in the background; an unreachable engine only logs a warning.
func (c *Copilot) ExecuteApprovedAction(incidentID, actionID string) {
	if c.workflow == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if result := c.workflow.ExecuteDecision(ctx, incidentID, actionID); result.IsErr() {
			c.logger.Warn("decision flow trigger failed",
				slog.String("incident_id", incidentID),
				slog.String("action_id", actionID),
				slog.String("error", result.Err.Message))
		}
	}()
}

// EnrichAsync schedules background enrichment for a freshly created incident.
// No-op unless LLM analysis is enabled.
func (c *Copilot) EnrichAsync(incidentID string) {
	if !c.narrative.UseLLM || c.llm == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if _, err := c.EnrichIncident(ctx, incidentID); err != nil {
			c.logger.Warn("incident enrichment failed",
				slog.String("incident_id", incidentID),
				slog.Any("error", err))
		}
	}()
}

func (c *Copilot) observeGeneration(d time.Duration) {
	c.latencies.Observe(d)
	if count := c.latencies.Count(); count >= 20 && count%20 == 0 {
		c.logger.Info("generation latency",
			slog.Duration("p95", c.latencies.Percentile(95)),
			slog.Int("samples", count))
	}
}

func (c *Copilot) templateNarrative() string {
	active := c.store.CountByStatus(models.StatusActive)
	pending := c.store.CountByStatus(models.StatusPending)

	return fmt.Sprintf(`## System Overview (Last 24 Hours)

### Current Status
- **%d active incidents** requiring attention
- **%d pending** actions awaiting review
- **%d incidents resolved** automatically today

### Key Events
1. User service experienced elevated error rates following v2.4.0 deployment
2. API Gateway scaled automatically in response to traffic surge
3. The policy model auto-approved 12 low-risk actions

### Recommendations
- Review pending rollback action for user-service
- Consider increasing capacity before peak hours
- Policy model accuracy: %.0f%% - performing within expected range
`, active, pending, resolvedTodayCount, c.policy.DecisionAccuracy*100)
}
