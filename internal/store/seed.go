package store

import (
	"time"

	"github.com/flowlens/flowlens-api/internal/models"
)

// Seed loads the demo fixture incidents. Incidents live for the process
// lifetime; there is no delete operation.
func (s *Store) Seed() {
	now := s.now()
	threshold := func(v float64) *float64 { return &v }

	gatewaySpike := models.Incident{
		ID:               s.newID(),
		Title:            "API Gateway CPU Spike",
		Description:      "CPU utilization reached 92% on api-gateway pods",
		Severity:         models.SeverityMedium,
		Status:           models.StatusPending,
		Source:           "prometheus",
		AffectedServices: []string{"api-gateway"},
		Timestamp:        now.Add(-15 * time.Minute),
		Metrics: []models.Metric{
			{Name: "cpu_usage", Value: 92, Unit: "%", Threshold: threshold(80)},
			{Name: "memory_usage", Value: 78, Unit: "%", Threshold: threshold(85)},
		},
		Logs: []models.LogEntry{
			{Timestamp: now.Add(-15 * time.Minute), Level: "WARN", Message: "High CPU detected", Service: "api-gateway"},
		},
		LLMAnalysis: "Traffic surge detected from viral content. Recommend horizontal scaling.",
		ProposedActions: []models.ProposedAction{
			{
				ID:           s.newID(),
				Type:         models.ActionScaleUp,
				Description:  "Scale to 6 replicas",
				Confidence:   0.91,
				Reasoning:    "Current load requires additional capacity",
				Risk:         models.RiskLow,
				AutoApproved: true,
			},
		},
	}

	errorRate := models.Incident{
		ID:               s.newID(),
		Title:            "High Error Rate on User Service",
		Description:      "Error rate exceeded 5% threshold after v2.4.0 deployment",
		Severity:         models.SeverityHigh,
		Status:           models.StatusActive,
		Source:           "workflow",
		AffectedServices: []string{"user-service", "auth-service"},
		Timestamp:        now,
		Metrics: []models.Metric{
			{Name: "error_rate", Value: 5.2, Unit: "%", Threshold: threshold(2.0)},
			{Name: "latency_p99", Value: 450, Unit: "ms", Threshold: threshold(200)},
		},
		Logs: []models.LogEntry{
			{Timestamp: now, Level: "ERROR", Message: "Connection refused to database", Service: "user-service"},
			{Timestamp: now, Level: "WARN", Message: "Retry attempt 3/5", Service: "user-service"},
		},
		LLMAnalysis: "The error rate spike correlates with the v2.4.0 deployment. Root cause analysis indicates a schema migration issue causing connection failures.",
		ProposedActions: []models.ProposedAction{
			{
				ID:          s.newID(),
				Type:        models.ActionRollback,
				Description: "Rollback to v2.3.9",
				Confidence:  0.87,
				Reasoning:   "Previous version was stable with 0.1% error rate",
				Risk:        models.RiskMedium,
			},
			{
				ID:           s.newID(),
				Type:         models.ActionNotify,
				Description:  "Alert on-call team immediately",
				Confidence:   0.95,
				Reasoning:    "High severity requires immediate attention",
				Risk:         models.RiskLow,
				AutoApproved: true,
			},
		},
	}

	s.Insert(gatewaySpike)
	s.Insert(errorRate)
}
