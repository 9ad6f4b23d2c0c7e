package store

import "github.com/flowlens/flowlens-api/internal/models"

// scenario is one entry in the fixed simulation table.
type scenario struct {
	Title       string
	Description string
	Severity    models.Severity
	Services    []string
	ActionType  models.ActionType
}

var scenarios = []scenario{
	{
		Title:       "Memory Leak Detected in Cache Service",
		Description: "Memory usage growing unbounded, potential OOM in 2 hours",
		Severity:    models.SeverityHigh,
		Services:    []string{"cache-service", "redis"},
		ActionType:  models.ActionRestartService,
	},
	{
		Title:       "Signup Conversion Drop",
		Description: "Signup success rate dropped by 40% in last 15 minutes",
		Severity:    models.SeverityCritical,
		Services:    []string{"frontend", "user-service", "email-service"},
		ActionType:  models.ActionRollback,
	},
	{
		Title:       "Database Connection Pool Exhaustion",
		Description: "PostgreSQL connection pool at 95% capacity",
		Severity:    models.SeverityHigh,
		Services:    []string{"postgres", "api-gateway"},
		ActionType:  models.ActionScaleUp,
	},
	{
		Title:       "SSL Certificate Expiring Soon",
		Description: "Certificate expires in 48 hours",
		Severity:    models.SeverityMedium,
		Services:    []string{"ingress", "api-gateway"},
		ActionType:  models.ActionNotify,
	},
}
