package models

import "fmt"

// Severity captures incident impact levels.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ParseSeverity validates a severity value, rejecting unknown strings.
func ParseSeverity(value string) (Severity, error) {
	switch Severity(value) {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return Severity(value), nil
	}
	return "", fmt.Errorf("unknown severity %q", value)
}

// ActionType enumerates the remediation actions the copilot can propose.
type ActionType string

const (
	ActionRollback       ActionType = "rollback"
	ActionScaleUp        ActionType = "scale_up"
	ActionRestartService ActionType = "restart_service"
	ActionNotify         ActionType = "notify"
	ActionRunDiagnostics ActionType = "run_diagnostics"
	ActionOpenPR         ActionType = "open_pr"
)

// ParseActionType validates an action type value.
func ParseActionType(value string) (ActionType, error) {
	switch ActionType(value) {
	case ActionRollback, ActionScaleUp, ActionRestartService, ActionNotify, ActionRunDiagnostics, ActionOpenPR:
		return ActionType(value), nil
	}
	return "", fmt.Errorf("unknown action type %q", value)
}

// Risk grades how dangerous a proposed action is to execute.
type Risk string

const (
	RiskLow    Risk = "low"
	RiskMedium Risk = "medium"
	RiskHigh   Risk = "high"
)

// ParseRisk validates a risk value.
func ParseRisk(value string) (Risk, error) {
	switch Risk(value) {
	case RiskLow, RiskMedium, RiskHigh:
		return Risk(value), nil
	}
	return "", fmt.Errorf("unknown risk %q", value)
}

// IncidentStatus tracks an incident through its approval lifecycle.
type IncidentStatus string

const (
	StatusActive   IncidentStatus = "active"
	StatusPending  IncidentStatus = "pending"
	StatusApproved IncidentStatus = "approved"
	StatusResolved IncidentStatus = "resolved"
)

// ParseIncidentStatus validates an incident status value.
func ParseIncidentStatus(value string) (IncidentStatus, error) {
	switch IncidentStatus(value) {
	case StatusActive, StatusPending, StatusApproved, StatusResolved:
		return IncidentStatus(value), nil
	}
	return "", fmt.Errorf("unknown incident status %q", value)
}

// Decision records the outcome of an approve/deny call.
type Decision string

const (
	DecisionApproved Decision = "approved"
	DecisionDenied   Decision = "denied"
)

// HealthStatus grades a service or the whole system.
type HealthStatus string

const (
	HealthHealthy  HealthStatus = "healthy"
	HealthDegraded HealthStatus = "degraded"
	HealthDown     HealthStatus = "down"
	HealthCritical HealthStatus = "critical"
)
