package models

import "time"

// Metric is a single measurement attached to an incident. Immutable once attached.
type Metric struct {
	Name      string   `json:"name"`
	Value     float64  `json:"value"`
	Unit      string   `json:"unit"`
	Threshold *float64 `json:"threshold,omitempty"`
}

// LogEntry is a captured log line relevant to an incident. Immutable.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Service   string    `json:"service"`
}

// ProposedAction is a candidate remediation step owned by exactly one incident.
type ProposedAction struct {
	ID           string     `json:"id"`
	Type         ActionType `json:"type"`
	Description  string     `json:"description"`
	Confidence   float64    `json:"confidence"`
	Reasoning    string     `json:"reasoning"`
	Risk         Risk       `json:"risk"`
	AutoApproved bool       `json:"autoApproved"`
}

// Incident is a detected operational problem with its evidence and remediations.
type Incident struct {
	ID               string           `json:"id"`
	Title            string           `json:"title"`
	Description      string           `json:"description"`
	Severity         Severity         `json:"severity"`
	Status           IncidentStatus   `json:"status"`
	Source           string           `json:"source"`
	AffectedServices []string         `json:"affectedServices"`
	Timestamp        time.Time        `json:"timestamp"`
	Metrics          []Metric         `json:"metrics"`
	Logs             []LogEntry       `json:"logs"`
	LLMAnalysis      string           `json:"llmAnalysis,omitempty"`
	ProposedActions  []ProposedAction `json:"proposedActions"`
}

// Clone returns a deep copy so callers can hold a snapshot without racing the store.
func (i Incident) Clone() Incident {
	out := i
	out.AffectedServices = append([]string(nil), i.AffectedServices...)
	out.Metrics = append([]Metric(nil), i.Metrics...)
	out.Logs = append([]LogEntry(nil), i.Logs...)
	out.ProposedActions = append([]ProposedAction(nil), i.ProposedActions...)
	return out
}

// DecisionRecord is an audit entry for an approve/deny call on a proposed action.
type DecisionRecord struct {
	Decision   Decision  `json:"decision"`
	Timestamp  time.Time `json:"timestamp"`
	IncidentID string    `json:"incidentId"`
}

// ActionResult is the response shape for approve/deny endpoints.
type ActionResult struct {
	Status   Decision `json:"status"`
	ActionID string   `json:"actionId"`
}

// ServiceHealth is a point-in-time view of a single service. Derived, not persisted.
type ServiceHealth struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Latency float64      `json:"latency"`
	Uptime  float64      `json:"uptime"`
}

// SystemHealth aggregates service health and incident counts. Computed per request.
type SystemHealth struct {
	Overall         HealthStatus    `json:"overall"`
	Services        []ServiceHealth `json:"services"`
	ActiveIncidents int             `json:"activeIncidents"`
	ResolvedToday   int             `json:"resolvedToday"`
	LastUpdated     time.Time       `json:"lastUpdated"`
}

// PolicyMetrics reports decision-quality counters for the policy model.
// Static/configured; not derived from the incident store.
type PolicyMetrics struct {
	DecisionAccuracy         float64 `json:"decisionAccuracy"`
	FalsePositiveRate        float64 `json:"falsePositiveRate"`
	AvgResponseTime          float64 `json:"avgResponseTime"`
	ActionsAutoApproved      int     `json:"actionsAutoApproved"`
	ActionsRequiringApproval int     `json:"actionsRequiringApproval"`
	ModelVersion             string  `json:"modelVersion"`
}

// Narrative is the generated system-state summary plus its generation time.
type Narrative struct {
	Narrative   string    `json:"narrative"`
	GeneratedAt time.Time `json:"generated_at"`
}
