package store

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/flowlens/flowlens-api/internal/models"
)

// ErrNotFound signals that no incident or action matches the requested id.
// It is an expected outcome, recovered at the API boundary as a 404.
var ErrNotFound = errors.New("not found")

// Store owns the authoritative in-memory incident collection and the decision
// audit map. All mutations are serialised behind a single writer lock; reads
// return snapshots so concurrent callers never observe a half-applied change.
type Store struct {
	mu        sync.RWMutex
	incidents []models.Incident
	decisions map[string]models.DecisionRecord

	rng    *rand.Rand
	now    func() time.Time
	newID  func() string
	logger *slog.Logger
}

// Option customises a Store.
type Option func(*Store)

// WithRand injects a seedable random source so tests can pin Simulate output.
func WithRand(rng *rand.Rand) Option {
	return func(s *Store) { s.rng = rng }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides id generation.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// New constructs an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		decisions: make(map[string]models.DecisionRecord),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		now:       time.Now,
		newID:     uuid.NewString,
		logger:    slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Insert places an incident at the front of the store.
func (s *Store) Insert(incident models.Incident) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.incidents = append([]models.Incident{incident}, s.incidents...)
}

// List returns all incidents ordered by timestamp descending. Incidents with
// equal timestamps keep their store order.
func (s *Store) List() []models.Incident {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Incident, 0, len(s.incidents))
	for _, inc := range s.incidents {
		out = append(out, inc.Clone())
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

// Get returns the incident with the given id or ErrNotFound.
func (s *Store) Get(id string) (models.Incident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, inc := range s.incidents {
		if inc.ID == id {
			return inc.Clone(), nil
		}
	}
	return models.Incident{}, fmt.Errorf("incident %s: %w", id, ErrNotFound)
}

// ActiveCount reports how many incidents are currently active.
func (s *Store) ActiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, inc := range s.incidents {
		if inc.Status == models.StatusActive {
			count++
		}
	}
	return count
}

// CountByStatus reports how many incidents carry the given status.
func (s *Store) CountByStatus(status models.IncidentStatus) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, inc := range s.incidents {
		if inc.Status == status {
			count++
		}
	}
	return count
}

// Len returns the number of stored incidents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.incidents)
}

// Simulate synthesises an incident from a random scenario and inserts it at the
// front of the store so it becomes the most recent.
func (s *Store) Simulate() models.Incident {
	s.mu.Lock()
	defer s.mu.Unlock()

	scenario := scenarios[s.rng.Intn(len(scenarios))]
	now := s.now()

	risk := models.RiskLow
	if scenario.Severity == models.SeverityHigh || scenario.Severity == models.SeverityCritical {
		risk = models.RiskMedium
	}

	threshold := 0.5
	incident := models.Incident{
		ID:               s.newID(),
		Title:            scenario.Title,
		Description:      scenario.Description,
		Severity:         scenario.Severity,
		Status:           models.StatusActive,
		Source:           "workflow",
		AffectedServices: append([]string(nil), scenario.Services...),
		Timestamp:        now,
		Metrics: []models.Metric{
			{Name: "anomaly_score", Value: round2(0.7 + s.rng.Float64()*0.25), Unit: "", Threshold: &threshold},
		},
		Logs: []models.LogEntry{
			{Timestamp: now, Level: "ERROR", Message: scenario.Description, Service: scenario.Services[0]},
		},
		LLMAnalysis: fmt.Sprintf("AI Analysis: %s. The workflow engine detected this anomaly and the policy model has evaluated potential remediation actions.", scenario.Description),
		ProposedActions: []models.ProposedAction{
			{
				ID:          s.newID(),
				Type:        scenario.ActionType,
				Description: fmt.Sprintf("Execute %s action", scenario.ActionType),
				Confidence:  round2(0.75 + s.rng.Float64()*0.20),
				Reasoning:   "Based on historical patterns and current system state",
				Risk:        risk,
			},
			{
				ID:           s.newID(),
				Type:         models.ActionNotify,
				Description:  "Alert team via Slack",
				Confidence:   0.98,
				Reasoning:    "Team awareness is critical",
				Risk:         models.RiskLow,
				AutoApproved: true,
			},
		},
	}

	s.incidents = append([]models.Incident{incident}, s.incidents...)
	s.logger.Info("incident simulated",
		slog.String("incident_id", incident.ID),
		slog.String("title", incident.Title),
		slog.String("severity", string(incident.Severity)))
	return incident.Clone()
}

// ApproveAction marks the action auto-approved, records the decision, and
// promotes the parent incident to approved once every remaining action is
// auto-approved. The transition is recomputed on each approval, never cached.
func (s *Store) ApproveAction(actionID string) (models.ActionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.incidents {
		incident := &s.incidents[i]
		for j := range incident.ProposedActions {
			if incident.ProposedActions[j].ID != actionID {
				continue
			}
			incident.ProposedActions[j].AutoApproved = true
			s.decisions[actionID] = models.DecisionRecord{
				Decision:   models.DecisionApproved,
				Timestamp:  s.now(),
				IncidentID: incident.ID,
			}

			allApproved := true
			for _, a := range incident.ProposedActions {
				if !a.AutoApproved {
					allApproved = false
					break
				}
			}
			if allApproved {
				incident.Status = models.StatusApproved
			}

			s.logger.Info("action approved",
				slog.String("action_id", actionID),
				slog.String("incident_id", incident.ID),
				slog.Bool("incident_approved", allApproved))
			return models.ActionResult{Status: models.DecisionApproved, ActionID: actionID}, nil
		}
	}
	return models.ActionResult{}, fmt.Errorf("action %s: %w", actionID, ErrNotFound)
}

// DenyAction removes the action from its parent incident and records the
// decision. Denial never recomputes the parent's status.
func (s *Store) DenyAction(actionID string) (models.ActionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.incidents {
		incident := &s.incidents[i]
		for j := range incident.ProposedActions {
			if incident.ProposedActions[j].ID != actionID {
				continue
			}
			incident.ProposedActions = append(
				incident.ProposedActions[:j:j],
				incident.ProposedActions[j+1:]...,
			)
			s.decisions[actionID] = models.DecisionRecord{
				Decision:   models.DecisionDenied,
				Timestamp:  s.now(),
				IncidentID: incident.ID,
			}

			s.logger.Info("action denied",
				slog.String("action_id", actionID),
				slog.String("incident_id", incident.ID))
			return models.ActionResult{Status: models.DecisionDenied, ActionID: actionID}, nil
		}
	}
	return models.ActionResult{}, fmt.Errorf("action %s: %w", actionID, ErrNotFound)
}

// Decisions returns a copy of the decision audit map. A new decision for an
// action id overwrites any prior record; the map holds the most recent only.
func (s *Store) Decisions() map[string]models.DecisionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]models.DecisionRecord, len(s.decisions))
	for id, rec := range s.decisions {
		out[id] = rec
	}
	return out
}

// AttachAnalysis replaces the incident's generated analysis text.
func (s *Store) AttachAnalysis(incidentID, analysis string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.incidents {
		if s.incidents[i].ID == incidentID {
			s.incidents[i].LLMAnalysis = analysis
			return nil
		}
	}
	return fmt.Errorf("incident %s: %w", incidentID, ErrNotFound)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
