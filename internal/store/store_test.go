package store

import (
	"errors"
	"fmt"
	"math/rand"
	"reflect"
	"testing"
	"time"

	"github.com/flowlens/flowlens-api/internal/models"
)

func testStore(opts ...Option) *Store {
	base := []Option{
		WithRand(rand.New(rand.NewSource(1))),
		WithClock(func() time.Time { return time.Unix(1_700_000_000, 0) }),
		WithIDGenerator(sequentialIDs("id")),
	}
	return New(append(base, opts...)...)
}

func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func steppingClock(start time.Time, step time.Duration) func() time.Time {
	current := start
	return func() time.Time {
		t := current
		current = current.Add(step)
		return t
	}
}

func incidentAt(id string, ts time.Time, actions ...models.ProposedAction) models.Incident {
	return models.Incident{
		ID:               id,
		Title:            "incident " + id,
		Severity:         models.SeverityHigh,
		Status:           models.StatusActive,
		Source:           "test",
		AffectedServices: []string{"svc"},
		Timestamp:        ts,
		ProposedActions:  actions,
	}
}

func TestListOrdersByTimestampDescending(t *testing.T) {
	s := testStore()
	s.Insert(incidentAt("a", time.Unix(10, 0)))
	s.Insert(incidentAt("b", time.Unix(20, 0)))

	got := s.List()
	if len(got) != 2 {
		t.Fatalf("expected 2 incidents, got %d", len(got))
	}
	if got[0].ID != "b" || got[1].ID != "a" {
		t.Fatalf("expected [b a], got [%s %s]", got[0].ID, got[1].ID)
	}
}

func TestListPreservesStoreOrderForEqualTimestamps(t *testing.T) {
	s := testStore()
	ts := time.Unix(100, 0)
	s.Insert(incidentAt("first", ts))
	s.Insert(incidentAt("second", ts))

	got := s.List()
	if got[0].ID != "second" || got[1].ID != "first" {
		t.Fatalf("expected store order [second first], got [%s %s]", got[0].ID, got[1].ID)
	}
}

func TestGetRoundTrip(t *testing.T) {
	s := testStore()
	threshold := 2.0
	want := incidentAt("a", time.Unix(10, 0), models.ProposedAction{
		ID:         "act-1",
		Type:       models.ActionRollback,
		Confidence: 0.87,
		Risk:       models.RiskMedium,
	})
	want.Metrics = []models.Metric{{Name: "error_rate", Value: 5.2, Unit: "%", Threshold: &threshold}}
	s.Insert(want)

	got, err := s.Get("a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestGetUnknownReturnsNotFound(t *testing.T) {
	s := testStore()
	if _, err := s.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSimulateShape(t *testing.T) {
	s := testStore()

	incident := s.Simulate()

	if len(incident.ProposedActions) != 2 {
		t.Fatalf("expected 2 proposed actions, got %d", len(incident.ProposedActions))
	}

	notify := incident.ProposedActions[1]
	if notify.Type != models.ActionNotify {
		t.Fatalf("expected second action notify, got %s", notify.Type)
	}
	if notify.Confidence != 0.98 || notify.Risk != models.RiskLow || !notify.AutoApproved {
		t.Fatalf("unexpected notify action: %+v", notify)
	}

	primary := incident.ProposedActions[0]
	if primary.Confidence < 0.75 || primary.Confidence > 0.95 {
		t.Fatalf("primary confidence out of range: %v", primary.Confidence)
	}
	if primary.AutoApproved {
		t.Fatalf("primary action must not be auto-approved")
	}

	wantRisk := models.RiskLow
	if incident.Severity == models.SeverityHigh || incident.Severity == models.SeverityCritical {
		wantRisk = models.RiskMedium
	}
	if primary.Risk != wantRisk {
		t.Fatalf("expected risk %s for severity %s, got %s", wantRisk, incident.Severity, primary.Risk)
	}

	if len(incident.Metrics) != 1 || incident.Metrics[0].Name != "anomaly_score" {
		t.Fatalf("unexpected metrics: %+v", incident.Metrics)
	}
	if score := incident.Metrics[0].Value; score < 0.7 || score > 0.95 {
		t.Fatalf("anomaly score out of range: %v", score)
	}
	if len(incident.Logs) != 1 || incident.Logs[0].Level != "ERROR" {
		t.Fatalf("unexpected logs: %+v", incident.Logs)
	}
	if incident.Logs[0].Service != incident.AffectedServices[0] {
		t.Fatalf("log service %s should match first affected service %s", incident.Logs[0].Service, incident.AffectedServices[0])
	}
	if incident.Status != models.StatusActive {
		t.Fatalf("expected active status, got %s", incident.Status)
	}
}

func TestSimulateInsertsAtFront(t *testing.T) {
	s := testStore(WithClock(steppingClock(time.Unix(1000, 0), time.Minute)))
	s.Insert(incidentAt("old", time.Unix(10, 0)))

	created := s.Simulate()

	got := s.List()
	if got[0].ID != created.ID {
		t.Fatalf("expected simulated incident first, got %s", got[0].ID)
	}
}

func TestApproveOnlyActionPromotesIncident(t *testing.T) {
	s := testStore()
	s.Insert(incidentAt("inc", time.Unix(10, 0), models.ProposedAction{ID: "act", Type: models.ActionRollback}))

	result, err := s.ApproveAction("act")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != models.DecisionApproved || result.ActionID != "act" {
		t.Fatalf("unexpected result: %+v", result)
	}

	incident, err := s.Get("inc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if incident.Status != models.StatusApproved {
		t.Fatalf("expected approved status, got %s", incident.Status)
	}
	if !incident.ProposedActions[0].AutoApproved {
		t.Fatalf("expected action auto-approved")
	}
}

func TestApproveLeavesStatusWhilePendingActionsRemain(t *testing.T) {
	s := testStore()
	s.Insert(incidentAt("inc", time.Unix(10, 0),
		models.ProposedAction{ID: "a"},
		models.ProposedAction{ID: "b"},
	))

	if _, err := s.ApproveAction("a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	incident, _ := s.Get("inc")
	if incident.Status != models.StatusActive {
		t.Fatalf("expected status unchanged, got %s", incident.Status)
	}
}

func TestApproveIsIdempotentButOverwritesDecisionTimestamp(t *testing.T) {
	s := testStore(WithClock(steppingClock(time.Unix(1000, 0), time.Minute)))
	s.Insert(incidentAt("inc", time.Unix(10, 0), models.ProposedAction{ID: "act"}))

	if _, err := s.ApproveAction("act"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first := s.Decisions()["act"]

	if _, err := s.ApproveAction("act"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second := s.Decisions()["act"]

	incident, _ := s.Get("inc")
	if !incident.ProposedActions[0].AutoApproved {
		t.Fatalf("expected action to remain auto-approved")
	}
	if !second.Timestamp.After(first.Timestamp) {
		t.Fatalf("expected decision timestamp to advance: first=%v second=%v", first.Timestamp, second.Timestamp)
	}
}

func TestDenyRemovesExactlyOneAction(t *testing.T) {
	s := testStore()
	s.Insert(incidentAt("other", time.Unix(5, 0), models.ProposedAction{ID: "keep"}))
	s.Insert(incidentAt("inc", time.Unix(10, 0),
		models.ProposedAction{ID: "a"},
		models.ProposedAction{ID: "b"},
	))

	result, err := s.DenyAction("a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Status != models.DecisionDenied || result.ActionID != "a" {
		t.Fatalf("unexpected result: %+v", result)
	}

	incident, _ := s.Get("inc")
	if len(incident.ProposedActions) != 1 || incident.ProposedActions[0].ID != "b" {
		t.Fatalf("expected only action b to remain, got %+v", incident.ProposedActions)
	}

	other, _ := s.Get("other")
	if len(other.ProposedActions) != 1 {
		t.Fatalf("other incident must be untouched, got %+v", other.ProposedActions)
	}
}

func TestDenyDoesNotRecomputeStatus(t *testing.T) {
	s := testStore()
	s.Insert(incidentAt("inc", time.Unix(10, 0),
		models.ProposedAction{ID: "a", AutoApproved: true},
		models.ProposedAction{ID: "b"},
	))

	// All remaining actions are auto-approved after the denial, but only an
	// approval recomputes the transition.
	if _, err := s.DenyAction("b"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	incident, _ := s.Get("inc")
	if incident.Status != models.StatusActive {
		t.Fatalf("expected status unchanged after deny, got %s", incident.Status)
	}
}

func TestUnknownActionLeavesStoreUnchanged(t *testing.T) {
	s := testStore()
	s.Insert(incidentAt("inc", time.Unix(10, 0), models.ProposedAction{ID: "act"}))
	before := s.List()

	if _, err := s.ApproveAction("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.DenyAction("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	after := s.List()
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("store changed after failed decisions:\nbefore %+v\nafter %+v", before, after)
	}
	if len(s.Decisions()) != 0 {
		t.Fatalf("expected no decisions recorded, got %+v", s.Decisions())
	}
}

func TestDecisionsKeepLatestRecordPerAction(t *testing.T) {
	s := testStore(WithClock(steppingClock(time.Unix(1000, 0), time.Minute)))
	s.Insert(incidentAt("inc", time.Unix(10, 0), models.ProposedAction{ID: "act"}))

	if _, err := s.ApproveAction("act"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.DenyAction("act"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	decisions := s.Decisions()
	if len(decisions) != 1 {
		t.Fatalf("expected a single record, got %d", len(decisions))
	}
	record := decisions["act"]
	if record.Decision != models.DecisionDenied {
		t.Fatalf("expected latest decision denied, got %s", record.Decision)
	}
	if record.IncidentID != "inc" {
		t.Fatalf("unexpected incident id: %s", record.IncidentID)
	}

	// The denied action is gone; a later approval of the same id fails and the
	// record stays denied.
	if _, err := s.ApproveAction("act"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for removed action, got %v", err)
	}
	if s.Decisions()["act"].Decision != models.DecisionDenied {
		t.Fatalf("decision record must survive the failed approval")
	}
}

func TestAttachAnalysis(t *testing.T) {
	s := testStore()
	s.Insert(incidentAt("inc", time.Unix(10, 0)))

	if err := s.AttachAnalysis("inc", "fresh analysis"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	incident, _ := s.Get("inc")
	if incident.LLMAnalysis != "fresh analysis" {
		t.Fatalf("unexpected analysis: %q", incident.LLMAnalysis)
	}

	if err := s.AttachAnalysis("missing", "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSeedFixtures(t *testing.T) {
	s := testStore(WithClock(steppingClock(time.Unix(10_000, 0), time.Second)))
	s.Seed()

	if s.Len() != 2 {
		t.Fatalf("expected 2 seeded incidents, got %d", s.Len())
	}

	got := s.List()
	if got[0].Title != "High Error Rate on User Service" {
		t.Fatalf("expected error-rate incident first, got %q", got[0].Title)
	}
	if got[0].Status != models.StatusActive || got[1].Status != models.StatusPending {
		t.Fatalf("unexpected seed statuses: %s, %s", got[0].Status, got[1].Status)
	}
	if s.ActiveCount() != 1 {
		t.Fatalf("expected 1 active incident, got %d", s.ActiveCount())
	}
}

func TestListSnapshotIsIsolatedFromStore(t *testing.T) {
	s := testStore()
	s.Insert(incidentAt("inc", time.Unix(10, 0), models.ProposedAction{ID: "act"}))

	snapshot := s.List()
	snapshot[0].ProposedActions[0].AutoApproved = true

	incident, _ := s.Get("inc")
	if incident.ProposedActions[0].AutoApproved {
		t.Fatalf("mutating a snapshot must not touch the store")
	}
}
