package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/flowlens/flowlens-api/internal/cache"
	"github.com/flowlens/flowlens-api/internal/config"
	"github.com/flowlens/flowlens-api/internal/models"
	"github.com/flowlens/flowlens-api/internal/repo"
	"github.com/flowlens/flowlens-api/internal/store"
)

func seededStore() *store.Store {
	s := store.New()
	s.Seed()
	return s
}

func policyFixture() models.PolicyMetrics {
	return models.PolicyMetrics{DecisionAccuracy: 0.94, ModelVersion: "policy-v1.2.0"}
}

func TestSystemHealthDerivation(t *testing.T) {
	empty := NewCopilot(nil, store.New(), nil, nil, nil, config.NarrativeConfig{}, policyFixture())
	health := empty.SystemHealth()
	if health.Overall != models.HealthHealthy || health.ActiveIncidents != 0 {
		t.Fatalf("expected healthy with no incidents, got %+v", health)
	}

	seeded := NewCopilot(nil, seededStore(), nil, nil, nil, config.NarrativeConfig{}, policyFixture())
	health = seeded.SystemHealth()
	if health.Overall != models.HealthDegraded || health.ActiveIncidents != 1 {
		t.Fatalf("expected degraded with one active incident, got %+v", health)
	}
	if len(health.Services) != 5 {
		t.Fatalf("expected 5 services, got %d", len(health.Services))
	}
	if health.LastUpdated.IsZero() {
		t.Fatalf("expected computation timestamp")
	}
}

func TestNarrativeTemplate(t *testing.T) {
	copilot := NewCopilot(nil, seededStore(), nil, nil, nil, config.NarrativeConfig{}, policyFixture())

	narrative := copilot.Narrative(context.Background())
	if !strings.Contains(narrative.Narrative, "**1 active incidents**") {
		t.Fatalf("narrative missing active count:\n%s", narrative.Narrative)
	}
	if !strings.Contains(narrative.Narrative, "**1 pending**") {
		t.Fatalf("narrative missing pending count:\n%s", narrative.Narrative)
	}
	if !strings.Contains(narrative.Narrative, "Policy model accuracy: 94%") {
		t.Fatalf("narrative missing accuracy line:\n%s", narrative.Narrative)
	}
	if narrative.GeneratedAt.IsZero() {
		t.Fatalf("expected generation timestamp")
	}
}

func TestNarrativeUsesLLMAndCaches(t *testing.T) {
	hits := 0
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		_ = json.NewEncoder(w).Encode(map[string]any{"response": "generated narrative"})
	}))
	defer backend.Close()

	llm := repo.NewLLMClient(backend.URL, "qwen2.5:7b", time.Second)
	copilot := NewCopilot(nil, seededStore(), nil, llm, cache.NewMemoryProvider(),
		config.NarrativeConfig{UseLLM: true, CacheTTL: time.Minute}, policyFixture())

	first := copilot.Narrative(context.Background())
	if first.Narrative != "generated narrative" {
		t.Fatalf("unexpected narrative: %q", first.Narrative)
	}
	if hits != 1 {
		t.Fatalf("expected one backend call, got %d", hits)
	}

	second := copilot.Narrative(context.Background())
	if second.Narrative != "generated narrative" {
		t.Fatalf("unexpected cached narrative: %q", second.Narrative)
	}
	if hits != 1 {
		t.Fatalf("cache miss triggered backend call; hits=%d", hits)
	}
}

func TestNarrativeFallsBackWhenGenerationFails(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer backend.Close()

	llm := repo.NewLLMClient(backend.URL, "qwen2.5:7b", time.Second)
	copilot := NewCopilot(nil, seededStore(), nil, llm, cache.NewMemoryProvider(),
		config.NarrativeConfig{UseLLM: true, CacheTTL: time.Minute}, policyFixture())

	narrative := copilot.Narrative(context.Background())
	if !strings.HasPrefix(narrative.Narrative, "## System Overview") {
		t.Fatalf("expected template fallback, got:\n%s", narrative.Narrative)
	}
}

func TestEnrichIncidentAttachesAnalysis(t *testing.T) {
	workflowBackend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "exec-1"})
	}))
	defer workflowBackend.Close()

	llmBackend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"response": "fresh root cause analysis"})
	}))
	defer llmBackend.Close()

	incidentStore := seededStore()
	workflow := repo.NewWorkflowClient(workflowBackend.URL, time.Second)
	llm := repo.NewLLMClient(llmBackend.URL, "qwen2.5:7b", time.Second)
	copilot := NewCopilot(nil, incidentStore, workflow, llm, nil, config.NarrativeConfig{}, policyFixture())

	id := incidentStore.List()[0].ID
	enriched, err := copilot.EnrichIncident(context.Background(), id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if enriched.LLMAnalysis != "fresh root cause analysis" {
		t.Fatalf("unexpected analysis: %q", enriched.LLMAnalysis)
	}
}

func TestEnrichIncidentToleratesWorkflowOutage(t *testing.T) {
	llmBackend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"response": "analysis without snapshot"})
	}))
	defer llmBackend.Close()

	incidentStore := seededStore()
	// Workflow engine is unreachable; enrichment must still succeed.
	workflow := repo.NewWorkflowClient("http://127.0.0.1:1", 200*time.Millisecond)
	llm := repo.NewLLMClient(llmBackend.URL, "qwen2.5:7b", time.Second)
	copilot := NewCopilot(nil, incidentStore, workflow, llm, nil, config.NarrativeConfig{}, policyFixture())

	id := incidentStore.List()[0].ID
	enriched, err := copilot.EnrichIncident(context.Background(), id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if enriched.LLMAnalysis != "analysis without snapshot" {
		t.Fatalf("unexpected analysis: %q", enriched.LLMAnalysis)
	}
}

func TestEnrichIncidentUnknownID(t *testing.T) {
	copilot := NewCopilot(nil, store.New(), nil, nil, nil, config.NarrativeConfig{}, policyFixture())
	if _, err := copilot.EnrichIncident(context.Background(), "missing"); err == nil {
		t.Fatalf("expected error for unknown incident")
	}
}
