package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/flowlens/flowlens-api/internal/models"
)

// Config captures the settings required to boot the FlowLens backend.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Workflow  WorkflowConfig  `yaml:"workflow"`
	LLM       LLMConfig       `yaml:"llm"`
	Narrative NarrativeConfig `yaml:"narrative"`
	Logging   LoggingConfig   `yaml:"logging"`
	Policy    PolicyConfig    `yaml:"policy"`
}

// ServerConfig controls HTTP listener behaviour.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// WorkflowConfig configures access to the workflow engine.
type WorkflowConfig struct {
	BaseURL string        `yaml:"baseURL"`
	Timeout time.Duration `yaml:"timeout"`
}

// LLMConfig configures the text-generation backend.
type LLMConfig struct {
	BaseURL string        `yaml:"baseURL"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// NarrativeConfig controls how the /api/narrative text is produced.
type NarrativeConfig struct {
	UseLLM   bool          `yaml:"useLLM"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// PolicyConfig holds the static policy-model quality counters served by
// /api/metrics. They are configured, not derived from the incident store.
type PolicyConfig struct {
	DecisionAccuracy         float64 `yaml:"decisionAccuracy"`
	FalsePositiveRate        float64 `yaml:"falsePositiveRate"`
	AvgResponseTime          float64 `yaml:"avgResponseTime"`
	ActionsAutoApproved      int     `yaml:"actionsAutoApproved"`
	ActionsRequiringApproval int     `yaml:"actionsRequiringApproval"`
	ModelVersion             string  `yaml:"modelVersion"`
}

// Metrics converts the configured values into the wire model.
func (p PolicyConfig) Metrics() models.PolicyMetrics {
	return models.PolicyMetrics{
		DecisionAccuracy:         p.DecisionAccuracy,
		FalsePositiveRate:        p.FalsePositiveRate,
		AvgResponseTime:          p.AvgResponseTime,
		ActionsAutoApproved:      p.ActionsAutoApproved,
		ActionsRequiringApproval: p.ActionsRequiringApproval,
		ModelVersion:             p.ModelVersion,
	}
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("FLOWLENS_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":8000",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		Workflow: WorkflowConfig{
			BaseURL: "http://localhost:8080",
			Timeout: 30 * time.Second,
		},
		LLM: LLMConfig{
			BaseURL: "http://localhost:11434",
			Model:   "qwen2.5:7b",
			Timeout: 120 * time.Second,
		},
		Narrative: NarrativeConfig{
			UseLLM:   false,
			CacheTTL: time.Minute,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Policy: PolicyConfig{
			DecisionAccuracy:         0.94,
			FalsePositiveRate:        0.03,
			AvgResponseTime:          1.2,
			ActionsAutoApproved:      156,
			ActionsRequiringApproval: 23,
			ModelVersion:             "policy-v1.2.0",
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FLOWLENS_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("FLOWLENS_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("FLOWLENS_WORKFLOW_URL"); v != "" {
		cfg.Workflow.BaseURL = v
	}
	if v := os.Getenv("FLOWLENS_WORKFLOW_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Workflow.Timeout = d
		}
	}
	if v := os.Getenv("FLOWLENS_LLM_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("FLOWLENS_LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("FLOWLENS_LLM_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.LLM.Timeout = d
		}
	}
	if v := os.Getenv("FLOWLENS_NARRATIVE_USE_LLM"); v != "" {
		cfg.Narrative.UseLLM = strings.EqualFold(v, "true") || strings.EqualFold(v, "1")
	}
	if v := os.Getenv("FLOWLENS_NARRATIVE_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Narrative.CacheTTL = d
		}
	}
	if v := os.Getenv("FLOWLENS_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("FLOWLENS_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("FLOWLENS_POLICY_MODEL_VERSION"); v != "" {
		cfg.Policy.ModelVersion = v
	}
	if v := os.Getenv("FLOWLENS_POLICY_DECISION_ACCURACY"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Policy.DecisionAccuracy = f
		}
	}
}
