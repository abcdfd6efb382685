// Package scoring holds the pure factor models, the aggregator and the
// decision table. Every function here is deterministic over its inputs and a
// Config; persistence and scheduling live in the service package.
package scoring

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Harshitk-cp/veritas/internal/domain"
	"gopkg.in/yaml.v3"
)

type FreshnessConfig struct {
	DefaultHalfLifeDays float64            `yaml:"default_half_life_days"`
	HalfLifeDays        map[string]float64 `yaml:"half_life_days"`
}

type CredibilityConfig struct {
	UnknownBaseline   float64            `yaml:"unknown_baseline"`
	SuccessWeight     float64            `yaml:"success_weight"`
	ExperienceWeight  float64            `yaml:"experience_weight"`
	TenureWeight      float64            `yaml:"tenure_weight"`
	CorrectionPenalty float64            `yaml:"correction_penalty"`
	ExperienceCap     int                `yaml:"experience_cap"`
	TenureCapDays     float64            `yaml:"tenure_cap_days"`
	AgentWeight       float64            `yaml:"agent_weight"`
	RoleWeight        float64            `yaml:"role_weight"`
	SourceTypeWeight  float64            `yaml:"source_type_weight"`
	RoleTrust         map[string]float64 `yaml:"role_trust"`
	SourceTypeTrust   map[string]float64 `yaml:"source_type_trust"`
	DefaultTrust      float64            `yaml:"default_trust"`
}

type VerificationConfig struct {
	BaseScores     map[string]float64 `yaml:"base_scores"`
	BonusIncrement float64            `yaml:"bonus_increment"`
	BonusCap       float64            `yaml:"bonus_cap"`
	NegativeWindow time.Duration      `yaml:"negative_window"`
}

type UsageConfig struct {
	Window     time.Duration `yaml:"window"`
	MinSamples int           `yaml:"min_samples"`
}

type ConsensusConfig struct {
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	AgentSaturation     int     `yaml:"agent_saturation"`
	DiversityWeight     float64 `yaml:"diversity_weight"`
	CitationPenalty     float64 `yaml:"citation_penalty"`
	ScanPageSize        int     `yaml:"scan_page_size"`
}

type ContradictionConfig struct {
	ExclusivePairs       [][2]string        `yaml:"exclusive_pairs"`
	AttributeWeights     map[string]float64 `yaml:"attribute_weights"`
	DefaultAttrWeight    float64            `yaml:"default_attribute_weight"`
	TemporalWindow       time.Duration      `yaml:"temporal_window"`
	CredibilityMargin    float64            `yaml:"credibility_margin"`
	ConsensusMargin      int                `yaml:"consensus_margin"`
	UnresolvedPenalty    float64            `yaml:"unresolved_penalty"`
	PenaltyCap           float64            `yaml:"penalty_cap"`
	LoserScore           float64            `yaml:"loser_score"`
	MaxResolveAttempts   int                `yaml:"max_resolve_attempts"`
	SimilarCandidateScan int                `yaml:"similar_candidate_scan"`
}

type RelevanceConfig struct {
	ProjectWeight  float64 `yaml:"project_weight"`
	TeamWeight     float64 `yaml:"team_weight"`
	CategoryWeight float64 `yaml:"category_weight"`
	SystemsWeight  float64 `yaml:"systems_weight"`
	TaskWeight     float64 `yaml:"task_weight"`
}

type DecisionConfig struct {
	Thresholds   map[string]float64 `yaml:"thresholds"`
	VerifyMargin float64            `yaml:"verify_margin"`
}

type LearningConfig struct {
	Window       time.Duration `yaml:"window"`
	MinSamples   int           `yaml:"min_samples"`
	MinWeight    float64       `yaml:"min_weight"`
	MaxWeight    float64       `yaml:"max_weight"`
	MaxStep      float64       `yaml:"max_step"`
	Iterations   int           `yaml:"iterations"`
	LearningRate float64       `yaml:"learning_rate"`
	Bins         int           `yaml:"bins"`
}

// Config carries every scoring tunable. Defaults are compiled in; a YAML file
// may override any subset of them.
type Config struct {
	Weights       domain.WeightSet    `yaml:"weights"`
	Freshness     FreshnessConfig     `yaml:"freshness"`
	Credibility   CredibilityConfig   `yaml:"credibility"`
	Verification  VerificationConfig  `yaml:"verification"`
	Usage         UsageConfig         `yaml:"usage"`
	Consensus     ConsensusConfig     `yaml:"consensus"`
	Contradiction ContradictionConfig `yaml:"contradiction"`
	Relevance     RelevanceConfig     `yaml:"relevance"`
	Decision      DecisionConfig      `yaml:"decision"`
	Learning      LearningConfig      `yaml:"learning"`
	// ProbeHosts maps an extracted entity name to the host a connectivity probe dials.
	ProbeHosts map[string]string `yaml:"probe_hosts"`
}

const day = 24 * time.Hour

func DefaultConfig() *Config {
	return &Config{
		Weights: domain.DefaultWeights(),
		Freshness: FreshnessConfig{
			DefaultHalfLifeDays: 30,
			HalfLifeDays: map[string]float64{
				"security":       7,
				"credentials":    7,
				"incident":       14,
				"infrastructure": 30,
				"configuration":  30,
				"api":            60,
				"documentation":  90,
				"architecture":   120,
				"procedure":      180,
			},
		},
		Credibility: CredibilityConfig{
			UnknownBaseline:   0.5,
			SuccessWeight:     0.60,
			ExperienceWeight:  0.25,
			TenureWeight:      0.15,
			CorrectionPenalty: 0.05,
			ExperienceCap:     50,
			TenureCapDays:     180,
			AgentWeight:       0.5,
			RoleWeight:        0.3,
			SourceTypeWeight:  0.2,
			RoleTrust: map[string]float64{
				string(domain.RoleAdmin):    0.9,
				string(domain.RoleSenior):   0.8,
				string(domain.RoleEngineer): 0.7,
				string(domain.RoleAgent):    0.6,
				string(domain.RoleGuest):    0.4,
			},
			SourceTypeTrust: map[string]float64{
				string(domain.SourceTested):     0.95,
				string(domain.SourceObserved):   0.85,
				string(domain.SourceDocumented): 0.80,
				string(domain.SourceInferred):   0.60,
				string(domain.SourceHearsay):    0.40,
			},
			DefaultTrust: 0.5,
		},
		Verification: VerificationConfig{
			BaseScores: map[string]float64{
				string(domain.VerificationConfirmed):      0.95,
				string(domain.VerificationStillValid):     0.85,
				string(domain.VerificationPartiallyValid): 0.60,
				string(domain.VerificationOutdated):       0.20,
				string(domain.VerificationIncorrect):      0.05,
			},
			BonusIncrement: 0.02,
			BonusCap:       0.05,
			NegativeWindow: 24 * time.Hour,
		},
		Usage: UsageConfig{
			Window:     90 * day,
			MinSamples: 10,
		},
		Consensus: ConsensusConfig{
			SimilarityThreshold: 0.82,
			AgentSaturation:     10,
			DiversityWeight:     0.3,
			CitationPenalty:     0.5,
			ScanPageSize:        2000,
		},
		Contradiction: ContradictionConfig{
			ExclusivePairs: [][2]string{
				{"running", "stopped"},
				{"up", "down"},
				{"enabled", "disabled"},
				{"active", "inactive"},
				{"online", "offline"},
				{"open", "closed"},
				{"healthy", "unhealthy"},
				{"available", "unavailable"},
			},
			AttributeWeights: map[string]float64{
				"port":    1.0,
				"host":    1.0,
				"version": 1.0,
				"state":   0.9,
			},
			DefaultAttrWeight:    0.7,
			TemporalWindow:       30 * day,
			CredibilityMargin:    0.15,
			ConsensusMargin:      2,
			UnresolvedPenalty:    0.4,
			PenaltyCap:           0.8,
			LoserScore:           0.3,
			MaxResolveAttempts:   5,
			SimilarCandidateScan: 25,
		},
		Relevance: RelevanceConfig{
			ProjectWeight:  0.30,
			TeamWeight:     0.25,
			CategoryWeight: 0.20,
			SystemsWeight:  0.15,
			TaskWeight:     0.10,
		},
		Decision: DecisionConfig{
			Thresholds: map[string]float64{
				string(domain.RiskLow):      0.40,
				string(domain.RiskMedium):   0.60,
				string(domain.RiskHigh):     0.75,
				string(domain.RiskCritical): 0.90,
			},
			VerifyMargin: 0.10,
		},
		Learning: LearningConfig{
			Window:       30 * day,
			MinSamples:   50,
			MinWeight:    0.02,
			MaxWeight:    0.40,
			MaxStep:      0.05,
			Iterations:   500,
			LearningRate: 0.05,
			Bins:         5,
		},
		ProbeHosts: map[string]string{},
	}
}

// LoadConfig overlays the YAML file at path onto DefaultConfig. An empty path
// returns the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scoring config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse scoring config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := c.Weights.Validate(); err != nil {
		return err
	}
	if c.Freshness.DefaultHalfLifeDays <= 0 {
		return fmt.Errorf("freshness.default_half_life_days must be positive")
	}
	for cat, hl := range c.Freshness.HalfLifeDays {
		if hl <= 0 {
			return fmt.Errorf("freshness.half_life_days[%s] must be positive", cat)
		}
	}
	if c.Usage.MinSamples < 0 {
		return fmt.Errorf("usage.min_samples must not be negative")
	}
	if c.Consensus.SimilarityThreshold <= 0 || c.Consensus.SimilarityThreshold > 1 {
		return fmt.Errorf("consensus.similarity_threshold must be in (0,1]")
	}
	if c.Learning.MinWeight < 0 || c.Learning.MaxWeight > 1 || c.Learning.MinWeight > c.Learning.MaxWeight {
		return fmt.Errorf("learning weight bounds are inconsistent")
	}
	for _, risk := range []domain.ActionRisk{domain.RiskLow, domain.RiskMedium, domain.RiskHigh, domain.RiskCritical} {
		if _, ok := c.Decision.Thresholds[string(risk)]; !ok {
			return fmt.Errorf("decision.thresholds missing %s", risk)
		}
	}
	return nil
}

func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
