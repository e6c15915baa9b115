// Package config loads coach settings from YAML with environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/danielpatrickdp/adaptive-coach/internal/decision"
	"github.com/danielpatrickdp/adaptive-coach/internal/lock"
	"github.com/danielpatrickdp/adaptive-coach/internal/proposal"
	"github.com/danielpatrickdp/adaptive-coach/internal/prescription"
	"github.com/danielpatrickdp/adaptive-coach/internal/readiness"
	"github.com/danielpatrickdp/adaptive-coach/internal/signals"
	"gopkg.in/yaml.v3"
)

// #region types

// Config holds every tunable of the coach, loaded from YAML and the environment.
type Config struct {
	Database     DatabaseConfig     `yaml:"database"`
	Intent       IntentConfig       `yaml:"intent"`
	Readiness    ReadinessConfig    `yaml:"readiness"`
	Decision     DecisionConfig     `yaml:"decision"`
	Ledger       LedgerConfig       `yaml:"ledger"`
	Prescription PrescriptionConfig `yaml:"prescription"`
	Defaults     DefaultsConfig     `yaml:"defaults"`
}

// DatabaseConfig locates the SQLite file.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// IntentConfig points at the optional remote intent parser.
type IntentConfig struct {
	Addr       string `yaml:"addr"` // empty means keyword parsing only
	TimeoutSec int    `yaml:"timeout_sec"`
}

// ReadinessConfig holds the score baseline and status thresholds.
type ReadinessConfig struct {
	Baseline        float64 `yaml:"baseline"`
	OptimalAt       int     `yaml:"optimal_at"`
	CautionAt       int     `yaml:"caution_at"`
	SleepOptimumHrs float64 `yaml:"sleep_optimum_hrs"`
	MinConfidence   int     `yaml:"min_confidence"`
}

// DecisionConfig holds the red-flag thresholds and adaptation scales.
type DecisionConfig struct {
	RestAtOrBelow       int     `yaml:"rest_at_or_below"`
	StressFlagAt        int     `yaml:"stress_flag_at"`
	ShortSleepHrs       float64 `yaml:"short_sleep_hrs"`
	FatigueFlagAt       int     `yaml:"fatigue_flag_at"`
	IntensityScale      float64 `yaml:"intensity_scale"`
	DurationScale       float64 `yaml:"duration_scale"`
	RecoveryMinutes     int     `yaml:"recovery_minutes"`
	GuardrailConfidence int     `yaml:"guardrail_confidence"`
}

// LedgerConfig controls how a second pending proposal is handled.
type LedgerConfig struct {
	SupersedePending bool `yaml:"supersede_pending"`
}

// PrescriptionConfig shapes generated plans.
type PrescriptionConfig struct {
	WarmupFraction       float64 `yaml:"warmup_fraction"`
	WarmupMinMin         int     `yaml:"warmup_min_min"`
	CooldownFraction     float64 `yaml:"cooldown_fraction"`
	CooldownMinMin       int     `yaml:"cooldown_min_min"`
	DefaultSwimSecPer100 int     `yaml:"default_swim_sec_per_100"`
	AdjustDurationScale  float64 `yaml:"adjust_duration_scale"`
}

// DefaultsConfig holds per-user defaults applied before any setting is stored.
type DefaultsConfig struct {
	Rigidity string `yaml:"rigidity"`
}

// #endregion types

// #region defaults

// Default returns the built-in configuration.
func Default() Config {
	rc := readiness.DefaultConfig()
	dc := decision.DefaultConfig()
	fc := signals.DefaultFlagConfig()
	pc := prescription.DefaultConfig()
	return Config{
		Database: DatabaseConfig{Path: "coach.db"},
		Intent:   IntentConfig{TimeoutSec: 5},
		Readiness: ReadinessConfig{
			Baseline:        rc.Baseline,
			OptimalAt:       rc.OptimalAt,
			CautionAt:       rc.CautionAt,
			SleepOptimumHrs: rc.SleepOptimumHrs,
			MinConfidence:   rc.MinConfidence,
		},
		Decision: DecisionConfig{
			RestAtOrBelow:       dc.RestAtOrBelow,
			StressFlagAt:        fc.StressAtLeast,
			ShortSleepHrs:       fc.SleepBelowHrs,
			FatigueFlagAt:       fc.FatigueAtLeast,
			IntensityScale:      dc.IntensityScale,
			DurationScale:       dc.DurationScale,
			RecoveryMinutes:     dc.RecoveryMinutes,
			GuardrailConfidence: dc.GuardrailConfidence,
		},
		Prescription: PrescriptionConfig{
			WarmupFraction:       pc.WarmupFraction,
			WarmupMinMin:         pc.WarmupMinMin,
			CooldownFraction:     pc.CooldownFraction,
			CooldownMinMin:       pc.CooldownMinMin,
			DefaultSwimSecPer100: pc.DefaultSwimSecPer100,
			AdjustDurationScale:  pc.AdjustDurationScale,
		},
		Defaults: DefaultsConfig{Rigidity: string(lock.Locked1Day)},
	}
}

// #endregion defaults

// #region load

// Load reads path over the defaults, then applies COACH_DB,
// COACH_INTENT_ADDR and COACH_RIGIDITY. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.Database.Path = envOr("COACH_DB", cfg.Database.Path)
	cfg.Intent.Addr = envOr("COACH_INTENT_ADDR", cfg.Intent.Addr)
	cfg.Defaults.Rigidity = envOr("COACH_RIGIDITY", cfg.Defaults.Rigidity)
	if v := os.Getenv("COACH_SUPERSEDE_PENDING"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("COACH_SUPERSEDE_PENDING: %w", err)
		}
		cfg.Ledger.SupersedePending = b
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings that would break the scoring or split invariants.
func (c Config) Validate() error {
	var errs []error
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path is empty"))
	}
	if c.Readiness.CautionAt >= c.Readiness.OptimalAt {
		errs = append(errs, fmt.Errorf("readiness.caution_at (%d) must be below optimal_at (%d)",
			c.Readiness.CautionAt, c.Readiness.OptimalAt))
	}
	if c.Decision.GuardrailConfidence < 0 || c.Decision.GuardrailConfidence > 100 {
		errs = append(errs, fmt.Errorf("decision.guardrail_confidence %d out of range", c.Decision.GuardrailConfidence))
	}
	if f := c.Prescription.WarmupFraction + c.Prescription.CooldownFraction; f <= 0 || f >= 1 {
		errs = append(errs, fmt.Errorf("prescription warm-up plus cool-down fraction %.2f must be in (0,1)", f))
	}
	if _, err := lock.ParseRigidity(c.Defaults.Rigidity); err != nil {
		errs = append(errs, fmt.Errorf("defaults.rigidity: %w", err))
	}
	return errors.Join(errs...)
}

// #endregion load

// #region domain-configs

// ScorerConfig maps the readiness section onto readiness.Config.
func (c Config) ScorerConfig() readiness.Config {
	rc := readiness.DefaultConfig()
	rc.Baseline = c.Readiness.Baseline
	rc.OptimalAt = c.Readiness.OptimalAt
	rc.CautionAt = c.Readiness.CautionAt
	rc.SleepOptimumHrs = c.Readiness.SleepOptimumHrs
	rc.MinConfidence = c.Readiness.MinConfidence
	return rc
}

// MapperConfig maps the decision section onto decision.Config.
func (c Config) MapperConfig() decision.Config {
	dc := decision.DefaultConfig()
	dc.RestAtOrBelow = c.Decision.RestAtOrBelow
	dc.IntensityScale = c.Decision.IntensityScale
	dc.DurationScale = c.Decision.DurationScale
	dc.RecoveryMinutes = c.Decision.RecoveryMinutes
	dc.GuardrailConfidence = c.Decision.GuardrailConfidence
	return dc
}

// FlagConfig maps the red-flag thresholds onto signals.FlagConfig.
func (c Config) FlagConfig() signals.FlagConfig {
	return signals.FlagConfig{
		StressAtLeast:  c.Decision.StressFlagAt,
		SleepBelowHrs:  c.Decision.ShortSleepHrs,
		FatigueAtLeast: c.Decision.FatigueFlagAt,
	}
}

// LedgerSettings maps the ledger section onto proposal.LedgerConfig.
func (c Config) LedgerSettings() proposal.LedgerConfig {
	return proposal.LedgerConfig{SupersedePending: c.Ledger.SupersedePending}
}

// GeneratorConfig maps the prescription section onto prescription.Config.
func (c Config) GeneratorConfig() prescription.Config {
	pc := prescription.DefaultConfig()
	pc.WarmupFraction = c.Prescription.WarmupFraction
	pc.WarmupMinMin = c.Prescription.WarmupMinMin
	pc.CooldownFraction = c.Prescription.CooldownFraction
	pc.CooldownMinMin = c.Prescription.CooldownMinMin
	pc.DefaultSwimSecPer100 = c.Prescription.DefaultSwimSecPer100
	pc.AdjustDurationScale = c.Prescription.AdjustDurationScale
	return pc
}

// DefaultRigidity is applied to users without a stored setting.
func (c Config) DefaultRigidity() lock.Rigidity {
	r, err := lock.ParseRigidity(c.Defaults.Rigidity)
	if err != nil {
		return lock.Locked1Day
	}
	return r
}

// IntentTimeout is the per-call deadline for the remote intent parser.
func (c Config) IntentTimeout() time.Duration {
	return time.Duration(c.Intent.TimeoutSec) * time.Second
}

// #endregion domain-configs

// #region helpers
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
// #endregion helpers
