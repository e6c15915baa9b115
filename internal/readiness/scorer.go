package readiness

import (
	"fmt"
	"math"
	"sort"

	"github.com/danielpatrickdp/adaptive-coach/internal/signals"
)

// #region scorer

// Scorer turns signal sources into a readiness result. It holds no state.
type Scorer struct {
	config Config
}

// NewScorer creates a Scorer with the given configuration.
func NewScorer(config Config) *Scorer {
	return &Scorer{config: config}
}

// Config returns the scorer's configuration.
func (s *Scorer) Config() Config {
	return s.config
}

// #endregion scorer

// #region score

// Score computes readiness for one user and date. A check-in with at least one
// answered signal is authoritative; otherwise diary and load signals are used.
// With neither, the typed insufficient result is returned.
func (s *Scorer) Score(src signals.Sources) Result {
	if src.HasCheckIn() {
		factors, missing := s.checkInFactors(src.CheckIn)
		return s.build(factors, missing, s.config.CheckInMaxSignals, SourceCheckIn)
	}
	factors, missing := s.fallbackFactors(src.Diary, src.Load)
	if len(factors) == 0 {
		return Result{
			Score:      nil,
			Factors:    []Factor{},
			Confidence: 0,
			Missing:    []string{"checkin"},
		}
	}
	return s.build(factors, missing, s.config.EstimatedMaxSignals, SourceEstimated)
}

func (s *Scorer) build(factors []Factor, missing []string, maxSignals int, source Source) Result {
	total := s.config.Baseline
	for _, f := range factors {
		total += f.Impact
	}
	score := int(math.Round(clamp(total, 0, 100)))

	// Stable: ties keep signal-definition order.
	sort.SliceStable(factors, func(i, j int) bool {
		return math.Abs(factors[i].Impact) > math.Abs(factors[j].Impact)
	})
	for i := range factors {
		factors[i].Impact = round1(factors[i].Impact)
	}

	return Result{
		Score:      &score,
		Status:     s.classify(score),
		Factors:    factors,
		Confidence: s.confidence(len(factors), maxSignals),
		Source:     source,
		Missing:    missing,
	}
}

func (s *Scorer) classify(score int) Status {
	switch {
	case score >= s.config.OptimalAt:
		return StatusOptimal
	case score >= s.config.CautionAt:
		return StatusCaution
	}
	return StatusFatigued
}

// confidence is proportional to the signals used, bounded to [MinConfidence, 100].
func (s *Scorer) confidence(used, maxSignals int) int {
	if maxSignals <= 0 {
		return s.config.MinConfidence
	}
	c := int(math.Round(float64(used) / float64(maxSignals) * 100))
	if c < s.config.MinConfidence {
		c = s.config.MinConfidence
	}
	if c > 100 {
		c = 100
	}
	return c
}

// #endregion score

// #region checkin-factors

func (s *Scorer) checkInFactors(c *signals.CheckIn) ([]Factor, []string) {
	var factors []Factor
	var missing []string

	if c.SleepQuality != nil {
		factors = append(factors, sleepQualityFactor(*c.SleepQuality))
	} else {
		missing = append(missing, "sleep_quality")
	}
	if c.SleepDurationHrs != nil {
		factors = append(factors, sleepDurationFactor(*c.SleepDurationHrs, s.config.SleepOptimumHrs))
	} else {
		missing = append(missing, "sleep_duration")
	}
	if c.MentalReadiness != nil {
		v := *c.MentalReadiness
		factors = append(factors, Factor{
			Key:         "mental_readiness",
			Name:        "Mental readiness",
			Impact:      clamp(float64(v-3)*6, -12, 12),
			Description: fmt.Sprintf("Mental readiness %d/5", v),
		})
	} else {
		missing = append(missing, "mental_readiness")
	}
	if c.PhysicalFatigue != nil {
		v := *c.PhysicalFatigue
		factors = append(factors, Factor{
			Key:         "physical_fatigue",
			Name:        "Physical fatigue",
			Impact:      clamp(float64(3-v)*6, -12, 12),
			Description: fmt.Sprintf("Physical fatigue %d/5", v),
		})
	} else {
		missing = append(missing, "physical_fatigue")
	}
	if c.StressLevel != nil {
		factors = append(factors, stressFactor(*c.StressLevel))
	} else {
		missing = append(missing, "stress")
	}
	if c.MuscleSoreness != nil {
		factors = append(factors, sorenessCategoryFactor(*c.MuscleSoreness))
	} else {
		missing = append(missing, "soreness")
	}
	if c.Motivation != nil {
		v := *c.Motivation
		factors = append(factors, Factor{
			Key:         "motivation",
			Name:        "Motivation",
			Impact:      clamp(float64(v-3)*3, -6, 6),
			Description: fmt.Sprintf("Motivation %d/5", v),
		})
	} else {
		missing = append(missing, "motivation")
	}
	return factors, missing
}

// #endregion checkin-factors

// #region fallback-factors

// fallbackFactors scores diary and load signals. Missing signals add nothing.
func (s *Scorer) fallbackFactors(d *signals.DiarySignals, l *signals.LoadSignals) ([]Factor, []string) {
	var factors []Factor
	var missing []string
	if d == nil {
		d = &signals.DiarySignals{}
	}
	if l == nil {
		l = &signals.LoadSignals{}
	}

	if d.SleepQual != nil {
		factors = append(factors, sleepQualityFactor(*d.SleepQual))
	} else {
		missing = append(missing, "sleep_quality")
	}
	if d.SleepHrs != nil {
		factors = append(factors, sleepDurationFactor(*d.SleepHrs, s.config.SleepOptimumHrs))
	} else {
		missing = append(missing, "sleep_duration")
	}
	if d.Mood != nil {
		factors = append(factors, Factor{
			Key:         "mood",
			Name:        "Mood",
			Impact:      clamp(float64(*d.Mood-3)*6, -12, 12),
			Description: fmt.Sprintf("Mood %d/5", *d.Mood),
		})
	} else {
		missing = append(missing, "mood")
	}
	if d.Energy != nil {
		factors = append(factors, Factor{
			Key:         "energy",
			Name:        "Energy",
			Impact:      clamp(float64(*d.Energy-3)*6, -12, 12),
			Description: fmt.Sprintf("Energy %d/5", *d.Energy),
		})
	} else {
		missing = append(missing, "energy")
	}
	if d.Stress != nil {
		factors = append(factors, stressFactor(*d.Stress))
	} else {
		missing = append(missing, "stress")
	}
	if d.Soreness != nil {
		factors = append(factors, Factor{
			Key:         "soreness",
			Name:        "Soreness",
			Impact:      clamp(float64(3-*d.Soreness)*6, -12, 12),
			Description: fmt.Sprintf("Soreness %d/5", *d.Soreness),
		})
	} else {
		missing = append(missing, "soreness")
	}
	if l.TSB != nil {
		factors = append(factors, Factor{
			Key:         "tsb",
			Name:        "Training stress balance",
			Impact:      clamp(*l.TSB*0.75, -15, 15),
			Description: fmt.Sprintf("Form (TSB) %+.1f", *l.TSB),
		})
	} else {
		missing = append(missing, "tsb")
	}
	if l.ATL != nil && l.CTL != nil && *l.CTL > 0 {
		ratio := *l.ATL / *l.CTL
		factors = append(factors, Factor{
			Key:         "load_ratio",
			Name:        "Acute:chronic load",
			Impact:      loadRatioImpact(ratio),
			Description: fmt.Sprintf("Acute:chronic load ratio %.2f", ratio),
		})
	} else {
		missing = append(missing, "load_ratio")
	}
	if l.HRVDeviationPct != nil {
		v := *l.HRVDeviationPct
		factors = append(factors, Factor{
			Key:         "hrv",
			Name:        "HRV",
			Impact:      clamp(v*0.5, -15, 10),
			Description: fmt.Sprintf("HRV %+.0f%% vs baseline", v),
		})
	} else {
		missing = append(missing, "hrv")
	}
	return factors, missing
}

// #endregion fallback-factors

// #region shared-factors

func sleepQualityFactor(q int) Factor {
	return Factor{
		Key:         "sleep_quality",
		Name:        "Sleep quality",
		Impact:      clamp(float64(q-3)*8, -16, 16),
		Description: fmt.Sprintf("Sleep quality %d/5", q),
	}
}

// sleepDurationFactor peaks at +8 on the optimum and loses 8 points per hour of
// deviation, bottoming out at -12.
func sleepDurationFactor(hrs, optimum float64) Factor {
	return Factor{
		Key:         "sleep_duration",
		Name:        "Sleep duration",
		Impact:      clamp(8-math.Abs(hrs-optimum)*8, -12, 8),
		Description: fmt.Sprintf("Slept %.1fh (optimum ~%.1fh)", hrs, optimum),
	}
}

func stressFactor(v int) Factor {
	return Factor{
		Key:         "stress",
		Name:        "Stress",
		Impact:      clamp(float64(3-v)*5, -10, 10),
		Description: fmt.Sprintf("Stress %d/5", v),
	}
}

func sorenessCategoryFactor(s signals.Soreness) Factor {
	var impact float64
	switch s {
	case signals.SorenessNone:
		impact = 6
	case signals.SorenessMild:
		impact = 0
	case signals.SorenessModerate:
		impact = -6
	case signals.SorenessSevere:
		impact = -12
	}
	return Factor{
		Key:         "soreness",
		Name:        "Muscle soreness",
		Impact:      impact,
		Description: fmt.Sprintf("Muscle soreness %s", s),
	}
}

// loadRatioImpact rewards a ratio at or below 0.8 with +3, is neutral at 1.0
// and penalises spikes down to -10.
func loadRatioImpact(r float64) float64 {
	switch {
	case r <= 0.8:
		return 3
	case r <= 1.0:
		return 3 * (1.0 - r) / 0.2
	}
	return clamp(-(r-1.0)*20, -10, 0)
}

// #endregion shared-factors

// #region helpers

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// #endregion helpers
