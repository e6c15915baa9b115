package eval

import (
	"fmt"
	"math"

	"github.com/danielpatrickdp/adaptive-coach/internal/prescription"
)

// #region eval-harness
// EvalHarness runs lightweight validation on generated plans.
type EvalHarness struct {
	config EvalConfig
}

// NewEvalHarness creates an eval harness with the given configuration.
func NewEvalHarness(config EvalConfig) *EvalHarness {
	return &EvalHarness{config: config}
}

// Run checks a generated plan and, when present, its adjusted variant.
// requestedMin is the duration the caller asked for.
func (h *EvalHarness) Run(original prescription.Plan, adjusted *prescription.Plan, requestedMin int) EvalResult {
	var metrics []EvalMetric
	passed := true
	var failReasons []string

	if original.Sport == prescription.Rest {
		return EvalResult{Passed: true, Reason: "rest day"}
	}

	// 1. A main (or strength) section with at least one block
	mainPass := hasMainSet(original)
	metrics = append(metrics, EvalMetric{Name: "main_set", Value: boolValue(mainPass), Pass: mainPass})
	if !mainPass {
		passed = false
		failReasons = append(failReasons, "plan has no main set")
	}

	// 2. Estimated minutes close to the request
	est := h.EstimateMinutes(original)
	drift := float32(0)
	if requestedMin > 0 {
		drift = float32(math.Abs(est-float64(requestedMin)) / float64(requestedMin))
	}
	durationPass := drift <= h.config.DurationTolerance
	metrics = append(metrics, EvalMetric{Name: "duration_drift", Value: drift, Pass: durationPass})
	if !durationPass {
		passed = false
		failReasons = append(failReasons, fmt.Sprintf("estimated %.0f min vs requested %d", est, requestedMin))
	}

	// 3. Adjusted plan strictly easier: lower load, no harder peak
	if adjusted != nil {
		origLoad, adjLoad := h.Load(original), h.Load(*adjusted)
		ratio := float32(0)
		if origLoad > 0 {
			ratio = float32(adjLoad / origLoad)
		}
		easierPass := adjLoad < origLoad && peakEffort(*adjusted) <= peakEffort(original)
		metrics = append(metrics, EvalMetric{Name: "adjusted_load_ratio", Value: ratio, Pass: easierPass})
		if !easierPass {
			passed = false
			failReasons = append(failReasons, fmt.Sprintf("adjusted plan is not easier (load ratio %.2f)", ratio))
		}
	}

	reason := "all checks passed"
	if !passed {
		reason = fmt.Sprintf("eval failed: %s", failReasons[0])
		if len(failReasons) > 1 {
			reason = fmt.Sprintf("eval failed: %d checks: %s", len(failReasons), failReasons[0])
		}
	}

	return EvalResult{
		Passed:  passed,
		Metrics: metrics,
		Reason:  reason,
	}
}

// #endregion eval-harness

// #region load
// EstimateMinutes sums work and rest time over every block.
func (h *EvalHarness) EstimateMinutes(p prescription.Plan) float64 {
	var sec float64
	for _, s := range p.Sections {
		for _, b := range s.Blocks {
			sec += h.blockSeconds(b) + float64((b.RepCount()-1)*b.RestSec)
		}
	}
	return sec / 60
}

// Load is effort-weighted work time over every block.
func (h *EvalHarness) Load(p prescription.Plan) float64 {
	var load float64
	for _, s := range p.Sections {
		for _, b := range s.Blocks {
			effort := 1
			if b.Intensity != nil {
				effort = b.Intensity.Effort()
			}
			load += h.blockSeconds(b) * float64(effort)
		}
	}
	return load
}

func (h *EvalHarness) blockSeconds(b prescription.Block) float64 {
	if b.DurationSec > 0 {
		return float64(b.WorkSec())
	}
	return float64(b.TotalDistanceM()*h.config.SwimSecPer100) / 100
}

// #endregion load

// #region helpers
func hasMainSet(p prescription.Plan) bool {
	for _, t := range []prescription.SectionType{prescription.SectionMain, prescription.SectionStrength} {
		if s, ok := p.Section(t); ok && len(s.Blocks) > 0 {
			return true
		}
	}
	return false
}

func peakEffort(p prescription.Plan) int {
	peak := 0
	for _, s := range p.Sections {
		for _, b := range s.Blocks {
			if b.Intensity != nil && b.Intensity.Effort() > peak {
				peak = b.Intensity.Effort()
			}
		}
	}
	return peak
}

func boolValue(b bool) float32 {
	if b {
		return 1
	}
	return 0
}

// #endregion helpers
