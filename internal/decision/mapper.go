package decision

import (
	"fmt"
	"math"
	"strings"

	"github.com/danielpatrickdp/adaptive-coach/internal/readiness"
	"github.com/danielpatrickdp/adaptive-coach/internal/signals"
)

// #region mapper

// Mapper maps a readiness result onto one Decision. It is a pure function holder.
type Mapper struct {
	config Config
}

// NewMapper creates a Mapper with the given configuration.
func NewMapper(config Config) *Mapper {
	return &Mapper{config: config}
}

// Decide checks the hard conditions first (very low score, severe soreness),
// then bands the score. flags come from a fresh check-in and may be nil.
func (m *Mapper) Decide(res readiness.Result, flags []signals.RedFlag, meta WorkoutMeta) Decision {
	session := meta.Title
	if session == "" {
		session = "today's session"
	}

	if res.Insufficient() {
		because := "no check-in or diary data was recorded for today, so the plan stands as scheduled"
		return Proceed{m.explain(fmt.Sprintf("Go ahead with %s as planned", session), because, m.config.NoDataConfidence)}
	}
	if meta.Type == "rest" {
		because := "today is already a rest day"
		return Proceed{m.explain("Keep today as a rest day", because, res.Confidence)}
	}

	score := *res.Score
	severe := signals.Has(flags, signals.FlagSevereSoreness)
	conf := res.Confidence

	// --- Hard pass ---
	if score <= m.config.RestAtOrBelow || (severe && res.Status == readiness.StatusFatigued) {
		because := m.negativeReason(res, flags)
		return Rest{m.explain(fmt.Sprintf("Take a rest day instead of %s", session), because, conf)}
	}
	if severe {
		return m.swap(session, m.negativeReason(res, flags), conf)
	}

	// --- Score bands ---
	switch res.Status {
	case readiness.StatusFatigued:
		if meta.Hard {
			return m.swap(session, m.negativeReason(res, flags), conf)
		}
		return m.shorten(session, meta, m.negativeReason(res, flags), conf)
	case readiness.StatusCaution:
		if meta.Hard {
			return m.reduce(session, m.negativeReason(res, flags), conf)
		}
		if len(flags) > 0 {
			return m.shorten(session, meta, m.negativeReason(res, flags), conf)
		}
	default:
		if meta.Hard && (signals.Has(flags, signals.FlagHighStress) || signals.Has(flags, signals.FlagShortSleep)) {
			return m.reduce(session, m.negativeReason(res, flags), conf)
		}
	}

	return Proceed{m.explain(fmt.Sprintf("Go ahead with %s as planned", session), m.positiveReason(res), conf)}
}

// #endregion mapper

// #region variants

func (m *Mapper) reduce(session, because string, conf int) Decision {
	pct := int(math.Round(m.config.IntensityScale * 100))
	head := fmt.Sprintf("Keep %s but hold the main set to about %d%% of planned intensity", session, pct)
	return ReduceIntensity{Explanation: m.explain(head, because, conf), IntensityScale: m.config.IntensityScale}
}

func (m *Mapper) shorten(session string, meta WorkoutMeta, because string, conf int) Decision {
	target := 0
	head := fmt.Sprintf("Cut %s by about %d%%", session, int(math.Round((1-m.config.DurationScale)*100)))
	if meta.DurationMin > 0 {
		target = int(math.Round(float64(meta.DurationMin) * m.config.DurationScale))
		head = fmt.Sprintf("Shorten %s to about %d minutes", session, target)
	}
	return Shorten{Explanation: m.explain(head, because, conf), DurationScale: m.config.DurationScale, TargetMinutes: target}
}

func (m *Mapper) swap(session, because string, conf int) Decision {
	head := fmt.Sprintf("Swap %s for %d minutes of easy recovery", session, m.config.RecoveryMinutes)
	return SwapRecovery{Explanation: m.explain(head, because, conf), RecoveryMinutes: m.config.RecoveryMinutes}
}

func (m *Mapper) explain(headline, because string, conf int) Explanation {
	text := fmt.Sprintf("%s because %s.", headline, because)
	return Explanation{
		Because:    because,
		Confidence: conf,
		Text:       ApplyGuardrails(text, because, conf, m.config.GuardrailConfidence),
	}
}

// #endregion variants

// #region reasons

// negativeReason ties a downgrade to concrete signals: the first red flag if any,
// otherwise the most negative factor, always followed by the score.
func (m *Mapper) negativeReason(res readiness.Result, flags []signals.RedFlag) string {
	score := fmt.Sprintf("readiness is %d/100", *res.Score)
	if len(flags) > 0 {
		return fmt.Sprintf("%s and %s", flags[0].Reason, score)
	}
	for _, f := range res.Factors {
		if f.Impact < 0 {
			return fmt.Sprintf("%s and %s", lowerFirst(f.Description), score)
		}
	}
	return score
}

func (m *Mapper) positiveReason(res readiness.Result) string {
	score := fmt.Sprintf("readiness is %d/100 (%s)", *res.Score, strings.ToLower(string(res.Status)))
	for _, f := range res.Factors {
		if f.Impact > 0 {
			return fmt.Sprintf("%s and %s", score, lowerFirst(f.Description))
		}
	}
	return score
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// #endregion reasons
