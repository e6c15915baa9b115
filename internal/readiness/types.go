package readiness

// #region status

// Status classifies a readiness score.
type Status string

const (
	StatusOptimal  Status = "OPTIMAL"
	StatusCaution  Status = "CAUTION"
	StatusFatigued Status = "FATIGUED"
)

// Source records which signal family produced the score.
type Source string

const (
	SourceCheckIn   Source = "checkin"
	SourceEstimated Source = "estimated"
)

// #endregion status

// #region factor

// Factor is one signal's signed contribution to the score.
type Factor struct {
	Key         string  `json:"key"`
	Name        string  `json:"name"`
	Impact      float64 `json:"impact"`
	Description string  `json:"description"`
}

// #endregion factor

// #region result

// Result is the scorer output. A nil Score with an empty Source means there was
// no data for the date; callers render a call to action instead of a number.
type Result struct {
	Score      *int     `json:"score"`
	Status     Status   `json:"status,omitempty"`
	Factors    []Factor `json:"factors"`
	Confidence int      `json:"confidence"`
	Source     Source   `json:"source,omitempty"`
	Missing    []string `json:"missing,omitempty"`
}

// Insufficient reports the typed "no data" result.
func (r Result) Insufficient() bool {
	return r.Score == nil
}

// Value returns the score, or -1 when insufficient.
func (r Result) Value() int {
	if r.Score == nil {
		return -1
	}
	return *r.Score
}

// ConfidenceLevel buckets Confidence for display.
func (r Result) ConfidenceLevel() string {
	switch {
	case r.Score == nil || r.Confidence < 50:
		return "low"
	case r.Confidence < 75:
		return "medium"
	}
	return "high"
}

// Top returns at most n factors, highest impact first.
func (r Result) Top(n int) []Factor {
	if n >= len(r.Factors) {
		return r.Factors
	}
	return r.Factors[:n]
}

// #endregion result

// #region config

// Config holds the scoring baseline, thresholds, and confidence bounds.
type Config struct {
	Baseline            float64 // neutral starting score
	OptimalAt           int     // score >= this is OPTIMAL
	CautionAt           int     // score >= this is CAUTION
	SleepOptimumHrs     float64 // sleep duration with the best contribution
	CheckInMaxSignals   int     // signals a complete check-in carries
	EstimatedMaxSignals int     // signals a complete diary+load fallback carries
	MinConfidence       int     // confidence floor for any scored result
}

// DefaultConfig returns the standard scoring parameters.
func DefaultConfig() Config {
	return Config{
		Baseline:            70,
		OptimalAt:           70,
		CautionAt:           45,
		SleepOptimumHrs:     7.5,
		CheckInMaxSignals:   7,
		EstimatedMaxSignals: 9,
		MinConfidence:       20,
	}
}

// #endregion config
