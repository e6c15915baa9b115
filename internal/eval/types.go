package eval

// #region eval-config
// EvalConfig holds thresholds for post-generation plan checks.
type EvalConfig struct {
	DurationTolerance float32 // reject if estimated minutes drift more than this fraction
	SwimSecPer100     int     // pace used to estimate time of distance blocks
}

// DefaultEvalConfig returns the standard tolerances.
func DefaultEvalConfig() EvalConfig {
	return EvalConfig{
		DurationTolerance: 0.2,
		SwimSecPer100:     120,
	}
}

// #endregion eval-config

// #region eval-metric
// EvalMetric captures a single validation check result.
type EvalMetric struct {
	Name  string
	Value float32
	Pass  bool
}

// #endregion eval-metric

// #region eval-result
// EvalResult is the output of plan validation.
type EvalResult struct {
	Passed  bool
	Metrics []EvalMetric
	Reason  string
}

// #endregion eval-result
