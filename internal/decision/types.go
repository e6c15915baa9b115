package decision

// #region action

// Action is the closed vocabulary of recommendations.
type Action string

const (
	ActionProceed         Action = "PROCEED"
	ActionReduceIntensity Action = "REDUCE_INTENSITY"
	ActionShorten         Action = "SHORTEN"
	ActionSwapRecovery    Action = "SWAP_RECOVERY"
	ActionRest            Action = "REST"
)

// #endregion action

// #region decision

// Explanation is carried by every decision variant. Text always contains a
// "because" clause and, below the guardrail confidence, a confidence percentage.
type Explanation struct {
	Because    string `json:"because"`
	Confidence int    `json:"confidence"`
	Text       string `json:"text"`
}

// Explain returns the explanation itself; promoted onto every variant.
func (e Explanation) Explain() Explanation { return e }

func (Explanation) sealed() {}

// Decision is a sum type; the variants below are the only implementations.
type Decision interface {
	Action() Action
	Explain() Explanation
	sealed()
}

// Proceed keeps the scheduled session unchanged.
type Proceed struct {
	Explanation
}

// ReduceIntensity keeps the session but scales main-set intensity.
type ReduceIntensity struct {
	Explanation
	IntensityScale float64 `json:"intensity_scale"`
}

// Shorten keeps the session type but scales its duration.
type Shorten struct {
	Explanation
	DurationScale float64 `json:"duration_scale"`
	TargetMinutes int     `json:"target_minutes,omitempty"`
}

// SwapRecovery replaces the session with easy recovery work.
type SwapRecovery struct {
	Explanation
	RecoveryMinutes int `json:"recovery_minutes"`
}

// Rest replaces the session with a rest day.
type Rest struct {
	Explanation
}

func (Proceed) Action() Action         { return ActionProceed }
func (ReduceIntensity) Action() Action { return ActionReduceIntensity }
func (Shorten) Action() Action         { return ActionShorten }
func (SwapRecovery) Action() Action    { return ActionSwapRecovery }
func (Rest) Action() Action            { return ActionRest }

// ChangesPlan reports whether d implies an edit to the scheduled workout.
func ChangesPlan(d Decision) bool {
	return d.Action() != ActionProceed
}

// #endregion decision

// #region workout-meta

// WorkoutMeta is the scheduled-session context the mapper needs.
type WorkoutMeta struct {
	ID          string
	Title       string
	Type        string // run | bike | swim | strength | rest | other
	DurationMin int
	Hard        bool // session carries intensity work (tempo, intervals, threshold)
}

// #endregion workout-meta

// #region config

// Config holds the decision thresholds and scaling factors.
type Config struct {
	RestAtOrBelow       int     // score <= this is REST regardless of flags
	IntensityScale      float64 // REDUCE_INTENSITY main-set multiplier
	DurationScale       float64 // SHORTEN duration multiplier
	RecoveryMinutes     int     // SWAP_RECOVERY session length
	GuardrailConfidence int     // below this the text must state the confidence
	NoDataConfidence    int     // confidence of the PROCEED given when no data exists
}

// DefaultConfig returns the standard mapping parameters.
func DefaultConfig() Config {
	return Config{
		RestAtOrBelow:       30,
		IntensityScale:      0.85,
		DurationScale:       0.7,
		RecoveryMinutes:     30,
		GuardrailConfidence: 70,
		NoDataConfidence:    20,
	}
}

// #endregion config
