package workout

import "time"

// #region workout

// Workout is one scheduled session record.
type Workout struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Date         time.Time `json:"date"`
	Type         string    `json:"type"` // run | bike | swim | strength | rest | other
	Title        string    `json:"title"`
	DurationMin  int       `json:"duration_min"`
	Prescription string    `json:"prescription"`
	PlanJSON     string    `json:"plan_json,omitempty"`
	AISource     string    `json:"ai_source,omitempty"`
	AINote       string    `json:"ai_note,omitempty"`
	AIConfidence int       `json:"ai_confidence,omitempty"`
}

// #endregion workout

// #region fields

// Field names one patchable column group of a Workout.
type Field string

const (
	FieldPrescription Field = "prescription"
	FieldPlan         Field = "plan_json"
	FieldAIMeta       Field = "ai_meta" // ai_source, ai_note, ai_confidence
	FieldDate         Field = "date"
	FieldDuration     Field = "duration_min"
	FieldTitle        Field = "title"
	FieldType         Field = "type"
)

// #endregion fields

// #region applied-patch

// AppliedPatch is a committed patch with the before-values needed to revert it.
type AppliedPatch struct {
	ID         string     `json:"id"`
	WorkoutID  string     `json:"workout_id"`
	Forward    Patch      `json:"forward"`
	Inverse    Patch      `json:"inverse"`
	AppliedAt  time.Time  `json:"applied_at"`
	RevertedAt *time.Time `json:"reverted_at,omitempty"`
}

// Reverted reports whether the patch has already been inverted.
func (a AppliedPatch) Reverted() bool {
	return a.RevertedAt != nil
}

// #endregion applied-patch
