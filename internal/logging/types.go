package logging

import "time"

// #region provenance-entry
// ProvenanceEntry is a single row in the provenance_log table.
type ProvenanceEntry struct {
	SubjectID   string // workout or proposal id
	UserID      string
	TriggerType string
	SignalsJSON string
	Decision    string
	Reason      string
	CreatedAt   time.Time
}
// #endregion provenance-entry

// #region triggers
// Trigger types written by the coach service.
const (
	TriggerCheckIn         = "checkin"
	TriggerDirectApply     = "direct_apply"
	TriggerProposalCreate  = "proposal_create"
	TriggerProposalAccept  = "proposal_accept"
	TriggerProposalDecline = "proposal_decline"
	TriggerProposalUndo    = "proposal_undo"
	TriggerPlanEval        = "plan_eval"
	TriggerUnsafeAdjust    = "unsafe_adjustment"
)
// #endregion triggers

// #region decision-record
// DecisionRecord captures the complete readiness and lock inputs for one
// check-in decision. Serialized as JSON into provenance_log.signals_json for
// deterministic replay.
type DecisionRecord struct {
	UserID    string `json:"user_id"`
	WorkoutID string `json:"workout_id,omitempty"`
	Date      string `json:"date"`
	Now       string `json:"now,omitempty"` // RFC3339 clock the lock was evaluated at

	// Scheduled workout as it was before any change
	WorkoutDate  string `json:"workout_date,omitempty"`
	WorkoutType  string `json:"workout_type,omitempty"`
	WorkoutTitle string `json:"workout_title,omitempty"`
	WorkoutMin   int    `json:"workout_min,omitempty"`

	// Readiness as scored at runtime
	Score      *int     `json:"score"`
	Status     string   `json:"status"`
	Confidence int      `json:"confidence"`
	Source     string   `json:"source,omitempty"`
	Factors    []string `json:"factors,omitempty"`
	Flags      []string `json:"flags,omitempty"`

	// Mapper and lock output
	Action   string `json:"action"`
	Text     string `json:"text"`
	Rigidity string `json:"rigidity,omitempty"`
	Locked   bool   `json:"locked"`
	Route    string `json:"route"` // "none" | "applied" | "proposed"
}
// #endregion decision-record
