package proposal

import (
	"context"
	"strings"
	"time"

	"github.com/danielpatrickdp/adaptive-coach/internal/workout"
)

// #region status

// Status is a proposal's position in the ledger state machine.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusAccepted Status = "ACCEPTED" // transient: an accepted proposal is applied in the same transaction
	StatusDeclined Status = "DECLINED"
	StatusApplied  Status = "APPLIED"
	StatusUndone   Status = "UNDONE"
)

var transitions = map[Status][]Status{
	StatusPending:  {StatusAccepted, StatusDeclined},
	StatusAccepted: {StatusApplied},
	StatusApplied:  {StatusUndone},
}

// CanMoveTo reports whether the state machine allows s -> next.
func (s Status) CanMoveTo(next Status) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is possible from s.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

// #endregion status

// #region verdict

// Verdict is the user's answer to a pending proposal.
type Verdict string

const (
	Accept  Verdict = "ACCEPT"
	Decline Verdict = "DECLINE"
)

// ParseVerdict accepts accept/decline in any case.
func ParseVerdict(s string) (Verdict, bool) {
	switch Verdict(strings.ToUpper(strings.TrimSpace(s))) {
	case Accept:
		return Accept, true
	case Decline:
		return Decline, true
	}
	return "", false
}

// #endregion verdict

// #region proposal

// Proposal is a reviewable patch held while a workout is locked.
type Proposal struct {
	ID         string        `json:"id"`
	WorkoutID  string        `json:"workout_id"`
	Summary    string        `json:"summary"`
	Patch      workout.Patch `json:"patch"`
	// Before holds the touched fields' values at creation time. Accept
	// compares it with the live workout to report drift in Note.
	Before     workout.Patch `json:"before"`
	Diff       string        `json:"diff,omitempty"`
	Confidence int           `json:"confidence"`
	SourceType string        `json:"source_type"`
	Status     Status        `json:"status"`
	CreatedAt  time.Time     `json:"created_at"`
	DecidedAt  *time.Time    `json:"decided_at,omitempty"`
	// AppliedPatchID links to the workout.AppliedPatch written on accept.
	AppliedPatchID string     `json:"applied_patch_id,omitempty"`
	UndoneAt       *time.Time `json:"undone_at,omitempty"`
	Note           string     `json:"note,omitempty"`
}

// Draft is the input to Ledger.Create.
type Draft struct {
	WorkoutID  string
	Summary    string
	Patch      workout.Patch
	Confidence int
	SourceType string
}

// Outcome is the result of deciding a proposal.
type Outcome struct {
	Applied        bool   `json:"applied"`
	AppliedPatchID string `json:"applied_patch_id,omitempty"`
	Status         Status `json:"status"`
}

// #endregion proposal

// #region store

// Tx is the persistence surface the ledger needs inside one transaction.
type Tx interface {
	workout.Tx
	// InsertProposal fails with CONFLICT when a PENDING proposal already exists
	// for the workout. The check and insert are one atomic write.
	InsertProposal(ctx context.Context, p Proposal) error
	GetProposal(ctx context.Context, id string) (Proposal, error)
	// UpdateProposal writes p only if the stored status is still from.
	UpdateProposal(ctx context.Context, p Proposal, from Status) error
	// ListProposals returns proposals for a workout, oldest first. An empty
	// status lists all of them.
	ListProposals(ctx context.Context, workoutID string, status Status) ([]Proposal, error)
}

// Store runs fn in a transaction; fn's error rolls everything back.
type Store interface {
	InLedgerTx(ctx context.Context, fn func(tx Tx) error) error
}

// #endregion store
