package proposal

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/danielpatrickdp/adaptive-coach/internal/coacherr"
	"github.com/danielpatrickdp/adaptive-coach/internal/workout"
	"github.com/google/uuid"
	"github.com/pmezard/go-difflib/difflib"
)

// #region config

// LedgerConfig controls conflict handling.
type LedgerConfig struct {
	// SupersedePending declines an existing PENDING proposal instead of
	// failing the new one with CONFLICT.
	SupersedePending bool
}

// DefaultLedgerConfig returns CONFLICT-on-duplicate behavior.
func DefaultLedgerConfig() LedgerConfig {
	return LedgerConfig{}
}

// #endregion config

// #region ledger

// Ledger manages proposed patches for locked workouts.
type Ledger struct {
	store   Store
	patcher *workout.Patcher
	config  LedgerConfig
	logger  *log.Logger
	now     func() time.Time
}

// NewLedger creates a Ledger. A nil logger means log.Default().
func NewLedger(store Store, patcher *workout.Patcher, config LedgerConfig, logger *log.Logger) *Ledger {
	if logger == nil {
		logger = log.Default()
	}
	return &Ledger{
		store:   store,
		patcher: patcher,
		config:  config,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the clock used for ledger timestamps.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// #endregion ledger

// #region create

// Create stores a PENDING proposal with the workout's current values of every
// touched field. A second PENDING proposal for the same workout fails with
// CONFLICT unless SupersedePending is set.
func (l *Ledger) Create(ctx context.Context, d Draft) (Proposal, error) {
	if err := d.Patch.Validate(); err != nil {
		return Proposal{}, fmt.Errorf("create proposal: %w", err)
	}
	var out Proposal
	err := l.store.InLedgerTx(ctx, func(tx Tx) error {
		w, err := tx.GetWorkout(ctx, d.WorkoutID)
		if err != nil {
			return err
		}
		now := l.now()

		if l.config.SupersedePending {
			pending, err := tx.ListProposals(ctx, d.WorkoutID, StatusPending)
			if err != nil {
				return fmt.Errorf("list pending: %w", err)
			}
			for _, old := range pending {
				old.Status = StatusDeclined
				old.DecidedAt = &now
				old.Note = "superseded"
				if err := tx.UpdateProposal(ctx, old, StatusPending); err != nil {
					return fmt.Errorf("supersede %s: %w", old.ID, err)
				}
				l.logger.Printf("[ledger] superseded proposal %s for workout %s", old.ID, d.WorkoutID)
			}
		}

		p := Proposal{
			ID:         uuid.New().String(),
			WorkoutID:  d.WorkoutID,
			Summary:    d.Summary,
			Patch:      d.Patch,
			Before:     d.Patch.Inverse(w),
			Diff:       Diff(w, d.Patch.Apply(w)),
			Confidence: d.Confidence,
			SourceType: d.SourceType,
			Status:     StatusPending,
			CreatedAt:  now,
		}
		if err := tx.InsertProposal(ctx, p); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return Proposal{}, err
	}
	l.logger.Printf("[ledger] created proposal %s for workout %s (%s)", out.ID, out.WorkoutID, out.SourceType)
	return out, nil
}

// #endregion create

// #region decide

// Decide resolves a PENDING proposal. Accepting applies the patch and moves
// the proposal to APPLIED in one transaction. Fields the patch touches that
// were edited after creation are named in the proposal's Note.
func (l *Ledger) Decide(ctx context.Context, id string, v Verdict) (Outcome, error) {
	var out Outcome
	err := l.store.InLedgerTx(ctx, func(tx Tx) error {
		p, err := tx.GetProposal(ctx, id)
		if err != nil {
			return err
		}
		if p.Status != StatusPending {
			return coacherr.New(coacherr.InvalidState, "decide proposal",
				"proposal %s is %s, not %s", id, p.Status, StatusPending)
		}
		now := l.now()
		p.DecidedAt = &now

		switch v {
		case Decline:
			p.Status = StatusDeclined
			if err := tx.UpdateProposal(ctx, p, StatusPending); err != nil {
				return err
			}
			out = Outcome{Applied: false, Status: p.Status}
			return nil
		case Accept:
			cur, err := tx.GetWorkout(ctx, p.WorkoutID)
			if err != nil {
				return err
			}
			if changed := drifted(p.Before, p.Patch.Inverse(cur)); len(changed) > 0 {
				p.Note = "changed since proposed: " + strings.Join(changed, ", ")
				l.logger.Printf("[ledger] proposal %s: workout %s %s", id, p.WorkoutID, p.Note)
			}
			ap, err := l.patcher.ApplyIn(ctx, tx, p.WorkoutID, p.Patch)
			if err != nil {
				return fmt.Errorf("apply proposal %s: %w", id, err)
			}
			for _, next := range []Status{StatusAccepted, StatusApplied} {
				if !p.Status.CanMoveTo(next) {
					return coacherr.New(coacherr.InvalidState, "decide proposal", "cannot move %s to %s", p.Status, next)
				}
				p.Status = next
			}
			p.AppliedPatchID = ap.ID
			if err := tx.UpdateProposal(ctx, p, StatusPending); err != nil {
				return err
			}
			out = Outcome{Applied: true, AppliedPatchID: ap.ID, Status: p.Status}
			return nil
		default:
			return coacherr.New(coacherr.InvalidState, "decide proposal", "unknown verdict %q", v)
		}
	})
	if err != nil {
		return Outcome{}, err
	}
	l.logger.Printf("[ledger] proposal %s %s", id, strings.ToLower(string(out.Status)))
	return out, nil
}

// #endregion decide

// #region undo

// Undo reverts an APPLIED proposal's patch. It succeeds at most once.
func (l *Ledger) Undo(ctx context.Context, id string) (bool, error) {
	err := l.store.InLedgerTx(ctx, func(tx Tx) error {
		p, err := tx.GetProposal(ctx, id)
		if err != nil {
			return err
		}
		if !p.Status.CanMoveTo(StatusUndone) {
			return coacherr.New(coacherr.InvalidState, "undo proposal",
				"proposal %s is %s, only %s proposals can be undone", id, p.Status, StatusApplied)
		}
		if err := l.patcher.InvertIn(ctx, tx, p.AppliedPatchID); err != nil {
			return fmt.Errorf("revert proposal %s: %w", id, err)
		}
		now := l.now()
		p.Status = StatusUndone
		p.UndoneAt = &now
		return tx.UpdateProposal(ctx, p, StatusApplied)
	})
	if err != nil {
		return false, err
	}
	l.logger.Printf("[ledger] proposal %s undone", id)
	return true, nil
}

// #endregion undo

// #region list

// Get returns one proposal.
func (l *Ledger) Get(ctx context.Context, id string) (Proposal, error) {
	var p Proposal
	err := l.store.InLedgerTx(ctx, func(tx Tx) error {
		var err error
		p, err = tx.GetProposal(ctx, id)
		return err
	})
	return p, err
}

// List returns every proposal for a workout, oldest first.
func (l *Ledger) List(ctx context.Context, workoutID string) ([]Proposal, error) {
	return l.list(ctx, workoutID, "")
}

// Pending returns the workout's PENDING proposal, if any.
func (l *Ledger) Pending(ctx context.Context, workoutID string) (Proposal, bool, error) {
	ps, err := l.list(ctx, workoutID, StatusPending)
	if err != nil || len(ps) == 0 {
		return Proposal{}, false, err
	}
	return ps[0], true, nil
}

func (l *Ledger) list(ctx context.Context, workoutID string, status Status) ([]Proposal, error) {
	var ps []Proposal
	err := l.store.InLedgerTx(ctx, func(tx Tx) error {
		var err error
		ps, err = tx.ListProposals(ctx, workoutID, status)
		return err
	})
	return ps, err
}

// #endregion list

// #region diff

// Diff renders a unified diff between two versions of a workout.
func Diff(before, after workout.Workout) string {
	d := difflib.UnifiedDiff{
		A:        difflib.SplitLines(describe(before)),
		B:        difflib.SplitLines(describe(after)),
		FromFile: "current",
		ToFile:   "proposed",
		Context:  2,
	}
	text, err := difflib.GetUnifiedDiffString(d)
	if err != nil {
		return ""
	}
	return text
}

func describe(w workout.Workout) string {
	var b strings.Builder
	fmt.Fprintf(&b, "date: %s\n", w.Date.Format("2006-01-02"))
	fmt.Fprintf(&b, "type: %s\n", w.Type)
	fmt.Fprintf(&b, "title: %s\n", w.Title)
	fmt.Fprintf(&b, "duration: %d min\n", w.DurationMin)
	b.WriteString(strings.TrimRight(w.Prescription, "\n"))
	return b.String()
}

// drifted lists the fields whose captured values differ between two inverse
// patches of the same proposal.
func drifted(before, now workout.Patch) []string {
	var out []string
	seen := make(map[workout.Field]bool)
	for i, op := range before.Ops {
		f := op.Field()
		if seen[f] {
			continue
		}
		if i < len(now.Ops) && opJSON(op) == opJSON(now.Ops[i]) {
			continue
		}
		seen[f] = true
		out = append(out, string(f))
	}
	return out
}

func opJSON(op workout.Op) string {
	b, err := json.Marshal(workout.NewPatch(op))
	if err != nil {
		return ""
	}
	return string(b)
}

// #endregion diff
