package workout

import (
	"context"
	"fmt"
	"time"

	"github.com/danielpatrickdp/adaptive-coach/internal/coacherr"
	"github.com/google/uuid"
)

// #region store

// Tx is the persistence surface the patcher needs inside one transaction.
type Tx interface {
	GetWorkout(ctx context.Context, id string) (Workout, error)
	// SaveFields writes only the listed fields of w.
	SaveFields(ctx context.Context, w Workout, fields []Field) error
	InsertAppliedPatch(ctx context.Context, ap AppliedPatch) error
	GetAppliedPatch(ctx context.Context, id string) (AppliedPatch, error)
	MarkReverted(ctx context.Context, id string, at time.Time) error
}

// Store runs fn in a transaction; fn's error rolls everything back.
type Store interface {
	InWorkoutTx(ctx context.Context, fn func(tx Tx) error) error
}

// #endregion store

// #region patcher

// Patcher applies patches to workout records and inverts them exactly.
type Patcher struct {
	store Store
	now   func() time.Time
}

// NewPatcher creates a Patcher over store.
func NewPatcher(store Store) *Patcher {
	return &Patcher{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// WithClock overrides the clock used for applied/reverted timestamps.
func (p *Patcher) WithClock(now func() time.Time) *Patcher {
	p.now = now
	return p
}

// Apply writes patch to the workout and returns the applied patch id.
func (p *Patcher) Apply(ctx context.Context, workoutID string, patch Patch) (string, error) {
	var id string
	err := p.store.InWorkoutTx(ctx, func(tx Tx) error {
		ap, err := p.ApplyIn(ctx, tx, workoutID, patch)
		if err != nil {
			return err
		}
		id = ap.ID
		return nil
	})
	return id, err
}

// ApplyIn is Apply inside a caller-owned transaction. Before-values are
// captured per touched field from the row as read in tx.
func (p *Patcher) ApplyIn(ctx context.Context, tx Tx, workoutID string, patch Patch) (AppliedPatch, error) {
	if err := patch.Validate(); err != nil {
		return AppliedPatch{}, fmt.Errorf("apply patch to %s: %w", workoutID, err)
	}
	w, err := tx.GetWorkout(ctx, workoutID)
	if err != nil {
		return AppliedPatch{}, err
	}

	ap := AppliedPatch{
		ID:        uuid.New().String(),
		WorkoutID: workoutID,
		Forward:   patch,
		Inverse:   patch.Inverse(w),
		AppliedAt: p.now(),
	}
	if err := tx.SaveFields(ctx, patch.Apply(w), patch.Fields()); err != nil {
		return AppliedPatch{}, fmt.Errorf("save workout %s: %w", workoutID, err)
	}
	if err := tx.InsertAppliedPatch(ctx, ap); err != nil {
		return AppliedPatch{}, fmt.Errorf("record applied patch: %w", err)
	}
	return ap, nil
}

// Invert restores the before-values of an applied patch. Fields the patch did
// not touch keep whatever they hold now. A patch can be inverted once.
func (p *Patcher) Invert(ctx context.Context, appliedID string) error {
	return p.store.InWorkoutTx(ctx, func(tx Tx) error {
		return p.InvertIn(ctx, tx, appliedID)
	})
}

// InvertIn is Invert inside a caller-owned transaction.
func (p *Patcher) InvertIn(ctx context.Context, tx Tx, appliedID string) error {
	ap, err := tx.GetAppliedPatch(ctx, appliedID)
	if err != nil {
		return err
	}
	if ap.Reverted() {
		return coacherr.New(coacherr.InvalidState, "invert patch", "patch %s was already reverted", appliedID)
	}
	w, err := tx.GetWorkout(ctx, ap.WorkoutID)
	if err != nil {
		return err
	}
	if err := tx.SaveFields(ctx, ap.Inverse.Apply(w), ap.Inverse.Fields()); err != nil {
		return fmt.Errorf("restore workout %s: %w", ap.WorkoutID, err)
	}
	if err := tx.MarkReverted(ctx, appliedID, p.now()); err != nil {
		return fmt.Errorf("mark patch %s reverted: %w", appliedID, err)
	}
	return nil
}

// #endregion patcher
