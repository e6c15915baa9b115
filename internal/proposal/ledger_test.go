package proposal_test

import (
	"context"
	"errors"
	"io"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/danielpatrickdp/adaptive-coach/internal/coacherr"
	"github.com/danielpatrickdp/adaptive-coach/internal/proposal"
	"github.com/danielpatrickdp/adaptive-coach/internal/store"
	"github.com/danielpatrickdp/adaptive-coach/internal/workout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var clock = time.Date(2026, 6, 1, 7, 30, 0, 0, time.UTC)

type fixture struct {
	store  *store.Store
	ledger *proposal.Ledger
	w      workout.Workout
}

func newFixture(t *testing.T, cfg proposal.LedgerConfig) fixture {
	t.Helper()
	st, err := store.NewStore(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	w, err := st.CreateWorkout(context.Background(), workout.Workout{
		UserID: "u1", Date: time.Date(2026, 6, 1, 0, 0, 0, 0, time.Local),
		Type: "swim", Title: "CSS repeats", DurationMin: 60, Prescription: "10 x 100 @ CSS",
	})
	require.NoError(t, err)

	clk := func() time.Time { return clock }
	patcher := workout.NewPatcher(st).WithClock(clk)
	l := proposal.NewLedger(st, patcher, cfg, log.New(io.Discard, "", 0)).WithClock(clk)
	return fixture{store: st, ledger: l, w: w}
}

func easySwim() workout.Patch {
	return workout.NewPatch(
		workout.SetPrescription{Text: "2000m easy aerobic"},
		workout.SetDuration{Minutes: 40},
		workout.SetAIMeta{Source: "readiness", Note: "short sleep", Confidence: 62},
	)
}

func draft(f fixture) proposal.Draft {
	return proposal.Draft{
		WorkoutID:  f.w.ID,
		Summary:    "Shorten to an easy 40 min swim",
		Patch:      easySwim(),
		Confidence: 62,
		SourceType: "checkin",
	}
}

func TestCreate_StoresBeforeValuesAndDiff(t *testing.T) {
	f := newFixture(t, proposal.DefaultLedgerConfig())
	p, err := f.ledger.Create(context.Background(), draft(f))
	require.NoError(t, err)

	assert.Equal(t, proposal.StatusPending, p.Status)
	assert.Equal(t, clock, p.CreatedAt)
	assert.Nil(t, p.DecidedAt)

	restored := p.Before.Apply(p.Patch.Apply(f.w))
	assert.Equal(t, f.w, restored, "before snapshot inverts the patch")

	assert.Contains(t, p.Diff, "--- current")
	assert.Contains(t, p.Diff, "+++ proposed")
	assert.Contains(t, p.Diff, "-duration: 60 min")
	assert.Contains(t, p.Diff, "+duration: 40 min")

	got, err := f.ledger.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Diff, got.Diff)
	assert.Equal(t, p.Patch, got.Patch)
}

func TestCreate_SecondPendingConflicts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, proposal.DefaultLedgerConfig())
	first, err := f.ledger.Create(ctx, draft(f))
	require.NoError(t, err)

	_, err = f.ledger.Create(ctx, draft(f))
	require.Error(t, err)
	assert.True(t, errors.Is(err, coacherr.ErrConflict), "got %v", err)

	pending, ok, err := f.ledger.Pending(ctx, f.w.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, first.ID, pending.ID)

	all, err := f.ledger.List(ctx, f.w.ID)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCreate_ConcurrentCreatesLeaveOnePending(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, proposal.DefaultLedgerConfig())

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.ledger.Create(ctx, draft(f))
		}(i)
	}
	wg.Wait()

	ok, conflicts := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, coacherr.ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, conflicts)
}

func TestCreate_Supersede(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, proposal.LedgerConfig{SupersedePending: true})
	first, err := f.ledger.Create(ctx, draft(f))
	require.NoError(t, err)
	second, err := f.ledger.Create(ctx, draft(f))
	require.NoError(t, err)

	old, err := f.ledger.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, proposal.StatusDeclined, old.Status)
	assert.Equal(t, "superseded", old.Note)
	require.NotNil(t, old.DecidedAt)

	pending, ok, err := f.ledger.Pending(ctx, f.w.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, second.ID, pending.ID)
}

func TestCreate_Validation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, proposal.DefaultLedgerConfig())

	d := draft(f)
	d.Patch = workout.Patch{}
	_, err := f.ledger.Create(ctx, d)
	assert.Error(t, err, "empty patch")

	d = draft(f)
	d.WorkoutID = "missing"
	_, err = f.ledger.Create(ctx, d)
	assert.True(t, errors.Is(err, coacherr.ErrNotFound), "got %v", err)
}

func TestDecide_AcceptAppliesInOneStep(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, proposal.DefaultLedgerConfig())
	p, err := f.ledger.Create(ctx, draft(f))
	require.NoError(t, err)

	out, err := f.ledger.Decide(ctx, p.ID, proposal.Accept)
	require.NoError(t, err)
	assert.True(t, out.Applied)
	assert.Equal(t, proposal.StatusApplied, out.Status)
	assert.NotEmpty(t, out.AppliedPatchID)

	got, err := f.ledger.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, proposal.StatusApplied, got.Status, "ACCEPTED is never observable")
	assert.Equal(t, out.AppliedPatchID, got.AppliedPatchID)
	require.NotNil(t, got.DecidedAt)

	w, err := f.store.GetWorkout(ctx, f.w.ID)
	require.NoError(t, err)
	assert.Equal(t, "2000m easy aerobic", w.Prescription)
	assert.Equal(t, 40, w.DurationMin)
	assert.Equal(t, f.w.Title, w.Title)

	_, ok, err := f.ledger.Pending(ctx, f.w.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDecide_Decline(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, proposal.DefaultLedgerConfig())
	p, err := f.ledger.Create(ctx, draft(f))
	require.NoError(t, err)

	out, err := f.ledger.Decide(ctx, p.ID, proposal.Decline)
	require.NoError(t, err)
	assert.False(t, out.Applied)
	assert.Equal(t, proposal.StatusDeclined, out.Status)

	w, err := f.store.GetWorkout(ctx, f.w.ID)
	require.NoError(t, err)
	assert.Equal(t, f.w, w)

	// Declining frees the slot for a new proposal.
	_, err = f.ledger.Create(ctx, draft(f))
	require.NoError(t, err)
}

func TestDecide_StateErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, proposal.DefaultLedgerConfig())

	_, err := f.ledger.Decide(ctx, "nope", proposal.Accept)
	assert.True(t, errors.Is(err, coacherr.ErrNotFound), "got %v", err)

	p, err := f.ledger.Create(ctx, draft(f))
	require.NoError(t, err)
	_, err = f.ledger.Decide(ctx, p.ID, proposal.Decline)
	require.NoError(t, err)

	for _, v := range []proposal.Verdict{proposal.Accept, proposal.Decline} {
		_, err = f.ledger.Decide(ctx, p.ID, v)
		assert.True(t, errors.Is(err, coacherr.ErrInvalidState), "%s after decline: %v", v, err)
	}
}

func TestUndo_RestoresOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, proposal.DefaultLedgerConfig())
	p, err := f.ledger.Create(ctx, draft(f))
	require.NoError(t, err)

	_, err = f.ledger.Undo(ctx, p.ID)
	assert.True(t, errors.Is(err, coacherr.ErrInvalidState), "undo while pending: %v", err)

	_, err = f.ledger.Decide(ctx, p.ID, proposal.Accept)
	require.NoError(t, err)

	// An unrelated edit after apply must survive the undo.
	require.NoError(t, f.store.InWorkoutTx(ctx, func(tx workout.Tx) error {
		w, err := tx.GetWorkout(ctx, f.w.ID)
		if err != nil {
			return err
		}
		w.Title = "Renamed by user"
		return tx.SaveFields(ctx, w, []workout.Field{workout.FieldTitle})
	}))

	reverted, err := f.ledger.Undo(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, reverted)

	w, err := f.store.GetWorkout(ctx, f.w.ID)
	require.NoError(t, err)
	want := f.w
	want.Title = "Renamed by user"
	assert.Equal(t, want, w)

	got, err := f.ledger.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, proposal.StatusUndone, got.Status)
	require.NotNil(t, got.UndoneAt)

	_, err = f.ledger.Undo(ctx, p.ID)
	assert.True(t, errors.Is(err, coacherr.ErrInvalidState), "second undo: %v", err)
}

func TestDecide_AcceptNotesFieldsEditedSinceCreate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, proposal.DefaultLedgerConfig())
	p, err := f.ledger.Create(ctx, draft(f))
	require.NoError(t, err)

	// Duration is touched by the patch, title is not.
	require.NoError(t, f.store.InWorkoutTx(ctx, func(tx workout.Tx) error {
		w, err := tx.GetWorkout(ctx, f.w.ID)
		if err != nil {
			return err
		}
		w.DurationMin = 75
		w.Title = "Renamed by user"
		return tx.SaveFields(ctx, w, []workout.Field{workout.FieldDuration, workout.FieldTitle})
	}))

	out, err := f.ledger.Decide(ctx, p.ID, proposal.Accept)
	require.NoError(t, err)
	assert.True(t, out.Applied)

	got, err := f.ledger.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "changed since proposed: duration_min", got.Note)

	w, err := f.store.GetWorkout(ctx, f.w.ID)
	require.NoError(t, err)
	assert.Equal(t, 40, w.DurationMin, "accepted patch still wins")
}

func TestDecide_AcceptWithoutEditsLeavesNoteEmpty(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, proposal.DefaultLedgerConfig())
	p, err := f.ledger.Create(ctx, draft(f))
	require.NoError(t, err)

	_, err = f.ledger.Decide(ctx, p.ID, proposal.Accept)
	require.NoError(t, err)

	got, err := f.ledger.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Note)
}

func TestDiff_UnchangedIsEmpty(t *testing.T) {
	w := workout.Workout{Type: "run", Title: "Easy", DurationMin: 30, Prescription: "30 min easy"}
	assert.Empty(t, proposal.Diff(w, w))

	after := w
	after.Prescription = "20 min easy\n4 x 20s strides"
	d := proposal.Diff(w, after)
	assert.True(t, strings.Contains(d, "+4 x 20s strides"), d)
}
