package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielpatrickdp/adaptive-coach/internal/coacherr"
	"github.com/danielpatrickdp/adaptive-coach/internal/lock"
	"github.com/danielpatrickdp/adaptive-coach/internal/prescription"
	"github.com/danielpatrickdp/adaptive-coach/internal/proposal"
	"github.com/danielpatrickdp/adaptive-coach/internal/signals"
	"github.com/danielpatrickdp/adaptive-coach/internal/workout"
)

func tempDB(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := NewStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var testDay = time.Date(2026, 5, 4, 0, 0, 0, 0, time.Local)

func seedWorkout(t *testing.T, s *Store) workout.Workout {
	t.Helper()
	w, err := s.CreateWorkout(context.Background(), workout.Workout{
		UserID: "u1", Date: testDay, Type: "bike", Title: "Threshold ride", DurationMin: 75,
	})
	if err != nil {
		t.Fatalf("CreateWorkout: %v", err)
	}
	return w
}

func TestCreateAndGetWorkout(t *testing.T) {
	s := tempDB(t)
	w := seedWorkout(t, s)
	if w.ID == "" {
		t.Fatal("expected generated ID")
	}

	got, err := s.GetWorkout(context.Background(), w.ID)
	if err != nil {
		t.Fatalf("GetWorkout: %v", err)
	}
	if got != w {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, w)
	}
}

func TestGetWorkout_NotFound(t *testing.T) {
	s := tempDB(t)
	_, err := s.GetWorkout(context.Background(), "missing")
	if !errors.Is(err, coacherr.ErrNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestListWorkouts_InclusiveRange(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		_, err := s.CreateWorkout(ctx, workout.Workout{
			UserID: "u1", Date: testDay.AddDate(0, 0, i), Type: "run", Title: "Easy", DurationMin: 30,
		})
		if err != nil {
			t.Fatalf("CreateWorkout: %v", err)
		}
	}
	if _, err := s.CreateWorkout(ctx, workout.Workout{UserID: "u2", Date: testDay, Type: "run"}); err != nil {
		t.Fatalf("CreateWorkout: %v", err)
	}

	ws, err := s.ListWorkouts(ctx, "u1", testDay.AddDate(0, 0, 1), testDay.AddDate(0, 0, 2))
	if err != nil {
		t.Fatalf("ListWorkouts: %v", err)
	}
	if len(ws) != 2 {
		t.Fatalf("expected 2 workouts, got %d", len(ws))
	}
	if !ws[0].Date.Equal(testDay.AddDate(0, 0, 1)) {
		t.Fatalf("expected ordering by date, first is %s", ws[0].Date)
	}
}

func TestSaveFields_OnlyNamedColumns(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()
	w := seedWorkout(t, s)

	edited := w
	edited.Title = "should not be written"
	edited.DurationMin = 45
	err := s.InWorkoutTx(ctx, func(tx workout.Tx) error {
		return tx.SaveFields(ctx, edited, []workout.Field{workout.FieldDuration})
	})
	if err != nil {
		t.Fatalf("SaveFields: %v", err)
	}

	got, _ := s.GetWorkout(ctx, w.ID)
	if got.DurationMin != 45 {
		t.Fatalf("duration not saved: %d", got.DurationMin)
	}
	if got.Title != w.Title {
		t.Fatalf("title overwritten: %q", got.Title)
	}
}

func TestSaveFields_MissingWorkout(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()
	err := s.InWorkoutTx(ctx, func(tx workout.Tx) error {
		return tx.SaveFields(ctx, workout.Workout{ID: "ghost"}, []workout.Field{workout.FieldTitle})
	})
	if !errors.Is(err, coacherr.ErrNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestAppliedPatch_RoundTripAndRevertOnce(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()
	w := seedWorkout(t, s)

	fwd := workout.NewPatch(workout.SetDuration{Minutes: 50}, workout.SetTitle{Title: "Endurance"})
	ap := workout.AppliedPatch{
		ID:        "ap-1",
		WorkoutID: w.ID,
		Forward:   fwd,
		Inverse:   fwd.Inverse(w),
		AppliedAt: time.Date(2026, 5, 3, 8, 0, 0, 0, time.UTC),
	}
	err := s.InWorkoutTx(ctx, func(tx workout.Tx) error { return tx.InsertAppliedPatch(ctx, ap) })
	if err != nil {
		t.Fatalf("InsertAppliedPatch: %v", err)
	}

	var got workout.AppliedPatch
	err = s.InWorkoutTx(ctx, func(tx workout.Tx) error {
		var err error
		got, err = tx.GetAppliedPatch(ctx, "ap-1")
		return err
	})
	if err != nil {
		t.Fatalf("GetAppliedPatch: %v", err)
	}
	if len(got.Forward.Ops) != 2 || len(got.Inverse.Ops) != 2 {
		t.Fatalf("ops lost in round trip: %+v", got)
	}
	if got.Inverse.Apply(fwd.Apply(w)) != w {
		t.Fatal("stored inverse does not restore the workout")
	}
	if !got.AppliedAt.Equal(ap.AppliedAt) || got.Reverted() {
		t.Fatalf("timestamps wrong: %+v", got)
	}

	mark := func() error {
		return s.InWorkoutTx(ctx, func(tx workout.Tx) error {
			return tx.MarkReverted(ctx, "ap-1", time.Now())
		})
	}
	if err := mark(); err != nil {
		t.Fatalf("first MarkReverted: %v", err)
	}
	if err := mark(); !errors.Is(err, coacherr.ErrInvalidState) {
		t.Fatalf("expected INVALID_STATE on second revert, got %v", err)
	}
}

func TestInsertProposal_SinglePendingPerWorkout(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()
	w := seedWorkout(t, s)

	mk := func(id string) proposal.Proposal {
		return proposal.Proposal{
			ID: id, WorkoutID: w.ID, Summary: "shorten",
			Patch:  workout.NewPatch(workout.SetDuration{Minutes: 50}),
			Before: workout.NewPatch(workout.SetDuration{Minutes: 75}),
			Status: proposal.StatusPending, CreatedAt: time.Now().UTC(),
		}
	}
	insert := func(p proposal.Proposal) error {
		return s.InLedgerTx(ctx, func(tx proposal.Tx) error { return tx.InsertProposal(ctx, p) })
	}

	if err := insert(mk("p1")); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	err := insert(mk("p2"))
	if !errors.Is(err, coacherr.ErrConflict) {
		t.Fatalf("expected CONFLICT, got %v", err)
	}

	// A decided proposal frees the slot.
	err = s.InLedgerTx(ctx, func(tx proposal.Tx) error {
		p, err := tx.GetProposal(ctx, "p1")
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		p.Status = proposal.StatusDeclined
		p.DecidedAt = &now
		return tx.UpdateProposal(ctx, p, proposal.StatusPending)
	})
	if err != nil {
		t.Fatalf("decline: %v", err)
	}
	if err := insert(mk("p3")); err != nil {
		t.Fatalf("insert after decline: %v", err)
	}

	var pending, all []proposal.Proposal
	err = s.InLedgerTx(ctx, func(tx proposal.Tx) error {
		var err error
		if pending, err = tx.ListProposals(ctx, w.ID, proposal.StatusPending); err != nil {
			return err
		}
		all, err = tx.ListProposals(ctx, w.ID, "")
		return err
	})
	if err != nil {
		t.Fatalf("ListProposals: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != "p3" {
		t.Fatalf("expected only p3 pending, got %+v", pending)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 proposals, got %d", len(all))
	}
}

func TestUpdateProposal_CompareAndSet(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()
	w := seedWorkout(t, s)
	p := proposal.Proposal{
		ID: "p1", WorkoutID: w.ID, Patch: workout.NewPatch(workout.SetTitle{Title: "x"}),
		Status: proposal.StatusPending, CreatedAt: time.Now().UTC(),
	}
	err := s.InLedgerTx(ctx, func(tx proposal.Tx) error { return tx.InsertProposal(ctx, p) })
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	p.Status = proposal.StatusUndone
	err = s.InLedgerTx(ctx, func(tx proposal.Tx) error { return tx.UpdateProposal(ctx, p, proposal.StatusApplied) })
	if !errors.Is(err, coacherr.ErrInvalidState) {
		t.Fatalf("expected INVALID_STATE for stale status, got %v", err)
	}
}

func TestGetProposal_NotFound(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()
	err := s.InLedgerTx(ctx, func(tx proposal.Tx) error {
		_, err := tx.GetProposal(ctx, "nope")
		return err
	})
	if !errors.Is(err, coacherr.ErrNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestTxRollbackOnError(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()
	w := seedWorkout(t, s)

	boom := errors.New("boom")
	err := s.InWorkoutTx(ctx, func(tx workout.Tx) error {
		edited := w
		edited.Title = "half written"
		if err := tx.SaveFields(ctx, edited, []workout.Field{workout.FieldTitle}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	got, _ := s.GetWorkout(ctx, w.ID)
	if got.Title != w.Title {
		t.Fatalf("rollback failed, title is %q", got.Title)
	}
}

func TestSignalSources(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()

	src, err := s.GetSources(ctx, "u1", testDay)
	if err != nil {
		t.Fatalf("GetSources empty: %v", err)
	}
	if src.CheckIn != nil || src.Diary != nil || src.Load != nil {
		t.Fatalf("expected empty bundle, got %+v", src)
	}

	if err := s.SaveDiary(ctx, "u1", testDay, signals.DiarySignals{Mood: signals.Int(4)}); err != nil {
		t.Fatalf("SaveDiary: %v", err)
	}
	if err := s.SaveLoad(ctx, "u1", testDay, signals.LoadSignals{TSB: signals.Float(-12)}); err != nil {
		t.Fatalf("SaveLoad: %v", err)
	}
	if err := s.SaveCheckIn(ctx, "u1", testDay, signals.CheckIn{StressLevel: signals.Int(2)}); err != nil {
		t.Fatalf("SaveCheckIn: %v", err)
	}
	if err := s.SaveCheckIn(ctx, "u1", testDay, signals.CheckIn{StressLevel: signals.Int(4)}); err != nil {
		t.Fatalf("SaveCheckIn replace: %v", err)
	}

	src, err = s.GetSources(ctx, "u1", testDay)
	if err != nil {
		t.Fatalf("GetSources: %v", err)
	}
	if src.CheckIn == nil || *src.CheckIn.StressLevel != 4 {
		t.Fatalf("expected replaced check-in, got %+v", src.CheckIn)
	}
	if src.Diary == nil || *src.Diary.Mood != 4 {
		t.Fatalf("diary lost: %+v", src.Diary)
	}
	if src.Load == nil || *src.Load.TSB != -12 {
		t.Fatalf("load lost: %+v", src.Load)
	}
	if !src.Date.Equal(testDay) {
		t.Fatalf("date %s, want %s", src.Date, testDay)
	}
}

func TestUserSettings(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()

	if _, ok, err := s.GetRigidity(ctx, "u1"); err != nil || ok {
		t.Fatalf("expected unset rigidity, ok=%v err=%v", ok, err)
	}
	b, err := s.GetBenchmarks(ctx, "u1")
	if err != nil || b != (prescription.BenchmarkSet{}) {
		t.Fatalf("expected zero benchmarks, got %+v err=%v", b, err)
	}

	if err := s.SetBenchmarks(ctx, "u1", prescription.BenchmarkSet{FTPWatts: 250}); err != nil {
		t.Fatalf("SetBenchmarks: %v", err)
	}
	if _, ok, _ := s.GetRigidity(ctx, "u1"); ok {
		t.Fatal("benchmarks row must not invent a rigidity")
	}
	if err := s.SetRigidity(ctx, "u1", lock.Locked3Days); err != nil {
		t.Fatalf("SetRigidity: %v", err)
	}

	r, ok, err := s.GetRigidity(ctx, "u1")
	if err != nil || !ok || r != lock.Locked3Days {
		t.Fatalf("GetRigidity = %v %v %v", r, ok, err)
	}
	b, err = s.GetBenchmarks(ctx, "u1")
	if err != nil || b.FTPWatts != 250 {
		t.Fatalf("benchmarks lost after rigidity upsert: %+v err=%v", b, err)
	}
}
