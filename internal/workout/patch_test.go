package workout

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/danielpatrickdp/adaptive-coach/internal/coacherr"
)

// #region mem-store

// memStore is an in-memory Store; a failing fn discards all of its writes.
type memStore struct {
	mu       sync.Mutex
	workouts map[string]Workout
	patches  map[string]AppliedPatch
}

func newMemStore(ws ...Workout) *memStore {
	m := &memStore{workouts: map[string]Workout{}, patches: map[string]AppliedPatch{}}
	for _, w := range ws {
		m.workouts[w.ID] = w
	}
	return m
}

func (m *memStore) InWorkoutTx(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &memTx{workouts: map[string]Workout{}, patches: map[string]AppliedPatch{}}
	for k, v := range m.workouts {
		tx.workouts[k] = v
	}
	for k, v := range m.patches {
		tx.patches[k] = v
	}
	if err := fn(tx); err != nil {
		return err
	}
	m.workouts, m.patches = tx.workouts, tx.patches
	return nil
}

type memTx struct {
	workouts map[string]Workout
	patches  map[string]AppliedPatch
}

func (t *memTx) GetWorkout(ctx context.Context, id string) (Workout, error) {
	w, ok := t.workouts[id]
	if !ok {
		return Workout{}, coacherr.New(coacherr.NotFound, "get workout", "workout %s not found", id)
	}
	return w, nil
}

func (t *memTx) SaveFields(ctx context.Context, w Workout, fields []Field) error {
	cur := t.workouts[w.ID]
	for _, f := range fields {
		switch f {
		case FieldPrescription:
			cur.Prescription = w.Prescription
		case FieldPlan:
			cur.PlanJSON = w.PlanJSON
		case FieldAIMeta:
			cur.AISource, cur.AINote, cur.AIConfidence = w.AISource, w.AINote, w.AIConfidence
		case FieldDate:
			cur.Date = w.Date
		case FieldDuration:
			cur.DurationMin = w.DurationMin
		case FieldTitle:
			cur.Title = w.Title
		case FieldType:
			cur.Type = w.Type
		}
	}
	t.workouts[w.ID] = cur
	return nil
}

func (t *memTx) InsertAppliedPatch(ctx context.Context, ap AppliedPatch) error {
	t.patches[ap.ID] = ap
	return nil
}

func (t *memTx) GetAppliedPatch(ctx context.Context, id string) (AppliedPatch, error) {
	ap, ok := t.patches[id]
	if !ok {
		return AppliedPatch{}, coacherr.New(coacherr.NotFound, "get applied patch", "patch %s not found", id)
	}
	return ap, nil
}

func (t *memTx) MarkReverted(ctx context.Context, id string, at time.Time) error {
	ap := t.patches[id]
	ap.RevertedAt = &at
	t.patches[id] = ap
	return nil
}

// #endregion mem-store

func sampleWorkout() Workout {
	return Workout{
		ID:           "w1",
		UserID:       "u1",
		Date:         time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC),
		Type:         "run",
		Title:        "Tempo run",
		DurationMin:  50,
		Prescription: "10 min easy, 3x8 min tempo, 10 min easy",
		PlanJSON:     `{"objective":"tempo"}`,
		AISource:     "coach",
		AINote:       "original",
		AIConfidence: 80,
	}
}

func TestPatch_ApplyInverseRoundTrip(t *testing.T) {
	w := sampleWorkout()
	p := NewPatch(
		SetPrescription{Text: "30 min easy"},
		SetDuration{Minutes: 30},
		SetAIMeta{Source: "readiness", Note: "fatigued", Confidence: 57},
	)

	patched := p.Apply(w)
	if patched.Prescription != "30 min easy" || patched.DurationMin != 30 || patched.AIConfidence != 57 {
		t.Fatalf("patch not applied: %+v", patched)
	}
	if w.Prescription == patched.Prescription {
		t.Fatal("Apply must not modify its input")
	}

	restored := p.Inverse(w).Apply(patched)
	if !reflect.DeepEqual(restored, w) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", restored, w)
	}
}

func TestPatch_InverseWithRepeatedField(t *testing.T) {
	w := sampleWorkout()
	p := NewPatch(SetTitle{Title: "A"}, SetTitle{Title: "B"})
	patched := p.Apply(w)
	if patched.Title != "B" {
		t.Fatalf("expected last write to win, got %q", patched.Title)
	}
	if got := p.Inverse(w).Apply(patched).Title; got != w.Title {
		t.Fatalf("expected original title %q, got %q", w.Title, got)
	}
	if len(p.Fields()) != 1 {
		t.Fatalf("expected 1 distinct field, got %v", p.Fields())
	}
}

func TestPatch_Validate(t *testing.T) {
	if err := (Patch{}).Validate(); err == nil {
		t.Fatal("expected error for empty patch")
	}
	if err := NewPatch(nil).Validate(); err == nil {
		t.Fatal("expected error for nil op")
	}
	if err := NewPatch(SetType{Type: "rest"}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPatch_JSONRoundTrip(t *testing.T) {
	date := time.Date(2026, 5, 6, 0, 0, 0, 0, time.UTC)
	p := NewPatch(
		SetPrescription{Text: "rest"},
		SetPlan{PlanJSON: `{"sections":[]}`},
		SetAIMeta{Source: "s", Note: "n", Confidence: 40},
		Reschedule{Date: date},
		SetDuration{Minutes: 0},
		SetTitle{Title: "Rest day"},
		SetType{Type: "rest"},
	)
	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Patch
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(back.Ops) != len(p.Ops) {
		t.Fatalf("expected %d ops, got %d", len(p.Ops), len(back.Ops))
	}
	for i := range p.Ops {
		if back.Ops[i].Kind() != p.Ops[i].Kind() {
			t.Errorf("op %d: got %s, want %s", i, back.Ops[i].Kind(), p.Ops[i].Kind())
		}
	}
	if r := back.Ops[3].(Reschedule); !r.Date.Equal(date) {
		t.Fatalf("date mismatch: %v", r.Date)
	}
}

func TestPatch_UnmarshalUnknownKind(t *testing.T) {
	var p Patch
	if err := json.Unmarshal([]byte(`[{"kind":"delete_everything"}]`), &p); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestPatcher_ApplyInvert(t *testing.T) {
	ctx := context.Background()
	store := newMemStore(sampleWorkout())
	p := NewPatcher(store)

	id, err := p.Apply(ctx, "w1", NewPatch(SetPrescription{Text: "20 min easy"}, SetDuration{Minutes: 20}))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	// An unrelated concurrent edit to a field the patch does not touch.
	w := store.workouts["w1"]
	w.Title = "Renamed by user"
	store.workouts["w1"] = w

	if err := p.Invert(ctx, id); err != nil {
		t.Fatalf("Invert: %v", err)
	}
	got := store.workouts["w1"]
	want := sampleWorkout()
	want.Title = "Renamed by user"
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("after invert:\n got %+v\nwant %+v", got, want)
	}
	if !store.patches[id].Reverted() {
		t.Fatal("expected patch marked reverted")
	}

	err = p.Invert(ctx, id)
	if !errors.Is(err, coacherr.ErrInvalidState) {
		t.Fatalf("expected INVALID_STATE on second invert, got %v", err)
	}
}

func TestPatcher_ApplyMissingWorkout(t *testing.T) {
	p := NewPatcher(newMemStore())
	_, err := p.Apply(context.Background(), "nope", NewPatch(SetTitle{Title: "x"}))
	if !errors.Is(err, coacherr.ErrNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestPatcher_ApplyEmptyPatch(t *testing.T) {
	store := newMemStore(sampleWorkout())
	_, err := NewPatcher(store).Apply(context.Background(), "w1", Patch{})
	if err == nil {
		t.Fatal("expected error for empty patch")
	}
	if len(store.patches) != 0 {
		t.Fatal("no applied patch should be recorded")
	}
}
