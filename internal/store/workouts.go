package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/danielpatrickdp/adaptive-coach/internal/coacherr"
	"github.com/danielpatrickdp/adaptive-coach/internal/workout"
	"github.com/google/uuid"
)

const workoutColumns = `id, user_id, date, type, title, duration_min, prescription, plan_json, ai_source, ai_note, ai_confidence`

// #region create-workout
// CreateWorkout inserts a workout. An empty ID gets a fresh UUID.
func (s *Store) CreateWorkout(ctx context.Context, w workout.Workout) (workout.Workout, error) {
	if w.ID == "" {
		w.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO workouts (`+workoutColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		w.ID, w.UserID, w.Date.Format(DateLayout), w.Type, w.Title, w.DurationMin,
		w.Prescription, w.PlanJSON, w.AISource, w.AINote, w.AIConfidence,
	)
	if err != nil {
		return workout.Workout{}, fmt.Errorf("insert workout: %w", err)
	}
	return w, nil
}
// #endregion create-workout

// #region get-workout
// GetWorkout reads one workout outside any transaction.
func (s *Store) GetWorkout(ctx context.Context, id string) (workout.Workout, error) {
	return scanWorkout(s.db.QueryRowContext(ctx,
		`SELECT `+workoutColumns+` FROM workouts WHERE id = ?`, id), id, s.loc)
}

// GetWorkout reads one workout inside the transaction.
func (t *Tx) GetWorkout(ctx context.Context, id string) (workout.Workout, error) {
	return scanWorkout(t.tx.QueryRowContext(ctx,
		`SELECT `+workoutColumns+` FROM workouts WHERE id = ?`, id), id, t.loc)
}

// ListWorkouts returns a user's workouts between from and to inclusive, by date.
func (s *Store) ListWorkouts(ctx context.Context, userID string, from, to time.Time) ([]workout.Workout, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+workoutColumns+` FROM workouts
		 WHERE user_id = ? AND date >= ? AND date <= ? ORDER BY date, id`,
		userID, from.Format(DateLayout), to.Format(DateLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("list workouts: %w", err)
	}
	defer rows.Close()

	var out []workout.Workout
	for rows.Next() {
		w, err := scanWorkout(rows, "", s.loc)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkout(row rowScanner, id string, loc *time.Location) (workout.Workout, error) {
	var w workout.Workout
	var date string
	err := row.Scan(&w.ID, &w.UserID, &date, &w.Type, &w.Title, &w.DurationMin,
		&w.Prescription, &w.PlanJSON, &w.AISource, &w.AINote, &w.AIConfidence)
	if errors.Is(err, sql.ErrNoRows) {
		return workout.Workout{}, coacherr.New(coacherr.NotFound, "get workout", "workout %s not found", id)
	}
	if err != nil {
		return workout.Workout{}, fmt.Errorf("scan workout: %w", err)
	}
	w.Date, err = time.ParseInLocation(DateLayout, date, loc)
	if err != nil {
		return workout.Workout{}, fmt.Errorf("parse workout date %q: %w", date, err)
	}
	return w, nil
}
// #endregion get-workout

// #region save-fields
// SaveFields writes only the column groups named in fields.
func (t *Tx) SaveFields(ctx context.Context, w workout.Workout, fields []workout.Field) error {
	for _, f := range fields {
		var res sql.Result
		var err error
		switch f {
		case workout.FieldPrescription:
			res, err = t.tx.ExecContext(ctx, `UPDATE workouts SET prescription = ? WHERE id = ?`, w.Prescription, w.ID)
		case workout.FieldPlan:
			res, err = t.tx.ExecContext(ctx, `UPDATE workouts SET plan_json = ? WHERE id = ?`, w.PlanJSON, w.ID)
		case workout.FieldAIMeta:
			res, err = t.tx.ExecContext(ctx,
				`UPDATE workouts SET ai_source = ?, ai_note = ?, ai_confidence = ? WHERE id = ?`,
				w.AISource, w.AINote, w.AIConfidence, w.ID)
		case workout.FieldDate:
			res, err = t.tx.ExecContext(ctx, `UPDATE workouts SET date = ? WHERE id = ?`, w.Date.Format(DateLayout), w.ID)
		case workout.FieldDuration:
			res, err = t.tx.ExecContext(ctx, `UPDATE workouts SET duration_min = ? WHERE id = ?`, w.DurationMin, w.ID)
		case workout.FieldTitle:
			res, err = t.tx.ExecContext(ctx, `UPDATE workouts SET title = ? WHERE id = ?`, w.Title, w.ID)
		case workout.FieldType:
			res, err = t.tx.ExecContext(ctx, `UPDATE workouts SET type = ? WHERE id = ?`, w.Type, w.ID)
		default:
			return fmt.Errorf("save field %q: unknown field", f)
		}
		if err != nil {
			return fmt.Errorf("save field %s: %w", f, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return coacherr.New(coacherr.NotFound, "save workout", "workout %s not found", w.ID)
		}
	}
	return nil
}
// #endregion save-fields

// #region applied-patches
// InsertAppliedPatch records a committed patch and its inverse.
func (t *Tx) InsertAppliedPatch(ctx context.Context, ap workout.AppliedPatch) error {
	fwd, err := json.Marshal(ap.Forward)
	if err != nil {
		return fmt.Errorf("marshal forward patch: %w", err)
	}
	inv, err := json.Marshal(ap.Inverse)
	if err != nil {
		return fmt.Errorf("marshal inverse patch: %w", err)
	}
	_, err = t.tx.ExecContext(ctx,
		`INSERT INTO applied_patches (id, workout_id, forward_json, inverse_json, applied_at, reverted_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		ap.ID, ap.WorkoutID, string(fwd), string(inv), formatTime(ap.AppliedAt), nullTime(ap.RevertedAt),
	)
	if err != nil {
		return fmt.Errorf("insert applied patch: %w", err)
	}
	return nil
}

// GetAppliedPatch reads one applied patch.
func (t *Tx) GetAppliedPatch(ctx context.Context, id string) (workout.AppliedPatch, error) {
	var ap workout.AppliedPatch
	var fwd, inv, appliedAt string
	var revertedAt sql.NullString
	err := t.tx.QueryRowContext(ctx,
		`SELECT id, workout_id, forward_json, inverse_json, applied_at, reverted_at
		 FROM applied_patches WHERE id = ?`, id,
	).Scan(&ap.ID, &ap.WorkoutID, &fwd, &inv, &appliedAt, &revertedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return workout.AppliedPatch{}, coacherr.New(coacherr.NotFound, "get applied patch", "patch %s not found", id)
	}
	if err != nil {
		return workout.AppliedPatch{}, fmt.Errorf("get applied patch %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(fwd), &ap.Forward); err != nil {
		return workout.AppliedPatch{}, fmt.Errorf("unmarshal forward patch: %w", err)
	}
	if err := json.Unmarshal([]byte(inv), &ap.Inverse); err != nil {
		return workout.AppliedPatch{}, fmt.Errorf("unmarshal inverse patch: %w", err)
	}
	ap.AppliedAt, _ = time.Parse(time.RFC3339Nano, appliedAt)
	ap.RevertedAt = parseNullTime(revertedAt)
	return ap, nil
}

// MarkReverted stamps an applied patch as reverted. It fails if already reverted.
func (t *Tx) MarkReverted(ctx context.Context, id string, at time.Time) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE applied_patches SET reverted_at = ? WHERE id = ? AND reverted_at IS NULL`,
		formatTime(at), id,
	)
	if err != nil {
		return fmt.Errorf("mark reverted: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return coacherr.New(coacherr.InvalidState, "mark reverted", "patch %s is missing or already reverted", id)
	}
	return nil
}
// #endregion applied-patches
