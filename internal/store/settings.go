package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/danielpatrickdp/adaptive-coach/internal/lock"
	"github.com/danielpatrickdp/adaptive-coach/internal/prescription"
	"github.com/danielpatrickdp/adaptive-coach/internal/signals"
)

// #region signal-sources
// SaveCheckIn stores the check-in for (userID, date), replacing any earlier one.
func (s *Store) SaveCheckIn(ctx context.Context, userID string, date time.Time, c signals.CheckIn) error {
	return s.upsertSource(ctx, userID, date, "checkin_json", c)
}

// SaveDiary stores diary signals for (userID, date).
func (s *Store) SaveDiary(ctx context.Context, userID string, date time.Time, d signals.DiarySignals) error {
	return s.upsertSource(ctx, userID, date, "diary_json", d)
}

// SaveLoad stores training-load signals for (userID, date).
func (s *Store) SaveLoad(ctx context.Context, userID string, date time.Time, l signals.LoadSignals) error {
	return s.upsertSource(ctx, userID, date, "load_json", l)
}

func (s *Store) upsertSource(ctx context.Context, userID string, date time.Time, column string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", column, err)
	}
	// column is one of three fixed names above, never caller input.
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO signal_sources (user_id, date, `+column+`, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id, date) DO UPDATE SET `+column+` = excluded.`+column+`, updated_at = excluded.updated_at`,
		userID, date.Format(DateLayout), string(data), formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("save %s: %w", column, err)
	}
	return nil
}

// GetSources returns every signal source stored for (userID, date). Missing
// rows give an empty bundle, not an error.
func (s *Store) GetSources(ctx context.Context, userID string, date time.Time) (signals.Sources, error) {
	day := date.Format(DateLayout)
	src := signals.Sources{UserID: userID}
	src.Date, _ = time.ParseInLocation(DateLayout, day, s.loc)

	var checkin, diary, load sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT checkin_json, diary_json, load_json FROM signal_sources WHERE user_id = ? AND date = ?`,
		userID, day,
	).Scan(&checkin, &diary, &load)
	if errors.Is(err, sql.ErrNoRows) {
		return src, nil
	}
	if err != nil {
		return signals.Sources{}, fmt.Errorf("get sources: %w", err)
	}

	if checkin.Valid {
		src.CheckIn = &signals.CheckIn{}
		if err := json.Unmarshal([]byte(checkin.String), src.CheckIn); err != nil {
			return signals.Sources{}, fmt.Errorf("unmarshal checkin: %w", err)
		}
	}
	if diary.Valid {
		src.Diary = &signals.DiarySignals{}
		if err := json.Unmarshal([]byte(diary.String), src.Diary); err != nil {
			return signals.Sources{}, fmt.Errorf("unmarshal diary: %w", err)
		}
	}
	if load.Valid {
		src.Load = &signals.LoadSignals{}
		if err := json.Unmarshal([]byte(load.String), src.Load); err != nil {
			return signals.Sources{}, fmt.Errorf("unmarshal load: %w", err)
		}
	}
	return src, nil
}
// #endregion signal-sources

// #region user-settings
// GetRigidity returns the user's stored rigidity, or ok=false when unset.
func (s *Store) GetRigidity(ctx context.Context, userID string) (lock.Rigidity, bool, error) {
	var raw sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT rigidity FROM user_settings WHERE user_id = ?`, userID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !raw.Valid) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get rigidity: %w", err)
	}
	r, err := lock.ParseRigidity(raw.String)
	if err != nil {
		return "", false, fmt.Errorf("stored rigidity: %w", err)
	}
	return r, true, nil
}

// SetRigidity stores the user's rigidity.
func (s *Store) SetRigidity(ctx context.Context, userID string, r lock.Rigidity) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_settings (user_id, rigidity) VALUES (?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET rigidity = excluded.rigidity`,
		userID, string(r),
	)
	if err != nil {
		return fmt.Errorf("set rigidity: %w", err)
	}
	return nil
}

// GetBenchmarks returns the user's benchmarks. Unset benchmarks are the zero set.
func (s *Store) GetBenchmarks(ctx context.Context, userID string) (prescription.BenchmarkSet, error) {
	var raw sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT benchmarks_json FROM user_settings WHERE user_id = ?`, userID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !raw.Valid) {
		return prescription.BenchmarkSet{}, nil
	}
	if err != nil {
		return prescription.BenchmarkSet{}, fmt.Errorf("get benchmarks: %w", err)
	}
	var b prescription.BenchmarkSet
	if err := json.Unmarshal([]byte(raw.String), &b); err != nil {
		return prescription.BenchmarkSet{}, fmt.Errorf("unmarshal benchmarks: %w", err)
	}
	return b, nil
}

// SetBenchmarks stores the user's benchmarks.
func (s *Store) SetBenchmarks(ctx context.Context, userID string, b prescription.BenchmarkSet) error {
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("marshal benchmarks: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO user_settings (user_id, benchmarks_json) VALUES (?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET benchmarks_json = excluded.benchmarks_json`,
		userID, string(data),
	)
	if err != nil {
		return fmt.Errorf("set benchmarks: %w", err)
	}
	return nil
}
// #endregion user-settings
