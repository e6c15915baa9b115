package replay

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/danielpatrickdp/adaptive-coach/internal/decision"
	"github.com/danielpatrickdp/adaptive-coach/internal/lock"
	"github.com/danielpatrickdp/adaptive-coach/internal/logging"
	"github.com/danielpatrickdp/adaptive-coach/internal/prescription"
	"github.com/danielpatrickdp/adaptive-coach/internal/signals"
)

const dateLayout = "2006-01-02"

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description     string                  `json:"description"`
	Config          FixtureConfig           `json:"config"`
	Days            []FixtureDay            `json:"days"`
	ExpectedResults []FixtureExpectedResult `json:"expected_results"`
}

// FixtureDay is one check-in day. Dates are YYYY-MM-DD and now is RFC3339;
// both are read in time.Local.
type FixtureDay struct {
	DayID    string                `json:"day_id"`
	Date     string                `json:"date"`
	Now      string                `json:"now"`
	Rigidity string                `json:"rigidity"`
	CheckIn  *signals.CheckIn      `json:"checkin,omitempty"`
	Diary    *signals.DiarySignals `json:"diary,omitempty"`
	Load     *signals.LoadSignals  `json:"load,omitempty"`
	Workout  *FixtureWorkout       `json:"workout,omitempty"`
}

// FixtureWorkout is the scheduled session attached to a day.
type FixtureWorkout struct {
	Date        string `json:"date"`
	Type        string `json:"type"`
	Title       string `json:"title"`
	DurationMin int    `json:"duration_min"`
}

// FixtureExpectedResult captures the expected action and route per day.
type FixtureExpectedResult struct {
	DayID  string `json:"day_id"`
	Action string `json:"action"`
	Route  string `json:"route,omitempty"`
}

// FixtureConfig overrides selected defaults. Absent fields keep the default.
type FixtureConfig struct {
	Baseline      *float64 `json:"baseline,omitempty"`
	OptimalAt     *int     `json:"optimal_at,omitempty"`
	CautionAt     *int     `json:"caution_at,omitempty"`
	RestAtOrBelow *int     `json:"rest_at_or_below,omitempty"`
	StressFlagAt  *int     `json:"stress_flag_at,omitempty"`
	ShortSleepHrs *float64 `json:"short_sleep_hrs,omitempty"`
	FatigueFlagAt *int     `json:"fatigue_flag_at,omitempty"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// ToDay converts a FixtureDay to a domain Day.
func (fd *FixtureDay) ToDay() (Day, error) {
	date, err := time.ParseInLocation(dateLayout, fd.Date, time.Local)
	if err != nil {
		return Day{}, fmt.Errorf("day %s: date: %w", fd.DayID, err)
	}
	now := date.Add(8 * time.Hour)
	if fd.Now != "" {
		if now, err = time.Parse(time.RFC3339, fd.Now); err != nil {
			return Day{}, fmt.Errorf("day %s: now: %w", fd.DayID, err)
		}
		now = now.In(time.Local)
	}
	d := Day{
		DayID: fd.DayID,
		Now:   now,
		Sources: signals.Sources{
			Date:    date,
			CheckIn: fd.CheckIn,
			Diary:   fd.Diary,
			Load:    fd.Load,
		},
		Rigidity: lock.Locked1Day,
	}
	if fd.Rigidity != "" {
		if d.Rigidity, err = lock.ParseRigidity(fd.Rigidity); err != nil {
			return Day{}, fmt.Errorf("day %s: %w", fd.DayID, err)
		}
	}
	if fd.Workout != nil {
		wd := date
		if fd.Workout.Date != "" {
			if wd, err = time.ParseInLocation(dateLayout, fd.Workout.Date, time.Local); err != nil {
				return Day{}, fmt.Errorf("day %s: workout date: %w", fd.DayID, err)
			}
		}
		meta := workoutMeta(fd.DayID, fd.Workout.Type, fd.Workout.Title, fd.Workout.DurationMin)
		d.Workout = &meta
		d.Date = wd
	}
	return d, nil
}

// ToDays converts every fixture day.
func (f *Fixture) ToDays() ([]Day, error) {
	days := make([]Day, 0, len(f.Days))
	for i := range f.Days {
		d, err := f.Days[i].ToDay()
		if err != nil {
			return nil, err
		}
		days = append(days, d)
	}
	return days, nil
}

// ToReplayConfig applies the fixture overrides to the defaults.
func (fc *FixtureConfig) ToReplayConfig() ReplayConfig {
	c := DefaultReplayConfig()
	if fc.Baseline != nil {
		c.Readiness.Baseline = *fc.Baseline
	}
	if fc.OptimalAt != nil {
		c.Readiness.OptimalAt = *fc.OptimalAt
	}
	if fc.CautionAt != nil {
		c.Readiness.CautionAt = *fc.CautionAt
	}
	if fc.RestAtOrBelow != nil {
		c.Decision.RestAtOrBelow = *fc.RestAtOrBelow
	}
	if fc.StressFlagAt != nil {
		c.Flags.StressAtLeast = *fc.StressFlagAt
	}
	if fc.ShortSleepHrs != nil {
		c.Flags.SleepBelowHrs = *fc.ShortSleepHrs
	}
	if fc.FatigueFlagAt != nil {
		c.Flags.FatigueAtLeast = *fc.FatigueFlagAt
	}
	return c
}

// #endregion fixture-loader

// #region record-loader

// FromRecord rebuilds a Day from a stored check-in decision record and the
// signal sources for its date.
func FromRecord(id string, rec logging.DecisionRecord, src signals.Sources) (Day, error) {
	d := Day{DayID: id, Sources: src}
	if rec.Now != "" {
		now, err := time.Parse(time.RFC3339, rec.Now)
		if err != nil {
			return Day{}, fmt.Errorf("record %s: now: %w", id, err)
		}
		d.Now = now.In(time.Local)
	}
	if rec.WorkoutID == "" {
		return d, nil
	}
	wd, err := time.ParseInLocation(dateLayout, rec.WorkoutDate, time.Local)
	if err != nil {
		return Day{}, fmt.Errorf("record %s: workout date: %w", id, err)
	}
	r, err := lock.ParseRigidity(rec.Rigidity)
	if err != nil {
		return Day{}, fmt.Errorf("record %s: %w", id, err)
	}
	meta := workoutMeta(rec.WorkoutID, rec.WorkoutType, rec.WorkoutTitle, rec.WorkoutMin)
	d.Workout = &meta
	d.Date = wd
	d.Rigidity = r
	return d, nil
}

func workoutMeta(id, typ, title string, minutes int) decision.WorkoutMeta {
	return decision.WorkoutMeta{
		ID:          id,
		Title:       title,
		Type:        typ,
		DurationMin: minutes,
		Hard:        prescription.IsHard(typ, title),
	}
}

// #endregion record-loader
