package signals

import (
	"fmt"
	"time"
)

// #region soreness

// Soreness is the check-in muscle soreness category.
type Soreness string

const (
	SorenessNone     Soreness = "NONE"
	SorenessMild     Soreness = "MILD"
	SorenessModerate Soreness = "MODERATE"
	SorenessSevere   Soreness = "SEVERE"
)

// Valid reports whether s is one of the known categories.
func (s Soreness) Valid() bool {
	switch s {
	case SorenessNone, SorenessMild, SorenessModerate, SorenessSevere:
		return true
	}
	return false
}

// #endregion soreness

// #region checkin

// CheckIn is the daily check-in form. Nil fields were not answered.
// Scales are 1-5; for PhysicalFatigue and StressLevel higher is worse.
type CheckIn struct {
	SleepDurationHrs *float64  `json:"sleep_duration_hrs,omitempty"`
	SleepQuality     *int      `json:"sleep_quality,omitempty"`
	PhysicalFatigue  *int      `json:"physical_fatigue,omitempty"`
	MuscleSoreness   *Soreness `json:"muscle_soreness,omitempty"`
	MentalReadiness  *int      `json:"mental_readiness,omitempty"`
	Motivation       *int      `json:"motivation,omitempty"`
	StressLevel      *int      `json:"stress_level,omitempty"`
	Notes            string    `json:"notes,omitempty"`
}

// Answered counts the non-nil signals on the form.
func (c *CheckIn) Answered() int {
	if c == nil {
		return 0
	}
	n := 0
	if c.SleepDurationHrs != nil {
		n++
	}
	if c.SleepQuality != nil {
		n++
	}
	if c.PhysicalFatigue != nil {
		n++
	}
	if c.MuscleSoreness != nil {
		n++
	}
	if c.MentalReadiness != nil {
		n++
	}
	if c.Motivation != nil {
		n++
	}
	if c.StressLevel != nil {
		n++
	}
	return n
}

// Validate rejects out-of-range answers: 1-5 scales, 0-24 hours, known soreness.
func (c *CheckIn) Validate() error {
	if c == nil {
		return nil
	}
	scales := []struct {
		name string
		v    *int
	}{
		{"sleep_quality", c.SleepQuality},
		{"physical_fatigue", c.PhysicalFatigue},
		{"mental_readiness", c.MentalReadiness},
		{"motivation", c.Motivation},
		{"stress_level", c.StressLevel},
	}
	for _, sc := range scales {
		if sc.v != nil && (*sc.v < 1 || *sc.v > 5) {
			return fmt.Errorf("%s must be 1-5, got %d", sc.name, *sc.v)
		}
	}
	if c.SleepDurationHrs != nil && (*c.SleepDurationHrs < 0 || *c.SleepDurationHrs > 24) {
		return fmt.Errorf("sleep_duration_hrs must be 0-24, got %.1f", *c.SleepDurationHrs)
	}
	if c.MuscleSoreness != nil && !c.MuscleSoreness.Valid() {
		return fmt.Errorf("unknown muscle_soreness %q", *c.MuscleSoreness)
	}
	return nil
}

// #endregion checkin

// #region fallback

// DiarySignals are the lighter daily diary entries used when no check-in exists.
// All scales are 1-5; Stress and Soreness are higher-is-worse.
type DiarySignals struct {
	Mood      *int     `json:"mood,omitempty"`
	Energy    *int     `json:"energy,omitempty"`
	SleepHrs  *float64 `json:"sleep_hrs,omitempty"`
	SleepQual *int     `json:"sleep_qual,omitempty"`
	Stress    *int     `json:"stress,omitempty"`
	Soreness  *int     `json:"soreness,omitempty"`
}

// LoadSignals are training-load derived values. HRVDeviationPct is the
// percentage deviation of today's HRV from the rolling baseline.
type LoadSignals struct {
	ATL             *float64 `json:"atl,omitempty"`
	CTL             *float64 `json:"ctl,omitempty"`
	TSB             *float64 `json:"tsb,omitempty"`
	HRVDeviationPct *float64 `json:"hrv_deviation_pct,omitempty"`
}

// #endregion fallback

// #region sources

// Sources is the immutable bundle of every signal source known for one user and date.
type Sources struct {
	UserID  string        `json:"user_id"`
	Date    time.Time     `json:"date"`
	CheckIn *CheckIn      `json:"checkin,omitempty"`
	Diary   *DiarySignals `json:"diary,omitempty"`
	Load    *LoadSignals  `json:"load,omitempty"`
}

// HasCheckIn reports whether an answered check-in exists. A check-in is
// authoritative for its date whenever it carries at least one signal.
func (s Sources) HasCheckIn() bool {
	return s.CheckIn.Answered() > 0
}

// #endregion sources

// #region helpers

// Int returns a pointer to v, for building optional signals.
func Int(v int) *int { return &v }

// Float returns a pointer to v, for building optional signals.
func Float(v float64) *float64 { return &v }

// Sore returns a pointer to v, for building optional signals.
func Sore(v Soreness) *Soreness { return &v }

// #endregion helpers
