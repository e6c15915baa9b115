package lock

import (
	"fmt"
	"strings"
	"time"
)

// #region rigidity

// Rigidity is a per-user protection window setting.
type Rigidity string

const (
	LockedToday  Rigidity = "LOCKED_TODAY"
	Locked1Day   Rigidity = "LOCKED_1_DAY"
	Locked2Days  Rigidity = "LOCKED_2_DAYS"
	Locked3Days  Rigidity = "LOCKED_3_DAYS"
	FlexibleWeek Rigidity = "FLEXIBLE_WEEK"
)

// All lists the settings from most to least protective.
var All = []Rigidity{LockedToday, Locked1Day, Locked2Days, Locked3Days, FlexibleWeek}

// ParseRigidity accepts the canonical names case-insensitively.
func ParseRigidity(s string) (Rigidity, error) {
	r := Rigidity(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range All {
		if r == known {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown rigidity %q", s)
}

// WindowDays is the number of calendar days past today covered by r, or -1
// when r never locks.
func (r Rigidity) WindowDays() int {
	switch r {
	case LockedToday:
		return 0
	case Locked1Day:
		return 1
	case Locked2Days:
		return 2
	case Locked3Days:
		return 3
	}
	return -1
}

// #endregion rigidity

// #region is-locked

// IsLocked reports whether a workout on workoutDate sits inside the protection
// window at now. Days are counted between local calendar dates in now's
// location, not elapsed hours. Past-dated workouts are never reported locked;
// rejecting writes to history is the caller's job. Evaluate on every mutation
// attempt: the answer changes as now advances.
func IsLocked(workoutDate, now time.Time, r Rigidity) bool {
	window := r.WindowDays()
	if window < 0 {
		return false
	}
	days := DaysUntil(workoutDate, now)
	return days >= 0 && days <= window
}

// DaysUntil counts calendar days from now's date to workoutDate's date, both
// taken in now's location. Negative values are in the past.
func DaysUntil(workoutDate, now time.Time) int {
	loc := now.Location()
	wy, wm, wd := workoutDate.In(loc).Date()
	ny, nm, nd := now.Date()
	w := time.Date(wy, wm, wd, 0, 0, 0, 0, time.UTC)
	n := time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC)
	return int(w.Sub(n).Hours() / 24)
}

// #endregion is-locked
