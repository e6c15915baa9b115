package replay

import (
	"time"

	"github.com/danielpatrickdp/adaptive-coach/internal/decision"
	"github.com/danielpatrickdp/adaptive-coach/internal/lock"
	"github.com/danielpatrickdp/adaptive-coach/internal/readiness"
	"github.com/danielpatrickdp/adaptive-coach/internal/signals"
)

// #region types
// Day is one recorded check-in day: the signal sources, the clock the
// decision was made at, and the scheduled workout if one was attached.
type Day struct {
	DayID    string
	Now      time.Time
	Sources  signals.Sources
	Workout  *decision.WorkoutMeta
	Date     time.Time // workout date; ignored when Workout is nil
	Rigidity lock.Rigidity
}

// ReplayConfig bundles scorer, flag and mapper configs for a replay run.
type ReplayConfig struct {
	Readiness readiness.Config
	Flags     signals.FlagConfig
	Decision  decision.Config
}

// DefaultReplayConfig returns the production defaults for all three stages.
func DefaultReplayConfig() ReplayConfig {
	return ReplayConfig{
		Readiness: readiness.DefaultConfig(),
		Flags:     signals.DefaultFlagConfig(),
		Decision:  decision.DefaultConfig(),
	}
}

// Routes a replayed decision can take.
const (
	RouteNone     = "none"
	RouteApplied  = "applied"
	RouteProposed = "proposed"
)

// ReplayResult captures the outcome of replaying one day through
// score -> flags -> decide -> lock.
type ReplayResult struct {
	DayID  string
	Action string // decision.Action value
	Reason string // the decision's "because" clause
	Text   string

	Score      *int
	Status     readiness.Status
	Confidence int
	Flags      []signals.FlagKind

	Locked bool
	Route  string // "none" | "applied" | "proposed"
}

// ReplaySummary provides aggregate stats from a replay run.
type ReplaySummary struct {
	TotalDays    int
	Insufficient int
	Actions      map[string]int
	Applied      int
	Proposed     int
}

// #endregion types

// #region replay
// Replay scores and decides every day independently. It touches no storage
// and writes no patches: Route reports where the change would have gone.
func Replay(days []Day, config ReplayConfig) []ReplayResult {
	scorer := readiness.NewScorer(config.Readiness)
	mapper := decision.NewMapper(config.Decision)

	results := make([]ReplayResult, 0, len(days))
	for _, day := range days {
		res := scorer.Score(day.Sources)
		flags := signals.RedFlagsFrom(day.Sources.CheckIn, config.Flags)

		var meta decision.WorkoutMeta
		if day.Workout != nil {
			meta = *day.Workout
		}
		d := mapper.Decide(res, flags, meta)

		r := ReplayResult{
			DayID:      day.DayID,
			Action:     string(d.Action()),
			Reason:     d.Explain().Because,
			Text:       d.Explain().Text,
			Score:      res.Score,
			Status:     res.Status,
			Confidence: res.Confidence,
			Route:      RouteNone,
		}
		for _, f := range flags {
			r.Flags = append(r.Flags, f.Kind)
		}

		if day.Workout != nil {
			r.Locked = lock.IsLocked(day.Date, day.Now, day.Rigidity)
			if decision.ChangesPlan(d) {
				r.Route = RouteApplied
				if r.Locked {
					r.Route = RouteProposed
				}
			}
		}
		results = append(results, r)
	}
	return results
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []ReplayResult) ReplaySummary {
	s := ReplaySummary{TotalDays: len(results), Actions: map[string]int{}}
	for _, r := range results {
		if r.Score == nil {
			s.Insufficient++
		}
		s.Actions[r.Action]++
		switch r.Route {
		case RouteApplied:
			s.Applied++
		case RouteProposed:
			s.Proposed++
		}
	}
	return s
}

// #endregion replay
