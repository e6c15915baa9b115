package coach

import (
	"context"
	"fmt"
	"time"

	"github.com/danielpatrickdp/adaptive-coach/internal/coacherr"
	"github.com/danielpatrickdp/adaptive-coach/internal/decision"
	"github.com/danielpatrickdp/adaptive-coach/internal/lock"
	"github.com/danielpatrickdp/adaptive-coach/internal/logging"
	"github.com/danielpatrickdp/adaptive-coach/internal/prescription"
	"github.com/danielpatrickdp/adaptive-coach/internal/readiness"
	"github.com/danielpatrickdp/adaptive-coach/internal/signals"
	"github.com/danielpatrickdp/adaptive-coach/internal/store"
	"github.com/danielpatrickdp/adaptive-coach/internal/workout"
)

// #region types

// CheckInResult is everything one check-in submission produced.
type CheckInResult struct {
	Readiness readiness.Result  `json:"readiness"`
	Flags     []signals.RedFlag `json:"flags,omitempty"`
	Decision  decision.Decision `json:"decision"`
	Change    Change            `json:"change"`
	Workout   *workout.Workout  `json:"workout,omitempty"`
}

// #endregion types

// #region readiness

// Readiness scores the stored sources for userID on date without writing
// anything. No data is a typed empty result, not an error.
func (s *Service) Readiness(ctx context.Context, userID string, date time.Time) (readiness.Result, error) {
	src, err := s.store.GetSources(ctx, userID, date)
	if err != nil {
		return readiness.Result{}, fmt.Errorf("load sources: %w", err)
	}
	return s.scorer.Score(src), nil
}

// #endregion readiness

// #region submit

// SubmitCheckIn stores the check-in, scores the day and maps the score onto a
// decision. When workoutID names a scheduled session and the decision changes
// the plan, the resulting patch is applied directly or proposed depending on
// the user's lock window. A CONFLICT from the ledger is returned alongside the
// result so callers can still show the recommendation.
func (s *Service) SubmitCheckIn(ctx context.Context, userID string, date time.Time, c signals.CheckIn, workoutID string) (CheckInResult, error) {
	if err := c.Validate(); err != nil {
		return CheckInResult{}, fmt.Errorf("submit check-in: %w", err)
	}
	if err := s.store.SaveCheckIn(ctx, userID, date, c); err != nil {
		return CheckInResult{}, err
	}
	src, err := s.store.GetSources(ctx, userID, date)
	if err != nil {
		return CheckInResult{}, fmt.Errorf("load sources: %w", err)
	}

	res := s.scorer.Score(src)
	flags := signals.RedFlagsFrom(src.CheckIn, s.cfg.FlagConfig())
	out := CheckInResult{Readiness: res, Flags: flags, Change: Change{Route: RouteNone}}

	var meta decision.WorkoutMeta
	var w workout.Workout
	if workoutID != "" {
		w, err = s.store.GetWorkout(ctx, workoutID)
		if err != nil {
			return CheckInResult{}, err
		}
		out.Workout = &w
		meta = metaOf(w)
	}
	d := s.mapper.Decide(res, flags, meta)
	out.Decision = d

	rec := logging.DecisionRecord{
		UserID:     userID,
		WorkoutID:  workoutID,
		Date:       date.Format(store.DateLayout),
		Score:      res.Score,
		Status:     string(res.Status),
		Confidence: res.Confidence,
		Source:     string(res.Source),
		Action:     string(d.Action()),
		Text:       d.Explain().Text,
		Route:      string(RouteNone),
		Now:        s.now().Format(time.RFC3339),
	}
	if workoutID != "" {
		r, err := s.rigidity(ctx, userID)
		if err != nil {
			return CheckInResult{}, err
		}
		rec.WorkoutDate = w.Date.Format(store.DateLayout)
		rec.WorkoutType = w.Type
		rec.WorkoutTitle = w.Title
		rec.WorkoutMin = w.DurationMin
		rec.Rigidity = string(r)
		rec.Locked = lock.IsLocked(w.Date, s.now(), r)
		out.Change.Rigidity = r
		out.Change.Locked = rec.Locked
	}
	for _, f := range res.Top(5) {
		rec.Factors = append(rec.Factors, fmt.Sprintf("%s %+.1f", f.Key, f.Impact))
	}
	for _, f := range flags {
		rec.Flags = append(rec.Flags, string(f.Kind))
	}

	var routeErr error
	if workoutID != "" && decision.ChangesPlan(d) {
		routeErr = s.guardPast("submit check-in", w)
		if routeErr == nil {
			var patch workout.Patch
			patch, routeErr = s.patchFor(ctx, w, d)
			if routeErr == nil {
				out.Change, routeErr = s.route(ctx, w, patch, d.Explain().Text, d.Explain().Confidence, "checkin")
			}
		}
		if out.Change.Route == "" {
			out.Change.Route = RouteNone
		}
		rec.Route = string(out.Change.Route)
	}

	subject := workoutID
	if subject == "" {
		subject = userID + "@" + rec.Date
	}
	s.record(logging.ProvenanceEntry{
		SubjectID:   subject,
		UserID:      userID,
		TriggerType: logging.TriggerCheckIn,
		SignalsJSON: mustJSON(rec),
		Decision:    string(d.Action()),
		Reason:      d.Explain().Because,
	})

	if routeErr != nil {
		s.logger.Printf("[coach] check-in %s for %s: %s not routed: %v", rec.Date, userID, d.Action(), routeErr)
		if coacherr.CodeOf(routeErr) == coacherr.Conflict {
			return out, routeErr
		}
		return CheckInResult{}, routeErr
	}
	return out, nil
}

// metaOf reads the mapper's view of a scheduled workout.
func metaOf(w workout.Workout) decision.WorkoutMeta {
	return decision.WorkoutMeta{
		ID:          w.ID,
		Title:       w.Title,
		Type:        w.Type,
		DurationMin: w.DurationMin,
		Hard:        prescription.IsHard(w.Type, w.Title),
	}
}

// #endregion submit
