package coach

import (
	"context"
	"fmt"
	"math"

	"github.com/danielpatrickdp/adaptive-coach/internal/coacherr"
	"github.com/danielpatrickdp/adaptive-coach/internal/intent"
	"github.com/danielpatrickdp/adaptive-coach/internal/lock"
	"github.com/danielpatrickdp/adaptive-coach/internal/prescription"
	"github.com/danielpatrickdp/adaptive-coach/internal/workout"
)

const defaultIntentMinutes = 45

// #region types

// IntentResult is the outcome of planning from one intent.
type IntentResult struct {
	Intent  intent.Intent   `json:"intent"`
	Workout workout.Workout `json:"workout"`
	Created bool            `json:"created"`
	Plan    GeneratedPlan   `json:"plan"`
	Change  Change          `json:"change"`
}

// #endregion types

// #region plan-from-intent

// PlanFromText parses text with the configured parser and plans from the result.
func (s *Service) PlanFromText(ctx context.Context, userID, text string) (IntentResult, error) {
	in, err := s.parser.Parse(ctx, text, s.now())
	if err != nil {
		return IntentResult{}, fmt.Errorf("parse intent: %w", err)
	}
	return s.PlanFromIntent(ctx, userID, in)
}

// PlanFromIntent generates a plan for a structured intent and writes it onto
// the user's workout of that sport on that date, creating one when none is
// scheduled. Swim distance claims are enforced exactly or reported missed.
func (s *Service) PlanFromIntent(ctx context.Context, userID string, in intent.Intent) (IntentResult, error) {
	if in.Sport == "" {
		return IntentResult{}, coacherr.New(coacherr.InsufficientData, "plan from intent", "intent has no sport")
	}
	if lock.DaysUntil(in.Date, s.now()) < 0 {
		return IntentResult{}, coacherr.New(coacherr.InvalidState, "plan from intent",
			"%s is in the past", in.Date.Format("2006-01-02"))
	}

	minutes := in.DurationMin
	if minutes <= 0 {
		minutes = s.estimateMinutes(in)
	}

	w, created, err := s.workoutFor(ctx, userID, in, minutes)
	if err != nil {
		return IntentResult{}, err
	}

	req := PlanRequest{UserID: userID, Sport: in.Sport, Title: in.Title, DurationMin: minutes, Date: in.Date}
	if in.Sport == prescription.Swim {
		req.TargetMeters = in.DistanceM
	}
	gen, err := s.GeneratePlan(ctx, req)
	if err != nil {
		return IntentResult{}, err
	}

	out := IntentResult{Intent: in, Workout: w, Created: created, Plan: gen}
	if created {
		// A workout created for this intent has no prior content to protect.
		patch, err := planPatch(w, gen.Plan, "intent", gen.Plan.Objective, in.Confidence)
		if err != nil {
			return out, err
		}
		out.Change, err = s.applyDirect(ctx, w, patch, gen.Plan.Objective, Change{Route: RouteNone})
		return out, err
	}
	out.Change, err = s.ApplyPlan(ctx, w.ID, gen.Plan, gen.Plan.Objective)
	return out, err
}

// estimateMinutes sizes a session with no stated duration. Swim distance
// converts at the default pace; everything else gets the house default.
func (s *Service) estimateMinutes(in intent.Intent) int {
	if in.Sport == prescription.Swim && in.DistanceM > 0 {
		sec := float64(in.DistanceM) / 100 * float64(s.cfg.Prescription.DefaultSwimSecPer100)
		return int(math.Ceil(sec / 60))
	}
	return defaultIntentMinutes
}

// workoutFor returns the first same-sport workout on the intent's date or
// creates one.
func (s *Service) workoutFor(ctx context.Context, userID string, in intent.Intent, minutes int) (workout.Workout, bool, error) {
	existing, err := s.store.ListWorkouts(ctx, userID, in.Date, in.Date)
	if err != nil {
		return workout.Workout{}, false, err
	}
	for _, w := range existing {
		if prescription.ParseSport(w.Type) == in.Sport {
			return w, false, nil
		}
	}
	title := in.Title
	if title == "" {
		title = string(in.Sport)
	}
	w, err := s.store.CreateWorkout(ctx, workout.Workout{
		UserID:      userID,
		Date:        in.Date,
		Type:        string(in.Sport),
		Title:       title,
		DurationMin: minutes,
	})
	if err != nil {
		return workout.Workout{}, false, err
	}
	s.logger.Printf("[coach] created %s workout %s for %s on %s", in.Sport, w.ID, userID, in.Date.Format("2006-01-02"))
	return w, true, nil
}

// #endregion plan-from-intent
