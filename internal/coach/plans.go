package coach

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/danielpatrickdp/adaptive-coach/internal/coacherr"
	"github.com/danielpatrickdp/adaptive-coach/internal/decision"
	"github.com/danielpatrickdp/adaptive-coach/internal/eval"
	"github.com/danielpatrickdp/adaptive-coach/internal/logging"
	"github.com/danielpatrickdp/adaptive-coach/internal/prescription"
	"github.com/danielpatrickdp/adaptive-coach/internal/readiness"
	"github.com/danielpatrickdp/adaptive-coach/internal/signals"
	"github.com/danielpatrickdp/adaptive-coach/internal/workout"
)

// #region types

// PlanRequest asks for a generated plan for one user. Date selects the
// readiness day that decides whether an easier variant is built; zero means
// today. Adjust forces the variant regardless of readiness.
type PlanRequest struct {
	UserID       string             `json:"user_id"`
	Sport        prescription.Sport `json:"sport"`
	Title        string             `json:"title,omitempty"`
	DurationMin  int                `json:"duration_min"`
	Date         time.Time          `json:"date,omitempty"`
	Adjust       bool               `json:"adjust,omitempty"`
	TargetMeters int                `json:"target_meters,omitempty"`
}

func (r PlanRequest) key() string {
	return fmt.Sprintf("%s|%s|%s|%d|%s|%t|%d", r.UserID, r.Sport, r.Title, r.DurationMin,
		r.Date.Format("2006-01-02"), r.Adjust, r.TargetMeters)
}

// GeneratedPlan is a generated plan with its rendered text and QA verdict.
type GeneratedPlan struct {
	prescription.Result
	Text         string          `json:"text"`
	AdjustedText string          `json:"adjusted_text,omitempty"`
	Eval         eval.EvalResult `json:"eval"`
}

// #endregion types

// #region generate

// GeneratePlan builds a plan with the user's stored benchmarks. Identical
// concurrent requests share one generation. Plan checks and unreachable
// exact targets are logged and recorded but never fail the request.
func (s *Service) GeneratePlan(ctx context.Context, req PlanRequest) (GeneratedPlan, error) {
	v, err, _ := s.group.Do(req.key(), func() (interface{}, error) {
		return s.generate(ctx, req)
	})
	if err != nil {
		return GeneratedPlan{}, err
	}
	return v.(GeneratedPlan), nil
}

func (s *Service) generate(ctx context.Context, req PlanRequest) (GeneratedPlan, error) {
	bench, err := s.store.GetBenchmarks(ctx, req.UserID)
	if err != nil {
		return GeneratedPlan{}, err
	}
	adjust := req.Adjust
	if !adjust {
		if adjust, err = s.adjustTrigger(ctx, req.UserID, req.Date); err != nil {
			return GeneratedPlan{}, err
		}
	}
	res, err := s.generator.Generate(prescription.Request{
		Sport:        req.Sport,
		Title:        req.Title,
		DurationMin:  req.DurationMin,
		Benchmarks:   bench,
		Adjust:       adjust,
		TargetMeters: req.TargetMeters,
	})
	if err != nil {
		return GeneratedPlan{}, err
	}

	out := GeneratedPlan{Result: res, Text: prescription.Render(res.Plan)}
	if res.Adjusted != nil {
		out.AdjustedText = prescription.Render(*res.Adjusted)
	}
	if req.Sport != prescription.Rest {
		out.Eval = s.harness.Run(res.Plan, res.Adjusted, req.DurationMin)
		if !out.Eval.Passed {
			s.logger.Printf("[coach] plan check failed for %s %s: %s", req.UserID, req.Sport, out.Eval.Reason)
			s.record(logging.ProvenanceEntry{
				SubjectID:   req.UserID,
				UserID:      req.UserID,
				TriggerType: logging.TriggerPlanEval,
				SignalsJSON: mustJSON(req),
				Decision:    "failed",
				Reason:      out.Eval.Reason,
			})
		}
	} else {
		out.Eval = eval.EvalResult{Passed: true}
	}
	if res.TargetMissed {
		s.record(logging.ProvenanceEntry{
			SubjectID:   req.UserID,
			UserID:      req.UserID,
			TriggerType: logging.TriggerUnsafeAdjust,
			SignalsJSON: mustJSON(req),
			Decision:    string(coacherr.UnsafeAdjustment),
			Reason: fmt.Sprintf("no safe single-block edit takes %dm to %dm",
				res.Plan.TotalDistanceM(), req.TargetMeters),
		})
	}
	return out, nil
}

// adjustTrigger reports whether the day's readiness calls for the easier
// variant: a CAUTION or FATIGUED score, or an exhaustion or severe-soreness
// flag. A day without enough data never triggers it.
func (s *Service) adjustTrigger(ctx context.Context, userID string, date time.Time) (bool, error) {
	if date.IsZero() {
		date = s.now()
	}
	src, err := s.store.GetSources(ctx, userID, date)
	if err != nil {
		return false, fmt.Errorf("load sources: %w", err)
	}
	switch s.scorer.Score(src).Status {
	case readiness.StatusCaution, readiness.StatusFatigued:
		return true, nil
	}
	flags := signals.RedFlagsFrom(src.CheckIn, s.cfg.FlagConfig())
	return signals.Has(flags, signals.FlagExhausted) || signals.Has(flags, signals.FlagSevereSoreness), nil
}

// #endregion generate

// #region apply

// ApplyPlan writes plan onto a workout: directly when outside the user's
// lock window, as a PENDING proposal inside it.
func (s *Service) ApplyPlan(ctx context.Context, workoutID string, plan prescription.Plan, summary string) (Change, error) {
	w, err := s.store.GetWorkout(ctx, workoutID)
	if err != nil {
		return Change{}, err
	}
	if err := s.guardPast("apply plan", w); err != nil {
		return Change{}, err
	}
	if summary == "" {
		summary = plan.Objective
	}
	patch, err := planPatch(w, plan, "coach", summary, 0)
	if err != nil {
		return Change{}, err
	}
	return s.route(ctx, w, patch, summary, 0, "coach")
}

// UndoDirect reverts a patch that was applied outside the ledger.
func (s *Service) UndoDirect(ctx context.Context, appliedPatchID string) error {
	if err := s.patcher.Invert(ctx, appliedPatchID); err != nil {
		return err
	}
	s.record(logging.ProvenanceEntry{
		SubjectID:   appliedPatchID,
		TriggerType: logging.TriggerDirectApply,
		Decision:    "reverted",
	})
	return nil
}

// #endregion apply

// #region decision-patch

// patchFor turns a plan-changing decision into the patch for w.
func (s *Service) patchFor(ctx context.Context, w workout.Workout, d decision.Decision) (workout.Patch, error) {
	bench, err := s.store.GetBenchmarks(ctx, w.UserID)
	if err != nil {
		return workout.Patch{}, err
	}
	sport := prescription.ParseSport(w.Type)
	exp := d.Explain()

	var plan prescription.Plan
	var extra []workout.Op
	switch v := d.(type) {
	case decision.Proceed:
		return workout.Patch{}, coacherr.New(coacherr.InvalidState, "patch for decision", "PROCEED changes nothing")
	case decision.ReduceIntensity:
		plan = s.generator.Eased(sport, w.DurationMin, bench)
	case decision.Shorten:
		minutes := v.TargetMinutes
		if minutes <= 0 {
			minutes = max(1, int(float64(w.DurationMin)*v.DurationScale))
		}
		res, err := s.generator.Generate(prescription.Request{
			Sport:       sport,
			Title:       w.Title,
			DurationMin: minutes,
			Benchmarks:  bench,
		})
		if err != nil {
			return workout.Patch{}, err
		}
		plan = res.Plan
	case decision.SwapRecovery:
		recovery := sport
		if recovery == prescription.Strength || recovery == prescription.Other || recovery == prescription.Rest {
			recovery = prescription.Run
		}
		plan = s.generator.Recovery(recovery, v.RecoveryMinutes, bench)
		extra = append(extra,
			workout.SetTitle{Title: fmt.Sprintf("Recovery %s", recovery)},
			workout.SetType{Type: string(recovery)},
		)
	case decision.Rest:
		plan = prescription.RestDay()
		extra = append(extra,
			workout.SetTitle{Title: "Rest day"},
			workout.SetType{Type: string(prescription.Rest)},
		)
		if w.DurationMin != 0 {
			extra = append(extra, workout.SetDuration{Minutes: 0})
		}
	default:
		return workout.Patch{}, fmt.Errorf("patch for decision: unhandled action %s", d.Action())
	}

	patch, err := planPatch(w, plan, "readiness", exp.Text, exp.Confidence)
	if err != nil {
		return workout.Patch{}, err
	}
	patch.Ops = append(patch.Ops, extra...)
	return patch, nil
}

// planPatch is the common prescription, plan and AI metadata update.
func planPatch(w workout.Workout, plan prescription.Plan, source, note string, confidence int) (workout.Patch, error) {
	raw, err := json.Marshal(plan)
	if err != nil {
		return workout.Patch{}, fmt.Errorf("encode plan: %w", err)
	}
	ops := []workout.Op{
		workout.SetPrescription{Text: prescription.Render(plan)},
		workout.SetPlan{PlanJSON: string(raw)},
		workout.SetAIMeta{Source: source, Note: note, Confidence: confidence},
	}
	if plan.DurationMin > 0 && plan.DurationMin != w.DurationMin {
		ops = append(ops, workout.SetDuration{Minutes: plan.DurationMin})
	}
	return workout.NewPatch(ops...), nil
}

// #endregion decision-patch
