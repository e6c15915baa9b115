// Package coach wires the readiness, decision, lock, ledger and prescription
// packages into the request flows a caller drives: check-ins, plan generation
// and apply, proposal decisions and intent-driven planning.
package coach

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"time"

	"github.com/danielpatrickdp/adaptive-coach/internal/coacherr"
	"github.com/danielpatrickdp/adaptive-coach/internal/config"
	"github.com/danielpatrickdp/adaptive-coach/internal/decision"
	"github.com/danielpatrickdp/adaptive-coach/internal/eval"
	"github.com/danielpatrickdp/adaptive-coach/internal/intent"
	"github.com/danielpatrickdp/adaptive-coach/internal/lock"
	"github.com/danielpatrickdp/adaptive-coach/internal/logging"
	"github.com/danielpatrickdp/adaptive-coach/internal/prescription"
	"github.com/danielpatrickdp/adaptive-coach/internal/proposal"
	"github.com/danielpatrickdp/adaptive-coach/internal/readiness"
	"github.com/danielpatrickdp/adaptive-coach/internal/signals"
	"github.com/danielpatrickdp/adaptive-coach/internal/workout"
	"golang.org/x/sync/singleflight"
)

// #region store

// Store is the persistence the service needs. *store.Store satisfies it.
type Store interface {
	workout.Store
	proposal.Store

	CreateWorkout(ctx context.Context, w workout.Workout) (workout.Workout, error)
	GetWorkout(ctx context.Context, id string) (workout.Workout, error)
	ListWorkouts(ctx context.Context, userID string, from, to time.Time) ([]workout.Workout, error)

	SaveCheckIn(ctx context.Context, userID string, date time.Time, c signals.CheckIn) error
	GetSources(ctx context.Context, userID string, date time.Time) (signals.Sources, error)
	GetRigidity(ctx context.Context, userID string) (lock.Rigidity, bool, error)
	GetBenchmarks(ctx context.Context, userID string) (prescription.BenchmarkSet, error)

	DB() *sql.DB
}

// #endregion store

// #region service

// Service runs the coach flows against one store.
type Service struct {
	store     Store
	cfg       config.Config
	scorer    *readiness.Scorer
	mapper    *decision.Mapper
	patcher   *workout.Patcher
	ledger    *proposal.Ledger
	generator *prescription.Generator
	harness   *eval.EvalHarness
	parser    intent.Parser
	logger    *log.Logger
	now       func() time.Time

	group singleflight.Group
}

// NewService wires a Service. A nil parser means keyword parsing only; a nil
// logger means log.Default().
func NewService(st Store, cfg config.Config, parser intent.Parser, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	if parser == nil {
		parser = intent.KeywordParser{}
	}
	patcher := workout.NewPatcher(st)
	evalCfg := eval.DefaultEvalConfig()
	evalCfg.SwimSecPer100 = cfg.Prescription.DefaultSwimSecPer100
	return &Service{
		store:     st,
		cfg:       cfg,
		scorer:    readiness.NewScorer(cfg.ScorerConfig()),
		mapper:    decision.NewMapper(cfg.MapperConfig()),
		patcher:   patcher,
		ledger:    proposal.NewLedger(st, patcher, cfg.LedgerSettings(), logger),
		generator: prescription.NewGenerator(cfg.GeneratorConfig(), logger),
		harness:   eval.NewEvalHarness(evalCfg),
		parser:    parser,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock overrides "now" for lock checks, the past-date guard and every
// timestamp the service writes.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	s.patcher.WithClock(func() time.Time { return now().UTC() })
	s.ledger.WithClock(func() time.Time { return now().UTC() })
	return s
}

// Ledger exposes the proposal ledger for read-only listing.
func (s *Service) Ledger() *proposal.Ledger {
	return s.ledger
}

// #endregion service

// #region routing

// Route says what happened to a plan change.
type Route string

const (
	RouteNone     Route = "none"
	RouteApplied  Route = "applied"
	RouteProposed Route = "proposed"
)

// Change is the outcome of routing a patch through the lock policy.
type Change struct {
	Route          Route              `json:"route"`
	Locked         bool               `json:"locked"`
	Rigidity       lock.Rigidity      `json:"rigidity"`
	AppliedPatchID string             `json:"applied_patch_id,omitempty"`
	Proposal       *proposal.Proposal `json:"proposal,omitempty"`
}

// rigidity returns the user's stored setting or the configured default.
func (s *Service) rigidity(ctx context.Context, userID string) (lock.Rigidity, error) {
	r, ok, err := s.store.GetRigidity(ctx, userID)
	if err != nil {
		return "", err
	}
	if !ok {
		return s.cfg.DefaultRigidity(), nil
	}
	return r, nil
}

// guardPast rejects writes to workouts dated before today.
func (s *Service) guardPast(op string, w workout.Workout) error {
	if lock.DaysUntil(w.Date, s.now()) < 0 {
		return coacherr.New(coacherr.InvalidState, op,
			"workout %s on %s is in the past", w.ID, w.Date.Format("2006-01-02"))
	}
	return nil
}

// route applies patch directly when w is outside the user's lock window and
// holds it as a PENDING proposal otherwise. A CONFLICT from the ledger is
// returned with the Change still describing the lock verdict.
func (s *Service) route(ctx context.Context, w workout.Workout, patch workout.Patch, summary string, confidence int, source string) (Change, error) {
	r, err := s.rigidity(ctx, w.UserID)
	if err != nil {
		return Change{}, err
	}
	ch := Change{Rigidity: r, Locked: lock.IsLocked(w.Date, s.now(), r)}

	if !ch.Locked {
		return s.applyDirect(ctx, w, patch, summary, ch)
	}

	p, err := s.ledger.Create(ctx, proposal.Draft{
		WorkoutID:  w.ID,
		Summary:    summary,
		Patch:      patch,
		Confidence: confidence,
		SourceType: source,
	})
	if err != nil {
		return ch, err
	}
	ch.Route = RouteProposed
	ch.Proposal = &p
	s.record(logging.ProvenanceEntry{
		SubjectID:   p.ID,
		UserID:      w.UserID,
		TriggerType: logging.TriggerProposalCreate,
		Decision:    string(p.Status),
		Reason:      summary,
	})
	return ch, nil
}

// applyDirect writes patch without the ledger and fills in ch.
func (s *Service) applyDirect(ctx context.Context, w workout.Workout, patch workout.Patch, summary string, ch Change) (Change, error) {
	id, err := s.patcher.Apply(ctx, w.ID, patch)
	if err != nil {
		return ch, err
	}
	ch.Route = RouteApplied
	ch.AppliedPatchID = id
	s.record(logging.ProvenanceEntry{
		SubjectID:   w.ID,
		UserID:      w.UserID,
		TriggerType: logging.TriggerDirectApply,
		Decision:    id,
		Reason:      summary,
	})
	return ch, nil
}

// #endregion routing

// #region provenance

// record writes a provenance row. Failures are logged, never returned: the
// audit trail must not fail the request it describes.
func (s *Service) record(e logging.ProvenanceEntry) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now().UTC()
	}
	if err := logging.LogDecision(s.store.DB(), e); err != nil {
		s.logger.Printf("[coach] provenance write failed: %v", err)
	}
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// #endregion provenance
