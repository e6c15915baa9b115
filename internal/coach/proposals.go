package coach

import (
	"context"

	"github.com/danielpatrickdp/adaptive-coach/internal/logging"
	"github.com/danielpatrickdp/adaptive-coach/internal/proposal"
)

// #region decide

// DecideProposal accepts or declines a PENDING proposal. Accepting a proposal
// for a workout that is now in the past is rejected before the ledger runs.
func (s *Service) DecideProposal(ctx context.Context, id string, v proposal.Verdict) (proposal.Outcome, error) {
	p, err := s.ledger.Get(ctx, id)
	if err != nil {
		return proposal.Outcome{}, err
	}
	w, err := s.store.GetWorkout(ctx, p.WorkoutID)
	if err != nil {
		return proposal.Outcome{}, err
	}
	if v == proposal.Accept {
		if err := s.guardPast("decide proposal", w); err != nil {
			return proposal.Outcome{}, err
		}
	}
	out, err := s.ledger.Decide(ctx, id, v)
	if err != nil {
		return proposal.Outcome{}, err
	}

	trigger := logging.TriggerProposalDecline
	if v == proposal.Accept {
		trigger = logging.TriggerProposalAccept
	}
	s.record(logging.ProvenanceEntry{
		SubjectID:   id,
		UserID:      w.UserID,
		TriggerType: trigger,
		Decision:    string(out.Status),
		Reason:      p.Summary,
	})
	return out, nil
}

// #endregion decide

// #region undo

// UndoProposal reverts an APPLIED proposal once.
func (s *Service) UndoProposal(ctx context.Context, id string) (bool, error) {
	p, err := s.ledger.Get(ctx, id)
	if err != nil {
		return false, err
	}
	w, err := s.store.GetWorkout(ctx, p.WorkoutID)
	if err != nil {
		return false, err
	}
	if err := s.guardPast("undo proposal", w); err != nil {
		return false, err
	}
	reverted, err := s.ledger.Undo(ctx, id)
	if err != nil {
		return false, err
	}
	s.record(logging.ProvenanceEntry{
		SubjectID:   id,
		UserID:      w.UserID,
		TriggerType: logging.TriggerProposalUndo,
		Decision:    string(proposal.StatusUndone),
		Reason:      p.Summary,
	})
	return reverted, nil
}

// #endregion undo
