package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/danielpatrickdp/adaptive-coach/internal/coacherr"
	"github.com/danielpatrickdp/adaptive-coach/internal/proposal"
)

const proposalColumns = `id, workout_id, summary, patch_json, before_json, diff, confidence, source_type,
	status, created_at, decided_at, applied_patch_id, undone_at, note`

// #region insert-proposal
// InsertProposal inserts p. The partial unique index on PENDING rows turns a
// second pending proposal for the same workout into CONFLICT.
func (t *Tx) InsertProposal(ctx context.Context, p proposal.Proposal) error {
	patchJSON, err := json.Marshal(p.Patch)
	if err != nil {
		return fmt.Errorf("marshal patch: %w", err)
	}
	beforeJSON, err := json.Marshal(p.Before)
	if err != nil {
		return fmt.Errorf("marshal before: %w", err)
	}
	_, err = t.tx.ExecContext(ctx,
		`INSERT INTO proposals (`+proposalColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.WorkoutID, p.Summary, string(patchJSON), string(beforeJSON), nullIfEmpty(p.Diff),
		p.Confidence, p.SourceType, string(p.Status), formatTime(p.CreatedAt),
		nullTime(p.DecidedAt), nullIfEmpty(p.AppliedPatchID), nullTime(p.UndoneAt), nullIfEmpty(p.Note),
	)
	if isUniqueViolation(err) {
		return coacherr.New(coacherr.Conflict, "create proposal",
			"workout %s already has a pending proposal", p.WorkoutID)
	}
	if err != nil {
		return fmt.Errorf("insert proposal: %w", err)
	}
	return nil
}
// #endregion insert-proposal

// #region get-proposal
// GetProposal reads one proposal.
func (t *Tx) GetProposal(ctx context.Context, id string) (proposal.Proposal, error) {
	p, err := scanProposal(t.tx.QueryRowContext(ctx,
		`SELECT `+proposalColumns+` FROM proposals WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return proposal.Proposal{}, coacherr.New(coacherr.NotFound, "get proposal", "proposal %s not found", id)
	}
	return p, err
}

// ListProposals returns a workout's proposals oldest first, optionally filtered by status.
func (t *Tx) ListProposals(ctx context.Context, workoutID string, status proposal.Status) ([]proposal.Proposal, error) {
	query := `SELECT ` + proposalColumns + ` FROM proposals WHERE workout_id = ?`
	args := []any{workoutID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at, id`

	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list proposals: %w", err)
	}
	defer rows.Close()

	var out []proposal.Proposal
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanProposal(row rowScanner) (proposal.Proposal, error) {
	var p proposal.Proposal
	var patchJSON, beforeJSON, status, createdAt string
	var diff, appliedPatchID, note, decidedAt, undoneAt sql.NullString
	err := row.Scan(&p.ID, &p.WorkoutID, &p.Summary, &patchJSON, &beforeJSON, &diff, &p.Confidence,
		&p.SourceType, &status, &createdAt, &decidedAt, &appliedPatchID, &undoneAt, &note)
	if err != nil {
		return proposal.Proposal{}, err
	}
	if err := json.Unmarshal([]byte(patchJSON), &p.Patch); err != nil {
		return proposal.Proposal{}, fmt.Errorf("unmarshal proposal patch: %w", err)
	}
	if err := json.Unmarshal([]byte(beforeJSON), &p.Before); err != nil {
		return proposal.Proposal{}, fmt.Errorf("unmarshal proposal before: %w", err)
	}
	p.Status = proposal.Status(status)
	p.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	p.DecidedAt = parseNullTime(decidedAt)
	p.UndoneAt = parseNullTime(undoneAt)
	p.Diff = diff.String
	p.AppliedPatchID = appliedPatchID.String
	p.Note = note.String
	return p, nil
}
// #endregion get-proposal

// #region update-proposal
// UpdateProposal writes the mutable proposal columns if the row still has status from.
func (t *Tx) UpdateProposal(ctx context.Context, p proposal.Proposal, from proposal.Status) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE proposals
		 SET status = ?, decided_at = ?, applied_patch_id = ?, undone_at = ?, note = ?
		 WHERE id = ? AND status = ?`,
		string(p.Status), nullTime(p.DecidedAt), nullIfEmpty(p.AppliedPatchID), nullTime(p.UndoneAt),
		nullIfEmpty(p.Note), p.ID, string(from),
	)
	if isUniqueViolation(err) {
		return coacherr.New(coacherr.Conflict, "update proposal",
			"workout %s already has a pending proposal", p.WorkoutID)
	}
	if err != nil {
		return fmt.Errorf("update proposal %s: %w", p.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return coacherr.New(coacherr.InvalidState, "update proposal",
			"proposal %s is no longer %s", p.ID, from)
	}
	return nil
}
// #endregion update-proposal
