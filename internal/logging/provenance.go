package logging

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// #region log-decision
// LogDecision writes a provenance entry to the provenance_log table.
func LogDecision(db *sql.DB, entry ProvenanceEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO provenance_log (subject_id, user_id, trigger_type, signals_json, decision, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.SubjectID,
		nullIfEmpty(entry.UserID),
		entry.TriggerType,
		nullIfEmpty(entry.SignalsJSON),
		entry.Decision,
		nullIfEmpty(entry.Reason),
		entry.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log decision: %w", err)
	}
	return nil
}
// #endregion log-decision

// #region list-entries
// ListEntries returns the provenance rows for one subject, oldest first. An
// empty subjectID lists the most recent rows across all subjects.
func ListEntries(ctx context.Context, db *sql.DB, subjectID string, limit int) ([]ProvenanceEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT subject_id, user_id, trigger_type, signals_json, decision, reason, created_at
		FROM provenance_log`
	args := []any{}
	if subjectID != "" {
		query += ` WHERE subject_id = ? ORDER BY id ASC LIMIT ?`
		args = append(args, subjectID, limit)
	} else {
		query += ` ORDER BY id DESC LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list provenance: %w", err)
	}
	defer rows.Close()

	var out []ProvenanceEntry
	for rows.Next() {
		var e ProvenanceEntry
		var userID, signalsJSON, reason sql.NullString
		var created string
		if err := rows.Scan(&e.SubjectID, &userID, &e.TriggerType, &signalsJSON, &e.Decision, &reason, &created); err != nil {
			return nil, fmt.Errorf("scan provenance: %w", err)
		}
		e.UserID = userID.String
		e.SignalsJSON = signalsJSON.String
		e.Reason = reason.String
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, e)
	}
	return out, rows.Err()
}
// #endregion list-entries

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
// #endregion helpers
