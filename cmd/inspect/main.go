package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/danielpatrickdp/adaptive-coach/internal/logging"
	"github.com/danielpatrickdp/adaptive-coach/internal/proposal"
	"github.com/danielpatrickdp/adaptive-coach/internal/store"
	"github.com/danielpatrickdp/adaptive-coach/internal/workout"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to coach.db")
	last := flag.Int("last", 20, "show N most recent provenance rows")
	workoutID := flag.String("workout", "", "show one workout with its proposals and history")
	proposalID := flag.String("proposal", "", "show one proposal with its diff")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/coach.db [--last N] [--workout id | --proposal id] [--json]")
		os.Exit(2)
	}

	st, err := store.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	ctx := context.Background()
	switch {
	case *proposalID != "":
		err = runProposalMode(ctx, st, *proposalID, *jsonOut)
	case *workoutID != "":
		err = runWorkoutMode(ctx, st, *workoutID, *jsonOut)
	default:
		err = runListMode(ctx, st, *last, *jsonOut)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region list-mode

type listRow struct {
	Subject   string `json:"subject_id"`
	User      string `json:"user_id,omitempty"`
	Trigger   string `json:"trigger"`
	Decision  string `json:"decision"`
	Reason    string `json:"reason,omitempty"`
	Route     string `json:"route,omitempty"`
	CreatedAt string `json:"created_at"`
}

func runListMode(ctx context.Context, st *store.Store, last int, jsonOut bool) error {
	entries, err := logging.ListEntries(ctx, st.DB(), "", last)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(os.Stderr, "no provenance rows found")
		return nil
	}

	// ListEntries returns newest first without a subject; show chronologically.
	rows := make([]listRow, len(entries))
	for i, e := range entries {
		rows[len(entries)-1-i] = toRow(e)
	}

	if jsonOut {
		return printJSON(rows)
	}
	printRows(rows)
	return nil
}

func toRow(e logging.ProvenanceEntry) listRow {
	r := listRow{
		Subject:   e.SubjectID,
		User:      e.UserID,
		Trigger:   e.TriggerType,
		Decision:  e.Decision,
		Reason:    e.Reason,
		CreatedAt: e.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if e.TriggerType == logging.TriggerCheckIn {
		var rec logging.DecisionRecord
		if err := json.Unmarshal([]byte(e.SignalsJSON), &rec); err == nil {
			r.Route = rec.Route
		}
	}
	return r
}

func printRows(rows []listRow) {
	fmt.Printf("%-10s  %-18s  %-18s  %-9s  %-25s  %s\n", "Subject", "Trigger", "Decision", "Route", "Time", "Reason")
	fmt.Printf("%-10s+-%-18s+-%-18s+-%-9s+-%-25s+-%s\n",
		"----------", "------------------", "------------------", "---------", "-------------------------", "------")
	for _, r := range rows {
		route := "-"
		if r.Route != "" {
			route = r.Route
		}
		fmt.Printf("%-10s  %-18s  %-18s  %-9s  %-25s  %s\n",
			shortID(r.Subject), r.Trigger, r.Decision, route, r.CreatedAt, r.Reason)
	}
}

// #endregion list-mode

// #region detail-mode

type workoutOutput struct {
	Workout   workout.Workout     `json:"workout"`
	Proposals []proposal.Proposal `json:"proposals"`
	History   []listRow           `json:"history"`
}

func runWorkoutMode(ctx context.Context, st *store.Store, id string, jsonOut bool) error {
	w, err := st.GetWorkout(ctx, id)
	if err != nil {
		return err
	}
	var props []proposal.Proposal
	err = st.InLedgerTx(ctx, func(tx proposal.Tx) error {
		props, err = tx.ListProposals(ctx, id, "")
		return err
	})
	if err != nil {
		return err
	}
	history, err := historyOf(ctx, st, id)
	if err != nil {
		return err
	}
	for _, p := range props {
		rows, err := historyOf(ctx, st, p.ID)
		if err != nil {
			return err
		}
		history = append(history, rows...)
	}
	sort.SliceStable(history, func(i, j int) bool { return history[i].CreatedAt < history[j].CreatedAt })

	if jsonOut {
		return printJSON(workoutOutput{Workout: w, Proposals: props, History: history})
	}

	fmt.Printf("Workout:    %s\n", w.ID)
	fmt.Printf("User:       %s\n", w.UserID)
	fmt.Printf("Date:       %s\n", w.Date.Format(store.DateLayout))
	fmt.Printf("Type:       %s\n", w.Type)
	fmt.Printf("Title:      %s\n", w.Title)
	fmt.Printf("Duration:   %d min\n", w.DurationMin)
	if w.AISource != "" {
		fmt.Printf("Adjusted:   %s (%d%%) %s\n", w.AISource, w.AIConfidence, w.AINote)
	}
	fmt.Printf("\nPrescription:\n%s\n", w.Prescription)

	fmt.Printf("\nProposals:\n")
	if len(props) == 0 {
		fmt.Println("  none")
	}
	for _, p := range props {
		fmt.Printf("  %-10s  %-9s  %3d%%  %s\n", shortID(p.ID), p.Status, p.Confidence, p.Summary)
	}

	if len(history) > 0 {
		fmt.Printf("\nHistory:\n")
		printRows(history)
	}
	return nil
}

func runProposalMode(ctx context.Context, st *store.Store, id string, jsonOut bool) error {
	var p proposal.Proposal
	err := st.InLedgerTx(ctx, func(tx proposal.Tx) error {
		var err error
		p, err = tx.GetProposal(ctx, id)
		return err
	})
	if err != nil {
		return err
	}

	if jsonOut {
		return printJSON(p)
	}

	fmt.Printf("Proposal:   %s\n", p.ID)
	fmt.Printf("Workout:    %s\n", p.WorkoutID)
	fmt.Printf("Status:     %s\n", p.Status)
	fmt.Printf("Source:     %s\n", p.SourceType)
	fmt.Printf("Confidence: %d%%\n", p.Confidence)
	fmt.Printf("Created:    %s\n", p.CreatedAt.Format("2006-01-02T15:04:05Z07:00"))
	if p.DecidedAt != nil {
		fmt.Printf("Decided:    %s\n", p.DecidedAt.Format("2006-01-02T15:04:05Z07:00"))
	}
	if p.UndoneAt != nil {
		fmt.Printf("Undone:     %s\n", p.UndoneAt.Format("2006-01-02T15:04:05Z07:00"))
	}
	if p.Note != "" {
		fmt.Printf("Note:       %s\n", p.Note)
	}
	fmt.Printf("Summary:    %s\n", p.Summary)
	if p.Diff != "" {
		fmt.Printf("\n%s", p.Diff)
	}
	return nil
}

func historyOf(ctx context.Context, st *store.Store, subject string) ([]listRow, error) {
	entries, err := logging.ListEntries(ctx, st.DB(), subject, 200)
	if err != nil {
		return nil, err
	}
	rows := make([]listRow, len(entries))
	for i, e := range entries {
		rows[i] = toRow(e)
	}
	return rows, nil
}

// #endregion detail-mode

// #region output

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// #endregion output
