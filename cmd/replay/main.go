package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/danielpatrickdp/adaptive-coach/internal/logging"
	"github.com/danielpatrickdp/adaptive-coach/internal/replay"
	"github.com/danielpatrickdp/adaptive-coach/internal/store"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to coach.db (DB mode)")
	fixturePath := flag.String("fixture", "", "path to fixture JSON (fixture mode)")
	userID := flag.String("user", "", "only replay check-ins for this user (DB mode)")
	flag.Parse()

	if (*dbPath == "" && *fixturePath == "") || (*dbPath != "" && *fixturePath != "") {
		fmt.Fprintln(os.Stderr, "usage: replay --db path/to/coach.db [--user id]")
		fmt.Fprintln(os.Stderr, "       replay --fixture path/to/fixture.json")
		os.Exit(2)
	}

	var exitCode int
	if *fixturePath != "" {
		exitCode = runFixtureMode(*fixturePath)
	} else {
		exitCode = runDBMode(*dbPath, *userID)
	}
	os.Exit(exitCode)
}

// #endregion main

// #region db-extract

// checkInRow is one check-in decision read back from provenance_log.
type checkInRow struct {
	ID       string
	Decision string
	Record   logging.DecisionRecord
}

func runDBMode(dbPath, userID string) int {
	ctx := context.Background()
	st, err := store.NewStore(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		return 2
	}
	defer st.Close()

	rows, err := loadCheckIns(ctx, st.DB(), userID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 2
	}
	if len(rows) == 0 {
		fmt.Fprintln(os.Stderr, "no checkin entries found in provenance_log")
		return 2
	}

	days := make([]replay.Day, 0, len(rows))
	expected := make([]expectation, 0, len(rows))
	for _, r := range rows {
		date, err := time.ParseInLocation(store.DateLayout, r.Record.Date, time.Local)
		if err != nil {
			fmt.Fprintf(os.Stderr, "check-in %s: date: %v\n", r.ID, err)
			return 2
		}
		// Sources are read as they are now; a later check-in for the same
		// date overwrites what an earlier decision saw.
		src, err := st.GetSources(ctx, r.Record.UserID, date)
		if err != nil {
			fmt.Fprintf(os.Stderr, "check-in %s: sources: %v\n", r.ID, err)
			return 2
		}
		d, err := replay.FromRecord(r.ID, r.Record, src)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			return 2
		}
		days = append(days, d)
		expected = append(expected, expectation{Action: r.Decision, Route: r.Record.Route})
	}

	results := replay.Replay(days, replay.DefaultReplayConfig())
	return printComparison(results, expected)
}

func loadCheckIns(ctx context.Context, db *sql.DB, userID string) ([]checkInRow, error) {
	query := `SELECT id, signals_json, decision FROM provenance_log WHERE trigger_type = ?`
	args := []any{logging.TriggerCheckIn}
	if userID != "" {
		query += ` AND user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY id ASC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query provenance: %w", err)
	}
	defer rows.Close()

	var out []checkInRow
	for rows.Next() {
		var id int64
		var sigJSON sql.NullString
		var r checkInRow
		if err := rows.Scan(&id, &sigJSON, &r.Decision); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		r.ID = fmt.Sprintf("#%d", id)
		if !sigJSON.Valid {
			continue
		}
		if err := json.Unmarshal([]byte(sigJSON.String), &r.Record); err != nil {
			fmt.Fprintf(os.Stderr, "skip %s: %v\n", r.ID, err)
			continue
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

// #endregion db-extract

// #region output

type expectation struct {
	Action string
	Route  string
}

func runFixtureMode(path string) int {
	f, err := replay.LoadFixture(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
		return 2
	}
	days, err := f.ToDays()
	if err != nil {
		fmt.Fprintf(os.Stderr, "fixture days: %v\n", err)
		return 2
	}

	results := replay.Replay(days, f.Config.ToReplayConfig())

	expected := make([]expectation, len(f.ExpectedResults))
	for i, e := range f.ExpectedResults {
		expected[i] = expectation{Action: e.Action, Route: e.Route}
	}
	return printComparison(results, expected)
}

// printComparison outputs a comparison table and returns the exit code.
// An empty expected route matches any replayed route.
func printComparison(results []replay.ReplayResult, expected []expectation) int {
	fmt.Printf("%-12s| %-17s| %-17s| %-9s| %-9s| %s\n", "Day", "Expected", "Replayed", "Route", "Replayed", "Match")
	fmt.Printf("%-12s+%-18s+%-18s+%-10s+%-10s+%s\n",
		"------------", "------------------", "------------------", "----------", "----------", "------")

	matches := 0
	total := len(results)
	if len(expected) < total {
		total = len(expected)
	}

	for i := 0; i < total; i++ {
		exp, got := expected[i], results[i]
		match := "DIFF"
		if exp.Action == got.Action && (exp.Route == "" || exp.Route == got.Route) {
			match = "OK"
			matches++
		}
		fmt.Printf("%-12s| %-17s| %-17s| %-9s| %-9s| %s\n", got.DayID, exp.Action, got.Action, exp.Route, got.Route, match)
	}

	diverge := total - matches
	s := replay.Summarize(results)
	fmt.Printf("\nSummary: %d total, %d match, %d diverge (%d insufficient, %d applied, %d proposed)\n",
		total, matches, diverge, s.Insufficient, s.Applied, s.Proposed)

	if diverge > 0 {
		return 1
	}
	return 0
}

// #endregion output
