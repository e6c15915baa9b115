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
	dbPath := flag.String("db", "", "path to coach.db")
	last := flag.Int("last", 7, "number of most recent check-ins to export")
	userID := flag.String("user", "", "only export check-ins for this user")
	outPath := flag.String("out", "", "output fixture JSON path")
	flag.Parse()

	if *dbPath == "" || *outPath == "" {
		fmt.Fprintln(os.Stderr, "usage: fixture-export --db path/to/coach.db --out path/to/fixture.json [--last N] [--user id]")
		os.Exit(2)
	}

	if err := run(context.Background(), *dbPath, *userID, *last, *outPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region extract

// checkInRow holds a parsed provenance row with its DecisionRecord.
type checkInRow struct {
	ID       int64
	Record   logging.DecisionRecord
	Decision string
}

func run(ctx context.Context, dbPath, userID string, last int, outPath string) error {
	st, err := store.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer st.Close()

	rows, err := lastCheckIns(ctx, st.DB(), userID, last)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("no check-in rows found in last %d entries", last)
	}
	fmt.Printf("Found %d check-in rows\n", len(rows))

	fixture, err := buildFixture(ctx, st, rows)
	if err != nil {
		return err
	}
	return writeFixture(fixture, outPath)
}

func lastCheckIns(ctx context.Context, db *sql.DB, userID string, last int) ([]checkInRow, error) {
	query := `SELECT id, signals_json, decision FROM provenance_log WHERE trigger_type = ?`
	args := []any{logging.TriggerCheckIn}
	if userID != "" {
		query += ` AND user_id = ?`
		args = append(args, userID)
	}
	// Newest N, then back to chronological order.
	query = `SELECT id, signals_json, decision FROM (` + query + ` ORDER BY id DESC LIMIT ?) sub ORDER BY id ASC`
	args = append(args, last)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query provenance: %w", err)
	}
	defer rows.Close()

	var out []checkInRow
	for rows.Next() {
		var r checkInRow
		var sigJSON sql.NullString
		if err := rows.Scan(&r.ID, &sigJSON, &r.Decision); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if !sigJSON.Valid || sigJSON.String == "" {
			continue
		}
		if err := json.Unmarshal([]byte(sigJSON.String), &r.Record); err != nil {
			continue
		}
		if r.Record.Date == "" {
			continue // not DecisionRecord format
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

// #endregion extract

// #region output

func buildFixture(ctx context.Context, st *store.Store, rows []checkInRow) (replay.Fixture, error) {
	days := make([]replay.FixtureDay, len(rows))
	expected := make([]replay.FixtureExpectedResult, len(rows))

	for i, r := range rows {
		rec := r.Record
		date, err := time.ParseInLocation(store.DateLayout, rec.Date, time.Local)
		if err != nil {
			return replay.Fixture{}, fmt.Errorf("row %d: date: %w", r.ID, err)
		}
		src, err := st.GetSources(ctx, rec.UserID, date)
		if err != nil {
			return replay.Fixture{}, fmt.Errorf("row %d: %w", r.ID, err)
		}

		dayID := fmt.Sprintf("%s-%d", rec.Date, r.ID)
		days[i] = replay.FixtureDay{
			DayID:    dayID,
			Date:     rec.Date,
			Now:      rec.Now,
			Rigidity: rec.Rigidity,
			CheckIn:  src.CheckIn,
			Diary:    src.Diary,
			Load:     src.Load,
		}
		if rec.WorkoutID != "" {
			days[i].Workout = &replay.FixtureWorkout{
				Date:        rec.WorkoutDate,
				Type:        rec.WorkoutType,
				Title:       rec.WorkoutTitle,
				DurationMin: rec.WorkoutMin,
			}
		}
		expected[i] = replay.FixtureExpectedResult{DayID: dayID, Action: r.Decision, Route: rec.Route}
	}

	return replay.Fixture{
		Description:     fmt.Sprintf("Exported %d check-in decisions from %s", len(rows), rows[0].Record.UserID),
		Days:            days,
		ExpectedResults: expected,
	}, nil
}

func writeFixture(fixture replay.Fixture, outPath string) error {
	data, err := json.MarshalIndent(fixture, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}

	if err := os.WriteFile(outPath, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}

	fmt.Printf("Wrote fixture to %s (%d bytes, %d days)\n", outPath, len(data), len(fixture.Days))
	return nil
}

// #endregion output
