package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/danielpatrickdp/adaptive-coach/internal/coach"
	"github.com/danielpatrickdp/adaptive-coach/internal/coacherr"
	"github.com/danielpatrickdp/adaptive-coach/internal/config"
	"github.com/danielpatrickdp/adaptive-coach/internal/intent"
	"github.com/danielpatrickdp/adaptive-coach/internal/lock"
	"github.com/danielpatrickdp/adaptive-coach/internal/prescription"
	"github.com/danielpatrickdp/adaptive-coach/internal/proposal"
	"github.com/danielpatrickdp/adaptive-coach/internal/signals"
	"github.com/danielpatrickdp/adaptive-coach/internal/store"
	"github.com/danielpatrickdp/adaptive-coach/internal/workout"
)

const usage = `usage: coach [--config coach.yaml] <command> [flags]

commands:
  workout      add a scheduled workout
  checkin      submit a daily check-in and adapt the day's workout
  readiness    show the readiness score for a date
  generate     generate a structured plan
  apply        generate a plan and apply it to a workout
  proposals    list proposals for a workout
  decide       accept or decline a pending proposal
  undo         undo an accepted proposal or a direct change
  rigidity     show or set the schedule rigidity
  benchmarks   show or set personal benchmarks
  plan-intent  plan from free text, e.g. "easy run tomorrow 40 min"`

// #region main

func main() {
	os.Exit(run())
}

// run holds the whole command so deferred closes happen before the exit code
// is returned.
func run() int {
	configPath := flag.String("config", os.Getenv("COACH_CONFIG"), "path to YAML config")
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		return 2
	}

	logger := log.New(os.Stderr, "", log.LstdFlags)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Printf("[coach] %v", err)
		return 1
	}

	st, err := store.NewStore(cfg.Database.Path)
	if err != nil {
		logger.Printf("[coach] failed to open store: %v", err)
		return 1
	}
	defer st.Close()

	parser, closeParser := newParser(cfg, logger)
	defer closeParser()

	app := &app{svc: coach.NewService(st, cfg, parser, logger), store: st, cfg: cfg}

	cmd, args := flag.Arg(0), flag.Args()[1:]
	if err := app.run(context.Background(), cmd, args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return exitCode(err)
	}
	return 0
}

// newParser connects the remote intent parser when one is configured and
// falls back to keyword parsing on any remote failure.
func newParser(cfg config.Config, logger *log.Logger) (intent.Parser, func()) {
	if cfg.Intent.Addr == "" {
		return intent.KeywordParser{}, func() {}
	}
	remote, err := intent.NewRemoteParser(cfg.Intent.Addr, cfg.IntentTimeout())
	if err != nil {
		logger.Printf("[coach] intent parser at %s unavailable, using keywords: %v", cfg.Intent.Addr, err)
		return intent.KeywordParser{}, func() {}
	}
	p := intent.Fallback{Primary: remote, Secondary: intent.KeywordParser{}, Logger: logger}
	return p, func() { remote.Close() }
}

func exitCode(err error) int {
	switch coacherr.CodeOf(err) {
	case coacherr.NotFound:
		return 3
	case coacherr.Conflict:
		return 4
	case coacherr.InvalidState, coacherr.InsufficientData, coacherr.UnsafeAdjustment:
		return 5
	}
	return 1
}

// #endregion main

// #region commands

type app struct {
	svc   *coach.Service
	store *store.Store
	cfg   config.Config
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "workout":
		return a.addWorkout(ctx, args)
	case "checkin":
		return a.checkIn(ctx, args)
	case "readiness":
		return a.readiness(ctx, args)
	case "generate":
		return a.generate(ctx, args)
	case "apply":
		return a.apply(ctx, args)
	case "proposals":
		return a.proposals(ctx, args)
	case "decide":
		return a.decide(ctx, args)
	case "undo":
		return a.undo(ctx, args)
	case "rigidity":
		return a.rigidity(ctx, args)
	case "benchmarks":
		return a.benchmarks(ctx, args)
	case "plan-intent":
		return a.planIntent(ctx, args)
	}
	return fmt.Errorf("unknown command %q\n%s", cmd, usage)
}

func (a *app) addWorkout(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("workout", flag.ExitOnError)
	user := fs.String("user", "", "user id")
	date := fs.String("date", "", "workout date YYYY-MM-DD (default today)")
	typ := fs.String("type", "run", "run | bike | swim | strength | rest | other")
	title := fs.String("title", "", "workout title")
	minutes := fs.Int("minutes", 45, "planned duration")
	text := fs.String("prescription", "", "prescription text")
	fs.Parse(args)

	d, err := parseDate(*date)
	if err != nil {
		return err
	}
	w, err := a.store.CreateWorkout(ctx, workout.Workout{
		UserID: *user, Date: d, Type: *typ, Title: *title,
		DurationMin: *minutes, Prescription: *text,
	})
	if err != nil {
		return err
	}
	return printJSON(w)
}

func (a *app) checkIn(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("checkin", flag.ExitOnError)
	user := fs.String("user", "", "user id")
	date := fs.String("date", "", "check-in date YYYY-MM-DD (default today)")
	workoutID := fs.String("workout", "", "workout to adapt")
	sleepHrs := fs.Float64("sleep-hrs", -1, "hours slept")
	sleepQ := fs.Int("sleep-quality", 0, "1-5")
	fatigue := fs.Int("fatigue", 0, "physical fatigue 1-5")
	soreness := fs.String("soreness", "", "NONE | MILD | MODERATE | SEVERE")
	mental := fs.Int("mental", 0, "mental readiness 1-5")
	motivation := fs.Int("motivation", 0, "1-5")
	stress := fs.Int("stress", 0, "stress level 1-5")
	notes := fs.String("notes", "", "free text")
	fs.Parse(args)

	d, err := parseDate(*date)
	if err != nil {
		return err
	}
	c := signals.CheckIn{
		SleepQuality:    optInt(*sleepQ),
		PhysicalFatigue: optInt(*fatigue),
		MentalReadiness: optInt(*mental),
		Motivation:      optInt(*motivation),
		StressLevel:     optInt(*stress),
		Notes:           *notes,
	}
	if *sleepHrs >= 0 {
		c.SleepDurationHrs = sleepHrs
	}
	if *soreness != "" {
		s := signals.Soreness(strings.ToUpper(*soreness))
		c.MuscleSoreness = &s
	}

	res, err := a.svc.SubmitCheckIn(ctx, *user, d, c, *workoutID)
	if err != nil && coacherr.CodeOf(err) != coacherr.Conflict {
		return err
	}

	if res.Readiness.Score != nil {
		fmt.Printf("Readiness:  %d (%s, confidence %d%%)\n", *res.Readiness.Score, res.Readiness.Status, res.Readiness.Confidence)
	} else {
		fmt.Printf("Readiness:  no data\n")
	}
	for _, f := range res.Flags {
		fmt.Printf("Flag:       %s\n", f.Kind)
	}
	if res.Decision != nil {
		fmt.Printf("Decision:   %s\n", res.Decision.Action())
		fmt.Printf("            %s\n", res.Decision.Explain().Text)
	}
	fmt.Printf("Route:      %s", res.Change.Route)
	if res.Change.Locked {
		fmt.Printf(" (locked by %s)", res.Change.Rigidity)
	}
	fmt.Println()
	if p := res.Change.Proposal; p != nil {
		fmt.Printf("Proposal:   %s\n\n%s", p.ID, p.Diff)
	}
	return err
}

func (a *app) readiness(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("readiness", flag.ExitOnError)
	user := fs.String("user", "", "user id")
	date := fs.String("date", "", "date YYYY-MM-DD (default today)")
	fs.Parse(args)

	d, err := parseDate(*date)
	if err != nil {
		return err
	}
	res, err := a.svc.Readiness(ctx, *user, d)
	if err != nil {
		return err
	}
	return printJSON(res)
}

func planFlags(fs *flag.FlagSet) (user, sport, title *string, minutes, meters *int) {
	user = fs.String("user", "", "user id")
	sport = fs.String("sport", "run", "run | bike | swim | strength | rest")
	title = fs.String("title", "", "session title, used to infer the kind")
	minutes = fs.Int("minutes", 45, "duration")
	meters = fs.Int("meters", 0, "exact swim distance target")
	return
}

func (a *app) generate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	user, sport, title, minutes, meters := planFlags(fs)
	date := fs.String("date", "", "readiness day YYYY-MM-DD (default today)")
	adjust := fs.Bool("adjust", false, "always produce the eased variant")
	asJSON := fs.Bool("json", false, "print the structured plan")
	fs.Parse(args)

	d, err := parseDate(*date)
	if err != nil {
		return err
	}
	gp, err := a.svc.GeneratePlan(ctx, coach.PlanRequest{
		UserID: *user, Sport: prescription.ParseSport(*sport), Title: *title,
		DurationMin: *minutes, Date: d, Adjust: *adjust, TargetMeters: *meters,
	})
	if err != nil {
		return err
	}
	if *asJSON {
		return printJSON(gp)
	}
	fmt.Println(gp.Text)
	if gp.AdjustedText != "" {
		fmt.Printf("\nAdjusted:\n%s\n", gp.AdjustedText)
	}
	if gp.TargetMissed {
		fmt.Printf("\nnote: %d m could not be matched safely\n", *meters)
	}
	return nil
}

func (a *app) apply(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("apply", flag.ExitOnError)
	user, sport, title, minutes, meters := planFlags(fs)
	workoutID := fs.String("workout", "", "workout to change")
	summary := fs.String("summary", "", "change summary shown on the proposal")
	date := fs.String("date", "", "readiness day YYYY-MM-DD (default today)")
	fs.Parse(args)

	d, err := parseDate(*date)
	if err != nil {
		return err
	}
	gp, err := a.svc.GeneratePlan(ctx, coach.PlanRequest{
		UserID: *user, Sport: prescription.ParseSport(*sport), Title: *title,
		DurationMin: *minutes, Date: d, TargetMeters: *meters,
	})
	if err != nil {
		return err
	}
	if *summary == "" {
		*summary = gp.Plan.Objective
	}
	ch, err := a.svc.ApplyPlan(ctx, *workoutID, gp.Plan, *summary)
	if err != nil {
		return err
	}
	return printJSON(ch)
}

func (a *app) proposals(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("proposals", flag.ExitOnError)
	workoutID := fs.String("workout", "", "workout id")
	fs.Parse(args)

	props, err := a.svc.Ledger().List(ctx, *workoutID)
	if err != nil {
		return err
	}
	if len(props) == 0 {
		fmt.Println("no proposals")
		return nil
	}
	for _, p := range props {
		fmt.Printf("%s  %-9s  %3d%%  %s\n", p.ID, p.Status, p.Confidence, p.Summary)
	}
	return nil
}

func (a *app) decide(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("decide", flag.ExitOnError)
	id := fs.String("id", "", "proposal id")
	verdict := fs.String("verdict", "", "accept | decline")
	fs.Parse(args)

	v, ok := proposal.ParseVerdict(*verdict)
	if !ok {
		return fmt.Errorf("verdict must be accept or decline, got %q", *verdict)
	}
	out, err := a.svc.DecideProposal(ctx, *id, v)
	if err != nil {
		return err
	}
	return printJSON(out)
}

func (a *app) undo(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("undo", flag.ExitOnError)
	id := fs.String("proposal", "", "accepted proposal id")
	patchID := fs.String("patch", "", "applied patch id of a direct change")
	fs.Parse(args)

	switch {
	case *id != "":
		if _, err := a.svc.UndoProposal(ctx, *id); err != nil {
			return err
		}
		fmt.Println("reverted")
		return nil
	case *patchID != "":
		if err := a.svc.UndoDirect(ctx, *patchID); err != nil {
			return err
		}
		fmt.Println("reverted")
		return nil
	}
	return fmt.Errorf("undo needs --proposal or --patch")
}

func (a *app) rigidity(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("rigidity", flag.ExitOnError)
	user := fs.String("user", "", "user id")
	set := fs.String("set", "", "new setting, one of "+rigidityNames())
	fs.Parse(args)

	if *set != "" {
		r, err := lock.ParseRigidity(*set)
		if err != nil {
			return err
		}
		if err := a.store.SetRigidity(ctx, *user, r); err != nil {
			return err
		}
	}
	r, ok, err := a.store.GetRigidity(ctx, *user)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Printf("%s (default)\n", a.cfg.DefaultRigidity())
		return nil
	}
	fmt.Println(r)
	return nil
}

func (a *app) benchmarks(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("benchmarks", flag.ExitOnError)
	user := fs.String("user", "", "user id")
	css := fs.Int("css", 0, "critical swim speed, sec per 100m")
	ftp := fs.Int("ftp", 0, "functional threshold power, watts")
	run5k := fs.Int("5k", 0, "5k time, seconds")
	run10k := fs.Int("10k", 0, "10k time, seconds")
	half := fs.Int("half", 0, "half marathon time, seconds")
	full := fs.Int("marathon", 0, "marathon time, seconds")
	maxHR := fs.Int("max-hr", 0, "max heart rate")
	fs.Parse(args)

	b, err := a.store.GetBenchmarks(ctx, *user)
	if err != nil {
		return err
	}
	changed := false
	for _, f := range []struct {
		v   int
		dst *int
	}{
		{*css, &b.CSSSecPer100m}, {*ftp, &b.FTPWatts}, {*run5k, &b.Run5kSec}, {*run10k, &b.Run10kSec},
		{*half, &b.HalfMarathonSec}, {*full, &b.MarathonSec}, {*maxHR, &b.MaxHR},
	} {
		if f.v > 0 {
			*f.dst = f.v
			changed = true
		}
	}
	if changed {
		if err := a.store.SetBenchmarks(ctx, *user, b); err != nil {
			return err
		}
	}
	return printJSON(b)
}

func (a *app) planIntent(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("plan-intent", flag.ExitOnError)
	user := fs.String("user", "", "user id")
	fs.Parse(args)

	text := strings.Join(fs.Args(), " ")
	if text == "" {
		return fmt.Errorf("plan-intent needs text")
	}
	res, err := a.svc.PlanFromText(ctx, *user, text)
	if err != nil {
		return err
	}
	verb := "updated"
	if res.Created {
		verb = "created"
	}
	fmt.Printf("%s %s on %s (%s)\n\n%s\n", verb, res.Workout.Title, res.Workout.Date.Format(store.DateLayout), res.Change.Route, res.Plan.Text)
	return nil
}

// #endregion commands

// #region helpers

func parseDate(s string) (time.Time, error) {
	if s == "" {
		y, m, d := time.Now().Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.Local), nil
	}
	t, err := time.ParseInLocation(store.DateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q: want YYYY-MM-DD", s)
	}
	return t, nil
}

func optInt(v int) *int {
	if v == 0 {
		return nil
	}
	return &v
}

func rigidityNames() string {
	names := make([]string, len(lock.All))
	for i, r := range lock.All {
		names[i] = string(r)
	}
	return strings.Join(names, " | ")
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

// #endregion helpers
