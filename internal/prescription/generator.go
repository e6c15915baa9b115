package prescription

import (
	"fmt"
	"log"
	"math"
	"strings"
)

// #region config

// Config holds duration split and adjustment parameters.
type Config struct {
	WarmupFraction       float64 // share of total duration
	WarmupMinMin         int
	CooldownFraction     float64
	CooldownMinMin       int
	MinMainMin           int     // below this the plan is a single main section
	DefaultSwimSecPer100 int     // pace used to size swim sets without CSS
	AdjustDurationScale  float64 // adjusted plan length relative to the original
}

// DefaultConfig returns the standard split: 15% warm-up, 10% cool-down.
func DefaultConfig() Config {
	return Config{
		WarmupFraction:       0.15,
		WarmupMinMin:         8,
		CooldownFraction:     0.10,
		CooldownMinMin:       5,
		MinMainMin:           5,
		DefaultSwimSecPer100: 120,
		AdjustDurationScale:  0.75,
	}
}

// #endregion config

// #region request

// Request describes the plan to generate.
type Request struct {
	Sport       Sport
	Title       string // used for kind inference
	DurationMin int
	Benchmarks  BenchmarkSet
	// Adjust asks for a second, strictly easier plan alongside the original.
	Adjust bool
	// TargetMeters, when set for swim plans, is enforced exactly or not at all.
	TargetMeters int
}

// Result carries the generated plan and, when requested, the easier variant.
type Result struct {
	Plan     Plan
	Adjusted *Plan
	// TargetMissed is set when TargetMeters could not be reached by a safe edit.
	TargetMissed bool
}

// #endregion request

// #region generator

// Generator builds structured plans. It holds no per-request state.
type Generator struct {
	config Config
	logger *log.Logger
}

// NewGenerator creates a Generator. A nil logger means log.Default().
func NewGenerator(config Config, logger *log.Logger) *Generator {
	if logger == nil {
		logger = log.Default()
	}
	return &Generator{config: config, logger: logger}
}

// Generate builds the plan for req. Missing benchmarks degrade targets to
// RPE or zone labels; they never fail generation.
func (g *Generator) Generate(req Request) (Result, error) {
	if req.Sport != Rest && req.DurationMin <= 0 {
		return Result{}, fmt.Errorf("generate %s plan: duration must be positive, got %d", req.Sport, req.DurationMin)
	}
	kind := InferKind(req.Sport, req.Title)
	plan := g.build(req.Sport, kind, req.DurationMin, req.Benchmarks, false)

	res := Result{Plan: plan}
	if req.Sport == Swim && req.TargetMeters > 0 {
		fixed, ok := EnforceExactTotal(plan, req.TargetMeters)
		if !ok {
			g.logger.Printf("[prescription] exact target %dm unreachable from %dm, keeping generated plan",
				req.TargetMeters, plan.TotalDistanceM())
			res.TargetMissed = true
		}
		res.Plan = fixed
	}

	if req.Adjust && req.Sport != Rest {
		dur := int(math.Round(float64(req.DurationMin) * g.config.AdjustDurationScale))
		if req.DurationMin > 1 && dur >= req.DurationMin {
			dur = req.DurationMin - 1
		}
		if dur < 1 {
			dur = 1
		}
		adj := g.build(req.Sport, EasiestKind(req.Sport), dur, req.Benchmarks, true)
		res.Adjusted = &adj
	}
	return res, nil
}

// RestDay returns the plan for a rest day.
func RestDay() Plan {
	return Plan{Sport: Rest, Kind: KindGeneral, Objective: "Rest day: no training, easy walking or mobility only"}
}

// Recovery returns an easy continuous session of minutes in the given sport.
func (g *Generator) Recovery(sport Sport, minutes int, b BenchmarkSet) Plan {
	if sport == Rest {
		return RestDay()
	}
	p := g.build(sport, EasiestKind(sport), minutes, b, true)
	p.Objective = "Recovery: " + p.Objective
	return p
}

// Eased returns the sport's easiest session at the same duration.
func (g *Generator) Eased(sport Sport, minutes int, b BenchmarkSet) Plan {
	return g.build(sport, EasiestKind(sport), minutes, b, true)
}

func (g *Generator) build(sport Sport, kind Kind, minutes int, b BenchmarkSet, easy bool) Plan {
	if sport == Rest {
		return RestDay()
	}
	plan := Plan{Sport: sport, Kind: kind, Objective: objective(sport, kind), DurationMin: minutes}

	warm, main, cool := g.split(minutes)
	if main == minutes {
		plan.Sections = []Section{g.mainSection(sport, kind, main, b, easy)}
		return plan
	}
	plan.Sections = []Section{
		g.warmupSection(sport, warm, b),
		g.mainSection(sport, kind, main, b, easy),
		g.cooldownSection(sport, cool, b),
	}
	return plan
}

// split divides minutes into warm-up, main and cool-down. When the main set
// would be shorter than MinMainMin, everything goes to the main set.
func (g *Generator) split(minutes int) (warm, main, cool int) {
	warm = int(math.Round(float64(minutes) * g.config.WarmupFraction))
	if warm < g.config.WarmupMinMin {
		warm = g.config.WarmupMinMin
	}
	cool = int(math.Round(float64(minutes) * g.config.CooldownFraction))
	if cool < g.config.CooldownMinMin {
		cool = g.config.CooldownMinMin
	}
	main = minutes - warm - cool
	if main < g.config.MinMainMin {
		return 0, minutes, 0
	}
	return warm, main, cool
}

// #endregion generator

// #region sections

func (g *Generator) swimPace(b BenchmarkSet) int {
	if b.CSSSecPer100m > 0 {
		return b.CSSSecPer100m
	}
	return g.config.DefaultSwimSecPer100
}

// swimMeters sizes minutes of swimming at secPer100, rounded down to step meters.
func swimMeters(minutes, secPer100, step int) int {
	m := minutes * 60 * 100 / secPer100
	m -= m % step
	if m < step {
		m = step
	}
	return m
}

func easyTarget(sport Sport, b BenchmarkSet) Intensity {
	switch sport {
	case Run:
		return b.RunTarget(RunEasy)
	case Bike:
		return b.BikeTarget(BikeEndurance)
	case Swim:
		return RPE{Low: 3, High: 4}
	}
	return RPE{Low: 2, High: 3}
}

func (g *Generator) warmupSection(sport Sport, minutes int, b BenchmarkSet) Section {
	s := Section{ID: "warmup", Type: SectionWarmup, Title: "Warm-up"}
	switch sport {
	case Swim:
		s.Blocks = []Block{{DistanceM: swimMeters(minutes, g.swimPace(b)+15, 50), Intensity: easyTarget(sport, b), Notes: "easy mixed strokes"}}
	case Strength, Other:
		s.Blocks = []Block{{DurationSec: minutes * 60, Intensity: RPE{Low: 2, High: 3}, Notes: "mobility and activation"}}
	default:
		s.Blocks = []Block{{DurationSec: minutes * 60, Intensity: easyTarget(sport, b), Notes: "easy, build gradually"}}
	}
	return s
}

func (g *Generator) cooldownSection(sport Sport, minutes int, b BenchmarkSet) Section {
	s := Section{ID: "cooldown", Type: SectionCooldown, Title: "Cool-down"}
	switch sport {
	case Swim:
		s.Blocks = []Block{{DistanceM: swimMeters(minutes, g.swimPace(b)+15, 50), Intensity: RPE{Low: 2, High: 3}, Notes: "easy"}}
	case Strength, Other:
		s.Blocks = []Block{{DurationSec: minutes * 60, Intensity: RPE{Low: 1, High: 2}, Notes: "stretching"}}
	default:
		s.Blocks = []Block{{DurationSec: minutes * 60, Intensity: RPE{Low: 2, High: 3}, Notes: "easy"}}
	}
	return s
}

// repeats is an on/off work structure in seconds.
type repeats struct{ on, off int }

var runRepeats = map[Kind]repeats{RunTempo: {8 * 60, 2 * 60}, RunIntervals: {3 * 60, 2 * 60}}

var bikeRepeats = map[Kind]repeats{
	BikeTempo:     {10 * 60, 5 * 60},
	BikeThreshold: {8 * 60, 4 * 60},
	BikeVO2:       {3 * 60, 3 * 60},
}

// timedSet fills minutes with on/off reps and an easy filler block for the rest.
func timedSet(minutes int, r repeats, work, filler Intensity) []Block {
	total := minutes * 60
	n := (total + r.off) / (r.on + r.off)
	if n < 1 {
		return []Block{{DurationSec: total, Intensity: work}}
	}
	blocks := []Block{{Reps: n, DurationSec: r.on, RestSec: r.off, Intensity: work}}
	if n == 1 {
		blocks[0].RestSec = 0
	}
	used := n*r.on + (n-1)*r.off
	if left := total - used; left >= 60 {
		blocks = append(blocks, Block{DurationSec: left, Intensity: filler, Notes: "easy"})
	}
	return blocks
}

func (g *Generator) mainSection(sport Sport, kind Kind, minutes int, b BenchmarkSet, easy bool) Section {
	s := Section{ID: "main", Type: SectionMain, Title: "Main set"}
	total := minutes * 60

	switch sport {
	case Run:
		work := b.RunTarget(kind)
		if r, ok := runRepeats[kind]; ok && !easy {
			s.Blocks = timedSet(minutes, r, work, b.RunTarget(RunEasy))
		} else {
			s.Blocks = []Block{{DurationSec: total, Intensity: work, Notes: "steady, conversational"}}
		}

	case Bike:
		work := b.BikeTarget(kind)
		if r, ok := bikeRepeats[kind]; ok && !easy {
			s.Blocks = timedSet(minutes, r, work, b.BikeTarget(BikeEndurance))
		} else {
			s.Blocks = []Block{{DurationSec: total, Intensity: work, Notes: "smooth cadence"}}
		}

	case Swim:
		s.Blocks = g.swimMain(kind, minutes, b, easy)

	case Strength:
		s.Type, s.ID, s.Title = SectionStrength, "strength", "Strength circuit"
		s.Blocks = strengthBlocks(minutes, easy)

	default:
		in := RPE{Low: 4, High: 5}
		if easy {
			in = RPE{Low: 3, High: 4}
		}
		s.Blocks = []Block{{DurationSec: total, Intensity: in, Notes: "comfortable, steady effort"}}
	}
	return s
}

func (g *Generator) swimMain(kind Kind, minutes int, b BenchmarkSet, easy bool) []Block {
	pace := g.swimPace(b)
	target := b.SwimTarget(kind)
	if easy {
		return []Block{{DistanceM: swimMeters(minutes, pace+10, 100), Intensity: target, Notes: "continuous, relaxed"}}
	}

	switch kind {
	case SwimHard:
		// 100s with 20s rest: 100m costs pace+20 seconds.
		n := minutes * 60 / (pace + 20)
		if n < 1 {
			n = 1
		}
		return []Block{{Reps: n, DistanceM: 100, RestSec: 20, Intensity: target}}

	case SwimTechnique:
		drills := Block{Reps: 8, DistanceM: 50, RestSec: 15, Intensity: target, Notes: "drill / swim by 25"}
		drillSec := 8*(pace/2) + 7*15
		rest := minutes*60 - drillSec
		if rest < pace {
			return []Block{{DistanceM: swimMeters(minutes, pace+15, 50), Intensity: target, Notes: "drill / swim by 25"}}
		}
		return []Block{drills, {DistanceM: swimMeters(rest/60, pace+10, 100), Intensity: b.SwimTarget(SwimSteady), Notes: "steady, focus on form"}}

	default:
		// 400s with 30s rest.
		per := 4*pace + 30
		n := minutes * 60 / per
		if n < 1 {
			return []Block{{DistanceM: swimMeters(minutes, pace, 100), Intensity: target}}
		}
		blocks := []Block{{Reps: n, DistanceM: 400, RestSec: 30, Intensity: target}}
		if n == 1 {
			blocks[0].RestSec = 0
		}
		if left := minutes*60 - n*per; left >= pace {
			blocks = append(blocks, Block{DistanceM: swimMeters(left/60+1, pace, 100), Intensity: target, Notes: "pull buoy optional"})
		}
		return blocks
	}
}

var strengthExercises = []string{
	"Squat or goblet squat, 8-10 reps",
	"Push-up or bench press, 8-12 reps",
	"Romanian deadlift, 8-10 reps",
	"Single-arm row, 10 reps each side",
	"Split squat, 8 reps each side",
	"Plank, 30-45 seconds",
}

// strengthBlocks fits whole exercises into minutes; one exercise costs
// sets*60s of work plus 90s between sets.
func strengthBlocks(minutes int, easy bool) []Block {
	sets, in := 3, Intensity(RPE{Low: 7, High: 8})
	if easy {
		sets, in = 2, RPE{Low: 5, High: 6}
	}
	per := sets*60 + (sets-1)*90
	n := minutes * 60 / per
	if n < 1 {
		n = 1
	}
	if n > len(strengthExercises) {
		n = len(strengthExercises)
	}
	blocks := make([]Block, n)
	for i := range blocks {
		blocks[i] = Block{Reps: sets, DurationSec: 60, RestSec: 90, Intensity: in, Notes: strengthExercises[i]}
	}
	return blocks
}

// #endregion sections

// #region kind-inference

type kindKeywords struct {
	kind     Kind
	keywords []string
}

// Hardest first: the first match wins.
var kindRules = map[Sport][]kindKeywords{
	Run: {
		{RunIntervals, []string{"interval", "repeat", "vo2", "track", "fartlek", "speed"}},
		{RunTempo, []string{"tempo", "threshold", "progression", "steady state"}},
	},
	Bike: {
		{BikeVO2, []string{"vo2", "anaerobic", "sprint"}},
		{BikeThreshold, []string{"threshold", "ftp", "over-under", "over under"}},
		{BikeTempo, []string{"tempo", "sweet spot", "sweetspot"}},
	},
	Swim: {
		{SwimHard, []string{"hard", "race", "sprint", "threshold", "css", "fast"}},
		{SwimTechnique, []string{"technique", "drill", "form"}},
	},
}

// EasiestKind is the default kind for a sport.
func EasiestKind(s Sport) Kind {
	switch s {
	case Run:
		return RunEasy
	case Bike:
		return BikeEndurance
	case Swim:
		return SwimSteady
	}
	return KindGeneral
}

// InferKind picks a session kind from keywords in title, defaulting to the
// sport's easiest kind.
func InferKind(s Sport, title string) Kind {
	t := strings.ToLower(title)
	for _, rule := range kindRules[s] {
		for _, kw := range rule.keywords {
			if strings.Contains(t, kw) {
				return rule.kind
			}
		}
	}
	return EasiestKind(s)
}

// IsHard reports whether a workout of type typ titled title carries
// intensity work beyond its sport's easiest kind.
func IsHard(typ, title string) bool {
	sport := ParseSport(typ)
	return InferKind(sport, title) != EasiestKind(sport)
}

func objective(s Sport, k Kind) string {
	switch s {
	case Run:
		switch k {
		case RunTempo:
			return "Tempo run: sustained comfortably-hard effort"
		case RunIntervals:
			return "Interval run: short hard repeats with full recoveries"
		}
		return "Easy run: aerobic base at conversational effort"
	case Bike:
		switch k {
		case BikeTempo:
			return "Tempo ride: sustained muscular endurance"
		case BikeThreshold:
			return "Threshold ride: efforts around FTP"
		case BikeVO2:
			return "VO2max ride: short efforts above FTP"
		}
		return "Endurance ride: steady aerobic riding"
	case Swim:
		switch k {
		case SwimHard:
			return "Hard swim: fast repeats near CSS"
		case SwimTechnique:
			return "Technique swim: drills and relaxed form work"
		}
		return "Steady swim: aerobic distance"
	case Strength:
		return "Strength: full-body circuit"
	}
	return "General session: comfortable steady effort"
}

// #endregion kind-inference
