package readiness

import (
	"math"
	"reflect"
	"testing"

	"github.com/danielpatrickdp/adaptive-coach/internal/signals"
)

func worstCheckIn() *signals.CheckIn {
	return &signals.CheckIn{
		SleepDurationHrs: signals.Float(4),
		SleepQuality:     signals.Int(1),
		PhysicalFatigue:  signals.Int(5),
		MuscleSoreness:   signals.Sore(signals.SorenessSevere),
		MentalReadiness:  signals.Int(1),
		Motivation:       signals.Int(1),
		StressLevel:      signals.Int(5),
	}
}

func TestScore_WorstCheckInIsFatigued(t *testing.T) {
	s := NewScorer(DefaultConfig())
	res := s.Score(signals.Sources{CheckIn: worstCheckIn()})

	if res.Insufficient() {
		t.Fatal("expected a score")
	}
	if *res.Score > 30 {
		t.Fatalf("expected score <= 30, got %d", *res.Score)
	}
	if res.Status != StatusFatigued {
		t.Fatalf("expected FATIGUED, got %s", res.Status)
	}
	if res.Source != SourceCheckIn {
		t.Fatalf("expected checkin source, got %s", res.Source)
	}
	if res.Confidence != 100 {
		t.Fatalf("expected full confidence, got %d", res.Confidence)
	}
}

func TestScore_Deterministic(t *testing.T) {
	s := NewScorer(DefaultConfig())
	src := signals.Sources{CheckIn: &signals.CheckIn{
		SleepDurationHrs: signals.Float(6.5),
		SleepQuality:     signals.Int(3),
		StressLevel:      signals.Int(4),
		MentalReadiness:  signals.Int(4),
	}}

	first := s.Score(src)
	for i := 0; i < 20; i++ {
		again := s.Score(src)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs:\n%+v\n%+v", i, first, again)
		}
	}
}

func TestScore_NoData(t *testing.T) {
	s := NewScorer(DefaultConfig())
	res := s.Score(signals.Sources{})

	if !res.Insufficient() {
		t.Fatalf("expected insufficient, got score %d", *res.Score)
	}
	if res.Source != "" {
		t.Fatalf("expected empty source, got %q", res.Source)
	}
	if res.ConfidenceLevel() != "low" {
		t.Fatalf("expected low confidence, got %s", res.ConfidenceLevel())
	}
	if len(res.Missing) != 1 || res.Missing[0] != "checkin" {
		t.Fatalf("expected missing=[checkin], got %v", res.Missing)
	}
	if res.Value() != -1 {
		t.Fatalf("expected -1, got %d", res.Value())
	}
}

func TestScore_CheckInIsAuthoritative(t *testing.T) {
	s := NewScorer(DefaultConfig())
	src := signals.Sources{
		CheckIn: &signals.CheckIn{SleepQuality: signals.Int(5)},
		Diary:   &signals.DiarySignals{Mood: signals.Int(1), Energy: signals.Int(1)},
		Load:    &signals.LoadSignals{TSB: signals.Float(-30)},
	}
	res := s.Score(src)

	if res.Source != SourceCheckIn {
		t.Fatalf("expected checkin source, got %s", res.Source)
	}
	if len(res.Factors) != 1 || res.Factors[0].Key != "sleep_quality" {
		t.Fatalf("expected only the check-in factor, got %+v", res.Factors)
	}
	if *res.Score != 86 {
		t.Fatalf("expected 70+16=86, got %d", *res.Score)
	}
}

func TestScore_FallbackEstimated(t *testing.T) {
	s := NewScorer(DefaultConfig())
	res := s.Score(signals.Sources{
		Load: &signals.LoadSignals{
			ATL: signals.Float(90),
			CTL: signals.Float(60),
			TSB: signals.Float(-30),
		},
	})

	if res.Source != SourceEstimated {
		t.Fatalf("expected estimated, got %s", res.Source)
	}
	// 70 - 15 (tsb capped) - 10 (ratio 1.5 capped)
	if *res.Score != 45 {
		t.Fatalf("expected 45, got %d", *res.Score)
	}
	if res.Status != StatusCaution {
		t.Fatalf("expected CAUTION, got %s", res.Status)
	}
	if res.Confidence != 22 {
		t.Fatalf("expected 2/9 -> 22, got %d", res.Confidence)
	}
}

func TestScore_MissingSignalsDoNotBias(t *testing.T) {
	s := NewScorer(DefaultConfig())
	// Neutral answers contribute zero, so the score equals the baseline.
	res := s.Score(signals.Sources{Diary: &signals.DiarySignals{Mood: signals.Int(3)}})
	if *res.Score != 70 {
		t.Fatalf("expected baseline 70, got %d", *res.Score)
	}
}

func TestScore_MonotonicConfidence(t *testing.T) {
	s := NewScorer(DefaultConfig())
	ci := &signals.CheckIn{}
	steps := []func(){
		func() { ci.SleepQuality = signals.Int(4) },
		func() { ci.SleepDurationHrs = signals.Float(7) },
		func() { ci.PhysicalFatigue = signals.Int(2) },
		func() { ci.MuscleSoreness = signals.Sore(signals.SorenessMild) },
		func() { ci.MentalReadiness = signals.Int(4) },
		func() { ci.Motivation = signals.Int(3) },
		func() { ci.StressLevel = signals.Int(2) },
	}

	prev := -1
	for i, step := range steps {
		step()
		res := s.Score(signals.Sources{CheckIn: ci})
		if res.Confidence < prev {
			t.Fatalf("step %d: confidence dropped from %d to %d", i, prev, res.Confidence)
		}
		if res.Confidence < 20 || res.Confidence > 100 {
			t.Fatalf("step %d: confidence %d out of bounds", i, res.Confidence)
		}
		prev = res.Confidence
	}
}

func TestScore_FactorOrdering(t *testing.T) {
	s := NewScorer(DefaultConfig())
	res := s.Score(signals.Sources{CheckIn: &signals.CheckIn{
		SleepQuality:    signals.Int(4), // +8
		MentalReadiness: signals.Int(2), // -6
		PhysicalFatigue: signals.Int(2), // +6
		StressLevel:     signals.Int(5), // -10
		Motivation:      signals.Int(5), // +6
	}})

	want := []string{"stress", "sleep_quality", "mental_readiness", "physical_fatigue", "motivation"}
	if len(res.Factors) != len(want) {
		t.Fatalf("expected %d factors, got %d", len(want), len(res.Factors))
	}
	for i, key := range want {
		if res.Factors[i].Key != key {
			t.Errorf("position %d: got %s, want %s", i, res.Factors[i].Key, key)
		}
	}
	for i := 1; i < len(res.Factors); i++ {
		if math.Abs(res.Factors[i].Impact) > math.Abs(res.Factors[i-1].Impact) {
			t.Fatalf("factors not sorted by |impact| at %d", i)
		}
	}
	if got := res.Top(3); len(got) != 3 {
		t.Fatalf("expected top 3, got %d", len(got))
	}
}

func TestScore_Thresholds(t *testing.T) {
	s := NewScorer(DefaultConfig())
	tests := []struct {
		name string
		tsb  float64
		want Status
	}{
		{"fresh", 10, StatusOptimal},
		{"neutral", 0, StatusOptimal},
		{"tired", -20, StatusCaution},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := s.Score(signals.Sources{Load: &signals.LoadSignals{TSB: signals.Float(tt.tsb)}})
			if res.Status != tt.want {
				t.Fatalf("got %s (score %d), want %s", res.Status, *res.Score, tt.want)
			}
		})
	}
}

func TestSleepDurationFactor(t *testing.T) {
	tests := []struct {
		hrs  float64
		want float64
	}{
		{7.5, 8},
		{6.5, 0},
		{5, -12},
		{3, -12},
		{9, -4},
	}
	for _, tt := range tests {
		got := sleepDurationFactor(tt.hrs, 7.5).Impact
		if got != tt.want {
			t.Errorf("sleep %.1fh: got %.1f, want %.1f", tt.hrs, got, tt.want)
		}
	}
}

func TestLoadRatioImpact(t *testing.T) {
	if loadRatioImpact(0.7) != 3 {
		t.Fatal("low ratio should be +3")
	}
	if loadRatioImpact(1.0) != 0 {
		t.Fatal("ratio 1.0 should be neutral")
	}
	if loadRatioImpact(2.0) != -10 {
		t.Fatal("spike should cap at -10")
	}
}
