package eval

import (
	"testing"

	"github.com/danielpatrickdp/adaptive-coach/internal/prescription"
)

func generate(t *testing.T, req prescription.Request) prescription.Result {
	t.Helper()
	res, err := prescription.NewGenerator(prescription.DefaultConfig(), nil).Generate(req)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return res
}

func findMetric(t *testing.T, r EvalResult, name string) EvalMetric {
	t.Helper()
	for _, m := range r.Metrics {
		if m.Name == name {
			return m
		}
	}
	t.Fatalf("metric %s not found", name)
	return EvalMetric{}
}

func TestEvalPassesOnGeneratedPlans(t *testing.T) {
	h := NewEvalHarness(DefaultEvalConfig())
	tests := []struct {
		name string
		req  prescription.Request
	}{
		{"run tempo", prescription.Request{Sport: prescription.Run, Title: "tempo", DurationMin: 60, Adjust: true}},
		{"bike vo2", prescription.Request{Sport: prescription.Bike, Title: "vo2", DurationMin: 75, Adjust: true,
			Benchmarks: prescription.BenchmarkSet{FTPWatts: 240}}},
		{"strength", prescription.Request{Sport: prescription.Strength, DurationMin: 45, Adjust: true}},
		{"swim steady", prescription.Request{Sport: prescription.Swim, DurationMin: 60}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := generate(t, tt.req)
			result := h.Run(res.Plan, res.Adjusted, tt.req.DurationMin)
			if !result.Passed {
				t.Fatalf("expected pass, got: %s (%+v)", result.Reason, result.Metrics)
			}
		})
	}
}

func TestEvalRestDayPasses(t *testing.T) {
	h := NewEvalHarness(DefaultEvalConfig())
	result := h.Run(prescription.RestDay(), nil, 0)
	if !result.Passed {
		t.Fatalf("expected rest day to pass: %s", result.Reason)
	}
}

func TestEvalFailsWithoutMainSet(t *testing.T) {
	h := NewEvalHarness(DefaultEvalConfig())
	p := prescription.Plan{Sport: prescription.Run, DurationMin: 10, Sections: []prescription.Section{
		{ID: "warmup", Type: prescription.SectionWarmup, Blocks: []prescription.Block{{DurationSec: 600}}},
	}}
	result := h.Run(p, nil, 10)
	if result.Passed {
		t.Fatal("expected fail without main set")
	}
	if m := findMetric(t, result, "main_set"); m.Pass {
		t.Fatal("expected main_set metric to fail")
	}
}

func TestEvalFailsOnDurationDrift(t *testing.T) {
	h := NewEvalHarness(DefaultEvalConfig())
	res := generate(t, prescription.Request{Sport: prescription.Run, DurationMin: 30})
	result := h.Run(res.Plan, nil, 60)
	if result.Passed {
		t.Fatal("expected fail when the plan is half the requested length")
	}
	if m := findMetric(t, result, "duration_drift"); m.Pass || m.Value < 0.4 {
		t.Fatalf("unexpected duration_drift metric %+v", m)
	}
}

func TestEvalFailsWhenAdjustedIsHarder(t *testing.T) {
	h := NewEvalHarness(DefaultEvalConfig())
	easy := generate(t, prescription.Request{Sport: prescription.Run, DurationMin: 45})
	hard := generate(t, prescription.Request{Sport: prescription.Run, Title: "intervals", DurationMin: 45})

	result := h.Run(easy.Plan, &hard.Plan, 45)
	if result.Passed {
		t.Fatal("expected fail when the adjusted plan is harder")
	}
	if m := findMetric(t, result, "adjusted_load_ratio"); m.Pass {
		t.Fatal("expected adjusted_load_ratio to fail")
	}
}

func TestEstimateMinutes(t *testing.T) {
	h := NewEvalHarness(DefaultEvalConfig())
	p := prescription.Plan{Sections: []prescription.Section{{Type: prescription.SectionMain, Blocks: []prescription.Block{
		{Reps: 4, DurationSec: 180, RestSec: 120}, // 12 + 6
		{Reps: 2, DistanceM: 300, RestSec: 60},    // 12 + 1
	}}}}
	if got := h.EstimateMinutes(p); got != 31 {
		t.Fatalf("expected 31 min, got %.2f", got)
	}
}
