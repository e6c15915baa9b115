package signals

import "testing"

func TestRedFlagsFrom(t *testing.T) {
	cfg := DefaultFlagConfig()

	tests := []struct {
		name  string
		in    *CheckIn
		kinds []FlagKind
	}{
		{"nil checkin", nil, nil},
		{"clean", &CheckIn{StressLevel: Int(2), SleepDurationHrs: Float(8), MuscleSoreness: Sore(SorenessMild)}, nil},
		{"stress at threshold", &CheckIn{StressLevel: Int(4)}, []FlagKind{FlagHighStress}},
		{"short sleep", &CheckIn{SleepDurationHrs: Float(5.5)}, []FlagKind{FlagShortSleep}},
		{"six hours is not short", &CheckIn{SleepDurationHrs: Float(6)}, nil},
		{"everything", &CheckIn{
			MuscleSoreness:   Sore(SorenessSevere),
			StressLevel:      Int(5),
			SleepDurationHrs: Float(4),
			PhysicalFatigue:  Int(5),
		}, []FlagKind{FlagSevereSoreness, FlagHighStress, FlagShortSleep, FlagExhausted}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RedFlagsFrom(tt.in, cfg)
			if len(got) != len(tt.kinds) {
				t.Fatalf("expected %d flags, got %d: %+v", len(tt.kinds), len(got), got)
			}
			for i, k := range tt.kinds {
				if got[i].Kind != k {
					t.Errorf("flag %d: got %s, want %s", i, got[i].Kind, k)
				}
				if got[i].Reason == "" {
					t.Errorf("flag %d: empty reason", i)
				}
			}
		})
	}
}

func TestHasCheckIn(t *testing.T) {
	if (Sources{}).HasCheckIn() {
		t.Fatal("empty sources should have no check-in")
	}
	if (Sources{CheckIn: &CheckIn{Notes: "only notes"}}).HasCheckIn() {
		t.Fatal("notes alone are not an answered check-in")
	}
	if !(Sources{CheckIn: &CheckIn{Motivation: Int(3)}}).HasCheckIn() {
		t.Fatal("expected answered check-in")
	}
}

func TestSorenessValid(t *testing.T) {
	if !SorenessModerate.Valid() {
		t.Fatal("MODERATE should be valid")
	}
	if Soreness("EXTREME").Valid() {
		t.Fatal("EXTREME should be invalid")
	}
}

func TestCheckInValidate(t *testing.T) {
	valid := &CheckIn{SleepDurationHrs: Float(7.5), SleepQuality: Int(3), MuscleSoreness: Sore(SorenessNone), StressLevel: Int(5)}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid check-in rejected: %v", err)
	}
	if err := (&CheckIn{}).Validate(); err != nil {
		t.Fatalf("empty check-in rejected: %v", err)
	}

	bad := map[string]*CheckIn{
		"quality zero":   {SleepQuality: Int(0)},
		"fatigue six":    {PhysicalFatigue: Int(6)},
		"negative sleep": {SleepDurationHrs: Float(-1)},
		"25 hours":       {SleepDurationHrs: Float(25)},
		"soreness":       {MuscleSoreness: Sore(Soreness("EXTREME"))},
		"stress":         {StressLevel: Int(9)},
	}
	for name, c := range bad {
		if err := c.Validate(); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}
