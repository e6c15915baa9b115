package signals

import "fmt"

// #region flags

// FlagKind enumerates individual red-flag conditions from a fresh check-in.
type FlagKind string

const (
	FlagSevereSoreness FlagKind = "severe_soreness"
	FlagHighStress     FlagKind = "high_stress"
	FlagShortSleep     FlagKind = "short_sleep"
	FlagExhausted      FlagKind = "exhausted"
)

// RedFlag is one tripped threshold with a human-readable reason.
type RedFlag struct {
	Kind   FlagKind
	Reason string
}

// FlagConfig holds the red-flag thresholds.
type FlagConfig struct {
	StressAtLeast  int     // stress >= this trips high_stress
	SleepBelowHrs  float64 // sleep < this trips short_sleep
	FatigueAtLeast int     // fatigue >= this trips exhausted
}

// DefaultFlagConfig returns the standard thresholds.
func DefaultFlagConfig() FlagConfig {
	return FlagConfig{
		StressAtLeast:  4,
		SleepBelowHrs:  6,
		FatigueAtLeast: 5,
	}
}

// RedFlagsFrom extracts tripped thresholds from a check-in, in a fixed order.
// A nil check-in has no flags.
func RedFlagsFrom(c *CheckIn, cfg FlagConfig) []RedFlag {
	if c == nil {
		return nil
	}
	var flags []RedFlag
	if c.MuscleSoreness != nil && *c.MuscleSoreness == SorenessSevere {
		flags = append(flags, RedFlag{Kind: FlagSevereSoreness, Reason: "muscle soreness is severe"})
	}
	if c.StressLevel != nil && *c.StressLevel >= cfg.StressAtLeast {
		flags = append(flags, RedFlag{Kind: FlagHighStress, Reason: fmt.Sprintf("stress is %d/5", *c.StressLevel)})
	}
	if c.SleepDurationHrs != nil && *c.SleepDurationHrs < cfg.SleepBelowHrs {
		flags = append(flags, RedFlag{Kind: FlagShortSleep, Reason: fmt.Sprintf("you slept only %.1fh", *c.SleepDurationHrs)})
	}
	if c.PhysicalFatigue != nil && *c.PhysicalFatigue >= cfg.FatigueAtLeast {
		flags = append(flags, RedFlag{Kind: FlagExhausted, Reason: fmt.Sprintf("physical fatigue is %d/5", *c.PhysicalFatigue)})
	}
	return flags
}

// Has reports whether kind is among flags.
func Has(flags []RedFlag, kind FlagKind) bool {
	for _, f := range flags {
		if f.Kind == kind {
			return true
		}
	}
	return false
}

// #endregion flags
