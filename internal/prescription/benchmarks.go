package prescription

import "math"

// #region benchmark-set

// BenchmarkSet holds a user's personal references. Zero means absent.
type BenchmarkSet struct {
	CSSSecPer100m   int `json:"css_sec_per_100m,omitempty"`
	FTPWatts        int `json:"ftp_watts,omitempty"`
	Run5kSec        int `json:"run_5k_sec,omitempty"`
	Run10kSec       int `json:"run_10k_sec,omitempty"`
	HalfMarathonSec int `json:"half_marathon_sec,omitempty"`
	MarathonSec     int `json:"marathon_sec,omitempty"`
	MaxHR           int `json:"max_hr,omitempty"`
}

// riegelExponent is the fatigue exponent in Riegel's race-time model.
const riegelExponent = 1.06

// riegel predicts the time over d2 meters from a time t1 over d1 meters.
func riegel(t1, d1, d2 float64) float64 {
	return t1 * math.Pow(d2/d1, riegelExponent)
}

// TenKPaceSecPerKm returns 10k race pace, predicted from the closest known
// race distance when no 10k time is stored.
func (b BenchmarkSet) TenKPaceSecPerKm() (int, bool) {
	var t10k float64
	switch {
	case b.Run10kSec > 0:
		t10k = float64(b.Run10kSec)
	case b.Run5kSec > 0:
		t10k = riegel(float64(b.Run5kSec), 5000, 10000)
	case b.HalfMarathonSec > 0:
		t10k = riegel(float64(b.HalfMarathonSec), 21097.5, 10000)
	case b.MarathonSec > 0:
		t10k = riegel(float64(b.MarathonSec), 42195, 10000)
	default:
		return 0, false
	}
	return int(math.Round(t10k / 10)), true
}

// #endregion benchmark-set

// #region targets

type offsetRange struct{ lo, hi int }

// Seconds per km added to 10k pace. Negative is faster.
var runPaceOffsets = map[Kind]offsetRange{
	RunEasy:      {45, 75},
	RunTempo:     {10, 20},
	RunIntervals: {-10, 0},
}

var runZones = map[Kind]int{RunEasy: 2, RunTempo: 3, RunIntervals: 5}

// Percent of max heart rate.
var runHRPct = map[Kind]offsetRange{
	RunEasy:      {65, 75},
	RunTempo:     {80, 87},
	RunIntervals: {88, 95},
}

var runRPE = map[Kind]RPE{
	RunEasy:      {Low: 3, High: 4},
	RunTempo:     {Low: 6, High: 7},
	RunIntervals: {Low: 8, High: 9},
}

// RunTarget derives a run intensity from pace, then heart rate, then RPE.
func (b BenchmarkSet) RunTarget(k Kind) Intensity {
	if pace, ok := b.TenKPaceSecPerKm(); ok {
		off := runPaceOffsets[k]
		return Pace{LowSec: pace + off.lo, HighSec: pace + off.hi, PerMeters: 1000, Zone: runZones[k]}
	}
	if b.MaxHR > 0 {
		pct := runHRPct[k]
		return HeartRate{LowBPM: b.MaxHR * pct.lo / 100, HighBPM: b.MaxHR * pct.hi / 100, Zone: runZones[k]}
	}
	return runRPE[k]
}

// Percent of FTP.
var bikeFTPPct = map[Kind]offsetRange{
	BikeEndurance: {60, 75},
	BikeTempo:     {76, 90},
	BikeThreshold: {91, 105},
	BikeVO2:       {106, 120},
}

var bikeZones = map[Kind]Zone{
	BikeEndurance: {Zone: 2, Name: "endurance"},
	BikeTempo:     {Zone: 3, Name: "tempo"},
	BikeThreshold: {Zone: 4, Name: "threshold"},
	BikeVO2:       {Zone: 5, Name: "VO2max"},
}

// BikeTarget derives a power range from FTP, or a zone label without one.
func (b BenchmarkSet) BikeTarget(k Kind) Intensity {
	z := bikeZones[k]
	if b.FTPWatts > 0 {
		pct := bikeFTPPct[k]
		return Power{LowW: b.FTPWatts * pct.lo / 100, HighW: b.FTPWatts * pct.hi / 100, Zone: z.Zone}
	}
	return z
}

// Seconds per 100m added to CSS pace.
var swimPaceOffsets = map[Kind]offsetRange{
	SwimSteady:    {5, 10},
	SwimTechnique: {10, 20},
	SwimHard:      {-3, 2},
}

var swimZones = map[Kind]int{SwimSteady: 2, SwimTechnique: 2, SwimHard: 4}

var swimRPE = map[Kind]RPE{
	SwimSteady:    {Low: 4, High: 5},
	SwimTechnique: {Low: 3, High: 4},
	SwimHard:      {Low: 7, High: 8},
}

// SwimTarget derives a per-100m pace from CSS, or an RPE range without one.
func (b BenchmarkSet) SwimTarget(k Kind) Intensity {
	if b.CSSSecPer100m > 0 {
		off := swimPaceOffsets[k]
		return Pace{LowSec: b.CSSSecPer100m + off.lo, HighSec: b.CSSSecPer100m + off.hi, PerMeters: 100, Zone: swimZones[k]}
	}
	return swimRPE[k]
}

// #endregion targets
