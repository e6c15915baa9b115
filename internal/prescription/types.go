package prescription

import (
	"encoding/json"
	"fmt"
)

// #region sport

// Sport is the workout type a plan is generated for.
type Sport string

const (
	Run      Sport = "run"
	Bike     Sport = "bike"
	Swim     Sport = "swim"
	Strength Sport = "strength"
	Rest     Sport = "rest"
	Other    Sport = "other"
)

// ParseSport maps a workout type to a Sport. Unknown types are Other.
func ParseSport(s string) Sport {
	switch Sport(s) {
	case Run, Bike, Swim, Strength, Rest:
		return Sport(s)
	}
	return Other
}

// Kind is the session flavor inside a sport, e.g. tempo or vo2.
type Kind string

const (
	RunEasy      Kind = "easy"
	RunTempo     Kind = "tempo"
	RunIntervals Kind = "intervals"

	BikeEndurance Kind = "endurance"
	BikeTempo     Kind = "tempo"
	BikeThreshold Kind = "threshold"
	BikeVO2       Kind = "vo2"

	SwimSteady    Kind = "steady"
	SwimTechnique Kind = "technique"
	SwimHard      Kind = "hard"

	KindGeneral Kind = "general"
)

// #endregion sport

// #region intensity

// Intensity is a block target. Zone, RPE, Pace, Power and HeartRate are the
// only implementations.
type Intensity interface {
	Label() string
	// Effort is the 1-5 zone equivalent used for load accounting.
	Effort() int
	intensity()
}

// Zone is a named training zone, 1 (recovery) to 5 (max).
type Zone struct {
	Zone int
	Name string
}

// RPE is a perceived-exertion range on the 1-10 scale.
type RPE struct {
	Low, High int
}

// Pace is a seconds-per-distance range. LowSec is the faster end.
type Pace struct {
	LowSec, HighSec int
	PerMeters       int // 1000 for run pace, 100 for swim pace
	Zone            int
}

// Power is a watts range.
type Power struct {
	LowW, HighW int
	Zone        int
}

// HeartRate is a beats-per-minute range.
type HeartRate struct {
	LowBPM, HighBPM int
	Zone            int
}

func (Zone) intensity()      {}
func (RPE) intensity()       {}
func (Pace) intensity()      {}
func (Power) intensity()     {}
func (HeartRate) intensity() {}

func (z Zone) Label() string {
	if z.Name == "" {
		return fmt.Sprintf("Z%d", z.Zone)
	}
	return fmt.Sprintf("Z%d %s", z.Zone, z.Name)
}

func (r RPE) Label() string {
	if r.Low == r.High {
		return fmt.Sprintf("RPE %d", r.Low)
	}
	return fmt.Sprintf("RPE %d-%d", r.Low, r.High)
}

func (p Pace) Label() string {
	unit := "/km"
	if p.PerMeters == 100 {
		unit = "/100m"
	}
	return fmt.Sprintf("%s-%s%s", clock(p.LowSec), clock(p.HighSec), unit)
}

func (p Power) Label() string     { return fmt.Sprintf("%d-%d W", p.LowW, p.HighW) }
func (h HeartRate) Label() string { return fmt.Sprintf("%d-%d bpm", h.LowBPM, h.HighBPM) }

func (z Zone) Effort() int      { return clampZone(z.Zone) }
func (r RPE) Effort() int       { return clampZone((r.Low + r.High + 3) / 4) }
func (p Pace) Effort() int      { return clampZone(p.Zone) }
func (p Power) Effort() int     { return clampZone(p.Zone) }
func (h HeartRate) Effort() int { return clampZone(h.Zone) }

func clampZone(z int) int {
	if z < 1 {
		return 1
	}
	if z > 5 {
		return 5
	}
	return z
}

func clock(sec int) string {
	return fmt.Sprintf("%d:%02d", sec/60, sec%60)
}

// #endregion intensity

// #region plan

// SectionType classifies a plan section.
type SectionType string

const (
	SectionWarmup    SectionType = "warmup"
	SectionMain      SectionType = "main"
	SectionCooldown  SectionType = "cooldown"
	SectionStrength  SectionType = "strength"
	SectionTechnique SectionType = "technique"
)

// Block is one prescribed effort. Reps 0 or 1 means a single effort; RestSec
// is the recovery between reps.
type Block struct {
	Reps        int
	DistanceM   int
	DurationSec int
	RestSec     int
	Intensity   Intensity
	Notes       string
}

// Section is an ordered group of blocks.
type Section struct {
	ID     string      `json:"id"`
	Type   SectionType `json:"type"`
	Title  string      `json:"title"`
	Blocks []Block     `json:"blocks"`
}

// Plan is a structured workout prescription. Plans are values: every
// generation or adjustment builds a new one.
type Plan struct {
	Sport       Sport     `json:"sport"`
	Kind        Kind      `json:"kind"`
	Objective   string    `json:"objective"`
	DurationMin int       `json:"duration_min"`
	Sections    []Section `json:"sections"`
}

// RepCount returns the number of efforts in the block.
func (b Block) RepCount() int {
	if b.Reps < 1 {
		return 1
	}
	return b.Reps
}

// TotalDistanceM is reps times distance.
func (b Block) TotalDistanceM() int {
	return b.RepCount() * b.DistanceM
}

// WorkSec is the time spent on effort, rests excluded.
func (b Block) WorkSec() int {
	return b.RepCount() * b.DurationSec
}

// TotalDistanceM sums every block's distance.
func (p Plan) TotalDistanceM() int {
	total := 0
	for _, s := range p.Sections {
		for _, b := range s.Blocks {
			total += b.TotalDistanceM()
		}
	}
	return total
}

// Section returns the first section of type t.
func (p Plan) Section(t SectionType) (Section, bool) {
	for _, s := range p.Sections {
		if s.Type == t {
			return s, true
		}
	}
	return Section{}, false
}

// Clone deep-copies the section and block slices.
func (p Plan) Clone() Plan {
	out := p
	out.Sections = make([]Section, len(p.Sections))
	for i, s := range p.Sections {
		s.Blocks = append([]Block(nil), s.Blocks...)
		out.Sections[i] = s
	}
	return out
}

// #endregion plan

// #region json

type intensityJSON struct {
	Kind      string `json:"kind"` // zone | rpe | pace | power | hr
	Zone      int    `json:"zone,omitempty"`
	Name      string `json:"name,omitempty"`
	Low       int    `json:"low,omitempty"`
	High      int    `json:"high,omitempty"`
	PerMeters int    `json:"per_meters,omitempty"`
}

type blockJSON struct {
	Reps        int            `json:"reps,omitempty"`
	DistanceM   int            `json:"distance_m,omitempty"`
	DurationSec int            `json:"duration_sec,omitempty"`
	RestSec     int            `json:"rest_sec,omitempty"`
	Intensity   *intensityJSON `json:"intensity,omitempty"`
	Notes       string         `json:"notes,omitempty"`
}

// MarshalJSON encodes the block with a tagged intensity.
func (b Block) MarshalJSON() ([]byte, error) {
	j := blockJSON{Reps: b.Reps, DistanceM: b.DistanceM, DurationSec: b.DurationSec, RestSec: b.RestSec, Notes: b.Notes}
	switch in := b.Intensity.(type) {
	case nil:
	case Zone:
		j.Intensity = &intensityJSON{Kind: "zone", Zone: in.Zone, Name: in.Name}
	case RPE:
		j.Intensity = &intensityJSON{Kind: "rpe", Low: in.Low, High: in.High}
	case Pace:
		j.Intensity = &intensityJSON{Kind: "pace", Low: in.LowSec, High: in.HighSec, PerMeters: in.PerMeters, Zone: in.Zone}
	case Power:
		j.Intensity = &intensityJSON{Kind: "power", Low: in.LowW, High: in.HighW, Zone: in.Zone}
	case HeartRate:
		j.Intensity = &intensityJSON{Kind: "hr", Low: in.LowBPM, High: in.HighBPM, Zone: in.Zone}
	default:
		return nil, fmt.Errorf("marshal block: unknown intensity %T", in)
	}
	return json.Marshal(j)
}

// UnmarshalJSON decodes a block with a tagged intensity.
func (b *Block) UnmarshalJSON(data []byte) error {
	var j blockJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return fmt.Errorf("unmarshal block: %w", err)
	}
	*b = Block{Reps: j.Reps, DistanceM: j.DistanceM, DurationSec: j.DurationSec, RestSec: j.RestSec, Notes: j.Notes}
	if j.Intensity == nil {
		return nil
	}
	in := j.Intensity
	switch in.Kind {
	case "zone":
		b.Intensity = Zone{Zone: in.Zone, Name: in.Name}
	case "rpe":
		b.Intensity = RPE{Low: in.Low, High: in.High}
	case "pace":
		b.Intensity = Pace{LowSec: in.Low, HighSec: in.High, PerMeters: in.PerMeters, Zone: in.Zone}
	case "power":
		b.Intensity = Power{LowW: in.Low, HighW: in.High, Zone: in.Zone}
	case "hr":
		b.Intensity = HeartRate{LowBPM: in.Low, HighBPM: in.High, Zone: in.Zone}
	default:
		return fmt.Errorf("unmarshal block: unknown intensity kind %q", in.Kind)
	}
	return nil
}

// #endregion json
