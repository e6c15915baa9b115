package intent

import (
	"context"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/danielpatrickdp/adaptive-coach/internal/coacherr"
	"github.com/danielpatrickdp/adaptive-coach/internal/prescription"
)

// #region keywords

// Word prefixes per sport, checked in this order.
var sportStems = []struct {
	sport prescription.Sport
	stems []string
}{
	{prescription.Swim, []string{"swim", "pool", "laps"}},
	{prescription.Bike, []string{"bike", "biking", "ride", "riding", "cycl", "spin", "zwift", "trainer"}},
	{prescription.Run, []string{"run", "jog", "tempo", "fartlek"}},
	{prescription.Strength, []string{"strength", "gym", "lift", "weights", "squat"}},
	{prescription.Rest, []string{"rest"}},
}

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday, "wednesday": time.Wednesday,
	"thursday": time.Thursday, "friday": time.Friday, "saturday": time.Saturday,
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday, "wed": time.Wednesday,
	"thu": time.Thursday, "fri": time.Friday, "sat": time.Saturday,
}

var (
	isoDateRe  = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`)
	inDaysRe   = regexp.MustCompile(`\bin (\d{1,2}) days?\b`)
	durationRe = regexp.MustCompile(`\b(\d+(?:\.\d+)?)\s*(h|hr|hrs|hour|hours|min|mins|minute|minutes)\b`)
	kmRe       = regexp.MustCompile(`\b(\d+(?:\.\d+)?)\s*(k|km)\b`)
	metersRe   = regexp.MustCompile(`\b(\d+)\s*(m|meters|metres)\b`)
)

// #endregion keywords

// #region keyword-parser

// KeywordParser is the English keyword grammar. No model call.
type KeywordParser struct{}

// Parse implements Parser. Text without a recognizable sport is INSUFFICIENT_DATA.
func (KeywordParser) Parse(_ context.Context, text string, now time.Time) (Intent, error) {
	lower := strings.ToLower(strings.TrimSpace(text))
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-' || r == '.')
	})

	in := Intent{Title: strings.TrimSpace(text)}
	found := 0

	in.Sport = detectSport(words, lower)
	if in.Sport == "" {
		return Intent{}, coacherr.New(coacherr.InsufficientData, "parse intent", "no sport found in %q", text)
	}
	found++

	date, explicit := detectDate(lower, words, now)
	in.Date = date
	if explicit {
		found++
	}

	if m := durationRe.FindStringSubmatch(lower); m != nil {
		v, _ := strconv.ParseFloat(m[1], 64)
		if strings.HasPrefix(m[2], "h") {
			v *= 60
		}
		in.DurationMin = int(math.Round(v))
		found++
	}

	if m := metersRe.FindStringSubmatch(lower); m != nil {
		in.DistanceM, _ = strconv.Atoi(m[1])
		found++
	} else if m := kmRe.FindStringSubmatch(lower); m != nil {
		v, _ := strconv.ParseFloat(m[1], 64)
		in.DistanceM = int(math.Round(v * 1000))
		found++
	}

	// Sport alone is a weak signal; each further field adds confidence.
	in.Confidence = 40 + 20*(found-1)
	if in.Confidence > 100 {
		in.Confidence = 100
	}
	return in, nil
}

func detectSport(words []string, lower string) prescription.Sport {
	for _, s := range sportStems {
		for _, w := range words {
			for _, stem := range s.stems {
				// "rest" must match a whole word; other stems match prefixes.
				if w == stem || (s.sport != prescription.Rest && strings.HasPrefix(w, stem)) {
					return s.sport
				}
			}
		}
	}
	if strings.Contains(lower, "day off") {
		return prescription.Rest
	}
	return ""
}

// detectDate resolves today, tomorrow, weekday names, "in N days" and ISO
// dates. Without any of them the date is today and explicit is false.
func detectDate(lower string, words []string, now time.Time) (time.Time, bool) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if m := isoDateRe.FindStringSubmatch(lower); m != nil {
		if d, err := time.ParseInLocation("2006-01-02", m[1], now.Location()); err == nil {
			return d, true
		}
	}
	if m := inDaysRe.FindStringSubmatch(lower); m != nil {
		n, _ := strconv.Atoi(m[1])
		return today.AddDate(0, 0, n), true
	}
	for _, w := range words {
		switch w {
		case "today", "tonight":
			return today, true
		case "tomorrow":
			return today.AddDate(0, 0, 1), true
		}
		if wd, ok := weekdays[w]; ok {
			ahead := (int(wd) - int(today.Weekday()) + 7) % 7
			return today.AddDate(0, 0, ahead), true
		}
	}
	return today, false
}

// #endregion keyword-parser
