package intent

import (
	"context"
	"log"
	"time"

	"github.com/danielpatrickdp/adaptive-coach/internal/prescription"
)

// #region intent

// Intent is a structured training request extracted from free text.
type Intent struct {
	Sport       prescription.Sport `json:"sport"`
	Date        time.Time          `json:"date"`
	DurationMin int                `json:"duration_min,omitempty"`
	DistanceM   int                `json:"distance_m,omitempty"` // total volume claim, e.g. swim meters
	Title       string             `json:"title,omitempty"`
	Confidence  int                `json:"confidence"` // 0-100
}

// Parser turns chat text into an Intent. now anchors relative dates.
// Implementations are per locale or grammar.
type Parser interface {
	Parse(ctx context.Context, text string, now time.Time) (Intent, error)
}

// #endregion intent

// #region fallback

// Fallback tries primary and, on any error, secondary.
type Fallback struct {
	Primary   Parser
	Secondary Parser
	Logger    *log.Logger
}

// Parse implements Parser.
func (f Fallback) Parse(ctx context.Context, text string, now time.Time) (Intent, error) {
	in, err := f.Primary.Parse(ctx, text, now)
	if err == nil {
		return in, nil
	}
	logger := f.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Printf("[intent] primary parser failed, using fallback: %v", err)
	return f.Secondary.Parse(ctx, text, now)
}

// #endregion fallback
