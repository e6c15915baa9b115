package prescription

import (
	"fmt"
	"strings"
)

// #region render

// Render formats a plan as prescription text. Distance plans end with a
// "Total: Nm" line that EnforceExactTotalText understands.
func Render(p Plan) string {
	var b strings.Builder
	if p.DurationMin > 0 {
		fmt.Fprintf(&b, "%s (%d min)\n", p.Objective, p.DurationMin)
	} else {
		b.WriteString(p.Objective + "\n")
	}

	for _, s := range p.Sections {
		b.WriteString("\n" + s.Title + "\n")
		for _, blk := range s.Blocks {
			b.WriteString(renderBlock(blk) + "\n")
		}
	}

	switch total := p.TotalDistanceM(); {
	case total > 0:
		fmt.Fprintf(&b, "\nTotal: %dm", total)
	case p.DurationMin > 0:
		fmt.Fprintf(&b, "\nTotal: %d min", p.DurationMin)
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderBlock(blk Block) string {
	var b strings.Builder
	b.WriteString("- ")
	if blk.RepCount() > 1 {
		fmt.Fprintf(&b, "%dx", blk.RepCount())
	}
	if blk.DistanceM > 0 {
		fmt.Fprintf(&b, "%dm", blk.DistanceM)
	} else {
		b.WriteString(duration(blk.DurationSec))
	}
	if blk.Notes != "" {
		b.WriteString(" " + blk.Notes)
	}
	if blk.Intensity != nil {
		b.WriteString(" @ " + blk.Intensity.Label())
	}
	if blk.RestSec > 0 && blk.RepCount() > 1 {
		b.WriteString(", rest " + duration(blk.RestSec))
	}
	return b.String()
}

func duration(sec int) string {
	if sec >= 60 && sec%60 == 0 {
		return fmt.Sprintf("%d min", sec/60)
	}
	return fmt.Sprintf("%ds", sec)
}

// #endregion render
