package prescription

import (
	"regexp"
	"strconv"
	"strings"
)

// #region limits

// Bounds on the single local edit used to hit an exact distance.
const (
	maxRepDelta      = 4   // reps added or removed
	maxDistanceDelta = 400 // meters changed across all reps of one block
	distanceStep     = 25  // per-rep distance changes are pool-length multiples
	minBlockDistance = 50
)

// #endregion limits

// #region edit-search

type blockRef struct {
	group int // 0 main, 1 warm-up and other, 2 cool-down
	reps  int
	dist  int
}

type edit struct {
	index int
	reps  int
	dist  int
}

func groupOf(t SectionType) int {
	switch t {
	case SectionWarmup:
		return 1
	case SectionCooldown:
		return 2
	}
	return 0
}

// findEdit returns the first single-block edit that changes the total by
// exactly delta. Main-set blocks are tried before warm-up, then cool-down; in
// each block a rep-count change is tried before a per-rep distance change.
func findEdit(refs []blockRef, delta int) (edit, bool) {
	if delta == 0 {
		return edit{}, false
	}
	for group := 0; group <= 2; group++ {
		for i, r := range refs {
			if r.group != group || r.dist <= 0 {
				continue
			}
			if e, ok := tryEdit(r, delta); ok {
				e.index = i
				return e, true
			}
		}
	}
	return edit{}, false
}

func tryEdit(r blockRef, delta int) (edit, bool) {
	reps := r.reps
	if reps < 1 {
		reps = 1
	}
	if reps > 1 && delta%r.dist == 0 {
		dr := delta / r.dist
		if abs(dr) <= maxRepDelta && reps+dr >= 1 {
			return edit{reps: reps + dr, dist: r.dist}, true
		}
	}
	if abs(delta) <= maxDistanceDelta && delta%reps == 0 {
		per := delta / reps
		if per%distanceStep == 0 && r.dist+per >= minBlockDistance {
			return edit{reps: reps, dist: r.dist + per}, true
		}
	}
	return edit{}, false
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// #endregion edit-search

// #region enforce-plan

// EnforceExactTotal makes the plan's total distance equal targetM with one
// bounded edit to a single block. When no safe edit exists it returns the
// plan unchanged and false. A plan already at targetM is returned as is.
func EnforceExactTotal(p Plan, targetM int) (Plan, bool) {
	current := p.TotalDistanceM()
	if current == targetM {
		return p, true
	}
	if targetM <= 0 || current == 0 {
		return p, false
	}

	type loc struct{ s, b int }
	var refs []blockRef
	var locs []loc
	for si, s := range p.Sections {
		for bi, b := range s.Blocks {
			refs = append(refs, blockRef{group: groupOf(s.Type), reps: b.RepCount(), dist: b.DistanceM})
			locs = append(locs, loc{si, bi})
		}
	}

	e, ok := findEdit(refs, targetM-current)
	if !ok {
		return p, false
	}
	out := p.Clone()
	at := locs[e.index]
	blk := &out.Sections[at.s].Blocks[at.b]
	if e.reps != blk.RepCount() {
		blk.Reps = e.reps
	}
	blk.DistanceM = e.dist
	if out.TotalDistanceM() != targetM {
		return p, false
	}
	return out, true
}

// #endregion enforce-plan

// #region enforce-text

var (
	blockLineRe = regexp.MustCompile(`^\s*[-*•]\s*(?:(\d+)\s*[x×]\s*)?(\d+)\s*m\b`)
	totalLineRe = regexp.MustCompile(`(?i)^(\s*total\s*:\s*)(\d+)(\s*m\b)`)
)

type textBlock struct {
	line int
	ref  blockRef
	// submatch byte offsets for reps and distance digits; reps may be -1
	repsAt, distAt [2]int
}

// EnforceExactTotalText applies the same bounded edit to rendered plan text:
// bullet lines like "- 6x400m ..." are the blocks, headings containing
// "warm" or "cool" set the group, and a "Total: Nm" line is rewritten to the
// realized total. Text that cannot be fixed safely is returned unchanged with
// false. The function is idempotent.
func EnforceExactTotalText(text string, targetM int) (string, bool) {
	lines := strings.Split(text, "\n")

	var blocks []textBlock
	group := 0
	total := 0
	for i, line := range lines {
		m := blockLineRe.FindStringSubmatchIndex(line)
		if m == nil {
			trimmed := strings.ToLower(strings.TrimSpace(line))
			switch {
			case trimmed == "" || totalLineRe.MatchString(line):
			case strings.Contains(trimmed, "warm"):
				group = 1
			case strings.Contains(trimmed, "cool"):
				group = 2
			default:
				group = 0
			}
			continue
		}
		tb := textBlock{line: i, ref: blockRef{group: group, reps: 1}, repsAt: [2]int{-1, -1}, distAt: [2]int{m[4], m[5]}}
		if m[2] >= 0 {
			tb.repsAt = [2]int{m[2], m[3]}
			tb.ref.reps, _ = strconv.Atoi(line[m[2]:m[3]])
		}
		tb.ref.dist, _ = strconv.Atoi(line[m[4]:m[5]])
		total += tb.ref.dist * max(tb.ref.reps, 1)
		blocks = append(blocks, tb)
	}
	if len(blocks) == 0 || targetM <= 0 {
		return text, false
	}

	if total != targetM {
		refs := make([]blockRef, len(blocks))
		for i, b := range blocks {
			refs[i] = b.ref
		}
		e, ok := findEdit(refs, targetM-total)
		if !ok {
			return text, false
		}
		tb := blocks[e.index]
		line := lines[tb.line]
		// Replace the later span first so the earlier offsets stay valid.
		line = line[:tb.distAt[0]] + strconv.Itoa(e.dist) + line[tb.distAt[1]:]
		if tb.repsAt[0] >= 0 {
			line = line[:tb.repsAt[0]] + strconv.Itoa(e.reps) + line[tb.repsAt[1]:]
		}
		lines[tb.line] = line
	}

	for i, line := range lines {
		if totalLineRe.MatchString(line) {
			lines[i] = totalLineRe.ReplaceAllString(line, "${1}"+strconv.Itoa(targetM)+"${3}")
		}
	}
	return strings.Join(lines, "\n"), true
}

// #endregion enforce-text
