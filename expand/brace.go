// Copyright (c) 2024, gosh authors
// See LICENSE for licensing information

package expand

import (
	"strconv"
	"strings"

	"github.com/yanomasao/gosh/syntax"
)

// expandBraces performs the first pipeline stage: cross-product brace
// expansion. A Word containing no BraceExpansion subword expands to itself.
// Nested braces (inside an alternative, or later in the same Word) are
// resolved by recursing, left to right, matching bash's expansion order.
func expandBraces(w *syntax.Word) []*syntax.Word {
	for i, sw := range w.Subwords {
		be, ok := sw.(*syntax.BraceExpansion)
		if !ok {
			continue
		}
		var branches []*syntax.Word
		if be.Range != nil {
			for _, s := range braceRangeStrings(be.Range) {
				branches = append(branches, &syntax.Word{Subwords: []syntax.Subword{&syntax.Literal{Value: s}}})
			}
		} else {
			branches = be.Alternatives
		}
		var out []*syntax.Word
		for _, br := range branches {
			for _, expandedBr := range expandBraces(br) {
				merged := &syntax.Word{}
				merged.Subwords = append(merged.Subwords, w.Subwords[:i]...)
				merged.Subwords = append(merged.Subwords, expandedBr.Subwords...)
				merged.Subwords = append(merged.Subwords, w.Subwords[i+1:]...)
				out = append(out, expandBraces(merged)...)
			}
		}
		return out
	}
	return []*syntax.Word{w}
}

func braceRangeStrings(r *syntax.BraceRange) []string {
	var out []string
	if r.Step == 0 {
		return out
	}
	if r.Step > 0 {
		for v := r.From; v <= r.To; v += r.Step {
			out = append(out, formatBraceNum(v, r))
		}
	} else {
		for v := r.From; v >= r.To; v += r.Step {
			out = append(out, formatBraceNum(v, r))
		}
	}
	return out
}

func formatBraceNum(v int, r *syntax.BraceRange) string {
	s := strconv.Itoa(v)
	if !r.Zero {
		return s
	}
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	for len(s) < r.Width {
		s = "0" + s
	}
	if neg {
		s = "-" + s
	}
	return s
}
