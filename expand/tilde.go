// Copyright (c) 2024, gosh authors
// See LICENSE for licensing information

package expand

import "github.com/yanomasao/gosh/syntax"

// expandTilde performs the second pipeline stage. The parser recognizes a
// `~` anywhere unquoted as a candidate Tilde subword; it is the word
// engine's job to decide whether that candidate is actually eligible
// (word-initial, or immediately following an unquoted ':' or '=') and, if
// so, resolve it against Env.HomeDir. An ineligible or unresolvable Tilde
// falls back to its literal text.
func expandTilde(cfg *Config, w *syntax.Word) *syntax.Word {
	out := &syntax.Word{}
	for i, sw := range w.Subwords {
		t, ok := sw.(*syntax.Tilde)
		if !ok {
			out.Subwords = append(out.Subwords, sw)
			continue
		}
		eligible := i == 0
		if !eligible && i > 0 {
			if lit, ok := w.Subwords[i-1].(*syntax.Literal); ok && lit.Value != "" {
				last := lit.Value[len(lit.Value)-1]
				eligible = last == ':' || last == '='
			}
		}
		if !eligible {
			out.Subwords = append(out.Subwords, &syntax.Literal{Value: t.Text()})
			continue
		}
		home, ok := cfg.Env.HomeDir(t.User)
		if !ok {
			out.Subwords = append(out.Subwords, &syntax.Literal{Value: t.Text()})
			continue
		}
		out.Subwords = append(out.Subwords, &syntax.Literal{Value: home})
	}
	return out
}
