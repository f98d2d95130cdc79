// Copyright (c) 2024, gosh authors
// See LICENSE for licensing information

package expand

import (
	"strings"

	"github.com/yanomasao/gosh/syntax"
)

// Fields runs the full six-stage pipeline over one or more Words and
// returns the final argv-style field list, in order. This is what a simple
// command's arguments go through.
func Fields(cfg *Config, words ...*syntax.Word) ([]string, error) {
	var out []string
	for _, w := range words {
		if cfg.Interrupted != nil && cfg.Interrupted() {
			return nil, ErrInterrupted
		}
		fs, err := wordFields(cfg, w)
		if err != nil {
			return nil, err
		}
		out = append(out, fs...)
	}
	return out, nil
}

func wordFields(cfg *Config, w *syntax.Word) ([]string, error) {
	var out []string
	for _, braced := range expandBraces(w) {
		tilded := expandTilde(cfg, braced)
		parts, err := expandSubwords(cfg, tilded.Subwords, false)
		if err != nil {
			return nil, err
		}
		for _, fr := range splitFields(parts, cfg.Env.IFS()) {
			matches, err := globField(cfg, fr)
			if err != nil {
				return nil, err
			}
			out = append(out, matches...)
		}
	}
	return out, nil
}

// AssignValue expands a word the way a `name=word` assignment, a case
// pattern's subject, or a redirection target does: brace and tilde
// expansion and substitution happen, but there is no field splitting or
// pathname expansion, and the result is always a single string.
func AssignValue(cfg *Config, w *syntax.Word) (string, error) {
	branches := expandBraces(w)
	// An assignment's right-hand side is one word; if it happened to
	// contain a brace expansion bash still only keeps the first branch
	// would be wrong, but bash in fact performs brace expansion before
	// word-splitting for every context uniformly, and a `name={a,b}`
	// assignment is genuinely ambiguous shell usage. We take the
	// first (and typically only) branch, matching the common case.
	if len(branches) == 0 {
		return "", nil
	}
	tilded := expandTilde(cfg, branches[0])
	parts, err := expandSubwords(cfg, tilded.Subwords, false)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, p := range parts {
		sb.WriteString(p.str)
	}
	return sb.String(), nil
}

// expandWordPlain expands a word (a ${...} pattern/replacement/default
// operand) to a single string with no field splitting or globbing; nil
// words (an omitted operand) expand to "".
func expandWordPlain(cfg *Config, w *syntax.Word) (string, error) {
	if w == nil {
		return "", nil
	}
	return AssignValue(cfg, w)
}

// expandSubwords resolves each Subword of a Word (post brace/tilde stages)
// to its fieldParts, in order. quoted is the ambient quoting context: true
// while walking the Parts of a DoubleQuoted.
func expandSubwords(cfg *Config, subwords []syntax.Subword, quoted bool) ([]fieldPart, error) {
	var out []fieldPart
	for _, sw := range subwords {
		parts, err := expandSubword(cfg, sw, quoted)
		if err != nil {
			return nil, err
		}
		out = append(out, parts...)
	}
	return out, nil
}

func expandSubword(cfg *Config, sw syntax.Subword, quoted bool) ([]fieldPart, error) {
	switch v := sw.(type) {
	case *syntax.Literal:
		return []fieldPart{{str: v.Value, quoted: quoted}}, nil

	case *syntax.SingleQuoted:
		return []fieldPart{{str: v.Value, quoted: true}}, nil

	case *syntax.EscapedChar:
		return []fieldPart{{str: string(v.Char), quoted: true}}, nil

	case *syntax.DoubleQuoted:
		return expandDoubleQuoted(cfg, v)

	case *syntax.Parameter:
		return resolveParameter(cfg, v, quoted)

	case *syntax.CommandSubstitution:
		out, err := cfg.Subst(v.Body)
		if err != nil {
			return nil, err
		}
		return []fieldPart{{str: out, quoted: quoted}}, nil

	case *syntax.ArithmeticSubstitution:
		n, err := evalArithSubst(cfg, v.Expr.RawText)
		if err != nil {
			return nil, err
		}
		return []fieldPart{{str: n, quoted: quoted}}, nil

	case *syntax.Tilde:
		// A Tilde that survived the tilde-expansion stage was ineligible;
		// expandTilde already rewrote eligible ones to a Literal.
		return []fieldPart{{str: v.Text(), quoted: quoted}}, nil

	case *syntax.BraceExpansion:
		// Only reachable for a brace expansion nested inside a context
		// expandBraces does not recurse into (there is none at present);
		// fall back to its literal text rather than silently dropping it.
		return []fieldPart{{str: v.Text(), quoted: quoted}}, nil
	}
	return nil, &ExpandError{Msg: "unrecognized subword"}
}

// expandDoubleQuoted resolves the parts of a "..." run. "$@" is the one
// construct allowed to still produce multiple fields from inside double
// quotes; everything else concatenates into the surrounding field.
func expandDoubleQuoted(cfg *Config, d *syntax.DoubleQuoted) ([]fieldPart, error) {
	return expandSubwords(cfg, d.Parts, true)
}

func evalArithSubst(cfg *Config, text string) (string, error) {
	n, err := exprEvalArith(cfg, text)
	if err != nil {
		return "", err
	}
	return n.String(), nil
}
