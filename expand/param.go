// Copyright (c) 2024, gosh authors
// See LICENSE for licensing information

package expand

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/yanomasao/gosh/expr"
	"github.com/yanomasao/gosh/pattern"
	"github.com/yanomasao/gosh/syntax"
)

// resolveParameter expands one Parameter subword to zero or more fieldParts.
// Most operators produce exactly one; the "@" family produces one per
// positional parameter or array element, which is how `"$@"` ends up
// splitting into separate argv entries even though it never touches IFS.
func resolveParameter(cfg *Config, p *syntax.Parameter, quoted bool) ([]fieldPart, error) {
	name := p.Name
	if p.Indirect {
		target, ok := cfg.Env.GetVar(name)
		if !ok {
			return nil, nil
		}
		name = target
	}

	switch p.Op {
	case syntax.ParamLength:
		n, err := paramLength(cfg, name, p)
		if err != nil {
			return nil, err
		}
		return []fieldPart{{str: strconv.Itoa(n)}}, nil
	}

	if name == "@" || name == "*" {
		return resolveAtStar(cfg, name, quoted)
	}
	if p.Index != nil {
		return resolveIndexed(cfg, name, p, quoted)
	}

	val, isSet := lookupScalar(cfg, name)

	switch p.Op {
	case syntax.ParamPlain:
		if !isSet {
			return nil, nil
		}
		return []fieldPart{{str: val, quoted: quoted}}, nil

	case syntax.ParamDefault, syntax.ParamDefaultUnset:
		useDefault := !isSet || (p.Op == syntax.ParamDefault && val == "")
		if useDefault {
			s, err := expandWordPlain(cfg, p.Arg)
			if err != nil {
				return nil, err
			}
			return []fieldPart{{str: s, quoted: quoted}}, nil
		}
		return []fieldPart{{str: val, quoted: quoted}}, nil

	case syntax.ParamAssign, syntax.ParamAssignUnset:
		useDefault := !isSet || (p.Op == syntax.ParamAssign && val == "")
		if useDefault {
			s, err := expandWordPlain(cfg, p.Arg)
			if err != nil {
				return nil, err
			}
			cfg.Env.SetVar(name, s)
			return []fieldPart{{str: s, quoted: quoted}}, nil
		}
		return []fieldPart{{str: val, quoted: quoted}}, nil

	case syntax.ParamError, syntax.ParamErrorUnset:
		useError := !isSet || (p.Op == syntax.ParamError && val == "")
		if useError {
			msg, err := expandWordPlain(cfg, p.Arg)
			if err != nil {
				return nil, err
			}
			if msg == "" {
				msg = name + ": parameter null or not set"
			}
			return nil, &ExpandError{Msg: name + ": " + msg}
		}
		return []fieldPart{{str: val, quoted: quoted}}, nil

	case syntax.ParamAlt, syntax.ParamAltUnset:
		useAlt := isSet && (p.Op == syntax.ParamAltUnset || val != "")
		if useAlt {
			s, err := expandWordPlain(cfg, p.Arg)
			if err != nil {
				return nil, err
			}
			return []fieldPart{{str: s, quoted: quoted}}, nil
		}
		return nil, nil

	case syntax.ParamRemoveShortestPrefix, syntax.ParamRemoveLongestPrefix:
		pat, err := expandWordPlain(cfg, p.Arg)
		if err != nil {
			return nil, err
		}
		s, err := removePrefix(val, pat, p.Op == syntax.ParamRemoveLongestPrefix)
		if err != nil {
			return nil, err
		}
		return []fieldPart{{str: s, quoted: quoted}}, nil

	case syntax.ParamRemoveShortestSuffix, syntax.ParamRemoveLongestSuffix:
		pat, err := expandWordPlain(cfg, p.Arg)
		if err != nil {
			return nil, err
		}
		s, err := removeSuffix(val, pat, p.Op == syntax.ParamRemoveLongestSuffix)
		if err != nil {
			return nil, err
		}
		return []fieldPart{{str: s, quoted: quoted}}, nil

	case syntax.ParamReplaceFirst, syntax.ParamReplaceAll, syntax.ParamReplacePrefix, syntax.ParamReplaceSuffix:
		pat, err := expandWordPlain(cfg, p.Arg)
		if err != nil {
			return nil, err
		}
		repl, err := expandWordPlain(cfg, p.ReplArg)
		if err != nil {
			return nil, err
		}
		var s string
		switch p.Op {
		case syntax.ParamReplaceFirst:
			s, err = replaceFirst(val, pat, repl)
		case syntax.ParamReplaceAll:
			s, err = replaceAll(val, pat, repl)
		case syntax.ParamReplacePrefix:
			s, err = replacePrefix(val, pat, repl)
		default:
			s, err = replaceSuffix(val, pat, repl)
		}
		if err != nil {
			return nil, err
		}
		return []fieldPart{{str: s, quoted: quoted}}, nil

	case syntax.ParamUpperFirst, syntax.ParamUpperAll, syntax.ParamLowerFirst, syntax.ParamLowerAll:
		var pat string
		if p.Arg != nil {
			s, err := expandWordPlain(cfg, p.Arg)
			if err != nil {
				return nil, err
			}
			pat = s
		}
		up := p.Op == syntax.ParamUpperFirst || p.Op == syntax.ParamUpperAll
		all := p.Op == syntax.ParamUpperAll || p.Op == syntax.ParamLowerAll
		s, err := applyCase(val, up, all, pat)
		if err != nil {
			return nil, err
		}
		return []fieldPart{{str: s, quoted: quoted}}, nil

	case syntax.ParamSubstring:
		off, err := evalOffset(cfg, p.Offset)
		if err != nil {
			return nil, err
		}
		var length *int
		if p.Length != nil {
			l, err := evalOffset(cfg, p.Length)
			if err != nil {
				return nil, err
			}
			length = &l
		}
		return []fieldPart{{str: substring(val, off, length), quoted: quoted}}, nil
	}

	return []fieldPart{{str: val, quoted: quoted}}, nil
}

func lookupScalar(cfg *Config, name string) (string, bool) {
	if len(name) == 1 {
		switch name[0] {
		case '?', '#', '$', '!', '-', '0':
			return cfg.Env.Special(name[0])
		}
	}
	if n, err := strconv.Atoi(name); err == nil && n >= 0 {
		pos := cfg.Env.Positional()
		if n == 0 {
			return cfg.Env.Special('0')
		}
		if n-1 < len(pos) {
			return pos[n-1], true
		}
		return "", false
	}
	return cfg.Env.GetVar(name)
}

func paramLength(cfg *Config, name string, p *syntax.Parameter) (int, error) {
	if name == "@" || name == "*" {
		return len(cfg.Env.Positional()), nil
	}
	if p.Index != nil {
		fs, err := resolveIndexed(cfg, name, &syntax.Parameter{Op: syntax.ParamPlain, Index: p.Index}, false)
		if err != nil {
			return 0, err
		}
		total := 0
		for _, f := range fs {
			total += len(f.str)
		}
		return total, nil
	}
	val, _ := lookupScalar(cfg, name)
	return len(val), nil
}

func resolveAtStar(cfg *Config, name string, quoted bool) ([]fieldPart, error) {
	pos := cfg.Env.Positional()
	if name == "*" || !quoted {
		// Unquoted "@" behaves like "*": the positional parameters are
		// joined into one field and handed to the splitting stage, which
		// re-divides it on IFS. Only "$@" inside double quotes preserves
		// each positional parameter as its own field.
		ifs := cfg.Env.IFS()
		sep := " "
		if ifs != "" {
			sep = ifs[:1]
		} else if quoted {
			sep = ""
		}
		return []fieldPart{{str: strings.Join(pos, sep), quoted: quoted}}, nil
	}
	parts := make([]fieldPart, len(pos))
	for i, s := range pos {
		parts[i] = fieldPart{str: s, quoted: true, fieldBoundary: true}
	}
	return parts, nil
}

func resolveIndexed(cfg *Config, name string, p *syntax.Parameter, quoted bool) ([]fieldPart, error) {
	idxText, err := expandWordPlain(cfg, p.Index)
	if err != nil {
		return nil, err
	}
	if idxText == "@" || idxText == "*" {
		arr, _ := cfg.Env.GetArray(name)
		if idxText == "*" || !quoted {
			ifs := cfg.Env.IFS()
			sep := " "
			if ifs != "" {
				sep = ifs[:1]
			}
			return []fieldPart{{str: strings.Join(arr, sep), quoted: quoted}}, nil
		}
		parts := make([]fieldPart, len(arr))
		for i, s := range arr {
			parts[i] = fieldPart{str: s, quoted: true, fieldBoundary: true}
		}
		return parts, nil
	}
	n, err := expr.EvalArith(idxText, cfg.Env, arithSubst(cfg))
	if err != nil {
		return nil, err
	}
	arr, ok := cfg.Env.GetArray(name)
	i := int(asIntNum(n))
	if !ok || i < 0 || i >= len(arr) {
		return nil, nil
	}
	return []fieldPart{{str: arr[i], quoted: quoted}}, nil
}

func evalOffset(cfg *Config, a *syntax.ArithExpr) (int, error) {
	n, err := expr.EvalArith(a.RawText, cfg.Env, arithSubst(cfg))
	if err != nil {
		return 0, err
	}
	return int(asIntNum(n)), nil
}

func substring(s string, off int, length *int) string {
	n := len(s)
	if off < 0 {
		off = n + off
		if off < 0 {
			off = 0
		}
	}
	if off > n {
		off = n
	}
	end := n
	if length != nil {
		l := *length
		if l < 0 {
			end = n + l
			if end < off {
				end = off
			}
		} else {
			end = off + l
			if end > n {
				end = n
			}
		}
	}
	if off > end {
		return ""
	}
	return s[off:end]
}

func applyCase(s string, up, all bool, globPat string) (string, error) {
	runes := []rune(s)
	for i, r := range runes {
		if globPat != "" {
			m, err := pattern.Match(globPat, string(r), 0)
			if err != nil {
				return "", err
			}
			if !m {
				if !all {
					break
				}
				continue
			}
		}
		if up {
			runes[i] = unicode.ToUpper(r)
		} else {
			runes[i] = unicode.ToLower(r)
		}
		if !all {
			break
		}
	}
	return string(runes), nil
}

func removePrefix(s, pat string, longest bool) (string, error) {
	re, err := pattern.Compile(pat, 0)
	if err != nil {
		return "", err
	}
	if longest {
		for i := len(s); i >= 0; i-- {
			if re.MatchString(s[:i]) {
				return s[i:], nil
			}
		}
	} else {
		for i := 0; i <= len(s); i++ {
			if re.MatchString(s[:i]) {
				return s[i:], nil
			}
		}
	}
	return s, nil
}

func removeSuffix(s, pat string, longest bool) (string, error) {
	re, err := pattern.Compile(pat, 0)
	if err != nil {
		return "", err
	}
	if longest {
		for i := 0; i <= len(s); i++ {
			if re.MatchString(s[i:]) {
				return s[:i], nil
			}
		}
	} else {
		for i := len(s); i >= 0; i-- {
			if re.MatchString(s[i:]) {
				return s[:i], nil
			}
		}
	}
	return s, nil
}

func regexpFromGlob(pat string) (*regexp.Regexp, error) {
	src, err := pattern.Regexp(pat, 0)
	if err != nil {
		return nil, err
	}
	return regexp.Compile(src)
}

func replaceAll(s, pat, repl string) (string, error) {
	re, err := regexpFromGlob(pat)
	if err != nil {
		return "", err
	}
	return re.ReplaceAllStringFunc(s, func(string) string { return repl }), nil
}

func replaceFirst(s, pat, repl string) (string, error) {
	re, err := regexpFromGlob(pat)
	if err != nil {
		return "", err
	}
	loc := re.FindStringIndex(s)
	if loc == nil {
		return s, nil
	}
	return s[:loc[0]] + repl + s[loc[1]:], nil
}

func replacePrefix(s, pat, repl string) (string, error) {
	re, err := pattern.Compile(pat, 0)
	if err != nil {
		return "", err
	}
	for i := len(s); i >= 0; i-- {
		if re.MatchString(s[:i]) {
			return repl + s[i:], nil
		}
	}
	return s, nil
}

func replaceSuffix(s, pat, repl string) (string, error) {
	re, err := pattern.Compile(pat, 0)
	if err != nil {
		return "", err
	}
	for i := 0; i <= len(s); i++ {
		if re.MatchString(s[i:]) {
			return s[:i] + repl, nil
		}
	}
	return s, nil
}

func asIntNum(n expr.Num) int64 {
	if n.Float {
		return int64(n.F)
	}
	return n.I
}

func exprEvalArith(cfg *Config, text string) (expr.Num, error) {
	return expr.EvalArith(text, cfg.Env, arithSubst(cfg))
}

func arithSubst(cfg *Config) expr.Substituter {
	if cfg.Arith != nil {
		return cfg.Arith
	}
	return func(source string, backtick bool) (string, error) { return "", nil }
}
