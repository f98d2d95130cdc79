// Copyright (c) 2024, gosh authors
// See LICENSE for licensing information

package syntax

import (
	"strconv"
	"strings"

	"github.com/yanomasao/gosh/feeder"
)

// onceSource is a feeder.LineSource that hands back one pre-built string and
// then reports end of input; it lets a nested construct ($(...), ${...},
// brace alternatives) be parsed by a fresh Parser over already-extracted
// text, without re-threading the outer interactive/script source through it.
type onceSource struct {
	text string
	used bool
}

func strLineSource(s string) feeder.LineSource { return &onceSource{text: s} }

func (s *onceSource) NextLine(prompt string) (string, bool) {
	if s.used {
		return "", false
	}
	s.used = true
	return s.text, true
}

func parseWordFromText(s string) (*Word, error) {
	if s == "" {
		return nil, nil
	}
	return NewParser(strLineSource(s), nil).parseWord()
}

// parseDollar parses the subword beginning at an unconsumed '$': arithmetic
// substitution, command substitution, braced or plain parameter reference,
// or (failing all of those) a lone literal '$'.
func (p *Parser) parseDollar() (Subword, bool, error) {
	start := p.f.Pos()
	if !p.ensure(2) {
		p.f.Consume(p.f.Len())
		return &Literal{Value: "$"}, true, nil
	}
	switch {
	case p.startsWith("$(("):
		return p.parseArithSubst(start)
	case p.startsWith("$("):
		return p.parseCommandSubstParen(start)
	case p.startsWith("${"):
		return p.parseBracedParameter(start)
	}
	c := p.f.Rest()[1]
	if isNameStartOrDigit(c) || isSpecialParamChar(c) {
		p.f.Consume(1)
		name := scanParamName(p.f, false)
		return &Parameter{RawText: p.f.TextSince(start), Name: name, Op: ParamPlain}, true, nil
	}
	p.f.Consume(1)
	return &Literal{Value: "$"}, true, nil
}

func isNameStartOrDigit(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func isSpecialParamChar(c byte) bool {
	switch c {
	case '?', '#', '@', '*', '$', '!', '-':
		return true
	}
	return false
}

// scanParamName consumes a parameter name: an identifier, a run of digits
// (unbraced: exactly one, matching bash's single-digit positional params
// outside of `${ }`), or one of the single-character special parameters.
func scanParamName(f *feeder.Feeder, braced bool) string {
	if n := feeder.ScanName(f.Rest()); n > 0 {
		return f.Consume(n)
	}
	if braced {
		if n := feeder.ScanNonnegativeInteger(f.Rest()); n > 0 {
			return f.Consume(n)
		}
	} else if f.Len() > 0 && f.Rest()[0] >= '0' && f.Rest()[0] <= '9' {
		return f.Consume(1)
	}
	if f.Len() > 0 && isSpecialParamChar(f.Rest()[0]) {
		return f.Consume(1)
	}
	return ""
}

// parseArithSubst parses `$(( expr ))`, consuming up to the matching `))`
// at paren depth zero.
func (p *Parser) parseArithSubst(start int) (Subword, bool, error) {
	p.f.Consume(3)
	body, ok := p.scanDoubleParenBody()
	if !ok {
		return nil, false, &ParseError{Pos: p.f.Pos(), Msg: "unterminated arithmetic substitution"}
	}
	return &ArithmeticSubstitution{RawText: p.f.TextSince(start), Expr: &ArithExpr{RawText: body}}, true, nil
}

// parseCommandSubstParen parses `$( ... )`, quote- and nesting-aware, and
// recursively parses the body as a Script.
func (p *Parser) parseCommandSubstParen(start int) (Subword, bool, error) {
	p.f.Consume(2)
	bodyStart := p.f.Pos()
	depth := 0
	inSingle, inDouble := false, false
	for {
		rest := p.f.Rest()
		i := 0
		for i < len(rest) {
			c := rest[i]
			switch {
			case inSingle:
				if c == '\'' {
					inSingle = false
				}
				i++
			case c == '\\':
				i += 2
			case inDouble:
				if c == '"' {
					inDouble = false
				}
				i++
			case c == '\'':
				inSingle = true
				i++
			case c == '"':
				inDouble = true
				i++
			case c == '(':
				depth++
				i++
			case c == ')':
				if depth == 0 {
					body := p.f.TextSince(bodyStart) + rest[:i]
					p.f.Consume(i + 1)
					sub := NewParser(strLineSource(body), nil)
					script, err := sub.ParseScript()
					if err != nil {
						return nil, false, &ParseError{Pos: p.f.Pos(), Msg: "bad command substitution"}
					}
					return &CommandSubstitution{RawText: p.f.TextSince(start), Body: script}, true, nil
				}
				depth--
				i++
			default:
				i++
			}
		}
		p.f.Consume(len(rest))
		if !p.needMore() {
			return nil, false, &ParseError{Pos: p.f.Pos(), Msg: "unterminated command substitution"}
		}
	}
}

// scanToMatchingBrace extracts the raw text up to (and consumes through) the
// matching '}' at depth zero, given that the opening '{' or "${" has already
// been consumed.
func (p *Parser) scanToMatchingBrace() (string, bool) {
	bodyStart := p.f.Pos()
	depth := 0
	for {
		rest := p.f.Rest()
		for i := 0; i < len(rest); i++ {
			switch rest[i] {
			case '{':
				depth++
			case '}':
				if depth == 0 {
					body := p.f.TextSince(bodyStart) + rest[:i]
					p.f.Consume(i + 1)
					return body, true
				}
				depth--
			}
		}
		p.f.Consume(len(rest))
		if !p.needMore() {
			return "", false
		}
	}
}

// parseBracedParameter parses `${ ... }` into a Parameter, by first lifting
// the whole body out as raw text (matching the closing brace against the
// live, possibly multi-line, input) and then reparsing that body as a
// self-contained string — simpler than tracking the full grammar against a
// streaming source.
func (p *Parser) parseBracedParameter(start int) (Subword, bool, error) {
	p.f.Consume(2)
	inner, ok := p.scanToMatchingBrace()
	if !ok {
		return nil, false, &ParseError{Pos: p.f.Pos(), Msg: "unterminated parameter expansion"}
	}
	raw := p.f.TextSince(start)
	prm, err := parseParameterBody(inner, raw)
	if err != nil {
		return nil, false, err
	}
	return prm, true, nil
}

func parseParameterBody(inner, raw string) (*Parameter, error) {
	sp := NewParser(strLineSource(inner), nil)
	f := sp.f
	prm := &Parameter{RawText: raw, Braced: true}

	if f.StartsWith("!") && (feeder.ScanName(f.Rest()[1:]) > 0 || feeder.ScanNonnegativeInteger(f.Rest()[1:]) > 0) {
		f.Consume(1)
		prm.Indirect = true
	}

	if f.StartsWith("#") && f.Len() > 1 {
		f.Consume(1)
		name := scanParamName(f, true)
		if name == "" {
			return nil, &ParseError{Msg: "malformed ${#...}"}
		}
		prm.Name = name
		prm.Op = ParamLength
		idx, ok := parseBracketIndex(f)
		if !ok {
			return nil, &ParseError{Msg: "malformed array index"}
		}
		prm.Index = idx
		return prm, nil
	}

	name := scanParamName(f, true)
	prm.Name = name
	idx, ok := parseBracketIndex(f)
	if !ok {
		return nil, &ParseError{Msg: "malformed array index"}
	}
	prm.Index = idx

	if f.Len() == 0 {
		prm.Op = ParamPlain
		return prm, nil
	}

	switch {
	case f.StartsWith(":"):
		rest2 := f.Rest()[1:]
		if len(rest2) > 0 && isDefaultOpChar(rest2[0]) {
			f.Consume(1)
			op := rest2[0]
			f.Consume(1)
			prm.Op = colonDefaultOp(op)
			arg, err := sp.parseWord()
			if err != nil {
				return nil, err
			}
			prm.Arg = arg
		} else {
			f.Consume(1)
			prm.Op = ParamSubstring
			off := scanFieldRaw(f, ':')
			prm.Offset = &ArithExpr{RawText: off}
			if f.StartsWith(":") {
				f.Consume(1)
				prm.Length = &ArithExpr{RawText: f.Consume(f.Len())}
			}
		}
	case f.StartsWith("-"):
		f.Consume(1)
		prm.Op = ParamDefaultUnset
		arg, err := sp.parseWord()
		if err != nil {
			return nil, err
		}
		prm.Arg = arg
	case f.StartsWith("="):
		f.Consume(1)
		prm.Op = ParamAssignUnset
		arg, err := sp.parseWord()
		if err != nil {
			return nil, err
		}
		prm.Arg = arg
	case f.StartsWith("?"):
		f.Consume(1)
		prm.Op = ParamErrorUnset
		arg, err := sp.parseWord()
		if err != nil {
			return nil, err
		}
		prm.Arg = arg
	case f.StartsWith("+"):
		f.Consume(1)
		prm.Op = ParamAltUnset
		arg, err := sp.parseWord()
		if err != nil {
			return nil, err
		}
		prm.Arg = arg
	case f.StartsWith("##"):
		f.Consume(2)
		prm.Op = ParamRemoveLongestPrefix
		arg, err := sp.parseWord()
		if err != nil {
			return nil, err
		}
		prm.Arg = arg
	case f.StartsWith("#"):
		f.Consume(1)
		prm.Op = ParamRemoveShortestPrefix
		arg, err := sp.parseWord()
		if err != nil {
			return nil, err
		}
		prm.Arg = arg
	case f.StartsWith("%%"):
		f.Consume(2)
		prm.Op = ParamRemoveLongestSuffix
		arg, err := sp.parseWord()
		if err != nil {
			return nil, err
		}
		prm.Arg = arg
	case f.StartsWith("%"):
		f.Consume(1)
		prm.Op = ParamRemoveShortestSuffix
		arg, err := sp.parseWord()
		if err != nil {
			return nil, err
		}
		prm.Arg = arg
	case f.StartsWith("^^"):
		f.Consume(2)
		prm.Op = ParamUpperAll
		arg, err := sp.parseWord()
		if err != nil {
			return nil, err
		}
		prm.Arg = arg
	case f.StartsWith("^"):
		f.Consume(1)
		prm.Op = ParamUpperFirst
		arg, err := sp.parseWord()
		if err != nil {
			return nil, err
		}
		prm.Arg = arg
	case f.StartsWith(",,"):
		f.Consume(2)
		prm.Op = ParamLowerAll
		arg, err := sp.parseWord()
		if err != nil {
			return nil, err
		}
		prm.Arg = arg
	case f.StartsWith(","):
		f.Consume(1)
		prm.Op = ParamLowerFirst
		arg, err := sp.parseWord()
		if err != nil {
			return nil, err
		}
		prm.Arg = arg
	case f.StartsWith("//"):
		f.Consume(2)
		prm.Op = ParamReplaceAll
		if err := parseReplaceArgs(f, prm); err != nil {
			return nil, err
		}
	case f.StartsWith("/#"):
		f.Consume(2)
		prm.Op = ParamReplacePrefix
		if err := parseReplaceArgs(f, prm); err != nil {
			return nil, err
		}
	case f.StartsWith("/%"):
		f.Consume(2)
		prm.Op = ParamReplaceSuffix
		if err := parseReplaceArgs(f, prm); err != nil {
			return nil, err
		}
	case f.StartsWith("/"):
		f.Consume(1)
		prm.Op = ParamReplaceFirst
		if err := parseReplaceArgs(f, prm); err != nil {
			return nil, err
		}
	default:
		return nil, &ParseError{Msg: "unknown parameter expansion operator"}
	}
	return prm, nil
}

func isDefaultOpChar(c byte) bool {
	switch c {
	case '-', '=', '?', '+':
		return true
	}
	return false
}

func colonDefaultOp(c byte) ParamOp {
	switch c {
	case '-':
		return ParamDefault
	case '=':
		return ParamAssign
	case '?':
		return ParamError
	default:
		return ParamAlt
	}
}

func parseReplaceArgs(f *feeder.Feeder, prm *Parameter) error {
	patText := scanFieldRaw(f, '/')
	var replText string
	if f.StartsWith("/") {
		f.Consume(1)
		replText = f.Consume(f.Len())
	}
	arg, err := parseWordFromText(patText)
	if err != nil {
		return err
	}
	repl, err := parseWordFromText(replText)
	if err != nil {
		return err
	}
	prm.Arg = arg
	prm.ReplArg = repl
	return nil
}

// scanFieldRaw consumes raw text up to (but not including) the first
// occurrence of stop at paren/brace depth zero, or to the end of the buffer.
func scanFieldRaw(f *feeder.Feeder, stop byte) string {
	rest := f.Rest()
	depth := 0
	for i := 0; i < len(rest); i++ {
		switch rest[i] {
		case '(', '{':
			depth++
		case ')', '}':
			if depth > 0 {
				depth--
			}
		default:
			if rest[i] == stop && depth == 0 {
				return f.Consume(i)
			}
		}
	}
	return f.Consume(len(rest))
}

// parseBracketIndex parses an optional `[...]` array index/subscript,
// returning (nil, true) when none is present.
func parseBracketIndex(f *feeder.Feeder) (*Word, bool) {
	if !f.StartsWith("[") {
		return nil, true
	}
	f.Consume(1)
	rest := f.Rest()
	depth := 0
	for i := 0; i < len(rest); i++ {
		switch rest[i] {
		case '[':
			depth++
		case ']':
			if depth == 0 {
				text := f.Consume(i)
				f.Consume(1)
				w, err := parseWordFromText(text)
				if err != nil {
					return nil, false
				}
				return w, true
			}
			depth--
		}
	}
	return nil, false
}

// tryParseBraceExpansion probes for `{a,b,c}` or `{from..to[..step]}` at the
// current position, restoring the feeder and reporting no match if what
// follows '{' doesn't parse as one of those two shapes (an ordinary '{' is
// just literal text everywhere outside of a brace-group command).
func (p *Parser) tryParseBraceExpansion() (Subword, bool, error) {
	start := p.f.Pos()
	p.f.SetBackup()
	p.f.Consume(1)
	inner, ok := p.scanToMatchingBrace()
	if !ok {
		p.f.Rewind()
		return nil, false, nil
	}
	parts := splitTopLevelCommas(inner)
	if len(parts) >= 2 {
		alts := make([]*Word, 0, len(parts))
		for _, part := range parts {
			w, err := parseWordFromText(part)
			if err != nil {
				p.f.Rewind()
				return nil, false, nil
			}
			if w == nil {
				w = &Word{}
			}
			alts = append(alts, w)
		}
		p.f.PopBackup()
		return &BraceExpansion{RawText: p.f.TextSince(start), Alternatives: alts}, true, nil
	}
	if rng, ok := parseBraceRange(parts[0]); ok {
		p.f.PopBackup()
		return &BraceExpansion{RawText: p.f.TextSince(start), Range: rng}, true, nil
	}
	p.f.Rewind()
	return nil, false, nil
}

func splitTopLevelCommas(s string) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}

func parseBraceRange(s string) (*BraceRange, bool) {
	segs := strings.Split(s, "..")
	if len(segs) < 2 || len(segs) > 3 {
		return nil, false
	}
	from, errF := strconv.Atoi(segs[0])
	to, errT := strconv.Atoi(segs[1])
	if errF != nil || errT != nil {
		return nil, false
	}
	step := 1
	if from > to {
		step = -1
	}
	if len(segs) == 3 {
		s3, err := strconv.Atoi(segs[2])
		if err != nil || s3 == 0 {
			return nil, false
		}
		step = s3
		if step > 0 && from > to || step < 0 && from < to {
			return nil, false
		}
	}
	zero := len(segs[0]) > 1 && (segs[0][0] == '0' || (segs[0][0] == '-' && segs[0][1] == '0'))
	width := len(strings.TrimPrefix(segs[0], "-"))
	return &BraceRange{From: from, To: to, Step: step, Zero: zero, Width: width}, true
}
