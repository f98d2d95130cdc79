// Copyright (c) 2024, gosh authors
// See LICENSE for licensing information

package syntax

import (
	"strings"

	"github.com/yanomasao/gosh/feeder"
)

// parseWord parses `Subword+`; subwords are chosen by first-character
// lookahead, in priority order: single-quote, double-quote, dollar-form,
// brace-expansion head, backslash-escape, unquoted-literal. Returns (nil,
// nil) if the current position can't start a word at all (a metacharacter,
// or end of input).
func (p *Parser) parseWord() (*Word, error) {
	if !p.ensureAny() {
		return nil, nil
	}
	var subwords []Subword
	for {
		if p.f.Len() == 0 {
			if !p.needMore() {
				break
			}
			if p.f.Len() == 0 {
				break
			}
		}
		sw, ok, err := p.parseSubword(false)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		subwords = append(subwords, sw)
	}
	if len(subwords) == 0 {
		return nil, nil
	}
	return &Word{Subwords: subwords}, nil
}

// parseSubword parses one subword. inDouble is true while scanning inside a
// double-quoted region, where unquoted-literal runs stop at '"' as well.
func (p *Parser) parseSubword(inDouble bool) (Subword, bool, error) {
	if p.f.Len() == 0 {
		return nil, false, nil
	}
	c := p.f.Rest()[0]
	switch {
	case !inDouble && c == '\'':
		return p.parseSingleQuoted()
	case c == '"':
		if inDouble {
			return nil, false, nil
		}
		return p.parseDoubleQuoted()
	case c == '$':
		return p.parseDollar()
	case c == '`':
		return p.parseBacktick()
	case !inDouble && c == '{':
		if sw, ok, err := p.tryParseBraceExpansion(); err != nil || ok {
			return sw, ok, err
		}
		return p.parseLiteralRun(inDouble)
	case !inDouble && c == '~' && p.atTildePosition():
		return p.parseTilde()
	case c == '\\':
		if inDouble {
			// Inside double quotes, backslash only escapes $, `, ", \ and
			// newline; anything else is literal backslash+char.
			if len(p.f.Rest()) >= 2 {
				n := p.f.Rest()[1]
				if n == '$' || n == '`' || n == '"' || n == '\\' || n == '\n' {
					p.f.Consume(2)
					return &EscapedChar{Char: n}, true, nil
				}
			}
			return p.parseLiteralRun(inDouble)
		}
		return p.parseEscapedChar()
	case inDouble:
		return p.parseLiteralRunDouble()
	default:
		return p.parseLiteralRun(inDouble)
	}
}

// atTildePosition always reports true: every unquoted '~' that starts a
// subword becomes a candidate Tilde, and the expander decides over the
// already-built Word whether its position (word-initial, or right after an
// unquoted ':' or '=') makes it eligible.
func (p *Parser) atTildePosition() bool { return true }

func (p *Parser) parseTilde() (Subword, bool, error) {
	start := p.f.Pos()
	p.f.Consume(1)
	n := feeder.ScanName(p.f.Rest())
	user := p.f.Consume(n)
	return &Tilde{RawText: p.f.TextSince(start), User: user}, true, nil
}

func (p *Parser) parseSingleQuoted() (Subword, bool, error) {
	p.f.Consume(1)
	for {
		n := feeder.ScanSingleQuotedBody(p.f.Rest())
		if n >= 0 {
			body := p.f.Consume(n)
			p.f.Consume(1) // closing quote
			return &SingleQuoted{Value: body}, true, nil
		}
		if !p.needMore() {
			return nil, false, &ParseError{Pos: p.f.Pos(), Msg: "unterminated single quote"}
		}
	}
}

func (p *Parser) parseDoubleQuoted() (Subword, bool, error) {
	p.f.Consume(1)
	var parts []Subword
	for {
		if p.f.Len() == 0 {
			if !p.needMore() {
				return nil, false, &ParseError{Pos: p.f.Pos(), Msg: "unterminated double quote"}
			}
			continue
		}
		if p.f.Rest()[0] == '"' {
			p.f.Consume(1)
			return &DoubleQuoted{Parts: parts}, true, nil
		}
		sw, ok, err := p.parseSubword(true)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, false, &ParseError{Pos: p.f.Pos(), Msg: "unterminated double quote"}
		}
		parts = append(parts, sw)
	}
}

func (p *Parser) parseEscapedChar() (Subword, bool, error) {
	for p.f.Len() < 2 {
		if !p.needMore() {
			// A backslash at true EOF is just a literal backslash.
			if p.f.Len() == 1 {
				return &Literal{Value: p.f.Consume(1)}, true, nil
			}
			return nil, false, nil
		}
	}
	p.f.Consume(1)
	c := p.f.Consume(1)[0]
	return &EscapedChar{Char: c}, true, nil
}

func (p *Parser) parseLiteralRun(inDouble bool) (Subword, bool, error) {
	n := feeder.ScanUnquotedLiteral(p.f.Rest())
	if n == 0 {
		return nil, false, nil
	}
	return &Literal{Value: p.f.Consume(n)}, true, nil
}

// parseLiteralRunDouble scans a literal run inside double quotes, where only
// '"', '$', '`' and '\' end the run (unlike bare-word scanning, blanks and
// shell metacharacters like '|' and ';' are ordinary text here).
func (p *Parser) parseLiteralRunDouble() (Subword, bool, error) {
	rest := p.f.Rest()
	n := strings.IndexAny(rest, `"$`+"`"+`\`)
	if n < 0 {
		n = len(rest)
	}
	if n == 0 {
		return nil, false, nil
	}
	return &Literal{Value: p.f.Consume(n)}, true, nil
}

func (p *Parser) parseBacktick() (Subword, bool, error) {
	start := p.f.Pos()
	p.f.Consume(1)
	bodyStart := p.f.Pos()
	for {
		rest := p.f.Rest()
		i := strings.IndexByte(rest, '`')
		if i >= 0 {
			body := p.f.TextSince(bodyStart) + rest[:i]
			p.f.Consume(i)
			p.f.Consume(1)
			sub := NewParser(strLineSource(body), nil)
			script, err := sub.ParseScript()
			if err != nil {
				return nil, false, &ParseError{Pos: p.f.Pos(), Msg: "bad command substitution"}
			}
			return &CommandSubstitution{RawText: p.f.TextSince(start), Backtick: true, Body: script}, true, nil
		}
		p.f.Consume(len(rest))
		if !p.needMore() {
			return nil, false, &ParseError{Pos: p.f.Pos(), Msg: "unterminated backtick command substitution"}
		}
	}
}
