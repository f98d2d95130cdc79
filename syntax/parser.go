// Copyright (c) 2024, gosh authors
// See LICENSE for licensing information

package syntax

import (
	"fmt"

	"github.com/yanomasao/gosh/feeder"
)

// ParseError is a syntax error: the grammar could not continue and no more
// input will fix it (we hit EOF, or the next token flatly doesn't belong).
type ParseError struct {
	Pos int
	Msg string
}

func (e *ParseError) Error() string { return fmt.Sprintf("syntax error near %s", e.Msg) }

// keywords are recognized only at command-start position; everywhere else
// they are ordinary literal text.
var keywords = map[string]bool{
	"if": true, "then": true, "elif": true, "else": true, "fi": true,
	"for": true, "in": true, "do": true, "done": true,
	"while": true, "until": true,
	"case": true, "esac": true,
	"function": true, "time": true,
	"{": true, "}": true, "!": true,
}

// Parser turns a Feeder's byte stream into a Script. Every parseX method
// follows the same contract: on no match it returns (nil, false, nil)
// without consuming input; on a firm match it returns the node; on a
// malformed-but-recognizable construct it returns a *ParseError.
type Parser struct {
	f *feeder.Feeder
	// ps2 is invoked to obtain the continuation prompt shown while the
	// parser blocks on feeder.FeedAdditionalLine, e.g. for PS2.
	ps2 func() string
}

// NewParser builds a Parser reading from src. ps2, if non-nil, is called to
// get the continuation prompt on every line requested after the first.
func NewParser(src feeder.LineSource, ps2 func() string) *Parser {
	if ps2 == nil {
		ps2 = func() string { return "" }
	}
	return &Parser{f: feeder.New(src), ps2: ps2}
}

func (p *Parser) needMore() bool {
	return p.f.FeedAdditionalLine(p.ps2())
}

// skipBlank consumes spaces/tabs from the current buffer only; it never
// requests more input, since a buffered line always ends in a newline that
// stops the run.
func (p *Parser) skipBlank() {
	p.f.Consume(feeder.ScanBlank(p.f.Rest()))
}

// skipSeparators consumes blanks, newlines and comments freely; used
// between grammar elements where the grammar allows arbitrary line breaks.
func (p *Parser) skipSeparators() {
	for {
		n := feeder.ScanMultilineBlank(p.f.Rest())
		p.f.Consume(n)
		if p.f.Len() == 0 {
			if !p.needMore() {
				return
			}
			continue
		}
		return
	}
}

func (p *Parser) ensure(n int) bool {
	for p.f.Len() < n {
		if !p.needMore() {
			return false
		}
	}
	return true
}

// ensureAny blocks until there is at least one more unconsumed byte or EOF.
func (p *Parser) ensureAny() bool {
	if p.f.Len() > 0 {
		return true
	}
	return p.needMore()
}

func (p *Parser) startsWith(s string) bool {
	for p.f.Len() < len(s) {
		if !p.needMore() {
			break
		}
	}
	return p.f.StartsWith(s)
}

// peekKeyword reports whether the buffer at the current position is exactly
// the keyword kw followed by a word boundary (blank, newline, ';', '&', '|',
// '(', ')', or EOF) — i.e. it is being used as a reserved word rather than
// as the prefix of a longer identifier.
func (p *Parser) peekKeyword(kw string) bool {
	if !p.startsWith(kw) {
		return false
	}
	rest := p.f.Rest()[len(kw):]
	if rest == "" {
		return true
	}
	c := rest[0]
	switch c {
	case ' ', '\t', '\n', ';', '&', '|', '(', ')', '{', '}':
		return true
	}
	return false
}

// peekEndWord is like peekKeyword for an alphabetic reserved word, but for a
// purely punctuational stop token (")", "}", ";;", ";;&", ...) it just
// checks the literal prefix: such tokens can never be the prefix of a longer
// identifier, so the word-boundary check peekKeyword applies doesn't apply.
func (p *Parser) peekEndWord(w string) bool {
	if len(w) > 0 && isAsciiAlpha(w[0]) {
		return p.peekKeyword(w)
	}
	return p.startsWith(w)
}

func isAsciiAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// ParseScript parses a whole sequence of jobs until end of input.
func (p *Parser) ParseScript() (*Script, error) {
	start := p.f.Pos()
	var jobs []*Job
	for {
		p.skipSeparators()
		if p.f.Len() == 0 {
			break
		}
		job, err := p.parseJob()
		if err != nil {
			return nil, err
		}
		if job == nil {
			break
		}
		jobs = append(jobs, job)
	}
	return &Script{RawText: p.f.TextSince(start), Jobs: jobs}, nil
}

// ParseJob parses exactly one top-level Job, the unit an interactive REPL
// runs after every prompt. It returns (nil, nil) at end of input.
func (p *Parser) ParseJob() (*Job, error) {
	p.skipSeparators()
	if p.f.Len() == 0 {
		return nil, nil
	}
	return p.parseJob()
}

func (p *Parser) atJobEnd() bool {
	if p.f.Len() == 0 {
		return true
	}
	c := p.f.Rest()[0]
	return c == '\n' || c == ';'
}

func (p *Parser) parseJob() (*Job, error) {
	start := p.f.Pos()
	pipe, err := p.parsePipeline()
	if err != nil {
		return nil, err
	}
	if pipe == nil {
		return nil, nil
	}
	j := &Job{Pipelines: []*Pipeline{pipe}}
	for {
		p.skipBlank()
		switch {
		case p.startsWith("&&"):
			p.f.Consume(2)
			p.skipSeparators()
			next, err := p.parsePipeline()
			if err != nil {
				return nil, err
			}
			if next == nil {
				return nil, &ParseError{Pos: p.f.Pos(), Msg: "expected command after '&&'"}
			}
			j.Pipelines = append(j.Pipelines, next)
			j.Ops = append(j.Ops, SepAndAnd)
		case p.startsWith("||"):
			p.f.Consume(2)
			p.skipSeparators()
			next, err := p.parsePipeline()
			if err != nil {
				return nil, err
			}
			if next == nil {
				return nil, &ParseError{Pos: p.f.Pos(), Msg: "expected command after '||'"}
			}
			j.Pipelines = append(j.Pipelines, next)
			j.Ops = append(j.Ops, SepOrOr)
		case p.startsWith("&") && !p.startsWith("&&"):
			p.f.Consume(1)
			j.Background = true
			j.RawText = p.f.TextSince(start)
			return j, nil
		case p.startsWith(";"):
			p.f.Consume(1)
			j.RawText = p.f.TextSince(start)
			return j, nil
		default:
			j.RawText = p.f.TextSince(start)
			return j, nil
		}
	}
}

func (p *Parser) parsePipeline() (*Pipeline, error) {
	p.skipBlank()
	start := p.f.Pos()
	negate := false
	if p.peekKeyword("!") {
		p.f.Consume(1)
		negate = true
		p.skipBlank()
	}
	timed := false
	if p.peekKeyword("time") {
		p.f.Consume(len("time"))
		timed = true
		p.skipBlank()
	}
	cmd, err := p.parseCommand()
	if err != nil {
		return nil, err
	}
	if cmd == nil {
		if negate || timed {
			return nil, &ParseError{Pos: p.f.Pos(), Msg: "expected command"}
		}
		return nil, nil
	}
	pl := &Pipeline{Negate: negate, Timed: timed, Commands: []Command{cmd}}
	for {
		p.skipBlank()
		pipeErr := false
		switch {
		case p.startsWith("|&"):
			p.f.Consume(2)
			pipeErr = true
		case p.startsWith("|") && !p.startsWith("||"):
			p.f.Consume(1)
		default:
			pl.RawText = p.f.TextSince(start)
			return pl, nil
		}
		p.skipSeparators()
		next, err := p.parseCommand()
		if err != nil {
			return nil, err
		}
		if next == nil {
			return nil, &ParseError{Pos: p.f.Pos(), Msg: "expected command after '|'"}
		}
		pl.Commands = append(pl.Commands, next)
		pl.PipeErrs = append(pl.PipeErrs, pipeErr)
	}
}
