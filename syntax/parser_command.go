// Copyright (c) 2024, gosh authors
// See LICENSE for licensing information

package syntax

import "github.com/yanomasao/gosh/feeder"

// parseCommand parses `Redirects? (CompoundCommand | SimpleCommand) Redirects?`.
func (p *Parser) parseCommand() (Command, error) {
	p.skipBlank()
	start := p.f.Pos()
	var leading []*Redirect
	for {
		r, err := p.parseRedirect()
		if err != nil {
			return nil, err
		}
		if r == nil {
			break
		}
		leading = append(leading, r)
		p.skipBlank()
	}

	cmd, err := p.parseCompoundCommand()
	if err != nil {
		return nil, err
	}
	if cmd == nil {
		cmd, err = p.parseSimpleCommand(leading)
		if err != nil {
			return nil, err
		}
		if cmd == nil {
			if len(leading) == 0 {
				return nil, nil
			}
			return nil, &ParseError{Pos: p.f.Pos(), Msg: "expected command after redirection"}
		}
	} else {
		cmd.Base().Redirs = append(leading, cmd.Base().Redirs...)
	}

	for {
		p.skipBlank()
		r, err := p.parseRedirect()
		if err != nil {
			return nil, err
		}
		if r == nil {
			break
		}
		cmd.Base().Redirs = append(cmd.Base().Redirs, r)
	}
	p.skipBlank()
	if p.startsWith("&") && !p.startsWith("&&") {
		// The '&' that backgrounds a whole Job is consumed by parseJob; a
		// '&' immediately after one command inside a pipeline never reaches
		// here because pipelines are separated by '|'. Nothing to do.
	}
	cmd.Base().RawText = p.f.TextSince(start)
	return cmd, nil
}

func (p *Parser) parseCompoundCommand() (Command, error) {
	switch {
	case p.peekKeyword("if"):
		return p.parseIf()
	case p.peekKeyword("for"):
		return p.parseFor()
	case p.peekKeyword("while"):
		return p.parseWhile()
	case p.peekKeyword("until"):
		return p.parseUntil()
	case p.peekKeyword("case"):
		return p.parseCase()
	case p.peekKeyword("function"):
		return p.parseFunctionKeyword()
	case p.startsWith("((") :
		return p.parseArithmeticCommand()
	case p.startsWith("[["):
		return p.parseTestCommand()
	case p.startsWith("{") && p.peekKeyword("{"):
		return p.parseBraceGroup()
	case p.startsWith("("):
		return p.parseSubshell()
	}
	// name() { ... } function form: probe with backup since a bare "name"
	// could just as well be the first word of a SimpleCommand.
	if fn, ok, err := p.tryParseNameFunction(); err != nil {
		return nil, err
	} else if ok {
		return fn, nil
	}
	return nil, nil
}

// endWords bounds the inner Script of a then/do/else clause: parsing stops
// exactly at the first occurrence, at command-start position, of any word
// in the set.
func (p *Parser) parseScriptUntil(endWords ...string) (*Script, error) {
	start := p.f.Pos()
	var jobs []*Job
	for {
		p.skipSeparators()
		stop := false
		for _, w := range endWords {
			if p.peekEndWord(w) {
				stop = true
				break
			}
		}
		if stop || p.f.Len() == 0 {
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

func (p *Parser) expectKeyword(kw string) error {
	p.skipSeparators()
	if !p.peekKeyword(kw) {
		return &ParseError{Pos: p.f.Pos(), Msg: "expected '" + kw + "'"}
	}
	p.f.Consume(len(kw))
	return nil
}

// --- Simple commands & assignments ---

func (p *Parser) parseSimpleCommand(leading []*Redirect) (*SimpleCommand, error) {
	sc := &SimpleCommand{CommandBase: CommandBase{Redirs: leading}}
	for {
		p.skipBlank()
		if a, ok, err := p.tryParseAssign(); err != nil {
			return nil, err
		} else if ok {
			sc.Assigns = append(sc.Assigns, a)
			continue
		}
		break
	}
	for {
		p.skipBlank()
		if r, err := p.parseRedirect(); err != nil {
			return nil, err
		} else if r != nil {
			sc.Redirs = append(sc.Redirs, r)
			continue
		}
		w, err := p.parseWord()
		if err != nil {
			return nil, err
		}
		if w == nil {
			break
		}
		sc.Args = append(sc.Args, w)
	}
	if len(sc.Args) == 0 && len(sc.Assigns) == 0 {
		return nil, nil
	}
	return sc, nil
}

func (p *Parser) tryParseAssign() (*Assign, bool, error) {
	start := p.f.Pos()
	p.f.SetBackup()
	n := feeder.ScanName(p.f.Rest())
	if n == 0 {
		p.f.Rewind()
		return nil, false, nil
	}
	name := p.f.Consume(n)
	var index *Word
	if p.f.StartsWith("[") {
		p.f.Consume(1)
		idxStart := p.f.Pos()
		depth := 1
		for depth > 0 {
			if !p.ensureAny() {
				p.f.Rewind()
				return nil, false, nil
			}
			c := p.f.Refer(1)[0]
			if c == '[' {
				depth++
			} else if c == ']' {
				depth--
				if depth == 0 {
					break
				}
			}
			p.f.Consume(1)
		}
		index = &Word{Subwords: []Subword{&Literal{Value: p.f.TextSince(idxStart)}}}
		p.f.Consume(1) // ']'
	}
	append_ := false
	switch {
	case p.f.StartsWith("+="):
		append_ = true
		p.f.Consume(2)
	case p.f.StartsWith("="):
		p.f.Consume(1)
	default:
		p.f.Rewind()
		return nil, false, nil
	}
	var val *Word
	if p.f.Len() > 0 && !isWordBoundary(p.f.Rest()[0]) {
		w, err := p.parseWord()
		if err != nil {
			p.f.Rewind()
			return nil, false, err
		}
		val = w
	}
	p.f.PopBackup()
	return &Assign{RawText: p.f.TextSince(start), Name: name, Index: index, Append: append_, Value: val}, true, nil
}

func isWordBoundary(c byte) bool {
	switch c {
	case ' ', '\t', '\n', ';', '&', '|', '(', ')', '<', '>':
		return true
	}
	return false
}
