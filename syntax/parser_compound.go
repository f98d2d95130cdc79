// Copyright (c) 2024, gosh authors
// See LICENSE for licensing information

package syntax

import (
	"strings"

	"github.com/yanomasao/gosh/feeder"
)

// scanDoubleParenBody extracts the raw text up to the matching `))` at paren
// depth zero, given that the opening `((` has already been consumed. Shared
// by `$(( expr ))`, `(( expr ))` and `for (( init; cond; post ))`.
func (p *Parser) scanDoubleParenBody() (string, bool) {
	bodyStart := p.f.Pos()
	depth := 0
	for {
		rest := p.f.Rest()
		for i := 0; i < len(rest); i++ {
			switch rest[i] {
			case '(':
				depth++
			case ')':
				if depth == 0 {
					if i+1 < len(rest) && rest[i+1] == ')' {
						body := p.f.TextSince(bodyStart) + rest[:i]
						p.f.Consume(i + 2)
						return body, true
					}
					continue
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

func splitTopLevelSemicolons(s string) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case ';':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}

// parseIf parses `if C; then T; [elif C; then T;]... [else E;] fi`.
func (p *Parser) parseIf() (Command, error) {
	start := p.f.Pos()
	if err := p.expectKeyword("if"); err != nil {
		return nil, err
	}
	cmd := &IfCommand{}
	for {
		cond, err := p.parseScriptUntil("then")
		if err != nil {
			return nil, err
		}
		if err := p.expectKeyword("then"); err != nil {
			return nil, err
		}
		then, err := p.parseScriptUntil("elif", "else", "fi")
		if err != nil {
			return nil, err
		}
		cmd.Clauses = append(cmd.Clauses, &IfClause{Cond: cond, Then: then})
		p.skipSeparators()
		if p.peekKeyword("elif") {
			p.f.Consume(len("elif"))
			continue
		}
		break
	}
	p.skipSeparators()
	if p.peekKeyword("else") {
		p.f.Consume(len("else"))
		elseScript, err := p.parseScriptUntil("fi")
		if err != nil {
			return nil, err
		}
		cmd.Else = elseScript
	}
	if err := p.expectKeyword("fi"); err != nil {
		return nil, err
	}
	cmd.RawText = p.f.TextSince(start)
	return cmd, nil
}

// parseFor parses both `for name [in words]; do body; done` and the
// C-style `for (( init; cond; post )); do body; done`.
func (p *Parser) parseFor() (Command, error) {
	start := p.f.Pos()
	if err := p.expectKeyword("for"); err != nil {
		return nil, err
	}
	p.skipBlank()
	if p.startsWith("((") {
		return p.parseCStyleFor(start)
	}
	n := feeder.ScanName(p.f.Rest())
	if n == 0 {
		return nil, &ParseError{Pos: p.f.Pos(), Msg: "expected name after 'for'"}
	}
	name := p.f.Consume(n)
	p.skipSeparators()
	var words []*Word
	if p.peekKeyword("in") {
		p.f.Consume(len("in"))
		for {
			p.skipBlank()
			if p.atJobEnd() || p.peekKeyword("do") {
				break
			}
			w, err := p.parseWord()
			if err != nil {
				return nil, err
			}
			if w == nil {
				break
			}
			words = append(words, w)
		}
		if words == nil {
			words = []*Word{}
		}
	}
	p.skipBlank()
	if p.startsWith(";") {
		p.f.Consume(1)
	}
	p.skipSeparators()
	if err := p.expectKeyword("do"); err != nil {
		return nil, err
	}
	body, err := p.parseScriptUntil("done")
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("done"); err != nil {
		return nil, err
	}
	return &ForCommand{CommandBase: CommandBase{RawText: p.f.TextSince(start)}, VarName: name, Words: words, Body: body}, nil
}

func (p *Parser) parseCStyleFor(start int) (Command, error) {
	p.f.Consume(2) // "(("
	body, ok := p.scanDoubleParenBody()
	if !ok {
		return nil, &ParseError{Pos: p.f.Pos(), Msg: "malformed C-style for"}
	}
	fields := splitTopLevelSemicolons(body)
	if len(fields) != 3 {
		return nil, &ParseError{Pos: p.f.Pos(), Msg: "C-style for requires three ';'-separated clauses"}
	}
	cs := &CStyleFor{}
	if s := strings.TrimSpace(fields[0]); s != "" {
		cs.Init = &ArithExpr{RawText: fields[0]}
	}
	if s := strings.TrimSpace(fields[1]); s != "" {
		cs.Cond = &ArithExpr{RawText: fields[1]}
	}
	if s := strings.TrimSpace(fields[2]); s != "" {
		cs.Post = &ArithExpr{RawText: fields[2]}
	}
	p.skipBlank()
	if p.startsWith(";") {
		p.f.Consume(1)
	}
	p.skipSeparators()
	if err := p.expectKeyword("do"); err != nil {
		return nil, err
	}
	body2, err := p.parseScriptUntil("done")
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("done"); err != nil {
		return nil, err
	}
	return &ForCommand{CommandBase: CommandBase{RawText: p.f.TextSince(start)}, CStyle: cs, Body: body2}, nil
}

func (p *Parser) parseWhile() (Command, error) { return p.parseWhileUntil(false) }
func (p *Parser) parseUntil() (Command, error) { return p.parseWhileUntil(true) }

func (p *Parser) parseWhileUntil(until bool) (Command, error) {
	start := p.f.Pos()
	kw := "while"
	if until {
		kw = "until"
	}
	if err := p.expectKeyword(kw); err != nil {
		return nil, err
	}
	cond, err := p.parseScriptUntil("do")
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("do"); err != nil {
		return nil, err
	}
	body, err := p.parseScriptUntil("done")
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("done"); err != nil {
		return nil, err
	}
	return &WhileCommand{CommandBase: CommandBase{RawText: p.f.TextSince(start)}, Until: until, Cond: cond, Body: body}, nil
}

// parseCase parses `case word in [[(]pattern[|pattern]...) body sep]... esac`.
func (p *Parser) parseCase() (Command, error) {
	start := p.f.Pos()
	if err := p.expectKeyword("case"); err != nil {
		return nil, err
	}
	p.skipBlank()
	w, err := p.parseWord()
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, &ParseError{Pos: p.f.Pos(), Msg: "expected word after 'case'"}
	}
	p.skipSeparators()
	if err := p.expectKeyword("in"); err != nil {
		return nil, err
	}
	cc := &CaseCommand{Word: w}
	for {
		p.skipSeparators()
		if p.peekKeyword("esac") {
			break
		}
		if p.startsWith("(") {
			p.f.Consume(1)
			p.skipBlank()
		}
		var patterns []*Word
		for {
			pw, err := p.parseWord()
			if err != nil {
				return nil, err
			}
			if pw == nil {
				return nil, &ParseError{Pos: p.f.Pos(), Msg: "expected case pattern"}
			}
			patterns = append(patterns, pw)
			p.skipBlank()
			if p.startsWith("|") {
				p.f.Consume(1)
				p.skipBlank()
				continue
			}
			break
		}
		if !p.startsWith(")") {
			return nil, &ParseError{Pos: p.f.Pos(), Msg: "expected ')' after case pattern"}
		}
		p.f.Consume(1)
		body, err := p.parseScriptUntil(";;&", ";;", ";&", "esac")
		if err != nil {
			return nil, err
		}
		p.skipSeparators()
		sep := CaseBreak
		switch {
		case p.startsWith(";;&"):
			p.f.Consume(3)
			sep = CaseContinueTest
		case p.startsWith(";;"):
			p.f.Consume(2)
			sep = CaseBreak
		case p.startsWith(";&"):
			p.f.Consume(2)
			sep = CaseFallThrough
		case p.peekKeyword("esac"):
			sep = CaseBreak
		default:
			return nil, &ParseError{Pos: p.f.Pos(), Msg: "expected ';;', ';&', ';;&' or 'esac'"}
		}
		cc.Items = append(cc.Items, &CaseItem{Patterns: patterns, Body: body, Sep: sep})
		p.skipSeparators()
		if p.peekKeyword("esac") {
			break
		}
	}
	if err := p.expectKeyword("esac"); err != nil {
		return nil, err
	}
	cc.RawText = p.f.TextSince(start)
	return cc, nil
}

// parseFunctionKeyword parses `function name [()] body`.
func (p *Parser) parseFunctionKeyword() (Command, error) {
	start := p.f.Pos()
	if err := p.expectKeyword("function"); err != nil {
		return nil, err
	}
	p.skipBlank()
	n := feeder.ScanName(p.f.Rest())
	if n == 0 {
		return nil, &ParseError{Pos: p.f.Pos(), Msg: "expected function name"}
	}
	name := p.f.Consume(n)
	p.skipBlank()
	if p.startsWith("(") {
		p.f.Consume(1)
		p.skipBlank()
		if !p.startsWith(")") {
			return nil, &ParseError{Pos: p.f.Pos(), Msg: "expected ')' in function declaration"}
		}
		p.f.Consume(1)
	}
	p.skipSeparators()
	body, err := p.parseCompoundCommand()
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, &ParseError{Pos: p.f.Pos(), Msg: "expected function body"}
	}
	return &FuncDecl{CommandBase: CommandBase{RawText: p.f.TextSince(start)}, Name: name, Body: body}, nil
}

// tryParseNameFunction probes for the `name() body` function form, which is
// lexically indistinguishable from a bare SimpleCommand until the '(' is
// seen, so it backs up and rewinds on any mismatch.
func (p *Parser) tryParseNameFunction() (Command, bool, error) {
	start := p.f.Pos()
	p.f.SetBackup()
	n := feeder.ScanName(p.f.Rest())
	if n == 0 {
		p.f.Rewind()
		return nil, false, nil
	}
	name := p.f.Consume(n)
	if !p.startsWith("(") {
		p.f.Rewind()
		return nil, false, nil
	}
	p.f.Consume(1)
	p.skipBlank()
	if !p.startsWith(")") {
		p.f.Rewind()
		return nil, false, nil
	}
	p.f.Consume(1)
	p.skipSeparators()
	body, err := p.parseCompoundCommand()
	if err != nil {
		p.f.Rewind()
		return nil, false, err
	}
	if body == nil {
		p.f.Rewind()
		return nil, false, nil
	}
	p.f.PopBackup()
	return &FuncDecl{CommandBase: CommandBase{RawText: p.f.TextSince(start)}, Name: name, Body: body}, true, nil
}

// parseArithmeticCommand parses `(( expr ))` used as a command.
func (p *Parser) parseArithmeticCommand() (Command, error) {
	start := p.f.Pos()
	p.f.Consume(2)
	body, ok := p.scanDoubleParenBody()
	if !ok {
		return nil, &ParseError{Pos: p.f.Pos(), Msg: "unterminated arithmetic command"}
	}
	return &ArithmeticCommand{CommandBase: CommandBase{RawText: p.f.TextSince(start)}, Expr: &ArithExpr{RawText: body}}, nil
}

// parseTestCommand tokenizes `[[ ... ]]` into a flat CondElem vector;
// expr.EvalCond handles precedence and evaluation.
func (p *Parser) parseTestCommand() (Command, error) {
	start := p.f.Pos()
	p.f.Consume(2) // "[["
	var elems []CondElem
	for {
		p.skipBlank()
		if p.startsWith("]]") {
			p.f.Consume(2)
			return &TestCommand{CommandBase: CommandBase{RawText: p.f.TextSince(start)}, Elems: elems}, nil
		}
		if p.f.Len() == 0 {
			if !p.needMore() {
				return nil, &ParseError{Pos: p.f.Pos(), Msg: "unterminated '[[ ]]'"}
			}
			continue
		}
		p.ensure(4)
		switch {
		case p.startsWith("&&"):
			p.f.Consume(2)
			elems = append(elems, CondElem{Kind: CondAndAnd})
		case p.startsWith("||"):
			p.f.Consume(2)
			elems = append(elems, CondElem{Kind: CondOrOr})
		case p.startsWith("("):
			p.f.Consume(1)
			elems = append(elems, CondElem{Kind: CondLParen})
		case p.startsWith(")"):
			p.f.Consume(1)
			elems = append(elems, CondElem{Kind: CondRParen})
		case p.startsWith("!") && p.isTestOperatorBoundary(1):
			p.f.Consume(1)
			elems = append(elems, CondElem{Kind: CondNot})
		default:
			if op := feeder.ScanOperator(p.f.Rest(), feeder.TestBinaryFileOps); op > 0 && p.isTestOperatorBoundary(op) {
				elems = append(elems, CondElem{Kind: CondBinaryOp, Op: p.f.Consume(op)})
				continue
			}
			if op := feeder.ScanOperator(p.f.Rest(), feeder.TestBinaryNumOps); op > 0 && p.isTestOperatorBoundary(op) {
				elems = append(elems, CondElem{Kind: CondBinaryOp, Op: p.f.Consume(op)})
				continue
			}
			if op := feeder.ScanOperator(p.f.Rest(), feeder.TestFileUnaryOps); op > 0 && p.isTestOperatorBoundary(op) {
				elems = append(elems, CondElem{Kind: CondUnaryOp, Op: p.f.Consume(op)})
				continue
			}
			if op := feeder.ScanOperator(p.f.Rest(), feeder.TestStringUnaryOps); op > 0 && p.isTestOperatorBoundary(op) {
				elems = append(elems, CondElem{Kind: CondUnaryOp, Op: p.f.Consume(op)})
				continue
			}
			if op := feeder.ScanOperator(p.f.Rest(), feeder.TestBinaryStringOps); op > 0 && p.isTestOperatorBoundary(op) {
				elems = append(elems, CondElem{Kind: CondBinaryOp, Op: p.f.Consume(op)})
				continue
			}
			w, err := p.parseWord()
			if err != nil {
				return nil, err
			}
			if w == nil {
				return nil, &ParseError{Pos: p.f.Pos(), Msg: "unexpected token in '[[ ]]'"}
			}
			elems = append(elems, CondElem{Kind: CondWord, Word: w})
		}
	}
}

// isTestOperatorBoundary reports whether the byte n positions ahead ends a
// `[[ ]]` operator token: every operator there is a distinct shell word, so
// it must be followed by blank, a paren, or end of input — never glued
// directly to an operand, the way "-ef" and "-effective-user" differ.
func (p *Parser) isTestOperatorBoundary(n int) bool {
	rest := p.f.Rest()
	if n >= len(rest) {
		return true
	}
	switch rest[n] {
	case ' ', '\t', '\n', '(', ')':
		return true
	}
	return false
}

// parseBraceGroup parses `{ list; }`, a compound command sharing the
// caller's shell state (unlike a subshell).
func (p *Parser) parseBraceGroup() (Command, error) {
	start := p.f.Pos()
	if err := p.expectKeyword("{"); err != nil {
		return nil, err
	}
	body, err := p.parseScriptUntil("}")
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("}"); err != nil {
		return nil, err
	}
	return &ParenCommand{CommandBase: CommandBase{RawText: p.f.TextSince(start)}, Brace: true, Body: body}, nil
}

// parseSubshell parses `( list )`, a compound command run in a forked copy
// of the shell's state.
func (p *Parser) parseSubshell() (Command, error) {
	start := p.f.Pos()
	p.f.Consume(1) // "("
	body, err := p.parseScriptUntil(")")
	if err != nil {
		return nil, err
	}
	p.skipSeparators()
	if !p.startsWith(")") {
		return nil, &ParseError{Pos: p.f.Pos(), Msg: "expected ')'"}
	}
	p.f.Consume(1)
	return &ParenCommand{CommandBase: CommandBase{RawText: p.f.TextSince(start)}, Brace: false, Body: body}, nil
}
