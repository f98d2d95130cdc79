// Copyright (c) 2024, gosh authors
// See LICENSE for licensing information

package expr

import (
	"os"
	"regexp"
	"time"

	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"github.com/yanomasao/gosh/pattern"
	"github.com/yanomasao/gosh/syntax"
)

// CondError reports a problem evaluating a `[[ ... ]]` expression: a token
// sequence that doesn't fit the grammar, or an operator given the wrong
// number or kind of operands.
type CondError struct {
	Msg string
}

func (e *CondError) Error() string { return "conditional expression: " + e.Msg }

// WordExpander reduces a parsed Word to the single string `[[ ]]` operates
// on; unlike ordinary command-argument expansion, word splitting and
// pathname expansion never apply to a `[[ ]]` operand.
type WordExpander func(*syntax.Word) (string, error)

// EvalCond evaluates the flat token vector the parser produced for
// `[[ ... ]]`, honoring precedence ! (highest) > binary/unary tests >
// && > || (lowest), with parens for grouping — the same
// shunting-into-precedence-climbing shape as EvalArith, but recursive
// descent directly over CondElem since there is no need to re-tokenize text.
func EvalCond(elems []syntax.CondElem, env VarEnv, expand WordExpander, subst Substituter) (bool, error) {
	cp := &condParser{elems: elems, env: env, expand: expand, subst: subst}
	v, err := cp.parseOr()
	if err != nil {
		return false, err
	}
	if cp.pos != len(cp.elems) {
		return false, &CondError{Msg: "unexpected trailing token"}
	}
	return v, nil
}

type condParser struct {
	elems  []syntax.CondElem
	pos    int
	env    VarEnv
	expand WordExpander
	subst  Substituter
}

func (cp *condParser) peek() (syntax.CondElem, bool) {
	if cp.pos >= len(cp.elems) {
		return syntax.CondElem{}, false
	}
	return cp.elems[cp.pos], true
}

func (cp *condParser) next() syntax.CondElem {
	e := cp.elems[cp.pos]
	cp.pos++
	return e
}

func (cp *condParser) parseOr() (bool, error) {
	v, err := cp.parseAnd()
	if err != nil {
		return false, err
	}
	for {
		e, ok := cp.peek()
		if !ok || e.Kind != syntax.CondOrOr {
			return v, nil
		}
		cp.next()
		v2, err := cp.parseAnd()
		if err != nil {
			return false, err
		}
		v = v || v2
	}
}

func (cp *condParser) parseAnd() (bool, error) {
	v, err := cp.parseNot()
	if err != nil {
		return false, err
	}
	for {
		e, ok := cp.peek()
		if !ok || e.Kind != syntax.CondAndAnd {
			return v, nil
		}
		cp.next()
		v2, err := cp.parseNot()
		if err != nil {
			return false, err
		}
		v = v && v2
	}
}

func (cp *condParser) parseNot() (bool, error) {
	if e, ok := cp.peek(); ok && e.Kind == syntax.CondNot {
		cp.next()
		v, err := cp.parseNot()
		if err != nil {
			return false, err
		}
		return !v, nil
	}
	return cp.parsePrimary()
}

func (cp *condParser) parsePrimary() (bool, error) {
	e, ok := cp.peek()
	if !ok {
		return false, &CondError{Msg: "unexpected end of expression"}
	}
	switch e.Kind {
	case syntax.CondLParen:
		cp.next()
		v, err := cp.parseOr()
		if err != nil {
			return false, err
		}
		c, ok := cp.peek()
		if !ok || c.Kind != syntax.CondRParen {
			return false, &CondError{Msg: "expected ')'"}
		}
		cp.next()
		return v, nil
	case syntax.CondUnaryOp:
		cp.next()
		operand, err := cp.nextWordValue()
		if err != nil {
			return false, err
		}
		return cp.evalUnaryCond(e.Op, operand)
	case syntax.CondWord:
		cp.next()
		val, err := cp.expand(e.Word)
		if err != nil {
			return false, err
		}
		if nx, ok := cp.peek(); ok && nx.Kind == syntax.CondBinaryOp {
			cp.next()
			rhs, err := cp.nextWordValue()
			if err != nil {
				return false, err
			}
			return cp.evalBinaryCond(nx.Op, val, rhs)
		}
		return val != "", nil
	}
	return false, &CondError{Msg: "unexpected token"}
}

func (cp *condParser) nextWordValue() (string, error) {
	e, ok := cp.peek()
	if !ok || e.Kind != syntax.CondWord {
		return "", &CondError{Msg: "expected operand"}
	}
	cp.next()
	return cp.expand(e.Word)
}

func (cp *condParser) evalUnaryCond(op, operand string) (bool, error) {
	switch op {
	case "-n":
		return operand != "", nil
	case "-z":
		return operand == "", nil
	case "-v":
		_, ok := cp.env.GetVar(operand)
		return ok, nil
	}
	switch op {
	case "-e":
		_, err := os.Stat(operand)
		return err == nil, nil
	case "-f":
		fi, err := os.Stat(operand)
		return err == nil && fi.Mode().IsRegular(), nil
	case "-d":
		fi, err := os.Stat(operand)
		return err == nil && fi.IsDir(), nil
	case "-r":
		return unix.Access(operand, unix.R_OK) == nil, nil
	case "-w":
		return unix.Access(operand, unix.W_OK) == nil, nil
	case "-x":
		return unix.Access(operand, unix.X_OK) == nil, nil
	case "-s":
		fi, err := os.Stat(operand)
		return err == nil && fi.Size() > 0, nil
	case "-L":
		fi, err := os.Lstat(operand)
		return err == nil && fi.Mode()&os.ModeSymlink != 0, nil
	case "-b":
		fi, err := os.Stat(operand)
		return err == nil && fi.Mode()&os.ModeDevice != 0 && fi.Mode()&os.ModeCharDevice == 0, nil
	case "-c":
		fi, err := os.Stat(operand)
		return err == nil && fi.Mode()&os.ModeCharDevice != 0, nil
	case "-p":
		fi, err := os.Stat(operand)
		return err == nil && fi.Mode()&os.ModeNamedPipe != 0, nil
	case "-S":
		fi, err := os.Stat(operand)
		return err == nil && fi.Mode()&os.ModeSocket != 0, nil
	case "-g":
		fi, err := os.Stat(operand)
		return err == nil && fi.Mode()&os.ModeSetgid != 0, nil
	case "-u":
		fi, err := os.Stat(operand)
		return err == nil && fi.Mode()&os.ModeSetuid != 0, nil
	case "-k":
		fi, err := os.Stat(operand)
		return err == nil && fi.Mode()&os.ModeSticky != 0, nil
	case "-O":
		fi, err := os.Stat(operand)
		if err != nil {
			return false, nil
		}
		st, ok := fi.Sys().(*unix.Stat_t)
		return ok && st.Uid == uint32(os.Geteuid()), nil
	case "-G":
		fi, err := os.Stat(operand)
		if err != nil {
			return false, nil
		}
		st, ok := fi.Sys().(*unix.Stat_t)
		return ok && st.Gid == uint32(os.Getegid()), nil
	case "-N":
		fi, err := os.Stat(operand)
		if err != nil {
			return false, nil
		}
		st, ok := fi.Sys().(*unix.Stat_t)
		if !ok {
			return false, nil
		}
		mtime := time.Unix(st.Mtim.Sec, st.Mtim.Nsec)
		atime := time.Unix(st.Atim.Sec, st.Atim.Nsec)
		return mtime.After(atime), nil
	case "-t":
		fd, err := parseFd(operand)
		if err != nil {
			return false, nil
		}
		return term.IsTerminal(fd), nil
	}
	return false, &CondError{Msg: "unknown unary operator " + op}
}

func parseFd(s string) (int, error) {
	n, err := parseArithLiteral(s)
	if err != nil {
		return 0, err
	}
	return int(asInt(n)), nil
}

func (cp *condParser) evalBinaryCond(op, lhs, rhs string) (bool, error) {
	switch op {
	case "=", "==":
		return pattern.Match(rhs, lhs, 0)
	case "!=":
		ok, err := pattern.Match(rhs, lhs, 0)
		return !ok, err
	case "<":
		return lhs < rhs, nil
	case ">":
		return lhs > rhs, nil
	case "=~":
		re, err := regexp.Compile(rhs)
		if err != nil {
			return false, &CondError{Msg: "invalid regular expression: " + err.Error()}
		}
		return re.MatchString(lhs), nil
	case "-ef":
		li, lerr := os.Stat(lhs)
		ri, rerr := os.Stat(rhs)
		if lerr != nil || rerr != nil {
			return false, nil
		}
		return os.SameFile(li, ri), nil
	case "-nt":
		li, lerr := os.Stat(lhs)
		ri, rerr := os.Stat(rhs)
		if lerr != nil {
			return false, nil
		}
		if rerr != nil {
			return true, nil
		}
		return li.ModTime().After(ri.ModTime()), nil
	case "-ot":
		li, lerr := os.Stat(lhs)
		ri, rerr := os.Stat(rhs)
		if rerr != nil {
			return false, nil
		}
		if lerr != nil {
			return true, nil
		}
		return li.ModTime().Before(ri.ModTime()), nil
	case "-eq", "-ne", "-lt", "-le", "-gt", "-ge":
		ln, err := EvalArith(lhs, cp.env, cp.subst)
		if err != nil {
			return false, err
		}
		rn, err := EvalArith(rhs, cp.env, cp.subst)
		if err != nil {
			return false, err
		}
		switch op {
		case "-eq":
			return numEq(ln, rn), nil
		case "-ne":
			return !numEq(ln, rn), nil
		case "-lt":
			return numLess(ln, rn), nil
		case "-le":
			return numLess(ln, rn) || numEq(ln, rn), nil
		case "-gt":
			return numLess(rn, ln), nil
		default: // -ge
			return numLess(rn, ln) || numEq(ln, rn), nil
		}
	}
	return false, &CondError{Msg: "unknown binary operator " + op}
}
