// Copyright (c) 2024, gosh authors
// See LICENSE for licensing information

// Package syntax implements the shell's recursive-descent parser (the "P"
// component) and the abstract syntax tree it builds on top of a
// [github.com/yanomasao/gosh/feeder.Feeder]. Every node keeps the exact
// source text it was parsed from, so its Text() reproduces the original
// input byte for byte — the round-trip invariant the rest of the
// interpreter relies on.
package syntax

// Node is implemented by every AST node. Text returns the exact source
// slice the node was parsed from.
type Node interface {
	Text() string
}

// Script is an ordered list of jobs: `Script = { Job sep }`.
type Script struct {
	RawText string
	Jobs    []*Job
}

func (s *Script) Text() string { return s.RawText }

// JobSep is the separator that terminated a Job within a Script.
type JobSep int

const (
	SepNone JobSep = iota // end of input
	SepSemi               // ;
	SepNewline
	SepAndAnd // && chained to the *next* pipeline, handled inside Job itself
	SepOrOr
	SepAmp // & — backgrounds the job
)

// Job is a chain of pipelines joined by && / ||, optionally backgrounded.
type Job struct {
	RawText    string
	Pipelines  []*Pipeline
	Ops        []JobSep // len(Ops) == len(Pipelines)-1, each SepAndAnd/SepOrOr
	Background bool
}

func (j *Job) Text() string { return j.RawText }

// Pipeline is `['!'] ['time'] Command ( ('|'|'|&') Command )*`.
type Pipeline struct {
	RawText  string
	Negate   bool
	Timed    bool
	Commands []Command
	// PipeErrs[i] is true when Commands[i] is joined to Commands[i+1] with
	// "|&" (stderr piped along with stdout) rather than plain "|".
	PipeErrs []bool
}

func (p *Pipeline) Text() string { return p.RawText }

// CommandBase holds the fields every Command variant owns: its redirects and
// the fork/background flags the executor consults.
type CommandBase struct {
	RawText    string
	Redirs     []*Redirect
	ForceFork  bool
	Background bool
}

func (c *CommandBase) Text() string { return c.RawText }

// Command is the sum type of the nine compound/simple command kinds.
type Command interface {
	Node
	Base() *CommandBase
}

// SimpleCommand is `(Assignment)* Word (Word | Redirect)*`.
type SimpleCommand struct {
	CommandBase
	Assigns []*Assign
	Args    []*Word
}

func (c *SimpleCommand) Base() *CommandBase { return &c.CommandBase }

// Assign is one `name=word`, `name+=word` or `name[i]=word` prefix
// assignment.
type Assign struct {
	RawText string
	Name    string
	Index   *Word // non-nil for `name[i]=value` array element assignment
	Append  bool
	Value   *Word // nil for a bare `name=` (empties the variable)
}

func (a *Assign) Text() string { return a.RawText }

// IfClause is one `if`/`elif` arm: a condition script and its body.
type IfClause struct {
	Cond *Script
	Then *Script
}

// IfCommand is `if C; then T; elif C; then T; ... else E; fi`.
type IfCommand struct {
	CommandBase
	Clauses []*IfClause
	Else    *Script // nil if there is no else
}

func (c *IfCommand) Base() *CommandBase { return &c.CommandBase }

// CStyleFor holds the three arithmetic clauses of `for ((init; cond; post))`.
type CStyleFor struct {
	Init, Cond, Post *ArithExpr // any may be nil (empty clause)
}

// ForCommand is `for name in words; do body; done` or the C-style variant.
type ForCommand struct {
	CommandBase
	VarName string
	Words   []*Word // nil means "in $@" (the default when "in ..." is omitted)
	CStyle  *CStyleFor
	Body    *Script
}

func (c *ForCommand) Base() *CommandBase { return &c.CommandBase }

// WhileCommand is `while/until C; do body; done`.
type WhileCommand struct {
	CommandBase
	Until bool
	Cond  *Script
	Body  *Script
}

func (c *WhileCommand) Base() *CommandBase { return &c.CommandBase }

// CaseSep is how a case item ends: `;;` stops, `;&` falls through to the
// next item's body unconditionally, `;;&` continues testing patterns.
type CaseSep int

const (
	CaseBreak CaseSep = iota
	CaseFallThrough
	CaseContinueTest
)

// CaseItem is one `pattern[|pattern...]) body ;;` arm.
type CaseItem struct {
	Patterns []*Word
	Body     *Script
	Sep      CaseSep
}

// CaseCommand is `case word in items... esac`.
type CaseCommand struct {
	CommandBase
	Word  *Word
	Items []*CaseItem
}

func (c *CaseCommand) Base() *CommandBase { return &c.CommandBase }

// ParenCommand is `( body )` (a subshell) or `{ body; }` (a brace group that
// shares the parent's shell state).
type ParenCommand struct {
	CommandBase
	Brace bool
	Body  *Script
}

func (c *ParenCommand) Base() *CommandBase { return &c.CommandBase }

// ArithExpr is the raw text between the delimiters of `(( ... ))` or
// `$(( ... ))`; tokenizing and evaluating it is the expr package's job, kept
// separate from the syntax grammar per the interpreter's component split.
type ArithExpr struct {
	RawText string
}

func (a *ArithExpr) Text() string { return a.RawText }

// ArithmeticCommand is `(( expr ))` used as a command (its exit status is
// 0 if expr is non-zero, 1 otherwise).
type ArithmeticCommand struct {
	CommandBase
	Expr *ArithExpr
}

func (c *ArithmeticCommand) Base() *CommandBase { return &c.CommandBase }

// CondElemKind tags one token of a `[[ ... ]]` expression's flat vector.
type CondElemKind int

const (
	CondWord CondElemKind = iota
	CondUnaryOp
	CondBinaryOp
	CondNot
	CondAndAnd
	CondOrOr
	CondLParen
	CondRParen
)

// CondElem is one element of the flat token vector the parser produces for
// `[[ ... ]]`; expr.EvalCond rearranges and evaluates it.
type CondElem struct {
	Kind CondElemKind
	Word *Word  // set when Kind == CondWord
	Op   string // set for CondUnaryOp/CondBinaryOp, e.g. "-f", "==", "-eq"
}

// TestCommand is `[[ expr ]]`.
type TestCommand struct {
	CommandBase
	Elems []CondElem
}

func (c *TestCommand) Base() *CommandBase { return &c.CommandBase }

// FuncDecl is `name() body` or `function name body`, where body is usually
// a brace ParenCommand.
type FuncDecl struct {
	CommandBase
	Name string
	Body Command
}

func (c *FuncDecl) Base() *CommandBase { return &c.CommandBase }

// Redirect is one `[n]op word` or `[n]op word1[,word2]` redirection.
type Redirect struct {
	RawText  string
	Op       string // e.g. "<", ">", ">>", ">&", "<<", "<<<", "&>"
	Fd       int    // explicit left fd, or -1 for the symbol's default
	Word     *Word  // the target (file, fd number as text, or heredoc body)
	Restore  bool   // whether the executor must back up/restore the fd
}

func (r *Redirect) Text() string { return r.RawText }
