// Copyright (c) 2024, gosh authors
// See LICENSE for licensing information

package interp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yanomasao/gosh/expand"
	"github.com/yanomasao/gosh/expr"
	"github.com/yanomasao/gosh/feeder"
	"github.com/yanomasao/gosh/pattern"
	"github.com/yanomasao/gosh/syntax"
)

// execStream is the three streams one command runs against. It is threaded
// explicitly through the executor, rather than mutated on ShellCore itself,
// so that concurrently running pipeline stages never race on shared fields.
type execStream struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	// pg and pgIndex identify this stage's place in its pipeline's shared
	// process group, if any; pg is nil outside of runPipeline. See
	// pgroup in jobcontrol.go.
	pg      *pgroup
	pgIndex int
}

// resolvePG marks this stage as not having started an external command
// (a builtin, function, or control-flow construct ran instead), releasing
// any later pipeline stage blocked waiting to learn this pipeline's
// process group. A no-op outside of a pipeline.
func (s execStream) resolvePG() {
	if s.pg != nil {
		s.pg.resolve(s.pgIndex, 0)
	}
}

func (sc *ShellCore) stdIO() execStream {
	return execStream{stdin: sc.Stdin, stdout: sc.Stdout, stderr: sc.Stderr}
}

// Run executes a parsed script against sc, mirroring how the teacher's
// Runner.Run drives one parsed statement list to completion and reports the
// script's exit status via sc.Vars.LastStatus.
func (sc *ShellCore) Run(ctx context.Context, script *syntax.Script) error {
	sc.interruptedAbort = false
	return sc.runScript(ctx, script, sc.stdIO())
}

// Exited reports whether an `exit` builtin (or `set -e` triggered by a
// failing command) has ended this shell's run, for a driver loop like
// cmd/gosh's REPL to notice after Run returns.
func (sc *ShellCore) Exited() bool { return sc.exiting }

// ExitCode returns the status `exit` (explicit or implicit) ended the shell
// with.
func (sc *ShellCore) ExitCode() int { return sc.exitCode }

// RunBuiltin invokes one builtin directly by name, bypassing command lookup
// and expansion; used by cmd/gosh to fold `-e`/`-u`/`-x`/`-o` command-line
// flags into the same `set` builtin that `set -e` at a shell prompt goes
// through.
func (sc *ShellCore) RunBuiltin(ctx context.Context, args []string) int {
	if len(args) == 0 {
		return 0
	}
	b, ok := sc.builtins[args[0]]
	if !ok {
		return 127
	}
	return b(ctx, sc, args, sc.stdIO())
}

func (sc *ShellCore) runScript(ctx context.Context, script *syntax.Script, strm execStream) error {
	for _, j := range script.Jobs {
		if sc.checkInterrupt() {
			return nil
		}
		if err := sc.runJob(ctx, j, strm); err != nil {
			return err
		}
		if sc.breakN > 0 || sc.continueN > 0 || sc.returning || sc.exiting || sc.interruptedAbort {
			return nil
		}
	}
	return nil
}

// runJob runs one &&/||-chained list of pipelines, backgrounding it if the
// job ends in `&`. A backgrounded job never takes the controlling
// terminal, so its pipelines run without the foreground tcsetpgrp handoff.
func (sc *ShellCore) runJob(ctx context.Context, j *syntax.Job, strm execStream) error {
	if j.Background {
		jobEntry := sc.jobs.add(0, j.RawText)
		sc.Vars.SetLastBackgroundPID(os.Getpid())
		go func() {
			sc.runJobPipelines(ctx, j, strm, false)
			sc.jobs.setState(jobEntry, jobDone, sc.Vars.LastStatus())
		}()
		return nil
	}
	return sc.runJobPipelines(ctx, j, strm, true)
}

func (sc *ShellCore) runJobPipelines(ctx context.Context, j *syntax.Job, strm execStream, foreground bool) error {
	status := 0
	for i, p := range j.Pipelines {
		if i > 0 {
			op := j.Ops[i-1]
			if op == syntax.SepAndAnd && status != 0 {
				break
			}
			if op == syntax.SepOrOr && status == 0 {
				break
			}
		}
		status = sc.runPipeline(ctx, p, strm, foreground)
		if sc.returning || sc.exiting || sc.breakN > 0 || sc.continueN > 0 || sc.interruptedAbort {
			break
		}
	}
	sc.Vars.SetLastStatus(status)
	if sc.opts.errexit && status != 0 && !sc.exiting {
		sc.exiting = true
		sc.exitCode = status
	}
	return nil
}

// runPipeline runs one `|`-chained command list, wiring each stage's stdout
// to the next stage's stdin, and reports the last stage's exit status
// (or, under `set -o pipefail`, the rightmost non-zero status).
func (sc *ShellCore) runPipeline(ctx context.Context, p *syntax.Pipeline, strm execStream, foreground bool) int {
	n := len(p.Commands)
	statuses := make([]int, n)

	stdins := make([]io.Reader, n)
	stdouts := make([]io.Writer, n)
	stdins[0] = strm.stdin
	stdouts[n-1] = strm.stdout
	for i := 0; i < n-1; i++ {
		pr, pw, err := os.Pipe()
		if err != nil {
			fmt.Fprintln(strm.stderr, err)
			return 1
		}
		stdouts[i] = pw
		stdins[i+1] = pr
	}

	// pg assigns every external-command stage in this pipeline to one
	// shared process group, the leftmost one to start becoming the
	// group's leader; see pgroup's own doc comment in jobcontrol.go.
	pg := newPgroup(n)

	// Each stage runs concurrently, piped stdout-to-stdin to the next; an
	// errgroup gives us the same "wait for every stage" join a hand-rolled
	// WaitGroup would, without a separate done-channel and counter.
	var g errgroup.Group
	for i, cmd := range p.Commands {
		i, cmd := i, cmd
		stage := execStream{stdin: stdins[i], stdout: stdouts[i], stderr: strm.stderr, pg: pg, pgIndex: i}
		g.Go(func() error {
			code, err := sc.runCommand(ctx, cmd, stage)
			if err != nil {
				var es ExitStatus
				if errors.As(err, &es) {
					code = int(es)
				} else {
					fmt.Fprintln(strm.stderr, err)
					code = 1
				}
			}
			statuses[i] = code
			if i < n-1 {
				if wc, ok := stdouts[i].(io.Closer); ok {
					wc.Close()
				}
			}
			if i > 0 {
				if rc, ok := stdins[i].(io.Closer); ok {
					rc.Close()
				}
			}
			return nil
		})
	}

	var restoreTTY func()
	if foreground {
		// Every stage has either started its external command or resolved
		// itself as a non-exec stage by the time every turn has closed, so
		// established() is only meaningful once all of them have; a
		// background pipeline never takes the terminal at all.
		for j := 0; j < n; j++ {
			<-pg.turns[j]
		}
		restoreTTY = handoffTTY(strm.stdin, pg.established())
	}

	g.Wait()
	if restoreTTY != nil {
		restoreTTY()
	}
	sc.setPipeStatus(statuses)

	status := statuses[n-1]
	if sc.opts.pipefail {
		for i := n - 1; i >= 0; i-- {
			if statuses[i] != 0 {
				status = statuses[i]
				break
			}
		}
	}
	if p.Negate {
		if status == 0 {
			status = 1
		} else {
			status = 0
		}
	}
	return status
}

func (sc *ShellCore) setPipeStatus(statuses []int) {
	parts := make([]string, len(statuses))
	for i, s := range statuses {
		parts[i] = strconv.Itoa(s)
	}
	sc.Vars.SetArray("PIPESTATUS", parts)
}

// runCommand dispatches on the nine Command variants, applying its
// redirections first.
func (sc *ShellCore) runCommand(ctx context.Context, cmd syntax.Command, strm execStream) (int, error) {
	strm, closers, err := sc.applyRedirects(cmd.Base().Redirs, strm)
	defer func() {
		for _, c := range closers {
			c.Close()
		}
	}()
	if err != nil {
		return 1, err
	}

	switch c := cmd.(type) {
	case *syntax.SimpleCommand:
		// runSimpleCommand resolves strm's pgroup slot itself, since only
		// it knows whether this stage turns out to run a builtin/function
		// (no OS process) or an external command (joins the group).
		return sc.runSimpleCommand(ctx, c, strm)
	case *syntax.IfCommand:
		strm.resolvePG()
		return sc.runIfCommand(ctx, c, strm)
	case *syntax.ForCommand:
		strm.resolvePG()
		return sc.runForCommand(ctx, c, strm)
	case *syntax.WhileCommand:
		strm.resolvePG()
		return sc.runWhileCommand(ctx, c, strm)
	case *syntax.CaseCommand:
		strm.resolvePG()
		return sc.runCaseCommand(ctx, c, strm)
	case *syntax.ParenCommand:
		// A `( ... )` subshell pipeline stage is its own process in a real
		// shell; gosh runs it in-process instead, so it never joins the
		// pipeline's process group either.
		strm.resolvePG()
		return sc.runParenCommand(ctx, c, strm)
	case *syntax.ArithmeticCommand:
		strm.resolvePG()
		return sc.runArithmeticCommand(c)
	case *syntax.TestCommand:
		strm.resolvePG()
		return sc.runTestCommand(c)
	case *syntax.FuncDecl:
		strm.resolvePG()
		sc.Funcs[c.Name] = c
		return 0, nil
	default:
		strm.resolvePG()
		return 1, fmt.Errorf("interp: unknown command type %T", cmd)
	}
}

func (sc *ShellCore) runSimpleCommand(ctx context.Context, c *syntax.SimpleCommand, strm execStream) (int, error) {
	cfg := sc.expandConfig(ctx)

	if len(c.Args) == 0 {
		for _, a := range c.Assigns {
			if err := sc.applyAssign(cfg, a); err != nil {
				return 1, err
			}
		}
		return 0, nil
	}

	// A command's own argument words are expanded against the scope as it
	// stood before this command's prefix assignments, matching how a
	// prefix assignment (`foo=bar cmd $foo`) is only visible inside the
	// invoked command's own environment, not to the rest of its command
	// line.
	args, err := expand.Fields(cfg, c.Args...)
	if err != nil {
		return 1, err
	}

	if len(c.Assigns) > 0 {
		sc.Vars.PushScope()
		defer sc.Vars.PopScope()
		for _, a := range c.Assigns {
			if err := sc.applyAssign(cfg, a); err != nil {
				return 1, err
			}
		}
	}
	if len(args) == 0 {
		return 0, nil
	}

	if sc.opts.xtrace {
		fmt.Fprintln(strm.stderr, "+ "+strings.Join(args, " "))
	}

	if fn, ok := sc.Funcs[args[0]]; ok {
		strm.resolvePG()
		return sc.callFunction(ctx, fn, args[1:], strm)
	}
	if b, ok := sc.builtins[args[0]]; ok {
		strm.resolvePG()
		return b(ctx, sc, args, strm), nil
	}

	err = sc.execHandler(ctx, sc, args, strm)
	if err != nil {
		var es ExitStatus
		if errors.As(err, &es) {
			return int(es), nil
		}
		return 1, err
	}
	return 0, nil
}

func (sc *ShellCore) applyAssign(cfg *expand.Config, a *syntax.Assign) error {
	var val string
	if a.Value != nil {
		v, err := expand.AssignValue(cfg, a.Value)
		if err != nil {
			return err
		}
		val = v
	}
	if a.Index != nil {
		idxText, err := expand.AssignValue(cfg, a.Index)
		if err != nil {
			return err
		}
		n, err := expr.EvalArith(idxText, sc.Vars, sc.arithSubst(context.Background()))
		if err != nil {
			return err
		}
		sc.Vars.SetArrayElem(a.Name, int(n.I), val)
		return nil
	}
	if a.Append {
		cur, _ := sc.Vars.GetVar(a.Name)
		val = cur + val
	}
	sc.Vars.SetVar(a.Name, val)
	return nil
}

func (sc *ShellCore) callFunction(ctx context.Context, fn *syntax.FuncDecl, args []string, strm execStream) (int, error) {
	prevPos := sc.Vars.Positional()
	sc.Vars.SetPositional(args)
	sc.Vars.PushScope()
	sc.inFunc++
	code, err := sc.runCommand(ctx, fn.Body, strm)
	sc.inFunc--
	sc.Vars.PopScope()
	sc.Vars.SetPositional(prevPos)
	if sc.returning {
		sc.returning = false
		code = sc.exitCode
	}
	return code, err
}

func (sc *ShellCore) runIfCommand(ctx context.Context, c *syntax.IfCommand, strm execStream) (int, error) {
	for _, cl := range c.Clauses {
		if err := sc.runScript(ctx, cl.Cond, strm); err != nil {
			return 1, err
		}
		if sc.Vars.LastStatus() == 0 {
			return 0, sc.runScript(ctx, cl.Then, strm)
		}
	}
	if c.Else != nil {
		return 0, sc.runScript(ctx, c.Else, strm)
	}
	return 0, nil
}

func (sc *ShellCore) runWhileCommand(ctx context.Context, c *syntax.WhileCommand, strm execStream) (int, error) {
	status := 0
	for {
		if sc.checkInterrupt() {
			break
		}
		if err := sc.runScript(ctx, c.Cond, strm); err != nil {
			return 1, err
		}
		ok := sc.Vars.LastStatus() == 0
		if c.Until {
			ok = !ok
		}
		if !ok {
			break
		}
		if err := sc.runScript(ctx, c.Body, strm); err != nil {
			return 1, err
		}
		status = sc.Vars.LastStatus()
		if sc.breakN > 0 {
			sc.breakN--
			break
		}
		if sc.continueN > 0 {
			sc.continueN--
			if sc.continueN > 0 {
				break
			}
		}
		if sc.returning || sc.exiting {
			break
		}
	}
	return status, nil
}

func (sc *ShellCore) runForCommand(ctx context.Context, c *syntax.ForCommand, strm execStream) (int, error) {
	status := 0
	runBody := func() (bool, error) {
		if sc.checkInterrupt() {
			return false, nil
		}
		if err := sc.runScript(ctx, c.Body, strm); err != nil {
			return false, err
		}
		status = sc.Vars.LastStatus()
		if sc.breakN > 0 {
			sc.breakN--
			return false, nil
		}
		if sc.continueN > 0 {
			sc.continueN--
			if sc.continueN > 0 {
				return false, nil
			}
		}
		if sc.returning || sc.exiting {
			return false, nil
		}
		return true, nil
	}

	if c.CStyle != nil {
		subst := sc.arithSubst(ctx)
		if c.CStyle.Init != nil {
			if _, err := expr.EvalArith(c.CStyle.Init.RawText, sc.Vars, subst); err != nil {
				return 1, err
			}
		}
		for {
			if c.CStyle.Cond != nil {
				n, err := expr.EvalArith(c.CStyle.Cond.RawText, sc.Vars, subst)
				if err != nil {
					return 1, err
				}
				if !n.Truth() {
					break
				}
			}
			cont, err := runBody()
			if err != nil {
				return 1, err
			}
			if c.CStyle.Post != nil {
				if _, err := expr.EvalArith(c.CStyle.Post.RawText, sc.Vars, subst); err != nil {
					return 1, err
				}
			}
			if !cont {
				break
			}
		}
		return status, nil
	}

	cfg := sc.expandConfig(ctx)
	var words []string
	if c.Words == nil {
		words = sc.Vars.Positional()
	} else {
		var err error
		words, err = expand.Fields(cfg, c.Words...)
		if err != nil {
			return 1, err
		}
	}
	for _, w := range words {
		sc.Vars.SetVar(c.VarName, w)
		cont, err := runBody()
		if err != nil {
			return 1, err
		}
		if !cont {
			break
		}
	}
	return status, nil
}

func (sc *ShellCore) runCaseCommand(ctx context.Context, c *syntax.CaseCommand, strm execStream) (int, error) {
	cfg := sc.expandConfig(ctx)
	subject, err := expand.AssignValue(cfg, c.Word)
	if err != nil {
		return 1, err
	}
	status := 0
	for i, item := range c.Items {
		matched := false
		for _, pw := range item.Patterns {
			pat, err := expand.AssignValue(cfg, pw)
			if err != nil {
				return 1, err
			}
			if ok, err := caseMatch(pat, subject); err == nil && ok {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		if err := sc.runScript(ctx, item.Body, strm); err != nil {
			return 1, err
		}
		status = sc.Vars.LastStatus()
		switch item.Sep {
		case syntax.CaseFallThrough:
			if i+1 < len(c.Items) {
				if err := sc.runScript(ctx, c.Items[i+1].Body, strm); err != nil {
					return 1, err
				}
				status = sc.Vars.LastStatus()
			}
			return status, nil
		case syntax.CaseContinueTest:
			continue
		default: // CaseBreak
			return status, nil
		}
	}
	return status, nil
}

// caseMatch matches a `case` pattern as a whole-string glob, grounded on the
// same pattern package pathname expansion and `[[ == ]]` both use.
func caseMatch(pat, s string) (bool, error) {
	return pattern.Match(pat, s, pattern.EntireString)
}

func (sc *ShellCore) runParenCommand(ctx context.Context, c *syntax.ParenCommand, strm execStream) (int, error) {
	if !c.Brace {
		sub, err := New(WithDir(sc.Dir), WithStdIO(strm.stdin, strm.stdout, strm.stderr))
		if err != nil {
			return 1, err
		}
		sub.Vars = sc.Vars.Clone()
		sub.Funcs = sc.Funcs
		sub.builtins = sc.builtins
		sub.execHandler = sc.execHandler
		sub.opts = sc.opts
		sub.sigint = sc.sigint
		sub.subshellDepth = sc.subshellDepth + 1
		sub.Vars.SetVar("BASH_SUBSHELL", strconv.Itoa(sub.subshellDepth))
		if err := sub.runScript(ctx, c.Body, strm); err != nil {
			return 1, err
		}
		return sub.Vars.LastStatus(), nil
	}
	return 0, sc.runScript(ctx, c.Body, strm)
}

func (sc *ShellCore) runArithmeticCommand(c *syntax.ArithmeticCommand) (int, error) {
	n, err := expr.EvalArith(c.Expr.RawText, sc.Vars, sc.arithSubst(context.Background()))
	if err != nil {
		return 1, err
	}
	if n.Truth() {
		return 0, nil
	}
	return 1, nil
}

func (sc *ShellCore) runTestCommand(c *syntax.TestCommand) (int, error) {
	ctx := context.Background()
	cfg := sc.expandConfig(ctx)
	wordExp := func(w *syntax.Word) (string, error) { return expand.AssignValue(cfg, w) }
	ok, err := expr.EvalCond(c.Elems, sc.Vars, wordExp, sc.arithSubst(ctx))
	if err != nil {
		return 1, err
	}
	if ok {
		return 0, nil
	}
	return 1, nil
}

// applyRedirects opens each redirection's target and layers it onto strm,
// returning the closers the caller must run once the command finishes.
func (sc *ShellCore) applyRedirects(redirs []*syntax.Redirect, strm execStream) (execStream, []io.Closer, error) {
	if len(redirs) == 0 {
		return strm, nil, nil
	}
	var closers []io.Closer
	cfg := sc.expandConfig(context.Background())
	for _, r := range redirs {
		target, err := expand.AssignValue(cfg, r.Word)
		if err != nil {
			return strm, closers, err
		}
		switch r.Op {
		case "<":
			f, err := os.Open(sc.resolvePath(target))
			if err != nil {
				return strm, closers, err
			}
			closers = append(closers, f)
			strm.stdin = f
		case ">", ">|":
			f, err := sc.openForWrite(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
			if err != nil {
				return strm, closers, err
			}
			closers = append(closers, f)
			strm.stdout = f
		case ">>":
			f, err := sc.openForWrite(target, os.O_WRONLY|os.O_CREATE|os.O_APPEND)
			if err != nil {
				return strm, closers, err
			}
			closers = append(closers, f)
			strm.stdout = f
		case "&>", "&>>":
			flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
			if r.Op == "&>>" {
				flags = os.O_WRONLY | os.O_CREATE | os.O_APPEND
			}
			f, err := sc.openForWrite(target, flags)
			if err != nil {
				return strm, closers, err
			}
			closers = append(closers, f)
			strm.stdout = f
			strm.stderr = f
		case ">&":
			switch target {
			case "1":
				strm.stderr = strm.stdout
			case "2":
				strm.stdout = strm.stderr
			default:
				f, err := sc.openForWrite(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
				if err != nil {
					return strm, closers, err
				}
				closers = append(closers, f)
				if r.Fd == 2 {
					strm.stderr = f
				} else {
					strm.stdout = f
				}
			}
		case "<&":
			if target != "0" {
				if f, err := os.Open(sc.resolvePath(target)); err == nil {
					closers = append(closers, f)
					strm.stdin = f
				}
			}
		case "<<<":
			strm.stdin = strings.NewReader(target + "\n")
		case "<<":
			strm.stdin = strings.NewReader(target)
		default:
			return strm, closers, fmt.Errorf("interp: unsupported redirection %q", r.Op)
		}
	}
	return strm, closers, nil
}

func (sc *ShellCore) openForWrite(target string, flags int) (*os.File, error) {
	return os.OpenFile(sc.resolvePath(target), flags, 0o644)
}

func (sc *ShellCore) resolvePath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(sc.Dir, p)
}

// commandSubst builds the expand.CmdSubst callback: it runs body (always a
// *syntax.Script, per expand.Runnable's doc comment) to completion with its
// stdout captured, and returns the captured text with trailing newlines
// trimmed, matching POSIX command substitution semantics.
func (sc *ShellCore) commandSubst(ctx context.Context) expand.CmdSubst {
	return func(body expand.Runnable) (string, error) {
		script, ok := body.(*syntax.Script)
		if !ok {
			return "", fmt.Errorf("interp: command substitution body is %T, not *syntax.Script", body)
		}
		var buf bytes.Buffer
		sub := sc.subshellFor(&buf)
		if err := sub.runScript(ctx, script, sub.stdIO()); err != nil {
			return "", err
		}
		sc.Vars.SetLastStatus(sub.Vars.LastStatus())
		return strings.TrimRight(buf.String(), "\n"), nil
	}
}

// arithSubst builds the expr.Substituter a `$(( ))`/`[[ ]]` evaluation uses
// for any `$(...)` or backtick substitution nested inside it: it parses
// source as a script and delegates to commandSubst.
func (sc *ShellCore) arithSubst(ctx context.Context) expr.Substituter {
	return func(source string, backtick bool) (string, error) {
		p := syntax.NewParser(onceLineSource(source), nil)
		script, err := p.ParseScript()
		if err != nil {
			return "", err
		}
		return sc.commandSubst(ctx)(script)
	}
}

// subshellFor builds a ShellCore sharing this one's builtins and execution
// handler but a cloned variable table, so assignments performed inside a
// command/process substitution never leak into the parent shell, with
// stdout redirected to out.
func (sc *ShellCore) subshellFor(out io.Writer) *ShellCore {
	sub := &ShellCore{
		Vars:          sc.Vars.Clone(),
		Dir:           sc.Dir,
		Stdin:         sc.Stdin,
		Stdout:        out,
		Stderr:        sc.Stderr,
		Funcs:         sc.Funcs,
		jobs:          newJobTable(),
		hist:          sc.hist,
		execHandler:   sc.execHandler,
		builtins:      sc.builtins,
		opts:          sc.opts,
		traps:         sc.traps,
		sigint:        sc.sigint,
		subshellDepth: sc.subshellDepth + 1,
	}
	sub.Vars.SetVar("BASH_SUBSHELL", strconv.Itoa(sub.subshellDepth))
	return sub
}

// onceLine is a feeder.LineSource handing back one pre-built string, the
// same trick package syntax's own nested-construct parsing uses.
type onceLine struct {
	text string
	done bool
}

func (o *onceLine) NextLine(prompt string) (string, bool) {
	if o.done {
		return "", false
	}
	o.done = true
	return o.text, true
}

var _ feeder.LineSource = (*onceLine)(nil)

func onceLineSource(s string) *onceLine { return &onceLine{text: s} }

// syntaxParserFor builds a one-shot parser over src, the same construction
// `eval`/`source`/trap actions use to turn a string of shell source back
// into a parse tree.
func syntaxParserFor(src string) *syntax.Parser {
	return syntax.NewParser(onceLineSource(src), nil)
}

// defaultExecHandler launches an external command, finding it on PATH and
// joining it to its pipeline's shared process group (or starting a fresh one
// as its leader, if none exists yet) so job control (`fg`/`bg`/`kill -INT
// %1`) can signal the whole pipeline at once, grounded directly on the
// teacher's own DefaultExecHandler.
func defaultExecHandler(ctx context.Context, sc *ShellCore, args []string, strm execStream) error {
	path := args[0]
	if !strings.Contains(path, "/") {
		p, err := lookPath(sc, path)
		if err != nil {
			fmt.Fprintf(strm.stderr, "gosh: %s: command not found\n", args[0])
			strm.resolvePG()
			return ExitStatus(127)
		}
		path = p
	} else {
		path = sc.resolvePath(path)
	}
	cmd := exec.Cmd{
		Path:   path,
		Args:   args,
		Env:    sc.Vars.ExecEnv(),
		Dir:    sc.Dir,
		Stdin:  strm.stdin,
		Stdout: strm.stdout,
		Stderr: strm.stderr,
	}
	if strm.pg != nil {
		cmd.SysProcAttr = strm.pg.attrFor(strm.pgIndex)
	} else {
		cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	}

	err := cmd.Start()
	if strm.pg != nil {
		if err != nil {
			strm.pg.resolve(strm.pgIndex, 0)
		} else {
			strm.pg.resolve(strm.pgIndex, cmd.Process.Pid)
		}
	}
	if err == nil {
		stop := context.AfterFunc(ctx, func() {
			_ = cmd.Process.Signal(os.Interrupt)
			time.Sleep(2 * time.Second)
			_ = cmd.Process.Signal(os.Kill)
		})
		defer stop()
		err = cmd.Wait()
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return ExitStatus(exitErr.ExitCode())
	}
	if err != nil {
		fmt.Fprintln(strm.stderr, err)
		return ExitStatus(126)
	}
	return nil
}
