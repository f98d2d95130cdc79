// Copyright (c) 2024, gosh authors
// See LICENSE for licensing information

// Package interp implements the shell's executor and live state (the "X"
// and "S" components): a ShellCore walks the syntax tree produced by
// package syntax, expanding words via package expand and evaluating
// `(( ))`/`[[ ]]` via package expr, while running external commands and
// builtins, tracking variables, jobs, and shell options.
package interp

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/yanomasao/gosh/expand"
	"github.com/yanomasao/gosh/syntax"
)

// ShellCore is the interpreter's live state. It is built with New and a
// list of Options, then driven by repeated calls to Run; its exported
// behavior is configured entirely through Options, mirroring how the
// teacher's own Runner is built and reused across incremental Run calls.
type ShellCore struct {
	Vars *VarTable
	Dir  string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	Funcs   map[string]*syntax.FuncDecl
	aliases map[string]string
	jobs    *jobTable

	hist *History

	execHandler ExecHandlerFunc
	builtins    map[string]BuiltinFunc

	opts shellOpts

	breakN           int
	continueN        int
	returning        bool
	exiting          bool
	exitCode         int
	inFunc           int
	interruptedAbort bool

	// sigint is flipped by the driver's signal.Notify handler on SIGINT;
	// loops and word expansion poll it at safe boundaries via
	// checkInterrupt and unwind the same way break/continue/return do,
	// rather than dying mid-expansion or mid-iteration.
	sigint *atomic.Bool

	// subshellDepth backs $BASH_SUBSHELL: it starts at 0 and is
	// incremented on the clone handed to a `( ... )` subshell or a
	// command/process substitution.
	subshellDepth int

	// traps maps a trap signal/event name ("INT", "EXIT", "0", ...) to the
	// raw shell source run when it fires.
	traps map[string]string

	// pathLookups dedups concurrent PATH lookups for the same command name
	// (e.g. two pipeline stages, or a prompt hook and a pipeline stage,
	// both resolving the same name at once) down to one stat/readdir walk,
	// the same role singleflight.Group plays for a cache-stampede.
	pathLookups singleflight.Group
}

// checkInterrupt polls the SIGINT flag, latching interruptedAbort so every
// loop and command chain up to the next Run call unwinds the same way
// break/continue/return do, instead of each nested construct needing to
// notice the flag and reset it independently.
func (sc *ShellCore) checkInterrupt() bool {
	if sc.sigint != nil && sc.sigint.Load() {
		sc.sigint.Store(false)
		sc.interruptedAbort = true
	}
	return sc.interruptedAbort
}

// shellOpts holds the `set -x`/`shopt -s x` boolean switches that steer
// both the executor and the word engine.
type shellOpts struct {
	errexit  bool // set -e
	nounset  bool // set -u
	xtrace   bool // set -x
	noglob   bool // set -f
	pipefail bool
	nullglob bool
	failglob bool
	globstar bool
	noexec   bool // set -n
}

// ExecHandlerFunc runs one external (non-builtin) command against strm,
// mirroring the teacher's ExecHandlerFunc collaborator so a caller can
// sandbox or fake process execution in tests. strm carries the stage's own
// stdio (after redirects) explicitly, rather than an ExecHandlerFunc
// reading sc.Stdin/sc.Stdout/sc.Stderr, so a pipeline's concurrently
// running stages never race on shared fields.
type ExecHandlerFunc func(ctx context.Context, sc *ShellCore, args []string, strm execStream) error

// BuiltinFunc implements one builtin command against strm, for the same
// reason ExecHandlerFunc takes strm: a builtin used as a pipeline stage, or
// on the receiving end of a redirect, must read and write the stage's own
// streams rather than sc's shared ones.
type BuiltinFunc func(ctx context.Context, sc *ShellCore, args []string, strm execStream) int

// Option configures a ShellCore at construction time.
type Option func(*ShellCore) error

// New builds a ShellCore, applying opts in order. Unset fields fall back to
// the current process's environment, working directory, and standard
// streams, matching the teacher's New/Reset defaulting behavior.
func New(opts ...Option) (*ShellCore, error) {
	sc := &ShellCore{
		Vars:     NewVarTable(),
		Funcs:    map[string]*syntax.FuncDecl{},
		aliases:  map[string]string{},
		jobs:     newJobTable(),
		builtins: defaultBuiltins(),
		Stdin:    os.Stdin,
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
		traps:    map[string]string{},
		sigint:   new(atomic.Bool),
	}
	sc.execHandler = defaultExecHandler
	for _, o := range opts {
		if err := o(sc); err != nil {
			return nil, err
		}
	}
	if sc.Dir == "" {
		dir, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("could not get current dir: %w", err)
		}
		sc.Dir = dir
	}
	sc.Vars.SetVar("PWD", sc.Dir)
	if _, ok := sc.Vars.GetVar("OPTIND"); !ok {
		sc.Vars.SetVar("OPTIND", "1")
	}
	return sc, nil
}

// WithDir sets the shell's initial working directory.
func WithDir(path string) Option {
	return func(sc *ShellCore) error {
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		info, err := os.Stat(abs)
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return fmt.Errorf("%s is not a directory", abs)
		}
		sc.Dir = abs
		return nil
	}
}

// WithStdIO sets the three standard streams. A nil out or errw discards
// whatever is written to it.
func WithStdIO(in io.Reader, out, errw io.Writer) Option {
	return func(sc *ShellCore) error {
		if out == nil {
			out = io.Discard
		}
		if errw == nil {
			errw = io.Discard
		}
		sc.Stdin, sc.Stdout, sc.Stderr = in, out, errw
		return nil
	}
}

// WithParams sets $1, $2, ... ($0 is set separately via WithScriptName).
func WithParams(args ...string) Option {
	return func(sc *ShellCore) error {
		sc.Vars.SetPositional(args)
		return nil
	}
}

// WithScriptName sets $0.
func WithScriptName(name string) Option {
	return func(sc *ShellCore) error {
		sc.Vars.scriptName = name
		return nil
	}
}

// WithExecHandler overrides how external commands are launched.
func WithExecHandler(f ExecHandlerFunc) Option {
	return func(sc *ShellCore) error {
		sc.execHandler = f
		return nil
	}
}

// WithHistoryFile loads the command history stored at path, keeping at
// most maxSize entries in memory (mirroring bash's $HISTFILESIZE). The
// file is only read here; nothing in ShellCore writes it back.
func WithHistoryFile(path string, maxSize int) Option {
	return func(sc *ShellCore) error {
		h, err := OpenHistory(path, maxSize)
		if err != nil {
			return err
		}
		sc.hist = h
		return nil
	}
}

// WithSigintFlag lets the driver (cmd/gosh's signal.Notify handler) share
// one atomic.Bool with this ShellCore: the driver flips it on SIGINT, and
// the interpreter's loops and word expansion poll it via checkInterrupt,
// unwinding the running command the same way `break`/`return` do. Without
// this option, ShellCore still allocates its own flag; nothing ever sets
// it, so a `while true; do :; done` can only be stopped from outside the
// process (e.g. by killing it).
func WithSigintFlag(flag *atomic.Bool) Option {
	return func(sc *ShellCore) error {
		sc.sigint = flag
		return nil
	}
}

// ExitStatus is a non-zero status code resulting from running a shell node,
// reported the way the teacher's interpreter reports it: as an error value
// carrying the code, discovered downstream with errors.As rather than a
// side-channel return value.
type ExitStatus int

func (s ExitStatus) Error() string { return fmt.Sprintf("exit status %d", int(s)) }

// LangError reports a shell-language runtime error that isn't simply a
// failed command: an unset variable under `set -u`, a bad substitution, a
// division by zero, and the like.
type LangError struct {
	Msg string
}

func (e *LangError) Error() string { return e.Msg }

// expandConfig builds the expand.Config this ShellCore presents to the
// word engine, reflecting its current options.
func (sc *ShellCore) expandConfig(ctx context.Context) *expand.Config {
	return &expand.Config{
		Env:   sc.Vars,
		Subst: sc.commandSubst(ctx),
		Arith: sc.arithSubst(ctx),
		Opts: expand.Options{
			NoGlob:   sc.opts.noglob,
			NullGlob: sc.opts.nullglob,
			FailGlob: sc.opts.failglob,
			GlobStar: sc.opts.globstar,
		},
		ReadDir:     expand.ReadDirDefault,
		Stat:        expand.StatDefault,
		Interrupted: sc.checkInterrupt,
	}
}
