// Copyright (c) 2024, gosh authors
// See LICENSE for licensing information

// gosh is an interactive, bash-subset shell built on top of package interp.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"

	"golang.org/x/term"

	"github.com/yanomasao/gosh/feeder"
	"github.com/yanomasao/gosh/interp"
	"github.com/yanomasao/gosh/syntax"
)

var (
	command   = flag.String("c", "", "command to execute")
	login     = flag.Bool("l", false, "accepted and ignored; no login startup files are read")
	noexec    = flag.Bool("n", false, "accepted and ignored; commands are still executed")
	setOpts   = flag.String("o", "", "comma-separated set -o style options")
	errexitF  = flag.Bool("e", false, "exit immediately if a command exits non-zero")
	nounsetF  = flag.Bool("u", false, "treat unset variables as an error")
	xtraceF   = flag.Bool("x", false, "print commands before executing them")
	forceInt  = flag.Bool("i", false, "force interactive mode")
	readStdin = flag.Bool("s", false, "read commands from standard input, treating any remaining args as positional parameters")
)

// plusOpts collects every `+o name` given on the command line, applied as
// `set +o name` the same way `-o` is folded into `set -o name`. flag does
// not understand a leading '+', so these are pulled out of os.Args by hand
// in init, before flag.Parse ever sees them.
var plusOpts []string

func init() {
	var rest []string
	for i := 1; i < len(os.Args); i++ {
		if os.Args[i] == "+o" && i+1 < len(os.Args) {
			plusOpts = append(plusOpts, os.Args[i+1])
			i++
			continue
		}
		rest = append(rest, os.Args[i])
	}
	os.Args = append(os.Args[:1], rest...)
}

func main() {
	os.Exit(main1())
}

// main1 runs the program and returns its exit code instead of calling
// os.Exit directly, so it can also be driven as a subprocess command from
// testscript.RunMain.
func main1() int {
	flag.Parse()
	err := runAll()
	var es interp.ExitStatus
	if errors.As(err, &es) {
		return int(es)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runAll() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sigint := new(atomic.Bool)
	go watchSigint(sigint)

	scriptName := "gosh"
	if flag.NArg() > 0 && !*readStdin {
		scriptName = flag.Args()[0]
	}

	opts := []interp.Option{
		interp.WithStdIO(os.Stdin, os.Stdout, os.Stderr),
		interp.WithScriptName(scriptName),
		interp.WithSigintFlag(sigint),
	}
	switch {
	case *readStdin:
		opts = append(opts, interp.WithParams(flag.Args()...))
	case flag.NArg() > 1:
		opts = append(opts, interp.WithParams(flag.Args()[1:]...))
	}
	if histPath, ok := defaultHistoryFile(); ok {
		opts = append(opts, interp.WithHistoryFile(histPath, histFileSize()))
	}

	sc, err := interp.New(opts...)
	if err != nil {
		return err
	}
	applyFlagOptions(sc)

	if *command != "" {
		return runSource(ctx, sc, strings.NewReader(*command), "")
	}
	if *readStdin {
		if *forceInt || term.IsTerminal(int(os.Stdin.Fd())) {
			return runInteractive(ctx, sc, os.Stdin, os.Stdout)
		}
		return runSource(ctx, sc, os.Stdin, "")
	}
	if flag.NArg() == 0 {
		if *forceInt || term.IsTerminal(int(os.Stdin.Fd())) {
			return runInteractive(ctx, sc, os.Stdin, os.Stdout)
		}
		return runSource(ctx, sc, os.Stdin, "")
	}
	f, err := os.Open(flag.Args()[0])
	if err != nil {
		return err
	}
	defer f.Close()
	return runSource(ctx, sc, f, flag.Args()[0])
}

// watchSigint flips flag every time the process receives SIGINT, for the
// interpreter's checkInterrupt to poll at loop tops and expansion-step
// boundaries; it runs alongside, not instead of, the ctx-based
// signal.NotifyContext above, which still governs an in-flight external
// command's own forced termination.
func watchSigint(flag *atomic.Bool) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt)
	for range ch {
		flag.Store(true)
	}
}

// applyFlagOptions threads the `-e`/`-u`/`-x`/`-o`/`+o` command-line flags
// into the shell's option state the same way `set` would, since both are
// just two different surfaces over the same shellOpts the interpreter
// consults.
func applyFlagOptions(sc *interp.ShellCore) {
	args := []string{"set"}
	if *errexitF {
		args = append(args, "-e")
	}
	if *nounsetF {
		args = append(args, "-u")
	}
	if *xtraceF {
		args = append(args, "-x")
	}
	for _, o := range strings.Split(*setOpts, ",") {
		if o == "" {
			continue
		}
		args = append(args, "-o", o)
	}
	for _, o := range plusOpts {
		args = append(args, "+o", o)
	}
	if len(args) > 1 {
		sc.RunBuiltin(context.Background(), args)
	}
	_ = noexec
	_ = login
}

// defaultHistoryFile resolves the path $HISTFILE names, falling back to
// ~/.gosh_history the way bash falls back when HISTFILE is unset.
func defaultHistoryFile() (string, bool) {
	if path := os.Getenv("HISTFILE"); path != "" {
		return path, true
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", false
	}
	return filepath.Join(home, ".gosh_history"), true
}

// histFileSize resolves $HISTFILESIZE, returning 0 (interp's "use the
// default" sentinel) when it is unset or not a valid integer.
func histFileSize() int {
	n, err := strconv.Atoi(os.Getenv("HISTFILESIZE"))
	if err != nil {
		return 0
	}
	return n
}

// runSource parses and runs a full, non-interactive script read from r in
// one pass, translating the script's final command status into the
// process's exit code the way a shell invoked as `gosh script` or `gosh -c`
// does.
func runSource(ctx context.Context, sc *interp.ShellCore, r io.Reader, name string) error {
	p := syntax.NewParser(newScriptLineSource(r), nil)
	script, err := p.ParseScript()
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if err := sc.Run(ctx, script); err != nil {
		return err
	}
	status := sc.Vars.LastStatus()
	if sc.Exited() {
		status = sc.ExitCode()
	}
	if status != 0 {
		return interp.ExitStatus(status)
	}
	return nil
}

// runInteractive drives the read-eval-print loop a step at a time: parse
// exactly one top-level job, run it, print the next prompt, repeat — the
// same per-job granularity the teacher's own InteractiveSeq offers, so a
// long-running `while read` loop is driven interactively rather than
// waiting for the whole session's input to reach EOF first.
func runInteractive(ctx context.Context, sc *interp.ShellCore, in io.Reader, out io.Writer) error {
	src := &promptingLineSource{br: bufio.NewReader(in), out: out, sc: sc}
	p := syntax.NewParser(src, src.prompt)

	for {
		src.atJobStart = true
		job, err := p.ParseJob()
		if err != nil {
			fmt.Fprintln(out, err)
			continue
		}
		if job == nil {
			return nil
		}
		script := &syntax.Script{Jobs: []*syntax.Job{job}}
		if err := sc.Run(ctx, script); err != nil {
			return err
		}
		if sc.Exited() {
			return nil
		}
	}
}

// promptingLineSource is the feeder.LineSource the interactive REPL reads
// from: it writes $PS1 before the first line of a job and $PS2 before every
// continuation line a still-open construct needs (falling back to "$ " and
// "> " the way bash does when those variables are unset), then reads one
// line from the underlying terminal.
type promptingLineSource struct {
	br         *bufio.Reader
	out        io.Writer
	sc         *interp.ShellCore
	atJobStart bool
}

func (s *promptingLineSource) prompt() string {
	if s.atJobStart {
		if ps1, ok := s.sc.Vars.GetVar("PS1"); ok {
			return ps1
		}
		return "$ "
	}
	if ps2, ok := s.sc.Vars.GetVar("PS2"); ok {
		return ps2
	}
	return "> "
}

func (s *promptingLineSource) NextLine(prompt string) (string, bool) {
	fmt.Fprint(s.out, prompt)
	s.atJobStart = false
	line, err := s.br.ReadString('\n')
	if line == "" && err != nil {
		return "", false
	}
	return line, true
}

var _ feeder.LineSource = (*promptingLineSource)(nil)

// scriptLineSource feeds a whole io.Reader's contents line by line, never
// printing a prompt, for non-interactive script execution.
type scriptLineSource struct {
	br *bufio.Reader
}

func newScriptLineSource(r io.Reader) *scriptLineSource {
	return &scriptLineSource{br: bufio.NewReader(r)}
}

func (s *scriptLineSource) NextLine(string) (string, bool) {
	line, err := s.br.ReadString('\n')
	if line == "" && err != nil {
		return "", false
	}
	return line, true
}

var _ feeder.LineSource = (*scriptLineSource)(nil)
