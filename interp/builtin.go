// Copyright (c) 2024, gosh authors
// See LICENSE for licensing information

package interp

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// defaultBuiltins returns the baseline builtin dispatch table every
// ShellCore starts with, keyed by command name the way the teacher's own
// exec handler dispatch keys by command name before falling through to
// $PATH.
func defaultBuiltins() map[string]BuiltinFunc {
	return map[string]BuiltinFunc{
		"cd":       builtinCd,
		"pwd":      builtinPwd,
		"echo":     builtinEcho,
		"exit":     builtinExit,
		"export":   builtinExport,
		"readonly": builtinReadonly,
		"unset":    builtinUnset,
		"set":      builtinSet,
		"shift":    builtinShift,
		"read":     builtinRead,
		"local":    builtinLocal,
		"return":   builtinReturn,
		"break":    builtinBreak,
		"continue": builtinContinue,
		"true":     builtinTrue,
		"false":    builtinFalse,
		":":        builtinTrue,
		"test":     builtinTest,
		"[":        builtinBracketTest,
		"jobs":     builtinJobs,
		"fg":       builtinFg,
		"bg":       builtinBg,
		"wait":     builtinWait,
		"kill":     builtinKill,
		"history":  builtinHistory,
		"alias":    builtinAlias,
		"unalias":  builtinUnalias,
		"type":     builtinType,
		"command":  builtinCommand,
		"hash":     builtinHash,
		"source":   builtinSource,
		".":        builtinSource,
		"eval":     builtinEval,
		"trap":     builtinTrap,
		"getopts":  builtinGetopts,
		"disown":   builtinDisown,
	}
}

func builtinCd(_ context.Context, sc *ShellCore, args []string, strm execStream) int {
	dir := ""
	if len(args) > 1 {
		dir = args[1]
	}
	if dir == "" {
		home, _ := sc.Vars.GetVar("HOME")
		dir = home
	} else if dir == "-" {
		dir, _ = sc.Vars.GetVar("OLDPWD")
		fmt.Fprintln(strm.stdout, dir)
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(sc.Dir, dir)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		fmt.Fprintf(strm.stderr, "cd: %s: No such file or directory\n", dir)
		return 1
	}
	sc.Vars.SetVar("OLDPWD", sc.Dir)
	sc.Dir = dir
	sc.Vars.SetVar("PWD", dir)
	return 0
}

func builtinPwd(_ context.Context, sc *ShellCore, _ []string, strm execStream) int {
	fmt.Fprintln(strm.stdout, sc.Dir)
	return 0
}

func builtinEcho(_ context.Context, _ *ShellCore, args []string, strm execStream) int {
	rest := args[1:]
	newline := true
	for len(rest) > 0 && rest[0] == "-n" {
		newline = false
		rest = rest[1:]
	}
	fmt.Fprint(strm.stdout, strings.Join(rest, " "))
	if newline {
		fmt.Fprintln(strm.stdout)
	}
	return 0
}

func builtinExit(_ context.Context, sc *ShellCore, args []string, _ execStream) int {
	code := sc.Vars.LastStatus()
	if len(args) > 1 {
		if n, err := strconv.Atoi(args[1]); err == nil {
			code = n
		}
	}
	sc.exiting = true
	sc.exitCode = code
	return code
}

func builtinExport(_ context.Context, sc *ShellCore, args []string, strm execStream) int {
	if len(args) == 1 {
		sc.Vars.EachVisible(func(name string, v *Variable) {
			if v.Exported {
				fmt.Fprintf(strm.stdout, "declare -x %s=%q\n", name, v.Value)
			}
		})
		return 0
	}
	for _, a := range args[1:] {
		name, val, hasVal := strings.Cut(a, "=")
		if hasVal {
			sc.Vars.SetVar(name, val)
		}
		sc.Vars.SetExported(name, true)
	}
	return 0
}

func builtinReadonly(_ context.Context, sc *ShellCore, args []string, strm execStream) int {
	if len(args) == 1 {
		sc.Vars.EachVisible(func(name string, v *Variable) {
			if v.ReadOnly {
				fmt.Fprintf(strm.stdout, "declare -r %s=%q\n", name, v.Value)
			}
		})
		return 0
	}
	for _, a := range args[1:] {
		name, val, hasVal := strings.Cut(a, "=")
		if hasVal {
			sc.Vars.SetVar(name, val)
		}
		sc.Vars.SetReadOnly(name)
	}
	return 0
}

func builtinUnset(_ context.Context, sc *ShellCore, args []string, _ execStream) int {
	for _, name := range args[1:] {
		sc.Vars.Unset(name)
	}
	return 0
}

func builtinSet(_ context.Context, sc *ShellCore, args []string, _ execStream) int {
	rest := args[1:]
	for len(rest) > 0 {
		a := rest[0]
		rest = rest[1:]
		switch a {
		case "-e":
			sc.opts.errexit = true
		case "+e":
			sc.opts.errexit = false
		case "-u":
			sc.opts.nounset = true
		case "+u":
			sc.opts.nounset = false
		case "-x":
			sc.opts.xtrace = true
		case "+x":
			sc.opts.xtrace = false
		case "-f":
			sc.opts.noglob = true
		case "+f":
			sc.opts.noglob = false
		case "-o":
			if len(rest) > 0 {
				sc.setShellOption(rest[0], true)
				rest = rest[1:]
			}
		case "+o":
			if len(rest) > 0 {
				sc.setShellOption(rest[0], false)
				rest = rest[1:]
			}
		case "--":
			sc.Vars.SetPositional(rest)
			return 0
		default:
			sc.Vars.SetPositional(append([]string{a}, rest...))
			return 0
		}
	}
	return 0
}

func (sc *ShellCore) setShellOption(name string, on bool) {
	switch name {
	case "pipefail":
		sc.opts.pipefail = on
	case "nullglob":
		sc.opts.nullglob = on
	case "failglob":
		sc.opts.failglob = on
	case "globstar":
		sc.opts.globstar = on
	case "noexec":
		sc.opts.noexec = on
	}
}

func builtinShift(_ context.Context, sc *ShellCore, args []string, _ execStream) int {
	n := 1
	if len(args) > 1 {
		if v, err := strconv.Atoi(args[1]); err == nil {
			n = v
		}
	}
	pos := sc.Vars.Positional()
	if n > len(pos) {
		return 1
	}
	sc.Vars.SetPositional(pos[n:])
	return 0
}

func builtinRead(_ context.Context, sc *ShellCore, args []string, strm execStream) int {
	names := args[1:]
	if len(names) == 0 {
		names = []string{"REPLY"}
	}
	if strm.stdin == nil {
		return 1
	}
	br := bufio.NewReader(strm.stdin)
	line, err := br.ReadString('\n')
	if err != nil && line == "" {
		return 1
	}
	line = strings.TrimSuffix(line, "\n")
	ifs := sc.Vars.IFS()
	fields := strings.FieldsFunc(line, func(r rune) bool { return strings.ContainsRune(ifs, r) })
	for i, name := range names {
		if i == len(names)-1 && i < len(fields) {
			sc.Vars.SetVar(name, strings.Join(fields[i:], " "))
			break
		}
		if i < len(fields) {
			sc.Vars.SetVar(name, fields[i])
		} else {
			sc.Vars.SetVar(name, "")
		}
	}
	return 0
}

func builtinLocal(_ context.Context, sc *ShellCore, args []string, _ execStream) int {
	for _, a := range args[1:] {
		name, val, _ := strings.Cut(a, "=")
		sc.Vars.SetLocal(name, val)
	}
	return 0
}

func builtinReturn(_ context.Context, sc *ShellCore, args []string, _ execStream) int {
	code := sc.Vars.LastStatus()
	if len(args) > 1 {
		if n, err := strconv.Atoi(args[1]); err == nil {
			code = n
		}
	}
	sc.returning = true
	sc.exitCode = code
	return code
}

func builtinBreak(_ context.Context, sc *ShellCore, args []string, _ execStream) int {
	n := 1
	if len(args) > 1 {
		if v, err := strconv.Atoi(args[1]); err == nil {
			n = v
		}
	}
	sc.breakN = n
	return 0
}

func builtinContinue(_ context.Context, sc *ShellCore, args []string, _ execStream) int {
	n := 1
	if len(args) > 1 {
		if v, err := strconv.Atoi(args[1]); err == nil {
			n = v
		}
	}
	sc.continueN = n
	return 0
}

func builtinTrue(_ context.Context, _ *ShellCore, _ []string, _ execStream) int  { return 0 }
func builtinFalse(_ context.Context, _ *ShellCore, _ []string, _ execStream) int { return 1 }

func builtinTest(_ context.Context, sc *ShellCore, args []string, _ execStream) int {
	return sc.evalTestArgs(args[1:])
}

func builtinBracketTest(_ context.Context, sc *ShellCore, args []string, _ execStream) int {
	a := args[1:]
	if len(a) > 0 && a[len(a)-1] == "]" {
		a = a[:len(a)-1]
	}
	return sc.evalTestArgs(a)
}

// evalTestArgs implements the handful of `test`/`[` forms used outside of
// `[[ ]]` (which goes through expr.EvalCond directly): unary file/string
// tests and binary string/numeric comparisons.
func (sc *ShellCore) evalTestArgs(a []string) int {
	switch len(a) {
	case 0:
		return 1
	case 1:
		if a[0] == "" {
			return 1
		}
		return 0
	case 2:
		if a[0] == "!" {
			return 1 - sc.evalTestArgs(a[1:])
		}
		return boolToStatus(unaryTest(a[0], a[1]))
	case 3:
		return boolToStatus(binaryTest(a[0], a[1], a[2]))
	default:
		return 1
	}
}

func unaryTest(op, operand string) bool {
	switch op {
	case "-z":
		return operand == ""
	case "-n":
		return operand != ""
	case "-f":
		info, err := os.Stat(operand)
		return err == nil && info.Mode().IsRegular()
	case "-d":
		info, err := os.Stat(operand)
		return err == nil && info.IsDir()
	case "-e":
		_, err := os.Stat(operand)
		return err == nil
	case "-r":
		return unix.Access(operand, unix.R_OK) == nil
	case "-w":
		return unix.Access(operand, unix.W_OK) == nil
	case "-x":
		return unix.Access(operand, unix.X_OK) == nil
	case "-s":
		info, err := os.Stat(operand)
		return err == nil && info.Size() > 0
	}
	return false
}

func binaryTest(a, op, b string) bool {
	switch op {
	case "=", "==":
		return a == b
	case "!=":
		return a != b
	case "-eq":
		return atoiOr0(a) == atoiOr0(b)
	case "-ne":
		return atoiOr0(a) != atoiOr0(b)
	case "-lt":
		return atoiOr0(a) < atoiOr0(b)
	case "-le":
		return atoiOr0(a) <= atoiOr0(b)
	case "-gt":
		return atoiOr0(a) > atoiOr0(b)
	case "-ge":
		return atoiOr0(a) >= atoiOr0(b)
	}
	return false
}

func atoiOr0(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func boolToStatus(b bool) int {
	if b {
		return 0
	}
	return 1
}

func builtinJobs(_ context.Context, sc *ShellCore, _ []string, strm execStream) int {
	sc.jobs.each(func(j *job) {
		fmt.Fprintf(strm.stdout, "[%d]  %s  %s\n", j.id, j.state, j.command)
	})
	return 0
}

func builtinFg(_ context.Context, sc *ShellCore, args []string, strm execStream) int {
	id := 0
	if len(args) > 1 {
		id = parseJobID(args[1])
	}
	j := sc.jobs.byID(id)
	if j == nil {
		fmt.Fprintln(strm.stderr, "fg: no such job")
		return 1
	}
	_ = unix.Kill(-j.pgid, unix.SIGCONT)
	sc.jobs.setState(j, jobRunning, 0)
	return 0
}

func builtinBg(_ context.Context, sc *ShellCore, args []string, strm execStream) int {
	id := 0
	if len(args) > 1 {
		id = parseJobID(args[1])
	}
	j := sc.jobs.byID(id)
	if j == nil {
		fmt.Fprintln(strm.stderr, "bg: no such job")
		return 1
	}
	_ = unix.Kill(-j.pgid, unix.SIGCONT)
	sc.jobs.setState(j, jobRunning, 0)
	return 0
}

func builtinWait(_ context.Context, sc *ShellCore, args []string, _ execStream) int {
	if len(args) < 2 {
		return 0
	}
	j := sc.jobs.byID(parseJobID(args[1]))
	if j == nil {
		return 127
	}
	var ws unix.WaitStatus
	_, _ = unix.Wait4(j.pgid, &ws, 0, nil)
	return ws.ExitStatus()
}

func builtinKill(_ context.Context, sc *ShellCore, args []string, _ execStream) int {
	sig := unix.SIGTERM
	rest := args[1:]
	if len(rest) > 0 && strings.HasPrefix(rest[0], "-") {
		rest = rest[1:]
	}
	for _, target := range rest {
		if strings.HasPrefix(target, "%") {
			j := sc.jobs.byID(parseJobID(target))
			if j != nil {
				_ = unix.Kill(-j.pgid, sig)
			}
			continue
		}
		if pid, err := strconv.Atoi(target); err == nil {
			_ = unix.Kill(pid, sig)
		}
	}
	return 0
}

func parseJobID(s string) int {
	s = strings.TrimPrefix(s, "%")
	n, _ := strconv.Atoi(s)
	return n
}

func builtinHistory(_ context.Context, sc *ShellCore, _ []string, strm execStream) int {
	if sc.hist == nil {
		return 0
	}
	for i, e := range sc.hist.Entries() {
		fmt.Fprintf(strm.stdout, "%5d  %s\n", i+1, e)
	}
	return 0
}

func builtinAlias(_ context.Context, sc *ShellCore, args []string, strm execStream) int {
	if len(args) == 1 {
		names := make([]string, 0, len(sc.aliases))
		for n := range sc.aliases {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			fmt.Fprintf(strm.stdout, "alias %s='%s'\n", n, sc.aliases[n])
		}
		return 0
	}
	for _, a := range args[1:] {
		name, val, ok := strings.Cut(a, "=")
		if !ok {
			if v, ok := sc.aliases[name]; ok {
				fmt.Fprintf(strm.stdout, "alias %s='%s'\n", name, v)
			}
			continue
		}
		sc.aliases[name] = val
	}
	return 0
}

func builtinUnalias(_ context.Context, sc *ShellCore, args []string, _ execStream) int {
	for _, name := range args[1:] {
		delete(sc.aliases, name)
	}
	return 0
}

func builtinType(_ context.Context, sc *ShellCore, args []string, strm execStream) int {
	if len(args) < 2 {
		return 1
	}
	name := args[1]
	switch {
	case sc.Funcs[name] != nil:
		fmt.Fprintf(strm.stdout, "%s is a function\n", name)
	case sc.builtins[name] != nil:
		fmt.Fprintf(strm.stdout, "%s is a shell builtin\n", name)
	default:
		if path, err := lookPath(sc, name); err == nil {
			fmt.Fprintf(strm.stdout, "%s is %s\n", name, path)
		} else {
			fmt.Fprintf(strm.stderr, "%s: not found\n", name)
			return 1
		}
	}
	return 0
}

// builtinCommand implements `command [-v|-V] [-p] name [args...]`: with
// neither -v nor -V it runs name bypassing function lookup (so a function
// that shadows a builtin or external command can still reach the original);
// -v prints the resolved path (or the bare name for a builtin/keyword) the
// way `type -p` does; -V adds a human-readable description. Neither -v nor
// -V ever runs name.
func builtinCommand(ctx context.Context, sc *ShellCore, args []string, strm execStream) int {
	rest := args[1:]
	verbose, describe := false, false
	for len(rest) > 0 && strings.HasPrefix(rest[0], "-") && rest[0] != "-" {
		switch rest[0] {
		case "-v":
			verbose = true
		case "-V":
			describe = true
		case "-p":
			// use the default PATH rather than any exported override; gosh
			// has no separate confstr(_CS_PATH) table, so this is a no-op.
		default:
			fmt.Fprintf(strm.stderr, "command: %s: invalid option\n", rest[0])
			return 2
		}
		rest = rest[1:]
	}
	if len(rest) == 0 {
		return 0
	}
	name := rest[0]

	if verbose || describe {
		switch {
		case sc.Funcs[name] != nil:
			if describe {
				fmt.Fprintf(strm.stdout, "%s is a function\n", name)
			} else {
				fmt.Fprintln(strm.stdout, name)
			}
			return 0
		case sc.builtins[name] != nil:
			if describe {
				fmt.Fprintf(strm.stdout, "%s is a shell builtin\n", name)
			} else {
				fmt.Fprintln(strm.stdout, name)
			}
			return 0
		case strings.Contains(name, "/"):
			if _, err := os.Stat(name); err != nil {
				return 1
			}
			if describe {
				fmt.Fprintf(strm.stdout, "%s is %s\n", name, name)
			} else {
				fmt.Fprintln(strm.stdout, name)
			}
			return 0
		default:
			path, err := lookPath(sc, name)
			if err != nil {
				return 1
			}
			if describe {
				fmt.Fprintf(strm.stdout, "%s is %s\n", name, path)
			} else {
				fmt.Fprintln(strm.stdout, path)
			}
			return 0
		}
	}

	if b, ok := sc.builtins[name]; ok {
		strm.resolvePG()
		return b(ctx, sc, rest, strm)
	}
	err := sc.execHandler(ctx, sc, rest, strm)
	if err != nil {
		return 127
	}
	return 0
}

func builtinHash(_ context.Context, _ *ShellCore, _ []string, _ execStream) int { return 0 }

func builtinSource(ctx context.Context, sc *ShellCore, args []string, strm execStream) int {
	if len(args) < 2 {
		fmt.Fprintln(strm.stderr, "source: filename argument required")
		return 1
	}
	data, err := os.ReadFile(sc.resolvePath(args[1]))
	if err != nil {
		fmt.Fprintln(strm.stderr, err)
		return 1
	}
	return sc.evalString(ctx, string(data), strm)
}

func builtinEval(ctx context.Context, sc *ShellCore, args []string, strm execStream) int {
	return sc.evalString(ctx, strings.Join(args[1:], " "), strm)
}

func (sc *ShellCore) evalString(ctx context.Context, src string, strm execStream) int {
	p := syntaxParserFor(src)
	script, err := p.ParseScript()
	if err != nil {
		fmt.Fprintln(strm.stderr, err)
		return 1
	}
	if err := sc.runScript(ctx, script, strm); err != nil {
		fmt.Fprintln(strm.stderr, err)
		return 1
	}
	return sc.Vars.LastStatus()
}

func builtinTrap(_ context.Context, sc *ShellCore, args []string, _ execStream) int {
	if len(args) < 3 {
		return 0
	}
	action := args[1]
	for _, sig := range args[2:] {
		sc.traps[sig] = action
	}
	return 0
}

func builtinGetopts(_ context.Context, sc *ShellCore, args []string, _ execStream) int {
	if len(args) < 3 {
		return 1
	}
	optstring, varname := args[1], args[2]
	optindStr, _ := sc.Vars.GetVar("OPTIND")
	optind, _ := strconv.Atoi(optindStr)
	if optind < 1 {
		optind = 1
	}
	pos := sc.Vars.Positional()
	if optind-1 >= len(pos) {
		return 1
	}
	arg := pos[optind-1]
	if len(arg) < 2 || arg[0] != '-' {
		return 1
	}
	opt := arg[1]
	idx := strings.IndexByte(optstring, opt)
	if idx < 0 {
		sc.Vars.SetVar(varname, "?")
		sc.Vars.SetVar("OPTIND", strconv.Itoa(optind+1))
		return 0
	}
	sc.Vars.SetVar(varname, string(opt))
	if idx+1 < len(optstring) && optstring[idx+1] == ':' {
		if optind < len(pos) {
			sc.Vars.SetVar("OPTARG", pos[optind])
			optind++
		}
	}
	sc.Vars.SetVar("OPTIND", strconv.Itoa(optind+1))
	return 0
}

func builtinDisown(_ context.Context, sc *ShellCore, args []string, _ execStream) int {
	id := 0
	if len(args) > 1 {
		id = parseJobID(args[1])
	}
	if j := sc.jobs.byID(id); j != nil {
		sc.jobs.remove(j)
	}
	return 0
}

// lookPath resolves name against $PATH, deduping concurrent lookups of the
// same name through sc.pathLookups so only one of them walks the directory
// list. Shared by `command -v`/`-V`, `type`, and defaultExecHandler, so two
// pipeline stages execing the same command at once only search $PATH once.
func lookPath(sc *ShellCore, name string) (string, error) {
	v, err, _ := sc.pathLookups.Do(name, func() (interface{}, error) {
		pathVar, _ := sc.Vars.GetVar("PATH")
		for _, dir := range strings.Split(pathVar, ":") {
			if dir == "" {
				continue
			}
			candidate := filepath.Join(dir, name)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate, nil
			}
		}
		return "", os.ErrNotExist
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}
