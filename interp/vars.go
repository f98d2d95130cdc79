// Copyright (c) 2024, gosh authors
// See LICENSE for licensing information

package interp

import (
	"os"
	"os/user"
	"sort"
	"strconv"
	"strings"
)

// Variable is one shell variable: either a scalar or an indexed array,
// never both at once.
type Variable struct {
	Value    string
	Array    []string
	IsArray  bool
	Exported bool
	ReadOnly bool
}

// scope is one frame of the variable table's parent chain: the global
// frame, plus one extra frame per active `local` function call.
type scope struct {
	parent *scope
	vars   map[string]*Variable
}

func newScope(parent *scope) *scope {
	return &scope{parent: parent, vars: map[string]*Variable{}}
}

func (s *scope) lookup(name string) (*Variable, *scope) {
	for sc := s; sc != nil; sc = sc.parent {
		if v, ok := sc.vars[name]; ok {
			return v, sc
		}
	}
	return nil, nil
}

// VarTable is the shell's variable table (component S's core data
// structure): a chain of lexical scopes for `local`, plus the special
// parameters ($?, $#, $@, ...) and positional parameters a ShellCore threads
// through command and function execution.
//
// VarTable implements both expr.VarEnv and expand.Env, so the same table
// backs arithmetic evaluation, conditional expressions and word expansion.
type VarTable struct {
	top        *scope
	positional []string
	lastStatus int
	lastBgPID  int
	shellOpts  string // $-, e.g. "ixs"
	scriptName string // $0

	ifs string
}

// NewVarTable creates a variable table seeded from the process environment,
// matching how an interactive shell or script inherits its parent's
// environment on startup.
func NewVarTable() *VarTable {
	vt := &VarTable{top: newScope(nil), ifs: " \t\n", scriptName: "gosh"}
	for _, kv := range os.Environ() {
		name, val, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		vt.top.vars[name] = &Variable{Value: val, Exported: true}
	}
	if _, ok := vt.top.vars["IFS"]; !ok {
		vt.top.vars["IFS"] = &Variable{Value: vt.ifs}
	}
	return vt
}

// Clone makes a deep copy of the variable table for use by a subshell
// `( ... )` or command/process substitution: the copy starts from the same
// values but assignments made through it never affect the original table.
func (vt *VarTable) Clone() *VarTable {
	cp := &VarTable{
		positional: append([]string(nil), vt.positional...),
		lastStatus: vt.lastStatus,
		lastBgPID:  vt.lastBgPID,
		shellOpts:  vt.shellOpts,
		scriptName: vt.scriptName,
		ifs:        vt.ifs,
	}
	var scopes []*scope
	for s := vt.top; s != nil; s = s.parent {
		scopes = append(scopes, s)
	}
	var parent *scope
	for i := len(scopes) - 1; i >= 0; i-- {
		s := newScope(parent)
		for name, v := range scopes[i].vars {
			cpv := *v
			cpv.Array = append([]string(nil), v.Array...)
			s.vars[name] = &cpv
		}
		parent = s
	}
	cp.top = parent
	return cp
}

// PushScope begins a new local-variable frame, used when entering a shell
// function.
func (vt *VarTable) PushScope() { vt.top = newScope(vt.top) }

// PopScope ends the innermost local-variable frame.
func (vt *VarTable) PopScope() {
	if vt.top.parent != nil {
		vt.top = vt.top.parent
	}
}

// GetVar implements expr.VarEnv and expand.Env.
func (vt *VarTable) GetVar(name string) (string, bool) {
	if name == "IFS" {
		return vt.IFS(), true
	}
	v, _ := vt.top.lookup(name)
	if v == nil {
		return "", false
	}
	if v.IsArray {
		if len(v.Array) == 0 {
			return "", true
		}
		return v.Array[0], true
	}
	return v.Value, true
}

// SetVar implements expr.VarEnv and expand.Env.
func (vt *VarTable) SetVar(name, value string) {
	if name == "IFS" {
		vt.ifs = value
	}
	if v, sc := vt.top.lookup(name); v != nil {
		if v.ReadOnly {
			return
		}
		v.Value = value
		v.IsArray = false
		v.Array = nil
		_ = sc
		return
	}
	vt.top.vars[name] = &Variable{Value: value}
}

// SetExported marks name for inclusion in a child process's environment.
func (vt *VarTable) SetExported(name string, exported bool) {
	v, _ := vt.top.lookup(name)
	if v == nil {
		v = &Variable{}
		vt.top.vars[name] = v
	}
	v.Exported = exported
}

// SetReadOnly marks name immutable (`readonly name`).
func (vt *VarTable) SetReadOnly(name string) {
	v, _ := vt.top.lookup(name)
	if v == nil {
		v = &Variable{}
		vt.top.vars[name] = v
	}
	v.ReadOnly = true
}

// Unset removes name from whichever scope currently defines it.
func (vt *VarTable) Unset(name string) {
	if v, sc := vt.top.lookup(name); v != nil {
		if v.ReadOnly {
			return
		}
		delete(sc.vars, name)
	}
}

// SetLocal declares name in only the innermost scope, shadowing any outer
// variable of the same name, matching `local name=value`.
func (vt *VarTable) SetLocal(name, value string) {
	vt.top.vars[name] = &Variable{Value: value}
}

// GetArray implements expand.Env.
func (vt *VarTable) GetArray(name string) ([]string, bool) {
	v, _ := vt.top.lookup(name)
	if v == nil || !v.IsArray {
		return nil, false
	}
	return v.Array, true
}

// SetArrayElem implements expand.Env.
func (vt *VarTable) SetArrayElem(name string, index int, value string) {
	v, _ := vt.top.lookup(name)
	if v == nil {
		v = &Variable{IsArray: true}
		vt.top.vars[name] = v
	}
	if v.ReadOnly {
		return
	}
	if !v.IsArray {
		v.IsArray = true
		if v.Value != "" {
			v.Array = []string{v.Value}
		}
		v.Value = ""
	}
	for len(v.Array) <= index {
		v.Array = append(v.Array, "")
	}
	v.Array[index] = value
}

// SetArray replaces the whole array, matching `name=(a b c)`.
func (vt *VarTable) SetArray(name string, values []string) {
	vt.top.vars[name] = &Variable{IsArray: true, Array: values}
}

// Positional implements expand.Env.
func (vt *VarTable) Positional() []string { return vt.positional }

// SetPositional replaces $1, $2, ... (used by `set --` and function calls).
func (vt *VarTable) SetPositional(args []string) { vt.positional = args }

// Special implements expand.Env: $?, $#, $$, $!, $-, $0. $@ and $* are
// not resolved here (it reports false); they come from Positional.
func (vt *VarTable) Special(c byte) (string, bool) {
	switch c {
	case '?':
		return strconv.Itoa(vt.lastStatus), true
	case '#':
		return strconv.Itoa(len(vt.positional)), true
	case '$':
		return strconv.Itoa(os.Getpid()), true
	case '!':
		if vt.lastBgPID == 0 {
			return "", true
		}
		return strconv.Itoa(vt.lastBgPID), true
	case '-':
		return vt.shellOpts, true
	case '0':
		return vt.scriptName, true
	}
	return "", false
}

// SetLastStatus records the most recent pipeline's exit status, backing $?.
func (vt *VarTable) SetLastStatus(n int) { vt.lastStatus = n }

// LastStatus returns the most recent pipeline's exit status.
func (vt *VarTable) LastStatus() int { return vt.lastStatus }

// SetLastBackgroundPID records $! after launching a background job.
func (vt *VarTable) SetLastBackgroundPID(pid int) { vt.lastBgPID = pid }

// IFS implements expand.Env.
func (vt *VarTable) IFS() string {
	if v, _ := vt.top.lookup("IFS"); v != nil && !v.IsArray {
		return v.Value
	}
	return vt.ifs
}

// HomeDir implements expand.Env: `~` resolves $HOME (falling back to the
// OS user database), `~user` always goes through the user database.
func (vt *VarTable) HomeDir(name string) (string, bool) {
	if name == "" {
		if home, ok := vt.GetVar("HOME"); ok && home != "" {
			return home, true
		}
		if u, err := user.Current(); err == nil {
			return u.HomeDir, true
		}
		return "", false
	}
	u, err := user.Lookup(name)
	if err != nil {
		return "", false
	}
	return u.HomeDir, true
}

// ExecEnv renders the table's exported variables as a `NAME=value` list,
// suitable for exec.Cmd.Env.
func (vt *VarTable) ExecEnv() []string {
	seen := map[string]bool{}
	var out []string
	for sc := vt.top; sc != nil; sc = sc.parent {
		names := make([]string, 0, len(sc.vars))
		for n := range sc.vars {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			if seen[n] {
				continue
			}
			seen[n] = true
			v := sc.vars[n]
			if !v.Exported {
				continue
			}
			if v.IsArray {
				continue // bash does not export indexed arrays
			}
			out = append(out, n+"="+v.Value)
		}
	}
	return out
}

// EachVisible calls f for every variable name visible from the innermost
// scope outward, skipping names already seen in an inner scope. Used by
// the `export` and `readonly` builtins to list variables.
func (vt *VarTable) EachVisible(f func(name string, v *Variable)) {
	seen := map[string]bool{}
	for sc := vt.top; sc != nil; sc = sc.parent {
		names := make([]string, 0, len(sc.vars))
		for n := range sc.vars {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			if seen[n] {
				continue
			}
			seen[n] = true
			f(n, sc.vars[n])
		}
	}
}
