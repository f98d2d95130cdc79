// Copyright (c) 2024, gosh authors
// See LICENSE for licensing information

package expand

import (
	"testing"

	"github.com/yanomasao/gosh/feeder"
	"github.com/yanomasao/gosh/syntax"
)

var _ feeder.LineSource = (*onceSource)(nil)

// onceSource feeds a single, already-complete string and then reports EOF;
// it is the same trick syntax's own nested-construct parsing uses to parse
// a fully-buffered string with the streaming Feeder/Parser pair.
type onceSource struct {
	s    string
	done bool
}

func (o *onceSource) NextLine(prompt string) (string, bool) {
	if o.done {
		return "", false
	}
	o.done = true
	return o.s, true
}

func parseWord(t *testing.T, src string) *syntax.Word {
	t.Helper()
	p := syntax.NewParser(&onceSource{s: "w " + src + "\n"}, nil)
	script, err := p.ParseScript()
	if err != nil {
		t.Fatalf("parse %q: %v", src, err)
	}
	sc, ok := script.Jobs[0].Pipelines[0].Commands[0].(*syntax.SimpleCommand)
	if !ok {
		t.Fatalf("parse %q: not a simple command", src)
	}
	if len(sc.Args) < 2 {
		return &syntax.Word{}
	}
	return sc.Args[1]
}

// fakeEnv is a minimal, map-backed Env for exercising the word engine
// without an interp.ShellCore.
type fakeEnv struct {
	vars  map[string]string
	arrs  map[string][]string
	pos   []string
	ifs   string
	home  map[string]string
	spec  map[byte]string
}

func newFakeEnv() *fakeEnv {
	return &fakeEnv{
		vars: map[string]string{},
		arrs: map[string][]string{},
		ifs:  " \t\n",
		home: map[string]string{},
		spec: map[byte]string{},
	}
}

func (e *fakeEnv) GetVar(name string) (string, bool) { v, ok := e.vars[name]; return v, ok }
func (e *fakeEnv) SetVar(name, value string)          { e.vars[name] = value }
func (e *fakeEnv) GetArray(name string) ([]string, bool) {
	a, ok := e.arrs[name]
	return a, ok
}
func (e *fakeEnv) SetArrayElem(name string, index int, value string) {
	a := e.arrs[name]
	for len(a) <= index {
		a = append(a, "")
	}
	a[index] = value
	e.arrs[name] = a
}
func (e *fakeEnv) Positional() []string { return e.pos }
func (e *fakeEnv) Special(c byte) (string, bool) {
	v, ok := e.spec[c]
	return v, ok
}
func (e *fakeEnv) IFS() string { return e.ifs }
func (e *fakeEnv) HomeDir(user string) (string, bool) {
	v, ok := e.home[user]
	return v, ok
}

func TestFieldsLiteral(t *testing.T) {
	env := newFakeEnv()
	cfg := &Config{Env: env, Subst: func(Runnable) (string, error) { return "", nil }}
	got, err := Fields(cfg, parseWord(t, "hello"))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != "hello" {
		t.Fatalf("got %v", got)
	}
}

func TestFieldsParameterDefault(t *testing.T) {
	env := newFakeEnv()
	cfg := &Config{Env: env, Subst: func(Runnable) (string, error) { return "", nil }}
	got, err := Fields(cfg, parseWord(t, `${UNSET:-fallback}`))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != "fallback" {
		t.Fatalf("got %v", got)
	}
}

func TestFieldsSplitting(t *testing.T) {
	env := newFakeEnv()
	env.vars["X"] = "a  b   c"
	cfg := &Config{Env: env, Subst: func(Runnable) (string, error) { return "", nil }}
	got, err := Fields(cfg, parseWord(t, `$X`))
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
}

func TestFieldsQuotedNoSplitting(t *testing.T) {
	env := newFakeEnv()
	env.vars["X"] = "a  b   c"
	cfg := &Config{Env: env, Subst: func(Runnable) (string, error) { return "", nil }}
	got, err := Fields(cfg, parseWord(t, `"$X"`))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != "a  b   c" {
		t.Fatalf("got %v", got)
	}
}

func TestFieldsAtVsStarQuoted(t *testing.T) {
	env := newFakeEnv()
	env.pos = []string{"one", "two three", "four"}
	cfg := &Config{Env: env, Subst: func(Runnable) (string, error) { return "", nil }}

	got, err := Fields(cfg, parseWord(t, `"$@"`))
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"one", "two three", "four"}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}

	got, err = Fields(cfg, parseWord(t, `"$*"`))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != "one two three four" {
		t.Fatalf("got %v", got)
	}
}

func TestFieldsBraceExpansion(t *testing.T) {
	env := newFakeEnv()
	cfg := &Config{Env: env, Subst: func(Runnable) (string, error) { return "", nil }}
	got, err := Fields(cfg, parseWord(t, `file{1..3}.txt`))
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"file1.txt", "file2.txt", "file3.txt"}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
}

func TestFieldsTildeExpansion(t *testing.T) {
	env := newFakeEnv()
	env.home[""] = "/home/alice"
	cfg := &Config{Env: env, Subst: func(Runnable) (string, error) { return "", nil }}
	got, err := Fields(cfg, parseWord(t, `~/work`))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != "/home/alice/work" {
		t.Fatalf("got %v", got)
	}
}

func TestRemoveSuffixLongestVsShortest(t *testing.T) {
	short, err := removeSuffix("a.b.c", "*.", false)
	if err != nil {
		t.Fatal(err)
	}
	if short != "a.b.c" {
		t.Fatalf("got %q", short)
	}
	short, err = removeSuffix("a.b.c", ".*", false)
	if err != nil {
		t.Fatal(err)
	}
	if short != "a.b" {
		t.Fatalf("shortest suffix removal: got %q want %q", short, "a.b")
	}
	long, err := removeSuffix("a.b.c", ".*", true)
	if err != nil {
		t.Fatal(err)
	}
	if long != "a" {
		t.Fatalf("longest suffix removal: got %q want %q", long, "a")
	}
}

func TestApplyCaseUpperFirst(t *testing.T) {
	got, err := applyCase("hello world", true, false, "")
	if err != nil {
		t.Fatal(err)
	}
	if got != "Hello world" {
		t.Fatalf("got %q", got)
	}
}

func TestSplitFieldsNonWhitespaceIFS(t *testing.T) {
	parts := []fieldPart{{str: "a,,b", quoted: false}}
	fields := splitFields(parts, ",")
	if len(fields) != 3 {
		t.Fatalf("got %d fields: %v", len(fields), fields)
	}
	want := []string{"a", "", "b"}
	for i, w := range want {
		if fields[i].text != w {
			t.Fatalf("field %d: got %q want %q", i, fields[i].text, w)
		}
	}
}
