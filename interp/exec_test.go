// Copyright (c) 2024, gosh authors
// See LICENSE for licensing information

package interp

import (
	"bytes"
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// TestSigintAbortsLoop checks that flipping the shared SIGINT flag unwinds
// a runaway `while true` the way ^C does at an interactive prompt, instead
// of only being stoppable by killing the process.
func TestSigintAbortsLoop(t *testing.T) {
	t.Parallel()
	script, err := syntaxParserFor("while true; do :; done; echo after").ParseScript()
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	sigint := new(atomic.Bool)
	sc, err := New(WithStdIO(strings.NewReader(""), &out, &out), WithSigintFlag(sigint))
	if err != nil {
		t.Fatal(err)
	}
	go func() {
		time.Sleep(20 * time.Millisecond)
		sigint.Store(true)
	}()
	done := make(chan error, 1)
	go func() { done <- sc.Run(context.Background(), script) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("sc.Run did not return after SIGINT flag was set")
	}
	// The unwind aborts "echo after" too, since interruptedAbort propagates
	// up through runScript's job loop, not just out of the while loop.
	if out.String() != "" {
		t.Fatalf("stdout = %q, want empty (command after the loop should not run)", out.String())
	}
}

// runStatusTests checks the status a script leaves behind: either the exit
// code from an explicit `exit`/`return`, or the last pipeline's status.
var runStatusTests = []struct {
	in   string
	want int
}{
	{"", 0},
	{"true", 0},
	{":", 0},
	{"exit", 0},
	{"exit 0", 0},
	{"{ :; }", 0},
	{"(:)", 0},

	{"exit 1", 1},
	{"false", 1},
	{"! false", 0},
	{"! true", 1},
	{"false; true", 0},
	{"true && false", 1},
	{"false || true", 0},

	{"[[ foo == foo ]]", 0},
	{"[[ foo == bar ]]", 1},
	{"((3 > 2))", 0},
	{"((1 > 2))", 1},

	{"if true; then echo yes; else echo no; fi", 0},
	{"if false; then echo yes; fi", 0},
	{"case foo in foo) true;; *) false;; esac", 0},
	{"case foo in bar) true;; *) false;; esac", 1},

	{"f() { return 3; }; f", 3},
}

func TestRunStatus(t *testing.T) {
	t.Parallel()
	for _, tc := range runStatusTests {
		tc := tc
		t.Run("", func(t *testing.T) {
			t.Parallel()
			script, err := syntaxParserFor(tc.in).ParseScript()
			if err != nil {
				t.Fatalf("parse %q: %v", tc.in, err)
			}
			var out bytes.Buffer
			sc, err := New(WithStdIO(strings.NewReader(""), &out, &out))
			if err != nil {
				t.Fatal(err)
			}
			if err := sc.Run(context.Background(), script); err != nil {
				t.Fatalf("%q: unexpected error: %v", tc.in, err)
			}
			got := sc.Vars.LastStatus()
			if sc.Exited() {
				got = sc.ExitCode()
			}
			if got != tc.want {
				t.Fatalf("%q: status = %d, want %d (stdout=%q)", tc.in, got, tc.want, out.String())
			}
		})
	}
}

var outputTests = []struct {
	in, want string
}{
	{"echo foo", "foo\n"},
	{"echo foo bar", "foo bar\n"},
	{"echo -n foo", "foo"},

	{"foo=bar; echo $foo", "bar\n"},
	{"foo=bar echo $foo", "\n"},
	{"foo=bar; foo=baz; echo $foo", "baz\n"},
	{"export foo=bar; echo $foo", "bar\n"},
	{"unset foo; foo=bar; unset foo; echo $foo", "\n"},
	{"readonly foo=bar; foo=baz; echo $foo", "bar\n"},

	{"echo $((1 + 2))", "3\n"},
	{"[[ foo == foo ]] && echo yes", "yes\n"},
	{"[[ foo == bar ]] || echo no", "no\n"},
	{"((3 > 2)) && echo yes", "yes\n"},

	{"for i in a b c; do echo $i; done", "a\nb\nc\n"},
	{"i=0; while (( i < 3 )); do echo $i; i=$((i+1)); done", "0\n1\n2\n"},
	{"if true; then echo yes; else echo no; fi", "yes\n"},
	{"if false; then echo yes; else echo no; fi", "no\n"},
	{"case foo in foo) echo match;; *) echo nomatch;; esac", "match\n"},

	{"f() { echo called; }; f", "called\n"},
	{"f() { echo $1; }; f hi", "hi\n"},

	{"echo foo | cat", "foo\n"},
	{"echo $(echo nested)", "nested\n"},
	{"echo a$(echo b)c", "abc\n"},

	{"(x=1); echo $x", "\n"},
	{"echo $BASH_SUBSHELL; (echo $BASH_SUBSHELL); echo $BASH_SUBSHELL", "\n1\n\n"},
	{"command -v echo", "echo\n"},
	{"command -V true", "true is a shell builtin\n"},
}

func TestRunOutput(t *testing.T) {
	t.Parallel()
	for _, tc := range outputTests {
		tc := tc
		t.Run("", func(t *testing.T) {
			t.Parallel()
			script, err := syntaxParserFor(tc.in).ParseScript()
			if err != nil {
				t.Fatalf("parse %q: %v", tc.in, err)
			}
			var out bytes.Buffer
			sc, err := New(WithStdIO(strings.NewReader(""), &out, &out))
			if err != nil {
				t.Fatal(err)
			}
			if err := sc.Run(context.Background(), script); err != nil {
				t.Fatalf("%q: unexpected error: %v", tc.in, err)
			}
			if out.String() != tc.want {
				t.Fatalf("%q: stdout = %q, want %q", tc.in, out.String(), tc.want)
			}
		})
	}
}
