// Copyright (c) 2024, gosh authors
// See LICENSE for licensing information

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"

	"github.com/yanomasao/gosh/interp"
)

// TestMain lets testscript re-exec this test binary as the gosh command
// itself, so fixtures under testdata/scripts can run `exec gosh ...` against
// the real CLI without installing it anywhere first.
func TestMain(m *testing.M) {
	os.Exit(testscript.RunMain(m, map[string]func() int{
		"gosh": main1,
	}))
}

// TestScripts drives every testdata/scripts/*.txt fixture: each is a tiny
// session transcript asserting gosh's stdout/stderr/exit code for a given
// invocation, the same harness shape the teacher uses for its own CLI.
func TestScripts(t *testing.T) {
	t.Parallel()
	testscript.Run(t, testscript.Params{
		Dir: filepath.Join("testdata", "scripts"),
		Setup: func(env *testscript.Env) error {
			bindir := filepath.Join(env.WorkDir, ".bin")
			if err := os.Mkdir(bindir, 0o777); err != nil {
				return err
			}
			binfile := filepath.Join(bindir, "gosh")
			if runtime.GOOS == "windows" {
				binfile += ".exe"
			}
			if err := os.Symlink(os.Args[0], binfile); err != nil {
				return err
			}
			env.Vars = append(env.Vars, fmt.Sprintf("PATH=%s%c%s", bindir, filepath.ListSeparator, os.Getenv("PATH")))
			return nil
		},
	})
}

// Each test has an even number of strings, forming input-output pairs for
// the interactive shell: the input string is fed to the interactive shell,
// and bytes are read from its output until the expected output string is
// matched. The first "$ " output is implicit and is consumed before the
// pairs are checked.
var interactiveTests = []struct {
	pairs   []string
	wantErr string
}{
	{},
	{
		pairs: []string{
			"\n",
			"$ ",
			"\n",
			"$ ",
		},
	},
	{
		pairs: []string{
			"echo foo\n",
			"foo\n",
		},
	},
	{
		pairs: []string{
			"echo foo\n",
			"foo\n$ ",
			"echo bar\n",
			"bar\n",
		},
	},
	{
		pairs: []string{
			"if true\n",
			"> ",
			"then echo bar; fi\n",
			"bar\n",
		},
	},
	{
		pairs: []string{
			"echo foo; echo bar\n",
			"foo\nbar\n",
		},
	},
	{
		pairs: []string{
			"(\n",
			"> ",
			"echo foo)\n",
			"foo\n",
		},
	},
	{
		pairs: []string{
			"echo foo ||\n",
			"> ",
			"echo bar\n",
			"foo\n",
		},
	},
}

func TestInteractive(t *testing.T) {
	t.Parallel()
	for i, tc := range interactiveTests {
		tc := tc
		t.Run(fmt.Sprintf("%02d", i), func(t *testing.T) {
			t.Parallel()
			inReader, inWriter := io.Pipe()
			outReader, outWriter := io.Pipe()
			sc, err := interp.New(interp.WithStdIO(inReader, outWriter, outWriter))
			if err != nil {
				t.Fatal(err)
			}
			errc := make(chan error, 1)
			go func() {
				errc <- runInteractive(context.Background(), sc, inReader, outWriter)
				io.Copy(io.Discard, inReader)
			}()

			if err := readString(outReader, "$ "); err != nil {
				t.Fatal(err)
			}

			pairs := tc.pairs
			for len(pairs) > 0 {
				if _, err := io.WriteString(inWriter, pairs[0]); err != nil {
					t.Fatal(err)
				}
				if err := readString(outReader, pairs[1]); err != nil {
					t.Fatal(err)
				}
				pairs = pairs[2:]
			}

			inWriter.Close()
			outReader.Close()

			err = <-errc
			if err != nil && tc.wantErr == "" {
				t.Fatalf("unexpected error: %v", err)
			} else if tc.wantErr != "" && fmt.Sprint(err) != tc.wantErr {
				t.Fatalf("want error %q, got: %v", tc.wantErr, err)
			}
		})
	}
}

func TestInteractiveExit(t *testing.T) {
	inReader, inWriter := io.Pipe()
	defer inReader.Close()
	go io.WriteString(inWriter, "exit\n")
	sc, err := interp.New(interp.WithStdIO(inReader, io.Discard, io.Discard))
	if err != nil {
		t.Fatal(err)
	}
	if err := runInteractive(context.Background(), sc, inReader, io.Discard); err != nil {
		t.Fatal("expected a nil error")
	}
}

// readString keeps reading from r until all bytes of want have arrived.
func readString(r io.Reader, want string) error {
	p := make([]byte, len(want))
	if _, err := io.ReadFull(r, p); err != nil {
		return err
	}
	if got := string(p); got != want {
		return fmt.Errorf("readString: read %q, wanted %q", got, want)
	}
	return nil
}
