// Copyright (c) 2024, gosh authors
// See LICENSE for licensing information

//go:build !windows

package interp

import (
	"bufio"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/creack/pty"
)

// TestRunnerTerminalStdIO exercises a shell driven through a pseudo-terminal
// the same way an interactive session is, alongside plain pipes, to make
// sure the executor never assumes its standard streams are *os.File.
func TestRunnerTerminalStdIO(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		files func(t *testing.T) (slave io.Writer, master io.Reader)
		want  string
	}{
		{"Nil", func(t *testing.T) (io.Writer, io.Reader) {
			return nil, strings.NewReader("\n")
		}, "\n"},
		{"Pipe", func(t *testing.T) (io.Writer, io.Reader) {
			pr, pw := io.Pipe()
			return pw, pr
		}, "end\n"},
		{"Pseudo", func(t *testing.T) (io.Writer, io.Reader) {
			ptyFile, ttyFile, err := pty.Open()
			if err != nil {
				t.Fatal(err)
			}
			t.Cleanup(func() {
				ptyFile.Close()
				ttyFile.Close()
			})
			return ttyFile, ptyFile
		}, "end\r\n"},
	}

	script, err := syntaxParserFor("echo end\n").ParseScript()
	if err != nil {
		t.Fatal(err)
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			slave, master := tc.files(t)
			slaveReader, _ := slave.(io.Reader)

			sc, err := New(WithStdIO(slaveReader, slave, slave))
			if err != nil {
				t.Fatal(err)
			}
			go func() {
				if err := sc.Run(context.Background(), script); err != nil {
					t.Error(err)
				}
			}()

			got, err := bufio.NewReader(master).ReadString('\n')
			if err != nil {
				t.Fatal(err)
			}
			if got != tc.want {
				t.Fatalf("want %q, got %q", tc.want, got)
			}
		})
	}
}
