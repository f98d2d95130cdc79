// Copyright (c) 2024, gosh authors
// See LICENSE for licensing information

// Package feeder implements the interpreter's buffered input stream: the L
// component of the shell's front end. A Feeder owns a mutable run of
// unconsumed bytes and a pluggable [LineSource] that supplies more of them on
// demand. It knows nothing about shell grammar; it only exposes prefix
// scanners that the parser composes into productions, plus a backup/rewind
// stack so the parser can attempt speculative productions and undo them
// cheaply when they don't match.
package feeder

import "strings"

// LineSource supplies additional input lines to a Feeder on demand. It is
// the collaborator described in the interpreter's design: a terminal reader
// with line editing and history, or a bufio.Scanner wrapping a script file.
// Feeder never reads stdin or a file on its own.
type LineSource interface {
	// NextLine returns one more line of input, prompted with prompt on an
	// interactive terminal (prompt is ignored for non-interactive sources).
	// The returned line should include its trailing newline, if any. ok is
	// false at end of input.
	NextLine(prompt string) (line string, ok bool)
}

// Feeder is a buffered character stream over a LineSource.
type Feeder struct {
	buf    string
	seen   string // every byte ever fed, for Pos/TextSince; never shrinks
	src    LineSource
	backup []string
}

// New creates a Feeder reading from src.
func New(src LineSource) *Feeder {
	return &Feeder{src: src}
}

// Len reports the number of unconsumed, buffered bytes.
func (f *Feeder) Len() int { return len(f.buf) }

// StartsWith reports whether the unconsumed buffer begins with s.
func (f *Feeder) StartsWith(s string) bool {
	return strings.HasPrefix(f.buf, s)
}

// Refer returns the first n bytes of the buffer without consuming them. It
// panics if n exceeds Len; callers must check Len (or a scanner's return
// value) first.
func (f *Feeder) Refer(n int) string {
	return f.buf[:n]
}

// Rest returns the entire unconsumed buffer without consuming it. Useful for
// scanners that need unbounded lookahead (e.g. to find a closing quote).
func (f *Feeder) Rest() string {
	return f.buf
}

// Consume removes and returns the first n bytes of the buffer.
func (f *Feeder) Consume(n int) string {
	s := f.buf[:n]
	f.buf = f.buf[n:]
	return s
}

// FeedAdditionalLine asks the line source for one more line, appending it to
// the buffer, and reports whether one was available. prompt is whatever the
// caller decided to show (PS1 for a fresh command, PS2 for a continuation);
// Feeder has no opinion on which.
func (f *Feeder) FeedAdditionalLine(prompt string) bool {
	line, ok := f.src.NextLine(prompt)
	if !ok {
		return false
	}
	f.buf += line
	f.seen += line
	return true
}

// Pos returns the absolute byte offset of the next unconsumed byte, counting
// from the very start of input. Pair with TextSince to recover the exact
// source text a node was parsed from.
func (f *Feeder) Pos() int { return len(f.seen) - len(f.buf) }

// TextSince returns the source text consumed between a previously recorded
// Pos() and the current position.
func (f *Feeder) TextSince(start int) string {
	return f.seen[start : len(f.seen)-len(f.buf)]
}

// SetBackup snapshots the current buffer position so a speculative parse can
// be undone with Rewind. Snapshots nest LIFO.
func (f *Feeder) SetBackup() {
	f.backup = append(f.backup, f.buf)
}

// PopBackup discards the most recent snapshot after a speculative parse
// succeeded. Popping with no matching SetBackup is a programmer error and
// panics.
func (f *Feeder) PopBackup() {
	if len(f.backup) == 0 {
		panic("feeder: PopBackup without SetBackup")
	}
	f.backup = f.backup[:len(f.backup)-1]
}

// Rewind restores the buffer to the most recent snapshot after a speculative
// parse failed. Rewinding with no matching SetBackup is a programmer error
// and panics.
func (f *Feeder) Rewind() {
	if len(f.backup) == 0 {
		panic("feeder: Rewind without SetBackup")
	}
	n := len(f.backup) - 1
	f.buf = f.backup[n]
	f.backup = f.backup[:n]
}
