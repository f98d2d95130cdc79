// Copyright (c) 2024, gosh authors
// See LICENSE for licensing information

package pattern

// globLexer walks a glob/case pattern one byte at a time, tracking just
// enough lookbehind for "**" path-element detection.
type globLexer struct {
	src string
	pos int
}

// advance returns the next byte and consumes it, or '\x00' at end of input.
func (l *globLexer) advance() byte {
	if l.pos >= len(l.src) {
		return '\x00'
	}
	c := l.src[l.pos]
	l.pos++
	return c
}

// prev returns the byte just consumed before the current one, used to
// check whether a "*" sits alone at the start of a path element.
func (l *globLexer) prev() byte {
	if l.pos < 2 {
		return '\x00'
	}
	return l.src[l.pos-2]
}

// peek returns the next byte without consuming it.
func (l *globLexer) peek() byte {
	if l.pos >= len(l.src) {
		return '\x00'
	}
	return l.src[l.pos]
}

// rest returns everything not yet consumed.
func (l *globLexer) rest() string {
	return l.src[l.pos:]
}
