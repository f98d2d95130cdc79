// Copyright (c) 2024, gosh authors
// See LICENSE for licensing information

package pattern

import (
	"regexp"
	"strings"
)

// Compile turns a shell glob pattern into a [regexp.Regexp] anchored to match
// an entire string, suitable for case-pattern (`case`, `[[ == ]]`) matching
// rather than path segment matching.
func Compile(pat string, mode Mode) (*regexp.Regexp, error) {
	expr, err := Regexp(pat, mode|EntireString)
	if err != nil {
		return nil, err
	}
	return regexp.Compile(expr)
}

// Match reports whether name matches the glob pattern pat under mode, using
// the whole-string semantics of `case` and `[[ ... == pattern ]]`.
func Match(pat, name string, mode Mode) (bool, error) {
	if !HasMeta(pat) && !strings.Contains(pat, `\`) {
		return pat == name, nil
	}
	re, err := Compile(pat, mode)
	if err != nil {
		return false, err
	}
	return re.MatchString(name), nil
}
