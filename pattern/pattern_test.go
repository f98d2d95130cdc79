// Copyright (c) 2024, gosh authors
// See LICENSE for licensing information

package pattern

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

var regexpTests = []struct {
	pat  string
	mode Mode
	want string

	mustMatch    []string
	mustNotMatch []string
}{
	{pat: ``, want: ``},
	{pat: `foo`, want: `foo`},
	{pat: `.`, want: `(?s)\.`},
	{pat: `foo*`, want: `(?s)foo.*`},
	{pat: `foo*`, mode: Shortest, want: `(?sU)foo.*`},
	{
		pat: `*foo`, mode: Filenames | EntireString,
		want:         `(?s)^([^/.][^/]*)?foo$`,
		mustMatch:    []string{"foo", "prefix-foo", "prefix.foo"},
		mustNotMatch: []string{"foo-suffix", "/prefix/foo", ".foo"},
	},
	{
		pat:          `[a-c]*`,
		mustMatch:    []string{"abc"},
		mustNotMatch: []string{"xyz"},
	},
}

func TestRegexp(t *testing.T) {
	t.Parallel()
	c := qt.New(t)
	for _, tc := range regexpTests {
		got, err := Regexp(tc.pat, tc.mode)
		c.Assert(err, qt.IsNil)
		if tc.want != "" {
			c.Assert(got, qt.Equals, tc.want)
		}
		for _, s := range tc.mustMatch {
			ok, err := Match(tc.pat, s, tc.mode|EntireString)
			c.Assert(err, qt.IsNil)
			c.Assert(ok, qt.IsTrue, qt.Commentf("%q should match %q", s, tc.pat))
		}
		for _, s := range tc.mustNotMatch {
			ok, err := Match(tc.pat, s, tc.mode|EntireString)
			c.Assert(err, qt.IsNil)
			c.Assert(ok, qt.IsFalse, qt.Commentf("%q should not match %q", s, tc.pat))
		}
	}
}

func TestHasMeta(t *testing.T) {
	c := qt.New(t)
	c.Assert(HasMeta("plain"), qt.IsFalse)
	c.Assert(HasMeta("a*b"), qt.IsTrue)
	c.Assert(HasMeta("a?b"), qt.IsTrue)
	c.Assert(HasMeta("a[bc]d"), qt.IsTrue)
}

func TestQuoteMeta(t *testing.T) {
	c := qt.New(t)
	got := QuoteMeta("a*b?c")
	ok, err := Match(got, "a*b?c", EntireString)
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsTrue)
}
