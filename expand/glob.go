// Copyright (c) 2024, gosh authors
// See LICENSE for licensing information

package expand

import (
	"os"
	"sort"
	"strings"

	"github.com/yanomasao/gosh/pattern"
)

// globField performs the sixth and final pipeline stage on one split field.
// A field that was ever quoted, or that contains no glob metacharacters, is
// returned unchanged; otherwise it is matched against the filesystem one
// path segment at a time.
func globField(cfg *Config, fr fieldResult) ([]string, error) {
	if fr.quoted || cfg.Opts.NoGlob || !pattern.HasMeta(fr.text) {
		return []string{fr.text}, nil
	}
	matches, err := globPath(cfg, fr.text)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		if cfg.Opts.FailGlob {
			return nil, &GlobError{Pattern: fr.text}
		}
		if cfg.Opts.NullGlob {
			return nil, nil
		}
		return []string{fr.text}, nil
	}
	sort.Strings(matches)
	return matches, nil
}

func globMode(cfg *Config) pattern.Mode {
	m := pattern.Filenames
	if cfg.Opts.NoCase {
		m |= pattern.NoGlobCase
	}
	if !cfg.Opts.GlobStar {
		m |= pattern.NoGlobStar
	}
	return m
}

// globPath walks pat one '/'-separated segment at a time, expanding a
// metacharacter segment against cfg.ReadDir and passing a literal segment
// through as a plain existence check via cfg.Stat.
func globPath(cfg *Config, pat string) ([]string, error) {
	abs := strings.HasPrefix(pat, "/")
	rawSegs := strings.Split(pat, "/")
	var segs []string
	for i, s := range rawSegs {
		if s == "" && i != 0 {
			continue
		}
		segs = append(segs, s)
	}
	prefixes := []string{""}
	if abs {
		prefixes = []string{"/"}
		segs = segs[1:]
	}
	mode := globMode(cfg)
	for _, seg := range segs {
		if seg == "" {
			continue
		}
		var next []string
		if !pattern.HasMeta(seg) {
			for _, p := range prefixes {
				candidate := joinPath(p, seg)
				if cfg.Stat == nil {
					continue
				}
				if _, err := cfg.Stat(candidate); err == nil {
					next = append(next, candidate)
				}
			}
		} else {
			re, err := pattern.Compile(seg, mode)
			if err != nil {
				return nil, err
			}
			for _, p := range prefixes {
				if cfg.ReadDir == nil {
					continue
				}
				names, err := cfg.ReadDir(dirArg(p))
				if err != nil {
					continue
				}
				for _, name := range names {
					if strings.HasPrefix(name, ".") && !strings.HasPrefix(seg, ".") {
						continue
					}
					if re.MatchString(name) {
						next = append(next, joinPath(p, name))
					}
				}
			}
		}
		prefixes = next
		if len(prefixes) == 0 {
			break
		}
	}
	return prefixes, nil
}

func joinPath(dir, name string) string {
	switch {
	case dir == "":
		return name
	case dir == "/":
		return "/" + name
	case strings.HasSuffix(dir, "/"):
		return dir + name
	default:
		return dir + "/" + name
	}
}

func dirArg(p string) string {
	if p == "" {
		return "."
	}
	return p
}

// ReadDirDefault and StatDefault are the real-filesystem implementations of
// the Config collaborators, wired by interp's ShellCore; tests supply fakes
// instead.
func ReadDirDefault(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	return names, nil
}

func StatDefault(path string) (os.FileInfo, error) {
	return os.Lstat(path)
}
