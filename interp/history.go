// Copyright (c) 2024, gosh authors
// See LICENSE for licensing information

package interp

import (
	"bufio"
	"os"
	"strings"
	"sync"

	"github.com/google/renameio/v2"
)

// History is the interpreter's command history: an in-memory list backing
// the `history` builtin, loaded from $HISTFILE by OpenHistory. Save rewrites
// the file atomically, so a crash mid-write never leaves a truncated or
// corrupted history file behind. Neither Add nor Save is called by the
// interpreter or by cmd/gosh, so the commands of a session are not recorded
// in the list and the file is never written.
type History struct {
	mu      sync.Mutex
	path    string
	entries []string
	maxSize int
}

// defaultHistSize is bash's own $HISTFILESIZE default.
const defaultHistSize = 500

// OpenHistory loads path's existing contents (if any) into a new History,
// keeping at most maxSize entries (maxSize <= 0 falls back to
// defaultHistSize, matching an unset or invalid $HISTFILESIZE).
// A missing file is not an error; the file is created on first Save.
func OpenHistory(path string, maxSize int) (*History, error) {
	if maxSize <= 0 {
		maxSize = defaultHistSize
	}
	h := &History{path: path, maxSize: maxSize}
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return h, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		h.entries = append(h.entries, line)
	}
	return h, sc.Err()
}

// Add appends one executed command line to the in-memory history, trimming
// to maxSize.
func (h *History) Add(line string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if strings.TrimSpace(line) == "" {
		return
	}
	h.entries = append(h.entries, line)
	if len(h.entries) > h.maxSize {
		h.entries = h.entries[len(h.entries)-h.maxSize:]
	}
}

// Entries returns a snapshot of the history, oldest first, for the
// `history` builtin and readline recall.
func (h *History) Entries() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.entries))
	copy(out, h.entries)
	return out
}

// Save rewrites the history file from the in-memory list in one atomic
// rename, so a concurrent reader (or a crash mid-write) never observes a
// partially written file.
func (h *History) Save() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	var sb strings.Builder
	for _, e := range h.entries {
		sb.WriteString(e)
		sb.WriteByte('\n')
	}
	return renameio.WriteFile(h.path, []byte(sb.String()), 0o600)
}
