// Copyright (c) 2024, gosh authors
// See LICENSE for licensing information

package interp

import (
	"sync"
	"testing"
	"time"
)

// TestPgroupLeftmostLeader checks that even when later stages resolve
// first, the pipeline's process group always ends up led by whichever
// stage is leftmost among those that actually started an external command.
func TestPgroupLeftmostLeader(t *testing.T) {
	t.Parallel()
	pg := newPgroup(3)

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		// Stage 2 is a builtin stage: it never starts a process, so it
		// resolves immediately, well before stage 0 or 1 do.
		pg.resolve(2, 0)
	}()
	go func() {
		defer wg.Done()
		time.Sleep(5 * time.Millisecond)
		// attrFor blocks until stage 0 has resolved, so stage 1 joins
		// stage 0's group as a follower.
		attr := pg.attrFor(1)
		if attr.Pgid != 111 {
			t.Errorf("stage 1: want to join stage 0's group 111, got pgid %d", attr.Pgid)
		}
		pg.resolve(1, 222)
	}()
	go func() {
		defer wg.Done()
		time.Sleep(10 * time.Millisecond)
		attr := pg.attrFor(0)
		if attr.Pgid != 0 {
			t.Errorf("stage 0: want a fresh-leader attr (pgid 0), got %d", attr.Pgid)
		}
		pg.resolve(0, 111)
	}()
	wg.Wait()

	if got := pg.established(); got != 111 {
		t.Fatalf("established() = %d, want 111 (stage 0's pid, the leftmost to actually exec)", got)
	}
}

// TestPgroupResolveIdempotent checks that a second resolve call for the same
// stage is a no-op, matching resolvePG being safely callable alongside an
// external command's own pg.resolve in defaultExecHandler.
func TestPgroupResolveIdempotent(t *testing.T) {
	t.Parallel()
	pg := newPgroup(1)
	pg.resolve(0, 42)
	pg.resolve(0, 99)
	if got := pg.established(); got != 42 {
		t.Fatalf("established() = %d, want 42 (first resolve wins)", got)
	}
}

func TestHandoffTTYNoopWithoutFile(t *testing.T) {
	t.Parallel()
	restore := handoffTTY(nil, 123)
	restore() // must not panic even though in isn't an *os.File
}
