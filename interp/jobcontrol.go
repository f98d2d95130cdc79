// Copyright (c) 2024, gosh authors
// See LICENSE for licensing information

package interp

import (
	"io"
	"os"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"
)

// pgroup coordinates the process group a pipeline's external-command stages
// join: a single SIGINT, or `kill -INT %1`, must reach every process in the
// pipeline at once, the same reason a real shell forks every stage of a
// pipeline into one process group before handing it the terminal.
//
// Stage i must not start its external command until every earlier stage
// has resolved its own role (process-group leader, follower, or not
// external at all), so the pipeline's leftmost external command is always
// the one whose pid becomes the group's pgid, matching a real shell's
// left-to-right fork order even though gosh otherwise runs a pipeline's
// stages concurrently.
type pgroup struct {
	mu    sync.Mutex
	pgid  int
	once  []sync.Once
	turns []chan struct{}
}

func newPgroup(n int) *pgroup {
	g := &pgroup{once: make([]sync.Once, n), turns: make([]chan struct{}, n)}
	for i := range g.turns {
		g.turns[i] = make(chan struct{})
	}
	return g
}

// attrFor blocks until every stage before i has resolved its role, then
// returns the SysProcAttr stage i's external command should start with:
// a fresh group leader if none exists yet in this pipeline, or a follower
// joining the leader already established.
func (g *pgroup) attrFor(i int) *syscall.SysProcAttr {
	for j := 0; j < i; j++ {
		<-g.turns[j]
	}
	g.mu.Lock()
	pgid := g.pgid
	g.mu.Unlock()
	if pgid != 0 {
		return &syscall.SysProcAttr{Setpgid: true, Pgid: pgid}
	}
	return &syscall.SysProcAttr{Setpgid: true}
}

// resolve records stage i's pid (0 if it never started an external
// command) and releases any later stage blocked in attrFor. Safe to call
// more than once per stage; only the first call has any effect.
func (g *pgroup) resolve(i, pid int) {
	g.once[i].Do(func() {
		if pid != 0 {
			g.mu.Lock()
			if g.pgid == 0 {
				g.pgid = pid
			}
			g.mu.Unlock()
		}
		close(g.turns[i])
	})
}

// established returns the pipeline's process group id, or 0 if no stage
// ever started an external command.
func (g *pgroup) established() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pgid
}

// handoffTTY gives the controlling terminal's foreground process group to
// pgid for the duration of a foreground pipeline, so the pipeline (rather
// than gosh itself) receives ^C/^Z and terminal reads, matching a job
// control shell's tcsetpgrp dance around every foreground job. The
// returned restore func hands the terminal back to gosh's own process
// group; it is always safe to call, and is a no-op when in isn't a real
// controlling terminal or pgid was never established.
func handoffTTY(in io.Reader, pgid int) (restore func()) {
	noop := func() {}
	f, ok := in.(*os.File)
	if !ok || pgid == 0 {
		return noop
	}
	fd := int(f.Fd())
	shellPgid, err := unix.IoctlGetInt(fd, unix.TIOCGPGRP)
	if err != nil {
		return noop
	}
	if err := unix.IoctlSetInt(fd, unix.TIOCSPGRP, pgid); err != nil {
		return noop
	}
	return func() {
		_ = unix.IoctlSetInt(fd, unix.TIOCSPGRP, shellPgid)
	}
}
