package proc

import "errors"

var (
	// ErrNoStat indicates that /proc/<pid>/stat was empty or malformed.
	ErrNoStat = errors.New("proc: malformed or empty stat")

	// ErrShortStat indicates that /proc/<pid>/stat had fewer fields than expected.
	ErrShortStat = errors.New("proc: short stat")

	// ErrNoChildren indicates that /proc/<pid>/task/*/children contained none.
	ErrNoChildren = errors.New("proc: no children")

	// ErrNoTimeInState indicates that the kernel does not expose per-task
	// /proc/<pid>/time_in_state.
	ErrNoTimeInState = errors.New("proc: no time_in_state")

	// ErrMalformed indicates an unparsable line in a /proc file.
	ErrMalformed = errors.New("proc: malformed line")

	// ErrNoPIDs indicates that Sample was called with no pids.
	ErrNoPIDs = errors.New("proc: no pids")

	// ErrAllExited indicates that none of the sampled pids are alive.
	ErrAllExited = errors.New("proc: all pids exited")
)
