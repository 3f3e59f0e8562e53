// Package proc reads per-process CPU accounting from /proc on Linux and turns
// it into estimator snapshots, so live processes can be run through the same
// power model as battery-stats dumps (see pkg/estimator).
//
// Overview
//
//   - Readers:
//     ReadProcStat   : utime/stime jiffies from /proc/<pid>/stat
//     ReadComm       : process name from /proc/<pid>/comm
//     ReadTimeInState: per-frequency jiffies from /proc/<pid>/time_in_state
//     ReadProcChildren, Expand: process tree discovery
//
//   - Collector:
//     NewCollector(prof, uid, log) *Collector
//     Sample(pids) (*estimator.Snapshot, error)
//     SampleCgroup(dir) (*estimator.Snapshot, error)
//
//     The snapshot carries two windows. since_charged holds absolute counters,
//     current holds deltas since the previous Sample. Processes sharing a
//     name are folded into one entry, in first-seen order.
//
//   - Errors (errs.go):
//     ErrNoPIDs        : Sample called with empty pid slice
//     ErrAllExited     : none of the provided pids are alive at sampling time
//     ErrNoTimeInState : kernel has no per-task frequency accounting
//
// # Frequency accounting
//
// time_in_state is an Android kernel feature (CONFIG_CPU_FREQ_TIMES). On
// kernels without it the snapshot has no cluster times and all speed times
// are zero, so only the CPU-active term of the model contributes. Frequencies
// are mapped to (cluster, step) through the power profile; frequencies the
// profile does not list are dropped with a debug log.
//
// # Cgroup v2
//
// SampleCgroup takes the pid list from cgroup.procs and replaces user and
// system time with the group's cpu.stat, which keeps time of exited
// processes. The v2 hierarchy is read-only here; no cgroups are created.
//
// Example: loop with ticker (feed the estimator)
//
//	/*
//	col := proc.NewCollector(profile.Default(), 10001, nil)
//	est := estimator.New(estimator.NewTable(profile.Default()), nil)
//
//	pids := proc.Expand([]int{rootPID})
//	ticker := time.NewTicker(time.Second)
//	defer ticker.Stop()
//
//	for i := 0; i < 20; i++ {
//	    <-ticker.C
//	    snap, err := col.Sample(pids)
//	    if err != nil {
//	        if errors.Is(err, proc.ErrAllExited) { break }
//	        log.Printf("sample error: %v", err)
//	        continue
//	    }
//	    res := est.Estimate(snap, estimator.Current)
//	    log.Printf("cpu=%dms power=%.4fmAh top=%s", res.DurationMs, res.PowerMah, res.PackageWithHighestDrain)
//	}
//	*/
package proc
