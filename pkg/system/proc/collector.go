//go:build linux

package proc

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/ja7ad/cpupower/pkg/estimator"
	"github.com/ja7ad/cpupower/pkg/profile"
	"github.com/ja7ad/cpupower/pkg/system/cgroup"
	"github.com/ja7ad/cpupower/pkg/system/util"
)

// Collector turns /proc counters of a pid group into estimator snapshots.
//   - since_charged: absolute counters (since each process started)
//   - current:       deltas since the previous Sample; on the first Sample
//     this equals since_charged
//
// Active and cluster times are absolute, like the kernel reports them.
type Collector struct {
	prof   *profile.Profile
	uid    int
	clkTck int
	root   string
	log    *slog.Logger

	// Per-PID prev counters
	prev map[int]taskCounters

	// cgroup prev counters, used by SampleCgroup
	cgPrev cgroup.CPUStat
}

type taskCounters struct {
	utime, stime uint64
	speeds       [][]uint64 // ticks per [cluster][step]
}

// NewCollector creates a collector attributing samples to uid. Frequencies
// in time_in_state are mapped to clusters through prof.
func NewCollector(prof *profile.Profile, uid int, log *slog.Logger) *Collector {
	if log == nil {
		log = slog.Default()
	}
	return &Collector{
		prof:   prof,
		uid:    uid,
		clkTck: ClockTicks(),
		root:   Root,
		log:    log,
		prev:   make(map[int]taskCounters),
	}
}

func (c *Collector) newSpeeds() [][]uint64 {
	out := make([][]uint64, c.prof.NumCPUClusters())
	for i := range out {
		out[i] = make([]uint64, c.prof.NumSpeedStepsInCPUCluster(i))
	}
	return out
}

// procAgg accumulates per-process-name times in ticks, keeping first-seen order.
type procAgg struct {
	order []string
	ticks map[string]*[2]uint64
}

func newProcAgg() *procAgg { return &procAgg{ticks: map[string]*[2]uint64{}} }

func (a *procAgg) add(name string, utime, stime uint64) {
	t, ok := a.ticks[name]
	if !ok {
		t = &[2]uint64{}
		a.ticks[name] = t
		a.order = append(a.order, name)
	}
	t[0] += utime
	t[1] += stime
}

func (a *procAgg) stats(clkTck int) []estimator.ProcessStats {
	out := make([]estimator.ProcessStats, 0, len(a.order))
	for _, name := range a.order {
		t := a.ticks[name]
		out = append(out, estimator.ProcessStats{
			Name:         name,
			UserTimeMs:   TicksToMicros(t[0], clkTck) / 1000,
			SystemTimeMs: TicksToMicros(t[1], clkTck) / 1000,
		})
	}
	return out
}

// Sample reads the counters of pids and returns a snapshot. Pids that have
// exited are skipped; ErrAllExited is returned when none are left.
func (c *Collector) Sample(pids []int) (*estimator.Snapshot, error) {
	if len(pids) == 0 {
		return nil, ErrNoPIDs
	}

	var (
		absUser, absSys uint64
		curUser, curSys uint64
		absSpeeds       = c.newSpeeds()
		curSpeeds       = c.newSpeeds()
		absProcs        = newProcAgg()
		curProcs        = newProcAgg()
		hasTIS          bool
		alive           int
		next            = make(map[int]taskCounters, len(pids))
	)
	for _, pid := range pids {
		if !exists(c.root, pid) {
			continue
		}
		ut, st, err := readProcStat(c.root, pid)
		if err != nil {
			c.log.Debug("skip pid", "pid", pid, "err", err)
			continue
		}
		alive++

		name, err := readComm(c.root, pid)
		if err != nil || name == "" {
			name = strconv.Itoa(pid)
		}

		now := taskCounters{utime: ut, stime: st, speeds: c.newSpeeds()}
		if tis, err := readTimeInState(c.root, pid); err == nil {
			hasTIS = true
			for _, ft := range tis {
				cl, step, err := c.prof.ClusterForFrequency(ft.FreqKHz)
				if err != nil {
					c.log.Debug("frequency not in profile", "pid", pid, "khz", ft.FreqKHz)
					continue
				}
				now.speeds[cl][step] += ft.Ticks
			}
		}

		prev := c.prev[pid]
		du := util.DeltaU64(now.utime, prev.utime)
		ds := util.DeltaU64(now.stime, prev.stime)

		absUser += now.utime
		absSys += now.stime
		curUser += du
		curSys += ds
		absProcs.add(name, now.utime, now.stime)
		curProcs.add(name, du, ds)

		for cl := range now.speeds {
			for step, ticks := range now.speeds[cl] {
				absSpeeds[cl][step] += ticks
				var before uint64
				if cl < len(prev.speeds) && step < len(prev.speeds[cl]) {
					before = prev.speeds[cl][step]
				}
				curSpeeds[cl][step] += util.DeltaU64(ticks, before)
			}
		}
		next[pid] = now
	}
	if alive == 0 {
		return nil, ErrAllExited
	}
	c.prev = next

	snap := &estimator.Snapshot{
		UserID:       c.uid,
		ActiveTimeMs: TicksToMicros(absUser+absSys, c.clkTck) / 1000,
		Windows: map[estimator.StatsType]estimator.Window{
			estimator.SinceCharged: {
				UserCPUTimeUs:   TicksToMicros(absUser, c.clkTck),
				SystemCPUTimeUs: TicksToMicros(absSys, c.clkTck),
				SpeedTimesUs:    c.toMicros(absSpeeds),
				Processes:       absProcs.stats(c.clkTck),
			},
			estimator.Current: {
				UserCPUTimeUs:   TicksToMicros(curUser, c.clkTck),
				SystemCPUTimeUs: TicksToMicros(curSys, c.clkTck),
				SpeedTimesUs:    c.toMicros(curSpeeds),
				Processes:       curProcs.stats(c.clkTck),
			},
		},
	}
	// Without time_in_state there is no cluster data at all, which is not
	// the same as a cluster count mismatch.
	if hasTIS {
		snap.ClusterTimesMs = make([]int64, len(absSpeeds))
		for cl, steps := range absSpeeds {
			var ticks uint64
			for _, t := range steps {
				ticks += t
			}
			snap.ClusterTimesMs[cl] = TicksToMicros(ticks, c.clkTck) / 1000
		}
	}
	return snap, nil
}

// SampleCgroup samples every process of the cgroup v2 directory dir. User and
// system time come from the cgroup's cpu.stat, which also counts processes
// that have already exited. An emptied cgroup yields ErrAllExited.
func (c *Collector) SampleCgroup(dir string) (*estimator.Snapshot, error) {
	pids, err := cgroup.ReadProcs(dir)
	if err != nil {
		return nil, fmt.Errorf("cgroup procs: %w", err)
	}
	if len(pids) == 0 {
		return nil, fmt.Errorf("cgroup %s: %w", dir, ErrAllExited)
	}
	snap, err := c.Sample(pids)
	if err != nil {
		return nil, err
	}
	st, err := cgroup.ReadCPUStat(dir)
	if err != nil {
		return nil, fmt.Errorf("cgroup cpu.stat: %w", err)
	}

	abs := snap.Windows[estimator.SinceCharged]
	abs.UserCPUTimeUs = int64(st.UserUsec)
	abs.SystemCPUTimeUs = int64(st.SystemUsec)
	snap.Windows[estimator.SinceCharged] = abs

	cur := snap.Windows[estimator.Current]
	cur.UserCPUTimeUs = int64(util.DeltaU64(st.UserUsec, c.cgPrev.UserUsec))
	cur.SystemCPUTimeUs = int64(util.DeltaU64(st.SystemUsec, c.cgPrev.SystemUsec))
	snap.Windows[estimator.Current] = cur

	snap.ActiveTimeMs = int64(st.UsageUsec / 1000)
	c.cgPrev = st
	return snap, nil
}

func (c *Collector) toMicros(ticks [][]uint64) [][]int64 {
	out := make([][]int64, len(ticks))
	for cl := range ticks {
		out[cl] = make([]int64, len(ticks[cl]))
		for step, t := range ticks[cl] {
			out[cl][step] = TicksToMicros(t, c.clkTck)
		}
	}
	return out
}
