// Package estimator attributes CPU battery drain to applications.
//
// The model adds up three linear terms:
//   - CPU active power:    the constant charge consumed while the CPU is on
//   - Per cluster power:   the additional charge of a running cluster
//   - Per frequency power: the additional charge caused by frequency scaling
//
// Coefficients come from a power profile (see pkg/profile) and are fixed
// when the Estimator is built. Counters come from a Unit, one per UID.
package estimator

import (
	"log/slog"

	"github.com/ja7ad/cpupower/pkg/types"
)

// fgSlackMs is how far foreground time may run ahead of CPU time before the
// clamp is worth a debug line.
const fgSlackMs = 10_000

// Estimator computes per-unit CPU estimates. It holds no mutable state and is
// safe for concurrent use.
type Estimator struct {
	table *Table
	log   *slog.Logger
}

// New creates an estimator over table. A nil logger means slog.Default().
func New(table *Table, log *slog.Logger) *Estimator {
	if log == nil {
		log = slog.Default()
	}
	return &Estimator{table: table, log: log}
}

// Table returns the coefficient table.
func (e *Estimator) Table() *Table { return e.table }

// Terms is the decomposition of Result.PowerMah. Clusters is nil when the
// cluster term was skipped.
type Terms struct {
	Active   float64
	Clusters []float64
	Steps    [][]float64
}

// Total returns active + Σ clusters + Σ steps.
func (t Terms) Total() float64 {
	total := t.Active
	for _, p := range t.Clusters {
		total += p
	}
	for _, steps := range t.Steps {
		for _, p := range steps {
			total += p
		}
	}
	return total
}

// Terms computes the three power terms for u.
func (e *Estimator) Terms(u Unit, which StatsType) Terms {
	n := e.table.NumClusters()
	terms := Terms{
		Active: e.table.Active().Apply(u.CPUActiveTime()),
		Steps:  make([][]float64, n),
	}

	if clusterTimes := u.CPUClusterTimes(); clusterTimes != nil {
		if len(clusterTimes) == n {
			terms.Clusters = make([]float64, n)
			for c := 0; c < n; c++ {
				terms.Clusters[c] = e.table.Cluster(c).Apply(clusterTimes[c])
				e.log.Debug("cpu cluster",
					"uid", u.UID(), "cluster", c,
					"cluster_time_ms", clusterTimes[c],
					"power", types.Charge(terms.Clusters[c]).Humanized())
			}
		} else {
			e.log.Warn("cpu cluster count mismatch",
				"uid", u.UID(), "profile", n, "actual", len(clusterTimes))
		}
	}

	// Step counts come from the table itself, so there is no shape check here.
	for c := 0; c < n; c++ {
		steps := e.table.NumSteps(c)
		terms.Steps[c] = make([]float64, steps)
		for s := 0; s < steps; s++ {
			timeUs := u.TimeAtCPUSpeedUs(c, s, which)
			terms.Steps[c][s] = e.table.Step(c, s).Apply(int64(types.Micros(timeUs).Millis()))
			e.log.Debug("cpu step",
				"uid", u.UID(), "cluster", c, "step", s,
				"time_us", timeUs,
				"power", types.Charge(terms.Steps[c][s]).Humanized())
		}
	}
	return terms
}

// Estimate computes the CPU duration, charge and top process of u for the
// given stats window. It never fails: a cluster count mismatch drops the
// cluster term, and foreground time ahead of CPU time raises the CPU time.
func (e *Estimator) Estimate(u Unit, which StatsType) Result {
	durationMs := int64(types.Micros(u.UserCPUTimeUs(which) + u.SystemCPUTimeUs(which)).Millis())
	powerMah := e.Terms(u, which).Total()

	if durationMs != 0 || powerMah != 0 {
		e.log.Debug("cpu",
			"uid", u.UID(), "time_ms", durationMs,
			"power", types.Charge(powerMah).Humanized())
	}

	var (
		durationFgMs int64
		highestDrain int64
		top          *ProcessStats
	)
	procs := u.ProcessStats(which)
	for i := range procs {
		ps := &procs[i]
		durationFgMs += ps.ForegroundTimeMs

		// An app may run several processes; keep the one with the highest
		// cost. Synthetic entries only hold the slot until a real one shows up.
		cost := ps.Cost()
		if top == nil || top.Synthetic {
			highestDrain = cost
			top = ps
		} else if highestDrain < cost && !ps.Synthetic {
			highestDrain = cost
			top = ps
		}
	}

	// Foreground time is updated independently and may not have been folded
	// into CPU time yet.
	if durationFgMs > durationMs {
		if durationFgMs > durationMs+fgSlackMs {
			e.log.Debug("cpu time more than 10s behind foreground time",
				"uid", u.UID(), "cpu_ms", durationMs, "fg_ms", durationFgMs)
		}
		durationMs = durationFgMs
	}

	res := Result{
		DurationMs:   durationMs,
		PowerMah:     powerMah,
		DurationFgMs: durationFgMs,
	}
	if top != nil {
		res.PackageWithHighestDrain = top.Name
	}
	return res
}
