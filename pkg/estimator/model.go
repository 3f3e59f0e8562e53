package estimator

import (
	"fmt"

	"github.com/ja7ad/cpupower/pkg/profile"
)

// msPerHour converts an average current in mA to charge per millisecond.
const msPerHour = 60 * 60 * 1000

// Coefficient is a charge-per-time constant: Apply(t) is the charge consumed
// while drawing this average current for t time units.
type Coefficient float64

// FromMilliamps returns the coefficient for an average current of ma, with
// time measured in milliseconds and charge in mAh.
func FromMilliamps(ma float64) Coefficient { return Coefficient(ma / msPerHour) }

// Apply returns the charge for duration t.
func (c Coefficient) Apply(t int64) float64 { return float64(c) * float64(t) }

// Table holds the linear coefficients of the time-in-state CPU model:
//   - Active:   constant draw while the CPU is on
//   - Clusters: additional draw of a running cluster, one per cluster
//   - Steps:    additional draw per cluster per scaling frequency; clusters may
//     have different numbers of steps
//
// A Table never changes after construction and may be shared freely.
type Table struct {
	active   Coefficient
	clusters []Coefficient
	steps    [][]Coefficient
}

// NewTable builds the coefficient table from a power profile.
func NewTable(p *profile.Profile) *Table {
	n := p.NumCPUClusters()
	t := &Table{
		active:   FromMilliamps(p.CPUActive()),
		clusters: make([]Coefficient, n),
		steps:    make([][]Coefficient, n),
	}
	for c := 0; c < n; c++ {
		t.clusters[c] = FromMilliamps(p.AveragePowerForCPUCluster(c))
		speeds := p.NumSpeedStepsInCPUCluster(c)
		t.steps[c] = make([]Coefficient, speeds)
		for s := 0; s < speeds; s++ {
			t.steps[c][s] = FromMilliamps(p.AveragePowerForCPUCore(c, s))
		}
	}
	return t
}

// NewTableFromCoefficients builds a table from raw coefficients. steps must
// have one entry per cluster. The inputs are copied.
func NewTableFromCoefficients(active Coefficient, clusters []Coefficient, steps [][]Coefficient) (*Table, error) {
	if len(steps) != len(clusters) {
		return nil, fmt.Errorf("%d clusters, %d step lists: %w", len(clusters), len(steps), ErrShape)
	}
	t := &Table{
		active:   active,
		clusters: append([]Coefficient(nil), clusters...),
		steps:    make([][]Coefficient, len(steps)),
	}
	for c := range steps {
		t.steps[c] = append([]Coefficient(nil), steps[c]...)
	}
	return t, nil
}

// NumClusters returns the number of CPU clusters.
func (t *Table) NumClusters() int { return len(t.clusters) }

// NumSteps returns the number of frequency steps of cluster.
func (t *Table) NumSteps(cluster int) int { return len(t.steps[cluster]) }

// Active returns the CPU-active coefficient.
func (t *Table) Active() Coefficient { return t.active }

// Cluster returns the coefficient of cluster.
func (t *Table) Cluster(cluster int) Coefficient { return t.clusters[cluster] }

// Step returns the coefficient of cluster at frequency step.
func (t *Table) Step(cluster, step int) Coefficient { return t.steps[cluster][step] }

// StatsType selects the accumulation window an accounting source reports.
type StatsType string

const (
	SinceCharged   StatsType = "since_charged"
	Current        StatsType = "current"
	SinceUnplugged StatsType = "since_unplugged"
)

// ParseStatsType validates s; the empty string selects SinceCharged.
func ParseStatsType(s string) (StatsType, error) {
	switch StatsType(s) {
	case "":
		return SinceCharged, nil
	case SinceCharged, Current, SinceUnplugged:
		return StatsType(s), nil
	default:
		return "", fmt.Errorf("%q: %w", s, ErrStatsType)
	}
}

// ProcessStats is the CPU accounting of one process of a unit, in ms.
// Synthetic marks placeholder entries that aggregate several processes
// rather than describing a running one.
type ProcessStats struct {
	Name             string `yaml:"name" json:"name"`
	Synthetic        bool   `yaml:"synthetic,omitempty" json:"synthetic,omitempty"`
	UserTimeMs       int64  `yaml:"user_time_ms" json:"user_time_ms"`
	SystemTimeMs     int64  `yaml:"system_time_ms" json:"system_time_ms"`
	ForegroundTimeMs int64  `yaml:"foreground_time_ms" json:"foreground_time_ms"`
}

// Cost is the figure used to rank processes of a unit against each other.
func (p ProcessStats) Cost() int64 { return p.UserTimeMs + p.SystemTimeMs + p.ForegroundTimeMs }

// Unit is the accounting data of one application identity (UID).
type Unit interface {
	UID() int
	UserCPUTimeUs(which StatsType) int64
	SystemCPUTimeUs(which StatsType) int64
	// CPUActiveTime is in the unit of the active coefficient (ms).
	CPUActiveTime() int64
	// CPUClusterTimes returns one running time (ms) per cluster, or nil when
	// the source has no per-cluster data.
	CPUClusterTimes() []int64
	TimeAtCPUSpeedUs(cluster, step int, which StatsType) int64
	// ProcessStats returns the unit's processes in a stable order.
	ProcessStats(which StatsType) []ProcessStats
}

// Result is the CPU estimate for one unit.
type Result struct {
	DurationMs              int64   `json:"duration_ms"`
	PowerMah                float64 `json:"power_mah"`
	DurationFgMs            int64   `json:"duration_fg_ms"`
	PackageWithHighestDrain string  `json:"package_with_highest_drain"`
}
