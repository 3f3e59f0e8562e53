package estimator

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// SyntheticPrefix marks aggregate process names in battery-stats dumps.
const SyntheticPrefix = "*"

// Window is the accounting of one unit over one stats window. SpeedTimesUs
// is indexed [cluster][step].
type Window struct {
	UserCPUTimeUs   int64          `yaml:"user_cpu_time_us" json:"user_cpu_time_us"`
	SystemCPUTimeUs int64          `yaml:"system_cpu_time_us" json:"system_cpu_time_us"`
	SpeedTimesUs    [][]int64      `yaml:"speed_times_us,omitempty" json:"speed_times_us,omitempty"`
	Processes       []ProcessStats `yaml:"processes,omitempty" json:"processes,omitempty"`
}

// Snapshot is a materialized Unit. Active and cluster times are not
// windowed, matching how the kernel reports them.
type Snapshot struct {
	UserID         int                  `yaml:"uid" json:"uid"`
	ActiveTimeMs   int64                `yaml:"cpu_active_time" json:"cpu_active_time"`
	ClusterTimesMs []int64              `yaml:"cpu_cluster_times,omitempty" json:"cpu_cluster_times,omitempty"`
	Windows        map[StatsType]Window `yaml:"windows" json:"windows"`
}

var _ Unit = (*Snapshot)(nil)

func (s *Snapshot) UID() int { return s.UserID }

func (s *Snapshot) UserCPUTimeUs(which StatsType) int64 { return s.Windows[which].UserCPUTimeUs }

func (s *Snapshot) SystemCPUTimeUs(which StatsType) int64 { return s.Windows[which].SystemCPUTimeUs }

func (s *Snapshot) CPUActiveTime() int64 { return s.ActiveTimeMs }

func (s *Snapshot) CPUClusterTimes() []int64 { return s.ClusterTimesMs }

// TimeAtCPUSpeedUs returns 0 for a (cluster, step) the window does not list.
func (s *Snapshot) TimeAtCPUSpeedUs(cluster, step int, which StatsType) int64 {
	times := s.Windows[which].SpeedTimesUs
	if cluster < 0 || cluster >= len(times) {
		return 0
	}
	if step < 0 || step >= len(times[cluster]) {
		return 0
	}
	return times[cluster][step]
}

func (s *Snapshot) ProcessStats(which StatsType) []ProcessStats { return s.Windows[which].Processes }

// Dump is a set of snapshots, as written by a battery-stats exporter.
type Dump struct {
	Units []*Snapshot `yaml:"units" json:"units"`
}

// AsUnits returns the snapshots as a []Unit.
func (d *Dump) AsUnits() []Unit {
	out := make([]Unit, len(d.Units))
	for i, s := range d.Units {
		out[i] = s
	}
	return out
}

// LoadDump reads a dump file (YAML or JSON).
func LoadDump(path string) (*Dump, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("dump: read %s: %w", path, err)
	}
	return DecodeDump(bytes.NewReader(b))
}

// UnmarshalYAML decodes a process entry. Without an explicit synthetic key,
// a name starting with SyntheticPrefix marks the entry synthetic.
func (p *ProcessStats) UnmarshalYAML(n *yaml.Node) error {
	var raw struct {
		Name             string `yaml:"name"`
		Synthetic        *bool  `yaml:"synthetic"`
		UserTimeMs       int64  `yaml:"user_time_ms"`
		SystemTimeMs     int64  `yaml:"system_time_ms"`
		ForegroundTimeMs int64  `yaml:"foreground_time_ms"`
	}
	if err := n.Decode(&raw); err != nil {
		return err
	}
	*p = ProcessStats{
		Name:             raw.Name,
		Synthetic:        strings.HasPrefix(raw.Name, SyntheticPrefix),
		UserTimeMs:       raw.UserTimeMs,
		SystemTimeMs:     raw.SystemTimeMs,
		ForegroundTimeMs: raw.ForegroundTimeMs,
	}
	if raw.Synthetic != nil {
		p.Synthetic = *raw.Synthetic
	}
	return nil
}

// DecodeDump decodes a dump and checks window names and UID uniqueness.
func DecodeDump(r io.Reader) (*Dump, error) {
	var d Dump
	if err := yaml.NewDecoder(r).Decode(&d); err != nil {
		return nil, fmt.Errorf("dump: decode: %w", err)
	}

	seen := make(map[int]struct{}, len(d.Units))
	for i, u := range d.Units {
		if u == nil {
			return nil, fmt.Errorf("dump: unit %d: %w", i, ErrEmptyUnit)
		}
		if _, dup := seen[u.UserID]; dup {
			return nil, fmt.Errorf("dump: uid %d: %w", u.UserID, ErrDuplicateUID)
		}
		seen[u.UserID] = struct{}{}

		for which := range u.Windows {
			if which == "" {
				return nil, fmt.Errorf("dump: uid %d: empty window name: %w", u.UserID, ErrStatsType)
			}
			if _, err := ParseStatsType(string(which)); err != nil {
				return nil, fmt.Errorf("dump: uid %d: %w", u.UserID, err)
			}
		}
	}
	return &d, nil
}
