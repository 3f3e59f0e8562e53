// Package profile loads device power profiles: the average current drawn by
// the CPU in each of its states, the way Android's power_profile.xml records
// it. A profile is the coefficient source for pkg/estimator and is read once,
// when the estimator is built.
package profile

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Cluster is one CPU cluster: a group of cores sharing a frequency domain.
// Units:
//   - ClusterPower/CorePower: mA
//   - CoreSpeeds: kHz
type Cluster struct {
	Cores        int       `yaml:"cores"`
	ClusterPower float64   `yaml:"cluster_power"`
	CoreSpeeds   []int64   `yaml:"core_speeds"`
	CorePower    []float64 `yaml:"core_power"`
}

// Profile is the CPU part of a device power profile.
type Profile struct {
	Name            string    `yaml:"name,omitempty"`
	CPUActivePower  float64   `yaml:"cpu_active"`            // mA while any core runs
	CPUIdlePower    float64   `yaml:"cpu_idle,omitempty"`    // mA, informational
	CPUSuspendPower float64   `yaml:"cpu_suspend,omitempty"` // mA, informational
	BatteryCapacity float64   `yaml:"battery_capacity"`      // mAh
	Clusters        []Cluster `yaml:"clusters"`
}

// Default returns a built-in big.LITTLE profile (4 little + 4 big cores).
// The numbers are in the range of a mid-range 2020 handset.
func Default() *Profile {
	return &Profile{
		Name:            "default",
		CPUActivePower:  18.4,
		CPUIdlePower:    3.8,
		CPUSuspendPower: 0.9,
		BatteryCapacity: 4000,
		Clusters: []Cluster{
			{
				Cores:        4,
				ClusterPower: 2.1,
				CoreSpeeds:   []int64{300000, 576000, 1017600, 1420800, 1804800},
				CorePower:    []float64{9.3, 13.4, 22.1, 34.6, 52.0},
			},
			{
				Cores:        4,
				ClusterPower: 4.6,
				CoreSpeeds:   []int64{710400, 1267200, 1728000, 2227200, 2419200},
				CorePower:    []float64{38.9, 71.3, 118.2, 190.5, 244.7},
			},
		},
	}
}

// Load reads and validates a YAML profile from path.
func Load(path string) (*Profile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("profile: read %s: %w", path, err)
	}
	return Parse(bytes.NewReader(b))
}

// Parse decodes and validates a YAML profile. Unknown keys are rejected so a
// misspelled coefficient does not silently read as zero.
func Parse(r io.Reader) (*Profile, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var p Profile
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("profile: decode: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Encode writes p as YAML.
func (p *Profile) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return err
	}
	return enc.Close()
}

// Validate checks the structural invariants the estimator relies on.
func (p *Profile) Validate() error {
	if len(p.Clusters) == 0 {
		return ErrNoClusters
	}
	if p.CPUActivePower < 0 || p.CPUIdlePower < 0 || p.CPUSuspendPower < 0 || p.BatteryCapacity < 0 {
		return ErrNegative
	}
	for i, c := range p.Clusters {
		if c.Cores <= 0 {
			return fmt.Errorf("cluster %d: %w", i, ErrNoCores)
		}
		if c.ClusterPower < 0 {
			return fmt.Errorf("cluster %d: cluster_power: %w", i, ErrNegative)
		}
		if len(c.CoreSpeeds) != len(c.CorePower) {
			return fmt.Errorf("cluster %d: %d speeds, %d powers: %w",
				i, len(c.CoreSpeeds), len(c.CorePower), ErrStepMismatch)
		}
		for j, mA := range c.CorePower {
			if mA < 0 {
				return fmt.Errorf("cluster %d step %d: core_power: %w", i, j, ErrNegative)
			}
		}
	}
	return nil
}

// NumCPUClusters returns the number of CPU clusters.
func (p *Profile) NumCPUClusters() int { return len(p.Clusters) }

// NumCoresInCPUCluster returns the core count of cluster, or 0 if out of range.
func (p *Profile) NumCoresInCPUCluster(cluster int) int {
	if cluster < 0 || cluster >= len(p.Clusters) {
		return 0
	}
	return p.Clusters[cluster].Cores
}

// NumSpeedStepsInCPUCluster returns the number of frequency steps of cluster,
// or 0 if out of range.
func (p *Profile) NumSpeedStepsInCPUCluster(cluster int) int {
	if cluster < 0 || cluster >= len(p.Clusters) {
		return 0
	}
	return len(p.Clusters[cluster].CorePower)
}

// CPUActive returns the average current while the CPU is active, in mA.
func (p *Profile) CPUActive() float64 { return p.CPUActivePower }

// BatteryCapacityMah returns the battery capacity in mAh.
func (p *Profile) BatteryCapacityMah() float64 { return p.BatteryCapacity }

// AveragePowerForCPUCluster returns the additional current of a running cluster.
func (p *Profile) AveragePowerForCPUCluster(cluster int) float64 {
	if cluster < 0 || cluster >= len(p.Clusters) {
		return 0
	}
	return p.Clusters[cluster].ClusterPower
}

// AveragePowerForCPUCore returns the additional current of one core of cluster
// running at the given frequency step.
func (p *Profile) AveragePowerForCPUCore(cluster, step int) float64 {
	if cluster < 0 || cluster >= len(p.Clusters) {
		return 0
	}
	steps := p.Clusters[cluster].CorePower
	if step < 0 || step >= len(steps) {
		return 0
	}
	return steps[step]
}

// ClusterForFrequency finds the cluster and step listing khz. Clusters are
// searched in order, so a frequency shared by two clusters resolves to the
// first one.
func (p *Profile) ClusterForFrequency(khz int64) (cluster, step int, err error) {
	for c, cl := range p.Clusters {
		for s, f := range cl.CoreSpeeds {
			if f == khz {
				return c, s, nil
			}
		}
	}
	return -1, -1, fmt.Errorf("%d kHz: %w", khz, ErrNoSuchFrequency)
}
