package profile

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoClusters = `
name: test-device
cpu_active: 10
battery_capacity: 3000
clusters:
  - cores: 4
    cluster_power: 2
    core_speeds: [300000, 600000]
    core_power: [5, 8]
  - cores: 2
    cluster_power: 3
    core_speeds: [800000, 1600000, 2400000]
    core_power: [20, 40, 80]
`

func TestParse_TwoClusters(t *testing.T) {
	p, err := Parse(strings.NewReader(twoClusters))
	require.NoError(t, err)

	assert.Equal(t, "test-device", p.Name)
	assert.Equal(t, 2, p.NumCPUClusters())
	assert.Equal(t, 2, p.NumSpeedStepsInCPUCluster(0))
	assert.Equal(t, 3, p.NumSpeedStepsInCPUCluster(1))
	assert.Equal(t, 4, p.NumCoresInCPUCluster(0))
	assert.Equal(t, 10.0, p.CPUActive())
	assert.Equal(t, 3000.0, p.BatteryCapacityMah())
	assert.Equal(t, 3.0, p.AveragePowerForCPUCluster(1))
	assert.Equal(t, 40.0, p.AveragePowerForCPUCore(1, 1))
}

func TestAccessors_OutOfRange(t *testing.T) {
	p := Default()
	assert.Equal(t, 0, p.NumSpeedStepsInCPUCluster(-1))
	assert.Equal(t, 0, p.NumSpeedStepsInCPUCluster(9))
	assert.Equal(t, 0, p.NumCoresInCPUCluster(9))
	assert.Equal(t, 0.0, p.AveragePowerForCPUCluster(9))
	assert.Equal(t, 0.0, p.AveragePowerForCPUCore(0, 99))
	assert.Equal(t, 0.0, p.AveragePowerForCPUCore(99, 0))
}

func TestParse_RejectsUnknownField(t *testing.T) {
	_, err := Parse(strings.NewReader("cpu_activ: 10\nclusters: []\n"))
	require.Error(t, err)
}

func TestValidate_Errors(t *testing.T) {
	cases := []struct {
		name string
		mut  func(p *Profile)
		want error
	}{
		{"no_clusters", func(p *Profile) { p.Clusters = nil }, ErrNoClusters},
		{"negative_active", func(p *Profile) { p.CPUActivePower = -1 }, ErrNegative},
		{"negative_capacity", func(p *Profile) { p.BatteryCapacity = -1 }, ErrNegative},
		{"zero_cores", func(p *Profile) { p.Clusters[1].Cores = 0 }, ErrNoCores},
		{"negative_cluster", func(p *Profile) { p.Clusters[0].ClusterPower = -2 }, ErrNegative},
		{"step_mismatch", func(p *Profile) { p.Clusters[0].CorePower = p.Clusters[0].CorePower[:1] }, ErrStepMismatch},
		{"negative_core", func(p *Profile) { p.Clusters[1].CorePower[2] = -3 }, ErrNegative},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := Default()
			tc.mut(p)
			err := p.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}
	require.NoError(t, Default().Validate())
}

func TestEncodeParse_RoundTripsDefault(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Default().Encode(&buf))

	p, err := Parse(&buf)
	require.NoError(t, err)
	assert.Equal(t, Default(), p)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte(twoClusters), 0o644))

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, p.NumCPUClusters())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestClusterForFrequency(t *testing.T) {
	p, err := Parse(strings.NewReader(twoClusters))
	require.NoError(t, err)

	c, s, err := p.ClusterForFrequency(1600000)
	require.NoError(t, err)
	assert.Equal(t, 1, c)
	assert.Equal(t, 1, s)

	_, _, err = p.ClusterForFrequency(123)
	assert.True(t, errors.Is(err, ErrNoSuchFrequency))
}
