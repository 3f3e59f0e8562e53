package estimator

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dumpYAML = `
units:
  - uid: 10001
    cpu_active_time: 1000
    cpu_cluster_times: [1000]
    windows:
      since_charged:
        user_cpu_time_us: 1500000
        system_cpu_time_us: 500000
        speed_times_us: [[2000000]]
        processes:
          - name: "*aggregate"
            user_time_ms: 500
          - name: com.app.c
            user_time_ms: 300
  - uid: 10002
    cpu_active_time: 0
    windows:
      current:
        user_cpu_time_us: 1000
`

func TestDecodeDump(t *testing.T) {
	d, err := DecodeDump(strings.NewReader(dumpYAML))
	require.NoError(t, err)
	require.Len(t, d.Units, 2)

	u := d.Units[0]
	assert.Equal(t, 10001, u.UID())
	assert.Equal(t, int64(1000), u.CPUActiveTime())
	assert.Equal(t, []int64{1000}, u.CPUClusterTimes())
	assert.Equal(t, int64(1_500_000), u.UserCPUTimeUs(SinceCharged))
	assert.Equal(t, int64(500_000), u.SystemCPUTimeUs(SinceCharged))
	assert.Equal(t, int64(2_000_000), u.TimeAtCPUSpeedUs(0, 0, SinceCharged))
	assert.Equal(t, int64(0), u.TimeAtCPUSpeedUs(0, 1, SinceCharged))
	assert.Equal(t, int64(0), u.TimeAtCPUSpeedUs(3, 0, SinceCharged))

	procs := u.ProcessStats(SinceCharged)
	require.Len(t, procs, 2)
	assert.True(t, procs[0].Synthetic, "leading * marks an aggregate")
	assert.False(t, procs[1].Synthetic)

	assert.Nil(t, d.Units[1].CPUClusterTimes())
	assert.Equal(t, int64(1000), d.Units[1].UserCPUTimeUs(Current))

	e, _ := newTestEstimator(t, oneClusterTable(t))
	res := e.Estimate(d.AsUnits()[0], SinceCharged)
	assert.InDelta(t, 4.0, res.PowerMah, 1e-12)
	assert.Equal(t, int64(2000), res.DurationMs)
	assert.Equal(t, "com.app.c", res.PackageWithHighestDrain)
}

func TestDecodeDump_ExplicitSyntheticFlag(t *testing.T) {
	const in = `
units:
  - uid: 1
    windows:
      since_charged:
        processes:
          - name: "*not-an-aggregate"
            synthetic: false
          - name: rollup
            synthetic: true
          - name: "*aggregate"
`
	d, err := DecodeDump(strings.NewReader(in))
	require.NoError(t, err)

	procs := d.Units[0].ProcessStats(SinceCharged)
	require.Len(t, procs, 3)
	assert.False(t, procs[0].Synthetic, "explicit false wins over the prefix")
	assert.True(t, procs[1].Synthetic, "explicit true without the prefix")
	assert.True(t, procs[2].Synthetic, "prefix applies when the flag is unset")
}

func TestDecodeDump_JSON(t *testing.T) {
	const js = `{"units":[{"uid":7,"cpu_active_time":5,"windows":{"since_charged":{"user_cpu_time_us":3000,"system_cpu_time_us":0}}}]}`
	d, err := DecodeDump(strings.NewReader(js))
	require.NoError(t, err)
	require.Len(t, d.Units, 1)
	assert.Equal(t, int64(3000), d.Units[0].UserCPUTimeUs(SinceCharged))
}

func TestDecodeDump_Errors(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want error
	}{
		{"duplicate_uid", "units:\n  - uid: 1\n  - uid: 1\n", ErrDuplicateUID},
		{"bad_window", "units:\n  - uid: 1\n    windows:\n      yesterday: {}\n", ErrStatsType},
		{"null_unit", "units:\n  - null\n", ErrEmptyUnit},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeDump(strings.NewReader(tc.in))
			assert.ErrorIs(t, err, tc.want)
		})
	}

	_, err := DecodeDump(strings.NewReader("units: [unterminated"))
	require.Error(t, err)
}

func TestLoadDump(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dump.yaml")
	require.NoError(t, os.WriteFile(path, []byte(dumpYAML), 0o644))

	d, err := LoadDump(path)
	require.NoError(t, err)
	assert.Len(t, d.AsUnits(), 2)

	_, err = LoadDump(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
