//go:build linux

package cgroup

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Detect(t *testing.T) {
	ver, str, err := Detect()
	require.NoError(t, err)
	assert.NotEmpty(t, str)

	t.Logf("detected %s: %s", ver, str)
}

func Test_Unified(t *testing.T) {
	assert.True(t, V2.Unified())
	assert.True(t, Hybrid.Unified())
	assert.False(t, V1.Unified())
	assert.False(t, Unsupported.Unified())
	assert.Equal(t, "cgroup hybrid", Hybrid.String())
}

func Test_ParseCPUStat(t *testing.T) {
	const in = `usage_usec 2500000
user_usec 2000000
system_usec 500000
nr_periods 0
nr_throttled 0
throttled_usec 0
`
	st, err := parseCPUStat(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, CPUStat{UsageUsec: 2_500_000, UserUsec: 2_000_000, SystemUsec: 500_000}, st)

	_, err = parseCPUStat(strings.NewReader("user_usec 1\n"))
	assert.ErrorIs(t, err, ErrNoUsage)

	_, err = parseCPUStat(strings.NewReader("usage_usec abc\n"))
	require.Error(t, err)
}

func Test_ReadCPUStatAndProcs_FromDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cpu.stat"), []byte("usage_usec 10\nuser_usec 7\nsystem_usec 3\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cgroup.procs"), []byte("12\n345\n"), 0o644))

	st, err := ReadCPUStat(dir)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), st.UserUsec)

	pids, err := ReadProcs(dir)
	require.NoError(t, err)
	assert.Equal(t, []int{12, 345}, pids)

	_, err = ReadCPUStat(filepath.Join(dir, "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func Test_ReadCPUStat_Self(t *testing.T) {
	ver, _, err := Detect()
	require.NoError(t, err)
	if !ver.Unified() {
		t.Skipf("skipping: %s", ver)
	}
	st, err := ReadCPUStat("/sys/fs/cgroup")
	if err != nil {
		t.Skipf("skipping: root cpu.stat not readable: %v", err)
	}
	assert.GreaterOrEqual(t, st.UsageUsec, st.UserUsec)
}

func Test_CheckV2Dir(t *testing.T) {
	err := CheckV2Dir(t.TempDir())
	assert.ErrorIs(t, err, ErrNotV2)

	err = CheckV2Dir(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotV2)

	if _, err := os.Stat("/sys/fs/cgroup/cgroup.controllers"); err != nil {
		t.Skip("skipping: /sys/fs/cgroup is not a cgroup2 mount")
	}
	assert.NoError(t, CheckV2Dir("/sys/fs/cgroup"))
}
