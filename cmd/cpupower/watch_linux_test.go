//go:build linux

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/jszwec/csvutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ja7ad/cpupower/pkg/profile"
)

func TestRunWatch_Self(t *testing.T) {
	dir := t.TempDir()
	o := watchOpts{
		uid:      4242,
		samples:  2,
		warmup:   1,
		interval: 20 * time.Millisecond,
		ema:      0.5,
		csvPath:  filepath.Join(dir, "w.csv"),
		jsonPath: filepath.Join(dir, "w.json"),
		htmlPath: filepath.Join(dir, "w.html"),
	}

	var out bytes.Buffer
	err := runWatch(context.Background(), &out, profile.Default(), o, []string{strconv.Itoa(os.Getpid())})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "uid 4242, 2 samples")

	b, err := os.ReadFile(o.jsonPath)
	require.NoError(t, err)
	var rows []watchRow
	require.NoError(t, json.Unmarshal(b, &rows))
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.GreaterOrEqual(t, r.DeltaMah, 0.0)
		assert.GreaterOrEqual(t, r.RateMa, 0.0)
		assert.Greater(t, r.IntervalSec, 0.0)
	}
	assert.GreaterOrEqual(t, rows[1].PowerMah, rows[0].PowerMah)

	b, err = os.ReadFile(o.csvPath)
	require.NoError(t, err)
	var csvRows []watchRow
	require.NoError(t, csvutil.Unmarshal(b, &csvRows))
	assert.Len(t, csvRows, 2)

	b, err = os.ReadFile(o.htmlPath)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(b), "CPU Power Report"))
}

func TestRunWatch_Errors(t *testing.T) {
	var out bytes.Buffer
	prof := profile.Default()

	err := runWatch(context.Background(), &out, prof, watchOpts{interval: time.Second}, nil)
	assert.ErrorContains(t, err, "no PIDs")

	err = runWatch(context.Background(), &out, prof, watchOpts{}, []string{"1"})
	assert.ErrorContains(t, err, "interval")

	err = runWatch(context.Background(), &out, prof, watchOpts{interval: time.Second, ema: 2}, []string{"1"})
	assert.ErrorContains(t, err, "ema")

	err = runWatch(context.Background(), &out, prof, watchOpts{interval: time.Second}, []string{"x"})
	assert.Error(t, err)
}

func TestRunWatch_AllExited(t *testing.T) {
	var out bytes.Buffer
	o := watchOpts{samples: 3, interval: 5 * time.Millisecond}
	err := runWatch(context.Background(), &out, profile.Default(), o, []string{"99999999"})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "0 samples")
}

func TestRunWatch_NoWarmupKeepsBaseline(t *testing.T) {
	jsonPath := filepath.Join(t.TempDir(), "w.json")
	o := watchOpts{samples: 2, warmup: 0, interval: 10 * time.Millisecond, ema: 1, jsonPath: jsonPath}

	var out bytes.Buffer
	err := runWatch(context.Background(), &out, profile.Default(), o, []string{strconv.Itoa(os.Getpid())})
	require.NoError(t, err)

	b, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var rows []watchRow
	require.NoError(t, json.Unmarshal(b, &rows))
	require.Len(t, rows, 2, "baseline sample is not a row")
	assert.InDelta(t, rows[1].PowerMah-rows[0].PowerMah, rows[1].DeltaMah, 1e-12)
	assert.InDelta(t, rows[0].RateMa, rows[0].RateEMAMa, 1e-12, "alpha 1 passes the rate through")
}

func TestRunWatch_CSVWriteError(t *testing.T) {
	if _, err := os.Stat("/dev/full"); err != nil {
		t.Skip("skipping: no /dev/full")
	}
	var logs bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&logs, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	o := watchOpts{samples: 1, interval: 10 * time.Millisecond, csvPath: "/dev/full"}
	var out bytes.Buffer
	err := runWatch(context.Background(), &out, profile.Default(), o, []string{strconv.Itoa(os.Getpid())})
	require.NoError(t, err)
	assert.Contains(t, logs.String(), "write csv")
	assert.Contains(t, out.String(), "1 samples")
}
