//go:build linux

package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/jszwec/csvutil"
	"github.com/spf13/cobra"

	"github.com/ja7ad/cpupower/pkg/estimator"
	"github.com/ja7ad/cpupower/pkg/profile"
	"github.com/ja7ad/cpupower/pkg/system/cgroup"
	"github.com/ja7ad/cpupower/pkg/system/proc"
	"github.com/ja7ad/cpupower/pkg/system/util"
	"github.com/ja7ad/cpupower/pkg/types"
)

type watchOpts struct {
	uid       int
	cgroupDir string
	tree      bool
	samples   int
	warmup    int
	interval  time.Duration
	ema       float64

	csvPath  string
	jsonPath string
	htmlPath string
}

func newWatchCmd(g *globalOpts) *cobra.Command {
	var o watchOpts

	cmd := &cobra.Command{
		Use:   "watch [PID|PID..PID]...",
		Short: "Sample live processes and estimate their CPU drain",
		Long: `Sample /proc (or a cgroup v2 directory) at a fixed interval, build a
battery-stats snapshot per tick and estimate the CPU drain of the sampled
processes as one UID. Per-frequency times come from
/proc/<pid>/time_in_state when the kernel provides it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			prof, err := g.loadProfile()
			if err != nil {
				return err
			}
			return runWatch(cmd.Context(), cmd.OutOrStdout(), prof, o, args)
		},
	}

	cmd.Flags().IntVar(&o.uid, "uid", os.Getuid(), "UID the sampled processes are attributed to")
	cmd.Flags().StringVar(&o.cgroupDir, "cgroup", "", "sample every process of this cgroup v2 directory")
	cmd.Flags().BoolVar(&o.tree, "tree", false, "include all descendants of the given PIDs")
	cmd.Flags().IntVarP(&o.samples, "samples", "s", 5, "number of samples to collect (0 = run until Ctrl-C)")
	cmd.Flags().IntVar(&o.warmup, "warmup", 1, "number of initial samples to skip from display and averages (the first is always a baseline)")
	cmd.Flags().DurationVarP(&o.interval, "interval", "i", time.Second, "sampling interval (e.g. 1s, 500ms)")
	cmd.Flags().Float64Var(&o.ema, "ema", 0.5, "EMA alpha for drain rate smoothing [0..1]")
	cmd.Flags().StringVar(&o.csvPath, "csv", "", "write per-tick rows to CSV file")
	cmd.Flags().StringVar(&o.jsonPath, "json", "", "write per-tick rows to JSON file")
	cmd.Flags().StringVar(&o.htmlPath, "html", "", "write per-tick rows and summary to HTML file")
	return cmd
}

func runWatch(ctx context.Context, out io.Writer, prof *profile.Profile, o watchOpts, args []string) error {
	if o.interval <= 0 {
		return errors.New("interval must be > 0")
	}
	if o.ema < 0 || o.ema > 1 {
		return errors.New("ema must be in [0,1]")
	}

	var pids []int
	if o.cgroupDir != "" {
		v, detail, err := cgroup.Detect()
		if err != nil {
			return fmt.Errorf("detect cgroup: %w", err)
		}
		if !v.Unified() {
			return fmt.Errorf("--cgroup needs a unified hierarchy, found %s (%s)", v, detail)
		}
		if err := cgroup.CheckV2Dir(o.cgroupDir); err != nil {
			return err
		}
		slog.Debug("cgroup", "version", v.String(), "detail", detail)
	} else {
		var err error
		pids, err = parsePIDs(args)
		if err != nil {
			return err
		}
		if len(pids) == 0 {
			return errors.New("no PIDs provided")
		}
	}

	log := slog.Default()
	col := proc.NewCollector(prof, o.uid, log)
	est := estimator.New(estimator.NewTable(prof), log)
	ema := util.NewEMA(o.ema)
	capacity := types.Charge(prof.BatteryCapacityMah())

	sample := func() (*estimator.Snapshot, error) {
		if o.cgroupDir != "" {
			return col.SampleCgroup(o.cgroupDir)
		}
		if o.tree {
			return col.Sample(proc.Expand(pids))
		}
		return col.Sample(pids)
	}

	var (
		csvW   *csv.Writer
		csvEnc *csvutil.Encoder
	)
	if o.csvPath != "" {
		f, err := createFile(o.csvPath)
		if err != nil {
			return fmt.Errorf("csv: %w", err)
		}
		defer func() { _ = f.Close() }()
		csvW = csv.NewWriter(f)
		csvEnc = csvutil.NewEncoder(csvW)
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tCPU\tPOWER (mAh)\tRATE (mA)\tRATE EMA (mA)\tBATTERY %\tTOP PACKAGE")
	fmt.Fprintln(tw, "----\t---\t-----------\t---------\t-------------\t---------\t-----------")
	tw.Flush()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	// The first sample is always a baseline: its since_charged charge covers
	// the whole lifetime of the processes, not one interval.
	skip := max(o.warmup, 1)

	var (
		rows      []watchRow
		procs     []string
		sampleN   int
		lastPower float64
		csvFailed bool
		drain     drainTracker
	)

loop:
	for {
		select {
		case <-ctx.Done():
			slog.Info("interrupted")
			break loop

		case now := <-ticker.C:
			snap, err := sample()
			if err != nil {
				if errors.Is(err, proc.ErrAllExited) {
					slog.Info("all PIDs exited")
					break loop
				}
				slog.Warn("sample error", "err", err)
				continue
			}
			sampleN++

			total := est.Estimate(snap, estimator.SinceCharged)
			tick := est.Estimate(snap, estimator.Current)
			lastPower = total.PowerMah
			delta, rate, dt, ok := drain.observe(total.PowerMah, now)
			if !ok || sampleN <= skip {
				continue
			}

			r := watchRow{
				At:          now,
				CPUTimeMs:   tick.DurationMs,
				PowerMah:    total.PowerMah,
				DeltaMah:    delta,
				RateMa:      rate,
				RateEMAMa:   ema.Next(rate),
				BatteryPct:  types.Charge(total.PowerMah).Percent(capacity),
				TopPackage:  tick.PackageWithHighestDrain,
				IntervalSec: dt,
			}
			rows = append(rows, r)
			procs = mergeNames(procs, snap.ProcessStats(estimator.SinceCharged))

			fmt.Fprintf(tw, "%s\t%s\t%s\t%.3f\t%.3f\t%.4f\t%s\n",
				now.Format("2006-01-02 15:04:05"),
				types.Millis(r.CPUTimeMs).Duration(),
				types.Charge(r.PowerMah).Humanized(),
				r.RateMa, r.RateEMAMa, r.BatteryPct, r.TopPackage)
			tw.Flush()

			if csvEnc != nil && !csvFailed {
				if err := writeCSVRow(csvEnc, csvW, r); err != nil {
					slog.Error("write csv", "err", err)
					csvFailed = true
				}
			}

			if o.samples > 0 && sampleN-skip >= o.samples {
				break loop
			}
		}
	}

	sum := watchSummary{
		Profile:   prof.Name,
		UID:       o.uid,
		Samples:   len(rows),
		TotalMah:  lastPower,
		Processes: procs,
	}
	if avg, ok := ema.Value(); ok {
		sum.AvgRateMa = avg
	}

	if o.jsonPath != "" {
		if err := writeJSON(o.jsonPath, rows); err != nil {
			slog.Error("write json", "err", err)
		}
	}
	if o.htmlPath != "" {
		if err := writeHTML(o.htmlPath, rows, sum); err != nil {
			slog.Error("write html", "err", err)
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "cpupower (uid %d, %d samples of ~%s, profile %q):\n", o.uid, sum.Samples, o.interval, sum.Profile)
	fmt.Fprintf(out, "- charge (cpu):   %s mAh\n", types.Charge(sum.TotalMah).Humanized())
	fmt.Fprintf(out, "- battery:        %.4f %%\n", types.Charge(sum.TotalMah).Percent(capacity))
	fmt.Fprintf(out, "- rate (ema):     %.3f mA\n", sum.AvgRateMa)
	fmt.Fprintln(out)
	return nil
}

// writeCSVRow encodes r and flushes it, so a full disk shows up on the tick
// that hit it.
func writeCSVRow(enc *csvutil.Encoder, w *csv.Writer, r watchRow) error {
	if err := enc.Encode(r); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

// mergeNames appends process names not already in seen, keeping order.
func mergeNames(seen []string, ps []estimator.ProcessStats) []string {
	for _, p := range ps {
		if !slices.Contains(seen, p.Name) {
			seen = append(seen, p.Name)
		}
	}
	return seen
}
