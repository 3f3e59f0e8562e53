package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/jszwec/csvutil"
	"github.com/spf13/cobra"

	"github.com/ja7ad/cpupower/pkg/estimator"
	"github.com/ja7ad/cpupower/pkg/profile"
	"github.com/ja7ad/cpupower/pkg/system/util"
	"github.com/ja7ad/cpupower/pkg/types"
)

type estimateOpts struct {
	input    string
	which    string
	csvPath  string
	jsonPath string
}

type row struct {
	UID         int     `json:"uid" csv:"uid"`
	PowerMah    float64 `json:"power_mah" csv:"power_mah"`
	BatteryPct  float64 `json:"battery_pct" csv:"battery_pct"`
	SharePct    float64 `json:"share_pct" csv:"share_pct"`
	CPUTimeMs   int64   `json:"cpu_time_ms" csv:"cpu_time_ms"`
	CPUFgTimeMs int64   `json:"cpu_fg_time_ms" csv:"cpu_fg_time_ms"`
	TopPackage  string  `json:"top_package" csv:"top_package"`
}

type jsonReport struct {
	Profile   string              `json:"profile"`
	StatsType estimator.StatsType `json:"stats_type"`
	TotalMah  float64             `json:"total_mah"`
	Rows      []row               `json:"rows"`
}

func newEstimateCmd(g *globalOpts) *cobra.Command {
	var o estimateOpts

	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Estimate CPU drain for every UID of a battery-stats dump",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			prof, err := g.loadProfile()
			if err != nil {
				return err
			}
			return runEstimate(cmd.OutOrStdout(), prof, o)
		},
	}

	cmd.Flags().StringVarP(&o.input, "input", "f", "", "battery-stats dump (YAML or JSON)")
	cmd.Flags().StringVarP(&o.which, "which", "w", string(estimator.SinceCharged), "stats window: since_charged, current, since_unplugged")
	cmd.Flags().StringVar(&o.csvPath, "csv", "", "write per-UID rows to CSV file")
	cmd.Flags().StringVar(&o.jsonPath, "json", "", "write per-UID rows to JSON file")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func runEstimate(out io.Writer, prof *profile.Profile, o estimateOpts) error {
	which, err := estimator.ParseStatsType(o.which)
	if err != nil {
		return err
	}
	dump, err := estimator.LoadDump(o.input)
	if err != nil {
		return err
	}

	est := estimator.New(estimator.NewTable(prof), slog.Default())
	report := est.Calculate(dump.AsUnits(), which)
	rows := buildRows(report, prof)

	printTable(out, rows, report.TotalPowerMah())

	if o.csvPath != "" {
		if err := writeCSV(o.csvPath, rows); err != nil {
			return fmt.Errorf("write csv: %w", err)
		}
	}
	if o.jsonPath != "" {
		jr := jsonReport{
			Profile:   prof.Name,
			StatsType: which,
			TotalMah:  report.TotalPowerMah(),
			Rows:      rows,
		}
		if err := writeJSON(o.jsonPath, jr); err != nil {
			return fmt.Errorf("write json: %w", err)
		}
	}
	return nil
}

func buildRows(report *estimator.UsageReport, prof *profile.Profile) []row {
	total := report.TotalPowerMah()
	capacity := types.Charge(prof.BatteryCapacityMah())

	rows := make([]row, 0, len(report.Consumers))
	for _, c := range report.Consumers {
		p := c.ConsumedPower[estimator.PowerComponentCPU]
		rows = append(rows, row{
			UID:         c.UID,
			PowerMah:    p,
			BatteryPct:  types.Charge(p).Percent(capacity),
			SharePct:    100 * util.Clamp01(util.SafeDiv(p, total)),
			CPUTimeMs:   c.UsageDurationMillis[estimator.TimeComponentCPU],
			CPUFgTimeMs: c.UsageDurationMillis[estimator.TimeComponentCPUFg],
			TopPackage:  c.PackageWithHighestDrain,
		})
	}
	return rows
}

func printTable(out io.Writer, rows []row, total float64) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "UID\tPOWER (mAh)\tBATTERY %\tSHARE %\tCPU\tCPU FG\tTOP PACKAGE")
	fmt.Fprintln(tw, "---\t-----------\t---------\t-------\t---\t------\t-----------")
	for _, r := range rows {
		fmt.Fprintf(tw, "%d\t%s\t%.2f\t%.1f\t%s\t%s\t%s\n",
			r.UID, types.Charge(r.PowerMah).Humanized(), r.BatteryPct, r.SharePct,
			types.Millis(r.CPUTimeMs).Duration().Round(time.Millisecond),
			types.Millis(r.CPUFgTimeMs).Duration().Round(time.Millisecond),
			r.TopPackage)
	}
	fmt.Fprintf(tw, "TOTAL\t%s\t\t\t\t\t\n", types.Charge(total).Humanized())
	tw.Flush()
}

func writeCSV(path string, rows []row) error {
	b, err := csvutil.Marshal(rows)
	if err != nil {
		return err
	}
	return writeFile(path, b)
}

func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return writeFile(path, append(b, '\n'))
}

func writeFile(path string, b []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func createFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.Create(path)
}
