package main

import (
	"bytes"
	"html/template"
	"time"
)

// watchRow is one tick of the watch command.
type watchRow struct {
	At          time.Time `json:"time" csv:"time"`
	CPUTimeMs   int64     `json:"cpu_time_ms" csv:"cpu_time_ms"`
	PowerMah    float64   `json:"power_mah" csv:"power_mah"`
	DeltaMah    float64   `json:"delta_mah" csv:"delta_mah"`
	RateMa      float64   `json:"rate_ma" csv:"rate_ma"`
	RateEMAMa   float64   `json:"rate_ema_ma" csv:"rate_ema_ma"`
	BatteryPct  float64   `json:"battery_pct" csv:"battery_pct"`
	TopPackage  string    `json:"top_package" csv:"top_package"`
	IntervalSec float64   `json:"interval_sec" csv:"interval_sec"`
}

type watchSummary struct {
	Profile   string
	UID       int
	Samples   int
	TotalMah  float64
	AvgRateMa float64
	Processes []string
}

func writeHTML(path string, rows []watchRow, sum watchSummary) error {
	data := struct {
		Rows []watchRow
		Sum  watchSummary
	}{rows, sum}

	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return err
	}
	return writeFile(path, buf.Bytes())
}

var tpl = template.Must(template.New("rep").Parse(`<!doctype html>
<html lang="en"><meta charset="utf-8">
<title>CPU Power Report</title>
<style>
body{font-family:system-ui,Segoe UI,Roboto,Helvetica,Arial,sans-serif;margin:20px}
h1,h2{margin:0 0 8px}
table{border-collapse:collapse;width:100%;font-size:14px}
th,td{border:1px solid #ddd;padding:6px 8px;text-align:right}
th:first-child,td:first-child{text-align:left}
ul{margin:6px 0 14px;padding-left:20px}
.small{color:#555}
.badge{display:inline-block;background:#eef;border:1px solid #ccd;padding:2px 6px;border-radius:6px;margin-right:6px;}
</style>

<h1>CPU Power Report</h1>

<p class="small">
Profile: {{.Sum.Profile}} &nbsp;|&nbsp;
UID: {{.Sum.UID}} &nbsp;|&nbsp;
Samples: {{.Sum.Samples}}
</p>

{{if .Sum.Processes}}
<h2>Processes</h2>
<ul>
{{range .Sum.Processes}}
  <li><span class="badge">{{.}}</span></li>
{{end}}
</ul>
{{end}}

<h2>Summary</h2>
<ul>
<li>Total: {{printf "%.6f" .Sum.TotalMah}} mAh</li>
<li>Rate (EMA): {{printf "%.3f" .Sum.AvgRateMa}} mA</li>
</ul>

<h2>Per-tick</h2>
<table>
<thead>
<tr>
<th>time</th><th>cpu (ms)</th><th>power (mAh)</th><th>delta (mAh)</th>
<th>rate (mA)</th><th>rate ema (mA)</th><th>battery %</th><th>top package</th>
</tr>
</thead>
<tbody>
{{range .Rows}}
<tr>
<td style="text-align:left">{{.At.Format "2006-01-02 15:04:05"}}</td>
<td>{{.CPUTimeMs}}</td>
<td>{{printf "%.6f" .PowerMah}}</td>
<td>{{printf "%.6f" .DeltaMah}}</td>
<td>{{printf "%.3f" .RateMa}}</td>
<td>{{printf "%.3f" .RateEMAMa}}</td>
<td>{{printf "%.4f" .BatteryPct}}</td>
<td>{{.TopPackage}}</td>
</tr>
{{end}}
</tbody>
</table>
</html>`))
