package estimator

import (
	"cmp"
	"slices"
)

// Power and time components a consumer can be charged with.
const (
	PowerComponentCPU  = "cpu"
	TimeComponentCPU   = "cpu"
	TimeComponentCPUFg = "cpu_foreground"
)

// UIDConsumer is the battery usage attributed to one UID.
type UIDConsumer struct {
	UID                     int                `json:"uid"`
	ConsumedPower           map[string]float64 `json:"consumed_power_mah"`
	UsageDurationMillis     map[string]int64   `json:"usage_duration_ms"`
	PackageWithHighestDrain string             `json:"package_with_highest_drain,omitempty"`
}

// UsageReport is the result of Calculate.
type UsageReport struct {
	StatsType StatsType      `json:"stats_type"`
	Consumers []*UIDConsumer `json:"consumers"`
}

// TotalPowerMah returns the CPU charge summed over all consumers.
func (r *UsageReport) TotalPowerMah() float64 {
	var total float64
	for _, c := range r.Consumers {
		total += c.ConsumedPower[PowerComponentCPU]
	}
	return total
}

// Calculate estimates every unit and returns one consumer per unit, highest
// CPU charge first (ties by UID).
func (e *Estimator) Calculate(units []Unit, which StatsType) *UsageReport {
	report := &UsageReport{
		StatsType: which,
		Consumers: make([]*UIDConsumer, 0, len(units)),
	}
	for _, u := range units {
		res := e.Estimate(u, which)
		report.Consumers = append(report.Consumers, &UIDConsumer{
			UID:           u.UID(),
			ConsumedPower: map[string]float64{PowerComponentCPU: res.PowerMah},
			UsageDurationMillis: map[string]int64{
				TimeComponentCPU:   res.DurationMs,
				TimeComponentCPUFg: res.DurationFgMs,
			},
			PackageWithHighestDrain: res.PackageWithHighestDrain,
		})
	}
	slices.SortStableFunc(report.Consumers, func(a, b *UIDConsumer) int {
		if c := cmp.Compare(b.ConsumedPower[PowerComponentCPU], a.ConsumedPower[PowerComponentCPU]); c != 0 {
			return c
		}
		return cmp.Compare(a.UID, b.UID)
	})
	return report
}

// DrainType classifies a Sipper.
type DrainType int

const (
	DrainApp DrainType = iota
	DrainScreen
	DrainIdle
	DrainCell
	DrainWifi
	DrainBluetooth
	DrainUser
	DrainUnaccounted
	DrainOverCounted
)

// Sipper is a row of the legacy battery usage list. Only app rows carry a
// Unit; the CPU fields are filled by CalculateSippers.
type Sipper struct {
	DrainType DrainType
	Unit      Unit

	CPUPowerMah             float64
	CPUTimeMs               int64
	CPUFgTimeMs             int64
	PackageWithHighestDrain string
}

// CalculateSippers fills the CPU fields of every app sipper. Other drain
// types are left untouched.
func (e *Estimator) CalculateSippers(sippers []*Sipper, which StatsType) {
	for i := len(sippers) - 1; i >= 0; i-- {
		s := sippers[i]
		if s.DrainType != DrainApp || s.Unit == nil {
			continue
		}
		res := e.Estimate(s.Unit, which)
		s.CPUPowerMah = res.PowerMah
		s.CPUTimeMs = res.DurationMs
		s.CPUFgTimeMs = res.DurationFgMs
		s.PackageWithHighestDrain = res.PackageWithHighestDrain
	}
}
