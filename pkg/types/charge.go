package types

import "fmt"

// Charge is an amount of battery charge in milliamp-hours (mAh).
type Charge float64

// Humanized returns the charge with a precision that depends on its magnitude,
// so that tiny per-step contributions stay readable next to whole-app totals.
func (c Charge) Humanized() string {
	v := float64(c)
	switch {
	case v == 0:
		return "0"
	case v < 0.00001:
		return fmt.Sprintf("%.8f", v)
	case v < 0.0001:
		return fmt.Sprintf("%.7f", v)
	case v < 0.01:
		return fmt.Sprintf("%.3f", v)
	default:
		return fmt.Sprintf("%.1f", v)
	}
}

// Percent returns c as a percentage of capacity, or 0 when capacity is unknown.
func (c Charge) Percent(capacity Charge) float64 {
	if capacity <= 0 {
		return 0
	}
	return 100 * float64(c) / float64(capacity)
}

// Float64 returns the raw mAh value.
func (c Charge) Float64() float64 { return float64(c) }
