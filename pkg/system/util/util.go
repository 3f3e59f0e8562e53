package util

import "math"

// EMA is an exponential moving average; the first value seeds it.
type EMA struct {
	alpha, prev float64
	ok          bool
}

// NewEMA creates an EMA; alpha is clamped to [0,1], 1 disables smoothing.
func NewEMA(alpha float64) *EMA { return &EMA{alpha: Clamp01(alpha)} }

// Value returns the current average and whether any value was seen.
func (e *EMA) Value() (float64, bool) { return e.prev, e.ok }

func (e *EMA) Next(v float64) float64 {
	if !e.ok {
		e.prev, e.ok = v, true
		return v
	}
	e.prev = e.alpha*v + (1-e.alpha)*e.prev
	return e.prev
}

// DeltaU64 returns now-prev for a monotonic counter.
func DeltaU64(now, prev uint64) uint64 {
	if now >= prev {
		return now - prev
	}
	// counter wrapped or prev unset
	return 0
}

// SafeDiv returns n/d, or 0 when d is (nearly) zero.
func SafeDiv(n, d float64) float64 {
	const eps = 1e-12
	if d > eps || d < -eps {
		return n / d
	}
	return 0
}

func Clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	// guard against NaN
	if math.IsNaN(x) {
		return 0
	}
	return x
}

// ChargeRate converts a charge delta in mAh over dtSec seconds to an average
// current in mA.
func ChargeRate(deltaMah, dtSec float64) float64 {
	return SafeDiv(deltaMah*3600, dtSec)
}
