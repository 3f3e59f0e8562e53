package main

import (
	"time"

	"github.com/ja7ad/cpupower/pkg/system/util"
)

// drainTracker turns successive cumulative charge readings into per-tick
// deltas and rates. The first reading only sets the baseline.
type drainTracker struct {
	lastMah float64
	lastAt  time.Time
	primed  bool
}

// observe records a reading of cumulative charge taken at at. It returns the
// charge consumed since the previous reading (never negative), the average
// current over that span in mA, and false for the baseline reading.
func (d *drainTracker) observe(mah float64, at time.Time) (delta, rateMa, dtSec float64, ok bool) {
	if !d.primed {
		d.lastMah, d.lastAt, d.primed = mah, at, true
		return 0, 0, 0, false
	}
	delta = max(mah-d.lastMah, 0)
	dtSec = at.Sub(d.lastAt).Seconds()
	d.lastMah, d.lastAt = mah, at
	return delta, util.ChargeRate(delta, dtSec), dtSec, true
}
