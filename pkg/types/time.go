package types

import "time"

// Micros is a CPU time counter in microseconds, the unit most kernel and
// battery-stats counters are reported in.
type Micros int64

// Millis is a time quantity in milliseconds.
type Millis int64

// Millis converts to milliseconds, truncating.
func (m Micros) Millis() Millis { return Millis(m / 1000) }

// Duration returns m as a time.Duration.
func (m Micros) Duration() time.Duration { return time.Duration(m) * time.Microsecond }

// Duration returns m as a time.Duration.
func (m Millis) Duration() time.Duration { return time.Duration(m) * time.Millisecond }

// Hours returns m in fractional hours.
func (m Millis) Hours() float64 { return float64(m) / float64(time.Hour/time.Millisecond) }
