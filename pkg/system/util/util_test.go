package util

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEMA_FirstSampleSetsState(t *testing.T) {
	e := NewEMA(0.5)
	out := e.Next(10)
	assert.Equal(t, 10.0, out, "first output should equal first input")
	// second call should blend now
	out2 := e.Next(20)
	assert.InDelta(t, 15.0, out2, 1e-9, "EMA(0.5) of 10 then 20 should be 15")
}

func TestEMA_SequenceAlphaPointFive(t *testing.T) {
	e := NewEMA(0.5)
	// inputs: 10, 20, 20, 40
	got := make([]float64, 0, 4)
	got = append(got, e.Next(10)) // 10
	got = append(got, e.Next(20)) // 0.5*20 + 0.5*10 = 15
	got = append(got, e.Next(20)) // 0.5*20 + 0.5*15 = 17.5
	got = append(got, e.Next(40)) // 0.5*40 + 0.5*17.5 = 28.75

	want := []float64{10, 15, 17.5, 28.75}
	require.Len(t, got, len(want))
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-9, "i=%d", i)
	}
}

func TestEMA_AlphaOne_NoSmoothing(t *testing.T) {
	e := NewEMA(1.0)
	// First value passes through, then always equal to latest input
	assert.Equal(t, 10.0, e.Next(10))
	assert.Equal(t, 20.0, e.Next(20))
	assert.Equal(t, 5.0, e.Next(5))
}

func TestEMA_AlphaZero_HoldsInitialValue(t *testing.T) {
	e := NewEMA(0.0)
	// First sample sets state; subsequent outputs remain at that value
	assert.Equal(t, 10.0, e.Next(10))
	assert.Equal(t, 10.0, e.Next(20))
	assert.Equal(t, 10.0, e.Next(-5))
}

func TestDeltaU64(t *testing.T) {
	assert.Equal(t, uint64(10), DeltaU64(110, 100))
	assert.Equal(t, uint64(0), DeltaU64(100, 100))
	// now < prev is treated as a reset
	assert.Equal(t, uint64(0), DeltaU64(99, 100))
}

func TestSafeDiv(t *testing.T) {
	assert.InDelta(t, 2.5, SafeDiv(5, 2), 1e-12)
	assert.Equal(t, 0.0, SafeDiv(123, 0))
	assert.Equal(t, 0.0, SafeDiv(1, 1e-13))
}

func TestClamp01(t *testing.T) {
	assert.Equal(t, 0.0, Clamp01(-1))
	assert.Equal(t, 1.0, Clamp01(42))
	assert.Equal(t, 0.25, Clamp01(0.25))
	assert.Equal(t, 0.0, Clamp01(math.NaN()))
}

func TestEMA_ValueAndClamp(t *testing.T) {
	e := NewEMA(2) // clamped to 1
	_, ok := e.Value()
	assert.False(t, ok)

	e.Next(10)
	e.Next(20)
	v, ok := e.Value()
	assert.True(t, ok)
	assert.Equal(t, 20.0, v)
}

func TestChargeRate(t *testing.T) {
	// 1 mAh over one hour is 1 mA
	assert.InDelta(t, 1.0, ChargeRate(1, 3600), 1e-12)
	// 0.01 mAh in one second is 36 mA
	assert.InDelta(t, 36.0, ChargeRate(0.01, 1), 1e-9)
	assert.Equal(t, 0.0, ChargeRate(5, 0))
}
