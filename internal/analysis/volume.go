package analysis

import (
	"signal-scanner/internal/candles"
)

// AverageVolume returns the mean volume over the last `period` candles of
// the slice, or over the whole slice when it is shorter. Returns 0 for an
// empty slice.
func AverageVolume(cs []candles.Candle, period int) float64 {
	if len(cs) == 0 || period <= 0 {
		return 0
	}
	if len(cs) > period {
		cs = cs[len(cs)-period:]
	}
	sum := 0.0
	for _, c := range cs {
		sum += c.Volume
	}
	return sum / float64(len(cs))
}

// VolumeRatio compares the candle at anchorIndex against the average of
// the `period` candles before it, excluding the anchor itself. Returns 0
// when the trailing average is zero or the anchor has no history.
func VolumeRatio(cs []candles.Candle, anchorIndex, period int) float64 {
	if anchorIndex <= 0 || anchorIndex >= len(cs) {
		return 0
	}
	avg := AverageVolume(cs[:anchorIndex], period)
	if avg == 0 {
		return 0
	}
	return cs[anchorIndex].Volume / avg
}

// IsVolumeSpike reports whether the last candle traded at least
// `multiplier` times the trailing average volume.
func IsVolumeSpike(cs []candles.Candle, period int, multiplier float64) bool {
	if len(cs) < 2 {
		return false
	}
	ratio := VolumeRatio(cs, len(cs)-1, period)
	return ratio >= multiplier
}
