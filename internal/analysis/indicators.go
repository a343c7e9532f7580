package analysis

import (
	"math"

	"signal-scanner/internal/candles"
)

// CalculateSMA returns the simple moving average of closes over the last
// `period` candles. Returns 0 when there is not enough data.
func CalculateSMA(cs []candles.Candle, period int) float64 {
	if period <= 0 || len(cs) < period {
		return 0
	}
	sum := 0.0
	for _, c := range cs[len(cs)-period:] {
		sum += c.Close
	}
	return sum / float64(period)
}

// CalculateEMA returns the exponential moving average of closes over the
// last `period` candles, seeded with the SMA of the first period.
func CalculateEMA(cs []candles.Candle, period int) float64 {
	if period <= 0 || len(cs) < period {
		return 0
	}
	multiplier := 2.0 / (float64(period) + 1.0)
	ema := CalculateSMA(cs[:period], period)
	for _, c := range cs[period:] {
		ema = (c.Close-ema)*multiplier + ema
	}
	return ema
}

// CalculateATR returns the average true range over the last `period`
// candles.
func CalculateATR(cs []candles.Candle, period int) float64 {
	if period <= 0 || len(cs) < period+1 {
		return 0
	}
	sum := 0.0
	start := len(cs) - period
	for i := start; i < len(cs); i++ {
		highLow := cs[i].High - cs[i].Low
		highClose := math.Abs(cs[i].High - cs[i-1].Close)
		lowClose := math.Abs(cs[i].Low - cs[i-1].Close)
		tr := math.Max(highLow, math.Max(highClose, lowClose))
		sum += tr
	}
	return sum / float64(period)
}

// TrendStrength is an ADX-style directional strength reading on a 0-100
// scale: the net close-to-close move over the period measured in ATR
// units. Choppy ranges score near 0, sustained moves saturate at 100.
func TrendStrength(cs []candles.Candle, period int) float64 {
	if period <= 0 || len(cs) < period+1 {
		return 0
	}
	atr := CalculateATR(cs, period)
	if atr == 0 {
		return 0
	}
	priceRange := math.Abs(cs[len(cs)-1].Close - cs[len(cs)-1-period].Close)
	strength := (priceRange / atr) * 25
	if strength > 100 {
		strength = 100
	}
	return strength
}
