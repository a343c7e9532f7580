package analysis

import (
	"signal-scanner/internal/candles"
)

// SwingPoint is a confirmed local price extreme. A high at index i is
// confirmed when the `lookback` candles on each side have strictly lower
// highs; lows mirror that. Confirmation therefore lags the pivot by
// `lookback` candles.
type SwingPoint struct {
	Index  int
	Price  float64
	IsHigh bool
}

// FindSwingPoints scans the slice for confirmed swing highs and lows.
// Results are ordered by index. Only candles inside the slice are
// consulted, so the last `lookback` candles can never confirm a pivot.
func FindSwingPoints(cs []candles.Candle, lookback int) []SwingPoint {
	var swings []SwingPoint
	if lookback < 1 {
		lookback = 1
	}
	n := len(cs)

	for i := lookback; i < n-lookback; i++ {
		isHigh := true
		for j := 1; j <= lookback; j++ {
			if cs[i].High <= cs[i-j].High || cs[i].High <= cs[i+j].High {
				isHigh = false
				break
			}
		}
		if isHigh {
			swings = append(swings, SwingPoint{Index: i, Price: cs[i].High, IsHigh: true})
		}

		isLow := true
		for j := 1; j <= lookback; j++ {
			if cs[i].Low >= cs[i-j].Low || cs[i].Low >= cs[i+j].Low {
				isLow = false
				break
			}
		}
		if isLow {
			swings = append(swings, SwingPoint{Index: i, Price: cs[i].Low, IsHigh: false})
		}
	}

	return swings
}

// SwingHighs filters swing points down to the highs.
func SwingHighs(swings []SwingPoint) []SwingPoint {
	var highs []SwingPoint
	for _, s := range swings {
		if s.IsHigh {
			highs = append(highs, s)
		}
	}
	return highs
}

// SwingLows filters swing points down to the lows.
func SwingLows(swings []SwingPoint) []SwingPoint {
	var lows []SwingPoint
	for _, s := range swings {
		if !s.IsHigh {
			lows = append(lows, s)
		}
	}
	return lows
}

// NearestSupport returns the highest swing low strictly below the given
// price. The bool is false when no swing low qualifies.
func NearestSupport(swings []SwingPoint, price float64) (float64, bool) {
	best := 0.0
	found := false
	for _, s := range swings {
		if s.IsHigh || s.Price >= price {
			continue
		}
		if !found || s.Price > best {
			best = s.Price
			found = true
		}
	}
	return best, found
}

// NearestResistance returns the lowest swing high strictly above the given
// price. The bool is false when no swing high qualifies.
func NearestResistance(swings []SwingPoint, price float64) (float64, bool) {
	best := 0.0
	found := false
	for _, s := range swings {
		if !s.IsHigh || s.Price <= price {
			continue
		}
		if !found || s.Price < best {
			best = s.Price
			found = true
		}
	}
	return best, found
}
