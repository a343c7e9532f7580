package patterns

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"signal-scanner/internal/candles"
)

// candleAt builds a five-minute candle i steps after the base timestamp.
func candleAt(i int, open, high, low, close float64) candles.Candle {
	base := time.Date(2024, 1, 15, 14, 30, 0, 0, time.UTC)
	return candles.Candle{
		TimestampUTC:    base.Add(time.Duration(i) * 5 * time.Minute),
		Open:            open,
		High:            high,
		Low:             low,
		Close:           close,
		Volume:          1000,
		IntervalMinutes: 5,
	}
}

func TestIsHammer(t *testing.T) {
	// Valid hammer: small body on top of a long lower shadow.
	hammer := candleAt(0, 100, 100.7, 98, 100.5)
	if !IsHammer(hammer) {
		t.Error("Should detect valid Hammer shape")
	}

	// Invalid: long upper shadow.
	notHammer := candleAt(0, 100, 103, 98, 100.5)
	if IsHammer(notHammer) {
		t.Error("Should NOT detect Hammer with long upper shadow")
	}

	// Invalid: zero body.
	flat := candleAt(0, 100, 100.2, 98, 100)
	if IsHammer(flat) {
		t.Error("Should NOT detect Hammer with zero body")
	}
}

func TestIsInvertedHammer(t *testing.T) {
	inverted := candleAt(0, 100.6, 103, 100, 100.1)
	if !IsInvertedHammer(inverted) {
		t.Error("Should detect valid Inverted Hammer shape")
	}

	notInverted := candleAt(0, 100.6, 101, 97, 100.1)
	if IsInvertedHammer(notInverted) {
		t.Error("Should NOT detect Inverted Hammer with long lower shadow")
	}
}

func TestIsDojiVariants(t *testing.T) {
	// Plain doji: tiny body, shadows both sides.
	doji := candleAt(0, 100, 101, 99, 100.05)
	if !IsDoji(doji) {
		t.Error("Should detect valid Doji")
	}
	if IsGravestoneDoji(doji) || IsDragonflyDoji(doji) {
		t.Error("Balanced Doji should not read as Gravestone or Dragonfly")
	}

	// Gravestone: range above the body.
	gravestone := candleAt(0, 100, 102, 99.95, 100.02)
	if !IsGravestoneDoji(gravestone) {
		t.Error("Should detect valid Gravestone Doji")
	}

	// Dragonfly: range below the body.
	dragonfly := candleAt(0, 100, 100.05, 98, 100.02)
	if !IsDragonflyDoji(dragonfly) {
		t.Error("Should detect valid Dragonfly Doji")
	}

	// Large body is no doji at all.
	notDoji := candleAt(0, 100, 110, 98, 108)
	if IsDoji(notDoji) {
		t.Error("Should NOT detect Doji with large body")
	}
}

func TestIsBullishEngulfing(t *testing.T) {
	prev := candleAt(0, 100, 102, 98, 99) // Bearish
	cur := candleAt(1, 98, 105, 97, 104)  // Bullish, engulfs prev body

	if !IsBullishEngulfing(prev, cur) {
		t.Error("Should detect valid Bullish Engulfing pattern")
	}

	// Invalid: prev not bearish.
	prevBullish := candleAt(0, 99, 102, 98, 100)
	if IsBullishEngulfing(prevBullish, cur) {
		t.Error("Should NOT detect pattern when first candle is not bearish")
	}

	// Invalid: current body does not engulf.
	curSmall := candleAt(1, 99, 101, 98, 99.5)
	if IsBullishEngulfing(prev, curSmall) {
		t.Error("Should NOT detect pattern when second candle does not engulf")
	}
}

func TestIsBearishEngulfing(t *testing.T) {
	prev := candleAt(0, 99, 102, 98, 100) // Bullish
	cur := candleAt(1, 101, 103, 95, 96)  // Bearish, engulfs prev body

	if !IsBearishEngulfing(prev, cur) {
		t.Error("Should detect valid Bearish Engulfing pattern")
	}
}

func TestIsHarami(t *testing.T) {
	// Bullish: small bullish body inside a large bearish one.
	bigBear := candleAt(0, 105, 106, 95, 96)
	smallBull := candleAt(1, 98, 100, 97, 99)
	if !IsBullishHarami(bigBear, smallBull) {
		t.Error("Should detect valid Bullish Harami")
	}

	// Second candle escaping the first body breaks the pattern.
	escaping := candleAt(1, 96, 107, 95, 106)
	if IsBullishHarami(bigBear, escaping) {
		t.Error("Should NOT detect Harami when second body escapes the first")
	}

	// Bearish mirror.
	bigBull := candleAt(0, 96, 106, 95, 105)
	smallBear := candleAt(1, 103, 104, 101, 102)
	if !IsBearishHarami(bigBull, smallBear) {
		t.Error("Should detect valid Bearish Harami")
	}
}

func TestIsPiercingLine(t *testing.T) {
	prev := candleAt(0, 102, 103, 97, 98)  // Bearish, midpoint 100
	cur := candleAt(1, 97, 101.5, 96, 101) // Opens below close, pierces midpoint
	if !IsPiercingLine(prev, cur) {
		t.Error("Should detect valid Piercing Line")
	}

	// Closing above the prior open would be an engulfing, not a piercing.
	tooStrong := candleAt(1, 97, 104, 96, 103)
	if IsPiercingLine(prev, tooStrong) {
		t.Error("Should NOT detect Piercing Line when close exceeds prior open")
	}
}

func TestIsDarkCloudCover(t *testing.T) {
	prev := candleAt(0, 98, 103, 97, 102) // Bullish, midpoint 100
	cur := candleAt(1, 103, 104, 98, 99)  // Opens above close, sinks past midpoint
	if !IsDarkCloudCover(prev, cur) {
		t.Error("Should detect valid Dark Cloud Cover")
	}
}

func TestIsTweezers(t *testing.T) {
	topPrev := candleAt(0, 100, 105, 99, 104)
	topCur := candleAt(1, 104, 105, 100, 101)
	if !IsTweezerTop(topPrev, topCur) {
		t.Error("Should detect valid Tweezer Top")
	}

	bottomPrev := candleAt(0, 104, 105, 95, 96)
	bottomCur := candleAt(1, 96, 100, 95, 99)
	if !IsTweezerBottom(bottomPrev, bottomCur) {
		t.Error("Should detect valid Tweezer Bottom")
	}

	// Highs apart by more than 0.1% are not tweezers.
	farCur := candleAt(1, 104, 105.5, 100, 101)
	if IsTweezerTop(topPrev, farCur) {
		t.Error("Should NOT detect Tweezer Top with mismatched highs")
	}
}

func TestIsMorningStar(t *testing.T) {
	first := candleAt(0, 105, 106, 99, 100)        // Long bearish
	second := candleAt(1, 99.5, 100.2, 98.8, 99.8) // Small star
	third := candleAt(2, 100, 106, 99.5, 105)      // Long bullish past midpoint

	if !IsMorningStar(first, second, third) {
		t.Error("Should detect valid Morning Star")
	}

	// Weak third candle never recovers the midpoint.
	weakThird := candleAt(2, 100, 102, 99.5, 101)
	if IsMorningStar(first, second, weakThird) {
		t.Error("Should NOT detect Morning Star without midpoint recovery")
	}
}

func TestIsEveningStar(t *testing.T) {
	first := candleAt(0, 100, 106, 99, 105)
	second := candleAt(1, 105.5, 106.2, 104.8, 105.8)
	third := candleAt(2, 105, 105.5, 99, 100)

	if !IsEveningStar(first, second, third) {
		t.Error("Should detect valid Evening Star")
	}
}

func TestIsThreeWhiteSoldiers(t *testing.T) {
	first := candleAt(0, 100, 103, 99, 102.5)
	second := candleAt(1, 101, 105, 100.5, 104.5)
	third := candleAt(2, 103, 107, 102.5, 106.5)

	if !IsThreeWhiteSoldiers(first, second, third) {
		t.Error("Should detect valid Three White Soldiers")
	}

	// A gap open outside the prior body breaks the staircase.
	gapped := candleAt(1, 103, 105, 102.5, 104.5)
	if IsThreeWhiteSoldiers(first, gapped, third) {
		t.Error("Should NOT detect soldiers when an open escapes the prior body")
	}
}

func TestIsThreeBlackCrows(t *testing.T) {
	first := candleAt(0, 102.5, 103, 99, 100)
	second := candleAt(1, 101.5, 102, 97.5, 98)
	third := candleAt(2, 99.5, 100, 95, 95.5)

	if !IsThreeBlackCrows(first, second, third) {
		t.Error("Should detect valid Three Black Crows")
	}
}

func TestDetectHammerNeedsDownCandleBefore(t *testing.T) {
	hammer := candleAt(1, 100, 100.7, 98, 100.5)

	// After a bearish candle the hammer fires.
	afterDown := []candles.Candle{candleAt(0, 101, 101.5, 99.5, 100), hammer}
	m, ok := detectHammer(afterDown, 1)
	if !ok {
		t.Fatal("Should detect Hammer after a down candle")
	}
	if m.Kind != Hammer {
		t.Errorf("got kind %s, want %s", m.Kind, Hammer)
	}
	if m.AnchorIndex != 1 {
		t.Errorf("got anchor %d, want 1", m.AnchorIndex)
	}
	if !m.TimestampUTC.Equal(hammer.TimestampUTC) {
		t.Errorf("got anchor time %v, want %v", m.TimestampUTC, hammer.TimestampUTC)
	}

	// After a bullish candle the same shape stays silent.
	afterUp := []candles.Candle{candleAt(0, 99.5, 101.5, 99, 101), hammer}
	if _, ok := detectHammer(afterUp, 1); ok {
		t.Error("Should NOT detect Hammer after an up candle")
	}

	// At index zero there is no context candle at all.
	if _, ok := detectHammer([]candles.Candle{hammer}, 0); ok {
		t.Error("Should NOT detect Hammer at index 0")
	}
}

func TestDetectDojiCedesToVariants(t *testing.T) {
	gravestone := []candles.Candle{candleAt(0, 100, 102, 99.95, 100.02)}

	if _, ok := detectDoji(gravestone, 0); ok {
		t.Error("Plain Doji detector should cede to the Gravestone variant")
	}
	m, ok := detectGravestoneDoji(gravestone, 0)
	if !ok {
		t.Fatal("Should detect Gravestone Doji")
	}
	if m.Kind != GravestoneDoji {
		t.Errorf("got kind %s, want %s", m.Kind, GravestoneDoji)
	}

	balanced := []candles.Candle{candleAt(0, 100, 101, 99, 100.05)}
	if _, ok := detectDoji(balanced, 0); !ok {
		t.Error("Should detect plain Doji on a balanced candle")
	}
}

func TestDetectTwoCandleLookBack(t *testing.T) {
	// Two-candle detectors need a predecessor and must not peek ahead.
	cur := candleAt(0, 98, 105, 97, 104)
	window := []candles.Candle{cur}

	if _, ok := detectBullishEngulfing(window, 0); ok {
		t.Error("Should NOT detect two-candle pattern at index 0")
	}
	if _, ok := detectMorningStar(window, 0); ok {
		t.Error("Should NOT detect three-candle pattern at index 0")
	}
}

func TestDetectConfidenceWithinBounds(t *testing.T) {
	engine := NewEngine(zerolog.Nop(), DefaultChartConfig())
	window := []candles.Candle{
		candleAt(0, 100, 105, 99, 104),  // Bullish
		candleAt(1, 104, 106, 98, 99),   // Bearish
		candleAt(2, 98, 105, 97, 103),   // Bullish engulfing
		candleAt(3, 103, 104, 100, 101), // Bearish
		candleAt(4, 101, 101.6, 99, 101.4),
	}

	matches := engine.DetectAll("AAPL", window)
	if len(matches) == 0 {
		t.Fatal("Should detect at least the engulfing pattern")
	}
	for _, m := range matches {
		if m.Confidence <= 0 || m.Confidence > 100 {
			t.Errorf("%s: confidence %.2f out of range", m.Kind, m.Confidence)
		}
		if m.Symbol != "AAPL" {
			t.Errorf("%s: got symbol %q, want AAPL", m.Kind, m.Symbol)
		}
	}
}
