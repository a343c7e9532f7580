package scanner

import (
	"testing"
	"time"

	"signal-scanner/internal/candles"
	"signal-scanner/internal/patterns"
	"signal-scanner/internal/signals"
)

// threeDayDoubleBottom is three days of five-minute candles rippling
// around 100 with one W shape dropped in partway through.
func threeDayDoubleBottom() []candles.Candle {
	const n = 864
	base := time.Date(2024, 1, 15, 14, 30, 0, 0, time.UTC)
	tri := []float64{0, 0.5, 1, 0.5, 0, -0.5, -1, -0.5}
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = 100 + 0.15*tri[i%8]
	}
	w := []float64{
		99.4, 98.7, 98.0, 97.3, 96.6,
		97.4, 98.2, 99.0,
		98.2, 97.4, 96.7,
		97.5, 98.3, 99.1, 99.8,
	}
	copy(closes[400:], w)

	out := make([]candles.Candle, n)
	for i, c := range closes {
		out[i] = candles.Candle{
			TimestampUTC:    base.Add(time.Duration(i) * 5 * time.Minute),
			Open:            c - 0.02,
			High:            c + 0.1,
			Low:             c - 0.1,
			Close:           c,
			Volume:          1000,
			IntervalMinutes: 5,
		}
	}
	return out
}

func TestAnalyzeCandlesDoubleBottomEndToEnd(t *testing.T) {
	analyzer := newTestScanner(&fakeSource{}, Config{}).analyzer
	series := threeDayDoubleBottom()
	now := series[len(series)-1].TimestampUTC.Add(time.Minute)

	sigs, _ := analyzer.AnalyzeCandles("AAPL", series, Config{IntervalMinutes: 5}, now)

	var bottoms []signals.Signal
	for _, s := range sigs {
		if s.Pattern == patterns.DoubleBottom {
			bottoms = append(bottoms, s)
		}
	}
	if len(bottoms) != 1 {
		t.Fatalf("got %d DOUBLE_BOTTOM signals, want exactly 1", len(bottoms))
	}

	s := bottoms[0]
	if s.Direction != signals.Long {
		t.Errorf("got direction %s, want %s", s.Direction, signals.Long)
	}
	if !s.Timestamp.Equal(series[410].TimestampUTC) {
		t.Errorf("got anchor %v, want the second bottom at %v", s.Timestamp, series[410].TimestampUTC)
	}
	if !s.IsChartPattern {
		t.Error("DOUBLE_BOTTOM should report as a chart pattern")
	}
	if s.Target <= s.EntryPrice || s.StopLoss >= s.EntryPrice {
		t.Errorf("levels do not bracket entry: stop %.2f entry %.2f target %.2f",
			s.StopLoss, s.EntryPrice, s.Target)
	}
	if s.SignalQuality <= 0 || s.SignalQuality > 100 {
		t.Errorf("quality %.2f out of range", s.SignalQuality)
	}
}

func TestAnalyzeCandlesEmptySeries(t *testing.T) {
	analyzer := newTestScanner(&fakeSource{}, Config{}).analyzer

	sigs, groups := analyzer.AnalyzeCandles("AAPL", nil, Config{IntervalMinutes: 5}, time.Now().UTC())
	if len(sigs) != 0 || len(groups) != 0 {
		t.Errorf("empty series should yield nothing, got %d signals %d groups", len(sigs), len(groups))
	}
}
