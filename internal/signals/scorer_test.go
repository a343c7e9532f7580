package signals

import (
	"math"
	"reflect"
	"testing"
	"time"

	"signal-scanner/internal/candles"
	"signal-scanner/internal/confluence"
	"signal-scanner/internal/patterns"
)

var scorerBase = time.Date(2024, 3, 8, 15, 0, 0, 0, time.UTC)

func sigCandle(i int, o, h, l, c, v float64) candles.Candle {
	return candles.Candle{
		TimestampUTC:    scorerBase.Add(time.Duration(i) * 5 * time.Minute),
		Open:            o,
		High:            h,
		Low:             l,
		Close:           c,
		Volume:          v,
		IntervalMinutes: 5,
	}
}

// chartGroup builds a single-member group around a chart match whose
// projection is supplied directly.
func chartGroup(symbol string, kind patterns.Kind, anchorIdx int, conf, target, stop float64) confluence.Group {
	ts := scorerBase.Add(time.Duration(anchorIdx) * 5 * time.Minute)
	m := patterns.Match{
		Symbol:          symbol,
		Kind:            kind,
		Confidence:      conf,
		TimestampUTC:    ts,
		AnchorIndex:     anchorIdx,
		ProjectedTarget: target,
		ProjectedStop:   stop,
	}
	return confluence.Group{
		Symbol:             symbol,
		TimestampUTC:       ts,
		Primary:            m,
		Members:            []patterns.Match{m},
		CombinedConfidence: conf,
	}
}

func candleGroup(symbol string, kind patterns.Kind, anchorIdx int, conf float64) confluence.Group {
	ts := scorerBase.Add(time.Duration(anchorIdx) * 5 * time.Minute)
	m := patterns.Match{
		Symbol:       symbol,
		Kind:         kind,
		Confidence:   conf,
		TimestampUTC: ts,
		AnchorIndex:  anchorIdx,
	}
	return confluence.Group{
		Symbol:             symbol,
		TimestampUTC:       ts,
		Primary:            m,
		Members:            []patterns.Match{m},
		CombinedConfidence: conf,
	}
}

func scoreCfg(ageMinutes float64) ScoreConfig {
	return ScoreConfig{
		IntervalMinutes: 5,
		Now:             scorerBase.Add(2*5*time.Minute + time.Duration(ageMinutes*float64(time.Minute))),
	}
}

// rrWindow anchors the worked risk/reward figures: typical price of the
// last candle is (176.00+174.50+175.19)/3 = 175.23.
func rrWindow() []candles.Candle {
	return []candles.Candle{
		sigCandle(0, 174.0, 174.8, 173.5, 174.4, 1000),
		sigCandle(1, 174.4, 175.2, 174.1, 174.8, 1000),
		sigCandle(2, 174.8, 176.00, 174.50, 175.19, 1500),
	}
}

func TestScoreRiskRewardFigures(t *testing.T) {
	g := chartGroup("AAPL", patterns.DoubleBottom, 2, 84, 182.50, 172.10)
	sig, ok := NewScorer().Score(g, rrWindow(), scoreCfg(0))
	if !ok {
		t.Fatal("Should produce a signal for a valid bullish projection")
	}

	if math.Abs(sig.EntryPrice-175.23) > 1e-9 {
		t.Errorf("entry = %.4f, want 175.23", sig.EntryPrice)
	}
	if math.Abs(sig.RiskPercent-1.79) > 0.01 {
		t.Errorf("riskPercent = %.4f, want 1.79 within 0.01", sig.RiskPercent)
	}
	if math.Abs(sig.RewardPercent-4.15) > 0.01 {
		t.Errorf("rewardPercent = %.4f, want 4.15 within 0.01", sig.RewardPercent)
	}
	if math.Abs(sig.RiskRewardRatio-2.32) > 0.01 {
		t.Errorf("riskRewardRatio = %.4f, want 2.32 within 0.01", sig.RiskRewardRatio)
	}
	if sig.Direction != Long {
		t.Errorf("direction = %s, want %s", sig.Direction, Long)
	}
	if !sig.IsChartPattern {
		t.Error("Should flag a double bottom as a chart pattern")
	}
}

func TestScoreUrgencyBoundaries(t *testing.T) {
	tests := []struct {
		age  float64
		want Urgency
	}{
		{0, UrgencyUrgent},
		{4, UrgencyUrgent},
		{5, UrgencyModerate},
		{14, UrgencyModerate},
		{15, UrgencyWatch},
		{90, UrgencyWatch},
	}
	g := chartGroup("AAPL", patterns.DoubleBottom, 2, 84, 182.50, 172.10)
	for _, tt := range tests {
		sig, ok := NewScorer().Score(g, rrWindow(), scoreCfg(tt.age))
		if !ok {
			t.Fatalf("age %.0f: Should produce a signal", tt.age)
		}
		if sig.Urgency != tt.want {
			t.Errorf("age %.0f: urgency = %s, want %s", tt.age, sig.Urgency, tt.want)
		}
		if math.Abs(sig.AgeMinutes-tt.age) > 1e-9 {
			t.Errorf("age %.0f: ageMinutes = %.4f", tt.age, sig.AgeMinutes)
		}
	}
}

func TestScoreFreshness(t *testing.T) {
	g := chartGroup("AAPL", patterns.DoubleBottom, 2, 84, 182.50, 172.10)

	// Two five-minute bars define the freshness window.
	sig, ok := NewScorer().Score(g, rrWindow(), scoreCfg(9))
	if !ok || !sig.IsFresh {
		t.Error("Should stay fresh inside two bar intervals")
	}
	sig, ok = NewScorer().Score(g, rrWindow(), scoreCfg(10))
	if !ok {
		t.Fatal("Should still score a stale signal")
	}
	if sig.IsFresh {
		t.Error("Should go stale at exactly two bar intervals")
	}
}

func TestScoreVolumeConfirmationBoundary(t *testing.T) {
	window := rrWindow()
	g := chartGroup("AAPL", patterns.DoubleBottom, 2, 84, 182.50, 172.10)

	// Anchor trades 1500 against a 1000 trailing average.
	sig, ok := NewScorer().Score(g, window, scoreCfg(0))
	if !ok {
		t.Fatal("Should produce a signal")
	}
	if math.Abs(sig.VolumeRatio-1.5) > 1e-9 {
		t.Errorf("volumeRatio = %.4f, want 1.5", sig.VolumeRatio)
	}
	if !sig.HasVolumeConfirmation {
		t.Error("Should confirm volume at exactly 1.5x the trailing average")
	}
	if math.Abs(sig.AvgVolume-1000) > 1e-9 {
		t.Errorf("avgVolume = %.4f, want 1000", sig.AvgVolume)
	}
	if math.Abs(sig.Volume-1500) > 1e-9 {
		t.Errorf("volume = %.4f, want 1500", sig.Volume)
	}

	window[2].Volume = 1499
	sig, ok = NewScorer().Score(g, window, scoreCfg(0))
	if !ok {
		t.Fatal("Should produce a signal")
	}
	if sig.HasVolumeConfirmation {
		t.Error("Should not confirm volume below 1.5x the trailing average")
	}
}

func TestScoreBaseQualityArithmetic(t *testing.T) {
	// entry 100, stop 98, target 104: risk 2%, reward 4%, ratio 2.
	window := []candles.Candle{
		sigCandle(0, 99.5, 100.5, 99.0, 100.0, 1000),
		sigCandle(1, 100.0, 100.8, 99.4, 100.2, 1000),
		sigCandle(2, 100.2, 101.0, 99.0, 100.0, 1000),
	}
	g := chartGroup("MSFT", patterns.AscendingTriangle, 2, 80, 104.0, 98.0)

	sig, ok := NewScorer().Score(g, window, scoreCfg(0))
	if !ok {
		t.Fatal("Should produce a signal")
	}
	// 0.45*0.8 + 0.30*(2/3) + 0.25*0.5 scaled to 100.
	want := 68.5
	if math.Abs(sig.SignalQuality-want) > 1e-6 {
		t.Errorf("signalQuality = %.6f, want %.2f", sig.SignalQuality, want)
	}
	if sig.SignalQuality < 0 || sig.SignalQuality > 100 {
		t.Errorf("signalQuality = %.2f outside [0,100]", sig.SignalQuality)
	}
}

func TestScoreEnhancedQualityWithoutTrendHistory(t *testing.T) {
	// Too few candles for the trend reading, so its term contributes zero
	// and the reweighted sum lands below the base score.
	window := []candles.Candle{
		sigCandle(0, 99.5, 100.5, 99.0, 100.0, 1000),
		sigCandle(1, 100.0, 100.8, 99.4, 100.2, 1000),
		sigCandle(2, 100.2, 101.0, 99.0, 100.0, 1000),
	}
	g := chartGroup("MSFT", patterns.AscendingTriangle, 2, 80, 104.0, 98.0)

	cfg := scoreCfg(0)
	cfg.Enhanced = true
	sig, ok := NewScorer().Score(g, window, cfg)
	if !ok {
		t.Fatal("Should produce a signal")
	}
	want := (0.40*0.8 + 0.25*(2.0/3.0) + 0.20*0.5) * 100
	if math.Abs(sig.SignalQuality-want) > 1e-6 {
		t.Errorf("signalQuality = %.6f, want %.6f", sig.SignalQuality, want)
	}
}

func TestScoreLookAheadGuard(t *testing.T) {
	g := chartGroup("AAPL", patterns.DoubleBottom, 2, 84, 182.50, 172.10)

	if _, ok := NewScorer().Score(g, nil, scoreCfg(0)); ok {
		t.Error("Should reject an empty window")
	}

	// A candle beyond the anchor means the caller leaked the future.
	leaky := append(rrWindow(), sigCandle(3, 175.2, 176.0, 175.0, 175.8, 1000))
	if _, ok := NewScorer().Score(g, leaky, scoreCfg(0)); ok {
		t.Error("Should reject a window extending past the anchor")
	}

	// A window ending before the anchor cannot describe it either.
	short := rrWindow()[:2]
	if _, ok := NewScorer().Score(g, short, scoreCfg(0)); ok {
		t.Error("Should reject a window ending before the anchor")
	}
}

func TestScoreNeutralDirectionResolution(t *testing.T) {
	doji := func(prevOpen, prevClose float64) []candles.Candle {
		return []candles.Candle{
			sigCandle(0, 100.0, 101.0, 99.5, 100.5, 1000),
			sigCandle(1, prevOpen, math.Max(prevOpen, prevClose)+0.3, math.Min(prevOpen, prevClose)-0.3, prevClose, 1000),
			sigCandle(2, 102.0, 103.0, 101.0, 102.02, 1200),
		}
	}
	g := candleGroup("AAPL", patterns.Doji, 2, 65)

	// Indecision after a push reads contra the push.
	sig, ok := NewScorer().Score(g, doji(101.0, 102.0), scoreCfg(0))
	if !ok {
		t.Fatal("Should resolve a doji after a bullish candle")
	}
	if sig.Direction != Short {
		t.Errorf("direction after bullish candle = %s, want %s", sig.Direction, Short)
	}

	sig, ok = NewScorer().Score(g, doji(102.0, 101.0), scoreCfg(0))
	if !ok {
		t.Fatal("Should resolve a doji after a bearish candle")
	}
	if sig.Direction != Long {
		t.Errorf("direction after bearish candle = %s, want %s", sig.Direction, Long)
	}

	if _, ok := NewScorer().Score(g, doji(101.5, 101.5), scoreCfg(0)); ok {
		t.Error("Should not resolve a doji after a flat candle")
	}

	lone := candleGroup("AAPL", patterns.Doji, 0, 65)
	window := []candles.Candle{sigCandle(0, 102.0, 103.0, 101.0, 102.02, 1200)}
	if _, ok := NewScorer().Score(lone, window, scoreCfg(0)); ok {
		t.Error("Should not resolve a doji with no prior candle")
	}
}

func TestScoreRejectsLevelsThatDoNotBracketEntry(t *testing.T) {
	// entry is 100; a stop at the entry leaves nothing at risk.
	window := []candles.Candle{
		sigCandle(0, 99.5, 100.5, 99.0, 100.0, 1000),
		sigCandle(1, 100.0, 100.8, 99.4, 100.2, 1000),
		sigCandle(2, 100.2, 101.0, 99.0, 100.0, 1000),
	}
	g := chartGroup("MSFT", patterns.AscendingTriangle, 2, 80, 104.0, 100.0)
	if _, ok := NewScorer().Score(g, window, scoreCfg(0)); ok {
		t.Error("Should reject a stop at the entry price")
	}

	// Inverted projection for the direction.
	g = chartGroup("MSFT", patterns.AscendingTriangle, 2, 80, 98.0, 104.0)
	if _, ok := NewScorer().Score(g, window, scoreCfg(0)); ok {
		t.Error("Should reject a bullish projection below the entry")
	}
}

func TestScoreCandlestickSwingLevels(t *testing.T) {
	// One confirmed peak and one confirmed trough around the entry: the
	// stop snaps to the swing low, the target to the swing high.
	closes := []float64{
		100.0, 100.5, 101.0, 101.5, 102.0, 102.5, 103.0,
		102.2, 101.4, 100.6, 99.8, 99.0, 98.0,
		98.5, 99.0, 99.4, 99.7, 99.9, 100.05, 100.15,
	}
	window := make([]candles.Candle, 0, len(closes))
	for i, c := range closes {
		window = append(window, sigCandle(i, c-0.02, c+0.1, c-0.1, c, 1000))
	}
	// Swing high 103.1 at index 6, swing low 97.9 at index 12.
	window[len(window)-1] = sigCandle(len(closes)-1, 100.0, 100.3, 99.8, 100.15, 1400)

	g := candleGroup("NVDA", patterns.BullishEngulfing, len(closes)-1, 78)
	cfg := ScoreConfig{IntervalMinutes: 5, Now: window[len(window)-1].TimestampUTC}
	sig, ok := NewScorer().Score(g, window, cfg)
	if !ok {
		t.Fatal("Should produce a signal from swing levels")
	}
	if sig.Direction != Long {
		t.Errorf("direction = %s, want %s", sig.Direction, Long)
	}
	entry := (100.3 + 99.8 + 100.15) / 3
	if math.Abs(sig.EntryPrice-entry) > 1e-9 {
		t.Errorf("entry = %.4f, want %.4f", sig.EntryPrice, entry)
	}
	if math.Abs(sig.StopLoss-97.9) > 1e-9 {
		t.Errorf("stopLoss = %.4f, want 97.9 from the swing low", sig.StopLoss)
	}
	if math.Abs(sig.Target-103.1) > 1e-9 {
		t.Errorf("target = %.4f, want 103.1 from the swing high", sig.Target)
	}
}

func TestScoreCandlestickFallbackLevels(t *testing.T) {
	// Three candles confirm no swings, so the anchor low and a doubled
	// risk projection stand in.
	window := []candles.Candle{
		sigCandle(0, 101.0, 101.5, 100.2, 100.4, 1000),
		sigCandle(1, 100.4, 100.9, 99.8, 100.0, 1000),
		sigCandle(2, 100.0, 101.2, 99.6, 101.0, 1300),
	}
	g := candleGroup("NVDA", patterns.BullishEngulfing, 2, 78)

	sig, ok := NewScorer().Score(g, window, scoreCfg(0))
	if !ok {
		t.Fatal("Should fall back to anchor extremes without swings")
	}
	entry := (101.2 + 99.6 + 101.0) / 3
	if math.Abs(sig.StopLoss-99.6) > 1e-9 {
		t.Errorf("stopLoss = %.4f, want the anchor low 99.6", sig.StopLoss)
	}
	wantTarget := entry + 2*(entry-99.6)
	if math.Abs(sig.Target-wantTarget) > 1e-9 {
		t.Errorf("target = %.4f, want %.4f", sig.Target, wantTarget)
	}
}

func TestScoreConfluenceFields(t *testing.T) {
	ts := scorerBase.Add(2 * 5 * time.Minute)
	primary := patterns.Match{
		Symbol: "AAPL", Kind: patterns.BullishEngulfing, Confidence: 81,
		TimestampUTC: ts, AnchorIndex: 2,
	}
	second := patterns.Match{
		Symbol: "AAPL", Kind: patterns.Hammer, Confidence: 72,
		TimestampUTC: ts, AnchorIndex: 2,
	}
	g := confluence.Group{
		Symbol:             "AAPL",
		TimestampUTC:       ts,
		Primary:            primary,
		Members:            []patterns.Match{primary, second},
		CombinedConfidence: 89,
	}
	window := []candles.Candle{
		sigCandle(0, 101.0, 101.5, 100.2, 100.4, 1000),
		sigCandle(1, 100.4, 100.9, 99.8, 100.0, 1000),
		sigCandle(2, 100.0, 101.2, 99.6, 101.0, 1300),
	}

	sig, ok := NewScorer().Score(g, window, scoreCfg(0))
	if !ok {
		t.Fatal("Should score a confluence group")
	}
	if !sig.IsConfluence {
		t.Error("Should mark two agreeing detectors as confluence")
	}
	if sig.ConfluenceCount != 2 {
		t.Errorf("confluenceCount = %d, want 2", sig.ConfluenceCount)
	}
	want := []patterns.Kind{patterns.BullishEngulfing, patterns.Hammer}
	if !reflect.DeepEqual(sig.ConfluentPatterns, want) {
		t.Errorf("confluentPatterns = %v, want %v", sig.ConfluentPatterns, want)
	}
	if math.Abs(sig.Confidence-89) > 1e-9 {
		t.Errorf("confidence = %.2f, want the combined 89", sig.Confidence)
	}

	solo, ok := NewScorer().Score(candleGroup("AAPL", patterns.BullishEngulfing, 2, 81), window, scoreCfg(0))
	if !ok {
		t.Fatal("Should score a single-member group")
	}
	if solo.IsConfluence || solo.ConfluenceCount != 0 || solo.ConfluentPatterns != nil {
		t.Error("Should leave confluence fields empty for a single member")
	}
}

func TestScoreIdempotent(t *testing.T) {
	g := chartGroup("AAPL", patterns.DoubleBottom, 2, 84, 182.50, 172.10)
	cfg := scoreCfg(3)

	first, ok1 := NewScorer().Score(g, rrWindow(), cfg)
	second, ok2 := NewScorer().Score(g, rrWindow(), cfg)
	if !ok1 || !ok2 {
		t.Fatal("Should produce a signal on both runs")
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("Should produce identical signals for identical inputs")
	}
}

func TestScoreAllOrdersByQuality(t *testing.T) {
	series := make([]candles.Candle, 30)
	for i := range series {
		series[i] = sigCandle(i, 99.8, 100.6, 99.4, 100.0, 1000)
	}

	weak := chartGroup("AAPL", patterns.RisingWedge, 20, 55, 104.0, 98.0)
	strong := chartGroup("AAPL", patterns.DoubleBottom, 29, 90, 104.0, 98.0)
	// Wedge projections point down; flip to a valid bearish bracket.
	weak.Primary.ProjectedTarget, weak.Primary.ProjectedStop = 96.0, 102.0
	weak.Members[0] = weak.Primary

	cfg := ScoreConfig{IntervalMinutes: 5, Now: series[29].TimestampUTC.Add(time.Minute)}
	out := NewScorer().ScoreAll([]confluence.Group{weak, strong}, series, cfg)
	if len(out) != 2 {
		t.Fatalf("signals = %d, want 2", len(out))
	}
	if out[0].Pattern != patterns.DoubleBottom || out[1].Pattern != patterns.RisingWedge {
		t.Errorf("order = [%s, %s], want quality descending", out[0].Pattern, out[1].Pattern)
	}
	if out[0].SignalQuality < out[1].SignalQuality {
		t.Error("Should order signals best quality first")
	}
}

func TestScoreAllSkipsUnknownAnchors(t *testing.T) {
	series := make([]candles.Candle, 10)
	for i := range series {
		series[i] = sigCandle(i, 99.8, 100.6, 99.4, 100.0, 1000)
	}
	known := chartGroup("AAPL", patterns.DoubleBottom, 9, 84, 104.0, 98.0)
	phantom := chartGroup("AAPL", patterns.DoubleBottom, 9, 84, 104.0, 98.0)
	phantom.TimestampUTC = scorerBase.Add(-time.Hour)

	cfg := ScoreConfig{IntervalMinutes: 5, Now: series[9].TimestampUTC}
	out := NewScorer().ScoreAll([]confluence.Group{phantom, known}, series, cfg)
	if len(out) != 1 {
		t.Fatalf("signals = %d, want 1", len(out))
	}
	if !out[0].Timestamp.Equal(known.TimestampUTC) {
		t.Error("Should keep only the group anchored to a known candle")
	}
}

func BenchmarkScoreAll(b *testing.B) {
	series := make([]candles.Candle, 500)
	for i := range series {
		series[i] = sigCandle(i, 99.8, 100.6, 99.4, 100.0, 1000)
	}
	groups := make([]confluence.Group, 0, 50)
	for i := 10; i < 500; i += 10 {
		groups = append(groups, chartGroup("AAPL", patterns.DoubleBottom, i, 80, 104.0, 98.0))
	}
	cfg := ScoreConfig{IntervalMinutes: 5, Now: series[499].TimestampUTC}
	scorer := NewScorer()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		scorer.ScoreAll(groups, series, cfg)
	}
}
