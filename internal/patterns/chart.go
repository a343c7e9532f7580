package patterns

import (
	"math"

	"signal-scanner/internal/analysis"
	"signal-scanner/internal/candles"
)

// ChartConfig tunes the multi-candle chart detectors.
type ChartConfig struct {
	MaxPatternBars     int     // trailing window each detector scans
	MinPatternBars     int     // fewer candles than this yields no match
	SwingLookback      int     // candles on each side confirming a pivot
	TolerancePercent   float64 // level-matching band, fraction of price
	MinRetracePercent  float64 // retracement depth for double tops/bottoms
	MinHeadPercent     float64 // head prominence over shoulders
	MinPoleMovePercent float64 // pole strength for flags
	PoleBars           int     // pole length for flags
	FlagBars           int     // consolidation length for flags
}

// DefaultChartConfig mirrors the tolerances the detectors were tuned with.
func DefaultChartConfig() ChartConfig {
	return ChartConfig{
		MaxPatternBars:     100,
		MinPatternBars:     10,
		SwingLookback:      3,
		TolerancePercent:   0.02,
		MinRetracePercent:  0.01,
		MinHeadPercent:     0.01,
		MinPoleMovePercent: 0.05,
		PoleBars:           10,
		FlagBars:           5,
	}
}

// ChartDetector finds multi-candle shapes from confirmed swing points.
// Every detector follows the window/index contract and fires exactly once
// per completed pattern: on the candle that confirms the final pivot (or,
// for flags, the breakout candle).
type ChartDetector struct {
	cfg ChartConfig
}

// NewChartDetector creates a detector with the given tolerances.
func NewChartDetector(cfg ChartConfig) *ChartDetector {
	if cfg.MaxPatternBars <= 0 {
		cfg = DefaultChartConfig()
	}
	return &ChartDetector{cfg: cfg}
}

// trailing slices the scan window ending at index. start is the window
// offset needed to map sub indices back to window indices.
func (d *ChartDetector) trailing(window []candles.Candle, index int) (sub []candles.Candle, start int, ok bool) {
	if index >= len(window) {
		return nil, 0, false
	}
	start = index + 1 - d.cfg.MaxPatternBars
	if start < 0 {
		start = 0
	}
	sub = window[start : index+1]
	return sub, start, len(sub) >= d.cfg.MinPatternBars
}

func (d *ChartDetector) pricesEqual(p1, p2 float64) bool {
	if p1 == 0 {
		return p2 == 0
	}
	return math.Abs(p1-p2)/p1 <= d.cfg.TolerancePercent
}

// justConfirmed reports whether the pivot at subIdx was confirmed by the
// final candle of the sub window, which makes this index the unique
// firing point for the pattern.
func (d *ChartDetector) justConfirmed(subIdx, subLen int) bool {
	return subIdx == subLen-1-d.cfg.SwingLookback
}

func chartMatch(window []candles.Candle, anchor int, kind Kind, conf, target, stop float64) (Match, bool) {
	return Match{
		Kind:            kind,
		Confidence:      clampConfidence(conf),
		TimestampUTC:    window[anchor].TimestampUTC,
		AnchorIndex:     anchor,
		ProjectedTarget: target,
		ProjectedStop:   stop,
	}, true
}

func (d *ChartDetector) detectDoubleBottom(window []candles.Candle, index int) (Match, bool) {
	sub, start, ok := d.trailing(window, index)
	if !ok {
		return Match{}, false
	}
	lows := analysis.SwingLows(analysis.FindSwingPoints(sub, d.cfg.SwingLookback))
	if len(lows) < 2 {
		return Match{}, false
	}
	first, second := lows[len(lows)-2], lows[len(lows)-1]
	if !d.justConfirmed(second.Index, len(sub)) {
		return Match{}, false
	}
	if !d.pricesEqual(first.Price, second.Price) || second.Index-first.Index < 3 {
		return Match{}, false
	}

	// The retracement peak between the bottoms is the neckline.
	neckline := 0.0
	for i := first.Index + 1; i < second.Index; i++ {
		if sub[i].High > neckline {
			neckline = sub[i].High
		}
	}
	avgLow := (first.Price + second.Price) / 2
	if neckline == 0 || (neckline-avgLow)/avgLow < d.cfg.MinRetracePercent {
		return Match{}, false
	}

	mismatch := math.Abs(first.Price-second.Price) / first.Price / d.cfg.TolerancePercent
	lowest := math.Min(first.Price, second.Price)
	height := neckline - lowest
	return chartMatch(window, start+second.Index, DoubleBottom,
		85-15*mismatch, neckline+height, lowest)
}

func (d *ChartDetector) detectDoubleTop(window []candles.Candle, index int) (Match, bool) {
	sub, start, ok := d.trailing(window, index)
	if !ok {
		return Match{}, false
	}
	highs := analysis.SwingHighs(analysis.FindSwingPoints(sub, d.cfg.SwingLookback))
	if len(highs) < 2 {
		return Match{}, false
	}
	first, second := highs[len(highs)-2], highs[len(highs)-1]
	if !d.justConfirmed(second.Index, len(sub)) {
		return Match{}, false
	}
	if !d.pricesEqual(first.Price, second.Price) || second.Index-first.Index < 3 {
		return Match{}, false
	}

	neckline := math.MaxFloat64
	for i := first.Index + 1; i < second.Index; i++ {
		if sub[i].Low < neckline {
			neckline = sub[i].Low
		}
	}
	avgHigh := (first.Price + second.Price) / 2
	if neckline == math.MaxFloat64 || (avgHigh-neckline)/avgHigh < d.cfg.MinRetracePercent {
		return Match{}, false
	}

	mismatch := math.Abs(first.Price-second.Price) / first.Price / d.cfg.TolerancePercent
	highest := math.Max(first.Price, second.Price)
	height := highest - neckline
	return chartMatch(window, start+second.Index, DoubleTop,
		85-15*mismatch, neckline-height, highest)
}

func (d *ChartDetector) detectHeadAndShoulders(window []candles.Candle, index int) (Match, bool) {
	sub, start, ok := d.trailing(window, index)
	if !ok {
		return Match{}, false
	}
	swings := analysis.FindSwingPoints(sub, d.cfg.SwingLookback)
	highs := analysis.SwingHighs(swings)
	lows := analysis.SwingLows(swings)
	if len(highs) < 3 || len(lows) < 2 {
		return Match{}, false
	}
	left, head, right := highs[len(highs)-3], highs[len(highs)-2], highs[len(highs)-1]
	if !d.justConfirmed(right.Index, len(sub)) {
		return Match{}, false
	}
	// Head must stand proud of both shoulders, shoulders must match.
	prominence := 1 + d.cfg.MinHeadPercent
	if head.Price < left.Price*prominence || head.Price < right.Price*prominence {
		return Match{}, false
	}
	if !d.pricesEqual(left.Price, right.Price) {
		return Match{}, false
	}

	var troughs []analysis.SwingPoint
	for _, l := range lows {
		if l.Index > left.Index && l.Index < right.Index {
			troughs = append(troughs, l)
		}
	}
	if len(troughs) < 2 {
		return Match{}, false
	}
	neckline := (troughs[0].Price + troughs[len(troughs)-1].Price) / 2
	height := head.Price - neckline
	if height <= 0 {
		return Match{}, false
	}

	mismatch := math.Abs(left.Price-right.Price) / left.Price / d.cfg.TolerancePercent
	return chartMatch(window, start+right.Index, HeadAndShoulders,
		85-15*mismatch, neckline-height, right.Price)
}

func (d *ChartDetector) detectInverseHeadAndShoulders(window []candles.Candle, index int) (Match, bool) {
	sub, start, ok := d.trailing(window, index)
	if !ok {
		return Match{}, false
	}
	swings := analysis.FindSwingPoints(sub, d.cfg.SwingLookback)
	highs := analysis.SwingHighs(swings)
	lows := analysis.SwingLows(swings)
	if len(lows) < 3 || len(highs) < 2 {
		return Match{}, false
	}
	left, head, right := lows[len(lows)-3], lows[len(lows)-2], lows[len(lows)-1]
	if !d.justConfirmed(right.Index, len(sub)) {
		return Match{}, false
	}
	prominence := 1 - d.cfg.MinHeadPercent
	if head.Price > left.Price*prominence || head.Price > right.Price*prominence {
		return Match{}, false
	}
	if !d.pricesEqual(left.Price, right.Price) {
		return Match{}, false
	}

	var peaks []analysis.SwingPoint
	for _, h := range highs {
		if h.Index > left.Index && h.Index < right.Index {
			peaks = append(peaks, h)
		}
	}
	if len(peaks) < 2 {
		return Match{}, false
	}
	neckline := (peaks[0].Price + peaks[len(peaks)-1].Price) / 2
	height := neckline - head.Price
	if height <= 0 {
		return Match{}, false
	}

	mismatch := math.Abs(left.Price-right.Price) / left.Price / d.cfg.TolerancePercent
	return chartMatch(window, start+right.Index, InverseHeadAndShoulders,
		85-15*mismatch, neckline+height, right.Price)
}

func (d *ChartDetector) detectAscendingTriangle(window []candles.Candle, index int) (Match, bool) {
	sub, start, ok := d.trailing(window, index)
	if !ok {
		return Match{}, false
	}
	swings := analysis.FindSwingPoints(sub, d.cfg.SwingLookback)
	highs := analysis.SwingHighs(swings)
	lows := analysis.SwingLows(swings)
	if len(highs) < 2 || len(lows) < 2 {
		return Match{}, false
	}
	hPrev, hLast := highs[len(highs)-2], highs[len(highs)-1]
	if !d.pricesEqual(hPrev.Price, hLast.Price) {
		return Match{}, false
	}

	var patternLows []analysis.SwingPoint
	for _, l := range lows {
		if l.Index >= hPrev.Index && l.Index <= hLast.Index {
			patternLows = append(patternLows, l)
		}
	}
	if len(patternLows) < 2 {
		return Match{}, false
	}
	for i := 1; i < len(patternLows); i++ {
		if patternLows[i].Price <= patternLows[i-1].Price {
			return Match{}, false
		}
	}

	lastPivot := hLast.Index
	if last := patternLows[len(patternLows)-1].Index; last > lastPivot {
		lastPivot = last
	}
	if !d.justConfirmed(lastPivot, len(sub)) {
		return Match{}, false
	}

	resistance := (hPrev.Price + hLast.Price) / 2
	height := resistance - patternLows[0].Price
	if height <= 0 {
		return Match{}, false
	}
	mismatch := math.Abs(hPrev.Price-hLast.Price) / hPrev.Price / d.cfg.TolerancePercent
	return chartMatch(window, start+lastPivot, AscendingTriangle,
		80-15*mismatch, resistance+height, patternLows[len(patternLows)-1].Price)
}

func (d *ChartDetector) detectDescendingTriangle(window []candles.Candle, index int) (Match, bool) {
	sub, start, ok := d.trailing(window, index)
	if !ok {
		return Match{}, false
	}
	swings := analysis.FindSwingPoints(sub, d.cfg.SwingLookback)
	highs := analysis.SwingHighs(swings)
	lows := analysis.SwingLows(swings)
	if len(highs) < 2 || len(lows) < 2 {
		return Match{}, false
	}
	lPrev, lLast := lows[len(lows)-2], lows[len(lows)-1]
	if !d.pricesEqual(lPrev.Price, lLast.Price) {
		return Match{}, false
	}

	var patternHighs []analysis.SwingPoint
	for _, h := range highs {
		if h.Index >= lPrev.Index && h.Index <= lLast.Index {
			patternHighs = append(patternHighs, h)
		}
	}
	if len(patternHighs) < 2 {
		return Match{}, false
	}
	for i := 1; i < len(patternHighs); i++ {
		if patternHighs[i].Price >= patternHighs[i-1].Price {
			return Match{}, false
		}
	}

	lastPivot := lLast.Index
	if last := patternHighs[len(patternHighs)-1].Index; last > lastPivot {
		lastPivot = last
	}
	if !d.justConfirmed(lastPivot, len(sub)) {
		return Match{}, false
	}

	support := (lPrev.Price + lLast.Price) / 2
	height := patternHighs[0].Price - support
	if height <= 0 {
		return Match{}, false
	}
	mismatch := math.Abs(lPrev.Price-lLast.Price) / lPrev.Price / d.cfg.TolerancePercent
	return chartMatch(window, start+lastPivot, DescendingTriangle,
		80-15*mismatch, support-height, patternHighs[len(patternHighs)-1].Price)
}

func (d *ChartDetector) detectRisingWedge(window []candles.Candle, index int) (Match, bool) {
	sub, start, ok := d.trailing(window, index)
	if !ok {
		return Match{}, false
	}
	swings := analysis.FindSwingPoints(sub, d.cfg.SwingLookback)
	highs := analysis.SwingHighs(swings)
	lows := analysis.SwingLows(swings)
	if len(highs) < 2 || len(lows) < 2 {
		return Match{}, false
	}
	hPrev, hLast := highs[len(highs)-2], highs[len(highs)-1]
	if hLast.Price <= hPrev.Price {
		return Match{}, false
	}

	var patternLows []analysis.SwingPoint
	for _, l := range lows {
		if l.Index >= hPrev.Index && l.Index <= hLast.Index {
			patternLows = append(patternLows, l)
		}
	}
	if len(patternLows) < 2 {
		return Match{}, false
	}
	for i := 1; i < len(patternLows); i++ {
		if patternLows[i].Price <= patternLows[i-1].Price {
			return Match{}, false
		}
	}

	lastPivot := hLast.Index
	if last := patternLows[len(patternLows)-1].Index; last > lastPivot {
		lastPivot = last
	}
	if !d.justConfirmed(lastPivot, len(sub)) {
		return Match{}, false
	}

	// Converging: resistance rises more slowly than support.
	highSlope := (hLast.Price - hPrev.Price) / float64(hLast.Index-hPrev.Index)
	lowFirst, lowLast := patternLows[0], patternLows[len(patternLows)-1]
	lowSlope := (lowLast.Price - lowFirst.Price) / float64(lowLast.Index-lowFirst.Index)
	if lowSlope <= 0 || highSlope >= lowSlope {
		return Match{}, false
	}

	height := hLast.Price - lowLast.Price
	if height <= 0 {
		return Match{}, false
	}
	convergence := highSlope / lowSlope
	return chartMatch(window, start+lastPivot, RisingWedge,
		75-10*convergence, lowLast.Price-height, hLast.Price)
}

func (d *ChartDetector) detectFallingWedge(window []candles.Candle, index int) (Match, bool) {
	sub, start, ok := d.trailing(window, index)
	if !ok {
		return Match{}, false
	}
	swings := analysis.FindSwingPoints(sub, d.cfg.SwingLookback)
	highs := analysis.SwingHighs(swings)
	lows := analysis.SwingLows(swings)
	if len(highs) < 2 || len(lows) < 2 {
		return Match{}, false
	}
	lPrev, lLast := lows[len(lows)-2], lows[len(lows)-1]
	if lLast.Price >= lPrev.Price {
		return Match{}, false
	}

	var patternHighs []analysis.SwingPoint
	for _, h := range highs {
		if h.Index >= lPrev.Index && h.Index <= lLast.Index {
			patternHighs = append(patternHighs, h)
		}
	}
	if len(patternHighs) < 2 {
		return Match{}, false
	}
	for i := 1; i < len(patternHighs); i++ {
		if patternHighs[i].Price >= patternHighs[i-1].Price {
			return Match{}, false
		}
	}

	lastPivot := lLast.Index
	if last := patternHighs[len(patternHighs)-1].Index; last > lastPivot {
		lastPivot = last
	}
	if !d.justConfirmed(lastPivot, len(sub)) {
		return Match{}, false
	}

	// Converging: support falls more slowly than resistance.
	lowSlope := (lLast.Price - lPrev.Price) / float64(lLast.Index-lPrev.Index)
	highFirst, highLast := patternHighs[0], patternHighs[len(patternHighs)-1]
	highSlope := (highLast.Price - highFirst.Price) / float64(highLast.Index-highFirst.Index)
	if highSlope >= 0 || lowSlope <= highSlope {
		return Match{}, false
	}

	height := highLast.Price - lLast.Price
	if height <= 0 {
		return Match{}, false
	}
	convergence := lowSlope / highSlope
	return chartMatch(window, start+lastPivot, FallingWedge,
		75-10*convergence, highLast.Price+height, lLast.Price)
}

func (d *ChartDetector) detectBullFlag(window []candles.Candle, index int) (Match, bool) {
	need := d.cfg.PoleBars + d.cfg.FlagBars
	if index < need {
		return Match{}, false
	}
	flag := window[index-d.cfg.FlagBars : index]
	pole := window[index-need : index-d.cfg.FlagBars]
	cur := window[index]

	poleStart := pole[0].Open
	poleHeight := pole[len(pole)-1].Close - poleStart
	if poleStart <= 0 || poleHeight/poleStart < d.cfg.MinPoleMovePercent {
		return Match{}, false
	}
	bullish := 0
	for _, c := range pole {
		if c.Close > c.Open {
			bullish++
		}
	}
	if float64(bullish)/float64(len(pole)) < 0.6 {
		return Match{}, false
	}

	// Flag drifts down or sideways and stays small next to the pole.
	flagHigh, flagLow := flag[0].High, flag[0].Low
	for _, c := range flag[1:] {
		if c.High > flagHigh {
			flagHigh = c.High
		}
		if c.Low < flagLow {
			flagLow = c.Low
		}
	}
	if flag[len(flag)-1].Close > flag[0].Close {
		return Match{}, false
	}
	if flagHigh-flagLow > poleHeight*0.5 {
		return Match{}, false
	}

	// Fires on the breakout candle only.
	if cur.Close <= flagHigh {
		return Match{}, false
	}

	conf := 70.0
	if poleHeight/poleStart >= d.cfg.MinPoleMovePercent*2 {
		conf += 10
	}
	return chartMatch(window, index, BullFlag, conf, cur.Close+poleHeight, flagLow)
}

func (d *ChartDetector) detectBearFlag(window []candles.Candle, index int) (Match, bool) {
	need := d.cfg.PoleBars + d.cfg.FlagBars
	if index < need {
		return Match{}, false
	}
	flag := window[index-d.cfg.FlagBars : index]
	pole := window[index-need : index-d.cfg.FlagBars]
	cur := window[index]

	poleStart := pole[0].Open
	poleHeight := poleStart - pole[len(pole)-1].Close
	if poleStart <= 0 || poleHeight/poleStart < d.cfg.MinPoleMovePercent {
		return Match{}, false
	}
	bearish := 0
	for _, c := range pole {
		if c.Close < c.Open {
			bearish++
		}
	}
	if float64(bearish)/float64(len(pole)) < 0.6 {
		return Match{}, false
	}

	flagHigh, flagLow := flag[0].High, flag[0].Low
	for _, c := range flag[1:] {
		if c.High > flagHigh {
			flagHigh = c.High
		}
		if c.Low < flagLow {
			flagLow = c.Low
		}
	}
	if flag[len(flag)-1].Close < flag[0].Close {
		return Match{}, false
	}
	if flagHigh-flagLow > poleHeight*0.5 {
		return Match{}, false
	}

	if cur.Close >= flagLow {
		return Match{}, false
	}

	conf := 70.0
	if poleHeight/poleStart >= d.cfg.MinPoleMovePercent*2 {
		conf += 10
	}
	return chartMatch(window, index, BearFlag, conf, cur.Close-poleHeight, flagHigh)
}
