package signals

import (
	"math"
	"time"

	"signal-scanner/internal/analysis"
	"signal-scanner/internal/candles"
	"signal-scanner/internal/confluence"
	"signal-scanner/internal/patterns"
)

// Composite quality weights. Fixed by policy; swapping them is a one-line
// change but they are not runtime-configurable.
const (
	baseConfidenceWeight = 0.45
	baseRiskRewardWeight = 0.30
	baseVolumeWeight     = 0.25

	enhancedConfidenceWeight = 0.40
	enhancedRiskRewardWeight = 0.25
	enhancedVolumeWeight     = 0.20
	enhancedTrendWeight      = 0.15

	// Saturation points: anything past these is "good enough".
	riskRewardSaturation = 3.0
	volumeSaturation     = 2.0

	volumeLookback        = 20
	trendPeriod           = 14
	volumeConfirmationMin = 1.5

	swingLookback = 3
)

// ScoreConfig carries the request-scoped inputs of scoring. Now is taken
// as a parameter so freshness is reproducible in tests and batch replays.
type ScoreConfig struct {
	IntervalMinutes int
	Now             time.Time
	Enhanced        bool // blend trend strength into quality
}

// Scorer turns confluence groups into scored signals. It is stateless and
// safe for concurrent use.
type Scorer struct{}

// NewScorer creates a Scorer.
func NewScorer() *Scorer {
	return &Scorer{}
}

// Score evaluates one confluence group against the candles leading up to
// its anchor. The slice must end at the anchor candle: scoring refuses to
// run when any candle sits past the anchor timestamp, which is the
// look-ahead guard, or when the slice is empty. Non-tradeable candidates
// (zero risk, prices that do not bracket the entry, unresolvable
// direction) yield no signal rather than an error.
func (s *Scorer) Score(group confluence.Group, candlesUpToAnchor []candles.Candle, cfg ScoreConfig) (Signal, bool) {
	if len(candlesUpToAnchor) == 0 {
		return Signal{}, false
	}
	for _, c := range candlesUpToAnchor {
		if c.TimestampUTC.After(group.TimestampUTC) {
			return Signal{}, false
		}
	}
	anchorIdx := len(candlesUpToAnchor) - 1
	anchor := candlesUpToAnchor[anchorIdx]
	if !anchor.TimestampUTC.Equal(group.TimestampUTC) {
		return Signal{}, false
	}

	direction, ok := resolveDirection(group.Primary, candlesUpToAnchor)
	if !ok {
		return Signal{}, false
	}

	// Typical price, not the close: wicks distort raw-close entries.
	entry := (anchor.High + anchor.Low + anchor.Close) / 3

	target, stop, ok := s.projectLevels(group.Primary, candlesUpToAnchor, entry, direction)
	if !ok {
		return Signal{}, false
	}

	riskPercent := math.Abs(entry-stop) / entry * 100
	rewardPercent := math.Abs(target-entry) / entry * 100
	if riskPercent == 0 {
		return Signal{}, false
	}
	riskReward := rewardPercent / riskPercent

	avgVolume := analysis.AverageVolume(candlesUpToAnchor[:anchorIdx], volumeLookback)
	volumeRatio := analysis.VolumeRatio(candlesUpToAnchor, anchorIdx, volumeLookback)

	quality := s.quality(group.CombinedConfidence, riskReward, volumeRatio, candlesUpToAnchor, cfg.Enhanced)

	ageMinutes := cfg.Now.Sub(group.TimestampUTC).Minutes()

	sig := Signal{
		Symbol:                group.Symbol,
		Pattern:               group.Primary.Kind,
		Confidence:            group.CombinedConfidence,
		SignalQuality:         quality,
		EntryPrice:            entry,
		Target:                target,
		StopLoss:              stop,
		RiskPercent:           riskPercent,
		RewardPercent:         rewardPercent,
		RiskRewardRatio:       riskReward,
		Direction:             direction,
		Timestamp:             group.TimestampUTC,
		AgeMinutes:            ageMinutes,
		Urgency:               urgencyFor(ageMinutes),
		Volume:                anchor.Volume,
		AvgVolume:             avgVolume,
		VolumeRatio:           volumeRatio,
		HasVolumeConfirmation: volumeRatio >= volumeConfirmationMin,
		IsChartPattern:        group.Primary.IsChartPattern(),
		IsConfluence:          group.IsConfluence(),
		IsFresh:               ageMinutes < float64(cfg.IntervalMinutes*2),
	}
	if group.IsConfluence() {
		sig.ConfluenceCount = len(group.Members)
		sig.ConfluentPatterns = group.Kinds()
	}
	return sig, true
}

// ScoreAll scores every group against the shared candle series, slicing
// each group's look-back window at its own anchor. Output is ordered by
// quality, best first, with timestamp and kind as deterministic
// tie-breaks.
func (s *Scorer) ScoreAll(groups []confluence.Group, series []candles.Candle, cfg ScoreConfig) []Signal {
	byTime := make(map[int64]int, len(series))
	for i, c := range series {
		byTime[c.TimestampUTC.Unix()] = i
	}

	var out []Signal
	for _, g := range groups {
		idx, ok := byTime[g.TimestampUTC.Unix()]
		if !ok {
			continue
		}
		if sig, ok := s.Score(g, series[:idx+1], cfg); ok {
			out = append(out, sig)
		}
	}
	sortSignals(out)
	return out
}

// projectLevels derives the target and stop for the primary match. Chart
// patterns carry their own measured-move projection; candlestick patterns
// lean on the nearest swing levels, with the anchor extremes and a 2R
// projection as fallbacks. Candidates whose levels do not bracket the
// entry are rejected.
func (s *Scorer) projectLevels(primary patterns.Match, window []candles.Candle, entry float64, direction Direction) (target, stop float64, ok bool) {
	if primary.IsChartPattern() {
		target, stop = primary.ProjectedTarget, primary.ProjectedStop
	} else {
		swings := analysis.FindSwingPoints(window, swingLookback)
		anchor := window[len(window)-1]
		if direction == Long {
			var found bool
			stop, found = analysis.NearestSupport(swings, entry)
			if !found {
				stop = anchor.Low
			}
			target, found = analysis.NearestResistance(swings, entry)
			if !found {
				target = entry + 2*(entry-stop)
			}
		} else {
			var found bool
			stop, found = analysis.NearestResistance(swings, entry)
			if !found {
				stop = anchor.High
			}
			target, found = analysis.NearestSupport(swings, entry)
			if !found {
				target = entry - 2*(stop-entry)
			}
		}
	}

	if direction == Long {
		if !(stop < entry && entry < target) {
			return 0, 0, false
		}
	} else {
		if !(target < entry && entry < stop) {
			return 0, 0, false
		}
	}
	return target, stop, true
}

func (s *Scorer) quality(confidence, riskReward, volumeRatio float64, window []candles.Candle, enhanced bool) float64 {
	confNorm := clamp01(confidence / 100)
	rrNorm := clamp01(riskReward / riskRewardSaturation)
	volNorm := clamp01(volumeRatio / volumeSaturation)

	if !enhanced {
		return (baseConfidenceWeight*confNorm +
			baseRiskRewardWeight*rrNorm +
			baseVolumeWeight*volNorm) * 100
	}

	trendNorm := clamp01(analysis.TrendStrength(window, trendPeriod) / 100)
	return (enhancedConfidenceWeight*confNorm +
		enhancedRiskRewardWeight*rrNorm +
		enhancedVolumeWeight*volNorm +
		enhancedTrendWeight*trendNorm) * 100
}

// resolveDirection maps the primary match's bias to a trade side. Neutral
// kinds (the doji) read contra the candle before the anchor: indecision
// after a push tends to resolve against it. Without a prior directional
// candle the signal is unresolvable.
func resolveDirection(primary patterns.Match, window []candles.Candle) (Direction, bool) {
	switch primary.Direction() {
	case patterns.Bullish:
		return Long, true
	case patterns.Bearish:
		return Short, true
	}

	if len(window) < 2 {
		return "", false
	}
	prev := window[len(window)-2]
	switch {
	case prev.Close > prev.Open:
		return Short, true
	case prev.Close < prev.Open:
		return Long, true
	default:
		return "", false
	}
}

func urgencyFor(ageMinutes float64) Urgency {
	switch {
	case ageMinutes < 5:
		return UrgencyUrgent
	case ageMinutes < 15:
		return UrgencyModerate
	default:
		return UrgencyWatch
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
