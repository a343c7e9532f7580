package patterns

import (
	"github.com/rs/zerolog"

	"signal-scanner/internal/candles"
)

// detectorFunc evaluates a single pattern kind at one index of the window.
// Detectors may only look backward from index; candles past it do not exist
// from the detector's point of view.
type detectorFunc func(window []candles.Candle, index int) (Match, bool)

// Engine runs every registered detector over a candle series. Detectors
// are iterated in a fixed kind order so repeated runs over the same
// candles produce identical match slices.
type Engine struct {
	log      zerolog.Logger
	chart    *ChartDetector
	registry map[Kind]detectorFunc
}

// NewEngine wires the full detector set, candlestick and chart alike.
func NewEngine(log zerolog.Logger, chartCfg ChartConfig) *Engine {
	e := &Engine{
		log:   log.With().Str("component", "pattern_engine").Logger(),
		chart: NewChartDetector(chartCfg),
	}
	e.registry = map[Kind]detectorFunc{
		Hammer:             detectHammer,
		ShootingStar:       detectShootingStar,
		Doji:               detectDoji,
		GravestoneDoji:     detectGravestoneDoji,
		DragonflyDoji:      detectDragonflyDoji,
		BullishEngulfing:   detectBullishEngulfing,
		BearishEngulfing:   detectBearishEngulfing,
		BullishHarami:      detectBullishHarami,
		BearishHarami:      detectBearishHarami,
		PiercingLine:       detectPiercingLine,
		DarkCloudCover:     detectDarkCloudCover,
		TweezerTop:         detectTweezerTop,
		TweezerBottom:      detectTweezerBottom,
		MorningStar:        detectMorningStar,
		EveningStar:        detectEveningStar,
		ThreeWhiteSoldiers: detectThreeWhiteSoldiers,
		ThreeBlackCrows:    detectThreeBlackCrows,

		RisingWedge:             e.chart.detectRisingWedge,
		FallingWedge:            e.chart.detectFallingWedge,
		BullFlag:                e.chart.detectBullFlag,
		BearFlag:                e.chart.detectBearFlag,
		DoubleTop:               e.chart.detectDoubleTop,
		DoubleBottom:            e.chart.detectDoubleBottom,
		HeadAndShoulders:        e.chart.detectHeadAndShoulders,
		InverseHeadAndShoulders: e.chart.detectInverseHeadAndShoulders,
		AscendingTriangle:       e.chart.detectAscendingTriangle,
		DescendingTriangle:      e.chart.detectDescendingTriangle,
	}
	return e
}

// DetectAt evaluates every kind at a single candle index. Matches are
// stamped with the symbol and ordered by the fixed kind order.
func (e *Engine) DetectAt(symbol string, window []candles.Candle, index int) []Match {
	if index < 0 || index >= len(window) {
		return nil
	}
	var matches []Match
	for _, kind := range allKinds {
		fn, ok := e.registry[kind]
		if !ok {
			continue
		}
		m, found := fn(window, index)
		if !found {
			continue
		}
		m.Symbol = symbol
		matches = append(matches, m)
		e.log.Debug().
			Str("symbol", symbol).
			Str("pattern", string(m.Kind)).
			Float64("confidence", m.Confidence).
			Time("anchor", m.TimestampUTC).
			Msg("Pattern detected")
	}
	return matches
}

// DetectAll sweeps the whole series, index by index. The result is ordered
// by anchor index first and kind order second, and carries every match the
// series produced.
func (e *Engine) DetectAll(symbol string, window []candles.Candle) []Match {
	var matches []Match
	for i := range window {
		matches = append(matches, e.DetectAt(symbol, window, i)...)
	}
	e.log.Debug().
		Str("symbol", symbol).
		Int("candles", len(window)).
		Int("matches", len(matches)).
		Msg("Pattern sweep complete")
	return matches
}
