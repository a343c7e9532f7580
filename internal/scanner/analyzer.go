package scanner

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"signal-scanner/internal/candles"
	"signal-scanner/internal/confluence"
	"signal-scanner/internal/patterns"
	"signal-scanner/internal/signals"
)

// Source is the upstream bar/price collaborator. Implementations must
// tolerate unknown symbols by returning empty results, not panicking into
// the pipeline.
type Source interface {
	GetCandles(ctx context.Context, symbol string, intervalMinutes, limit int) ([]candles.Candle, error)
	GetRealTimePrice(ctx context.Context, symbol string) (float64, bool)
}

// staleAfterIntervals marks candle-derived prices as stale once the last
// bar is more than this many intervals old.
const staleAfterIntervals = 2

// Analyzer runs the per-symbol pipeline: candles through detection,
// clustering, scoring and filtering. It holds no per-request state and is
// safe for concurrent use across symbols.
type Analyzer struct {
	engine  *patterns.Engine
	grouper *confluence.Grouper
	scorer  *signals.Scorer
	log     zerolog.Logger
}

// NewAnalyzer wires the detection and scoring stages.
func NewAnalyzer(engine *patterns.Engine, grouper *confluence.Grouper, scorer *signals.Scorer, log zerolog.Logger) *Analyzer {
	return &Analyzer{
		engine:  engine,
		grouper: grouper,
		scorer:  scorer,
		log:     log.With().Str("component", "analyzer").Logger(),
	}
}

// AnalyzeCandles runs detection, clustering and scoring over a prepared
// candle series. The caller supplies Now so replays are reproducible.
func (a *Analyzer) AnalyzeCandles(symbol string, series []candles.Candle, cfg Config, now time.Time) ([]signals.Signal, []confluence.Group) {
	if len(series) == 0 {
		return nil, nil
	}

	matches := a.engine.DetectAll(symbol, series)
	groups := a.grouper.Group(matches)
	scored := a.scorer.ScoreAll(groups, series, signals.ScoreConfig{
		IntervalMinutes: cfg.IntervalMinutes,
		Now:             now,
		Enhanced:        cfg.Enhanced,
	})
	filtered := signals.Filter(scored, signals.FilterOptions{MinQuality: cfg.MinQuality})
	return filtered, groups
}

// AnalyzeSymbol fetches one symbol's candles from the source and runs the
// pipeline over them. An empty candle response reports zero patterns, not
// an error; only source failures propagate.
func (a *Analyzer) AnalyzeSymbol(ctx context.Context, source Source, symbol string, cfg Config, now time.Time) (SymbolReport, error) {
	series, err := source.GetCandles(ctx, symbol, cfg.IntervalMinutes, cfg.CandleLookback)
	if err != nil {
		return SymbolReport{}, fmt.Errorf("fetching candles for %s: %w", symbol, err)
	}

	sigs, groups := a.AnalyzeCandles(symbol, series, cfg, now)

	report := SymbolReport{
		Symbol:        symbol,
		Signals:       sigs,
		TotalPatterns: len(sigs),
		PriceContext:  a.priceContext(ctx, source, symbol, series, cfg, now),
	}
	for _, s := range sigs {
		if s.SignalQuality > report.TopQuality {
			report.TopQuality = s.SignalQuality
		}
	}
	for _, g := range groups {
		if g.IsConfluence() {
			report.HasConfluence = true
			break
		}
	}
	return report, nil
}

// priceContext resolves the freshest price for the symbol. A live quote
// wins; otherwise the last candle close stands in, flagged stale once it
// is older than two intervals.
func (a *Analyzer) priceContext(ctx context.Context, source Source, symbol string, series []candles.Candle, cfg Config, now time.Time) PriceContext {
	if price, ok := source.GetRealTimePrice(ctx, symbol); ok {
		return PriceContext{
			CurrentPrice:    price,
			PriceIsRealTime: true,
			PriceAgeMinutes: 0,
		}
	}

	if len(series) == 0 {
		return PriceContext{PriceWarning: "no price data available"}
	}

	last := series[len(series)-1]
	age := now.Sub(last.TimestampUTC).Minutes()
	pc := PriceContext{
		CurrentPrice:    last.Close,
		PriceIsRealTime: false,
		PriceAgeMinutes: age,
	}
	if age > float64(cfg.IntervalMinutes*staleAfterIntervals) {
		pc.PriceWarning = fmt.Sprintf("price is %.0f minutes old", age)
	}
	return pc
}
