package scanner

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"signal-scanner/internal/events"
	"signal-scanner/internal/metrics"
)

// Scanner fans the per-symbol pipeline out over a bounded worker pool with
// one aggregate deadline. Partial success is the expected outcome: a
// symbol that fails, panics or outlives the deadline is logged and
// dropped, never aborting its siblings.
type Scanner struct {
	source   Source
	analyzer *Analyzer
	config   Config
	eventBus *events.EventBus
	recorder *metrics.Recorder
	log      zerolog.Logger

	mu         sync.RWMutex
	lastResult *ScanResult
}

// NewScanner creates a scanner. eventBus and recorder may be nil.
func NewScanner(source Source, analyzer *Analyzer, config Config, eventBus *events.EventBus, recorder *metrics.Recorder, log zerolog.Logger) *Scanner {
	if config.WorkerCount <= 0 {
		config.WorkerCount = 5
	}
	if config.ScanTimeout <= 0 {
		config.ScanTimeout = 30 * time.Second
	}
	return &Scanner{
		source:   source,
		analyzer: analyzer,
		config:   config,
		eventBus: eventBus,
		recorder: recorder,
		log:      log.With().Str("component", "scanner").Logger(),
	}
}

// Scan runs the pipeline over every symbol and aggregates what finished
// inside the deadline. Results of late tasks are discarded, not awaited.
func (sc *Scanner) Scan(ctx context.Context, symbols []string) *ScanResult {
	startTime := time.Now()
	scanID := uuid.New().String()

	scanCtx, cancel := context.WithTimeout(ctx, sc.config.ScanTimeout)
	defer cancel()

	sc.log.Info().
		Str("scan_id", scanID).
		Int("symbols", len(symbols)).
		Int("workers", sc.config.WorkerCount).
		Msg("Starting scan")

	symbolChan := make(chan string)
	reportChan := make(chan SymbolReport, len(symbols))

	var wg sync.WaitGroup
	for i := 0; i < sc.config.WorkerCount; i++ {
		wg.Add(1)
		go sc.worker(scanCtx, symbolChan, reportChan, &wg)
	}

	go func() {
		defer close(symbolChan)
		for _, symbol := range symbols {
			select {
			case symbolChan <- symbol:
			case <-scanCtx.Done():
				return
			}
		}
	}()

	// The deadline closes done even while workers are still draining;
	// their late sends land in the buffered channel and are never read.
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-scanCtx.Done():
		sc.log.Warn().
			Str("scan_id", scanID).
			Dur("timeout", sc.config.ScanTimeout).
			Msg("Scan deadline reached, collecting completed symbols only")
	}

	// Drain whatever finished. The channel is never closed: workers that
	// outlive the deadline still complete their buffered send and exit.
	var reports []SymbolReport
collect:
	for {
		select {
		case report := <-reportChan:
			reports = append(reports, report)
		default:
			break collect
		}
	}
	sort.Slice(reports, func(i, j int) bool {
		return reports[i].Symbol < reports[j].Symbol
	})

	patternsFound := 0
	for _, r := range reports {
		patternsFound += r.TotalPatterns
	}

	endTime := time.Now()
	result := &ScanResult{
		ScanID:           scanID,
		StartTime:        startTime,
		EndTime:          endTime,
		ScannedSymbols:   len(reports),
		PatternsFound:    patternsFound,
		ProcessingTimeMs: endTime.Sub(startTime).Milliseconds(),
		Symbols:          reports,
	}

	sc.mu.Lock()
	sc.lastResult = result
	sc.mu.Unlock()

	if sc.recorder != nil {
		sc.recorder.RecordScan(endTime.Sub(startTime), len(reports))
	}
	if sc.eventBus != nil {
		sc.eventBus.PublishScanCompleted(scanID, result.ScannedSymbols, result.PatternsFound, result.ProcessingTimeMs)
	}

	sc.log.Info().
		Str("scan_id", scanID).
		Int("completed", len(reports)).
		Int("requested", len(symbols)).
		Int("patterns", patternsFound).
		Int64("elapsed_ms", result.ProcessingTimeMs).
		Msg("Scan completed")

	return result
}

func (sc *Scanner) worker(ctx context.Context, symbolChan <-chan string, reportChan chan<- SymbolReport, wg *sync.WaitGroup) {
	defer wg.Done()

	for symbol := range symbolChan {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if report, ok := sc.scanSymbol(ctx, symbol); ok {
			reportChan <- report
		}
	}
}

// scanSymbol isolates one symbol's pipeline. A panic or source failure
// drops the symbol and keeps the scan alive.
func (sc *Scanner) scanSymbol(ctx context.Context, symbol string) (report SymbolReport, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			sc.log.Error().
				Str("symbol", symbol).
				Interface("panic", r).
				Msg("Symbol pipeline panicked, dropping symbol")
			ok = false
		}
	}()

	report, err := sc.analyzer.AnalyzeSymbol(ctx, sc.source, symbol, sc.config, time.Now().UTC())
	if err != nil {
		if sc.recorder != nil {
			sc.recorder.RecordUpstreamError("candles")
		}
		if sc.eventBus != nil {
			sc.eventBus.PublishError("scanner", "symbol scan failed: "+symbol, err)
		}
		sc.log.Warn().Err(err).Str("symbol", symbol).Msg("Symbol scan failed, omitting from result")
		return SymbolReport{}, false
	}

	for _, sig := range report.Signals {
		if sc.recorder != nil {
			sc.recorder.RecordPatternDetected(symbol, string(sig.Pattern))
			sc.recorder.RecordSignal(symbol, string(sig.Direction))
		}
		if sc.eventBus != nil {
			sc.eventBus.PublishPatternDetected(symbol, string(sig.Pattern), sig.Confidence, sig.Timestamp)
			sc.eventBus.PublishSignalGenerated(symbol, string(sig.Pattern), string(sig.Direction), sig.SignalQuality)
		}
	}
	if !report.PriceContext.PriceIsRealTime && report.PriceContext.PriceWarning != "" && sc.eventBus != nil {
		sc.eventBus.PublishPriceStale(symbol, report.PriceContext.PriceAgeMinutes)
	}
	return report, true
}

// LastResult returns the most recent scan result, or nil before the first
// scan.
func (sc *Scanner) LastResult() *ScanResult {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.lastResult
}
