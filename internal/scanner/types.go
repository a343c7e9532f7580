package scanner

import (
	"time"

	"signal-scanner/internal/signals"
)

// Config holds scanner configuration.
type Config struct {
	WorkerCount     int           // parallel symbol pipelines
	ScanTimeout     time.Duration // aggregate wall-clock budget for one scan
	IntervalMinutes int
	CandleLookback  int // candles fetched per symbol
	MinQuality      float64
	Enhanced        bool // blend trend strength into signal quality
}

// PriceContext carries the freshest price known for a symbol alongside its
// provenance. PriceWarning is set only when the price is not live.
type PriceContext struct {
	CurrentPrice    float64 `json:"currentPrice"`
	PriceIsRealTime bool    `json:"priceIsRealTime"`
	PriceAgeMinutes float64 `json:"priceAgeMinutes"`
	PriceWarning    string  `json:"priceWarning,omitempty"`
}

// SymbolReport is one symbol's scan outcome.
type SymbolReport struct {
	Symbol        string           `json:"symbol"`
	Signals       []signals.Signal `json:"signals"`
	TotalPatterns int              `json:"totalPatterns"`
	TopQuality    float64          `json:"topQuality"`
	HasConfluence bool             `json:"hasConfluence"`
	PriceContext  PriceContext     `json:"priceContext"`
}

// ScanResult aggregates a multi-symbol scan. Symbols that failed or timed
// out are absent; ScannedSymbols counts only completions.
type ScanResult struct {
	ScanID           string         `json:"scanId"`
	StartTime        time.Time      `json:"startTime"`
	EndTime          time.Time      `json:"endTime"`
	ScannedSymbols   int            `json:"scannedSymbols"`
	PatternsFound    int            `json:"patternsFound"`
	ProcessingTimeMs int64          `json:"processingTimeMs"`
	Symbols          []SymbolReport `json:"symbols"`
}
