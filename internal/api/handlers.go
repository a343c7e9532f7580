package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"signal-scanner/internal/candles"
	"signal-scanner/internal/patterns"
	"signal-scanner/internal/signals"
	"signal-scanner/internal/store"
)

// AnalyzeRequest carries a raw tick/volume feed to run the full pipeline
// over. Interval defaults to the server's configured scan interval.
type AnalyzeRequest struct {
	Symbol          string                 `json:"symbol" binding:"required"`
	Ticks           []candles.Tick         `json:"ticks" binding:"required"`
	Volumes         []candles.VolumeRecord `json:"volumes"`
	IntervalMinutes int                    `json:"intervalMinutes"`
	MinQuality      float64                `json:"minQuality"`
	Direction       string                 `json:"direction"`
	Scope           string                 `json:"scope"`
}

// ScanRequest names the symbols to scan. Empty falls back to the server's
// default symbol list behavior (an error, since the API has no watchlist).
type ScanRequest struct {
	Symbols []string `json:"symbols" binding:"required"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}

func (s *Server) handleLogin(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	pair, err := s.authService.Login(req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, pair)
}

// handleAnalyze runs ticks and volumes through aggregation, detection,
// clustering and scoring in one request. A feed that produces no signals
// is a success with an explicit zero count, never an error.
func (s *Server) handleAnalyze(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	interval := req.IntervalMinutes
	if interval == 0 {
		interval = s.scanConfig.IntervalMinutes
	}
	if interval < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "intervalMinutes must be positive"})
		return
	}

	direction, err := signals.ParseDirection(req.Direction)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	scope, err := signals.ParseScope(req.Scope)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.MinQuality < 0 || req.MinQuality > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "minQuality must be in [0,100]"})
		return
	}

	series, err := s.aggregator.BuildCandles(req.Ticks, req.Volumes, interval)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cfg := s.scanConfig
	cfg.IntervalMinutes = interval
	cfg.MinQuality = 0 // filters below run the caller's thresholds
	sigs, _ := s.analyzer.AnalyzeCandles(req.Symbol, series, cfg, time.Now().UTC())
	sigs = signals.Filter(sigs, signals.FilterOptions{
		MinQuality: req.MinQuality,
		Direction:  direction,
		Scope:      scope,
	})

	c.JSON(http.StatusOK, gin.H{
		"symbol":  req.Symbol,
		"candles": len(series),
		"signals": sigs,
		"count":   len(sigs),
	})
}

func (s *Server) handleScan(c *gin.Context) {
	var req ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	if len(req.Symbols) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one symbol is required"})
		return
	}

	result := s.scanner.Scan(c.Request.Context(), req.Symbols)

	if s.cacheService != nil {
		s.cacheService.PutScan(c.Request.Context(), result.ScanID, result)
	}
	if s.repo != nil {
		payload, err := json.Marshal(result)
		if err == nil {
			err = s.repo.SaveScan(c.Request.Context(), store.ScanRecord{
				ID:               result.ScanID,
				StartedAt:        result.StartTime,
				CompletedAt:      result.EndTime,
				ScannedSymbols:   result.ScannedSymbols,
				PatternsFound:    result.PatternsFound,
				ProcessingTimeMs: result.ProcessingTimeMs,
				Result:           payload,
			})
		}
		if err != nil {
			s.log.Warn().Err(err).Str("scan_id", result.ScanID).Msg("Failed to persist scan")
		}
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) handleLatestScan(c *gin.Context) {
	if s.cacheService != nil {
		if payload, ok := s.cacheService.GetLastScan(c.Request.Context()); ok {
			c.Data(http.StatusOK, "application/json", payload)
			return
		}
	}
	if last := s.scanner.LastResult(); last != nil {
		c.JSON(http.StatusOK, last)
		return
	}
	c.JSON(http.StatusOK, gin.H{"scannedSymbols": 0, "patternsFound": 0, "symbols": []string{}})
}

func (s *Server) handleRecentScans(c *gin.Context) {
	if s.repo == nil {
		c.JSON(http.StatusOK, gin.H{"scans": []string{}, "count": 0})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	scans, err := s.repo.RecentScans(c.Request.Context(), limit)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to load scan history")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load scan history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"scans": scans, "count": len(scans)})
}

// handleListPatterns returns the static pattern descriptor table.
func (s *Server) handleListPatterns(c *gin.Context) {
	kinds := patterns.AllKinds()
	out := make([]gin.H, 0, len(kinds))
	for _, k := range kinds {
		d := k.Descriptor()
		out = append(out, gin.H{
			"kind":            k,
			"displayName":     d.DisplayName,
			"category":        d.Category,
			"requiredCandles": d.RequiredCandles,
			"direction":       d.Direction,
			"reliability":     d.Reliability,
		})
	}
	c.JSON(http.StatusOK, gin.H{"patterns": out, "count": len(out)})
}

// handleSymbolSignals runs the live pipeline for one symbol using the
// upstream bar source.
func (s *Server) handleSymbolSignals(c *gin.Context) {
	symbol := c.Param("symbol")
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol is required"})
		return
	}

	cfg := s.scanConfig
	if raw := c.Query("minQuality"); raw != "" {
		mq, err := strconv.ParseFloat(raw, 64)
		if err != nil || mq < 0 || mq > 100 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "minQuality must be a number in [0,100]"})
			return
		}
		cfg.MinQuality = mq
	}

	report, err := s.analyzer.AnalyzeSymbol(c.Request.Context(), s.source, symbol, cfg, time.Now().UTC())
	if err != nil {
		s.log.Warn().Err(err).Str("symbol", symbol).Msg("Symbol analysis failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "upstream data source unavailable"})
		return
	}

	direction, err := signals.ParseDirection(c.Query("direction"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	scope, err := signals.ParseScope(c.Query("scope"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	report.Signals = signals.Filter(report.Signals, signals.FilterOptions{
		Direction: direction,
		Scope:     scope,
	})

	c.JSON(http.StatusOK, report)
}
