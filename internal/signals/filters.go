package signals

import (
	"fmt"
	"sort"
	"strings"

	"signal-scanner/internal/patterns"
)

// Scope narrows results to a pattern family.
type Scope string

const (
	ScopeAll         Scope = "ALL"
	ScopeChart       Scope = "CHART"
	ScopeCandlestick Scope = "CANDLESTICK"
	ScopeStrong      Scope = "STRONG" // high-reliability kinds only
)

// FilterOptions select which scored signals survive the post-pass.
// Scoring itself never consults these.
type FilterOptions struct {
	MinQuality float64
	Direction  Direction // empty accepts both sides
	Scope      Scope     // empty behaves as ScopeAll
}

// Filter applies the options as a pure post-pass, preserving order.
func Filter(in []Signal, opts FilterOptions) []Signal {
	out := make([]Signal, 0, len(in))
	for _, s := range in {
		if s.SignalQuality < opts.MinQuality {
			continue
		}
		if opts.Direction != "" && s.Direction != opts.Direction {
			continue
		}
		if !inScope(s, opts.Scope) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func inScope(s Signal, scope Scope) bool {
	switch scope {
	case ScopeChart:
		return s.IsChartPattern
	case ScopeCandlestick:
		return !s.IsChartPattern
	case ScopeStrong:
		return s.Pattern.Descriptor().Reliability == patterns.ReliabilityHigh
	default:
		return true
	}
}

// ParseDirection validates a request-supplied direction filter. "ALL" and
// the empty string accept both sides.
func ParseDirection(raw string) (Direction, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "", "ALL":
		return "", nil
	case string(Long):
		return Long, nil
	case string(Short):
		return Short, nil
	}
	return "", fmt.Errorf("invalid direction %q, want LONG, SHORT or ALL", raw)
}

// ParseScope validates a request-supplied scope filter.
func ParseScope(raw string) (Scope, error) {
	switch Scope(strings.ToUpper(strings.TrimSpace(raw))) {
	case "", ScopeAll:
		return ScopeAll, nil
	case ScopeChart:
		return ScopeChart, nil
	case ScopeCandlestick:
		return ScopeCandlestick, nil
	case ScopeStrong:
		return ScopeStrong, nil
	}
	return "", fmt.Errorf("invalid scope %q, want ALL, CHART, CANDLESTICK or STRONG", raw)
}

// sortSignals orders by quality, best first; ties break by timestamp then
// kind so repeated runs stay identical.
func sortSignals(in []Signal) {
	sort.SliceStable(in, func(i, j int) bool {
		if in[i].SignalQuality != in[j].SignalQuality {
			return in[i].SignalQuality > in[j].SignalQuality
		}
		if !in[i].Timestamp.Equal(in[j].Timestamp) {
			return in[i].Timestamp.Before(in[j].Timestamp)
		}
		return in[i].Pattern < in[j].Pattern
	})
}
