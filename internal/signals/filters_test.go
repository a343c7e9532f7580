package signals

import (
	"reflect"
	"testing"
	"time"

	"signal-scanner/internal/patterns"
)

func filterFixture() []Signal {
	ts := time.Date(2024, 3, 8, 15, 0, 0, 0, time.UTC)
	return []Signal{
		{Symbol: "AAPL", Pattern: patterns.DoubleBottom, SignalQuality: 82, Direction: Long, IsChartPattern: true, Timestamp: ts},
		{Symbol: "MSFT", Pattern: patterns.BullishEngulfing, SignalQuality: 71, Direction: Long, Timestamp: ts.Add(5 * time.Minute)},
		{Symbol: "NVDA", Pattern: patterns.DarkCloudCover, SignalQuality: 60, Direction: Short, Timestamp: ts.Add(10 * time.Minute)},
		{Symbol: "TSLA", Pattern: patterns.RisingWedge, SignalQuality: 48, Direction: Short, IsChartPattern: true, Timestamp: ts.Add(15 * time.Minute)},
	}
}

func TestFilterMinQuality(t *testing.T) {
	out := Filter(filterFixture(), FilterOptions{MinQuality: 60})
	if len(out) != 3 {
		t.Fatalf("signals = %d, want 3", len(out))
	}
	for _, s := range out {
		if s.SignalQuality < 60 {
			t.Errorf("Should keep only signals at or above quality 60, got %.1f", s.SignalQuality)
		}
	}
}

func TestFilterDirection(t *testing.T) {
	longs := Filter(filterFixture(), FilterOptions{Direction: Long})
	if len(longs) != 2 {
		t.Fatalf("long signals = %d, want 2", len(longs))
	}
	for _, s := range longs {
		if s.Direction != Long {
			t.Errorf("direction = %s, want %s", s.Direction, Long)
		}
	}

	shorts := Filter(filterFixture(), FilterOptions{Direction: Short})
	if len(shorts) != 2 {
		t.Fatalf("short signals = %d, want 2", len(shorts))
	}

	both := Filter(filterFixture(), FilterOptions{})
	if len(both) != 4 {
		t.Errorf("unfiltered signals = %d, want all 4", len(both))
	}
}

func TestFilterScope(t *testing.T) {
	chart := Filter(filterFixture(), FilterOptions{Scope: ScopeChart})
	if len(chart) != 2 {
		t.Fatalf("chart signals = %d, want 2", len(chart))
	}
	for _, s := range chart {
		if !s.IsChartPattern {
			t.Error("Should keep only chart patterns under ScopeChart")
		}
	}

	sticks := Filter(filterFixture(), FilterOptions{Scope: ScopeCandlestick})
	if len(sticks) != 2 {
		t.Fatalf("candlestick signals = %d, want 2", len(sticks))
	}
	for _, s := range sticks {
		if s.IsChartPattern {
			t.Error("Should keep only candlestick patterns under ScopeCandlestick")
		}
	}

	// High-reliability kinds only: the double bottom and the engulfing.
	strong := Filter(filterFixture(), FilterOptions{Scope: ScopeStrong})
	if len(strong) != 2 {
		t.Fatalf("strong signals = %d, want 2", len(strong))
	}
	for _, s := range strong {
		if s.Pattern.Descriptor().Reliability != patterns.ReliabilityHigh {
			t.Errorf("Should keep only high-reliability kinds, got %s", s.Pattern)
		}
	}

	all := Filter(filterFixture(), FilterOptions{Scope: ScopeAll})
	if len(all) != 4 {
		t.Errorf("ScopeAll signals = %d, want all 4", len(all))
	}
}

func TestFilterCombinedPreservesOrder(t *testing.T) {
	in := filterFixture()
	before := make([]Signal, len(in))
	copy(before, in)

	out := Filter(in, FilterOptions{MinQuality: 50, Direction: Long})
	if len(out) != 2 {
		t.Fatalf("signals = %d, want 2", len(out))
	}
	if out[0].Symbol != "AAPL" || out[1].Symbol != "MSFT" {
		t.Errorf("order = [%s, %s], want input order preserved", out[0].Symbol, out[1].Symbol)
	}
	if !reflect.DeepEqual(in, before) {
		t.Error("Should not mutate the input slice")
	}
}

func TestFilterEmptyInput(t *testing.T) {
	out := Filter(nil, FilterOptions{MinQuality: 50})
	if len(out) != 0 {
		t.Errorf("signals = %d, want 0", len(out))
	}
}

func TestParseDirection(t *testing.T) {
	tests := []struct {
		raw     string
		want    Direction
		wantErr bool
	}{
		{"LONG", Long, false},
		{"long", Long, false},
		{" short ", Short, false},
		{"ALL", "", false},
		{"", "", false},
		{"sideways", "", true},
	}
	for _, tt := range tests {
		got, err := ParseDirection(tt.raw)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseDirection(%q): Should reject an unknown direction", tt.raw)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseDirection(%q): unexpected error %v", tt.raw, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDirection(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestParseScope(t *testing.T) {
	tests := []struct {
		raw     string
		want    Scope
		wantErr bool
	}{
		{"", ScopeAll, false},
		{"all", ScopeAll, false},
		{"CHART", ScopeChart, false},
		{"candlestick", ScopeCandlestick, false},
		{" strong ", ScopeStrong, false},
		{"weak", "", true},
	}
	for _, tt := range tests {
		got, err := ParseScope(tt.raw)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseScope(%q): Should reject an unknown scope", tt.raw)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseScope(%q): unexpected error %v", tt.raw, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseScope(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestSortSignalsTieBreaks(t *testing.T) {
	ts := time.Date(2024, 3, 8, 15, 0, 0, 0, time.UTC)
	in := []Signal{
		{Pattern: patterns.Hammer, SignalQuality: 70, Timestamp: ts.Add(10 * time.Minute)},
		{Pattern: patterns.DoubleBottom, SignalQuality: 80, Timestamp: ts.Add(20 * time.Minute)},
		{Pattern: patterns.Doji, SignalQuality: 70, Timestamp: ts.Add(10 * time.Minute)},
		{Pattern: patterns.BullFlag, SignalQuality: 70, Timestamp: ts},
	}
	sortSignals(in)

	if in[0].Pattern != patterns.DoubleBottom {
		t.Errorf("first = %s, want highest quality first", in[0].Pattern)
	}
	if in[1].Pattern != patterns.BullFlag {
		t.Errorf("second = %s, want earliest timestamp among ties", in[1].Pattern)
	}
	// DOJI sorts before HAMMER on the kind string.
	if in[2].Pattern != patterns.Doji || in[3].Pattern != patterns.Hammer {
		t.Errorf("tail = [%s, %s], want kind order on full ties", in[2].Pattern, in[3].Pattern)
	}
}
