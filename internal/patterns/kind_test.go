package patterns

import "testing"

func TestAllKindsHaveDescriptors(t *testing.T) {
	kinds := AllKinds()
	if len(kinds) != 27 {
		t.Fatalf("got %d kinds, want 27", len(kinds))
	}

	seen := make(map[Kind]bool, len(kinds))
	for _, k := range kinds {
		if seen[k] {
			t.Errorf("kind %s listed twice", k)
		}
		seen[k] = true

		d := k.Descriptor()
		if d.DisplayName == "" {
			t.Errorf("kind %s has no display name", k)
		}
		if d.RequiredCandles <= 0 {
			t.Errorf("kind %s has required candles %d", k, d.RequiredCandles)
		}
		if d.Category != CategoryCandlestick && d.Category != CategoryChart {
			t.Errorf("kind %s has category %q", k, d.Category)
		}
		if d.Direction != Bullish && d.Direction != Bearish && d.Direction != Neutral {
			t.Errorf("kind %s has direction %q", k, d.Direction)
		}
		if d.Reliability != ReliabilityHigh && d.Reliability != ReliabilityMedium && d.Reliability != ReliabilityLow {
			t.Errorf("kind %s has reliability %q", k, d.Reliability)
		}
	}
}

func TestKindCategorySplit(t *testing.T) {
	var candlestick, chart int
	for _, k := range AllKinds() {
		if k.IsChart() {
			chart++
		} else {
			candlestick++
		}
	}
	if candlestick != 17 {
		t.Errorf("got %d candlestick kinds, want 17", candlestick)
	}
	if chart != 10 {
		t.Errorf("got %d chart kinds, want 10", chart)
	}
}

func TestKindWireNames(t *testing.T) {
	// Serialized kind names are part of the API contract.
	cases := map[Kind]string{
		Hammer:                  "HAMMER",
		ThreeWhiteSoldiers:      "THREE_WHITE_SOLDIERS",
		DarkCloudCover:          "DARK_CLOUD_COVER",
		DoubleBottom:            "DOUBLE_BOTTOM",
		InverseHeadAndShoulders: "INVERSE_HEAD_AND_SHOULDERS",
		BullFlag:                "BULL_FLAG",
	}
	for kind, want := range cases {
		if string(kind) != want {
			t.Errorf("got %q, want %q", string(kind), want)
		}
	}
}

func TestDojiIsOnlyNeutralKind(t *testing.T) {
	for _, k := range AllKinds() {
		neutral := k.Descriptor().Direction == Neutral
		if neutral && k != Doji {
			t.Errorf("kind %s is neutral, only DOJI should be", k)
		}
		if !neutral && k == Doji {
			t.Error("DOJI should be neutral")
		}
	}
}

func TestUnknownKindZeroDescriptor(t *testing.T) {
	d := Kind("NO_SUCH_PATTERN").Descriptor()
	if d.DisplayName != "" || d.RequiredCandles != 0 {
		t.Errorf("unknown kind returned descriptor %+v", d)
	}
}
