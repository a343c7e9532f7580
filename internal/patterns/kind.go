package patterns

import "time"

// Kind identifies a pattern. The set is closed: every kind has a static
// descriptor and a detector registered in the engine.
type Kind string

const (
	// Single-candle
	Hammer         Kind = "HAMMER"
	Doji           Kind = "DOJI"
	ShootingStar   Kind = "SHOOTING_STAR"
	GravestoneDoji Kind = "GRAVESTONE_DOJI"
	DragonflyDoji  Kind = "DRAGONFLY_DOJI"

	// Two-candle
	BullishEngulfing Kind = "BULLISH_ENGULFING"
	BearishEngulfing Kind = "BEARISH_ENGULFING"
	BullishHarami    Kind = "BULLISH_HARAMI"
	BearishHarami    Kind = "BEARISH_HARAMI"
	PiercingLine     Kind = "PIERCING_LINE"
	DarkCloudCover   Kind = "DARK_CLOUD_COVER"
	TweezerTop       Kind = "TWEEZER_TOP"
	TweezerBottom    Kind = "TWEEZER_BOTTOM"

	// Three-candle
	MorningStar        Kind = "MORNING_STAR"
	EveningStar        Kind = "EVENING_STAR"
	ThreeWhiteSoldiers Kind = "THREE_WHITE_SOLDIERS"
	ThreeBlackCrows    Kind = "THREE_BLACK_CROWS"

	// Chart
	RisingWedge             Kind = "RISING_WEDGE"
	FallingWedge            Kind = "FALLING_WEDGE"
	BullFlag                Kind = "BULL_FLAG"
	BearFlag                Kind = "BEAR_FLAG"
	DoubleTop               Kind = "DOUBLE_TOP"
	DoubleBottom            Kind = "DOUBLE_BOTTOM"
	HeadAndShoulders        Kind = "HEAD_AND_SHOULDERS"
	InverseHeadAndShoulders Kind = "INVERSE_HEAD_AND_SHOULDERS"
	AscendingTriangle       Kind = "ASCENDING_TRIANGLE"
	DescendingTriangle      Kind = "DESCENDING_TRIANGLE"
)

// Category distinguishes candlestick formations from multi-candle chart
// shapes.
type Category string

const (
	CategoryCandlestick Category = "CANDLESTICK"
	CategoryChart       Category = "CHART"
)

// Direction is the bias baked into a pattern kind.
type Direction string

const (
	Bullish Direction = "BULLISH"
	Bearish Direction = "BEARISH"
	Neutral Direction = "NEUTRAL"
)

// Reliability grades how dependable a kind is historically.
type Reliability string

const (
	ReliabilityHigh   Reliability = "HIGH"
	ReliabilityMedium Reliability = "MEDIUM"
	ReliabilityLow    Reliability = "LOW"
)

// Descriptor bundles the static facts about a pattern kind.
type Descriptor struct {
	DisplayName     string      `json:"displayName"`
	Category        Category    `json:"category"`
	RequiredCandles int         `json:"requiredCandles"`
	Direction       Direction   `json:"direction"`
	Reliability     Reliability `json:"reliability"`
}

// descriptors is the closed kind table. Chart kinds report the minimum
// trailing window their detector scans.
var descriptors = map[Kind]Descriptor{
	Hammer:         {"Hammer", CategoryCandlestick, 2, Bullish, ReliabilityMedium},
	Doji:           {"Doji", CategoryCandlestick, 1, Neutral, ReliabilityMedium},
	ShootingStar:   {"Shooting Star", CategoryCandlestick, 2, Bearish, ReliabilityMedium},
	GravestoneDoji: {"Gravestone Doji", CategoryCandlestick, 1, Bearish, ReliabilityMedium},
	DragonflyDoji:  {"Dragonfly Doji", CategoryCandlestick, 1, Bullish, ReliabilityMedium},

	BullishEngulfing: {"Bullish Engulfing", CategoryCandlestick, 2, Bullish, ReliabilityHigh},
	BearishEngulfing: {"Bearish Engulfing", CategoryCandlestick, 2, Bearish, ReliabilityHigh},
	BullishHarami:    {"Bullish Harami", CategoryCandlestick, 2, Bullish, ReliabilityMedium},
	BearishHarami:    {"Bearish Harami", CategoryCandlestick, 2, Bearish, ReliabilityMedium},
	PiercingLine:     {"Piercing Line", CategoryCandlestick, 2, Bullish, ReliabilityMedium},
	DarkCloudCover:   {"Dark Cloud Cover", CategoryCandlestick, 2, Bearish, ReliabilityMedium},
	TweezerTop:       {"Tweezer Top", CategoryCandlestick, 2, Bearish, ReliabilityLow},
	TweezerBottom:    {"Tweezer Bottom", CategoryCandlestick, 2, Bullish, ReliabilityLow},

	MorningStar:        {"Morning Star", CategoryCandlestick, 3, Bullish, ReliabilityHigh},
	EveningStar:        {"Evening Star", CategoryCandlestick, 3, Bearish, ReliabilityHigh},
	ThreeWhiteSoldiers: {"Three White Soldiers", CategoryCandlestick, 3, Bullish, ReliabilityHigh},
	ThreeBlackCrows:    {"Three Black Crows", CategoryCandlestick, 3, Bearish, ReliabilityHigh},

	RisingWedge:             {"Rising Wedge", CategoryChart, 10, Bearish, ReliabilityMedium},
	FallingWedge:            {"Falling Wedge", CategoryChart, 10, Bullish, ReliabilityMedium},
	BullFlag:                {"Bull Flag", CategoryChart, 20, Bullish, ReliabilityMedium},
	BearFlag:                {"Bear Flag", CategoryChart, 20, Bearish, ReliabilityMedium},
	DoubleTop:               {"Double Top", CategoryChart, 10, Bearish, ReliabilityHigh},
	DoubleBottom:            {"Double Bottom", CategoryChart, 10, Bullish, ReliabilityHigh},
	HeadAndShoulders:        {"Head and Shoulders", CategoryChart, 15, Bearish, ReliabilityHigh},
	InverseHeadAndShoulders: {"Inverse Head and Shoulders", CategoryChart, 15, Bullish, ReliabilityHigh},
	AscendingTriangle:       {"Ascending Triangle", CategoryChart, 10, Bullish, ReliabilityMedium},
	DescendingTriangle:      {"Descending Triangle", CategoryChart, 10, Bearish, ReliabilityMedium},
}

// allKinds fixes iteration order so detection output is deterministic.
var allKinds = []Kind{
	Hammer, Doji, ShootingStar, GravestoneDoji, DragonflyDoji,
	BullishEngulfing, BearishEngulfing, BullishHarami, BearishHarami,
	PiercingLine, DarkCloudCover, TweezerTop, TweezerBottom,
	MorningStar, EveningStar, ThreeWhiteSoldiers, ThreeBlackCrows,
	RisingWedge, FallingWedge, BullFlag, BearFlag,
	DoubleTop, DoubleBottom, HeadAndShoulders, InverseHeadAndShoulders,
	AscendingTriangle, DescendingTriangle,
}

// AllKinds returns every registered kind in stable order.
func AllKinds() []Kind {
	out := make([]Kind, len(allKinds))
	copy(out, allKinds)
	return out
}

// Descriptor returns the static facts for the kind. Unknown kinds return
// a zero Descriptor.
func (k Kind) Descriptor() Descriptor {
	return descriptors[k]
}

// IsChart reports whether the kind is a chart pattern.
func (k Kind) IsChart() bool {
	return descriptors[k].Category == CategoryChart
}

// DisplayName returns the human-readable pattern name.
func (k Kind) DisplayName() string {
	return descriptors[k].DisplayName
}

// Match is a single detector hit. Confidence is on a 0-100 scale.
// Chart-pattern matches carry the geometry-projected target and
// invalidation levels; candlestick matches leave them zero.
type Match struct {
	Symbol          string
	Kind            Kind
	Confidence      float64
	TimestampUTC    time.Time
	AnchorIndex     int
	ProjectedTarget float64
	ProjectedStop   float64
}

// IsChartPattern reports whether the match came from a chart detector.
func (m Match) IsChartPattern() bool {
	return m.Kind.IsChart()
}

// Direction returns the bias baked into the match's kind.
func (m Match) Direction() Direction {
	return descriptors[m.Kind].Direction
}
