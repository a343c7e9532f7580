package patterns

import (
	"math"

	"signal-scanner/internal/candles"
)

// Geometry predicates. Each takes the candles it inspects explicitly; the
// per-kind detect functions below wire them to the window/index contract.

// IsHammer detects a hammer: small body, long lower shadow, little upper
// shadow.
func IsHammer(c candles.Candle) bool {
	body := math.Abs(c.Close - c.Open)
	upperShadow := c.High - math.Max(c.Open, c.Close)
	lowerShadow := math.Min(c.Open, c.Close) - c.Low

	if body == 0 {
		return false
	}
	return lowerShadow >= body*2 && upperShadow <= body*0.5
}

// IsInvertedHammer detects the mirrored shape: long upper shadow, little
// lower shadow. Shooting stars share this geometry.
func IsInvertedHammer(c candles.Candle) bool {
	body := math.Abs(c.Close - c.Open)
	upperShadow := c.High - math.Max(c.Open, c.Close)
	lowerShadow := math.Min(c.Open, c.Close) - c.Low

	if body == 0 {
		return false
	}
	return upperShadow >= body*2 && lowerShadow <= body*0.5
}

// IsDoji detects a doji: body under 5% of the total range.
func IsDoji(c candles.Candle) bool {
	body := math.Abs(c.Close - c.Open)
	totalRange := c.High - c.Low

	if totalRange == 0 {
		return false
	}
	return body <= totalRange*0.05
}

// IsGravestoneDoji detects a doji whose range sits almost entirely above
// the body.
func IsGravestoneDoji(c candles.Candle) bool {
	if !IsDoji(c) {
		return false
	}
	totalRange := c.High - c.Low
	lowerShadow := math.Min(c.Open, c.Close) - c.Low
	return lowerShadow <= totalRange*0.1
}

// IsDragonflyDoji detects a doji whose range sits almost entirely below
// the body.
func IsDragonflyDoji(c candles.Candle) bool {
	if !IsDoji(c) {
		return false
	}
	totalRange := c.High - c.Low
	upperShadow := c.High - math.Max(c.Open, c.Close)
	return upperShadow <= totalRange*0.1
}

// IsBullishEngulfing detects a bullish body engulfing the previous
// bearish body.
func IsBullishEngulfing(prev, cur candles.Candle) bool {
	prevBearish := prev.Close < prev.Open
	curBullish := cur.Close > cur.Open

	if !prevBearish || !curBullish {
		return false
	}
	return cur.Open <= prev.Close && cur.Close >= prev.Open
}

// IsBearishEngulfing detects a bearish body engulfing the previous
// bullish body.
func IsBearishEngulfing(prev, cur candles.Candle) bool {
	prevBullish := prev.Close > prev.Open
	curBearish := cur.Close < cur.Open

	if !prevBullish || !curBearish {
		return false
	}
	return cur.Open >= prev.Close && cur.Close <= prev.Open
}

// IsBullishHarami detects a small bullish body inside the previous
// bearish body.
func IsBullishHarami(prev, cur candles.Candle) bool {
	prevBearish := prev.Close < prev.Open
	curBullish := cur.Close > cur.Open

	if !prevBearish || !curBullish {
		return false
	}
	return cur.Open >= prev.Close && cur.Close <= prev.Open
}

// IsBearishHarami detects a small bearish body inside the previous
// bullish body.
func IsBearishHarami(prev, cur candles.Candle) bool {
	prevBullish := prev.Close > prev.Open
	curBearish := cur.Close < cur.Open

	if !prevBullish || !curBearish {
		return false
	}
	return cur.Open <= prev.Close && cur.Close >= prev.Open
}

// IsPiercingLine detects a bullish candle opening below the prior bearish
// close and closing above its midpoint.
func IsPiercingLine(prev, cur candles.Candle) bool {
	prevBearish := prev.Close < prev.Open
	curBullish := cur.Close > cur.Open

	if !prevBearish || !curBullish {
		return false
	}
	prevMidpoint := (prev.Open + prev.Close) / 2
	return cur.Open < prev.Close && cur.Close > prevMidpoint && cur.Close < prev.Open
}

// IsDarkCloudCover detects a bearish candle opening above the prior
// bullish close and closing below its midpoint.
func IsDarkCloudCover(prev, cur candles.Candle) bool {
	prevBullish := prev.Close > prev.Open
	curBearish := cur.Close < cur.Open

	if !prevBullish || !curBearish {
		return false
	}
	prevMidpoint := (prev.Open + prev.Close) / 2
	return cur.Open > prev.Close && cur.Close < prevMidpoint && cur.Close > prev.Open
}

// IsTweezerTop detects two candles with matching highs, bullish then
// bearish. Highs must agree within 0.1%.
func IsTweezerTop(prev, cur candles.Candle) bool {
	tolerance := prev.High * 0.001
	return math.Abs(prev.High-cur.High) <= tolerance &&
		prev.Close > prev.Open && cur.Close < cur.Open
}

// IsTweezerBottom detects two candles with matching lows, bearish then
// bullish. Lows must agree within 0.1%.
func IsTweezerBottom(prev, cur candles.Candle) bool {
	tolerance := prev.Low * 0.001
	return math.Abs(prev.Low-cur.Low) <= tolerance &&
		prev.Close < prev.Open && cur.Close > cur.Open
}

// IsMorningStar detects a long bearish candle, a small star, then a long
// bullish candle closing above the first candle's midpoint.
func IsMorningStar(first, second, third candles.Candle) bool {
	firstBearish := first.Close < first.Open
	firstBody := math.Abs(first.Close - first.Open)
	secondBody := math.Abs(second.Close - second.Open)
	thirdBullish := third.Close > third.Open
	thirdBody := math.Abs(third.Close - third.Open)

	if !firstBearish || !thirdBullish {
		return false
	}
	firstMidpoint := (first.Open + first.Close) / 2
	return secondBody < firstBody*0.3 &&
		secondBody < thirdBody*0.3 &&
		third.Close > firstMidpoint
}

// IsEveningStar detects the bearish mirror of the morning star.
func IsEveningStar(first, second, third candles.Candle) bool {
	firstBullish := first.Close > first.Open
	firstBody := math.Abs(first.Close - first.Open)
	secondBody := math.Abs(second.Close - second.Open)
	thirdBearish := third.Close < third.Open
	thirdBody := math.Abs(third.Close - third.Open)

	if !firstBullish || !thirdBearish {
		return false
	}
	firstMidpoint := (first.Open + first.Close) / 2
	return secondBody < firstBody*0.3 &&
		secondBody < thirdBody*0.3 &&
		third.Close < firstMidpoint
}

// IsThreeWhiteSoldiers detects three bullish candles, each opening inside
// the previous body and closing progressively higher.
func IsThreeWhiteSoldiers(first, second, third candles.Candle) bool {
	allBullish := first.Close > first.Open &&
		second.Close > second.Open &&
		third.Close > third.Open

	if !allBullish {
		return false
	}
	return second.Open > first.Open && second.Open < first.Close &&
		third.Open > second.Open && third.Open < second.Close &&
		second.Close > first.Close &&
		third.Close > second.Close
}

// IsThreeBlackCrows detects three bearish candles, each opening inside
// the previous body and closing progressively lower.
func IsThreeBlackCrows(first, second, third candles.Candle) bool {
	allBearish := first.Close < first.Open &&
		second.Close < second.Open &&
		third.Close < third.Open

	if !allBearish {
		return false
	}
	return second.Open < first.Open && second.Open > first.Close &&
		third.Open < second.Open && third.Open > second.Close &&
		second.Close < first.Close &&
		third.Close < second.Close
}

// Detect functions adapt the predicates to the uniform window/index
// contract and grade confidence from how far past its threshold the
// geometry landed.

func baseConfidence(k Kind) float64 {
	switch k.Descriptor().Reliability {
	case ReliabilityHigh:
		return 75
	case ReliabilityMedium:
		return 65
	default:
		return 55
	}
}

func clampConfidence(v float64) float64 {
	if v > 100 {
		return 100
	}
	if v < 0 {
		return 0
	}
	return v
}

func newMatch(window []candles.Candle, index int, kind Kind, confidence float64) (Match, bool) {
	return Match{
		Kind:         kind,
		Confidence:   clampConfidence(confidence),
		TimestampUTC: window[index].TimestampUTC,
		AnchorIndex:  index,
	}, true
}

func detectHammer(window []candles.Candle, index int) (Match, bool) {
	if index < 1 {
		return Match{}, false
	}
	c := window[index]
	prev := window[index-1]
	if !IsHammer(c) {
		return Match{}, false
	}
	// Only meaningful after a down candle.
	if prev.Close >= prev.Open {
		return Match{}, false
	}
	body := math.Abs(c.Close - c.Open)
	lowerShadow := math.Min(c.Open, c.Close) - c.Low
	bonus := math.Min((lowerShadow/body-2)*5, 10)
	if c.Close > c.Open {
		bonus += 5
	}
	return newMatch(window, index, Hammer, baseConfidence(Hammer)+bonus)
}

func detectShootingStar(window []candles.Candle, index int) (Match, bool) {
	if index < 1 {
		return Match{}, false
	}
	c := window[index]
	prev := window[index-1]
	if !IsInvertedHammer(c) {
		return Match{}, false
	}
	// Only meaningful after an up candle.
	if prev.Close <= prev.Open {
		return Match{}, false
	}
	body := math.Abs(c.Close - c.Open)
	upperShadow := c.High - math.Max(c.Open, c.Close)
	bonus := math.Min((upperShadow/body-2)*5, 10)
	if c.Close < c.Open {
		bonus += 5
	}
	return newMatch(window, index, ShootingStar, baseConfidence(ShootingStar)+bonus)
}

func detectDoji(window []candles.Candle, index int) (Match, bool) {
	c := window[index]
	if !IsDoji(c) {
		return Match{}, false
	}
	// The plain doji cedes to its directional variants.
	if IsGravestoneDoji(c) || IsDragonflyDoji(c) {
		return Match{}, false
	}
	body := math.Abs(c.Close - c.Open)
	totalRange := c.High - c.Low
	bonus := (0.05 - body/totalRange) * 200
	return newMatch(window, index, Doji, baseConfidence(Doji)+bonus)
}

func detectGravestoneDoji(window []candles.Candle, index int) (Match, bool) {
	c := window[index]
	if !IsGravestoneDoji(c) {
		return Match{}, false
	}
	body := math.Abs(c.Close - c.Open)
	totalRange := c.High - c.Low
	bonus := (0.05 - body/totalRange) * 200
	return newMatch(window, index, GravestoneDoji, baseConfidence(GravestoneDoji)+bonus)
}

func detectDragonflyDoji(window []candles.Candle, index int) (Match, bool) {
	c := window[index]
	if !IsDragonflyDoji(c) {
		return Match{}, false
	}
	body := math.Abs(c.Close - c.Open)
	totalRange := c.High - c.Low
	bonus := (0.05 - body/totalRange) * 200
	return newMatch(window, index, DragonflyDoji, baseConfidence(DragonflyDoji)+bonus)
}

func detectBullishEngulfing(window []candles.Candle, index int) (Match, bool) {
	if index < 1 {
		return Match{}, false
	}
	prev, cur := window[index-1], window[index]
	if !IsBullishEngulfing(prev, cur) {
		return Match{}, false
	}
	prevBody := math.Abs(prev.Close - prev.Open)
	curBody := math.Abs(cur.Close - cur.Open)
	bonus := 0.0
	if prevBody > 0 {
		bonus = math.Min((curBody/prevBody-1)*10, 15)
	}
	return newMatch(window, index, BullishEngulfing, baseConfidence(BullishEngulfing)+bonus)
}

func detectBearishEngulfing(window []candles.Candle, index int) (Match, bool) {
	if index < 1 {
		return Match{}, false
	}
	prev, cur := window[index-1], window[index]
	if !IsBearishEngulfing(prev, cur) {
		return Match{}, false
	}
	prevBody := math.Abs(prev.Close - prev.Open)
	curBody := math.Abs(cur.Close - cur.Open)
	bonus := 0.0
	if prevBody > 0 {
		bonus = math.Min((curBody/prevBody-1)*10, 15)
	}
	return newMatch(window, index, BearishEngulfing, baseConfidence(BearishEngulfing)+bonus)
}

func detectBullishHarami(window []candles.Candle, index int) (Match, bool) {
	if index < 1 {
		return Match{}, false
	}
	prev, cur := window[index-1], window[index]
	if !IsBullishHarami(prev, cur) {
		return Match{}, false
	}
	prevBody := math.Abs(prev.Close - prev.Open)
	curBody := math.Abs(cur.Close - cur.Open)
	bonus := 0.0
	if prevBody > 0 {
		bonus = (1 - curBody/prevBody) * 10
	}
	return newMatch(window, index, BullishHarami, baseConfidence(BullishHarami)+bonus)
}

func detectBearishHarami(window []candles.Candle, index int) (Match, bool) {
	if index < 1 {
		return Match{}, false
	}
	prev, cur := window[index-1], window[index]
	if !IsBearishHarami(prev, cur) {
		return Match{}, false
	}
	prevBody := math.Abs(prev.Close - prev.Open)
	curBody := math.Abs(cur.Close - cur.Open)
	bonus := 0.0
	if prevBody > 0 {
		bonus = (1 - curBody/prevBody) * 10
	}
	return newMatch(window, index, BearishHarami, baseConfidence(BearishHarami)+bonus)
}

func detectPiercingLine(window []candles.Candle, index int) (Match, bool) {
	if index < 1 {
		return Match{}, false
	}
	prev, cur := window[index-1], window[index]
	if !IsPiercingLine(prev, cur) {
		return Match{}, false
	}
	prevBody := prev.Open - prev.Close
	bonus := 0.0
	if prevBody > 0 {
		prevMidpoint := (prev.Open + prev.Close) / 2
		bonus = (cur.Close - prevMidpoint) / (prevBody / 2) * 10
	}
	return newMatch(window, index, PiercingLine, baseConfidence(PiercingLine)+bonus)
}

func detectDarkCloudCover(window []candles.Candle, index int) (Match, bool) {
	if index < 1 {
		return Match{}, false
	}
	prev, cur := window[index-1], window[index]
	if !IsDarkCloudCover(prev, cur) {
		return Match{}, false
	}
	prevBody := prev.Close - prev.Open
	bonus := 0.0
	if prevBody > 0 {
		prevMidpoint := (prev.Open + prev.Close) / 2
		bonus = (prevMidpoint - cur.Close) / (prevBody / 2) * 10
	}
	return newMatch(window, index, DarkCloudCover, baseConfidence(DarkCloudCover)+bonus)
}

func detectTweezerTop(window []candles.Candle, index int) (Match, bool) {
	if index < 1 {
		return Match{}, false
	}
	prev, cur := window[index-1], window[index]
	if !IsTweezerTop(prev, cur) {
		return Match{}, false
	}
	tolerance := prev.High * 0.001
	bonus := 0.0
	if tolerance > 0 {
		bonus = (1 - math.Abs(prev.High-cur.High)/tolerance) * 10
	}
	return newMatch(window, index, TweezerTop, baseConfidence(TweezerTop)+bonus)
}

func detectTweezerBottom(window []candles.Candle, index int) (Match, bool) {
	if index < 1 {
		return Match{}, false
	}
	prev, cur := window[index-1], window[index]
	if !IsTweezerBottom(prev, cur) {
		return Match{}, false
	}
	tolerance := prev.Low * 0.001
	bonus := 0.0
	if tolerance > 0 {
		bonus = (1 - math.Abs(prev.Low-cur.Low)/tolerance) * 10
	}
	return newMatch(window, index, TweezerBottom, baseConfidence(TweezerBottom)+bonus)
}

func detectMorningStar(window []candles.Candle, index int) (Match, bool) {
	if index < 2 {
		return Match{}, false
	}
	first, second, third := window[index-2], window[index-1], window[index]
	if !IsMorningStar(first, second, third) {
		return Match{}, false
	}
	firstBody := math.Abs(first.Close - first.Open)
	thirdBody := math.Abs(third.Close - third.Open)
	bonus := 0.0
	if thirdBody > firstBody*1.2 {
		bonus += 10
	}
	return newMatch(window, index, MorningStar, baseConfidence(MorningStar)+bonus)
}

func detectEveningStar(window []candles.Candle, index int) (Match, bool) {
	if index < 2 {
		return Match{}, false
	}
	first, second, third := window[index-2], window[index-1], window[index]
	if !IsEveningStar(first, second, third) {
		return Match{}, false
	}
	firstBody := math.Abs(first.Close - first.Open)
	thirdBody := math.Abs(third.Close - third.Open)
	bonus := 0.0
	if thirdBody > firstBody*1.2 {
		bonus += 10
	}
	return newMatch(window, index, EveningStar, baseConfidence(EveningStar)+bonus)
}

func detectThreeWhiteSoldiers(window []candles.Candle, index int) (Match, bool) {
	if index < 2 {
		return Match{}, false
	}
	first, second, third := window[index-2], window[index-1], window[index]
	if !IsThreeWhiteSoldiers(first, second, third) {
		return Match{}, false
	}
	// Even body sizes read as steadier demand.
	b1 := first.Close - first.Open
	b3 := third.Close - third.Open
	bonus := 0.0
	if b1 > 0 && b3 >= b1*0.8 && b3 <= b1*1.25 {
		bonus = 10
	}
	return newMatch(window, index, ThreeWhiteSoldiers, baseConfidence(ThreeWhiteSoldiers)+bonus)
}

func detectThreeBlackCrows(window []candles.Candle, index int) (Match, bool) {
	if index < 2 {
		return Match{}, false
	}
	first, second, third := window[index-2], window[index-1], window[index]
	if !IsThreeBlackCrows(first, second, third) {
		return Match{}, false
	}
	b1 := first.Open - first.Close
	b3 := third.Open - third.Close
	bonus := 0.0
	if b1 > 0 && b3 >= b1*0.8 && b3 <= b1*1.25 {
		bonus = 10
	}
	return newMatch(window, index, ThreeBlackCrows, baseConfidence(ThreeBlackCrows)+bonus)
}
