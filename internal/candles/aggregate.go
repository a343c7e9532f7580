package candles

import (
	"fmt"
	"sort"
	"time"
)

// TimestampLayout is the wall-clock format used by the tick feed.
const TimestampLayout = "2006-01-02 15:04:05"

// Tick is a single trade price observation. TimestampLocal is a wall-clock
// string in the tick feed's origin timezone, without offset information.
type Tick struct {
	TimestampLocal string  `json:"timestampLocal"`
	Price          float64 `json:"price"`
}

// VolumeRecord carries traded volume for one interval. The epoch value is
// not a direct UTC instant: its rendered calendar/clock fields represent
// local time in the volume feed's timezone and must be reinterpreted
// before joining against candles.
type VolumeRecord struct {
	IntervalStartEpochSeconds int64   `json:"intervalStartEpochSeconds"`
	Volume                    float64 `json:"volume"`
}

// Candle is one OHLCV bar. TimestampUTC is the inclusive interval start.
type Candle struct {
	TimestampUTC    time.Time `json:"timestampUTC"`
	Open            float64   `json:"open"`
	High            float64   `json:"high"`
	Low             float64   `json:"low"`
	Close           float64   `json:"close"`
	Volume          float64   `json:"volume"`
	IntervalMinutes int       `json:"intervalMinutes"`
}

// Aggregator builds UTC-aligned OHLCV candles from ticks recorded in one
// timezone and volume records encoded against another.
type Aggregator struct {
	tickZone   *time.Location
	volumeZone *time.Location
}

// NewAggregator creates an aggregator for the given feed timezones.
func NewAggregator(tickZone, volumeZone *time.Location) *Aggregator {
	return &Aggregator{
		tickZone:   tickZone,
		volumeZone: volumeZone,
	}
}

// ParseTickTime parses a tick's wall-clock string as local time in the
// tick feed's zone and returns the UTC instant.
func (a *Aggregator) ParseTickTime(s string) (time.Time, error) {
	t, err := time.ParseInLocation(TimestampLayout, s, a.tickZone)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid tick timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

// FormatTickTime renders a UTC instant back into the tick feed's
// wall-clock string. Inverse of ParseTickTime.
func (a *Aggregator) FormatTickTime(t time.Time) string {
	return t.In(a.tickZone).Format(TimestampLayout)
}

// VolumeInstant resolves a volume record's epoch value to the true UTC
// interval start. The epoch's rendered UTC wall-clock fields stand for
// local time in the volume zone, so the fields are lifted out and
// re-anchored there rather than converting the instant directly.
func (a *Aggregator) VolumeInstant(epochSeconds int64) time.Time {
	wall := time.Unix(epochSeconds, 0).UTC()
	local := time.Date(wall.Year(), wall.Month(), wall.Day(),
		wall.Hour(), wall.Minute(), wall.Second(), 0, a.volumeZone)
	return local.UTC()
}

// TruncateToInterval floors an instant to its interval boundary.
func TruncateToInterval(t time.Time, intervalMinutes int) time.Time {
	size := int64(intervalMinutes) * 60
	sec := t.Unix()
	rem := sec % size
	if rem < 0 {
		rem += size
	}
	return time.Unix(sec-rem, 0).UTC()
}

type parsedTick struct {
	at    time.Time
	price float64
}

// BuildCandles aggregates ticks into interval candles and joins volume
// records onto them. Empty ticks yield an empty slice, not an error.
// Candles come back sorted ascending by TimestampUTC with no duplicates;
// a boundary with no volume record gets volume 0.
func (a *Aggregator) BuildCandles(ticks []Tick, volumes []VolumeRecord, intervalMinutes int) ([]Candle, error) {
	if intervalMinutes <= 0 {
		return nil, fmt.Errorf("interval minutes must be positive, got %d", intervalMinutes)
	}
	if len(ticks) == 0 {
		return []Candle{}, nil
	}

	parsed := make([]parsedTick, 0, len(ticks))
	for i, tk := range ticks {
		at, err := a.ParseTickTime(tk.TimestampLocal)
		if err != nil {
			return nil, fmt.Errorf("tick %d: %w", i, err)
		}
		parsed = append(parsed, parsedTick{at: at, price: tk.Price})
	}

	// Sort once by the parsed instant, stable so same-second ticks keep
	// feed order. The origin-zone strings themselves missort across a DST
	// fall-back hour, so the key must be the parsed value.
	sort.SliceStable(parsed, func(i, j int) bool {
		return parsed[i].at.Before(parsed[j].at)
	})

	volumeByBoundary := make(map[int64]float64, len(volumes))
	for _, v := range volumes {
		b := TruncateToInterval(a.VolumeInstant(v.IntervalStartEpochSeconds), intervalMinutes)
		volumeByBoundary[b.Unix()] += v.Volume
	}

	// The slice is chronological, so partitioning by truncated boundary
	// emits candles already in ascending order.
	out := make([]Candle, 0, len(parsed)/4+1)
	for i := 0; i < len(parsed); {
		boundary := TruncateToInterval(parsed[i].at, intervalMinutes)
		j := i + 1
		for j < len(parsed) && TruncateToInterval(parsed[j].at, intervalMinutes).Equal(boundary) {
			j++
		}
		group := parsed[i:j]

		c := Candle{
			TimestampUTC:    boundary,
			Open:            group[0].price,
			High:            group[0].price,
			Low:             group[0].price,
			Close:           group[len(group)-1].price,
			Volume:          volumeByBoundary[boundary.Unix()],
			IntervalMinutes: intervalMinutes,
		}
		for _, p := range group[1:] {
			if p.price > c.High {
				c.High = p.price
			}
			if p.price < c.Low {
				c.Low = p.price
			}
		}
		out = append(out, c)
		i = j
	}
	return out, nil
}
