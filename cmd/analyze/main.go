package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"signal-scanner/internal/candles"
	"signal-scanner/internal/confluence"
	"signal-scanner/internal/patterns"
	"signal-scanner/internal/scanner"
	"signal-scanner/internal/signals"
)

// Offline analysis over CSV feeds. Tick rows are "YYYY-MM-DD HH:MM:SS,price",
// volume rows are "epochSeconds,volume". Output is the scored signal list as
// JSON on stdout.
func main() {
	godotenv.Load()

	symbol := flag.String("symbol", "", "symbol to label signals with (required)")
	ticksPath := flag.String("ticks", "", "CSV file of ticks (required)")
	volumesPath := flag.String("volumes", "", "CSV file of interval volumes (optional)")
	interval := flag.Int("interval", 5, "candle interval in minutes")
	tickZone := flag.String("tick-zone", envOr("TICK_ZONE", "America/New_York"), "IANA zone of tick timestamps")
	volumeZone := flag.String("volume-zone", envOr("VOLUME_ZONE", "Europe/London"), "IANA zone the volume epochs are reinterpreted in")
	minQuality := flag.Float64("min-quality", 0, "minimum signal quality [0,100]")
	direction := flag.String("direction", "", "LONG or SHORT (empty for both)")
	scope := flag.String("scope", "", "CHART, CANDLESTICK or STRONG (empty for all)")
	enhanced := flag.Bool("enhanced", false, "blend trend strength into quality")
	verbose := flag.Bool("v", false, "log detection detail to stderr")
	flag.Parse()

	if *symbol == "" || *ticksPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	logger := zerolog.Nop()
	if *verbose {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}

	dir, err := signals.ParseDirection(*direction)
	if err != nil {
		fatal(err)
	}
	sc, err := signals.ParseScope(*scope)
	if err != nil {
		fatal(err)
	}

	tickLoc, err := time.LoadLocation(*tickZone)
	if err != nil {
		fatal(fmt.Errorf("tick zone: %w", err))
	}
	volumeLoc, err := time.LoadLocation(*volumeZone)
	if err != nil {
		fatal(fmt.Errorf("volume zone: %w", err))
	}

	ticks, err := readTicks(*ticksPath)
	if err != nil {
		fatal(fmt.Errorf("reading ticks: %w", err))
	}
	var volumes []candles.VolumeRecord
	if *volumesPath != "" {
		volumes, err = readVolumes(*volumesPath)
		if err != nil {
			fatal(fmt.Errorf("reading volumes: %w", err))
		}
	}

	aggregator := candles.NewAggregator(tickLoc, volumeLoc)
	series, err := aggregator.BuildCandles(ticks, volumes, *interval)
	if err != nil {
		fatal(err)
	}

	analyzer := scanner.NewAnalyzer(
		patterns.NewEngine(logger, patterns.DefaultChartConfig()),
		confluence.NewGrouper(),
		signals.NewScorer(),
		logger,
	)
	sigs, groups := analyzer.AnalyzeCandles(*symbol, series, scanner.Config{
		IntervalMinutes: *interval,
		Enhanced:        *enhanced,
	}, time.Now().UTC())
	sigs = signals.Filter(sigs, signals.FilterOptions{
		MinQuality: *minQuality,
		Direction:  dir,
		Scope:      sc,
	})

	out := struct {
		Symbol  string           `json:"symbol"`
		Candles int              `json:"candles"`
		Groups  int              `json:"groups"`
		Count   int              `json:"count"`
		Signals []signals.Signal `json:"signals"`
	}{
		Symbol:  *symbol,
		Candles: len(series),
		Groups:  len(groups),
		Count:   len(sigs),
		Signals: sigs,
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fatal(err)
	}
}

func readTicks(path string) ([]candles.Tick, error) {
	rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	ticks := make([]candles.Tick, 0, len(rows))
	for i, row := range rows {
		if len(row) < 2 {
			return nil, fmt.Errorf("row %d: want timestamp,price", i+1)
		}
		price, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: price: %w", i+1, err)
		}
		ticks = append(ticks, candles.Tick{TimestampLocal: row[0], Price: price})
	}
	return ticks, nil
}

func readVolumes(path string) ([]candles.VolumeRecord, error) {
	rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	records := make([]candles.VolumeRecord, 0, len(rows))
	for i, row := range rows {
		if len(row) < 2 {
			return nil, fmt.Errorf("row %d: want epoch,volume", i+1)
		}
		epoch, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: epoch: %w", i+1, err)
		}
		volume, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: volume: %w", i+1, err)
		}
		records = append(records, candles.VolumeRecord{
			IntervalStartEpochSeconds: epoch,
			Volume:                    volume,
		})
	}
	return records, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
