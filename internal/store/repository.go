package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"signal-scanner/internal/candles"
)

// Repository reads the tick/volume feeds and records scan history.
type Repository struct {
	db *DB
}

// NewRepository creates a repository over the connection pool.
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// GetTicks returns the ticks for one symbol whose local wall-clock string
// falls in [from, to), ordered by timestamp then arrival. The string
// bounds use the feed's own zone; timezone-correct ordering within an
// interval is the aggregator's job.
func (r *Repository) GetTicks(ctx context.Context, symbol, from, to string) ([]candles.Tick, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT timestamp_local, price
		FROM ticks
		WHERE symbol = $1 AND timestamp_local >= $2 AND timestamp_local < $3
		ORDER BY timestamp_local, id`,
		symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query ticks: %w", err)
	}
	defer rows.Close()

	var ticks []candles.Tick
	for rows.Next() {
		var t candles.Tick
		if err := rows.Scan(&t.TimestampLocal, &t.Price); err != nil {
			return nil, fmt.Errorf("failed to scan tick: %w", err)
		}
		ticks = append(ticks, t)
	}
	return ticks, rows.Err()
}

// InsertTicks bulk-inserts a tick batch.
func (r *Repository) InsertTicks(ctx context.Context, symbol string, ticks []candles.Tick) error {
	if len(ticks) == 0 {
		return nil
	}
	rows := make([][]interface{}, len(ticks))
	for i, t := range ticks {
		rows[i] = []interface{}{symbol, t.TimestampLocal, t.Price}
	}
	_, err := r.db.Pool.CopyFrom(ctx,
		pgx.Identifier{"ticks"},
		[]string{"symbol", "timestamp_local", "price"},
		pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("failed to insert ticks: %w", err)
	}
	return nil
}

// GetVolumeRecords returns volume records for one symbol in the epoch
// range [from, to).
func (r *Repository) GetVolumeRecords(ctx context.Context, symbol string, from, to int64) ([]candles.VolumeRecord, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT interval_start_epoch, volume
		FROM volume_records
		WHERE symbol = $1 AND interval_start_epoch >= $2 AND interval_start_epoch < $3
		ORDER BY interval_start_epoch`,
		symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query volume records: %w", err)
	}
	defer rows.Close()

	var records []candles.VolumeRecord
	for rows.Next() {
		var v candles.VolumeRecord
		if err := rows.Scan(&v.IntervalStartEpochSeconds, &v.Volume); err != nil {
			return nil, fmt.Errorf("failed to scan volume record: %w", err)
		}
		records = append(records, v)
	}
	return records, rows.Err()
}

// InsertVolumeRecords bulk-inserts a volume batch.
func (r *Repository) InsertVolumeRecords(ctx context.Context, symbol string, records []candles.VolumeRecord) error {
	if len(records) == 0 {
		return nil
	}
	rows := make([][]interface{}, len(records))
	for i, v := range records {
		rows[i] = []interface{}{symbol, v.IntervalStartEpochSeconds, v.Volume}
	}
	_, err := r.db.Pool.CopyFrom(ctx,
		pgx.Identifier{"volume_records"},
		[]string{"symbol", "interval_start_epoch", "volume"},
		pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("failed to insert volume records: %w", err)
	}
	return nil
}

// ScanRecord is one persisted scan summary.
type ScanRecord struct {
	ID               string          `json:"id"`
	StartedAt        time.Time       `json:"startedAt"`
	CompletedAt      time.Time       `json:"completedAt"`
	ScannedSymbols   int             `json:"scannedSymbols"`
	PatternsFound    int             `json:"patternsFound"`
	ProcessingTimeMs int64           `json:"processingTimeMs"`
	Result           json.RawMessage `json:"result"`
}

// SaveScan records a completed scan with its full result payload.
func (r *Repository) SaveScan(ctx context.Context, rec ScanRecord) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO scans (id, started_at, completed_at, scanned_symbols, patterns_found, processing_time_ms, result)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ID, rec.StartedAt, rec.CompletedAt, rec.ScannedSymbols,
		rec.PatternsFound, rec.ProcessingTimeMs, rec.Result)
	if err != nil {
		return fmt.Errorf("failed to save scan: %w", err)
	}
	return nil
}

// RecentScans returns the latest scan summaries, newest first.
func (r *Repository) RecentScans(ctx context.Context, limit int) ([]ScanRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, started_at, completed_at, scanned_symbols, patterns_found, processing_time_ms, result
		FROM scans
		ORDER BY started_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query scans: %w", err)
	}
	defer rows.Close()

	var out []ScanRecord
	for rows.Next() {
		var rec ScanRecord
		if err := rows.Scan(&rec.ID, &rec.StartedAt, &rec.CompletedAt,
			&rec.ScannedSymbols, &rec.PatternsFound, &rec.ProcessingTimeMs, &rec.Result); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
