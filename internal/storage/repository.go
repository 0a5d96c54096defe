package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	getFloorSQL = `SELECT price FROM floors WHERE rarity = $1;`

	setFloorSQL = `INSERT INTO floors (rarity, price, updated_at)
    VALUES ($1, $2, $3)
    ON CONFLICT (rarity) DO UPDATE
    SET price      = EXCLUDED.price,
        updated_at = EXCLUDED.updated_at;`

	getThresholdSQL = `SELECT threshold_percent FROM floors WHERE rarity = $1;`

	setThresholdSQL = `INSERT INTO floors (rarity, threshold_percent, updated_at)
    VALUES ($1, $2, $3)
    ON CONFLICT (rarity) DO UPDATE
    SET threshold_percent = EXCLUDED.threshold_percent;`

	listFloorsSQL = `SELECT rarity, price, threshold_percent, updated_at
    FROM floors
    ORDER BY rarity;`

	getNotifiedSQL = `SELECT last_price FROM notifications WHERE item_id = $1;`

	setNotifiedSQL = `INSERT INTO notifications (item_id, last_price, last_at)
    VALUES ($1, $2, $3)
    ON CONFLICT (item_id) DO UPDATE
    SET last_price = EXCLUDED.last_price,
        last_at    = EXCLUDED.last_at;`

	insertFloorSampleSQL = `INSERT INTO floor_history (rarity, price, observed_at)
    VALUES ($1, $2, $3);`

	listFloorSamplesBetweenSQL = `SELECT rarity, price, observed_at
    FROM floor_history
    WHERE observed_at >= $1
      AND observed_at < $2
    ORDER BY observed_at;`
)

// FloorStore defines per-rarity floor and threshold persistence.
type FloorStore interface {
	GetFloor(ctx context.Context, rarity string) (*float64, error)
	SetFloor(ctx context.Context, rarity string, price float64) error
	GetThreshold(ctx context.Context, rarity string) (float64, error)
	SetThreshold(ctx context.Context, rarity string, percent float64) error
	ListFloors(ctx context.Context) ([]FloorRecord, error)
}

// NotificationStore defines per-item alert dedup persistence.
type NotificationStore interface {
	GetLastAlertedPrice(ctx context.Context, itemID string) (*float64, error)
	SetLastAlertedPrice(ctx context.Context, itemID string, price float64) error
}

// HistoryStore records floor observations for later export.
type HistoryStore interface {
	InsertFloorSample(ctx context.Context, sample FloorSample) error
	ListFloorSamplesBetween(ctx context.Context, from, to time.Time) ([]FloorSample, error)
}

// Store aggregates floor, notification, and history access over one pool.
// Same-key write serialisation is delegated to PostgreSQL row locking.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// GetFloor returns the stored floor price for a rarity, or nil when no floor
// has been confirmed yet.
func (s *Store) GetFloor(ctx context.Context, rarity string) (*float64, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	var price sql.NullFloat64
	if err := pool.QueryRow(ctx, getFloorSQL, rarity).Scan(&price); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get floor: %w", err)
	}
	if !price.Valid {
		return nil, nil
	}
	value := price.Float64
	return &value, nil
}

// SetFloor upserts the floor price for a rarity, rounded to cents.
func (s *Store) SetFloor(ctx context.Context, rarity string, price float64) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, setFloorSQL, rarity, round2(price), time.Now().UTC()); err != nil {
		return fmt.Errorf("set floor: %w", err)
	}
	return nil
}

// GetThreshold returns the alert threshold for a rarity, defaulting to 50%.
func (s *Store) GetThreshold(ctx context.Context, rarity string) (float64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}

	var percent sql.NullFloat64
	if err := pool.QueryRow(ctx, getThresholdSQL, rarity).Scan(&percent); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return DefaultThresholdPercent, nil
		}
		return 0, fmt.Errorf("get threshold: %w", err)
	}
	if !percent.Valid {
		return DefaultThresholdPercent, nil
	}
	return percent.Float64, nil
}

// SetThreshold upserts the alert threshold for a rarity, leaving any stored
// floor price untouched. Range validation is the caller's responsibility.
func (s *Store) SetThreshold(ctx context.Context, rarity string, percent float64) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, setThresholdSQL, rarity, percent, time.Now().UTC()); err != nil {
		return fmt.Errorf("set threshold: %w", err)
	}
	return nil
}

// ListFloors returns every stored floor record.
func (s *Store) ListFloors(ctx context.Context) ([]FloorRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listFloorsSQL)
	if queryErr != nil {
		return nil, fmt.Errorf("list floors: %w", queryErr)
	}
	defer rows.Close()

	records := make([]FloorRecord, 0)
	for rows.Next() {
		var (
			rec       FloorRecord
			price     sql.NullFloat64
			threshold sql.NullFloat64
			updatedAt sql.NullTime
		)
		if err := rows.Scan(&rec.Rarity, &price, &threshold, &updatedAt); err != nil {
			return nil, err
		}
		if price.Valid {
			value := price.Float64
			rec.FloorPrice = &value
		}
		rec.ThresholdPercent = DefaultThresholdPercent
		if threshold.Valid {
			rec.ThresholdPercent = threshold.Float64
		}
		if updatedAt.Valid {
			rec.UpdatedAt = updatedAt.Time
		}
		records = append(records, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

// GetLastAlertedPrice returns the price last alerted for an item, or nil when
// the item has never triggered an alert.
func (s *Store) GetLastAlertedPrice(ctx context.Context, itemID string) (*float64, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	var price float64
	if err := pool.QueryRow(ctx, getNotifiedSQL, itemID).Scan(&price); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get last alerted price: %w", err)
	}
	return &price, nil
}

// SetLastAlertedPrice upserts the dedup record for an item.
func (s *Store) SetLastAlertedPrice(ctx context.Context, itemID string, price float64) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, setNotifiedSQL, itemID, round2(price), time.Now().UTC()); err != nil {
		return fmt.Errorf("set last alerted price: %w", err)
	}
	return nil
}

// InsertFloorSample appends one floor history observation.
func (s *Store) InsertFloorSample(ctx context.Context, sample FloorSample) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	observed := sample.ObservedAt
	if observed.IsZero() {
		observed = time.Now().UTC()
	}
	if _, err := pool.Exec(ctx, insertFloorSampleSQL, sample.Rarity, round2(sample.Price), observed); err != nil {
		return fmt.Errorf("insert floor sample: %w", err)
	}
	return nil
}

// ListFloorSamplesBetween lists history samples within a time window.
func (s *Store) ListFloorSamplesBetween(ctx context.Context, from, to time.Time) ([]FloorSample, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listFloorSamplesBetweenSQL, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list floor samples: %w", queryErr)
	}
	defer rows.Close()

	samples := make([]FloorSample, 0)
	for rows.Next() {
		var sample FloorSample
		if err := rows.Scan(&sample.Rarity, &sample.Price, &sample.ObservedAt); err != nil {
			return nil, err
		}
		samples = append(samples, sample)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return samples, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
