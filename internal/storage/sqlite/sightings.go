package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/j4v3l/skydeck/internal/engine"
	"github.com/j4v3l/skydeck/pkg/logger"
)

const (
	positionQueueCap = 64
	alertQueueCap    = 32
)

// SightingStorage is a SQLite-based log of observed positions and raised
// alerts. Writes are queued and applied on a dedicated goroutine so the
// engine loop never blocks on disk.
type SightingStorage struct {
	db     *sql.DB
	logger *logger.Logger

	positionCh chan []engine.PositionRecord
	alertCh    chan engine.Alert
}

// NewSightingStorage opens (or creates) the sighting database.
func NewSightingStorage(dbPath string, log *logger.Logger) (*SightingStorage, error) {
	storageLogger := log.Named("sqlite")

	storageLogger.Info("Initializing SQLite storage",
		logger.String("path", dbPath))

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to set journal mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		return nil, fmt.Errorf("failed to set synchronous mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if err := initDatabase(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SightingStorage{
		db:         db,
		logger:     storageLogger,
		positionCh: make(chan []engine.PositionRecord, positionQueueCap),
		alertCh:    make(chan engine.Alert, alertQueueCap),
	}, nil
}

// initDatabase initializes the database schema.
func initDatabase(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS positions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			key TEXT NOT NULL,
			lat REAL NOT NULL,
			lon REAL NOT NULL,
			at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create positions table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS alerts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			kind TEXT NOT NULL,
			key TEXT,
			message TEXT,
			distance_mi REAL,
			bearing_deg REAL,
			at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create alerts table: %w", err)
	}

	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_positions_key ON positions(key)`); err != nil {
		return fmt.Errorf("failed to create index on positions.key: %w", err)
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_positions_at ON positions(at)`); err != nil {
		return fmt.Errorf("failed to create index on positions.at: %w", err)
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_alerts_at ON alerts(at)`); err != nil {
		return fmt.Errorf("failed to create index on alerts.at: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SightingStorage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// LogPositions queues trail points for persistence. Never blocks; a full
// queue drops the batch.
func (s *SightingStorage) LogPositions(records []engine.PositionRecord) {
	select {
	case s.positionCh <- records:
	default:
		s.logger.Warn("Position queue full, dropping batch",
			logger.Int("count", len(records)))
	}
}

// Alert queues an alert for persistence. Never blocks.
func (s *SightingStorage) Alert(a engine.Alert) {
	select {
	case s.alertCh <- a:
	default:
		s.logger.Warn("Alert queue full, dropping alert",
			logger.String("kind", a.Kind),
			logger.String("key", a.Key))
	}
}

// Run drains the write queues until the context is cancelled.
func (s *SightingStorage) Run(ctx context.Context) {
	s.logger.Info("Sighting writer started")
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Sighting writer stopped")
			return
		case records := <-s.positionCh:
			if err := s.insertPositions(records); err != nil {
				s.logger.Error("Failed to insert positions", logger.Error(err))
			}
		case a := <-s.alertCh:
			if err := s.insertAlert(a); err != nil {
				s.logger.Error("Failed to insert alert", logger.Error(err))
			}
		}
	}
}

// insertPositions writes one batch of trail points in a single transaction.
func (s *SightingStorage) insertPositions(records []engine.PositionRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO positions (key, lat, lon, at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		if _, err := stmt.Exec(rec.Key, rec.Lat, rec.Lon, rec.At.UTC()); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert position: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit positions: %w", err)
	}
	return nil
}

func (s *SightingStorage) insertAlert(a engine.Alert) error {
	_, err := s.db.Exec(
		`INSERT INTO alerts (kind, key, message, distance_mi, bearing_deg, at) VALUES (?, ?, ?, ?, ?, ?)`,
		a.Kind, a.Key, a.Message, a.Distance, a.Bearing, a.At.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	return nil
}

// PositionHistory returns the most recent stored positions for one
// identity key, newest first.
func (s *SightingStorage) PositionHistory(key string, limit int) ([]engine.PositionRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.Query(
		`SELECT key, lat, lon, at FROM positions WHERE key = ? ORDER BY at DESC LIMIT ?`,
		key, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	var records []engine.PositionRecord
	for rows.Next() {
		var rec engine.PositionRecord
		var at time.Time
		if err := rows.Scan(&rec.Key, &rec.Lat, &rec.Lon, &at); err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		rec.At = at
		records = append(records, rec)
	}
	return records, rows.Err()
}

// RecentAlerts returns the most recent stored alerts, newest first.
func (s *SightingStorage) RecentAlerts(limit int) ([]engine.Alert, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(
		`SELECT kind, key, message, distance_mi, bearing_deg, at FROM alerts ORDER BY at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []engine.Alert
	for rows.Next() {
		var a engine.Alert
		if err := rows.Scan(&a.Kind, &a.Key, &a.Message, &a.Distance, &a.Bearing, &a.At); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}
