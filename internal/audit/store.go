// Package audit persists one summary row per detection request to
// Postgres. No entity text is ever written: the trail records counts and
// category names, not PII.
package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// Config contains audit database configuration.
type Config struct {
	DatabaseURL     string        `yaml:"database_url" mapstructure:"database_url"`
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
}

// Record is one audit row.
type Record struct {
	RequestID      string    `db:"request_id"`
	Operation      string    `db:"operation"` // detect or anonymize
	TextLength     int       `db:"text_length"`
	TotalValid     int       `db:"total_valid"`
	TotalFiltered  int       `db:"total_filtered"`
	Categories     []string  `db:"-"`
	ValidationRate float64   `db:"validation_rate"`
	DurationMS     float64   `db:"duration_ms"`
	CreatedAt      time.Time `db:"created_at"`
}

// Store handles audit trail persistence.
type Store struct {
	db     *sqlx.DB
	logger *zap.Logger
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS detection_audit (
	id              BIGSERIAL PRIMARY KEY,
	request_id      TEXT NOT NULL,
	operation       TEXT NOT NULL,
	text_length     INTEGER NOT NULL,
	total_valid     INTEGER NOT NULL,
	total_filtered  INTEGER NOT NULL,
	categories      TEXT[] NOT NULL DEFAULT '{}',
	validation_rate DOUBLE PRECISION NOT NULL,
	duration_ms     DOUBLE PRECISION NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// NewStore connects to Postgres and ensures the audit table exists.
func NewStore(config *Config, logger *zap.Logger) (*Store, error) {
	db, err := sqlx.Connect("postgres", config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)

	store := &Store{
		db:     db,
		logger: logger,
	}

	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize audit store: %w", err)
	}

	logger.Info("Audit store initialized",
		zap.String("database_url", maskDatabaseURL(config.DatabaseURL)),
		zap.Int("max_open_conns", config.MaxOpenConns))

	return store, nil
}

// initialize checks the connection and ensures the audit table.
func (s *Store) initialize() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("failed to create audit table: %w", err)
	}

	return nil
}

// Write inserts one audit record. Failures are logged, not fatal: an audit
// outage must not fail detection requests.
func (s *Store) Write(ctx context.Context, rec *Record) error {
	const insertSQL = `
		INSERT INTO detection_audit
			(request_id, operation, text_length, total_valid, total_filtered,
			 categories, validation_rate, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, insertSQL,
		rec.RequestID,
		rec.Operation,
		rec.TextLength,
		rec.TotalValid,
		rec.TotalFiltered,
		pq.Array(rec.Categories),
		rec.ValidationRate,
		rec.DurationMS,
		createdAt,
	)
	if err != nil {
		s.logger.Error("Failed to write audit record",
			zap.String("request_id", rec.RequestID),
			zap.Error(err))
		return fmt.Errorf("failed to write audit record: %w", err)
	}

	return nil
}

// RecentCount returns the number of audit rows written in the given window.
func (s *Store) RecentCount(ctx context.Context, window time.Duration) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM detection_audit WHERE created_at > $1`
	if err := s.db.GetContext(ctx, &count, query, time.Now().Add(-window)); err != nil {
		return 0, fmt.Errorf("failed to count audit records: %w", err)
	}
	return count, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// maskDatabaseURL masks credentials in a database URL for logging.
func maskDatabaseURL(url string) string {
	if strings.Contains(url, "@") {
		parts := strings.Split(url, "@")
		if len(parts) >= 2 {
			userPart := parts[0]
			if idx := strings.LastIndex(userPart, ":"); idx > strings.Index(userPart, "//")+2 {
				parts[0] = userPart[:idx] + ":***"
			}
			return strings.Join(parts, "@")
		}
	}
	return url
}
