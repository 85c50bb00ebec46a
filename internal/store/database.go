package store

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/fortuna/goalfeed/internal/platform/logging"
)

// Migration is one named schema step. Steps run once, in order.
type Migration struct {
	Version string
	SQL     string
}

// Database wraps the optional PostgreSQL connection used for run history
type Database struct {
	conn   *sqlx.DB
	logger *logging.Logger
}

// NewDatabase opens and pings a PostgreSQL connection
func NewDatabase(ctx context.Context, dsn string, logger *logging.Logger) (*Database, error) {
	if logger == nil {
		logger = logging.Default()
	}
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "ping database")
	}

	return &Database{conn: db, logger: logger.With("component", "database")}, nil
}

// Close closes the database connection
func (db *Database) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// DB returns the underlying handle for queries
func (db *Database) DB() *sqlx.DB {
	return db.conn
}

// Migrate applies the migrations not yet recorded in schema_migrations
func (db *Database) Migrate(ctx context.Context, migrations ...Migration) error {
	if _, err := db.conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(255) PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`); err != nil {
		return errors.Wrap(err, "create migrations table")
	}

	for _, m := range migrations {
		if err := db.migrate(ctx, m); err != nil {
			return errors.Wrapf(err, "migration %s", m.Version)
		}
	}
	return nil
}

func (db *Database) migrate(ctx context.Context, m Migration) error {
	var exists bool
	if err := db.conn.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)", m.Version); err != nil {
		return err
	}
	if exists {
		db.logger.Debug("migration already applied", "version", m.Version)
		return nil
	}

	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
		return errors.Wrap(err, "execute")
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", m.Version); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	db.logger.Info("migration applied", "version", m.Version)
	return nil
}

// HealthCheck pings the database
func (db *Database) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return db.conn.PingContext(ctx)
}
