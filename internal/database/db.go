package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/blog-realtime-api/internal/config"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
)

const (
	connectAttempts = 5
	connectBackoff  = time.Second
	pingTimeout     = 5 * time.Second
)

// DB is the pooled PostgreSQL handle shared by the repositories
type DB struct {
	*sql.DB
	log zerolog.Logger
}

// New opens the pool and waits for PostgreSQL to answer, retrying while
// the server is still starting.
func New(cfg *config.DatabaseConfig, log zerolog.Logger) (*DB, error) {
	pool, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	pool.SetMaxOpenConns(cfg.MaxOpenConns)
	pool.SetMaxIdleConns(cfg.MaxIdleConns)
	pool.SetConnMaxLifetime(cfg.MaxLifetime)

	db := &DB{
		DB:  pool,
		log: log.With().Str("component", "database").Logger(),
	}

	for attempt := 1; ; attempt++ {
		err = db.HealthCheck(context.Background())
		if err == nil {
			break
		}
		if attempt == connectAttempts {
			pool.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		db.log.Warn().Err(err).Int("attempt", attempt).Msg("Database not ready, retrying")
		time.Sleep(connectBackoff)
	}

	db.log.Info().
		Str("host", cfg.Host).
		Str("database", cfg.Name).
		Int("max_open_conns", cfg.MaxOpenConns).
		Msg("Database connection established")

	return db, nil
}

// WithTx runs fn in a transaction, committing only when fn succeeds
func (db *DB) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// MigrationTarget selects where Migrate moves the schema. The zero value
// applies every pending migration.
type MigrationTarget struct {
	// Down rolls back the most recent migration
	Down bool
	// Version migrates up or down to an exact version
	Version uint
}

func (t MigrationTarget) String() string {
	switch {
	case t.Down:
		return "previous"
	case t.Version > 0:
		return fmt.Sprintf("version %d", t.Version)
	default:
		return "latest"
	}
}

// Migrate moves the schema in migrationsPath to target
func (db *DB) Migrate(migrationsPath string, target MigrationTarget) error {
	log := db.log.With().Str("path", migrationsPath).Stringer("target", target).Logger()
	log.Info().Msg("Running database migrations")

	driver, err := postgres.WithInstance(db.DB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsPath, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	switch {
	case target.Down:
		err = m.Steps(-1)
	case target.Version > 0:
		err = m.Migrate(target.Version)
	default:
		err = m.Up()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to migrate to %s: %w", target, err)
	}

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		log.Info().Msg("Schema is empty")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	log.Info().Uint("version", version).Bool("dirty", dirty).Msg("Migrations completed")
	return nil
}

// HealthCheck pings the database with a bounded wait
func (db *DB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return db.PingContext(ctx)
}

// Stats returns database connection pool statistics
func (db *DB) Stats() sql.DBStats {
	return db.DB.Stats()
}
