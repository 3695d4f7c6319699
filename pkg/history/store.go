// Package history persists run records and conversation transcripts so that
// finished migrations can be audited after the fact. It speaks plain
// database/sql with embedded golang-migrate migrations and supports SQLite
// for single-node deployments and PostgreSQL for shared ones.
package history

import (
	"context"
	stdsql "database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib" // Register pgx driver for database/sql
	_ "modernc.org/sqlite"             // Register sqlite driver for database/sql
)

//go:embed migrations
var migrationsFS embed.FS

// Dialect selects the SQL backend.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// Config holds history store configuration.
type Config struct {
	// Dialect defaults to DialectSQLite when empty.
	Dialect Dialect
	// DSN is the driver connection string, e.g. "file:migsy.db" for SQLite
	// or a keyword/value or URL string for PostgreSQL.
	DSN string

	// Connection pool settings. Zero values pick per-dialect defaults.
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

func (c *Config) applyDefaults() {
	if c.Dialect == "" {
		c.Dialect = DialectSQLite
	}
	if c.MaxOpenConns == 0 {
		if c.Dialect == DialectSQLite {
			// A single writer connection avoids SQLITE_BUSY under
			// concurrent workers and keeps in-memory databases coherent.
			c.MaxOpenConns = 1
		} else {
			c.MaxOpenConns = 25
		}
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = 5
	}
	if c.ConnMaxLifetime == 0 {
		c.ConnMaxLifetime = 5 * time.Minute
	}
	if c.ConnMaxIdleTime == 0 {
		c.ConnMaxIdleTime = time.Minute
	}
}

// Store provides SQL-backed persistence for runs and their transcripts.
type Store struct {
	logger  *slog.Logger
	db      *stdsql.DB
	dialect Dialect
}

// NewStore opens the database, configures the connection pool, and applies
// any pending embedded migrations.
func NewStore(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	cfg.applyDefaults()

	if cfg.DSN == "" {
		return nil, fmt.Errorf("history: DSN is required")
	}

	var driverName string
	switch cfg.Dialect {
	case DialectSQLite:
		driverName = "sqlite"
		cfg.DSN = withSQLitePragmas(cfg.DSN)
	case DialectPostgres:
		driverName = "pgx"
	default:
		return nil, fmt.Errorf("history: unsupported dialect %q", cfg.Dialect)
	}

	db, err := stdsql.Open(driverName, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runMigrations(db, cfg.Dialect); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("History store ready", slog.String("dialect", string(cfg.Dialect)))

	return &Store{
		logger:  logger.With(slog.String("component", "history")),
		db:      db,
		dialect: cfg.Dialect,
	}, nil
}

// DB returns the underlying database connection for health checks.
func (s *Store) DB() *stdsql.DB {
	return s.db
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// runMigrations applies the embedded migrations for the given dialect using
// golang-migrate. Migration files are embedded into the binary with go:embed
// so production deployments need no external files.
func runMigrations(db *stdsql.DB, dialect Dialect) error {
	dir := "migrations/" + string(dialect)

	hasMigrations, err := hasEmbeddedMigrations(dir)
	if err != nil {
		return fmt.Errorf("failed to check embedded migrations: %w", err)
	}
	if !hasMigrations {
		return fmt.Errorf("no embedded migration files found for dialect %q", dialect)
	}

	sourceDriver, err := iofs.New(migrationsFS, dir)
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	var driver database.Driver
	switch dialect {
	case DialectSQLite:
		driver, err = migratesqlite.WithInstance(db, &migratesqlite.Config{})
		if err != nil {
			return fmt.Errorf("failed to create sqlite driver: %w", err)
		}
	case DialectPostgres:
		driver, err = migratepostgres.WithInstance(db, &migratepostgres.Config{})
		if err != nil {
			return fmt.Errorf("failed to create postgres driver: %w", err)
		}
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "history", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	// Close only the migration source driver. We must NOT call m.Close()
	// because that also closes the database driver, which calls db.Close()
	// on the shared *sql.DB passed via WithInstance().
	if err := sourceDriver.Close(); err != nil {
		return fmt.Errorf("failed to close migration source: %w", err)
	}

	return nil
}

// hasEmbeddedMigrations checks if the embedded FS contains any .sql files
// under the given directory.
func hasEmbeddedMigrations(dir string) (bool, error) {
	entries, err := fs.ReadDir(migrationsFS, dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read embedded migrations: %w", err)
	}
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			return true, nil
		}
	}
	return false, nil
}

// withSQLitePragmas appends the pragmas the store relies on (foreign keys,
// a busy timeout) unless the DSN already configures its own. Only file: URIs
// carry query parameters, so other DSN forms pass through untouched.
func withSQLitePragmas(dsn string) string {
	if !strings.HasPrefix(dsn, "file:") || strings.Contains(dsn, "_pragma") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// rebind translates ? placeholders into the $N form PostgreSQL expects.
// Queries in this package are written with ? so both dialects share one
// set of statements.
func (s *Store) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}
