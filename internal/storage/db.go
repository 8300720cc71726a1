package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"pgexpense/internal/query"
)

// DB is the process-wide connection pool together with the dialect used to
// render statements for it. Open it once at startup and Close it on exit.
type DB struct {
	*sql.DB
	Dialect query.Dialect

	driverName string
	dsn        string
}

// PostgresConfig holds the connection parameters of a PostgreSQL server.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	Schema   string
	SSLMode  string

	MaxOpenConns int
}

// DSN renders a lib/pq key=value connection string. A schema, when set, is
// put first on the search_path.
func (c PostgresConfig) DSN() string {
	parts := []string{
		"host=" + quoteDSN(c.Host),
		"port=" + strconv.Itoa(c.Port),
		"user=" + quoteDSN(c.User),
		"password=" + quoteDSN(c.Password),
		"dbname=" + quoteDSN(c.Name),
	}
	if c.SSLMode != "" {
		parts = append(parts, "sslmode="+quoteDSN(c.SSLMode))
	}
	if c.Schema != "" {
		parts = append(parts, "search_path="+quoteDSN(c.Schema+",public"))
	}
	return strings.Join(parts, " ")
}

func quoteDSN(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

// OpenPostgres opens and pings a PostgreSQL pool.
func OpenPostgres(ctx context.Context, cfg PostgresConfig) (*DB, error) {
	dsn := cfg.DSN()
	db, err := openDSN(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres %s:%d/%s: %w", cfg.Host, cfg.Port, cfg.Name, err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxOpenConns)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &DB{DB: db, Dialect: query.Postgres, driverName: "postgres", dsn: dsn}, nil
}

func openDSN(ctx context.Context, driverName, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// SQLiteDSN renders a modernc.org/sqlite DSN with a busy timeout so
// concurrent readers wait for the loader's write transactions.
func SQLiteDSN(path string) string {
	return "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
}

// OpenSQLite opens and pings a SQLite database file, creating its directory.
func OpenSQLite(ctx context.Context, path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := SQLiteDSN(path)
	db, err := openDSN(ctx, "sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite %s: %w", path, err)
	}

	return &DB{DB: db, Dialect: query.SQLite, driverName: "sqlite", dsn: dsn}, nil
}

// Migrate brings the schema up to date on a dedicated connection.
func (d *DB) Migrate() error {
	return RunMigrations(d.driverName, d.dsn)
}

func (d *DB) Close() error {
	if d == nil || d.DB == nil {
		return nil
	}
	return d.DB.Close()
}
