package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverSQLite   Driver = "sqlite"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// DefaultDSN returns the DSN used when none is configured.
func DefaultDSN(driver Driver) string {
	switch driver {
	case DriverSQLite:
		return "file:itembank.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
	default:
		return "host=localhost port=5432 user=cat_user password=cat_password dbname=cat_engine sslmode=disable"
	}
}

// Connect opens and pings a database for the given driver.
func Connect(ctx context.Context, driver Driver, dsn string) (*sql.DB, error) {
	switch driver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}
	if dsn == "" {
		dsn = DefaultDSN(driver)
	}

	db, err := sql.Open(string(driver), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if driver == DriverSQLite {
		// SQLite allows one writer at a time.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
	}

	return db, nil
}

// Migrate brings the schema up to date. It uses its own connection so the
// caller's pool is left untouched when the migrator closes.
func Migrate(ctx context.Context, driver Driver, dsn string) error {
	db, err := Connect(ctx, driver, dsn)
	if err != nil {
		return err
	}
	// The migrators hold a connection for their lock while running statements.
	db.SetMaxOpenConns(0)

	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		db.Close()
		return fmt.Errorf("load migrations: %w", err)
	}

	var target migratedb.Driver
	switch driver {
	case DriverSQLite:
		target, err = sqlite.WithInstance(db, &sqlite.Config{})
	default:
		target, err = postgres.WithInstance(db, &postgres.Config{})
	}
	if err != nil {
		db.Close()
		return fmt.Errorf("migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, string(driver), target)
	if err != nil {
		target.Close()
		return fmt.Errorf("init migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// Rebind rewrites $N placeholders into the form the driver expects.
// Queries are written in Postgres style.
func Rebind(driver Driver, query string) string {
	if driver != DriverSQLite {
		return query
	}
	var b strings.Builder
	b.Grow(len(query))
	for i := 0; i < len(query); i++ {
		c := query[i]
		if c != '$' {
			b.WriteByte(c)
			continue
		}
		j := i + 1
		for j < len(query) && query[j] >= '0' && query[j] <= '9' {
			j++
		}
		if j == i+1 {
			b.WriteByte(c)
			continue
		}
		n, _ := strconv.Atoi(query[i+1 : j])
		b.WriteString("?" + strconv.Itoa(n))
		i = j - 1
	}
	return b.String()
}
