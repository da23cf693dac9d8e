package itembank

import (
	"context"
	"fmt"

	"github.com/cat-engine/backend/internal/database"
)

const (
	SourceCSV      = "csv"
	SourcePostgres = "postgres"
	SourceSQLite   = "sqlite"
)

// Source says where the bank is loaded from.
type Source struct {
	Kind string `yaml:"source"`
	Path string `yaml:"path"`
	DSN  string `yaml:"dsn"`
}

// Open loads the bank described by src. An empty or unreadable bank is an
// error; callers are expected to refuse to start.
func Open(ctx context.Context, src Source) (*Bank, error) {
	switch src.Kind {
	case SourceCSV, "":
		return LoadCSV(src.Path)
	case SourcePostgres, SourceSQLite:
		driver := database.Driver(src.Kind)
		if err := database.Migrate(ctx, driver, src.DSN); err != nil {
			return nil, err
		}
		db, err := database.Connect(ctx, driver, src.DSN)
		if err != nil {
			return nil, err
		}
		defer db.Close()
		return NewStore(db, driver).Load(ctx)
	default:
		return nil, fmt.Errorf("unknown item bank source %q", src.Kind)
	}
}
