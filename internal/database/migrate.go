package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

//go:embed migrations
var migrations embed.FS

// Migrate applies the embedded schema for dialect.  Each dialect keeps its
// own migration directory since the DDL differs.
func Migrate(ctx context.Context, db *sql.DB, dialect Dialect) error {
	if db == nil {
		return fmt.Errorf("db is required")
	}
	var gd goose.Dialect
	switch dialect {
	case DialectMySQL:
		gd = goose.DialectMySQL
	case DialectSQLite:
		gd = goose.DialectSQLite3
	default:
		return fmt.Errorf("unsupported dialect %q", dialect)
	}
	dir, err := fs.Sub(migrations, "migrations/"+string(dialect))
	if err != nil {
		return fmt.Errorf("migrations for %s: %w", dialect, err)
	}
	provider, err := goose.NewProvider(gd, db, dir)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}
