package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	"github.com/iliyamo/restaurant-table-reservation/internal/config"
)

// Dialect names the SQL flavour behind a *sql.DB.
type Dialect string

const (
	DialectMySQL  Dialect = "mysql"
	DialectSQLite Dialect = "sqlite"
)

// Open connects to the backend selected by cfg.Driver and verifies the
// connection.
func Open(cfg config.StoreConfig) (*sql.DB, Dialect, error) {
	switch strings.ToLower(cfg.Driver) {
	case config.StoreMySQL:
		db, err := OpenMySQL(cfg)
		return db, DialectMySQL, err
	case config.StoreSQLite:
		db, err := OpenSQLite(cfg.SQLiteDSN)
		return db, DialectSQLite, err
	}
	return nil, "", fmt.Errorf("driver %q is not a SQL backend", cfg.Driver)
}

// OpenMySQL connects to MySQL.  Times are parsed as UTC.
func OpenMySQL(cfg config.StoreConfig) (*sql.DB, error) {
	mc := mysql.NewConfig()
	mc.User = cfg.DBUser
	mc.Passwd = cfg.DBPass
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.DBHost, cfg.DBPort)
	mc.DBName = cfg.DBName
	mc.ParseTime = true
	mc.Loc = time.UTC
	mc.Params = map[string]string{"charset": "utf8mb4"}

	db, err := sql.Open("mysql", mc.FormatDSN())
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := ping(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// OpenSQLite opens an embedded SQLite database.  SQLite allows a single
// writer, so the pool is pinned to one connection and transactions queue
// in database/sql instead of failing with SQLITE_BUSY.
func OpenSQLite(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := ping(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func ping(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}
