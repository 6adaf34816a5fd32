// Package db persists scans and findings through database/sql. One
// repository serves all three supported engines; engine differences live in
// the Dialect type.
package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/hashicorp/go-hclog"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// Connect opens the configured engine, applies pool settings and verifies
// the connection with a short ping. For sqlite it also switches the journal
// to WAL so concurrent readers do not block the writer.
func Connect(ctx context.Context, driver, dsn string, log hclog.Logger) (*sql.DB, Dialect, error) {
	dialect, err := DialectFor(driver)
	if err != nil {
		return nil, "", err
	}

	conn, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, "", err
	}
	if dialect == SQLite {
		// a single writer; WAL keeps reads concurrent with it
		conn.SetMaxOpenConns(1)
		for _, pragma := range []string{
			"PRAGMA journal_mode=WAL",
			"PRAGMA synchronous=NORMAL",
			"PRAGMA foreign_keys=ON",
		} {
			if _, err := conn.ExecContext(ctx, pragma); err != nil {
				conn.Close()
				return nil, "", err
			}
		}
	} else {
		conn.SetMaxOpenConns(25)
		conn.SetMaxIdleConns(10)
		conn.SetConnMaxLifetime(30 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		conn.Close()
		return nil, "", err
	}

	if log != nil {
		log.Debug("database connected", "driver", string(dialect))
	}
	return conn, dialect, nil
}
