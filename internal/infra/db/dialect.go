package db

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect smooths over the SQL differences between the supported drivers:
// placeholder style, duplicate-key suppression and auto-increment columns.
type Dialect string

const (
	SQLite   Dialect = "sqlite3"
	MySQL    Dialect = "mysql"
	Postgres Dialect = "postgres"
)

// DialectFor maps a driver name to its dialect.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "sqlite3", "sqlite":
		return SQLite, nil
	case "mysql":
		return MySQL, nil
	case "postgres", "postgresql", "pgx":
		return Postgres, nil
	}
	return "", fmt.Errorf("unsupported database driver %q", driver)
}

// rebind converts ?-style placeholders to $1..$n for postgres. Queries in
// this package are written with ? throughout.
func (d Dialect) rebind(q string) string {
	if d != Postgres {
		return q
	}
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// insertIgnore builds an INSERT that silently skips primary-key collisions.
// RowsAffected stays the source of truth for how many rows actually landed.
func (d Dialect) insertIgnore(table string, cols []string) string {
	marks := strings.TrimSuffix(strings.Repeat("?,", len(cols)), ",")
	base := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ","), marks)
	switch d {
	case SQLite:
		base = "INSERT OR IGNORE" + strings.TrimPrefix(base, "INSERT")
	case MySQL:
		base = "INSERT IGNORE" + strings.TrimPrefix(base, "INSERT")
	case Postgres:
		base += " ON CONFLICT (pk) DO NOTHING"
	}
	return d.rebind(base)
}

// serialPK is the auto-increment primary key column definition.
func (d Dialect) serialPK() string {
	switch d {
	case MySQL:
		return "id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY"
	case Postgres:
		return "id BIGSERIAL PRIMARY KEY"
	default:
		return "id INTEGER PRIMARY KEY AUTOINCREMENT"
	}
}
