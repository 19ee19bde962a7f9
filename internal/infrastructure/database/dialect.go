package database

import (
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// Dialect identifies the SQL flavour behind a connection.
//
// Stores write their queries with "?" placeholders and pass them through
// Rebind so the same text runs on SQLite and PostgreSQL.
type Dialect int

const (
	// DialectSQLite is mattn/go-sqlite3.
	DialectSQLite Dialect = iota

	// DialectPostgres is pgx through database/sql.
	DialectPostgres
)

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// String returns the dialect name.
func (d Dialect) String() string {
	switch d {
	case DialectPostgres:
		return DriverPostgres
	default:
		return DriverSQLite
	}
}

// Rebind rewrites "?" placeholders to "$1", "$2", ... for PostgreSQL.
// Queries for SQLite are returned unchanged. Placeholders inside quoted
// literals are left alone.
func (d Dialect) Rebind(query string) string {
	if d != DialectPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8) //nolint:mnd // room for a few multi-digit placeholders

	n := 0
	inQuote := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			inQuote = !inQuote
			b.WriteByte(c)
		case c == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// IsUniqueViolation reports whether err is a unique or primary key
// constraint failure in this dialect.
func (d Dialect) IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if d == DialectPostgres {
		var pgErr *pgconn.PgError
		return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "PRIMARY KEY constraint failed")
}
