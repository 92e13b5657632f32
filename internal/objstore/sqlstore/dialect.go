package sqlstore

import (
	"strconv"
	"strings"
)

type dialect struct {
	// driver is the database/sql driver name.
	driver string

	// goose is the goose dialect name.
	goose string

	migrationsDir string

	// numbered placeholders ($1, $2...) instead of "?".
	numbered bool

	// singleConn limits the pool to one connection. SQLite serializes writers
	// anyway, and an in-memory database only exists per connection.
	singleConn bool
}

var (
	postgresDialect = dialect{
		driver:        "pgx",
		goose:         "postgres",
		migrationsDir: "migrations/postgres",
		numbered:      true,
	}
	sqliteDialect = dialect{
		driver:        "sqlite",
		goose:         "sqlite3",
		migrationsDir: "migrations/sqlite",
		singleConn:    true,
	}
)

// rebind rewrites "?" placeholders for the dialect.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
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
