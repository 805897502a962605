package database

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Dialect hides the differences between the supported SQL databases.
// Queries are always written with ? placeholders.
type Dialect interface {
	// Name is the short database name. It also names the migrations subdirectory.
	Name() string

	// DriverName is the database/sql driver registered for this dialect
	DriverName() string

	DSN(config DialectConfig) string

	// RewriteQuery converts ? placeholders when the driver expects another syntax
	RewriteQuery(query string) string

	// SupportsLastInsertId is false when inserts need a RETURNING clause
	SupportsLastInsertId() bool

	ConfigureConnection(db *sql.DB) error

	CreateMigrationsTableQuery() string

	// ResetSequenceQuery moves the id counter of table past its largest id after rows
	// were inserted with explicit ids. It is empty when the database does that on insert.
	ResetSequenceQuery(table string) string
}

// DialectConfig holds the connection target
type DialectConfig struct {
	// SQLite file path
	Path string

	// PostgreSQL/MySQL connection URL
	URL string
}

type poolSettings struct {
	maxOpen  int
	maxIdle  int
	lifetime time.Duration
	idleTime time.Duration
}

var defaultPool = poolSettings{
	maxOpen:  25,
	maxIdle:  5,
	lifetime: 5 * time.Minute,
	idleTime: time.Minute,
}

func (p poolSettings) apply(db *sql.DB) {
	db.SetMaxOpenConns(p.maxOpen)
	db.SetMaxIdleConns(p.maxIdle)
	db.SetConnMaxLifetime(p.lifetime)
	db.SetConnMaxIdleTime(p.idleTime)
}

func migrationsTableQuery(idColumn, executedAtColumn string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS migrations (
	id %s,
	filename VARCHAR(255) UNIQUE NOT NULL,
	executed_at %s
)`, idColumn, executedAtColumn)
}

// numberPlaceholders converts ? placeholders to $1, $2, ... outside quoted literals
func numberPlaceholders(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)

	n := 0
	quoted := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			quoted = !quoted
		case c == '?' && !quoted:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}
