package database

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// PostgresDialect implements Dialect for PostgreSQL
type PostgresDialect struct{}

func NewPostgresDialect() *PostgresDialect {
	return &PostgresDialect{}
}

func (d *PostgresDialect) Name() string { return "postgres" }

func (d *PostgresDialect) DriverName() string { return "postgres" }

// DSN is the URL as given; sslmode and friends travel in its query string
func (d *PostgresDialect) DSN(config DialectConfig) string {
	return config.URL
}

func (d *PostgresDialect) RewriteQuery(query string) string {
	return numberPlaceholders(query)
}

// SupportsLastInsertId is false: lib/pq has no LastInsertId, inserts use RETURNING id
func (d *PostgresDialect) SupportsLastInsertId() bool { return false }

func (d *PostgresDialect) ConfigureConnection(db *sql.DB) error {
	defaultPool.apply(db)
	return nil
}

func (d *PostgresDialect) CreateMigrationsTableQuery() string {
	return migrationsTableQuery("BIGSERIAL PRIMARY KEY", "TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP")
}

func (d *PostgresDialect) ResetSequenceQuery(table string) string {
	return fmt.Sprintf(
		"SELECT setval(pg_get_serial_sequence('%s', 'id'), COALESCE((SELECT MAX(id) FROM %s), 0) + 1, false)",
		table, table)
}
