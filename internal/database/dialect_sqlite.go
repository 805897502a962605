package database

import (
	"database/sql"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteDialect implements Dialect for SQLite, the default store
type SQLiteDialect struct{}

func NewSQLiteDialect() *SQLiteDialect {
	return &SQLiteDialect{}
}

func (d *SQLiteDialect) Name() string { return "sqlite" }

func (d *SQLiteDialect) DriverName() string { return "sqlite3" }

// DSN turns on foreign keys and a busy timeout for every pooled connection.
// Card deletion relies on ON DELETE CASCADE, which SQLite ignores without the pragma.
func (d *SQLiteDialect) DSN(config DialectConfig) string {
	sep := "?"
	if strings.Contains(config.Path, "?") {
		sep = "&"
	}
	return config.Path + sep + "_foreign_keys=on&_busy_timeout=5000"
}

func (d *SQLiteDialect) RewriteQuery(query string) string { return query }

func (d *SQLiteDialect) SupportsLastInsertId() bool { return true }

func (d *SQLiteDialect) ConfigureConnection(db *sql.DB) error {
	defaultPool.apply(db)

	// journal_mode=WAL persists in the database file
	_, err := db.Exec("PRAGMA journal_mode=WAL;")
	return err
}

func (d *SQLiteDialect) CreateMigrationsTableQuery() string {
	return migrationsTableQuery("INTEGER PRIMARY KEY AUTOINCREMENT", "DATETIME DEFAULT CURRENT_TIMESTAMP")
}

// ResetSequenceQuery is empty: AUTOINCREMENT tracks the largest inserted id
func (d *SQLiteDialect) ResetSequenceQuery(table string) string { return "" }
