package database

import (
	"database/sql"

	"github.com/go-sql-driver/mysql"
)

// MySQLDialect implements Dialect for MySQL
type MySQLDialect struct{}

func NewMySQLDialect() *MySQLDialect {
	return &MySQLDialect{}
}

func (d *MySQLDialect) Name() string { return "mysql" }

func (d *MySQLDialect) DriverName() string { return "mysql" }

// DSN makes DATETIME columns scan into time.Time, allows migration files with
// several statements and stores Turkish text as utf8mb4.
func (d *MySQLDialect) DSN(config DialectConfig) string {
	cfg, err := mysql.ParseDSN(config.URL)
	if err != nil {
		return config.URL
	}
	cfg.ParseTime = true
	cfg.MultiStatements = true
	if cfg.Params == nil {
		cfg.Params = map[string]string{}
	}
	if _, ok := cfg.Params["charset"]; !ok {
		cfg.Params["charset"] = "utf8mb4"
	}
	return cfg.FormatDSN()
}

func (d *MySQLDialect) RewriteQuery(query string) string { return query }

func (d *MySQLDialect) SupportsLastInsertId() bool { return true }

func (d *MySQLDialect) ConfigureConnection(db *sql.DB) error {
	defaultPool.apply(db)

	_, err := db.Exec("SET FOREIGN_KEY_CHECKS = 1;")
	return err
}

func (d *MySQLDialect) CreateMigrationsTableQuery() string {
	return migrationsTableQuery("BIGINT AUTO_INCREMENT PRIMARY KEY", "DATETIME(6) DEFAULT CURRENT_TIMESTAMP(6)")
}

// ResetSequenceQuery is empty: InnoDB moves AUTO_INCREMENT past explicit ids
func (d *MySQLDialect) ResetSequenceQuery(table string) string { return "" }
