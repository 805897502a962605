package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
)

//go:embed migrations
var embeddedMigrations embed.FS

// MigrationFS returns the migration files for the connection's dialect. When dir is
// non-empty the files are read from dir/<dialect> on disk instead of the embedded copy.
func (db *DB) MigrationFS(dir string) (fs.FS, error) {
	if dir != "" {
		return os.DirFS(path.Join(dir, db.Dialect.Name())), nil
	}
	return fs.Sub(embeddedMigrations, path.Join("migrations", db.Dialect.Name()))
}

// RunMigrations executes every *.sql file that has not been recorded yet, in filename order.
// It returns the names of the files it applied.
func (db *DB) RunMigrations(ctx context.Context, dir string) ([]string, error) {
	migrations, err := db.MigrationFS(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open migrations: %w", err)
	}

	if _, err := db.ExecContext(ctx, db.Dialect.CreateMigrationsTableQuery()); err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}

	files, err := fs.Glob(migrations, "*.sql")
	if err != nil {
		return nil, fmt.Errorf("failed to read migration files: %w", err)
	}
	sort.Strings(files)

	var applied []string
	for _, filename := range files {
		hasRun, err := db.hasMigrationRun(ctx, filename)
		if err != nil {
			return applied, fmt.Errorf("failed to check migration status: %w", err)
		}
		if hasRun {
			continue
		}

		content, err := fs.ReadFile(migrations, filename)
		if err != nil {
			return applied, fmt.Errorf("failed to read migration file %s: %w", filename, err)
		}

		err = db.WithTx(ctx, func(tx *Tx) error {
			if _, err := tx.Tx.ExecContext(ctx, string(content)); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx, "INSERT INTO migrations (filename) VALUES (?)", filename)
			return err
		})
		if err != nil {
			return applied, fmt.Errorf("failed to execute migration %s: %w", filename, err)
		}

		applied = append(applied, filename)
	}

	return applied, nil
}

func (db *DB) hasMigrationRun(ctx context.Context, filename string) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM migrations WHERE filename = ?", filename).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
