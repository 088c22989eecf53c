package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

//go:embed migrations/mysql/*.sql migrations/postgres/*.sql
var migrations embed.FS

// Dialects understood by Migrate.
const (
	DialectMySQL    = "mysql"
	DialectPostgres = "postgres"
)

// Migrate applies every embedded migration of dialect that is not yet
// recorded in schema_migrations, in file name order.  It returns the names
// it applied.
func Migrate(ctx context.Context, db *sql.DB, dialect string) ([]string, error) {
	files, err := migrationFiles(dialect)
	if err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS schema_migrations (version VARCHAR(255) PRIMARY KEY)`); err != nil {
		return nil, fmt.Errorf("create schema_migrations: %w", err)
	}

	exists := `SELECT COUNT(*) FROM schema_migrations WHERE version = ?`
	insert := `INSERT INTO schema_migrations (version) VALUES (?)`
	if dialect == DialectPostgres {
		exists = `SELECT COUNT(*) FROM schema_migrations WHERE version = $1`
		insert = `INSERT INTO schema_migrations (version) VALUES ($1)`
	}

	var applied []string
	for _, f := range files {
		var n int
		if err := db.QueryRowContext(ctx, exists, f).Scan(&n); err != nil {
			return applied, err
		}
		if n > 0 {
			continue
		}
		b, err := migrations.ReadFile(path.Join("migrations", dialect, f))
		if err != nil {
			return applied, err
		}
		for _, stmt := range SplitStatements(string(b)) {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return applied, fmt.Errorf("apply %s: %w", f, err)
			}
		}
		if _, err := db.ExecContext(ctx, insert, f); err != nil {
			return applied, err
		}
		applied = append(applied, f)
	}
	return applied, nil
}

func migrationFiles(dialect string) ([]string, error) {
	if dialect != DialectMySQL && dialect != DialectPostgres {
		return nil, fmt.Errorf("unknown migration dialect %q", dialect)
	}
	entries, err := fs.ReadDir(migrations, path.Join("migrations", dialect))
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// SplitStatements splits a migration file on ';' at line ends.  The MySQL
// driver runs one statement per Exec.
func SplitStatements(src string) []string {
	var out []string
	for _, part := range strings.Split(src, ";\n") {
		stmt := strings.TrimSuffix(strings.TrimSpace(part), ";")
		if stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}
