package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strings"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type migration struct {
	Name string
	SQL  string
}

// RunMigrations applies every embedded migration not yet recorded in _migrations,
// in file name order, and returns the names it applied.
func RunMigrations(ctx context.Context, db *DB, log *slog.Logger) ([]string, error) {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS _migrations (
			name       TEXT PRIMARY KEY,
			applied_at INTEGER NOT NULL
		)
	`); err != nil {
		return nil, fmt.Errorf("creating migrations table: %w", err)
	}

	applied, err := appliedMigrations(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("getting applied migrations: %w", err)
	}

	pending, err := embeddedMigrations()
	if err != nil {
		return nil, fmt.Errorf("reading migration files: %w", err)
	}

	var names []string
	for _, m := range pending {
		if applied[m.Name] {
			continue
		}

		err := db.Transaction(func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
				return fmt.Errorf("executing SQL: %w", err)
			}
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO _migrations (name, applied_at) VALUES (?, strftime('%s', 'now') * 1000)", m.Name,
			); err != nil {
				return fmt.Errorf("recording migration: %w", err)
			}
			return nil
		})
		if err != nil {
			return names, fmt.Errorf("applying migration %s: %w", m.Name, err)
		}

		log.Info("migration applied", "name", m.Name)
		names = append(names, m.Name)
	}

	return names, nil
}

func appliedMigrations(ctx context.Context, q Queryable) (map[string]bool, error) {
	rows, err := q.QueryContext(ctx, "SELECT name FROM _migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		applied[name] = true
	}

	return applied, rows.Err()
}

func embeddedMigrations() ([]migration, error) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return nil, err
	}

	var migrations []migration
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		content, err := migrationsFS.ReadFile(path.Join("migrations", e.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", e.Name(), err)
		}
		migrations = append(migrations, migration{Name: e.Name(), SQL: string(content)})
	}

	// Numeric prefixes keep lexical order equal to apply order.
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Name < migrations[j].Name
	})

	return migrations, nil
}
