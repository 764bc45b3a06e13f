package db

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const migrationsLogPrefix = "db:migrations"

// Migration is one schema version loaded from NNN_name.up.sql and an optional
// NNN_name.down.sql.
type Migration struct {
	Version int
	Name    string
	Up      string
	Down    string
}

// MigrationState lists applied and pending migration versions in order.
type MigrationState struct {
	Applied []int `json:"applied"`
	Pending []int `json:"pending"`
}

var migrationFileRegex = regexp.MustCompile(`^(\d+)_([A-Za-z0-9_]+)\.(up|down)\.sql$`)

const createMigrationTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
	version    INTEGER     PRIMARY KEY,
	name       TEXT        NOT NULL,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// parseMigrationFileName splits "001_intent_providers.up.sql" into its
// version, name and direction.
func parseMigrationFileName(name string) (version int, base, direction string, ok bool) {
	m := migrationFileRegex.FindStringSubmatch(name)
	if m == nil {
		return 0, "", "", false
	}
	v, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, "", "", false
	}
	return v, m[2], m[3], true
}

// LoadMigrations reads the migrations in dir ordered by version. Every version
// needs an up file; the down file is optional. Other .sql files are an error so
// a misnamed migration is never silently skipped.
func LoadMigrations(dir string) ([]Migration, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to read migration dir %s: %w", migrationsLogPrefix, dir, err)
	}

	byVersion := make(map[int]*Migration)
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".sql" {
			continue
		}
		version, base, direction, ok := parseMigrationFileName(e.Name())
		if !ok {
			return nil, fmt.Errorf("%s - %s: want NNN_name.up.sql or NNN_name.down.sql", migrationsLogPrefix, e.Name())
		}

		m, exists := byVersion[version]
		if !exists {
			m = &Migration{Version: version, Name: base}
			byVersion[version] = m
		} else if m.Name != base {
			return nil, fmt.Errorf("%s - version %d used by %q and %q", migrationsLogPrefix, version, m.Name, base)
		}

		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%s - failed to read %s: %w", migrationsLogPrefix, path, err)
		}
		if direction == "up" {
			m.Up = string(data)
		} else {
			m.Down = string(data)
		}
	}

	out := make([]Migration, 0, len(byVersion))
	for _, m := range byVersion {
		if strings.TrimSpace(m.Up) == "" {
			return nil, fmt.Errorf("%s - migration %03d_%s has no up script", migrationsLogPrefix, m.Version, m.Name)
		}
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })

	slog.Info(fmt.Sprintf("%s - Loaded %d migrations from %s", migrationsLogPrefix, len(out), dir))
	return out, nil
}

// pendingMigrations returns the migrations whose version is not applied, in order.
func pendingMigrations(all []Migration, applied map[int]bool) []Migration {
	var out []Migration
	for _, m := range all {
		if !applied[m.Version] {
			out = append(out, m)
		}
	}
	return out
}

func findMigration(all []Migration, version int) (Migration, bool) {
	for _, m := range all {
		if m.Version == version {
			return m, true
		}
	}
	return Migration{}, false
}

func appliedVersions(ctx context.Context, pool *pgxpool.Pool) (map[int]bool, error) {
	if _, err := pool.Exec(ctx, createMigrationTable); err != nil {
		return nil, fmt.Errorf("%s - create schema_migrations: %w", migrationsLogPrefix, err)
	}
	rows, err := pool.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("%s - query schema_migrations: %w", migrationsLogPrefix, err)
	}
	versions, err := pgx.CollectRows(rows, pgx.RowTo[int])
	if err != nil {
		return nil, fmt.Errorf("%s - scan schema_migrations: %w", migrationsLogPrefix, err)
	}
	out := make(map[int]bool, len(versions))
	for _, v := range versions {
		out[v] = true
	}
	return out, nil
}

// RunMigrations applies every pending migration, each in its own transaction
// together with its schema_migrations row.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, migrations []Migration) error {
	applied, err := appliedVersions(ctx, pool)
	if err != nil {
		return err
	}
	pending := pendingMigrations(migrations, applied)
	slog.Info(fmt.Sprintf("%s - %d of %d migrations pending", migrationsLogPrefix, len(pending), len(migrations)))

	for _, m := range pending {
		err := pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, m.Up); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`, m.Version, m.Name)
			return err
		})
		if err != nil {
			return fmt.Errorf("%s - migration %03d_%s failed: %w", migrationsLogPrefix, m.Version, m.Name, err)
		}
		slog.Info(fmt.Sprintf("%s - Applied %03d_%s", migrationsLogPrefix, m.Version, m.Name))
	}
	return nil
}

// MigrationStatus compares the migrations in migrationPath with schema_migrations.
func MigrationStatus(ctx context.Context, pool *pgxpool.Pool, migrationPath string) (*MigrationState, error) {
	all, err := LoadMigrations(migrationPath)
	if err != nil {
		return nil, err
	}
	applied, err := appliedVersions(ctx, pool)
	if err != nil {
		return nil, err
	}

	state := &MigrationState{Applied: []int{}, Pending: []int{}}
	for _, m := range all {
		if applied[m.Version] {
			state.Applied = append(state.Applied, m.Version)
		} else {
			state.Pending = append(state.Pending, m.Version)
		}
	}
	return state, nil
}

// MigrationDown rolls back the highest applied migration and returns its
// version, or 0 when nothing is applied.
func MigrationDown(ctx context.Context, pool *pgxpool.Pool, migrationPath string) (int, error) {
	all, err := LoadMigrations(migrationPath)
	if err != nil {
		return 0, err
	}
	if _, err := appliedVersions(ctx, pool); err != nil {
		return 0, err
	}

	var version int
	err = pool.QueryRow(ctx, `SELECT version FROM schema_migrations ORDER BY version DESC LIMIT 1`).Scan(&version)
	if err == pgx.ErrNoRows {
		slog.Info(fmt.Sprintf("%s - No applied migrations to roll back", migrationsLogPrefix))
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%s - query last migration: %w", migrationsLogPrefix, err)
	}

	m, ok := findMigration(all, version)
	if !ok {
		return 0, fmt.Errorf("%s - applied migration %d not found in %s", migrationsLogPrefix, version, migrationPath)
	}
	if strings.TrimSpace(m.Down) == "" {
		return 0, fmt.Errorf("%s - migration %03d_%s has no down script", migrationsLogPrefix, m.Version, m.Name)
	}

	err = pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, m.Down); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `DELETE FROM schema_migrations WHERE version = $1`, m.Version)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("%s - rollback %03d_%s failed: %w", migrationsLogPrefix, m.Version, m.Name, err)
	}
	slog.Info(fmt.Sprintf("%s - Rolled back %03d_%s", migrationsLogPrefix, m.Version, m.Name))
	return m.Version, nil
}
