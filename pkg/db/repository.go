package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const repoLogPrefix = "db:repository"

const providerColumns = `category, action, module_identity, module_id, module_version, module_url,
	type, view_id, view, path, method, registered_at, revision`

// Repository provides database access for the intent provider mirror.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// UpsertProvider inserts or refreshes a provider row. Re-registering the same
// key after a restart bumps its revision.
func (r *Repository) UpsertProvider(ctx context.Context, p *IntentProvider) (*IntentProvider, error) {
	slog.Debug(fmt.Sprintf("%s - UpsertProvider %s/%s module=%s", repoLogPrefix, p.Category, p.Action, p.ModuleIdentity))

	registeredAt := p.RegisteredAt
	if registeredAt.IsZero() {
		registeredAt = time.Now().UTC()
	}

	row := r.pool.QueryRow(ctx,
		`INSERT INTO intent_providers (category, action, module_identity, module_id, module_version, module_url,
		                               type, view_id, view, path, method, registered_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (category, action, module_identity) DO UPDATE SET
		   module_id = EXCLUDED.module_id,
		   module_version = EXCLUDED.module_version,
		   module_url = EXCLUDED.module_url,
		   type = EXCLUDED.type,
		   view_id = EXCLUDED.view_id,
		   view = EXCLUDED.view,
		   path = EXCLUDED.path,
		   method = EXCLUDED.method,
		   registered_at = EXCLUDED.registered_at,
		   revision = intent_providers.revision + 1
		 RETURNING `+providerColumns,
		p.Category, p.Action, p.ModuleIdentity, p.ModuleID, p.ModuleVersion, p.ModuleURL,
		p.Type, p.ViewID, p.View, p.Path, p.Method, registeredAt)

	out, err := scanProvider(row)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("%s - UpsertProvider returned no row", repoLogPrefix)
	}
	return out, nil
}

// ListProviders lists provider rows ordered by category, action and module identity.
func (r *Repository) ListProviders(ctx context.Context, params ListProvidersParams) ([]IntentProvider, error) {
	query := `SELECT ` + providerColumns + ` FROM intent_providers WHERE 1=1`
	args := []interface{}{}
	argIdx := 1

	if params.Category != "" {
		query += fmt.Sprintf(` AND category = $%d`, argIdx)
		args = append(args, params.Category)
		argIdx++
	}
	if params.Action != "" {
		query += fmt.Sprintf(` AND action = $%d`, argIdx)
		args = append(args, params.Action)
		argIdx++
	}
	if params.ModuleID != "" {
		query += fmt.Sprintf(` AND module_id = $%d`, argIdx)
		args = append(args, params.ModuleID)
		argIdx++
	}
	query += ` ORDER BY category, action, module_identity`
	if params.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, argIdx)
		args = append(args, params.Limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s - ListProviders query failed: %w", repoLogPrefix, err)
	}
	defer rows.Close()

	var out []IntentProvider
	for rows.Next() {
		p, err := scanProviderFromRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s - ListProviders rows failed: %w", repoLogPrefix, err)
	}
	return out, nil
}

// CountProviders returns the number of mirrored providers.
func (r *Repository) CountProviders(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*)::int FROM intent_providers`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%s - CountProviders failed: %w", repoLogPrefix, err)
	}
	return n, nil
}

func scanProvider(row pgx.Row) (*IntentProvider, error) {
	var p IntentProvider
	err := row.Scan(
		&p.Category, &p.Action, &p.ModuleIdentity, &p.ModuleID, &p.ModuleVersion, &p.ModuleURL,
		&p.Type, &p.ViewID, &p.View, &p.Path, &p.Method, &p.RegisteredAt, &p.Revision,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s - scan provider failed: %w", repoLogPrefix, err)
	}
	return &p, nil
}

func scanProviderFromRows(rows pgx.Rows) (*IntentProvider, error) {
	var p IntentProvider
	err := rows.Scan(
		&p.Category, &p.Action, &p.ModuleIdentity, &p.ModuleID, &p.ModuleVersion, &p.ModuleURL,
		&p.Type, &p.ViewID, &p.View, &p.Path, &p.Method, &p.RegisteredAt, &p.Revision,
	)
	if err != nil {
		return nil, fmt.Errorf("%s - scan provider from rows failed: %w", repoLogPrefix, err)
	}
	return &p, nil
}
