package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campusgrid/degree-planner/internal/models"
)

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	DSN          string
	MaxOpenConns int32
	MaxIdleConns int32
	MaxLifetime  time.Duration
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(ctx context.Context, cfg PostgresConfig) (*PostgresRepository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = cfg.MaxOpenConns
	} else {
		poolConfig.MaxConns = 25
	}

	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = cfg.MaxIdleConns
	} else {
		poolConfig.MinConns = 5
	}

	if cfg.MaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxLifetime
	} else {
		poolConfig.MaxConnLifetime = 30 * time.Minute
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

// Ping checks database connectivity
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the database connection pool
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// SavePlan inserts a new plan or replaces an existing one by id. A plan
// arriving without an id is assigned one.
func (r *PostgresRepository) SavePlan(ctx context.Context, plan *models.Plan) error {
	if plan.ID == "" {
		plan.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = now
	}
	plan.UpdatedAt = now

	periodsJSON, err := json.Marshal(plan.Periods)
	if err != nil {
		return fmt.Errorf("failed to marshal periods: %w", err)
	}

	query := `
		INSERT INTO plans (id, name, owner_id, program_code, catalog, periods, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, periods = EXCLUDED.periods, updated_at = EXCLUDED.updated_at
	`

	_, err = r.pool.Exec(ctx, query,
		plan.ID,
		plan.Name,
		plan.OwnerID,
		plan.ProgramCode,
		plan.Catalog,
		periodsJSON,
		plan.CreatedAt,
		plan.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save plan: %w", err)
	}

	return nil
}

// GetPlan retrieves a plan by ID
func (r *PostgresRepository) GetPlan(ctx context.Context, id string) (*models.Plan, error) {
	query := `
		SELECT id, name, owner_id, program_code, catalog, periods, created_at, updated_at
		FROM plans
		WHERE id = $1
	`

	plan, err := scanPlan(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	return plan, nil
}

// ListPlans retrieves plans for an owner, optionally filtered by program
func (r *PostgresRepository) ListPlans(ctx context.Context, ownerID, programCode string) ([]*models.Plan, error) {
	query := `
		SELECT id, name, owner_id, program_code, catalog, periods, created_at, updated_at
		FROM plans
		WHERE owner_id = $1 AND ($2 = '' OR program_code = $2)
		ORDER BY updated_at DESC
	`

	rows, err := r.pool.Query(ctx, query, ownerID, programCode)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	defer rows.Close()

	var plans []*models.Plan
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}
		plans = append(plans, plan)
	}

	return plans, rows.Err()
}

// DeletePlan removes a plan by ID
func (r *PostgresRepository) DeletePlan(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM plans WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete plan: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlan(row rowScanner) (*models.Plan, error) {
	var plan models.Plan
	var periodsJSON []byte

	err := row.Scan(
		&plan.ID,
		&plan.Name,
		&plan.OwnerID,
		&plan.ProgramCode,
		&plan.Catalog,
		&periodsJSON,
		&plan.CreatedAt,
		&plan.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(periodsJSON, &plan.Periods); err != nil {
		return nil, fmt.Errorf("failed to unmarshal periods: %w", err)
	}
	return &plan, nil
}

// GetClientByApiKey retrieves an active-or-not API client by key
func (r *PostgresRepository) GetClientByApiKey(ctx context.Context, apiKey string) (*models.ApiClient, error) {
	query := `
		SELECT id, name, api_key, is_active, created_at, last_used_at, permissions, metadata
		FROM api_clients
		WHERE api_key = $1
	`

	var client models.ApiClient
	var lastUsed *time.Time
	var metadataJSON []byte

	err := r.pool.QueryRow(ctx, query, apiKey).Scan(
		&client.ID,
		&client.Name,
		&client.ApiKey,
		&client.IsActive,
		&client.CreatedAt,
		&lastUsed,
		&client.Permissions,
		&metadataJSON,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get api client: %w", err)
	}

	client.LastUsedAt = lastUsed
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &client.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal client metadata: %w", err)
		}
	}

	return &client, nil
}

// UpdateClientLastUsed stamps the client's last_used_at
func (r *PostgresRepository) UpdateClientLastUsed(ctx context.Context, apiKey string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE api_clients SET last_used_at = NOW() WHERE api_key = $1`,
		apiKey,
	)
	return err
}
