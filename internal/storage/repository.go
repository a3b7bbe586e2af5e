package storage

import (
	"context"

	"github.com/campusgrid/degree-planner/internal/models"
)

// Repository is the persistence sink for finalized plans plus the API
// client table backing authentication. Not-found lookups return
// (nil, nil); errors are reserved for storage faults.
type Repository interface {
	// Plans
	SavePlan(ctx context.Context, plan *models.Plan) error
	GetPlan(ctx context.Context, id string) (*models.Plan, error)
	ListPlans(ctx context.Context, ownerID, programCode string) ([]*models.Plan, error)
	DeletePlan(ctx context.Context, id string) error

	// API clients
	GetClientByApiKey(ctx context.Context, apiKey string) (*models.ApiClient, error)
	UpdateClientLastUsed(ctx context.Context, apiKey string) error

	// Lifecycle
	Ping(ctx context.Context) error
	Close() error
}
