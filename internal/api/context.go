package api

import (
	"context"

	"github.com/campusgrid/degree-planner/internal/models"
)

type contextKey string

const clientContextKey contextKey = "planner_api_client"

// ClientFromContext returns the authenticated API client, or nil when
// the request did not pass through Authenticate.
func ClientFromContext(ctx context.Context) *models.ApiClient {
	client, ok := ctx.Value(clientContextKey).(*models.ApiClient)
	if !ok {
		return nil
	}
	return client
}

// ContextWithClient records the authenticated API client on the
// request context for downstream handlers.
func ContextWithClient(ctx context.Context, client *models.ApiClient) context.Context {
	return context.WithValue(ctx, clientContextKey, client)
}
