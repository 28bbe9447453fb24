// Package database provides *postgres.Client construction for integration
// tests, layered on test/util's shared testcontainer and per-test schema
// isolation.
package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/papergraph/paperd/pkg/graphstore/postgres"
	"github.com/papergraph/paperd/test/util"
)

// NewTestClient opens a *postgres.Client against a fresh schema on the
// shared test container (or CI_DATABASE_URL). Migrations run automatically
// as part of NewClient. The pool is closed via t.Cleanup.
func NewTestClient(t *testing.T) *postgres.Client {
	t.Helper()
	ctx := context.Background()

	dsn := util.SetupTestSchema(t)
	client, err := postgres.NewClient(ctx, postgres.Config{DSN: dsn})
	require.NoError(t, err)

	t.Cleanup(client.Close)
	return client
}
