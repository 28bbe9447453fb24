package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/papergraph/paperd/pkg/graphstore/postgres"
	"github.com/papergraph/paperd/test/util"
)

// SharedTestDB is one schema shared by several independent *postgres.Client
// pools, for tests that exercise multi-pod behavior (e.g. ClaimNextPendingJob
// contention between worker pool replicas) against a single set of tables.
type SharedTestDB struct {
	dsn string
}

// NewSharedTestDB creates the schema and runs migrations once via an
// initial client, then hands out independent clients against it.
func NewSharedTestDB(t *testing.T) *SharedTestDB {
	t.Helper()
	ctx := context.Background()

	dsn := util.SetupTestSchema(t)

	// Run migrations once; this client is only used to apply them.
	bootstrap, err := postgres.NewClient(ctx, postgres.Config{DSN: dsn})
	require.NoError(t, err)
	bootstrap.Close()

	return &SharedTestDB{dsn: dsn}
}

// NewClient builds an independent *postgres.Client pointed at the shared
// schema. Each replica gets its own pool so they can be closed
// independently without racing each other. Closed via t.Cleanup.
func (s *SharedTestDB) NewClient(t *testing.T) *postgres.Client {
	t.Helper()
	client, err := postgres.NewClient(context.Background(), postgres.Config{DSN: s.dsn})
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client
}
