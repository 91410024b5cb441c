//go:build integration

package data

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

func TestPostgresFeedback(t *testing.T) {
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()

	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("admitguide"),
		postgres.WithUsername("admitguide"),
		postgres.WithPassword("admitguide"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := Open(ctx, dsn)
	require.NoError(t, err)
	defer db.Close()
	assert.Equal(t, driverPostgres, db.Driver())

	// second open must not fail on existing schema
	again, err := Open(ctx, dsn)
	require.NoError(t, err)
	require.NoError(t, again.Close())

	v, err := db.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	require.NoError(t, SaveFeedback(ctx, db, &Feedback{ID: "pg-1", Endpoint: "evaluate", Message: "works"}))

	list, err := ListFeedback(ctx, db, 5)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "pg-1", list[0].ID)
	assert.Equal(t, "evaluate", list[0].Endpoint)
}
