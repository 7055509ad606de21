package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wte-api-server/config"
	"wte-api-server/internal/auth"
	"wte-api-server/internal/models"
	"wte-api-server/internal/reports"
)

func TestSeedDemoData(t *testing.T) {
	ctx := context.Background()
	st, err := OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	tokens, err := auth.NewTokenService([]byte("seed-test-secret"))
	require.NoError(t, err)
	authService := auth.NewService(st, tokens)
	reportService := reports.NewService(st)

	opts := SeedOptions{AdminEmail: "admin@wte.com", AdminPassword: "admin123", Samples: true}

	result, err := SeedDemoData(ctx, st, authService, reportService, opts)
	require.NoError(t, err)

	require.Len(t, result.Sites, 2)
	assert.Equal(t, "Cassava Processing Site", result.Sites[0].Name)
	assert.Equal(t, "Livestock Farm Site", result.Sites[1].Name)
	assert.True(t, result.AdminCreated)
	require.Len(t, result.Reports, 2)
	assert.Equal(t, models.StatusReported, result.Reports[0].Status)
	assert.Equal(t, models.StatusEnRoute, result.Reports[1].Status)

	_, err = authService.Login(ctx, "admin@wte.com", "admin123")
	assert.NoError(t, err)

	// A second run changes nothing.
	again, err := SeedDemoData(ctx, st, authService, reportService, opts)
	require.NoError(t, err)
	assert.False(t, again.AdminCreated)
	assert.Empty(t, again.Reports)
	assert.Equal(t, result.Sites, again.Sites)

	sites, err := st.ListSites(ctx)
	require.NoError(t, err)
	assert.Len(t, sites, 2)

	summary, err := st.CountReportsByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Total)
}

func TestSeedWithoutAdmin(t *testing.T) {
	ctx := context.Background()
	st, err := OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	result, err := SeedDemoData(ctx, st, auth.NewService(st, nil), reports.NewService(st), SeedOptions{})
	require.NoError(t, err)
	assert.Len(t, result.Sites, 2)
	assert.False(t, result.AdminCreated)
	assert.Empty(t, result.Reports)
}

func TestSeedWithoutTokenSigner(t *testing.T) {
	ctx := context.Background()
	st, err := OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	opts := SeedOptions{AdminEmail: "admin@wte.com", AdminPassword: "admin123"}
	result, err := SeedDemoData(ctx, st, auth.NewService(st, nil), reports.NewService(st), opts)
	require.NoError(t, err)
	assert.True(t, result.AdminCreated)

	user, err := st.FindUserByEmail(ctx, "admin@wte.com")
	require.NoError(t, err)
	assert.True(t, auth.CheckPasswordHash("admin123", user.PasswordHash))
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.Config{Database: config.DatabaseConfig{Driver: "oracle"}})
	assert.ErrorContains(t, err, "unknown database driver")
}

func TestOpenSQLiteFromConfig(t *testing.T) {
	st, err := Open(context.Background(), config.Config{
		Database: config.DatabaseConfig{Driver: config.DriverSQLite, DSN: ":memory:"},
	})
	require.NoError(t, err)
	defer st.Close()

	assert.NoError(t, st.Ping(context.Background()))
}
