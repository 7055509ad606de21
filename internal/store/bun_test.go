package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wte-api-server/internal/database"
	"wte-api-server/internal/models"
	"wte-api-server/internal/store"
)

func newSQLiteStore(t *testing.T) *store.BunStore {
	t.Helper()
	s, err := database.OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

var baseTime = time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

func addReport(t *testing.T, s *store.BunStore, siteID int64, status models.Status, createdAt time.Time) *models.WasteReport {
	t.Helper()
	report := &models.WasteReport{
		SiteID:       siteID,
		WasteType:    "Cassava Peels",
		Quantity:     50.5,
		Unit:         "kg",
		ContactName:  "John Doe",
		ContactPhone: "+1234567890",
		Status:       status,
		CreatedAt:    createdAt,
	}
	require.NoError(t, s.CreateReport(context.Background(), report))
	require.NotZero(t, report.ID)
	return report
}

func TestUsers(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	_, err := s.FindUserByEmail(ctx, "admin@wte.com")
	assert.ErrorIs(t, err, store.ErrNotFound)

	user := &models.AdminUser{Email: "admin@wte.com", PasswordHash: "hash"}
	require.NoError(t, s.CreateUser(ctx, user))
	assert.NotZero(t, user.ID)

	found, err := s.FindUserByEmail(ctx, "admin@wte.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)
	assert.Equal(t, "hash", found.PasswordHash)

	err = s.CreateUser(ctx, &models.AdminUser{Email: "admin@wte.com", PasswordHash: "other"})
	assert.ErrorIs(t, err, store.ErrDuplicate)
}

func TestSites(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	first, err := s.EnsureSite(ctx, "Cassava Processing Site")
	require.NoError(t, err)
	again, err := s.EnsureSite(ctx, "Cassava Processing Site")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID, "EnsureSite is idempotent")

	_, err = s.EnsureSite(ctx, "Livestock Farm Site")
	require.NoError(t, err)

	sites, err := s.ListSites(ctx)
	require.NoError(t, err)
	require.Len(t, sites, 2)
	assert.Equal(t, "Cassava Processing Site", sites[0].Name)
	assert.Equal(t, "Livestock Farm Site", sites[1].Name)

	_, err = s.FindSite(ctx, 999)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestReportRequiresExistingSite(t *testing.T) {
	s := newSQLiteStore(t)

	err := s.CreateReport(context.Background(), &models.WasteReport{
		SiteID:       42,
		WasteType:    "Animal Waste",
		Quantity:     1,
		Unit:         "kg",
		ContactName:  "Jane",
		ContactPhone: "1",
		Status:       models.StatusReported,
		CreatedAt:    baseTime,
	})
	assert.Error(t, err)
}

func TestFindReportJoinsSite(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	site, err := s.EnsureSite(ctx, "Cassava Processing Site")
	require.NoError(t, err)
	created := addReport(t, s, site.ID, models.StatusReported, baseTime)

	report, err := s.FindReport(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReported, report.Status)
	assert.Equal(t, 50.5, report.Quantity)
	assert.True(t, baseTime.Equal(report.CreatedAt))
	require.NotNil(t, report.Site)
	assert.Equal(t, site.ID, report.Site.ID)
	assert.Equal(t, "Cassava Processing Site", report.Site.Name)

	_, err = s.FindReport(ctx, created.ID+100)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestListReportsOrdering(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	site, err := s.EnsureSite(ctx, "Cassava Processing Site")
	require.NoError(t, err)

	oldReported := addReport(t, s, site.ID, models.StatusReported, baseTime)
	collected := addReport(t, s, site.ID, models.StatusCollected, baseTime.Add(time.Hour))
	enRoute := addReport(t, s, site.ID, models.StatusEnRoute, baseTime.Add(2*time.Hour))
	newReported := addReport(t, s, site.ID, models.StatusReported, baseTime.Add(3*time.Hour))
	tieReported := addReport(t, s, site.ID, models.StatusReported, baseTime.Add(3*time.Hour))

	all, err := s.ListReports(ctx, models.ReportFilter{})
	require.NoError(t, err)

	var ids []int64
	for _, r := range all {
		ids = append(ids, r.ID)
		require.NotNil(t, r.Site)
	}
	// Status ascending (lexical), newest first within a status, id breaks ties.
	assert.Equal(t, []int64{
		collected.ID,
		enRoute.ID,
		tieReported.ID,
		newReported.ID,
		oldReported.ID,
	}, ids)

	reported, err := s.ListReports(ctx, models.ReportFilter{Status: models.StatusReported})
	require.NoError(t, err)
	require.Len(t, reported, 3)
	for _, r := range reported {
		assert.Equal(t, models.StatusReported, r.Status)
	}

	empty := newSQLiteStore(t)
	none, err := empty.ListReports(ctx, models.ReportFilter{})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestUpdateReportStatusIsConditional(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	site, err := s.EnsureSite(ctx, "Cassava Processing Site")
	require.NoError(t, err)
	report := addReport(t, s, site.ID, models.StatusReported, baseTime)

	require.NoError(t, s.UpdateReportStatus(ctx, report.ID, models.StatusReported, models.StatusEnRoute))

	err = s.UpdateReportStatus(ctx, report.ID, models.StatusReported, models.StatusEnRoute)
	assert.ErrorIs(t, err, store.ErrStatusMismatch, "a stale from status loses")

	err = s.UpdateReportStatus(ctx, report.ID+100, models.StatusReported, models.StatusEnRoute)
	assert.ErrorIs(t, err, store.ErrNotFound)

	stored, err := s.FindReport(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusEnRoute, stored.Status)
}

func TestUpdateReportPhoto(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	site, err := s.EnsureSite(ctx, "Cassava Processing Site")
	require.NoError(t, err)
	report := addReport(t, s, site.ID, models.StatusReported, baseTime)

	require.NoError(t, s.UpdateReportPhoto(ctx, report.ID, "https://cdn.example.com/p.jpg"))
	stored, err := s.FindReport(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/p.jpg", stored.PhotoURL)

	err = s.UpdateReportPhoto(ctx, report.ID+100, "x")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCountReportsByStatus(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	summary, err := s.CountReportsByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSummary{}, summary)

	site, err := s.EnsureSite(ctx, "Cassava Processing Site")
	require.NoError(t, err)
	addReport(t, s, site.ID, models.StatusReported, baseTime)
	addReport(t, s, site.ID, models.StatusReported, baseTime)
	addReport(t, s, site.ID, models.StatusEnRoute, baseTime)
	addReport(t, s, site.ID, models.StatusCollected, baseTime)

	summary, err = s.CountReportsByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSummary{Reported: 2, EnRoute: 1, Collected: 1, Total: 4}, summary)
}

func TestPing(t *testing.T) {
	s := newSQLiteStore(t)
	assert.NoError(t, s.Ping(context.Background()))
}
