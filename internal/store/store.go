// Package store persists admins, sites and waste reports. BunStore speaks to
// Postgres or SQLite through bun; MongoStore keeps the same data in MongoDB.
package store

import (
	"context"
	"errors"

	"wte-api-server/internal/models"
)

var (
	// ErrNotFound is returned when no row or document matches.
	ErrNotFound = errors.New("store: not found")
	// ErrDuplicate is returned when a unique constraint would be violated.
	ErrDuplicate = errors.New("store: duplicate")
	// ErrStatusMismatch is returned by UpdateReportStatus when the report is no
	// longer in the expected status.
	ErrStatusMismatch = errors.New("store: status changed concurrently")
)

// Users persists admin identities.
type Users interface {
	CreateUser(ctx context.Context, user *models.AdminUser) error
	FindUserByEmail(ctx context.Context, email string) (*models.AdminUser, error)
}

// Sites reads reference sites. EnsureSite is used by seeding only.
type Sites interface {
	ListSites(ctx context.Context) ([]models.Site, error)
	FindSite(ctx context.Context, id int64) (*models.Site, error)
	EnsureSite(ctx context.Context, name string) (*models.Site, error)
}

// Reports persists waste reports. Read methods return reports joined with
// their site.
type Reports interface {
	CreateReport(ctx context.Context, report *models.WasteReport) error
	FindReport(ctx context.Context, id int64) (*models.WasteReport, error)
	ListReports(ctx context.Context, filter models.ReportFilter) ([]models.WasteReport, error)
	// UpdateReportStatus moves the report to `to` only if it is still in `from`.
	UpdateReportStatus(ctx context.Context, id int64, from, to models.Status) error
	UpdateReportPhoto(ctx context.Context, id int64, url string) error
	CountReportsByStatus(ctx context.Context) (models.StatusSummary, error)
}

// Store is the full persistence surface used by the API.
type Store interface {
	Users
	Sites
	Reports
	Ping(ctx context.Context) error
	Close() error
}
