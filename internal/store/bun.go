package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"

	"wte-api-server/internal/models"
)

// BunStore implements Store on a relational database through bun.
type BunStore struct {
	db *bun.DB
}

var _ Store = (*BunStore)(nil)

// NewBunStore wraps an opened bun database.
func NewBunStore(db *bun.DB) *BunStore {
	return &BunStore{db: db}
}

// DB exposes the underlying bun handle.
func (s *BunStore) DB() *bun.DB {
	return s.db
}

// CreateSchema creates the tables when missing.
func (s *BunStore) CreateSchema(ctx context.Context) error {
	tables := []struct {
		model any
		fk    string
	}{
		{model: (*models.AdminUser)(nil)},
		{model: (*models.Site)(nil)},
		{model: (*models.WasteReport)(nil), fk: `("site_id") REFERENCES "sites" ("id")`},
	}

	for _, t := range tables {
		q := s.db.NewCreateTable().Model(t.model).IfNotExists()
		if t.fk != "" {
			q = q.ForeignKey(t.fk)
		}
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	_, err := s.db.NewCreateIndex().
		Model((*models.WasteReport)(nil)).
		Index("waste_reports_status_created_at_idx").
		IfNotExists().
		Column("status", "created_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create report index: %w", err)
	}
	return nil
}

func (s *BunStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *BunStore) Close() error {
	return s.db.Close()
}

// --- Users ---

func (s *BunStore) CreateUser(ctx context.Context, user *models.AdminUser) error {
	if _, err := s.db.NewInsert().Model(user).Exec(ctx); err != nil {
		return mapBunError(err)
	}
	return nil
}

func (s *BunStore) FindUserByEmail(ctx context.Context, email string) (*models.AdminUser, error) {
	user := new(models.AdminUser)
	err := s.db.NewSelect().Model(user).Where("au.email = ?", email).Limit(1).Scan(ctx)
	if err != nil {
		return nil, mapBunError(err)
	}
	return user, nil
}

// --- Sites ---

func (s *BunStore) ListSites(ctx context.Context) ([]models.Site, error) {
	sites := []models.Site{}
	if err := s.db.NewSelect().Model(&sites).OrderExpr("s.id ASC").Scan(ctx); err != nil {
		return nil, mapBunError(err)
	}
	return sites, nil
}

func (s *BunStore) FindSite(ctx context.Context, id int64) (*models.Site, error) {
	site := new(models.Site)
	if err := s.db.NewSelect().Model(site).Where("s.id = ?", id).Scan(ctx); err != nil {
		return nil, mapBunError(err)
	}
	return site, nil
}

func (s *BunStore) EnsureSite(ctx context.Context, name string) (*models.Site, error) {
	site := new(models.Site)
	err := s.db.NewSelect().Model(site).Where("s.name = ?", name).Scan(ctx)
	if err == nil {
		return site, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, mapBunError(err)
	}

	site = &models.Site{Name: name}
	if _, err := s.db.NewInsert().Model(site).Exec(ctx); err != nil {
		return nil, mapBunError(err)
	}
	return site, nil
}

// --- Reports ---

func (s *BunStore) CreateReport(ctx context.Context, report *models.WasteReport) error {
	if _, err := s.db.NewInsert().Model(report).Exec(ctx); err != nil {
		return mapBunError(err)
	}
	return nil
}

func (s *BunStore) FindReport(ctx context.Context, id int64) (*models.WasteReport, error) {
	report := new(models.WasteReport)
	err := s.db.NewSelect().
		Model(report).
		Relation("Site").
		Where("wr.id = ?", id).
		Scan(ctx)
	if err != nil {
		return nil, mapBunError(err)
	}
	return report, nil
}

func (s *BunStore) ListReports(ctx context.Context, filter models.ReportFilter) ([]models.WasteReport, error) {
	reports := []models.WasteReport{}
	q := s.db.NewSelect().
		Model(&reports).
		Relation("Site").
		OrderExpr("wr.status ASC, wr.created_at DESC, wr.id DESC")
	if filter.Status != "" {
		q = q.Where("wr.status = ?", filter.Status)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, mapBunError(err)
	}
	return reports, nil
}

func (s *BunStore) UpdateReportStatus(ctx context.Context, id int64, from, to models.Status) error {
	res, err := s.db.NewUpdate().
		Model((*models.WasteReport)(nil)).
		Set("status = ?", to).
		Where("id = ?", id).
		Where("status = ?", from).
		Exec(ctx)
	if err != nil {
		return mapBunError(err)
	}
	return s.checkAffected(ctx, res, id, ErrStatusMismatch)
}

func (s *BunStore) UpdateReportPhoto(ctx context.Context, id int64, url string) error {
	res, err := s.db.NewUpdate().
		Model((*models.WasteReport)(nil)).
		Set("photo_url = ?", url).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return mapBunError(err)
	}
	return s.checkAffected(ctx, res, id, ErrNotFound)
}

func (s *BunStore) CountReportsByStatus(ctx context.Context) (models.StatusSummary, error) {
	var rows []struct {
		Status models.Status `bun:"status"`
		Count  int           `bun:"count"`
	}
	var summary models.StatusSummary

	err := s.db.NewSelect().
		Model((*models.WasteReport)(nil)).
		ColumnExpr("wr.status AS status").
		ColumnExpr("COUNT(*) AS count").
		GroupExpr("wr.status").
		Scan(ctx, &rows)
	if err != nil {
		return summary, mapBunError(err)
	}
	for _, row := range rows {
		summary.Add(row.Status, row.Count)
	}
	return summary, nil
}

// checkAffected turns a zero-row update into ErrNotFound when the report is
// gone, and into whenExists otherwise.
func (s *BunStore) checkAffected(ctx context.Context, res sql.Result, id int64, whenExists error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	exists, err := s.db.NewSelect().Model((*models.WasteReport)(nil)).Where("wr.id = ?", id).Exists(ctx)
	if err != nil {
		return mapBunError(err)
	}
	if !exists {
		return ErrNotFound
	}
	return whenExists
}

func mapBunError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) && pgErr.Field('C') == "23505" {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}
