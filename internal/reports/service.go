// Package reports implements waste report submission, review and the status
// transitions administrators apply to them.
package reports

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"

	"wte-api-server/internal/models"
	"wte-api-server/internal/store"
	"wte-api-server/internal/workflow"
)

// Events published after successful writes.
const (
	EventReportCreated       = "report.created"
	EventReportStatusChanged = "report.status_changed"
)

// ErrReportNotFound is returned for an unknown report id.
var ErrReportNotFound = goerrors.New("Waste report not found", goerrors.CategoryNotFound).
	WithTextCode("REPORT_NOT_FOUND").
	WithCode(goerrors.CodeNotFound)

// ErrUnknownSite is returned when a submission names a missing site.
var ErrUnknownSite = goerrors.New("site does not exist", goerrors.CategoryValidation).
	WithTextCode("UNKNOWN_SITE").
	WithCode(goerrors.CodeBadRequest)

// ErrConcurrentUpdate is returned when another update won the race.
var ErrConcurrentUpdate = goerrors.New("waste report was updated concurrently, reload and retry", goerrors.CategoryConflict).
	WithTextCode("REPORT_UPDATED_CONCURRENTLY").
	WithCode(goerrors.CodeConflict)

// ErrPhotosDisabled is returned when no photo storage is configured.
var ErrPhotosDisabled = goerrors.New("photo uploads are not enabled", goerrors.CategoryNotFound).
	WithCode(goerrors.CodeNotFound)

// Store is the persistence the service needs.
type Store interface {
	store.Sites
	store.Reports
}

// Publisher receives report events, e.g. the dashboard WebSocket hub.
type Publisher interface {
	Publish(event string, report *models.WasteReport)
}

// PhotoStore uploads a proof photo and returns its public URL.
type PhotoStore interface {
	UploadFile(ctx context.Context, file io.Reader, objectKey, contentType string) (string, error)
}

// Submission is the worker-provided content of a new report.
type Submission struct {
	SiteID       int64   `json:"siteId"`
	WasteType    string  `json:"wasteType"`
	Quantity     float64 `json:"quantity"`
	Unit         string  `json:"unit"`
	Notes        string  `json:"notes"`
	ContactName  string  `json:"contactName"`
	ContactPhone string  `json:"contactPhone"`
}

func (s *Submission) normalize() {
	s.WasteType = strings.TrimSpace(s.WasteType)
	s.Unit = strings.TrimSpace(s.Unit)
	s.Notes = strings.TrimSpace(s.Notes)
	s.ContactName = strings.TrimSpace(s.ContactName)
	s.ContactPhone = strings.TrimSpace(s.ContactPhone)
}

// Validate checks required fields and a positive quantity.
func (s Submission) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.SiteID, validation.Required, validation.Min(int64(1))),
		validation.Field(&s.WasteType, validation.Required, validation.Length(1, 200)),
		validation.Field(&s.Quantity, validation.Required, validation.Min(0.0).Exclusive()),
		validation.Field(&s.Unit, validation.Required, validation.Length(1, 50)),
		validation.Field(&s.Notes, validation.Length(0, 2000)),
		validation.Field(&s.ContactName, validation.Required, validation.Length(1, 200)),
		validation.Field(&s.ContactPhone, validation.Required, validation.Length(1, 50)),
	)
}

// Option customizes a Service.
type Option func(*Service)

// WithClock injects the clock used for createdAt.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithPublisher sets where report events are sent.
func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithPhotoStore enables proof photo uploads.
func WithPhotoStore(p PhotoStore) Option {
	return func(s *Service) {
		s.photos = p
	}
}

// WithPhoneRegion sets the region for contact numbers without a country prefix.
func WithPhoneRegion(region string) Option {
	return func(s *Service) {
		s.phoneRegion = strings.ToUpper(strings.TrimSpace(region))
	}
}

// Service owns every read and write of waste reports.
type Service struct {
	store       Store
	publisher   Publisher
	photos      PhotoStore
	phoneRegion string
	now         func() time.Time
}

// NewService builds a report service over st.
func NewService(st Store, opts ...Option) *Service {
	s := &Service{
		store:     st,
		publisher: noopPublisher{},
		now:       time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// PhotosEnabled reports whether AttachPhoto can succeed.
func (s *Service) PhotosEnabled() bool {
	return s.photos != nil
}

// ListSites returns every site.
func (s *Service) ListSites(ctx context.Context) ([]models.Site, error) {
	sites, err := s.store.ListSites(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to query sites")
	}
	return sites, nil
}

// Submit validates and stores a new report in the initial status.
func (s *Service) Submit(ctx context.Context, sub Submission) (*models.WasteReport, error) {
	sub.normalize()
	if err := goerrors.ValidateWithOzzo(sub.Validate, "invalid waste report"); err != nil {
		return nil, err
	}

	site, err := s.store.FindSite(ctx, sub.SiteID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUnknownSite
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up site")
	}

	report := &models.WasteReport{
		SiteID:       site.ID,
		WasteType:    sub.WasteType,
		Quantity:     sub.Quantity,
		Unit:         sub.Unit,
		Notes:        sub.Notes,
		ContactName:  sub.ContactName,
		ContactPhone: s.normalizePhone(sub.ContactPhone),
		Status:       workflow.Initial,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.CreateReport(ctx, report); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create waste report")
	}
	report.Site = site

	s.publisher.Publish(EventReportCreated, report)
	return report, nil
}

// Get returns a report joined with its site.
func (s *Service) Get(ctx context.Context, id int64) (*models.WasteReport, error) {
	report, err := s.store.FindReport(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrReportNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve waste report")
	}
	return report, nil
}

// List returns reports ordered by status, newest first within a status.
// An empty rawStatus lists every report.
func (s *Service) List(ctx context.Context, rawStatus string) ([]models.WasteReport, error) {
	var filter models.ReportFilter
	if rawStatus != "" {
		status, err := workflow.Parse(rawStatus)
		if err != nil {
			return nil, err
		}
		filter.Status = status
	}

	reports, err := s.store.ListReports(ctx, filter)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to query waste reports")
	}
	return reports, nil
}

// SetStatus moves a report one step forward in the workflow. Any other
// request is rejected and leaves the stored report untouched.
func (s *Service) SetStatus(ctx context.Context, id int64, rawStatus string) (*models.WasteReport, error) {
	to, err := workflow.Parse(rawStatus)
	if err != nil {
		return nil, err
	}

	report, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	from := report.Status
	if err := workflow.Validate(from, to); err != nil {
		return nil, err
	}

	if err := s.store.UpdateReportStatus(ctx, id, from, to); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return nil, ErrReportNotFound
		case errors.Is(err, store.ErrStatusMismatch):
			return nil, ErrConcurrentUpdate
		default:
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update waste report")
		}
	}
	report.Status = to

	log.Printf("Waste report %d moved %s -> %s", id, from, to)
	s.publisher.Publish(EventReportStatusChanged, report)
	return report, nil
}

// Summary counts reports per status.
func (s *Service) Summary(ctx context.Context) (models.StatusSummary, error) {
	summary, err := s.store.CountReportsByStatus(ctx)
	if err != nil {
		return summary, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to count waste reports")
	}
	return summary, nil
}

// Photo is an uploaded proof image.
type Photo struct {
	Body        io.Reader
	Extension   string
	ContentType string
}

// AttachPhoto uploads a proof photo and records its URL on the report.
func (s *Service) AttachPhoto(ctx context.Context, id int64, photo Photo) (*models.WasteReport, error) {
	if s.photos == nil {
		return nil, ErrPhotosDisabled
	}

	report, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("waste-reports/%d/%s%s", id, uuid.NewString(), photo.Extension)
	url, err := s.photos.UploadFile(ctx, photo.Body, key, photo.ContentType)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to upload photo")
	}

	if err := s.store.UpdateReportPhoto(ctx, id, url); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrReportNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to save photo")
	}
	report.PhotoURL = url
	return report, nil
}

// normalizePhone returns the E.164 form of valid numbers and the input
// unchanged otherwise.
func (s *Service) normalizePhone(raw string) string {
	num, err := phonenumbers.Parse(raw, s.phoneRegion)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return raw
	}
	return phonenumbers.Format(num, phonenumbers.E164)
}

type noopPublisher struct{}

func (noopPublisher) Publish(string, *models.WasteReport) {}
