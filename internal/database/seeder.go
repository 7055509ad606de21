// internal/database/seeder.go
package database

import (
	"context"
	"errors"
	"fmt"
	"log"

	"wte-api-server/internal/auth"
	"wte-api-server/internal/models"
	"wte-api-server/internal/reports"
	"wte-api-server/internal/store"
)

// DefaultSites are the sites every installation starts with.
var DefaultSites = []string{"Cassava Processing Site", "Livestock Farm Site"}

// SeedOptions selects what SeedDemoData creates.
type SeedOptions struct {
	AdminEmail    string
	AdminPassword string
	// Samples adds two demo reports when the database has none.
	Samples bool
}

// SeedResult lists what the seed run left in place.
type SeedResult struct {
	Sites        []models.Site
	AdminCreated bool
	Reports      []*models.WasteReport
}

// SeedDemoData upserts the default sites, registers the admin when absent and
// optionally adds sample reports. Running it twice is harmless.
func SeedDemoData(ctx context.Context, sites store.Sites, users *auth.Service, reps *reports.Service, opts SeedOptions) (*SeedResult, error) {
	result := &SeedResult{}

	for _, name := range DefaultSites {
		site, err := sites.EnsureSite(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("failed to seed site %q: %w", name, err)
		}
		result.Sites = append(result.Sites, *site)
	}
	log.Printf("Sites ready: %d", len(result.Sites))

	if opts.AdminEmail != "" {
		_, err := users.Register(ctx, opts.AdminEmail, opts.AdminPassword)
		switch {
		case err == nil:
			result.AdminCreated = true
			log.Printf("Admin %s created.", opts.AdminEmail)
		case errors.Is(err, auth.ErrEmailTaken):
			log.Printf("Admin %s already exists. Seeding skipped.", opts.AdminEmail)
		default:
			return nil, fmt.Errorf("failed to seed admin: %w", err)
		}
	}

	if !opts.Samples {
		return result, nil
	}

	existing, err := reps.List(ctx, "")
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		log.Printf("%d waste reports already exist. Sample reports skipped.", len(existing))
		return result, nil
	}

	samples := []reports.Submission{
		{
			SiteID:       result.Sites[0].ID,
			WasteType:    "Cassava Peels",
			Quantity:     50.5,
			Unit:         "kg",
			Notes:        "Fresh peels from morning processing",
			ContactName:  "John Doe",
			ContactPhone: "+1234567890",
		},
		{
			SiteID:       result.Sites[1].ID,
			WasteType:    "Animal Waste",
			Quantity:     25,
			Unit:         "kg",
			Notes:        "Daily collection from pens",
			ContactName:  "Jane Smith",
			ContactPhone: "+0987654321",
		},
	}
	for _, sample := range samples {
		report, err := reps.Submit(ctx, sample)
		if err != nil {
			return nil, fmt.Errorf("failed to seed sample report: %w", err)
		}
		result.Reports = append(result.Reports, report)
	}

	second := result.Reports[1]
	advanced, err := reps.SetStatus(ctx, second.ID, string(models.StatusEnRoute))
	if err != nil {
		return nil, fmt.Errorf("failed to advance sample report: %w", err)
	}
	result.Reports[1] = advanced

	log.Printf("Sample waste reports created: %d, %d", result.Reports[0].ID, result.Reports[1].ID)
	return result, nil
}
