// internal/models/waste_report.go
package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Status is the collection state of a waste report.
type Status string

const (
	StatusReported  Status = "REPORTED"
	StatusEnRoute   Status = "EN_ROUTE"
	StatusCollected Status = "COLLECTED"
)

// Statuses lists every status in workflow order.
var Statuses = []Status{StatusReported, StatusEnRoute, StatusCollected}

func (s Status) String() string {
	return string(s)
}

// WasteReport is a worker submission tracked through the collection workflow.
type WasteReport struct {
	bun.BaseModel `bun:"table:waste_reports,alias:wr" bson:"-" json:"-"`

	ID           int64     `bun:"id,pk,autoincrement" bson:"_id" json:"id"`
	SiteID       int64     `bun:"site_id,notnull" bson:"siteId" json:"siteId"`
	Site         *Site     `bun:"rel:belongs-to,join:site_id=id" bson:"-" json:"site,omitempty"`
	WasteType    string    `bun:"waste_type,notnull" bson:"wasteType" json:"wasteType"`
	Quantity     float64   `bun:"quantity,notnull" bson:"quantity" json:"quantity"`
	Unit         string    `bun:"unit,notnull" bson:"unit" json:"unit"`
	Notes        string    `bun:"notes" bson:"notes,omitempty" json:"notes,omitempty"`
	ContactName  string    `bun:"contact_name,notnull" bson:"contactName" json:"contactName"`
	ContactPhone string    `bun:"contact_phone,notnull" bson:"contactPhone" json:"contactPhone"`
	Status       Status    `bun:"status,notnull" bson:"status" json:"status"`
	PhotoURL     string    `bun:"photo_url" bson:"photoUrl,omitempty" json:"photoUrl,omitempty"`
	CreatedAt    time.Time `bun:"created_at,notnull" bson:"createdAt" json:"createdAt"`
}

// ReportFilter narrows a report listing. A zero Status means every status.
type ReportFilter struct {
	Status Status
}

// StatusSummary counts reports per status.
type StatusSummary struct {
	Reported  int `json:"REPORTED"`
	EnRoute   int `json:"EN_ROUTE"`
	Collected int `json:"COLLECTED"`
	Total     int `json:"total"`
}

// Add records n reports in the given status.
func (s *StatusSummary) Add(status Status, n int) {
	switch status {
	case StatusReported:
		s.Reported += n
	case StatusEnRoute:
		s.EnRoute += n
	case StatusCollected:
		s.Collected += n
	default:
		return
	}
	s.Total += n
}
