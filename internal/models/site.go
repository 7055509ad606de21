// internal/models/site.go
package models

import "github.com/uptrace/bun"

// Site is a physical location that generates waste.
type Site struct {
	bun.BaseModel `bun:"table:sites,alias:s" bson:"-" json:"-"`

	ID   int64  `bun:"id,pk,autoincrement" bson:"_id" json:"id"`
	Name string `bun:"name,notnull,unique" bson:"name" json:"name"`
}
