package models

import "github.com/uptrace/bun"

// AdminUser matches the admin_users table and the admin_users collection in MongoDB.
type AdminUser struct {
	bun.BaseModel `bun:"table:admin_users,alias:au" bson:"-" json:"-"`

	ID           int64  `bun:"id,pk,autoincrement" bson:"_id" json:"id"`
	Email        string `bun:"email,notnull,unique" bson:"email" json:"email"`
	PasswordHash string `bun:"password_hash,notnull" bson:"passwordHash" json:"-"`
}
