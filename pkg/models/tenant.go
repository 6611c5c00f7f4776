// Package models contains shared data models used across the querydojo codebase.
package models

import "time"

// Tenant is an authenticated principal with a private database namespace.
// Name doubles as the Postgres login role; it is validated at signup and
// never changes afterwards.
type Tenant struct {
	ID           int64     `db:"id"            json:"id"`
	Name         string    `db:"name"          json:"name"`
	Email        string    `db:"email"         json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at"    json:"created_at"`
}

// SchemaName returns the tenant's private namespace following the fixed
// user_<name> convention.
func (t *Tenant) SchemaName() string {
	return "user_" + t.Name
}
