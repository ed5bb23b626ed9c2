// Package domain contains persistence models for properties and leases.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Property is a rentable unit that owns one or more utility meters.
type Property struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	OwnerID   snowflake.ID `json:"owner_id" gorm:"not null;index"`
	Name      string       `json:"name" gorm:"type:text;not null"`
	Address   string       `json:"address" gorm:"type:text;not null"`
	CreatedAt time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Property) TableName() string { return "properties" }

// Lease binds a tenant to a property for a date range. Bills are scoped to
// leases, not tenants, so a tenant change mid-property keeps history intact.
type Lease struct {
	ID         snowflake.ID `json:"id" gorm:"primaryKey"`
	PropertyID snowflake.ID `json:"property_id" gorm:"not null;index"`
	TenantID   snowflake.ID `json:"tenant_id" gorm:"not null;index"`
	StartDate  time.Time    `json:"start_date" gorm:"not null"`
	EndDate    *time.Time   `json:"end_date"`
	Active     bool         `json:"active" gorm:"not null;default:true"`
	CreatedAt  time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt  time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Lease) TableName() string { return "leases" }

// Covers reports whether the lease was in force at the given instant.
func (l Lease) Covers(at time.Time) bool {
	if !l.Active {
		return false
	}
	if at.Before(l.StartDate) {
		return false
	}
	if l.EndDate != nil && at.After(*l.EndDate) {
		return false
	}
	return true
}
