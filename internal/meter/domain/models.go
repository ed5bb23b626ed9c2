// Package domain contains the utility meter model.
package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// UtilityType is the closed set of metered utilities.
type UtilityType string

const (
	UtilityElectricity UtilityType = "ELECTRICITY"
	UtilityWater       UtilityType = "WATER"
	UtilityGas         UtilityType = "GAS"
)

// ParseUtilityType normalizes and validates a utility type string.
func ParseUtilityType(raw string) (UtilityType, bool) {
	switch UtilityType(strings.ToUpper(strings.TrimSpace(raw))) {
	case UtilityElectricity:
		return UtilityElectricity, true
	case UtilityWater:
		return UtilityWater, true
	case UtilityGas:
		return UtilityGas, true
	default:
		return "", false
	}
}

// Category is the lowercased form used as the bill category key.
func (t UtilityType) Category() string {
	return strings.ToLower(string(t))
}

// Meter is one utility connection point on a property. Price updates are the
// only mutation; meters referenced by readings are never deleted.
type Meter struct {
	ID           snowflake.ID    `json:"id" gorm:"primaryKey"`
	PropertyID   snowflake.ID    `json:"property_id" gorm:"not null;index;uniqueIndex:ux_meters_property_serial"`
	UtilityType  UtilityType     `json:"utility_type" gorm:"type:text;not null"`
	PricePerUnit decimal.Decimal `json:"price_per_unit" gorm:"type:decimal(18,6);not null"`
	Currency     string          `json:"currency" gorm:"type:text;not null"`
	SerialNumber string          `json:"serial_number" gorm:"type:text;not null;uniqueIndex:ux_meters_property_serial"`
	Active       bool            `json:"active" gorm:"not null;default:true"`
	CreatedAt    time.Time       `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time       `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Meter) TableName() string { return "meters" }
