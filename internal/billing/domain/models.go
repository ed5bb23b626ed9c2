// Package domain contains the bill aggregate and its breakdown value object.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	meterdomain "github.com/AlexVasiliu-dev/rentalmanager/internal/meter/domain"
)

// CategoryUtilities classifies bills derived from meter readings. All utility
// types for a lease and period share one bill row; the per-type detail lives
// in the breakdown.
const CategoryUtilities = "utilities"

// Contribution is one utility type's share of a bill.
type Contribution struct {
	Consumption     decimal.Decimal  `json:"consumption"`
	Cost            decimal.Decimal  `json:"cost"`
	PreviousReading *decimal.Decimal `json:"previous_reading,omitempty"`
	CurrentReading  decimal.Decimal  `json:"current_reading"`
	ReadingID       snowflake.ID     `json:"reading_id,omitempty"`
}

// Breakdown maps utility type to its current contribution. A later reading
// for the same utility type supersedes the earlier entry rather than adding
// to it.
type Breakdown map[meterdomain.UtilityType]Contribution

// Merge replaces the entry for utilityType with next and returns the amount
// delta the bill must apply: next.Cost minus the superseded entry's cost.
// After applying the delta the bill amount equals the sum of breakdown costs.
func (b Breakdown) Merge(utilityType meterdomain.UtilityType, next Contribution) decimal.Decimal {
	delta := next.Cost
	if prior, ok := b[utilityType]; ok {
		delta = delta.Sub(prior.Cost)
	}
	b[utilityType] = next
	return delta
}

// Total sums the breakdown costs.
func (b Breakdown) Total() decimal.Decimal {
	total := decimal.Zero
	for _, c := range b {
		total = total.Add(c.Cost)
	}
	return total
}

// Bill is one payable obligation for a lease and billing period. Exactly one
// row exists per (lease, category, period_start, period_end) tuple.
type Bill struct {
	ID          snowflake.ID                     `json:"id" gorm:"primaryKey"`
	LeaseID     snowflake.ID                     `json:"lease_id" gorm:"not null;index;uniqueIndex:ux_bill_lease_category_period"`
	Category    string                           `json:"category" gorm:"type:text;not null;uniqueIndex:ux_bill_lease_category_period"`
	Description string                           `json:"description" gorm:"type:text"`
	Amount      decimal.Decimal                  `json:"amount" gorm:"type:decimal(18,2);not null"`
	Currency    string                           `json:"currency" gorm:"type:text;not null"`
	PeriodStart time.Time                        `json:"period_start" gorm:"not null;uniqueIndex:ux_bill_lease_category_period"`
	PeriodEnd   time.Time                        `json:"period_end" gorm:"not null;uniqueIndex:ux_bill_lease_category_period"`
	DueDate     time.Time                        `json:"due_date" gorm:"not null"`
	Paid        bool                             `json:"paid" gorm:"not null;default:false"`
	PaidAt      *time.Time                       `json:"paid_at,omitempty"`
	Breakdown   datatypes.JSONType[Breakdown]    `json:"breakdown" gorm:"not null"`
	CreatedAt   time.Time                        `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time                        `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Bill) TableName() string { return "bills" }
