// Package domain contains the meter reading model and the pure validation
// and consumption rules applied before a reading is written.
package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// ReadingKind distinguishes the occasion of a reading.
type ReadingKind string

const (
	KindInitial ReadingKind = "INITIAL"
	KindMonthly ReadingKind = "MONTHLY"
	KindFinal   ReadingKind = "FINAL"
)

// ParseReadingKind normalizes and validates a reading kind string.
func ParseReadingKind(raw string) (ReadingKind, bool) {
	switch ReadingKind(strings.ToUpper(strings.TrimSpace(raw))) {
	case KindInitial:
		return KindInitial, true
	case KindMonthly:
		return KindMonthly, true
	case KindFinal:
		return KindFinal, true
	default:
		return "", false
	}
}

// MeterReading is one observation of a meter's cumulative register. Rows are
// append-only; only the verification fields change after insert.
type MeterReading struct {
	ID            snowflake.ID     `json:"id" gorm:"primaryKey"`
	MeterID       snowflake.ID     `json:"meter_id" gorm:"not null;index:ix_readings_meter_at"`
	LeaseID       *snowflake.ID    `json:"lease_id,omitempty" gorm:"index"`
	SubmittedBy   snowflake.ID     `json:"submitted_by" gorm:"not null"`
	Kind          ReadingKind      `json:"reading_type" gorm:"type:text;not null"`
	Value         decimal.Decimal  `json:"value" gorm:"type:decimal(18,6);not null"`
	Consumption   *decimal.Decimal `json:"consumption,omitempty" gorm:"type:decimal(18,6)"`
	PhotoURL      string           `json:"photo_url,omitempty" gorm:"type:text"`
	Notes         string           `json:"notes,omitempty" gorm:"type:text"`
	OCRConfidence *float64         `json:"ocr_confidence,omitempty"`
	OCRProcessed  bool             `json:"ocr_processed" gorm:"not null;default:false"`
	Verified      bool             `json:"verified" gorm:"not null;default:false"`
	VerifiedBy    *snowflake.ID    `json:"verified_by,omitempty"`
	VerifiedAt    *time.Time       `json:"verified_at,omitempty"`
	ReadingAt     time.Time        `json:"reading_at" gorm:"not null;index:ix_readings_meter_at"`
	PeriodStart   time.Time        `json:"period_start" gorm:"not null"`
	PeriodEnd     time.Time        `json:"period_end" gorm:"not null"`
	CreatedAt     time.Time        `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (MeterReading) TableName() string { return "meter_readings" }
