package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/AlexVasiliu-dev/rentalmanager/pkg/db/pagination"
)

type ListFilter struct {
	MeterID  snowflake.ID
	LeaseID  snowflake.ID
	Verified *bool
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, reading *MeterReading) error
	// FindLatestForUpdate returns the meter's most recent reading under a row
	// lock, or nil when the meter has none.
	FindLatestForUpdate(ctx context.Context, db *gorm.DB, meterID snowflake.ID) (*MeterReading, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*MeterReading, error)
	MarkVerified(ctx context.Context, db *gorm.DB, reading *MeterReading) error
	// LatestPerMeterInPeriod returns, for every meter with readings in the
	// exact period, the most recent reading that carries a consumption and a
	// lease. Used to rebuild bills from the reading log.
	LatestPerMeterInPeriod(ctx context.Context, db *gorm.DB, periodStart, periodEnd time.Time) ([]*MeterReading, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Pagination) ([]*MeterReading, error)
}
