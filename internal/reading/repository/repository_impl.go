package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	readingdomain "github.com/AlexVasiliu-dev/rentalmanager/internal/reading/domain"
	"github.com/AlexVasiliu-dev/rentalmanager/pkg/db/option"
	"github.com/AlexVasiliu-dev/rentalmanager/pkg/db/pagination"
)

type repo struct{}

func Provide() readingdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, reading *readingdomain.MeterReading) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO meter_readings (
			id, meter_id, lease_id, submitted_by, kind, value, consumption,
			photo_url, notes, ocr_confidence, ocr_processed, verified,
			verified_by, verified_at, reading_at, period_start, period_end, created_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		reading.ID,
		reading.MeterID,
		reading.LeaseID,
		reading.SubmittedBy,
		reading.Kind,
		reading.Value,
		reading.Consumption,
		reading.PhotoURL,
		reading.Notes,
		reading.OCRConfidence,
		reading.OCRProcessed,
		reading.Verified,
		reading.VerifiedBy,
		reading.VerifiedAt,
		reading.ReadingAt,
		reading.PeriodStart,
		reading.PeriodEnd,
		reading.CreatedAt,
	).Error
}

func (r *repo) FindLatestForUpdate(ctx context.Context, db *gorm.DB, meterID snowflake.ID) (*readingdomain.MeterReading, error) {
	var reading readingdomain.MeterReading
	err := db.WithContext(ctx).Raw(
		`SELECT id, meter_id, lease_id, submitted_by, kind, value, consumption,
		        photo_url, notes, ocr_confidence, ocr_processed, verified,
		        verified_by, verified_at, reading_at, period_start, period_end, created_at
		 FROM meter_readings
		 WHERE meter_id = ?
		 ORDER BY reading_at DESC, id DESC
		 LIMIT 1
		 FOR UPDATE`,
		meterID,
	).Scan(&reading).Error
	if err != nil {
		return nil, err
	}
	if reading.ID == 0 {
		return nil, nil
	}
	return &reading, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*readingdomain.MeterReading, error) {
	var reading readingdomain.MeterReading
	err := db.WithContext(ctx).Raw(
		`SELECT id, meter_id, lease_id, submitted_by, kind, value, consumption,
		        photo_url, notes, ocr_confidence, ocr_processed, verified,
		        verified_by, verified_at, reading_at, period_start, period_end, created_at
		 FROM meter_readings WHERE id = ?`,
		id,
	).Scan(&reading).Error
	if err != nil {
		return nil, err
	}
	if reading.ID == 0 {
		return nil, nil
	}
	return &reading, nil
}

func (r *repo) MarkVerified(ctx context.Context, db *gorm.DB, reading *readingdomain.MeterReading) error {
	return db.WithContext(ctx).Exec(
		`UPDATE meter_readings SET verified = ?, verified_by = ?, verified_at = ? WHERE id = ?`,
		reading.Verified,
		reading.VerifiedBy,
		reading.VerifiedAt,
		reading.ID,
	).Error
}

func (r *repo) LatestPerMeterInPeriod(ctx context.Context, db *gorm.DB, periodStart, periodEnd time.Time) ([]*readingdomain.MeterReading, error) {
	var readings []*readingdomain.MeterReading
	err := db.WithContext(ctx).Raw(
		`SELECT id, meter_id, lease_id, submitted_by, kind, value, consumption,
		        photo_url, notes, ocr_confidence, ocr_processed, verified,
		        verified_by, verified_at, reading_at, period_start, period_end, created_at
		 FROM meter_readings r
		 WHERE r.period_start = ? AND r.period_end = ?
		   AND r.consumption IS NOT NULL
		   AND r.lease_id IS NOT NULL
		   AND r.id = (
			SELECT r2.id FROM meter_readings r2
			WHERE r2.meter_id = r.meter_id AND r2.period_start = ? AND r2.period_end = ?
			ORDER BY r2.reading_at DESC, r2.id DESC
			LIMIT 1
		 )
		 ORDER BY r.meter_id ASC`,
		periodStart,
		periodEnd,
		periodStart,
		periodEnd,
	).Scan(&readings).Error
	if err != nil {
		return nil, err
	}
	return readings, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter readingdomain.ListFilter, page pagination.Pagination) ([]*readingdomain.MeterReading, error) {
	var readings []*readingdomain.MeterReading
	stmt := db.WithContext(ctx).Model(&readingdomain.MeterReading{})
	if filter.MeterID != 0 {
		stmt = stmt.Where("meter_id = ?", filter.MeterID)
	}
	if filter.LeaseID != 0 {
		stmt = stmt.Where("lease_id = ?", filter.LeaseID)
	}
	if filter.Verified != nil {
		stmt = stmt.Where("verified = ?", *filter.Verified)
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	err := stmt.
		Order("created_at desc, id desc").
		Find(&readings).Error
	if err != nil {
		return nil, err
	}
	return readings, nil
}
