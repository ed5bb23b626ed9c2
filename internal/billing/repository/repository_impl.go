package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	billingdomain "github.com/AlexVasiliu-dev/rentalmanager/internal/billing/domain"
)

type repo struct{}

func Provide() billingdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, bill *billingdomain.Bill) (bool, error) {
	result := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "lease_id"},
			{Name: "category"},
			{Name: "period_start"},
			{Name: "period_end"},
		},
		DoNothing: true,
	}).Create(bill)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) FindForUpdate(ctx context.Context, db *gorm.DB, leaseID snowflake.ID, category string, periodStart, periodEnd time.Time) (*billingdomain.Bill, error) {
	var bill billingdomain.Bill
	err := db.WithContext(ctx).Raw(
		`SELECT id, lease_id, category, description, amount, currency,
		        period_start, period_end, due_date, paid, paid_at, breakdown,
		        created_at, updated_at
		 FROM bills
		 WHERE lease_id = ? AND category = ? AND period_start = ? AND period_end = ?
		 FOR UPDATE`,
		leaseID,
		category,
		periodStart,
		periodEnd,
	).Scan(&bill).Error
	if err != nil {
		return nil, err
	}
	if bill.ID == 0 {
		return nil, nil
	}
	return &bill, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*billingdomain.Bill, error) {
	var bill billingdomain.Bill
	err := db.WithContext(ctx).Raw(
		`SELECT id, lease_id, category, description, amount, currency,
		        period_start, period_end, due_date, paid, paid_at, breakdown,
		        created_at, updated_at
		 FROM bills WHERE id = ?`,
		id,
	).Scan(&bill).Error
	if err != nil {
		return nil, err
	}
	if bill.ID == 0 {
		return nil, nil
	}
	return &bill, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, bill *billingdomain.Bill) error {
	return db.WithContext(ctx).Exec(
		`UPDATE bills
		 SET amount = ?, breakdown = ?, description = ?, paid = ?, paid_at = ?, updated_at = ?
		 WHERE id = ?`,
		bill.Amount,
		bill.Breakdown,
		bill.Description,
		bill.Paid,
		bill.PaidAt,
		bill.UpdatedAt,
		bill.ID,
	).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, leaseID snowflake.ID, paid *bool) ([]billingdomain.Bill, error) {
	query := db.WithContext(ctx).Model(&billingdomain.Bill{}).Where("lease_id = ?", leaseID)
	if paid != nil {
		query = query.Where("paid = ?", *paid)
	}

	var bills []billingdomain.Bill
	if err := query.Order("period_start ASC").Find(&bills).Error; err != nil {
		return nil, err
	}
	return bills, nil
}
